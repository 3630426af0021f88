package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full service configuration, read from the environment so
// main stays lean.
type Config struct {
	Server    Server
	Database  DatabaseConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Chain     ChainConfig
	Reconcile ReconcileConfig
	Auth      AuthConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	ShutdownTimeout time.Duration
	LogLevel        string
	LogFormat       string
}

// DatabaseConfig selects Postgres. An empty URL keeps all state in memory.
type DatabaseConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
	AutoMigrate  bool
}

// RedisConfig is optional; when URL is empty the reconcile lease is local.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig is optional; when Brokers is empty events are not published.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// ChainConfig describes the notarization target. An empty RPCURL disables
// anchoring.
type ChainConfig struct {
	RPCURL          string
	ChainID         int64
	ChainName       string
	ContractAddress string
	FromAddress     string
	Confirmations   int
	RPCTimeout      time.Duration
}

// ReconcileConfig drives the background confirmation loop.
type ReconcileConfig struct {
	Interval       time.Duration
	Concurrency    int
	BatchSize      int
	ConfirmTimeout time.Duration
	LeaseTTL       time.Duration
}

type AuthConfig struct {
	JWTSigningKey string
	JWTIssuer     string
}

// Enabled reports whether chain anchoring is configured.
func (c ChainConfig) Enabled() bool {
	return c.RPCURL != ""
}

const devSigningKey = "dev-secret-key-change-in-production"

// FromEnv builds a Config from environment variables with development defaults.
func FromEnv() (Config, error) {
	r := envReader{}
	cfg := Config{
		Server: Server{
			Addr:            r.str("AIP_ADDR", ":8080"),
			ShutdownTimeout: r.duration("AIP_SHUTDOWN_TIMEOUT", 10*time.Second),
			LogLevel:        r.str("LOG_LEVEL", "info"),
			LogFormat:       r.str("LOG_FORMAT", "json"),
		},
		Database: DatabaseConfig{
			URL:          r.str("DATABASE_URL", ""),
			MaxOpenConns: r.integer("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns: r.integer("DB_MAX_IDLE_CONNS", 5),
			AutoMigrate:  r.boolean("DB_AUTO_MIGRATE", true),
		},
		Redis: RedisConfig{
			URL:          r.str("REDIS_URL", ""),
			PoolSize:     r.integer("REDIS_POOL_SIZE", 10),
			MinIdleConns: r.integer("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  r.duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  r.duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: r.duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers: r.list("KAFKA_BROKERS"),
			Topic:   r.str("KAFKA_VERIFICATION_TOPIC", "aip.verification.events"),
		},
		Chain: ChainConfig{
			RPCURL:          r.str("CHAIN_RPC_URL", ""),
			ChainID:         int64(r.integer("CHAIN_ID", 137)),
			ChainName:       r.str("CHAIN_NAME", "polygon"),
			ContractAddress: r.str("CONTRACT_ADDRESS", ""),
			FromAddress:     r.str("CHAIN_FROM_ADDRESS", ""),
			Confirmations:   r.integer("CHAIN_CONFIRMATIONS", 12),
			RPCTimeout:      r.duration("CHAIN_RPC_TIMEOUT", 10*time.Second),
		},
		Reconcile: ReconcileConfig{
			Interval:       r.duration("RECONCILE_INTERVAL", 15*time.Second),
			Concurrency:    r.integer("RECONCILE_CONCURRENCY", 4),
			BatchSize:      r.integer("RECONCILE_BATCH_SIZE", 100),
			ConfirmTimeout: r.duration("RECONCILE_CONFIRM_TIMEOUT", 30*time.Minute),
			LeaseTTL:       r.duration("RECONCILE_LEASE_TTL", time.Minute),
		},
		Auth: AuthConfig{
			JWTSigningKey: r.str("JWT_SIGNING_KEY", devSigningKey),
			JWTIssuer:     r.str("JWT_ISSUER", ""),
		},
	}
	if err := r.err(); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Validate rejects configurations the service cannot start with.
func (c Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("AIP_ADDR must not be empty"))
	}
	switch strings.ToLower(c.Server.LogFormat) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.Server.LogFormat))
	}
	if c.Database.MaxOpenConns < 1 {
		errs = append(errs, errors.New("DB_MAX_OPEN_CONNS must be positive"))
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		errs = append(errs, errors.New("KAFKA_VERIFICATION_TOPIC is required when KAFKA_BROKERS is set"))
	}
	if c.Chain.Enabled() {
		if !isHexAddress(c.Chain.ContractAddress) {
			errs = append(errs, fmt.Errorf("CONTRACT_ADDRESS must be a 0x-prefixed 20-byte address, got %q", c.Chain.ContractAddress))
		}
		if !isHexAddress(c.Chain.FromAddress) {
			errs = append(errs, fmt.Errorf("CHAIN_FROM_ADDRESS must be a 0x-prefixed 20-byte address, got %q", c.Chain.FromAddress))
		}
		if c.Chain.ChainID <= 0 {
			errs = append(errs, errors.New("CHAIN_ID must be positive"))
		}
		if c.Chain.Confirmations < 1 {
			errs = append(errs, errors.New("CHAIN_CONFIRMATIONS must be at least 1"))
		}
	}
	if c.Reconcile.Interval <= 0 {
		errs = append(errs, errors.New("RECONCILE_INTERVAL must be positive"))
	}
	if c.Reconcile.Concurrency < 1 || c.Reconcile.BatchSize < 1 {
		errs = append(errs, errors.New("RECONCILE_CONCURRENCY and RECONCILE_BATCH_SIZE must be positive"))
	}
	if c.Reconcile.ConfirmTimeout <= 0 {
		errs = append(errs, errors.New("RECONCILE_CONFIRM_TIMEOUT must be positive"))
	}
	if c.Auth.JWTSigningKey == "" {
		errs = append(errs, errors.New("JWT_SIGNING_KEY must not be empty"))
	}
	return errors.Join(errs...)
}

// UsesDevSigningKey reports whether the built-in development key is active.
func (c Config) UsesDevSigningKey() bool {
	return c.Auth.JWTSigningKey == devSigningKey
}

func isHexAddress(s string) bool {
	if len(s) != 42 || !strings.HasPrefix(s, "0x") {
		return false
	}
	for _, r := range s[2:] {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return false
		}
	}
	return true
}

// envReader collects parse errors so FromEnv reports them all at once.
type envReader struct {
	errs []error
}

func (r *envReader) str(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(v)
	}
	return def
}

func (r *envReader) integer(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func (r *envReader) boolean(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return b
}

func (r *envReader) duration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return def
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}

func (r *envReader) list(key string) []string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (r *envReader) err() error {
	return errors.Join(r.errs...)
}
