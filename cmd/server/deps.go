package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"aip/internal/anchor/chain"
	"aip/internal/anchor/lease"
	anchormetrics "aip/internal/anchor/metrics"
	anchorservice "aip/internal/anchor/service"
	"aip/internal/anchor/store/record"
	"aip/internal/notify"
	"aip/internal/platform/config"
	"aip/internal/platform/postgres"
	"aip/internal/platform/redis"
	httptransport "aip/internal/transport/http"
	"aip/internal/verification/adapters"
	"aip/internal/verification/handler"
	verificationmetrics "aip/internal/verification/metrics"
	"aip/internal/verification/service"
	checkstore "aip/internal/verification/store/check"
	eventstore "aip/internal/verification/store/event"
	projectstore "aip/internal/verification/store/project"
	requeststore "aip/internal/verification/store/request"
	"aip/migrations"
)

const reconcileLeaseKey = "aip:anchor:reconcile"

type deps struct {
	storage  string
	workflow *service.Service
	anchor   *anchorservice.Service
	events   *notify.Async
	health   []httptransport.HealthCheck

	db    *sql.DB
	redis *redis.Client
	kafka *notify.KafkaPublisher
}

// anchorReader keeps a nil *anchorservice.Service from becoming a non-nil
// interface.
func (d *deps) anchorReader() handler.AnchorReader {
	if d.anchor == nil {
		return nil
	}
	return d.anchor
}

func (d *deps) close(log *slog.Logger) {
	if d.kafka != nil {
		d.kafka.Close(context.Background())
	}
	if d.redis != nil {
		if err := d.redis.Close(); err != nil {
			log.Warn("failed to close redis client", "error", err)
		}
	}
	if d.db != nil {
		if err := d.db.Close(); err != nil {
			log.Warn("failed to close database", "error", err)
		}
	}
}

func buildDeps(ctx context.Context, cfg config.Config, log *slog.Logger, reg prometheus.Registerer) (*deps, error) {
	d := &deps{storage: "memory"}
	fail := func(err error) (*deps, error) {
		d.close(log)
		return nil, err
	}

	stores := service.Stores{
		Projects: projectstore.NewInMemory(),
		Requests: requeststore.NewInMemory(),
		Checks:   checkstore.NewInMemory(),
		Events:   eventstore.NewInMemory(),
	}
	var (
		records anchorservice.Store = record.NewInMemory()
		opts                        = []service.Option{
			service.WithLogger(log),
			service.WithMetrics(verificationmetrics.New(reg)),
		}
	)

	if cfg.Database.URL != "" {
		db, err := postgres.Open(ctx, cfg.Database)
		if err != nil {
			return fail(err)
		}
		d.db = db
		d.storage = "postgres"
		if cfg.Database.AutoMigrate {
			if err := migrations.Apply(ctx, db); err != nil {
				return fail(fmt.Errorf("apply migrations: %w", err))
			}
		}
		stores = service.Stores{
			Projects: projectstore.NewPostgres(db),
			Requests: requeststore.NewPostgres(db),
			Checks:   checkstore.NewPostgres(db),
			Events:   eventstore.NewPostgres(db),
		}
		records = record.NewPostgres(db)
		opts = append(opts, service.WithTx(postgres.NewTx(db)))
		d.health = append(d.health, httptransport.HealthCheck{Name: "postgres", Check: db.PingContext})
	}

	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return fail(err)
	}
	if rc != nil {
		d.redis = rc
		d.health = append(d.health, httptransport.HealthCheck{Name: "redis", Check: rc.Health})
	}

	if len(cfg.Kafka.Brokers) > 0 {
		kp, err := notify.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, notify.WithLogger(log))
		if err != nil {
			return fail(err)
		}
		d.kafka = kp
		if err := kp.EnsureTopic(ctx, 3, 1); err != nil {
			log.Warn("could not ensure kafka topic", "topic", cfg.Kafka.Topic, "error", err)
		}
		d.events = notify.NewAsync(kp, 1024, log)
		opts = append(opts, service.WithPublisher(d.events))
		d.health = append(d.health, httptransport.HealthCheck{Name: "kafka", Check: kp.Ping})
	}

	if cfg.Chain.Enabled() {
		anchorOpts := []anchorservice.Option{
			anchorservice.WithLogger(log),
			anchorservice.WithMetrics(anchormetrics.New(reg)),
		}
		if d.redis != nil {
			anchorOpts = append(anchorOpts, anchorservice.WithLease(
				lease.NewRedis(d.redis.Client, reconcileLeaseKey, cfg.Reconcile.LeaseTTL)))
		}
		anchor, err := anchorservice.New(records, chain.NewClient(cfg.Chain.RPCURL, cfg.Chain.RPCTimeout), anchorservice.Config{
			ChainID:         cfg.Chain.ChainID,
			ChainName:       cfg.Chain.ChainName,
			ContractAddress: cfg.Chain.ContractAddress,
			FromAddress:     cfg.Chain.FromAddress,
			Confirmations:   cfg.Chain.Confirmations,
			ConfirmTimeout:  cfg.Reconcile.ConfirmTimeout,
			Interval:        cfg.Reconcile.Interval,
			Concurrency:     cfg.Reconcile.Concurrency,
			BatchSize:       cfg.Reconcile.BatchSize,
		}, anchorOpts...)
		if err != nil {
			return fail(err)
		}
		d.anchor = anchor
		opts = append(opts, service.WithNotarizer(adapters.NewAnchorAdapter(anchor)))
	} else {
		log.Info("CHAIN_RPC_URL not set, decision anchoring disabled")
	}

	workflow, err := service.New(stores, opts...)
	if err != nil {
		return fail(err)
	}
	d.workflow = workflow
	return d, nil
}
