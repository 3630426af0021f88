// Package service notarizes data hashes on an EVM chain and reconciles the
// resulting records until they confirm or fail.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"aip/internal/anchor/chain"
	"aip/internal/anchor/lease"
	"aip/internal/anchor/metrics"
	"aip/internal/anchor/models"
	id "aip/pkg/domain"
	dErrors "aip/pkg/domain-errors"
	"aip/pkg/platform/sentinel"
	"aip/pkg/proofhash"
	"aip/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, r *models.Record) error
	FindByID(ctx context.Context, recordID id.RecordID) (*models.Record, error)
	ListByReference(ctx context.Context, referenceID id.RequestID) ([]*models.Record, error)
	// ListDue returns pending records whose NextPollAt is not after now.
	ListDue(ctx context.Context, now time.Time, limit int) ([]*models.Record, error)
	// UpdateIfPending writes r only while the stored status is pending.
	// Returns sentinel.ErrConflict otherwise.
	UpdateIfPending(ctx context.Context, r *models.Record) error
}

// Chain is the node-facing subset of chain.Client.
type Chain interface {
	SendTransaction(ctx context.Context, tx chain.Tx) (string, error)
	TransactionReceipt(ctx context.Context, txHash string) (*models.Receipt, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// Config describes the target contract and the reconciliation policy.
type Config struct {
	ChainID         int64
	ChainName       string
	ContractAddress string
	FromAddress     string
	Confirmations   int
	ConfirmTimeout  time.Duration
	Interval        time.Duration
	Concurrency     int
	BatchSize       int
	BaseBackoff     time.Duration
	MaxBackoff      time.Duration
}

func (c *Config) applyDefaults() {
	if c.Confirmations < 1 {
		c.Confirmations = 1
	}
	if c.ConfirmTimeout <= 0 {
		c.ConfirmTimeout = 30 * time.Minute
	}
	if c.Interval <= 0 {
		c.Interval = 15 * time.Second
	}
	if c.Concurrency < 1 {
		c.Concurrency = 4
	}
	if c.BatchSize < 1 {
		c.BatchSize = 100
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = 5 * time.Second
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 5 * time.Minute
	}
}

// SubmitRequest asks for a hash to be notarized against a reference.
type SubmitRequest struct {
	ProjectID   id.ProjectID
	ReferenceID id.RequestID
	DataHash    proofhash.Hash
	CreatedBy   id.UserID
}

// ReconcileResult counts what one reconciliation pass did.
type ReconcileResult struct {
	Due       int
	Confirmed int
	Failed    int
	Waiting   int
	Errors    int
	Skipped   int
}

type Service struct {
	store   Store
	chain   Chain
	cfg     Config
	lease   lease.Lease
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
	now     func() time.Time
	flight  singleflight.Group
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithLease restricts Run to the lease holder.
func WithLease(l lease.Lease) Option {
	return func(s *Service) {
		if l != nil {
			s.lease = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(store Store, node Chain, cfg Config, opts ...Option) (*Service, error) {
	if store == nil || node == nil {
		return nil, errors.New("anchor store and chain client are required")
	}
	if cfg.ContractAddress == "" || cfg.FromAddress == "" {
		return nil, errors.New("contract and sender addresses are required")
	}
	cfg.applyDefaults()
	s := &Service{
		store:  store,
		chain:  node,
		cfg:    cfg,
		lease:  lease.Local{},
		tracer: otel.Tracer("aip/anchor"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s, nil
}

// Submit sends a notarization transaction and stores the record. Chain
// failures are recorded on the record as status failed; the returned error
// covers validation and storage only.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*models.Record, error) {
	ctx, span := s.tracer.Start(ctx, "anchor.Submit", trace.WithAttributes(
		attribute.String("reference_id", req.ReferenceID.String()),
		attribute.String("data_hash", req.DataHash.Hex()),
	))
	defer span.End()

	if req.ProjectID.IsNil() || req.ReferenceID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "project_id and reference_id are required")
	}
	if req.DataHash.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "data_hash must be a non-zero 32-byte digest")
	}

	now := s.now()
	record := &models.Record{
		ID:              id.NewRecordID(),
		ProjectID:       req.ProjectID,
		RecordType:      models.RecordVerificationDecision,
		ReferenceID:     req.ReferenceID,
		ChainID:         s.cfg.ChainID,
		ChainName:       s.cfg.ChainName,
		ContractAddress: s.cfg.ContractAddress,
		DataHash:        req.DataHash,
		Status:          models.StatusPending,
		NextPollAt:      now,
		CreatedBy:       req.CreatedBy,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	reference := proofhash.Sum([]byte(req.ReferenceID.String()))
	txHash, err := s.chain.SendTransaction(ctx, chain.Tx{
		From: s.cfg.FromAddress,
		To:   s.cfg.ContractAddress,
		Data: chain.NotarizeCalldata(reference, req.DataHash),
	})
	if err != nil {
		record.Fail("submit: "+err.Error(), now)
		outcome := "failed"
		if errors.Is(err, chain.ErrCircuitOpen) {
			outcome = "circuit_open"
		}
		s.metrics.IncrementSubmission(outcome)
		span.RecordError(err)
		s.logger.WarnContext(ctx, "notarization submit failed",
			"request_id", requestcontext.RequestID(ctx),
			"reference_id", req.ReferenceID,
			"data_hash", req.DataHash.Hex(),
			"error", err,
		)
	} else {
		record.TxHash = txHash
		s.metrics.IncrementSubmission("submitted")
	}

	if err := s.store.Create(ctx, record); err != nil {
		span.SetStatus(codes.Error, "store record")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store blockchain record")
	}

	s.logger.InfoContext(ctx, "notarization recorded",
		"request_id", requestcontext.RequestID(ctx),
		"record_id", record.ID,
		"reference_id", record.ReferenceID,
		"status", record.Status,
		"tx_hash", record.TxHash,
	)
	return record, nil
}

// ListByReference returns every record for a reference, oldest first.
func (s *Service) ListByReference(ctx context.Context, referenceID id.RequestID) ([]*models.Record, error) {
	records, err := s.store.ListByReference(ctx, referenceID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list blockchain records")
	}
	return records, nil
}

// ReconcileOnce advances every due pending record by one step.
func (s *Service) ReconcileOnce(ctx context.Context) (ReconcileResult, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "anchor.ReconcileOnce")
	defer span.End()

	due, err := s.store.ListDue(ctx, s.now(), s.cfg.BatchSize)
	if err != nil {
		span.SetStatus(codes.Error, "list due")
		return ReconcileResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list due records")
	}
	span.SetAttributes(attribute.Int("due", len(due)))
	defer func() { s.metrics.ObserveReconcile(start, len(due)) }()
	if len(due) == 0 {
		return ReconcileResult{}, nil
	}

	head, headErr := s.chain.BlockNumber(ctx)
	if headErr != nil {
		span.RecordError(headErr)
		s.logger.WarnContext(ctx, "chain head unavailable", "error", headErr)
	}

	var counts [numOutcomes]atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for _, record := range due {
		g.Go(func() error {
			v, err, _ := s.flight.Do(record.ID.String(), func() (any, error) {
				return s.reconcileRecord(gctx, record, head, headErr)
			})
			if err != nil {
				counts[outcomeError].Add(1)
				s.logger.ErrorContext(gctx, "reconcile record failed", "record_id", record.ID, "error", err)
				return nil
			}
			counts[v.(outcome)].Add(1)
			return nil
		})
	}
	_ = g.Wait()

	res := ReconcileResult{
		Due:       len(due),
		Confirmed: int(counts[outcomeConfirmed].Load()),
		Failed:    int(counts[outcomeFailed].Load()),
		Waiting:   int(counts[outcomeWaiting].Load()),
		Errors:    int(counts[outcomeError].Load()),
		Skipped:   int(counts[outcomeSkipped].Load()),
	}
	s.logger.InfoContext(ctx, "reconciliation pass complete",
		"due", res.Due,
		"confirmed", res.Confirmed,
		"failed", res.Failed,
		"waiting", res.Waiting,
		"errors", res.Errors,
	)
	return res, nil
}

type outcome int

const (
	outcomeConfirmed outcome = iota
	outcomeFailed
	outcomeWaiting
	outcomeSkipped
	outcomeError
	numOutcomes
)

func (o outcome) String() string {
	return [...]string{"confirmed", "failed", "waiting", "skipped", "error"}[o]
}

func (s *Service) reconcileRecord(ctx context.Context, record *models.Record, head uint64, headErr error) (outcome, error) {
	now := s.now()
	switch {
	case record.TxHash == "":
		record.Fail("no transaction hash recorded", now)
	case now.Sub(record.CreatedAt) > s.cfg.ConfirmTimeout:
		record.Fail(fmt.Sprintf("not confirmed within %s", s.cfg.ConfirmTimeout), now)
	case headErr != nil:
		s.backoff(record, headErr, now)
	default:
		receipt, err := s.chain.TransactionReceipt(ctx, record.TxHash)
		switch {
		case err != nil:
			s.backoff(record, err, now)
		case receipt == nil:
			record.NextPollAt = now.Add(s.cfg.Interval)
			record.UpdatedAt = now
		case !receipt.Succeeded:
			record.Fail("transaction reverted", now)
		default:
			record.Confirm(*receipt, head, s.cfg.Confirmations, now)
			if gwei, _ := receipt.GasPriceGwei.Float64(); gwei > 0 {
				s.metrics.ObserveGasPrice(gwei)
			}
			if record.Status == models.StatusPending {
				record.NextPollAt = now.Add(s.cfg.Interval)
			}
		}
	}

	if err := s.store.UpdateIfPending(ctx, record); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			s.metrics.IncrementReconciled(outcomeSkipped.String())
			return outcomeSkipped, nil
		}
		return outcomeError, err
	}

	var result outcome
	switch record.Status {
	case models.StatusConfirmed:
		result = outcomeConfirmed
		s.logger.InfoContext(ctx, "notarization confirmed",
			"record_id", record.ID,
			"tx_hash", record.TxHash,
			"block_number", *record.BlockNumber,
			"confirmations", record.Confirmations,
		)
	case models.StatusFailed:
		result = outcomeFailed
		s.logger.WarnContext(ctx, "notarization failed",
			"record_id", record.ID,
			"tx_hash", record.TxHash,
			"reason", record.LastError,
		)
	default:
		result = outcomeWaiting
	}
	s.metrics.IncrementReconciled(result.String())
	return result, nil
}

// backoff reschedules a record after a transient chain error.
func (s *Service) backoff(record *models.Record, cause error, now time.Time) {
	record.Attempts++
	record.LastError = cause.Error()
	record.NextPollAt = now.Add(backoffDelay(s.cfg.BaseBackoff, s.cfg.MaxBackoff, record.Attempts))
	record.UpdatedAt = now
}

func backoffDelay(base, maxDelay time.Duration, attempts int) time.Duration {
	d := base
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= maxDelay {
			return maxDelay
		}
	}
	return d
}

// Run reconciles on every interval tick while this instance holds the lease.
// It returns when ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	defer func() {
		if err := s.lease.Release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("failed to release reconcile lease", "error", err)
		}
	}()

	for {
		select {
		case <-ticker.C:
			held, err := s.lease.Acquire(ctx)
			if err != nil {
				s.logger.WarnContext(ctx, "reconcile lease unavailable", "error", err)
				continue
			}
			if !held {
				continue
			}
			if _, err := s.ReconcileOnce(ctx); err != nil {
				s.logger.ErrorContext(ctx, "reconciliation pass failed", "error", err)
			}
		case <-ctx.Done():
			return nil
		}
	}
}
