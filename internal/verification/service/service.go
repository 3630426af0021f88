package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"aip/internal/rbac"
	"aip/internal/verification/metrics"
	"aip/internal/verification/models"
	"aip/internal/verification/ports"
	id "aip/pkg/domain"
	dErrors "aip/pkg/domain-errors"
	"aip/pkg/platform/sentinel"
	"aip/pkg/requestcontext"
)

type ProjectStore interface {
	FindByID(ctx context.Context, projectID id.ProjectID) (*models.Project, error)
	// AdvanceLevelIfLower sets the project's level to `to` only when the stored
	// level is lower. Returns sentinel.ErrConflict otherwise.
	AdvanceLevelIfLower(ctx context.Context, projectID id.ProjectID, to models.Level, at time.Time) error
}

type RequestStore interface {
	Create(ctx context.Context, req *models.Request) error
	FindByID(ctx context.Context, requestID id.RequestID) (*models.Request, error)
	// FindByIDForUpdate locks the request row for the rest of the transaction.
	FindByIDForUpdate(ctx context.Context, requestID id.RequestID) (*models.Request, error)
	// FindByIDForShare blocks concurrent finalization until the transaction ends.
	FindByIDForShare(ctx context.Context, requestID id.RequestID) (*models.Request, error)
	List(ctx context.Context, filter models.ListFilter) ([]*models.Request, error)
	// SaveAssignmentIfOpen and SaveDecisionIfOpen write only while the stored
	// status is non-terminal. Returns sentinel.ErrConflict otherwise.
	SaveAssignmentIfOpen(ctx context.Context, req *models.Request) error
	SaveDecisionIfOpen(ctx context.Context, req *models.Request) error
}

type CheckStore interface {
	Add(ctx context.Context, check *models.Check) error
	FindByID(ctx context.Context, requestID id.RequestID, checkID id.CheckID) (*models.Check, error)
	Update(ctx context.Context, check *models.Check) error
	ListByRequest(ctx context.Context, requestID id.RequestID) ([]*models.Check, error)
}

type EventStore interface {
	// Append assigns Seq and clamps CreatedAt so it never precedes the
	// request's latest event.
	Append(ctx context.Context, event *models.Event) error
	ListByRequest(ctx context.Context, requestID id.RequestID) ([]*models.Event, error)
}

// Stores groups the persistence ports the workflow depends on.
type Stores struct {
	Projects ProjectStore
	Requests RequestStore
	Checks   CheckStore
	Events   EventStore
}

const defaultNotarizeTimeout = 30 * time.Second

// Service runs the verification request state machine, the check registry and
// the event log. A decision and its level change commit together; chain
// notarization and event publication follow the commit and never fail it.
type Service struct {
	projects ProjectStore
	requests RequestStore
	checks   CheckStore
	events   EventStore
	tx       StoreTx
	gate     *rbac.Gate

	notarizer       ports.Notarizer
	publisher       ports.EventPublisher
	notarizeTimeout time.Duration

	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer

	inflight sync.WaitGroup
	closed   atomic.Bool
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

func WithTx(tx StoreTx) Option {
	return func(s *Service) {
		s.tx = tx
	}
}

func WithGate(g *rbac.Gate) Option {
	return func(s *Service) {
		s.gate = g
	}
}

// WithNotarizer enables post-approval anchoring of decision digests.
func WithNotarizer(n ports.Notarizer) Option {
	return func(s *Service) {
		s.notarizer = n
	}
}

func WithPublisher(p ports.EventPublisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

// WithNotarizeTimeout bounds each background notarization call.
func WithNotarizeTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.notarizeTimeout = d
		}
	}
}

func New(stores Stores, opts ...Option) (*Service, error) {
	if stores.Projects == nil || stores.Requests == nil || stores.Checks == nil || stores.Events == nil {
		return nil, errors.New("all verification stores are required")
	}
	s := &Service{
		projects:        stores.Projects,
		requests:        stores.Requests,
		checks:          stores.Checks,
		events:          stores.Events,
		notarizeTimeout: defaultNotarizeTimeout,
		tracer:          otel.Tracer("aip/verification"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tx == nil {
		s.tx = NewInMemoryTx()
	}
	if s.gate == nil {
		s.gate = rbac.NewGate(rbac.DefaultTable())
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s, nil
}

// Open creates a pending request to move a project from its current level to
// toLevel and records the created event in the same transaction.
func (s *Service) Open(ctx context.Context, actor requestcontext.Principal, projectID id.ProjectID, toLevel models.Level) (*models.Request, error) {
	ctx, span := s.tracer.Start(ctx, "verification.Open", trace.WithAttributes(
		attribute.String("project_id", projectID.String()),
		attribute.String("to_level", toLevel.String()),
	))
	defer span.End()

	if err := s.gate.Require(actor.Role, rbac.RequestVerification); err != nil {
		return nil, err
	}
	if projectID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "project_id is required")
	}
	if !toLevel.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "to_level must be V1-V5")
	}

	var (
		created *models.Request
		event   *models.Event
	)
	err := s.tx.RunInTx(withTxShard(ctx, projectID), func(txCtx context.Context) error {
		project, err := s.projects.FindByID(txCtx, projectID)
		if err != nil {
			return wrapProjectErr(err)
		}
		from := project.CurrentLevel
		if from.Skips(toLevel) && !s.gate.Check(actor.Role, rbac.SkipVerificationLevels) {
			return dErrors.New(dErrors.CodeInvalidTransition,
				fmt.Sprintf("cannot skip from %s to %s: only the next level %s may be requested", from, toLevel, from+1))
		}

		req, err := models.NewRequest(id.NewRequestID(), projectID, from, toLevel, actor.UserID, requestcontext.Now(txCtx))
		if err != nil {
			return err
		}
		if err := s.requests.Create(txCtx, req); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create verification request")
		}
		event, err = s.appendEvent(txCtx, req, actor, models.EventCreated,
			fmt.Sprintf("Verification requested from %s to %s", from, toLevel),
			map[string]any{"from_level": from.String(), "to_level": toLevel.String()},
		)
		if err != nil {
			return err
		}
		created = req
		return nil
	})
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}

	s.metrics.IncrementOpened()
	s.logger.InfoContext(ctx, "verification request opened",
		"request_id", requestcontext.RequestID(ctx),
		"verification_id", created.ID,
		"project_id", projectID,
		"from_level", created.FromLevel.String(),
		"to_level", created.ToLevel.String(),
	)
	s.publish(ctx, event)
	return created, nil
}

// Assign hands a non-terminal request to a reviewer and moves it into review.
func (s *Service) Assign(ctx context.Context, actor requestcontext.Principal, requestID id.RequestID, assignee id.UserID, assigneeOrg *id.OrgID) (*models.Request, error) {
	if err := s.gate.Require(actor.Role, rbac.AssignVerification); err != nil {
		return nil, err
	}
	if assignee.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "assigned_to is required")
	}
	current, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, wrapRequestErr(err)
	}

	var (
		assigned *models.Request
		event    *models.Event
	)
	err = s.tx.RunInTx(withTxShard(ctx, current.ProjectID), func(txCtx context.Context) error {
		req, err := s.requests.FindByIDForUpdate(txCtx, requestID)
		if err != nil {
			return wrapRequestErr(err)
		}
		if req.IsTerminal() {
			return dErrors.New(dErrors.CodeRequestFinalized, "verification request is already "+string(req.Status))
		}
		now := requestcontext.Now(txCtx)
		req.AssignedTo = &assignee
		req.AssignedOrgID = assigneeOrg
		if req.Status == models.StatusPending {
			req.Status = models.StatusInReview
		}
		req.UpdatedAt = now

		if err := s.requests.SaveAssignmentIfOpen(txCtx, req); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeRequestFinalized, "verification request was finalized concurrently")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to assign verification request")
		}
		metadata := map[string]any{"assigned_to": assignee.String()}
		if assigneeOrg != nil {
			metadata["assigned_org_id"] = assigneeOrg.String()
		}
		event, err = s.appendEvent(txCtx, req, actor, models.EventAssigned, "Verification assigned to reviewer", metadata)
		if err != nil {
			return err
		}
		assigned = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "verification request assigned",
		"request_id", requestcontext.RequestID(ctx),
		"verification_id", requestID,
		"assigned_to", assignee,
	)
	s.publish(ctx, event)
	return assigned, nil
}

// Decide records a reviewer's decision. Exactly one finalizing decision can
// win per request; later callers get CodeAlreadyDecided. An approval advances
// the project's level inside the same transaction and is then notarized in
// the background.
func (s *Service) Decide(ctx context.Context, actor requestcontext.Principal, requestID id.RequestID, decision models.Decision, notes string) (*models.Request, error) {
	start := time.Now()
	defer s.metrics.ObserveDecide(start)

	ctx, span := s.tracer.Start(ctx, "verification.Decide", trace.WithAttributes(
		attribute.String("verification_id", requestID.String()),
		attribute.String("decision", string(decision)),
	))
	defer span.End()

	if err := s.gate.Require(actor.Role, rbac.ApproveVerification); err != nil {
		return nil, err
	}
	if _, err := models.ParseDecision(string(decision)); err != nil {
		return nil, err
	}
	current, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, wrapRequestErr(err)
	}

	var (
		decided *models.Request
		event   *models.Event
	)
	err = s.tx.RunInTx(withTxShard(ctx, current.ProjectID), func(txCtx context.Context) error {
		req, err := s.requests.FindByIDForUpdate(txCtx, requestID)
		if err != nil {
			return wrapRequestErr(err)
		}
		if req.IsTerminal() {
			return alreadyDecided(req)
		}

		if decision == models.DecisionApproved {
			project, err := s.projects.FindByID(txCtx, req.ProjectID)
			if err != nil {
				return wrapProjectErr(err)
			}
			if req.ToLevel <= project.CurrentLevel {
				return dErrors.New(dErrors.CodeInvalidTransition,
					fmt.Sprintf("project is already at %s; cannot approve %s", project.CurrentLevel, req.ToLevel))
			}
		}

		now := requestcontext.Now(txCtx)
		req.ApplyDecision(decision, notes, actor.UserID, now)
		if err := s.requests.SaveDecisionIfOpen(txCtx, req); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeAlreadyDecided, "verification request has already been decided")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record decision")
		}

		if decision == models.DecisionApproved {
			if err := s.projects.AdvanceLevelIfLower(txCtx, req.ProjectID, req.ToLevel, now); err != nil {
				if errors.Is(err, sentinel.ErrConflict) {
					return dErrors.New(dErrors.CodeInvalidTransition, "project level advanced concurrently to "+req.ToLevel.String()+" or beyond")
				}
				return wrapProjectErr(err)
			}
		}

		event, err = s.appendEvent(txCtx, req, actor, decision.EventType(), decisionDescription(req, decision), map[string]any{
			"decision":   string(decision),
			"from_level": req.FromLevel.String(),
			"to_level":   req.ToLevel.String(),
			"notes":      notes,
		})
		if err != nil {
			return err
		}
		decided = req
		return nil
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeAlreadyDecided) {
			s.metrics.IncrementConflict()
		}
		recordSpanError(span, err)
		return nil, err
	}

	s.metrics.IncrementDecision(string(decision))
	if decision == models.DecisionApproved {
		s.metrics.IncrementLevelAdvanced(decided.ToLevel.String())
	}
	s.logger.InfoContext(ctx, "verification decided",
		"request_id", requestcontext.RequestID(ctx),
		"verification_id", requestID,
		"project_id", decided.ProjectID,
		"decision", decision,
		"decided_by", actor.UserID,
	)

	s.publish(ctx, event)
	if decision == models.DecisionApproved {
		s.notarize(ctx, decided, actor.UserID)
	}
	return decided, nil
}

// Get returns a request with its checks.
func (s *Service) Get(ctx context.Context, requestID id.RequestID) (*models.Request, error) {
	req, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, wrapRequestErr(err)
	}
	checks, err := s.checks.ListByRequest(ctx, requestID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load checks")
	}
	req.Checks = checks
	return req, nil
}

// List returns requests matching filter, newest first.
func (s *Service) List(ctx context.Context, filter models.ListFilter) ([]*models.Request, error) {
	reqs, err := s.requests.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list verification requests")
	}
	return reqs, nil
}

// Renotarize re-submits the digest of an approved decision. Used to retry
// anchoring after a failed record.
func (s *Service) Renotarize(ctx context.Context, actor requestcontext.Principal, requestID id.RequestID) (*ports.NotarizeResult, error) {
	if err := s.gate.Require(actor.Role, rbac.AnchorDecisions); err != nil {
		return nil, err
	}
	if s.notarizer == nil {
		return nil, dErrors.New(dErrors.CodeExternalService, "chain anchoring is not configured")
	}
	req, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, wrapRequestErr(err)
	}
	if req.Status != models.StatusApproved {
		return nil, dErrors.New(dErrors.CodeInvalidTransition, "only approved decisions can be anchored")
	}
	hash, err := DecisionDigest(req)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash decision")
	}
	res, err := s.notarizer.Notarize(ctx, ports.NotarizeRequest{
		ProjectID:   req.ProjectID,
		ReferenceID: req.ID,
		DataHash:    hash,
		RequestedBy: actor.UserID,
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store anchor record")
	}
	return res, nil
}

// Shutdown stops accepting background notarizations and waits for in-flight
// ones to finish or ctx to end.
func (s *Service) Shutdown(ctx context.Context) error {
	s.closed.Store(true)
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) publish(ctx context.Context, event *models.Event) {
	if s.publisher == nil || event == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish verification event",
			"verification_id", event.RequestID,
			"event_type", event.Type,
			"error", err,
		)
	}
}

// notarize anchors the decision digest on a background goroutine. The call
// uses a context detached from the caller so it outlives the HTTP request.
func (s *Service) notarize(ctx context.Context, req *models.Request, by id.UserID) {
	if s.notarizer == nil {
		return
	}
	if s.closed.Load() {
		s.metrics.IncrementAnchorDispatch("skipped")
		s.logger.WarnContext(ctx, "skipping notarization during shutdown", "verification_id", req.ID)
		return
	}
	hash, err := DecisionDigest(req)
	if err != nil {
		s.metrics.IncrementAnchorDispatch("error")
		s.logger.ErrorContext(ctx, "failed to hash decision", "verification_id", req.ID, "error", err)
		return
	}
	notarizeReq := ports.NotarizeRequest{
		ProjectID:   req.ProjectID,
		ReferenceID: req.ID,
		DataHash:    hash,
		RequestedBy: by,
	}

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		bgCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notarizeTimeout)
		defer cancel()

		res, err := s.notarizer.Notarize(bgCtx, notarizeReq)
		if err != nil {
			s.metrics.IncrementAnchorDispatch("error")
			s.logger.ErrorContext(bgCtx, "failed to notarize decision",
				"verification_id", notarizeReq.ReferenceID,
				"data_hash", hash.Hex(),
				"error", err,
			)
			return
		}
		s.metrics.IncrementAnchorDispatch(res.Status)
		s.logger.InfoContext(bgCtx, "decision notarization submitted",
			"verification_id", notarizeReq.ReferenceID,
			"record_id", res.RecordID,
			"status", res.Status,
			"tx_hash", res.TxHash,
		)
	}()
}

func decisionDescription(req *models.Request, d models.Decision) string {
	switch d {
	case models.DecisionApproved:
		return fmt.Sprintf("Verification approved: %s to %s", req.FromLevel, req.ToLevel)
	case models.DecisionRejected:
		return fmt.Sprintf("Verification rejected for %s", req.ToLevel)
	default:
		return "Revision requested before a decision on " + req.ToLevel.String()
	}
}

func alreadyDecided(req *models.Request) error {
	return dErrors.New(dErrors.CodeAlreadyDecided, "verification request is already "+string(req.Status))
}

func wrapRequestErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "verification request not found")
	}
	if dErrors.CodeOf(err) != dErrors.CodeInternal {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load verification request")
}

func wrapProjectErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "project not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load project")
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
}
