package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	anchormodels "aip/internal/anchor/models"
	"aip/internal/verification/models"
	"aip/internal/verification/ports"
	"aip/internal/verification/service"
	id "aip/pkg/domain"
	dErrors "aip/pkg/domain-errors"
	"aip/pkg/platform/httputil"
	"aip/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/handler-mocks.go -package=mocks Service,AnchorReader

// Service is the verification workflow as seen by HTTP.
type Service interface {
	Open(ctx context.Context, actor requestcontext.Principal, projectID id.ProjectID, toLevel models.Level) (*models.Request, error)
	Assign(ctx context.Context, actor requestcontext.Principal, requestID id.RequestID, assignee id.UserID, assigneeOrg *id.OrgID) (*models.Request, error)
	Decide(ctx context.Context, actor requestcontext.Principal, requestID id.RequestID, decision models.Decision, notes string) (*models.Request, error)
	Get(ctx context.Context, requestID id.RequestID) (*models.Request, error)
	List(ctx context.Context, filter models.ListFilter) ([]*models.Request, error)
	AddCheck(ctx context.Context, actor requestcontext.Principal, requestID id.RequestID, in service.NewCheckInput) (*models.Check, error)
	UpdateCheck(ctx context.Context, actor requestcontext.Principal, requestID id.RequestID, checkID id.CheckID, update models.CheckUpdate) (*models.Check, error)
	ListEvents(ctx context.Context, requestID id.RequestID) ([]*models.Event, error)
	Renotarize(ctx context.Context, actor requestcontext.Principal, requestID id.RequestID) (*ports.NotarizeResult, error)
}

// AnchorReader lists the chain records of a request.
type AnchorReader interface {
	ListByReference(ctx context.Context, referenceID id.RequestID) ([]*anchormodels.Record, error)
}

// Handler wires verification endpoints to the workflow.
type Handler struct {
	service Service
	anchors AnchorReader
	logger  *slog.Logger
}

// New constructs the handler. anchors may be nil when anchoring is disabled.
func New(service Service, anchors AnchorReader, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, anchors: anchors, logger: logger}
}

// Register mounts the verification endpoints on r.
func (h *Handler) Register(r chi.Router) {
	r.Route("/verifications", func(r chi.Router) {
		r.Post("/", h.HandleOpen)
		r.Get("/", h.HandleList)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.HandleGet)
			r.Post("/assign", h.HandleAssign)
			r.Post("/checks", h.HandleAddCheck)
			r.Put("/checks/{check_id}", h.HandleUpdateCheck)
			r.Post("/decision", h.HandleDecide)
			r.Get("/events", h.HandleListEvents)
			r.Get("/anchors", h.HandleListAnchors)
			r.Post("/anchors", h.HandleRenotarize)
		})
	})
}

// HandleOpen handles POST /verifications.
func (h *Handler) HandleOpen(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	actor, ok := h.requireActor(w, ctx)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[OpenRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	created, err := h.service.Open(ctx, actor, req.projectID, req.toLevel)
	if err != nil {
		h.fail(w, ctx, "open verification failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toRequestResponse(created))
}

// HandleList handles GET /verifications?project_id=&status=&limit=.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := h.requireActor(w, ctx); !ok {
		return
	}
	filter, err := parseListFilter(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	reqs, err := h.service.List(ctx, filter)
	if err != nil {
		h.fail(w, ctx, "list verifications failed", err)
		return
	}
	out := make([]RequestResponse, 0, len(reqs))
	for _, req := range reqs {
		out = append(out, toRequestResponse(req))
	}
	httputil.WriteJSON(w, http.StatusOK, ListResponse{Verifications: out, Total: len(out)})
}

// HandleGet handles GET /verifications/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := h.requireActor(w, ctx); !ok {
		return
	}
	verificationID, ok := h.pathRequestID(w, r)
	if !ok {
		return
	}

	req, err := h.service.Get(ctx, verificationID)
	if err != nil {
		h.fail(w, ctx, "get verification failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toRequestResponse(req))
}

// HandleAssign handles POST /verifications/{id}/assign.
func (h *Handler) HandleAssign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := h.requireActor(w, ctx)
	if !ok {
		return
	}
	verificationID, ok := h.pathRequestID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[AssignRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	assigned, err := h.service.Assign(ctx, actor, verificationID, req.assignee, req.assigneeOrg)
	if err != nil {
		h.fail(w, ctx, "assign verification failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toRequestResponse(assigned))
}

// HandleAddCheck handles POST /verifications/{id}/checks.
func (h *Handler) HandleAddCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := h.requireActor(w, ctx)
	if !ok {
		return
	}
	verificationID, ok := h.pathRequestID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[AddCheckRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	check, err := h.service.AddCheck(ctx, actor, verificationID, req.toInput())
	if err != nil {
		h.fail(w, ctx, "add check failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toCheckResponse(check))
}

// HandleUpdateCheck handles PUT /verifications/{id}/checks/{check_id}.
func (h *Handler) HandleUpdateCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := h.requireActor(w, ctx)
	if !ok {
		return
	}
	verificationID, ok := h.pathRequestID(w, r)
	if !ok {
		return
	}
	checkID, err := id.ParseCheckID(chi.URLParam(r, "check_id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid check id"))
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdateCheckRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	check, err := h.service.UpdateCheck(ctx, actor, verificationID, checkID, req.toUpdate())
	if err != nil {
		h.fail(w, ctx, "update check failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toCheckResponse(check))
}

// HandleDecide handles POST /verifications/{id}/decision.
func (h *Handler) HandleDecide(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := h.requireActor(w, ctx)
	if !ok {
		return
	}
	verificationID, ok := h.pathRequestID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[DecisionRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	decided, err := h.service.Decide(ctx, actor, verificationID, req.decision, req.Notes)
	if err != nil {
		h.fail(w, ctx, "decide verification failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toRequestResponse(decided))
}

// HandleListEvents handles GET /verifications/{id}/events.
func (h *Handler) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := h.requireActor(w, ctx); !ok {
		return
	}
	verificationID, ok := h.pathRequestID(w, r)
	if !ok {
		return
	}

	events, err := h.service.ListEvents(ctx, verificationID)
	if err != nil {
		h.fail(w, ctx, "list events failed", err)
		return
	}
	out := make([]EventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, toEventResponse(e))
	}
	httputil.WriteJSON(w, http.StatusOK, EventsResponse{Events: out})
}

// HandleListAnchors handles GET /verifications/{id}/anchors.
func (h *Handler) HandleListAnchors(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := h.requireActor(w, ctx); !ok {
		return
	}
	verificationID, ok := h.pathRequestID(w, r)
	if !ok {
		return
	}

	out := []AnchorResponse{}
	if h.anchors != nil {
		records, err := h.anchors.ListByReference(ctx, verificationID)
		if err != nil {
			h.fail(w, ctx, "list anchors failed", err)
			return
		}
		for _, rec := range records {
			out = append(out, toAnchorResponse(rec))
		}
	}
	httputil.WriteJSON(w, http.StatusOK, AnchorsResponse{Anchors: out})
}

// HandleRenotarize handles POST /verifications/{id}/anchors.
func (h *Handler) HandleRenotarize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := h.requireActor(w, ctx)
	if !ok {
		return
	}
	verificationID, ok := h.pathRequestID(w, r)
	if !ok {
		return
	}

	res, err := h.service.Renotarize(ctx, actor, verificationID)
	if err != nil {
		h.fail(w, ctx, "re-notarize failed", err)
		return
	}
	h.logger.InfoContext(ctx, "notarization re-submitted",
		"request_id", requestcontext.RequestID(ctx),
		"verification_id", verificationID,
		"record_id", res.RecordID,
		"status", res.Status,
	)
	httputil.WriteJSON(w, http.StatusAccepted, NotarizeResponse{
		RecordID: res.RecordID.String(),
		Status:   res.Status,
		TxHash:   res.TxHash,
	})
}

func (h *Handler) requireActor(w http.ResponseWriter, ctx context.Context) (requestcontext.Principal, bool) {
	actor := requestcontext.Actor(ctx)
	if actor.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return actor, false
	}
	return actor, true
}

func (h *Handler) pathRequestID(w http.ResponseWriter, r *http.Request) (id.RequestID, bool) {
	verificationID, err := id.ParseRequestID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid verification id"))
		return id.RequestID{}, false
	}
	return verificationID, true
}

func (h *Handler) fail(w http.ResponseWriter, ctx context.Context, msg string, err error) {
	level := slog.LevelWarn
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		level = slog.LevelError
	}
	h.logger.Log(ctx, level, msg,
		"request_id", requestcontext.RequestID(ctx),
		"user_id", requestcontext.Actor(ctx).UserID,
		"error", err,
	)
	httputil.WriteError(w, err)
}

const maxListLimit = 200

func parseListFilter(r *http.Request) (models.ListFilter, error) {
	q := r.URL.Query()
	filter := models.ListFilter{Limit: 50}
	if v := q.Get("project_id"); v != "" {
		projectID, err := id.ParseProjectID(v)
		if err != nil {
			return filter, dErrors.New(dErrors.CodeBadRequest, "invalid project_id")
		}
		filter.ProjectID = &projectID
	}
	if v := q.Get("status"); v != "" {
		status, err := models.ParseRequestStatus(v)
		if err != nil {
			return filter, err
		}
		filter.Status = &status
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return filter, dErrors.New(dErrors.CodeBadRequest, "limit must be a positive integer")
		}
		filter.Limit = min(n, maxListLimit)
	}
	return filter, nil
}
