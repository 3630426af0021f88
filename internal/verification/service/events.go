package service

import (
	"context"
	"errors"
	"maps"

	"aip/internal/verification/models"
	id "aip/pkg/domain"
	dErrors "aip/pkg/domain-errors"
	"aip/pkg/platform/sentinel"
	"aip/pkg/requestcontext"
)

// AppendEvent adds an entry to a request's audit trail. The type must be one
// of the known event types; otherwise it fails only when the request does
// not exist.
func (s *Service) AppendEvent(ctx context.Context, actor requestcontext.Principal, requestID id.RequestID, eventType models.EventType, description string, metadata map[string]any) (*models.Event, error) {
	eventType, err := models.ParseEventType(string(eventType))
	if err != nil {
		return nil, err
	}
	current, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, wrapRequestErr(err)
	}
	var event *models.Event
	err = s.tx.RunInTx(withTxShard(ctx, current.ProjectID), func(txCtx context.Context) error {
		appended, err := s.appendEvent(txCtx, current, actor, eventType, description, metadata)
		if err != nil {
			return err
		}
		event = appended
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, event)
	return event, nil
}

// ListEvents returns the request's events oldest first.
func (s *Service) ListEvents(ctx context.Context, requestID id.RequestID) ([]*models.Event, error) {
	if _, err := s.requests.FindByID(ctx, requestID); err != nil {
		return nil, wrapRequestErr(err)
	}
	events, err := s.events.ListByRequest(ctx, requestID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list events")
	}
	return events, nil
}

// appendEvent must run inside the transaction of the state change it records.
func (s *Service) appendEvent(ctx context.Context, req *models.Request, actor requestcontext.Principal, eventType models.EventType, description string, metadata map[string]any) (*models.Event, error) {
	metadata = maps.Clone(metadata)
	if metadata == nil {
		metadata = map[string]any{}
	}
	if client := requestcontext.Client(ctx); client != "" {
		metadata["client"] = client
	}
	event := &models.Event{
		ID:          id.NewEventID(),
		RequestID:   req.ID,
		ProjectID:   req.ProjectID,
		Type:        eventType,
		Description: description,
		Metadata:    metadata,
		CreatedBy:   actor.UserID,
		CreatedAt:   requestcontext.Now(ctx),
	}
	if err := s.events.Append(ctx, event); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "verification request not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to append event")
	}
	return event, nil
}
