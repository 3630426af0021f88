package service

import (
	"context"
	"errors"

	"aip/internal/rbac"
	"aip/internal/verification/models"
	id "aip/pkg/domain"
	dErrors "aip/pkg/domain-errors"
	"aip/pkg/platform/sentinel"
	"aip/pkg/requestcontext"
)

// NewCheckInput describes a check to add to a request.
type NewCheckInput struct {
	Type             models.CheckType
	Name             string
	Description      string
	IsAutomated      bool
	AutomationSource string
}

// AddCheck appends a pending check to a non-terminal request.
func (s *Service) AddCheck(ctx context.Context, actor requestcontext.Principal, requestID id.RequestID, in NewCheckInput) (*models.Check, error) {
	if err := s.gate.Require(actor.Role, rbac.VerifyProjects); err != nil {
		return nil, err
	}
	if _, err := models.ParseCheckType(string(in.Type)); err != nil {
		return nil, err
	}
	current, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, wrapRequestErr(err)
	}

	var added *models.Check
	err = s.tx.RunInTx(withTxShard(ctx, current.ProjectID), func(txCtx context.Context) error {
		req, err := s.requests.FindByIDForShare(txCtx, requestID)
		if err != nil {
			return wrapRequestErr(err)
		}
		if req.IsTerminal() {
			return requestFinalized(req)
		}
		check, err := models.NewCheck(id.NewCheckID(), requestID, in.Type, in.Name, in.Description, requestcontext.Now(txCtx))
		if err != nil {
			return err
		}
		check.IsAutomated = in.IsAutomated
		check.AutomationSource = in.AutomationSource
		if err := s.checks.Add(txCtx, check); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to add check")
		}
		added = check
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "verification check added",
		"request_id", requestcontext.RequestID(ctx),
		"verification_id", requestID,
		"check_id", added.ID,
		"check_type", added.Type,
	)
	return added, nil
}

// UpdateCheck records a reviewer's result. Results never change the request
// status; only Decide does.
func (s *Service) UpdateCheck(ctx context.Context, actor requestcontext.Principal, requestID id.RequestID, checkID id.CheckID, update models.CheckUpdate) (*models.Check, error) {
	if err := s.gate.Require(actor.Role, rbac.VerifyProjects); err != nil {
		return nil, err
	}
	if err := update.Validate(); err != nil {
		return nil, err
	}
	current, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, wrapRequestErr(err)
	}

	var updated *models.Check
	err = s.tx.RunInTx(withTxShard(ctx, current.ProjectID), func(txCtx context.Context) error {
		req, err := s.requests.FindByIDForShare(txCtx, requestID)
		if err != nil {
			return wrapRequestErr(err)
		}
		if req.IsTerminal() {
			return requestFinalized(req)
		}
		check, err := s.checks.FindByID(txCtx, requestID, checkID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "check not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load check")
		}
		check.Apply(update, actor.UserID, requestcontext.Now(txCtx))
		if err := s.checks.Update(txCtx, check); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update check")
		}
		updated = check
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementCheckUpdated(string(updated.Type), string(updated.Status))
	s.logger.InfoContext(ctx, "verification check updated",
		"request_id", requestcontext.RequestID(ctx),
		"verification_id", requestID,
		"check_id", checkID,
		"status", updated.Status,
	)
	return updated, nil
}

func requestFinalized(req *models.Request) error {
	return dErrors.New(dErrors.CodeRequestFinalized, "verification request is "+string(req.Status)+"; checks are read-only")
}
