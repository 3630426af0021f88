package models

import (
	"strings"
	"time"

	id "aip/pkg/domain"
	dErrors "aip/pkg/domain-errors"
)

type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusInReview RequestStatus = "in_review"
	StatusApproved RequestStatus = "approved"
	StatusRejected RequestStatus = "rejected"
)

func ParseRequestStatus(s string) (RequestStatus, error) {
	st := RequestStatus(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case StatusPending, StatusInReview, StatusApproved, StatusRejected:
		return st, nil
	}
	return "", dErrors.New(dErrors.CodeValidation, "invalid status: must be pending, in_review, approved or rejected")
}

// IsTerminal reports whether a decision has finalized the request.
func (s RequestStatus) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

type Decision string

const (
	DecisionApproved      Decision = "approved"
	DecisionRejected      Decision = "rejected"
	DecisionNeedsRevision Decision = "needs_revision"
)

func ParseDecision(s string) (Decision, error) {
	d := Decision(strings.ToLower(strings.TrimSpace(s)))
	switch d {
	case DecisionApproved, DecisionRejected, DecisionNeedsRevision:
		return d, nil
	}
	return "", dErrors.New(dErrors.CodeValidation, "invalid decision: must be approved, rejected or needs_revision")
}

// ResultingStatus is the request status a decision moves to.
// needs_revision keeps the request open and sends it back for review.
func (d Decision) ResultingStatus() RequestStatus {
	switch d {
	case DecisionApproved:
		return StatusApproved
	case DecisionRejected:
		return StatusRejected
	default:
		return StatusInReview
	}
}

// EventType is the audit event recorded for a decision.
func (d Decision) EventType() EventType {
	switch d {
	case DecisionApproved:
		return EventApproved
	case DecisionRejected:
		return EventRejected
	default:
		return EventNeedsRevision
	}
}

// Request proposes advancing a project from FromLevel to ToLevel.
type Request struct {
	ID            id.RequestID
	ProjectID     id.ProjectID
	FromLevel     Level
	ToLevel       Level
	Status        RequestStatus
	AssignedTo    *id.UserID
	AssignedOrgID *id.OrgID
	Decision      *Decision
	DecisionNotes string
	DecidedBy     *id.UserID
	DecidedAt     *time.Time
	RequestedBy   id.UserID
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Checks []*Check
}

// NewRequest validates the level ordering and returns a pending request.
func NewRequest(reqID id.RequestID, projectID id.ProjectID, from, to Level, requestedBy id.UserID, now time.Time) (*Request, error) {
	if !to.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "to_level must be V1-V5")
	}
	if to <= from {
		return nil, dErrors.New(dErrors.CodeInvalidTransition, "to_level must be greater than the current level "+from.String())
	}
	return &Request{
		ID:          reqID,
		ProjectID:   projectID,
		FromLevel:   from,
		ToLevel:     to,
		Status:      StatusPending,
		RequestedBy: requestedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// IsTerminal reports whether the request can no longer change.
func (r *Request) IsTerminal() bool {
	return r.Status.IsTerminal()
}

// ApplyDecision records d on the request. The caller is responsible for the
// conditional write that makes this the only finalizing decision.
func (r *Request) ApplyDecision(d Decision, notes string, decidedBy id.UserID, now time.Time) {
	r.Status = d.ResultingStatus()
	r.Decision = &d
	r.DecisionNotes = notes
	r.DecidedBy = &decidedBy
	r.DecidedAt = &now
	r.UpdatedAt = now
}

// ListFilter narrows List results. Zero values match everything.
type ListFilter struct {
	ProjectID *id.ProjectID
	Status    *RequestStatus
	Limit     int
}
