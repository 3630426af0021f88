package models

import (
	"strings"
	"time"

	id "aip/pkg/domain"
	dErrors "aip/pkg/domain-errors"
)

type CheckType string

const (
	CheckIdentity  CheckType = "identity"
	CheckDocument  CheckType = "document"
	CheckFinancial CheckType = "financial"
	CheckTechnical CheckType = "technical"
	CheckLegal     CheckType = "legal"
	CheckESG       CheckType = "esg"
)

func ParseCheckType(s string) (CheckType, error) {
	t := CheckType(strings.ToLower(strings.TrimSpace(s)))
	switch t {
	case CheckIdentity, CheckDocument, CheckFinancial, CheckTechnical, CheckLegal, CheckESG:
		return t, nil
	}
	return "", dErrors.New(dErrors.CodeValidation, "invalid check_type: must be identity, document, financial, technical, legal or esg")
}

type CheckStatus string

const (
	CheckPending CheckStatus = "pending"
	CheckPassed  CheckStatus = "passed"
	CheckFailed  CheckStatus = "failed"
	CheckSkipped CheckStatus = "skipped"
)

// ParseCheckResult accepts the statuses a reviewer may record. pending is the
// initial state only.
func ParseCheckResult(s string) (CheckStatus, error) {
	st := CheckStatus(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case CheckPassed, CheckFailed, CheckSkipped:
		return st, nil
	}
	return "", dErrors.New(dErrors.CodeValidation, "invalid status: must be passed, failed or skipped")
}

const (
	MinScore        = 0
	MaxScore        = 100
	maxCheckNameLen = 255
)

// Check is one verifiable fact evaluated within a request.
type Check struct {
	ID               id.CheckID
	RequestID        id.RequestID
	Type             CheckType
	Name             string
	Description      string
	Status           CheckStatus
	Score            *int
	Notes            string
	Evidence         map[string]any
	CheckedBy        *id.UserID
	CheckedAt        *time.Time
	IsAutomated      bool
	AutomationSource string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewCheck returns a pending check after validating its name.
func NewCheck(checkID id.CheckID, requestID id.RequestID, typ CheckType, name, description string, now time.Time) (*Check, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "check_name is required")
	}
	if len(name) > maxCheckNameLen {
		return nil, dErrors.New(dErrors.CodeValidation, "check_name must be at most 255 characters")
	}
	return &Check{
		ID:          checkID,
		RequestID:   requestID,
		Type:        typ,
		Name:        name,
		Description: strings.TrimSpace(description),
		Status:      CheckPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// CheckUpdate is a reviewer's result for a check. Nil fields are left unchanged.
type CheckUpdate struct {
	Status   CheckStatus
	Score    *int
	Notes    *string
	Evidence map[string]any
}

func (u CheckUpdate) Validate() error {
	switch u.Status {
	case CheckPassed, CheckFailed, CheckSkipped:
	default:
		return dErrors.New(dErrors.CodeValidation, "invalid status: must be passed, failed or skipped")
	}
	if u.Score != nil && (*u.Score < MinScore || *u.Score > MaxScore) {
		return dErrors.New(dErrors.CodeValidation, "score must be between 0 and 100")
	}
	return nil
}

// Apply writes the update onto c.
func (c *Check) Apply(u CheckUpdate, checkedBy id.UserID, now time.Time) {
	c.Status = u.Status
	if u.Score != nil {
		score := *u.Score
		c.Score = &score
	}
	if u.Notes != nil {
		c.Notes = *u.Notes
	}
	if u.Evidence != nil {
		c.Evidence = u.Evidence
	}
	c.CheckedBy = &checkedBy
	c.CheckedAt = &now
	c.UpdatedAt = now
}
