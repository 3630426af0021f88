package handler

import (
	"strings"

	"aip/internal/verification/models"
	"aip/internal/verification/service"
	id "aip/pkg/domain"
	dErrors "aip/pkg/domain-errors"
)

const (
	maxNotesLen       = 4000
	maxDescriptionLen = 2000
)

// OpenRequest is the body of POST /verifications.
type OpenRequest struct {
	ProjectID string `json:"project_id"`
	ToLevel   string `json:"to_level"`

	projectID id.ProjectID
	toLevel   models.Level
}

func (r *OpenRequest) Normalize() {
	r.ProjectID = strings.TrimSpace(r.ProjectID)
	r.ToLevel = strings.ToUpper(strings.TrimSpace(r.ToLevel))
}

func (r *OpenRequest) Validate() error {
	if r.ProjectID == "" {
		return dErrors.New(dErrors.CodeValidation, "project_id is required")
	}
	projectID, err := id.ParseProjectID(r.ProjectID)
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "project_id must be a UUID")
	}
	if r.ToLevel == "" {
		return dErrors.New(dErrors.CodeValidation, "to_level is required")
	}
	level, err := models.ParseLevel(r.ToLevel)
	if err != nil {
		return err
	}
	r.projectID = projectID
	r.toLevel = level
	return nil
}

// AssignRequest is the body of POST /verifications/{id}/assign.
type AssignRequest struct {
	AssignedTo    string `json:"assigned_to"`
	AssignedOrgID string `json:"assigned_org_id,omitempty"`

	assignee    id.UserID
	assigneeOrg *id.OrgID
}

func (r *AssignRequest) Validate() error {
	assignee, err := id.ParseUserID(strings.TrimSpace(r.AssignedTo))
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "assigned_to must be a UUID")
	}
	r.assignee = assignee
	if org := strings.TrimSpace(r.AssignedOrgID); org != "" {
		orgID, err := id.ParseOrgID(org)
		if err != nil {
			return dErrors.New(dErrors.CodeValidation, "assigned_org_id must be a UUID")
		}
		r.assigneeOrg = &orgID
	}
	return nil
}

// AddCheckRequest is the body of POST /verifications/{id}/checks.
type AddCheckRequest struct {
	CheckType        string `json:"check_type"`
	CheckName        string `json:"check_name"`
	Description      string `json:"description,omitempty"`
	IsAutomated      bool   `json:"is_automated,omitempty"`
	AutomationSource string `json:"automation_source,omitempty"`

	checkType models.CheckType
}

func (r *AddCheckRequest) Normalize() {
	r.CheckName = strings.TrimSpace(r.CheckName)
	r.Description = strings.TrimSpace(r.Description)
	r.AutomationSource = strings.TrimSpace(r.AutomationSource)
}

func (r *AddCheckRequest) Validate() error {
	if len(r.Description) > maxDescriptionLen {
		return dErrors.New(dErrors.CodeValidation, "description must be at most 2000 characters")
	}
	checkType, err := models.ParseCheckType(r.CheckType)
	if err != nil {
		return err
	}
	if r.CheckName == "" {
		return dErrors.New(dErrors.CodeValidation, "check_name is required")
	}
	if r.AutomationSource != "" && !r.IsAutomated {
		return dErrors.New(dErrors.CodeValidation, "automation_source requires is_automated")
	}
	r.checkType = checkType
	return nil
}

func (r *AddCheckRequest) toInput() service.NewCheckInput {
	return service.NewCheckInput{
		Type:             r.checkType,
		Name:             r.CheckName,
		Description:      r.Description,
		IsAutomated:      r.IsAutomated,
		AutomationSource: r.AutomationSource,
	}
}

// UpdateCheckRequest is the body of PUT /verifications/{id}/checks/{check_id}.
type UpdateCheckRequest struct {
	Status   string         `json:"status"`
	Score    *int           `json:"score,omitempty"`
	Notes    *string        `json:"notes,omitempty"`
	Evidence map[string]any `json:"evidence,omitempty"`

	status models.CheckStatus
}

func (r *UpdateCheckRequest) Validate() error {
	status, err := models.ParseCheckResult(r.Status)
	if err != nil {
		return err
	}
	if r.Notes != nil && len(*r.Notes) > maxNotesLen {
		return dErrors.New(dErrors.CodeValidation, "notes must be at most 4000 characters")
	}
	r.status = status
	return r.toUpdate().Validate()
}

func (r *UpdateCheckRequest) toUpdate() models.CheckUpdate {
	return models.CheckUpdate{
		Status:   r.status,
		Score:    r.Score,
		Notes:    r.Notes,
		Evidence: r.Evidence,
	}
}

// DecisionRequest is the body of POST /verifications/{id}/decision.
type DecisionRequest struct {
	Decision string `json:"decision"`
	Notes    string `json:"decision_notes,omitempty"`

	decision models.Decision
}

// Normalize leaves Notes untouched; they are recorded verbatim.
func (r *DecisionRequest) Normalize() {
	r.Decision = strings.ToLower(strings.TrimSpace(r.Decision))
}

func (r *DecisionRequest) Validate() error {
	if len(r.Notes) > maxNotesLen {
		return dErrors.New(dErrors.CodeValidation, "decision_notes must be at most 4000 characters")
	}
	decision, err := models.ParseDecision(r.Decision)
	if err != nil {
		return err
	}
	r.decision = decision
	return nil
}
