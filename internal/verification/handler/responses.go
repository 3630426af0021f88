package handler

import (
	"time"

	anchormodels "aip/internal/anchor/models"
	"aip/internal/verification/models"
)

type RequestResponse struct {
	ID            string          `json:"id"`
	ProjectID     string          `json:"project_id"`
	FromLevel     string          `json:"from_level"`
	ToLevel       string          `json:"to_level"`
	Status        string          `json:"status"`
	AssignedTo    string          `json:"assigned_to,omitempty"`
	AssignedOrgID string          `json:"assigned_org_id,omitempty"`
	Decision      string          `json:"decision,omitempty"`
	DecisionNotes string          `json:"decision_notes,omitempty"`
	DecidedBy     string          `json:"decided_by,omitempty"`
	DecidedAt     *time.Time      `json:"decided_at,omitempty"`
	RequestedBy   string          `json:"requested_by"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Checks        []CheckResponse `json:"checks,omitempty"`
}

type ListResponse struct {
	Verifications []RequestResponse `json:"verifications"`
	Total         int               `json:"total"`
}

type CheckResponse struct {
	ID               string         `json:"id"`
	VerificationID   string         `json:"verification_id"`
	CheckType        string         `json:"check_type"`
	CheckName        string         `json:"check_name"`
	Description      string         `json:"description,omitempty"`
	Status           string         `json:"status"`
	Score            *int           `json:"score,omitempty"`
	Notes            string         `json:"notes,omitempty"`
	Evidence         map[string]any `json:"evidence,omitempty"`
	CheckedBy        string         `json:"checked_by,omitempty"`
	CheckedAt        *time.Time     `json:"checked_at,omitempty"`
	IsAutomated      bool           `json:"is_automated"`
	AutomationSource string         `json:"automation_source,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
}

type EventResponse struct {
	ID          string         `json:"id"`
	EventType   string         `json:"event_type"`
	Description string         `json:"description"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedBy   string         `json:"created_by,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

type EventsResponse struct {
	Events []EventResponse `json:"events"`
}

type AnchorResponse struct {
	ID            string     `json:"id"`
	ChainID       int64      `json:"chain_id"`
	ChainName     string     `json:"chain_name"`
	TxHash        string     `json:"tx_hash,omitempty"`
	DataHash      string     `json:"data_hash"`
	Status        string     `json:"status"`
	Confirmations int        `json:"confirmations"`
	BlockNumber   *uint64    `json:"block_number,omitempty"`
	GasUsed       *uint64    `json:"gas_used,omitempty"`
	GasPriceGwei  string     `json:"gas_price_gwei,omitempty"`
	LastError     string     `json:"last_error,omitempty"`
	ExplorerURL   string     `json:"explorer_url,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	ConfirmedAt   *time.Time `json:"confirmed_at,omitempty"`
}

type AnchorsResponse struct {
	Anchors []AnchorResponse `json:"anchors"`
}

type NotarizeResponse struct {
	RecordID string `json:"record_id"`
	Status   string `json:"status"`
	TxHash   string `json:"tx_hash,omitempty"`
}

func toRequestResponse(r *models.Request) RequestResponse {
	resp := RequestResponse{
		ID:            r.ID.String(),
		ProjectID:     r.ProjectID.String(),
		FromLevel:     r.FromLevel.String(),
		ToLevel:       r.ToLevel.String(),
		Status:        string(r.Status),
		DecisionNotes: r.DecisionNotes,
		DecidedAt:     r.DecidedAt,
		RequestedBy:   r.RequestedBy.String(),
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	if r.AssignedTo != nil {
		resp.AssignedTo = r.AssignedTo.String()
	}
	if r.AssignedOrgID != nil {
		resp.AssignedOrgID = r.AssignedOrgID.String()
	}
	if r.Decision != nil {
		resp.Decision = string(*r.Decision)
	}
	if r.DecidedBy != nil {
		resp.DecidedBy = r.DecidedBy.String()
	}
	for _, c := range r.Checks {
		resp.Checks = append(resp.Checks, toCheckResponse(c))
	}
	return resp
}

func toCheckResponse(c *models.Check) CheckResponse {
	resp := CheckResponse{
		ID:               c.ID.String(),
		VerificationID:   c.RequestID.String(),
		CheckType:        string(c.Type),
		CheckName:        c.Name,
		Description:      c.Description,
		Status:           string(c.Status),
		Score:            c.Score,
		Notes:            c.Notes,
		Evidence:         c.Evidence,
		CheckedAt:        c.CheckedAt,
		IsAutomated:      c.IsAutomated,
		AutomationSource: c.AutomationSource,
		CreatedAt:        c.CreatedAt,
	}
	if c.CheckedBy != nil {
		resp.CheckedBy = c.CheckedBy.String()
	}
	return resp
}

func toEventResponse(e *models.Event) EventResponse {
	resp := EventResponse{
		ID:          e.ID.String(),
		EventType:   string(e.Type),
		Description: e.Description,
		Metadata:    e.Metadata,
		CreatedAt:   e.CreatedAt,
	}
	if !e.CreatedBy.IsNil() {
		resp.CreatedBy = e.CreatedBy.String()
	}
	return resp
}

func toAnchorResponse(r *anchormodels.Record) AnchorResponse {
	resp := AnchorResponse{
		ID:            r.ID.String(),
		ChainID:       r.ChainID,
		ChainName:     r.ChainName,
		TxHash:        r.TxHash,
		DataHash:      r.DataHash.Hex(),
		Status:        string(r.Status),
		Confirmations: r.Confirmations,
		BlockNumber:   r.BlockNumber,
		GasUsed:       r.GasUsed,
		LastError:     r.LastError,
		ExplorerURL:   r.ExplorerURL(),
		CreatedAt:     r.CreatedAt,
		ConfirmedAt:   r.ConfirmedAt,
	}
	if r.GasPriceGwei != nil {
		resp.GasPriceGwei = r.GasPriceGwei.String()
	}
	return resp
}
