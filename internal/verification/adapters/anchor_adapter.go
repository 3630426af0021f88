package adapters

import (
	"context"

	"aip/internal/anchor/models"
	anchorservice "aip/internal/anchor/service"
	"aip/internal/verification/ports"
)

// AnchorAdapter implements ports.Notarizer by calling the anchor service
// in-process.
type AnchorAdapter struct {
	anchor *anchorservice.Service
}

func NewAnchorAdapter(anchor *anchorservice.Service) ports.Notarizer {
	return &AnchorAdapter{anchor: anchor}
}

// Notarize submits the digest and reports the stored record. A failed chain
// submission comes back as a result with status failed, not as an error.
func (a *AnchorAdapter) Notarize(ctx context.Context, req ports.NotarizeRequest) (*ports.NotarizeResult, error) {
	record, err := a.anchor.Submit(ctx, anchorservice.SubmitRequest{
		ProjectID:   req.ProjectID,
		ReferenceID: req.ReferenceID,
		DataHash:    req.DataHash,
		CreatedBy:   req.RequestedBy,
	})
	if err != nil {
		return nil, err
	}
	return toResult(record), nil
}

func toResult(r *models.Record) *ports.NotarizeResult {
	return &ports.NotarizeResult{
		RecordID: r.ID,
		Status:   string(r.Status),
		TxHash:   r.TxHash,
	}
}
