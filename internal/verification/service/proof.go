package service

import (
	"time"

	"aip/internal/verification/models"
	"aip/pkg/proofhash"
)

// decisionProof is the document whose digest is anchored on chain. Field
// order is part of the digest; append new fields at the end.
type decisionProof struct {
	VerificationID string `json:"verification_id"`
	ProjectID      string `json:"project_id"`
	FromLevel      string `json:"from_level"`
	ToLevel        string `json:"to_level"`
	Decision       string `json:"decision"`
	DecidedBy      string `json:"decided_by"`
	DecidedAt      string `json:"decided_at"`
}

// DecisionDigest returns the Keccak-256 digest of a decided request.
func DecisionDigest(req *models.Request) (proofhash.Hash, error) {
	p := decisionProof{
		VerificationID: req.ID.String(),
		ProjectID:      req.ProjectID.String(),
		FromLevel:      req.FromLevel.String(),
		ToLevel:        req.ToLevel.String(),
	}
	if req.Decision != nil {
		p.Decision = string(*req.Decision)
	}
	if req.DecidedBy != nil {
		p.DecidedBy = req.DecidedBy.String()
	}
	if req.DecidedAt != nil {
		p.DecidedAt = req.DecidedAt.UTC().Format(time.RFC3339Nano)
	}
	hash, _, err := proofhash.SumObject(p)
	return hash, err
}
