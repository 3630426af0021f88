package ports

import (
	"context"

	id "aip/pkg/domain"
	"aip/pkg/proofhash"
)

// NotarizeRequest identifies a finalized decision and the digest to anchor.
type NotarizeRequest struct {
	ProjectID   id.ProjectID
	ReferenceID id.RequestID
	DataHash    proofhash.Hash
	RequestedBy id.UserID
}

// NotarizeResult summarises the stored anchor record.
type NotarizeResult struct {
	RecordID id.RecordID
	Status   string
	TxHash   string
}

// Notarizer anchors decision digests on chain. Implementations must not block
// on chain confirmation; a submission failure is recorded, not returned,
// unless the record itself could not be stored.
type Notarizer interface {
	Notarize(ctx context.Context, req NotarizeRequest) (*NotarizeResult, error)
}
