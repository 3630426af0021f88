package models

import (
	"time"

	"github.com/shopspring/decimal"

	id "aip/pkg/domain"
	"aip/pkg/proofhash"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
)

func (s Status) IsTerminal() bool {
	return s == StatusConfirmed || s == StatusFailed
}

// CanTransition enforces pending -> {confirmed, failed}. Terminal records
// never change status.
func (s Status) CanTransition(to Status) bool {
	return s == StatusPending && to.IsTerminal()
}

type RecordType string

const RecordVerificationDecision RecordType = "verification_decision"

// Record is one notarization attempt of a data hash on chain.
type Record struct {
	ID              id.RecordID
	ProjectID       id.ProjectID
	RecordType      RecordType
	ReferenceID     id.RequestID
	ChainID         int64
	ChainName       string
	ContractAddress string
	TxHash          string // empty when submission failed
	BlockNumber     *uint64
	DataHash        proofhash.Hash
	Status          Status
	Confirmations   int
	GasUsed         *uint64
	GasPriceGwei    *decimal.Decimal
	Attempts        int
	LastError       string
	NextPollAt      time.Time
	CreatedBy       id.UserID
	CreatedAt       time.Time
	ConfirmedAt     *time.Time
	UpdatedAt       time.Time
}

var explorers = map[int64]string{
	1:     "https://etherscan.io/tx/",
	137:   "https://polygonscan.com/tx/",
	8453:  "https://basescan.org/tx/",
	42161: "https://arbiscan.io/tx/",
}

// ExplorerURL links the transaction on a public block explorer, or returns
// "" for unknown chains and unsubmitted records.
func (r *Record) ExplorerURL() string {
	base, ok := explorers[r.ChainID]
	if !ok || r.TxHash == "" {
		return ""
	}
	return base + r.TxHash
}

// Receipt is the chain's view of a mined transaction.
type Receipt struct {
	TxHash       string
	BlockNumber  uint64
	Succeeded    bool
	GasUsed      uint64
	GasPriceGwei decimal.Decimal
}

// Confirm applies a receipt seen at chain head. The record becomes confirmed
// once the depth reaches required.
func (r *Record) Confirm(rc Receipt, head uint64, required int, now time.Time) {
	block := rc.BlockNumber
	gasUsed := rc.GasUsed
	price := rc.GasPriceGwei
	r.BlockNumber = &block
	r.GasUsed = &gasUsed
	r.GasPriceGwei = &price
	r.Confirmations = confirmationsAt(block, head)
	r.LastError = ""
	r.UpdatedAt = now
	if r.Confirmations >= required {
		r.Status = StatusConfirmed
		r.ConfirmedAt = &now
	}
}

// Fail marks the record failed with reason.
func (r *Record) Fail(reason string, now time.Time) {
	r.Status = StatusFailed
	r.LastError = reason
	r.UpdatedAt = now
}

func confirmationsAt(block, head uint64) int {
	if head < block {
		return 0
	}
	return int(head-block) + 1
}
