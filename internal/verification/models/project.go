package models

import (
	"time"

	id "aip/pkg/domain"
)

// Project is the subject of verification. Only the workflow's approval path
// writes CurrentLevel.
type Project struct {
	ID           id.ProjectID
	SponsorOrgID id.OrgID
	Name         string
	CurrentLevel Level
	RiskScore    *int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
