package orm

import "time"

// Contribution is a gorm table definition represents the contributions.
// One row is written for every accepted funding call so the campaign
// FundsRaised accumulator stays auditable.
type Contribution struct {
	ID            uint64 `gorm:"primary_key"`
	CampaignID    uint64
	FunderAddress string
	Amount        uint64
	Reference     string
	LedgerTxHash  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
