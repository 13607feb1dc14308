// Package funding implements the milestone escrow state machine. Every
// stakeholder action is validated locally first; the remote escrow call
// is the last step of a legal transition, never used to discover
// legality. Milestone transitions that move funds fail closed when the
// remote call fails, while campaign approval degrades to a local-only
// fallback so platform approval is not hostage to a third-party outage.
package funding

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/fundlock/fundlock/database/orm"
	"github.com/fundlock/fundlock/escrow"
	"github.com/fundlock/fundlock/ledger"
	"github.com/fundlock/fundlock/project"
)

// LedgerReader verifies funder supplied transaction hashes against the
// ledger network.
type LedgerReader interface {
	Transaction(ctx context.Context, hash string) (*ledger.TransactionResp, error)
}

// Caller identifies the authenticated platform identity performing a
// transition. Role authorization against the campaign's stakeholder
// bindings happens here, not in the API layer.
type Caller struct {
	Address string
	Admin   bool
}

// Engine drives campaign and milestone transitions. The gateway and the
// project service are injected so the engine can be exercised with fakes.
type Engine struct {
	db       *gorm.DB
	gateway  escrow.Gateway
	projects project.Service
	horizon  LedgerReader
}

// NewEngine returns a new funding engine instance. The horizon reader is
// optional; without it funder transaction hashes are recorded unverified.
func NewEngine(
	db *gorm.DB,
	gateway escrow.Gateway,
	projects project.Service,
	horizon LedgerReader,
) *Engine {
	return &Engine{
		db:       db,
		gateway:  gateway,
		projects: projects,
		horizon:  horizon,
	}
}

func (e *Engine) campaign(id uint64) (*orm.Campaign, error) {
	campaign := &orm.Campaign{}
	if err := e.db.Model(&orm.Campaign{}).
		Where("id = ?", id).
		First(campaign).
		Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Wrap(ErrNotFound, "campaign")
		}
		return nil, err
	}

	return campaign, nil
}

func (e *Engine) milestone(id uint64) (*orm.Milestone, *orm.Campaign, error) {
	milestone := &orm.Milestone{}
	if err := e.db.Model(&orm.Milestone{}).
		Where("id = ?", id).
		First(milestone).
		Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, errors.Wrap(ErrNotFound, "milestone")
		}
		return nil, nil, err
	}

	campaign, err := e.campaign(milestone.CampaignID)
	if err != nil {
		return nil, nil, err
	}

	return milestone, campaign, nil
}

// milestones returns the campaign's milestones ordered by index.
func (e *Engine) milestones(campaignID uint64) ([]*orm.Milestone, error) {
	ms := make([]*orm.Milestone, 0)
	if err := e.db.Model(&orm.Milestone{}).
		Where("campaign_id = ?", campaignID).
		Order("idx asc").
		Find(&ms).
		Error; err != nil {
		return nil, err
	}

	return ms, nil
}
