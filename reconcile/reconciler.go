// Package reconcile repairs drift between local campaign state and the
// remote escrow service. Campaign approval deliberately degrades when
// the deployment call fails; the reconciler retries those deployments
// out of band and refreshes the integration status of deployed contracts.
package reconcile

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/photon-storage/go-common/log"

	"github.com/fundlock/fundlock/database/orm"
	"github.com/fundlock/fundlock/escrow"
	"github.com/fundlock/fundlock/funding"
)

// Reconciler is the processor for synchronizing escrow contract state.
type Reconciler struct {
	refreshInterval uint64
	db              *gorm.DB
	gateway         escrow.Gateway
	quit            chan struct{}
}

// New returns a new instance of Reconciler.
func New(
	refreshInterval uint64,
	db *gorm.DB,
	gateway escrow.Gateway,
) *Reconciler {
	return &Reconciler{
		refreshInterval: refreshInterval,
		db:              db,
		gateway:         gateway,
		quit:            make(chan struct{}),
	}
}

// Run executes the timing task of reconciling escrow state.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(r.refreshInterval) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-r.quit:
			return

		case <-ctx.Done():
			return

		case <-ticker.C:
		}

		if err := r.retryFailedDeployments(ctx); err != nil {
			log.Error("reconciler fail on deployment retry", "error", err)
		}

		if err := r.refreshDeployed(ctx); err != nil {
			log.Error("reconciler fail on escrow refresh", "error", err)
		}
	}
}

// Stop terminates the reconciler loop.
func (r *Reconciler) Stop() {
	close(r.quit)
}

// retryFailedDeployments re-attempts the escrow deployment for campaigns
// that went live through the approval fallback.
func (r *Reconciler) retryFailedDeployments(ctx context.Context) error {
	campaigns := make([]*orm.Campaign, 0)
	if err := r.db.Model(&orm.Campaign{}).
		Where("status IN ? AND escrow_status = ?",
			[]orm.CampaignStatus{orm.CampaignLive, orm.CampaignFunded},
			orm.EscrowFailed,
		).
		Find(&campaigns).
		Error; err != nil {
		return err
	}

	for _, campaign := range campaigns {
		milestones := make([]*orm.Milestone, 0)
		if err := r.db.Model(&orm.Milestone{}).
			Where("campaign_id = ?", campaign.ID).
			Order("idx asc").
			Find(&milestones).
			Error; err != nil {
			return err
		}

		resp, err := r.gateway.Deploy(
			ctx,
			funding.NewDeployRequest(campaign, milestones),
		)
		if err != nil {
			log.Warn("escrow deploy retry failed",
				"campaign", campaign.ID, "error", err)
			continue
		}

		if err := r.db.Model(&orm.Campaign{}).
			Where("id = ? AND escrow_status = ?", campaign.ID, orm.EscrowFailed).
			Updates(map[string]interface{}{
				"escrow_status":  orm.EscrowDeployed,
				"escrow_address": resp.EscrowAddress,
			}).Error; err != nil {
			return err
		}

		log.Info("escrow deployment reconciled",
			"campaign", campaign.ID, "escrow", resp.EscrowAddress)
	}

	return nil
}

// refreshDeployed pulls the authoritative remote state for deployed
// contracts, promotes the integration status once a deposit is visible
// and pushes local milestone submissions the remote has not seen.
func (r *Reconciler) refreshDeployed(ctx context.Context) error {
	campaigns := make([]*orm.Campaign, 0)
	if err := r.db.Model(&orm.Campaign{}).
		Where("escrow_status = ?", orm.EscrowDeployed).
		Find(&campaigns).
		Error; err != nil {
		return err
	}

	for _, campaign := range campaigns {
		state, err := r.gateway.GetEscrow(ctx, campaign.EscrowAddress)
		if err != nil {
			log.Warn("escrow state read failed",
				"campaign", campaign.ID, "error", err)
			continue
		}

		if state.Balance > 0 {
			if err := r.db.Model(&orm.Campaign{}).
				Where("id = ? AND escrow_status = ?",
					campaign.ID, orm.EscrowDeployed).
				Update("escrow_status", orm.EscrowFunded).
				Error; err != nil {
				return err
			}
		}

		if err := r.pushSubmitted(ctx, campaign, state); err != nil {
			return err
		}
	}

	return nil
}

// pushSubmitted mirrors locally submitted milestones onto the remote
// contract so the marker sees them there too.
func (r *Reconciler) pushSubmitted(
	ctx context.Context,
	campaign *orm.Campaign,
	state *escrow.State,
) error {
	remote := make(map[uint32]string, len(state.Milestones))
	for _, m := range state.Milestones {
		remote[m.Index] = m.Status
	}

	milestones := make([]*orm.Milestone, 0)
	if err := r.db.Model(&orm.Milestone{}).
		Where("campaign_id = ? AND status = ?",
			campaign.ID, orm.MilestoneSubmitted).
		Find(&milestones).
		Error; err != nil {
		return err
	}

	for _, m := range milestones {
		if remote[m.EscrowIndex] == orm.MilestoneSubmitted.String() {
			continue
		}

		if err := r.gateway.ChangeMilestoneStatus(ctx, &escrow.ChangeStatusRequest{
			EscrowAddress:  campaign.EscrowAddress,
			MilestoneIndex: m.EscrowIndex,
			Status:         m.Status.String(),
			Note:           m.ProofDescription,
		}); err != nil {
			log.Warn("milestone status push failed",
				"campaign", campaign.ID,
				"milestone", m.ID,
				"error", err)
		}
	}

	return nil
}
