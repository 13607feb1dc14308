package funding

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/photon-storage/go-common/log"

	"github.com/fundlock/fundlock/database/orm"
	"github.com/fundlock/fundlock/escrow"
	"github.com/fundlock/fundlock/project"
)

// payoutTolerance absorbs floating point drift when checking that
// milestone payout percentages sum to 100.
const payoutTolerance = 0.01

// MilestoneParams describes one milestone at campaign creation time. A
// zero amount is derived from the payout percentage of the goal.
type MilestoneParams struct {
	Title         string
	Description   string
	PayoutPercent float64
	Amount        uint64
}

// CreateCampaignParams carries the campaign creation request.
type CreateCampaignParams struct {
	ProjectID      uint64
	Title          string
	Currency       string
	GoalAmount     uint64
	Deadline       time.Time
	EscrowMode     orm.EscrowMode
	PlatformFeeBps uint32
	Trustline      string
	Stakeholders   orm.Stakeholders
	Milestones     []MilestoneParams
}

// CreateCampaign creates a draft campaign with its milestones in one
// batch insert. The referenced project must be validated and owned by
// the caller.
func (e *Engine) CreateCampaign(
	ctx context.Context,
	caller Caller,
	params *CreateCampaignParams,
) (*orm.Campaign, error) {
	if strings.TrimSpace(params.Title) == "" {
		return nil, errors.Wrap(ErrValidation, "title required")
	}
	if params.GoalAmount == 0 {
		return nil, errors.Wrap(ErrValidation, "goal amount must be positive")
	}
	if !params.Deadline.After(time.Now()) {
		return nil, errors.Wrap(ErrValidation, "deadline must be a future date")
	}
	if params.EscrowMode != orm.EscrowModeSingle &&
		params.EscrowMode != orm.EscrowModeMulti {
		return nil, errors.Wrap(ErrValidation, "unknown escrow mode")
	}
	for _, m := range params.Milestones {
		if m.PayoutPercent < 0 || m.PayoutPercent > 100 {
			return nil, errors.Wrap(
				ErrValidation,
				"payout percentage out of range",
			)
		}
	}

	proj, err := e.projects.GetProject(ctx, params.ProjectID)
	if err != nil {
		return nil, err
	}
	if proj.Status != project.StatusValidated {
		return nil, errors.Wrapf(
			ErrInvalidTransition,
			"project status %s, want %s",
			proj.Status,
			project.StatusValidated,
		)
	}
	if proj.OwnerAddress != caller.Address {
		return nil, errors.Wrap(ErrForbidden, "caller does not own project")
	}

	campaign := &orm.Campaign{
		ProjectID:      params.ProjectID,
		CreatorAddress: caller.Address,
		Title:          params.Title,
		Currency:       params.Currency,
		GoalAmount:     params.GoalAmount,
		Deadline:       params.Deadline,
		Status:         orm.CampaignDraft,
		Stakeholders:   params.Stakeholders,
		EscrowMode:     params.EscrowMode,
		EscrowStatus:   orm.EscrowPending,
		PlatformFeeBps: params.PlatformFeeBps,
		Trustline:      params.Trustline,
	}

	if err := e.db.Transaction(func(dbTx *gorm.DB) error {
		if err := dbTx.Create(campaign).Error; err != nil {
			return err
		}

		milestones := make([]*orm.Milestone, len(params.Milestones))
		for i, m := range params.Milestones {
			amount := m.Amount
			if amount == 0 {
				amount = uint64(float64(params.GoalAmount) * m.PayoutPercent / 100)
			}

			milestones[i] = &orm.Milestone{
				CampaignID:    campaign.ID,
				Index:         uint32(i),
				EscrowIndex:   uint32(i),
				Title:         m.Title,
				Description:   m.Description,
				PayoutPercent: m.PayoutPercent,
				Amount:        amount,
				Status:        orm.MilestonePending,
			}
		}

		if len(milestones) == 0 {
			return nil
		}

		return dbTx.Create(milestones).Error
	}); err != nil {
		return nil, err
	}

	return campaign, nil
}

// SubmitForApproval moves a draft campaign to pending approval. Only the
// creator may submit, the campaign needs at least one milestone and the
// payout percentages must sum to 100.
func (e *Engine) SubmitForApproval(
	ctx context.Context,
	caller Caller,
	campaignID uint64,
) (*orm.Campaign, error) {
	campaign, err := e.campaign(campaignID)
	if err != nil {
		return nil, err
	}
	if campaign.CreatorAddress != caller.Address {
		return nil, errors.Wrap(ErrForbidden, "only the creator may submit")
	}
	if campaign.Status != orm.CampaignDraft {
		return nil, errors.Wrapf(
			ErrInvalidTransition,
			"campaign is %s",
			campaign.Status,
		)
	}

	milestones, err := e.milestones(campaignID)
	if err != nil {
		return nil, err
	}
	if len(milestones) == 0 {
		return nil, errors.Wrap(ErrValidation, "campaign has no milestones")
	}
	if err := checkPayoutSum(milestones); err != nil {
		return nil, err
	}

	res := e.db.Model(&orm.Campaign{}).
		Where("id = ? AND status = ?", campaignID, orm.CampaignDraft).
		Update("status", orm.CampaignPendingApproval)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, errors.Wrap(ErrInvalidTransition, "campaign changed concurrently")
	}

	campaign.Status = orm.CampaignPendingApproval
	return campaign, nil
}

func checkPayoutSum(milestones []*orm.Milestone) error {
	total := 0.0
	for _, m := range milestones {
		total += m.PayoutPercent
	}

	if total < 100-payoutTolerance || total > 100+payoutTolerance {
		return &PayoutSumError{Total: total}
	}

	return nil
}

// ApproveResult reports the outcome of a campaign approval. When the
// escrow deployment failed the campaign still goes live and Warning
// carries a generic message for the caller.
type ApproveResult struct {
	Campaign *orm.Campaign
	Deployed bool
	Warning  string
}

// ApproveCampaign moves a pending campaign live and deploys its escrow
// contract. Deployment failure does not block approval: the campaign goes
// live with escrow status failed and no escrow address, left for the
// reconciler to retry.
func (e *Engine) ApproveCampaign(
	ctx context.Context,
	caller Caller,
	campaignID uint64,
) (*ApproveResult, error) {
	campaign, err := e.campaign(campaignID)
	if err != nil {
		return nil, err
	}
	if !caller.Admin && caller.Address != campaign.Stakeholders.Approver {
		return nil, errors.Wrap(ErrForbidden, "approver role required")
	}
	if campaign.Status != orm.CampaignPendingApproval {
		return nil, errors.Wrapf(
			ErrInvalidTransition,
			"campaign is %s",
			campaign.Status,
		)
	}
	if campaign.GoalAmount == 0 {
		return nil, errors.Wrap(ErrValidation, "goal amount must be positive")
	}
	if !campaign.Deadline.After(time.Now()) {
		return nil, errors.Wrap(ErrValidation, "deadline has passed")
	}
	if !campaign.Stakeholders.Complete() {
		return nil, errors.Wrap(ErrValidation, "all stakeholder roles must be bound")
	}

	milestones, err := e.milestones(campaignID)
	if err != nil {
		return nil, err
	}
	if len(milestones) == 0 {
		return nil, errors.Wrap(ErrValidation, "campaign has no milestones")
	}
	if err := checkPayoutSum(milestones); err != nil {
		return nil, err
	}

	proj, err := e.projects.GetProject(ctx, campaign.ProjectID)
	if err != nil {
		return nil, err
	}
	if len(proj.Documents) == 0 {
		return nil, errors.Wrap(ErrValidation, "project has no supporting documents")
	}

	deployResp, deployErr := e.gateway.Deploy(ctx, NewDeployRequest(campaign, milestones))

	now := time.Now()
	updates := map[string]interface{}{
		"status":      orm.CampaignLive,
		"approved_by": caller.Address,
		"approved_at": now,
	}

	result := &ApproveResult{Campaign: campaign}
	if deployErr != nil {
		if !escrow.IsRemoteFailure(deployErr) {
			return nil, deployErr
		}

		// Availability over consistency: approval proceeds, the
		// deployment is retried out of band.
		log.Error("escrow deploy failed, campaign goes live degraded",
			"campaign", campaignID, "error", deployErr)
		gatewayFailures.WithLabelValues("deploy").Inc()
		approvalFallbacks.Inc()
		updates["escrow_status"] = orm.EscrowFailed
		result.Warning = "escrow service unavailable"
	} else {
		updates["escrow_status"] = orm.EscrowDeployed
		updates["escrow_address"] = deployResp.EscrowAddress
		result.Deployed = true
	}

	res := e.db.Model(&orm.Campaign{}).
		Where("id = ? AND status = ?", campaignID, orm.CampaignPendingApproval).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, errors.Wrap(ErrInvalidTransition, "campaign changed concurrently")
	}

	campaign.Status = orm.CampaignLive
	campaign.ApprovedBy = caller.Address
	campaign.ApprovedAt = &now
	if result.Deployed {
		campaign.EscrowStatus = orm.EscrowDeployed
		campaign.EscrowAddress = deployResp.EscrowAddress
	} else {
		campaign.EscrowStatus = orm.EscrowFailed
	}

	return result, nil
}

// NewDeployRequest assembles the escrow deployment parameters from a
// campaign and its milestones. The engagement id correlates the remote
// contract back to the campaign.
func NewDeployRequest(
	campaign *orm.Campaign,
	milestones []*orm.Milestone,
) *escrow.DeployRequest {
	dms := make([]escrow.DeployMilestone, len(milestones))
	for i, m := range milestones {
		dms[i] = escrow.DeployMilestone{
			Index:         m.EscrowIndex,
			Description:   m.Title,
			Amount:        m.Amount,
			PayoutPercent: m.PayoutPercent,
		}
	}

	return &escrow.DeployRequest{
		EngagementID:   fmt.Sprintf("campaign-%d", campaign.ID),
		Mode:           string(campaign.EscrowMode),
		PlatformFeeBps: campaign.PlatformFeeBps,
		Trustline:      campaign.Trustline,
		Roles: map[string]string{
			escrow.RoleMarker:   campaign.Stakeholders.Marker,
			escrow.RoleApprover: campaign.Stakeholders.Approver,
			escrow.RoleReleaser: campaign.Stakeholders.Releaser,
			escrow.RoleResolver: campaign.Stakeholders.Resolver,
			escrow.RoleReceiver: campaign.Stakeholders.Receiver,
		},
		Milestones: dms,
	}
}

// FundResult reports one accepted contribution.
type FundResult struct {
	Campaign     *orm.Campaign
	Contribution *orm.Contribution
}

// Fund applies one additive funding call from any authenticated
// contributor. The remote deposit happens first; the accumulator update
// and the contribution record are then committed together. Funding fails
// closed: a remote failure leaves local state untouched.
func (e *Engine) Fund(
	ctx context.Context,
	caller Caller,
	campaignID uint64,
	amount uint64,
	ledgerTxHash string,
) (*FundResult, error) {
	if amount == 0 {
		return nil, errors.Wrap(ErrValidation, "amount must be positive")
	}

	campaign, err := e.campaign(campaignID)
	if err != nil {
		return nil, err
	}
	if campaign.Status != orm.CampaignLive && campaign.Status != orm.CampaignFunded {
		return nil, errors.Wrapf(
			ErrInvalidTransition,
			"campaign is %s",
			campaign.Status,
		)
	}
	if campaign.EscrowStatus != orm.EscrowDeployed &&
		campaign.EscrowStatus != orm.EscrowFunded {
		return nil, errors.Wrapf(
			ErrInvalidTransition,
			"escrow is %s",
			campaign.EscrowStatus,
		)
	}

	if ledgerTxHash != "" && e.horizon != nil {
		ledgerTx, err := e.horizon.Transaction(ctx, ledgerTxHash)
		if err != nil {
			return nil, errors.Wrap(ErrValidation, "ledger transaction not found")
		}
		if !ledgerTx.Successful {
			return nil, errors.Wrap(ErrValidation, "ledger transaction failed")
		}
	}

	if _, err := e.gateway.Fund(ctx, &escrow.FundRequest{
		EscrowAddress: campaign.EscrowAddress,
		FunderAddress: caller.Address,
		Amount:        amount,
	}); err != nil {
		if rejected, ok := escrow.IsRejected(err); ok && rejected.AlreadyApplied {
			// The remote de-duplicated an identical call; report
			// success without counting the funds twice.
			return &FundResult{Campaign: campaign}, nil
		}

		gatewayFailures.WithLabelValues("fund").Inc()
		return nil, &GatewayError{Op: "fund", Err: err}
	}

	contribution := &orm.Contribution{
		CampaignID:    campaignID,
		FunderAddress: caller.Address,
		Amount:        amount,
		Reference:     uuid.NewString(),
		LedgerTxHash:  ledgerTxHash,
	}

	if err := e.db.Transaction(func(dbTx *gorm.DB) error {
		if err := dbTx.Create(contribution).Error; err != nil {
			return err
		}

		updates := map[string]interface{}{
			"funds_raised":  gorm.Expr("funds_raised + ?", amount),
			"escrow_status": orm.EscrowFunded,
		}
		if campaign.FundsRaised+amount >= campaign.GoalAmount {
			updates["status"] = orm.CampaignFunded
		}

		return dbTx.Model(&orm.Campaign{}).
			Where("id = ?", campaignID).
			Updates(updates).
			Error
	}); err != nil {
		return nil, err
	}

	campaign.FundsRaised += amount
	campaign.EscrowStatus = orm.EscrowFunded
	if campaign.FundsRaised >= campaign.GoalAmount {
		campaign.Status = orm.CampaignFunded
	}

	return &FundResult{Campaign: campaign, Contribution: contribution}, nil
}

// CancelCampaign cancels a campaign before it goes live. No remote call
// is involved.
func (e *Engine) CancelCampaign(
	ctx context.Context,
	caller Caller,
	campaignID uint64,
) error {
	campaign, err := e.campaign(campaignID)
	if err != nil {
		return err
	}
	if !caller.Admin && caller.Address != campaign.CreatorAddress {
		return errors.Wrap(ErrForbidden, "only the creator or an admin may cancel")
	}
	if campaign.Status != orm.CampaignDraft &&
		campaign.Status != orm.CampaignPendingApproval {
		return errors.Wrapf(
			ErrInvalidTransition,
			"campaign is %s, cancel is pre-live only",
			campaign.Status,
		)
	}

	res := e.db.Model(&orm.Campaign{}).
		Where("id = ? AND status IN ?",
			campaignID,
			[]orm.CampaignStatus{orm.CampaignDraft, orm.CampaignPendingApproval},
		).
		Update("status", orm.CampaignCancelled)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.Wrap(ErrInvalidTransition, "campaign changed concurrently")
	}

	return nil
}

// completeIfReleased marks the campaign completed once every milestone
// is released. Called inside the release commit.
func completeIfReleased(dbTx *gorm.DB, campaignID uint64) error {
	remaining := int64(0)
	if err := dbTx.Model(&orm.Milestone{}).
		Where("campaign_id = ? AND status != ?", campaignID, orm.MilestoneReleased).
		Count(&remaining).
		Error; err != nil {
		return err
	}

	if remaining > 0 {
		return nil
	}

	return dbTx.Model(&orm.Campaign{}).
		Where("id = ?", campaignID).
		Update("status", orm.CampaignCompleted).
		Error
}
