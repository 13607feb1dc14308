package service

import (
	"fmt"
	"time"

	"github.com/docker/go-units"
	"github.com/gin-gonic/gin"

	"github.com/photon-storage/go-common/log"

	"github.com/fundlock/fundlock/api/pagination"
	"github.com/fundlock/fundlock/database/orm"
	"github.com/fundlock/fundlock/funding"
)

type stakeholdersReq struct {
	Marker   string `json:"marker" binding:"required"`
	Approver string `json:"approver" binding:"required"`
	Releaser string `json:"releaser" binding:"required"`
	Resolver string `json:"resolver" binding:"required"`
	Receiver string `json:"receiver" binding:"required"`
}

type milestoneReq struct {
	Title         string  `json:"title" binding:"required"`
	Description   string  `json:"description"`
	PayoutPercent float64 `json:"payout_percent" binding:"gte=0,lte=100"`
	Amount        uint64  `json:"amount"`
}

type createCampaignReq struct {
	ProjectID      uint64          `json:"project_id" binding:"required"`
	Title          string          `json:"title" binding:"required"`
	Currency       string          `json:"currency" binding:"required"`
	GoalAmount     uint64          `json:"goal_amount" binding:"required,gt=0"`
	Deadline       int64           `json:"deadline" binding:"required"`
	EscrowMode     string          `json:"escrow_mode" binding:"required,oneof=single multi"`
	PlatformFeeBps uint32          `json:"platform_fee_bps" binding:"lte=10000"`
	Trustline      string          `json:"trustline" binding:"required"`
	Stakeholders   stakeholdersReq `json:"stakeholders" binding:"required"`
	Milestones     []milestoneReq  `json:"milestones" binding:"required,min=1,dive"`
}

type baseCampaign struct {
	ID            uint64 `json:"id"`
	ProjectID     uint64 `json:"project_id"`
	Title         string `json:"title"`
	Currency      string `json:"currency"`
	GoalAmount    string `json:"goal_amount"`
	FundsRaised   string `json:"funds_raised"`
	Deadline      int64  `json:"deadline"`
	Status        string `json:"status"`
	EscrowStatus  string `json:"escrow_status"`
	EscrowAddress string `json:"escrow_address,omitempty"`
}

type campaignResp struct {
	baseCampaign
	Warning string `json:"warning,omitempty"`
}

func newBaseCampaign(campaign *orm.Campaign) baseCampaign {
	return baseCampaign{
		ID:            campaign.ID,
		ProjectID:     campaign.ProjectID,
		Title:         campaign.Title,
		Currency:      campaign.Currency,
		GoalAmount:    minorAmount(campaign.GoalAmount),
		FundsRaised:   minorAmount(campaign.FundsRaised),
		Deadline:      campaign.Deadline.Unix(),
		Status:        campaign.Status.String(),
		EscrowStatus:  campaign.EscrowStatus.String(),
		EscrowAddress: campaign.EscrowAddress,
	}
}

// CreateCampaign handles the POST /campaign request.
func (s *Service) CreateCampaign(
	c *gin.Context,
	req *createCampaignReq,
) (*campaignResp, error) {
	identity, err := caller(c)
	if err != nil {
		return nil, err
	}

	milestones := make([]funding.MilestoneParams, len(req.Milestones))
	for i, m := range req.Milestones {
		milestones[i] = funding.MilestoneParams{
			Title:         m.Title,
			Description:   m.Description,
			PayoutPercent: m.PayoutPercent,
			Amount:        m.Amount,
		}
	}

	campaign, err := s.engine.CreateCampaign(c.Request.Context(), identity,
		&funding.CreateCampaignParams{
			ProjectID:      req.ProjectID,
			Title:          req.Title,
			Currency:       req.Currency,
			GoalAmount:     req.GoalAmount,
			Deadline:       time.Unix(req.Deadline, 0),
			EscrowMode:     orm.EscrowMode(req.EscrowMode),
			PlatformFeeBps: req.PlatformFeeBps,
			Trustline:      req.Trustline,
			Stakeholders: orm.Stakeholders{
				Marker:   req.Stakeholders.Marker,
				Approver: req.Stakeholders.Approver,
				Releaser: req.Stakeholders.Releaser,
				Resolver: req.Stakeholders.Resolver,
				Receiver: req.Stakeholders.Receiver,
			},
			Milestones: milestones,
		})
	if err != nil {
		return nil, err
	}

	return &campaignResp{baseCampaign: newBaseCampaign(campaign)}, nil
}

type campaignIDReq struct {
	CampaignID uint64 `json:"campaign_id" binding:"required"`
}

// SubmitCampaign handles the POST /campaign/submit request.
func (s *Service) SubmitCampaign(
	c *gin.Context,
	req *campaignIDReq,
) (*campaignResp, error) {
	identity, err := caller(c)
	if err != nil {
		return nil, err
	}

	campaign, err := s.engine.SubmitForApproval(
		c.Request.Context(),
		identity,
		req.CampaignID,
	)
	if err != nil {
		return nil, err
	}

	return &campaignResp{baseCampaign: newBaseCampaign(campaign)}, nil
}

// ApproveCampaign handles the POST /campaign/approve request. The
// response carries a warning when the campaign went live through the
// escrow fallback.
func (s *Service) ApproveCampaign(
	c *gin.Context,
	req *campaignIDReq,
) (*campaignResp, error) {
	identity, err := caller(c)
	if err != nil {
		return nil, err
	}

	result, err := s.engine.ApproveCampaign(
		c.Request.Context(),
		identity,
		req.CampaignID,
	)
	if err != nil {
		return nil, err
	}

	return &campaignResp{
		baseCampaign: newBaseCampaign(result.Campaign),
		Warning:      result.Warning,
	}, nil
}

// CancelCampaign handles the POST /campaign/cancel request.
func (s *Service) CancelCampaign(
	c *gin.Context,
	req *campaignIDReq,
) (*campaignResp, error) {
	identity, err := caller(c)
	if err != nil {
		return nil, err
	}

	if err := s.engine.CancelCampaign(
		c.Request.Context(),
		identity,
		req.CampaignID,
	); err != nil {
		return nil, err
	}

	campaign := &orm.Campaign{}
	if err := s.db.Model(&orm.Campaign{}).
		Where("id = ?", req.CampaignID).
		First(campaign).
		Error; err != nil {
		return nil, err
	}

	return &campaignResp{baseCampaign: newBaseCampaign(campaign)}, nil
}

type fundReq struct {
	CampaignID   uint64 `json:"campaign_id" binding:"required"`
	Amount       uint64 `json:"amount" binding:"required,gt=0"`
	LedgerTxHash string `json:"ledger_tx_hash"`
}

type fundResp struct {
	baseCampaign
	ContributionRef string `json:"contribution_ref,omitempty"`
}

// FundCampaign handles the POST /campaign/fund request.
func (s *Service) FundCampaign(
	c *gin.Context,
	req *fundReq,
) (*fundResp, error) {
	identity, err := caller(c)
	if err != nil {
		return nil, err
	}

	result, err := s.engine.Fund(
		c.Request.Context(),
		identity,
		req.CampaignID,
		req.Amount,
		req.LedgerTxHash,
	)
	if err != nil {
		return nil, err
	}

	resp := &fundResp{baseCampaign: newBaseCampaign(result.Campaign)}
	if result.Contribution != nil {
		resp.ContributionRef = result.Contribution.Reference
	}

	return resp, nil
}

type milestoneItem struct {
	ID            uint64  `json:"id"`
	Index         uint32  `json:"index"`
	Title         string  `json:"title"`
	PayoutPercent float64 `json:"payout_percent"`
	Amount        string  `json:"amount"`
	Status        string  `json:"status"`
	ReleaseTxHash string  `json:"release_tx_hash,omitempty"`
}

type escrowView struct {
	Balance string `json:"balance"`
	Stale   bool   `json:"stale"`
}

type campaignDetailResp struct {
	baseCampaign
	Creator           string          `json:"creator"`
	DeadlineRemaining string          `json:"deadline_remaining"`
	Milestones        []milestoneItem `json:"milestones"`
	Escrow            *escrowView     `json:"escrow,omitempty"`
}

// Campaign handles the /campaign request.
func (s *Service) Campaign(c *gin.Context) (*campaignDetailResp, error) {
	id, err := campaignID(c)
	if err != nil {
		return nil, err
	}

	campaign := &orm.Campaign{}
	if err := s.db.Model(&orm.Campaign{}).
		Where("id = ?", id).
		First(campaign).
		Error; err != nil {
		return nil, wrapNotFound(err, "campaign")
	}

	milestones := make([]*orm.Milestone, 0)
	if err := s.db.Model(&orm.Milestone{}).
		Where("campaign_id = ?", id).
		Order("idx asc").
		Find(&milestones).
		Error; err != nil {
		return nil, err
	}

	items := make([]milestoneItem, len(milestones))
	for i, m := range milestones {
		items[i] = milestoneItem{
			ID:            m.ID,
			Index:         m.Index,
			Title:         m.Title,
			PayoutPercent: m.PayoutPercent,
			Amount:        minorAmount(m.Amount),
			Status:        m.Status.String(),
			ReleaseTxHash: m.ReleaseTxHash,
		}
	}

	resp := &campaignDetailResp{
		baseCampaign:      newBaseCampaign(campaign),
		Creator:           campaign.CreatorAddress,
		DeadlineRemaining: deadlineRemaining(campaign.Deadline),
		Milestones:        items,
	}

	// Read side joins the authoritative remote balance when the
	// contract is deployed; the read degrades to local data when the
	// remote is unavailable.
	if campaign.EscrowAddress != "" {
		state, err := s.gateway.GetEscrow(c.Request.Context(), campaign.EscrowAddress)
		if err != nil {
			log.Warn("escrow state read failed",
				"campaign", campaign.ID, "error", err)
			resp.Escrow = &escrowView{Stale: true}
		} else {
			resp.Escrow = &escrowView{Balance: minorAmount(state.Balance)}
		}
	}

	return resp, nil
}

type campaignsReq struct {
	Status string `form:"status"`
}

// Campaigns handles the /campaigns request.
func (s *Service) Campaigns(
	c *gin.Context,
	req *campaignsReq,
	page *pagination.Query,
) (*pagination.Result, error) {
	query := s.db.Model(&orm.Campaign{})
	if req.Status != "" {
		query = query.Where("status = ?", orm.StrToCampaignStatus(req.Status))
	}

	count := int64(0)
	if err := query.Count(&count).Error; err != nil {
		return nil, err
	}

	campaigns := make([]*orm.Campaign, 0)
	if err := query.Offset(page.Start).
		Limit(page.Limit).
		Order("id desc").
		Find(&campaigns).
		Error; err != nil {
		return nil, err
	}

	items := make([]baseCampaign, len(campaigns))
	for i, campaign := range campaigns {
		items[i] = newBaseCampaign(campaign)
	}

	return &pagination.Result{
		Data:  items,
		Total: count,
	}, nil
}

type contributionsReq struct {
	CampaignID uint64 `form:"campaign_id"`
}

type contributionItem struct {
	Funder       string `json:"funder"`
	Amount       string `json:"amount"`
	Reference    string `json:"reference"`
	LedgerTxHash string `json:"ledger_tx_hash,omitempty"`
	Timestamp    int64  `json:"timestamp"`
}

// Contributions handles the /contributions request.
func (s *Service) Contributions(
	c *gin.Context,
	req *contributionsReq,
	page *pagination.Query,
) (*pagination.Result, error) {
	if req.CampaignID == 0 {
		return nil, errMissingCampaign
	}

	query := s.db.Model(&orm.Contribution{}).
		Where("campaign_id = ?", req.CampaignID)

	count := int64(0)
	if err := query.Count(&count).Error; err != nil {
		return nil, err
	}

	contributions := make([]*orm.Contribution, 0)
	if err := query.Offset(page.Start).
		Limit(page.Limit).
		Order("id desc").
		Find(&contributions).
		Error; err != nil {
		return nil, err
	}

	items := make([]contributionItem, len(contributions))
	for i, contribution := range contributions {
		items[i] = contributionItem{
			Funder:       contribution.FunderAddress,
			Amount:       minorAmount(contribution.Amount),
			Reference:    contribution.Reference,
			LedgerTxHash: contribution.LedgerTxHash,
			Timestamp:    contribution.CreatedAt.Unix(),
		}
	}

	return &pagination.Result{
		Data:  items,
		Total: count,
	}, nil
}

func minorAmount(amount uint64) string {
	// Amounts are stored in minor units with two decimals.
	return fmt.Sprintf("%.2f", float64(amount)/100)
}

func deadlineRemaining(deadline time.Time) string {
	remaining := time.Until(deadline)
	if remaining <= 0 {
		return "expired"
	}

	return units.HumanDuration(remaining)
}
