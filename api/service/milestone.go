package service

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/fundlock/fundlock/database/orm"
	"github.com/fundlock/fundlock/funding"
)

// proofReq is the evidence attached when a creator submits a milestone.
type proofReq struct {
	Description string `json:"description" binding:"required"`
	Links       string `json:"links"`
}

// updateMilestoneReq is a closed, per-transition request keyed by the
// target status. The tagged shape makes illegal field combinations
// unrepresentable: proof only with SUBMITTED, note only with REJECTED or
// REVISION_REQUESTED, reason only with DISPUTED.
type updateMilestoneReq struct {
	MilestoneID uint64    `json:"milestone_id" binding:"required"`
	Status      string    `json:"status" binding:"required,oneof=SUBMITTED APPROVED REJECTED REVISION_REQUESTED RELEASED DISPUTED"`
	Proof       *proofReq `json:"proof,omitempty"`
	Note        string    `json:"note,omitempty"`
	Reason      string    `json:"reason,omitempty"`
}

type milestoneResp struct {
	ID            uint64 `json:"id"`
	CampaignID    uint64 `json:"campaign_id"`
	Index         uint32 `json:"index"`
	Status        string `json:"status"`
	AdminNote     string `json:"admin_note,omitempty"`
	DisputeReason string `json:"dispute_reason,omitempty"`
	ReleaseTxHash string `json:"release_tx_hash,omitempty"`
}

func newMilestoneResp(m *orm.Milestone) *milestoneResp {
	return &milestoneResp{
		ID:            m.ID,
		CampaignID:    m.CampaignID,
		Index:         m.Index,
		Status:        m.Status.String(),
		AdminNote:     m.AdminNote,
		DisputeReason: m.DisputeReason,
		ReleaseTxHash: m.ReleaseTxHash,
	}
}

// UpdateMilestoneStatus handles the POST /milestone/status request,
// dispatching on the target status.
func (s *Service) UpdateMilestoneStatus(
	c *gin.Context,
	req *updateMilestoneReq,
) (*milestoneResp, error) {
	identity, err := caller(c)
	if err != nil {
		return nil, err
	}

	ctx := c.Request.Context()

	var milestone *orm.Milestone
	switch orm.StrToMilestoneStatus(req.Status) {
	case orm.MilestoneSubmitted:
		proof := funding.Proof{}
		if req.Proof != nil {
			proof.Description = req.Proof.Description
			proof.Links = req.Proof.Links
		}
		milestone, err = s.engine.SubmitProof(ctx, identity, req.MilestoneID, proof)

	case orm.MilestoneApproved:
		milestone, err = s.engine.ApproveMilestone(ctx, identity, req.MilestoneID)

	case orm.MilestoneRejected:
		milestone, err = s.engine.RejectMilestone(ctx, identity, req.MilestoneID, req.Note)

	case orm.MilestoneRevisionRequested:
		milestone, err = s.engine.RequestRevision(ctx, identity, req.MilestoneID, req.Note)

	case orm.MilestoneReleased:
		milestone, err = s.engine.ReleaseMilestone(ctx, identity, req.MilestoneID)

	case orm.MilestoneDisputed:
		milestone, err = s.engine.DisputeMilestone(ctx, identity, req.MilestoneID, req.Reason)

	default:
		return nil, errUnknownStatus
	}

	if err != nil {
		return nil, err
	}

	return newMilestoneResp(milestone), nil
}

func campaignID(c *gin.Context) (uint64, error) {
	raw := c.Query("id")
	if raw == "" {
		return 0, errMissingCampaign
	}

	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, errors.Wrap(funding.ErrValidation, "malformed campaign id")
	}

	return id, nil
}

func wrapNotFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errors.Wrap(funding.ErrNotFound, what)
	}

	return err
}
