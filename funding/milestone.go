package funding

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/fundlock/fundlock/database/orm"
	"github.com/fundlock/fundlock/escrow"
)

// milestoneEdges lists the legal milestone transitions. A request that
// does not match an edge is rejected before any remote call is attempted.
// Released has no outgoing edges: it is terminal.
var milestoneEdges = map[orm.MilestoneStatus][]orm.MilestoneStatus{
	orm.MilestoneSubmitted: {
		orm.MilestonePending,
		orm.MilestoneInProgress,
		orm.MilestoneRevisionRequested,
	},
	orm.MilestoneApproved: {
		orm.MilestonePending,
		orm.MilestoneSubmitted,
	},
	orm.MilestoneRejected: {
		orm.MilestonePending,
		orm.MilestoneSubmitted,
	},
	orm.MilestoneRevisionRequested: {
		orm.MilestoneSubmitted,
	},
	orm.MilestoneReleased: {
		orm.MilestoneApproved,
	},
	orm.MilestoneDisputed: {
		orm.MilestoneApproved,
		orm.MilestoneRejected,
	},
}

func legalSources(target orm.MilestoneStatus) []orm.MilestoneStatus {
	return milestoneEdges[target]
}

func checkEdge(from, to orm.MilestoneStatus) error {
	for _, s := range legalSources(to) {
		if s == from {
			return nil
		}
	}

	return errors.Wrapf(ErrInvalidTransition, "%s -> %s", from, to)
}

// requireFundedEscrow gates the funds-moving milestone transitions: the
// campaign must be live (or fully funded) and the escrow deposit must
// have landed.
func requireFundedEscrow(campaign *orm.Campaign) error {
	if campaign.Status != orm.CampaignLive &&
		campaign.Status != orm.CampaignFunded {
		return errors.Wrapf(
			ErrInvalidTransition,
			"campaign is %s",
			campaign.Status,
		)
	}
	if campaign.EscrowStatus != orm.EscrowFunded {
		return errors.Wrapf(
			ErrInvalidTransition,
			"escrow is %s, want %s",
			campaign.EscrowStatus,
			orm.EscrowFunded,
		)
	}

	return nil
}

// transition applies a status-guarded milestone write. The guard makes
// the check-then-write a single critical section against concurrent
// requests on the same milestone.
func (e *Engine) transition(
	milestoneID uint64,
	from []orm.MilestoneStatus,
	updates map[string]interface{},
) error {
	res := e.db.Model(&orm.Milestone{}).
		Where("id = ? AND status IN ?", milestoneID, from).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.Wrap(ErrInvalidTransition, "milestone changed concurrently")
	}

	return nil
}

// Proof carries the deliverable evidence attached on submission.
type Proof struct {
	Description string
	Links       string
}

// SubmitProof moves a milestone to submitted with the creator's proof of
// work. Submission is re-enterable after a revision request. No remote
// call is involved.
func (e *Engine) SubmitProof(
	ctx context.Context,
	caller Caller,
	milestoneID uint64,
	proof Proof,
) (*orm.Milestone, error) {
	milestone, campaign, err := e.milestone(milestoneID)
	if err != nil {
		return nil, err
	}
	if caller.Address != campaign.CreatorAddress {
		return nil, errors.Wrap(ErrForbidden, "only the campaign creator may submit proof")
	}
	if err := checkEdge(milestone.Status, orm.MilestoneSubmitted); err != nil {
		return nil, err
	}

	now := time.Now()
	if err := e.transition(
		milestoneID,
		legalSources(orm.MilestoneSubmitted),
		map[string]interface{}{
			"status":            orm.MilestoneSubmitted,
			"proof_description": proof.Description,
			"proof_links":       proof.Links,
			"submitted_at":      now,
		},
	); err != nil {
		return nil, err
	}

	milestone.Status = orm.MilestoneSubmitted
	milestone.ProofDescription = proof.Description
	milestone.ProofLinks = proof.Links
	milestone.SubmittedAt = &now
	return milestone, nil
}

// ApproveMilestone marks a submitted milestone approved. Gated on the
// marker role (or an admin); the remote approval is the last step and
// failure leaves local state untouched.
func (e *Engine) ApproveMilestone(
	ctx context.Context,
	caller Caller,
	milestoneID uint64,
) (*orm.Milestone, error) {
	milestone, campaign, err := e.milestone(milestoneID)
	if err != nil {
		return nil, err
	}
	if !caller.Admin && caller.Address != campaign.Stakeholders.Marker {
		return nil, errors.Wrap(ErrForbidden, "marker role required")
	}
	if err := checkEdge(milestone.Status, orm.MilestoneApproved); err != nil {
		return nil, err
	}
	if err := requireFundedEscrow(campaign); err != nil {
		return nil, err
	}

	if err := e.gateway.ApproveMilestone(ctx, &escrow.MilestoneRequest{
		EscrowAddress:  campaign.EscrowAddress,
		MilestoneIndex: milestone.EscrowIndex,
	}); err != nil {
		if rejected, ok := escrow.IsRejected(err); !ok || !rejected.AlreadyApplied {
			gatewayFailures.WithLabelValues("approve_milestone").Inc()
			return nil, &GatewayError{Op: "approveMilestone", Err: err}
		}
	}

	now := time.Now()
	if err := e.transition(
		milestoneID,
		legalSources(orm.MilestoneApproved),
		map[string]interface{}{
			"status":      orm.MilestoneApproved,
			"approved_at": now,
		},
	); err != nil {
		return nil, err
	}

	milestone.Status = orm.MilestoneApproved
	milestone.ApprovedAt = &now
	return milestone, nil
}

// RejectMilestone marks a milestone rejected with an admin note. Gated on
// the marker role (or an admin). No remote call is involved.
func (e *Engine) RejectMilestone(
	ctx context.Context,
	caller Caller,
	milestoneID uint64,
	note string,
) (*orm.Milestone, error) {
	milestone, campaign, err := e.milestone(milestoneID)
	if err != nil {
		return nil, err
	}
	if !caller.Admin && caller.Address != campaign.Stakeholders.Marker {
		return nil, errors.Wrap(ErrForbidden, "marker role required")
	}
	if err := checkEdge(milestone.Status, orm.MilestoneRejected); err != nil {
		return nil, err
	}
	if err := requireFundedEscrow(campaign); err != nil {
		return nil, err
	}

	if err := e.transition(
		milestoneID,
		legalSources(orm.MilestoneRejected),
		map[string]interface{}{
			"status":     orm.MilestoneRejected,
			"admin_note": note,
		},
	); err != nil {
		return nil, err
	}

	milestone.Status = orm.MilestoneRejected
	milestone.AdminNote = note
	return milestone, nil
}

// RequestRevision sends a submitted milestone back to the creator with a
// note. The milestone can be resubmitted afterwards.
func (e *Engine) RequestRevision(
	ctx context.Context,
	caller Caller,
	milestoneID uint64,
	note string,
) (*orm.Milestone, error) {
	milestone, campaign, err := e.milestone(milestoneID)
	if err != nil {
		return nil, err
	}
	if !caller.Admin && caller.Address != campaign.Stakeholders.Marker {
		return nil, errors.Wrap(ErrForbidden, "marker role required")
	}
	if err := checkEdge(milestone.Status, orm.MilestoneRevisionRequested); err != nil {
		return nil, err
	}

	if err := e.transition(
		milestoneID,
		legalSources(orm.MilestoneRevisionRequested),
		map[string]interface{}{
			"status":     orm.MilestoneRevisionRequested,
			"admin_note": note,
		},
	); err != nil {
		return nil, err
	}

	milestone.Status = orm.MilestoneRevisionRequested
	milestone.AdminNote = note
	return milestone, nil
}

// ReleaseMilestone releases the payout of an approved milestone. Admin
// only. The remote release is the last step; on failure nothing is
// mutated locally and the caller must resubmit explicitly, there is no
// automatic retry for funds-moving operations.
func (e *Engine) ReleaseMilestone(
	ctx context.Context,
	caller Caller,
	milestoneID uint64,
) (*orm.Milestone, error) {
	milestone, campaign, err := e.milestone(milestoneID)
	if err != nil {
		return nil, err
	}
	if !caller.Admin {
		return nil, errors.Wrap(ErrForbidden, "admin required")
	}
	if err := checkEdge(milestone.Status, orm.MilestoneReleased); err != nil {
		return nil, err
	}
	if err := requireFundedEscrow(campaign); err != nil {
		return nil, err
	}

	releaseResp, err := e.gateway.ReleaseMilestoneFunds(ctx, &escrow.MilestoneRequest{
		EscrowAddress:  campaign.EscrowAddress,
		MilestoneIndex: milestone.EscrowIndex,
	})
	if err != nil {
		gatewayFailures.WithLabelValues("release_milestone_funds").Inc()
		return nil, &GatewayError{Op: "releaseMilestoneFunds", Err: err}
	}

	now := time.Now()
	if err := e.db.Transaction(func(dbTx *gorm.DB) error {
		res := dbTx.Model(&orm.Milestone{}).
			Where("id = ? AND status = ?", milestoneID, orm.MilestoneApproved).
			Updates(map[string]interface{}{
				"status":          orm.MilestoneReleased,
				"release_tx_hash": releaseResp.TxHash,
				"released_at":     now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errors.Wrap(ErrInvalidTransition, "milestone changed concurrently")
		}

		return completeIfReleased(dbTx, campaign.ID)
	}); err != nil {
		return nil, err
	}

	milestonesReleased.Inc()
	milestone.Status = orm.MilestoneReleased
	milestone.ReleaseTxHash = releaseResp.TxHash
	milestone.ReleasedAt = &now
	return milestone, nil
}

// DisputeMilestone raises a dispute on an approved or rejected milestone
// with the contract's resolver role. Only the campaign creator may
// dispute, and the remote call fails closed.
func (e *Engine) DisputeMilestone(
	ctx context.Context,
	caller Caller,
	milestoneID uint64,
	reason string,
) (*orm.Milestone, error) {
	milestone, campaign, err := e.milestone(milestoneID)
	if err != nil {
		return nil, err
	}
	if caller.Address != campaign.CreatorAddress {
		return nil, errors.Wrap(ErrForbidden, "only the campaign creator may dispute")
	}
	if err := checkEdge(milestone.Status, orm.MilestoneDisputed); err != nil {
		return nil, err
	}
	if err := requireFundedEscrow(campaign); err != nil {
		return nil, err
	}

	if err := e.gateway.DisputeMilestone(ctx, &escrow.DisputeRequest{
		EscrowAddress:  campaign.EscrowAddress,
		MilestoneIndex: milestone.EscrowIndex,
		Reason:         reason,
	}); err != nil {
		if rejected, ok := escrow.IsRejected(err); !ok || !rejected.AlreadyApplied {
			gatewayFailures.WithLabelValues("dispute_milestone").Inc()
			return nil, &GatewayError{Op: "disputeMilestone", Err: err}
		}
	}

	now := time.Now()
	if err := e.transition(
		milestoneID,
		legalSources(orm.MilestoneDisputed),
		map[string]interface{}{
			"status":         orm.MilestoneDisputed,
			"dispute_reason": reason,
			"disputed_at":    now,
		},
	); err != nil {
		return nil, err
	}

	milestone.Status = orm.MilestoneDisputed
	milestone.DisputeReason = reason
	milestone.DisputedAt = &now
	return milestone, nil
}
