package orm

import "time"

// MilestoneStatus represents the lifecycle status of a milestone.
type MilestoneStatus uint8

const (
	MilestoneInvalid MilestoneStatus = iota
	MilestonePending
	MilestoneInProgress
	MilestoneSubmitted
	MilestoneApproved
	MilestoneRejected
	MilestoneRevisionRequested
	MilestoneDisputed
	MilestoneReleased
)

var (
	milestoneStatusValue = map[MilestoneStatus]string{
		MilestoneInvalid:           "INVALID",
		MilestonePending:           "PENDING",
		MilestoneInProgress:        "IN_PROGRESS",
		MilestoneSubmitted:         "SUBMITTED",
		MilestoneApproved:          "APPROVED",
		MilestoneRejected:          "REJECTED",
		MilestoneRevisionRequested: "REVISION_REQUESTED",
		MilestoneDisputed:          "DISPUTED",
		MilestoneReleased:          "RELEASED",
	}

	milestoneValueStatus = map[string]MilestoneStatus{
		"PENDING":            MilestonePending,
		"IN_PROGRESS":        MilestoneInProgress,
		"SUBMITTED":          MilestoneSubmitted,
		"APPROVED":           MilestoneApproved,
		"REJECTED":           MilestoneRejected,
		"REVISION_REQUESTED": MilestoneRevisionRequested,
		"DISPUTED":           MilestoneDisputed,
		"RELEASED":           MilestoneReleased,
	}
)

// StrToMilestoneStatus converts a status string to a milestone status.
func StrToMilestoneStatus(str string) MilestoneStatus {
	return milestoneValueStatus[str]
}

// String returns the string of the milestone status.
func (s MilestoneStatus) String() string {
	if _, ok := milestoneStatusValue[s]; !ok {
		return "unknown"
	}

	return milestoneStatusValue[s]
}

// Milestone is a gorm table definition represents the milestones.
// EscrowIndex mirrors Index unless the reconciler remapped it after a
// partial deployment.
type Milestone struct {
	ID               uint64 `gorm:"primary_key"`
	CampaignID       uint64
	Index            uint32 `gorm:"column:idx"`
	EscrowIndex      uint32
	Title            string
	Description      string
	PayoutPercent    float64
	Amount           uint64
	Status           MilestoneStatus
	ProofDescription string
	ProofLinks       string
	AdminNote        string
	DisputeReason    string
	ReleaseTxHash    string
	SubmittedAt      *time.Time
	ApprovedAt       *time.Time
	ReleasedAt       *time.Time
	DisputedAt       *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
