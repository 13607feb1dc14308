package orm

import "time"

// CampaignStatus represents the lifecycle status of a campaign.
type CampaignStatus uint8

const (
	CampaignInvalid CampaignStatus = iota
	CampaignDraft
	CampaignPendingApproval
	CampaignLive
	CampaignFunded
	CampaignFailed
	CampaignCancelled
	CampaignCompleted
)

var (
	campaignStatusValue = map[CampaignStatus]string{
		CampaignInvalid:         "INVALID",
		CampaignDraft:           "DRAFT",
		CampaignPendingApproval: "PENDING_APPROVAL",
		CampaignLive:            "LIVE",
		CampaignFunded:          "FUNDED",
		CampaignFailed:          "FAILED",
		CampaignCancelled:       "CANCELLED",
		CampaignCompleted:       "COMPLETED",
	}

	campaignValueStatus = map[string]CampaignStatus{
		"DRAFT":            CampaignDraft,
		"PENDING_APPROVAL": CampaignPendingApproval,
		"LIVE":             CampaignLive,
		"FUNDED":           CampaignFunded,
		"FAILED":           CampaignFailed,
		"CANCELLED":        CampaignCancelled,
		"COMPLETED":        CampaignCompleted,
	}
)

// StrToCampaignStatus converts a status string to a campaign status.
func StrToCampaignStatus(str string) CampaignStatus {
	return campaignValueStatus[str]
}

// String returns the string of the campaign status.
func (s CampaignStatus) String() string {
	if _, ok := campaignStatusValue[s]; !ok {
		return "unknown"
	}

	return campaignStatusValue[s]
}

// EscrowStatus tracks how far a campaign has progressed with the remote
// escrow service. It is independent of the campaign status so that a
// campaign can go live even when the escrow deployment degraded.
type EscrowStatus uint8

const (
	EscrowPending EscrowStatus = iota
	EscrowDeployed
	EscrowFunded
	EscrowFailed
)

var escrowStatusValue = map[EscrowStatus]string{
	EscrowPending:  "PENDING",
	EscrowDeployed: "DEPLOYED",
	EscrowFunded:   "FUNDED",
	EscrowFailed:   "FAILED",
}

// String returns the string of the escrow integration status.
func (s EscrowStatus) String() string {
	if _, ok := escrowStatusValue[s]; !ok {
		return "unknown"
	}

	return escrowStatusValue[s]
}

// EscrowMode selects between a single-release and a multi-release
// escrow contract.
type EscrowMode string

const (
	EscrowModeSingle EscrowMode = "single"
	EscrowModeMulti  EscrowMode = "multi"
)

// Stakeholders holds the five role bindings of a campaign. A role is a
// capability bound to an external address, not a user record; the same
// address may occupy more than one role. Bindings are immutable once the
// escrow contract is deployed.
type Stakeholders struct {
	Marker   string `gorm:"column:marker_address"`
	Approver string `gorm:"column:approver_address"`
	Releaser string `gorm:"column:releaser_address"`
	Resolver string `gorm:"column:resolver_address"`
	Receiver string `gorm:"column:receiver_address"`
}

// Complete reports whether all five roles are bound.
func (s Stakeholders) Complete() bool {
	return s.Marker != "" &&
		s.Approver != "" &&
		s.Releaser != "" &&
		s.Resolver != "" &&
		s.Receiver != ""
}

// Campaign is a gorm table definition represents the campaigns.
type Campaign struct {
	ID             uint64 `gorm:"primary_key"`
	ProjectID      uint64
	CreatorAddress string
	Title          string
	Currency       string
	GoalAmount     uint64
	FundsRaised    uint64
	Deadline       time.Time
	Status         CampaignStatus
	Stakeholders   Stakeholders `gorm:"embedded"`
	EscrowMode     EscrowMode
	EscrowStatus   EscrowStatus
	EscrowAddress  string
	PlatformFeeBps uint32
	Trustline      string
	ApprovedBy     string
	ApprovedAt     *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
