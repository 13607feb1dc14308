package escrow

// Role names understood by the escrow contract. They match the stakeholder
// slots bound on a campaign.
const (
	RoleMarker   = "marker"
	RoleApprover = "approver"
	RoleReleaser = "releaser"
	RoleResolver = "resolver"
	RoleReceiver = "receiver"
)

// DeployMilestone describes one milestone of the contract being deployed.
type DeployMilestone struct {
	Index         uint32  `json:"index"`
	Description   string  `json:"description"`
	Amount        uint64  `json:"amount"`
	PayoutPercent float64 `json:"payout_percent"`
}

// DeployRequest carries the parameters of a contract deployment. The
// engagement id correlates the remote contract with the local campaign.
type DeployRequest struct {
	EngagementID   string            `json:"engagement_id"`
	Mode           string            `json:"mode"`
	Roles          map[string]string `json:"roles"`
	PlatformFeeBps uint32            `json:"platform_fee_bps"`
	Trustline      string            `json:"trustline"`
	Milestones     []DeployMilestone `json:"milestones"`
}

// DeployResponse is the success payload of a deployment.
type DeployResponse struct {
	EscrowAddress string `json:"escrow_address"`
	UnsignedTx    string `json:"unsigned_tx"`
}

// FundRequest carries one additive funding call.
type FundRequest struct {
	EscrowAddress string `json:"escrow_address"`
	FunderAddress string `json:"funder_address"`
	Amount        uint64 `json:"amount"`
}

// FundResponse is the success payload of a funding call.
type FundResponse struct {
	UnsignedTx string `json:"unsigned_tx"`
	TxHash     string `json:"tx_hash"`
}

// MilestoneRequest addresses one milestone of a deployed contract.
type MilestoneRequest struct {
	EscrowAddress  string `json:"escrow_address"`
	MilestoneIndex uint32 `json:"milestone_index"`
}

// ChangeStatusRequest updates the remote status flag of one milestone.
type ChangeStatusRequest struct {
	EscrowAddress  string `json:"escrow_address"`
	MilestoneIndex uint32 `json:"milestone_index"`
	Status         string `json:"status"`
	Note           string `json:"note,omitempty"`
}

// ReleaseResponse is the success payload of a funds release.
type ReleaseResponse struct {
	TxHash string `json:"tx_hash"`
}

// DisputeRequest raises a dispute on one milestone with the contract's
// resolver role.
type DisputeRequest struct {
	EscrowAddress  string `json:"escrow_address"`
	MilestoneIndex uint32 `json:"milestone_index"`
	Reason         string `json:"reason"`
}

// MilestoneState is the authoritative remote state of one milestone.
type MilestoneState struct {
	Index    uint32 `json:"index"`
	Status   string `json:"status"`
	Approved bool   `json:"approved"`
	Released bool   `json:"released"`
}

// State is the authoritative remote state of an escrow contract.
type State struct {
	EscrowAddress string           `json:"escrow_address"`
	EngagementID  string           `json:"engagement_id"`
	Balance       uint64           `json:"balance"`
	Milestones    []MilestoneState `json:"milestones"`
}
