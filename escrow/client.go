package escrow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

const (
	deployPath       = "deploy"
	fundPath         = "fund"
	approvePath      = "approve-milestone"
	changeStatusPath = "change-milestone-status"
	releaseFundsPath = "release-milestone-funds"
	disputePath      = "dispute-milestone"
	escrowPath       = "escrow"

	defaultTimeout = 10 * time.Second
)

// Gateway is the typed contract against the remote escrow service. Every
// call is independent and may fail; no retries are performed inside the
// gateway, retry and fallback policy lives one layer up.
type Gateway interface {
	Deploy(ctx context.Context, req *DeployRequest) (*DeployResponse, error)
	Fund(ctx context.Context, req *FundRequest) (*FundResponse, error)
	ApproveMilestone(ctx context.Context, req *MilestoneRequest) error
	ChangeMilestoneStatus(ctx context.Context, req *ChangeStatusRequest) error
	ReleaseMilestoneFunds(ctx context.Context, req *MilestoneRequest) (*ReleaseResponse, error)
	DisputeMilestone(ctx context.Context, req *DisputeRequest) error
	GetEscrow(ctx context.Context, escrowAddress string) (*State, error)
}

// Client calls the remote escrow service over HTTP according to the
// request from the funding engine.
type Client struct {
	endpoint string
	token    string
	http     *http.Client
}

// NewClient returns a new escrow client instance authenticated with the
// given bearer credential.
func NewClient(endpoint, token string) *Client {
	return &Client{
		endpoint: endpoint,
		token:    token,
		http:     &http.Client{},
	}
}

// Deploy requests a new escrow contract deployment.
func (c *Client) Deploy(
	ctx context.Context,
	req *DeployRequest,
) (*DeployResponse, error) {
	resp := &DeployResponse{}
	return resp, c.post(ctx, deployPath, req, resp)
}

// Fund requests an additive deposit into a deployed contract.
func (c *Client) Fund(
	ctx context.Context,
	req *FundRequest,
) (*FundResponse, error) {
	resp := &FundResponse{}
	return resp, c.post(ctx, fundPath, req, resp)
}

// ApproveMilestone marks one remote milestone approved.
func (c *Client) ApproveMilestone(
	ctx context.Context,
	req *MilestoneRequest,
) error {
	return c.post(ctx, approvePath, req, nil)
}

// ChangeMilestoneStatus updates the remote status flag of one milestone.
func (c *Client) ChangeMilestoneStatus(
	ctx context.Context,
	req *ChangeStatusRequest,
) error {
	return c.post(ctx, changeStatusPath, req, nil)
}

// ReleaseMilestoneFunds releases the payout of one approved milestone.
func (c *Client) ReleaseMilestoneFunds(
	ctx context.Context,
	req *MilestoneRequest,
) (*ReleaseResponse, error) {
	resp := &ReleaseResponse{}
	return resp, c.post(ctx, releaseFundsPath, req, resp)
}

// DisputeMilestone raises a dispute with the contract's resolver role.
func (c *Client) DisputeMilestone(
	ctx context.Context,
	req *DisputeRequest,
) error {
	return c.post(ctx, disputePath, req, nil)
}

// GetEscrow reads the authoritative remote state of a contract.
func (c *Client) GetEscrow(
	ctx context.Context,
	escrowAddress string,
) (*State, error) {
	url := fmt.Sprintf(
		"%s/%s?address=%s",
		c.endpoint,
		escrowPath,
		escrowAddress,
	)
	state := &State{}
	return state, c.do(ctx, http.MethodGet, url, nil, state)
}

func (c *Client) post(
	ctx context.Context,
	path string,
	payload interface{},
	result interface{},
) error {
	url := fmt.Sprintf("%s/%s", c.endpoint, path)
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return c.do(ctx, http.MethodPost, url, body, result)
}

type escrowResponse struct {
	Code           int             `json:"code"`
	Msg            string          `json:"msg"`
	AlreadyApplied bool            `json:"already_applied,omitempty"`
	Data           json.RawMessage `json:"data,omitempty"`
}

func (c *Client) do(
	ctx context.Context,
	method string,
	url string,
	payload []byte,
	result interface{},
) error {
	ctx, cancel := context.WithTimeout(ctx, callTimeout(ctx))
	defer cancel()

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return mapTransportError(err)
	}

	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return mapTransportError(err)
	}

	er := &escrowResponse{}
	if err := json.Unmarshal(body, er); err != nil {
		return errors.Wrap(ErrRemoteUnavailable, "malformed escrow response")
	}

	if er.Code != http.StatusOK {
		return &RejectedError{
			Reason:         er.Msg,
			AlreadyApplied: er.AlreadyApplied,
		}
	}

	if result == nil || len(er.Data) == 0 {
		return nil
	}

	return json.Unmarshal(er.Data, result)
}

func callTimeout(ctx context.Context) time.Duration {
	if deadline, ok := ctx.Deadline(); ok {
		if d := time.Until(deadline); d < defaultTimeout {
			return d
		}
	}

	return defaultTimeout
}

func mapTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout
	}

	return errors.Wrap(ErrRemoteUnavailable, err.Error())
}
