package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

const (
	accountPath     = "account"
	transactionPath = "transaction"
)

// AccountResp is the ledger view of an account.
type AccountResp struct {
	Address  string `json:"address"`
	Sequence uint64 `json:"sequence"`
	Balance  uint64 `json:"balance"`
}

// TransactionResp is the ledger view of a submitted transaction. It is
// used to verify transaction hashes supplied by funders.
type TransactionResp struct {
	Hash       string `json:"hash"`
	Ledger     uint64 `json:"ledger"`
	Successful bool   `json:"successful"`
}

// HorizonClient reads accounts and transactions from the ledger network
// according to the HTTP request from the horizon endpoint.
type HorizonClient struct {
	endpoint string
}

// NewHorizonClient returns a new horizon read client instance.
func NewHorizonClient(endpoint string) *HorizonClient {
	return &HorizonClient{endpoint: endpoint}
}

// Account requests account detail by ledger address.
func (h *HorizonClient) Account(
	ctx context.Context,
	address string,
) (*AccountResp, error) {
	url := fmt.Sprintf("%s/%s?address=%s", h.endpoint, accountPath, address)
	a := &AccountResp{}
	return a, httpGet(ctx, url, a)
}

// Transaction requests transaction detail by hash.
func (h *HorizonClient) Transaction(
	ctx context.Context,
	hash string,
) (*TransactionResp, error) {
	url := fmt.Sprintf("%s/%s?hash=%s", h.endpoint, transactionPath, hash)
	t := &TransactionResp{}
	return t, httpGet(ctx, url, t)
}

type horizonResponse struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data,omitempty"`
}

func httpGet(ctx context.Context, url string, result interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}

	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	hr := &horizonResponse{}
	if err := json.Unmarshal(body, hr); err != nil {
		return err
	}

	if hr.Code != http.StatusOK {
		return errors.Errorf("request horizon failed, err:%s", hr.Msg)
	}

	return json.Unmarshal(hr.Data, result)
}
