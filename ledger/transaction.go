package ledger

import "github.com/pkg/errors"

var (
	// ErrNoTransactions is returned when merging an empty set.
	ErrNoTransactions = errors.New("no transactions to merge")
	// ErrNetworkMismatch is returned when merged transactions target
	// different networks.
	ErrNetworkMismatch = errors.New("transaction network mismatch")
	// ErrSourceAccountMismatch is returned when merged transactions are
	// built from different source accounts.
	ErrSourceAccountMismatch = errors.New("transaction source account mismatch")
	// ErrAlreadySigned is returned when a signed transaction is passed
	// where an unsigned one is required.
	ErrAlreadySigned = errors.New("transaction already signed")
)

// Operation is a single contract invocation inside a transaction. Params
// are opaque to this layer; they are carried losslessly to the remote
// signer and submitter.
type Operation struct {
	Type   string            `json:"type"`
	Params map[string]string `json:"params,omitempty"`
	Fee    uint64            `json:"fee"`
}

// Signature is one entry of a transaction's appended signature list.
type Signature struct {
	Signer    string `json:"signer"`
	Signature string `json:"signature"`
}

// Transaction represents one or more contract invocations submitted
// atomically under a single source account sequence number and a single
// fee.
type Transaction struct {
	SourceAccount string            `json:"source_account"`
	Network       string            `json:"network"`
	Sequence      uint64            `json:"sequence"`
	Fee           uint64            `json:"fee"`
	Operations    []Operation       `json:"operations"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	Signatures    []Signature       `json:"signatures,omitempty"`
}

// Signed reports whether the transaction carries at least one signature.
func (tx *Transaction) Signed() bool {
	return len(tx.Signatures) > 0
}

// Clone returns a deep copy so callers never mutate shared state.
func (tx *Transaction) Clone() *Transaction {
	if tx == nil {
		return nil
	}

	clone := *tx
	clone.Operations = make([]Operation, len(tx.Operations))
	for i, op := range tx.Operations {
		cop := op
		if op.Params != nil {
			cop.Params = make(map[string]string, len(op.Params))
			for k, v := range op.Params {
				cop.Params[k] = v
			}
		}
		clone.Operations[i] = cop
	}

	if tx.Metadata != nil {
		clone.Metadata = make(map[string]string, len(tx.Metadata))
		for k, v := range tx.Metadata {
			clone.Metadata[k] = v
		}
	}

	if tx.Signatures != nil {
		clone.Signatures = append([]Signature(nil), tx.Signatures...)
	}

	return &clone
}
