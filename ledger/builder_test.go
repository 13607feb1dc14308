package ledger

import (
	"testing"

	"github.com/pkg/errors"
)

func testTx(source, network string, ops ...string) *Transaction {
	txs := make([]*Transaction, len(ops))
	for i, op := range ops {
		txs[i] = Build(source, op, map[string]string{"op": op}, network)
	}

	if len(txs) == 1 {
		return txs[0]
	}

	merged, err := Merge(txs)
	if err != nil {
		panic(err)
	}
	return merged
}

func TestBuildSingleOperation(t *testing.T) {
	tx := Build(
		"GSOURCE",
		"create_campaign",
		map[string]string{"campaign": "1"},
		"testnet",
	)

	if len(tx.Operations) != 1 {
		t.Fatalf("got %d operations, want 1", len(tx.Operations))
	}
	if tx.Fee != baseOpFee {
		t.Errorf("got fee %d, want %d", tx.Fee, baseOpFee)
	}
	if tx.Operations[0].Params["campaign"] != "1" {
		t.Errorf("params not carried over: %v", tx.Operations[0].Params)
	}
	if tx.Signed() {
		t.Error("freshly built transaction must be unsigned")
	}
}

func TestMergePreservesOperationOrder(t *testing.T) {
	a := Build("GSOURCE", "create", nil, "testnet")
	b := Build("GSOURCE", "fund", nil, "testnet")
	c := Build("GSOURCE", "create_milestone", nil, "testnet")

	merged, err := Merge([]*Transaction{a, b, c})
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"create", "fund", "create_milestone"}
	if len(merged.Operations) != len(want) {
		t.Fatalf("got %d operations, want %d", len(merged.Operations), len(want))
	}
	for i, op := range merged.Operations {
		if op.Type != want[i] {
			t.Errorf("operation %d is %s, want %s", i, op.Type, want[i])
		}
	}
}

func TestMergeSumsPerOperationFees(t *testing.T) {
	merged := testTx("GSOURCE", "testnet", "create", "fund", "release")
	if want := 3 * baseOpFee; merged.Fee != want {
		t.Errorf("got fee %d, want %d", merged.Fee, want)
	}
}

func TestMergeMismatches(t *testing.T) {
	testCases := []struct {
		name    string
		txs     []*Transaction
		wantErr error
	}{
		{
			name:    "empty input",
			txs:     nil,
			wantErr: ErrNoTransactions,
		},
		{
			name: "source account mismatch",
			txs: []*Transaction{
				Build("GSOURCE", "create", nil, "testnet"),
				Build("GOTHER", "fund", nil, "testnet"),
			},
			wantErr: ErrSourceAccountMismatch,
		},
		{
			name: "network mismatch",
			txs: []*Transaction{
				Build("GSOURCE", "create", nil, "testnet"),
				Build("GSOURCE", "fund", nil, "mainnet"),
			},
			wantErr: ErrNetworkMismatch,
		},
	}
	for _, c := range testCases {
		t.Run(c.name, func(t *testing.T) {
			merged, err := Merge(c.txs)
			if !errors.Is(err, c.wantErr) {
				t.Errorf("got error %v, want %v", err, c.wantErr)
			}
			if merged != nil {
				t.Error("mismatch must produce zero partial output")
			}
		})
	}
}

func TestMergeSingleEquivalent(t *testing.T) {
	a := Build("GSOURCE", "create", map[string]string{"k": "v"}, "testnet")
	merged, err := Merge([]*Transaction{a})
	if err != nil {
		t.Fatal(err)
	}

	if merged.Fee != a.Fee ||
		len(merged.Operations) != 1 ||
		merged.Operations[0].Type != "create" {
		t.Errorf("single merge not equivalent: %+v", merged)
	}
}

func TestMergeRejectsSigned(t *testing.T) {
	a := Build("GSOURCE", "create", nil, "testnet")
	a.Signatures = []Signature{{Signer: "x", Signature: "00"}}

	if _, err := Merge([]*Transaction{a}); !errors.Is(err, ErrAlreadySigned) {
		t.Errorf("got error %v, want %v", err, ErrAlreadySigned)
	}
}
