package ledger

// baseOpFee is the flat per-operation fee in stroop-denominated minor
// units. A merged transaction pays the sum of its operations' fees, not
// a flat fee.
const baseOpFee = uint64(100)

// Build constructs a single-operation unsigned transaction for the given
// source account on the given network.
func Build(
	sourceAccount string,
	operation string,
	params map[string]string,
	network string,
) *Transaction {
	op := Operation{
		Type: operation,
		Fee:  baseOpFee,
	}
	if len(params) > 0 {
		op.Params = make(map[string]string, len(params))
		for k, v := range params {
			op.Params[k] = v
		}
	}

	return &Transaction{
		SourceAccount: sourceAccount,
		Network:       network,
		Fee:           op.Fee,
		Operations:    []Operation{op},
	}
}

// Merge combines N independent transactions into one atomically
// submittable transaction. All inputs must be unsigned and share the same
// source account and network. Operation order is preserved across the
// inputs since some operations are causally dependent. On any failure no
// partial output is produced.
func Merge(txs []*Transaction) (*Transaction, error) {
	if len(txs) == 0 {
		return nil, ErrNoTransactions
	}

	first := txs[0]
	for _, tx := range txs {
		if tx.Signed() {
			return nil, ErrAlreadySigned
		}
		if tx.SourceAccount != first.SourceAccount {
			return nil, ErrSourceAccountMismatch
		}
		if tx.Network != first.Network {
			return nil, ErrNetworkMismatch
		}
	}

	merged := &Transaction{
		SourceAccount: first.SourceAccount,
		Network:       first.Network,
		Sequence:      first.Sequence,
	}
	for _, tx := range txs {
		for _, op := range tx.Operations {
			merged.Fee += op.Fee
		}

		clone := tx.Clone()
		merged.Operations = append(merged.Operations, clone.Operations...)
		for k, v := range clone.Metadata {
			if merged.Metadata == nil {
				merged.Metadata = make(map[string]string)
			}
			if _, ok := merged.Metadata[k]; !ok {
				merged.Metadata[k] = v
			}
		}
	}

	return merged, nil
}
