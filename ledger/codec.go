package ledger

import (
	"encoding/base64"
	"encoding/json"

	"github.com/pkg/errors"
)

// Serialize round-trips a transaction, signed or unsigned, into an opaque
// string safe to hand to a remote signer. The encoding is lossless for
// all structural fields.
func Serialize(tx *Transaction) (string, error) {
	if tx == nil {
		return "", errors.New("nil transaction")
	}

	b, err := json.Marshal(tx)
	if err != nil {
		return "", errors.Wrap(err, "marshal transaction")
	}

	return base64.StdEncoding.EncodeToString(b), nil
}

// Deserialize restores a transaction from its serialized form.
func Deserialize(raw string) (*Transaction, error) {
	b, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, errors.Wrap(err, "decode transaction")
	}

	tx := &Transaction{}
	if err := json.Unmarshal(b, tx); err != nil {
		return nil, errors.Wrap(err, "unmarshal transaction")
	}

	return tx, nil
}
