package ledger

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// SigningHash computes the digest covered by a signature. Signatures are
// excluded so that appending one does not invalidate earlier ones.
func SigningHash(tx *Transaction) ([]byte, error) {
	unsigned := tx.Clone()
	unsigned.Signatures = nil
	b, err := json.Marshal(unsigned)
	if err != nil {
		return nil, err
	}

	hash := sha256.Sum256(b)
	return hash[:], nil
}

// Sign produces a signed copy of the transaction retaining all original
// operations and metadata plus an appended signature list entry.
func Sign(tx *Transaction, key *ecdsa.PrivateKey) (*Transaction, error) {
	if tx == nil {
		return nil, errors.New("nil transaction")
	}

	hash, err := SigningHash(tx)
	if err != nil {
		return nil, err
	}

	sig, err := crypto.Sign(hash, key)
	if err != nil {
		return nil, errors.Wrap(err, "sign transaction")
	}

	signed := tx.Clone()
	signed.Signatures = append(signed.Signatures, Signature{
		Signer:    crypto.PubkeyToAddress(key.PublicKey).Hex(),
		Signature: hex.EncodeToString(sig),
	})

	return signed, nil
}

// RecoverSigner returns the address that produced the i-th signature.
func RecoverSigner(tx *Transaction, i int) (string, error) {
	if tx == nil || i < 0 || i >= len(tx.Signatures) {
		return "", errors.New("signature index out of range")
	}

	hash, err := SigningHash(tx)
	if err != nil {
		return "", err
	}

	sig, err := hex.DecodeString(tx.Signatures[i].Signature)
	if err != nil {
		return "", errors.Wrap(err, "decode signature")
	}

	pub, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return "", errors.Wrap(err, "recover public key")
	}

	return crypto.PubkeyToAddress(*pub).Hex(), nil
}
