package shielded

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Derive returns the shielded identity of owner under secret: the low 20
// bytes of keccak256(pad32(owner) || secret). The same inputs always give
// the same identity, so it can be re-derived from the secret alone.
func Derive(secret common.Hash, owner common.Address) common.Address {
	digest := crypto.Keccak256(common.LeftPadBytes(owner.Bytes(), 32), secret.Bytes())
	return common.BytesToAddress(digest[12:])
}

// NewSecret reads a fresh 32-byte secret from r, or from crypto/rand when r
// is nil.
func NewSecret(r io.Reader) (common.Hash, error) {
	if r == nil {
		r = rand.Reader
	}
	var secret common.Hash
	if _, err := io.ReadFull(r, secret[:]); err != nil {
		return common.Hash{}, fmt.Errorf("read secret: %w", err)
	}
	if secret == (common.Hash{}) {
		return common.Hash{}, errors.New("random source returned a zero secret")
	}
	return secret, nil
}

// NewNonce returns a random 256-bit single-use nonce.
func NewNonce(r io.Reader) (*big.Int, error) {
	if r == nil {
		r = rand.Reader
	}
	buf := make([]byte, 32)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("read nonce: %w", err)
	}
	return new(big.Int).SetBytes(buf), nil
}
