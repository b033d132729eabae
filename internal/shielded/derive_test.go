package shielded

import (
	"bytes"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

var owner = common.HexToAddress("0x1111111111111111111111111111111111111111")

func TestDeriveDeterministic(t *testing.T) {
	secret := common.HexToHash("0x01")
	if Derive(secret, owner) != Derive(secret, owner) {
		t.Fatalf("derive must be deterministic")
	}
}

func TestDeriveDistinct(t *testing.T) {
	a := Derive(common.HexToHash("0x01"), owner)
	b := Derive(common.HexToHash("0x02"), owner)
	if a == b {
		t.Fatalf("different secrets produced the same identity")
	}
	other := common.HexToAddress("0x2222222222222222222222222222222222222222")
	if Derive(common.HexToHash("0x01"), other) == a {
		t.Fatalf("different owners produced the same identity")
	}
	if a == owner {
		t.Fatalf("derived identity should not equal its owner")
	}
}

func TestNewSecret(t *testing.T) {
	first, err := NewSecret(nil)
	if err != nil {
		t.Fatalf("new secret: %v", err)
	}
	second, err := NewSecret(nil)
	if err != nil {
		t.Fatalf("new secret: %v", err)
	}
	if first == second {
		t.Fatalf("secrets should differ")
	}
}

func TestNewSecretRejectsZero(t *testing.T) {
	if _, err := NewSecret(bytes.NewReader(make([]byte, 32))); err == nil {
		t.Fatalf("expected error for zero secret")
	}
	if _, err := NewSecret(bytes.NewReader([]byte{1, 2})); err == nil {
		t.Fatalf("expected error for short read")
	}
}

func TestNewNonce(t *testing.T) {
	src := bytes.Repeat([]byte{0xff}, 32)
	nonce, err := NewNonce(bytes.NewReader(src))
	if err != nil {
		t.Fatalf("new nonce: %v", err)
	}
	if nonce.BitLen() != 256 {
		t.Fatalf("unexpected nonce size: %d", nonce.BitLen())
	}
}
