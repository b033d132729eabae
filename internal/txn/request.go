package txn

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"lendingScope/internal/ledger"
	"lendingScope/internal/model"
	"lendingScope/internal/refresh"
)

type Action int

const (
	ActionDeposit Action = iota + 1
	ActionWithdraw
	ActionBorrow
	ActionRepay
)

func (a Action) String() string {
	switch a {
	case ActionDeposit:
		return "deposit"
	case ActionWithdraw:
		return "withdraw"
	case ActionBorrow:
		return "borrow"
	case ActionRepay:
		return "repay"
	default:
		return "unknown"
	}
}

// ParseAction maps a command name to an Action.
func ParseAction(name string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "deposit":
		return ActionDeposit, nil
	case "withdraw":
		return ActionWithdraw, nil
	case "borrow":
		return ActionBorrow, nil
	case "repay":
		return ActionRepay, nil
	default:
		return 0, fmt.Errorf("unknown action %q", name)
	}
}

// fundsIn reports whether the action moves tokens from the caller into
// the market.
func (a Action) fundsIn() bool {
	return a == ActionDeposit || a == ActionRepay
}

type Visibility int

const (
	Public Visibility = iota
	Private
)

func (v Visibility) String() string {
	if v == Private {
		return "private"
	}
	return "public"
}

// RecipientMode selects who receives a private operation.
type RecipientMode int

const (
	// RecipientSelf targets the caller's own public identity with a zero
	// secret.
	RecipientSelf RecipientMode = iota
	// RecipientStored targets a previously derived identity.
	RecipientStored
	// RecipientNew derives and persists a fresh identity.
	RecipientNew
)

// Request is one user-initiated operation. Amount is a decimal string in
// the asset's units.
type Request struct {
	Action     Action
	Visibility Visibility
	AssetID    string
	Amount     string

	Recipient      RecipientMode
	StoredIdentity common.Address
	// FromPublicBalance funds a private deposit or repay from the public
	// token balance.
	FromPublicBalance bool
}

// Result describes a confirmed operation.
type Result struct {
	Operation string
	Receipt   ledger.Receipt
	Amount    *big.Int
	Recipient common.Address
	// NewIdentity is set when the request minted a shielded identity.
	NewIdentity *model.AddressEntry
	Refresh     refresh.Outcome
}

func buildOperation(req Request, base ledger.Base, target common.Address, secret common.Hash, nonce *big.Int) ledger.Operation {
	private := req.Visibility == Private
	switch req.Action {
	case ActionDeposit:
		if private {
			return ledger.DepositPrivate{Base: base, OnBehalfOf: target, Secret: secret, Nonce: nonce, FromPublicBalance: req.FromPublicBalance}
		}
		return ledger.DepositPublic{Base: base, OnBehalfOf: target}
	case ActionWithdraw:
		if private {
			return ledger.WithdrawPrivate{Base: base, Recipient: target, Secret: secret}
		}
		return ledger.WithdrawPublic{Base: base, Recipient: target}
	case ActionBorrow:
		if private {
			return ledger.BorrowPrivate{Base: base, Recipient: target, Secret: secret}
		}
		return ledger.BorrowPublic{Base: base, Recipient: target}
	case ActionRepay:
		if private {
			return ledger.RepayPrivate{Base: base, OnBehalfOf: target, Secret: secret, Nonce: nonce, FromPublicBalance: req.FromPublicBalance}
		}
		return ledger.RepayPublic{Base: base, OnBehalfOf: target}
	}
	return nil
}
