package ledger

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Base carries the fields every operation shares.
type Base struct {
	Caller common.Address
	Market common.Address
	Token  common.Address
	Amount *big.Int
}

// Common returns the shared fields.
func (b Base) Common() Base { return b }

// Operation is one of the variants declared in this file; the set is closed.
type Operation interface {
	Common() Base
	Name() string
	operation()
}

type DepositPublic struct {
	Base
	OnBehalfOf common.Address
}

type DepositPrivate struct {
	Base
	OnBehalfOf        common.Address
	Secret            common.Hash
	Nonce             *big.Int
	FromPublicBalance bool
}

type WithdrawPublic struct {
	Base
	Recipient common.Address
}

type WithdrawPrivate struct {
	Base
	Recipient common.Address
	Secret    common.Hash
}

type BorrowPublic struct {
	Base
	Recipient common.Address
}

type BorrowPrivate struct {
	Base
	Recipient common.Address
	Secret    common.Hash
}

type RepayPublic struct {
	Base
	OnBehalfOf common.Address
}

type RepayPrivate struct {
	Base
	OnBehalfOf        common.Address
	Secret            common.Hash
	Nonce             *big.Int
	FromPublicBalance bool
}

func (DepositPublic) Name() string   { return "deposit_public" }
func (DepositPrivate) Name() string  { return "deposit_private" }
func (WithdrawPublic) Name() string  { return "withdraw_public" }
func (WithdrawPrivate) Name() string { return "withdraw_private" }
func (BorrowPublic) Name() string    { return "borrow_public" }
func (BorrowPrivate) Name() string   { return "borrow_private" }
func (RepayPublic) Name() string     { return "repay_public" }
func (RepayPrivate) Name() string    { return "repay_private" }

func (DepositPublic) operation()   {}
func (DepositPrivate) operation()  {}
func (WithdrawPublic) operation()  {}
func (WithdrawPrivate) operation() {}
func (BorrowPublic) operation()    {}
func (BorrowPrivate) operation()   {}
func (RepayPublic) operation()     {}
func (RepayPrivate) operation()    {}
