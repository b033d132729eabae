package ledger

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"lendingScope/internal/model"
)

// Position is an account's principal in one market asset, as of the asset's
// accumulator timestamps.
type Position struct {
	Supplied *big.Int
	Borrowed *big.Int
}

// Accumulators holds the deposit-side and borrow-side records of an asset.
type Accumulators struct {
	Deposit model.Accumulator
	Borrow  model.Accumulator
}

// Reader is the read side of the lending contracts.
type Reader interface {
	PublicBalance(ctx context.Context, owner, token common.Address) (*big.Int, error)
	PrivateBalance(ctx context.Context, owner, token common.Address) (*big.Int, error)
	Position(ctx context.Context, owner, market, token common.Address) (Position, error)
	TotalSupplied(ctx context.Context, market, token common.Address) (*big.Int, error)
	TotalBorrowed(ctx context.Context, market, token common.Address) (*big.Int, error)
	Accumulators(ctx context.Context, market, token common.Address) (Accumulators, error)
}

// Oracle returns a price at PriceDecimals for a feed.
type Oracle interface {
	Price(ctx context.Context, feed common.Address) (*big.Int, error)
}

// Authorization grants the market a single-use right to move Amount of
// Token out of Caller's private balance.
type Authorization struct {
	Caller  common.Address
	Spender common.Address
	Token   common.Address
	Amount  *big.Int
	Nonce   *big.Int
}

// Receipt identifies a confirmed operation.
type Receipt struct {
	TxHash      common.Hash
	BlockNumber uint64
}

// Submitter applies signed operations. Submit either fully succeeds or
// returns an error with nothing applied.
type Submitter interface {
	Authorize(ctx context.Context, auth Authorization) error
	Submit(ctx context.Context, op Operation) (Receipt, error)
}
