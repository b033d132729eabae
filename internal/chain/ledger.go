package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"lendingScope/internal/ledger"
	"lendingScope/internal/model"
)

// Backend is the subset of Client the ledger needs.
type Backend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	SendTransaction(ctx context.Context, from, to common.Address, data []byte) (common.Hash, error)
	WaitReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}

// Ledger implements ledger.Reader, ledger.Oracle and ledger.Submitter over
// contract calls.
type Ledger struct {
	backend Backend
	logger  *zap.Logger
}

func NewLedger(backend Backend, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{backend: backend, logger: logger}
}

var (
	_ ledger.Reader    = (*Ledger)(nil)
	_ ledger.Oracle    = (*Ledger)(nil)
	_ ledger.Submitter = (*Ledger)(nil)
)

func (l *Ledger) PublicBalance(ctx context.Context, owner, token common.Address) (*big.Int, error) {
	return l.callUint(ctx, TokenABI, token, "balanceOf", owner)
}

func (l *Ledger) PrivateBalance(ctx context.Context, owner, token common.Address) (*big.Int, error) {
	return l.callUint(ctx, TokenABI, token, "privateBalanceOf", owner)
}

func (l *Ledger) Position(ctx context.Context, owner, market, token common.Address) (ledger.Position, error) {
	values, err := l.call(ctx, MarketABI, market, "getPosition", owner, token)
	if err != nil {
		return ledger.Position{}, err
	}
	if len(values) != 2 {
		return ledger.Position{}, fmt.Errorf("getPosition return size %d", len(values))
	}
	supplied, err := asBigInt(values[0])
	if err != nil {
		return ledger.Position{}, fmt.Errorf("supplied: %w", err)
	}
	borrowed, err := asBigInt(values[1])
	if err != nil {
		return ledger.Position{}, fmt.Errorf("borrowed: %w", err)
	}
	return ledger.Position{Supplied: supplied, Borrowed: borrowed}, nil
}

func (l *Ledger) TotalSupplied(ctx context.Context, market, token common.Address) (*big.Int, error) {
	return l.callUint(ctx, MarketABI, market, "totalSupplied", token)
}

func (l *Ledger) TotalBorrowed(ctx context.Context, market, token common.Address) (*big.Int, error) {
	return l.callUint(ctx, MarketABI, market, "totalBorrowed", token)
}

func (l *Ledger) Accumulators(ctx context.Context, market, token common.Address) (ledger.Accumulators, error) {
	values, err := l.call(ctx, MarketABI, market, "getAccumulators", token)
	if err != nil {
		return ledger.Accumulators{}, err
	}
	if len(values) != 4 {
		return ledger.Accumulators{}, fmt.Errorf("getAccumulators return size %d", len(values))
	}
	deposit, err := asAccumulator(values[0], values[1])
	if err != nil {
		return ledger.Accumulators{}, fmt.Errorf("deposit accumulator: %w", err)
	}
	borrow, err := asAccumulator(values[2], values[3])
	if err != nil {
		return ledger.Accumulators{}, fmt.Errorf("borrow accumulator: %w", err)
	}
	return ledger.Accumulators{Deposit: deposit, Borrow: borrow}, nil
}

func (l *Ledger) Price(ctx context.Context, feed common.Address) (*big.Int, error) {
	return l.callUint(ctx, OracleABI, feed, "latestPrice")
}

// Authorize grants the spender a single-use right over the caller's
// private balance.
func (l *Ledger) Authorize(ctx context.Context, auth ledger.Authorization) error {
	parsed, err := TokenABI()
	if err != nil {
		return fmt.Errorf("parse token abi: %w", err)
	}
	data, err := parsed.Pack("authorize", auth.Spender, orZero(auth.Amount), orZero(auth.Nonce))
	if err != nil {
		return fmt.Errorf("pack authorize: %w", err)
	}
	_, err = l.transact(ctx, "authorize", auth.Caller, auth.Token, data)
	return err
}

// Submit sends one market operation and waits for it to be mined.
func (l *Ledger) Submit(ctx context.Context, op ledger.Operation) (ledger.Receipt, error) {
	parsed, err := MarketABI()
	if err != nil {
		return ledger.Receipt{}, fmt.Errorf("parse market abi: %w", err)
	}
	method, args, err := encodeOperation(op)
	if err != nil {
		return ledger.Receipt{}, err
	}
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return ledger.Receipt{}, fmt.Errorf("pack %s: %w", method, err)
	}
	base := op.Common()
	return l.transact(ctx, op.Name(), base.Caller, base.Market, data)
}

func encodeOperation(op ledger.Operation) (string, []interface{}, error) {
	base := op.Common()
	amount := orZero(base.Amount)
	switch v := op.(type) {
	case ledger.DepositPublic:
		return "deposit", []interface{}{base.Token, amount, v.OnBehalfOf}, nil
	case ledger.DepositPrivate:
		return "depositPrivate", []interface{}{base.Token, amount, v.OnBehalfOf, [32]byte(v.Secret), orZero(v.Nonce), v.FromPublicBalance}, nil
	case ledger.WithdrawPublic:
		return "withdraw", []interface{}{base.Token, amount, v.Recipient}, nil
	case ledger.WithdrawPrivate:
		return "withdrawPrivate", []interface{}{base.Token, amount, v.Recipient, [32]byte(v.Secret)}, nil
	case ledger.BorrowPublic:
		return "borrow", []interface{}{base.Token, amount, v.Recipient}, nil
	case ledger.BorrowPrivate:
		return "borrowPrivate", []interface{}{base.Token, amount, v.Recipient, [32]byte(v.Secret)}, nil
	case ledger.RepayPublic:
		return "repay", []interface{}{base.Token, amount, v.OnBehalfOf}, nil
	case ledger.RepayPrivate:
		return "repayPrivate", []interface{}{base.Token, amount, v.OnBehalfOf, [32]byte(v.Secret), orZero(v.Nonce), v.FromPublicBalance}, nil
	default:
		return "", nil, fmt.Errorf("unsupported operation %T", op)
	}
}

func (l *Ledger) transact(ctx context.Context, name string, from, to common.Address, data []byte) (ledger.Receipt, error) {
	hash, err := l.backend.SendTransaction(ctx, from, to, data)
	if err != nil {
		return ledger.Receipt{}, fmt.Errorf("send %s: %w", name, err)
	}
	l.logger.Debug("transaction sent", zap.String("name", name), zap.String("tx", hash.Hex()))

	receipt, err := l.backend.WaitReceipt(ctx, hash)
	if err != nil {
		return ledger.Receipt{}, fmt.Errorf("wait %s: %w", name, err)
	}
	if receipt.Status == types.ReceiptStatusFailed {
		return ledger.Receipt{}, fmt.Errorf("%s reverted in tx %s", name, hash.Hex())
	}

	out := ledger.Receipt{TxHash: hash}
	if receipt.BlockNumber != nil {
		out.BlockNumber = receipt.BlockNumber.Uint64()
	}
	return out, nil
}

func (l *Ledger) call(ctx context.Context, load func() (abi.ABI, error), to common.Address, method string, args ...interface{}) ([]interface{}, error) {
	parsed, err := load()
	if err != nil {
		return nil, fmt.Errorf("parse abi: %w", err)
	}
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &to, Data: data}
	resp, err := l.backend.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return values, nil
}

func (l *Ledger) callUint(ctx context.Context, load func() (abi.ABI, error), to common.Address, method string, args ...interface{}) (*big.Int, error) {
	values, err := l.call(ctx, load, to, method, args...)
	if err != nil {
		return nil, err
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("%s return size %d", method, len(values))
	}
	return asBigInt(values[0])
}

func asAccumulator(value, updated interface{}) (model.Accumulator, error) {
	v, err := asBigInt(value)
	if err != nil {
		return model.Accumulator{}, err
	}
	ts, err := asBigInt(updated)
	if err != nil {
		return model.Accumulator{}, err
	}
	if !ts.IsUint64() {
		return model.Accumulator{}, fmt.Errorf("timestamp overflow: %s", ts)
	}
	return model.Accumulator{Value: v, LastUpdated: ts.Uint64()}, nil
}
