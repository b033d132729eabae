package chain

import (
	"context"
	"errors"
	"math/big"
	"reflect"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"lendingScope/internal/ledger"
	"lendingScope/internal/model"
)

var (
	owner  = common.HexToAddress("0x1111111111111111111111111111111111111111")
	market = common.HexToAddress("0x0000000000000000000000000000000000000999")
	token  = common.HexToAddress("0x0000000000000000000000000000000000000101")
	feed   = common.HexToAddress("0x0000000000000000000000000000000000000201")
)

type sentTx struct {
	from, to common.Address
	data     []byte
}

// fakeBackend answers eth_calls with packed outputs keyed by method name.
type fakeBackend struct {
	t       *testing.T
	outputs map[string][]interface{}
	sent    []sentTx
	status  uint64
	sendErr error
}

func (f *fakeBackend) lookup(data []byte) (*abi.Method, error) {
	loaders := []func() (abi.ABI, error){MarketABI, TokenABI, OracleABI}
	for _, load := range loaders {
		parsed, err := load()
		if err != nil {
			return nil, err
		}
		if method, err := parsed.MethodById(data[:4]); err == nil {
			return method, nil
		}
	}
	return nil, errors.New("unknown selector")
}

func (f *fakeBackend) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	method, err := f.lookup(msg.Data)
	if err != nil {
		return nil, err
	}
	values, ok := f.outputs[method.Name]
	if !ok {
		return nil, errors.New("execution reverted")
	}
	return method.Outputs.Pack(values...)
}

func (f *fakeBackend) SendTransaction(ctx context.Context, from, to common.Address, data []byte) (common.Hash, error) {
	if f.sendErr != nil {
		return common.Hash{}, f.sendErr
	}
	f.sent = append(f.sent, sentTx{from: from, to: to, data: data})
	return common.HexToHash("0xfeed"), nil
}

func (f *fakeBackend) WaitReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	return &types.Receipt{Status: f.status, TxHash: hash, BlockNumber: big.NewInt(42)}, nil
}

func newBackend(t *testing.T) *fakeBackend {
	return &fakeBackend{t: t, outputs: make(map[string][]interface{}), status: types.ReceiptStatusSuccessful}
}

func TestReads(t *testing.T) {
	backend := newBackend(t)
	backend.outputs["getPosition"] = []interface{}{big.NewInt(100), big.NewInt(40)}
	backend.outputs["totalSupplied"] = []interface{}{big.NewInt(1000)}
	backend.outputs["totalBorrowed"] = []interface{}{big.NewInt(300)}
	backend.outputs["getAccumulators"] = []interface{}{big.NewInt(11), uint64(1_700_000_000), big.NewInt(12), uint64(1_700_000_100)}
	backend.outputs["balanceOf"] = []interface{}{big.NewInt(5)}
	backend.outputs["privateBalanceOf"] = []interface{}{big.NewInt(7)}
	backend.outputs["latestPrice"] = []interface{}{big.NewInt(100_000_000)}

	l := NewLedger(backend, nil)
	ctx := context.Background()

	pos, err := l.Position(ctx, owner, market, token)
	if err != nil {
		t.Fatalf("position: %v", err)
	}
	if pos.Supplied.Int64() != 100 || pos.Borrowed.Int64() != 40 {
		t.Fatalf("unexpected position: %+v", pos)
	}

	acc, err := l.Accumulators(ctx, market, token)
	if err != nil {
		t.Fatalf("accumulators: %v", err)
	}
	want := ledger.Accumulators{
		Deposit: model.Accumulator{Value: big.NewInt(11), LastUpdated: 1_700_000_000},
		Borrow:  model.Accumulator{Value: big.NewInt(12), LastUpdated: 1_700_000_100},
	}
	if acc.Deposit.Value.Cmp(want.Deposit.Value) != 0 || acc.Deposit.LastUpdated != want.Deposit.LastUpdated ||
		acc.Borrow.Value.Cmp(want.Borrow.Value) != 0 || acc.Borrow.LastUpdated != want.Borrow.LastUpdated {
		t.Fatalf("unexpected accumulators: %+v", acc)
	}

	checks := []struct {
		name string
		call func() (*big.Int, error)
		want int64
	}{
		{"total supplied", func() (*big.Int, error) { return l.TotalSupplied(ctx, market, token) }, 1000},
		{"total borrowed", func() (*big.Int, error) { return l.TotalBorrowed(ctx, market, token) }, 300},
		{"public balance", func() (*big.Int, error) { return l.PublicBalance(ctx, owner, token) }, 5},
		{"private balance", func() (*big.Int, error) { return l.PrivateBalance(ctx, owner, token) }, 7},
		{"price", func() (*big.Int, error) { return l.Price(ctx, feed) }, 100_000_000},
	}
	for _, check := range checks {
		got, err := check.call()
		if err != nil {
			t.Fatalf("%s: %v", check.name, err)
		}
		if got.Int64() != check.want {
			t.Fatalf("%s: got %s want %d", check.name, got, check.want)
		}
	}
}

func TestReadErrorIsWrapped(t *testing.T) {
	l := NewLedger(newBackend(t), nil)
	_, err := l.TotalSupplied(context.Background(), market, token)
	if err == nil || !strings.Contains(err.Error(), "call totalSupplied") {
		t.Fatalf("expected wrapped call error, got %v", err)
	}
}

func TestSubmitEncodesOperation(t *testing.T) {
	backend := newBackend(t)
	l := NewLedger(backend, nil)
	secret := common.HexToHash("0x0102")
	recipient := common.HexToAddress("0x2222222222222222222222222222222222222222")

	op := ledger.DepositPrivate{
		Base:              ledger.Base{Caller: owner, Market: market, Token: token, Amount: big.NewInt(500)},
		OnBehalfOf:        recipient,
		Secret:            secret,
		Nonce:             big.NewInt(9),
		FromPublicBalance: true,
	}
	receipt, err := l.Submit(context.Background(), op)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if receipt.BlockNumber != 42 || receipt.TxHash != common.HexToHash("0xfeed") {
		t.Fatalf("unexpected receipt: %+v", receipt)
	}
	if len(backend.sent) != 1 {
		t.Fatalf("expected one transaction, got %d", len(backend.sent))
	}
	tx := backend.sent[0]
	if tx.from != owner || tx.to != market {
		t.Fatalf("unexpected route: from=%s to=%s", tx.from.Hex(), tx.to.Hex())
	}

	parsed, err := MarketABI()
	if err != nil {
		t.Fatalf("market abi: %v", err)
	}
	method, err := parsed.MethodById(tx.data[:4])
	if err != nil {
		t.Fatalf("method: %v", err)
	}
	if method.Name != "depositPrivate" {
		t.Fatalf("unexpected method %s", method.Name)
	}
	args, err := method.Inputs.Unpack(tx.data[4:])
	if err != nil {
		t.Fatalf("unpack: %v", err)
	}
	want := []interface{}{token, big.NewInt(500), recipient, [32]byte(secret), big.NewInt(9), true}
	if !reflect.DeepEqual(args, want) {
		t.Fatalf("unexpected args: %v", args)
	}
}

func TestEveryOperationEncodes(t *testing.T) {
	parsed, err := MarketABI()
	if err != nil {
		t.Fatalf("market abi: %v", err)
	}
	base := ledger.Base{Caller: owner, Market: market, Token: token, Amount: big.NewInt(1)}
	ops := []ledger.Operation{
		ledger.DepositPublic{Base: base},
		ledger.DepositPrivate{Base: base},
		ledger.WithdrawPublic{Base: base},
		ledger.WithdrawPrivate{Base: base},
		ledger.BorrowPublic{Base: base},
		ledger.BorrowPrivate{Base: base},
		ledger.RepayPublic{Base: base},
		ledger.RepayPrivate{Base: base},
	}
	for _, op := range ops {
		method, args, err := encodeOperation(op)
		if err != nil {
			t.Fatalf("%s: %v", op.Name(), err)
		}
		if _, err := parsed.Pack(method, args...); err != nil {
			t.Fatalf("%s: pack: %v", op.Name(), err)
		}
	}
}

func TestRevertedReceiptFails(t *testing.T) {
	backend := newBackend(t)
	backend.status = types.ReceiptStatusFailed
	l := NewLedger(backend, nil)

	_, err := l.Submit(context.Background(), ledger.BorrowPublic{
		Base:      ledger.Base{Caller: owner, Market: market, Token: token, Amount: big.NewInt(1)},
		Recipient: owner,
	})
	if err == nil || !strings.Contains(err.Error(), "reverted") {
		t.Fatalf("expected revert error, got %v", err)
	}
}

func TestAuthorizeTargetsToken(t *testing.T) {
	backend := newBackend(t)
	l := NewLedger(backend, nil)

	err := l.Authorize(context.Background(), ledger.Authorization{
		Caller: owner, Spender: market, Token: token, Amount: big.NewInt(3), Nonce: big.NewInt(4),
	})
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if len(backend.sent) != 1 || backend.sent[0].to != token || backend.sent[0].from != owner {
		t.Fatalf("unexpected authorize tx: %+v", backend.sent)
	}
}
