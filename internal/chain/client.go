package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"golang.org/x/time/rate"
)

const defaultReceiptPoll = 2 * time.Second

// ClientOptions tunes a Client. A zero RatePerSecond disables throttling.
type ClientOptions struct {
	RatePerSecond float64
	Burst         int
	ReceiptPoll   time.Duration
}

// Client wraps go-ethereum RPC and provides helper methods.
type Client struct {
	rpcClient *rpc.Client
	ethClient *ethclient.Client

	limiter     *rate.Limiter
	receiptPoll time.Duration
}

// NewClient creates a new chain client from the RPC URL.
func NewClient(ctx context.Context, rpcURL string, opts ClientOptions) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}

	c := &Client{
		rpcClient:   rpcClient,
		ethClient:   ethclient.NewClient(rpcClient),
		receiptPoll: opts.ReceiptPoll,
	}
	if c.receiptPoll <= 0 {
		c.receiptPoll = defaultReceiptPoll
	}
	if opts.RatePerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), burst)
	}
	return c, nil
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// ChainID returns the chain ID.
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	return c.ethClient.ChainID(ctx)
}

// CallContract performs an eth_call for a contract method.
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	return c.ethClient.CallContract(ctx, msg, blockNumber)
}

type sendTxArgs struct {
	From common.Address  `json:"from"`
	To   *common.Address `json:"to"`
	Data hexutil.Bytes   `json:"data"`
}

// SendTransaction submits a transaction signed by the node's key for from.
func (c *Client) SendTransaction(ctx context.Context, from, to common.Address, data []byte) (common.Hash, error) {
	if err := c.wait(ctx); err != nil {
		return common.Hash{}, err
	}
	var hash common.Hash
	args := sendTxArgs{From: from, To: &to, Data: data}
	if err := c.rpcClient.CallContext(ctx, &hash, "eth_sendTransaction", args); err != nil {
		return common.Hash{}, err
	}
	return hash, nil
}

// WaitReceipt polls until the transaction is mined or ctx ends.
func (c *Client) WaitReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(c.receiptPoll)
	defer ticker.Stop()

	for {
		if err := c.wait(ctx); err != nil {
			return nil, err
		}
		receipt, err := c.ethClient.TransactionReceipt(ctx, hash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("get receipt: %w", err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
