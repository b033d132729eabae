package txn

import (
	"context"
	"fmt"
	"io"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"lendingScope/internal/fixedpoint"
	"lendingScope/internal/ledger"
	"lendingScope/internal/metrics"
	"lendingScope/internal/model"
	"lendingScope/internal/refresh"
	"lendingScope/internal/shielded"
)

// ViewSource is the read side of the refresh coordinator plus its
// targeted refresh.
type ViewSource interface {
	Snapshot() model.View
	RefreshAsset(ctx context.Context, assetID string) (refresh.Outcome, error)
}

// AddressBook resolves and mints shielded identities.
type AddressBook interface {
	Lookup(ctx context.Context, owner, identity common.Address) (model.AddressEntry, bool, error)
	Create(ctx context.Context, owner common.Address) (model.AddressEntry, error)
}

// Orchestrator validates a request against the current view, resolves its
// recipient and authorization, submits exactly one operation and refreshes
// the affected asset.
type Orchestrator struct {
	submitter ledger.Submitter
	views     ViewSource
	book      AddressBook
	market    common.Address
	assets    []string
	rand      io.Reader
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

type Options struct {
	Market common.Address
	// Assets lists every configured asset id. Limits span the whole
	// portfolio, so a view missing any of them is not ready.
	Assets []string
	// Rand sources authorization nonces; nil uses crypto/rand.
	Rand    io.Reader
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

func New(submitter ledger.Submitter, views ViewSource, book AddressBook, opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		submitter: submitter,
		views:     views,
		book:      book,
		market:    opts.Market,
		assets:    opts.Assets,
		rand:      opts.Rand,
		logger:    logger,
		metrics:   opts.Metrics,
	}
}

// Execute runs one request. On any error nothing was submitted, or the
// submission failed atomically; the view is left untouched in both cases.
func (o *Orchestrator) Execute(ctx context.Context, req Request) (Result, error) {
	res, err := o.execute(ctx, req)
	outcome := "ok"
	if err != nil {
		outcome = "failed"
		o.logger.Warn("operation rejected",
			zap.String("action", req.Action.String()),
			zap.String("visibility", req.Visibility.String()),
			zap.String("asset", req.AssetID),
			zap.Error(err),
		)
	}
	o.metrics.ObserveTransaction(req.Action.String(), req.Visibility.String(), outcome)
	return res, err
}

func (o *Orchestrator) execute(ctx context.Context, req Request) (Result, error) {
	view := o.views.Snapshot()
	owner := view.Account
	if o.submitter == nil || owner == (common.Address{}) {
		return Result{}, model.ErrContractNotReady
	}
	for _, id := range o.assets {
		if _, ok := view.Asset(id); !ok {
			return Result{}, fmt.Errorf("%w: %s not fetched", model.ErrContractNotReady, id)
		}
	}

	asset, ok := view.Asset(req.AssetID)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", model.ErrAssetNotFound, req.AssetID)
	}

	amount, err := fixedpoint.ParseUnits(req.Amount, asset.Config.Decimals)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", model.ErrInvalidAmount, err)
	}
	if amount.Sign() == 0 {
		return Result{}, fmt.Errorf("%w: amount must be positive", model.ErrInvalidAmount)
	}
	if err := checkLimits(req, asset, amount); err != nil {
		return Result{}, err
	}

	res := Result{Amount: amount}
	target, secret := owner, common.Hash{}
	if req.Visibility == Private {
		target, secret, res.NewIdentity, err = o.resolveRecipient(ctx, req, owner)
		if err != nil {
			return Result{}, err
		}
	}
	res.Recipient = target

	nonce := new(big.Int)
	if needsAuthorization(req) {
		nonce, err = shielded.NewNonce(o.rand)
		if err != nil {
			return Result{}, fmt.Errorf("%w: %w", model.ErrAuthorizationFailed, err)
		}
		auth := ledger.Authorization{
			Caller:  owner,
			Spender: o.market,
			Token:   asset.Config.Token,
			Amount:  amount,
			Nonce:   nonce,
		}
		if err := o.submitter.Authorize(ctx, auth); err != nil {
			return Result{}, fmt.Errorf("%w: %w", model.ErrAuthorizationFailed, err)
		}
	}

	base := ledger.Base{Caller: owner, Market: o.market, Token: asset.Config.Token, Amount: amount}
	op := buildOperation(req, base, target, secret, nonce)
	if op == nil {
		return Result{}, fmt.Errorf("%w: unsupported action %d", model.ErrOperationFailed, req.Action)
	}
	res.Operation = op.Name()

	receipt, err := o.submitter.Submit(ctx, op)
	if err != nil {
		return Result{}, fmt.Errorf("%w: submit %s: %w", model.ErrOperationFailed, op.Name(), err)
	}
	res.Receipt = receipt
	o.logger.Info("operation confirmed",
		zap.String("operation", op.Name()),
		zap.String("asset", req.AssetID),
		zap.String("amount", fixedpoint.FormatUnits(amount, asset.Config.Decimals)),
		zap.String("tx", receipt.TxHash.Hex()),
	)

	res.Refresh, err = o.views.RefreshAsset(ctx, req.AssetID)
	if err != nil {
		o.logger.Warn("post-submit refresh failed", zap.String("asset", req.AssetID), zap.Error(err))
	}
	return res, nil
}

// resolveRecipient picks the target identity and secret of a private
// operation. The secret is zero whenever the target is the owner.
func (o *Orchestrator) resolveRecipient(ctx context.Context, req Request, owner common.Address) (common.Address, common.Hash, *model.AddressEntry, error) {
	var (
		entry   model.AddressEntry
		created *model.AddressEntry
	)
	switch req.Recipient {
	case RecipientStored:
		if o.book == nil {
			return common.Address{}, common.Hash{}, nil, fmt.Errorf("%w: %s", model.ErrUnknownRecipient, req.StoredIdentity.Hex())
		}
		found, ok, err := o.book.Lookup(ctx, owner, req.StoredIdentity)
		if err != nil {
			return common.Address{}, common.Hash{}, nil, fmt.Errorf("lookup recipient: %w", err)
		}
		if !ok {
			return common.Address{}, common.Hash{}, nil, fmt.Errorf("%w: %s", model.ErrUnknownRecipient, req.StoredIdentity.Hex())
		}
		entry = found
	case RecipientNew:
		if o.book == nil {
			return common.Address{}, common.Hash{}, nil, fmt.Errorf("create recipient: no address book")
		}
		minted, err := o.book.Create(ctx, owner)
		if err != nil {
			return common.Address{}, common.Hash{}, nil, fmt.Errorf("create recipient: %w", err)
		}
		entry, created = minted, &minted
	default:
		return owner, common.Hash{}, nil, nil
	}

	if entry.Identity == owner {
		return owner, common.Hash{}, created, nil
	}
	return entry.Identity, entry.Secret, created, nil
}

func needsAuthorization(req Request) bool {
	return req.Visibility == Private && req.Action.fundsIn() && !req.FromPublicBalance
}

func sourceBalance(req Request, asset model.Asset) *big.Int {
	if req.Visibility == Private && !req.FromPublicBalance {
		return asset.Raw.PrivateBalance
	}
	return asset.Raw.PublicBalance
}

func checkLimits(req Request, asset model.Asset, amount *big.Int) error {
	switch req.Action {
	case ActionDeposit:
		if err := atMost(amount, sourceBalance(req, asset), "balance"); err != nil {
			return err
		}
		if asset.DepositCapacity != nil {
			return atMost(amount, asset.DepositCapacity, "deposit capacity")
		}
	case ActionWithdraw:
		return atMost(amount, asset.WithdrawableAmount, "withdrawable amount")
	case ActionBorrow:
		if !asset.Config.Borrowable {
			return fmt.Errorf("%w: %s is not borrowable", model.ErrLimitExceeded, asset.Config.ID)
		}
		return atMost(amount, asset.BorrowableAmount, "borrowable amount")
	case ActionRepay:
		if err := atMost(amount, asset.UserBorrowedAccrued, "outstanding debt"); err != nil {
			return err
		}
		return atMost(amount, sourceBalance(req, asset), "balance")
	default:
		return fmt.Errorf("%w: unsupported action %d", model.ErrOperationFailed, req.Action)
	}
	return nil
}

func atMost(amount, limit *big.Int, what string) error {
	if limit == nil {
		limit = new(big.Int)
	}
	if amount.Cmp(limit) > 0 {
		return fmt.Errorf("%w: %s exceeds %s %s", model.ErrLimitExceeded, amount, what, limit)
	}
	return nil
}
