package main

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"lendingScope/internal/addressbook"
	"lendingScope/internal/chain"
	"lendingScope/internal/config"
	"lendingScope/internal/metrics"
	"lendingScope/internal/refresh"
	"lendingScope/internal/txn"
)

type appNeeds struct {
	chain bool
	store bool
}

// app is the wired set of components a command runs against.
type app struct {
	cfg      config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics

	client       *chain.Client
	coordinator  *refresh.Coordinator
	book         *addressbook.Book
	orchestrator *txn.Orchestrator

	closers []func()
}

func newApp(ctx context.Context, cmd *cobra.Command, needs appNeeds) (*app, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return nil, err
	}

	if cfg.Account == (common.Address{}) {
		return nil, fmt.Errorf("account is required")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a := &app{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		metrics:  metrics.New(registry),
	}

	if needs.store {
		store, closeStore, err := openStore(ctx, cfg, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, closeStore)
		a.book = addressbook.New(store, nil, logger)
	}

	if needs.chain {
		if err := cfg.ValidateChain(); err != nil {
			a.Close()
			return nil, err
		}
		client, err := chain.NewClient(ctx, cfg.RPCURL, chain.ClientOptions{
			RatePerSecond: cfg.RPCRate,
			Burst:         cfg.RPCBurst,
			ReceiptPoll:   cfg.ReceiptPoll,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect rpc: %w", err)
		}
		a.client = client
		a.closers = append(a.closers, client.Close)

		chainID, err := client.ChainID(ctx)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("fetch chain id: %w", err)
		}

		ledger := chain.NewLedger(client, logger)
		a.coordinator = refresh.New(ledger, ledger, refresh.Config{
			Market:       cfg.Market,
			Assets:       cfg.Assets,
			MaxRetries:   cfg.MaxRetries,
			RetryBackoff: cfg.RetryBackoff,
		}, logger, a.metrics)
		a.coordinator.SetAccount(cfg.Account)

		var book txn.AddressBook
		if a.book != nil {
			book = a.book
		}
		assetIDs := make([]string, 0, len(cfg.Assets))
		for _, asset := range cfg.Assets {
			assetIDs = append(assetIDs, asset.ID)
		}
		a.orchestrator = txn.New(ledger, a.coordinator, book, txn.Options{
			Market:  cfg.Market,
			Assets:  assetIDs,
			Logger:  logger,
			Metrics: a.metrics,
		})

		logger.Info("lendscope start",
			zap.String("rpc", cfg.RPCURL),
			zap.String("chain_id", chainID.String()),
			zap.String("market", cfg.Market.Hex()),
			zap.String("account", cfg.Account.Hex()),
			zap.Int("assets", len(cfg.Assets)),
		)
	}

	return a, nil
}

// Close releases components in reverse order of creation.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	_ = a.logger.Sync()
}
