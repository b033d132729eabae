package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:          "lendscope",
		Short:        "Lending position risk monitor",
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file path")
	flags.String("rpc", "", "JSON-RPC URL")
	flags.Float64("rpc-rate", 0, "max RPC requests per second, 0 disables throttling")
	flags.Int("rpc-burst", 1, "RPC rate limiter burst")
	flags.String("market", "", "lending market contract address")
	flags.String("account", "", "account to monitor and transact as")
	flags.String("store", "file", "shielded address store (file, postgres, redis)")
	flags.String("store-path", "./data/addresses.json", "file store path")
	flags.String("pg-dsn", "", "Postgres DSN")
	flags.String("redis-addr", "", "Redis address")
	flags.String("redis-password", "", "Redis password")
	flags.Int("redis-db", 0, "Redis database")
	flags.Int("max-retries", 3, "maximum retry attempts per ledger call")
	flags.Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	flags.Duration("receipt-poll", 2*time.Second, "transaction receipt poll interval")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-file", "", "optional rotating log file")

	root.AddCommand(newPositionCmd(), newWatchCmd(), newTxCmd(), newAddressesCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func printJSON(w io.Writer, value interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}
