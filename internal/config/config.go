package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"lendingScope/internal/model"
)

// Store backends for shielded address entries.
const (
	StoreFile     = "file"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL   string
	RPCRate  float64
	RPCBurst int
	Market   common.Address
	Account  common.Address
	Assets   []model.AssetConfig

	Store         string
	StorePath     string
	PGDSN         string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MaxRetries   int
	RetryBackoff time.Duration
	ReceiptPoll  time.Duration
	Interval     time.Duration

	MetricsAddr string
	Out         string
	LogLevel    string
	LogFile     string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("LENDSCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("rpc-burst", 1)
	v.SetDefault("store", StoreFile)
	v.SetDefault("store-path", "./data/addresses.json")
	v.SetDefault("max-retries", 3)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("receipt-poll", 2*time.Second)
	v.SetDefault("interval", 15*time.Second)
	v.SetDefault("metrics-addr", ":9464")
	v.SetDefault("out", "./data/positions.jsonl")
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	market, err := parseAddress("market", v.GetString("market"))
	if err != nil {
		return Config{}, err
	}
	account, err := parseAddress("account", v.GetString("account"))
	if err != nil {
		return Config{}, err
	}

	var entries []assetEntry
	if err := v.UnmarshalKey("assets", &entries); err != nil {
		return Config{}, fmt.Errorf("decode assets: %w", err)
	}
	assets, err := parseAssets(entries)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		RPCURL:        v.GetString("rpc"),
		RPCRate:       v.GetFloat64("rpc-rate"),
		RPCBurst:      v.GetInt("rpc-burst"),
		Market:        market,
		Account:       account,
		Assets:        assets,
		Store:         strings.ToLower(strings.TrimSpace(v.GetString("store"))),
		StorePath:     v.GetString("store-path"),
		PGDSN:         v.GetString("pg-dsn"),
		RedisAddr:     v.GetString("redis-addr"),
		RedisPassword: v.GetString("redis-password"),
		RedisDB:       v.GetInt("redis-db"),
		MaxRetries:    v.GetInt("max-retries"),
		RetryBackoff:  v.GetDuration("retry-backoff"),
		ReceiptPoll:   v.GetDuration("receipt-poll"),
		Interval:      v.GetDuration("interval"),
		MetricsAddr:   v.GetString("metrics-addr"),
		Out:           v.GetString("out"),
		LogLevel:      v.GetString("log-level"),
		LogFile:       v.GetString("log-file"),
	}

	return cfg, nil
}

// ValidateChain checks the settings needed to talk to the market.
func (c Config) ValidateChain() error {
	if c.RPCURL == "" {
		return fmt.Errorf("rpc is required")
	}
	if c.Market == (common.Address{}) {
		return fmt.Errorf("market is required")
	}
	if len(c.Assets) == 0 {
		return fmt.Errorf("at least one asset is required")
	}
	return nil
}

// ValidateStore checks the address store selection.
func (c Config) ValidateStore() error {
	switch c.Store {
	case StoreFile:
		if c.StorePath == "" {
			return fmt.Errorf("store-path is required for the file store")
		}
	case StorePostgres:
		if c.PGDSN == "" {
			return fmt.Errorf("pg-dsn is required for the postgres store")
		}
	case StoreRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("redis-addr is required for the redis store")
		}
	default:
		return fmt.Errorf("unknown store %q", c.Store)
	}
	return nil
}

// parseAddress accepts an empty value as the zero address.
func parseAddress(key, input string) (common.Address, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return common.Address{}, nil
	}
	if !common.IsHexAddress(input) {
		return common.Address{}, fmt.Errorf("invalid %s address: %s", key, input)
	}
	return common.HexToAddress(input), nil
}
