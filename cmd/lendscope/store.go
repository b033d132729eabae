package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"lendingScope/internal/config"
	"lendingScope/internal/storage"
	"lendingScope/internal/storage/postgres"
	"lendingScope/internal/storage/redis"
)

func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (storage.AddressStore, func(), error) {
	if err := cfg.ValidateStore(); err != nil {
		return nil, nil, err
	}

	switch cfg.Store {
	case config.StorePostgres:
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close()
			return nil, nil, err
		}
		logger.Info("address store", zap.String("store", cfg.Store), zap.String("pg_dsn", redactDSN(cfg.PGDSN)))
		return store, store.Close, nil
	case config.StoreRedis:
		store, err := redis.NewStore(ctx, redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, nil, err
		}
		logger.Info("address store", zap.String("store", cfg.Store), zap.String("redis_addr", cfg.RedisAddr))
		return store, func() { _ = store.Close() }, nil
	default:
		logger.Info("address store", zap.String("store", cfg.Store), zap.String("path", cfg.StorePath))
		return storage.NewFileAddressStore(cfg.StorePath), func() {}, nil
	}
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
