package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	goredis "github.com/redis/go-redis/v9"

	"lendingScope/internal/model"
)

const keyPrefix = "lendscope:addresses:"

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// Store keeps one JSON value per owner.
type Store struct {
	client *goredis.Client
}

func NewStore(ctx context.Context, opts Options) (*Store, error) {
	if opts.Addr == "" {
		return nil, fmt.Errorf("redis addr is required")
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Store{client: client}, nil
}

func (s *Store) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *Store) Load(ctx context.Context, owner common.Address) ([]model.AddressEntry, error) {
	data, err := s.client.Get(ctx, ownerKey(owner)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return []model.AddressEntry{}, nil
		}
		return nil, fmt.Errorf("get addresses: %w", err)
	}
	var entries []model.AddressEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse addresses: %w", err)
	}
	return entries, nil
}

func (s *Store) Save(ctx context.Context, owner common.Address, entries []model.AddressEntry) error {
	key := ownerKey(owner)
	if len(entries) == 0 {
		if err := s.client.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("delete addresses: %w", err)
		}
		return nil
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshal addresses: %w", err)
	}
	if err := s.client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("set addresses: %w", err)
	}
	return nil
}

func ownerKey(owner common.Address) string {
	return keyPrefix + strings.ToLower(owner.Hex())
}
