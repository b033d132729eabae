package storage

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"lendingScope/internal/model"
)

// AddressStore persists the shielded address entries of each owner.
type AddressStore interface {
	Load(ctx context.Context, owner common.Address) ([]model.AddressEntry, error)
	Save(ctx context.Context, owner common.Address, entries []model.AddressEntry) error
}
