package addressbook

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"lendingScope/internal/model"
	"lendingScope/internal/shielded"
	"lendingScope/internal/storage"
)

// Book manages the shielded identities of each owner on top of a store.
// Writes for the same owner are serialized; different owners do not block
// each other.
type Book struct {
	store  storage.AddressStore
	rand   io.Reader
	logger *zap.Logger

	mu     sync.Mutex
	owners map[common.Address]*sync.Mutex
}

// New builds a Book. A nil rand uses crypto/rand.
func New(store storage.AddressStore, rand io.Reader, logger *zap.Logger) *Book {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Book{
		store:  store,
		rand:   rand,
		logger: logger,
		owners: make(map[common.Address]*sync.Mutex),
	}
}

func (b *Book) lock(owner common.Address) func() {
	b.mu.Lock()
	m, ok := b.owners[owner]
	if !ok {
		m = &sync.Mutex{}
		b.owners[owner] = m
	}
	b.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// Entries lists the stored identities of owner.
func (b *Book) Entries(ctx context.Context, owner common.Address) ([]model.AddressEntry, error) {
	entries, err := b.store.Load(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("load addresses: %w", err)
	}
	return entries, nil
}

// Lookup finds the entry for identity.
func (b *Book) Lookup(ctx context.Context, owner, identity common.Address) (model.AddressEntry, bool, error) {
	entries, err := b.Entries(ctx, owner)
	if err != nil {
		return model.AddressEntry{}, false, err
	}
	for _, entry := range entries {
		if entry.Identity == identity {
			return entry, true, nil
		}
	}
	return model.AddressEntry{}, false, nil
}

// Create draws a new secret, derives its identity and persists the pair.
func (b *Book) Create(ctx context.Context, owner common.Address) (model.AddressEntry, error) {
	secret, err := shielded.NewSecret(b.rand)
	if err != nil {
		return model.AddressEntry{}, err
	}
	entry := model.AddressEntry{
		Identity: shielded.Derive(secret, owner),
		Secret:   secret,
	}
	if err := b.Add(ctx, owner, entry); err != nil {
		return model.AddressEntry{}, err
	}
	b.logger.Info("shielded identity created", zap.String("owner", owner.Hex()), zap.String("identity", entry.Identity.Hex()))
	return entry, nil
}

// Add stores entry, replacing any entry with the same identity.
func (b *Book) Add(ctx context.Context, owner common.Address, entry model.AddressEntry) error {
	unlock := b.lock(owner)
	defer unlock()

	entries, err := b.store.Load(ctx, owner)
	if err != nil {
		return fmt.Errorf("load addresses: %w", err)
	}
	replaced := false
	for i := range entries {
		if entries[i].Identity == entry.Identity {
			entries[i] = entry
			replaced = true
		}
	}
	if !replaced {
		entries = append(entries, entry)
	}
	if err := b.store.Save(ctx, owner, entries); err != nil {
		return fmt.Errorf("save addresses: %w", err)
	}
	return nil
}

// Remove deletes one identity. Removing an unknown identity is not an error.
func (b *Book) Remove(ctx context.Context, owner, identity common.Address) error {
	unlock := b.lock(owner)
	defer unlock()

	entries, err := b.store.Load(ctx, owner)
	if err != nil {
		return fmt.Errorf("load addresses: %w", err)
	}
	kept := entries[:0]
	for _, entry := range entries {
		if entry.Identity != identity {
			kept = append(kept, entry)
		}
	}
	if len(kept) == len(entries) {
		return nil
	}
	if err := b.store.Save(ctx, owner, kept); err != nil {
		return fmt.Errorf("save addresses: %w", err)
	}
	return nil
}

// Clear deletes every identity of owner.
func (b *Book) Clear(ctx context.Context, owner common.Address) error {
	unlock := b.lock(owner)
	defer unlock()

	if err := b.store.Save(ctx, owner, nil); err != nil {
		return fmt.Errorf("clear addresses: %w", err)
	}
	return nil
}
