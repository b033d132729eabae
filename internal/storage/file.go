package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"lendingScope/internal/model"
)

// FileAddressStore keeps every owner's entries in one JSON document.
type FileAddressStore struct {
	path string
	mu   sync.Mutex
}

type addressDocument struct {
	Owners    map[string][]model.AddressEntry `json:"owners"`
	UpdatedAt string                          `json:"updated_at"`
}

func NewFileAddressStore(path string) *FileAddressStore {
	return &FileAddressStore{path: path}
}

func (s *FileAddressStore) Load(_ context.Context, owner common.Address) ([]model.AddressEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	entries := doc.Owners[ownerKey(owner)]
	out := make([]model.AddressEntry, len(entries))
	copy(out, entries)
	return out, nil
}

func (s *FileAddressStore) Save(_ context.Context, owner common.Address, entries []model.AddressEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		delete(doc.Owners, ownerKey(owner))
	} else {
		doc.Owners[ownerKey(owner)] = entries
	}
	return s.write(doc)
}

func (s *FileAddressStore) read() (addressDocument, error) {
	doc := addressDocument{Owners: make(map[string][]model.AddressEntry)}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return doc, nil
		}
		return doc, fmt.Errorf("read address store: %w", err)
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("parse address store: %w", err)
	}
	if doc.Owners == nil {
		doc.Owners = make(map[string][]model.AddressEntry)
	}
	return doc, nil
}

func (s *FileAddressStore) write(doc addressDocument) error {
	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create address store dir: %w", err)
		}
	}

	doc.UpdatedAt = time.Now().UTC().Format(time.RFC3339Nano)
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal address store: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write address store tmp: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("rename address store: %w", err)
	}
	return nil
}

func ownerKey(owner common.Address) string {
	return strings.ToLower(owner.Hex())
}
