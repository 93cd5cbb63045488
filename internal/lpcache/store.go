package lpcache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
)

// ErrNotFound is returned by a Store that has no record for an account.
var ErrNotFound = errors.New("position not found")

// Position is the last known token balance of an LP or token account.
type Position struct {
	Account   solana.PublicKey
	Amount    string // raw amount in base units
	Decimals  uint8
	UiAmount  string
	UpdatedAt time.Time
}

// Store persists positions between runs. The database behind it is outside
// this module; MemoryStore covers the CLI and tests.
type Store interface {
	Load(ctx context.Context, account solana.PublicKey) (Position, error)
	Save(ctx context.Context, p Position) error
}

// MemoryStore is a Store backed by a map.
type MemoryStore struct {
	mu        sync.RWMutex
	positions map[solana.PublicKey]Position
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{positions: make(map[solana.PublicKey]Position)}
}

func (s *MemoryStore) Load(_ context.Context, account solana.PublicKey) (Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.positions[account]
	if !ok {
		return Position{}, ErrNotFound
	}
	return p, nil
}

func (s *MemoryStore) Save(_ context.Context, p Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions[p.Account] = p
	return nil
}
