// Package repository persists the small amount of state the presenter keeps
// across restarts.
package repository

import (
	"context"
	"errors"
)

// KeyLastTopSeller holds the name of the leader whose interstitial was last
// played.
const KeyLastTopSeller = "last_top_seller"

// Store is a durable string key-value store.
type Store interface {
	// Get returns ErrNotFound for unknown keys.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

// LeaderStore adapts a Store to the remembered-leader contract.
type LeaderStore struct {
	store Store
}

// NewLeaderStore wraps s.
func NewLeaderStore(s Store) *LeaderStore {
	return &LeaderStore{store: s}
}

// LastTopSeller returns the remembered leader, "" when none was stored.
func (l *LeaderStore) LastTopSeller(ctx context.Context) (string, error) {
	v, err := l.store.Get(ctx, KeyLastTopSeller)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return v, err
}

// SetLastTopSeller remembers name.
func (l *LeaderStore) SetLastTopSeller(ctx context.Context, name string) error {
	return l.store.Set(ctx, KeyLastTopSeller, name)
}
