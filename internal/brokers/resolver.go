package brokers

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-redis/redis/v8"

	"github.com/prabhupmb/option-trading-sub000/internal/models"
)

// SelectionStore persists a user's last explicit broker selection. The
// resolver only treats the stored id as a hint; the active connection is
// always re-derived from the current connection list.
type SelectionStore interface {
	Selected(ctx context.Context, userID uint) (uint, error)
	SetSelected(ctx context.Context, userID, connectionID uint) error
}

// RedisSelectionStore keeps selections in Redis so they survive restarts.
type RedisSelectionStore struct {
	client *redis.Client
}

// NewRedisSelectionStore creates a selection store backed by the given client.
func NewRedisSelectionStore(client *redis.Client) *RedisSelectionStore {
	return &RedisSelectionStore{client: client}
}

// Selected returns the stored selection, or 0 when none is stored.
func (s *RedisSelectionStore) Selected(ctx context.Context, userID uint) (uint, error) {
	id, err := s.client.Get(ctx, selectionKey(userID)).Uint64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

// SetSelected stores the selection with no expiry.
func (s *RedisSelectionStore) SetSelected(ctx context.Context, userID, connectionID uint) error {
	return s.client.Set(ctx, selectionKey(userID), uint64(connectionID), 0).Err()
}

func selectionKey(userID uint) string {
	return fmt.Sprintf("broker:selected:%d", userID)
}

// MemorySelectionStore is the fallback when Redis is not configured, and the
// store used in tests.
type MemorySelectionStore struct {
	mu       sync.Mutex
	selected map[uint]uint
}

// NewMemorySelectionStore creates an in-memory selection store.
func NewMemorySelectionStore() *MemorySelectionStore {
	return &MemorySelectionStore{selected: make(map[uint]uint)}
}

// Selected returns the stored selection, or 0 when none is stored.
func (s *MemorySelectionStore) Selected(ctx context.Context, userID uint) (uint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected[userID], nil
}

// SetSelected stores the selection.
func (s *MemorySelectionStore) SetSelected(ctx context.Context, userID, connectionID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected[userID] = connectionID
	return nil
}

// Resolver exposes the list of configured connections and the single active
// one used for new orders. The active connection is a derived value: it is
// recomputed from the current connection list plus the last explicit
// selection on every call, so list changes made elsewhere never leave a
// stale pick.
type Resolver struct {
	svc Service
	sel SelectionStore
}

// NewResolver creates a resolver over the given connection service and
// selection store.
func NewResolver(svc Service, sel SelectionStore) *Resolver {
	return &Resolver{svc: svc, sel: sel}
}

// List returns all of the user's connections, default first, then newest
// first. No side effects.
func (r *Resolver) List(userID uint) ([]models.BrokerConnection, error) {
	return r.svc.List(userID)
}

// Select records an explicit selection. It is a no-op when the id does not
// match one of the user's currently active connections.
func (r *Resolver) Select(ctx context.Context, userID, connectionID uint) error {
	conns, err := r.svc.List(userID)
	if err != nil {
		return err
	}
	for i := range conns {
		if conns[i].ID == connectionID && conns[i].IsActive {
			return r.sel.SetSelected(ctx, userID, connectionID)
		}
	}
	return nil
}

// Active resolves the connection new orders go through. Resolution order:
// the explicitly selected connection when it is still present and active,
// else the active default, else the first active connection, else none.
// A nil result with a nil error means no connection is selectable; order
// placement is blocked in that state.
func (r *Resolver) Active(ctx context.Context, userID uint) (*models.BrokerConnection, error) {
	conns, err := r.svc.List(userID)
	if err != nil {
		return nil, err
	}

	// Stored selection is a hint only; a failed read falls through to the
	// default rules.
	selectedID, err := r.sel.Selected(ctx, userID)
	if err != nil {
		selectedID = 0
	}

	if selectedID != 0 {
		for i := range conns {
			if conns[i].ID == selectedID && conns[i].IsActive {
				return &conns[i], nil
			}
		}
	}
	for i := range conns {
		if conns[i].IsDefault && conns[i].IsActive {
			return &conns[i], nil
		}
	}
	for i := range conns {
		if conns[i].IsActive {
			return &conns[i], nil
		}
	}
	return nil, nil
}
