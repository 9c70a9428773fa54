// FilePath: internal/layoutstore/persistence.go
package layoutstore

import (
	"context"
	"errors"
	"sync"

	"github.com/traksense/hub/internal/models"
)

var (
	// ErrNotFound indicates that no layout collection has been persisted yet
	ErrNotFound = errors.New("no persisted layouts")
)

// UIState is the whitelisted subset of view state that survives restarts.
// Edit mode is deliberately not part of it.
type UIState struct {
	CurrentLayoutID string `json:"current_layout_id"`
}

// Persistence is the durable key-value store behind the layout collection.
// Implementations must treat the collection as one atomic document.
type Persistence interface {
	LoadLayouts(ctx context.Context) ([]*models.Layout, error)
	SaveLayouts(ctx context.Context, layouts []*models.Layout) error
	LoadUIState(ctx context.Context) (*UIState, error)
	SaveUIState(ctx context.Context, state *UIState) error
}

// MemoryPersistence is an in-process Persistence used in tests and as the
// fallback when the durable store is unreachable
type MemoryPersistence struct {
	mu      sync.Mutex
	layouts []*models.Layout
	state   *UIState
}

// NewMemoryPersistence creates an empty in-memory persistence
func NewMemoryPersistence() *MemoryPersistence {
	return &MemoryPersistence{}
}

func (m *MemoryPersistence) LoadLayouts(ctx context.Context) ([]*models.Layout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.layouts == nil {
		return nil, ErrNotFound
	}
	out := make([]*models.Layout, len(m.layouts))
	for i, l := range m.layouts {
		out[i] = l.Clone()
	}
	return out, nil
}

func (m *MemoryPersistence) SaveLayouts(ctx context.Context, layouts []*models.Layout) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := make([]*models.Layout, len(layouts))
	for i, l := range layouts {
		stored[i] = l.Clone()
	}
	m.layouts = stored
	return nil
}

func (m *MemoryPersistence) LoadUIState(ctx context.Context) (*UIState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		return nil, ErrNotFound
	}
	state := *m.state
	return &state, nil
}

func (m *MemoryPersistence) SaveUIState(ctx context.Context, state *UIState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := *state
	m.state = &s
	return nil
}
