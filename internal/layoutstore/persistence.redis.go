// FilePath: internal/layoutstore/persistence.redis.go
package layoutstore

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/traksense/hub/internal/errors"
	"github.com/traksense/hub/internal/models"
	nuts "github.com/vaudience/go-nuts"
)

const (
	redisKeyLayouts = "traksense:dashboards:layouts"
	redisKeyUIState = "traksense:dashboards:uistate"
)

// RedisPersistence stores the layout collection as a single JSON document in
// redis. The collection is small (user dashboards, not telemetry), so one
// document per key keeps saves atomic.
type RedisPersistence struct {
	client *redis.Client
}

// NewRedisPersistence creates a redis-backed Persistence and verifies the
// connection
func NewRedisPersistence(ctx context.Context, client *redis.Client) (*RedisPersistence, error) {
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.NewPersistenceError("failed to reach redis", err)
	}
	nuts.L.Infof("[LayoutStore] Redis persistence connected: %s", client.Options().Addr)
	return &RedisPersistence{client: client}, nil
}

func (r *RedisPersistence) LoadLayouts(ctx context.Context) ([]*models.Layout, error) {
	raw, err := r.client.Get(ctx, redisKeyLayouts).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.NewPersistenceError("failed to load layouts", err)
	}
	var layouts []*models.Layout
	if err := json.Unmarshal(raw, &layouts); err != nil {
		return nil, errors.NewPersistenceError("persisted layout document is corrupt", err)
	}
	return layouts, nil
}

func (r *RedisPersistence) SaveLayouts(ctx context.Context, layouts []*models.Layout) error {
	raw, err := json.Marshal(layouts)
	if err != nil {
		return errors.NewPersistenceError("failed to encode layouts", err)
	}
	if err := r.client.Set(ctx, redisKeyLayouts, raw, 0).Err(); err != nil {
		return errors.NewPersistenceError("failed to save layouts", err)
	}
	return nil
}

func (r *RedisPersistence) LoadUIState(ctx context.Context) (*UIState, error) {
	raw, err := r.client.Get(ctx, redisKeyUIState).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.NewPersistenceError("failed to load ui state", err)
	}
	var state UIState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, errors.NewPersistenceError("persisted ui state is corrupt", err)
	}
	return &state, nil
}

func (r *RedisPersistence) SaveUIState(ctx context.Context, state *UIState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return errors.NewPersistenceError("failed to encode ui state", err)
	}
	if err := r.client.Set(ctx, redisKeyUIState, raw, 0).Err(); err != nil {
		return errors.NewPersistenceError("failed to save ui state", err)
	}
	return nil
}
