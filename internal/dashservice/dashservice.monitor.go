// FilePath: internal/dashservice/dashservice.monitor.go
package dashservice

import (
	"context"
	"time"

	nuts "github.com/vaudience/go-nuts"

	"github.com/traksense/hub/internal/errors"
	"github.com/traksense/hub/internal/models"
	"github.com/traksense/hub/internal/refresh"
)

// Shared monitor query keys
const (
	keyDeviceSummaries = "device-summaries"
	keyAlerts          = "alerts"
	keyRules           = "rules"
	keyAssets          = "assets"
)

// MonitorSnapshot tags a cached monitor payload with its freshness
type MonitorSnapshot struct {
	State     refresh.State `json:"state"`
	FetchedAt time.Time     `json:"fetched_at,omitempty"`
}

func (s *DashService) registerMonitorQueries() {
	s.Coordinator.Register(keyDeviceSummaries, refresh.ClassDeviceSummaries, 0,
		func(ctx context.Context) (interface{}, error) {
			return s.Source.FetchDeviceSummaries(ctx)
		})
	s.Coordinator.Register(keyAlerts, refresh.ClassAlerts, 0,
		func(ctx context.Context) (interface{}, error) {
			return s.Source.FetchAlerts(ctx)
		})
	s.Coordinator.Register(keyRules, refresh.ClassRules, 0,
		func(ctx context.Context) (interface{}, error) {
			return s.Source.FetchRules(ctx)
		})
	s.Coordinator.Register(keyAssets, refresh.ClassAssets, 0,
		func(ctx context.Context) (interface{}, error) {
			return s.Source.FetchAssets(ctx, models.AssetFilters{})
		})
}

// snapshot reads a cached monitor query, kicking a refetch when the entry is
// idle, stale or retryable. An error is returned only when nothing is cached.
func (s *DashService) snapshot(ctx context.Context, key string) (interface{}, MonitorSnapshot, error) {
	s.Coordinator.EnsureFresh(ctx, key)
	snap, ok := s.Coordinator.Get(key)
	if !ok {
		return nil, MonitorSnapshot{}, errors.NewInternalError("monitor query not registered: "+key, nil)
	}
	meta := MonitorSnapshot{State: snap.State, FetchedAt: snap.FetchedAt}
	if snap.Value == nil && snap.Err != nil {
		return nil, meta, snap.Err
	}
	return snap.Value, meta, nil
}

// DeviceSummaries returns the cached device status board
func (s *DashService) DeviceSummaries(ctx context.Context) ([]models.DeviceSummary, MonitorSnapshot, error) {
	value, meta, err := s.snapshot(ctx, keyDeviceSummaries)
	if err != nil || value == nil {
		return nil, meta, err
	}
	return value.([]models.DeviceSummary), meta, nil
}

// Alerts returns the cached unacknowledged alerts
func (s *DashService) Alerts(ctx context.Context) ([]models.Alert, MonitorSnapshot, error) {
	value, meta, err := s.snapshot(ctx, keyAlerts)
	if err != nil || value == nil {
		return nil, meta, err
	}
	return value.([]models.Alert), meta, nil
}

// Rules returns the cached alert rules
func (s *DashService) Rules(ctx context.Context) ([]models.AlertRule, MonitorSnapshot, error) {
	value, meta, err := s.snapshot(ctx, keyRules)
	if err != nil || value == nil {
		return nil, meta, err
	}
	return value.([]models.AlertRule), meta, nil
}

// Assets returns assets, served from cache for unfiltered listings and
// straight from the source when filters are set.
func (s *DashService) Assets(ctx context.Context, filters models.AssetFilters) ([]models.Asset, MonitorSnapshot, error) {
	if filters != (models.AssetFilters{}) {
		assets, err := s.Source.FetchAssets(ctx, filters)
		return assets, MonitorSnapshot{State: refresh.StateFresh, FetchedAt: time.Now()}, err
	}
	value, meta, err := s.snapshot(ctx, keyAssets)
	if err != nil || value == nil {
		return nil, meta, err
	}
	return value.([]models.Asset), meta, nil
}

// AssetSensors lists an asset's sensors with their latest readings. Not
// cached: it backs the widget configuration flow, not a polled board.
func (s *DashService) AssetSensors(ctx context.Context, assetID int64) ([]models.AssetSensor, error) {
	return s.Source.FetchAssetSensors(ctx, assetID)
}

// ToggleRule flips a rule through the optimistic mutation protocol: the
// cached rule list is updated immediately, restored bit-for-bit when the
// backend rejects the change, and refetched after it confirms.
func (s *DashService) ToggleRule(ctx context.Context, ruleID int64, enabled bool) error {
	err := s.Coordinator.Mutate(ctx, keyRules,
		func(value interface{}) interface{} {
			rules, ok := value.([]models.AlertRule)
			if !ok {
				return value
			}
			updated := make([]models.AlertRule, len(rules))
			copy(updated, rules)
			for i := range updated {
				if updated[i].ID == ruleID {
					updated[i].Enabled = enabled
				}
			}
			return updated
		},
		func(ctx context.Context) error {
			return s.Source.ToggleRule(ctx, ruleID, enabled)
		})
	if err != nil {
		nuts.L.Warnf("[DashService] Toggle of rule %d rolled back: %v", ruleID, err)
		return err
	}
	nuts.L.Infof("[DashService] Rule %d toggled to enabled=%t", ruleID, enabled)
	return nil
}

// CreateRule creates a rule and refetches the cached rule list
func (s *DashService) CreateRule(ctx context.Context, rule *models.AlertRule) (*models.AlertRule, error) {
	if rule.Name == "" {
		return nil, errors.NewValidationError("rule name is required", nil)
	}
	if rule.SensorTag == "" {
		return nil, errors.NewValidationError("rule sensor tag is required", nil)
	}
	created, err := s.Source.CreateRule(ctx, rule)
	if err != nil {
		return nil, err
	}
	s.Coordinator.Invalidate(keyRules)
	s.Coordinator.Refresh(context.Background(), keyRules)
	nuts.L.Infof("[DashService] Created rule %d (%s)", created.ID, created.Name)
	return created, nil
}
