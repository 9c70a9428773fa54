// FilePath: internal/telemetry/telemetry.go

// Package telemetry fetches monitoring data for the dashboard: device
// summaries, assets and their sensors, sensor history, alerts and rules. Two
// sources implement it, one over the monitoring REST API and one reading the
// TimescaleDB hypertable directly.
package telemetry

import (
	"context"
	"time"

	"github.com/traksense/hub/internal/models"
)

// Interval is the server-side aggregation bucket for history queries.
type Interval string

const (
	IntervalRaw Interval = "raw"
	Interval1m  Interval = "1m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval1h  Interval = "1h"
)

// IntervalFor maps a query window to its default aggregation interval.
// Short windows get raw points, longer ones get progressively coarser
// buckets so a week-long chart stays in the low thousands of points.
func IntervalFor(window time.Duration) Interval {
	switch {
	case window < time.Hour:
		return IntervalRaw
	case window <= 6*time.Hour:
		return Interval1m
	case window <= 24*time.Hour:
		return Interval5m
	case window <= 168*time.Hour:
		return Interval15m
	default:
		return Interval1h
	}
}

// Duration returns the bucket width, or zero for raw.
func (i Interval) Duration() time.Duration {
	switch i {
	case Interval1m:
		return time.Minute
	case Interval5m:
		return 5 * time.Minute
	case Interval15m:
		return 15 * time.Minute
	case Interval1h:
		return time.Hour
	default:
		return 0
	}
}

// HistoryQuery describes one sensor-history request. Exactly one of AssetID
// or DeviceID scopes the query; SensorTags narrows it to specific sensors. A
// zero Interval is derived from the window via IntervalFor.
type HistoryQuery struct {
	AssetID    *int64
	DeviceID   string
	SensorTags []string
	From       time.Time
	To         time.Time
	Interval   Interval
}

// EffectiveInterval resolves the interval, deriving it from the window when
// unset.
func (q HistoryQuery) EffectiveInterval() Interval {
	if q.Interval != "" {
		return q.Interval
	}
	return IntervalFor(q.To.Sub(q.From))
}

// Source is the read/write surface of the monitoring backend.
type Source interface {
	FetchDeviceSummaries(ctx context.Context) ([]models.DeviceSummary, error)
	FetchAssets(ctx context.Context, filters models.AssetFilters) ([]models.Asset, error)
	FetchAssetSensors(ctx context.Context, assetID int64) ([]models.AssetSensor, error)
	FetchSensorHistory(ctx context.Context, q HistoryQuery) ([]models.TelemetrySeries, error)
	FetchAlerts(ctx context.Context) ([]models.Alert, error)
	FetchRules(ctx context.Context) ([]models.AlertRule, error)
	CreateRule(ctx context.Context, rule *models.AlertRule) (*models.AlertRule, error)
	ToggleRule(ctx context.Context, ruleID int64, enabled bool) error
}
