// FilePath: internal/telemetry/telemetry.timescale.go
package telemetry

import (
	"context"
	"fmt"
	"strings"
	"time"

	nuts "github.com/vaudience/go-nuts"

	"github.com/traksense/hub/internal/database"
	"github.com/traksense/hub/internal/errors"
	"github.com/traksense/hub/internal/models"
)

// onlineWindow is how recently a sensor must have reported to count as online.
const onlineWindow = "2 minutes"

// TimescaleSource is a Source reading the collector's TimescaleDB schema
// directly, for deployments where the dashboard runs next to the ingest
// pipeline instead of behind the monitor API.
type TimescaleSource struct {
	db database.DB
}

func NewTimescaleSource(db database.DB) (*TimescaleSource, error) {
	src := &TimescaleSource{db: db}
	if err := src.initializeSchema(); err != nil {
		return nil, err
	}
	return src, nil
}

func (s *TimescaleSource) initializeSchema() error {
	// Create hypertable for sensor readings plus the relational tables the
	// collector maintains
	queries := []string{
		`CREATE TABLE IF NOT EXISTS devices (
			device_id TEXT PRIMARY KEY,
			site_id TEXT NOT NULL DEFAULT '',
			name TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'offline',
			last_seen TIMESTAMPTZ NOT NULL DEFAULT 'epoch'
		)`,
		`CREATE TABLE IF NOT EXISTS assets (
			id BIGSERIAL PRIMARY KEY,
			tag TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL DEFAULT '',
			site_id TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'unknown',
			metadata JSONB
		)`,
		`CREATE TABLE IF NOT EXISTS sensors (
			tag TEXT PRIMARY KEY,
			asset_id BIGINT REFERENCES assets(id),
			device_id TEXT,
			name TEXT NOT NULL DEFAULT '',
			unit TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS sensor_readings (
			sensor_tag TEXT NOT NULL,
			value DOUBLE PRECISION NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL
		)`,
		`SELECT create_hypertable('sensor_readings', 'timestamp',
			chunk_time_interval => INTERVAL '1 day',
			if_not_exists => TRUE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sensor_readings_tag_timestamp
         ON sensor_readings(sensor_tag, timestamp DESC)`,
		`CREATE TABLE IF NOT EXISTS alert_rules (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			sensor_tag TEXT NOT NULL,
			operator TEXT NOT NULL,
			threshold DOUBLE PRECISION NOT NULL,
			severity TEXT NOT NULL DEFAULT 'warning',
			enabled BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS alerts (
			id BIGSERIAL PRIMARY KEY,
			rule_id BIGINT NOT NULL REFERENCES alert_rules(id),
			sensor_tag TEXT NOT NULL,
			severity TEXT NOT NULL,
			message TEXT NOT NULL DEFAULT '',
			acknowledged BOOLEAN NOT NULL DEFAULT FALSE,
			triggered_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}

	for _, query := range queries {
		_, err := s.db.GetDB().Exec(query)
		if err != nil {
			return errors.NewPersistenceError("failed to initialize telemetry schema", err)
		}
	}

	s.setupRetentionPolicies()
	return nil
}

func (s *TimescaleSource) setupRetentionPolicies() {
	policies := []struct {
		name     string
		interval string
	}{
		{"raw_readings", "70 days"},
		{"long_term_data", "13 months"},
	}

	for _, policy := range policies {
		query := fmt.Sprintf(`
			SELECT add_retention_policy('sensor_readings',
				INTERVAL '%s',
				if_not_exists => TRUE
			)`, policy.interval)

		_, err := s.db.GetDB().Exec(query)
		if err != nil {
			nuts.L.Errorf("[TimescaleSource] Failed to set up retention policy %s: %v", policy.name, err)
		}
	}
}

func (s *TimescaleSource) FetchDeviceSummaries(ctx context.Context) ([]models.DeviceSummary, error) {
	summaries := []models.DeviceSummary{}
	query := `
		SELECT d.device_id, d.site_id, d.name, d.status, d.last_seen,
			(SELECT COUNT(*) FROM sensors se WHERE se.device_id = d.device_id) AS sensor_count,
			(SELECT COUNT(*) FROM alerts a
				JOIN sensors se ON se.tag = a.sensor_tag
				WHERE se.device_id = d.device_id AND NOT a.acknowledged) AS alert_count
		FROM devices d
		ORDER BY d.device_id`

	err := s.db.GetDB().SelectContext(ctx, &summaries, query)
	if err != nil {
		return nil, errors.NewFetchError("failed to load device summaries", err, 0)
	}
	return summaries, nil
}

func (s *TimescaleSource) FetchAssets(ctx context.Context, filters models.AssetFilters) ([]models.Asset, error) {
	query := `SELECT id, tag, name, site_id, status, metadata FROM assets`
	conditions := []string{}
	args := []interface{}{}

	if filters.SiteID != "" {
		args = append(args, filters.SiteID)
		conditions = append(conditions, fmt.Sprintf("site_id = $%d", len(args)))
	}
	if filters.Status != "" {
		args = append(args, filters.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		conditions = append(conditions, fmt.Sprintf("(tag ILIKE $%d OR name ILIKE $%d)", len(args), len(args)))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY tag"

	assets := []models.Asset{}
	err := s.db.GetDB().SelectContext(ctx, &assets, query, args...)
	if err != nil {
		return nil, errors.NewFetchError("failed to load assets", err, 0)
	}
	return assets, nil
}

func (s *TimescaleSource) FetchAssetSensors(ctx context.Context, assetID int64) ([]models.AssetSensor, error) {
	// Window function picks each sensor's latest reading in one pass
	query := fmt.Sprintf(`
        WITH LatestReadings AS (
            SELECT sr.sensor_tag, sr.value, sr.timestamp,
                   ROW_NUMBER() OVER (PARTITION BY sr.sensor_tag ORDER BY sr.timestamp DESC) as rn
            FROM sensor_readings sr
            JOIN sensors se ON se.tag = sr.sensor_tag
            WHERE se.asset_id = $1
        )
        SELECT se.tag, se.name, se.unit,
               COALESCE(lr.value, 0) AS last_value,
               COALESCE(lr.timestamp, 'epoch'::timestamptz) AS last_value_time,
               COALESCE(lr.timestamp > NOW() - INTERVAL '%s', FALSE) AS is_online
        FROM sensors se
        LEFT JOIN LatestReadings lr ON lr.sensor_tag = se.tag AND lr.rn = 1
        WHERE se.asset_id = $1
        ORDER BY se.tag`, onlineWindow)

	sensors := []models.AssetSensor{}
	err := s.db.GetDB().SelectContext(ctx, &sensors, query, assetID)
	if err != nil {
		return nil, errors.NewFetchError("failed to load asset sensors", err, 0)
	}
	return sensors, nil
}

// historyRow is one history sample row, raw or bucketed.
type historyRow struct {
	SensorTag string    `db:"sensor_tag"`
	Timestamp time.Time `db:"timestamp"`
	Value     float64   `db:"value"`
}

func (s *TimescaleSource) FetchSensorHistory(ctx context.Context, q HistoryQuery) ([]models.TelemetrySeries, error) {
	var scopeJoin, scopeCond string
	args := []interface{}{q.From, q.To}
	switch {
	case q.AssetID != nil:
		scopeJoin = "JOIN sensors se ON se.tag = sr.sensor_tag"
		args = append(args, *q.AssetID)
		scopeCond = fmt.Sprintf("AND se.asset_id = $%d", len(args))
	case q.DeviceID != "":
		scopeJoin = "JOIN sensors se ON se.tag = sr.sensor_tag"
		args = append(args, q.DeviceID)
		scopeCond = fmt.Sprintf("AND se.device_id = $%d", len(args))
	default:
		return nil, errors.NewValidationError("history query needs an asset or device scope", nil)
	}

	tagCond := ""
	if len(q.SensorTags) > 0 {
		placeholders := make([]string, len(q.SensorTags))
		for i, tag := range q.SensorTags {
			args = append(args, tag)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		tagCond = fmt.Sprintf("AND sr.sensor_tag IN (%s)", strings.Join(placeholders, ", "))
	}

	var query string
	interval := q.EffectiveInterval()
	if interval == IntervalRaw {
		query = fmt.Sprintf(`
			SELECT sr.sensor_tag, sr.timestamp, sr.value
			FROM sensor_readings sr %s
			WHERE sr.timestamp BETWEEN $1 AND $2 %s %s
			ORDER BY sr.sensor_tag, sr.timestamp`, scopeJoin, scopeCond, tagCond)
	} else {
		bucketSeconds := int(interval.Duration().Seconds())
		query = fmt.Sprintf(`
			SELECT sr.sensor_tag,
				time_bucket(INTERVAL '%d seconds', sr.timestamp) AS timestamp,
				AVG(sr.value) AS value
			FROM sensor_readings sr %s
			WHERE sr.timestamp BETWEEN $1 AND $2 %s %s
			GROUP BY sr.sensor_tag, time_bucket(INTERVAL '%d seconds', sr.timestamp)
			ORDER BY sr.sensor_tag, timestamp`, bucketSeconds, scopeJoin, scopeCond, tagCond, bucketSeconds)
	}

	rows := []historyRow{}
	err := s.db.GetDB().SelectContext(ctx, &rows, query, args...)
	if err != nil {
		return nil, errors.NewFetchError("failed to load sensor history", err, 0)
	}

	byTag := make(map[string]*models.TelemetrySeries)
	order := []string{}
	for _, row := range rows {
		series, ok := byTag[row.SensorTag]
		if !ok {
			series = &models.TelemetrySeries{SensorTag: row.SensorTag}
			byTag[row.SensorTag] = series
			order = append(order, row.SensorTag)
		}
		series.Data = append(series.Data, models.SeriesPoint{Timestamp: row.Timestamp, Value: row.Value})
	}
	result := make([]models.TelemetrySeries, 0, len(order))
	for _, tag := range order {
		result = append(result, *byTag[tag])
	}
	return result, nil
}

func (s *TimescaleSource) FetchAlerts(ctx context.Context) ([]models.Alert, error) {
	alerts := []models.Alert{}
	query := `
		SELECT id, rule_id, sensor_tag, severity, message, acknowledged, triggered_at
		FROM alerts
		WHERE NOT acknowledged
		ORDER BY triggered_at DESC`

	err := s.db.GetDB().SelectContext(ctx, &alerts, query)
	if err != nil {
		return nil, errors.NewFetchError("failed to load alerts", err, 0)
	}
	return alerts, nil
}

func (s *TimescaleSource) FetchRules(ctx context.Context) ([]models.AlertRule, error) {
	rules := []models.AlertRule{}
	query := `
		SELECT id, name, sensor_tag, operator, threshold, severity, enabled, created_at, updated_at
		FROM alert_rules
		ORDER BY id`

	err := s.db.GetDB().SelectContext(ctx, &rules, query)
	if err != nil {
		return nil, errors.NewFetchError("failed to load alert rules", err, 0)
	}
	return rules, nil
}

func (s *TimescaleSource) CreateRule(ctx context.Context, rule *models.AlertRule) (*models.AlertRule, error) {
	created := &models.AlertRule{}
	query := `
		INSERT INTO alert_rules (name, sensor_tag, operator, threshold, severity, enabled)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, name, sensor_tag, operator, threshold, severity, enabled, created_at, updated_at`

	err := s.db.GetDB().GetContext(ctx, created, query,
		rule.Name, rule.SensorTag, rule.Operator, rule.Threshold, rule.Severity, rule.Enabled)
	if err != nil {
		return nil, errors.NewFetchError("failed to create alert rule", err, 0)
	}
	return created, nil
}

func (s *TimescaleSource) ToggleRule(ctx context.Context, ruleID int64, enabled bool) error {
	query := `UPDATE alert_rules SET enabled = $1, updated_at = NOW() WHERE id = $2`

	result, err := s.db.GetDB().ExecContext(ctx, query, enabled, ruleID)
	if err != nil {
		return errors.NewFetchError("failed to toggle alert rule", err, 0)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errors.NewFetchError("failed to toggle alert rule", err, 0)
	}
	if rows == 0 {
		return errors.NewNotFoundError(fmt.Sprintf("alert rule %d not found", ruleID), nil)
	}
	return nil
}
