// FilePath: internal/models/models.monitor.go
package models

import "time"

// DeviceSummary is the condensed per-device status the monitor API serves
type DeviceSummary struct {
	DeviceID    string    `json:"device_id" db:"device_id"`
	SiteID      string    `json:"site_id" db:"site_id"`
	Name        string    `json:"name" db:"name"`
	Status      string    `json:"status" db:"status"`
	SensorCount int       `json:"sensor_count" db:"sensor_count"`
	AlertCount  int       `json:"alert_count" db:"alert_count"`
	LastSeen    time.Time `json:"last_seen" db:"last_seen"`
}

// Asset is a monitored piece of equipment with its sensors
type Asset struct {
	ID       int64         `json:"id" db:"id"`
	Tag      string        `json:"tag" db:"tag"`
	Name     string        `json:"name" db:"name"`
	SiteID   string        `json:"site_id" db:"site_id"`
	Status   string        `json:"status" db:"status"`
	Metadata JSON          `json:"metadata,omitempty" db:"metadata"`
	Sensors  []AssetSensor `json:"sensors,omitempty"`
}

// AssetFilters defines the available filter options for asset listings
type AssetFilters struct {
	SiteID string `json:"site_id" schema:"site_id"`
	Status string `json:"status" schema:"status"`
	Search string `json:"search" schema:"search"`
}

// AlertRule is a monitoring rule that can be toggled on and off
type AlertRule struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	SensorTag string    `json:"sensor_tag" db:"sensor_tag"`
	Operator  string    `json:"operator" db:"operator"`
	Threshold float64   `json:"threshold" db:"threshold"`
	Severity  string    `json:"severity" db:"severity"`
	Enabled   bool      `json:"enabled" db:"enabled"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Alert is a fired rule instance
type Alert struct {
	ID           int64     `json:"id" db:"id"`
	RuleID       int64     `json:"rule_id" db:"rule_id"`
	SensorTag    string    `json:"sensor_tag" db:"sensor_tag"`
	Severity     string    `json:"severity" db:"severity"`
	Message      string    `json:"message" db:"message"`
	Acknowledged bool      `json:"acknowledged" db:"acknowledged"`
	TriggeredAt  time.Time `json:"triggered_at" db:"triggered_at"`
}
