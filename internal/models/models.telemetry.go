// FilePath: internal/models/models.telemetry.go
package models

import "time"

// SeriesPoint is a single time-stamped sensor reading
type SeriesPoint struct {
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
	Value     float64   `json:"value" db:"value"`
}

// TelemetrySeries is one sensor's time-ordered value stream. Series are
// ephemeral query results and never persisted alongside widgets.
type TelemetrySeries struct {
	SensorTag string        `json:"sensor_tag"`
	Label     string        `json:"label"`
	Color     string        `json:"color"`
	Unit      string        `json:"unit"`
	Data      []SeriesPoint `json:"data"`
}

// AssetSensor is a sensor attached to an asset, carrying its latest reading
type AssetSensor struct {
	Tag           string    `json:"tag" db:"tag"`
	Name          string    `json:"name" db:"name"`
	Unit          string    `json:"unit" db:"unit"`
	LastValue     float64   `json:"last_value" db:"last_value"`
	LastValueTime time.Time `json:"last_value_time" db:"last_value_time"`
	IsOnline      bool      `json:"is_online" db:"is_online"`
}
