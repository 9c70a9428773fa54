// FilePath: internal/models/models.widget.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// JSON is a wrapper around map[string]interface{} for database storage
type JSON map[string]interface{}

// Value implements the driver.Valuer interface
func (j JSON) Value() (driver.Value, error) {
	return json.Marshal(j)
}

// Scan implements the sql.Scanner interface
func (j *JSON) Scan(value interface{}) error {
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, &j)
}

// WidgetType identifies one of the closed set of dashboard tile variants.
// The string values are persisted identifiers and must stay stable.
type WidgetType string

const (
	// Simple cards
	WidgetCardKPI   WidgetType = "card-kpi"
	WidgetCardValue WidgetType = "card-value"
	WidgetCardStat  WidgetType = "card-stat"

	// Action cards
	WidgetCardButton WidgetType = "card-button"
	WidgetCardToggle WidgetType = "card-toggle"
	WidgetCardStatus WidgetType = "card-status"

	// Line charts
	WidgetChartLine WidgetType = "chart-line-echarts"
	WidgetChartArea WidgetType = "chart-area"

	// Bar charts
	WidgetChartBar           WidgetType = "chart-bar"
	WidgetChartBarHorizontal WidgetType = "chart-bar-horizontal"

	// Circular charts
	WidgetChartPie      WidgetType = "chart-pie"
	WidgetChartDonut    WidgetType = "chart-donut"
	WidgetGaugeCircular WidgetType = "gauge-circular"
	WidgetGaugeProgress WidgetType = "gauge-progress"

	// Indicators
	WidgetIndicatorStatus WidgetType = "indicator-status"
	WidgetIndicatorTrend  WidgetType = "indicator-trend"
	WidgetIndicatorAlert  WidgetType = "indicator-alert"

	// Tables
	WidgetTableSimple     WidgetType = "table-simple"
	WidgetTableWorkOrders WidgetType = "table-work-orders"
	WidgetTableEquipment  WidgetType = "table-equipment"

	// Heatmaps
	WidgetHeatmapEquipment WidgetType = "heatmap-equipment"
	WidgetHeatmapTime      WidgetType = "heatmap-time"

	// Other
	WidgetTextDisplay  WidgetType = "text-display"
	WidgetPhotoDisplay WidgetType = "photo-display"
)

// WidgetSize is one of the six discrete column-span classes of the layout grid
type WidgetSize string

const (
	SizeCol1 WidgetSize = "col-1"
	SizeCol2 WidgetSize = "col-2"
	SizeCol3 WidgetSize = "col-3"
	SizeCol4 WidgetSize = "col-4"
	SizeCol5 WidgetSize = "col-5"
	SizeCol6 WidgetSize = "col-6"
)

// Position is an advisory {x, y} placement hint. Authoritative display order
// is the layout's widget sequence, not this field.
type Position struct {
	X int `json:"x" db:"x"`
	Y int `json:"y" db:"y"`
	W int `json:"w,omitempty" db:"w"`
	H int `json:"h,omitempty" db:"h"`
}

// TransformConfig carries a user-authored value transformation. When a new
// formula is set the whole object is replaced, never merged key-by-key.
type TransformConfig struct {
	Formula string `json:"formula"`
}

// WidgetConfig is the open map of recognized optional widget settings. Nil
// pointers mean "unconfigured", which the UI renders as a configure-me
// affordance instead of a zero value.
type WidgetConfig struct {
	Label             *string          `json:"label,omitempty"`
	Unit              *string          `json:"unit,omitempty"`
	Decimals          *int             `json:"decimals,omitempty"`
	Color             *string          `json:"color,omitempty"`
	IconColor         *string          `json:"iconColor,omitempty"`
	ShowIcon          *bool            `json:"showIcon,omitempty"`
	IconName          *string          `json:"iconName,omitempty"`
	MinValue          *float64         `json:"minValue,omitempty"`
	MaxValue          *float64         `json:"maxValue,omitempty"`
	WarningThreshold  *float64         `json:"warningThreshold,omitempty"`
	CriticalThreshold *float64         `json:"criticalThreshold,omitempty"`
	ChartType         *string          `json:"chartType,omitempty"`
	TimeRange         *string          `json:"timeRange,omitempty"`
	RefreshInterval   *int             `json:"refreshInterval,omitempty"`
	DataSource        *string          `json:"dataSource,omitempty"`
	AssetID           *int64           `json:"assetId,omitempty"`
	DeviceID          *string          `json:"deviceId,omitempty"`
	SensorTag         *string          `json:"sensorTag,omitempty"`
	SensorTags        []string         `json:"sensorTags,omitempty"`
	Transform         *TransformConfig `json:"transform,omitempty"`
}

// Widget is one configurable dashboard tile. IDs are stable across reorders;
// Type is immutable after creation.
type Widget struct {
	ID        string       `json:"id" db:"id"`
	Type      WidgetType   `json:"type" db:"type" writexs:"system"`
	Title     string       `json:"title" db:"title" writexs:"user,admin,system"`
	Size      WidgetSize   `json:"size" db:"size" writexs:"user,admin,system"`
	Position  Position     `json:"position" db:"position" writexs:"user,admin,system"`
	Config    WidgetConfig `json:"config" db:"config" writexs:"user,admin,system"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt time.Time    `json:"updated_at" db:"updated_at"`
}

// Clone returns a deep copy of the widget
func (w *Widget) Clone() *Widget {
	c := *w
	c.Config = w.Config.Clone()
	return &c
}

// Clone returns a deep copy of the config
func (c WidgetConfig) Clone() WidgetConfig {
	out := c
	out.Label = clonePtr(c.Label)
	out.Unit = clonePtr(c.Unit)
	out.Decimals = clonePtr(c.Decimals)
	out.Color = clonePtr(c.Color)
	out.IconColor = clonePtr(c.IconColor)
	out.ShowIcon = clonePtr(c.ShowIcon)
	out.IconName = clonePtr(c.IconName)
	out.MinValue = clonePtr(c.MinValue)
	out.MaxValue = clonePtr(c.MaxValue)
	out.WarningThreshold = clonePtr(c.WarningThreshold)
	out.CriticalThreshold = clonePtr(c.CriticalThreshold)
	out.ChartType = clonePtr(c.ChartType)
	out.TimeRange = clonePtr(c.TimeRange)
	out.RefreshInterval = clonePtr(c.RefreshInterval)
	out.DataSource = clonePtr(c.DataSource)
	out.AssetID = clonePtr(c.AssetID)
	out.DeviceID = clonePtr(c.DeviceID)
	if c.SensorTags != nil {
		out.SensorTags = append([]string(nil), c.SensorTags...)
	}
	if c.Transform != nil {
		t := *c.Transform
		out.Transform = &t
	}
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
