// FilePath: internal/widgets/widgets.go
package widgets

import (
	"fmt"
	"time"

	"github.com/traksense/hub/internal/errors"
	"github.com/traksense/hub/internal/models"
	nuts "github.com/vaudience/go-nuts"
)

// New creates a widget of the given type with a fresh id, the type's default
// size and an empty config. An empty title falls back to the definition name.
func New(widgetType models.WidgetType, title string) (*models.Widget, error) {
	def, ok := Lookup(widgetType)
	if !ok {
		return nil, errors.NewValidationError(fmt.Sprintf("unknown widget type: %s", widgetType), nil)
	}
	if title == "" {
		title = def.Name
	}
	now := time.Now()
	return &models.Widget{
		ID:        nuts.NID("wg", 12),
		Type:      widgetType,
		Title:     title,
		Size:      def.DefaultSize,
		Config:    models.WidgetConfig{},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Rebind replaces the widget's asset/device scope. Any previously selected
// sensor tags and the derived unit are cleared: a binding must never survive
// a scope it no longer exists under.
func Rebind(w *models.Widget, assetID *int64, deviceID *string) {
	w.Config.AssetID = assetID
	w.Config.DeviceID = deviceID
	w.Config.SensorTag = nil
	w.Config.SensorTags = nil
	w.Config.Unit = nil
	w.UpdatedAt = time.Now()
}

// UpdateConfig validates the patch against the widget's type and shallow-merges
// it into the existing config. Only fields set in the patch are touched.
// Transform is replaced wholesale when present, never merged key-by-key, so a
// new formula cannot resurrect stale sub-keys. A patch that changes the asset
// or device scope goes through Rebind semantics first.
func UpdateConfig(w *models.Widget, patch models.WidgetConfig) error {
	if err := ValidateConfig(w.Type, patch); err != nil {
		return err
	}

	if scopeChanged(w.Config, patch) {
		assetID := w.Config.AssetID
		if patch.AssetID != nil {
			assetID = patch.AssetID
		}
		deviceID := w.Config.DeviceID
		if patch.DeviceID != nil {
			deviceID = patch.DeviceID
		}
		Rebind(w, assetID, deviceID)
	}

	c := &w.Config
	if patch.Label != nil {
		c.Label = patch.Label
	}
	if patch.Unit != nil {
		c.Unit = patch.Unit
	}
	if patch.Decimals != nil {
		c.Decimals = patch.Decimals
	}
	if patch.Color != nil {
		c.Color = patch.Color
	}
	if patch.IconColor != nil {
		c.IconColor = patch.IconColor
	}
	if patch.ShowIcon != nil {
		c.ShowIcon = patch.ShowIcon
	}
	if patch.IconName != nil {
		c.IconName = patch.IconName
	}
	if patch.MinValue != nil {
		c.MinValue = patch.MinValue
	}
	if patch.MaxValue != nil {
		c.MaxValue = patch.MaxValue
	}
	if patch.WarningThreshold != nil {
		c.WarningThreshold = patch.WarningThreshold
	}
	if patch.CriticalThreshold != nil {
		c.CriticalThreshold = patch.CriticalThreshold
	}
	if patch.ChartType != nil {
		c.ChartType = patch.ChartType
	}
	if patch.TimeRange != nil {
		c.TimeRange = patch.TimeRange
	}
	if patch.RefreshInterval != nil {
		c.RefreshInterval = patch.RefreshInterval
	}
	if patch.DataSource != nil {
		c.DataSource = patch.DataSource
	}
	if patch.SensorTag != nil {
		c.SensorTag = patch.SensorTag
	}
	if patch.SensorTags != nil {
		c.SensorTags = append([]string(nil), patch.SensorTags...)
	}
	if patch.Transform != nil {
		t := *patch.Transform
		c.Transform = &t
	}
	w.UpdatedAt = time.Now()
	return nil
}

func scopeChanged(current, patch models.WidgetConfig) bool {
	if patch.AssetID != nil && (current.AssetID == nil || *current.AssetID != *patch.AssetID) {
		return true
	}
	if patch.DeviceID != nil && (current.DeviceID == nil || *current.DeviceID != *patch.DeviceID) {
		return true
	}
	return false
}

// ValidateConfig rejects config keys that are not recognized for the widget
// type. Multi-series widgets bind via sensorTags, single-value widgets via
// sensorTag; the wrong binding arity is rejected at this boundary.
func ValidateConfig(widgetType models.WidgetType, cfg models.WidgetConfig) error {
	def, ok := Lookup(widgetType)
	if !ok {
		return errors.NewValidationError(fmt.Sprintf("unknown widget type: %s", widgetType), nil)
	}
	for _, key := range setKeys(cfg) {
		if !def.Allows(key) {
			return errors.NewValidationError(
				fmt.Sprintf("config key %q is not recognized for widget type %s", key, widgetType), nil)
		}
	}
	return nil
}

// setKeys lists the config keys present (non-nil) in the config
func setKeys(c models.WidgetConfig) []ConfigKey {
	var keys []ConfigKey
	add := func(cond bool, k ConfigKey) {
		if cond {
			keys = append(keys, k)
		}
	}
	add(c.Label != nil, KeyLabel)
	add(c.Unit != nil, KeyUnit)
	add(c.Decimals != nil, KeyDecimals)
	add(c.Color != nil, KeyColor)
	add(c.IconColor != nil, KeyIconColor)
	add(c.ShowIcon != nil, KeyShowIcon)
	add(c.IconName != nil, KeyIconName)
	add(c.MinValue != nil, KeyMinValue)
	add(c.MaxValue != nil, KeyMaxValue)
	add(c.WarningThreshold != nil, KeyWarningThreshold)
	add(c.CriticalThreshold != nil, KeyCriticalThreshold)
	add(c.ChartType != nil, KeyChartType)
	add(c.TimeRange != nil, KeyTimeRange)
	add(c.RefreshInterval != nil, KeyRefreshInterval)
	add(c.DataSource != nil, KeyDataSource)
	add(c.AssetID != nil, KeyAssetID)
	add(c.DeviceID != nil, KeyDeviceID)
	add(c.SensorTag != nil, KeySensorTag)
	add(c.SensorTags != nil, KeySensorTags)
	add(c.Transform != nil, KeyTransform)
	return keys
}
