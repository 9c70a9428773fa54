// FilePath: internal/widgets/widgets.definitions.go
package widgets

import (
	"github.com/traksense/hub/internal/models"
)

// Category groups widget types for palette display
type Category string

const (
	CategorySimpleCards    Category = "cards-simple"
	CategoryActionCards    Category = "cards-action"
	CategoryLineCharts     Category = "charts-line"
	CategoryBarCharts      Category = "charts-bar"
	CategoryCircularCharts Category = "charts-circular"
	CategoryGauges         Category = "gauges"
	CategoryIndicators     Category = "indicators"
	CategoryTables         Category = "tables"
	CategoryHeatmaps       Category = "heatmaps"
	CategoryOther          Category = "other"
)

// CategoryOrder is the palette display order
var CategoryOrder = []Category{
	CategorySimpleCards,
	CategoryActionCards,
	CategoryLineCharts,
	CategoryBarCharts,
	CategoryCircularCharts,
	CategoryGauges,
	CategoryIndicators,
	CategoryTables,
	CategoryHeatmaps,
	CategoryOther,
}

// ConfigKey names one recognized widget config field
type ConfigKey string

const (
	KeyLabel             ConfigKey = "label"
	KeyUnit              ConfigKey = "unit"
	KeyDecimals          ConfigKey = "decimals"
	KeyColor             ConfigKey = "color"
	KeyIconColor         ConfigKey = "iconColor"
	KeyShowIcon          ConfigKey = "showIcon"
	KeyIconName          ConfigKey = "iconName"
	KeyMinValue          ConfigKey = "minValue"
	KeyMaxValue          ConfigKey = "maxValue"
	KeyWarningThreshold  ConfigKey = "warningThreshold"
	KeyCriticalThreshold ConfigKey = "criticalThreshold"
	KeyChartType         ConfigKey = "chartType"
	KeyTimeRange         ConfigKey = "timeRange"
	KeyRefreshInterval   ConfigKey = "refreshInterval"
	KeyDataSource        ConfigKey = "dataSource"
	KeyAssetID           ConfigKey = "assetId"
	KeyDeviceID          ConfigKey = "deviceId"
	KeySensorTag         ConfigKey = "sensorTag"
	KeySensorTags        ConfigKey = "sensorTags"
	KeyTransform         ConfigKey = "transform"
)

// Definition describes one widget type: palette metadata, default size and
// which config keys are meaningful for it
type Definition struct {
	Type         models.WidgetType `json:"type"`
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	Category     Category          `json:"category"`
	DefaultSize  models.WidgetSize `json:"default_size"`
	Icon         string            `json:"icon"`
	RequiresData bool              `json:"requires_data"`
	// MultiSeries widgets bind via sensorTags (ordered), single-value widgets
	// via sensorTag
	MultiSeries bool `json:"multi_series"`
	allowedKeys map[ConfigKey]bool
}

func keySet(keys ...ConfigKey) map[ConfigKey]bool {
	m := make(map[ConfigKey]bool, len(keys))
	for _, k := range keys {
		m[k] = true
	}
	return m
}

func singleValueKeys() []ConfigKey {
	return []ConfigKey{
		KeyLabel, KeyUnit, KeyDecimals, KeyColor, KeyIconColor, KeyShowIcon,
		KeyIconName, KeyMinValue, KeyMaxValue, KeyWarningThreshold,
		KeyCriticalThreshold, KeyRefreshInterval, KeyAssetID, KeyDeviceID,
		KeySensorTag, KeyTransform,
	}
}

func multiSeriesKeys() []ConfigKey {
	return []ConfigKey{
		KeyLabel, KeyUnit, KeyDecimals, KeyColor, KeyMinValue, KeyMaxValue,
		KeyChartType, KeyTimeRange, KeyRefreshInterval, KeyAssetID,
		KeyDeviceID, KeySensorTags,
	}
}

var definitions = []*Definition{
	// Simple cards
	{Type: models.WidgetCardKPI, Name: "KPI Card", Description: "Value with icon and trend", Category: CategorySimpleCards, DefaultSize: models.SizeCol2, Icon: "Activity", RequiresData: true, allowedKeys: keySet(singleValueKeys()...)},
	{Type: models.WidgetCardValue, Name: "Value Card", Description: "Single value display", Category: CategorySimpleCards, DefaultSize: models.SizeCol2, Icon: "Square", RequiresData: true, allowedKeys: keySet(singleValueKeys()...)},
	{Type: models.WidgetCardStat, Name: "Stat Card", Description: "Value with trend and comparison", Category: CategorySimpleCards, DefaultSize: models.SizeCol2, Icon: "TrendingUp", RequiresData: true, allowedKeys: keySet(singleValueKeys()...)},

	// Action cards
	{Type: models.WidgetCardButton, Name: "Button Card", Description: "Command trigger button", Category: CategoryActionCards, DefaultSize: models.SizeCol2, Icon: "MousePointerClick", RequiresData: true, allowedKeys: keySet(singleValueKeys()...)},
	{Type: models.WidgetCardToggle, Name: "Toggle Card", Description: "On/off switch", Category: CategoryActionCards, DefaultSize: models.SizeCol2, Icon: "ToggleRight", RequiresData: true, allowedKeys: keySet(singleValueKeys()...)},
	{Type: models.WidgetCardStatus, Name: "Status Card", Description: "Color-coded status", Category: CategoryActionCards, DefaultSize: models.SizeCol2, Icon: "CircleDot", RequiresData: true, allowedKeys: keySet(singleValueKeys()...)},

	// Line charts
	{Type: models.WidgetChartLine, Name: "Line Chart", Description: "Temporal line chart", Category: CategoryLineCharts, DefaultSize: models.SizeCol4, Icon: "LineChart", RequiresData: true, MultiSeries: true, allowedKeys: keySet(multiSeriesKeys()...)},
	{Type: models.WidgetChartArea, Name: "Area Chart", Description: "Filled temporal area", Category: CategoryLineCharts, DefaultSize: models.SizeCol4, Icon: "AreaChart", RequiresData: true, MultiSeries: true, allowedKeys: keySet(multiSeriesKeys()...)},

	// Bar charts
	{Type: models.WidgetChartBar, Name: "Bar Chart", Description: "Vertical bars", Category: CategoryBarCharts, DefaultSize: models.SizeCol4, Icon: "BarChart3", RequiresData: true, MultiSeries: true, allowedKeys: keySet(multiSeriesKeys()...)},
	{Type: models.WidgetChartBarHorizontal, Name: "Horizontal Bars", Description: "Horizontal bars", Category: CategoryBarCharts, DefaultSize: models.SizeCol4, Icon: "BarChartHorizontal", RequiresData: true, MultiSeries: true, allowedKeys: keySet(multiSeriesKeys()...)},

	// Circular charts
	{Type: models.WidgetChartPie, Name: "Pie Chart", Description: "Pie with percentages", Category: CategoryCircularCharts, DefaultSize: models.SizeCol3, Icon: "PieChart", RequiresData: true, MultiSeries: true, allowedKeys: keySet(multiSeriesKeys()...)},
	{Type: models.WidgetChartDonut, Name: "Donut Chart", Description: "Ring with hollow center", Category: CategoryCircularCharts, DefaultSize: models.SizeCol3, Icon: "Circle", RequiresData: true, MultiSeries: true, allowedKeys: keySet(multiSeriesKeys()...)},
	{Type: models.WidgetGaugeCircular, Name: "Gauge", Description: "Circular gauge", Category: CategoryCircularCharts, DefaultSize: models.SizeCol2, Icon: "Gauge", RequiresData: true, allowedKeys: keySet(singleValueKeys()...)},

	// Gauges
	{Type: models.WidgetGaugeProgress, Name: "Progress Bar", Description: "Horizontal progress bar", Category: CategoryGauges, DefaultSize: models.SizeCol3, Icon: "Activity", RequiresData: true, allowedKeys: keySet(singleValueKeys()...)},

	// Indicators
	{Type: models.WidgetIndicatorStatus, Name: "Status Indicator", Description: "Online/offline LED", Category: CategoryIndicators, DefaultSize: models.SizeCol1, Icon: "CheckCircle", RequiresData: true, allowedKeys: keySet(singleValueKeys()...)},
	{Type: models.WidgetIndicatorTrend, Name: "Trend Indicator", Description: "Up/down trend arrow", Category: CategoryIndicators, DefaultSize: models.SizeCol1, Icon: "TrendingUp", RequiresData: true, allowedKeys: keySet(singleValueKeys()...)},
	{Type: models.WidgetIndicatorAlert, Name: "Alert Indicator", Description: "Visual threshold alert", Category: CategoryIndicators, DefaultSize: models.SizeCol1, Icon: "AlertTriangle", RequiresData: true, allowedKeys: keySet(singleValueKeys()...)},

	// Tables
	{Type: models.WidgetTableSimple, Name: "Simple Table", Description: "Generic data table", Category: CategoryTables, DefaultSize: models.SizeCol6, Icon: "Table", RequiresData: true, MultiSeries: true, allowedKeys: keySet(multiSeriesKeys()...)},
	{Type: models.WidgetTableWorkOrders, Name: "Work Order Table", Description: "Open work order list", Category: CategoryTables, DefaultSize: models.SizeCol6, Icon: "ClipboardList", RequiresData: true, allowedKeys: keySet(KeyLabel, KeyColor, KeyDataSource, KeyTimeRange, KeyRefreshInterval)},
	{Type: models.WidgetTableEquipment, Name: "Equipment Table", Description: "Equipment status list", Category: CategoryTables, DefaultSize: models.SizeCol6, Icon: "Wrench", RequiresData: true, allowedKeys: keySet(KeyLabel, KeyColor, KeyDataSource, KeyRefreshInterval)},

	// Heatmaps
	{Type: models.WidgetHeatmapEquipment, Name: "Equipment Heatmap", Description: "Heatmap by equipment", Category: CategoryHeatmaps, DefaultSize: models.SizeCol4, Icon: "Grid", RequiresData: true, MultiSeries: true, allowedKeys: keySet(multiSeriesKeys()...)},
	{Type: models.WidgetHeatmapTime, Name: "Time Heatmap", Description: "Heatmap by period", Category: CategoryHeatmaps, DefaultSize: models.SizeCol4, Icon: "Calendar", RequiresData: true, MultiSeries: true, allowedKeys: keySet(multiSeriesKeys()...)},

	// Other
	{Type: models.WidgetTextDisplay, Name: "Text Display", Description: "Formatted text", Category: CategoryOther, DefaultSize: models.SizeCol2, Icon: "Type", allowedKeys: keySet(KeyLabel, KeyColor, KeyDataSource)},
	{Type: models.WidgetPhotoDisplay, Name: "Photo Display", Description: "Custom image", Category: CategoryOther, DefaultSize: models.SizeCol3, Icon: "Image", allowedKeys: keySet(KeyLabel, KeyDataSource)},
}

var definitionsByType = func() map[models.WidgetType]*Definition {
	m := make(map[models.WidgetType]*Definition, len(definitions))
	for _, d := range definitions {
		m[d.Type] = d
	}
	return m
}()

// Definitions returns all widget definitions in palette order
func Definitions() []*Definition {
	out := make([]*Definition, len(definitions))
	copy(out, definitions)
	return out
}

// Lookup returns the definition for a widget type
func Lookup(t models.WidgetType) (*Definition, bool) {
	d, ok := definitionsByType[t]
	return d, ok
}

// IsMultiSeries reports whether the widget type binds via sensorTags
func IsMultiSeries(t models.WidgetType) bool {
	d, ok := definitionsByType[t]
	return ok && d.MultiSeries
}

// Allows reports whether a config key is meaningful for the widget type
func (d *Definition) Allows(key ConfigKey) bool {
	return d.allowedKeys[key]
}
