// FilePath: internal/dashservice/dashservice.data.go
package dashservice

import (
	"context"
	"strconv"
	"strings"
	"time"

	nuts "github.com/vaudience/go-nuts"

	"github.com/traksense/hub/internal/align"
	"github.com/traksense/hub/internal/errors"
	"github.com/traksense/hub/internal/formula"
	"github.com/traksense/hub/internal/models"
	"github.com/traksense/hub/internal/refresh"
	"github.com/traksense/hub/internal/telemetry"
	"github.com/traksense/hub/internal/widgets"
)

// DataState classifies a widget's resolved payload for the renderer.
type DataState string

const (
	// DataStateOK means the payload carries renderable data
	DataStateOK DataState = "ok"
	// DataStateLoading means the first fetch has not completed yet
	DataStateLoading DataState = "loading"
	// DataStateUnconfigured means the widget lacks a data binding; the
	// renderer shows a configure-me affordance, not a zero value
	DataStateUnconfigured DataState = "unconfigured"
	// DataStateError means the last fetch failed and no value is cached
	DataStateError DataState = "error"
)

// Scalar is the resolved value of a single-value widget
type Scalar struct {
	Value     float64   `json:"value"`
	Display   string    `json:"display"`
	Unit      string    `json:"unit,omitempty"`
	Online    bool      `json:"online"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// SeriesMeta is one legend entry of a multi-series widget
type SeriesMeta struct {
	Label     string `json:"label"`
	SensorTag string `json:"sensor_tag"`
	Color     string `json:"color"`
	Unit      string `json:"unit,omitempty"`
	Visible   bool   `json:"visible"`
}

// WidgetData is what the rendering layer receives per widget: a scalar for
// single-value widgets, an aligned table plus legend for chart widgets, or
// neither for static widgets.
type WidgetData struct {
	WidgetID   string            `json:"widget_id"`
	Type       models.WidgetType `json:"type"`
	State      DataState         `json:"state"`
	FetchState refresh.State     `json:"fetch_state,omitempty"`
	FetchedAt  time.Time         `json:"fetched_at,omitempty"`
	Message    string            `json:"message,omitempty"`
	Scalar     *Scalar           `json:"scalar,omitempty"`
	Table      *align.Table      `json:"table,omitempty"`
	Legend     []SeriesMeta      `json:"legend,omitempty"`
}

// seriesPalette is the stable legend palette, assigned by binding order so a
// series keeps its color across refetches and visibility toggles.
var seriesPalette = []string{
	"#5470c6", "#91cc75", "#fac858", "#ee6666", "#73c0de",
	"#3ba272", "#fc8452", "#9a60b4", "#ea7ccc",
}

func widgetDataKey(widgetID string) string {
	return "widget:" + widgetID
}

// ResolveWidget resolves one widget's data payload through the coordinator
// cache, registering the widget's query on first use.
func (s *DashService) ResolveWidget(ctx context.Context, layoutID, widgetID string) (*WidgetData, error) {
	layout, err := s.Store.Layout(layoutID)
	if err != nil {
		return nil, err
	}
	w := layout.Widget(widgetID)
	if w == nil {
		return nil, errors.NewNotFoundError("widget not found: "+widgetID, nil)
	}

	def, ok := widgets.Lookup(w.Type)
	if !ok {
		return nil, errors.NewInternalError("no definition for widget type "+string(w.Type), nil)
	}

	data := &WidgetData{WidgetID: w.ID, Type: w.Type}
	if !def.RequiresData {
		// Static widgets (text, photo) render from config alone
		data.State = DataStateOK
		return data, nil
	}

	cfg := w.Config
	if cfg.AssetID == nil && cfg.DeviceID == nil {
		data.State = DataStateUnconfigured
		return data, nil
	}
	if def.MultiSeries {
		if len(cfg.SensorTags) == 0 {
			data.State = DataStateUnconfigured
			return data, nil
		}
	} else if cfg.SensorTag == nil {
		data.State = DataStateUnconfigured
		return data, nil
	}

	key := widgetDataKey(w.ID)
	s.registerWidgetQuery(key, w.Clone(), def.MultiSeries)
	s.Coordinator.EnsureFresh(ctx, key)

	snap, _ := s.Coordinator.Get(key)
	data.FetchState = snap.State
	data.FetchedAt = snap.FetchedAt

	if snap.Value == nil {
		if snap.Err != nil {
			data.State = DataStateError
			data.Message = snap.Err.Error()
			return data, nil
		}
		data.State = DataStateLoading
		return data, nil
	}
	if snap.Err != nil {
		// Stale data beats no data; surface the failure alongside it
		data.Message = snap.Err.Error()
	}

	series, ok := snap.Value.([]models.TelemetrySeries)
	if !ok {
		return nil, errors.NewInternalError("unexpected cached payload for widget "+w.ID, nil)
	}

	data.State = DataStateOK
	if def.MultiSeries {
		s.resolveTable(data, cfg, series)
	} else {
		s.resolveScalar(data, w, series)
	}
	return data, nil
}

// registerWidgetQuery registers (or re-registers) the widget's fetch closure.
// Both paths fetch history series; the scalar path just uses a short raw
// window and reduces to the last point.
func (s *DashService) registerWidgetQuery(key string, w *models.Widget, multi bool) {
	cfg := w.Config
	class := refresh.ClassSensorLatest
	if multi {
		class = refresh.ClassSensorHistory
	}
	var override time.Duration
	if cfg.RefreshInterval != nil && *cfg.RefreshInterval > 0 {
		override = time.Duration(*cfg.RefreshInterval) * time.Second
	}

	s.Coordinator.Register(key, class, override, func(ctx context.Context) (interface{}, error) {
		q := telemetry.HistoryQuery{
			AssetID: cfg.AssetID,
			To:      time.Now(),
		}
		if cfg.DeviceID != nil {
			q.DeviceID = *cfg.DeviceID
		}
		if multi {
			q.SensorTags = cfg.SensorTags
			q.From = q.To.Add(-timeRangeWindow(cfg.TimeRange))
		} else {
			q.SensorTags = []string{*cfg.SensorTag}
			q.From = q.To.Add(-15 * time.Minute)
			q.Interval = telemetry.IntervalRaw
		}
		return s.Source.FetchSensorHistory(ctx, q)
	})
}

// resolveTable aligns the fetched series and builds the legend in binding
// order, so colors stay stable across refetches.
func (s *DashService) resolveTable(data *WidgetData, cfg models.WidgetConfig, series []models.TelemetrySeries) {
	byTag := make(map[string]models.TelemetrySeries, len(series))
	for _, sr := range series {
		byTag[sr.SensorTag] = sr
	}

	ordered := make([]models.TelemetrySeries, 0, len(cfg.SensorTags))
	legend := make([]SeriesMeta, 0, len(cfg.SensorTags))
	for i, tag := range cfg.SensorTags {
		sr := byTag[tag] // zero value (empty series) when the backend had nothing
		sr.SensorTag = tag
		if sr.Label == "" {
			sr.Label = DefaultSeriesLabel(tag)
		}
		if sr.Color == "" {
			sr.Color = seriesPalette[i%len(seriesPalette)]
		}
		unit := sr.Unit
		if cfg.Unit != nil {
			unit = *cfg.Unit
		}
		ordered = append(ordered, sr)
		legend = append(legend, SeriesMeta{
			Label:     sr.Label,
			SensorTag: tag,
			Color:     sr.Color,
			Unit:      unit,
			Visible:   true,
		})
	}

	// Align expects labels on the series
	for i := range ordered {
		if ordered[i].Label == "" {
			ordered[i].Label = ordered[i].SensorTag
		}
	}
	data.Table = align.Align(ordered)
	data.Legend = legend
}

// resolveScalar reduces the raw window to its last point, applies the
// widget's transform fail-closed, and formats the display string.
func (s *DashService) resolveScalar(data *WidgetData, w *models.Widget, series []models.TelemetrySeries) {
	cfg := w.Config
	var last *models.SeriesPoint
	var unit string
	for _, sr := range series {
		if cfg.SensorTag != nil && sr.SensorTag != *cfg.SensorTag {
			continue
		}
		if len(sr.Data) > 0 {
			p := sr.Data[len(sr.Data)-1]
			if last == nil || p.Timestamp.After(last.Timestamp) {
				last = &p
				unit = sr.Unit
			}
		}
	}
	if last == nil {
		// Bound but silent sensor: no reading inside the window
		data.Scalar = &Scalar{Display: "--", Online: false}
		if cfg.Unit != nil {
			data.Scalar.Unit = *cfg.Unit
		}
		return
	}
	if cfg.Unit != nil {
		unit = *cfg.Unit
	}

	value := last.Value
	display := ""
	if cfg.Transform != nil && cfg.Transform.Formula != "" {
		res, err := formula.Apply(cfg.Transform.Formula, value)
		if err != nil {
			nuts.L.Warnf("[DashService] Formula failed for widget %s: %v", w.ID, err)
		}
		if res.IsText {
			display = res.Text
		} else {
			value = res.Num
		}
	}
	if display == "" {
		display = formatValue(value, cfg.Decimals)
	}

	data.Scalar = &Scalar{
		Value:     value,
		Display:   display,
		Unit:      unit,
		Online:    time.Since(last.Timestamp) < 2*time.Minute,
		Timestamp: last.Timestamp,
	}
}

// DefaultSeriesLabel strips the asset-tag prefix from a sensor tag, turning
// "CHILLER-001_temp_supply" into "temp_supply". Tags without a hyphenated
// prefix are returned unchanged.
func DefaultSeriesLabel(tag string) string {
	if idx := strings.Index(tag, "_"); idx > 0 {
		if strings.Contains(tag[:idx], "-") {
			return tag[idx+1:]
		}
	}
	return tag
}

// timeRangeWindow maps a widget's timeRange setting to a query window,
// defaulting to 24h.
func timeRangeWindow(timeRange *string) time.Duration {
	if timeRange == nil {
		return 24 * time.Hour
	}
	switch *timeRange {
	case "1h":
		return time.Hour
	case "6h":
		return 6 * time.Hour
	case "24h":
		return 24 * time.Hour
	case "7d":
		return 7 * 24 * time.Hour
	case "30d":
		return 30 * 24 * time.Hour
	}
	if d, err := time.ParseDuration(*timeRange); err == nil && d > 0 {
		return d
	}
	return 24 * time.Hour
}

func formatValue(value float64, decimals *int) string {
	if decimals != nil {
		d := *decimals
		if d < 0 {
			d = 0
		}
		return strconv.FormatFloat(value, 'f', d, 64)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
