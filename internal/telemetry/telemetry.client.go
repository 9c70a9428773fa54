// FilePath: internal/telemetry/telemetry.client.go
package telemetry

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	nuts "github.com/vaudience/go-nuts"

	"github.com/traksense/hub/internal/errors"
	"github.com/traksense/hub/internal/models"
)

// APIClient is a Source over the monitoring REST API.
type APIClient struct {
	http *resty.Client
}

// NewAPIClient creates an APIClient for the given base URL. apiKey may be
// empty when the monitor API runs without auth.
func NewAPIClient(baseURL, apiKey string, timeout time.Duration) *APIClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}
	nuts.L.Infof("[TelemetryAPI] Using monitor API at %s", baseURL)
	return &APIClient{http: client}
}

// get runs a GET and decodes the JSON body into out. Transport failures come
// back as retryable fetch errors with status 0, HTTP error responses carry
// their status code so 4xx responses are not retried.
func (c *APIClient) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	req := c.http.R().SetContext(ctx).SetResult(out)
	if query != nil {
		req.SetQueryParamsFromValues(query)
	}
	resp, err := req.Get(path)
	if err != nil {
		return errors.NewFetchError(fmt.Sprintf("monitor API unreachable: GET %s", path), err, 0)
	}
	if resp.IsError() {
		return errors.NewFetchError(
			fmt.Sprintf("monitor API returned %s for GET %s", resp.Status(), path),
			nil, resp.StatusCode(),
		)
	}
	return nil
}

func (c *APIClient) send(ctx context.Context, method, path string, body, out interface{}) error {
	req := c.http.R().SetContext(ctx)
	if body != nil {
		req.SetBody(body)
	}
	if out != nil {
		req.SetResult(out)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return errors.NewFetchError(fmt.Sprintf("monitor API unreachable: %s %s", method, path), err, 0)
	}
	if resp.IsError() {
		return errors.NewFetchError(
			fmt.Sprintf("monitor API returned %s for %s %s", resp.Status(), method, path),
			nil, resp.StatusCode(),
		)
	}
	return nil
}

func (c *APIClient) FetchDeviceSummaries(ctx context.Context) ([]models.DeviceSummary, error) {
	var summaries []models.DeviceSummary
	if err := c.get(ctx, "/telemetry/devices/summary/", nil, &summaries); err != nil {
		return nil, err
	}
	return summaries, nil
}

func (c *APIClient) FetchAssets(ctx context.Context, filters models.AssetFilters) ([]models.Asset, error) {
	query := url.Values{}
	if filters.SiteID != "" {
		query.Set("site_id", filters.SiteID)
	}
	if filters.Status != "" {
		query.Set("status", filters.Status)
	}
	if filters.Search != "" {
		query.Set("search", filters.Search)
	}
	var assets []models.Asset
	if err := c.get(ctx, "/assets/", query, &assets); err != nil {
		return nil, err
	}
	return assets, nil
}

func (c *APIClient) FetchAssetSensors(ctx context.Context, assetID int64) ([]models.AssetSensor, error) {
	var sensors []models.AssetSensor
	path := fmt.Sprintf("/assets/%d/sensors/", assetID)
	if err := c.get(ctx, path, nil, &sensors); err != nil {
		return nil, err
	}
	return sensors, nil
}

// historyPoint is the wire shape of one history sample. Raw points carry ts
// and value, aggregated points carry bucket and avg_value.
type historyPoint struct {
	SensorID  string     `json:"sensor_id"`
	TS        *time.Time `json:"ts"`
	Bucket    *time.Time `json:"bucket"`
	Value     *float64   `json:"value"`
	AvgValue  *float64   `json:"avg_value"`
	LastValue *float64   `json:"last_value"`
}

type historyResponse struct {
	Data []historyPoint `json:"data"`
}

func (c *APIClient) FetchSensorHistory(ctx context.Context, q HistoryQuery) ([]models.TelemetrySeries, error) {
	query := url.Values{}
	query.Set("from", q.From.UTC().Format(time.RFC3339))
	query.Set("to", q.To.UTC().Format(time.RFC3339))
	query.Set("interval", string(q.EffectiveInterval()))
	for _, tag := range q.SensorTags {
		query.Add("sensor_id", tag)
	}

	var path string
	switch {
	case q.AssetID != nil:
		path = fmt.Sprintf("/telemetry/assets/%d/history/", *q.AssetID)
	case q.DeviceID != "":
		path = "/telemetry/history/" + url.PathEscape(q.DeviceID) + "/"
	default:
		return nil, errors.NewValidationError("history query needs an asset or device scope", nil)
	}

	var resp historyResponse
	if err := c.get(ctx, path, query, &resp); err != nil {
		return nil, err
	}
	return groupHistory(resp.Data), nil
}

// groupHistory buckets wire points per sensor, preserving the order tags
// first appear in. Timestamps and values tolerate both raw and aggregated
// field names.
func groupHistory(points []historyPoint) []models.TelemetrySeries {
	byTag := make(map[string]*models.TelemetrySeries)
	order := []string{}
	for _, p := range points {
		ts := p.TS
		if ts == nil {
			ts = p.Bucket
		}
		if ts == nil {
			continue
		}
		value := p.Value
		if value == nil {
			value = p.AvgValue
		}
		if value == nil {
			value = p.LastValue
		}
		if value == nil {
			continue
		}
		series, ok := byTag[p.SensorID]
		if !ok {
			series = &models.TelemetrySeries{SensorTag: p.SensorID}
			byTag[p.SensorID] = series
			order = append(order, p.SensorID)
		}
		series.Data = append(series.Data, models.SeriesPoint{Timestamp: *ts, Value: *value})
	}

	result := make([]models.TelemetrySeries, 0, len(order))
	for _, tag := range order {
		result = append(result, *byTag[tag])
	}
	return result
}

func (c *APIClient) FetchAlerts(ctx context.Context) ([]models.Alert, error) {
	var alerts []models.Alert
	if err := c.get(ctx, "/alerts/", nil, &alerts); err != nil {
		return nil, err
	}
	return alerts, nil
}

func (c *APIClient) FetchRules(ctx context.Context) ([]models.AlertRule, error) {
	var rules []models.AlertRule
	if err := c.get(ctx, "/alert-rules/", nil, &rules); err != nil {
		return nil, err
	}
	return rules, nil
}

func (c *APIClient) CreateRule(ctx context.Context, rule *models.AlertRule) (*models.AlertRule, error) {
	created := &models.AlertRule{}
	if err := c.send(ctx, resty.MethodPost, "/alert-rules/", rule, created); err != nil {
		return nil, err
	}
	return created, nil
}

func (c *APIClient) ToggleRule(ctx context.Context, ruleID int64, enabled bool) error {
	path := "/alert-rules/" + strconv.FormatInt(ruleID, 10) + "/"
	body := map[string]bool{"enabled": enabled}
	return c.send(ctx, resty.MethodPatch, path, body, nil)
}
