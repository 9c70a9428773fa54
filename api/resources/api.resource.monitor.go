// FilePath: api/resources/api.resource.monitor.go
package resources

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/gorilla/schema"
	nuts "github.com/vaudience/go-nuts"

	"github.com/traksense/hub/internal/dashservice"
	"github.com/traksense/hub/internal/errors"
	"github.com/traksense/hub/internal/models"
)

// MonitorHandlers serves the monitor boards: devices, assets, alerts, rules
type MonitorHandlers struct {
	dashservice *dashservice.DashService
}

var queryDecoder = func() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}()

type toggleRuleRequest struct {
	Enabled bool `json:"enabled"`
}

// monitorResponse wraps a cached payload with its freshness metadata
type monitorResponse struct {
	dashservice.MonitorSnapshot
	Data interface{} `json:"data"`
}

// @Summary Device summaries
// @Description Get the cached per-device status board
// @Tags monitor
// @Produce json
// @Success 200 {object} monitorResponse
// @Router /monitor/devices [get]
func (h *MonitorHandlers) ListDeviceSummaries(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	summaries, meta, err := h.dashservice.DeviceSummaries(r.Context())
	if err != nil {
		respondWithServiceError(w, err, requestID)
		return
	}

	respondWithJSON(w, http.StatusOK, monitorResponse{MonitorSnapshot: meta, Data: summaries})
}

// @Summary List assets
// @Description Get monitored assets, filterable by site, status and free-text search
// @Tags monitor
// @Produce json
// @Param site_id query string false "Site filter"
// @Param status query string false "Status filter"
// @Param search query string false "Free-text search on tag and name"
// @Success 200 {object} monitorResponse
// @Router /monitor/assets [get]
func (h *MonitorHandlers) ListAssets(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	var filters models.AssetFilters
	if err := queryDecoder.Decode(&filters, r.URL.Query()); err != nil {
		respondWithError(w, errors.NewValidationError("invalid query parameters", err).WithRequestID(requestID))
		return
	}

	assets, meta, err := h.dashservice.Assets(r.Context(), filters)
	if err != nil {
		respondWithServiceError(w, err, requestID)
		return
	}

	respondWithJSON(w, http.StatusOK, monitorResponse{MonitorSnapshot: meta, Data: assets})
}

// @Summary List an asset's sensors
// @Description Get an asset's sensors with their latest readings
// @Tags monitor
// @Produce json
// @Param id path int true "Asset ID"
// @Success 200 {array} models.AssetSensor
// @Failure 404 {object} errors.APIError
// @Router /monitor/assets/{id}/sensors [get]
func (h *MonitorHandlers) ListAssetSensors(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	requestID := nuts.NID("req", 12)

	assetID, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil {
		respondWithError(w, errors.NewValidationError("invalid asset id", err).WithRequestID(requestID))
		return
	}

	sensors, err := h.dashservice.AssetSensors(r.Context(), assetID)
	if err != nil {
		respondWithServiceError(w, err, requestID)
		return
	}

	respondWithJSON(w, http.StatusOK, sensors)
}

// @Summary List alerts
// @Description Get the cached unacknowledged alerts
// @Tags monitor
// @Produce json
// @Success 200 {object} monitorResponse
// @Router /monitor/alerts [get]
func (h *MonitorHandlers) ListAlerts(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	alerts, meta, err := h.dashservice.Alerts(r.Context())
	if err != nil {
		respondWithServiceError(w, err, requestID)
		return
	}

	respondWithJSON(w, http.StatusOK, monitorResponse{MonitorSnapshot: meta, Data: alerts})
}

// @Summary List alert rules
// @Tags monitor
// @Produce json
// @Success 200 {object} monitorResponse
// @Router /monitor/rules [get]
func (h *MonitorHandlers) ListRules(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	rules, meta, err := h.dashservice.Rules(r.Context())
	if err != nil {
		respondWithServiceError(w, err, requestID)
		return
	}

	respondWithJSON(w, http.StatusOK, monitorResponse{MonitorSnapshot: meta, Data: rules})
}

// @Summary Create an alert rule
// @Tags monitor
// @Accept json
// @Produce json
// @Param rule body models.AlertRule true "Rule details"
// @Success 201 {object} models.AlertRule
// @Failure 400 {object} errors.APIError
// @Router /monitor/rules [post]
func (h *MonitorHandlers) CreateRule(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	var rule models.AlertRule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}

	created, err := h.dashservice.CreateRule(r.Context(), &rule)
	if err != nil {
		respondWithServiceError(w, err, requestID)
		return
	}

	respondWithJSON(w, http.StatusCreated, created)
}

// @Summary Toggle an alert rule
// @Description Enable or disable a rule. The cached list updates optimistically and rolls back if the backend rejects the change.
// @Tags monitor
// @Accept json
// @Produce json
// @Param id path int true "Rule ID"
// @Param toggle body toggleRuleRequest true "Enabled flag"
// @Success 200 {object} map[string]bool
// @Failure 404 {object} errors.APIError
// @Router /monitor/rules/{id}/toggle [post]
func (h *MonitorHandlers) ToggleRule(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	requestID := nuts.NID("req", 12)

	ruleID, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil {
		respondWithError(w, errors.NewValidationError("invalid rule id", err).WithRequestID(requestID))
		return
	}

	var req toggleRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}

	if err := h.dashservice.ToggleRule(r.Context(), ruleID, req.Enabled); err != nil {
		respondWithServiceError(w, err, requestID)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]bool{"enabled": req.Enabled})
}
