// FilePath: api/resources/api.resource.widgets.go
package resources

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	nuts "github.com/vaudience/go-nuts"

	"github.com/traksense/hub/internal/dashservice"
	"github.com/traksense/hub/internal/errors"
	"github.com/traksense/hub/internal/models"
	"github.com/traksense/hub/internal/widgets"
)

// WidgetHandlers encapsulates the widget-related HTTP handlers
type WidgetHandlers struct {
	dashservice *dashservice.DashService
}

type addWidgetRequest struct {
	Type     models.WidgetType `json:"type"`
	Title    string            `json:"title,omitempty"`
	Position models.Position   `json:"position,omitempty"`
}

type rebindRequest struct {
	AssetID  *int64  `json:"asset_id,omitempty"`
	DeviceID *string `json:"device_id,omitempty"`
}

// @Summary List widget definitions
// @Description Get the closed registry of widget types with categories, default sizes and data requirements
// @Tags widgets
// @Produce json
// @Success 200 {array} widgets.Definition
// @Router /widget-definitions [get]
func (h *WidgetHandlers) ListDefinitions(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, widgets.Definitions())
}

// @Summary Add a widget
// @Description Add a widget of a registered type to a layout
// @Tags widgets
// @Accept json
// @Produce json
// @Param id path string true "Layout ID"
// @Param widget body addWidgetRequest true "Widget type and optional title/position"
// @Success 201 {object} models.Widget
// @Failure 400 {object} errors.APIError
// @Router /layouts/{id}/widgets [post]
func (h *WidgetHandlers) AddWidget(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	layoutID := vars["id"]
	requestID := nuts.NID("req", 12)

	var req addWidgetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}

	widget, err := h.dashservice.Store.AddWidget(r.Context(), layoutID, req.Type, req.Title, req.Position)
	if err != nil {
		respondWithServiceError(w, err, requestID)
		return
	}

	respondWithJSON(w, http.StatusCreated, widget)
}

// @Summary Update a widget
// @Description Patch a widget's title, size, position or config. Type is immutable; config keys are validated against the widget type.
// @Tags widgets
// @Accept json
// @Produce json
// @Param id path string true "Layout ID"
// @Param widgetId path string true "Widget ID"
// @Param widget body models.Widget true "Widget patch"
// @Success 200 {object} models.Widget
// @Failure 400 {object} errors.APIError
// @Failure 404 {object} errors.APIError
// @Router /layouts/{id}/widgets/{widgetId} [put]
func (h *WidgetHandlers) UpdateWidget(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	layoutID := vars["id"]
	widgetID := vars["widgetId"]
	requestID := nuts.NID("req", 12)

	var patch models.Widget
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}

	widget, err := h.dashservice.UpdateWidget(r.Context(), layoutID, widgetID, &patch)
	if err != nil {
		respondWithServiceError(w, err, requestID)
		return
	}

	respondWithJSON(w, http.StatusOK, widget)
}

// @Summary Rebind a widget
// @Description Point a widget at a different asset or device. Stale sensor selections are cleared.
// @Tags widgets
// @Accept json
// @Produce json
// @Param id path string true "Layout ID"
// @Param widgetId path string true "Widget ID"
// @Param binding body rebindRequest true "New binding scope"
// @Success 200 {object} models.Widget
// @Failure 404 {object} errors.APIError
// @Router /layouts/{id}/widgets/{widgetId}/rebind [post]
func (h *WidgetHandlers) RebindWidget(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	layoutID := vars["id"]
	widgetID := vars["widgetId"]
	requestID := nuts.NID("req", 12)

	var req rebindRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}

	widget, err := h.dashservice.Store.RebindWidget(r.Context(), layoutID, widgetID, req.AssetID, req.DeviceID)
	if err != nil {
		respondWithServiceError(w, err, requestID)
		return
	}

	respondWithJSON(w, http.StatusOK, widget)
}

// @Summary Move a widget
// @Description Update a widget's position hint
// @Tags widgets
// @Accept json
// @Produce json
// @Param id path string true "Layout ID"
// @Param widgetId path string true "Widget ID"
// @Param position body models.Position true "New position"
// @Success 204 "No Content"
// @Failure 404 {object} errors.APIError
// @Router /layouts/{id}/widgets/{widgetId}/move [post]
func (h *WidgetHandlers) MoveWidget(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	layoutID := vars["id"]
	widgetID := vars["widgetId"]
	requestID := nuts.NID("req", 12)

	var pos models.Position
	if err := json.NewDecoder(r.Body).Decode(&pos); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}

	if err := h.dashservice.Store.MoveWidget(r.Context(), layoutID, widgetID, pos); err != nil {
		respondWithServiceError(w, err, requestID)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// @Summary Remove a widget
// @Description Remove a widget from a layout. Removing an already absent widget is a no-op.
// @Tags widgets
// @Produce json
// @Param id path string true "Layout ID"
// @Param widgetId path string true "Widget ID"
// @Success 204 "No Content"
// @Failure 404 {object} errors.APIError
// @Router /layouts/{id}/widgets/{widgetId} [delete]
func (h *WidgetHandlers) RemoveWidget(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	layoutID := vars["id"]
	widgetID := vars["widgetId"]
	requestID := nuts.NID("req", 12)

	if err := h.dashservice.RemoveWidget(r.Context(), layoutID, widgetID); err != nil {
		respondWithServiceError(w, err, requestID)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// @Summary Resolve widget data
// @Description Resolve a widget's data payload: a scalar for single-value widgets, an aligned series table plus legend for chart widgets
// @Tags widgets
// @Produce json
// @Param id path string true "Layout ID"
// @Param widgetId path string true "Widget ID"
// @Success 200 {object} dashservice.WidgetData
// @Failure 404 {object} errors.APIError
// @Router /layouts/{id}/widgets/{widgetId}/data [get]
func (h *WidgetHandlers) GetWidgetData(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	layoutID := vars["id"]
	widgetID := vars["widgetId"]
	requestID := nuts.NID("req", 12)

	data, err := h.dashservice.ResolveWidget(r.Context(), layoutID, widgetID)
	if err != nil {
		respondWithServiceError(w, err, requestID)
		return
	}

	respondWithJSON(w, http.StatusOK, data)
}
