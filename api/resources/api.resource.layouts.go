// FilePath: api/resources/api.resource.layouts.go
package resources

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	nuts "github.com/vaudience/go-nuts"

	"github.com/traksense/hub/internal/dashservice"
	"github.com/traksense/hub/internal/errors"
)

// LayoutHandlers encapsulates the layout-related HTTP handlers
type LayoutHandlers struct {
	dashservice *dashservice.DashService
}

type createLayoutRequest struct {
	Name   string `json:"name"`
	FromID string `json:"from_id,omitempty"`
}

type renameLayoutRequest struct {
	Name string `json:"name"`
}

type reorderRequest struct {
	WidgetIDs []string `json:"widget_ids"`
}

type editModeRequest struct {
	Enabled bool `json:"enabled"`
}

// @Summary List layouts
// @Description Get all dashboard layouts with role-filtered fields
// @Tags layouts
// @Produce json
// @Success 200 {array} models.Layout
// @Router /layouts [get]
func (h *LayoutHandlers) ListLayouts(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	layouts, err := h.dashservice.ListLayouts(r.Context())
	if err != nil {
		respondWithServiceError(w, err, requestID)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"layouts":           layouts,
		"current_layout_id": h.dashservice.Store.CurrentLayoutID(),
		"edit_mode":         h.dashservice.Store.EditMode(),
	})
}

// @Summary Create a layout
// @Description Create a new layout, optionally cloning widgets from an existing one
// @Tags layouts
// @Accept json
// @Produce json
// @Param layout body createLayoutRequest true "Layout details"
// @Success 201 {object} models.Layout
// @Failure 400 {object} errors.APIError
// @Router /layouts [post]
func (h *LayoutHandlers) CreateLayout(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	var req createLayoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}

	layout, err := h.dashservice.CreateLayout(r.Context(), req.Name, req.FromID)
	if err != nil {
		respondWithServiceError(w, err, requestID)
		return
	}

	respondWithJSON(w, http.StatusCreated, layout)
}

// @Summary Get a layout by ID
// @Tags layouts
// @Produce json
// @Param id path string true "Layout ID"
// @Success 200 {object} models.Layout
// @Failure 404 {object} errors.APIError
// @Router /layouts/{id} [get]
func (h *LayoutHandlers) GetLayout(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]
	requestID := nuts.NID("req", 12)

	layout, err := h.dashservice.GetLayout(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, err, requestID)
		return
	}

	respondWithJSON(w, http.StatusOK, layout)
}

// @Summary Rename a layout
// @Tags layouts
// @Accept json
// @Produce json
// @Param id path string true "Layout ID"
// @Param layout body renameLayoutRequest true "New name"
// @Success 200 {object} models.Layout
// @Failure 404 {object} errors.APIError
// @Router /layouts/{id} [put]
func (h *LayoutHandlers) RenameLayout(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]
	requestID := nuts.NID("req", 12)

	var req renameLayoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}

	if err := h.dashservice.Store.RenameLayout(r.Context(), id, req.Name); err != nil {
		respondWithServiceError(w, err, requestID)
		return
	}

	layout, err := h.dashservice.GetLayout(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, err, requestID)
		return
	}
	respondWithJSON(w, http.StatusOK, layout)
}

// @Summary Delete a layout
// @Description Delete a layout. The default layout and the last remaining layout are protected.
// @Tags layouts
// @Produce json
// @Param id path string true "Layout ID"
// @Success 204 "No Content"
// @Failure 404 {object} errors.APIError
// @Failure 409 {object} errors.APIError
// @Router /layouts/{id} [delete]
func (h *LayoutHandlers) DeleteLayout(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]
	requestID := nuts.NID("req", 12)

	if err := h.dashservice.Store.DeleteLayout(r.Context(), id); err != nil {
		respondWithServiceError(w, err, requestID)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// @Summary Activate a layout
// @Description Make the layout the currently displayed one
// @Tags layouts
// @Produce json
// @Param id path string true "Layout ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} errors.APIError
// @Router /layouts/{id}/activate [post]
func (h *LayoutHandlers) ActivateLayout(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]
	requestID := nuts.NID("req", 12)

	if err := h.dashservice.Store.SetCurrentLayout(r.Context(), id); err != nil {
		respondWithServiceError(w, err, requestID)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"current_layout_id": id})
}

// @Summary Reorder widgets
// @Description Atomically reorder a layout's widgets. The id list must be a permutation of the existing widget ids.
// @Tags layouts
// @Accept json
// @Produce json
// @Param id path string true "Layout ID"
// @Param order body reorderRequest true "Widget ids in display order"
// @Success 200 {object} models.Layout
// @Failure 400 {object} errors.APIError
// @Router /layouts/{id}/reorder [post]
func (h *LayoutHandlers) ReorderWidgets(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]
	requestID := nuts.NID("req", 12)

	var req reorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}

	if err := h.dashservice.Store.ReorderWidgets(r.Context(), id, req.WidgetIDs); err != nil {
		respondWithServiceError(w, err, requestID)
		return
	}

	layout, err := h.dashservice.GetLayout(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, err, requestID)
		return
	}
	respondWithJSON(w, http.StatusOK, layout)
}

// @Summary Reset widget sizes
// @Description Clear all manual size overrides in a layout
// @Tags layouts
// @Produce json
// @Param id path string true "Layout ID"
// @Success 204 "No Content"
// @Failure 404 {object} errors.APIError
// @Router /layouts/{id}/reset-sizes [post]
func (h *LayoutHandlers) ResetWidgetSizes(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]
	requestID := nuts.NID("req", 12)

	if err := h.dashservice.Store.ResetWidgetSizes(r.Context(), id); err != nil {
		respondWithServiceError(w, err, requestID)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// @Summary Reset all layouts
// @Description Replace all layouts with the built-in default set
// @Tags layouts
// @Produce json
// @Success 204 "No Content"
// @Router /layouts/reset [post]
func (h *LayoutHandlers) ResetToDefault(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	if err := h.dashservice.Store.ResetToDefault(r.Context()); err != nil {
		respondWithServiceError(w, err, requestID)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// @Summary Set edit mode
// @Description Toggle the dashboard's edit mode. Edit mode is session state and never persisted.
// @Tags layouts
// @Accept json
// @Produce json
// @Param mode body editModeRequest true "Edit mode flag"
// @Success 200 {object} map[string]bool
// @Router /ui/edit-mode [put]
func (h *LayoutHandlers) SetEditMode(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	var req editModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}

	h.dashservice.Store.SetEditMode(req.Enabled)
	respondWithJSON(w, http.StatusOK, map[string]bool{"edit_mode": req.Enabled})
}
