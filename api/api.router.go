// FilePath: api/api.router.go
package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/traksense/hub/api/resources"
	"github.com/traksense/hub/internal/dashservice"
)

type Router struct {
	router    *mux.Router
	resources *resources.Resources
}

func NewRouter(svc *dashservice.DashService) *Router {
	r := &Router{
		router:    mux.NewRouter(),
		resources: resources.NewResources(svc),
	}

	r.setupRoutes()
	return r
}

func (r *Router) setupRoutes() {
	// API version prefix
	api := r.router.PathPrefix("/api/v1").Subrouter()

	// Public routes. Health is bound through a closure so the server can
	// install its handler after router construction.
	api.HandleFunc("/health", func(w http.ResponseWriter, req *http.Request) {
		if r.resources.HealthCheck == nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		r.resources.HealthCheck(w, req)
	}).Methods(http.MethodGet)

	// Widget type registry
	api.HandleFunc("/widget-definitions", r.resources.Widgets.ListDefinitions).Methods(http.MethodGet)

	// Layouts
	layouts := api.PathPrefix("/layouts").Subrouter()
	layouts.HandleFunc("", r.resources.Layouts.ListLayouts).Methods(http.MethodGet)
	layouts.HandleFunc("", r.resources.Layouts.CreateLayout).Methods(http.MethodPost)
	layouts.HandleFunc("/reset", r.resources.Layouts.ResetToDefault).Methods(http.MethodPost)
	layouts.HandleFunc("/{id}", r.resources.Layouts.GetLayout).Methods(http.MethodGet)
	layouts.HandleFunc("/{id}", r.resources.Layouts.RenameLayout).Methods(http.MethodPut)
	layouts.HandleFunc("/{id}", r.resources.Layouts.DeleteLayout).Methods(http.MethodDelete)
	layouts.HandleFunc("/{id}/activate", r.resources.Layouts.ActivateLayout).Methods(http.MethodPost)
	layouts.HandleFunc("/{id}/reorder", r.resources.Layouts.ReorderWidgets).Methods(http.MethodPost)
	layouts.HandleFunc("/{id}/reset-sizes", r.resources.Layouts.ResetWidgetSizes).Methods(http.MethodPost)

	// Widgets
	layouts.HandleFunc("/{id}/widgets", r.resources.Widgets.AddWidget).Methods(http.MethodPost)
	layouts.HandleFunc("/{id}/widgets/{widgetId}", r.resources.Widgets.UpdateWidget).Methods(http.MethodPut)
	layouts.HandleFunc("/{id}/widgets/{widgetId}", r.resources.Widgets.RemoveWidget).Methods(http.MethodDelete)
	layouts.HandleFunc("/{id}/widgets/{widgetId}/rebind", r.resources.Widgets.RebindWidget).Methods(http.MethodPost)
	layouts.HandleFunc("/{id}/widgets/{widgetId}/move", r.resources.Widgets.MoveWidget).Methods(http.MethodPost)
	layouts.HandleFunc("/{id}/widgets/{widgetId}/data", r.resources.Widgets.GetWidgetData).Methods(http.MethodGet)

	// UI state
	api.HandleFunc("/ui/edit-mode", r.resources.Layouts.SetEditMode).Methods(http.MethodPut)

	// Monitor boards
	monitor := api.PathPrefix("/monitor").Subrouter()
	monitor.HandleFunc("/devices", r.resources.Monitor.ListDeviceSummaries).Methods(http.MethodGet)
	monitor.HandleFunc("/assets", r.resources.Monitor.ListAssets).Methods(http.MethodGet)
	monitor.HandleFunc("/assets/{id}/sensors", r.resources.Monitor.ListAssetSensors).Methods(http.MethodGet)
	monitor.HandleFunc("/alerts", r.resources.Monitor.ListAlerts).Methods(http.MethodGet)
	monitor.HandleFunc("/rules", r.resources.Monitor.ListRules).Methods(http.MethodGet)
	monitor.HandleFunc("/rules", r.resources.Monitor.CreateRule).Methods(http.MethodPost)
	monitor.HandleFunc("/rules/{id}/toggle", r.resources.Monitor.ToggleRule).Methods(http.MethodPost)
}

func (r *Router) SetHealthCheck(h func(w http.ResponseWriter, req *http.Request)) {
	r.resources.SetHealthCheck(h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.router.ServeHTTP(w, req)
}
