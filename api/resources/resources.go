// FilePath: api/resources/resources.go
package resources

import (
	"encoding/json"
	"net/http"

	nuts "github.com/vaudience/go-nuts"

	"github.com/traksense/hub/internal/dashservice"
	"github.com/traksense/hub/internal/errors"
)

// Resources holds all HTTP resource handlers
type Resources struct {
	Layouts     *LayoutHandlers
	Widgets     *WidgetHandlers
	Monitor     *MonitorHandlers
	HealthCheck func(w http.ResponseWriter, r *http.Request)
}

// NewResources creates a new Resources instance
func NewResources(svc *dashservice.DashService) *Resources {
	return &Resources{
		Layouts: &LayoutHandlers{dashservice: svc},
		Widgets: &WidgetHandlers{dashservice: svc},
		Monitor: &MonitorHandlers{dashservice: svc},
	}
}

// SetHealthCheck sets the health check handler
func (r *Resources) SetHealthCheck(h func(w http.ResponseWriter, r *http.Request)) {
	r.HealthCheck = h
}

// Helper functions

func respondWithError(w http.ResponseWriter, err *errors.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Code)
	json.NewEncoder(w).Encode(err)
	nuts.L.Errorf("[API] %s", err.Error())
}

// respondWithServiceError preserves the service's error taxonomy and HTTP
// code instead of flattening everything to 500
func respondWithServiceError(w http.ResponseWriter, err error, requestID string) {
	if apiErr, ok := errors.AsAPIError(err); ok {
		respondWithError(w, apiErr.WithRequestID(requestID))
		return
	}
	respondWithError(w, errors.NewInternalError("unexpected error", err).WithRequestID(requestID))
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}
