// FilePath: internal/dashservice/dashservice.go
package dashservice

import (
	"context"

	"github.com/traksense/hub/internal/errors"
	"github.com/traksense/hub/internal/layoutstore"
	"github.com/traksense/hub/internal/refresh"
	"github.com/traksense/hub/internal/telemetry"
)

// DashService wires the layout store, the refresh coordinator and the
// telemetry source into the dashboard's service surface
type DashService struct {
	Store       *layoutstore.Store
	Source      telemetry.Source
	Coordinator *refresh.Coordinator
}

// New creates a new DashService instance and registers the shared monitor
// queries with the coordinator
func New(store *layoutstore.Store, source telemetry.Source, coordinator *refresh.Coordinator) *DashService {
	svc := &DashService{
		Store:       store,
		Source:      source,
		Coordinator: coordinator,
	}
	svc.registerMonitorQueries()
	return svc
}

// Validate checks if all required dependencies are initialized
func (s *DashService) Validate() error {
	if s.Store == nil {
		return ErrMissingDependency("store")
	}
	if s.Source == nil {
		return ErrMissingDependency("telemetry source")
	}
	if s.Coordinator == nil {
		return ErrMissingDependency("refresh coordinator")
	}
	return nil
}

func ErrMissingDependency(name string) error {
	return errors.NewInternalError("missing dependency: "+name, nil)
}

type contextKey string

const userRolesKey contextKey = "user_roles"

// WithUserRoles attaches the caller's roles to the context
func WithUserRoles(ctx context.Context, roles []string) context.Context {
	return context.WithValue(ctx, userRolesKey, roles)
}

// GetUserRoles retrieves user roles from context, defaulting to guest
func GetUserRoles(ctx context.Context) []string {
	if roles := ctx.Value(userRolesKey); roles != nil {
		if r, ok := roles.([]string); ok {
			return r
		}
	}
	return []string{"guest"}
}
