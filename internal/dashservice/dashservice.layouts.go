// FilePath: internal/dashservice/dashservice.layouts.go
package dashservice

import (
	"context"

	"github.com/itsatony/struccy"
	nuts "github.com/vaudience/go-nuts"

	"github.com/traksense/hub/internal/errors"
	"github.com/traksense/hub/internal/models"
)

// ListLayouts returns all layouts with role-based field filtering applied
func (s *DashService) ListLayouts(ctx context.Context) ([]*models.Layout, error) {
	roles := GetUserRoles(ctx)
	layouts := s.Store.Layouts()
	filtered := make([]*models.Layout, 0, len(layouts))
	for _, layout := range layouts {
		f, err := filterLayout(layout, roles)
		if err != nil {
			return nil, err
		}
		filtered = append(filtered, f)
	}
	return filtered, nil
}

// GetLayout retrieves a layout with role-based field filtering
func (s *DashService) GetLayout(ctx context.Context, id string) (*models.Layout, error) {
	layout, err := s.Store.Layout(id)
	if err != nil {
		return nil, err
	}
	return filterLayout(layout, GetUserRoles(ctx))
}

// filterLayout strips fields the caller's roles may not read
func filterLayout(layout *models.Layout, roles []string) (*models.Layout, error) {
	filteredMap, err := struccy.StructToMapFieldsWithReadXS(layout, roles)
	if err != nil {
		return nil, errors.NewInternalError("failed to filter layout fields", err)
	}
	filtered := &models.Layout{}
	_, err = struccy.MergeMapStringFieldsToStruct(filtered, filteredMap, roles)
	if err != nil {
		return nil, errors.NewInternalError("failed to map filtered fields to layout struct", err)
	}
	// Widgets carry no read restrictions, pass them through as-is
	filtered.Widgets = layout.Widgets
	return filtered, nil
}

// CreateLayout creates a layout, optionally cloning the widgets of fromID
func (s *DashService) CreateLayout(ctx context.Context, name, fromID string) (*models.Layout, error) {
	layout, err := s.Store.CreateLayout(ctx, name, fromID)
	if err != nil {
		return nil, err
	}
	nuts.L.Infof("[DashService] Created layout %s (%s)", layout.Name, layout.ID)
	return layout, nil
}

// UpdateWidget applies a role-checked widget patch and releases the widget's
// cached data when its binding changed
func (s *DashService) UpdateWidget(ctx context.Context, layoutID, widgetID string, patch *models.Widget) (*models.Widget, error) {
	roles := GetUserRoles(ctx)
	before, err := s.Store.Layout(layoutID)
	if err != nil {
		return nil, err
	}
	prev := before.Widget(widgetID)

	updated, err := s.Store.UpdateWidget(ctx, layoutID, widgetID, patch, roles)
	if err != nil {
		return nil, err
	}
	if prev != nil && bindingChanged(prev.Config, updated.Config) {
		// Rebind: drop the stale series so the old binding's data can never
		// render under the new one
		s.Coordinator.Invalidate(widgetDataKey(widgetID))
	}
	return updated, nil
}

// RemoveWidget deletes a widget and its cached data
func (s *DashService) RemoveWidget(ctx context.Context, layoutID, widgetID string) error {
	if err := s.Store.RemoveWidget(ctx, layoutID, widgetID); err != nil {
		return err
	}
	s.Coordinator.Deregister(widgetDataKey(widgetID))
	return nil
}

// bindingChanged reports whether the widget now points at different data:
// a changed asset or device scope, or a changed sensor selection within the
// same scope. Any of these retires the cached query.
func bindingChanged(a, b models.WidgetConfig) bool {
	switch {
	case (a.AssetID == nil) != (b.AssetID == nil):
		return true
	case a.AssetID != nil && *a.AssetID != *b.AssetID:
		return true
	case (a.DeviceID == nil) != (b.DeviceID == nil):
		return true
	case a.DeviceID != nil && *a.DeviceID != *b.DeviceID:
		return true
	case (a.SensorTag == nil) != (b.SensorTag == nil):
		return true
	case a.SensorTag != nil && *a.SensorTag != *b.SensorTag:
		return true
	case len(a.SensorTags) != len(b.SensorTags):
		return true
	}
	for i := range a.SensorTags {
		if a.SensorTags[i] != b.SensorTags[i] {
			return true
		}
	}
	return false
}
