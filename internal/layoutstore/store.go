// FilePath: internal/layoutstore/store.go

// Package layoutstore owns the persisted collection of dashboard layouts and
// their widgets. The store is the single writer of layout state; everything
// the UI renders flows out of it, and every mutation flows through it.
package layoutstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/itsatony/struccy"
	"github.com/traksense/hub/internal/errors"
	"github.com/traksense/hub/internal/models"
	"github.com/traksense/hub/internal/widgets"
	nuts "github.com/vaudience/go-nuts"
)

// Store events emitted on mutations
const (
	EventLayoutCreated     = "layout.created"
	EventLayoutDeleted     = "layout.deleted"
	EventLayoutActivated   = "layout.activated"
	EventWidgetAdded       = "widget.added"
	EventWidgetRemoved     = "widget.removed"
	EventLayoutsReset      = "layouts.reset"
	EventPersistenceFailed = "persistence.failed"
)

const defaultLayoutID = "default"

// Store is the authoritative collection of layouts. All exported methods are
// safe for concurrent use; internally a single mutex serializes writers.
type Store struct {
	mu       sync.Mutex
	persist  Persistence
	layouts  []*models.Layout
	current  string
	editMode bool
	degraded bool
	events   *nuts.EventEmitter
}

// New creates a Store backed by the given persistence. A missing persisted
// collection seeds the built-in default set; a failing persistence falls back
// to the defaults in memory and marks the store degraded instead of crashing.
func New(ctx context.Context, persist Persistence) *Store {
	s := &Store{
		persist: persist,
		events:  nuts.NewEventEmitter(),
	}

	layouts, err := persist.LoadLayouts(ctx)
	switch {
	case err == nil:
		s.layouts = layouts
	case err == ErrNotFound:
		nuts.L.Infof("[LayoutStore] No persisted layouts, seeding defaults")
		s.layouts = defaultLayouts()
	default:
		nuts.L.Warnf("[LayoutStore] Failed to load layouts, falling back to defaults: %v", err)
		s.layouts = defaultLayouts()
		s.degraded = true
	}
	s.ensureDefaultLocked()

	s.current = defaultLayoutID
	if state, err := persist.LoadUIState(ctx); err == nil && s.findLocked(state.CurrentLayoutID) != nil {
		s.current = state.CurrentLayoutID
	}

	return s
}

func defaultLayouts() []*models.Layout {
	now := time.Now()
	return []*models.Layout{{
		ID:        defaultLayoutID,
		Name:      "Default",
		IsDefault: true,
		Widgets:   []*models.Widget{},
		CreatedAt: now,
		UpdatedAt: now,
	}}
}

// ensureDefaultLocked repairs a persisted collection that lost its default
// marker: exactly one layout must be the default at all times.
func (s *Store) ensureDefaultLocked() {
	var seen bool
	for _, l := range s.layouts {
		if l.IsDefault {
			if seen {
				l.IsDefault = false
				continue
			}
			seen = true
		}
	}
	if !seen {
		if len(s.layouts) == 0 {
			s.layouts = defaultLayouts()
			return
		}
		s.layouts[0].IsDefault = true
	}
}

// Degraded reports whether the store is running on in-memory defaults because
// persistence failed at load time
func (s *Store) Degraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.degraded
}

// OnEvent registers a callback for a store event; the handler receives the
// affected layout or widget id
func (s *Store) OnEvent(event string, handler func(id string)) {
	s.events.On(event, "store_handler", func(args ...interface{}) {
		if len(args) > 0 {
			if id, ok := args[0].(string); ok {
				handler(id)
			}
		}
	})
}

// Layouts returns deep copies of all layouts in display order
func (s *Store) Layouts() []*models.Layout {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Layout, len(s.layouts))
	for i, l := range s.layouts {
		out[i] = l.Clone()
	}
	return out
}

// Layout returns a deep copy of one layout
func (s *Store) Layout(id string) (*models.Layout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.findLocked(id)
	if l == nil {
		return nil, errors.NewNotFoundError(fmt.Sprintf("layout %s not found", id), nil)
	}
	return l.Clone(), nil
}

// CurrentLayoutID returns the active layout id
func (s *Store) CurrentLayoutID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// CurrentLayout returns a deep copy of the active layout
func (s *Store) CurrentLayout() *models.Layout {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l := s.findLocked(s.current); l != nil {
		return l.Clone()
	}
	return s.defaultLocked().Clone()
}

// SetCurrentLayout switches the active layout
func (s *Store) SetCurrentLayout(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findLocked(id) == nil {
		return errors.NewNotFoundError(fmt.Sprintf("layout %s not found", id), nil)
	}
	s.current = id
	s.persistLocked(ctx)
	s.events.Emit(EventLayoutActivated, id)
	return nil
}

// CreateLayout appends a new layout and makes it active. A non-empty fromID
// clones that layout's widgets with fresh widget ids.
func (s *Store) CreateLayout(ctx context.Context, name, fromID string) (*models.Layout, error) {
	if name == "" {
		return nil, errors.NewValidationError("layout name is required", nil)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	layout := &models.Layout{
		ID:        nuts.NID("ly", 12),
		Name:      name,
		Widgets:   []*models.Widget{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if fromID != "" {
		source := s.findLocked(fromID)
		if source == nil {
			return nil, errors.NewNotFoundError(fmt.Sprintf("source layout %s not found", fromID), nil)
		}
		for _, w := range source.Widgets {
			clone := w.Clone()
			clone.ID = nuts.NID("wg", 12)
			layout.Widgets = append(layout.Widgets, clone)
		}
	}

	s.layouts = append(s.layouts, layout)
	s.current = layout.ID
	s.persistLocked(ctx)
	s.events.Emit(EventLayoutCreated, layout.ID)
	nuts.L.Infof("[LayoutStore] Created layout %s (%s)", layout.Name, layout.ID)
	return layout.Clone(), nil
}

// RenameLayout updates the layout name
func (s *Store) RenameLayout(ctx context.Context, id, name string) error {
	if name == "" {
		return errors.NewValidationError("layout name is required", nil)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.findLocked(id)
	if l == nil {
		return errors.NewNotFoundError(fmt.Sprintf("layout %s not found", id), nil)
	}
	l.Name = name
	l.UpdatedAt = time.Now()
	s.persistLocked(ctx)
	return nil
}

// DeleteLayout removes a non-default layout. The default layout is protected
// regardless of how many layouts exist, and the last remaining layout cannot
// be deleted either. If the deleted layout was active, the default layout
// becomes active. Deleting a layout destroys its widgets.
func (s *Store) DeleteLayout(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.findLocked(id)
	if l == nil {
		return errors.NewNotFoundError(fmt.Sprintf("layout %s not found", id), nil)
	}
	if l.IsDefault {
		return errors.NewInvariantError("the default layout cannot be deleted", nil)
	}
	if len(s.layouts) <= 1 {
		return errors.NewInvariantError("the last remaining layout cannot be deleted", nil)
	}

	kept := s.layouts[:0]
	for _, candidate := range s.layouts {
		if candidate.ID != id {
			kept = append(kept, candidate)
		}
	}
	s.layouts = kept
	if s.current == id {
		s.current = s.defaultLocked().ID
	}
	s.persistLocked(ctx)
	s.events.Emit(EventLayoutDeleted, id)
	nuts.L.Infof("[LayoutStore] Deleted layout %s", id)
	return nil
}

// AddWidget creates a widget of the given type and appends it to the layout
func (s *Store) AddWidget(ctx context.Context, layoutID string, widgetType models.WidgetType, title string, pos models.Position) (*models.Widget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.findLocked(layoutID)
	if l == nil {
		return nil, errors.NewNotFoundError(fmt.Sprintf("layout %s not found", layoutID), nil)
	}
	w, err := widgets.New(widgetType, title)
	if err != nil {
		return nil, err
	}
	w.Position = pos
	l.Widgets = append(l.Widgets, w)
	l.UpdatedAt = time.Now()
	s.persistLocked(ctx)
	s.events.Emit(EventWidgetAdded, w.ID)
	return w.Clone(), nil
}

// UpdateWidget applies a partial widget update with role-based field access.
// Type is immutable after creation; config changes are validated against the
// widget type and shallow-merged.
func (s *Store) UpdateWidget(ctx context.Context, layoutID, widgetID string, patch *models.Widget, roles []string) (*models.Widget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.findLocked(layoutID)
	if l == nil {
		return nil, errors.NewNotFoundError(fmt.Sprintf("layout %s not found", layoutID), nil)
	}
	w := l.Widget(widgetID)
	if w == nil {
		return nil, errors.NewNotFoundError(fmt.Sprintf("widget %s not found", widgetID), nil)
	}
	if patch.Type != "" && patch.Type != w.Type {
		return nil, errors.NewValidationError("widget type is immutable", nil)
	}

	// Config merges are pointer-aware and type-validated; keep them away from
	// the generic field merge.
	cfgPatch := patch.Config
	fieldPatch := *patch
	fieldPatch.Config = models.WidgetConfig{}

	updatedFields, _, err := struccy.UpdateStructFields(w, &fieldPatch, roles, true, true)
	if err != nil {
		return nil, errors.NewValidationError("unauthorized widget field update", err)
	}
	if err := widgets.UpdateConfig(w, cfgPatch); err != nil {
		return nil, err
	}
	if len(updatedFields) > 0 {
		nuts.L.Infof("[LayoutStore] Updated widget %s, fields changed: %v", widgetID, changedFieldNames(updatedFields))
	}
	l.UpdatedAt = time.Now()
	s.persistLocked(ctx)
	return w.Clone(), nil
}

// changedFieldNames reduces struccy's updated-fields map to its sorted key
// names so the log line carries field names, not field values
func changedFieldNames(fields map[string]interface{}) []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RebindWidget replaces the widget's asset/device scope and clears its sensor
// selection
func (s *Store) RebindWidget(ctx context.Context, layoutID, widgetID string, assetID *int64, deviceID *string) (*models.Widget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.findLocked(layoutID)
	if l == nil {
		return nil, errors.NewNotFoundError(fmt.Sprintf("layout %s not found", layoutID), nil)
	}
	w := l.Widget(widgetID)
	if w == nil {
		return nil, errors.NewNotFoundError(fmt.Sprintf("widget %s not found", widgetID), nil)
	}
	widgets.Rebind(w, assetID, deviceID)
	l.UpdatedAt = time.Now()
	s.persistLocked(ctx)
	return w.Clone(), nil
}

// RemoveWidget deletes a widget from the layout. Removing a widget id that
// does not exist is a no-op, not an error.
func (s *Store) RemoveWidget(ctx context.Context, layoutID, widgetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.findLocked(layoutID)
	if l == nil {
		return errors.NewNotFoundError(fmt.Sprintf("layout %s not found", layoutID), nil)
	}
	for i, w := range l.Widgets {
		if w.ID == widgetID {
			l.Widgets = append(l.Widgets[:i], l.Widgets[i+1:]...)
			l.UpdatedAt = time.Now()
			s.persistLocked(ctx)
			s.events.Emit(EventWidgetRemoved, widgetID)
			return nil
		}
	}
	return nil
}

// MoveWidget updates the advisory position hint
func (s *Store) MoveWidget(ctx context.Context, layoutID, widgetID string, pos models.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.findLocked(layoutID)
	if l == nil {
		return errors.NewNotFoundError(fmt.Sprintf("layout %s not found", layoutID), nil)
	}
	w := l.Widget(widgetID)
	if w == nil {
		return errors.NewNotFoundError(fmt.Sprintf("widget %s not found", widgetID), nil)
	}
	w.Position = pos
	w.UpdatedAt = time.Now()
	l.UpdatedAt = w.UpdatedAt
	s.persistLocked(ctx)
	return nil
}

// ReorderWidgets replaces the widget display order atomically. The id list
// must be a complete permutation of the layout's widget ids; a partial or
// unknown id list is rejected and the existing order is left untouched.
func (s *Store) ReorderWidgets(ctx context.Context, layoutID string, orderedIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.findLocked(layoutID)
	if l == nil {
		return errors.NewNotFoundError(fmt.Sprintf("layout %s not found", layoutID), nil)
	}
	if len(orderedIDs) != len(l.Widgets) {
		return errors.NewValidationError("reorder list must contain every widget id exactly once", nil)
	}
	byID := make(map[string]*models.Widget, len(l.Widgets))
	for _, w := range l.Widgets {
		byID[w.ID] = w
	}
	reordered := make([]*models.Widget, 0, len(orderedIDs))
	for _, id := range orderedIDs {
		w, ok := byID[id]
		if !ok {
			return errors.NewValidationError(fmt.Sprintf("unknown widget id in reorder list: %s", id), nil)
		}
		delete(byID, id)
		reordered = append(reordered, w)
	}
	l.Widgets = reordered
	l.UpdatedAt = time.Now()
	s.persistLocked(ctx)
	return nil
}

// ResetWidgetSizes clears the per-widget width/height overrides of a layout
func (s *Store) ResetWidgetSizes(ctx context.Context, layoutID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.findLocked(layoutID)
	if l == nil {
		return errors.NewNotFoundError(fmt.Sprintf("layout %s not found", layoutID), nil)
	}
	for _, w := range l.Widgets {
		w.Position.W = 0
		w.Position.H = 0
	}
	l.UpdatedAt = time.Now()
	s.persistLocked(ctx)
	return nil
}

// ResetToDefault replaces the whole collection with the built-in default set
// and exits edit mode. Destructive and irreversible; callers are expected to
// confirm with the user first.
func (s *Store) ResetToDefault(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.layouts = defaultLayouts()
	s.current = defaultLayoutID
	s.editMode = false
	s.persistLocked(ctx)
	s.events.Emit(EventLayoutsReset, defaultLayoutID)
	nuts.L.Infof("[LayoutStore] Layout collection reset to defaults")
	return nil
}

// SetEditMode toggles whether mutating UI affordances are shown. It never
// alters widget data.
func (s *Store) SetEditMode(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.editMode = on
}

// EditMode returns the edit mode flag
func (s *Store) EditMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editMode
}

func (s *Store) findLocked(id string) *models.Layout {
	for _, l := range s.layouts {
		if l.ID == id {
			return l
		}
	}
	return nil
}

func (s *Store) defaultLocked() *models.Layout {
	for _, l := range s.layouts {
		if l.IsDefault {
			return l
		}
	}
	return s.layouts[0]
}

// persistLocked saves the collection after a mutation. A failing save never
// crashes the store; it is logged and surfaced as an event.
func (s *Store) persistLocked(ctx context.Context) {
	if err := s.persist.SaveLayouts(ctx, s.layouts); err != nil {
		nuts.L.Warnf("[LayoutStore] Failed to persist layouts: %v", err)
		s.events.Emit(EventPersistenceFailed, err.Error())
		return
	}
	if err := s.persist.SaveUIState(ctx, &UIState{CurrentLayoutID: s.current}); err != nil {
		nuts.L.Warnf("[LayoutStore] Failed to persist ui state: %v", err)
		s.events.Emit(EventPersistenceFailed, err.Error())
	}
}
