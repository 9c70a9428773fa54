// FilePath: internal/layoutstore/store_test.go
package layoutstore

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/traksense/hub/internal/errors"
	"github.com/traksense/hub/internal/models"
)

var userRoles = []string{"user"}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(context.Background(), NewMemoryPersistence())
}

// failingPersistence errors on every operation
type failingPersistence struct{}

func (failingPersistence) LoadLayouts(context.Context) ([]*models.Layout, error) {
	return nil, fmt.Errorf("connection refused")
}

func (failingPersistence) SaveLayouts(context.Context, []*models.Layout) error {
	return fmt.Errorf("connection refused")
}

func (failingPersistence) LoadUIState(context.Context) (*UIState, error) {
	return nil, fmt.Errorf("connection refused")
}

func (failingPersistence) SaveUIState(context.Context, *UIState) error {
	return fmt.Errorf("connection refused")
}

func TestNewSeedsDefaultLayout(t *testing.T) {
	s := newTestStore(t)

	layouts := s.Layouts()
	require.Len(t, layouts, 1)
	require.True(t, layouts[0].IsDefault)
	require.Equal(t, layouts[0].ID, s.CurrentLayoutID())
	require.False(t, s.Degraded())
}

func TestNewFallsBackWhenPersistenceFails(t *testing.T) {
	s := New(context.Background(), failingPersistence{})

	require.True(t, s.Degraded())
	require.Len(t, s.Layouts(), 1)
	require.NotNil(t, s.CurrentLayout())
}

func TestPersistenceFailureDoesNotBlockMutations(t *testing.T) {
	s := New(context.Background(), failingPersistence{})

	var mu sync.Mutex
	var failures int
	s.OnEvent(EventPersistenceFailed, func(string) {
		mu.Lock()
		failures++
		mu.Unlock()
	})

	layout, err := s.CreateLayout(context.Background(), "Ops Floor", "")
	require.NoError(t, err)
	require.NotNil(t, layout)
	require.Len(t, s.Layouts(), 2)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return failures > 0
	}, time.Second, 10*time.Millisecond)
}

func TestCreateLayoutBecomesActive(t *testing.T) {
	s := newTestStore(t)

	layout, err := s.CreateLayout(context.Background(), "Ops Floor", "")
	require.NoError(t, err)
	require.Equal(t, layout.ID, s.CurrentLayoutID())
	require.False(t, layout.IsDefault)

	_, err = s.CreateLayout(context.Background(), "", "")
	require.Error(t, err)
	require.True(t, errors.IsValidation(err))
}

func TestCreateLayoutClonesWidgetsWithFreshIDs(t *testing.T) {
	s := newTestStore(t)
	defaultID := s.CurrentLayoutID()

	w, err := s.AddWidget(context.Background(), defaultID, models.WidgetCardKPI, "Supply Temp", models.Position{X: 0, Y: 0})
	require.NoError(t, err)

	clone, err := s.CreateLayout(context.Background(), "Copy", defaultID)
	require.NoError(t, err)
	require.Len(t, clone.Widgets, 1)
	require.Equal(t, "Supply Temp", clone.Widgets[0].Title)
	require.NotEqual(t, w.ID, clone.Widgets[0].ID)

	// Mutating the clone leaves the source untouched
	require.NoError(t, s.RemoveWidget(context.Background(), clone.ID, clone.Widgets[0].ID))
	source, err := s.Layout(defaultID)
	require.NoError(t, err)
	require.Len(t, source.Widgets, 1)
}

func TestDeleteLayoutProtections(t *testing.T) {
	s := newTestStore(t)
	defaultID := s.CurrentLayoutID()

	// The default layout can never be deleted
	err := s.DeleteLayout(context.Background(), defaultID)
	require.Error(t, err)
	require.True(t, errors.IsInvariant(err))

	layout, err := s.CreateLayout(context.Background(), "Second", "")
	require.NoError(t, err)

	// Deleting the active layout reactivates the default
	require.NoError(t, s.DeleteLayout(context.Background(), layout.ID))
	require.Equal(t, defaultID, s.CurrentLayoutID())

	err = s.DeleteLayout(context.Background(), "nope")
	require.Error(t, err)
	require.True(t, errors.IsNotFound(err))
}

func TestReorderWidgetsIsAtomic(t *testing.T) {
	s := newTestStore(t)
	layoutID := s.CurrentLayoutID()
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		w, err := s.AddWidget(ctx, layoutID, models.WidgetCardValue, fmt.Sprintf("W%d", i), models.Position{})
		require.NoError(t, err)
		ids = append(ids, w.ID)
	}

	// Partial list rejected, order untouched
	err := s.ReorderWidgets(ctx, layoutID, ids[:2])
	require.Error(t, err)
	require.True(t, errors.IsValidation(err))

	// Unknown id rejected, order untouched
	err = s.ReorderWidgets(ctx, layoutID, []string{ids[0], ids[1], "bogus"})
	require.Error(t, err)

	layout, err := s.Layout(layoutID)
	require.NoError(t, err)
	for i, w := range layout.Widgets {
		require.Equal(t, ids[i], w.ID)
	}

	// Valid permutation applies
	require.NoError(t, s.ReorderWidgets(ctx, layoutID, []string{ids[2], ids[0], ids[1]}))
	layout, err = s.Layout(layoutID)
	require.NoError(t, err)
	require.Equal(t, ids[2], layout.Widgets[0].ID)
	require.Equal(t, ids[0], layout.Widgets[1].ID)
}

func TestUpdateWidgetTypeIsImmutable(t *testing.T) {
	s := newTestStore(t)
	layoutID := s.CurrentLayoutID()
	ctx := context.Background()

	w, err := s.AddWidget(ctx, layoutID, models.WidgetCardKPI, "", models.Position{})
	require.NoError(t, err)

	_, err = s.UpdateWidget(ctx, layoutID, w.ID, &models.Widget{Type: models.WidgetChartLine}, userRoles)
	require.Error(t, err)
	require.True(t, errors.IsValidation(err))

	// Same type in the patch is allowed
	updated, err := s.UpdateWidget(ctx, layoutID, w.ID, &models.Widget{Type: models.WidgetCardKPI, Title: "Renamed"}, userRoles)
	require.NoError(t, err)
	require.Equal(t, "Renamed", updated.Title)
}

func TestUpdateWidgetValidatesConfigKeys(t *testing.T) {
	s := newTestStore(t)
	layoutID := s.CurrentLayoutID()
	ctx := context.Background()

	w, err := s.AddWidget(ctx, layoutID, models.WidgetCardKPI, "", models.Position{})
	require.NoError(t, err)

	chartType := "smooth"
	_, err = s.UpdateWidget(ctx, layoutID, w.ID, &models.Widget{
		Config: models.WidgetConfig{ChartType: &chartType},
	}, userRoles)
	require.Error(t, err)
	require.True(t, errors.IsValidation(err))
}

func TestChangedFieldNames(t *testing.T) {
	names := changedFieldNames(map[string]interface{}{
		"Title":    "Pump room",
		"Position": models.Position{X: 1},
	})
	require.Equal(t, []string{"Position", "Title"}, names)
	require.Empty(t, changedFieldNames(nil))
}

func TestRemoveWidgetMissingIsNoop(t *testing.T) {
	s := newTestStore(t)
	layoutID := s.CurrentLayoutID()

	require.NoError(t, s.RemoveWidget(context.Background(), layoutID, "never-existed"))

	err := s.RemoveWidget(context.Background(), "missing-layout", "x")
	require.Error(t, err)
	require.True(t, errors.IsNotFound(err))
}

func TestResetWidgetSizes(t *testing.T) {
	s := newTestStore(t)
	layoutID := s.CurrentLayoutID()
	ctx := context.Background()

	w, err := s.AddWidget(ctx, layoutID, models.WidgetCardKPI, "", models.Position{X: 1, Y: 2, W: 3, H: 2})
	require.NoError(t, err)

	require.NoError(t, s.ResetWidgetSizes(ctx, layoutID))

	layout, err := s.Layout(layoutID)
	require.NoError(t, err)
	got := layout.Widget(w.ID)
	require.Equal(t, 1, got.Position.X)
	require.Equal(t, 0, got.Position.W)
	require.Equal(t, 0, got.Position.H)
}

func TestResetToDefaultReplacesEverything(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateLayout(ctx, "Extra", "")
	require.NoError(t, err)
	s.SetEditMode(true)

	require.NoError(t, s.ResetToDefault(ctx))

	require.Len(t, s.Layouts(), 1)
	require.False(t, s.EditMode())
	require.True(t, s.CurrentLayout().IsDefault)
}

func TestLayoutsSurviveReload(t *testing.T) {
	persist := NewMemoryPersistence()
	ctx := context.Background()

	s1 := New(ctx, persist)
	layout, err := s1.CreateLayout(ctx, "Ops Floor", "")
	require.NoError(t, err)
	_, err = s1.AddWidget(ctx, layout.ID, models.WidgetChartLine, "Temps", models.Position{})
	require.NoError(t, err)

	// A fresh store over the same persistence sees the same collection and
	// the same active layout
	s2 := New(ctx, persist)
	require.Len(t, s2.Layouts(), 2)
	require.Equal(t, layout.ID, s2.CurrentLayoutID())
	reloaded, err := s2.Layout(layout.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.Widgets, 1)
}

func TestEditModeIsNotPersisted(t *testing.T) {
	persist := NewMemoryPersistence()
	ctx := context.Background()

	s1 := New(ctx, persist)
	s1.SetEditMode(true)
	_, err := s1.CreateLayout(ctx, "Whatever", "")
	require.NoError(t, err)

	s2 := New(ctx, persist)
	require.False(t, s2.EditMode())
}

func TestStoreReturnsClones(t *testing.T) {
	s := newTestStore(t)
	layoutID := s.CurrentLayoutID()

	w, err := s.AddWidget(context.Background(), layoutID, models.WidgetCardKPI, "Original", models.Position{})
	require.NoError(t, err)

	// Mutating a returned copy must not leak into the store
	got, err := s.Layout(layoutID)
	require.NoError(t, err)
	got.Widget(w.ID).Title = "Hacked"

	again, err := s.Layout(layoutID)
	require.NoError(t, err)
	require.Equal(t, "Original", again.Widget(w.ID).Title)
}

func TestStoreEvents(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var mu sync.Mutex
	var created, added []string
	s.OnEvent(EventLayoutCreated, func(id string) {
		mu.Lock()
		created = append(created, id)
		mu.Unlock()
	})
	s.OnEvent(EventWidgetAdded, func(id string) {
		mu.Lock()
		added = append(added, id)
		mu.Unlock()
	})

	layout, err := s.CreateLayout(ctx, "Ops", "")
	require.NoError(t, err)
	w, err := s.AddWidget(ctx, layout.ID, models.WidgetCardKPI, "", models.Position{})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(created) == 1 && len(added) == 1
	}, time.Second, 10*time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{layout.ID}, created)
	require.Equal(t, []string{w.ID}, added)
}
