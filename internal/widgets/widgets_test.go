// FilePath: internal/widgets/widgets_test.go
package widgets

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/traksense/hub/internal/errors"
	"github.com/traksense/hub/internal/models"
)

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

func int64Ptr(i int64) *int64 { return &i }

func TestNewAppliesDefinitionDefaults(t *testing.T) {
	w, err := New(models.WidgetCardKPI, "")
	require.NoError(t, err)
	require.NotEmpty(t, w.ID)
	require.Equal(t, models.WidgetCardKPI, w.Type)
	require.Equal(t, "KPI Card", w.Title)
	require.Equal(t, models.SizeCol2, w.Size)

	w2, err := New(models.WidgetChartLine, "Supply Temps")
	require.NoError(t, err)
	require.Equal(t, "Supply Temps", w2.Title)
	require.Equal(t, models.SizeCol4, w2.Size)
	require.NotEqual(t, w.ID, w2.ID)
}

func TestNewRejectsUnknownType(t *testing.T) {
	_, err := New("chart-3d-hologram", "")
	require.Error(t, err)
	require.True(t, errors.IsValidation(err))
}

func TestValidateConfigRejectsUnknownKeyForType(t *testing.T) {
	// Single-value cards bind via sensorTag, never sensorTags
	err := ValidateConfig(models.WidgetCardKPI, models.WidgetConfig{
		SensorTags: []string{"a", "b"},
	})
	require.Error(t, err)
	require.True(t, errors.IsValidation(err))

	// Chart widgets have no icon settings
	err = ValidateConfig(models.WidgetChartLine, models.WidgetConfig{
		IconName: strPtr("Thermometer"),
	})
	require.Error(t, err)

	// Recognized keys pass
	err = ValidateConfig(models.WidgetCardKPI, models.WidgetConfig{
		Label:     strPtr("Supply"),
		Decimals:  intPtr(1),
		SensorTag: strPtr("CHILLER-001_temp_supply"),
	})
	require.NoError(t, err)
}

func TestUpdateConfigShallowMerge(t *testing.T) {
	w, err := New(models.WidgetCardValue, "")
	require.NoError(t, err)
	require.NoError(t, UpdateConfig(w, models.WidgetConfig{
		Label: strPtr("Supply"),
		Unit:  strPtr("°C"),
	}))

	// Patching one key leaves the others alone
	require.NoError(t, UpdateConfig(w, models.WidgetConfig{
		Decimals: intPtr(2),
	}))
	require.NotNil(t, w.Config.Label)
	require.Equal(t, "Supply", *w.Config.Label)
	require.NotNil(t, w.Config.Unit)
	require.Equal(t, 2, *w.Config.Decimals)
}

func TestUpdateConfigReplacesTransformWholesale(t *testing.T) {
	w, err := New(models.WidgetCardKPI, "")
	require.NoError(t, err)
	require.NoError(t, UpdateConfig(w, models.WidgetConfig{
		Transform: &models.TransformConfig{Formula: "$VALUE$ * 2"},
	}))

	require.NoError(t, UpdateConfig(w, models.WidgetConfig{
		Transform: &models.TransformConfig{},
	}))
	require.NotNil(t, w.Config.Transform)
	require.Empty(t, w.Config.Transform.Formula)
}

func TestUpdateConfigScopeChangeTriggersRebind(t *testing.T) {
	w, err := New(models.WidgetChartLine, "")
	require.NoError(t, err)
	require.NoError(t, UpdateConfig(w, models.WidgetConfig{
		AssetID:    int64Ptr(1),
		SensorTags: []string{"CHILLER-001_temp_supply"},
		Unit:       strPtr("°C"),
	}))

	// Rebinding to another asset clears sensors and unit in the same call
	require.NoError(t, UpdateConfig(w, models.WidgetConfig{
		AssetID: int64Ptr(2),
	}))
	require.NotNil(t, w.Config.AssetID)
	require.Equal(t, int64(2), *w.Config.AssetID)
	require.Nil(t, w.Config.SensorTags)
	require.Nil(t, w.Config.Unit)
}

func TestRebindClearsSensorSelection(t *testing.T) {
	w, err := New(models.WidgetCardKPI, "")
	require.NoError(t, err)
	require.NoError(t, UpdateConfig(w, models.WidgetConfig{
		AssetID:   int64Ptr(1),
		SensorTag: strPtr("CHILLER-001_temp_supply"),
		Unit:      strPtr("°C"),
	}))

	device := "mqtt-client-7"
	Rebind(w, nil, &device)

	require.Nil(t, w.Config.AssetID)
	require.Equal(t, "mqtt-client-7", *w.Config.DeviceID)
	require.Nil(t, w.Config.SensorTag)
	require.Nil(t, w.Config.Unit)
}

func TestDefinitionsCoverAllWidgetTypes(t *testing.T) {
	defs := Definitions()
	require.Len(t, defs, 24)

	seen := map[models.WidgetType]bool{}
	for _, d := range defs {
		require.False(t, seen[d.Type], "duplicate definition for %s", d.Type)
		seen[d.Type] = true
		require.NotEmpty(t, d.Name)
		require.NotEmpty(t, d.DefaultSize)
	}

	// Static widgets need no data binding
	def, ok := Lookup(models.WidgetTextDisplay)
	require.True(t, ok)
	require.False(t, def.RequiresData)

	require.True(t, IsMultiSeries(models.WidgetChartLine))
	require.False(t, IsMultiSeries(models.WidgetCardKPI))
}
