// FilePath: internal/align/align_test.go
package align

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/traksense/hub/internal/models"
)

func ts(sec int64) time.Time {
	return time.Unix(sec, 0)
}

func points(secs ...int64) []models.SeriesPoint {
	out := make([]models.SeriesPoint, len(secs))
	for i, s := range secs {
		out[i] = models.SeriesPoint{Timestamp: ts(s), Value: float64(s)}
	}
	return out
}

func TestAlignUnionOfTimestamps(t *testing.T) {
	series := []models.TelemetrySeries{
		{Label: "temp_supply", Data: points(10, 20, 30)},
		{Label: "temp_return", Data: points(20, 40)},
		{Label: "pressure", Data: points(10, 40, 50)},
	}

	table := Align(series)

	require.Equal(t, 5, table.Rows())
	require.Equal(t, []time.Time{ts(10), ts(20), ts(30), ts(40), ts(50)}, table.Timestamps)
	require.Len(t, table.Columns, 3)
	require.Equal(t, "temp_supply", table.Columns[0].Label)

	// temp_supply has points at 10, 20, 30 and nil cells at 40, 50
	col := table.Columns[0].Values
	require.NotNil(t, col[0])
	require.Equal(t, 10.0, *col[0])
	require.NotNil(t, col[2])
	require.Nil(t, col[3])
	require.Nil(t, col[4])

	// temp_return only matches exactly at 20 and 40, no snapping
	col = table.Columns[1].Values
	require.Nil(t, col[0])
	require.NotNil(t, col[1])
	require.Equal(t, 20.0, *col[1])
	require.Nil(t, col[2])
	require.NotNil(t, col[3])
	require.Nil(t, col[4])
}

func TestAlignEveryColumnSpansAllRows(t *testing.T) {
	series := []models.TelemetrySeries{
		{Label: "a", Data: points(1, 2, 3)},
		{Label: "b", Data: points(4)},
	}

	table := Align(series)

	for _, col := range table.Columns {
		require.Len(t, col.Values, table.Rows())
	}
}

func TestAlignEmptySeriesKeepsColumn(t *testing.T) {
	series := []models.TelemetrySeries{
		{Label: "a", Data: points(1, 2)},
		{Label: "silent"},
	}

	table := Align(series)

	require.Len(t, table.Columns, 2)
	require.Equal(t, "silent", table.Columns[1].Label)
	for _, v := range table.Columns[1].Values {
		require.Nil(t, v)
	}
}

func TestAlignNoSeries(t *testing.T) {
	table := Align(nil)
	require.Equal(t, 0, table.Rows())
	require.Empty(t, table.Columns)
}

func TestAlignDropsZeroTimestamps(t *testing.T) {
	series := []models.TelemetrySeries{
		{Label: "a", Data: []models.SeriesPoint{
			{Timestamp: ts(10), Value: 1},
			{Timestamp: time.Time{}, Value: 99},
			{Timestamp: ts(20), Value: 2},
		}},
	}

	table := Align(series)

	require.Equal(t, 2, table.Rows())
	require.Equal(t, []time.Time{ts(10), ts(20)}, table.Timestamps)
}

func TestAlignDuplicateTimestampAcrossSeries(t *testing.T) {
	series := []models.TelemetrySeries{
		{Label: "a", Data: points(10)},
		{Label: "b", Data: points(10)},
	}

	table := Align(series)

	require.Equal(t, 1, table.Rows())
	require.NotNil(t, table.Columns[0].Values[0])
	require.NotNil(t, table.Columns[1].Values[0])
}
