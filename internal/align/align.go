// FilePath: internal/align/align.go

// Package align merges independently-sampled telemetry series onto a common
// timestamp axis for charting. Alignment is exact-match: no interpolation and
// no nearest-neighbor snapping. Sensors sampled at different rates therefore
// produce sparse columns, which the charting layer bridges with
// connect-across-nulls semantics.
package align

import (
	"sort"
	"time"

	"github.com/traksense/hub/internal/models"
)

// Column is one series laid out against the shared timestamp axis. Values is
// index-aligned with Table.Timestamps; a nil cell means the series had no
// data point at exactly that instant.
type Column struct {
	Label  string     `json:"label"`
	Values []*float64 `json:"values"`
}

// Table is the aligned result: one row per distinct timestamp across all
// input series, ascending, one column per series in input order.
type Table struct {
	Timestamps []time.Time `json:"timestamps"`
	Columns    []Column    `json:"columns"`
}

// Rows returns the number of rows (distinct timestamps) in the table
func (t *Table) Rows() int {
	return len(t.Timestamps)
}

// Align merges the given series into a single ordered table. Points with a
// zero timestamp are malformed and excluded point-wise; they never fail the
// alignment. A series with zero points contributes no timestamps but still
// appears as an always-nil column. Zero series produce an empty table.
func Align(series []models.TelemetrySeries) *Table {
	union := make(map[int64]struct{})
	for _, s := range series {
		for _, p := range s.Data {
			if p.Timestamp.IsZero() {
				continue
			}
			union[p.Timestamp.UnixNano()] = struct{}{}
		}
	}

	keys := make([]int64, 0, len(union))
	for k := range union {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	table := &Table{
		Timestamps: make([]time.Time, len(keys)),
		Columns:    make([]Column, len(series)),
	}
	for i, k := range keys {
		table.Timestamps[i] = time.Unix(0, k)
	}

	for si, s := range series {
		byTime := make(map[int64]float64, len(s.Data))
		for _, p := range s.Data {
			if p.Timestamp.IsZero() {
				continue
			}
			byTime[p.Timestamp.UnixNano()] = p.Value
		}
		col := Column{
			Label:  s.Label,
			Values: make([]*float64, len(keys)),
		}
		for i, k := range keys {
			if v, ok := byTime[k]; ok {
				value := v
				col.Values[i] = &value
			}
		}
		table.Columns[si] = col
	}

	return table
}
