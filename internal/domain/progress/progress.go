// Package progress annotates a ranked snapshot with per-person targets and
// display metadata for the chart renderer.
package progress

import (
	"math"

	"github.com/okian/salesboard/internal/domain/model"
	"github.com/okian/salesboard/internal/domain/types"
)

// TargetLookup returns the active target for a short name, 0 when none.
type TargetLookup interface {
	Lookup(name string) float64
}

// Display supplies the bar label and icon for a short name.
type Display interface {
	DisplayName(short string) string
	IconURL(short string) string
}

// Percent is 100 * sales / target, or 0 when target is not positive.
func Percent(sales, target float64) float64 {
	if target <= 0 {
		return 0
	}
	p := 100 * sales / target
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return 0
	}
	return p
}

// Annotate returns one entry per snapshot row, in snapshot order.
// A nil targets or display is treated as empty.
func Annotate(snap model.Snapshot, targets TargetLookup, display Display) []types.Entry {
	out := make([]types.Entry, 0, len(snap))
	for i, e := range snap {
		var target float64
		if targets != nil {
			target = targets.Lookup(e.Name)
		}
		entry := types.Entry{
			Rank:        i,
			Name:        e.Name,
			DisplayName: e.Name,
			Sales:       e.Sales,
			Target:      target,
			Percent:     Percent(e.Sales, target),
		}
		if display != nil {
			entry.DisplayName = display.DisplayName(e.Name)
			entry.IconURL = display.IconURL(e.Name)
		}
		out = append(out, entry)
	}
	return out
}
