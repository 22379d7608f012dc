// Package diff compares consecutive ranked snapshots and emits per-entry signals.
package diff

import (
	"github.com/okian/salesboard/internal/domain/model"
)

// State is the baseline the next snapshot is compared against.
type State struct {
	Ranks  map[string]int
	Sales  map[string]float64
	Seeded bool
}

// Result is the outcome of one diff pass.
type Result struct {
	Signals []model.Signal
	// RankUp is set when any entry moved up.
	RankUp bool
	// Sale is set when any entry sold more without moving up.
	Sale bool
	// Highlight names the first signalling entry, only when that entry is a
	// sales increase. A rank-up first in order suppresses the highlight.
	Highlight string
	// Seeded is true when this pass populated an empty baseline.
	Seeded bool
}

// Differ holds the baseline between polls. It is not safe for concurrent
// use; the sequencer owns it.
type Differ struct {
	ranks  map[string]int
	sales  map[string]float64
	seeded bool
}

// NewDiffer returns a Differ with an empty baseline.
func NewDiffer() *Differ {
	return &Differ{
		ranks: make(map[string]int),
		sales: make(map[string]float64),
	}
}

// Seeded reports whether a non-empty snapshot has been processed.
func (d *Differ) Seeded() bool { return d.seeded }

// State returns a copy of the current baseline.
func (d *Differ) State() State {
	st := State{
		Ranks:  make(map[string]int, len(d.ranks)),
		Sales:  make(map[string]float64, len(d.sales)),
		Seeded: d.seeded,
	}
	for k, v := range d.ranks {
		st.Ranks[k] = v
	}
	for k, v := range d.sales {
		st.Sales[k] = v
	}
	return st
}

// Diff computes signals for snap and then replaces the baseline with it.
// An empty snapshot is a no-op.
func (d *Differ) Diff(snap model.Snapshot) Result {
	if len(snap) == 0 {
		return Result{}
	}

	if !d.seeded {
		d.replace(snap)
		d.seeded = true
		return Result{Seeded: true}
	}

	res := Result{Signals: make([]model.Signal, 0, len(snap))}
	first := true
	for i, e := range snap {
		sig := model.Signal{Name: e.Name, Kind: model.SignalNone, Rank: i, PrevRank: -1}

		prevRank, hasRank := d.ranks[e.Name]
		if hasRank {
			sig.PrevRank = prevRank
		}
		prevSales, hasSales := d.sales[e.Name]

		switch {
		case hasRank && i < prevRank:
			sig.Kind = model.SignalRankUp
			res.RankUp = true
		case hasSales && e.Sales > prevSales:
			sig.Kind = model.SignalSalesIncrease
			res.Sale = true
		}

		if sig.Kind != model.SignalNone && first {
			first = false
			if sig.Kind == model.SignalSalesIncrease {
				res.Highlight = e.Name
			}
		}
		res.Signals = append(res.Signals, sig)
	}

	d.replace(snap)
	return res
}

// Reset clears the baseline so the next snapshot seeds again.
func (d *Differ) Reset() {
	d.ranks = make(map[string]int)
	d.sales = make(map[string]float64)
	d.seeded = false
}

// replace drops entries absent from snap so a returning seller is compared
// against nothing rather than a stale position.
func (d *Differ) replace(snap model.Snapshot) {
	ranks := make(map[string]int, len(snap))
	sales := make(map[string]float64, len(snap))
	for i, e := range snap {
		if _, dup := ranks[e.Name]; dup {
			continue
		}
		ranks[e.Name] = i
		sales[e.Name] = e.Sales
	}
	d.ranks = ranks
	d.sales = sales
}
