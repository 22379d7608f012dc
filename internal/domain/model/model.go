// Package model contains domain models passed between layers.
package model

import "time"

// PersonRecord is one entry of the /people document, keyed by canonical name.
type PersonRecord struct {
	Short    string `json:"short"`
	FileID   string `json:"file_id"`
	GoalName string `json:"goal_name"`
	Photo    string `json:"photo,omitempty"`
	Icon     string `json:"icon,omitempty"`
	Video    string `json:"video,omitempty"`
}

// Person is a seller with display metadata. Immutable after load.
type Person struct {
	CanonicalName string // unique key, e.g. the CRM owner's full name
	ShortName     string // name used in snapshots
	FileID        string // asset file stem
	Photo         string // photo file name, optional
	Icon          string // icon file name, optional
	Video         string // interstitial video file name, optional
	GoalAlias     string // fragment matched against goal labels
}

// GoalRecord is one element of the /goals array as served by the backend.
type GoalRecord struct {
	Name      string `json:"Goal Name"`
	Start     string `json:"Start"`
	End       string `json:"End"`
	Target    string `json:"Target"`
	CreatedBy string `json:"Created By,omitempty"`
}

// Goal is a parsed, time-windowed sales target.
type Goal struct {
	Label  string
	Alias  string
	Target float64
	Start  time.Time
	End    time.Time
}

// Active reports whether now lies in [Start, End], inclusive on both ends.
func (g Goal) Active(now time.Time) bool {
	return !now.Before(g.Start) && !now.After(g.End)
}

// SalesEntry is one ranked row of a snapshot.
type SalesEntry struct {
	Name  string  `json:"Name"`
	Sales float64 `json:"Sales"`
}

// Snapshot is one polled, ranked sales listing; index 0 is the leader.
type Snapshot []SalesEntry

// Leader returns the first entry, if any.
func (s Snapshot) Leader() (SalesEntry, bool) {
	if len(s) == 0 {
		return SalesEntry{}, false
	}
	return s[0], true
}

// SignalKind classifies how an entry moved against the previous snapshot.
type SignalKind int

// Signal kinds.
const (
	SignalNone SignalKind = iota
	SignalRankUp
	SignalSalesIncrease
)

func (k SignalKind) String() string {
	switch k {
	case SignalRankUp:
		return "rank_up"
	case SignalSalesIncrease:
		return "sales_increase"
	default:
		return "none"
	}
}

// MarshalText renders the kind by name in JSON payloads.
func (k SignalKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Signal is the diff outcome for one snapshot entry.
type Signal struct {
	Name     string     `json:"name"`
	Kind     SignalKind `json:"kind"`
	Rank     int        `json:"rank"`
	PrevRank int        `json:"prev_rank"` // -1 when unknown
}
