package model

import (
	"time"

	"github.com/okian/salesboard/internal/domain/types"
)

// FrameKind tells viewers what to do with a frame.
type FrameKind string

// Frame kinds pushed to viewers.
const (
	FrameRender            FrameKind = "render"
	FrameInterstitialStart FrameKind = "interstitial_start"
	FrameInterstitialEnd   FrameKind = "interstitial_end"
)

// Cues are the independent sound/animation triggers of one cycle.
type Cues struct {
	RankUp bool `json:"rank_up"`
	Sale   bool `json:"sale"`
}

// TopSeller is the leader panel payload.
type TopSeller struct {
	Name     string `json:"name"`
	PhotoURL string `json:"photo_url"`
}

// Interstitial describes the celebratory video shown on leader change.
type Interstitial struct {
	ID       string `json:"id"`
	Leader   string `json:"leader"`
	VideoURL string `json:"video_url"`
}

// Frame is the finalized payload handed to the chart renderer.
type Frame struct {
	ID           string        `json:"id"`
	Kind         FrameKind     `json:"kind"`
	CycleID      string        `json:"cycle_id"`
	At           time.Time     `json:"at"`
	Entries      []types.Entry `json:"entries,omitempty"`
	DelayBars    bool          `json:"delay_bars"`
	Highlight    string        `json:"highlight,omitempty"`
	Cues         Cues          `json:"cues"`
	TopSeller    *TopSeller    `json:"top_seller,omitempty"`
	Interstitial *Interstitial `json:"interstitial,omitempty"`
}

// PlaybackStatus is how an interstitial finished.
type PlaybackStatus string

// Playback statuses. All of them release the sequencer.
const (
	PlaybackEnded     PlaybackStatus = "ended"
	PlaybackError     PlaybackStatus = "error"
	PlaybackTimeout   PlaybackStatus = "timeout"
	PlaybackNoViewers PlaybackStatus = "no_viewers"
	PlaybackCancelled PlaybackStatus = "cancelled"
)

// PlaybackResult resolves an interstitial wait.
type PlaybackResult struct {
	InterstitialID string
	Status         PlaybackStatus
	Detail         string
}
