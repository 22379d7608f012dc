package sequencer

import "errors"

// Sentinel kinds for sequencer errors.
var (
	// ErrBusy is returned by Cycle while another cycle or an interstitial
	// holds the sequencer.
	ErrBusy = errors.New("sequencer busy")
	// ErrPlayback marks a player failure. It never blocks the sequencer.
	ErrPlayback = errors.New("interstitial playback failed")
)
