package sequencer

import (
	"time"

	"github.com/okian/salesboard/pkg/logger"
)

// Option applies a configuration option to the Sequencer.
type Option func(*Sequencer)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c Clock) Option {
	return func(s *Sequencer) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Sequencer) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithPollInterval sets the time between polls.
func WithPollInterval(d time.Duration) Option {
	return func(s *Sequencer) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// WithRenderDelay sets how long a rank-up render is held back.
func WithRenderDelay(d time.Duration) Option {
	return func(s *Sequencer) {
		if d >= 0 {
			s.renderDelay = d
		}
	}
}

// WithCooldown sets the grace period between an interstitial and the next poll.
func WithCooldown(d time.Duration) Option {
	return func(s *Sequencer) {
		if d >= 0 {
			s.cooldown = d
		}
	}
}

// WithPlaybackTimeout bounds the wait for a playback report.
func WithPlaybackTimeout(d time.Duration) Option {
	return func(s *Sequencer) {
		if d > 0 {
			s.playbackTimeout = d
		}
	}
}

// WithFetchTimeout bounds one snapshot fetch.
func WithFetchTimeout(d time.Duration) Option {
	return func(s *Sequencer) {
		if d > 0 {
			s.fetchTimeout = d
		}
	}
}
