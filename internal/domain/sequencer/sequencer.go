// Package sequencer drives the poll, diff, render and interstitial cycle of
// the leaderboard.
//
// One Sequencer owns the diff baseline, the remembered leader and the poll
// timer. Cycles never overlap: a cycle started while another one or an
// interstitial holds the sequencer fails with ErrBusy, and the poll timer
// is stopped for the whole interstitial and recreated once after the
// cooldown.
package sequencer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/salesboard/internal/domain/diff"
	"github.com/okian/salesboard/internal/domain/goals"
	"github.com/okian/salesboard/internal/domain/model"
	"github.com/okian/salesboard/internal/domain/progress"
	"github.com/okian/salesboard/pkg/logger"
	"github.com/okian/salesboard/pkg/metrics"
)

// Default timings.
const (
	defaultPollInterval    = 6 * time.Second
	defaultRenderDelay     = time.Second
	defaultCooldown        = 10 * time.Second
	defaultPlaybackTimeout = 2 * time.Minute
	defaultFetchTimeout    = 5 * time.Second
)

// SnapshotSource fetches the current ranked sales listing.
type SnapshotSource interface {
	FetchSnapshot(ctx context.Context) (model.Snapshot, error)
}

// TargetSource returns the targets active right now.
type TargetSource interface {
	Targets() goals.Targets
}

// Renderer receives finalized frames.
type Renderer interface {
	Render(ctx context.Context, f model.Frame) error
}

// Player arms the wait for an interstitial. It is called before the
// interstitial_start frame is rendered, and the returned channel yields at
// most one result.
type Player interface {
	Play(ctx context.Context, in model.Interstitial) (<-chan model.PlaybackResult, error)
}

// LeaderStore remembers the last top seller across restarts.
type LeaderStore interface {
	LastTopSeller(ctx context.Context) (string, error)
	SetLastTopSeller(ctx context.Context, name string) error
}

// Assets supplies display metadata and media URLs by short name.
type Assets interface {
	progress.Display
	PhotoURL(short string) string
	VideoURL(short string) string
}

// Status is a point-in-time view of the sequencer.
type Status struct {
	State          State        `json:"state"`
	Running        bool         `json:"running"`
	Leader         string       `json:"leader,omitempty"`
	LastCycleID    string       `json:"last_cycle_id,omitempty"`
	LastCycleAt    time.Time    `json:"last_cycle_at,omitempty"`
	LastFrame      *model.Frame `json:"last_frame,omitempty"`
	Cycles         int64        `json:"cycles"`
	FetchFailures  int64        `json:"fetch_failures"`
	EmptySnapshots int64        `json:"empty_snapshots"`
	Renders        int64        `json:"renders"`
	Interstitials  int64        `json:"interstitials"`
	TickerStarts   int64        `json:"ticker_starts"`
	RefreshDropped int64        `json:"refresh_dropped"`
}

// Sequencer is the presentation state machine.
type Sequencer struct {
	source   SnapshotSource
	targets  TargetSource
	renderer Renderer
	player   Player
	leaders  LeaderStore
	assets   Assets
	clock    Clock
	logger   logger.Logger

	pollInterval    time.Duration
	renderDelay     time.Duration
	cooldown        time.Duration
	playbackTimeout time.Duration
	fetchTimeout    time.Duration

	differ  *diff.Differ
	cycleMu sync.Mutex
	refresh chan struct{}
	// rearm wakes the run loop after the poll ticker was replaced.
	rearm chan struct{}

	mu     sync.RWMutex
	state  State
	ticker Ticker
	status Status
}

// New creates a sequencer. Every collaborator is required.
func New(source SnapshotSource, targets TargetSource, renderer Renderer, player Player,
	leaders LeaderStore, assets Assets, opts ...Option,
) *Sequencer {
	s := &Sequencer{
		source:          source,
		targets:         targets,
		renderer:        renderer,
		player:          player,
		leaders:         leaders,
		assets:          assets,
		clock:           RealClock(),
		logger:          logger.Get().Named("sequencer"),
		pollInterval:    defaultPollInterval,
		renderDelay:     defaultRenderDelay,
		cooldown:        defaultCooldown,
		playbackTimeout: defaultPlaybackTimeout,
		fetchTimeout:    defaultFetchTimeout,
		differ:          diff.NewDiffer(),
		refresh:         make(chan struct{}, 1),
		rearm:           make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	metrics.SetSequencerState(Idle.String(), stateNames)
	return s
}

// Run polls immediately and then on every tick until ctx is done.
func (s *Sequencer) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.status.Running {
		s.mu.Unlock()
		return fmt.Errorf("run: %w", ErrBusy)
	}
	s.status.Running = true
	s.mu.Unlock()

	s.startTicker()
	defer func() {
		s.stopTicker()
		s.mu.Lock()
		s.status.Running = false
		s.mu.Unlock()
	}()

	s.logger.Info(ctx, "sequencer started", logger.Duration("poll_interval", s.pollInterval))
	s.runCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "sequencer stopped")
			return nil
		case <-s.tickerC():
			s.runCycle(ctx)
		case <-s.refresh:
			s.runCycle(ctx)
		case <-s.rearm:
		}
	}
}

func (s *Sequencer) runCycle(ctx context.Context) {
	if err := s.Cycle(ctx); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Debug(ctx, "cycle ended with error", logger.Error(err))
	}
}

// Refresh asks the run loop for an immediate poll. It returns false when the
// request was discarded because an interstitial is active or a request is
// already pending.
func (s *Sequencer) Refresh() bool {
	if s.State().blocksPolling() {
		s.countRefreshDropped()
		return false
	}
	select {
	case s.refresh <- struct{}{}:
		return true
	default:
		s.countRefreshDropped()
		return false
	}
}

// State returns the current state.
func (s *Sequencer) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Status returns a copy of the sequencer status.
func (s *Sequencer) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.status
	st.State = s.state
	if st.LastFrame != nil {
		f := *st.LastFrame
		st.LastFrame = &f
	}
	return st
}

// Cycle runs one poll, diff, render and, on leader change, interstitial
// pass. Fetch failures leave the sequencer Idle and are returned.
func (s *Sequencer) Cycle(ctx context.Context) error {
	if !s.cycleMu.TryLock() {
		return ErrBusy
	}
	defer s.cycleMu.Unlock()
	defer s.setState(Idle)

	cycleID := uuid.NewString()
	s.setState(Polling)
	s.mu.Lock()
	s.status.Cycles++
	s.status.LastCycleID = cycleID
	s.status.LastCycleAt = s.clock.Now()
	s.mu.Unlock()

	snap, err := s.fetch(ctx)
	if err != nil {
		s.mu.Lock()
		s.status.FetchFailures++
		s.mu.Unlock()
		metrics.RecordErrorByComponent("sequencer", "fetch")
		s.logger.Warn(ctx, "snapshot fetch failed", logger.String("cycle_id", cycleID), logger.Error(err))
		return fmt.Errorf("fetch snapshot: %w", err)
	}
	if len(snap) == 0 {
		s.mu.Lock()
		s.status.EmptySnapshots++
		s.mu.Unlock()
		s.logger.Debug(ctx, "empty snapshot", logger.String("cycle_id", cycleID))
		return nil
	}

	res := s.differ.Diff(snap)
	for _, sig := range res.Signals {
		if sig.Kind != model.SignalNone {
			metrics.RecordSignal(sig.Kind.String())
		}
	}

	s.setState(Rendering)
	frame := s.renderFrame(cycleID, snap)
	if !res.Seeded {
		frame.Highlight = res.Highlight
		frame.Cues = model.Cues{RankUp: res.RankUp, Sale: res.Sale}
		if res.RankUp {
			frame.DelayBars = true
			if err := s.sleep(ctx, s.renderDelay); err != nil {
				return err
			}
		}
	}
	s.render(ctx, frame)

	leader := snap[0].Name
	last, err := s.leaders.LastTopSeller(ctx)
	if err != nil {
		s.logger.Warn(ctx, "leader store read failed", logger.Error(err))
		last = ""
	}
	s.mu.Lock()
	s.status.Leader = leader
	s.mu.Unlock()
	if leader == last {
		return nil
	}

	return s.interstitial(ctx, cycleID, snap, last)
}

func (s *Sequencer) fetch(ctx context.Context) (model.Snapshot, error) {
	fctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	start := s.clock.Now()
	snap, err := s.source.FetchSnapshot(fctx)
	metrics.RecordPollLatency(float64(s.clock.Now().Sub(start).Milliseconds()))
	switch {
	case err != nil:
		metrics.RecordPoll("error")
	case len(snap) == 0:
		metrics.RecordPoll("empty")
	default:
		metrics.RecordPoll("ok")
		metrics.UpdateSnapshotEntries(len(snap))
	}
	return snap, err
}

// interstitial plays the leader change video with polling suspended, then
// renders the final state, cools down and resumes polling exactly once.
func (s *Sequencer) interstitial(ctx context.Context, cycleID string, snap model.Snapshot, previous string) error {
	leader := snap[0].Name
	if err := s.leaders.SetLastTopSeller(ctx, leader); err != nil {
		s.logger.Warn(ctx, "leader store write failed", logger.String("leader", leader), logger.Error(err))
	}

	s.setState(PlayingInterstitial)
	s.stopTicker()
	s.mu.Lock()
	s.status.Interstitials++
	s.mu.Unlock()
	metrics.RecordInterstitial()

	in := model.Interstitial{
		ID:       uuid.NewString(),
		Leader:   leader,
		VideoURL: s.assets.VideoURL(leader),
	}
	s.logger.Info(ctx, "top seller changed",
		logger.String("cycle_id", cycleID),
		logger.String("previous", previous),
		logger.String("leader", leader),
		logger.String("interstitial_id", in.ID),
	)

	start := s.clock.Now()
	result := s.await(ctx, in, cycleID)
	metrics.RecordInterstitialDuration(s.clock.Now().Sub(start))
	s.logger.Info(ctx, "interstitial finished",
		logger.String("interstitial_id", in.ID),
		logger.String("status", string(result.Status)),
		logger.String("detail", result.Detail),
	)

	s.setState(InterstitialCooldown)
	end := s.newFrame(model.FrameInterstitialEnd, cycleID)
	end.Interstitial = &in
	s.render(ctx, end)
	s.render(ctx, s.renderFrame(cycleID, snap))

	if err := s.sleep(ctx, s.cooldown); err != nil {
		return err
	}
	s.resumeTicker()
	return nil
}

// await arms the player, publishes the start frame and blocks until the
// first of a playback result, the playback timeout or ctx.
func (s *Sequencer) await(ctx context.Context, in model.Interstitial, cycleID string) model.PlaybackResult {
	done, err := s.player.Play(ctx, in)
	if err != nil {
		metrics.RecordErrorByComponent("sequencer", "playback")
		err = fmt.Errorf("%w: %w", ErrPlayback, err)
		s.logger.Warn(ctx, "player failed", logger.String("interstitial_id", in.ID), logger.Error(err))
		return model.PlaybackResult{InterstitialID: in.ID, Status: model.PlaybackError, Detail: err.Error()}
	}

	start := s.newFrame(model.FrameInterstitialStart, cycleID)
	start.Interstitial = &in
	s.render(ctx, start)

	select {
	case res, ok := <-done:
		if !ok {
			return model.PlaybackResult{InterstitialID: in.ID, Status: model.PlaybackError, Detail: "player closed"}
		}
		return res
	case <-s.clock.After(s.playbackTimeout):
		return model.PlaybackResult{InterstitialID: in.ID, Status: model.PlaybackTimeout}
	case <-ctx.Done():
		return model.PlaybackResult{InterstitialID: in.ID, Status: model.PlaybackCancelled, Detail: ctx.Err().Error()}
	}
}

func (s *Sequencer) newFrame(kind model.FrameKind, cycleID string) model.Frame {
	return model.Frame{
		ID:      uuid.NewString(),
		Kind:    kind,
		CycleID: cycleID,
		At:      s.clock.Now(),
	}
}

func (s *Sequencer) renderFrame(cycleID string, snap model.Snapshot) model.Frame {
	f := s.newFrame(model.FrameRender, cycleID)
	f.Entries = progress.Annotate(snap, s.targets.Targets(), s.assets)
	leader := snap[0].Name
	f.TopSeller = &model.TopSeller{Name: leader, PhotoURL: s.assets.PhotoURL(leader)}
	return f
}

func (s *Sequencer) render(ctx context.Context, f model.Frame) { //nolint:gocritic // hugeParam: frames travel by value
	if err := s.renderer.Render(ctx, f); err != nil {
		metrics.RecordErrorByComponent("sequencer", "render")
		s.logger.Warn(ctx, "render failed",
			logger.String("frame_id", f.ID),
			logger.String("kind", string(f.Kind)),
			logger.Error(err),
		)
		return
	}
	s.mu.Lock()
	s.status.Renders++
	if f.Kind == model.FrameRender {
		s.status.LastFrame = &f
	}
	s.mu.Unlock()
}

func (s *Sequencer) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-s.clock.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Sequencer) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
	metrics.SetSequencerState(st.String(), stateNames)
}

func (s *Sequencer) countRefreshDropped() {
	s.mu.Lock()
	s.status.RefreshDropped++
	s.mu.Unlock()
}

func (s *Sequencer) startTicker() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ticker != nil {
		return
	}
	s.ticker = s.clock.NewTicker(s.pollInterval)
	s.status.TickerStarts++
}

// resumeTicker recreates the poll timer only when the run loop owns one.
// Refreshes queued before the interstitial are dropped so polling resumes
// on the new ticker alone.
func (s *Sequencer) resumeTicker() {
	select {
	case <-s.refresh:
		s.countRefreshDropped()
	default:
	}

	s.mu.RLock()
	running := s.status.Running
	s.mu.RUnlock()
	if !running {
		return
	}
	s.startTicker()
	select {
	case s.rearm <- struct{}{}:
	default:
	}
}

func (s *Sequencer) stopTicker() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
}

// tickerC returns the current tick channel, nil while polling is suspended.
func (s *Sequencer) tickerC() <-chan time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ticker == nil {
		return nil
	}
	return s.ticker.C()
}
