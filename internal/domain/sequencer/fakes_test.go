package sequencer_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/okian/salesboard/internal/domain/goals"
	"github.com/okian/salesboard/internal/domain/model"
	"github.com/okian/salesboard/internal/domain/sequencer"
)

// fakeClock fires every wait shorter than a minute at once and never fires
// longer waits unless fireLong is set.
type fakeClock struct {
	mu       sync.Mutex
	waits    []time.Duration
	tickers  []*fakeTicker
	fireLong bool
}

func (c *fakeClock) Now() time.Time { return time.Now() }

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.waits = append(c.waits, d)
	if d >= time.Minute && !c.fireLong {
		return nil
	}
	ch := make(chan time.Time, 1)
	ch <- time.Now()
	return ch
}

func (c *fakeClock) NewTicker(time.Duration) sequencer.Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTicker{c: make(chan time.Time, 1)}
	c.tickers = append(c.tickers, t)
	return t
}

func (c *fakeClock) waited(d time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, w := range c.waits {
		if w == d {
			n++
		}
	}
	return n
}

func (c *fakeClock) tickerList() []*fakeTicker {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*fakeTicker(nil), c.tickers...)
}

type fakeTicker struct {
	mu      sync.Mutex
	c       chan time.Time
	stopped bool
}

func (t *fakeTicker) C() <-chan time.Time { return t.c }

func (t *fakeTicker) Stop() {
	t.mu.Lock()
	t.stopped = true
	t.mu.Unlock()
}

func (t *fakeTicker) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

func (t *fakeTicker) tick() { t.c <- time.Now() }

// fakeSource replays results in order, repeating the last one.
type fakeSource struct {
	mu      sync.Mutex
	results []sourceResult
	calls   int
}

type sourceResult struct {
	snap model.Snapshot
	err  error
}

func (s *fakeSource) FetchSnapshot(context.Context) (model.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	if i >= len(s.results) {
		i = len(s.results) - 1
	}
	s.calls++
	r := s.results[i]
	return r.snap, r.err
}

func (s *fakeSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type staticTargets goals.Targets

func (t staticTargets) Targets() goals.Targets { return goals.Targets(t) }

type fakeRenderer struct {
	mu     sync.Mutex
	frames []model.Frame
}

func (r *fakeRenderer) Render(_ context.Context, f model.Frame) error { //nolint:gocritic // hugeParam: test double
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, f)
	return nil
}

func (r *fakeRenderer) all() []model.Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Frame(nil), r.frames...)
}

func (r *fakeRenderer) kinds() []model.FrameKind {
	var out []model.FrameKind
	for _, f := range r.all() {
		out = append(out, f.Kind)
	}
	return out
}

// fakePlayer answers each Play with status, or hands the channel to the
// test through armed when manual is set.
type fakePlayer struct {
	mu      sync.Mutex
	status  model.PlaybackStatus
	err     error
	manual  bool
	armed   chan chan model.PlaybackResult
	played  []model.Interstitial
	silence bool
}

func (p *fakePlayer) Play(_ context.Context, in model.Interstitial) (<-chan model.PlaybackResult, error) {
	p.mu.Lock()
	p.played = append(p.played, in)
	p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	ch := make(chan model.PlaybackResult, 1)
	switch {
	case p.manual:
		p.armed <- ch
	case p.silence:
	default:
		ch <- model.PlaybackResult{InterstitialID: in.ID, Status: p.status}
	}
	return ch, nil
}

func (p *fakePlayer) plays() []model.Interstitial {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.Interstitial(nil), p.played...)
}

type fakeLeaders struct {
	mu      sync.Mutex
	name    string
	readErr error
	writes  int
}

func (l *fakeLeaders) LastTopSeller(context.Context) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.readErr != nil {
		return "", l.readErr
	}
	return l.name, nil
}

func (l *fakeLeaders) SetLastTopSeller(_ context.Context, name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.name = name
	l.writes++
	return nil
}

func (l *fakeLeaders) get() (string, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.name, l.writes
}

var errBackendDown = errors.New("backend down")

func eventually(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(2 * time.Millisecond)
	}
	return cond()
}
