// Package service assembles the presenter: backend client, catalog, leader
// store, frame queue, dispatcher, viewer hub and sequencer.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/salesboard/internal/adapters/backend"
	"github.com/okian/salesboard/internal/adapters/http/api"
	"github.com/okian/salesboard/internal/adapters/mq/queue"
	"github.com/okian/salesboard/internal/adapters/mq/worker"
	"github.com/okian/salesboard/internal/adapters/repository"
	"github.com/okian/salesboard/internal/config"
	"github.com/okian/salesboard/internal/domain/dedupe"
	"github.com/okian/salesboard/internal/domain/model"
	"github.com/okian/salesboard/internal/domain/sequencer"
	"github.com/okian/salesboard/pkg/logger"
)

const stopTimeout = 5 * time.Second

// frameSink adapts the frame queue to the sequencer's renderer.
type frameSink struct {
	q queue.Queue
}

func (f frameSink) Render(ctx context.Context, fr model.Frame) error { //nolint:gocritic // hugeParam: frames travel by value
	if err := f.q.Enqueue(ctx, fr); err != nil {
		return fmt.Errorf("enqueue frame %s: %w", fr.ID, err)
	}
	return nil
}

// Service owns every presenter component.
type Service struct {
	mu sync.RWMutex

	cfg    *config.Config
	logger logger.Logger
	clock  sequencer.Clock

	client     *backend.Client
	catalog    *Catalog
	store      repository.Store
	frames     *queue.InMemoryQueue
	dispatcher *worker.Dispatcher
	hub        *api.Hub
	seq        *sequencer.Sequencer

	started   bool
	stopped   bool
	startedAt time.Time
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock sets the sequencer clock.
func WithClock(c sequencer.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// New builds every component from cfg. Nothing runs until Start.
func New(cfg *config.Config, opts ...Option) *Service {
	s := &Service{
		cfg:   cfg,
		clock: sequencer.RealClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.client = backend.New(cfg.BackendURL,
		backend.WithTimeout(cfg.FetchTimeout()),
		backend.WithLogger(s.logger.Named("backend")),
	)
	s.catalog = NewCatalog(s.client, cfg.AssetBase, s.logger.Named("catalog"))
	s.frames = queue.NewInMemoryQueue(queue.WithCapacity(cfg.FrameQueueSize))
	s.hub = api.NewHub(dedupe.New())
	s.dispatcher = worker.NewDispatcher(s.frames, s.hub,
		worker.WithName("frames"),
		worker.WithLogger(s.logger.Named("dispatcher")),
	)
	return s
}

// Start loads the catalog, opens the leader store and starts the dispatcher,
// the sequencer and the catalog refresher. A failed catalog load is retried
// in the background; a leader store that cannot be opened is fatal.
// A stopped service cannot be started again.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.stopped {
		return ErrStopped
	}
	s.logger.Info(ctx, "starting presenter service...", logger.String("backend", s.cfg.BackendURL))

	store, err := s.openStore(ctx)
	if err != nil {
		return err
	}
	s.store = store

	if err := s.catalog.Load(ctx); err != nil {
		s.logger.Warn(ctx, "initial catalog load failed; retrying in background", logger.Error(err))
	}

	s.seq = sequencer.New(
		s.client,
		s.catalog,
		frameSink{q: s.frames},
		s.hub,
		repository.NewLeaderStore(store),
		s.catalog,
		sequencer.WithClock(s.clock),
		sequencer.WithLogger(s.logger.Named("sequencer")),
		sequencer.WithPollInterval(s.cfg.PollInterval()),
		sequencer.WithRenderDelay(s.cfg.RenderDelay()),
		sequencer.WithCooldown(s.cfg.Cooldown()),
		sequencer.WithPlaybackTimeout(s.cfg.PlaybackTimeout()),
		sequencer.WithFetchTimeout(s.cfg.FetchTimeout()),
	)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel

	s.wg.Add(3)
	go func() {
		defer s.wg.Done()
		s.dispatcher.Run(runCtx)
	}()
	go func() {
		defer s.wg.Done()
		if err := s.seq.Run(runCtx); err != nil {
			s.logger.Error(runCtx, "sequencer exited", logger.Error(err))
		}
	}()
	go func() {
		defer s.wg.Done()
		s.catalog.Refresh(runCtx, s.cfg.GoalsRefresh(), s.cfg.PollInterval())
	}()

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "presenter service started",
		logger.Duration("poll_interval", s.cfg.PollInterval()),
		logger.Int("frame_queue_size", s.cfg.FrameQueueSize),
		logger.String("state_db_path", s.cfg.StateDBPath),
	)
	return nil
}

func (s *Service) openStore(ctx context.Context) (repository.Store, error) {
	if s.cfg.StateDBPath == "" {
		s.logger.Info(ctx, "using in-memory leader store")
		return repository.NewMemoryStore(), nil
	}
	store, err := repository.NewSQLiteStore(ctx, s.cfg.StateDBPath,
		repository.WithLogger(s.logger.Named("repository")),
	)
	if err != nil {
		return nil, fmt.Errorf("open leader store: %w", err)
	}
	s.logger.Info(ctx, "using sqlite leader store", logger.String("path", s.cfg.StateDBPath))
	return store, nil
}

// Stop cancels the background loops, disconnects viewers and closes the
// leader store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping presenter service...")

	s.cancel()
	_ = s.frames.Close()
	_ = s.hub.Close()

	shutdownCtx, cancel := context.WithTimeout(ctx, stopTimeout)
	defer cancel()
	if err := s.dispatcher.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn(ctx, "dispatcher shutdown", logger.Error(err))
	}
	s.wg.Wait()

	if err := s.store.Close(); err != nil {
		s.logger.Warn(ctx, "leader store close failed", logger.Error(err))
	}

	s.started = false
	s.stopped = true
	s.logger.Info(ctx, "presenter service stopped")
}

// Hub returns the viewer hub served on /ws.
func (s *Service) Hub() *api.Hub { return s.hub }

// Refresh requests an immediate poll. It is false while an interstitial
// holds the sequencer or before Start.
func (s *Service) Refresh() bool {
	s.mu.RLock()
	seq := s.seq
	s.mu.RUnlock()
	if seq == nil {
		return false
	}
	return seq.Refresh()
}

// Status returns the sequencer status.
func (s *Service) Status() sequencer.Status {
	s.mu.RLock()
	seq := s.seq
	s.mu.RUnlock()
	if seq == nil {
		return sequencer.Status{State: sequencer.Idle}
	}
	return seq.Status()
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":         s.started,
		"backend":         s.cfg.BackendURL,
		"people":          s.catalog.People(),
		"targets":         len(s.catalog.Targets()),
		"catalog_loaded":  s.catalog.Loaded(),
		"frame_queue":     s.frames.Len(),
		"viewers":         s.hub.Clients(),
		"reports_tracked": s.hub.ReportsTracked(),
	}
	if s.started {
		dispatched, failed := s.dispatcher.Stats()
		stats["frames_dispatched"] = dispatched
		stats["frames_failed"] = failed
		stats["uptime"] = time.Since(s.startedAt).Round(time.Second).String()
	}
	return stats
}
