package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/salesboard/internal/domain/directory"
	"github.com/okian/salesboard/internal/domain/goals"
	"github.com/okian/salesboard/internal/domain/model"
	"github.com/okian/salesboard/pkg/logger"
	"github.com/okian/salesboard/pkg/metrics"
)

// CatalogSource fetches the people and goal documents.
type CatalogSource interface {
	FetchPeople(ctx context.Context) (map[string]model.PersonRecord, error)
	FetchGoals(ctx context.Context) ([]model.GoalRecord, error)
}

// Catalog holds the current people directory and resolved targets. Both are
// replaced together on every successful load and never mutated in place.
type Catalog struct {
	source    CatalogSource
	assetBase string
	now       func() time.Time
	logger    logger.Logger

	mu       sync.RWMutex
	dir      *directory.Directory
	targets  goals.Targets
	loadedAt time.Time
}

// NewCatalog creates an empty catalog. Until the first load every lookup
// falls back to defaults.
func NewCatalog(source CatalogSource, assetBase string, l logger.Logger) *Catalog {
	return &Catalog{
		source:    source,
		assetBase: assetBase,
		now:       time.Now,
		logger:    l,
		dir:       directory.Empty(directory.WithAssetBase(assetBase)),
		targets:   goals.Targets{},
	}
}

// Load fetches people and goals and swaps them in. When goals cannot be
// fetched the new directory is still installed and the previous targets kept.
func (c *Catalog) Load(ctx context.Context) error {
	people, err := c.source.FetchPeople(ctx)
	if err != nil {
		metrics.RecordCatalogLoad("error")
		return fmt.Errorf("load people: %w", err)
	}
	dir, skipped := directory.New(people, directory.WithAssetBase(c.assetBase))
	for _, name := range skipped {
		c.logger.Warn(ctx, "person skipped", logger.String("name", name))
	}

	records, err := c.source.FetchGoals(ctx)
	if err != nil {
		c.mu.Lock()
		c.dir = dir
		c.mu.Unlock()
		metrics.RecordCatalogLoad("error")
		return fmt.Errorf("load goals: %w", err)
	}

	targets, errs := goals.NewResolver(dir, goals.WithLogger(c.logger)).Resolve(ctx, c.now(), records)

	c.mu.Lock()
	c.dir = dir
	c.targets = targets
	c.loadedAt = c.now()
	c.mu.Unlock()

	metrics.RecordCatalogLoad("ok")
	c.logger.Info(ctx, "catalog loaded",
		logger.Int("people", dir.Len()),
		logger.Int("goals", len(records)),
		logger.Int("targets", len(targets)),
		logger.Int("dropped", len(errs)),
	)
	return nil
}

// Refresh loads until the first success, retrying every retry, then reloads
// every interval. A zero interval stops after the first success.
func (c *Catalog) Refresh(ctx context.Context, interval, retry time.Duration) {
	loaded := c.Loaded()
	for {
		wait := retry
		if loaded {
			if interval <= 0 {
				return
			}
			wait = interval
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
		if err := c.Load(ctx); err != nil {
			c.logger.Warn(ctx, "catalog reload failed", logger.Error(err))
			continue
		}
		loaded = true
	}
}

// Loaded reports whether goals have been resolved at least once.
func (c *Catalog) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.loadedAt.IsZero()
}

// People returns the number of people in the current directory.
func (c *Catalog) People() int {
	return c.directory().Len()
}

// Targets returns the current resolved targets.
func (c *Catalog) Targets() goals.Targets {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.targets
}

// DisplayName returns the bar label for short.
func (c *Catalog) DisplayName(short string) string { return c.directory().DisplayName(short) }

// IconURL returns the bar icon for short.
func (c *Catalog) IconURL(short string) string { return c.directory().IconURL(short) }

// PhotoURL returns the leader photo for short.
func (c *Catalog) PhotoURL(short string) string { return c.directory().PhotoURL(short) }

// VideoURL returns the interstitial video for short.
func (c *Catalog) VideoURL(short string) string { return c.directory().VideoURL(short) }

func (c *Catalog) directory() *directory.Directory {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dir
}
