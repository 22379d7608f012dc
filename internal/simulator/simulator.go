// Package simulator is a stand-in sales backend. It serves the /people,
// /goals and /data documents the presenter polls, with sales drifting upward
// as simulated deals close.
package simulator

import (
	"context"
	"crypto/rand"
	"math"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/salesboard/internal/domain/model"
	"github.com/okian/salesboard/pkg/logger"
)

// Constants for random number generation.
const (
	randomFloatDivisor = 1000000
)

// Default deal settings.
const (
	defaultDealProbability = 0.3
	defaultMinDeal         = 50
	defaultMaxDeal         = 500
	defaultTarget          = 5000
)

// Seller is one simulated sales owner.
type Seller struct {
	Canonical string
	Short     string
	FileID    string
	Alias     string
	Target    float64
}

// Deal is a closed sale produced by Step.
type Deal struct {
	ID     string
	Seller string
	Amount float64
	At     time.Time
}

// DefaultRoster is used when no roster is given.
var DefaultRoster = []Seller{ //nolint:gochecknoglobals // fixed demo roster
	{Canonical: "Alice Martin", Short: "Alice", FileID: "alice", Alias: "AM", Target: 6000},
	{Canonical: "Bruno Costa", Short: "Bruno", FileID: "bruno", Alias: "BC", Target: 5000},
	{Canonical: "Chen Wei", Short: "Chen", FileID: "chen", Alias: "CW", Target: 5500},
	{Canonical: "Dana Okafor", Short: "Dana", FileID: "dana", Alias: "DO", Target: 4500},
	{Canonical: "Emil Novak", Short: "Emil", FileID: "emil", Alias: "EN", Target: 5000},
}

// Market holds the simulated sales state.
type Market struct {
	mu      sync.RWMutex
	roster  []Seller
	sales   map[string]float64
	deals   []Deal
	maxKept int

	random      func() float64
	now         func() time.Time
	probability float64
	minDeal     float64
	maxDeal     float64
	logger      logger.Logger
}

// Option applies a configuration option to the Market.
type Option func(*Market)

// WithRoster replaces the default roster.
func WithRoster(roster []Seller) Option {
	return func(m *Market) {
		if len(roster) > 0 {
			m.roster = append([]Seller(nil), roster...)
		}
	}
}

// WithRandom sets the source of uniform values in [0, 1).
func WithRandom(fn func() float64) Option {
	return func(m *Market) {
		if fn != nil {
			m.random = fn
		}
	}
}

// WithNow sets the clock used for goal windows and deal times.
func WithNow(fn func() time.Time) Option {
	return func(m *Market) {
		if fn != nil {
			m.now = fn
		}
	}
}

// WithDealProbability sets the chance per seller per step of closing a deal.
func WithDealProbability(p float64) Option {
	return func(m *Market) {
		if p >= 0 && p <= 1 {
			m.probability = p
		}
	}
}

// WithDealRange sets the deal amount bounds.
func WithDealRange(lo, hi float64) Option {
	return func(m *Market) {
		if lo >= 0 && hi >= lo {
			m.minDeal = lo
			m.maxDeal = hi
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(m *Market) {
		if l != nil {
			m.logger = l
		}
	}
}

// New creates a market with every seller at zero sales.
func New(opts ...Option) *Market {
	m := &Market{
		roster:      DefaultRoster,
		maxKept:     100,
		random:      cryptoFloat,
		now:         time.Now,
		probability: defaultDealProbability,
		minDeal:     defaultMinDeal,
		maxDeal:     defaultMaxDeal,
		logger:      logger.Get().Named("simulator"),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.sales = make(map[string]float64, len(m.roster))
	for _, s := range m.roster {
		m.sales[s.Short] = 0
	}
	return m
}

// cryptoFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func cryptoFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

// Step gives every seller one chance to close a deal and returns the deals
// closed.
func (m *Market) Step(ctx context.Context) []Deal {
	m.mu.Lock()
	defer m.mu.Unlock()

	var closed []Deal
	for _, s := range m.roster {
		if m.random() >= m.probability {
			continue
		}
		amount := math.Round(m.minDeal + m.random()*(m.maxDeal-m.minDeal))
		d := Deal{ID: uuid.NewString(), Seller: s.Short, Amount: amount, At: m.now()}
		m.sales[s.Short] += amount
		closed = append(closed, d)
		m.logger.Debug(ctx, "deal closed",
			logger.String("deal_id", d.ID),
			logger.String("seller", d.Seller),
			logger.Float64("amount", d.Amount),
		)
	}
	m.deals = append(m.deals, closed...)
	if over := len(m.deals) - m.maxKept; over > 0 {
		m.deals = append([]Deal(nil), m.deals[over:]...)
	}
	return closed
}

// AddSale credits amount to short directly. Unknown sellers join the board.
func (m *Market) AddSale(short string, amount float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sales[short] += amount
}

// Snapshot returns sellers ordered by sales, highest first. Ties keep
// roster order.
func (m *Market) Snapshot() model.Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	order := make(map[string]int, len(m.roster))
	for i, s := range m.roster {
		order[s.Short] = i
	}
	snap := make(model.Snapshot, 0, len(m.sales))
	for name, sales := range m.sales {
		snap = append(snap, model.SalesEntry{Name: name, Sales: sales})
	}
	sort.SliceStable(snap, func(i, j int) bool {
		if snap[i].Sales != snap[j].Sales {
			return snap[i].Sales > snap[j].Sales
		}
		oi, iok := order[snap[i].Name]
		oj, jok := order[snap[j].Name]
		switch {
		case iok && jok:
			return oi < oj
		case iok != jok:
			return iok
		default:
			return snap[i].Name < snap[j].Name
		}
	})
	return snap
}

// People returns the /people document keyed by canonical name.
func (m *Market) People() map[string]model.PersonRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]model.PersonRecord, len(m.roster))
	for _, s := range m.roster {
		out[s.Canonical] = model.PersonRecord{
			Short:    s.Short,
			FileID:   s.FileID,
			GoalName: s.Alias,
		}
	}
	return out
}

// Goals returns one goal per seller spanning the current calendar month,
// through the last second of its final day.
func (m *Market) Goals() []model.GoalRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := m.now().UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0).Add(-time.Second)

	out := make([]model.GoalRecord, 0, len(m.roster))
	for _, s := range m.roster {
		target := s.Target
		if target <= 0 {
			target = defaultTarget
		}
		out = append(out, model.GoalRecord{
			Name:      "Monthly revenue (" + s.Alias + ")",
			Start:     start.Format("2006-01-02"),
			End:       end.Format("2006-01-02T15:04:05"),
			Target:    formatTarget(target),
			CreatedBy: "simulator",
		})
	}
	return out
}

// Deals returns the most recent closed deals, oldest first.
func (m *Market) Deals() []Deal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Deal(nil), m.deals...)
}

// Run steps the market every interval until ctx is done.
func (m *Market) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Step(ctx)
		}
	}
}
