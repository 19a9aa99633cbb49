// Package market simulates a price feed over a fixed catalogue.
// Prices drift by up to one percent per tick and are never persisted.
package market

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"noblechain/events"
	"noblechain/models"

	"github.com/go-co-op/gocron/v2"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// DefaultTickInterval is how often Start moves prices
const DefaultTickInterval = 5 * time.Second

// maxJitter bounds the per-tick move to ±1%
const maxJitter = 0.01

// pricePrecision keeps repeated multiplication from growing the decimal without bound
const pricePrecision = 16

// Publisher receives market updates
type Publisher interface {
	Publish(event events.Event)
}

// Feed holds the live catalogue
type Feed struct {
	mu        sync.RWMutex
	order     []string
	assets    map[string]*models.MarketAsset
	rng       *rand.Rand
	publisher Publisher
	scheduler gocron.Scheduler
}

// Option configures a Feed
type Option func(*Feed)

// WithRand replaces the jitter source, for deterministic tests
func WithRand(r *rand.Rand) Option {
	return func(f *Feed) {
		f.rng = r
	}
}

// NewFeed seeds the catalogue. publisher may be nil.
func NewFeed(publisher Publisher, opts ...Option) *Feed {
	order, assets := seedAssets()
	f := &Feed{
		order:     order,
		assets:    assets,
		rng:       rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x6e626c)),
		publisher: publisher,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Price returns the current price of symbol, zero when unknown
func (f *Feed) Price(symbol string) decimal.Decimal {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if a, ok := f.assets[symbol]; ok {
		return a.Price
	}
	return decimal.Zero
}

// Get returns a copy of one asset
func (f *Feed) Get(symbol string) (models.MarketAsset, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	a, ok := f.assets[symbol]
	if !ok {
		return models.MarketAsset{}, false
	}
	return *a, true
}

// Snapshot returns copies of every asset in catalogue order
func (f *Feed) Snapshot() []models.MarketAsset {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.snapshotLocked()
}

func (f *Feed) snapshotLocked() []models.MarketAsset {
	out := make([]models.MarketAsset, 0, len(f.order))
	for _, symbol := range f.order {
		out = append(out, *f.assets[symbol])
	}
	return out
}

// Tick multiplies every price by 1+U with U uniform in [-0.01, 0.01] and announces the new prices
func (f *Feed) Tick() {
	f.mu.Lock()
	for _, symbol := range f.order {
		a := f.assets[symbol]
		u := (f.rng.Float64()*2 - 1) * maxJitter
		a.Price = a.Price.Mul(decimal.NewFromFloat(1 + u)).Round(pricePrecision)
	}
	snapshot := f.snapshotLocked()
	f.mu.Unlock()

	if f.publisher != nil {
		f.publisher.Publish(events.MarketUpdatedEvent{Assets: snapshot})
	}
}

// Start runs Tick every interval on a gocron scheduler. A tick that is still
// running when the next one is due causes that one to be skipped.
func (f *Feed) Start(interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultTickInterval
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.scheduler != nil {
		return fmt.Errorf("market feed already started")
	}

	s, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create market scheduler: %w", err)
	}

	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(f.Tick),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName("market-tick"),
	)
	if err != nil {
		_ = s.Shutdown()
		return fmt.Errorf("failed to schedule market tick: %w", err)
	}

	s.Start()
	f.scheduler = s

	log.WithField("interval", interval).Info("Market feed started")
	return nil
}

// Stop shuts the scheduler down and waits for a running tick to finish
func (f *Feed) Stop() error {
	f.mu.Lock()
	s := f.scheduler
	f.scheduler = nil
	f.mu.Unlock()

	if s == nil {
		return nil
	}
	if err := s.Shutdown(); err != nil {
		return fmt.Errorf("failed to stop market scheduler: %w", err)
	}
	log.Info("Market feed stopped")
	return nil
}
