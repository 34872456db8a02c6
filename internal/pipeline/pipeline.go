package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/semaphore"

	"github.com/rocketsafe/rocketsafe/config"
	"github.com/rocketsafe/rocketsafe/internal/logger"
	"github.com/rocketsafe/rocketsafe/internal/metrics"
	"github.com/rocketsafe/rocketsafe/internal/models"
	"github.com/rocketsafe/rocketsafe/internal/snapshot"
)

// Fetcher is the upstream feed dependency.
type Fetcher interface {
	Fetch(ctx context.Context) ([]models.AlertRecord, error)
}

// Pipeline periodically refreshes the alert snapshot. The registries are
// static for the process lifetime; only the alert records change between
// refreshes.
type Pipeline struct {
	fetcher   Fetcher
	holder    *snapshot.Holder
	locations []models.LocationEntity
	polygons  []models.PolygonEntity
	clock     clockwork.Clock
	cfg       config.FeedConfig

	sem     *semaphore.Weighted
	mu      sync.Mutex
	running bool
}

// New creates a new pipeline instance
func New(fetcher Fetcher, holder *snapshot.Holder, locations []models.LocationEntity, polygons []models.PolygonEntity, clock clockwork.Clock, cfg config.FeedConfig) *Pipeline {
	return &Pipeline{
		fetcher:   fetcher,
		holder:    holder,
		locations: locations,
		polygons:  polygons,
		clock:     clock,
		cfg:       cfg,
		sem:       semaphore.NewWeighted(1),
	}
}

// Run refreshes immediately, then on every tick until ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("pipeline already running")
	}
	p.running = true
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
	}()

	logger.Info("Starting snapshot pipeline", "refresh_interval", p.cfg.RefreshInterval)

	if err := p.RefreshOnce(ctx); err != nil {
		logger.Error("Initial snapshot refresh failed", "error", err)
	}

	ticker := p.clock.NewTicker(p.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Snapshot pipeline stopping")
			return ctx.Err()
		case <-ticker.Chan():
			if err := p.RefreshOnce(ctx); err != nil {
				logger.Error("Snapshot refresh failed", "error", err)
			}
			p.publishAge()
		}
	}
}

// RefreshOnce fetches the feed and swaps in a rebuilt snapshot. Concurrent
// calls are collapsed; a second caller returns immediately while a refresh is
// in flight.
func (p *Pipeline) RefreshOnce(ctx context.Context) error {
	if !p.sem.TryAcquire(1) {
		return nil
	}
	defer p.sem.Release(1)

	start := p.clock.Now()
	records, err := p.fetcher.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("fetch feed: %w", err)
	}

	snap := &models.Snapshot{
		Alerts:    records,
		Locations: p.locations,
		Polygons:  p.polygons,
		FetchedAt: p.clock.Now().Unix(),
	}
	p.holder.Swap(snap)

	logger.Info("Snapshot refreshed",
		"alerts", len(records),
		"duration_ms", p.clock.Since(start).Milliseconds(),
	)
	return nil
}

func (p *Pipeline) publishAge() {
	snap, err := p.holder.Current()
	if err != nil {
		return
	}
	age := p.clock.Now().Unix() - snap.FetchedAt
	metrics.SetSnapshotAge(time.Duration(age) * time.Second)
}
