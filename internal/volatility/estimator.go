package volatility

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/porticoai/portico/internal/config"
	"github.com/porticoai/portico/internal/models"
)

// MarketDataSource computes an annualized volatility scalar for an index
// over a lookback window.
type MarketDataSource interface {
	Volatility(ctx context.Context, index string, windowDays int) (float64, error)
}

type cacheKey struct {
	index      string
	windowDays int
}

// Estimator computes and caches market volatility readings. Readings are
// cached per (index, window) key for the configured TTL; a failed
// computation yields the neutral default and is not cached.
type Estimator struct {
	source    MarketDataSource
	threshold float64
	ttl       time.Duration
	logger    *slog.Logger

	mu    sync.RWMutex
	cache map[cacheKey]models.VolatilityContext

	now func() time.Time
}

// NewEstimator creates an estimator backed by the given market data source.
// A nil source selects the offline simulated generator.
func NewEstimator(source MarketDataSource, cfg config.VolatilityConfig, logger *slog.Logger) *Estimator {
	if source == nil {
		source = NewSimulatedSource(time.Now().UnixNano())
	}
	return &Estimator{
		source:    source,
		threshold: cfg.Threshold,
		ttl:       cfg.CacheTTL,
		logger:    logger,
		cache:     make(map[cacheKey]models.VolatilityContext),
		now:       time.Now,
	}
}

// Volatility returns the cached reading for (index, windowDays) when fresh,
// otherwise recomputes it. It never fails: on computation error the neutral
// default (1.0, not high) is returned so the pipeline can proceed.
func (e *Estimator) Volatility(ctx context.Context, index string, windowDays int) models.VolatilityContext {
	key := cacheKey{index: index, windowDays: windowDays}

	e.mu.RLock()
	entry, exists := e.cache[key]
	e.mu.RUnlock()

	if exists && e.now().Sub(entry.ComputedAt) < e.ttl {
		return entry
	}

	value, err := e.source.Volatility(ctx, index, windowDays)
	if err != nil {
		e.logger.Warn("volatility computation failed, using neutral default",
			"index", index,
			"window_days", windowDays,
			"error", err)
		return models.NeutralVolatility(windowDays)
	}

	reading := models.VolatilityContext{
		Value:      value,
		IsHigh:     value > e.threshold,
		WindowDays: windowDays,
		ComputedAt: e.now(),
	}
	if _, ok := e.source.(*SimulatedSource); ok {
		reading.Simulated = true
	}

	e.mu.Lock()
	// Another request may have refreshed the entry while we recomputed;
	// keep the newer one.
	if current, ok := e.cache[key]; !ok || current.ComputedAt.Before(reading.ComputedAt) {
		e.cache[key] = reading
	}
	reading = e.cache[key]
	e.mu.Unlock()

	e.logger.Debug("volatility computed",
		"index", index,
		"window_days", windowDays,
		"value", reading.Value,
		"is_high", reading.IsHigh,
		"simulated", reading.Simulated)

	return reading
}

// Resolve honors a caller-supplied volatility override before consulting the
// cache. Overrides are classified against the same threshold but never cached.
func (e *Estimator) Resolve(ctx context.Context, market models.MarketState, index string, windowDays int) models.VolatilityContext {
	if market.Volatility != nil {
		return models.VolatilityContext{
			Value:      *market.Volatility,
			IsHigh:     *market.Volatility > e.threshold,
			WindowDays: windowDays,
			ComputedAt: e.now(),
		}
	}
	return e.Volatility(ctx, index, windowDays)
}

// SimulatedSource produces bounded pseudo-random volatility readings for
// environments without a live market-data feed. Values fall in [0.5, 3.0]
// and are biased upward on Mondays and Fridays to emulate elevated-volatility
// periods around weekends.
type SimulatedSource struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// NewSimulatedSource creates a simulated source with a deterministic seed.
func NewSimulatedSource(seed int64) *SimulatedSource {
	return &SimulatedSource{
		rng: rand.New(rand.NewSource(seed)),
		now: time.Now,
	}
}

// Volatility returns a pseudo-random value in [0.5, 3.0]. Never fails.
func (s *SimulatedSource) Volatility(_ context.Context, _ string, _ int) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	value := 0.5 + s.rng.Float64()*2.5

	switch s.now().Weekday() {
	case time.Monday, time.Friday:
		value += 0.5
		if value > 3.0 {
			value = 3.0
		}
	}

	return value, nil
}
