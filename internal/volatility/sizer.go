package volatility

import (
	"context"
	"math"

	"github.com/porticoai/portico/internal/config"
	"github.com/porticoai/portico/internal/models"
)

// AdaptiveSizer converts a volatility classification into a retrieval
// document-count target. High-volatility markets warrant a deeper retrieval.
type AdaptiveSizer struct {
	estimator  *Estimator
	base       int
	max        int
	multiplier float64
	index      string
	windowDays int
}

// NewAdaptiveSizer wires the sizer to an estimator and its sizing parameters.
func NewAdaptiveSizer(estimator *Estimator, retrieval config.RetrievalConfig, vol config.VolatilityConfig) *AdaptiveSizer {
	return &AdaptiveSizer{
		estimator:  estimator,
		base:       retrieval.BaseCount,
		max:        retrieval.MaxCount,
		multiplier: retrieval.HighVolMultiplier,
		index:      vol.Index,
		windowDays: vol.WindowDays,
	}
}

// DocumentCount returns the number of documents to retrieve. An explicit
// caller-supplied count short-circuits the volatility lookup entirely.
func (s *AdaptiveSizer) DocumentCount(ctx context.Context, explicit int, market models.MarketState) (int, models.VolatilityContext) {
	if explicit > 0 {
		return explicit, models.VolatilityContext{}
	}

	vol := s.estimator.Resolve(ctx, market, s.index, s.windowDays)
	return s.CountFor(vol), vol
}

// CountFor applies the sizing rule to an already-computed reading.
func (s *AdaptiveSizer) CountFor(vol models.VolatilityContext) int {
	if !vol.IsHigh {
		return s.base
	}

	scaled := int(math.Round(float64(s.base) * s.multiplier))
	if scaled > s.max {
		return s.max
	}
	return scaled
}
