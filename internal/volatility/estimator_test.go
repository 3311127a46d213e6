package volatility

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/porticoai/portico/internal/config"
	"github.com/porticoai/portico/internal/models"
)

type stubSource struct {
	value float64
	err   error
	calls int
}

func (s *stubSource) Volatility(_ context.Context, _ string, _ int) (float64, error) {
	s.calls++
	if s.err != nil {
		return 0, s.err
	}
	return s.value, nil
}

func testVolConfig() config.VolatilityConfig {
	return config.VolatilityConfig{
		Threshold:  1.5,
		CacheTTL:   time.Hour,
		WindowDays: 30,
		Index:      "SPY",
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestEstimator_Classification(t *testing.T) {
	tests := []struct {
		name       string
		value      float64
		expectHigh bool
	}{
		{"below threshold", 1.2, false},
		{"at threshold", 1.5, false},
		{"above threshold", 1.6, true},
		{"extreme", 3.0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := &stubSource{value: tt.value}
			e := NewEstimator(source, testVolConfig(), testLogger())

			vol := e.Volatility(context.Background(), "SPY", 30)

			if vol.Value != tt.value {
				t.Errorf("Value = %v, want %v", vol.Value, tt.value)
			}
			if vol.IsHigh != tt.expectHigh {
				t.Errorf("IsHigh = %v, want %v", vol.IsHigh, tt.expectHigh)
			}
			if vol.Simulated {
				t.Error("reading from a real source must not be flagged simulated")
			}
		})
	}
}

func TestEstimator_CacheWithinTTL(t *testing.T) {
	source := &stubSource{value: 2.0}
	e := NewEstimator(source, testVolConfig(), testLogger())

	first := e.Volatility(context.Background(), "SPY", 30)
	second := e.Volatility(context.Background(), "SPY", 30)

	if source.calls != 1 {
		t.Errorf("source called %d times, want 1", source.calls)
	}
	if first != second {
		t.Errorf("cached reading differs: %+v vs %+v", first, second)
	}
}

func TestEstimator_CacheExpiry(t *testing.T) {
	source := &stubSource{value: 2.0}
	e := NewEstimator(source, testVolConfig(), testLogger())

	now := time.Now()
	e.now = func() time.Time { return now }
	e.Volatility(context.Background(), "SPY", 30)

	source.value = 0.8
	e.now = func() time.Time { return now.Add(61 * time.Minute) }
	refreshed := e.Volatility(context.Background(), "SPY", 30)

	if source.calls != 2 {
		t.Errorf("source called %d times, want 2", source.calls)
	}
	if refreshed.Value != 0.8 {
		t.Errorf("Value = %v, want refreshed 0.8", refreshed.Value)
	}
	if refreshed.IsHigh {
		t.Error("refreshed reading should be classified low")
	}
}

func TestEstimator_SeparateCacheKeys(t *testing.T) {
	source := &stubSource{value: 2.0}
	e := NewEstimator(source, testVolConfig(), testLogger())

	e.Volatility(context.Background(), "SPY", 30)
	e.Volatility(context.Background(), "SPY", 90)
	e.Volatility(context.Background(), "QQQ", 30)

	if source.calls != 3 {
		t.Errorf("source called %d times, want 3 (one per key)", source.calls)
	}
}

func TestEstimator_FailureYieldsNeutralDefault(t *testing.T) {
	source := &stubSource{err: errors.New("feed unavailable")}
	e := NewEstimator(source, testVolConfig(), testLogger())

	vol := e.Volatility(context.Background(), "SPY", 30)

	if vol.Value != 1.0 || vol.IsHigh {
		t.Errorf("expected neutral default, got %+v", vol)
	}

	// Failures are not cached: the next call must retry the source.
	e.Volatility(context.Background(), "SPY", 30)
	if source.calls != 2 {
		t.Errorf("source called %d times, want 2", source.calls)
	}
}

func TestEstimator_CallerOverrideSkipsLookup(t *testing.T) {
	source := &stubSource{value: 2.9}
	e := NewEstimator(source, testVolConfig(), testLogger())

	override := 1.8
	vol := e.Resolve(context.Background(), models.MarketState{Volatility: &override}, "SPY", 30)

	if source.calls != 0 {
		t.Errorf("source called %d times, want 0 for override", source.calls)
	}
	if vol.Value != 1.8 || !vol.IsHigh {
		t.Errorf("override not applied: %+v", vol)
	}
}

func TestSimulatedSource_Bounds(t *testing.T) {
	source := NewSimulatedSource(42)

	for i := 0; i < 200; i++ {
		value, err := source.Volatility(context.Background(), "SPY", 30)
		if err != nil {
			t.Fatalf("simulated source must not fail: %v", err)
		}
		if value < 0.5 || value > 3.0 {
			t.Fatalf("value %v out of [0.5, 3.0]", value)
		}
	}
}

func TestSimulatedSource_WeekdayBias(t *testing.T) {
	monday := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)  // Monday
	tuesday := time.Date(2025, 6, 3, 12, 0, 0, 0, time.UTC) // Tuesday

	sample := func(day time.Time) float64 {
		source := NewSimulatedSource(7)
		source.now = func() time.Time { return day }
		sum := 0.0
		for i := 0; i < 500; i++ {
			v, _ := source.Volatility(context.Background(), "SPY", 30)
			sum += v
		}
		return sum / 500
	}

	if sample(monday) <= sample(tuesday) {
		t.Error("expected Monday readings to be biased above Tuesday readings")
	}
}

func TestEstimator_SimulatedReadingsAreFlagged(t *testing.T) {
	e := NewEstimator(nil, testVolConfig(), testLogger())

	vol := e.Volatility(context.Background(), "SPY", 30)
	if !vol.Simulated {
		t.Error("readings from the simulated source must be flagged")
	}
}

func TestAdaptiveSizer_Rule(t *testing.T) {
	retrieval := config.RetrievalConfig{BaseCount: 5, MaxCount: 20, HighVolMultiplier: 2.0}
	sizer := NewAdaptiveSizer(nil, retrieval, testVolConfig())

	tests := []struct {
		name     string
		vol      models.VolatilityContext
		expected int
	}{
		{"low volatility uses base", models.VolatilityContext{Value: 1.0}, 5},
		{"high volatility scales", models.VolatilityContext{Value: 2.0, IsHigh: true}, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sizer.CountFor(tt.vol); got != tt.expected {
				t.Errorf("CountFor() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestAdaptiveSizer_CapsAtMax(t *testing.T) {
	retrieval := config.RetrievalConfig{BaseCount: 15, MaxCount: 20, HighVolMultiplier: 3.0}
	sizer := NewAdaptiveSizer(nil, retrieval, testVolConfig())

	if got := sizer.CountFor(models.VolatilityContext{IsHigh: true}); got != 20 {
		t.Errorf("CountFor() = %d, want capped 20", got)
	}
}

func TestAdaptiveSizer_ExplicitCountShortCircuits(t *testing.T) {
	source := &stubSource{value: 2.9}
	e := NewEstimator(source, testVolConfig(), testLogger())
	sizer := NewAdaptiveSizer(e, config.RetrievalConfig{BaseCount: 5, MaxCount: 20, HighVolMultiplier: 2.0}, testVolConfig())

	count, _ := sizer.DocumentCount(context.Background(), 12, models.MarketState{})

	if count != 12 {
		t.Errorf("DocumentCount() = %d, want explicit 12", count)
	}
	if source.calls != 0 {
		t.Errorf("volatility source called %d times, want 0", source.calls)
	}
}

func TestAdaptiveSizer_AdaptivePath(t *testing.T) {
	source := &stubSource{value: 2.0}
	e := NewEstimator(source, testVolConfig(), testLogger())
	sizer := NewAdaptiveSizer(e, config.RetrievalConfig{BaseCount: 5, MaxCount: 20, HighVolMultiplier: 2.0}, testVolConfig())

	count, vol := sizer.DocumentCount(context.Background(), 0, models.MarketState{})

	if count != 10 {
		t.Errorf("DocumentCount() = %d, want 10", count)
	}
	if !vol.IsHigh {
		t.Error("expected high classification for 2.0")
	}
	if source.calls != 1 {
		t.Errorf("source called %d times, want 1", source.calls)
	}
}
