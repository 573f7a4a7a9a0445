package estimator

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-allocator/internal/contracts"
	"github.com/wonny/aegis-allocator/internal/refdata"
	"github.com/wonny/aegis-allocator/pkg/logger"
)

func newTestEstimator(t *testing.T) *Estimator {
	t.Helper()
	store, err := refdata.NewDefaultStore()
	require.NoError(t, err)
	return New(store, logger.NewNop())
}

var twoAssets = []contracts.Asset{{Symbol: "A"}, {Symbol: "B"}}

// A: +10%, -10%, +10%   B: 0%, +5%, -5%
func knownScenario() contracts.Scenario {
	return contracts.Scenario{
		ID: "known",
		Paths: map[string][]float64{
			"A": {100, 110, 99, 108.9},
			"B": {100, 100, 105, 99.75},
		},
	}
}

func sampleCov(x, y []float64) float64 {
	var mx, my float64
	for i := range x {
		mx += x[i]
		my += y[i]
	}
	mx /= float64(len(x))
	my /= float64(len(y))
	var s float64
	for i := range x {
		s += (x[i] - mx) * (y[i] - my)
	}
	return s / float64(len(x)-1)
}

func TestEstimate_NoShrinkage(t *testing.T) {
	e := newTestEstimator(t)

	est, err := e.Estimate(context.Background(), contracts.EstimateRequest{
		Assets:    twoAssets,
		Scenarios: []contracts.Scenario{knownScenario()},
		Shrinkage: ShrinkageNone,
	})
	require.NoError(t, err)

	ra := []float64{0.10, -0.10, 0.10}
	rb := []float64{0, 0.05, -0.05}

	assert.Equal(t, 3, est.Observations)
	assert.Equal(t, contracts.SourceScenarios, est.Source)
	assert.False(t, est.Synthetic)
	assert.InDelta(t, 0.10/3, est.ExpectedReturns[0], 1e-9)
	assert.InDelta(t, 0.0, est.ExpectedReturns[1], 1e-9)
	assert.InDelta(t, sampleCov(ra, ra), est.Covariance[0][0], 1e-9)
	assert.InDelta(t, sampleCov(rb, rb), est.Covariance[1][1], 1e-9)
	assert.InDelta(t, sampleCov(ra, rb), est.Covariance[0][1], 1e-9)
	assert.Equal(t, est.Covariance[0][1], est.Covariance[1][0])
}

func TestEstimate_SingleIndexShrinkage(t *testing.T) {
	e := newTestEstimator(t)

	est, err := e.Estimate(context.Background(), contracts.EstimateRequest{
		Assets:    twoAssets,
		Scenarios: []contracts.Scenario{knownScenario()},
	})
	require.NoError(t, err)

	ra := []float64{0.10, -0.10, 0.10}
	rb := []float64{0, 0.05, -0.05}
	va, vb, cab := sampleCov(ra, ra), sampleCov(rb, rb), sampleCov(ra, rb)
	avg := (va + vb) / 2

	assert.Equal(t, DefaultShrinkageIntensity, est.Shrinkage)
	assert.InDelta(t, 0.8*va+0.2*avg, est.Covariance[0][0], 1e-12)
	assert.InDelta(t, 0.8*vb+0.2*avg, est.Covariance[1][1], 1e-12)
	assert.InDelta(t, 0.8*cab, est.Covariance[0][1], 1e-12)
}

func TestEstimate_SkipsMalformed(t *testing.T) {
	e := newTestEstimator(t)

	bad := []contracts.Scenario{
		{ID: "missing", Paths: map[string][]float64{"A": {100, 101}}},
		{ID: "negative", Paths: map[string][]float64{"A": {100, -1}, "B": {100, 100}}},
		{ID: "unequal", Paths: map[string][]float64{"A": {100, 101, 102}, "B": {100, 100}}},
	}
	est, err := e.Estimate(context.Background(), contracts.EstimateRequest{
		Assets:    twoAssets,
		Scenarios: append(bad, knownScenario()),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, est.SkippedScenarios)
	assert.Equal(t, 3, est.Observations)
	assert.False(t, est.Synthetic)
}

func TestEstimate_SyntheticFallback(t *testing.T) {
	e := newTestEstimator(t)
	req := contracts.EstimateRequest{
		Assets: []contracts.Asset{{Symbol: "SPY"}, {Symbol: "AGG"}, {Symbol: "UNKNOWN", Class: contracts.ClassCommodities}},
	}

	first, err := e.Estimate(context.Background(), req)
	require.NoError(t, err)
	second, err := e.Estimate(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, first.Synthetic)
	assert.Equal(t, contracts.SourceSynthetic, first.Source)
	assert.Equal(t, 252, first.Observations)
	assert.Equal(t, first, second, "synthetic fallback must be deterministic")

	// SPY 16% 연변동성 → 일별 분산 ≈ 0.16²/252
	assert.InDelta(t, 0.16*0.16/252, first.Covariance[0][0], 0.5*0.16*0.16/252)
	for i := range first.Covariance {
		assert.Greater(t, first.Covariance[i][i], 0.0)
		assert.False(t, math.IsNaN(first.ExpectedReturns[i]))
	}
}

func TestEstimate_Errors(t *testing.T) {
	e := newTestEstimator(t)

	_, err := e.Estimate(context.Background(), contracts.EstimateRequest{Assets: twoAssets, Shrinkage: "ledoit_wolf"})
	assert.True(t, errors.Is(err, contracts.ErrInvalidConfig))

	_, err = e.Estimate(context.Background(), contracts.EstimateRequest{})
	assert.True(t, errors.Is(err, contracts.ErrInvalidConfig))
}

func TestShrinkageIntensity(t *testing.T) {
	tests := []struct {
		method string
		want   float64
		ok     bool
	}{
		{"", 0.2, true},
		{"single_index", 0.2, true},
		{"none", 0, true},
		{"oas", 0, false},
	}
	for _, tt := range tests {
		got, err := ShrinkageIntensity(tt.method)
		if tt.ok {
			assert.NoError(t, err, tt.method)
			assert.Equal(t, tt.want, got, tt.method)
		} else {
			assert.Error(t, err, tt.method)
		}
	}
}
