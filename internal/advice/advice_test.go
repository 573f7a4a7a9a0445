package advice

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-allocator/internal/contracts"
	"github.com/wonny/aegis-allocator/internal/refdata"
	"github.com/wonny/aegis-allocator/pkg/logger"
)

func newTestSynthesizer(t *testing.T) *Synthesizer {
	t.Helper()
	store, err := refdata.NewDefaultStore()
	require.NoError(t, err)
	return New(store, logger.NewNop())
}

func TestSynthesize_Trades(t *testing.T) {
	s := newTestSynthesizer(t)

	adv, err := s.Synthesize(context.Background(), contracts.AdviceRequest{
		Weights:         contracts.AllocationWeights{"SPY": 0.5, "AGG": 0.3, "GLD": 0.2},
		CurrentHoldings: contracts.AllocationWeights{"SPY": 0.6, "AGG": 0.2995, "TLT": 0.1005},
		CostModel:       contracts.DefaultCostModel(),
	})
	require.NoError(t, err)

	// AGG Δ=0.0005 → 거래 없음 (중요도 기준 미만)
	require.Len(t, adv.Trades, 3)
	assert.Equal(t, "GLD", adv.Trades[0].Symbol)
	assert.Equal(t, contracts.SideBuy, adv.Trades[0].Side)
	assert.Equal(t, "TLT", adv.Trades[1].Symbol)
	assert.Equal(t, contracts.SideSell, adv.Trades[1].Side)
	assert.Equal(t, "SPY", adv.Trades[2].Symbol)
	assert.Equal(t, contracts.SideSell, adv.Trades[2].Side)

	for _, tr := range adv.Trades {
		assert.Equal(t, tr.Difference > 0, tr.Side == contracts.SideBuy, tr.Symbol)
		assert.Greater(t, tr.Quantity, 0.0)
		assert.Greater(t, tr.ADVPct, 0.0)
	}

	// GLD: 0.2 × 1,000,000 = 200,000; 비용 = 0.2 × (1 + 5 + 10×0.2) / 10000 × 1e6
	assert.Equal(t, 200000.0, adv.Trades[0].Quantity)
	assert.Equal(t, 160.0, adv.Trades[0].EstCost)

	var sum float64
	for _, tr := range adv.Trades {
		sum += tr.EstCost
	}
	assert.InDelta(t, sum, adv.TotalCost, 1e-9)
	assert.InDelta(t, 0.2005, adv.Turnover, 1e-12)
}

func TestSynthesize_MaterialityBoundary(t *testing.T) {
	s := newTestSynthesizer(t)

	adv, err := s.Synthesize(context.Background(), contracts.AdviceRequest{
		Weights:         contracts.AllocationWeights{"A": 0.5, "B": 0.5},
		CurrentHoldings: contracts.AllocationWeights{"A": 0.5009, "B": 0.4991},
	})
	require.NoError(t, err)
	assert.Empty(t, adv.Trades)
	assert.Contains(t, adv.Rationale.Explanation, "no trades required")
}

func TestSynthesize_DefaultRiskSummary(t *testing.T) {
	s := newTestSynthesizer(t)

	adv, err := s.Synthesize(context.Background(), contracts.AdviceRequest{
		Weights: contracts.AllocationWeights{"SPY": 0.6, "AGG": 0.4},
	})
	require.NoError(t, err)

	tables := refdata.MustDefault()
	assert.Equal(t, contracts.RiskFromDefaults, adv.RiskSummary.Source)
	assert.True(t, adv.RiskSummary.Synthetic)
	assert.Equal(t, tables.RiskDefaults.Stats(), adv.RiskSummary.AggregateStats)
	assert.Empty(t, adv.Rationale.TopScenarios)
	assert.Len(t, adv.Sensitivities, len(tables.Sensitivities))
}

func TestSynthesize_SimulationPassthrough(t *testing.T) {
	s := newTestSynthesizer(t)
	sim := &contracts.SimulationOutput{
		Results: []contracts.SimulationResult{
			{ScenarioID: "a", TotalReturn: 0.05},
			{ScenarioID: "b", TotalReturn: -0.30, MaxDrawdown: 0.35},
			{ScenarioID: "c", TotalReturn: -0.10},
			{ScenarioID: "d", TotalReturn: -0.10},
		},
		Aggregate: contracts.AggregateStats{MeanReturn: -0.1125, MaxDrawdown: 0.35, PassRate: 0.75, SharpeRatio: 0.2},
	}

	adv, err := s.Synthesize(context.Background(), contracts.AdviceRequest{
		Weights:    contracts.AllocationWeights{"SPY": 1},
		Simulation: sim,
	})
	require.NoError(t, err)

	assert.Equal(t, contracts.RiskFromSimulation, adv.RiskSummary.Source)
	assert.False(t, adv.RiskSummary.Synthetic)
	assert.Equal(t, sim.Aggregate, adv.RiskSummary.AggregateStats)

	require.Len(t, adv.Rationale.TopScenarios, 3)
	assert.Equal(t, "b", adv.Rationale.TopScenarios[0].ScenarioID)
	assert.Equal(t, "c", adv.Rationale.TopScenarios[1].ScenarioID)
	assert.Equal(t, "d", adv.Rationale.TopScenarios[2].ScenarioID)

	// weak Sharpe, deep drawdown, low pass rate, high turnover (100% from cash)
	assert.Len(t, adv.Rationale.KeyInsights, 4)
}

func TestSensitivities(t *testing.T) {
	tables := refdata.MustDefault()
	s := newTestSynthesizer(t)

	adv, err := s.Synthesize(context.Background(), contracts.AdviceRequest{
		Weights:     contracts.AllocationWeights{"TLT": 0.5, "EEM": 0.2, "XLE": 0.3},
		Diagnostics: &contracts.Diagnostics{ExpectedReturn: 0.06, ExpectedVol: 0.10, SharpeRatio: 0.6},
	})
	require.NoError(t, err)

	byID := make(map[string]contracts.Sensitivity, len(adv.Sensitivities))
	for _, sens := range adv.Sensitivities {
		byID[sens.Shock] = sens
	}

	tlt, _ := tables.Profile("TLT", "")
	duration := 0.5 * tlt.Duration
	assert.InDelta(t, 0.06-0.01*duration, byID["rates_up_100bp"].ExpectedReturn, 1e-12)
	assert.InDelta(t, 0.06+0.01*duration, byID["rates_down_100bp"].ExpectedReturn, 1e-12)

	// EEM은 EM 태그 → 1.5배
	assert.InDelta(t, 0.06+0.05*1.5*0.2, byID["usd_down_5pct"].ExpectedReturn, 1e-12)
	assert.InDelta(t, 0.06+0.10*0.3, byID["oil_up_10pct"].ExpectedReturn, 1e-12)
	assert.InDelta(t, 0.10*(1+0.2*0.3), byID["oil_up_10pct"].ExpectedVol, 1e-12)
	// 비채권 비중 0.5
	assert.InDelta(t, 0.10*(1+0.5*0.5), byID["equity_vol_x1_5"].ExpectedVol, 1e-12)

	for _, sens := range adv.Sensitivities {
		assert.GreaterOrEqual(t, sens.MaxDrawdown, 0.0)
	}
}

func TestFactorShift(t *testing.T) {
	tables := refdata.MustDefault()
	s := newTestSynthesizer(t)

	adv, err := s.Synthesize(context.Background(), contracts.AdviceRequest{
		Weights: contracts.AllocationWeights{"SPY": 0.6, "AGG": 0.3, "GLD": 0.05, "CASH": 0.05},
	})
	require.NoError(t, err)

	spy, _ := tables.Profile("SPY", "")
	agg, _ := tables.Profile("AGG", "")
	gld, _ := tables.Profile("GLD", "")
	fs := adv.Rationale.FactorShift
	assert.InDelta(t, 0.6*spy.Beta, fs.EquityBeta, 1e-12)
	assert.InDelta(t, 0.6*spy.Beta-0.60, fs.EquityBetaVsBench, 1e-12)
	assert.InDelta(t, 0.3*agg.Duration, fs.DurationYears, 1e-12)
	assert.InDelta(t, 0.3*agg.Duration-2.0, fs.DurationVsBench, 1e-12)
	assert.InDelta(t, 0.05*gld.Beta-0.05, fs.CommodityBetaVsBench, 1e-12)
	assert.InDelta(t, 0.05, fs.CashWeight, 1e-12)
}

func TestSynthesize_Errors(t *testing.T) {
	s := newTestSynthesizer(t)

	tests := []struct {
		name string
		req  contracts.AdviceRequest
	}{
		{"weights not summing to one", contracts.AdviceRequest{Weights: contracts.AllocationWeights{"A": 0.4}}},
		{"cap exceeded", contracts.AdviceRequest{
			Weights:     contracts.AllocationWeights{"A": 0.7, "B": 0.3},
			Constraints: contracts.Constraints{MaxWeightPerAsset: 0.5},
		}},
		{"negative holding", contracts.AdviceRequest{
			Weights:         contracts.AllocationWeights{"A": 1},
			CurrentHoldings: contracts.AllocationWeights{"A": -0.2},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Synthesize(context.Background(), tt.req)
			assert.True(t, errors.Is(err, contracts.ErrInvalidConfig), "got %v", err)
		})
	}
}
