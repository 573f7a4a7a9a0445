package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-allocator/internal/contracts"
)

func flatScenario(id string, days int, symbols ...string) contracts.Scenario {
	paths := make(map[string][]float64, len(symbols))
	for _, s := range symbols {
		p := make([]float64, days+1)
		for i := range p {
			p[i] = 100
		}
		paths[s] = p
	}
	return contracts.Scenario{ID: id, Name: id, Type: contracts.KindHistorical, Paths: paths}
}

func TestOptimize_FromMoments(t *testing.T) {
	o := newTestOrchestrator(t, 0, nil)

	out, err := o.Optimize(context.Background(), OptimizeInput{
		Objective:       contracts.ObjectiveMinVol,
		Assets:          []contracts.Asset{{Symbol: "A"}, {Symbol: "B"}},
		ExpectedReturns: []float64{0.0003, 0.0001},
		Covariance:      [][]float64{{0.04, 0}, {0, 0.01}},
	})
	require.NoError(t, err)
	assert.Nil(t, out.Estimate)
	assert.InDelta(t, 0.2, out.Weights["A"], 1e-9)
	assert.InDelta(t, 0.8, out.Weights["B"], 1e-9)
}

func TestOptimize_FromScenarioData(t *testing.T) {
	o := newTestOrchestrator(t, 0, nil)
	req := testRequest()

	gen, err := o.Scenarios(context.Background(), ScenarioRequest{ScenarioConfig: req.ScenarioConfig, Assets: req.Assets})
	require.NoError(t, err)
	assert.Equal(t, len(gen.Scenarios), gen.Count)
	assert.Equal(t, 0, gen.Synthetic)

	out, err := o.Optimize(context.Background(), OptimizeInput{
		Objective:    contracts.ObjectiveRiskParity,
		Assets:       req.Assets,
		Constraints:  contracts.Constraints{MaxWeightPerAsset: 0.4},
		Priors:       contracts.Priors{Shrinkage: "single_index"},
		ScenarioData: &ScenarioData{Scenarios: gen.Scenarios},
	})
	require.NoError(t, err)
	require.NotNil(t, out.Estimate)
	assert.Equal(t, contracts.SourceScenarios, out.Estimate.Source)
	require.NoError(t, out.Weights.Validate(0.4))
}

func TestOptimize_NoScenarioDataUsesSynthetic(t *testing.T) {
	o := newTestOrchestrator(t, 0, nil)

	out, err := o.Optimize(context.Background(), OptimizeInput{
		Objective: contracts.ObjectiveMaxSharpe,
		Assets:    []contracts.Asset{{Symbol: "SPY"}, {Symbol: "AGG"}},
	})
	require.NoError(t, err)
	require.NotNil(t, out.Estimate)
	assert.True(t, out.Estimate.Synthetic)
}

func TestOptimize_UnknownObjective(t *testing.T) {
	o := newTestOrchestrator(t, 0, nil)
	_, err := o.Optimize(context.Background(), OptimizeInput{Objective: "bogus"})
	assert.True(t, errors.Is(err, contracts.ErrUnknownObjective))
}

func TestSimulateAndAdvise_DefaultCosts(t *testing.T) {
	o := newTestOrchestrator(t, 0, nil)
	weights := contracts.AllocationWeights{"A": 0.6, "B": 0.4}

	sim, err := o.Simulate(context.Background(), contracts.SimulateRequest{
		Weights:   weights,
		Scenarios: []contracts.Scenario{flatScenario("flat", 10, "A", "B")},
	})
	require.NoError(t, err)
	require.Len(t, sim.Results, 1)
	assert.Equal(t, 0.0, sim.Results[0].TotalReturn)
	assert.Equal(t, 0.0, sim.Aggregate.MeanReturn)
	assert.Equal(t, 1.0, sim.Aggregate.PassRate)

	adv, err := o.Advise(context.Background(), contracts.AdviceRequest{
		Weights:         weights,
		CurrentHoldings: contracts.AllocationWeights{"A": 0.5, "B": 0.5},
		Simulation:      sim,
	})
	require.NoError(t, err)
	require.Len(t, adv.Trades, 2)
	assert.Greater(t, adv.TotalCost, 0.0)
}
