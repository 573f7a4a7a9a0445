package pipeline

import (
	"context"
	"fmt"

	"github.com/wonny/aegis-allocator/internal/contracts"
)

// ============================================================================
// Single-stage operations (API / CLI)
// 각 호출은 파이프라인과 같은 wall-clock 예산을 적용
// ============================================================================

// ScenarioData 외부에서 이미 만들어진 시나리오 묶음
type ScenarioData struct {
	Scenarios []contracts.Scenario `json:"scenarios" yaml:"scenarios"`
}

// OptimizeInput optimizer call.
// ExpectedReturns/Covariance (daily) take precedence; otherwise they are estimated from ScenarioData.
type OptimizeInput struct {
	Objective       contracts.Objective         `json:"objective" yaml:"objective"`
	Assets          []contracts.Asset           `json:"assets" yaml:"assets"`
	Constraints     contracts.Constraints       `json:"constraints" yaml:"constraints"`
	Priors          contracts.Priors            `json:"priors,omitempty" yaml:"priors,omitempty"`
	ScenarioData    *ScenarioData               `json:"scenarioData,omitempty" yaml:"scenarioData,omitempty"`
	ExpectedReturns []float64                   `json:"expectedReturns,omitempty" yaml:"expectedReturns,omitempty"`
	Covariance      [][]float64                 `json:"covariance,omitempty" yaml:"covariance,omitempty"`
	CurrentHoldings contracts.AllocationWeights `json:"currentHoldings,omitempty" yaml:"currentHoldings,omitempty"`
}

// OptimizeOutput optimizer result plus the estimate it was built from (nil when moments were given)
type OptimizeOutput struct {
	contracts.OptimizeResult
	Estimate *contracts.Estimate `json:"estimate,omitempty"`
}

// ScenarioRequest scenario generation call
type ScenarioRequest struct {
	ScenarioConfig contracts.ScenarioConfig `json:"scenarioConfig" yaml:"scenarioConfig"`
	Assets         []contracts.Asset        `json:"assets" yaml:"assets"`
}

// ScenarioOutput generated scenarios
type ScenarioOutput struct {
	Scenarios []contracts.Scenario `json:"scenarios"`
	Count     int                  `json:"count"`
	Synthetic int                  `json:"syntheticCount"`
}

func (o *Orchestrator) budget(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.timeout > 0 {
		return context.WithTimeout(ctx, o.timeout)
	}
	return context.WithCancel(ctx)
}

// Scenarios runs the scenario generator alone
func (o *Orchestrator) Scenarios(ctx context.Context, req ScenarioRequest) (*ScenarioOutput, error) {
	ctx, cancel := o.budget(ctx)
	defer cancel()

	scenarios, err := o.generator.Generate(ctx, req.ScenarioConfig, req.Assets)
	if err != nil {
		return nil, err
	}
	out := &ScenarioOutput{Scenarios: scenarios, Count: len(scenarios)}
	for i := range scenarios {
		if scenarios[i].Synthetic {
			out.Synthetic++
		}
	}
	return out, nil
}

// Estimate runs the parameter estimator alone
func (o *Orchestrator) Estimate(ctx context.Context, req contracts.EstimateRequest) (*contracts.Estimate, error) {
	ctx, cancel := o.budget(ctx)
	defer cancel()
	return o.estimator.Estimate(ctx, req)
}

// Optimize estimates moments from scenario data when needed, then optimizes
func (o *Orchestrator) Optimize(ctx context.Context, in OptimizeInput) (*OptimizeOutput, error) {
	if !in.Objective.Valid() {
		return nil, fmt.Errorf("%w: %q", contracts.ErrUnknownObjective, in.Objective)
	}
	ctx, cancel := o.budget(ctx)
	defer cancel()

	req := contracts.OptimizeRequest{
		Objective:       in.Objective,
		Assets:          contracts.Symbols(in.Assets),
		ExpectedReturns: in.ExpectedReturns,
		Covariance:      in.Covariance,
		Constraints:     in.Constraints,
		Priors:          in.Priors,
		PriorWeights:    in.CurrentHoldings,
	}

	out := &OptimizeOutput{}
	if len(in.Covariance) == 0 {
		var scenarios []contracts.Scenario
		if in.ScenarioData != nil {
			scenarios = in.ScenarioData.Scenarios
		}
		est, err := o.estimator.Estimate(ctx, contracts.EstimateRequest{
			Assets:    in.Assets,
			Scenarios: scenarios,
			Shrinkage: in.Priors.Shrinkage,
		})
		if err != nil {
			return nil, fmt.Errorf("estimate: %w", err)
		}
		req.Assets = est.Assets
		req.ExpectedReturns = est.ExpectedReturns
		req.Covariance = est.Covariance
		out.Estimate = est
	}

	res, err := o.optimizer.Optimize(ctx, req)
	if err != nil {
		return nil, err
	}
	out.OptimizeResult = *res
	return out, nil
}

// Simulate runs the portfolio simulator alone; an empty cost model uses the default one
func (o *Orchestrator) Simulate(ctx context.Context, req contracts.SimulateRequest) (*contracts.SimulationOutput, error) {
	ctx, cancel := o.budget(ctx)
	defer cancel()
	if req.CostModel.IsZero() {
		req.CostModel = contracts.DefaultCostModel()
	}
	return o.simulator.Simulate(ctx, req)
}

// Advise runs the advice synthesizer alone; an empty cost model uses the default one
func (o *Orchestrator) Advise(ctx context.Context, req contracts.AdviceRequest) (*contracts.Advice, error) {
	ctx, cancel := o.budget(ctx)
	defer cancel()
	if req.CostModel.IsZero() {
		req.CostModel = contracts.DefaultCostModel()
	}
	return o.synthesizer.Synthesize(ctx, req)
}
