package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/aegis-allocator/internal/contracts"
	"github.com/wonny/aegis-allocator/pkg/logger"
)

// Stage names recorded in Result.CompletedStages
const (
	StageScenarios = "S1:Scenarios"
	StageEstimate  = "S2:Estimate"
	StageOptimize  = "S3:Optimize"
	StageSimulate  = "S4:Simulate"
	StageAdvice    = "S5:Advice"
)

// Run status labels
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusTimeout = "timeout"
)

// Request 파이프라인 요청 (S1 → S5 한 번에)
type Request struct {
	Assets          []contracts.Asset           `json:"assets" yaml:"assets"`
	ScenarioConfig  contracts.ScenarioConfig    `json:"scenarioConfig" yaml:"scenarioConfig"`
	Objective       contracts.Objective         `json:"objective" yaml:"objective"`
	Constraints     contracts.Constraints       `json:"constraints" yaml:"constraints"`
	Priors          contracts.Priors            `json:"priors,omitempty" yaml:"priors,omitempty"`
	CurrentHoldings contracts.AllocationWeights `json:"currentHoldings,omitempty" yaml:"currentHoldings,omitempty"`
	CostModel       *contracts.CostModel        `json:"costModel,omitempty" yaml:"costModel,omitempty"`
	RebalanceDays   int                         `json:"rebalanceDays,omitempty" yaml:"rebalanceDays,omitempty"`
	Notional        float64                     `json:"notional,omitempty" yaml:"notional,omitempty"`
}

// Costs returns the request cost model or the default one
func (r Request) Costs() contracts.CostModel {
	if r.CostModel == nil {
		return contracts.DefaultCostModel()
	}
	return *r.CostModel
}

// Hash returns a stable digest of the request (cache key)
func (r Request) Hash() (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Result 파이프라인 실행 결과
// ⭐ SSOT: Synthetic = 어느 단계든 합성 데이터로 대체된 경우 true
type Result struct {
	RunID           string                      `json:"runId"`
	RequestHash     string                      `json:"requestHash"`
	StartedAt       time.Time                   `json:"startedAt"`
	Success         bool                        `json:"success"`
	Status          string                      `json:"status"`
	Error           string                      `json:"error,omitempty"`
	CompletedStages []string                    `json:"completedStages"`
	StageDurations  map[string]float64          `json:"stageDurationsMs"`
	ScenarioCount   int                         `json:"scenarioCount"`
	Estimate        *contracts.Estimate         `json:"estimate,omitempty"`
	Optimization    *contracts.OptimizeResult   `json:"optimization,omitempty"`
	Simulation      *contracts.SimulationOutput `json:"simulation,omitempty"`
	Advice          *contracts.Advice           `json:"advice,omitempty"`
	Synthetic       bool                        `json:"synthetic"`
	DurationMs      float64                     `json:"durationMs"`
}

// Observer receives pipeline metrics (prometheus in production)
type Observer interface {
	ObserveStage(stage string, d time.Duration)
	ObserveRun(objective contracts.Objective, status string, d time.Duration)
	ObserveSkipped(stage string, n int)
}

type nopObserver struct{}

func (nopObserver) ObserveStage(string, time.Duration)                    {}
func (nopObserver) ObserveRun(contracts.Objective, string, time.Duration) {}
func (nopObserver) ObserveSkipped(string, int)                            {}

// Orchestrator coordinates the five-stage pipeline
// ⭐ SSOT: 파이프라인 조율은 여기서만
type Orchestrator struct {
	generator   contracts.ScenarioGenerator
	estimator   contracts.ParameterEstimator
	optimizer   contracts.AllocationOptimizer
	simulator   contracts.PortfolioSimulator
	synthesizer contracts.AdviceSynthesizer

	timeout  time.Duration
	observer Observer
	logger   *logger.Logger
}

// NewOrchestrator creates a new orchestrator; timeout ≤ 0 disables the wall-clock budget
func NewOrchestrator(
	generator contracts.ScenarioGenerator,
	estimator contracts.ParameterEstimator,
	optimizer contracts.AllocationOptimizer,
	simulator contracts.PortfolioSimulator,
	synthesizer contracts.AdviceSynthesizer,
	timeout time.Duration,
	observer Observer,
	logger *logger.Logger,
) *Orchestrator {
	if observer == nil {
		observer = nopObserver{}
	}
	return &Orchestrator{
		generator:   generator,
		estimator:   estimator,
		optimizer:   optimizer,
		simulator:   simulator,
		synthesizer: synthesizer,
		timeout:     timeout,
		observer:    observer,
		logger:      logger,
	}
}

// Run executes S1 → S2 → S3 → S4 → S5.
// 실패 시에도 완료된 단계까지의 Result를 함께 반환.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Result, error) {
	startTime := time.Now()

	hash, err := req.Hash()
	if err != nil {
		return nil, err
	}
	result := &Result{
		RunID:           uuid.New().String(),
		RequestHash:     hash,
		StartedAt:       startTime.UTC(),
		Status:          StatusFailed,
		CompletedStages: make([]string, 0, 5),
		StageDurations:  make(map[string]float64, 5),
	}

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	o.logger.WithFields(map[string]interface{}{
		"run_id":    result.RunID,
		"objective": req.Objective,
		"assets":    len(req.Assets),
		"paths":     req.ScenarioConfig.Paths,
		"horizon":   req.ScenarioConfig.HorizonDays,
	}).Info("Starting pipeline run")

	err = o.run(ctx, req, result)
	result.DurationMs = msSince(startTime)

	switch {
	case err == nil:
		result.Success = true
		result.Status = StatusSuccess
	case ctx.Err() == context.DeadlineExceeded:
		result.Status = StatusTimeout
		err = fmt.Errorf("pipeline exceeded %s budget: %w", o.timeout, err)
	}
	o.observer.ObserveRun(req.Objective, result.Status, time.Since(startTime))

	if err != nil {
		result.Error = err.Error()
		o.logger.WithError(err).WithFields(map[string]interface{}{
			"run_id": result.RunID,
			"stages": result.CompletedStages,
		}).Error("Pipeline run failed")
		return result, err
	}

	o.logger.WithFields(map[string]interface{}{
		"run_id":      result.RunID,
		"duration_ms": result.DurationMs,
		"stages":      len(result.CompletedStages),
		"synthetic":   result.Synthetic,
	}).Info("Pipeline run completed successfully")

	return result, nil
}

func (o *Orchestrator) run(ctx context.Context, req Request, result *Result) error {
	if !req.Objective.Valid() {
		return fmt.Errorf("%w: %q", contracts.ErrUnknownObjective, req.Objective)
	}
	costs := req.Costs()

	// S1: Scenarios
	var scenarios []contracts.Scenario
	err := o.stage(result, StageScenarios, func() (err error) {
		scenarios, err = o.generator.Generate(ctx, req.ScenarioConfig, req.Assets)
		return err
	})
	if err != nil {
		return err
	}
	result.ScenarioCount = len(scenarios)
	for i := range scenarios {
		if scenarios[i].Synthetic {
			result.Synthetic = true
			break
		}
	}

	// S2: Estimate
	err = o.stage(result, StageEstimate, func() (err error) {
		result.Estimate, err = o.estimator.Estimate(ctx, contracts.EstimateRequest{
			Assets:    req.Assets,
			Scenarios: scenarios,
			Shrinkage: req.Priors.Shrinkage,
		})
		return err
	})
	if err != nil {
		return err
	}
	o.observer.ObserveSkipped(StageEstimate, result.Estimate.SkippedScenarios)
	result.Synthetic = result.Synthetic || result.Estimate.Synthetic

	// S3: Optimize
	err = o.stage(result, StageOptimize, func() (err error) {
		result.Optimization, err = o.optimizer.Optimize(ctx, contracts.OptimizeRequest{
			Objective:       req.Objective,
			Assets:          result.Estimate.Assets,
			ExpectedReturns: result.Estimate.ExpectedReturns,
			Covariance:      result.Estimate.Covariance,
			Constraints:     req.Constraints,
			Priors:          req.Priors,
			PriorWeights:    req.CurrentHoldings,
		})
		return err
	})
	if err != nil {
		return err
	}

	// S4: Simulate
	err = o.stage(result, StageSimulate, func() (err error) {
		result.Simulation, err = o.simulator.Simulate(ctx, contracts.SimulateRequest{
			Weights:       result.Optimization.Weights,
			Assets:        req.Assets,
			Scenarios:     scenarios,
			CostModel:     costs,
			HorizonDays:   req.ScenarioConfig.HorizonDays,
			RebalanceDays: req.RebalanceDays,
		})
		return err
	})
	if err != nil {
		return err
	}
	o.observer.ObserveSkipped(StageSimulate, result.Simulation.Summary.SkippedScenarios)

	// S5: Advice
	return o.stage(result, StageAdvice, func() (err error) {
		result.Advice, err = o.synthesizer.Synthesize(ctx, contracts.AdviceRequest{
			Weights:         result.Optimization.Weights,
			CurrentHoldings: req.CurrentHoldings,
			Assets:          req.Assets,
			CostModel:       costs,
			Constraints:     req.Constraints,
			Simulation:      result.Simulation,
			Diagnostics:     &result.Optimization.Diagnostics,
			Notional:        req.Notional,
		})
		if err == nil && result.Advice.RiskSummary.Synthetic {
			result.Synthetic = true
		}
		return err
	})
}

// stage runs one step, records its duration and marks it completed on success
func (o *Orchestrator) stage(result *Result, name string, fn func() error) error {
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	o.observer.ObserveStage(name, elapsed)
	result.StageDurations[name] = float64(elapsed.Microseconds()) / 1000

	if err != nil {
		return fmt.Errorf("%s failed: %w", name, err)
	}
	result.CompletedStages = append(result.CompletedStages, name)
	return nil
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}
