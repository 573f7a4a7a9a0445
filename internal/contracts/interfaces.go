package contracts

import "context"

// ScenarioGenerator produces scenario price paths (stage 1)
// ⭐ SSOT: 시나리오 생성 인터페이스
type ScenarioGenerator interface {
	Generate(ctx context.Context, cfg ScenarioConfig, assets []Asset) ([]Scenario, error)
}

// ParameterEstimator derives expected returns and covariance (stage 2)
// ⭐ SSOT: 파라미터 추정 인터페이스
type ParameterEstimator interface {
	Estimate(ctx context.Context, req EstimateRequest) (*Estimate, error)
}

// AllocationOptimizer computes target weights (stage 3)
// ⭐ SSOT: 비중 최적화 인터페이스
type AllocationOptimizer interface {
	Optimize(ctx context.Context, req OptimizeRequest) (*OptimizeResult, error)
}

// PortfolioSimulator replays weights across scenarios (stage 4)
// ⭐ SSOT: 포트폴리오 시뮬레이션 인터페이스
type PortfolioSimulator interface {
	Simulate(ctx context.Context, req SimulateRequest) (*SimulationOutput, error)
}

// AdviceSynthesizer turns weights and holdings into trades (stage 5)
// ⭐ SSOT: 어드바이스 생성 인터페이스
type AdviceSynthesizer interface {
	Synthesize(ctx context.Context, req AdviceRequest) (*Advice, error)
}
