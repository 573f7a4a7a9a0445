package contracts

// MaterialityThreshold 거래 생성 최소 비중 변화 (0.1%)
const MaterialityThreshold = 0.001

// Side 매매 방향
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// AdviceRequest 어드바이스 요청
// Simulation and Diagnostics are optional.
type AdviceRequest struct {
	Weights         AllocationWeights `json:"allocationWeights" yaml:"allocationWeights"`
	CurrentHoldings AllocationWeights `json:"currentHoldings" yaml:"currentHoldings"`
	Assets          []Asset           `json:"assets,omitempty" yaml:"assets,omitempty"`
	CostModel       CostModel         `json:"costModel" yaml:"costModel"`
	Constraints     Constraints       `json:"constraints" yaml:"constraints"`
	Simulation      *SimulationOutput `json:"scenarioResults,omitempty" yaml:"scenarioResults,omitempty"`
	Diagnostics     *Diagnostics      `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
	Notional        float64           `json:"notional,omitempty" yaml:"notional,omitempty"`
}

// Trade 매매 지시
// Quantity and EstCost are in portfolio currency, rounded to cents.
type Trade struct {
	Symbol        string  `json:"symbol"`
	Side          Side    `json:"side"`
	Quantity      float64 `json:"qty"`
	EstCost       float64 `json:"estCost"`
	ADVPct        float64 `json:"advPct"`
	CurrentWeight float64 `json:"currentWeight"`
	TargetWeight  float64 `json:"targetWeight"`
	Difference    float64 `json:"difference"`
}

// RiskSource 리스크 요약 출처
type RiskSource string

const (
	RiskFromSimulation RiskSource = "simulation"
	RiskFromDefaults   RiskSource = "default"
)

// RiskSummary 리스크 요약
type RiskSummary struct {
	AggregateStats
	Source    RiskSource `json:"source"`
	Synthetic bool       `json:"synthetic"`
}

// Sensitivity 충격 민감도
type Sensitivity struct {
	Shock          string  `json:"shock"`
	Description    string  `json:"description"`
	ExpectedReturn float64 `json:"expectedReturn"`
	ExpectedVol    float64 `json:"expectedVol"`
	MaxDrawdown    float64 `json:"maxDrawdown"`
}

// FactorShift 벤치마크 대비 팩터 노출
type FactorShift struct {
	EquityBeta           float64 `json:"equityBeta"`
	EquityBetaVsBench    float64 `json:"equityBetaVsBenchmark"`
	DurationYears        float64 `json:"durationYears"`
	DurationVsBench      float64 `json:"durationVsBenchmark"`
	CommodityBeta        float64 `json:"commodityBeta"`
	CommodityBetaVsBench float64 `json:"commodityBetaVsBenchmark"`
	CashWeight           float64 `json:"cashWeight"`
}

// ScenarioHighlight 주요 시나리오
type ScenarioHighlight struct {
	ScenarioID   string  `json:"scenarioId"`
	ScenarioName string  `json:"scenarioName"`
	TotalReturn  float64 `json:"totalReturn"`
	MaxDrawdown  float64 `json:"maxDrawdown"`
}

// Rationale 근거 설명
type Rationale struct {
	Explanation  string              `json:"explanation"`
	FactorShift  FactorShift         `json:"factorShift"`
	TopScenarios []ScenarioHighlight `json:"topScenarios"`
	KeyInsights  []string            `json:"keyInsights"`
}

// Advice 최종 어드바이스
type Advice struct {
	TargetWeights AllocationWeights `json:"targetWeights"`
	Trades        []Trade           `json:"trades"`
	RiskSummary   RiskSummary       `json:"riskSummary"`
	Sensitivities []Sensitivity     `json:"sensitivities"`
	Rationale     Rationale         `json:"rationale"`
	Turnover      float64           `json:"turnover"`
	TotalCost     float64           `json:"totalCost"`
}
