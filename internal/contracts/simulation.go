package contracts

// DefaultRebalanceDays 리밸런싱 주기 (거래일)
const DefaultRebalanceDays = 20

// PassThreshold 통과 기준 수익률 (이 값을 초과해야 통과)
const PassThreshold = -0.20

// SimulateRequest 시뮬레이션 요청
// HorizonDays 0 uses the full path; RebalanceDays 0 uses DefaultRebalanceDays.
type SimulateRequest struct {
	Weights       AllocationWeights `json:"allocationWeights" yaml:"allocationWeights"`
	Assets        []Asset           `json:"assets,omitempty" yaml:"assets,omitempty"`
	Scenarios     []Scenario        `json:"scenarios" yaml:"scenarios"`
	CostModel     CostModel         `json:"costModel" yaml:"costModel"`
	HorizonDays   int               `json:"horizonDays" yaml:"horizonDays"`
	RebalanceDays int               `json:"rebalanceDays,omitempty" yaml:"rebalanceDays,omitempty"`
}

// SimulationResult 시나리오별 시뮬레이션 결과
// ⭐ SSOT: MaxDrawdown은 양수 (0.25 = 고점 대비 25% 하락)
type SimulationResult struct {
	ScenarioID     string       `json:"scenarioId"`
	ScenarioName   string       `json:"scenarioName"`
	ScenarioType   ScenarioKind `json:"scenarioType"`
	ValuePath      []float64    `json:"valuePath"`
	DailyReturns   []float64    `json:"dailyReturns"`
	TotalReturn    float64      `json:"totalReturn"`
	Volatility     float64      `json:"volatility"`
	MaxDrawdown    float64      `json:"maxDrawdown"`
	SharpeRatio    float64      `json:"sharpeRatio"`
	SortinoRatio   float64      `json:"sortinoRatio"`
	TimeUnderWater float64      `json:"timeUnderWater"`
	TotalCost      float64      `json:"totalCost"`
	Rebalances     int          `json:"rebalances"`
	Synthetic      bool         `json:"synthetic,omitempty"`
}

// AggregateStats 시나리오 전체 집계 통계
// ⭐ SSOT: VaR95/CVaR95는 손실을 양수로 표현
type AggregateStats struct {
	MeanReturn   float64 `json:"meanReturn"`
	MedianReturn float64 `json:"medianReturn"`
	Volatility   float64 `json:"volatility"`
	SharpeRatio  float64 `json:"sharpeRatio"`
	MaxDrawdown  float64 `json:"maxDrawdown"`
	BestReturn   float64 `json:"bestReturn"`
	WorstReturn  float64 `json:"worstReturn"`
	VaR95        float64 `json:"var95"`
	CVaR95       float64 `json:"cvar95"`
	PassRate     float64 `json:"passRate"`
}

// SkippedScenario 건너뛴 시나리오와 사유
type SkippedScenario struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// SimulationSummary 시뮬레이션 요약
type SimulationSummary struct {
	ScenarioCount      int               `json:"scenarioCount"`
	SimulatedScenarios int               `json:"simulatedScenarios"`
	SkippedScenarios   int               `json:"skippedScenarios"`
	Skipped            []SkippedScenario `json:"skipped,omitempty"`
	SyntheticScenarios int               `json:"syntheticScenarios"`
	HorizonDays        int               `json:"horizonDays"`
	RebalanceDays      int               `json:"rebalanceDays"`
	MeanCost           float64           `json:"meanCost"`
	MeanSortino        float64           `json:"meanSortino"`
	MeanTimeUnderWater float64           `json:"meanTimeUnderWater"`
}

// SimulationOutput 시뮬레이션 출력
type SimulationOutput struct {
	Results   []SimulationResult `json:"scenarioResults"`
	Summary   SimulationSummary  `json:"summaryMetrics"`
	Aggregate AggregateStats     `json:"aggregateStats"`
}
