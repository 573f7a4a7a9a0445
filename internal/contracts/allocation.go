package contracts

import (
	"fmt"
	"math"
	"sort"
)

// WeightTolerance 비중 합계 허용 오차
const WeightTolerance = 1e-6

// AllocationWeights 자산별 목표 비중 (symbol → weight)
type AllocationWeights map[string]float64

// Sum returns the total weight
func (w AllocationWeights) Sum() float64 {
	var total float64
	for _, v := range w {
		total += v
	}
	return total
}

// Max returns the largest single weight
func (w AllocationWeights) Max() float64 {
	var m float64
	for _, v := range w {
		if v > m {
			m = v
		}
	}
	return m
}

// Symbols returns the symbols in sorted order
func (w AllocationWeights) Symbols() []string {
	out := make([]string, 0, len(w))
	for s := range w {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Validate checks sum-to-one, non-negativity and the per-asset cap
func (w AllocationWeights) Validate(maxWeight float64) error {
	if len(w) == 0 {
		return fmt.Errorf("%w: weights are empty", ErrInvalidConfig)
	}
	if maxWeight <= 0 {
		maxWeight = 1.0
	}
	for _, s := range w.Symbols() {
		v := w[s]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: weight for %s is not finite", ErrInvalidConfig, s)
		}
		if v < -WeightTolerance {
			return fmt.Errorf("%w: weight for %s is negative (%.6f)", ErrInvalidConfig, s, v)
		}
		if v > maxWeight+WeightTolerance {
			return fmt.Errorf("%w: weight for %s exceeds cap (%.6f > %.6f)", ErrInvalidConfig, s, v, maxWeight)
		}
	}
	if sum := w.Sum(); math.Abs(sum-1.0) > WeightTolerance {
		return fmt.Errorf("%w: weights sum to %.8f, expected 1", ErrInvalidConfig, sum)
	}
	return nil
}

// Turnover returns one-way turnover ½Σ|w − prior| over the union of symbols
func (w AllocationWeights) Turnover(prior AllocationWeights) float64 {
	var total float64
	for s, v := range w {
		total += math.Abs(v - prior[s])
	}
	for s, v := range prior {
		if _, ok := w[s]; !ok {
			total += math.Abs(v)
		}
	}
	return total / 2
}

// EqualWeights returns 1/n for every symbol
func EqualWeights(symbols []string) AllocationWeights {
	out := make(AllocationWeights, len(symbols))
	if len(symbols) == 0 {
		return out
	}
	w := 1.0 / float64(len(symbols))
	for _, s := range symbols {
		out[s] = w
	}
	return out
}

// Constraints 최적화 제약 조건
type Constraints struct {
	MaxWeightPerAsset float64 `json:"maxWeightPerAsset" yaml:"maxWeightPerAsset"` // 0 = 제한 없음 (1.0)
}

// Cap returns the effective per-asset cap
func (c Constraints) Cap() float64 {
	if c.MaxWeightPerAsset <= 0 {
		return 1.0
	}
	return c.MaxWeightPerAsset
}

// Validate checks the cap range and that n assets can reach a full allocation
func (c Constraints) Validate(n int) error {
	if c.MaxWeightPerAsset < 0 || c.MaxWeightPerAsset > 1 || math.IsNaN(c.MaxWeightPerAsset) {
		return fmt.Errorf("%w: maxWeightPerAsset must be in [0, 1], got %v", ErrInvalidConfig, c.MaxWeightPerAsset)
	}
	if c.Cap()*float64(n) < 1.0-WeightTolerance {
		return fmt.Errorf("%w: cap %.4f × %d assets cannot sum to 1", ErrInfeasibleConstraints, c.Cap(), n)
	}
	return nil
}

// Objective 최적화 목적 함수
type Objective string

const (
	ObjectiveMaxSharpe      Objective = "maxSharpe"
	ObjectiveMinVol         Objective = "minVol"
	ObjectiveMaxReturn      Objective = "maxReturn"
	ObjectiveMinCVaR        Objective = "minCVaR"
	ObjectiveRiskParity     Objective = "riskParity"
	ObjectiveBlackLitterman Objective = "blackLitterman"
)

// Objectives lists every supported objective
func Objectives() []Objective {
	return []Objective{
		ObjectiveMaxSharpe, ObjectiveMinVol, ObjectiveMaxReturn,
		ObjectiveMinCVaR, ObjectiveRiskParity, ObjectiveBlackLitterman,
	}
}

// Valid reports whether the objective is supported
func (o Objective) Valid() bool {
	for _, known := range Objectives() {
		if o == known {
			return true
		}
	}
	return false
}

// View Black-Litterman 투자자 전망
// ExpectedReturn is annualized; Confidence is in (0, 1].
type View struct {
	Asset          string  `json:"asset" yaml:"asset"`
	ExpectedReturn float64 `json:"expectedReturn" yaml:"expectedReturn"`
	Confidence     float64 `json:"confidence" yaml:"confidence"`
}

// BlackLittermanPrior Black-Litterman 설정
type BlackLittermanPrior struct {
	Tau   float64 `json:"tau" yaml:"tau"`
	Views []View  `json:"views,omitempty" yaml:"views,omitempty"`
}

// Priors 선택적 사전 정보
type Priors struct {
	Shrinkage      string               `json:"shrinkage,omitempty" yaml:"shrinkage,omitempty"`
	KellyCap       *float64             `json:"kellyCap,omitempty" yaml:"kellyCap,omitempty"`
	BlackLitterman *BlackLittermanPrior `json:"blackLitterman,omitempty" yaml:"blackLitterman,omitempty"`
}

// Diagnostics 최적화 결과 진단 (연율화)
type Diagnostics struct {
	ExpectedReturn float64  `json:"expectedReturn"`
	ExpectedVol    float64  `json:"expectedVol"`
	SharpeRatio    float64  `json:"sharpeRatio"`
	MaxWeight      float64  `json:"maxWeight"`
	Turnover       float64  `json:"turnover"`
	Iterations     int      `json:"iterations,omitempty"`
	Warnings       []string `json:"warnings,omitempty"`
}

// EstimateRequest 파라미터 추정 요청
type EstimateRequest struct {
	Assets    []Asset    `json:"assets" yaml:"assets"`
	Scenarios []Scenario `json:"scenarios,omitempty" yaml:"scenarios,omitempty"`
	Shrinkage string     `json:"shrinkage,omitempty" yaml:"shrinkage,omitempty"`
}

// EstimateSource 추정치 출처
type EstimateSource string

const (
	SourceScenarios EstimateSource = "scenarios"
	SourceSynthetic EstimateSource = "synthetic"
)

// Estimate daily expected returns and covariance, indexed like Assets
type Estimate struct {
	Assets           []string       `json:"assets"`
	ExpectedReturns  []float64      `json:"expectedReturns"`
	Covariance       [][]float64    `json:"covariance"`
	Observations     int            `json:"observations"`
	SkippedScenarios int            `json:"skippedScenarios"`
	Shrinkage        float64        `json:"shrinkage"`
	Source           EstimateSource `json:"source"`
	Synthetic        bool           `json:"synthetic"`
}

// OptimizeRequest 최적화 요청
// ExpectedReturns and Covariance are daily and indexed like Assets.
type OptimizeRequest struct {
	Objective       Objective         `json:"objective" yaml:"objective"`
	Assets          []string          `json:"assets" yaml:"assets"`
	ExpectedReturns []float64         `json:"expectedReturns" yaml:"expectedReturns"`
	Covariance      [][]float64       `json:"covariance" yaml:"covariance"`
	Constraints     Constraints       `json:"constraints" yaml:"constraints"`
	Priors          Priors            `json:"priors,omitempty" yaml:"priors,omitempty"`
	PriorWeights    AllocationWeights `json:"priorWeights,omitempty" yaml:"priorWeights,omitempty"`
}

// Validate checks vector and matrix dimensions against the asset list
func (r OptimizeRequest) Validate() error {
	n := len(r.Assets)
	if n == 0 {
		return fmt.Errorf("%w: no assets", ErrInvalidConfig)
	}
	if len(r.ExpectedReturns) != n {
		return fmt.Errorf("%w: %d expected returns for %d assets", ErrInvalidConfig, len(r.ExpectedReturns), n)
	}
	if len(r.Covariance) != n {
		return fmt.Errorf("%w: covariance has %d rows for %d assets", ErrInvalidConfig, len(r.Covariance), n)
	}
	for i, row := range r.Covariance {
		if len(row) != n {
			return fmt.Errorf("%w: covariance row %d has %d columns for %d assets", ErrInvalidConfig, i, len(row), n)
		}
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: covariance row %d is not finite", ErrInvalidConfig, i)
			}
		}
		if row[i] < 0 {
			return fmt.Errorf("%w: negative variance for %s", ErrInvalidConfig, r.Assets[i])
		}
	}
	seen := make(map[string]bool, n)
	for _, s := range r.Assets {
		if s == "" || seen[s] {
			return fmt.Errorf("%w: empty or duplicate asset %q", ErrInvalidConfig, s)
		}
		seen[s] = true
	}
	return nil
}

// OptimizeResult 최적화 결과
type OptimizeResult struct {
	Objective   Objective         `json:"objective"`
	Weights     AllocationWeights `json:"weights"`
	Diagnostics Diagnostics       `json:"diagnostics"`
}
