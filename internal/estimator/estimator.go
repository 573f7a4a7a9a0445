package estimator

import (
	"context"
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/wonny/aegis-allocator/internal/contracts"
	"github.com/wonny/aegis-allocator/internal/refdata"
	"github.com/wonny/aegis-allocator/internal/scenario"
	"github.com/wonny/aegis-allocator/pkg/logger"
)

// Shrinkage methods
const (
	ShrinkageSingleIndex = "single_index"
	ShrinkageNone        = "none"
)

// DefaultShrinkageIntensity 고정 수축 강도 (데이터 적응형 아님)
const DefaultShrinkageIntensity = 0.2

// syntheticStream separates the estimator's fallback series from scenario streams
const syntheticStream = 0xE57

// Estimator 파라미터 추정기 (Stage 2)
// ⭐ SSOT: 기대수익률 = 풀링된 일별 수익률의 산술평균 (연율화하지 않음)
type Estimator struct {
	tables scenario.TableSource
	logger *logger.Logger
}

// New creates a new estimator
func New(tables scenario.TableSource, log *logger.Logger) *Estimator {
	return &Estimator{tables: tables, logger: log}
}

// ShrinkageIntensity maps a method name to its fixed intensity
func ShrinkageIntensity(method string) (float64, error) {
	switch method {
	case "", ShrinkageSingleIndex:
		return DefaultShrinkageIntensity, nil
	case ShrinkageNone:
		return 0, nil
	default:
		return 0, fmt.Errorf("%w: unknown shrinkage method %q", contracts.ErrInvalidConfig, method)
	}
}

// Estimate pools daily returns across usable scenarios and returns mean + shrunk covariance.
// 사용 가능한 시나리오가 없으면 참조 테이블 기반 합성 시계열로 대체하고 Synthetic=true.
func (e *Estimator) Estimate(ctx context.Context, req contracts.EstimateRequest) (*contracts.Estimate, error) {
	start := time.Now()

	if err := contracts.ValidateAssets(req.Assets); err != nil {
		return nil, err
	}
	intensity, err := ShrinkageIntensity(req.Shrinkage)
	if err != nil {
		return nil, err
	}

	symbols := contracts.Symbols(req.Assets)
	returns, skipped := pool(symbols, req.Scenarios)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	source := contracts.SourceScenarios
	if returns == nil {
		returns = e.syntheticReturns(req.Assets)
		source = contracts.SourceSynthetic
	}

	mean, cov := moments(returns)
	Shrink(cov, intensity)

	est := &contracts.Estimate{
		Assets:           symbols,
		ExpectedReturns:  mean,
		Covariance:       toRows(cov),
		Observations:     returns.RawMatrix().Rows,
		SkippedScenarios: skipped,
		Shrinkage:        intensity,
		Source:           source,
		Synthetic:        source == contracts.SourceSynthetic,
	}

	e.logger.WithFields(map[string]interface{}{
		"assets":       len(symbols),
		"scenarios":    len(req.Scenarios),
		"skipped":      skipped,
		"observations": est.Observations,
		"source":       source,
		"shrinkage":    intensity,
		"duration_ms":  time.Since(start).Milliseconds(),
	}).Info("Parameters estimated")

	return est, nil
}

// pool stacks daily returns of every usable scenario into a (days × assets) matrix.
// Scenarios with a missing, short, unequal or invalid path are skipped.
// Returns nil when fewer than two observations remain.
func pool(symbols []string, scenarios []contracts.Scenario) (*mat.Dense, int) {
	var data []float64
	rows, skipped := 0, 0

	for i := range scenarios {
		s := &scenarios[i]
		if err := s.CheckPaths(symbols, 2); err != nil {
			skipped++
			continue
		}
		length := len(s.Paths[symbols[0]])
		equal := true
		for _, sym := range symbols[1:] {
			if len(s.Paths[sym]) != length {
				equal = false
				break
			}
		}
		if !equal {
			skipped++
			continue
		}

		for d := 1; d < length; d++ {
			for _, sym := range symbols {
				p := s.Paths[sym]
				data = append(data, p[d]/p[d-1]-1)
			}
			rows++
		}
	}

	if rows < 2 {
		return nil, skipped
	}
	return mat.NewDense(rows, len(symbols), data), skipped
}

// moments returns column means and the sample covariance matrix
func moments(x *mat.Dense) ([]float64, *mat.SymDense) {
	_, n := x.Dims()
	mean := make([]float64, n)
	col := make([]float64, x.RawMatrix().Rows)
	for j := 0; j < n; j++ {
		mat.Col(col, j, x)
		mean[j] = stat.Mean(col, nil)
	}

	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, x, nil)
	return mean, &cov
}

// Shrink blends cov toward the single-index target in place.
//
//	Σ' = (1 − δ)·S + δ·T,  T = diag(mean variance)
func Shrink(cov *mat.SymDense, intensity float64) {
	if intensity <= 0 {
		return
	}
	n := cov.SymmetricDim()
	var avgVar float64
	for i := 0; i < n; i++ {
		avgVar += cov.At(i, i)
	}
	avgVar /= float64(n)

	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := (1 - intensity) * cov.At(i, j)
			if i == j {
				v += intensity * avgVar
			}
			cov.SetSym(i, j, v)
		}
	}
}

// syntheticReturns draws a deterministic Gaussian daily series per asset from the reference profiles
func (e *Estimator) syntheticReturns(assets []contracts.Asset) *mat.Dense {
	tables := e.tables.Current()
	days := tables.Synthetic.Days
	profiles := make([]refdata.Profile, len(assets))
	for i, a := range assets {
		profiles[i], _ = tables.Profile(a.Symbol, a.Class)
	}

	rng := scenario.NewRNG(uint64(tables.Synthetic.Seed), syntheticStream)
	data := make([]float64, 0, days*len(assets))
	for d := 0; d < days; d++ {
		for _, p := range profiles {
			data = append(data, p.DailyDrift()+rng.NormFloat64()*p.DailyVol())
		}
	}
	return mat.NewDense(days, len(assets), data)
}

func toRows(m *mat.SymDense) [][]float64 {
	n := m.SymmetricDim()
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, n)
		for j := range out[i] {
			out[i][j] = m.At(i, j)
		}
	}
	return out
}
