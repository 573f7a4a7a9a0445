package optimizer

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"github.com/wonny/aegis-allocator/internal/contracts"
	"github.com/wonny/aegis-allocator/internal/risk"
)

// Gradient ascent defaults
const (
	DefaultStepSize   = 0.01
	DefaultIterations = 500
)

// SharpeSolver Sharpe 최대화 전략
// mu/cov are daily; the returned weights lie on the capped simplex.
type SharpeSolver interface {
	Solve(mu []float64, cov *mat.SymDense, cap float64, start []float64) (weights []float64, iterations int)
}

// AnnualizedSharpe returns √252·μ'w/σ with the zero-volatility sentinel
func AnnualizedSharpe(mu []float64, cov *mat.SymDense, w []float64) float64 {
	ret := dot(mu, w) * contracts.TradingDaysPerYear
	vol := math.Sqrt(portfolioVariance(cov, w) * contracts.TradingDaysPerYear)
	return risk.SafeRatio(ret, vol)
}

// GradientAscent 고정 스텝 경사 상승 (지역 휴리스틱, 전역 최적 보장 없음)
// 매 스텝 후 [0, cap] 클립 + 재정규화.
type GradientAscent struct {
	Step       float64
	Iterations int
}

// NewGradientAscent returns the solver with the default step and iteration count
func NewGradientAscent() GradientAscent {
	return GradientAscent{Step: DefaultStepSize, Iterations: DefaultIterations}
}

// Solve implements SharpeSolver
func (g GradientAscent) Solve(mu []float64, cov *mat.SymDense, cap float64, start []float64) ([]float64, int) {
	step, iters := g.Step, g.Iterations
	if step <= 0 {
		step = DefaultStepSize
	}
	if iters <= 0 {
		iters = DefaultIterations
	}

	n := len(mu)
	w := ClipNormalize(start, cap)
	best, bestSharpe := w, AnnualizedSharpe(mu, cov, w)
	scale := math.Sqrt(contracts.TradingDaysPerYear)

	done := 0
	for it := 0; it < iters; it++ {
		variance := portfolioVariance(cov, w)
		if variance <= 0 {
			break
		}
		sigma := math.Sqrt(variance)
		ret := dot(mu, w)
		sw := covMul(cov, w)

		// ∂S/∂w_i = √252 · (μ_i/σ − (μ'w)(Σw)_i/σ³)
		next := make([]float64, n)
		for i := range next {
			grad := scale * (mu[i]/sigma - ret*sw[i]/(sigma*sigma*sigma))
			next[i] = w[i] + step*grad
		}
		w = ClipNormalize(next, cap)
		done = it + 1

		if s := AnnualizedSharpe(mu, cov, w); s > bestSharpe {
			best, bestSharpe = w, s
		}
	}
	return best, done
}

// NelderMead maximizes Sharpe with gonum's derivative-free simplex search.
// 파라미터 x는 ClipNormalize로 투영된 비중으로 해석.
type NelderMead struct {
	MaxEvaluations int
}

// Solve implements SharpeSolver
func (s NelderMead) Solve(mu []float64, cov *mat.SymDense, cap float64, start []float64) ([]float64, int) {
	maxEval := s.MaxEvaluations
	if maxEval <= 0 {
		maxEval = 5000
	}

	x0 := ClipNormalize(start, cap)
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			return -AnnualizedSharpe(mu, cov, ClipNormalize(x, cap))
		},
	}
	settings := &optimize.Settings{FuncEvaluations: maxEval}

	// 평가 횟수 한도 도달도 유효한 결과로 취급
	result, err := optimize.Minimize(problem, x0, settings, &optimize.NelderMead{})
	if result == nil || (err != nil && result.Status != optimize.FunctionEvaluationLimit) {
		return x0, 0
	}

	w := ClipNormalize(result.X, cap)
	if AnnualizedSharpe(mu, cov, w) < AnnualizedSharpe(mu, cov, x0) {
		return x0, result.Stats.MajorIterations
	}
	return w, result.Stats.MajorIterations
}
