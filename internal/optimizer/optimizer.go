package optimizer

import (
	"context"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/wonny/aegis-allocator/internal/contracts"
	"github.com/wonny/aegis-allocator/internal/risk"
	"github.com/wonny/aegis-allocator/pkg/logger"
)

// Solver names accepted by SolverByName
const (
	SolverGradient   = "gradient"
	SolverNelderMead = "neldermead"
)

// Optimizer 비중 최적화기 (Stage 3)
// ⭐ SSOT: 모든 목적 함수는 Optimize 하나로 진입, 결과 비중은 항상 Validate 통과
type Optimizer struct {
	inverter Inverter
	solver   SharpeSolver
	logger   *logger.Logger
}

// Option configures an Optimizer
type Option func(*Optimizer)

// WithInverter overrides the covariance inverter
func WithInverter(inv Inverter) Option {
	return func(o *Optimizer) { o.inverter = inv }
}

// WithSolver overrides the Sharpe solver
func WithSolver(s SharpeSolver) Option {
	return func(o *Optimizer) { o.solver = s }
}

// New creates an optimizer with GonumInverter and GradientAscent unless overridden
func New(log *logger.Logger, opts ...Option) *Optimizer {
	o := &Optimizer{
		inverter: GonumInverter{},
		solver:   NewGradientAscent(),
		logger:   log,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// SolverByName resolves a CLI/config solver name
func SolverByName(name string) (SharpeSolver, error) {
	switch name {
	case "", SolverGradient:
		return NewGradientAscent(), nil
	case SolverNelderMead:
		return NelderMead{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown solver %q", contracts.ErrInvalidConfig, name)
	}
}

// Optimize computes target weights for the requested objective
func (o *Optimizer) Optimize(ctx context.Context, req contracts.OptimizeRequest) (*contracts.OptimizeResult, error) {
	start := time.Now()

	if !req.Objective.Valid() {
		return nil, fmt.Errorf("%w: %q", contracts.ErrUnknownObjective, req.Objective)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	n := len(req.Assets)
	if err := req.Constraints.Validate(n); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cap := req.Constraints.Cap()
	mu := req.ExpectedReturns
	cov := symmetric(req.Covariance)

	var (
		w          []float64
		iterations int
		warnings   []string
		err        error
	)

	switch req.Objective {
	case contracts.ObjectiveMaxSharpe:
		w, iterations = o.solver.Solve(mu, cov, cap, equalWeights(n))

	case contracts.ObjectiveMinVol:
		w, err = o.minVol(cov, cap)

	case contracts.ObjectiveMaxReturn:
		w = maxReturn(mu, cap)

	case contracts.ObjectiveMinCVaR:
		var adjusted int
		w, adjusted, err = o.minCVaR(mu, cov, cap)
		if adjusted > 0 {
			warnings = append(warnings, fmt.Sprintf("minCVaR down-weighted %d tail-heavy assets", adjusted))
		}

	case contracts.ObjectiveRiskParity:
		var converged bool
		w, iterations, converged = riskParity(cov, cap)
		if !converged {
			warnings = append(warnings, "riskParity did not converge; returning last iterate")
		}

	case contracts.ObjectiveBlackLitterman:
		w, iterations, warnings, err = o.blackLitterman(req, cov, cap)
	}
	if err != nil {
		return nil, err
	}

	if req.Priors.KellyCap != nil {
		warnings = append(warnings, fmt.Sprintf("kellyCap %.4f accepted but not enforced", *req.Priors.KellyCap))
	}
	if req.Priors.BlackLitterman != nil && req.Objective != contracts.ObjectiveBlackLitterman {
		warnings = append(warnings, "blackLitterman priors ignored for objective "+string(req.Objective))
	}

	weights := make(contracts.AllocationWeights, n)
	for i, s := range req.Assets {
		weights[s] = w[i]
	}
	if err := weights.Validate(cap); err != nil {
		return nil, fmt.Errorf("optimizer produced invalid weights: %w", err)
	}

	prior := req.PriorWeights
	if len(prior) == 0 {
		prior = contracts.EqualWeights(req.Assets)
	}

	result := &contracts.OptimizeResult{
		Objective:   req.Objective,
		Weights:     weights,
		Diagnostics: diagnostics(mu, cov, w, weights, prior, iterations, warnings),
	}

	o.logger.WithFields(map[string]interface{}{
		"objective":   req.Objective,
		"assets":      n,
		"cap":         cap,
		"sharpe":      result.Diagnostics.SharpeRatio,
		"iterations":  iterations,
		"warnings":    len(warnings),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("Allocation optimized")

	return result, nil
}

// blackLitterman: equal-weight market proxy → implied π → posterior μ → maxSharpe
func (o *Optimizer) blackLitterman(req contracts.OptimizeRequest, cov *mat.SymDense, cap float64) ([]float64, int, []string, error) {
	n := len(req.Assets)
	wMkt := equalWeights(n)

	prior := req.Priors.BlackLitterman
	if prior == nil || len(prior.Views) == 0 {
		return ClipNormalize(wMkt, cap), 0, []string{"blackLitterman without views; returning market-proxy weights"}, nil
	}

	pi := ImpliedReturns(cov, wMkt)
	posterior, err := BlendViews(req.Assets, cov, pi, *prior)
	if err != nil {
		return nil, 0, nil, err
	}
	w, it := o.solver.Solve(posterior, cov, cap, wMkt)
	return w, it, nil, nil
}

// diagnostics annualizes return (×252) and volatility (×√252)
func diagnostics(mu []float64, cov *mat.SymDense, w []float64, weights, prior contracts.AllocationWeights, iterations int, warnings []string) contracts.Diagnostics {
	ret := dot(mu, w) * contracts.TradingDaysPerYear
	vol := math.Sqrt(portfolioVariance(cov, w) * contracts.TradingDaysPerYear)
	return contracts.Diagnostics{
		ExpectedReturn: ret,
		ExpectedVol:    vol,
		SharpeRatio:    risk.SafeRatio(ret, vol),
		MaxWeight:      weights.Max(),
		Turnover:       weights.Turnover(prior),
		Iterations:     iterations,
		Warnings:       warnings,
	}
}

// symmetric copies rows into a SymDense, averaging any asymmetry
func symmetric(rows [][]float64) *mat.SymDense {
	n := len(rows)
	cov := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			cov.SetSym(i, j, (rows[i][j]+rows[j][i])/2)
		}
	}
	return cov
}
