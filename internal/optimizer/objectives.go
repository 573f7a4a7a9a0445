package optimizer

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/wonny/aegis-allocator/internal/contracts"
	"github.com/wonny/aegis-allocator/internal/risk"
)

// =============================================================================
// minVol
// =============================================================================

// minVol: w ∝ Σ⁻¹·1, normalized and projected onto the caps.
// 투영 후 동일 비중보다 분산이 크면 동일 비중 반환.
func (o *Optimizer) minVol(cov *mat.SymDense, cap float64) ([]float64, error) {
	n := cov.SymmetricDim()
	inv, err := o.inverter.Invert(cov)
	if err != nil {
		return nil, fmt.Errorf("invert covariance: %w", err)
	}

	raw := make([]float64, n)
	var total float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			raw[i] += inv.At(i, j)
		}
		total += raw[i]
	}

	equal := ClipNormalize(equalWeights(n), cap)
	if total <= 0 || math.IsNaN(total) {
		return equal, nil
	}
	for i := range raw {
		raw[i] /= total
	}

	w := ClipNormalize(raw, cap)
	if portfolioVariance(cov, w) > portfolioVariance(cov, equal) {
		return equal, nil
	}
	return w, nil
}

// =============================================================================
// maxReturn
// =============================================================================

// maxReturn: greedy fill by descending expected return, each asset up to the cap
func maxReturn(mu []float64, cap float64) []float64 {
	n := len(mu)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return mu[order[a]] > mu[order[b]] })

	w := make([]float64, n)
	remaining := 1.0
	for _, i := range order {
		if remaining <= 0 {
			break
		}
		w[i] = math.Min(cap, remaining)
		remaining -= w[i]
	}
	return w
}

// =============================================================================
// minCVaR
// =============================================================================

// minCVaR heuristic constants
const (
	CVaRConfidence    = 0.95 // z = 1.645
	CVaRTailThreshold = 0.02 // 일별 꼬리 손실 한도
	CVaRDownweight    = 0.8
)

// minCVaR: minVol weights, ×0.8 for assets whose parametric daily VaR 1.645σ − μ exceeds 0.02
func (o *Optimizer) minCVaR(mu []float64, cov *mat.SymDense, cap float64) ([]float64, int, error) {
	w, err := o.minVol(cov, cap)
	if err != nil {
		return nil, 0, err
	}

	adjusted := 0
	for i := range w {
		tail := risk.ParametricVaR(mu[i], math.Sqrt(math.Max(cov.At(i, i), 0)), CVaRConfidence)
		if tail.VaR > CVaRTailThreshold {
			w[i] *= CVaRDownweight
			adjusted++
		}
	}
	return ClipNormalize(w, cap), adjusted, nil
}

// =============================================================================
// riskParity
// =============================================================================

// Risk parity iteration constants
const (
	RiskParityStep          = 0.5
	RiskParityTolerance     = 1e-6
	RiskParityMaxIterations = 100
)

// RiskContributions returns w_i(Σw)_i / w'Σw (sums to 1; zeros when variance is 0)
func RiskContributions(cov *mat.SymDense, w []float64) []float64 {
	rc := make([]float64, len(w))
	variance := portfolioVariance(cov, w)
	if variance <= 0 {
		return rc
	}
	sw := covMul(cov, w)
	for i := range w {
		rc[i] = w[i] * sw[i] / variance
	}
	return rc
}

// riskParity nudges each weight by the gap between its risk contribution and 1/n.
//
//	w_i ← w_i · (1 + step·n·(1/n − RC_i)), clip, renormalize
func riskParity(cov *mat.SymDense, cap float64) ([]float64, int, bool) {
	n := cov.SymmetricDim()
	target := 1 / float64(n)
	w := ClipNormalize(equalWeights(n), cap)

	for it := 0; it < RiskParityMaxIterations; it++ {
		rc := RiskContributions(cov, w)
		if portfolioVariance(cov, w) <= 0 {
			return w, it, false
		}

		var gap float64
		for i := range rc {
			gap = math.Max(gap, math.Abs(rc[i]-target))
		}
		if gap < RiskParityTolerance {
			return w, it, true
		}

		next := make([]float64, n)
		for i := range w {
			next[i] = w[i] * (1 + RiskParityStep*float64(n)*(target-rc[i]))
		}
		w = ClipNormalize(next, cap)
	}
	return w, RiskParityMaxIterations, false
}

// =============================================================================
// blackLitterman
// =============================================================================

// Black-Litterman constants
const (
	RiskAversion = 2.5
	DefaultTau   = 0.05
)

// ImpliedReturns returns π = δ·Σ·w_mkt
func ImpliedReturns(cov *mat.SymDense, wMkt []float64) []float64 {
	sw := covMul(cov, wMkt)
	pi := make([]float64, len(sw))
	for i := range sw {
		pi[i] = RiskAversion * sw[i]
	}
	return pi
}

// BlendViews returns the Black-Litterman posterior mean.
//
//	μ = π + τΣP'(PτΣP' + Ω)⁻¹(q − Pπ),  ω_v = τΣ_kk(1 − c_v)/c_v
//
// Views are keyed by symbol with annualized returns; q is converted to daily.
func BlendViews(assets []string, cov *mat.SymDense, pi []float64, prior contracts.BlackLittermanPrior) ([]float64, error) {
	index := make(map[string]int, len(assets))
	for i, s := range assets {
		index[s] = i
	}

	tau := prior.Tau
	if tau <= 0 {
		tau = DefaultTau
	}

	k := len(prior.Views)
	n := len(assets)
	seen := make(map[string]bool, k)
	P := mat.NewDense(k, n, nil)
	q := mat.NewVecDense(k, nil)
	omega := make([]float64, k)
	for v, view := range prior.Views {
		i, ok := index[view.Asset]
		if !ok {
			return nil, fmt.Errorf("%w: view on unknown asset %q", contracts.ErrInvalidConfig, view.Asset)
		}
		if seen[view.Asset] {
			return nil, fmt.Errorf("%w: duplicate view on %s", contracts.ErrInvalidConfig, view.Asset)
		}
		if view.Confidence <= 0 || view.Confidence > 1 || math.IsNaN(view.Confidence) {
			return nil, fmt.Errorf("%w: view confidence for %s must be in (0, 1]", contracts.ErrInvalidConfig, view.Asset)
		}
		seen[view.Asset] = true
		P.Set(v, i, 1)
		q.SetVec(v, view.ExpectedReturn/contracts.TradingDaysPerYear-pi[i])
		omega[v] = tau * cov.At(i, i) * (1 - view.Confidence) / view.Confidence
	}

	// τΣP' (n×k), PτΣP' + Ω (k×k)
	var tauSigma mat.Dense
	tauSigma.Scale(tau, cov)
	var sp mat.Dense
	sp.Mul(&tauSigma, P.T())
	var middle mat.Dense
	middle.Mul(P, &sp)
	for v := 0; v < k; v++ {
		middle.Set(v, v, middle.At(v, v)+omega[v]+minVariance*tau)
	}

	var x mat.VecDense
	if err := x.SolveVec(&middle, q); err != nil {
		return nil, fmt.Errorf("%w: views are not solvable: %v", contracts.ErrInvalidConfig, err)
	}
	var adj mat.VecDense
	adj.MulVec(&sp, &x)

	mu := make([]float64, n)
	for i := range mu {
		mu[i] = pi[i] + adj.AtVec(i)
	}
	return mu, nil
}
