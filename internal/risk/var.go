package risk

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// DefaultConfidence 집계 VaR/CVaR 신뢰수준
const DefaultConfidence = 0.95

// =============================================================================
// Historical VaR / CVaR
// =============================================================================

// HistoricalVaR 표본 기반 VaR/CVaR (손실 양수)
// returns may be daily returns or per-scenario total returns.
//
//	idx  = ⌊(1 − confidence)·n⌋ in ascending order
//	VaR  = max(0, −r[idx])
//	CVaR = max(0, −mean(r[0..idx]))
func HistoricalVaR(returns []float64, confidence float64) VaRResult {
	out := VaRResult{Confidence: confidence}
	if len(returns) == 0 {
		return out
	}

	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)

	idx := int(math.Floor((1 - confidence) * float64(len(sorted))))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	if idx < 0 {
		idx = 0
	}

	out.VaR = math.Max(0, -sorted[idx])
	out.CVaR = math.Max(0, -stat.Mean(sorted[:idx+1], nil))
	return out
}

// =============================================================================
// Parametric VaR (정규분포 가정)
// =============================================================================

// ParametricVaR 정규분포 가정 VaR/CVaR (손실 양수)
//
//	VaR  = max(0, z·σ − μ)
//	CVaR = max(0, σ·φ(z)/(1 − c) − μ)
func ParametricVaR(mean, stdDev, confidence float64) VaRResult {
	if confidence <= 0 || confidence >= 1 || stdDev < 0 {
		return VaRResult{Confidence: confidence}
	}
	z := NormInv(confidence)
	return VaRResult{
		Confidence: confidence,
		VaR:        math.Max(0, z*stdDev-mean),
		CVaR:       math.Max(0, stdDev*distuv.UnitNormal.Prob(z)/(1-confidence)-mean),
	}
}

// NormInv 표준정규 분위수
// 자주 쓰는 신뢰수준은 관례적인 3자리 값을 그대로 사용.
func NormInv(p float64) float64 {
	if p <= 0 || p >= 1 {
		return 0
	}
	switch p {
	case 0.90:
		return 1.282
	case 0.95:
		return 1.645
	case 0.975:
		return 1.96
	case 0.99:
		return 2.326
	}
	return distuv.UnitNormal.Quantile(p)
}

// =============================================================================
// 통계 유틸리티
// =============================================================================

// Mean 산술평균 (빈 입력 0)
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// StdDev 표본 표준편차 (n−1; 2개 미만 0)
func StdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	return stat.StdDev(values, nil)
}

// Percentile 정렬된 입력의 p번째 백분위수 (0–100, 선형 보간)
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	switch {
	case n == 0:
		return 0
	case p <= 0:
		return sorted[0]
	case p >= 100:
		return sorted[n-1]
	}

	pos := p / 100 * float64(n-1)
	lo := int(math.Floor(pos))
	if lo+1 >= n {
		return sorted[n-1]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

// Median 중앙값 (입력은 정렬하지 않아도 됨)
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return Percentile(sorted, 50)
}
