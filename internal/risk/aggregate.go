package risk

import (
	"math"

	"github.com/wonny/aegis-allocator/internal/contracts"
)

// =============================================================================
// Aggregate - 순수 계산기
// =============================================================================

// Aggregate 시나리오별 결과 → 집계 통계
// ⭐ SSOT: 데이터 수집/시뮬레이션은 상위 레이어(simulator)에서 조립, 여기서는 순수 계산만
//
//	Volatility/SharpeRatio = 시나리오 평균, MaxDrawdown = 최악 시나리오,
//	VaR95/CVaR95 = 시나리오 총수익률 분포 기준 (손실 양수),
//	PassRate = 총수익률 > passThreshold 비율
func Aggregate(results []contracts.SimulationResult, passThreshold float64) contracts.AggregateStats {
	if len(results) == 0 {
		return contracts.AggregateStats{}
	}

	totals := make([]float64, len(results))
	vols := make([]float64, len(results))
	sharpes := make([]float64, len(results))
	worstDD := 0.0
	best, worst := math.Inf(-1), math.Inf(1)
	passed := 0

	for i, r := range results {
		totals[i] = r.TotalReturn
		vols[i] = r.Volatility
		sharpes[i] = r.SharpeRatio
		worstDD = math.Max(worstDD, r.MaxDrawdown)
		best = math.Max(best, r.TotalReturn)
		worst = math.Min(worst, r.TotalReturn)
		if r.TotalReturn > passThreshold {
			passed++
		}
	}

	tail := HistoricalVaR(totals, DefaultConfidence)
	return contracts.AggregateStats{
		MeanReturn:   Mean(totals),
		MedianReturn: Median(totals),
		Volatility:   Mean(vols),
		SharpeRatio:  Mean(sharpes),
		MaxDrawdown:  worstDD,
		BestReturn:   best,
		WorstReturn:  worst,
		VaR95:        tail.VaR,
		CVaR95:       tail.CVaR,
		PassRate:     float64(passed) / float64(len(results)),
	}
}

