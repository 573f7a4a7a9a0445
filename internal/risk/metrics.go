package risk

import "math"

// SafeRatio divides, reporting ±RatioSentinel for a zero denominator and clamping to it
func SafeRatio(num, den float64) float64 {
	if den <= 0 || math.IsNaN(den) {
		switch {
		case num > 0:
			return RatioSentinel
		case num < 0:
			return -RatioSentinel
		default:
			return 0
		}
	}
	return math.Max(-RatioSentinel, math.Min(RatioSentinel, num/den))
}

// AnnualizedVolatility 표본 표준편차 × √252
func AnnualizedVolatility(daily []float64) float64 {
	return StdDev(daily) * math.Sqrt(TradingDaysPerYear)
}

// Sharpe 연율화 Sharpe (무위험 수익률 0)
//
//	mean·252 / (std·√252)
func Sharpe(daily []float64) float64 {
	return SafeRatio(Mean(daily)*TradingDaysPerYear, AnnualizedVolatility(daily))
}

// Sortino 하방 편차 기반 연율화 Sortino
// 하방 편차 = √(Σ r² / 음수일 수) × √252 (음수일만). 음수일이 없으면 mean > 0 → 상한, 아니면 0.
func Sortino(daily []float64) float64 {
	var sumSq float64
	neg := 0
	for _, r := range daily {
		if r < 0 {
			sumSq += r * r
			neg++
		}
	}

	annual := Mean(daily) * TradingDaysPerYear
	if neg == 0 {
		if annual > 0 {
			return RatioSentinel
		}
		return 0
	}
	downside := math.Sqrt(sumSq/float64(neg)) * math.Sqrt(TradingDaysPerYear)
	return SafeRatio(annual, downside)
}

// MaxDrawdown 최대 낙폭 (양수, 0.25 = 고점 대비 25% 하락)
func MaxDrawdown(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	maxDD := 0.0
	peak := values[0]
	for _, v := range values {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			if dd := (peak - v) / peak; dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// TimeUnderWater 첫 시점 이후 고점 미만에 머문 비율
func TimeUnderWater(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	under := 0
	peak := values[0]
	for _, v := range values[1:] {
		if v >= peak {
			peak = v
			continue
		}
		under++
	}
	return float64(under) / float64(len(values)-1)
}

// DailyReturns 가치 경로 → 일별 단순 수익률
func DailyReturns(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	out := make([]float64, len(values)-1)
	for i := 1; i < len(values); i++ {
		out[i-1] = values[i]/values[i-1] - 1
	}
	return out
}

// Path computes every per-path statistic from a value path
func Path(values []float64) PathStats {
	daily := DailyReturns(values)
	stats := PathStats{
		Volatility:     AnnualizedVolatility(daily),
		MaxDrawdown:    MaxDrawdown(values),
		SharpeRatio:    Sharpe(daily),
		SortinoRatio:   Sortino(daily),
		TimeUnderWater: TimeUnderWater(values),
	}
	if len(values) > 0 && values[0] != 0 {
		stats.TotalReturn = values[len(values)-1]/values[0] - 1
	}
	return stats
}
