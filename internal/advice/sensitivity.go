package advice

import (
	"math"

	"github.com/wonny/aegis-allocator/internal/contracts"
	"github.com/wonny/aegis-allocator/internal/refdata"
)

// emWeight EM 자산의 통화 민감도 배수
const emWeight = 1.5

// base 민감도 계산의 기준값 (연율)
type base struct {
	expectedReturn float64
	expectedVol    float64
	maxDrawdown    float64
	sharpe         float64
}

// baseline prefers optimizer diagnostics for return/vol and uses the risk summary otherwise
func baseline(summary contracts.RiskSummary, diag *contracts.Diagnostics) base {
	b := base{
		expectedReturn: summary.MeanReturn,
		expectedVol:    summary.Volatility,
		maxDrawdown:    summary.MaxDrawdown,
		sharpe:         summary.SharpeRatio,
	}
	if diag != nil {
		b.expectedReturn = diag.ExpectedReturn
		b.expectedVol = diag.ExpectedVol
		b.sharpe = diag.SharpeRatio
	}
	return b
}

// exposures 목표 비중 기준 팩터 노출
func exposures(book []holding) map[refdata.ExposureFactor]float64 {
	out := make(map[refdata.ExposureFactor]float64, 4)
	for _, h := range book {
		w := h.target
		if w == 0 {
			continue
		}
		out[refdata.FactorDuration] += w * h.profile.Duration
		switch {
		case h.profile.HasTag(refdata.TagEmerging):
			out[refdata.FactorInternational] += emWeight * w
		case h.profile.HasTag(refdata.TagInternational):
			out[refdata.FactorInternational] += w
		}
		if h.profile.HasTag(refdata.TagEnergy) {
			out[refdata.FactorEnergy] += w
		}
		if h.profile.Class != contracts.ClassFixedIncome {
			out[refdata.FactorEquity] += w
		}
	}
	return out
}

// sensitivities applies each shock's closed form to the baseline
func sensitivities(shocks []refdata.Shock, exp map[refdata.ExposureFactor]float64, b base) []contracts.Sensitivity {
	out := make([]contracts.Sensitivity, 0, len(shocks))
	for _, s := range shocks {
		x := exp[s.Factor]
		out = append(out, contracts.Sensitivity{
			Shock:          s.ID,
			Description:    s.Description,
			ExpectedReturn: b.expectedReturn + s.ReturnImpact*x,
			ExpectedVol:    math.Max(0, b.expectedVol*(1+s.VolScale*x)),
			MaxDrawdown:    math.Max(0, b.maxDrawdown*(1+s.DrawdownScale*x)+s.DrawdownImpact*x),
		})
	}
	return out
}

// factorShift 벤치마크 대비 노출 요약
func factorShift(bench refdata.Benchmarks, book []holding) contracts.FactorShift {
	var fs contracts.FactorShift
	for _, h := range book {
		w := h.target
		switch h.profile.Class {
		case contracts.ClassEquity:
			fs.EquityBeta += w * h.profile.Beta
		case contracts.ClassFixedIncome:
			fs.DurationYears += w * h.profile.Duration
		case contracts.ClassCommodities:
			fs.CommodityBeta += w * h.profile.Beta
		case contracts.ClassCash:
			fs.CashWeight += w
		}
	}
	fs.EquityBetaVsBench = fs.EquityBeta - bench.EquityBeta
	fs.DurationVsBench = fs.DurationYears - bench.DurationYears
	fs.CommodityBetaVsBench = fs.CommodityBeta - bench.CommodityBeta
	return fs
}
