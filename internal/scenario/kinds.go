package scenario

import (
	"fmt"
	"sort"

	"github.com/wonny/aegis-allocator/internal/contracts"
	"github.com/wonny/aegis-allocator/internal/refdata"
)

// =============================================================================
// Historical replay
// =============================================================================

// historicalScenario spreads the episode's class shock evenly over the horizon plus daily noise.
// 노이즈 = σ_daily × vol_multiplier
func historicalScenario(id string, ep refdata.Episode, synthetic bool, u universe, rng *RNG) contracts.Scenario {
	paths := make(map[string][]float64, len(u.assets))
	h := float64(u.horizon)
	for i, a := range u.assets {
		p := u.profiles[i]
		drift := ep.ShockFor(a.Class) / h
		paths[a.Symbol] = buildPath(u.horizon, drift, p.DailyVol()*ep.VolMultiplier, rng)
	}

	name := ep.Name
	if synthetic {
		name = fmt.Sprintf("%s (fallback for %s)", ep.Name, id)
	}
	return contracts.Scenario{
		ID:        "hist_" + id,
		Name:      name,
		Type:      contracts.KindHistorical,
		Paths:     paths,
		Synthetic: synthetic,
	}
}

// =============================================================================
// Macro shock
// =============================================================================

// maxMacroLoss bounds a single asset's total macro response
const maxMacroLoss = -0.95

// emCurrencyMultiplier EM 자산의 통화 충격 민감도
const emCurrencyMultiplier = 1.5

// MacroResponse returns an asset's total return response to a macro shock
//
//	FixedIncome:     −duration × Δrate
//	credit tag:      −duration × Δspread
//	international:   −CurrencyPct (em: −1.5 × CurrencyPct)
//	region / sector: +EquityShocks[tag] for each matching tag or class name
func MacroResponse(s contracts.MacroShock, p refdata.Profile) float64 {
	var r float64

	if p.Class == contracts.ClassFixedIncome {
		r -= p.Duration * s.RateShiftBps / 10000
	}
	if p.HasTag(refdata.TagCredit) {
		r -= p.Duration * s.CreditSpreadBps / 10000
	}

	switch {
	case p.HasTag(refdata.TagEmerging):
		r -= emCurrencyMultiplier * s.CurrencyPct
	case p.HasTag(refdata.TagInternational):
		r -= s.CurrencyPct
	}

	// 정렬된 순서로 합산 (부동소수 결정성)
	tags := make([]string, 0, len(s.EquityShocks))
	for tag := range s.EquityShocks {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	for _, tag := range tags {
		if p.HasTag(tag) || tag == string(p.Class) {
			r += s.EquityShocks[tag]
		}
	}

	if r < maxMacroLoss {
		r = maxMacroLoss
	}
	return r
}

func macroScenario(s contracts.MacroShock, u universe, rng *RNG) contracts.Scenario {
	paths := make(map[string][]float64, len(u.assets))
	h := float64(u.horizon)
	for i, a := range u.assets {
		p := u.profiles[i]
		paths[a.Symbol] = buildPath(u.horizon, MacroResponse(s, p)/h, p.DailyVol(), rng)
	}

	name := s.Name
	if name == "" {
		name = s.ID
	}
	return contracts.Scenario{
		ID:    "macro_" + s.ID,
		Name:  name,
		Type:  contracts.KindMacroShock,
		Paths: paths,
	}
}

// =============================================================================
// Monte Carlo
// =============================================================================

// pickRegime samples a regime by cumulative probability
func pickRegime(regimes []contracts.Regime, u float64) contracts.Regime {
	var cum float64
	for _, r := range regimes {
		cum += r.Probability
		if u < cum {
			return r
		}
	}
	// 합계가 1 - ε 인 경우 마지막 레짐
	return regimes[len(regimes)-1]
}

func monteCarloScenario(index int, regimes []contracts.Regime, u universe, rng *RNG) contracts.Scenario {
	regime := pickRegime(regimes, rng.Float64())

	paths := make(map[string][]float64, len(u.assets))
	for i, a := range u.assets {
		p := u.profiles[i]
		paths[a.Symbol] = buildPath(u.horizon, p.DailyDrift(), p.DailyVol()*regime.VolMultiplier, rng)
	}

	return contracts.Scenario{
		ID:    fmt.Sprintf("mc_%05d", index+1),
		Name:  fmt.Sprintf("Monte Carlo #%d (%s)", index+1, regime.Name),
		Type:  contracts.KindMonteCarlo,
		Paths: paths,
	}
}
