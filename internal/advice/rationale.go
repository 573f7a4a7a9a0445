package advice

import (
	"fmt"
	"sort"
	"strings"

	"github.com/wonny/aegis-allocator/internal/contracts"
	"github.com/wonny/aegis-allocator/internal/refdata"
)

// Insight thresholds
const (
	strongSharpe    = 1.0
	weakSharpe      = 0.5
	deepDrawdown    = 0.20
	lowPassRate     = 0.90
	highPassRate    = 0.99
	highTurnover    = 0.25
	maxInsights     = 4
	maxTopScenarios = 3
)

func rationale(bench refdata.Benchmarks, book []holding, adv *contracts.Advice, sim *contracts.SimulationOutput, b base) contracts.Rationale {
	return contracts.Rationale{
		Explanation:  explanation(adv, b),
		FactorShift:  factorShift(bench, book),
		TopScenarios: worstScenarios(sim),
		KeyInsights:  insights(adv, b),
	}
}

func explanation(adv *contracts.Advice, b base) string {
	symbols := adv.TargetWeights.Symbols()
	largest := ""
	for _, s := range symbols {
		if largest == "" || adv.TargetWeights[s] > adv.TargetWeights[largest] {
			largest = s
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Target allocation across %d assets, largest position %s at %.1f%%. ",
		len(symbols), largest, adv.TargetWeights[largest]*100)
	fmt.Fprintf(&sb, "Expected return %.2f%% with volatility %.2f%% (Sharpe %.2f). ",
		b.expectedReturn*100, b.expectedVol*100, b.sharpe)
	if len(adv.Trades) == 0 {
		sb.WriteString("Current holdings are already within tolerance; no trades required.")
	} else {
		fmt.Fprintf(&sb, "%d trades needed, turnover %.1f%%, estimated cost %.2f.",
			len(adv.Trades), adv.Turnover*100, adv.TotalCost)
	}
	if adv.RiskSummary.Source == contracts.RiskFromDefaults {
		sb.WriteString(" Risk figures are reference defaults, not simulated.")
	}
	return sb.String()
}

// worstScenarios returns the three lowest-return scenarios (ties by id)
func worstScenarios(sim *contracts.SimulationOutput) []contracts.ScenarioHighlight {
	if sim == nil || len(sim.Results) == 0 {
		return []contracts.ScenarioHighlight{}
	}
	results := make([]contracts.SimulationResult, len(sim.Results))
	copy(results, sim.Results)
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].TotalReturn != results[j].TotalReturn {
			return results[i].TotalReturn < results[j].TotalReturn
		}
		return results[i].ScenarioID < results[j].ScenarioID
	})

	n := min(maxTopScenarios, len(results))
	out := make([]contracts.ScenarioHighlight, n)
	for i := 0; i < n; i++ {
		out[i] = contracts.ScenarioHighlight{
			ScenarioID:   results[i].ScenarioID,
			ScenarioName: results[i].ScenarioName,
			TotalReturn:  results[i].TotalReturn,
			MaxDrawdown:  results[i].MaxDrawdown,
		}
	}
	return out
}

// insights Sharpe → 낙폭 → 통과율 → 회전율 순, 최대 4개
func insights(adv *contracts.Advice, b base) []string {
	out := make([]string, 0, maxInsights)
	risk := adv.RiskSummary

	switch {
	case b.sharpe >= strongSharpe:
		out = append(out, fmt.Sprintf("Strong risk-adjusted return: Sharpe %.2f", b.sharpe))
	case b.sharpe < weakSharpe:
		out = append(out, fmt.Sprintf("Weak risk-adjusted return: Sharpe %.2f is below %.1f", b.sharpe, weakSharpe))
	}

	if risk.MaxDrawdown > deepDrawdown {
		out = append(out, fmt.Sprintf("Worst drawdown %.1f%% exceeds the %.0f%% comfort level", risk.MaxDrawdown*100, deepDrawdown*100))
	}

	switch {
	case risk.PassRate < lowPassRate:
		out = append(out, fmt.Sprintf("Only %.0f%% of scenarios stay above the %.0f%% loss threshold", risk.PassRate*100, contracts.PassThreshold*100))
	case risk.PassRate >= highPassRate:
		out = append(out, fmt.Sprintf("Resilient: %.0f%% of scenarios stay above the %.0f%% loss threshold", risk.PassRate*100, contracts.PassThreshold*100))
	}

	if adv.Turnover > highTurnover {
		out = append(out, fmt.Sprintf("High turnover %.1f%%; consider staging the rebalance", adv.Turnover*100))
	}

	if len(out) > maxInsights {
		out = out[:maxInsights]
	}
	return out
}
