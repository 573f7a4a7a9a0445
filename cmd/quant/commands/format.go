package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/wonny/aegis-allocator/internal/contracts"
	"github.com/wonny/aegis-allocator/internal/pipeline"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

// PrintHeader prints a formatted command header
func PrintHeader(title string, fields map[string]string, order []string) {
	fmt.Println()
	PrintDoubleSeparator()
	fmt.Printf("  %s\n", title)
	PrintSeparator()
	for _, k := range order {
		fmt.Printf("  %-10s: %s\n", k, fields[k])
	}
	PrintSeparator()
}

// PrintSeparator prints a visual separator
func PrintSeparator() {
	fmt.Println("───────────────────────────────────────────────────────────")
}

// PrintDoubleSeparator prints a double-line separator
func PrintDoubleSeparator() {
	fmt.Println("═══════════════════════════════════════════════════════════")
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	fmt.Printf("⚠️  %s\n", message)
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	fmt.Printf("✅ %s\n", message)
}

// PrintError prints an error message
func PrintError(message string) {
	fmt.Printf("❌ %s\n", message)
}

// PrintInfo prints an info message
func PrintInfo(message string) {
	fmt.Printf("ℹ️  %s\n", message)
}

// PrintTableHeader prints a table header
func PrintTableHeader(columns []string, widths []int) {
	PrintTableRow(columns, widths)

	totalWidth := 0
	for i, width := range widths {
		totalWidth += width
		if i < len(widths)-1 {
			totalWidth += 2 // spacing
		}
	}
	fmt.Println(strings.Repeat("─", totalWidth))
}

// PrintTableRow prints a table row
func PrintTableRow(values []string, widths []int) {
	for i, val := range values {
		fmt.Printf("%-*s", widths[i], val)
		if i < len(values)-1 {
			fmt.Print("  ")
		}
	}
	fmt.Println()
}

// PrintList prints a bulleted list
func PrintList(items []string) {
	for _, item := range items {
		fmt.Printf("   • %s\n", item)
	}
}

// PrintKeyValue prints key-value pairs
func PrintKeyValue(key string, value string, keyWidth int) {
	fmt.Printf("   %-*s : %s\n", keyWidth, key, value)
}

// printJSON writes v as indented JSON to stdout (--json)
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func pct(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}

// ═══════════════════════════════════════════════════════════
// Stage output
// ═══════════════════════════════════════════════════════════

// PrintWeights prints a weight table sorted by symbol
func PrintWeights(title string, w contracts.AllocationWeights) {
	fmt.Printf("\n%s\n", title)
	widths := []int{10, 10}
	PrintTableHeader([]string{"Symbol", "Weight"}, widths)
	for _, sym := range w.Symbols() {
		PrintTableRow([]string{sym, pct(w[sym])}, widths)
	}
}

// PrintDiagnostics prints optimizer diagnostics
func PrintDiagnostics(d contracts.Diagnostics) {
	fmt.Println("\nDiagnostics")
	PrintKeyValue("Exp. return", pct(d.ExpectedReturn), 12)
	PrintKeyValue("Exp. vol", pct(d.ExpectedVol), 12)
	PrintKeyValue("Sharpe", fmt.Sprintf("%.3f", d.SharpeRatio), 12)
	PrintKeyValue("Max weight", pct(d.MaxWeight), 12)
	PrintKeyValue("Turnover", pct(d.Turnover), 12)
	for _, w := range d.Warnings {
		PrintWarning(w)
	}
}

// PrintSimulation prints per-scenario results and aggregate stats
func PrintSimulation(out *contracts.SimulationOutput) {
	fmt.Println("\nScenarios")
	widths := []int{28, 12, 10, 10, 10, 8}
	PrintTableHeader([]string{"Scenario", "Type", "Return", "Vol", "MaxDD", "Cost"}, widths)
	for _, r := range out.Results {
		name := r.ScenarioName
		if r.Synthetic {
			name += " *"
		}
		PrintTableRow([]string{
			name, string(r.ScenarioType), pct(r.TotalReturn), pct(r.Volatility), pct(r.MaxDrawdown), pct(r.TotalCost),
		}, widths)
	}

	a := out.Aggregate
	fmt.Println("\nAggregate")
	PrintKeyValue("Mean", pct(a.MeanReturn), 10)
	PrintKeyValue("Median", pct(a.MedianReturn), 10)
	PrintKeyValue("Worst", pct(a.WorstReturn), 10)
	PrintKeyValue("VaR95", pct(a.VaR95), 10)
	PrintKeyValue("CVaR95", pct(a.CVaR95), 10)
	PrintKeyValue("Pass rate", pct(a.PassRate), 10)
	if s := out.Summary; s.SkippedScenarios > 0 || s.SyntheticScenarios > 0 {
		PrintWarning(fmt.Sprintf("skipped %d, synthetic %d of %d scenarios",
			s.SkippedScenarios, s.SyntheticScenarios, s.ScenarioCount))
	}
}

// PrintAdvice prints trades, sensitivities and rationale
func PrintAdvice(adv *contracts.Advice) {
	PrintWeights("Target weights", adv.TargetWeights)

	fmt.Println("\nTrades")
	if len(adv.Trades) == 0 {
		PrintInfo("no material trades")
	} else {
		widths := []int{8, 5, 14, 10, 8}
		PrintTableHeader([]string{"Symbol", "Side", "Qty", "Cost", "ADV%"}, widths)
		for _, t := range adv.Trades {
			PrintTableRow([]string{
				t.Symbol, string(t.Side), fmt.Sprintf("%.2f", t.Quantity), fmt.Sprintf("%.2f", t.EstCost), pct(t.ADVPct),
			}, widths)
		}
	}
	PrintKeyValue("Turnover", pct(adv.Turnover), 10)
	PrintKeyValue("Total cost", fmt.Sprintf("%.2f", adv.TotalCost), 10)

	fmt.Println("\nSensitivities")
	for _, s := range adv.Sensitivities {
		PrintKeyValue(s.Shock, fmt.Sprintf("ret %s  vol %s  dd %s", pct(s.ExpectedReturn), pct(s.ExpectedVol), pct(s.MaxDrawdown)), 16)
	}

	fmt.Println("\nRationale")
	fmt.Printf("   %s\n", adv.Rationale.Explanation)
	PrintList(adv.Rationale.KeyInsights)
	if adv.RiskSummary.Synthetic {
		PrintWarning("risk summary uses synthetic inputs")
	}
}

// PrintResult prints a full pipeline result
func PrintResult(res *pipeline.Result) {
	PrintHeader("Pipeline Run", map[string]string{
		"Run ID":    res.RunID,
		"Status":    res.Status,
		"Scenarios": fmt.Sprintf("%d", res.ScenarioCount),
		"Duration":  fmt.Sprintf("%.0fms", res.DurationMs),
	}, []string{"Run ID", "Status", "Scenarios", "Duration"})

	for _, stage := range res.CompletedStages {
		PrintKeyValue(stage, fmt.Sprintf("%.1fms", res.StageDurations[stage]), 12)
	}
	if res.Optimization != nil {
		PrintDiagnostics(res.Optimization.Diagnostics)
	}
	if res.Simulation != nil {
		PrintSimulation(res.Simulation)
	}
	if res.Advice != nil {
		PrintAdvice(res.Advice)
	}
	if res.Synthetic {
		PrintWarning("result includes synthetic data")
	}
	if res.Error != "" {
		PrintError(res.Error)
	}
}
