package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/aegis-allocator/internal/contracts"
	"github.com/wonny/aegis-allocator/internal/pipeline"
)

// ═══════════════════════════════════════════════════════════
// Single-stage commands
// 각 단계를 요청 파일 하나로 단독 실행
// ═══════════════════════════════════════════════════════════

var (
	stageRequestFile string
	optimizeSolver   string
)

var scenariosCmd = &cobra.Command{
	Use:   "scenarios",
	Short: "S1: 시나리오 생성",
	Long: `시나리오 설정과 자산 목록으로 시나리오 경로를 생성합니다.

Example:
  go run ./cmd/quant scenarios -f scenarios.yaml --json`,
	RunE: runScenarios,
}

var estimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "S2: 기대수익률/공분산 추정",
	RunE:  runEstimate,
}

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "S3: 목표 비중 최적화",
	Long: `목적 함수와 제약 조건으로 목표 비중을 계산합니다.
expectedReturns/covariance가 없으면 scenarioData에서 추정합니다.

Objectives: maxSharpe, minVol, maxReturn, minCVaR, riskParity, blackLitterman
Solvers (maxSharpe): gradient (default), neldermead

Example:
  go run ./cmd/quant optimize -f optimize.yaml --solver neldermead`,
	RunE: runOptimize,
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "S4: 시나리오 시뮬레이션",
	RunE:  runSimulate,
}

var adviseCmd = &cobra.Command{
	Use:   "advise",
	Short: "S5: 리밸런싱 어드바이스",
	RunE:  runAdvise,
}

func init() {
	for _, c := range []*cobra.Command{scenariosCmd, estimateCmd, optimizeCmd, simulateCmd, adviseCmd} {
		c.Flags().StringVarP(&stageRequestFile, "file", "f", "", "요청 파일 (YAML/JSON)")
		_ = c.MarkFlagRequired("file")
		rootCmd.AddCommand(c)
	}
	optimizeCmd.Flags().StringVar(&optimizeSolver, "solver", "", "maxSharpe solver (gradient|neldermead)")
}

func runScenarios(cmd *cobra.Command, args []string) error {
	var req pipeline.ScenarioRequest
	return runStage(cmd, appOptions{}, &req, func(a *app) error {
		ctx, stop := signalContext(cmd.Context())
		defer stop()

		out, err := a.engine.Scenarios(ctx, req)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(out)
		}

		widths := []int{28, 14, 8, 10}
		fmt.Println()
		PrintTableHeader([]string{"Scenario", "Type", "Days", "Synthetic"}, widths)
		for _, s := range out.Scenarios {
			PrintTableRow([]string{s.Name, string(s.Type), fmt.Sprintf("%d", s.HorizonDays()), fmt.Sprintf("%t", s.Synthetic)}, widths)
		}
		PrintSuccess(fmt.Sprintf("%d scenarios (%d synthetic)", out.Count, out.Synthetic))
		return nil
	})
}

func runEstimate(cmd *cobra.Command, args []string) error {
	var req contracts.EstimateRequest
	return runStage(cmd, appOptions{}, &req, func(a *app) error {
		ctx, stop := signalContext(cmd.Context())
		defer stop()

		est, err := a.engine.Estimate(ctx, req)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(est)
		}

		fmt.Println()
		widths := []int{10, 12, 12}
		PrintTableHeader([]string{"Symbol", "Mean/day", "Var/day"}, widths)
		for i, sym := range est.Assets {
			PrintTableRow([]string{sym, fmt.Sprintf("%.6f", est.ExpectedReturns[i]), fmt.Sprintf("%.6f", est.Covariance[i][i])}, widths)
		}
		PrintKeyValue("Source", string(est.Source), 12)
		PrintKeyValue("Obs", fmt.Sprintf("%d", est.Observations), 12)
		PrintKeyValue("Shrinkage", fmt.Sprintf("%.2f", est.Shrinkage), 12)
		if est.Synthetic {
			PrintWarning("estimate uses synthetic returns")
		}
		return nil
	})
}

func runOptimize(cmd *cobra.Command, args []string) error {
	var in pipeline.OptimizeInput
	return runStage(cmd, appOptions{solver: optimizeSolver}, &in, func(a *app) error {
		ctx, stop := signalContext(cmd.Context())
		defer stop()

		out, err := a.engine.Optimize(ctx, in)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(out)
		}
		PrintWeights(fmt.Sprintf("Weights (%s)", out.Objective), out.Weights)
		PrintDiagnostics(out.Diagnostics)
		return nil
	})
}

func runSimulate(cmd *cobra.Command, args []string) error {
	var req contracts.SimulateRequest
	return runStage(cmd, appOptions{}, &req, func(a *app) error {
		ctx, stop := signalContext(cmd.Context())
		defer stop()

		out, err := a.engine.Simulate(ctx, req)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(out)
		}
		PrintSimulation(out)
		return nil
	})
}

func runAdvise(cmd *cobra.Command, args []string) error {
	var req contracts.AdviceRequest
	return runStage(cmd, appOptions{}, &req, func(a *app) error {
		ctx, stop := signalContext(cmd.Context())
		defer stop()

		adv, err := a.engine.Advise(ctx, req)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(adv)
		}
		PrintAdvice(adv)
		return nil
	})
}

// runStage decodes the request file into req, builds the app and runs fn
func runStage(cmd *cobra.Command, opts appOptions, req interface{}, fn func(a *app) error) error {
	if err := readRequest(stageRequestFile, req); err != nil {
		return err
	}
	opts.stderrLog = true
	a, err := newApp(opts)
	if err != nil {
		return err
	}
	if err := fn(a); err != nil {
		a.log.WithError(err).WithField("command", cmd.Name()).Debug("Command failed")
		return err
	}
	return nil
}
