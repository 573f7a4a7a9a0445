package simulator

import (
	"context"
	"fmt"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/aegis-allocator/internal/contracts"
	"github.com/wonny/aegis-allocator/internal/risk"
	"github.com/wonny/aegis-allocator/internal/scenario"
	"github.com/wonny/aegis-allocator/pkg/logger"
)

// Simulator 포트폴리오 시뮬레이터 (Stage 4)
// ⭐ SSOT: 시나리오별 경로 재생 + 주기적 리밸런싱 + 거래비용
// 초기 편입은 비용 없음, 마지막 날에는 리밸런싱하지 않음.
type Simulator struct {
	tables  scenario.TableSource
	workers int
	logger  *logger.Logger
}

// New creates a new simulator
func New(tables scenario.TableSource, workers int, log *logger.Logger) *Simulator {
	if workers < 1 {
		workers = 1
	}
	return &Simulator{
		tables:  tables,
		workers: workers,
		logger:  log,
	}
}

// book 시뮬레이션 대상 자산 (비중 > 0)
type book struct {
	symbols []string
	classes []contracts.AssetClass
	target  []float64
}

// outcome 시나리오 하나의 결과 (skip 사유 포함)
type outcome struct {
	result  contracts.SimulationResult
	skipped string
}

// Simulate replays the weights across every scenario
func (s *Simulator) Simulate(ctx context.Context, req contracts.SimulateRequest) (*contracts.SimulationOutput, error) {
	start := time.Now()

	if err := req.Weights.Validate(1); err != nil {
		return nil, err
	}
	if req.HorizonDays < 0 || req.HorizonDays > contracts.MaxHorizonDays {
		return nil, fmt.Errorf("%w: horizonDays must be in [0, %d]", contracts.ErrInvalidConfig, contracts.MaxHorizonDays)
	}
	if req.RebalanceDays < 0 {
		return nil, fmt.Errorf("%w: rebalanceDays must be >= 0", contracts.ErrInvalidConfig)
	}
	if len(req.Scenarios) == 0 {
		return nil, fmt.Errorf("%w: no scenarios to simulate", contracts.ErrInsufficientData)
	}

	rebalance := req.RebalanceDays
	if rebalance == 0 {
		rebalance = contracts.DefaultRebalanceDays
	}
	b := s.book(req)

	outcomes := make([]outcome, len(req.Scenarios))
	g, egCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range req.Scenarios {
		i := i
		g.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			res, err := replay(&req.Scenarios[i], b, req.CostModel, req.HorizonDays, rebalance)
			if err != nil {
				outcomes[i].skipped = err.Error()
				return nil
			}
			outcomes[i].result = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("simulate: %w", err)
	}

	out := &contracts.SimulationOutput{
		Summary: contracts.SimulationSummary{
			ScenarioCount: len(req.Scenarios),
			HorizonDays:   req.HorizonDays,
			RebalanceDays: rebalance,
		},
	}
	for i, o := range outcomes {
		if o.skipped != "" {
			out.Summary.Skipped = append(out.Summary.Skipped, contracts.SkippedScenario{
				ID:     req.Scenarios[i].ID,
				Reason: o.skipped,
			})
			continue
		}
		out.Results = append(out.Results, o.result)
	}
	out.Summary.SkippedScenarios = len(out.Summary.Skipped)
	out.Summary.SimulatedScenarios = len(out.Results)

	if len(out.Results) == 0 {
		return nil, fmt.Errorf("%w: all %d scenarios were malformed", contracts.ErrInsufficientData, len(req.Scenarios))
	}

	summarize(out)
	out.Aggregate = risk.Aggregate(out.Results, contracts.PassThreshold)

	s.logger.WithFields(map[string]interface{}{
		"scenarios":   len(req.Scenarios),
		"simulated":   out.Summary.SimulatedScenarios,
		"skipped":     out.Summary.SkippedScenarios,
		"mean_return": out.Aggregate.MeanReturn,
		"pass_rate":   out.Aggregate.PassRate,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("Portfolio simulated")

	return out, nil
}

// book resolves asset classes for every positively weighted symbol
func (s *Simulator) book(req contracts.SimulateRequest) book {
	given := make(map[string]contracts.AssetClass, len(req.Assets))
	for _, a := range req.Assets {
		given[a.Symbol] = a.Class
	}

	tables := s.tables.Current()
	var b book
	for _, sym := range req.Weights.Symbols() {
		w := req.Weights[sym]
		if w <= 0 {
			continue
		}
		b.symbols = append(b.symbols, sym)
		b.classes = append(b.classes, tables.ClassOf(sym, given[sym]))
		b.target = append(b.target, w)
	}
	return b
}

// replay walks one scenario day by day with drifted weights.
//
//	r_p = Σ h_i·r_i,  h_i ← h_i(1 + r_i)/(1 + r_p)
//	every `rebalance` days (not the last): cost = V·Σ TradeCost(class_i, |h_i − w_i|), h ← w
func replay(sc *contracts.Scenario, b book, cost contracts.CostModel, horizon, rebalance int) (contracts.SimulationResult, error) {
	minLen := 2
	if horizon > 0 {
		minLen = horizon + 1
	}
	if err := sc.CheckPaths(b.symbols, minLen); err != nil {
		return contracts.SimulationResult{}, err
	}

	days := horizon
	if days == 0 {
		days = math.MaxInt
		for _, sym := range b.symbols {
			days = min(days, len(sc.Paths[sym])-1)
		}
	}

	n := len(b.symbols)
	held := make([]float64, n)
	copy(held, b.target)
	daily := make([]float64, n)

	value := contracts.BasePrice
	values := make([]float64, 0, days+1)
	values = append(values, value)
	var totalCost float64
	rebalances := 0

	for d := 1; d <= days; d++ {
		var rp float64
		for i, sym := range b.symbols {
			p := sc.Paths[sym]
			daily[i] = p[d]/p[d-1] - 1
			rp += held[i] * daily[i]
		}
		value *= 1 + rp
		if 1+rp > 0 {
			for i := range held {
				held[i] = held[i] * (1 + daily[i]) / (1 + rp)
			}
		}

		if d%rebalance == 0 && d < days {
			var frac float64
			for i := range held {
				frac += cost.TradeCost(b.classes[i], math.Abs(held[i]-b.target[i]))
			}
			charge := value * frac
			value -= charge
			totalCost += charge
			copy(held, b.target)
			rebalances++
		}
		values = append(values, value)
	}

	stats := risk.Path(values)
	return contracts.SimulationResult{
		ScenarioID:     sc.ID,
		ScenarioName:   sc.Name,
		ScenarioType:   sc.Type,
		ValuePath:      values,
		DailyReturns:   risk.DailyReturns(values),
		TotalReturn:    stats.TotalReturn,
		Volatility:     stats.Volatility,
		MaxDrawdown:    stats.MaxDrawdown,
		SharpeRatio:    stats.SharpeRatio,
		SortinoRatio:   stats.SortinoRatio,
		TimeUnderWater: stats.TimeUnderWater,
		TotalCost:      totalCost / contracts.BasePrice,
		Rebalances:     rebalances,
		Synthetic:      sc.Synthetic,
	}, nil
}

// summarize fills the per-run means that are not part of AggregateStats
func summarize(out *contracts.SimulationOutput) {
	var cost, sortino, tuw float64
	for _, r := range out.Results {
		cost += r.TotalCost
		sortino += r.SortinoRatio
		tuw += r.TimeUnderWater
		if r.Synthetic {
			out.Summary.SyntheticScenarios++
		}
	}
	n := float64(len(out.Results))
	out.Summary.MeanCost = cost / n
	out.Summary.MeanSortino = sortino / n
	out.Summary.MeanTimeUnderWater = tuw / n
	if out.Summary.HorizonDays == 0 {
		out.Summary.HorizonDays = len(out.Results[0].ValuePath) - 1
	}
}
