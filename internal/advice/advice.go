package advice

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wonny/aegis-allocator/internal/contracts"
	"github.com/wonny/aegis-allocator/internal/refdata"
	"github.com/wonny/aegis-allocator/internal/scenario"
	"github.com/wonny/aegis-allocator/pkg/logger"
)

// Synthesizer 어드바이스 생성기 (Stage 5)
// ⭐ SSOT: 거래 비용은 시뮬레이터와 동일한 CostModel.TradeCost 사용
type Synthesizer struct {
	tables scenario.TableSource
	logger *logger.Logger
}

// New creates a new advice synthesizer
func New(tables scenario.TableSource, log *logger.Logger) *Synthesizer {
	return &Synthesizer{tables: tables, logger: log}
}

// holding 대상/현재 비중이 합쳐진 자산 한 줄
type holding struct {
	symbol  string
	profile refdata.Profile
	current float64
	target  float64
}

// Synthesize converts target weights and current holdings into trades, risk and rationale
func (s *Synthesizer) Synthesize(ctx context.Context, req contracts.AdviceRequest) (*contracts.Advice, error) {
	start := time.Now()

	if err := req.Weights.Validate(req.Constraints.Cap()); err != nil {
		return nil, fmt.Errorf("target weights: %w", err)
	}
	if err := validateHoldings(req.CurrentHoldings); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tables := s.tables.Current()
	notional := req.Notional
	if notional <= 0 {
		notional = tables.Notional
	}

	book := s.book(tables, req)
	trades, totalCost := buildTrades(book, req.CostModel, notional)
	summary := riskSummary(tables, req.Simulation)
	base := baseline(summary, req.Diagnostics)

	advice := &contracts.Advice{
		TargetWeights: req.Weights,
		Trades:        trades,
		RiskSummary:   summary,
		Sensitivities: sensitivities(tables.Sensitivities, exposures(book), base),
		Turnover:      req.Weights.Turnover(req.CurrentHoldings),
		TotalCost:     totalCost,
	}
	advice.Rationale = rationale(tables.Benchmarks, book, advice, req.Simulation, base)

	s.logger.WithFields(map[string]interface{}{
		"assets":      len(book),
		"trades":      len(trades),
		"turnover":    advice.Turnover,
		"total_cost":  totalCost,
		"risk_source": summary.Source,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("Advice synthesized")

	return advice, nil
}

func validateHoldings(h contracts.AllocationWeights) error {
	for _, sym := range h.Symbols() {
		v := h[sym]
		if math.IsNaN(v) || math.IsInf(v, 0) || v < -contracts.WeightTolerance {
			return fmt.Errorf("%w: current holding for %s must be a finite non-negative weight", contracts.ErrInvalidConfig, sym)
		}
	}
	return nil
}

// book merges target and current weights over the union of symbols (sorted)
func (s *Synthesizer) book(tables *refdata.Tables, req contracts.AdviceRequest) []holding {
	given := make(map[string]contracts.AssetClass, len(req.Assets))
	for _, a := range req.Assets {
		given[a.Symbol] = a.Class
	}

	union := make(map[string]struct{}, len(req.Weights)+len(req.CurrentHoldings))
	for sym := range req.Weights {
		union[sym] = struct{}{}
	}
	for sym := range req.CurrentHoldings {
		union[sym] = struct{}{}
	}
	symbols := make([]string, 0, len(union))
	for sym := range union {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	out := make([]holding, len(symbols))
	for i, sym := range symbols {
		p, _ := tables.Profile(sym, given[sym])
		out[i] = holding{
			symbol:  sym,
			profile: p,
			current: req.CurrentHoldings[sym],
			target:  req.Weights[sym],
		}
	}
	return out
}

// cents 금액 반올림 단위
const cents = 2

// buildTrades emits one trade per material weight change, largest |Δ| first.
// 금액 계산은 decimal로 수행 후 센트 단위 반올림.
func buildTrades(book []holding, cost contracts.CostModel, notional float64) ([]contracts.Trade, float64) {
	total := decimal.Zero
	n := decimal.NewFromFloat(notional)
	trades := make([]contracts.Trade, 0, len(book))

	for _, h := range book {
		delta := h.target - h.current
		if math.Abs(delta) <= contracts.MaterialityThreshold {
			continue
		}
		traded := math.Abs(delta)

		qty := n.Mul(decimal.NewFromFloat(traded)).Round(cents)
		estCost := n.Mul(decimal.NewFromFloat(cost.TradeCost(h.profile.Class, traded))).Round(cents)
		total = total.Add(estCost)

		side := contracts.SideSell
		if delta > 0 {
			side = contracts.SideBuy
		}

		advPct := 0.0
		if h.profile.ADV > 0 {
			advPct = qty.Div(decimal.NewFromFloat(h.profile.ADV)).InexactFloat64()
		}

		trades = append(trades, contracts.Trade{
			Symbol:        h.symbol,
			Side:          side,
			Quantity:      qty.InexactFloat64(),
			EstCost:       estCost.InexactFloat64(),
			ADVPct:        advPct,
			CurrentWeight: h.current,
			TargetWeight:  h.target,
			Difference:    delta,
		})
	}

	sort.SliceStable(trades, func(i, j int) bool {
		di, dj := math.Abs(trades[i].Difference), math.Abs(trades[j].Difference)
		if di != dj {
			return di > dj
		}
		return trades[i].Symbol < trades[j].Symbol
	})
	return trades, total.InexactFloat64()
}

// riskSummary passes the simulation aggregate through, or falls back to the reference defaults
func riskSummary(tables *refdata.Tables, sim *contracts.SimulationOutput) contracts.RiskSummary {
	if sim == nil || len(sim.Results) == 0 {
		return contracts.RiskSummary{
			AggregateStats: tables.RiskDefaults.Stats(),
			Source:         contracts.RiskFromDefaults,
			Synthetic:      true,
		}
	}
	return contracts.RiskSummary{
		AggregateStats: sim.Aggregate,
		Source:         contracts.RiskFromSimulation,
		Synthetic:      sim.Summary.SyntheticScenarios > 0,
	}
}
