package scenario

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/aegis-allocator/internal/contracts"
	"github.com/wonny/aegis-allocator/internal/refdata"
	"github.com/wonny/aegis-allocator/pkg/logger"
)

// minDailyReturn keeps generated prices strictly positive
const minDailyReturn = -0.99

// TableSource supplies the active reference tables
type TableSource interface {
	Current() *refdata.Tables
}

// Generator 시나리오 생성기 (Stage 1)
// ⭐ SSOT: 동일 seed + 설정 → 동일 시나리오 (worker 수와 무관)
type Generator struct {
	tables  TableSource
	workers int
	logger  *logger.Logger
}

// NewGenerator creates a new scenario generator
func NewGenerator(tables TableSource, workers int, log *logger.Logger) *Generator {
	if workers < 1 {
		workers = 1
	}
	return &Generator{
		tables:  tables,
		workers: workers,
		logger:  log,
	}
}

// job 시나리오 하나를 만드는 작업 단위
type job struct {
	stream uint64
	build  func(rng *RNG) contracts.Scenario
}

// Generate produces scenarios in a fixed order: historical, macro, then monte carlo by index
func (g *Generator) Generate(ctx context.Context, cfg contracts.ScenarioConfig, assets []contracts.Asset) ([]contracts.Scenario, error) {
	start := time.Now()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := contracts.ValidateAssets(assets); err != nil {
		return nil, err
	}

	tables := g.tables.Current()
	defaultRegimes := false
	if cfg.Enabled(contracts.KindMonteCarlo) && len(cfg.Regimes) == 0 {
		if len(tables.Regimes) == 0 {
			return nil, fmt.Errorf("%w: monteCarlo kind requires regimes (none in request or reference data)", contracts.ErrInvalidConfig)
		}
		cfg.Regimes = tables.Regimes
		defaultRegimes = true
	}
	resolved := tables.Resolve(assets)
	profiles := make([]refdata.Profile, len(resolved))
	for i, a := range resolved {
		profiles[i], _ = tables.Profile(a.Symbol, a.Class)
	}
	u := universe{assets: resolved, profiles: profiles, horizon: cfg.HorizonDays}

	jobs := g.plan(cfg, tables, u)
	out := make([]contracts.Scenario, len(jobs))
	seed := uint64(cfg.Seed)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)
	for i, j := range jobs {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			out[i] = j.build(NewRNG(seed, j.stream))
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("generate scenarios: %w", err)
	}

	synthetic := 0
	for _, s := range out {
		if s.Synthetic {
			synthetic++
		}
	}

	g.logger.WithFields(map[string]interface{}{
		"scenarios":       len(out),
		"synthetic":       synthetic,
		"assets":          len(assets),
		"horizon":         cfg.HorizonDays,
		"seed":            cfg.Seed,
		"default_regimes": defaultRegimes,
		"duration_ms":     time.Since(start).Milliseconds(),
	}).Info("Scenarios generated")

	return out, nil
}

// plan lists one job per scenario in output order
func (g *Generator) plan(cfg contracts.ScenarioConfig, tables *refdata.Tables, u universe) []job {
	var jobs []job

	if cfg.Enabled(contracts.KindHistorical) {
		for i, id := range cfg.Episodes {
			ep, synthetic := tables.Episode(id)
			jobs = append(jobs, job{
				stream: streamID(streamHistorical, i),
				build: func(rng *RNG) contracts.Scenario {
					return historicalScenario(id, ep, synthetic, u, rng)
				},
			})
		}
	}

	if cfg.Enabled(contracts.KindMacroShock) {
		for i, shock := range cfg.MacroShocks {
			jobs = append(jobs, job{
				stream: streamID(streamMacro, i),
				build: func(rng *RNG) contracts.Scenario {
					return macroScenario(shock, u, rng)
				},
			})
		}
	}

	if cfg.Enabled(contracts.KindMonteCarlo) {
		for i := 0; i < cfg.Paths; i++ {
			jobs = append(jobs, job{
				stream: streamID(streamMonteCarlo, i),
				build: func(rng *RNG) contracts.Scenario {
					return monteCarloScenario(i, cfg.Regimes, u, rng)
				},
			})
		}
	}

	return jobs
}

// universe 생성에 필요한 자산 정보
type universe struct {
	assets   []contracts.Asset
	profiles []refdata.Profile
	horizon  int
}

// buildPath compounds drift + noise from BasePrice for horizon days
func buildPath(horizon int, drift, sigma float64, rng *RNG) []float64 {
	path := make([]float64, horizon+1)
	path[0] = contracts.BasePrice
	for d := 1; d <= horizon; d++ {
		r := drift + rng.NormFloat64()*sigma
		if r < minDailyReturn {
			r = minDailyReturn
		}
		path[d] = path[d-1] * (1 + r)
	}
	return path
}
