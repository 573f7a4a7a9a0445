package commands

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wonny/aegis-allocator/internal/advice"
	"github.com/wonny/aegis-allocator/internal/estimator"
	"github.com/wonny/aegis-allocator/internal/optimizer"
	"github.com/wonny/aegis-allocator/internal/pipeline"
	"github.com/wonny/aegis-allocator/internal/refdata"
	"github.com/wonny/aegis-allocator/internal/scenario"
	"github.com/wonny/aegis-allocator/internal/simulator"
	"github.com/wonny/aegis-allocator/pkg/config"
	"github.com/wonny/aegis-allocator/pkg/logger"
)

// app shared CLI dependencies
type app struct {
	cfg    *config.Config
	log    *logger.Logger
	store  *refdata.Store
	engine *pipeline.Orchestrator
}

// appOptions per-command overrides
type appOptions struct {
	solver   string
	observer pipeline.Observer
	// stderr 로그: stdout은 결과 출력 전용
	stderrLog bool
}

// newApp loads config, logger, reference tables and wires the five stages
func newApp(opts appOptions) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	var log *logger.Logger
	if opts.stderrLog {
		log = logger.NewWithWriter(os.Stderr, cfg.LogLevel)
	} else {
		log = logger.New(cfg)
	}

	store, err := openStore(cfg.Engine.RefDataPath)
	if err != nil {
		return nil, err
	}

	solver, err := optimizer.SolverByName(opts.solver)
	if err != nil {
		return nil, err
	}

	workers := cfg.Engine.Workers
	engine := pipeline.NewOrchestrator(
		scenario.NewGenerator(store, workers, log),
		estimator.New(store, log),
		optimizer.New(log, optimizer.WithSolver(solver)),
		simulator.New(store, workers, log),
		advice.New(store, log),
		cfg.Engine.RequestTimeout,
		opts.observer,
		log,
	)

	snap := store.Snapshot()
	log.WithFields(map[string]interface{}{
		"refdata_version": snap.Tables.Version,
		"refdata_source":  snap.Source,
		"workers":         workers,
		"timeout":         cfg.Engine.RequestTimeout.String(),
	}).Debug("Engine initialized")

	return &app{cfg: cfg, log: log, store: store, engine: engine}, nil
}

// openStore opens the reference tables at path, or the embedded defaults
func openStore(path string) (*refdata.Store, error) {
	if path == "" {
		store, err := refdata.NewDefaultStore()
		if err != nil {
			return nil, fmt.Errorf("load embedded refdata: %w", err)
		}
		return store, nil
	}
	store, err := refdata.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load refdata %s: %w", path, err)
	}
	return store, nil
}

// readRequest decodes a YAML (or JSON) request file; unknown keys are rejected
func readRequest(path string, dest interface{}) error {
	if path == "" {
		return fmt.Errorf("request file required (-f)")
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open request: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(dest); err != nil {
		return fmt.Errorf("decode request %s: %w", path, err)
	}
	return nil
}
