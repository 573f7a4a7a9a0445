package logger_test

import (
	"errors"
	"os"

	"github.com/wonny/aegis-allocator/pkg/config"
	"github.com/wonny/aegis-allocator/pkg/logger"
)

// Example_basic demonstrates basic logger usage
func Example_basic() {
	cfg := &config.Config{
		Env:       "development",
		LogLevel:  "info",
		LogFormat: "console",
	}

	// Create logger (SSOT)
	log := logger.New(cfg)

	log.Debug("This won't appear (level is info)")
	log.Info("Engine started")
	log.WithField("skipped", 2).Warn("Skipped malformed scenarios")
}

// Example_withFields demonstrates structured logging with fields
func Example_withFields() {
	log := logger.NewWithWriter(os.Stderr, "info")

	log.WithFields(map[string]interface{}{
		"objective": "minVol",
		"assets":    4,
		"sharpe":    0.82,
	}).Info("Optimization complete")
	// {"level":"info","objective":"minVol","assets":4,"sharpe":0.82,"message":"Optimization complete",...}
}

// Example_withError demonstrates error logging
func Example_withError() {
	log := logger.NewWithWriter(os.Stderr, "error")

	err := errors.New("insufficient data")
	log.WithError(err).
		WithFields(map[string]interface{}{
			"stage":   "simulation",
			"skipped": 12,
		}).
		Error("Simulation failed")
	// {"level":"error","error":"insufficient data","stage":"simulation","skipped":12,"message":"Simulation failed",...}
}
