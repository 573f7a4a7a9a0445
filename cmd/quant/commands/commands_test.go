package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-allocator/internal/contracts"
	"github.com/wonny/aegis-allocator/internal/pipeline"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestReadRequest(t *testing.T) {
	path := writeFile(t, "request.yaml", `
assets:
  - symbol: SPY
  - symbol: AGG
    class: FixedIncome
scenarioConfig:
  horizonDays: 60
  paths: 20
  seed: 42
  kinds: [historical, monteCarlo]
  episodes: [gfc_2008]
objective: riskParity
constraints:
  maxWeightPerAsset: 0.7
currentHoldings:
  SPY: 0.5
  AGG: 0.5
costModel:
  commissionBps: 2
`)

	var req pipeline.Request
	require.NoError(t, readRequest(path, &req))

	assert.Len(t, req.Assets, 2)
	assert.Equal(t, contracts.AssetClass("FixedIncome"), req.Assets[1].Class)
	assert.Equal(t, contracts.Objective("riskParity"), req.Objective)
	assert.Equal(t, 60, req.ScenarioConfig.HorizonDays)
	assert.Equal(t, int64(42), req.ScenarioConfig.Seed)
	assert.InDelta(t, 0.7, req.Constraints.MaxWeightPerAsset, 1e-12)
	assert.InDelta(t, 0.5, req.CurrentHoldings["SPY"], 1e-12)
	require.NotNil(t, req.CostModel)
	assert.InDelta(t, 2.0, req.CostModel.CommissionBps, 1e-12)
}

func TestReadRequest_Errors(t *testing.T) {
	var req pipeline.Request

	assert.Error(t, readRequest("", &req), "missing -f")
	assert.Error(t, readRequest(filepath.Join(t.TempDir(), "missing.yaml"), &req))

	unknown := writeFile(t, "typo.yaml", "objectve: minVol\n")
	err := readRequest(unknown, &req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "objectve")
}

func TestMaskPassword(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"postgresql://user:secret@db:5432/aegis", "postgresql://user:***@db:5432/aegis"},
		{"postgresql://user@db:5432/aegis", "postgresql://user@db:5432/aegis"},
		{"postgresql://db:5432/aegis", "postgresql://db:5432/aegis"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, maskPassword(tt.in))
	}
}

func TestShortHash(t *testing.T) {
	assert.Equal(t, "0123456789ab", shortHash("0123456789abcdef"))
	assert.Equal(t, "abc", shortHash("abc"))
}

func TestRootCommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"api", "run", "scenarios", "estimate", "optimize", "simulate", "advise", "refdata", "status", "archive", "scheduler"} {
		assert.True(t, names[want], want)
	}
}
