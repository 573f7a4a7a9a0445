package refdata

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-allocator/internal/contracts"
)

func TestDefault(t *testing.T) {
	tables, err := Default()
	require.NoError(t, err)

	assert.Equal(t, 1_000_000.0, tables.Notional)
	assert.Equal(t, 50_000_000.0, tables.DefaultADV)
	assert.Len(t, tables.Sensitivities, 5)
	assert.Equal(t, 0.60, tables.Benchmarks.EquityBeta)
	assert.Equal(t, 2.0, tables.Benchmarks.DurationYears)
	assert.Equal(t, 0.05, tables.Benchmarks.CommodityBeta)

	// 해시 생성 + 결정성
	hash, err := Hash(tables)
	require.NoError(t, err)
	assert.Len(t, hash, 64)
	hash2, _ := Hash(tables)
	assert.Equal(t, hash, hash2, "hash not deterministic")
}

func TestParse_UnknownField(t *testing.T) {
	doc := append([]byte{}, defaultYAML...)
	doc = append(doc, []byte("\nunknown_table: 1\n")...)

	_, err := Parse(doc)
	assert.Error(t, err, "KnownFields should reject unknown keys")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Tables)
	}{
		{"zero notional", func(tb *Tables) { tb.Notional = 0 }},
		{"missing default episode", func(tb *Tables) { tb.DefaultEpisode = "nope" }},
		{"bad class default", func(tb *Tables) { delete(tb.ClassDefaults, contracts.ClassCash) }},
		{"unknown factor", func(tb *Tables) { tb.Sensitivities[0].Factor = "fx" }},
		{"duplicate shock", func(tb *Tables) { tb.Sensitivities[1].ID = tb.Sensitivities[0].ID }},
		{"negative vol", func(tb *Tables) {
			p := tb.Assets["SPY"]
			p.Volatility = -1
			tb.Assets["SPY"] = p
		}},
		{"regimes off", func(tb *Tables) { tb.Regimes[0].Probability = 0.9 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tables := MustDefault()
			tt.mutate(tables)
			err := Validate(tables)
			require.Error(t, err)
			assert.True(t, errors.Is(err, contracts.ErrInvalidConfig))
		})
	}
}

func TestEpisode_Fallback(t *testing.T) {
	tables := MustDefault()

	ep, synthetic := tables.Episode("gfc_2008")
	assert.False(t, synthetic)
	assert.Equal(t, -0.45, ep.ShockFor(contracts.ClassEquity))
	assert.Equal(t, 0.05, ep.ShockFor(contracts.ClassFixedIncome))
	assert.Equal(t, -0.35, ep.ShockFor(contracts.ClassCommodities))

	// 미매핑 에피소드 → default_episode, synthetic 표시
	ep, synthetic = tables.Episode("martian_invasion")
	assert.True(t, synthetic)
	assert.Equal(t, tables.Episodes[tables.DefaultEpisode].Name, ep.Name)

	// class_shocks에 없는 자산군 → equity_shock
	bare := Episode{EquityShock: -0.1, BondShock: 0.02}
	assert.Equal(t, -0.1, bare.ShockFor(contracts.ClassCommodities))
	assert.Equal(t, 0.02, bare.ShockFor(contracts.ClassFixedIncome))
}

func TestProfile_Lookup(t *testing.T) {
	tables := MustDefault()

	p, known := tables.Profile("AGG", "")
	assert.True(t, known)
	assert.Equal(t, contracts.ClassFixedIncome, p.Class)
	assert.Equal(t, 6.0, p.Duration)

	// 미등록 종목 → 자산군 기본값 + default_adv
	p, known = tables.Profile("ZZZ", contracts.ClassCommodities)
	assert.False(t, known)
	assert.Equal(t, contracts.ClassCommodities, p.Class)
	assert.Equal(t, tables.DefaultADV, p.ADV)

	p, _ = tables.Profile("ZZZ", "")
	assert.Equal(t, contracts.ClassEquity, p.Class)

	assets := tables.Resolve([]contracts.Asset{{Symbol: "GLD"}, {Symbol: "SPY", Class: contracts.ClassCash}})
	assert.Equal(t, contracts.ClassCommodities, assets[0].Class)
	assert.Equal(t, contracts.ClassCash, assets[1].Class, "given class wins")
}

func TestStore_Reload(t *testing.T) {
	store, err := NewDefaultStore()
	require.NoError(t, err)
	before := store.Snapshot()
	assert.Equal(t, "embedded", before.Source)

	dir := t.TempDir()
	path := filepath.Join(dir, "tables.yaml")
	doc := append([]byte{}, defaultYAML...)
	require.NoError(t, os.WriteFile(path, doc, 0o644))

	changed, err := store.Reload(path)
	require.NoError(t, err)
	assert.False(t, changed, "same content should keep the hash")
	assert.Equal(t, path, store.Snapshot().Source)

	// 잘못된 파일 → 기존 스냅샷 유지
	require.NoError(t, os.WriteFile(path, []byte("notional: -1\n"), 0o644))
	_, err = store.Reload(path)
	assert.Error(t, err)
	assert.Equal(t, before.Hash, store.Snapshot().Hash)
	assert.NotNil(t, store.Current())
}
