package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-allocator/internal/contracts"
)

func TestMetrics_Observer(t *testing.T) {
	m := NewMetrics("")

	m.ObserveRun(contracts.ObjectiveMinVol, "success", 150*time.Millisecond)
	m.ObserveRun(contracts.ObjectiveMinVol, "success", 120*time.Millisecond)
	m.ObserveRun(contracts.ObjectiveMaxSharpe, "failed", time.Millisecond)
	m.ObserveStage("S1:Scenarios", 10*time.Millisecond)
	m.ObserveSkipped("S4:Simulate", 3)
	m.ObserveSkipped("S4:Simulate", 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.PipelineRunsTotal.WithLabelValues("minVol", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PipelineRunsTotal.WithLabelValues("maxSharpe", "failed")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.SkippedScenarios.WithLabelValues("S4:Simulate")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.StageDuration))
}

func TestMetrics_CacheAndReload(t *testing.T) {
	m := NewMetrics("test")

	m.ObserveCache(true)
	m.ObserveCache(false)
	m.ObserveCache(false)
	m.ObserveReload("changed")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RefDataReloads.WithLabelValues("changed")))
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics("")
	m.ObserveRun(contracts.ObjectiveRiskParity, "success", time.Second)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `aegis_allocator_pipeline_runs_total{objective="riskParity",status="success"} 1`)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestNewMetrics_Independent(t *testing.T) {
	// 전용 Registry → 중복 등록 panic 없음
	assert.NotPanics(t, func() {
		_ = NewMetrics("")
		_ = NewMetrics("")
	})
}
