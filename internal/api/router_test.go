package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-allocator/internal/api/handlers"
	"github.com/wonny/aegis-allocator/internal/archive"
	"github.com/wonny/aegis-allocator/internal/contracts"
	"github.com/wonny/aegis-allocator/internal/observability"
	"github.com/wonny/aegis-allocator/internal/pipeline"
	"github.com/wonny/aegis-allocator/internal/refdata"
	"github.com/wonny/aegis-allocator/pkg/logger"
	"github.com/wonny/aegis-allocator/pkg/redis"
)

// fakeEngine returns canned results or err for every call
type fakeEngine struct {
	err   error
	runs  int
	panic bool
}

func (f *fakeEngine) Run(_ context.Context, req pipeline.Request) (*pipeline.Result, error) {
	f.runs++
	res := &pipeline.Result{RunID: fmt.Sprintf("run-%d", f.runs), Status: pipeline.StatusSuccess, Success: true}
	if f.err != nil {
		res.Status = pipeline.StatusFailed
		res.Success = false
		res.Error = f.err.Error()
		return res, f.err
	}
	return res, nil
}

func (f *fakeEngine) Scenarios(_ context.Context, req pipeline.ScenarioRequest) (*pipeline.ScenarioOutput, error) {
	if f.panic {
		panic("boom")
	}
	if f.err != nil {
		return nil, f.err
	}
	return &pipeline.ScenarioOutput{Count: req.ScenarioConfig.Paths}, nil
}

func (f *fakeEngine) Estimate(context.Context, contracts.EstimateRequest) (*contracts.Estimate, error) {
	return &contracts.Estimate{Assets: []string{"SPY"}}, f.err
}

func (f *fakeEngine) Optimize(_ context.Context, in pipeline.OptimizeInput) (*pipeline.OptimizeOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &pipeline.OptimizeOutput{OptimizeResult: contracts.OptimizeResult{Objective: in.Objective}}, nil
}

func (f *fakeEngine) Simulate(context.Context, contracts.SimulateRequest) (*contracts.SimulationOutput, error) {
	return &contracts.SimulationOutput{}, f.err
}

func (f *fakeEngine) Advise(context.Context, contracts.AdviceRequest) (*contracts.Advice, error) {
	return &contracts.Advice{}, f.err
}

// memRuns in-memory RunStore
type memRuns struct {
	saved map[string]archive.Run
}

func (m *memRuns) Save(_ context.Context, run archive.Run) error {
	m.saved[run.RunID] = run
	return nil
}

func (m *memRuns) Get(_ context.Context, id string) (*archive.Run, error) {
	run, ok := m.saved[id]
	if !ok {
		return nil, archive.ErrRunNotFound
	}
	return &run, nil
}

func (m *memRuns) ListRecent(_ context.Context, limit int) ([]archive.Run, error) {
	out := make([]archive.Run, 0, len(m.saved))
	for _, r := range m.saved {
		out = append(out, r)
	}
	return out[:min(limit, len(out))], nil
}

type downPinger struct{}

func (downPinger) Ping(context.Context) error { return fmt.Errorf("connection refused") }

type testServer struct {
	handler http.Handler
	metrics *observability.Metrics
}

func newTestServer(t *testing.T, engine handlers.Engine, opts handlers.EngineOptions, limiter redis.Limiter, deps map[string]handlers.Pinger) testServer {
	t.Helper()
	store, err := refdata.NewDefaultStore()
	require.NoError(t, err)

	log := logger.NewNop()
	metrics := observability.NewMetrics("test")
	if opts.Observer == nil {
		opts.Observer = metrics
	}
	return testServer{
		handler: NewRouter(RouterDeps{
			Engine:  handlers.NewEngineHandler(engine, opts, log),
			Health:  handlers.NewHealthHandler("aegis-allocator", store, deps),
			Metrics: metrics,
			Limiter: limiter,
			Logger:  log,
		}),
		metrics: metrics,
	}
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"ok", nil, http.StatusOK},
		{"invalid config", fmt.Errorf("%w: paths must be > 0", contracts.ErrInvalidConfig), http.StatusBadRequest},
		{"unknown objective", contracts.ErrUnknownObjective, http.StatusBadRequest},
		{"infeasible", contracts.ErrInfeasibleConstraints, http.StatusBadRequest},
		{"insufficient", contracts.ErrInsufficientData, http.StatusUnprocessableEntity},
		{"timeout", fmt.Errorf("pipeline exceeded 1s budget: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"internal", fmt.Errorf("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, &fakeEngine{err: tt.err}, handlers.EngineOptions{}, nil, nil)
			rec := do(srv.handler, http.MethodPost, "/api/v1/optimize", `{"objective":"minVol","assets":[{"symbol":"SPY"}]}`)
			assert.Equal(t, tt.status, rec.Code)
			if tt.err != nil {
				var body handlers.ErrorResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.Contains(t, body.Error, tt.err.Error())
			}
		})
	}
}

func TestRouter_StageEndpoints(t *testing.T) {
	srv := newTestServer(t, &fakeEngine{}, handlers.EngineOptions{}, nil, nil)

	for _, path := range []string{"scenarios", "estimate", "optimize", "simulate", "advice", "pipeline"} {
		rec := do(srv.handler, http.MethodPost, "/api/v1/"+path, `{}`)
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"), path)
	}

	// GET on a POST route
	rec := do(srv.handler, http.MethodGet, "/api/v1/optimize", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRouter_RejectsBadBodies(t *testing.T) {
	srv := newTestServer(t, &fakeEngine{}, handlers.EngineOptions{}, nil, nil)

	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"objective":`},
		{"unknown field", `{"objectiv":"minVol"}`},
		{"trailing data", `{"objective":"minVol"}{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(srv.handler, http.MethodPost, "/api/v1/optimize", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestRouter_BodyLimit(t *testing.T) {
	srv := newTestServer(t, &fakeEngine{}, handlers.EngineOptions{MaxBodyBytes: 16}, nil, nil)
	rec := do(srv.handler, http.MethodPost, "/api/v1/scenarios", `{"scenarioConfig":{"paths":100000}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_PipelineFailureCarriesPartialResult(t *testing.T) {
	srv := newTestServer(t, &fakeEngine{err: fmt.Errorf("S3:Optimize failed: %w", contracts.ErrInfeasibleConstraints)}, handlers.EngineOptions{}, nil, nil)

	rec := do(srv.handler, http.MethodPost, "/api/v1/pipeline", `{"objective":"minVol"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body struct {
		Error  string           `json:"error"`
		Result *pipeline.Result `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Error, "S3:Optimize failed")
	require.NotNil(t, body.Result)
	assert.Equal(t, pipeline.StatusFailed, body.Result.Status)
}

func TestRouter_PipelineCacheHeader(t *testing.T) {
	// Redis 비활성: 매번 MISS, 엔진 호출
	engine := &fakeEngine{}
	cache := redis.NewCache(redis.NewDisabled(), "test", logger.NewNop())
	srv := newTestServer(t, engine, handlers.EngineOptions{Cache: cache, CacheTTL: time.Minute}, nil, nil)

	for i := 0; i < 2; i++ {
		rec := do(srv.handler, http.MethodPost, "/api/v1/pipeline", `{"objective":"minVol"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	}
	assert.Equal(t, 2, engine.runs)
	assert.Equal(t, 2.0, testutil.ToFloat64(srv.metrics.CacheLookups.WithLabelValues("miss")))
}

func TestRouter_Runs(t *testing.T) {
	t.Run("archive not configured", func(t *testing.T) {
		srv := newTestServer(t, &fakeEngine{}, handlers.EngineOptions{}, nil, nil)
		assert.Equal(t, http.StatusNotImplemented, do(srv.handler, http.MethodGet, "/api/v1/runs", "").Code)
		assert.Equal(t, http.StatusNotImplemented, do(srv.handler, http.MethodGet, "/api/v1/runs/x", "").Code)
	})

	t.Run("pipeline runs are archived", func(t *testing.T) {
		runs := &memRuns{saved: make(map[string]archive.Run)}
		srv := newTestServer(t, &fakeEngine{}, handlers.EngineOptions{Runs: runs}, nil, nil)

		rec := do(srv.handler, http.MethodPost, "/api/v1/pipeline", `{"objective":"minVol"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, runs.saved, "run-1")

		rec = do(srv.handler, http.MethodGet, "/api/v1/runs/run-1", "")
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = do(srv.handler, http.MethodGet, "/api/v1/runs/missing", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = do(srv.handler, http.MethodGet, "/api/v1/runs?limit=5", "")
		require.Equal(t, http.StatusOK, rec.Code)
		var list struct {
			Count int `json:"count"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
		assert.Equal(t, 1, list.Count)

		rec = do(srv.handler, http.MethodGet, "/api/v1/runs?limit=abc", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRouter_RateLimit(t *testing.T) {
	limiter := redis.NewLocalLimiter(redis.RateLimitConfig{Limit: 2, Window: time.Minute})
	srv := newTestServer(t, &fakeEngine{}, handlers.EngineOptions{}, limiter, nil)

	for i := 0; i < 2; i++ {
		rec := do(srv.handler, http.MethodPost, "/api/v1/estimate", `{}`)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	rec := do(srv.handler, http.MethodPost, "/api/v1/estimate", `{}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	// health는 제한 대상 아님
	assert.Equal(t, http.StatusOK, do(srv.handler, http.MethodGet, "/health", "").Code)
}

func TestRouter_RecoversPanics(t *testing.T) {
	srv := newTestServer(t, &fakeEngine{panic: true}, handlers.EngineOptions{}, nil, nil)
	rec := do(srv.handler, http.MethodPost, "/api/v1/scenarios", `{}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Internal server error")
}

func TestRouter_Health(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		srv := newTestServer(t, &fakeEngine{}, handlers.EngineOptions{}, nil, map[string]handlers.Pinger{"redis": redis.NewDisabled()})
		rec := do(srv.handler, http.MethodGet, "/health", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var body handlers.HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "ok", body.Status)
		assert.NotEmpty(t, body.RefData.Hash)
		assert.Equal(t, "ok", body.Dependencies["redis"])
	})

	t.Run("degraded", func(t *testing.T) {
		srv := newTestServer(t, &fakeEngine{}, handlers.EngineOptions{}, nil, map[string]handlers.Pinger{"database": downPinger{}})
		rec := do(srv.handler, http.MethodGet, "/health", "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), "degraded")
	})
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, &fakeEngine{}, handlers.EngineOptions{}, nil, nil)
	do(srv.handler, http.MethodPost, "/api/v1/estimate", `{}`)

	assert.Equal(t, 1.0, testutil.ToFloat64(
		srv.metrics.HTTPRequestsTotal.WithLabelValues("/api/v1/estimate", http.MethodPost, "200")))

	rec := do(srv.handler, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "test_http_requests_total")
}

func TestRouter_RateLimitIgnoresSpoofedForwardedFor(t *testing.T) {
	limiter := redis.NewLocalLimiter(redis.RateLimitConfig{Limit: 2, Window: time.Minute})
	srv := newTestServer(t, &fakeEngine{}, handlers.EngineOptions{}, limiter, nil)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/estimate", strings.NewReader(`{}`))
		req.RemoteAddr = "198.51.100.9:40000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i))
		rec := httptest.NewRecorder()
		srv.handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	// 헤더를 바꿔도 같은 peer는 같은 버킷
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestClientResolver(t *testing.T) {
	proxies := []netip.Prefix{
		netip.MustParsePrefix("10.0.0.0/8"),
		netip.MustParsePrefix("::1/128"),
	}

	tests := []struct {
		name    string
		trusted []netip.Prefix
		remote  string
		xff     string
		want    string
	}{
		{"no proxies configured", nil, "10.0.0.1:5555", "203.0.113.7", "10.0.0.1"},
		{"untrusted peer sends header", proxies, "198.51.100.9:5555", "203.0.113.7", "198.51.100.9"},
		{"trusted peer without header", proxies, "10.0.0.1:5555", "", "10.0.0.1"},
		{"trusted peer", proxies, "10.0.0.1:5555", "203.0.113.7", "203.0.113.7"},
		{"rightmost untrusted hop wins", proxies, "10.0.0.1:5555", "1.2.3.4, 203.0.113.7, 10.0.0.2", "203.0.113.7"},
		{"all hops trusted", proxies, "10.0.0.1:5555", "10.0.0.3, 10.0.0.2", "10.0.0.1"},
		{"ipv6 loopback proxy", proxies, "[::1]:5555", "203.0.113.8", "203.0.113.8"},
		{"remote without port", nil, "198.51.100.9", "", "198.51.100.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			assert.Equal(t, tt.want, clientResolver{trusted: tt.trusted}.key(req))
		})
	}
}
