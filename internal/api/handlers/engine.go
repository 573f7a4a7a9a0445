package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/aegis-allocator/internal/archive"
	"github.com/wonny/aegis-allocator/internal/contracts"
	"github.com/wonny/aegis-allocator/internal/pipeline"
	"github.com/wonny/aegis-allocator/internal/refdata"
	"github.com/wonny/aegis-allocator/pkg/logger"
	"github.com/wonny/aegis-allocator/pkg/redis"
)

// archiveTimeout 실행 기록 저장 제한 시간
const archiveTimeout = 3 * time.Second

// Engine the allocation engine surface (*pipeline.Orchestrator)
type Engine interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
	Scenarios(ctx context.Context, req pipeline.ScenarioRequest) (*pipeline.ScenarioOutput, error)
	Estimate(ctx context.Context, req contracts.EstimateRequest) (*contracts.Estimate, error)
	Optimize(ctx context.Context, in pipeline.OptimizeInput) (*pipeline.OptimizeOutput, error)
	Simulate(ctx context.Context, req contracts.SimulateRequest) (*contracts.SimulationOutput, error)
	Advise(ctx context.Context, req contracts.AdviceRequest) (*contracts.Advice, error)
}

// RunStore persists pipeline runs (*archive.Repository)
type RunStore interface {
	Save(ctx context.Context, run archive.Run) error
	Get(ctx context.Context, runID string) (*archive.Run, error)
	ListRecent(ctx context.Context, limit int) ([]archive.Run, error)
}

// CacheObserver receives cache hit/miss events
type CacheObserver interface {
	ObserveCache(hit bool)
}

// EngineOptions optional collaborators; zero values disable them
type EngineOptions struct {
	Cache        *redis.Cache
	CacheTTL     time.Duration
	RefData      *refdata.Store // 캐시 키에 테이블 해시 포함
	Runs         RunStore
	Observer     CacheObserver
	MaxBodyBytes int64
}

// EngineHandler handles allocation engine endpoints
// ⭐ SSOT: 엔진 API 핸들러는 이 구조체에서만
type EngineHandler struct {
	engine Engine
	opts   EngineOptions
	logger *logger.Logger
}

// NewEngineHandler creates a new engine handler
func NewEngineHandler(engine Engine, opts EngineOptions, log *logger.Logger) *EngineHandler {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = redis.DefaultTTL
	}
	return &EngineHandler{engine: engine, opts: opts, logger: log}
}

// PostScenarios generates scenarios
// POST /api/v1/scenarios
func (h *EngineHandler) PostScenarios(w http.ResponseWriter, r *http.Request) {
	var req pipeline.ScenarioRequest
	if !h.decode(w, r, &req) {
		return
	}
	out, err := h.engine.Scenarios(r.Context(), req)
	h.reply(w, "scenarios", out, err)
}

// PostEstimate estimates expected returns and covariance
// POST /api/v1/estimate
func (h *EngineHandler) PostEstimate(w http.ResponseWriter, r *http.Request) {
	var req contracts.EstimateRequest
	if !h.decode(w, r, &req) {
		return
	}
	out, err := h.engine.Estimate(r.Context(), req)
	h.reply(w, "estimate", out, err)
}

// PostOptimize computes target weights from moments or scenario data
// POST /api/v1/optimize
func (h *EngineHandler) PostOptimize(w http.ResponseWriter, r *http.Request) {
	var req pipeline.OptimizeInput
	if !h.decode(w, r, &req) {
		return
	}
	out, err := h.engine.Optimize(r.Context(), req)
	h.reply(w, "optimize", out, err)
}

// PostSimulate replays weights across scenarios
// POST /api/v1/simulate
func (h *EngineHandler) PostSimulate(w http.ResponseWriter, r *http.Request) {
	var req contracts.SimulateRequest
	if !h.decode(w, r, &req) {
		return
	}
	out, err := h.engine.Simulate(r.Context(), req)
	h.reply(w, "simulate", out, err)
}

// PostAdvice builds trades, risk summary and rationale
// POST /api/v1/advice
func (h *EngineHandler) PostAdvice(w http.ResponseWriter, r *http.Request) {
	var req contracts.AdviceRequest
	if !h.decode(w, r, &req) {
		return
	}
	out, err := h.engine.Advise(r.Context(), req)
	h.reply(w, "advice", out, err)
}

// PostPipeline runs all five stages; results are cached by request hash
// POST /api/v1/pipeline
func (h *EngineHandler) PostPipeline(w http.ResponseWriter, r *http.Request) {
	var req pipeline.Request
	if !h.decode(w, r, &req) {
		return
	}
	ctx := r.Context()

	hash, err := req.Hash()
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var partial *pipeline.Result
	compute := func() (interface{}, error) {
		res, err := h.engine.Run(ctx, req)
		if res != nil {
			h.archive(req, res)
		}
		if err != nil {
			partial = res
			return nil, err
		}
		return res, nil
	}

	var result pipeline.Result
	if h.opts.Cache == nil {
		res, err := compute()
		if err != nil {
			h.fail(w, "pipeline", err, partial)
			return
		}
		respondJSON(w, http.StatusOK, res)
		return
	}

	hit, err := h.opts.Cache.GetOrSet(ctx, h.pipelineKey(hash), &result, h.opts.CacheTTL, compute)
	if h.opts.Observer != nil {
		h.opts.Observer.ObserveCache(hit)
	}
	if err != nil {
		h.fail(w, "pipeline", err, partial)
		return
	}
	if hit {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	respondJSON(w, http.StatusOK, result)
}

// pipelineKey scopes the request hash to the live refdata version
func (h *EngineHandler) pipelineKey(requestHash string) string {
	refHash := "unversioned"
	if h.opts.RefData != nil {
		refHash = h.opts.RefData.Snapshot().Hash
	}
	return redis.PipelineKey(refHash, requestHash)
}

// GetRun returns one archived run
// GET /api/v1/runs/{id}
func (h *EngineHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	if h.opts.Runs == nil {
		respondError(w, http.StatusNotImplemented, "run archive is not configured")
		return
	}
	run, err := h.opts.Runs.Get(r.Context(), mux.Vars(r)["id"])
	h.reply(w, "get_run", run, err)
}

// ListRuns returns recent archived runs
// GET /api/v1/runs?limit=20
func (h *EngineHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.opts.Runs == nil {
		respondError(w, http.StatusNotImplemented, "run archive is not configured")
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	runs, err := h.opts.Runs.ListRecent(r.Context(), limit)
	h.reply(w, "list_runs", map[string]interface{}{"runs": runs, "count": len(runs)}, err)
}

// ============================================================================
// helpers
// ============================================================================

func (h *EngineHandler) decode(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	if err := decodeJSON(w, r, h.opts.MaxBodyBytes, dest); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func (h *EngineHandler) reply(w http.ResponseWriter, op string, out interface{}, err error) {
	if err != nil {
		h.fail(w, op, err, nil)
		return
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *EngineHandler) fail(w http.ResponseWriter, op string, err error, partial *pipeline.Result) {
	status := StatusFor(err)
	entry := h.logger.WithError(err).WithFields(map[string]interface{}{
		"op":     op,
		"status": status,
	})
	if status >= http.StatusInternalServerError {
		entry.Error("Engine request failed")
	} else {
		entry.Warn("Engine request rejected")
	}

	resp := ErrorResponse{Error: err.Error()}
	if partial != nil {
		resp.Result = partial
	}
	respondJSON(w, status, resp)
}

// archive saves the run when an archive is configured; failures are logged only
func (h *EngineHandler) archive(req pipeline.Request, res *pipeline.Result) {
	if h.opts.Runs == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
	defer cancel()

	if err := h.opts.Runs.Save(ctx, archive.FromResult(req, res)); err != nil {
		h.logger.WithError(err).WithField("run_id", res.RunID).Warn("Failed to archive pipeline run")
	}
}
