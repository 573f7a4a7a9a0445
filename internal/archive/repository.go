package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/aegis-allocator/internal/contracts"
	"github.com/wonny/aegis-allocator/internal/pipeline"
)

// MaxListLimit ListRecent 최대 건수
const MaxListLimit = 200

// ErrRunNotFound 해당 run_id 없음
var ErrRunNotFound = errors.New("pipeline run not found")

// Run 아카이브된 파이프라인 실행 한 건
type Run struct {
	RunID       string              `json:"runId"`
	RequestHash string              `json:"requestHash"`
	Objective   contracts.Objective `json:"objective"`
	Status      string              `json:"status"`
	Synthetic   bool                `json:"synthetic"`
	DurationMs  float64             `json:"durationMs"`
	CreatedAt   time.Time           `json:"createdAt"`
	Request     *pipeline.Request   `json:"request,omitempty"`
	Result      *pipeline.Result    `json:"result,omitempty"`
}

// FromResult builds an archive row from a finished run
func FromResult(req pipeline.Request, res *pipeline.Result) Run {
	return Run{
		RunID:       res.RunID,
		RequestHash: res.RequestHash,
		Objective:   req.Objective,
		Status:      res.Status,
		Synthetic:   res.Synthetic,
		DurationMs:  res.DurationMs,
		CreatedAt:   res.StartedAt,
		Request:     &req,
		Result:      res,
	}
}

// DB subset of pgxpool.Pool used by the repository
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

var _ DB = (*pgxpool.Pool)(nil)

// Repository handles pipeline run persistence
// ⭐ SSOT: 실행 기록 저장/조회는 여기서만
type Repository struct {
	db DB
}

// NewRepository creates a new archive repository
func NewRepository(db DB) *Repository {
	return &Repository{db: db}
}

const schemaDDL = `
	CREATE SCHEMA IF NOT EXISTS allocation;
	CREATE TABLE IF NOT EXISTS allocation.pipeline_runs (
		run_id       UUID PRIMARY KEY,
		request_hash TEXT NOT NULL,
		objective    TEXT NOT NULL,
		status       TEXT NOT NULL,
		synthetic    BOOLEAN NOT NULL DEFAULT FALSE,
		duration_ms  DOUBLE PRECISION NOT NULL,
		request      JSONB NOT NULL,
		result       JSONB NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_pipeline_runs_created_at ON allocation.pipeline_runs (created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_pipeline_runs_request_hash ON allocation.pipeline_runs (request_hash);
`

// EnsureSchema creates the allocation schema and table if missing
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("failed to ensure archive schema: %w", err)
	}
	return nil
}

// Save stores a run; saving the same run_id twice overwrites it
func (r *Repository) Save(ctx context.Context, run Run) error {
	requestJSON, err := json.Marshal(run.Request)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	resultJSON, err := json.Marshal(run.Result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	query := `
		INSERT INTO allocation.pipeline_runs (
			run_id, request_hash, objective, status, synthetic, duration_ms, request, result, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (run_id) DO UPDATE SET
			status = EXCLUDED.status,
			synthetic = EXCLUDED.synthetic,
			duration_ms = EXCLUDED.duration_ms,
			result = EXCLUDED.result
	`

	_, err = r.db.Exec(ctx, query,
		run.RunID, run.RequestHash, string(run.Objective), run.Status, run.Synthetic,
		run.DurationMs, requestJSON, resultJSON, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save pipeline run: %w", err)
	}
	return nil
}

// Get retrieves one run with its request and result payloads
func (r *Repository) Get(ctx context.Context, runID string) (*Run, error) {
	query := `
		SELECT run_id, request_hash, objective, status, synthetic, duration_ms, created_at, request, result
		FROM allocation.pipeline_runs
		WHERE run_id = $1
	`

	var run Run
	var objective string
	var requestJSON, resultJSON []byte

	err := r.db.QueryRow(ctx, query, runID).Scan(
		&run.RunID, &run.RequestHash, &objective, &run.Status, &run.Synthetic,
		&run.DurationMs, &run.CreatedAt, &requestJSON, &resultJSON,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pipeline run: %w", err)
	}
	run.Objective = contracts.Objective(objective)

	if err := json.Unmarshal(requestJSON, &run.Request); err != nil {
		return nil, fmt.Errorf("failed to unmarshal request: %w", err)
	}
	if err := json.Unmarshal(resultJSON, &run.Result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result: %w", err)
	}
	return &run, nil
}

// ListRecent returns run summaries, newest first (payloads omitted)
func (r *Repository) ListRecent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 || limit > MaxListLimit {
		limit = MaxListLimit
	}

	query := `
		SELECT run_id, request_hash, objective, status, synthetic, duration_ms, created_at
		FROM allocation.pipeline_runs
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pipeline runs: %w", err)
	}
	defer rows.Close()

	runs := make([]Run, 0, limit)
	for rows.Next() {
		var run Run
		var objective string
		if err := rows.Scan(
			&run.RunID, &run.RequestHash, &objective, &run.Status, &run.Synthetic,
			&run.DurationMs, &run.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan pipeline run: %w", err)
		}
		run.Objective = contracts.Objective(objective)
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pipeline runs: %w", err)
	}
	return runs, nil
}
