package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/aegis-allocator/internal/api"
	"github.com/wonny/aegis-allocator/internal/api/handlers"
	"github.com/wonny/aegis-allocator/internal/archive"
	"github.com/wonny/aegis-allocator/internal/observability"
	"github.com/wonny/aegis-allocator/internal/scheduler"
	"github.com/wonny/aegis-allocator/internal/scheduler/jobs"
	"github.com/wonny/aegis-allocator/pkg/database"
	"github.com/wonny/aegis-allocator/pkg/redis"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

이 명령어는:
- HTTP API 서버 시작
- 단계별 / 전체 파이프라인 엔드포인트 제공
- 선택: Postgres 실행 기록, Redis 캐시, 참조 데이터 리로드

Endpoints:
  GET  /health               - Health check
  GET  /metrics              - Prometheus metrics
  POST /api/v1/scenarios     - S1 시나리오 생성
  POST /api/v1/estimate      - S2 추정
  POST /api/v1/optimize      - S3 최적화
  POST /api/v1/simulate      - S4 시뮬레이션
  POST /api/v1/advice        - S5 어드바이스
  POST /api/v1/pipeline      - 전체 파이프라인
  GET  /api/v1/runs          - 최근 실행 기록
  GET  /api/v1/runs/{id}     - 실행 기록 조회

Example:
  go run ./cmd/quant api
  go run ./cmd/quant api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort   string
	apiSolver string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본: PORT)")
	apiCmd.Flags().StringVar(&apiSolver, "solver", "", "maxSharpe solver (gradient|neldermead)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Aegis Allocator API Server ===")

	// 1. Metrics (엔진 observer로도 사용)
	metrics := observability.NewMetrics(observability.DefaultNamespace)

	// 2. Config, logger, refdata, engine
	a, err := newApp(appOptions{solver: apiSolver, observer: metrics})
	if err != nil {
		return err
	}
	cfg, log := a.cfg, a.log

	// Override port if flag is set
	if apiPort != "" {
		cfg.Port = apiPort
	}

	log.WithFields(map[string]interface{}{
		"port": cfg.Port,
		"env":  cfg.Env,
	}).Info("Initializing API server")

	ctx := context.Background()
	deps := map[string]handlers.Pinger{}
	opts := handlers.EngineOptions{
		CacheTTL:     cfg.Engine.CacheTTL,
		Observer:     metrics,
		MaxBodyBytes: cfg.API.MaxBodyBytes,
	}

	// 3. Database (선택: 실행 기록 아카이브)
	if cfg.Database.Enabled() {
		db, err := database.New(ctx, cfg)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer db.Close()

		repo := archive.NewRepository(db.Pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure archive schema: %w", err)
		}
		opts.Runs = repo
		deps["database"] = db
		log.Info("Connected to database")
	}

	// 4. Redis (선택: 결과 캐시, 분산 rate limit)
	rc, err := redis.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer rc.Close()
	if rc.Enabled() {
		opts.Cache = redis.NewCache(rc, observability.DefaultNamespace, log)
		opts.RefData = a.store
		deps["redis"] = rc
		log.Info("Connected to redis")
	}
	limiter := redis.NewLimiter(rc, observability.DefaultNamespace, redis.PerMinute(cfg.API.RateLimitPerMin))

	// 5. Scheduler (선택: 참조 데이터 리로드)
	if cfg.Engine.RefDataReload != "" {
		sched := scheduler.New(log)
		job := jobs.NewRefDataReloadJob(a.store, cfg.Engine.RefDataPath, cfg.Engine.RefDataReload, metrics, log)
		if err := sched.AddJob(job); err != nil {
			return fmt.Errorf("schedule refdata reload: %w", err)
		}
		sched.Start()
		defer sched.Stop()
	}

	// 6. Router + server
	router := api.NewRouter(api.RouterDeps{
		Engine:  handlers.NewEngineHandler(a.engine, opts, log),
		Health:  handlers.NewHealthHandler("aegis-allocator", a.store, deps),
		Metrics: metricsOrNil(cfg.MetricsEnabled, metrics),
		Limiter: limiter,
		Logger:  log,

		TrustedProxies: cfg.API.TrustedProxies,
	})
	server := api.New(cfg, log, router)

	// 7. Start server with graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	log.Info("API server started successfully")
	fmt.Printf("\n✅ Server running on http://localhost:%s\n", cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}

// metricsOrNil hides /metrics when METRICS_ENABLED=false
func metricsOrNil(enabled bool, m *observability.Metrics) *observability.Metrics {
	if !enabled {
		return nil
	}
	return m
}
