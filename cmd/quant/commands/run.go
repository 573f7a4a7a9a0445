package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/aegis-allocator/internal/pipeline"
	"github.com/wonny/aegis-allocator/pkg/config"
	"github.com/wonny/aegis-allocator/pkg/httputil"
	"github.com/wonny/aegis-allocator/pkg/logger"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "전체 파이프라인 실행 (S1 → S5)",
	Long: `요청 파일로 5단계 파이프라인을 한 번에 실행합니다.

Stages:
  S1: Scenarios (historical / macro shock / monte carlo)
  S2: Estimate (expected returns + covariance)
  S3: Optimize (objective + constraints)
  S4: Simulate (scenario replay with costs)
  S5: Advice (trades, risk summary, rationale)

실패 시 완료된 단계까지의 결과를 출력하고 non-zero로 종료합니다.

Example:
  go run ./cmd/quant run -f request.yaml
  go run ./cmd/quant run -f request.yaml --json
  go run ./cmd/quant run -f request.yaml --remote http://localhost:8080`,
	RunE: runPipeline,
}

var (
	runRequestFile string
	runRemote      string
)

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVarP(&runRequestFile, "file", "f", "", "요청 파일 (YAML/JSON)")
	_ = runCmd.MarkFlagRequired("file")
	runCmd.Flags().StringVar(&runRemote, "remote", "", "API 서버 URL (지정 시 원격 실행)")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	var req pipeline.Request
	if err := readRequest(runRequestFile, &req); err != nil {
		return err
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	var (
		res    *pipeline.Result
		runErr error
	)
	if runRemote != "" {
		res, runErr = runPipelineRemote(ctx, req)
	} else {
		a, err := newApp(appOptions{stderrLog: true})
		if err != nil {
			return err
		}
		res, runErr = a.engine.Run(ctx, req)
	}
	if res != nil {
		if jsonOutput {
			if err := printJSON(res); err != nil {
				return err
			}
		} else {
			PrintResult(res)
		}
	}
	return runErr
}

// runPipelineRemote posts the request to a running API server.
// 실패 응답의 부분 결과(result)도 그대로 돌려줌.
func runPipelineRemote(ctx context.Context, req pipeline.Request) (*pipeline.Result, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	// 엔진 타임아웃(504)은 재시도해도 같은 결과
	client := httputil.New(cfg, logger.NewWithWriter(os.Stderr, cfg.LogLevel)).DisableRetry()

	var res pipeline.Result
	_, err = client.PostJSON(ctx, strings.TrimRight(runRemote, "/")+"/api/v1/pipeline", req, &res)
	if err == nil {
		return &res, nil
	}

	var se *httputil.StatusError
	if errors.As(err, &se) {
		var body struct {
			Error  string           `json:"error"`
			Result *pipeline.Result `json:"result"`
		}
		if json.Unmarshal(se.Body, &body) == nil && body.Error != "" {
			return body.Result, fmt.Errorf("remote pipeline (%d): %s", se.StatusCode, body.Error)
		}
	}
	return nil, err
}

// signalContext cancels on Ctrl+C or SIGTERM
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
