package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/aegis-allocator/internal/api/handlers"
	"github.com/wonny/aegis-allocator/pkg/config"
	"github.com/wonny/aegis-allocator/pkg/httputil"
	"github.com/wonny/aegis-allocator/pkg/logger"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "API 서버 상태 조회",
	Long: `실행 중인 API 서버의 /health를 조회합니다.

표시 정보:
- 서비스 상태 (ok / degraded)
- 참조 데이터 버전과 해시
- 의존성 상태 (database, redis)

Example:
  go run ./cmd/quant status
  go run ./cmd/quant status --url http://localhost:8080 --watch 5s`,
	RunE: runStatus,
}

var (
	// Status flags
	statusURL   string
	statusWatch time.Duration
)

func init() {
	rootCmd.AddCommand(statusCmd)

	// Flags
	statusCmd.Flags().StringVar(&statusURL, "url", "", "API 서버 URL (기본: http://localhost:PORT)")
	statusCmd.Flags().DurationVar(&statusWatch, "watch", 0, "갱신 간격 (0 = 한 번만)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if statusURL == "" {
		statusURL = "http://localhost:" + cfg.Port
	}
	client := httputil.NewWithTimeout(cfg, logger.NewWithWriter(os.Stderr, cfg.LogLevel), 5*time.Second).DisableRetry()
	healthURL := strings.TrimRight(statusURL, "/") + "/health"

	if statusWatch <= 0 {
		return displayStatus(cmd.Context(), client, healthURL)
	}

	// Setup signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(statusWatch)
	defer ticker.Stop()

	_ = displayStatus(cmd.Context(), client, healthURL)
	for {
		select {
		case <-sigChan:
			fmt.Println("\n✅ Status monitor stopped")
			return nil

		case <-ticker.C:
			// Clear screen (ANSI escape code)
			fmt.Print("\033[H\033[2J")
			fmt.Printf("Refresh: %v | Last update: %s\n", statusWatch, time.Now().Format("15:04:05"))
			_ = displayStatus(cmd.Context(), client, healthURL)
		}
	}
}

func displayStatus(ctx context.Context, client *httputil.Client, url string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var health handlers.HealthResponse
	_, err := client.GetJSON(ctx, url, &health)

	// 503 degraded도 본문은 HealthResponse
	var se *httputil.StatusError
	if errors.As(err, &se) {
		if uerr := json.Unmarshal(se.Body, &health); uerr == nil && health.Status != "" {
			err = nil
		}
	}
	if err != nil {
		if jsonOutput {
			_ = printJSON(map[string]string{"status": "unreachable", "error": err.Error()})
		} else {
			PrintError(fmt.Sprintf("%s: %v", url, err))
		}
		return err
	}

	if jsonOutput {
		return printJSON(health)
	}

	PrintHeader("Aegis Allocator Status", map[string]string{
		"Service": health.Service,
		"Status":  health.Status,
		"Uptime":  health.Uptime,
	}, []string{"Service", "Status", "Uptime"})
	PrintKeyValue("RefData", fmt.Sprintf("%s (%s)", health.RefData.Version, shortHash(health.RefData.Hash)), 10)
	PrintKeyValue("Source", health.RefData.Source, 10)
	PrintKeyValue("Loaded", health.RefData.LoadedAt.Format(time.RFC3339), 10)

	names := make([]string, 0, len(health.Dependencies))
	for name := range health.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		PrintKeyValue(name, health.Dependencies[name], 10)
	}

	if health.Status != "ok" {
		PrintWarning("service is degraded")
	}
	return nil
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
