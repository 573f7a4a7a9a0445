package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	jsonOutput bool
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "quant",
	Short: "Aegis Allocator - 시나리오 기반 포트폴리오 엔진",
	Long: `Aegis Allocator Unified CLI

시나리오 생성부터 리밸런싱 어드바이스까지 5단계 파이프라인.
S1 Scenarios → S2 Estimate → S3 Optimize → S4 Simulate → S5 Advice

Usage:
  go run ./cmd/quant [command]

Examples:
  go run ./cmd/quant api
  go run ./cmd/quant run -f request.yaml
  go run ./cmd/quant optimize -f optimize.yaml --solver neldermead
  go run ./cmd/quant refdata check ./refdata.yaml`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "JSON 출력")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug 로그)")
}
