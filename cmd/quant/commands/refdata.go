package commands

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/wonny/aegis-allocator/internal/refdata"
)

// refdataCmd represents the refdata command
var refdataCmd = &cobra.Command{
	Use:   "refdata",
	Short: "참조 데이터 관리",
}

var refdataCheckCmd = &cobra.Command{
	Use:   "check [path]",
	Short: "참조 테이블 검증",
	Long: `참조 테이블 파일을 로드하고 검증합니다.
경로를 생략하면 내장 기본 테이블을 검증합니다.

Example:
  go run ./cmd/quant refdata check
  go run ./cmd/quant refdata check ./refdata.yaml --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRefDataCheck,
}

func init() {
	rootCmd.AddCommand(refdataCmd)
	refdataCmd.AddCommand(refdataCheckCmd)
}

func runRefDataCheck(cmd *cobra.Command, args []string) error {
	var (
		tables *refdata.Tables
		source = "embedded"
		err    error
	)
	if len(args) == 1 {
		source = args[0]
		tables, err = refdata.Load(source)
	} else {
		tables, err = refdata.Default()
	}
	if err != nil {
		if !jsonOutput {
			PrintError(err.Error())
		}
		return err
	}

	hash, err := refdata.Hash(tables)
	if err != nil {
		return err
	}

	episodes := make([]string, 0, len(tables.Episodes))
	for id := range tables.Episodes {
		episodes = append(episodes, id)
	}
	sort.Strings(episodes)

	if jsonOutput {
		return printJSON(map[string]interface{}{
			"valid":    true,
			"source":   source,
			"version":  tables.Version,
			"hash":     hash,
			"episodes": episodes,
			"assets":   len(tables.Assets),
		})
	}

	PrintHeader("Reference Data", map[string]string{
		"Source":  source,
		"Version": tables.Version,
		"Hash":    shortHash(hash),
	}, []string{"Source", "Version", "Hash"})
	PrintKeyValue("Episodes", fmt.Sprintf("%d", len(tables.Episodes)), 14)
	PrintList(episodes)
	PrintKeyValue("Assets", fmt.Sprintf("%d", len(tables.Assets)), 14)
	PrintKeyValue("Sensitivities", fmt.Sprintf("%d", len(tables.Sensitivities)), 14)
	PrintKeyValue("Regimes", fmt.Sprintf("%d", len(tables.Regimes)), 14)
	PrintKeyValue("Notional", fmt.Sprintf("%.0f", tables.Notional), 14)
	PrintSuccess("reference tables are valid")
	return nil
}
