package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/aegis-allocator/internal/scheduler"
	"github.com/wonny/aegis-allocator/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `스케줄러를 시작하거나 작업을 관리합니다.
ENGINE_REFDATA_PATH + ENGINE_REFDATA_RELOAD 설정 시 refdata_reload 작업이 등록됩니다.

Subcommands:
  start   - 스케줄러 시작 (포그라운드)
  list    - 등록된 작업 목록
  run     - 특정 작업 즉시 실행

Example:
  go run ./cmd/quant scheduler list
  go run ./cmd/quant scheduler run refdata_reload`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		RunE:  runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Aegis Allocator Scheduler ===")

	sched, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	if len(sched.GetAllJobs()) == 0 {
		PrintWarning("no jobs registered (set ENGINE_REFDATA_PATH and ENGINE_REFDATA_RELOAD)")
		return nil
	}

	sched.Start()

	fmt.Println("\n✅ Scheduler started successfully")
	fmt.Println("\nRegistered jobs:")
	PrintList(sched.GetAllJobs())
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	sched, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	stats := sched.GetJobStats()
	if jsonOutput {
		return printJSON(stats)
	}

	fmt.Println("Registered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		PrintKeyValue(jobName, stats[jobName].Schedule, 16)
	}
	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	// 수동 실행은 재시도 없이 즉시 결과 반환
	sched, err := initScheduler(scheduler.WithRetry(0, 0))
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	result, err := sched.RunJob(jobName)
	if err != nil {
		return fmt.Errorf("run job: %w", err)
	}
	if jsonOutput {
		return printJSON(result)
	}

	if !result.Success {
		PrintError(fmt.Sprintf("%s failed after %v: %s", jobName, result.Duration, result.Error))
		return fmt.Errorf("job %s failed", jobName)
	}
	PrintSuccess(fmt.Sprintf("%s completed in %v", jobName, result.Duration))
	return nil
}

// initScheduler registers the jobs enabled by config
func initScheduler(opts ...scheduler.Option) (*scheduler.Scheduler, error) {
	a, err := newApp(appOptions{})
	if err != nil {
		return nil, err
	}

	sched := scheduler.New(a.log, opts...)
	if a.cfg.Engine.RefDataReload != "" {
		job := jobs.NewRefDataReloadJob(a.store, a.cfg.Engine.RefDataPath, a.cfg.Engine.RefDataReload, nil, a.log)
		if err := sched.AddJob(job); err != nil {
			return nil, err
		}
	}
	return sched, nil
}
