package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/aegis-allocator/internal/refdata"
	"github.com/wonny/aegis-allocator/pkg/logger"
)

// Reload result labels
const (
	ReloadChanged   = "changed"
	ReloadUnchanged = "unchanged"
	ReloadError     = "error"
)

// ReloadObserver receives reload outcomes (prometheus in production)
type ReloadObserver interface {
	ObserveReload(result string)
}

// RefDataReloadJob re-reads the reference table file into the store.
// 실패 시 기존 스냅샷이 그대로 유지되므로 진행 중인 요청에는 영향 없음.
type RefDataReloadJob struct {
	store    *refdata.Store
	path     string
	schedule string
	observer ReloadObserver
	logger   *logger.Logger
}

// NewRefDataReloadJob creates a new reload job; observer may be nil
func NewRefDataReloadJob(store *refdata.Store, path, schedule string, observer ReloadObserver, log *logger.Logger) *RefDataReloadJob {
	return &RefDataReloadJob{
		store:    store,
		path:     path,
		schedule: schedule,
		observer: observer,
		logger:   log,
	}
}

// Name returns the job name
func (j *RefDataReloadJob) Name() string {
	return "refdata_reload"
}

// Schedule returns the cron schedule
func (j *RefDataReloadJob) Schedule() string {
	return j.schedule
}

// Run executes the reload
func (j *RefDataReloadJob) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	changed, err := j.store.Reload(j.path)
	if err != nil {
		j.observe(ReloadError)
		return fmt.Errorf("reload refdata from %s: %w", j.path, err)
	}

	if !changed {
		j.observe(ReloadUnchanged)
		j.logger.WithField("path", j.path).Debug("Refdata unchanged")
		return nil
	}

	j.observe(ReloadChanged)
	snap := j.store.Snapshot()
	j.logger.WithFields(map[string]interface{}{
		"path": j.path,
		"hash": snap.Hash,
	}).Info("Refdata reloaded")
	return nil
}

func (j *RefDataReloadJob) observe(result string) {
	if j.observer != nil {
		j.observer.ObserveReload(result)
	}
}
