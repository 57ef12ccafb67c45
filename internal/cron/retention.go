package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kayz/promptdeck/internal/logger"
)

// LogPruner deletes run logs older than a cutoff.
type LogPruner interface {
	PruneRunLogs(cutoff time.Time) (int64, error)
}

// FileCleaner removes expired audit files.
type FileCleaner interface {
	CleanupOldFiles() error
}

// RetentionTask prunes run logs older than logDays and expired audit files.
// A non-positive logDays keeps every log.
func RetentionTask(logs LogPruner, logDays int, audit FileCleaner) Task {
	return retentionTask(logs, logDays, audit, time.Now)
}

func retentionTask(logs LogPruner, logDays int, audit FileCleaner, now func() time.Time) Task {
	return func(ctx context.Context) error {
		var errs []error
		if logs != nil && logDays > 0 {
			cutoff := now().AddDate(0, 0, -logDays)
			n, err := logs.PruneRunLogs(cutoff)
			if err != nil {
				errs = append(errs, fmt.Errorf("prune run logs: %w", err))
			} else if n > 0 {
				logger.Info("[Cron] Pruned %d run logs older than %d days", n, logDays)
			}
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if audit != nil {
			if err := audit.CleanupOldFiles(); err != nil {
				errs = append(errs, fmt.Errorf("clean audit files: %w", err))
			}
		}
		return errors.Join(errs...)
	}
}
