package database

import (
	"context"
	"time"

	"github.com/zZProgenitorZz/Data-Annotation-Tool/pkg/logger"
)

/*
WORKER DETAILS: Audit Log Retention
===================================

Audit entries are written on every login, role change and account toggle, so
the table only ever grows. This worker keeps it bounded by age:

  - Each tick deletes every entry older than the retention window.
  - The first pass runs immediately so a long-stopped server catches up on start.
  - When a pass removed a large share of rows the file is checkpointed so the
    WAL does not keep the freed pages around.
*/

// StartRetention runs the audit-log retention worker until ctx is cancelled.
// Call it with `go`.
func StartRetention(ctx context.Context, logs *AuditLogs, retention, interval time.Duration) {
	logger.LogInfo("Audit retention started. Keep: %s, Interval: %s", retention, interval)

	prune(logs, retention)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			prune(logs, retention)
		}
	}
}

// prune deletes expired entries and reports how many went.
func prune(logs *AuditLogs, retention time.Duration) int64 {
	cutoff := logs.db.NowFunc().Add(-retention)

	n, err := logs.PruneOlderThan(cutoff)
	if err != nil {
		logger.LogError("Audit retention failed: %v", err)
		return 0
	}
	if n == 0 {
		return 0
	}

	logger.LogInfo("Audit retention removed %d entries older than %s", n, cutoff.Format(time.RFC3339))

	if n >= 1000 {
		// Commit WAL to the main file so freed pages are reused.
		if err := logs.db.Exec("PRAGMA wal_checkpoint(TRUNCATE);").Error; err != nil {
			logger.LogWarn("WAL checkpoint failed: %v", err)
		}
	}
	return n
}
