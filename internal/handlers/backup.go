package handlers

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/zZProgenitorZz/Data-Annotation-Tool/pkg/logger"
	"github.com/zZProgenitorZz/Data-Annotation-Tool/pkg/utils"
)

// Backup streams a point-in-time snapshot of the SQLite database.
// GET /admin/backup
func (s *Server) Backup(w http.ResponseWriter, r *http.Request) {
	if !s.backupMu.TryLock() {
		utils.WriteError(w, http.StatusTooManyRequests, utils.ErrBackupConcurrencyLimit, "Another backup is currently in progress.")
		return
	}
	defer s.backupMu.Unlock()

	// Cookie-authenticated requests must come from an allowed dashboard origin.
	if r.Header.Get("Authorization") == "" {
		referer := r.Header.Get("Referer")
		if !utils.IsAllowedOrigin(referer, s.Config.Security.CorsOrigins) {
			utils.WriteError(w, http.StatusForbidden, utils.ErrRequestForbidden, "Requests must originate from the dashboard.")
			return
		}
	}

	timestamp := s.Clock.Now().Format("2006-01-02_15-04-05")
	filename := fmt.Sprintf("annotator_%s.db", timestamp)
	tempPath := filepath.Join(os.TempDir(), filename)

	// VACUUM INTO writes a consistent copy without blocking writers.
	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	if err := s.Repos.DB.WithContext(ctx).Exec("VACUUM INTO ?", tempPath).Error; err != nil {
		logger.LogError("Database snapshot failed: %v", err)
		utils.WriteError(w, http.StatusInternalServerError, utils.ErrServerInternal, "Internal database snapshot failed.")
		return
	}
	defer func() {
		if err := os.Remove(tempPath); err != nil {
			logger.LogWarn("Failed to remove snapshot %s: %v", tempPath, err)
		}
	}()

	info, err := os.Stat(tempPath)
	if err != nil {
		utils.WriteError(w, http.StatusInternalServerError, utils.ErrServerInternal, "Failed to verify backup integrity.")
		return
	}

	s.audit(currentUser(r).ID, "database_backup", utils.FormatBytes(info.Size()))

	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Header().Set("Content-Type", "application/x-sqlite3")
	w.Header().Set("Content-Length", fmt.Sprintf("%d", info.Size()))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")

	http.ServeFile(w, r, tempPath)
}
