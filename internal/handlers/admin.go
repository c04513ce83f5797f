package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/zZProgenitorZz/Data-Annotation-Tool/internal/appinfo"
	"github.com/zZProgenitorZz/Data-Annotation-Tool/internal/guest"
	"github.com/zZProgenitorZz/Data-Annotation-Tool/internal/models"
	"github.com/zZProgenitorZz/Data-Annotation-Tool/pkg/utils"
)

type StatsDTO struct {
	Images        int64       `json:"images"`
	ImagesSize    int64       `json:"images_size"`
	ImagesSizeFmt string      `json:"images_size_human"`
	Guest         guest.Stats `json:"guest"`
	GuestTimeout  string      `json:"guest_timeout"`
	Uptime        string      `json:"uptime"`
	UptimeSeconds int64       `json:"uptime_seconds"`
	RamUsage      uint64      `json:"ram_usage"`
	NumGoroutines int         `json:"num_goroutines"`
	CachedEntries int         `json:"cached_entries"`
	MaxUploadSize string      `json:"max_upload_size"`
}

// GET /admin/users
func (s *Server) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.Repos.Users.List()
	if err != nil {
		repoError(w, err, "User")
		return
	}
	utils.WriteJSON(w, http.StatusOK, users)
}

type roleRequest struct {
	Role string `json:"role"`
}

// PATCH /admin/users/{id}/role
func (s *Server) SetUserRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if !decode(w, r, &req) {
		return
	}
	if !models.ValidRole(req.Role) {
		utils.WriteError(w, http.StatusBadRequest, utils.ErrValidationInvalidFormat, "Unknown role.")
		return
	}

	id := r.PathValue("id")
	u := currentUser(r)
	if id == u.ID && req.Role != models.RoleAdmin {
		utils.WriteError(w, http.StatusBadRequest, utils.ErrRequestInvalid, "Admins cannot demote themselves.")
		return
	}
	if err := s.Repos.Users.SetRole(id, req.Role); err != nil {
		repoError(w, err, "User")
		return
	}
	s.audit(u.ID, "role_changed", id+" -> "+req.Role)
	w.WriteHeader(http.StatusNoContent)
}

type activeRequest struct {
	IsActive *bool `json:"is_active"`
}

// PATCH /admin/users/{id}/active
func (s *Server) SetUserActive(w http.ResponseWriter, r *http.Request) {
	var req activeRequest
	if !decode(w, r, &req) {
		return
	}
	if req.IsActive == nil {
		utils.WriteError(w, http.StatusBadRequest, utils.ErrRequestInvalid, "is_active is required.")
		return
	}

	id := r.PathValue("id")
	u := currentUser(r)
	if id == u.ID && !*req.IsActive {
		utils.WriteError(w, http.StatusBadRequest, utils.ErrRequestInvalid, "Admins cannot deactivate themselves.")
		return
	}
	if err := s.Repos.Users.SetActive(id, *req.IsActive); err != nil {
		repoError(w, err, "User")
		return
	}

	action := "user_deactivated"
	if *req.IsActive {
		action = "user_activated"
	}
	s.audit(u.ID, action, id)
	w.WriteHeader(http.StatusNoContent)
}

// ListAuditLogs returns audit entries newest first.
// GET /admin/logs?limit=50&offset=0
func (s *Server) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := utils.ParseInt(q.Get("limit"), 50, 1, 500)
	offset := utils.ParseInt(q.Get("offset"), 0, 0, 1<<30)

	logs, err := s.Repos.Audit.List(limit, offset)
	if err != nil {
		repoError(w, err, "Audit log")
		return
	}
	utils.WriteJSON(w, http.StatusOK, logs)
}

// GetStats returns storage totals, guest store totals and runtime metrics.
// GET /admin/stats
func (s *Server) GetStats(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	size := appinfo.TotalAssetsSize.Load()
	uptime := appinfo.Uptime()

	stats := StatsDTO{
		Images:        appinfo.TotalAssetsCount.Load(),
		ImagesSize:    size,
		ImagesSizeFmt: utils.FormatBytes(size),
		Guest:         s.Guest.Stats(),
		GuestTimeout:  s.Guest.Timeout().String(),
		Uptime:        uptime.Round(time.Second).String(),
		UptimeSeconds: int64(uptime.Seconds()),
		RamUsage:      m.Alloc,
		NumGoroutines: runtime.NumGoroutine(),
		MaxUploadSize: utils.FormatBytes(s.maxUploadSize),
	}
	if s.Cache != nil {
		stats.CachedEntries = s.Cache.Len()
	}

	utils.WriteJSON(w, http.StatusOK, stats)
}
