// Package handlers serves the HTTP API. Every route resolves the caller once
// and then branches on IsGuest: guests are served from the in-memory session
// store, registered users from the database and object storage.
package handlers

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/zZProgenitorZz/Data-Annotation-Tool/internal/auth"
	"github.com/zZProgenitorZz/Data-Annotation-Tool/internal/config"
	"github.com/zZProgenitorZz/Data-Annotation-Tool/internal/database"
	"github.com/zZProgenitorZz/Data-Annotation-Tool/internal/guest"
	"github.com/zZProgenitorZz/Data-Annotation-Tool/internal/mailer"
	"github.com/zZProgenitorZz/Data-Annotation-Tool/internal/metrics"
	"github.com/zZProgenitorZz/Data-Annotation-Tool/internal/middleware"
	"github.com/zZProgenitorZz/Data-Annotation-Tool/internal/models"
	"github.com/zZProgenitorZz/Data-Annotation-Tool/internal/storage"
	"github.com/zZProgenitorZz/Data-Annotation-Tool/pkg/cache"
	"github.com/zZProgenitorZz/Data-Annotation-Tool/pkg/clock"
	"github.com/zZProgenitorZz/Data-Annotation-Tool/pkg/logger"
	"github.com/zZProgenitorZz/Data-Annotation-Tool/pkg/utils"
)

const (
	DefaultMaxUploadSize = 20 << 20 // 20 MB
	maxJSONBody          = 1 << 20
)

// Deps are the collaborators a Server is built from. Storage and Cache may
// be nil: without storage the presigned upload flow answers 503, without a
// cache thumbnails are rendered on every request.
type Deps struct {
	Config  *config.Config
	Guest   *guest.Store
	Repos   *database.Repos
	Tokens  *auth.Tokens
	Storage storage.Store
	Mailer  mailer.Backend
	Cache   *cache.MemoryCache
	Metrics *metrics.Metrics
	Clock   clock.Clock
}

type Server struct {
	Deps

	auth          *middleware.Authenticator
	loginLimiter  *middleware.RateLimiter
	maxUploadSize int64
	resetTTL      time.Duration

	// thumbs collapses concurrent renders of the same thumbnail.
	thumbs   singleflight.Group
	backupMu sync.Mutex
}

func NewServer(d Deps) *Server {
	if d.Clock == nil {
		d.Clock = clock.New()
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New(d.Guest)
	}

	return &Server{
		Deps: d,
		auth: &middleware.Authenticator{Tokens: d.Tokens, Users: d.Repos.Users},
		// Login: 1 request/sec, Burst: 10 per IP.
		loginLimiter:  middleware.NewRateLimiter(1, time.Second, 10),
		maxUploadSize: utils.SizeToBytes(d.Config.Guest.MaxUploadSize, DefaultMaxUploadSize),
		resetTTL:      utils.DurationOr(d.Config.Security.ResetTokenTTL, time.Hour),
	}
}

// LoginLimiter is exposed so the caller can run its cleanup loop.
func (s *Server) LoginLimiter() *middleware.RateLimiter {
	return s.loginLimiter
}

// Routes builds the request multiplexer.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	authed := func(h http.HandlerFunc) http.Handler {
		return s.auth.Authenticate(h)
	}
	registered := func(h http.HandlerFunc) http.Handler {
		return s.auth.Authenticate(middleware.RegisteredOnly(h))
	}
	admin := func(h http.HandlerFunc) http.Handler {
		return s.auth.Authenticate(middleware.RequireRoles(models.RoleAdmin)(h))
	}
	limited := s.loginLimiter.Middleware(utils.ErrAuthRateLimitExceed, "Too many login attempts. Please wait.")

	// Auth
	mux.Handle("POST /auth/login", limited(http.HandlerFunc(s.Login)))
	mux.Handle("POST /auth/guest-login", limited(http.HandlerFunc(s.GuestLogin)))
	mux.Handle("GET /auth/me", authed(s.Me))
	mux.Handle("POST /auth/logout", authed(s.Logout))
	mux.Handle("POST /auth/forgot-password", limited(http.HandlerFunc(s.ForgotPassword)))
	mux.Handle("POST /auth/reset-password", limited(http.HandlerFunc(s.ResetPassword)))

	// Datasets
	mux.Handle("POST /datasets", authed(s.CreateDataset))
	mux.Handle("GET /datasets", authed(s.ListDatasets))
	mux.Handle("GET /datasets/{id}", authed(s.GetDataset))
	mux.Handle("PATCH /datasets/{id}", authed(s.UpdateDataset))
	mux.Handle("DELETE /datasets/{id}", authed(s.DeleteDataset))

	// Images
	mux.Handle("POST /datasets/{id}/images", authed(s.UploadImages))
	mux.Handle("GET /datasets/{id}/images", authed(s.ListImages))
	mux.Handle("DELETE /datasets/{id}/images", authed(s.DeleteImages))
	mux.Handle("DELETE /datasets/{id}/images/{imageId}", authed(s.DeleteImage))
	mux.Handle("GET /images/{id}/content", authed(s.ImageContent))
	mux.Handle("GET /images/{id}/thumbnail", authed(s.ImageThumbnail))
	mux.Handle("POST /datasets/{id}/uploads/presign", registered(s.PresignUpload))
	mux.Handle("POST /datasets/{id}/uploads/confirm", registered(s.ConfirmUpload))

	// Annotations
	mux.Handle("GET /annotations", authed(s.ListAnnotations))
	mux.Handle("GET /images/{id}/annotations", authed(s.GetAnnotations))
	mux.Handle("POST /images/{id}/annotations", authed(s.CreateAnnotations))
	mux.Handle("PUT /images/{id}/annotations", authed(s.UpdateAnnotations))
	mux.Handle("DELETE /images/{id}/annotations", authed(s.DeleteAnnotations))
	mux.Handle("POST /images/{id}/annotations/shapes", authed(s.AddShape))
	mux.Handle("DELETE /images/{id}/annotations/shapes/{shapeId}", authed(s.DeleteShape))

	// Labels
	mux.Handle("POST /datasets/{id}/labels", authed(s.CreateLabel))
	mux.Handle("GET /labels", authed(s.ListLabels))
	mux.Handle("GET /datasets/{id}/labels", authed(s.ListDatasetLabels))
	mux.Handle("DELETE /datasets/{id}/labels", authed(s.DeleteDatasetLabels))
	mux.Handle("GET /labels/{id}", authed(s.GetLabel))
	mux.Handle("PATCH /labels/{id}", authed(s.UpdateLabel))
	mux.Handle("DELETE /labels/{id}", authed(s.DeleteLabel))

	// Remarks
	mux.Handle("POST /remarks", registered(s.CreateRemark))
	mux.Handle("GET /images/{id}/remarks", registered(s.ListRemarks))
	mux.Handle("PATCH /remarks/{id}", registered(s.UpdateRemark))
	mux.Handle("DELETE /remarks/{id}", registered(s.DeleteRemark))

	// Guest diagnostics
	mux.Handle("GET /guest/session", authed(s.GuestSession))

	// Admin
	mux.Handle("GET /admin/users", admin(s.ListUsers))
	mux.Handle("PATCH /admin/users/{id}/role", admin(s.SetUserRole))
	mux.Handle("PATCH /admin/users/{id}/active", admin(s.SetUserActive))
	mux.Handle("GET /admin/logs", admin(s.ListAuditLogs))
	mux.Handle("GET /admin/stats", admin(s.GetStats))
	mux.Handle("GET /admin/backup", admin(s.Backup))

	// Ops
	mux.HandleFunc("GET /healthz", s.Health)
	mux.Handle("GET /metrics", s.Metrics.Handler())

	return mux
}

// Handler wraps Routes in the global middleware chain.
func (s *Server) Handler(limiter *middleware.RateLimiter) http.Handler {
	var h http.Handler = s.Routes()
	h = middleware.Logger(h)
	h = middleware.Metrics(s.Metrics)(h)
	h = middleware.Cors(s.Config.Security.CorsOrigins)(h)
	if limiter != nil {
		h = limiter.Middleware(utils.ErrRequestRateLimitExceeded, "Too many requests. Please wait a moment.")(h)
	}
	return h
}

func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	db := "ok"
	if sqlDB, err := s.Repos.DB.DB(); err != nil || sqlDB.PingContext(r.Context()) != nil {
		status = http.StatusServiceUnavailable
		db = "unreachable"
	}
	utils.WriteJSON(w, status, map[string]string{
		"status":   http.StatusText(status),
		"database": db,
		"version":  s.Config.App.Version,
	})
}

// currentUser is set by Authenticate on every protected route.
func currentUser(r *http.Request) models.User {
	u, _ := middleware.UserFrom(r.Context())
	return u
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := utils.DecodeJSON(w, r, maxJSONBody, v); err != nil {
		utils.WriteError(w, http.StatusBadRequest, utils.ErrRequestInvalid, "Invalid request body.")
		return false
	}
	return true
}

func notFound(w http.ResponseWriter, what string) {
	utils.WriteError(w, http.StatusNotFound, utils.ErrResourceNotFound, what+" not found.")
}

// repoError maps persistence errors onto responses.
func repoError(w http.ResponseWriter, err error, what string) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		notFound(w, what)
	case errors.Is(err, database.ErrConflict):
		utils.WriteError(w, http.StatusConflict, utils.ErrResourceConflict, what+" already exists.")
	default:
		logger.LogError("%s: %v", what, err)
		utils.WriteError(w, http.StatusInternalServerError, utils.ErrServerInternal, "Internal server error.")
	}
}

func (s *Server) audit(userID, action, details string) {
	if err := s.Repos.Audit.Append(userID, action, details); err != nil {
		logger.LogWarn("Failed to write audit log: %v", err)
	}
}
