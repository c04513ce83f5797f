package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mileusna/useragent"

	"github.com/zZProgenitorZz/Data-Annotation-Tool/internal/auth"
	"github.com/zZProgenitorZz/Data-Annotation-Tool/internal/database"
	"github.com/zZProgenitorZz/Data-Annotation-Tool/internal/guest"
	"github.com/zZProgenitorZz/Data-Annotation-Tool/internal/mailer"
	"github.com/zZProgenitorZz/Data-Annotation-Tool/internal/middleware"
	"github.com/zZProgenitorZz/Data-Annotation-Tool/internal/models"
	"github.com/zZProgenitorZz/Data-Annotation-Tool/pkg/logger"
	"github.com/zZProgenitorZz/Data-Annotation-Tool/pkg/utils"
)

// failedLoginDelay slows down brute-force scripts.
var failedLoginDelay = 500 * time.Millisecond

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type TokenResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresAt   time.Time   `json:"expires_at"`
	User        models.User `json:"user"`
}

// deviceInfo renders a short "Chrome 120.0 · Windows 10 · Desktop" string
// for the audit log.
func deviceInfo(userAgent string) string {
	if userAgent == "" {
		return "Unknown Device"
	}
	ua := useragent.Parse(userAgent)

	var parts []string
	if ua.Name != "" {
		parts = append(parts, strings.TrimSpace(ua.Name+" "+ua.Version))
	}
	if ua.OS != "" {
		parts = append(parts, strings.TrimSpace(ua.OS+" "+ua.OSVersion))
	}
	switch {
	case ua.Mobile:
		parts = append(parts, "Mobile")
	case ua.Tablet:
		parts = append(parts, "Tablet")
	case ua.Desktop:
		parts = append(parts, "Desktop")
	}

	if len(parts) == 0 {
		if len(userAgent) > 100 {
			return userAgent[:100] + "..."
		}
		return userAgent
	}
	return strings.Join(parts, " · ")
}

func (s *Server) issue(w http.ResponseWriter, r *http.Request, u models.User) {
	token, expiresAt, err := s.Tokens.Issue(u.ID, u.Role, u.IsGuest)
	if err != nil {
		logger.LogError("Token issue failed: %v", err)
		utils.WriteError(w, http.StatusInternalServerError, utils.ErrServerInternal, "Could not issue token.")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,         // JavaScript access forbidden (XSS protection)
		Secure:   r.TLS != nil, // True if using HTTPS
		SameSite: http.SameSiteLaxMode,
		Expires:  expiresAt,
	})

	utils.WriteJSON(w, http.StatusOK, TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   expiresAt,
		User:        u,
	})
}

// Login checks a username and password and returns an access token.
// POST /auth/login
func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var creds LoginRequest
	if !decode(w, r, &creds) {
		return
	}

	u, hash, err := s.Repos.Users.GetByUsername(strings.TrimSpace(creds.Username))
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		repoError(w, err, "User")
		return
	}
	if err != nil || auth.CheckPassword(hash, creds.Password) != nil {
		s.Metrics.AuthAttempt("password", "invalid_credentials")
		time.Sleep(failedLoginDelay)
		utils.WriteError(w, http.StatusUnauthorized, utils.ErrAuthInvalid, "Incorrect username or password.")
		return
	}
	if !u.IsActive {
		s.Metrics.AuthAttempt("password", "inactive")
		utils.WriteError(w, http.StatusForbidden, utils.ErrRequestForbidden, "Account is disabled.")
		return
	}

	s.Metrics.AuthAttempt("password", "success")
	s.audit(u.ID, "login", deviceInfo(r.UserAgent())+" from "+utils.GetRealIP(r))
	s.issue(w, r, u)
}

// GuestLogin mints a fresh guest identity and opens its in-memory session.
// POST /auth/guest-login
func (s *Server) GuestLogin(w http.ResponseWriter, r *http.Request) {
	u := guest.NewIdentity()
	s.Guest.Touch(u.ID)

	s.Metrics.AuthAttempt("guest", "success")
	logger.LogDebug("[GUEST] New guest %s (%s)", u.ID, deviceInfo(r.UserAgent()))
	s.issue(w, r, u)
}

// GET /auth/me
func (s *Server) Me(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	if u.IsGuest {
		s.Guest.Touch(u.ID)
	}
	utils.WriteJSON(w, http.StatusOK, u)
}

// Logout drops the token cookie. Guests also lose their whole session.
// POST /auth/logout
func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	if u.IsGuest {
		s.Guest.ClearSession(u.ID)
	} else {
		s.audit(u.ID, "logout", "")
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	})

	utils.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"action":  "logged_out",
		"message": "Logged out successfully.",
	})
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPassword mails a reset link. The response never reveals whether the
// address belongs to an account.
// POST /auth/forgot-password
func (s *Server) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if !decode(w, r, &req) {
		return
	}

	accepted := map[string]string{
		"status":  "success",
		"message": "If the address is registered, a reset link is on its way.",
	}

	u, err := s.Repos.Users.GetByEmail(strings.TrimSpace(req.Email))
	if err != nil || !u.IsActive {
		if err != nil && !errors.Is(err, database.ErrNotFound) {
			logger.LogError("Forgot password lookup failed: %v", err)
		}
		utils.WriteJSON(w, http.StatusOK, accepted)
		return
	}

	token := uuid.NewString()
	if err := s.Repos.Resets.Create(token, u.ID, s.Clock.Now().Add(s.resetTTL)); err != nil {
		repoError(w, err, "Password reset")
		return
	}

	err = s.Mailer.Send(mailer.KindResetPassword, u.Email, mailer.ResetPasswordData{
		AppName:  s.Config.App.Name,
		Username: u.Username,
		Token:    token,
		BaseURL:  s.Config.GetBaseUrl(),
		ValidFor: s.resetTTL.String(),
	})
	if err != nil {
		logger.LogError("Reset email to %s failed: %v", u.Email, err)
		utils.WriteError(w, http.StatusBadGateway, utils.ErrUpstreamFailed, "Could not send the reset email.")
		return
	}

	s.audit(u.ID, "password_reset_requested", "")
	utils.WriteJSON(w, http.StatusOK, accepted)
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// POST /auth/reset-password
func (s *Server) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !decode(w, r, &req) {
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, utils.ErrValidationInvalidFormat, err.Error())
		return
	}

	userID, err := s.Repos.Resets.Consume(req.Token, s.Clock.Now())
	if errors.Is(err, database.ErrNotFound) || errors.Is(err, database.ErrTokenExpired) {
		utils.WriteError(w, http.StatusBadRequest, utils.ErrAuthInvalidToken, "Reset link is invalid or expired.")
		return
	}
	if err != nil {
		repoError(w, err, "Password reset")
		return
	}

	if err := s.Repos.Users.SetPassword(userID, hash); err != nil {
		repoError(w, err, "User")
		return
	}

	s.audit(userID, "password_reset", "")
	utils.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Password updated.",
	})
}
