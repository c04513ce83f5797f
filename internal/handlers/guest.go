package handlers

import (
	"net/http"

	"github.com/zZProgenitorZz/Data-Annotation-Tool/pkg/utils"
)

// GuestSession reports the caller's in-memory session: counts, creation and
// last access time, and when it will expire if left idle.
// GET /guest/session
func (s *Server) GuestSession(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	if !u.IsGuest {
		utils.WriteError(w, http.StatusForbidden, utils.ErrRequestForbidden, "Only guest sessions have session info.")
		return
	}

	info := s.Guest.SessionInfo(u.ID)
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"session":    info,
		"expires_at": info.LastAccessedAt.Add(s.Guest.Timeout()),
		"timeout":    s.Guest.Timeout().String(),
	})
}
