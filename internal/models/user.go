package models

import "time"

// Roles understood by the route guards.
const (
	RoleAdmin     = "admin"
	RoleReviewer  = "reviewer"
	RoleAnnotator = "annotator"
)

// ValidRole reports whether r is one of the known roles.
func ValidRole(r string) bool {
	switch r {
	case RoleAdmin, RoleReviewer, RoleAnnotator:
		return true
	}
	return false
}

// User is the identity handlers work with. Guests are synthesized and never
// stored; registered users come from the users table.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`
	IsGuest  bool   `json:"is_guest"`
}

type AuditLog struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
	Details   string    `json:"details"`
}
