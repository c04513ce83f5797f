package guest

import (
	"strings"

	"github.com/google/uuid"

	"github.com/zZProgenitorZz/Data-Annotation-Tool/internal/models"
)

const (
	idPrefix    = "guest_"
	emailDomain = "guest.local"
)

// NewIdentity mints a fresh guest identity. The id is never reused.
func NewIdentity() models.User {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return IdentityFor(idPrefix + hex[:12])
}

// IdentityFor rebuilds the synthesized user for a guest id carried in a token.
func IdentityFor(id string) models.User {
	suffix := id
	if len(suffix) > 6 {
		suffix = suffix[len(suffix)-6:]
	}
	return models.User{
		ID:       id,
		Username: "Guest_" + suffix,
		Email:    id + "@" + emailDomain,
		Role:     models.RoleAnnotator,
		IsActive: true,
		IsGuest:  true,
	}
}

// IsGuestID reports whether id has the guest id shape.
func IsGuestID(id string) bool {
	return strings.HasPrefix(id, idPrefix) && len(id) > len(idPrefix)
}
