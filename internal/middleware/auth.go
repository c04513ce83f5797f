package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/zZProgenitorZz/Data-Annotation-Tool/internal/auth"
	"github.com/zZProgenitorZz/Data-Annotation-Tool/internal/guest"
	"github.com/zZProgenitorZz/Data-Annotation-Tool/internal/models"
	"github.com/zZProgenitorZz/Data-Annotation-Tool/pkg/utils"
)

// TokenCookie is read when no Authorization header is sent.
const TokenCookie = "access_token"

type ctxKey struct{}

// WithUser stores the resolved identity on ctx.
func WithUser(ctx context.Context, u models.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// UserFrom returns the identity placed by Authenticate.
func UserFrom(ctx context.Context) (models.User, bool) {
	u, ok := ctx.Value(ctxKey{}).(models.User)
	return u, ok
}

// UserLookup loads a registered user by id.
type UserLookup interface {
	GetByID(id string) (models.User, error)
}

var errInactive = errors.New("account is disabled")

// Authenticator resolves bearer tokens into identities. Guest tokens map to a
// synthesized user without touching the database.
type Authenticator struct {
	Tokens *auth.Tokens
	Users  UserLookup
}

// BearerToken extracts the token from the Authorization header or cookie.
func BearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if scheme, token, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if c, err := r.Cookie(TokenCookie); err == nil {
		return c.Value
	}
	return ""
}

// Resolve verifies raw and returns the identity it stands for.
func (a *Authenticator) Resolve(raw string) (models.User, error) {
	claims, err := a.Tokens.Parse(raw)
	if err != nil {
		return models.User{}, err
	}

	if claims.IsGuest {
		if !guest.IsGuestID(claims.Subject) {
			return models.User{}, auth.ErrInvalidToken
		}
		return guest.IdentityFor(claims.Subject), nil
	}

	u, err := a.Users.GetByID(claims.Subject)
	if err != nil {
		return models.User{}, err
	}
	if !u.IsActive {
		return models.User{}, errInactive
	}
	return u, nil
}

// Authenticate rejects requests without a valid token with 401.
func (a *Authenticator) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := BearerToken(r)
		if raw == "" {
			utils.WriteError(w, http.StatusUnauthorized, utils.ErrAuthRequired, "Authentication required.")
			return
		}

		u, err := a.Resolve(raw)
		if err != nil {
			if errors.Is(err, errInactive) {
				utils.WriteError(w, http.StatusForbidden, utils.ErrRequestForbidden, "Account is disabled.")
				return
			}
			utils.WriteError(w, http.StatusUnauthorized, utils.ErrAuthInvalidToken, "Invalid or expired token.")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
	})
}

// RequireRoles lets through only identities holding one of roles. It must
// run after Authenticate.
func RequireRoles(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := UserFrom(r.Context())
			if !ok {
				utils.WriteError(w, http.StatusUnauthorized, utils.ErrAuthRequired, "Authentication required.")
				return
			}
			for _, role := range roles {
				if u.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			utils.WriteError(w, http.StatusForbidden, utils.ErrRequestForbidden, "You do not have access to this resource.")
		})
	}
}

// RegisteredOnly rejects guest identities with 403.
func RegisteredOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if u, ok := UserFrom(r.Context()); ok && u.IsGuest {
			utils.WriteError(w, http.StatusForbidden, utils.ErrRequestForbidden, "Not available for guest accounts.")
			return
		}
		next.ServeHTTP(w, r)
	})
}
