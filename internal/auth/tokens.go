// Package auth issues and verifies access tokens and hashes passwords.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/zZProgenitorZz/Data-Annotation-Tool/pkg/clock"
)

// ErrInvalidToken is returned for malformed, expired or forged tokens.
var ErrInvalidToken = errors.New("invalid token")

// Claims carried by every access token. The subject is the user id, or the
// guest id for guest tokens.
type Claims struct {
	Role    string `json:"role"`
	IsGuest bool   `json:"is_guest"`
	jwt.RegisteredClaims
}

// Tokens signs HS256 access tokens. Guest tokens get their own lifetime,
// usually matching the guest session timeout.
type Tokens struct {
	secret   []byte
	ttl      time.Duration
	guestTTL time.Duration
	clock    clock.Clock
}

func NewTokens(secret []byte, ttl, guestTTL time.Duration, clk clock.Clock) *Tokens {
	if clk == nil {
		clk = clock.New()
	}
	return &Tokens{secret: secret, ttl: ttl, guestTTL: guestTTL, clock: clk}
}

// Issue signs a token for subject and returns it with its expiry.
func (t *Tokens) Issue(subject, role string, isGuest bool) (string, time.Time, error) {
	now := t.clock.Now()
	ttl := t.ttl
	if isGuest {
		ttl = t.guestTTL
	}
	expiresAt := now.Add(ttl)

	claims := Claims{
		Role:    role,
		IsGuest: isGuest,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse verifies the signature and time claims of raw.
func (t *Tokens) Parse(raw string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.clock.Now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
