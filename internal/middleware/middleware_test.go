package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zZProgenitorZz/Data-Annotation-Tool/internal/auth"
	"github.com/zZProgenitorZz/Data-Annotation-Tool/internal/metrics"
	"github.com/zZProgenitorZz/Data-Annotation-Tool/internal/models"
	"github.com/zZProgenitorZz/Data-Annotation-Tool/pkg/clock"
)

type fakeUsers map[string]models.User

func (f fakeUsers) GetByID(id string) (models.User, error) {
	u, ok := f[id]
	if !ok {
		return models.User{}, assert.AnError
	}
	return u, nil
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	u, _ := UserFrom(r.Context())
	w.Header().Set("X-User", u.ID)
	w.WriteHeader(http.StatusOK)
})

func TestAuthenticate(t *testing.T) {
	tokens := auth.NewTokens([]byte("k"), time.Hour, time.Hour, clock.NewMock())
	a := &Authenticator{Tokens: tokens, Users: fakeUsers{
		"u1": {ID: "u1", Role: models.RoleAdmin, IsActive: true},
		"u2": {ID: "u2", Role: models.RoleAnnotator, IsActive: false},
	}}
	h := a.Authenticate(okHandler)

	do := func(token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("GET", "/", nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusUnauthorized, do("").Code)
	assert.Equal(t, http.StatusUnauthorized, do("garbage").Code)

	raw, _, err := tokens.Issue("u1", models.RoleAdmin, false)
	require.NoError(t, err)
	rec := do(raw)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", rec.Header().Get("X-User"))

	raw, _, err = tokens.Issue("u2", models.RoleAnnotator, false)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, do(raw).Code)

	raw, _, err = tokens.Issue("guest_0123456789ab", models.RoleAnnotator, true)
	require.NoError(t, err)
	rec = do(raw)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "guest_0123456789ab", rec.Header().Get("X-User"))

	raw, _, err = tokens.Issue("u1", models.RoleAnnotator, true)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, do(raw).Code, "guest claim with a non-guest subject")
}

func TestBearerTokenCookie(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: TokenCookie, Value: "abc"})
	assert.Equal(t, "abc", BearerToken(req))

	req.Header.Set("Authorization", "Basic xyz")
	assert.Equal(t, "", BearerToken(req))
}

func TestRoleGuards(t *testing.T) {
	serve := func(h http.Handler, u *models.User) int {
		req := httptest.NewRequest("GET", "/", nil)
		if u != nil {
			req = req.WithContext(WithUser(req.Context(), *u))
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	admin := RequireRoles(models.RoleAdmin)(okHandler)
	assert.Equal(t, http.StatusUnauthorized, serve(admin, nil))
	assert.Equal(t, http.StatusForbidden, serve(admin, &models.User{Role: models.RoleAnnotator, IsGuest: true}))
	assert.Equal(t, http.StatusOK, serve(admin, &models.User{Role: models.RoleAdmin}))

	reg := RegisteredOnly(okHandler)
	assert.Equal(t, http.StatusForbidden, serve(reg, &models.User{IsGuest: true}))
	assert.Equal(t, http.StatusOK, serve(reg, &models.User{}))
}

func TestRateLimiter(t *testing.T) {
	l := NewRateLimiter(1, time.Hour, 2)
	h := l.Middleware("request/rate_limit_exceeded", "slow down")(okHandler)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{200, 200, 429}, codes)
	assert.True(t, l.Allow("other"), "buckets are per key")

	l.cleanup(time.Now().Add(2 * VisitorTTL))
	assert.Empty(t, l.visitors)
}

func TestCors(t *testing.T) {
	h := Cors([]string{"https://*.example.com"})(okHandler)

	req := httptest.NewRequest("OPTIONS", "/", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Origin", "https://evil.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsUsesPattern(t *testing.T) {
	m := metrics.New(nil)
	mux := http.NewServeMux()
	mux.Handle("GET /items/{id}", okHandler)
	h := Metrics(m)(Logger(mux))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/items/42", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	scrape := httptest.NewRecorder()
	m.Handler().ServeHTTP(scrape, httptest.NewRequest("GET", "/metrics", nil))
	assert.Contains(t, scrape.Body.String(), `route="GET /items/{id}"`)
}
