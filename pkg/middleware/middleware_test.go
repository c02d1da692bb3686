package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/humanebio/storefront/config"
	"github.com/humanebio/storefront/pkg/apperr"
	"github.com/humanebio/storefront/pkg/auth"
)

func echoUser(w http.ResponseWriter, r *http.Request) {
	if id, ok := auth.FromContext(r.Context()); ok {
		w.Header().Set("X-User", id.Role)
	}
	w.WriteHeader(http.StatusOK)
}

func TestAuthenticateReloadsRole(t *testing.T) {
	config.Set("JWT_SECRET", "mw-secret")
	tok, err := auth.GenerateToken(5, "open-5")
	require.NoError(t, err)

	role := "user"
	lookup := func(_ context.Context, id uint) (*auth.Identity, error) {
		return &auth.Identity{UserID: id, Role: role}, nil
	}
	h := Authenticate("app_session_id", lookup)(http.HandlerFunc(echoUser))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "app_session_id", Value: tok})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "user", rec.Header().Get("X-User"))

	role = "admin"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "admin", rec.Header().Get("X-User"))
}

func TestAuthenticateBearerAndUnknownUser(t *testing.T) {
	config.Set("JWT_SECRET", "mw-secret")
	tok, err := auth.GenerateToken(9, "gone")
	require.NoError(t, err)

	lookup := func(context.Context, uint) (*auth.Identity, error) {
		return nil, apperr.New(apperr.NotFound, "users.findByID", "User not found")
	}
	h := Authenticate("app_session_id", lookup)(RequireAuth(http.HandlerFunc(echoUser)))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticateIgnoresGarbageToken(t *testing.T) {
	called := false
	lookup := func(context.Context, uint) (*auth.Identity, error) {
		called = true
		return nil, errors.New("unreachable")
	}
	h := Authenticate("app_session_id", lookup)(http.HandlerFunc(echoUser))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "app_session_id", Value: "not.a.jwt"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, called)
}

func TestRateLimitPerScope(t *testing.T) {
	store := NewMemoryStore()
	defer store.Stop()

	chat := RateLimit(store, "chat", 2, time.Minute)(http.HandlerFunc(echoUser))
	api := RateLimit(store, "api", 2, time.Minute)(http.HandlerFunc(echoUser))

	hit := func(h http.Handler) int {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = "10.1.1.1:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, hit(chat))
	assert.Equal(t, http.StatusOK, hit(chat))
	assert.Equal(t, http.StatusTooManyRequests, hit(chat))
	assert.Equal(t, http.StatusOK, hit(api))
}

func TestMemoryStoreWindowResets(t *testing.T) {
	store := NewMemoryStore()
	defer store.Stop()

	now := time.Now()
	store.now = func() time.Time { return now }

	n, _ := store.Hit(context.Background(), "k", time.Second)
	assert.EqualValues(t, 1, n)
	n, _ = store.Hit(context.Background(), "k", time.Second)
	assert.EqualValues(t, 2, n)

	now = now.Add(2 * time.Second)
	n, _ = store.Hit(context.Background(), "k", time.Second)
	assert.EqualValues(t, 1, n)

	now = now.Add(2 * time.Second)
	store.evict()
	assert.Empty(t, store.buckets)
}

type failingCounter struct{}

func (failingCounter) Incr(context.Context, string, time.Duration) (int64, error) {
	return 0, errors.New("redis down")
}

func TestRateLimitFailsOpen(t *testing.T) {
	h := RateLimit(NewRedisStore(failingCounter{}), "api", 1, time.Minute)(http.HandlerFunc(echoUser))
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestCORSEchoesAllowedOrigin(t *testing.T) {
	h := CORS(DefaultCORSOptions("https://shop.example.com"))(http.HandlerFunc(echoUser))

	req := httptest.NewRequest(http.MethodOptions, "/api/cart/addItem", nil)
	req.Header.Set("Origin", "https://shop.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://shop.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRecovery(t *testing.T) {
	h := Recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
