package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tosinxt/lendsqr/internal/logging"
)

// fakeLimiter lets tests flip rate limiting on and off without Redis.
type fakeLimiter struct {
	exceeded bool
	recorded int
}

func (f *fakeLimiter) CheckIPRateLimit(context.Context, string, string) (bool, error) {
	return f.exceeded, nil
}

func (f *fakeLimiter) RecordIPRequest(context.Context, string, string) error {
	f.recorded++
	return nil
}

func newTestRouter(limiter RateLimiter) (*chi.Mux, *fakeUserRepo) {
	repo := newFakeUserRepo()
	logger := logging.NewLogger(true)
	handler := NewHandler(NewService(repo, logger), limiter, logger)

	r := chi.NewRouter()
	r.Post("/auth/register", handler.Register)
	r.Post("/auth/login", handler.Login)
	r.Get("/users/{id}", handler.GetUser)
	r.Patch("/users/{id}", handler.UpdateUser)
	r.Put("/users/{id}/password", handler.ChangePassword)
	r.Delete("/users/{id}", handler.DeleteUser)

	return r, repo
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func registerBody() map[string]string {
	return map[string]string{
		"email":      "jane@example.com",
		"password":   "Passw0rd!",
		"first_name": "Jane",
		"last_name":  "Doe",
	}
}

func TestRegisterEndpoint(t *testing.T) {
	router, _ := newTestRouter(&fakeLimiter{})

	rec := doJSON(t, router, http.MethodPost, "/auth/register", registerBody())
	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		User map[string]any `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "jane@example.com", resp.User["email"])
	// The response never carries a password field
	assert.NotContains(t, resp.User, "password")
}

func TestRegisterEndpointDuplicate(t *testing.T) {
	router, _ := newTestRouter(&fakeLimiter{})

	rec := doJSON(t, router, http.MethodPost, "/auth/register", registerBody())
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/auth/register", registerBody())
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "EMAIL_ALREADY_EXISTS")
}

func TestRegisterEndpointBadBody(t *testing.T) {
	router, _ := newTestRouter(&fakeLimiter{})

	req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_REQUEST_BODY")
}

func TestRegisterEndpointValidation(t *testing.T) {
	router, _ := newTestRouter(&fakeLimiter{})

	body := registerBody()
	body["password"] = "short"

	rec := doJSON(t, router, http.MethodPost, "/auth/register", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "PASSWORD_TOO_SHORT")
}

func TestRegisterEndpointRateLimited(t *testing.T) {
	limiter := &fakeLimiter{exceeded: true}
	router, _ := newTestRouter(limiter)

	rec := doJSON(t, router, http.MethodPost, "/auth/register", registerBody())
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "TOO_MANY_REQUESTS")
	// Rejected requests are not recorded against the window
	assert.Equal(t, 0, limiter.recorded)
}

func TestLoginEndpoint(t *testing.T) {
	router, _ := newTestRouter(&fakeLimiter{})

	rec := doJSON(t, router, http.MethodPost, "/auth/register", registerBody())
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/auth/login", map[string]string{
		"email":    "jane@example.com",
		"password": "Passw0rd!",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "Passw0rd!")

	rec = doJSON(t, router, http.MethodPost, "/auth/login", map[string]string{
		"email":    "jane@example.com",
		"password": "WrongPass1",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_CREDENTIALS")
}

func TestGetUserEndpoint(t *testing.T) {
	router, _ := newTestRouter(&fakeLimiter{})

	rec := doJSON(t, router, http.MethodPost, "/auth/register", registerBody())
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/users/1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/users/999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/users/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_USER_ID")
}

func TestUpdateUserEndpoint(t *testing.T) {
	router, _ := newTestRouter(&fakeLimiter{})

	rec := doJSON(t, router, http.MethodPost, "/auth/register", registerBody())
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodPatch, "/users/1", map[string]string{
		"first_name": "Janet",
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		User map[string]any `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Janet", resp.User["first_name"])
	assert.Equal(t, "Doe", resp.User["last_name"])

	rec = doJSON(t, router, http.MethodPatch, "/users/999", map[string]string{
		"first_name": "Ghost",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChangePasswordEndpoint(t *testing.T) {
	router, _ := newTestRouter(&fakeLimiter{})

	rec := doJSON(t, router, http.MethodPost, "/auth/register", registerBody())
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodPut, "/users/1/password", map[string]string{
		"password": "NewPass1",
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/auth/login", map[string]string{
		"email":    "jane@example.com",
		"password": "NewPass1",
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPut, "/users/1/password", map[string]string{
		"password": "2short",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "PASSWORD_TOO_SHORT")
}

func TestDeleteUserEndpoint(t *testing.T) {
	router, _ := newTestRouter(&fakeLimiter{})

	rec := doJSON(t, router, http.MethodPost, "/auth/register", registerBody())
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodDelete, "/users/1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"deleted":1}`, string(bytes.TrimSpace(rec.Body.Bytes())))

	// Deleting again is a no-op miss, not an error
	rec = doJSON(t, router, http.MethodDelete, "/users/1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"deleted":0}`, string(bytes.TrimSpace(rec.Body.Bytes())))
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(*http.Request)
		expect string
	}{
		{
			"x-forwarded-for first hop",
			func(r *http.Request) { r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1") },
			"203.0.113.9",
		},
		{
			"x-real-ip",
			func(r *http.Request) { r.Header.Set("X-Real-IP", "203.0.113.10") },
			"203.0.113.10",
		},
		{
			"remote addr fallback",
			func(r *http.Request) { r.RemoteAddr = "192.0.2.5:51234" },
			"192.0.2.5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.setup(req)
			assert.Equal(t, tt.expect, getClientIP(req))
		})
	}
}
