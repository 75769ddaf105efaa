package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
)

func TestProfileMiddleware(t *testing.T) {
	var profile string
	var userID int64
	h := ProfileMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		profile = getProfile(r.Context())
		userID = getUserID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-User-ID", " 42 ")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "42", profile)
	assert.Equal(t, int64(42), userID)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-User-ID", "guest")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "guest", profile)
	assert.Zero(t, userID)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Empty(t, profile)
	assert.Zero(t, userID)
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	h := middleware.RequestID(RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = getRequestID(r.Context())
	})))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(middleware.RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", seen)
	assert.Equal(t, "abc-123", rec.Header().Get(middleware.RequestIDHeader))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(middleware.RequestIDHeader))
}
