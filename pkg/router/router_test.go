package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchPattern(t *testing.T) {
	for _, tc := range []struct {
		path, pattern string
		want          bool
	}{
		{"/api/v1/runs", "/api/v1/runs", true},
		{"/api/v1/runs", "/api/v1/cache", false},
		{"/api/v1/runs/abc", "/api/v1/runs/*", true},
		{"/api/v1/runs/abc/manifest", "/api/v1/runs/*/manifest", true},
		{"/api/v1/runs/abc/errors", "/api/v1/runs/*/manifest", false},
		{"/api/v1/runs/abc/manifest", "/api/v1/runs/*", true},
		{"/swagger/index.html", "/swagger/*", true},
		{"/swagger/doc/spec.json", "/swagger/*", true},
		{"/api/v1/runs", "/api/v1/runs/*", false},
		{"/swagger", "/swagger/*", false},
		{"/api/v1", "/api/v1/runs", false},
	} {
		assert.Equal(t, tc.want, matchPattern(tc.path, tc.pattern),
			"path %s pattern %s", tc.path, tc.pattern)
	}
}

func TestDispatch(t *testing.T) {
	r := New()
	r.GET("/api/v1/runs", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("list"))
	})
	r.POST("/api/v1/runs", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
	r.GET("/api/v1/runs/*/manifest", func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte("manifest"))
	})

	tests := []struct {
		method, path string
		wantStatus   int
		wantBody     string
	}{
		{http.MethodGet, "/api/v1/runs", http.StatusOK, "list"},
		{http.MethodPost, "/api/v1/runs", http.StatusAccepted, ""},
		{http.MethodGet, "/api/v1/runs/abc/manifest", http.StatusOK, "manifest"},
		{http.MethodDelete, "/api/v1/runs", http.StatusMethodNotAllowed, ""},
		{http.MethodGet, "/api/v1/nope", http.StatusNotFound, ""},
	}
	for _, tc := range tests {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		rec := httptest.NewRecorder()
		r.dispatch(rec, req)

		assert.Equal(t, tc.wantStatus, rec.Code, "%s %s", tc.method, tc.path)
		if tc.wantBody != "" {
			assert.Equal(t, tc.wantBody, rec.Body.String())
		}
	}
}

func TestDispatchRegistrationOrder(t *testing.T) {
	r := New()
	r.GET("/api/v1/runs/*/manifest", func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte("manifest"))
	})
	r.GET("/api/v1/runs/*", func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte("run"))
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs/abc/manifest", nil)
	rec := httptest.NewRecorder()
	r.dispatch(rec, req)
	assert.Equal(t, "manifest", rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/api/v1/runs/abc", nil)
	rec = httptest.NewRecorder()
	r.dispatch(rec, req)
	assert.Equal(t, "run", rec.Body.String())
}

func TestRoutes(t *testing.T) {
	r := New()
	r.GET("/a", func(w http.ResponseWriter, req *http.Request) {})
	r.POST("/b", func(w http.ResponseWriter, req *http.Request) {})

	assert.Equal(t, []string{"GET:/a", "POST:/b"}, r.Routes())
}
