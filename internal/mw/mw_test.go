package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(handlers...)
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })
	return r
}

func TestRequestID(t *testing.T) {
	r := newEngine(RequestID())

	t.Run("generates when absent", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		id := w.Header().Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			t.Fatalf("header %q is not a uuid: %v", id, err)
		}
		if w.Body.String() != id {
			t.Errorf("context id = %q, header id = %q", w.Body.String(), id)
		}
	})

	t.Run("keeps incoming id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set(RequestIDHeader, "abc-123")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if got := w.Header().Get(RequestIDHeader); got != "abc-123" {
			t.Errorf("header = %q, want abc-123", got)
		}
	})
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name       string
		env        string
		allowed    []string
		origin     string
		wantOrigin string
	}{
		{"dev echoes any origin", "dev", nil, "http://localhost:3000", "http://localhost:3000"},
		{"prod allows listed origin", "prod", []string{"https://chat.example"}, "https://chat.example", "https://chat.example"},
		{"prod rejects unlisted origin", "prod", []string{"https://chat.example"}, "https://evil.example", ""},
		{"prod with empty list", "prod", nil, "https://chat.example", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newEngine(CORS(tt.env, tt.allowed))
			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			req.Header.Set("Origin", tt.origin)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Allow-Origin = %q, want %q", got, tt.wantOrigin)
			}
			if tt.wantOrigin != "" && w.Header().Get("Access-Control-Allow-Credentials") != "true" {
				t.Errorf("Allow-Credentials missing")
			}
		})
	}
}

func TestCORS_Preflight(t *testing.T) {
	r := newEngine(CORS("dev", nil))
	req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", w.Code)
	}
}
