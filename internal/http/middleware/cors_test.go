package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func preflight(t *testing.T, origin string) *httptest.ResponseRecorder {
	t.Helper()
	r := gin.New()
	r.Use(CORS())
	r.OPTIONS("/api/chat/sessions", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodOptions, "/api/chat/sessions", nil)
	req.Header.Set("Origin", origin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name    string
		env     string
		origin  string
		allowed bool
	}{
		{name: "local vite", origin: "http://localhost:5173", allowed: true},
		{name: "loopback", origin: "http://127.0.0.1:5174", allowed: true},
		{name: "unknown origin", origin: "https://evil.example", allowed: false},
		{name: "env override", env: "https://app.manike.lk", origin: "https://app.manike.lk", allowed: true},
		{name: "env replaces defaults", env: "https://app.manike.lk", origin: "http://localhost:5173", allowed: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("CORS_ALLOWED_ORIGINS", tc.env)
			rec := preflight(t, tc.origin)
			got := rec.Header().Get("Access-Control-Allow-Origin")
			if tc.allowed && got != tc.origin {
				t.Fatalf("allow-origin: want=%q got=%q (status=%d)", tc.origin, got, rec.Code)
			}
			if !tc.allowed && got != "" {
				t.Fatalf("allow-origin: want empty got=%q", got)
			}
		})
	}
}

func TestAttachTraceContext(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name      string
		requestID string
		want      string
	}{
		{name: "client id kept", requestID: "req-123", want: "req-123"},
		{name: "spaces rejected", requestID: "req 123"},
		{name: "generated"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.Use(AttachTraceContext())
			r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			if tc.requestID != "" {
				req.Header.Set(headerRequestID, tc.requestID)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			got := rec.Header().Get(headerRequestID)
			if tc.want != "" && got != tc.want {
				t.Fatalf("request id: want=%q got=%q", tc.want, got)
			}
			if tc.want == "" && (got == "" || got == tc.requestID) {
				t.Fatalf("request id: want generated got=%q", got)
			}
			if rec.Header().Get(headerTraceID) == "" {
				t.Fatalf("trace id: want non-empty")
			}
		})
	}
}
