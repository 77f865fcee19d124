package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/writewise/internal/model"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

func parseLogEntry(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON log: %v\nraw: %s", err, buf.String())
	}
	return entry
}

// TestLoggingMiddleware_LogsRequestFields はリクエストログに必要なフィールドが含まれることを検証する。
func TestLoggingMiddleware_LogsRequestFields(t *testing.T) {
	var buf bytes.Buffer

	handler := NewLoggingMiddleware(newTestLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/posts", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	entry := parseLogEntry(t, &buf)

	if entry["msg"] != "http_request" {
		t.Errorf("msg = %q, want %q", entry["msg"], "http_request")
	}
	if entry["method"] != "GET" {
		t.Errorf("method = %q, want %q", entry["method"], "GET")
	}
	if entry["path"] != "/posts" {
		t.Errorf("path = %q, want %q", entry["path"], "/posts")
	}
	if status, ok := entry["status"].(float64); !ok || status != 200 {
		t.Errorf("status = %v, want 200", entry["status"])
	}
	if duration, ok := entry["duration_ms"].(float64); !ok || duration < 0 {
		t.Errorf("duration_ms = %v, want >= 0", entry["duration_ms"])
	}
	if _, ok := entry["user_id"]; ok {
		t.Errorf("user_id should be absent for anonymous request, got %v", entry["user_id"])
	}
}

// TestLoggingMiddleware_IncludesUserIDFromInnerSession は
// 内側のセッションミドルウェアが解決したユーザーIDがログに含まれることを検証する。
func TestLoggingMiddleware_IncludesUserIDFromInnerSession(t *testing.T) {
	var buf bytes.Buffer

	inner := NewSessionMiddleware(validTokenVerifier(), RequireSession)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	handler := NewLoggingMiddleware(newTestLogger(&buf))(inner)

	handler.ServeHTTP(httptest.NewRecorder(), newSessionRequest("valid-token"))

	entry := parseLogEntry(t, &buf)
	if entry["user_id"] != "user-123" {
		t.Errorf("user_id = %v, want %q", entry["user_id"], "user-123")
	}
}

// TestLoggingMiddleware_IncludesRequestID はchiのRequestIDミドルウェアが採番したIDがログに含まれることを検証する。
func TestLoggingMiddleware_IncludesRequestID(t *testing.T) {
	var buf bytes.Buffer

	handler := chimw.RequestID(NewLoggingMiddleware(newTestLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(chimw.RequestIDHeader, "req-abc")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	entry := parseLogEntry(t, &buf)
	if entry["request_id"] != "req-abc" {
		t.Errorf("request_id = %v, want %q", entry["request_id"], "req-abc")
	}
}

// TestLoggingMiddleware_LevelByStatus はステータスコードに応じたログレベルを検証する。
func TestLoggingMiddleware_LevelByStatus(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		wantLevel  string
	}{
		{"200 OK", http.StatusOK, "INFO"},
		{"201 Created", http.StatusCreated, "INFO"},
		{"400 Bad Request", http.StatusBadRequest, "WARN"},
		{"404 Not Found", http.StatusNotFound, "WARN"},
		{"500 Internal Server Error", http.StatusInternalServerError, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer

			handler := NewLoggingMiddleware(newTestLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
			}))

			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/test", nil))

			entry := parseLogEntry(t, &buf)
			if status := int(entry["status"].(float64)); status != tt.statusCode {
				t.Errorf("status = %d, want %d", status, tt.statusCode)
			}
			if entry["level"] != tt.wantLevel {
				t.Errorf("level = %v, want %q", entry["level"], tt.wantLevel)
			}
		})
	}
}

// TestLoggingMiddleware_BodyWriteCapture はWriteHeaderを呼ばずに書き込んだ場合に200が記録されることを検証する。
func TestLoggingMiddleware_BodyWriteCapture(t *testing.T) {
	var buf bytes.Buffer

	handler := NewLoggingMiddleware(newTestLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hello"))
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/test", nil))

	entry := parseLogEntry(t, &buf)
	if status := int(entry["status"].(float64)); status != 200 {
		t.Errorf("status = %d, want 200", status)
	}
}

// TestRecoveryMiddleware_ReturnsUnifiedInternalError はpanicが統一フォーマットの500に変換されることを検証する。
func TestRecoveryMiddleware_ReturnsUnifiedInternalError(t *testing.T) {
	handler := NewRecoveryMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/posts", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	body := decodeErrorBody(t, w)
	if body.Code != model.ErrCodeInternal || body.Error != "Internal server error" {
		t.Errorf("body = %+v", body)
	}
}

// TestSecurityHeadersMiddleware_SetsHeaders はセキュリティヘッダーが付与されることを検証する。
func TestSecurityHeadersMiddleware_SetsHeaders(t *testing.T) {
	handler := NewSecurityHeadersMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	want := map[string]string{
		"X-Content-Type-Options":  "nosniff",
		"X-Frame-Options":         "DENY",
		"Referrer-Policy":         "strict-origin-when-cross-origin",
		"Content-Security-Policy": "default-src 'none'; frame-ancestors 'none'",
		"Cache-Control":           "no-store",
	}
	for header, value := range want {
		if got := w.Header().Get(header); got != value {
			t.Errorf("%s = %q, want %q", header, got, value)
		}
	}
}
