package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/writewise/internal/model"
)

// TestWriteErrorResponse_WritesUnifiedFormat は統一エラーフォーマットでレスポンスが書き込まれることを検証する。
func TestWriteErrorResponse_WritesUnifiedFormat(t *testing.T) {
	w := httptest.NewRecorder()

	WriteErrorResponse(w, http.StatusBadRequest, model.NewDuplicateEmailError())

	resp := w.Result()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want %q", ct, "application/json")
	}

	var body ErrorResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}

	if body.Error != "Email already in use" {
		t.Errorf("error = %q, want %q", body.Error, "Email already in use")
	}
	if body.Code != model.ErrCodeDuplicateEmail {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeDuplicateEmail)
	}
	if body.Category != "validation" {
		t.Errorf("category = %q, want %q", body.Category, "validation")
	}
	if body.Action == "" {
		t.Error("expected non-empty action")
	}
}

// TestWriteErrorResponse_OmitsEmptyAction はActionが空の場合にフィールドを出力しないことを検証する。
func TestWriteErrorResponse_OmitsEmptyAction(t *testing.T) {
	w := httptest.NewRecorder()

	WriteErrorResponse(w, http.StatusNotFound, model.NewNotFoundError("Post"))

	var raw map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&raw); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	if raw["error"] != "Post not found" {
		t.Errorf("error = %v, want %q", raw["error"], "Post not found")
	}
	if _, ok := raw["action"]; ok {
		t.Errorf("action should be omitted, got %v", raw["action"])
	}
	if _, ok := raw["message"]; ok {
		t.Error("message field must not be present; the frontend reads error")
	}
}

// TestWriteInternalServerError は内部エラーが汎用メッセージで返されることを検証する。
func TestWriteInternalServerError(t *testing.T) {
	w := httptest.NewRecorder()

	WriteInternalServerError(w)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	body := decodeErrorBody(t, w)
	if body.Code != model.ErrCodeInternal {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeInternal)
	}
	if body.Error != "Internal server error" {
		t.Errorf("error = %q, want %q", body.Error, "Internal server error")
	}
	if body.Category != "system" {
		t.Errorf("category = %q, want %q", body.Category, "system")
	}
}

// TestStatusForError はエラーコードとHTTPステータスの対応を検証する。
func TestStatusForError(t *testing.T) {
	tests := []struct {
		apiErr *model.APIError
		want   int
	}{
		{model.NewUnauthorizedError(model.MsgInvalidToken), http.StatusUnauthorized},
		{model.NewForbiddenError("delete this post"), http.StatusForbidden},
		{model.NewNotFoundError("Comment"), http.StatusNotFound},
		{model.NewDuplicateEmailError(), http.StatusBadRequest},
		{model.NewValidationError("Title is required"), http.StatusBadRequest},
		{model.NewInvalidCredentialsError(), http.StatusBadRequest},
		{model.NewAccountLinkRefusedError(), http.StatusConflict},
		{model.NewOAuthDisabledError(), http.StatusServiceUnavailable},
		{model.NewRateLimitedError(), http.StatusTooManyRequests},
		{model.NewInternalError(), http.StatusInternalServerError},
		{&model.APIError{Code: "UNKNOWN"}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.apiErr.Code, func(t *testing.T) {
			if got := StatusForError(tt.apiErr); got != tt.want {
				t.Errorf("StatusForError(%s) = %d, want %d", tt.apiErr.Code, got, tt.want)
			}
		})
	}
}
