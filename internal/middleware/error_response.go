package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hitoshi/writewise/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
// フロントエンドは "error" フィールドの文言をそのまま表示する。
type ErrorResponseBody struct {
	Error    string `json:"error"`
	Code     string `json:"code"`
	Category string `json:"category"`
	Action   string `json:"action,omitempty"`
}

// StatusForError はAPIErrorのコードに対応するHTTPステータスを返す。
func StatusForError(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case model.ErrCodeForbidden:
		return http.StatusForbidden
	case model.ErrCodeNotFound:
		return http.StatusNotFound
	case model.ErrCodeDuplicateEmail, model.ErrCodeValidation, model.ErrCodeInvalidCredentials:
		return http.StatusBadRequest
	case model.ErrCodeAccountLinkRefused:
		return http.StatusConflict
	case model.ErrCodeOAuthDisabled:
		return http.StatusServiceUnavailable
	case model.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	WriteJSON(w, statusCode, ErrorResponseBody{
		Error:    apiErr.Message,
		Code:     apiErr.Code,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, model.NewInternalError())
}

// WriteJSON はJSONレスポンスを書き込む。
func WriteJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}
