package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/hitoshi/writewise/internal/middleware"
	"github.com/hitoshi/writewise/internal/model"
)

// maxRequestBodyBytes はJSONリクエストボディの上限サイズ。
const maxRequestBodyBytes = 1 << 20

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteErrorResponse(w, middleware.StatusForError(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// decodeJSON はリクエストボディをdstにデコードする。
// 不正なJSONの場合はVALIDATION_ERRORを書き込み、falseを返す。
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("Invalid request body"))
		return false
	}
	return true
}

// currentIdentity はセッションミドルウェアが注入したIdentityを返す。匿名の場合はnil。
func currentIdentity(r *http.Request) *model.Identity {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		return nil
	}
	return identity
}

// queryInt はクエリパラメータを整数として読み取る。未指定・不正値は0。
func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return n
}
