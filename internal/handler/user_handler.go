package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/writewise/internal/middleware"
	"github.com/hitoshi/writewise/internal/model"
	"github.com/hitoshi/writewise/internal/user"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	Profile(ctx context.Context, id string) (*model.User, error)
	UpdateProfile(ctx context.Context, identity *model.Identity, id string, in user.ProfileInput) (*model.User, error)
	// DeleteAccount はアカウントを削除する。
	// 記事・コメント・いいねも合わせて削除される。
	DeleteAccount(ctx context.Context, identity *model.Identity, id string) error
	Stats(ctx context.Context, identity *model.Identity) (*model.UserStats, error)
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
	cookie  middleware.CookieConfig
}

// NewUserHandler はUserHandlerを生成する。
// cookieは退会時にセッションCookieを削除するために使う。
func NewUserHandler(service UserServiceInterface, cookie middleware.CookieConfig) *UserHandler {
	return &UserHandler{
		service: service,
		cookie:  cookie,
	}
}

type userResponse struct {
	User *model.User `json:"user"`
}

// Stats はログインユーザーのダッシュボード集計を返す。
// GET /users/me/stats
func (h *UserHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context(), currentIdentity(r))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, stats)
}

// Profile はユーザーの公開プロフィールを返す。
// GET /users/{id}
func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	u, err := h.service.Profile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, userResponse{User: u})
}

// UpdateProfile はプロフィールを更新する。本人のみ。
// PUT /users/{id}
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var in user.ProfileInput
	if !decodeJSON(w, r, &in) {
		return
	}

	u, err := h.service.UpdateProfile(r.Context(), currentIdentity(r), chi.URLParam(r, "id"), in)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, userResponse{User: u})
}

// DeleteAccount は退会処理を実行し、セッションCookieを削除する。
// DELETE /users/{id}
func (h *UserHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteAccount(r.Context(), currentIdentity(r), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}

	http.SetCookie(w, middleware.ClearSessionCookie(h.cookie))
	middleware.WriteJSON(w, http.StatusOK, messageResponse{Message: "Account deleted successfully"})
}
