package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/writewise/internal/like"
	"github.com/hitoshi/writewise/internal/middleware"
	"github.com/hitoshi/writewise/internal/model"
)

// LikeServiceInterface はいいねハンドラーが必要とするサービスインターフェース。
type LikeServiceInterface interface {
	Toggle(ctx context.Context, identity *model.Identity, postID string) (*like.ToggleResult, error)
	ListLiked(ctx context.Context, userID string) ([]*model.LikedPost, error)
}

// LikeHandler はいいねのHTTPハンドラー。
type LikeHandler struct {
	service LikeServiceInterface
}

// NewLikeHandler はLikeHandlerを生成する。
func NewLikeHandler(service LikeServiceInterface) *LikeHandler {
	return &LikeHandler{service: service}
}

type likedPostsResponse struct {
	Posts []*model.LikedPost `json:"posts"`
}

// Toggle は記事へのいいねを付け外しする。
// POST /likes/{postId}
func (h *LikeHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Toggle(r.Context(), currentIdentity(r), chi.URLParam(r, "postId"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, result)
}

// ListLiked はユーザーがいいねした記事を返す。
// GET /likes/user/{id}
func (h *LikeHandler) ListLiked(w http.ResponseWriter, r *http.Request) {
	posts, err := h.service.ListLiked(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, likedPostsResponse{Posts: posts})
}
