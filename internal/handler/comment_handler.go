package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/writewise/internal/middleware"
	"github.com/hitoshi/writewise/internal/model"
)

// CommentServiceInterface はコメントハンドラーが必要とするサービスインターフェース。
type CommentServiceInterface interface {
	ListByPost(ctx context.Context, postID string) ([]*model.Comment, error)
	ListByUser(ctx context.Context, userID string) ([]*model.Comment, error)
	Add(ctx context.Context, identity *model.Identity, postID, content string) (*model.Comment, error)
	Delete(ctx context.Context, identity *model.Identity, id string) error
}

// CommentHandler はコメントのHTTPハンドラー。
type CommentHandler struct {
	service CommentServiceInterface
}

// NewCommentHandler はCommentHandlerを生成する。
func NewCommentHandler(service CommentServiceInterface) *CommentHandler {
	return &CommentHandler{service: service}
}

type addCommentRequest struct {
	Content string `json:"content"`
}

type commentsResponse struct {
	Comments []*model.Comment `json:"comments"`
}

type commentResponse struct {
	Comment *model.Comment `json:"comment"`
}

// ListByPost は記事のコメント一覧を返す。
// GET /comments/{postId}
func (h *CommentHandler) ListByPost(w http.ResponseWriter, r *http.Request) {
	comments, err := h.service.ListByPost(r.Context(), chi.URLParam(r, "postId"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, commentsResponse{Comments: comments})
}

// ListByUser はユーザーのコメント一覧を記事の参照付きで返す。
// GET /comments/user/{id}
func (h *CommentHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	comments, err := h.service.ListByUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, commentsResponse{Comments: comments})
}

// Add は記事にコメントを追加する。
// POST /comments/{postId}
func (h *CommentHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req addCommentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	comment, err := h.service.Add(r.Context(), currentIdentity(r), chi.URLParam(r, "postId"), req.Content)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, commentResponse{Comment: comment})
}

// Delete はコメントを削除する。投稿者本人のみ。
// DELETE /comments/{id}
func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), currentIdentity(r), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, messageResponse{Message: "Comment deleted successfully"})
}
