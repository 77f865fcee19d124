package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/writewise/internal/middleware"
	"github.com/hitoshi/writewise/internal/model"
	"github.com/hitoshi/writewise/internal/post"
)

// PostServiceInterface は記事ハンドラーが必要とするサービスインターフェース。
type PostServiceInterface interface {
	List(ctx context.Context, params post.ListParams) (*model.PostPage, error)
	Trending(ctx context.Context, limit int) ([]*model.Post, error)
	Search(ctx context.Context, q string) ([]*model.Post, error)
	ListByAuthor(ctx context.Context, authorID string) ([]*model.Post, error)
	// Get は記事詳細を返す。identityがnilの場合は匿名閲覧として扱う。
	Get(ctx context.Context, identity *model.Identity, id string) (*model.PostDetail, error)
	Create(ctx context.Context, identity *model.Identity, in model.PostInput) (*model.Post, error)
	Update(ctx context.Context, identity *model.Identity, id string, in model.PostUpdate) (*model.Post, error)
	Delete(ctx context.Context, identity *model.Identity, id string) error
}

// PostHandler は記事のHTTPハンドラー。
type PostHandler struct {
	service PostServiceInterface
}

// NewPostHandler はPostHandlerを生成する。
func NewPostHandler(service PostServiceInterface) *PostHandler {
	return &PostHandler{service: service}
}

// createPostRequest は記事作成リクエストのボディ。
type createPostRequest struct {
	Title      string           `json:"title"`
	Content    string           `json:"content"`
	Summary    *string          `json:"summary"`
	CoverImage *string          `json:"coverImage"`
	Tags       []string         `json:"tags"`
	Status     model.PostStatus `json:"status"`
}

// updatePostRequest は記事更新リクエストのボディ。省略したフィールドは変更しない。
type updatePostRequest struct {
	Title      *string           `json:"title"`
	Content    *string           `json:"content"`
	Summary    *string           `json:"summary"`
	CoverImage *string           `json:"coverImage"`
	Tags       *[]string         `json:"tags"`
	Status     *model.PostStatus `json:"status"`
}

type postsResponse struct {
	Posts []*model.Post `json:"posts"`
}

type postResponse struct {
	Post *model.Post `json:"post"`
}

type postDetailResponse struct {
	Post *model.PostDetail `json:"post"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// List は公開記事をページ単位で返す。
// GET /posts?search=&tag=&sort=&page=&limit=
func (h *PostHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	search := query.Get("search")
	if search == "" {
		// 旧クライアントはfilterで検索語を送る
		search = query.Get("filter")
	}

	page, err := h.service.List(r.Context(), post.ListParams{
		Search: search,
		Tag:    query.Get("tag"),
		Sort:   query.Get("sort"),
		Page:   queryInt(r, "page"),
		Limit:  queryInt(r, "limit"),
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, page)
}

// Trending は人気記事を返す。
// GET /posts/trending?limit=
func (h *PostHandler) Trending(w http.ResponseWriter, r *http.Request) {
	posts, err := h.service.Trending(r.Context(), queryInt(r, "limit"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, postsResponse{Posts: posts})
}

// Search はキーワードで公開記事を検索する。
// GET /posts/search?q=
func (h *PostHandler) Search(w http.ResponseWriter, r *http.Request) {
	posts, err := h.service.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, postsResponse{Posts: posts})
}

// ListByAuthor は指定ユーザーの記事を下書きを含めて返す。
// GET /posts/user/{id}
func (h *PostHandler) ListByAuthor(w http.ResponseWriter, r *http.Request) {
	posts, err := h.service.ListByAuthor(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, postsResponse{Posts: posts})
}

// Get は記事詳細を返す。
// GET /posts/{id}
func (h *PostHandler) Get(w http.ResponseWriter, r *http.Request) {
	detail, err := h.service.Get(r.Context(), currentIdentity(r), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, postDetailResponse{Post: detail})
}

// Create は記事を作成する。
// POST /posts
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createPostRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	created, err := h.service.Create(r.Context(), currentIdentity(r), model.PostInput{
		Title:      req.Title,
		Content:    req.Content,
		Summary:    req.Summary,
		CoverImage: req.CoverImage,
		Tags:       req.Tags,
		Status:     req.Status,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, postResponse{Post: created})
}

// Update は記事を更新する。著者本人のみ。
// PUT /posts/{id}
func (h *PostHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updatePostRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	updated, err := h.service.Update(r.Context(), currentIdentity(r), chi.URLParam(r, "id"), model.PostUpdate{
		Title:      req.Title,
		Content:    req.Content,
		Summary:    req.Summary,
		CoverImage: req.CoverImage,
		Tags:       req.Tags,
		Status:     req.Status,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, postResponse{Post: updated})
}

// Delete は記事を削除する。著者本人のみ。
// DELETE /posts/{id}
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), currentIdentity(r), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, messageResponse{Message: "Post deleted successfully"})
}
