// Package post は記事の閲覧・作成・更新・削除のドメインロジックを提供する。
package post

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/writewise/internal/model"
	"github.com/hitoshi/writewise/internal/ownership"
	"github.com/hitoshi/writewise/internal/repository"
	"github.com/hitoshi/writewise/internal/security"
)

// 一覧取得の既定値と上限。
const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 50
	MaxTags      = 20

	// MaxPage は(page-1)*MaxLimitがintに収まる最大のページ番号。
	MaxPage = math.MaxInt / MaxLimit
)

// URLValidator はユーザーが指定したURLの検証インターフェース。
// security.URLGuardの部分集合として定義する。
type URLValidator interface {
	ValidateURL(rawURL string) error
}

// ListParams は公開記事一覧のリクエストパラメータ。
// PageとLimitの0以下は既定値として扱う。
type ListParams struct {
	Search string
	Tag    string
	Sort   string
	Page   int
	Limit  int
}

// Service は記事のサービス層。
type Service struct {
	posts     repository.PostRepository
	comments  repository.CommentRepository
	likes     repository.LikeRepository
	sanitizer security.ContentSanitizer
	urls      URLValidator
	guard     *ownership.Guard[*model.Post]
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	posts repository.PostRepository,
	comments repository.CommentRepository,
	likes repository.LikeRepository,
	sanitizer security.ContentSanitizer,
	urls URLValidator,
) *Service {
	return &Service{
		posts:     posts,
		comments:  comments,
		likes:     likes,
		sanitizer: sanitizer,
		urls:      urls,
		guard:     ownership.NewGuard[*model.Post]("Post", posts.FindByID),
		now:       time.Now,
	}
}

// List は公開済み記事をページ単位で返す。
func (s *Service) List(ctx context.Context, params ListParams) (*model.PostPage, error) {
	query := model.PostQuery{
		Search: strings.TrimSpace(params.Search),
		Tag:    strings.TrimSpace(params.Tag),
		Sort:   model.PostSortDateDesc,
		Page:   params.Page,
		Limit:  clampLimit(params.Limit),
	}
	if query.Page < 1 {
		query.Page = DefaultPage
	}
	if query.Page > MaxPage {
		query.Page = MaxPage
	}
	if model.PostSort(params.Sort) == model.PostSortDateAsc {
		query.Sort = model.PostSortDateAsc
	}

	posts, total, err := s.posts.List(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("記事一覧の取得に失敗しました: %w", err)
	}

	return &model.PostPage{
		Posts:      nonNil(posts),
		Pagination: model.NewPagination(query.Page, query.Limit, total),
	}, nil
}

// Trending は公開済み記事をいいね数の多い順に返す。
func (s *Service) Trending(ctx context.Context, limit int) ([]*model.Post, error) {
	posts, err := s.posts.Trending(ctx, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("人気記事の取得に失敗しました: %w", err)
	}
	return nonNil(posts), nil
}

// Search はキーワードで公開済み記事を検索する。空のキーワードは検証エラー。
func (s *Service) Search(ctx context.Context, q string) ([]*model.Post, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, model.NewValidationError("Search query is required")
	}

	posts, err := s.posts.Search(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("記事の検索に失敗しました: %w", err)
	}
	return nonNil(posts), nil
}

// ListByAuthor は著者の記事を下書きを含めて返す。
func (s *Service) ListByAuthor(ctx context.Context, authorID string) ([]*model.Post, error) {
	posts, err := s.posts.ListByAuthor(ctx, authorID)
	if err != nil {
		return nil, fmt.Errorf("著者の記事一覧の取得に失敗しました: %w", err)
	}
	return nonNil(posts), nil
}

// Get は記事詳細をコメント付きで返す。
// identityがnil（匿名）の場合、hasLikedは常にfalse。
func (s *Service) Get(ctx context.Context, identity *model.Identity, id string) (*model.PostDetail, error) {
	post, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("記事の取得に失敗しました: %w", err)
	}
	if post == nil {
		return nil, model.NewNotFoundError("Post")
	}

	comments, err := s.comments.ListByPost(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("コメントの取得に失敗しました: %w", err)
	}
	if comments == nil {
		comments = []*model.Comment{}
	}

	hasLiked := false
	if identity != nil {
		hasLiked, err = s.likes.Exists(ctx, identity.SubjectID, id)
		if err != nil {
			return nil, fmt.Errorf("いいね状態の取得に失敗しました: %w", err)
		}
	}

	return &model.PostDetail{Post: post, Comments: comments, HasLiked: hasLiked}, nil
}

// Create はidentityを著者として記事を作成する。状態の既定は下書き。
func (s *Service) Create(ctx context.Context, identity *model.Identity, in model.PostInput) (*model.Post, error) {
	if identity == nil {
		return nil, model.NewUnauthorizedError(model.MsgNoTokenProvided)
	}

	title := s.sanitizer.StripTags(in.Title)
	if title == "" {
		return nil, model.NewValidationError("Title is required")
	}

	status := in.Status
	if status == "" {
		status = model.PostStatusDraft
	}
	if !status.Valid() {
		return nil, model.NewValidationError("Status must be draft or published")
	}

	tags, err := s.normalizeTags(in.Tags)
	if err != nil {
		return nil, err
	}

	coverImage, err := s.normalizeCoverImage(in.CoverImage)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	post := &model.Post{
		ID:         uuid.NewString(),
		Title:      title,
		Content:    s.sanitizer.SanitizeHTML(in.Content),
		Summary:    s.normalizeSummary(in.Summary),
		CoverImage: coverImage,
		Tags:       tags,
		Status:     status,
		AuthorID:   identity.SubjectID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.posts.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("記事の作成に失敗しました: %w", err)
	}

	slog.Info("post created",
		slog.String("post_id", post.ID),
		slog.String("user_id", identity.SubjectID),
		slog.String("status", string(status)),
	)

	return s.reload(ctx, post.ID)
}

// Update は所有者のみが記事を部分更新できる。
func (s *Service) Update(ctx context.Context, identity *model.Identity, id string, in model.PostUpdate) (*model.Post, error) {
	if _, err := s.guard.Authorize(ctx, identity, id, "update this post"); err != nil {
		return nil, err
	}

	update, err := s.sanitizeUpdate(in)
	if err != nil {
		return nil, err
	}

	found, err := s.posts.Update(ctx, id, update)
	if err != nil {
		return nil, fmt.Errorf("記事の更新に失敗しました: %w", err)
	}
	if !found {
		return nil, model.NewNotFoundError("Post")
	}

	return s.reload(ctx, id)
}

// Delete は所有者のみが記事を削除できる。コメントといいねも削除される。
func (s *Service) Delete(ctx context.Context, identity *model.Identity, id string) error {
	if _, err := s.guard.Authorize(ctx, identity, id, "delete this post"); err != nil {
		return err
	}

	if err := s.posts.Delete(ctx, id); err != nil {
		return fmt.Errorf("記事の削除に失敗しました: %w", err)
	}

	slog.Info("post deleted",
		slog.String("post_id", id),
		slog.String("user_id", identity.SubjectID),
	)
	return nil
}

// reload は作成・更新後の記事を著者情報と件数付きで取得し直す。
func (s *Service) reload(ctx context.Context, id string) (*model.Post, error) {
	post, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("記事の再取得に失敗しました: %w", err)
	}
	if post == nil {
		return nil, model.NewNotFoundError("Post")
	}
	return post, nil
}

func (s *Service) sanitizeUpdate(in model.PostUpdate) (model.PostUpdate, error) {
	var out model.PostUpdate

	if in.Title != nil {
		title := s.sanitizer.StripTags(*in.Title)
		if title == "" {
			return out, model.NewValidationError("Title is required")
		}
		out.Title = &title
	}
	if in.Content != nil {
		content := s.sanitizer.SanitizeHTML(*in.Content)
		out.Content = &content
	}
	if in.Summary != nil {
		// 空文字はNULLへの更新として扱う
		summary := s.sanitizer.StripTags(*in.Summary)
		out.Summary = &summary
	}
	if in.CoverImage != nil {
		cover := ""
		if normalized, err := s.normalizeCoverImage(in.CoverImage); err != nil {
			return out, err
		} else if normalized != nil {
			cover = *normalized
		}
		out.CoverImage = &cover
	}
	if in.Tags != nil {
		tags, err := s.normalizeTags(*in.Tags)
		if err != nil {
			return out, err
		}
		out.Tags = &tags
	}
	if in.Status != nil {
		if !in.Status.Valid() {
			return out, model.NewValidationError("Status must be draft or published")
		}
		status := *in.Status
		out.Status = &status
	}
	return out, nil
}

func (s *Service) normalizeSummary(summary *string) *string {
	if summary == nil {
		return nil
	}
	cleaned := s.sanitizer.StripTags(*summary)
	if cleaned == "" {
		return nil
	}
	return &cleaned
}

// normalizeCoverImage は空のURLをnilに変換し、それ以外は内部アドレスを指していないか検証する。
func (s *Service) normalizeCoverImage(raw *string) (*string, error) {
	if raw == nil {
		return nil, nil
	}
	url := strings.TrimSpace(*raw)
	if url == "" {
		return nil, nil
	}
	if err := s.urls.ValidateURL(url); err != nil {
		slog.Warn("cover image url rejected", slog.String("error", err.Error()))
		return nil, model.NewValidationError("Invalid cover image URL")
	}
	return &url, nil
}

// normalizeTags はタグの前後空白とタグ文字列を除去し、空要素と重複を取り除く。
func (s *Service) normalizeTags(tags []string) ([]string, error) {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		t := s.sanitizer.StripTags(tag)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	if len(out) > MaxTags {
		return nil, model.NewValidationError(fmt.Sprintf("A post can have at most %d tags", MaxTags))
	}
	return out, nil
}

func clampLimit(limit int) int {
	if limit < 1 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

func nonNil(posts []*model.Post) []*model.Post {
	if posts == nil {
		return []*model.Post{}
	}
	return posts
}
