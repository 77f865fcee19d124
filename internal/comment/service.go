// Package comment は記事へのコメントのドメインロジックを提供する。
package comment

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/hitoshi/writewise/internal/model"
	"github.com/hitoshi/writewise/internal/ownership"
	"github.com/hitoshi/writewise/internal/repository"
	"github.com/hitoshi/writewise/internal/security"
)

// MaxContentLength はコメント本文の最大文字数。
const MaxContentLength = 5000

// PostFinder は記事の存在確認インターフェース。
type PostFinder interface {
	FindByID(ctx context.Context, id string) (*model.Post, error)
}

// Service はコメントのサービス層。
type Service struct {
	comments  repository.CommentRepository
	posts     PostFinder
	sanitizer security.ContentSanitizer
	guard     *ownership.Guard[*model.Comment]
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(comments repository.CommentRepository, posts PostFinder, sanitizer security.ContentSanitizer) *Service {
	return &Service{
		comments:  comments,
		posts:     posts,
		sanitizer: sanitizer,
		guard:     ownership.NewGuard[*model.Comment]("Comment", comments.FindByID),
		now:       time.Now,
	}
}

// ListByPost は記事のコメントを新しい順に返す。
func (s *Service) ListByPost(ctx context.Context, postID string) ([]*model.Comment, error) {
	comments, err := s.comments.ListByPost(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("コメント一覧の取得に失敗しました: %w", err)
	}
	return nonNil(comments), nil
}

// ListByUser はユーザーのコメントを記事の参照付きで返す。
func (s *Service) ListByUser(ctx context.Context, userID string) ([]*model.Comment, error) {
	comments, err := s.comments.ListByAuthor(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーのコメント一覧の取得に失敗しました: %w", err)
	}
	return nonNil(comments), nil
}

// Add はidentityを投稿者として記事にコメントする。
// 本文はプレーンテキストとして保存する。
func (s *Service) Add(ctx context.Context, identity *model.Identity, postID, content string) (*model.Comment, error) {
	if identity == nil {
		return nil, model.NewUnauthorizedError(model.MsgNoTokenProvided)
	}

	text := s.sanitizer.StripTags(content)
	if text == "" {
		return nil, model.NewValidationError("Comment content is required")
	}
	if utf8.RuneCountInString(text) > MaxContentLength {
		return nil, model.NewValidationError(fmt.Sprintf("Comment must be at most %d characters", MaxContentLength))
	}

	post, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("記事の取得に失敗しました: %w", err)
	}
	if post == nil {
		return nil, model.NewNotFoundError("Post")
	}

	now := s.now().UTC()
	comment := &model.Comment{
		ID:        uuid.NewString(),
		Content:   text,
		PostID:    post.ID,
		AuthorID:  identity.SubjectID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, fmt.Errorf("コメントの作成に失敗しました: %w", err)
	}

	slog.Info("comment added",
		slog.String("comment_id", comment.ID),
		slog.String("post_id", post.ID),
		slog.String("user_id", identity.SubjectID),
	)

	created, err := s.comments.FindByID(ctx, comment.ID)
	if err != nil {
		return nil, fmt.Errorf("コメントの再取得に失敗しました: %w", err)
	}
	if created == nil {
		return comment, nil
	}
	return created, nil
}

// Delete は投稿者のみがコメントを削除できる。
func (s *Service) Delete(ctx context.Context, identity *model.Identity, id string) error {
	if _, err := s.guard.Authorize(ctx, identity, id, "delete this comment"); err != nil {
		return err
	}

	if err := s.comments.Delete(ctx, id); err != nil {
		return fmt.Errorf("コメントの削除に失敗しました: %w", err)
	}

	slog.Info("comment deleted",
		slog.String("comment_id", id),
		slog.String("user_id", identity.SubjectID),
	)
	return nil
}

func nonNil(comments []*model.Comment) []*model.Comment {
	if comments == nil {
		return []*model.Comment{}
	}
	return comments
}
