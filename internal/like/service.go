// Package like は記事へのいいねのドメインロジックを提供する。
package like

import (
	"context"
	"fmt"

	"github.com/hitoshi/writewise/internal/model"
	"github.com/hitoshi/writewise/internal/repository"
)

// PostFinder は記事の存在確認インターフェース。
type PostFinder interface {
	FindByID(ctx context.Context, id string) (*model.Post, error)
}

// ToggleResult はいいね切り替え後の状態。
type ToggleResult struct {
	Liked     bool `json:"liked"`
	LikeCount int  `json:"likeCount"`
}

// Service はいいねのサービス層。
type Service struct {
	likes repository.LikeRepository
	posts PostFinder
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(likes repository.LikeRepository, posts PostFinder) *Service {
	return &Service{likes: likes, posts: posts}
}

// Toggle はidentityのいいねを付け外しする。記事が存在しない場合はNOT_FOUND。
func (s *Service) Toggle(ctx context.Context, identity *model.Identity, postID string) (*ToggleResult, error) {
	if identity == nil {
		return nil, model.NewUnauthorizedError(model.MsgNoTokenProvided)
	}

	post, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("記事の取得に失敗しました: %w", err)
	}
	if post == nil {
		return nil, model.NewNotFoundError("Post")
	}

	liked, count, err := s.likes.Toggle(ctx, identity.SubjectID, post.ID)
	if err != nil {
		return nil, fmt.Errorf("いいねの切り替えに失敗しました: %w", err)
	}
	return &ToggleResult{Liked: liked, LikeCount: count}, nil
}

// ListLiked はユーザーがいいねした記事をいいねの新しい順に返す。
func (s *Service) ListLiked(ctx context.Context, userID string) ([]*model.LikedPost, error) {
	posts, err := s.likes.ListLikedPosts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("いいねした記事の取得に失敗しました: %w", err)
	}
	if posts == nil {
		posts = []*model.LikedPost{}
	}
	return posts, nil
}
