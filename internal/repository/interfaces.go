// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/writewise/internal/model"
)

// ErrDuplicateEmail はメールアドレスの一意制約違反を表す。
var ErrDuplicateEmail = errors.New("email already exists")

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレス（大文字小文字を区別しない）でユーザーを取得する。
	// 見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。メールアドレスが重複する場合はErrDuplicateEmailを返す。
	Create(ctx context.Context, user *model.User) error

	// UpdateProfile は名前・メールアドレスを部分更新し、更新後のユーザーを返す。
	// 見つからない場合はnil、メールアドレスが重複する場合はErrDuplicateEmailを返す。
	UpdateProfile(ctx context.Context, id string, update model.ProfileUpdate) (*model.User, error)

	// DeleteByID は指定IDのユーザーを削除する。
	// 関連するposts、comments、likesはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// PostRepository は記事データの永続化インターフェース。
// 読み出し系はすべて著者情報といいね数・コメント数を埋め込んで返す。
type PostRepository interface {
	// List は公開済み記事をqueryの条件で取得し、条件に一致する総件数とともに返す。
	List(ctx context.Context, query model.PostQuery) ([]*model.Post, int, error)

	// Trending は公開済み記事をいいね数の多い順に取得する。
	Trending(ctx context.Context, limit int) ([]*model.Post, error)

	// Search はタイトル・本文の部分一致またはタグの完全一致で公開済み記事を検索する。
	Search(ctx context.Context, query string) ([]*model.Post, error)

	// ListByAuthor は著者の記事を状態に関わらず新しい順に取得する。
	ListByAuthor(ctx context.Context, authorID string) ([]*model.Post, error)

	// FindByID は指定IDの記事を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Post, error)

	// Create は記事を作成する。
	Create(ctx context.Context, post *model.Post) error

	// Update は記事を部分更新する。見つからない場合はfalseを返す。
	Update(ctx context.Context, id string, update model.PostUpdate) (bool, error)

	// Delete は指定IDの記事を削除する。コメントといいねはCASCADE削除される。
	Delete(ctx context.Context, id string) error
}

// CommentRepository はコメントデータの永続化インターフェース。
type CommentRepository interface {
	// ListByPost は記事のコメントを新しい順に取得する。
	ListByPost(ctx context.Context, postID string) ([]*model.Comment, error)

	// ListByAuthor はユーザーのコメントを記事の参照付きで新しい順に取得する。
	ListByAuthor(ctx context.Context, authorID string) ([]*model.Comment, error)

	// FindByID は指定IDのコメントを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Comment, error)

	// Create はコメントを作成する。
	Create(ctx context.Context, comment *model.Comment) error

	// Delete は指定IDのコメントを削除する。
	Delete(ctx context.Context, id string) error
}

// LikeRepository はいいねデータの永続化インターフェース。
type LikeRepository interface {
	// Toggle はいいねの有無を反転し、反転後の状態と記事のいいね数を返す。
	// 同一トランザクション内で実行され、同じユーザーのいいねが2件になることはない。
	Toggle(ctx context.Context, userID, postID string) (liked bool, count int, err error)

	// Exists はユーザーが記事にいいねしているかを返す。
	Exists(ctx context.Context, userID, postID string) (bool, error)

	// ListLikedPosts はユーザーがいいねした記事をいいねの新しい順に取得する。
	ListLikedPosts(ctx context.Context, userID string) ([]*model.LikedPost, error)
}

// StatsRepository はダッシュボード用の集計インターフェース。
type StatsRepository interface {
	// UserStats はユーザーの記事数と、その記事が受けたいいね数・コメント数を集計する。
	UserStats(ctx context.Context, userID string) (*model.UserStats, error)
}
