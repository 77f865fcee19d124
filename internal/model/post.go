package model

import (
	"math"
	"time"
)

// PostStatus は記事の公開状態を表す。
type PostStatus string

const (
	PostStatusDraft     PostStatus = "draft"
	PostStatusPublished PostStatus = "published"
)

// Valid は定義済みの状態かどうかを返す。
func (s PostStatus) Valid() bool {
	return s == PostStatusDraft || s == PostStatusPublished
}

// Author は記事・コメントに埋め込む著者の公開情報。
type Author struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// PostCounts は記事に紐づく件数。
type PostCounts struct {
	Likes    int `json:"likes"`
	Comments int `json:"comments"`
}

// Post はブログ記事を表す。
type Post struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Content    string     `json:"content"`
	Summary    *string    `json:"summary"`
	CoverImage *string    `json:"coverImage"`
	Tags       []string   `json:"tags"`
	Status     PostStatus `json:"status"`
	AuthorID   string     `json:"authorId"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`

	Author *Author    `json:"author,omitempty"`
	Count  PostCounts `json:"_count"`
}

// OwnerID は記事の所有者（著者）のIDを返す。
func (p *Post) OwnerID() string {
	return p.AuthorID
}

// PostDetail は記事詳細のレスポンス。閲覧者ごとのいいね状態を含む。
type PostDetail struct {
	*Post
	Comments []*Comment `json:"comments"`
	HasLiked bool       `json:"hasLiked"`
}

// LikedPost はいいねした記事といいね日時。
type LikedPost struct {
	*Post
	LikedAt time.Time `json:"likedAt"`
}

// PostSort は記事一覧の並び順。
type PostSort string

const (
	PostSortDateDesc PostSort = "date_desc"
	PostSortDateAsc  PostSort = "date_asc"
)

// PostQuery は公開記事一覧の検索条件。
type PostQuery struct {
	Search string
	Tag    string
	Sort   PostSort
	Page   int
	Limit  int
}

// Offset はページ番号からOFFSET値を算出する。
// 乗算がintの範囲を超える場合はmath.MaxIntに飽和させる。
func (q PostQuery) Offset() int {
	if q.Page < 1 || q.Limit < 1 {
		return 0
	}
	if q.Page-1 > math.MaxInt/q.Limit {
		return math.MaxInt
	}
	return (q.Page - 1) * q.Limit
}

// Pagination は一覧のページ情報。
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// NewPagination は総件数からページ情報を組み立てる。
func NewPagination(page, limit, total int) Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return Pagination{Page: page, Limit: limit, Total: total, TotalPages: totalPages}
}

// PostPage は記事一覧とページ情報。
type PostPage struct {
	Posts      []*Post    `json:"posts"`
	Pagination Pagination `json:"pagination"`
}

// PostInput は記事作成の入力。
type PostInput struct {
	Title      string
	Content    string
	Summary    *string
	CoverImage *string
	Tags       []string
	Status     PostStatus
}

// PostUpdate は記事更新の入力。nilのフィールドは変更しない。
type PostUpdate struct {
	Title      *string
	Content    *string
	Summary    *string
	CoverImage *string
	Tags       *[]string
	Status     *PostStatus
}
