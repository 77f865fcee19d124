package model

import "time"

// PostRef はコメント一覧に埋め込む記事の参照。
type PostRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Comment は記事へのコメントを表す。
type Comment struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	PostID    string    `json:"postId"`
	AuthorID  string    `json:"authorId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Author *Author  `json:"author,omitempty"`
	Post   *PostRef `json:"post,omitempty"`
}

// OwnerID はコメントの所有者（投稿者）のIDを返す。
func (c *Comment) OwnerID() string {
	return c.AuthorID
}
