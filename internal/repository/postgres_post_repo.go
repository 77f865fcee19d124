package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/hitoshi/writewise/internal/model"
)

// postSelect は記事に著者情報と件数を付与して取得する共通のSELECT句。
const postSelect = `SELECT p.id, p.title, p.content, p.summary, p.cover_image, p.tags, p.status,
       p.author_id, p.created_at, p.updated_at,
       u.id, u.name, u.email,
       (SELECT COUNT(*) FROM likes l WHERE l.post_id = p.id) AS like_count,
       (SELECT COUNT(*) FROM comments c WHERE c.post_id = p.id) AS comment_count
  FROM posts p
  JOIN users u ON u.id = p.author_id`

// PostgresPostRepo はPostgreSQLを使用した記事リポジトリ。
type PostgresPostRepo struct {
	db *sql.DB
}

// NewPostgresPostRepo はPostgresPostRepoを生成する。
func NewPostgresPostRepo(db *sql.DB) *PostgresPostRepo {
	return &PostgresPostRepo{db: db}
}

func scanPost(row rowScanner) (*model.Post, error) {
	post := &model.Post{Author: &model.Author{}}
	err := row.Scan(
		&post.ID, &post.Title, &post.Content, &post.Summary, &post.CoverImage,
		pq.Array(&post.Tags), &post.Status,
		&post.AuthorID, &post.CreatedAt, &post.UpdatedAt,
		&post.Author.ID, &post.Author.Name, &post.Author.Email,
		&post.Count.Likes, &post.Count.Comments,
	)
	if err != nil {
		return nil, err
	}
	if post.Tags == nil {
		post.Tags = []string{}
	}
	return post, nil
}

func (r *PostgresPostRepo) queryPosts(ctx context.Context, query string, args ...any) ([]*model.Post, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := []*model.Post{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return posts, nil
}

// List は公開済み記事を条件付きで取得し、総件数とともに返す。
func (r *PostgresPostRepo) List(ctx context.Context, query model.PostQuery) ([]*model.Post, int, error) {
	where := []string{"p.status = 'published'"}
	var args []any
	if query.Search != "" {
		args = append(args, likePattern(query.Search))
		where = append(where, fmt.Sprintf("(p.title ILIKE $%d OR p.content ILIKE $%d)", len(args), len(args)))
	}
	if query.Tag != "" {
		args = append(args, query.Tag)
		where = append(where, fmt.Sprintf("$%d = ANY(p.tags)", len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM posts p WHERE `+cond, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count posts: %w", err)
	}

	order := "DESC"
	if query.Sort == model.PostSortDateAsc {
		order = "ASC"
	}
	args = append(args, query.Limit, query.Offset())
	listQuery := fmt.Sprintf(`%s WHERE %s ORDER BY p.created_at %s LIMIT $%d OFFSET $%d`,
		postSelect, cond, order, len(args)-1, len(args))

	posts, err := r.queryPosts(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list posts: %w", err)
	}
	return posts, total, nil
}

// Trending は公開済み記事をいいね数の多い順に取得する。
func (r *PostgresPostRepo) Trending(ctx context.Context, limit int) ([]*model.Post, error) {
	posts, err := r.queryPosts(ctx,
		postSelect+` WHERE p.status = 'published' ORDER BY like_count DESC, p.created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list trending posts: %w", err)
	}
	return posts, nil
}

// Search はタイトル・本文の部分一致またはタグの完全一致で公開済み記事を検索する。
func (r *PostgresPostRepo) Search(ctx context.Context, query string) ([]*model.Post, error) {
	posts, err := r.queryPosts(ctx,
		postSelect+` WHERE p.status = 'published'
		   AND (p.title ILIKE $1 OR p.content ILIKE $1 OR $2 = ANY(p.tags))
		 ORDER BY p.created_at DESC`,
		likePattern(query), query,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search posts: %w", err)
	}
	return posts, nil
}

// ListByAuthor は著者の記事を状態に関わらず新しい順に取得する。
func (r *PostgresPostRepo) ListByAuthor(ctx context.Context, authorID string) ([]*model.Post, error) {
	if !validID(authorID) {
		return []*model.Post{}, nil
	}
	posts, err := r.queryPosts(ctx,
		postSelect+` WHERE p.author_id = $1 ORDER BY p.created_at DESC`,
		authorID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts by author: %w", err)
	}
	return posts, nil
}

// FindByID は指定IDの記事を取得する。見つからない場合はnilを返す。
func (r *PostgresPostRepo) FindByID(ctx context.Context, id string) (*model.Post, error) {
	if !validID(id) {
		return nil, nil
	}

	post, err := scanPost(r.db.QueryRowContext(ctx, postSelect+` WHERE p.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find post by ID: %w", err)
	}
	return post, nil
}

// Create は記事を作成する。
func (r *PostgresPostRepo) Create(ctx context.Context, post *model.Post) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO posts (id, title, content, summary, cover_image, tags, status, author_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		post.ID, post.Title, post.Content, post.Summary, post.CoverImage,
		pq.Array(post.Tags), post.Status, post.AuthorID, post.CreatedAt, post.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert post: %w", err)
	}
	return nil
}

// Update は指定されたフィールドのみを更新する。
func (r *PostgresPostRepo) Update(ctx context.Context, id string, update model.PostUpdate) (bool, error) {
	if !validID(id) {
		return false, nil
	}

	sets := []string{"updated_at = NOW()"}
	var args []any
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if update.Title != nil {
		set("title", *update.Title)
	}
	if update.Content != nil {
		set("content", *update.Content)
	}
	if update.Summary != nil {
		set("summary", nullIfEmpty(*update.Summary))
	}
	if update.CoverImage != nil {
		set("cover_image", nullIfEmpty(*update.CoverImage))
	}
	if update.Tags != nil {
		set("tags", pq.Array(*update.Tags))
	}
	if update.Status != nil {
		set("status", *update.Status)
	}
	args = append(args, id)

	result, err := r.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE posts SET %s WHERE id = $%d`, strings.Join(sets, ", "), len(args)),
		args...,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update post: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// Delete は指定IDの記事を削除する。
func (r *PostgresPostRepo) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return fmt.Errorf("post not found: %s", id)
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("post not found: %s", id)
	}
	return nil
}

// nullIfEmpty は空文字をNULLとして保存するための変換。
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// compile-time interface check
var _ PostRepository = (*PostgresPostRepo)(nil)
