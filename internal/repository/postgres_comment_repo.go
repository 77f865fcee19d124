package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/writewise/internal/model"
)

const commentSelect = `SELECT c.id, c.content, c.post_id, c.author_id, c.created_at, c.updated_at,
       u.id, u.name, u.email
  FROM comments c
  JOIN users u ON u.id = c.author_id`

// PostgresCommentRepo はPostgreSQLを使用したコメントリポジトリ。
type PostgresCommentRepo struct {
	db *sql.DB
}

// NewPostgresCommentRepo はPostgresCommentRepoを生成する。
func NewPostgresCommentRepo(db *sql.DB) *PostgresCommentRepo {
	return &PostgresCommentRepo{db: db}
}

func scanComment(row rowScanner, extra ...any) (*model.Comment, error) {
	c := &model.Comment{Author: &model.Author{}}
	dest := []any{
		&c.ID, &c.Content, &c.PostID, &c.AuthorID, &c.CreatedAt, &c.UpdatedAt,
		&c.Author.ID, &c.Author.Name, &c.Author.Email,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return c, nil
}

// ListByPost は記事のコメントを新しい順に取得する。
func (r *PostgresCommentRepo) ListByPost(ctx context.Context, postID string) ([]*model.Comment, error) {
	comments := []*model.Comment{}
	if !validID(postID) {
		return comments, nil
	}

	rows, err := r.db.QueryContext(ctx,
		commentSelect+` WHERE c.post_id = $1 ORDER BY c.created_at DESC`,
		postID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments by post: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate comments: %w", err)
	}
	return comments, nil
}

// ListByAuthor はユーザーのコメントを記事のIDとタイトル付きで新しい順に取得する。
func (r *PostgresCommentRepo) ListByAuthor(ctx context.Context, authorID string) ([]*model.Comment, error) {
	comments := []*model.Comment{}
	if !validID(authorID) {
		return comments, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT c.id, c.content, c.post_id, c.author_id, c.created_at, c.updated_at,
		        u.id, u.name, u.email, p.id, p.title
		   FROM comments c
		   JOIN users u ON u.id = c.author_id
		   JOIN posts p ON p.id = c.post_id
		  WHERE c.author_id = $1
		  ORDER BY c.created_at DESC`,
		authorID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments by author: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		ref := &model.PostRef{}
		c, err := scanComment(rows, &ref.ID, &ref.Title)
		if err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		c.Post = ref
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate comments: %w", err)
	}
	return comments, nil
}

// FindByID は指定IDのコメントを取得する。見つからない場合はnilを返す。
func (r *PostgresCommentRepo) FindByID(ctx context.Context, id string) (*model.Comment, error) {
	if !validID(id) {
		return nil, nil
	}

	c, err := scanComment(r.db.QueryRowContext(ctx, commentSelect+` WHERE c.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find comment by ID: %w", err)
	}
	return c, nil
}

// Create はコメントを作成する。
func (r *PostgresCommentRepo) Create(ctx context.Context, comment *model.Comment) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO comments (id, content, post_id, author_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		comment.ID, comment.Content, comment.PostID, comment.AuthorID, comment.CreatedAt, comment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert comment: %w", err)
	}
	return nil
}

// Delete は指定IDのコメントを削除する。
func (r *PostgresCommentRepo) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return fmt.Errorf("comment not found: %s", id)
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("comment not found: %s", id)
	}
	return nil
}

// compile-time interface check
var _ CommentRepository = (*PostgresCommentRepo)(nil)
