package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/hitoshi/writewise/internal/model"
)

// PostgresLikeRepo はPostgreSQLを使用したいいねリポジトリ。
type PostgresLikeRepo struct {
	db *sql.DB
}

// NewPostgresLikeRepo はPostgresLikeRepoを生成する。
func NewPostgresLikeRepo(db *sql.DB) *PostgresLikeRepo {
	return &PostgresLikeRepo{db: db}
}

// Toggle はいいねの有無を反転する。
// 既存のいいねをDELETE ... RETURNINGで消せた場合は解除、消せなかった場合は
// INSERT ... ON CONFLICT DO NOTHINGで登録する。同時押しでも行は最大1件に保たれる。
func (r *PostgresLikeRepo) Toggle(ctx context.Context, userID, postID string) (bool, int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	liked := false
	var deletedID string
	err = tx.QueryRowContext(ctx,
		`DELETE FROM likes WHERE user_id = $1 AND post_id = $2 RETURNING id`,
		userID, postID,
	).Scan(&deletedID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.ExecContext(ctx,
			`INSERT INTO likes (id, user_id, post_id, created_at)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (user_id, post_id) DO NOTHING`,
			uuid.New().String(), userID, postID, time.Now(),
		)
		if err != nil {
			return false, 0, fmt.Errorf("failed to insert like: %w", err)
		}
		liked = true
	case err != nil:
		return false, 0, fmt.Errorf("failed to delete like: %w", err)
	}

	var count int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM likes WHERE post_id = $1`,
		postID,
	).Scan(&count); err != nil {
		return false, 0, fmt.Errorf("failed to count likes: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return liked, count, nil
}

// Exists はユーザーが記事にいいねしているかを返す。
func (r *PostgresLikeRepo) Exists(ctx context.Context, userID, postID string) (bool, error) {
	if !validID(userID) || !validID(postID) {
		return false, nil
	}

	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM likes WHERE user_id = $1 AND post_id = $2)`,
		userID, postID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check like: %w", err)
	}
	return exists, nil
}

// ListLikedPosts はユーザーがいいねした記事をいいねの新しい順に取得する。
func (r *PostgresLikeRepo) ListLikedPosts(ctx context.Context, userID string) ([]*model.LikedPost, error) {
	posts := []*model.LikedPost{}
	if !validID(userID) {
		return posts, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT p.id, p.title, p.content, p.summary, p.cover_image, p.tags, p.status,
		        p.author_id, p.created_at, p.updated_at,
		        u.id, u.name, u.email,
		        (SELECT COUNT(*) FROM likes l2 WHERE l2.post_id = p.id) AS like_count,
		        (SELECT COUNT(*) FROM comments c WHERE c.post_id = p.id) AS comment_count,
		        l.created_at
		   FROM likes l
		   JOIN posts p ON p.id = l.post_id
		   JOIN users u ON u.id = p.author_id
		  WHERE l.user_id = $1
		  ORDER BY l.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list liked posts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p := &model.Post{Author: &model.Author{}}
		lp := &model.LikedPost{Post: p}
		if err := rows.Scan(
			&p.ID, &p.Title, &p.Content, &p.Summary, &p.CoverImage,
			pq.Array(&p.Tags), &p.Status,
			&p.AuthorID, &p.CreatedAt, &p.UpdatedAt,
			&p.Author.ID, &p.Author.Name, &p.Author.Email,
			&p.Count.Likes, &p.Count.Comments,
			&lp.LikedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan liked post: %w", err)
		}
		if p.Tags == nil {
			p.Tags = []string{}
		}
		posts = append(posts, lp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate liked posts: %w", err)
	}
	return posts, nil
}

// compile-time interface check
var _ LikeRepository = (*PostgresLikeRepo)(nil)
