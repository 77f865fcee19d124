package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/writewise/internal/model"
)

// PostgresStatsRepo はPostgreSQLを使用した集計リポジトリ。
type PostgresStatsRepo struct {
	db *sql.DB
}

// NewPostgresStatsRepo はPostgresStatsRepoを生成する。
func NewPostgresStatsRepo(db *sql.DB) *PostgresStatsRepo {
	return &PostgresStatsRepo{db: db}
}

// UserStats はユーザーの記事数と、その記事が受けたいいね数・コメント数を1クエリで集計する。
func (r *PostgresStatsRepo) UserStats(ctx context.Context, userID string) (*model.UserStats, error) {
	stats := &model.UserStats{}
	if !validID(userID) {
		return stats, nil
	}

	err := r.db.QueryRowContext(ctx,
		`SELECT
		   (SELECT COUNT(*) FROM posts WHERE author_id = $1),
		   (SELECT COUNT(*) FROM posts WHERE author_id = $1 AND status = 'draft'),
		   (SELECT COUNT(*) FROM posts WHERE author_id = $1 AND status = 'published'),
		   (SELECT COUNT(*) FROM likes l JOIN posts p ON p.id = l.post_id WHERE p.author_id = $1),
		   (SELECT COUNT(*) FROM comments c JOIN posts p ON p.id = c.post_id WHERE p.author_id = $1)`,
		userID,
	).Scan(&stats.TotalPosts, &stats.Drafts, &stats.Published, &stats.TotalLikes, &stats.TotalComments)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate user stats: %w", err)
	}
	return stats, nil
}

// compile-time interface check
var _ StatsRepository = (*PostgresStatsRepo)(nil)
