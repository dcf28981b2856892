package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresLikeRepo はPostgreSQLを使用したいいねリポジトリ。
type PostgresLikeRepo struct {
	db *sql.DB
}

// NewPostgresLikeRepo はPostgresLikeRepoを生成する。
func NewPostgresLikeRepo(db *sql.DB) *PostgresLikeRepo {
	return &PostgresLikeRepo{db: db}
}

// Upsert はいいねを登録する。
// 主キー(developer_id, post_id)に対するINSERT ON CONFLICT DO NOTHINGで、
// 同時に重複したリクエストがあっても1行のみ残りエラーにならない。
func (r *PostgresLikeRepo) Upsert(ctx context.Context, developerID, postID int64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO post_likes (developer_id, post_id) VALUES ($1, $2)
		 ON CONFLICT (developer_id, post_id) DO NOTHING`,
		developerID, postID,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert like: %w", err)
	}
	return nil
}

// Delete はいいねを削除する。存在しない場合もエラーにしない。
func (r *PostgresLikeRepo) Delete(ctx context.Context, developerID, postID int64) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM post_likes WHERE developer_id = $1 AND post_id = $2`,
		developerID, postID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete like: %w", err)
	}
	return nil
}

// compile-time interface check
var _ LikeRepository = (*PostgresLikeRepo)(nil)
