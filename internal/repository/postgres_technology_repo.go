package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/TechmongersNL/coders-network-api/internal/model"
)

// PostgresTechnologyRepo はPostgreSQLを使用したお気に入り技術リポジトリ。
type PostgresTechnologyRepo struct {
	db *sql.DB
}

// NewPostgresTechnologyRepo はPostgresTechnologyRepoを生成する。
func NewPostgresTechnologyRepo(db *sql.DB) *PostgresTechnologyRepo {
	return &PostgresTechnologyRepo{db: db}
}

// ListByDeveloper は開発者のお気に入り技術をタイトル順で返す。
func (r *PostgresTechnologyRepo) ListByDeveloper(ctx context.Context, developerID int64) ([]model.Technology, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT t.id, t.title
		 FROM favorite_technologies ft
		 JOIN technologies t ON t.id = ft.technology_id
		 WHERE ft.developer_id = $1
		 ORDER BY t.title`,
		developerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list technologies: %w", err)
	}
	defer rows.Close()

	techs := []model.Technology{}
	for rows.Next() {
		var t model.Technology
		if err := rows.Scan(&t.ID, &t.Title); err != nil {
			return nil, fmt.Errorf("failed to scan technology: %w", err)
		}
		techs = append(techs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate technologies: %w", err)
	}
	return techs, nil
}

// ReplaceForDeveloper は開発者のお気に入り技術を指定タイトルの集合で同一トランザクション内で置き換える。
// 既存の技術は created_at を更新し、孤立技術削除の猶予期間を再適用する。
func (r *PostgresTechnologyRepo) ReplaceForDeveloper(ctx context.Context, developerID int64, titles []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM favorite_technologies WHERE developer_id = $1`, developerID,
	); err != nil {
		return fmt.Errorf("failed to clear favorite technologies: %w", err)
	}

	for _, title := range model.NormalizeNames(titles) {
		var techID int64
		err := tx.QueryRowContext(ctx,
			`INSERT INTO technologies (title) VALUES ($1)
			 ON CONFLICT (title) DO UPDATE SET created_at = now()
			 RETURNING id`,
			title,
		).Scan(&techID)
		if err != nil {
			return fmt.Errorf("failed to upsert technology %q: %w", title, err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO favorite_technologies (developer_id, technology_id) VALUES ($1, $2)
			 ON CONFLICT DO NOTHING`,
			developerID, techID,
		); err != nil {
			return fmt.Errorf("failed to link technology %q: %w", title, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// compile-time interface check
var _ TechnologyRepository = (*PostgresTechnologyRepo)(nil)
