package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/TechmongersNL/coders-network-api/internal/model"
)

const developerColumns = `id, email, password, name, COALESCE(intro, ''), COALESCE(github_username, ''),
	COALESCE(website, ''), created_at, updated_at`

// PostgresDeveloperRepo はPostgreSQLを使用した開発者リポジトリ。
type PostgresDeveloperRepo struct {
	db *sql.DB
}

// NewPostgresDeveloperRepo はPostgresDeveloperRepoを生成する。
func NewPostgresDeveloperRepo(db *sql.DB) *PostgresDeveloperRepo {
	return &PostgresDeveloperRepo{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDeveloper(row rowScanner) (*model.Developer, error) {
	d := &model.Developer{}
	err := row.Scan(
		&d.ID, &d.Email, &d.PasswordHash, &d.Name,
		&d.Intro, &d.GithubUsername, &d.Website,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// FindByID は指定IDの開発者を取得する。見つからない場合はnilを返す。
func (r *PostgresDeveloperRepo) FindByID(ctx context.Context, id int64) (*model.Developer, error) {
	d, err := scanDeveloper(r.db.QueryRowContext(ctx,
		`SELECT `+developerColumns+` FROM developers WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find developer by ID: %w", err)
	}
	return d, nil
}

// FindByEmail はメールアドレスで開発者を検索する。見つからない場合はnilを返す。
func (r *PostgresDeveloperRepo) FindByEmail(ctx context.Context, email string) (*model.Developer, error) {
	d, err := scanDeveloper(r.db.QueryRowContext(ctx,
		`SELECT `+developerColumns+` FROM developers WHERE email = $1`, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find developer by email: %w", err)
	}
	return d, nil
}

// List はID順の開発者一覧とページング前の総件数を返す。
func (r *PostgresDeveloperRepo) List(ctx context.Context, page model.Page) ([]model.Developer, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM developers`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count developers: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+developerColumns+` FROM developers ORDER BY id LIMIT $1 OFFSET $2`,
		page.Limit, page.Offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list developers: %w", err)
	}
	defer rows.Close()

	devs := make([]model.Developer, 0, page.Limit)
	for rows.Next() {
		d, err := scanDeveloper(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan developer: %w", err)
		}
		devs = append(devs, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate developers: %w", err)
	}

	return devs, total, nil
}

// Create は開発者を作成し、ID・作成日時をdevに設定する。
// メールアドレスが重複する場合はErrDuplicateを返す。
func (r *PostgresDeveloperRepo) Create(ctx context.Context, dev *model.Developer) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO developers (email, password, name, intro, github_username, website)
		 VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''))
		 RETURNING id, created_at, updated_at`,
		dev.Email, dev.PasswordHash, dev.Name, dev.Intro, dev.GithubUsername, dev.Website,
	).Scan(&dev.ID, &dev.CreatedAt, &dev.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to insert developer: %w", err)
	}
	return nil
}

// FindOrCreateByEmail はメールアドレスで開発者を検索し、存在しなければnameで作成する。
// INSERT ON CONFLICT DO NOTHINGにより同時実行時も1件のみ作成される。
func (r *PostgresDeveloperRepo) FindOrCreateByEmail(ctx context.Context, email, name string) (*model.Developer, bool, error) {
	d, err := scanDeveloper(r.db.QueryRowContext(ctx,
		`INSERT INTO developers (email, name) VALUES ($1, $2)
		 ON CONFLICT (email) DO NOTHING
		 RETURNING `+developerColumns,
		email, name,
	))
	if err == nil {
		return d, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to insert developer: %w", err)
	}

	// 既に存在する場合はRETURNINGが空になる
	d, err = r.FindByEmail(ctx, email)
	if err != nil {
		return nil, false, err
	}
	if d == nil {
		return nil, false, fmt.Errorf("developer vanished after conflict: %s", email)
	}
	return d, false, nil
}

// Update はプロフィール項目を更新し、更新日時をdevに設定する。
func (r *PostgresDeveloperRepo) Update(ctx context.Context, dev *model.Developer) error {
	err := r.db.QueryRowContext(ctx,
		`UPDATE developers
		 SET name = $2, intro = NULLIF($3, ''), github_username = NULLIF($4, ''),
		     website = NULLIF($5, ''), updated_at = now()
		 WHERE id = $1
		 RETURNING updated_at`,
		dev.ID, dev.Name, dev.Intro, dev.GithubUsername, dev.Website,
	).Scan(&dev.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("developer %d: %w", dev.ID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to update developer: %w", err)
	}
	return nil
}

// DeleteByID は指定IDの開発者を削除する。
func (r *PostgresDeveloperRepo) DeleteByID(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM developers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete developer: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("developer %d: %w", id, ErrNotFound)
	}
	return nil
}

// compile-time interface check
var _ DeveloperRepository = (*PostgresDeveloperRepo)(nil)
