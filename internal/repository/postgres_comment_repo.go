package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/TechmongersNL/coders-network-api/internal/model"
)

const commentSelect = `SELECT c.id, c.text, c.post_id, c.developer_id, d.name, d.email, c.created_at, c.updated_at
	FROM comments c
	JOIN developers d ON d.id = c.developer_id`

// PostgresCommentRepo はPostgreSQLを使用したコメントリポジトリ。
type PostgresCommentRepo struct {
	db *sql.DB
}

// NewPostgresCommentRepo はPostgresCommentRepoを生成する。
func NewPostgresCommentRepo(db *sql.DB) *PostgresCommentRepo {
	return &PostgresCommentRepo{db: db}
}

func scanComment(row rowScanner) (*model.Comment, error) {
	c := &model.Comment{}
	err := row.Scan(
		&c.ID, &c.Text, &c.PostID, &c.DeveloperID,
		&c.Developer.Name, &c.Developer.Email,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.Developer.ID = c.DeveloperID
	return c, nil
}

// Create はコメントを作成し、ID・日時をcommentに設定する。
func (r *PostgresCommentRepo) Create(ctx context.Context, comment *model.Comment) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO comments (post_id, developer_id, text) VALUES ($1, $2, $3)
		 RETURNING id, created_at, updated_at`,
		comment.PostID, comment.DeveloperID, comment.Text,
	).Scan(&comment.ID, &comment.CreatedAt, &comment.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert comment: %w", err)
	}
	return nil
}

// FindByID は指定IDのコメントを取得する。見つからない場合はnilを返す。
func (r *PostgresCommentRepo) FindByID(ctx context.Context, id int64) (*model.Comment, error) {
	c, err := scanComment(r.db.QueryRowContext(ctx, commentSelect+` WHERE c.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find comment by ID: %w", err)
	}
	return c, nil
}

// ListByPost は投稿のコメントを作成日時の昇順で返す。
func (r *PostgresCommentRepo) ListByPost(ctx context.Context, postID int64, page model.Page) ([]model.Comment, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM comments WHERE post_id = $1`, postID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count comments: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		commentSelect+` WHERE c.post_id = $1 ORDER BY c.created_at, c.id LIMIT $2 OFFSET $3`,
		postID, page.Limit, page.Offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	comments := []model.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate comments: %w", err)
	}

	return comments, total, nil
}

// compile-time interface check
var _ CommentRepository = (*PostgresCommentRepo)(nil)
