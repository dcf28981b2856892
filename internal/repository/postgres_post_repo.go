package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/TechmongersNL/coders-network-api/internal/model"
)

// summarySelect は一覧表示用の列。本文は含まない。
const summarySelect = `SELECT p.id, p.title, p.author_id, d.name, d.email,
	(SELECT COUNT(*) FROM post_likes l WHERE l.post_id = p.id),
	p.created_at, p.updated_at
	FROM posts p
	JOIN developers d ON d.id = p.author_id`

// PostgresPostRepo はPostgreSQLを使用した投稿リポジトリ。
type PostgresPostRepo struct {
	db *sql.DB
}

// NewPostgresPostRepo はPostgresPostRepoを生成する。
func NewPostgresPostRepo(db *sql.DB) *PostgresPostRepo {
	return &PostgresPostRepo{db: db}
}

// FindFullByID は本文・タグ・いいね・作者を含む投稿を取得する。見つからない場合はnilを返す。
func (r *PostgresPostRepo) FindFullByID(ctx context.Context, id int64) (*model.PostFull, error) {
	p := &model.PostFull{}
	err := r.db.QueryRowContext(ctx,
		`SELECT p.id, p.title, p.content, p.author_id, d.name, d.email, p.created_at, p.updated_at
		 FROM posts p
		 JOIN developers d ON d.id = p.author_id
		 WHERE p.id = $1`,
		id,
	).Scan(&p.ID, &p.Title, &p.Content, &p.AuthorID, &p.Author.Name, &p.Author.Email, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find post by ID: %w", err)
	}
	p.Author.ID = p.AuthorID

	tags, err := loadTags(ctx, r.db, []int64{p.ID})
	if err != nil {
		return nil, err
	}
	p.Tags = tagsOf(tags, p.ID)

	p.Likes, err = r.loadLikes(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	return p, nil
}

// List は条件に一致する投稿を作成日時の降順で返す。複数条件はANDで結合する。
func (r *PostgresPostRepo) List(ctx context.Context, filter model.PostFilter) ([]model.PostSummary, int, error) {
	var (
		conds []string
		args  []any
	)
	if filter.AuthorID > 0 {
		args = append(args, filter.AuthorID)
		conds = append(conds, fmt.Sprintf("p.author_id = $%d", len(args)))
	}
	if filter.Tag != "" {
		args = append(args, filter.Tag)
		conds = append(conds, fmt.Sprintf(
			`EXISTS (SELECT 1 FROM post_tags pt JOIN tags t ON t.id = pt.tag_id
			 WHERE pt.post_id = p.id AND t.tag = $%d)`, len(args)))
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM posts p`+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count posts: %w", err)
	}

	args = append(args, filter.Limit, filter.Offset)
	query := summarySelect + where +
		fmt.Sprintf(" ORDER BY p.created_at DESC, p.id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	posts, err := r.querySummaries(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

// ListByAuthor は開発者の全投稿を作成日時の降順で返す。
func (r *PostgresPostRepo) ListByAuthor(ctx context.Context, authorID int64) ([]model.PostSummary, error) {
	return r.querySummaries(ctx,
		summarySelect+` WHERE p.author_id = $1 ORDER BY p.created_at DESC, p.id DESC`,
		authorID,
	)
}

// Create は投稿とタグの関連付けを同一トランザクションで作成する。
func (r *PostgresPostRepo) Create(ctx context.Context, post *model.Post, tags []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// CreatedAtが設定済みの場合はその日時で作成する（フィクスチャ投入用）
	createdAt := sql.NullTime{Time: post.CreatedAt, Valid: !post.CreatedAt.IsZero()}
	err = tx.QueryRowContext(ctx,
		`INSERT INTO posts (author_id, title, content, created_at, updated_at)
		 VALUES ($1, $2, $3, COALESCE($4::timestamptz, now()), COALESCE($4::timestamptz, now()))
		 RETURNING id, created_at, updated_at`,
		post.AuthorID, post.Title, post.Content, createdAt,
	).Scan(&post.ID, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert post: %w", err)
	}

	if err := attachTags(ctx, tx, post.ID, tags); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Update は投稿を部分更新する。nilのフィールドは現在値を維持する。
func (r *PostgresPostRepo) Update(ctx context.Context, id int64, update model.PostUpdate) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE posts
		 SET title = COALESCE($2, title), content = COALESCE($3, content), updated_at = now()
		 WHERE id = $1`,
		id, update.Title, update.Content,
	)
	if err != nil {
		return fmt.Errorf("failed to update post: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("post %d: %w", id, ErrNotFound)
	}

	if update.Tags != nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM post_tags WHERE post_id = $1`, id); err != nil {
			return fmt.Errorf("failed to clear post tags: %w", err)
		}
		if err := attachTags(ctx, tx, id, update.Tags); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// DeleteByID は指定IDの投稿を削除する。
func (r *PostgresPostRepo) DeleteByID(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("post %d: %w", id, ErrNotFound)
	}
	return nil
}

// querySummaries は summarySelect 形式のクエリを実行し、タグを付与して返す。
func (r *PostgresPostRepo) querySummaries(ctx context.Context, query string, args ...any) ([]model.PostSummary, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	posts := []model.PostSummary{}
	var ids []int64
	for rows.Next() {
		var p model.PostSummary
		if err := rows.Scan(
			&p.ID, &p.Title, &p.AuthorID, &p.Author.Name, &p.Author.Email,
			&p.LikesCount, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		p.Author.ID = p.AuthorID
		posts = append(posts, p)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate posts: %w", err)
	}

	if len(ids) == 0 {
		return posts, nil
	}
	tags, err := loadTags(ctx, r.db, ids)
	if err != nil {
		return nil, err
	}
	for i := range posts {
		posts[i].Tags = tagsOf(tags, posts[i].ID)
	}
	return posts, nil
}

// loadLikes は投稿のいいねを、いいねした開発者のスリム表現付きで返す。
func (r *PostgresPostRepo) loadLikes(ctx context.Context, postID int64) ([]model.Like, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT l.developer_id, l.post_id, d.name, d.email, l.created_at
		 FROM post_likes l
		 JOIN developers d ON d.id = l.developer_id
		 WHERE l.post_id = $1
		 ORDER BY l.created_at, l.developer_id`,
		postID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list likes: %w", err)
	}
	defer rows.Close()

	likes := []model.Like{}
	for rows.Next() {
		var l model.Like
		if err := rows.Scan(&l.DeveloperID, &l.PostID, &l.Developer.Name, &l.Developer.Email, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan like: %w", err)
		}
		l.Developer.ID = l.DeveloperID
		likes = append(likes, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate likes: %w", err)
	}
	return likes, nil
}

// loadTags は複数投稿のタグを1クエリで取得し、投稿IDごとにまとめて返す。
func loadTags(ctx context.Context, q queryer, postIDs []int64) (map[int64][]model.Tag, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT pt.post_id, t.id, t.tag
		 FROM post_tags pt
		 JOIN tags t ON t.id = pt.tag_id
		 WHERE pt.post_id = ANY($1)
		 ORDER BY t.tag`,
		pq.Array(postIDs),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load tags: %w", err)
	}
	defer rows.Close()

	byPost := make(map[int64][]model.Tag, len(postIDs))
	for rows.Next() {
		var postID int64
		var t model.Tag
		if err := rows.Scan(&postID, &t.ID, &t.Tag); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		byPost[postID] = append(byPost[postID], t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tags: %w", err)
	}
	return byPost, nil
}

// tagsOf はタグ一覧を返す。タグが無い場合もJSONで空配列になるよう空スライスを返す。
func tagsOf(byPost map[int64][]model.Tag, postID int64) []model.Tag {
	if tags, ok := byPost[postID]; ok {
		return tags
	}
	return []model.Tag{}
}

// attachTags はタグを必要に応じて作成し、投稿に関連付ける。
// 既存タグは created_at を更新し、孤立タグ削除の猶予期間を再適用する。
func attachTags(ctx context.Context, tx execer, postID int64, names []string) error {
	for _, name := range model.NormalizeNames(names) {
		var tagID int64
		err := tx.QueryRowContext(ctx,
			`INSERT INTO tags (tag) VALUES ($1)
			 ON CONFLICT (tag) DO UPDATE SET created_at = now()
			 RETURNING id`,
			name,
		).Scan(&tagID)
		if err != nil {
			return fmt.Errorf("failed to upsert tag %q: %w", name, err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO post_tags (post_id, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			postID, tagID,
		); err != nil {
			return fmt.Errorf("failed to link tag %q: %w", name, err)
		}
	}
	return nil
}

// compile-time interface check
var _ PostRepository = (*PostgresPostRepo)(nil)
