// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/TechmongersNL/coders-network-api/internal/model"
)

// ErrDuplicate は一意制約違反を表す。
var ErrDuplicate = errors.New("duplicate key")

// ErrNotFound は更新・削除の対象行が存在しないことを表す。
var ErrNotFound = errors.New("not found")

// DeveloperRepository は開発者データの永続化インターフェース。
type DeveloperRepository interface {
	// FindByID は指定IDの開発者を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Developer, error)

	// FindByEmail はメールアドレスで開発者を検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.Developer, error)

	// List はID順の開発者一覧とページング前の総件数を返す。
	List(ctx context.Context, page model.Page) ([]model.Developer, int, error)

	// Create は開発者を作成し、ID・作成日時をdevに設定する。
	// メールアドレスが重複する場合はErrDuplicateを返す。
	Create(ctx context.Context, dev *model.Developer) error

	// FindOrCreateByEmail はメールアドレスで開発者を検索し、存在しなければnameで作成する。
	// 同時実行時も一意制約により1件のみ作成される。作成した場合はtrueを返す。
	FindOrCreateByEmail(ctx context.Context, email, name string) (*model.Developer, bool, error)

	// Update はプロフィール項目を更新し、更新日時をdevに設定する。
	Update(ctx context.Context, dev *model.Developer) error

	// DeleteByID は指定IDの開発者を削除する。
	// 投稿、コメント、いいね、お気に入り技術はCASCADE削除される。
	DeleteByID(ctx context.Context, id int64) error
}

// TechnologyRepository はお気に入り技術の永続化インターフェース。
type TechnologyRepository interface {
	// ListByDeveloper は開発者のお気に入り技術をタイトル順で返す。
	ListByDeveloper(ctx context.Context, developerID int64) ([]model.Technology, error)

	// ReplaceForDeveloper は開発者のお気に入り技術を指定タイトルの集合で置き換える。
	// 未登録のタイトルは作成する。
	ReplaceForDeveloper(ctx context.Context, developerID int64, titles []string) error
}

// PostRepository は投稿データの永続化インターフェース。
type PostRepository interface {
	// FindFullByID は本文・タグ・いいね・作者を含む投稿を取得する。見つからない場合はnilを返す。
	FindFullByID(ctx context.Context, id int64) (*model.PostFull, error)

	// List は条件に一致する投稿を作成日時の降順で返す。本文は含まない。
	// 第2戻り値はページング前の総件数。
	List(ctx context.Context, filter model.PostFilter) ([]model.PostSummary, int, error)

	// ListByAuthor は開発者の全投稿を作成日時の降順で返す。本文は含まない。
	ListByAuthor(ctx context.Context, authorID int64) ([]model.PostSummary, error)

	// Create は投稿とタグの関連付けを同一トランザクションで作成し、ID・日時をpostに設定する。
	// post.CreatedAtがゼロ値でなければ作成日時として使う。
	Create(ctx context.Context, post *model.Post, tags []string) error

	// Update は投稿を部分更新する。Tagsがnilでない場合はタグを置き換える。
	Update(ctx context.Context, id int64, update model.PostUpdate) error

	// DeleteByID は指定IDの投稿を削除する。タグ関連・いいね・コメントはCASCADE削除される。
	DeleteByID(ctx context.Context, id int64) error
}

// LikeRepository はいいねの永続化インターフェース。
type LikeRepository interface {
	// Upsert はいいねを登録する。既に存在する場合は何もしない。
	Upsert(ctx context.Context, developerID, postID int64) error

	// Delete はいいねを削除する。存在しない場合もエラーにしない。
	Delete(ctx context.Context, developerID, postID int64) error
}

// CommentRepository はコメントの永続化インターフェース。
type CommentRepository interface {
	// Create はコメントを作成し、ID・日時をcommentに設定する。
	Create(ctx context.Context, comment *model.Comment) error

	// FindByID は指定IDのコメントを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Comment, error)

	// ListByPost は投稿のコメントを作成日時の昇順で返す。第2戻り値はページング前の総件数。
	ListByPost(ctx context.Context, postID int64, page model.Page) ([]model.Comment, int, error)
}

// queryer は *sql.DB と *sql.Tx に共通する読み取り操作。
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// execer は *sql.DB と *sql.Tx に共通する書き込み操作。
type execer interface {
	queryer
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}
