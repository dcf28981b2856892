// Package cleanup はどの投稿・開発者からも参照されなくなったタグとお気に入り技術を
// 定期的に削除するジョブを提供する。
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Recorder は削除件数の記録先。metrics.Recorderが満たす。
type Recorder interface {
	RecordCleanup(kind string, deleted int64)
}

// 削除対象の種別
const (
	KindTags         = "tags"
	KindTechnologies = "technologies"
)

// target は1種別分の削除クエリ。
// $1 は作成からの猶予期間で、作成直後で関連付け前の行を消さないために使う。
type target struct {
	kind  string
	query string
}

var targets = []target{
	{
		kind: KindTags,
		query: `DELETE FROM tags t
			WHERE t.created_at < now() - $1::interval
			  AND NOT EXISTS (SELECT 1 FROM post_tags pt WHERE pt.tag_id = t.id)`,
	},
	{
		kind: KindTechnologies,
		query: `DELETE FROM technologies te
			WHERE te.created_at < now() - $1::interval
			  AND NOT EXISTS (SELECT 1 FROM favorite_technologies ft WHERE ft.technology_id = te.id)`,
	},
}

// CleanupJob は孤立したタグと技術を削除するバッチジョブ。
// 削除対象がなくてもエラーにならず、何度実行しても結果は同じ。
type CleanupJob struct {
	db          Executor
	logger      *slog.Logger
	recorder    Recorder
	GracePeriod time.Duration // 作成からこの期間内の行は削除しない（デフォルト: 1時間）
}

// NewCleanupJob は新しいCleanupJobを生成する。recorderはnilでもよい。
func NewCleanupJob(db Executor, logger *slog.Logger, recorder Recorder) *CleanupJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &CleanupJob{
		db:          db,
		logger:      logger,
		recorder:    recorder,
		GracePeriod: time.Hour,
	}
}

// Run は孤立したタグと技術を削除し、種別ごとの削除件数を返す。
// 途中の種別で失敗した場合はそこで中断する。
func (j *CleanupJob) Run(ctx context.Context) (map[string]int64, error) {
	start := time.Now()
	interval := fmt.Sprintf("%d seconds", int64(j.GracePeriod/time.Second))

	deleted := make(map[string]int64, len(targets))
	for _, tg := range targets {
		result, err := j.db.ExecContext(ctx, tg.query, interval)
		if err != nil {
			j.logger.Error("cleanup failed",
				slog.String("kind", tg.kind),
				slog.String("error", err.Error()),
			)
			return deleted, fmt.Errorf("failed to delete orphan %s: %w", tg.kind, err)
		}

		n, err := result.RowsAffected()
		if err != nil {
			return deleted, fmt.Errorf("failed to read deleted %s count: %w", tg.kind, err)
		}
		deleted[tg.kind] = n
		if j.recorder != nil {
			j.recorder.RecordCleanup(tg.kind, n)
		}
	}

	j.logger.Info("cleanup completed",
		slog.Int64("deleted_tags", deleted[KindTags]),
		slog.Int64("deleted_technologies", deleted[KindTechnologies]),
		slog.Duration("grace_period", j.GracePeriod),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return deleted, nil
}

// Start はinterval間隔でRunを繰り返す。起動直後に1回実行し、
// コンテキストがキャンセルされるまで継続する。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("cleanup worker started", slog.Duration("interval", interval))

	// 失敗は次回実行で再試行されるため、ここではログのみ
	_, _ = j.Run(ctx)

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("cleanup worker stopped")
			return
		case <-ticker.C:
			_, _ = j.Run(ctx)
		}
	}
}
