// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder はドメインイベントの記録インターフェース。
// ハンドラー層とワーカーから利用する。
type Recorder interface {
	RecordSignup()
	RecordPostCreated()
	RecordCommentCreated()
	RecordLike(liked bool)
	RecordCleanup(kind string, deleted int64)
	ObserveAuthFailure(code string)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	authFailures    *prometheus.CounterVec
	signups         prometheus.Counter
	postsCreated    prometheus.Counter
	commentsCreated prometheus.Counter
	likes           *prometheus.CounterVec
	cleanupDeleted  *prometheus.CounterVec
}

var _ Recorder = (*Collector)(nil)

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codersnet_http_requests_total",
			Help: "ルート・メソッド・ステータス別のHTTPリクエスト数",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "codersnet_http_request_duration_seconds",
			Help:    "ルート別のHTTPリクエスト処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		authFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codersnet_auth_failures_total",
			Help: "エラーコード別の認証失敗数",
		}, []string{"code"}),
		signups: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "codersnet_signups_total",
			Help: "サインアップ成功の合計数",
		}),
		postsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "codersnet_posts_created_total",
			Help: "作成された投稿の合計数",
		}),
		commentsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "codersnet_comments_created_total",
			Help: "作成されたコメントの合計数",
		}),
		likes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codersnet_likes_total",
			Help: "いいね操作の合計数",
		}, []string{"action"}),
		cleanupDeleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codersnet_cleanup_deleted_total",
			Help: "クリーンアップで削除された孤立レコード数",
		}, []string{"kind"}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpDuration,
		c.authFailures,
		c.signups,
		c.postsCreated,
		c.commentsCreated,
		c.likes,
		c.cleanupDeleted,
	)

	return c
}

// RecordSignup はサインアップ成功を記録する。
func (c *Collector) RecordSignup() {
	c.signups.Inc()
}

// RecordPostCreated は投稿作成を記録する。
func (c *Collector) RecordPostCreated() {
	c.postsCreated.Inc()
}

// RecordCommentCreated はコメント作成を記録する。
func (c *Collector) RecordCommentCreated() {
	c.commentsCreated.Inc()
}

// RecordLike はいいね（liked=true）またはいいね解除を記録する。
func (c *Collector) RecordLike(liked bool) {
	action := "unlike"
	if liked {
		action = "like"
	}
	c.likes.WithLabelValues(action).Inc()
}

// RecordCleanup はクリーンアップで削除した件数を記録する。
func (c *Collector) RecordCleanup(kind string, deleted int64) {
	c.cleanupDeleted.WithLabelValues(kind).Add(float64(deleted))
}

// ObserveAuthFailure は認証失敗をエラーコード別に記録する。
func (c *Collector) ObserveAuthFailure(code string) {
	c.authFailures.WithLabelValues(code).Inc()
}

// NopRecorder は何も記録しないRecorder。
type NopRecorder struct{}

func (NopRecorder) RecordSignup()               {}
func (NopRecorder) RecordPostCreated()          {}
func (NopRecorder) RecordCommentCreated()       {}
func (NopRecorder) RecordLike(bool)             {}
func (NopRecorder) RecordCleanup(string, int64) {}
func (NopRecorder) ObserveAuthFailure(string)   {}

// statusWriter はレスポンスのステータスコードを記録する。
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

// Middleware はHTTPリクエスト数と処理時間を記録するミドルウェアを返す。
// ラベルにはパスではなくchiのルートパターンを使い、カーディナリティを抑える。
func (c *Collector) Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w}

			next.ServeHTTP(sw, r)

			status := sw.status
			if status == 0 {
				status = http.StatusOK
			}

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}

			c.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
			c.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
