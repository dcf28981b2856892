package middleware

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/TechmongersNL/coders-network-api/internal/model"
	"golang.org/x/time/rate"
)

// RateLimiterConfig はレート制限の設定を保持する。
type RateLimiterConfig struct {
	GeneralRate     rate.Limit    // 認証済みAPI全般のレート（req/sec）
	GeneralBurst    int           // API全般のバーストサイズ
	ContentRate     rate.Limit    // 投稿・コメント作成のレート（req/sec）
	ContentBurst    int           // 投稿・コメント作成のバーストサイズ
	CleanupInterval time.Duration // 期限切れエントリのクリーンアップ間隔
}

// RateLimiterConfigPerMinute は1分あたりのリクエスト数からRateLimiterConfigを生成する。
func RateLimiterConfigPerMinute(general, content int) RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:     rate.Limit(float64(general) / 60.0),
		GeneralBurst:    general,
		ContentRate:     rate.Limit(float64(content) / 60.0),
		ContentBurst:    content,
		CleanupInterval: 5 * time.Minute,
	}
}

// DefaultRateLimiterConfig はデフォルトのレート制限設定を返す。
// API全般 120 req/min、投稿・コメント作成 20 req/min（開発者ごと）。
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfigPerMinute(120, 20)
}

// developerLimiter は開発者ごとのレートリミッターとアクセス時刻を保持する。
type developerLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// limiterPool は開発者IDごとのリミッターの集合。
type limiterPool struct {
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
	limiters map[int64]*developerLimiter
}

func newLimiterPool(r rate.Limit, burst int) *limiterPool {
	return &limiterPool{rate: r, burst: burst, limiters: make(map[int64]*developerLimiter)}
}

// get は開発者のリミッターを取得または作成する。
func (p *limiterPool) get(developerID int64, now time.Time) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	if dl, ok := p.limiters[developerID]; ok {
		dl.lastAccess = now
		return dl.limiter
	}

	limiter := rate.NewLimiter(p.rate, p.burst)
	p.limiters[developerID] = &developerLimiter{limiter: limiter, lastAccess: now}
	return limiter
}

// prune は最終アクセスがttlより古いエントリを削除する。
func (p *limiterPool) prune(now time.Time, ttl time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, dl := range p.limiters {
		if now.Sub(dl.lastAccess) > ttl {
			delete(p.limiters, id)
		}
	}
}

func (p *limiterPool) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.limiters)
}

// RateLimiter は開発者ごとのレート制限を管理する。
// API全般と投稿・コメント作成の2種類を独立に提供する。
type RateLimiter struct {
	config  RateLimiterConfig
	general *limiterPool
	content *limiterPool

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewRateLimiter は新しいRateLimiterを生成する。
// バックグラウンドで期限切れエントリのクリーンアップを開始する。
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	rl := &RateLimiter{
		config:  config,
		general: newLimiterPool(config.GeneralRate, config.GeneralBurst),
		content: newLimiterPool(config.ContentRate, config.ContentBurst),
		stopCh:  make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Stop はクリーンアップのバックグラウンドゴルーチンを停止する。
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// GeneralMiddleware はAPI全般のレート制限ミドルウェアを返す。
// 認証ミドルウェアの後に配置する。
func (rl *RateLimiter) GeneralMiddleware() func(next http.Handler) http.Handler {
	return rl.middleware(rl.general, "general")
}

// ContentMiddleware は投稿・コメント作成専用のレート制限ミドルウェアを返す。
// API全般のレート制限とは独立に動作する。
func (rl *RateLimiter) ContentMiddleware() func(next http.Handler) http.Handler {
	return rl.middleware(rl.content, "content")
}

func (rl *RateLimiter) middleware(pool *limiterPool, limitType string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			developerID, ok := DeveloperIDFromContext(r.Context())
			if !ok {
				WriteAPIError(w, model.NewUnauthenticatedError())
				return
			}

			if !pool.get(developerID, time.Now()).Allow() {
				writeRateLimitResponse(w, pool.rate)
				slog.Warn("rate limit exceeded",
					slog.Int64("developer_id", developerID),
					slog.String("limit_type", limitType),
				)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GeneralLimiterCount は現在管理されているAPI全般リミッターのエントリ数を返す。
func (rl *RateLimiter) GeneralLimiterCount() int {
	return rl.general.size()
}

// ContentLimiterCount は現在管理されている作成系リミッターのエントリ数を返す。
func (rl *RateLimiter) ContentLimiterCount() int {
	return rl.content.size()
}

// cleanupLoop はバックグラウンドで期限切れエントリを定期的にクリーンアップする。
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup(time.Now())
		case <-rl.stopCh:
			return
		}
	}
}

// cleanup は最終アクセス時刻がCleanupIntervalの2倍を超えたエントリを削除する。
func (rl *RateLimiter) cleanup(now time.Time) {
	ttl := rl.config.CleanupInterval * 2
	rl.general.prune(now, ttl)
	rl.content.prune(now, ttl)
}

// writeRateLimitResponse は429 Too Many Requestsレスポンスを書き込む。
// Retry-Afterヘッダーにはトークンが1つ補充されるまでの秒数を設定する。
func writeRateLimitResponse(w http.ResponseWriter, r rate.Limit) {
	retryAfterSec := 1
	if r > 0 {
		retryAfterSec = max(int(math.Ceil(1.0/float64(r))), 1)
	}

	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSec))
	WriteAPIError(w, model.NewRateLimitExceededError())
}
