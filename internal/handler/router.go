package handler

import (
	"log/slog"
	"net/http"

	"github.com/TechmongersNL/coders-network-api/internal/metrics"
	"github.com/TechmongersNL/coders-network-api/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger             *slog.Logger
	Resolver           middleware.IdentityResolver
	CORSAllowedOrigins []string
	RateLimiter        *middleware.RateLimiter // nilの場合はレート制限しない

	// メトリクス（nilの場合は/metricsを公開しない）
	Metrics         *metrics.Collector
	MetricsGatherer prometheus.Gatherer

	// ヘルスチェック
	DB Pinger

	// サービス
	AuthService      AuthServiceInterface
	DeveloperService DeveloperServiceInterface
	PostService      PostServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// 全体のミドルウェアスタックの実行順序:
//
//	RequestID → Logging → Metrics → Recovery → SecurityHeaders → CORS
//
// 個別ルートは authenticate → load → authorize の順で合成する。
// 読み取り系のルートは認証を要求しない。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var recorder metrics.Recorder = metrics.NopRecorder{}
	if deps.Metrics != nil {
		recorder = deps.Metrics
	}

	r := chi.NewRouter()

	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware())
	}
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigins))

	authn := middleware.NewAuthenticateMiddleware(deps.Resolver, recorder)
	general, content := passthrough, passthrough
	if deps.RateLimiter != nil {
		general = deps.RateLimiter.GeneralMiddleware()
		content = deps.RateLimiter.ContentMiddleware()
	}
	loadDeveloper := FindDeveloper(deps.DeveloperService)
	loadPost := FindPost(deps.PostService)

	authHandler := NewAuthHandler(deps.AuthService, deps.DeveloperService, recorder)
	developerHandler := NewDeveloperHandler(deps.DeveloperService)
	postHandler := NewPostHandler(deps.PostService, recorder)

	// --- 運用エンドポイント ---
	r.Get("/health", HealthHandler(deps.DB))
	if deps.Metrics != nil && deps.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.MetricsGatherer))
	}

	// --- 認証 ---
	r.Post("/signup", authHandler.Signup)
	r.Post("/login", authHandler.Login)
	r.With(authn, general).Get("/authenticated", authHandler.Authenticated)
	r.With(authn, general).Get("/me", authHandler.Me)

	// --- 開発者 ---
	r.Route("/developers", func(r chi.Router) {
		r.Get("/", developerHandler.List)

		r.Route("/{id}", func(r chi.Router) {
			r.With(loadDeveloper).Get("/", developerHandler.Get)
			r.With(authn, general, loadDeveloper, MustBeMe).Put("/", developerHandler.Update)
			r.With(authn, general, loadDeveloper, MustBeMe).Delete("/", developerHandler.Delete)
		})
	})

	// --- 投稿 ---
	r.Route("/posts", func(r chi.Router) {
		r.Get("/", postHandler.List)
		r.With(authn, general, content).Post("/", postHandler.Create)

		r.Route("/{id}", func(r chi.Router) {
			r.With(loadPost).Get("/", postHandler.Get)
			r.With(authn, general, loadPost, MustBeMine).Put("/", postHandler.Update)
			r.With(authn, general, loadPost, MustBeMine).Delete("/", postHandler.Delete)

			// いいね（本人として操作するため所有者チェックは不要）
			r.With(authn, general, loadPost).Post("/likes", postHandler.Like)
			r.With(authn, general, loadPost).Delete("/likes", postHandler.Unlike)

			// コメント
			r.With(loadPost).Get("/comments", postHandler.ListComments)
			r.With(authn, general, content, loadPost).Post("/comments", postHandler.CreateComment)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
	})

	return r
}

func passthrough(next http.Handler) http.Handler {
	return next
}
