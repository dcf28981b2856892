package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/TechmongersNL/coders-network-api/internal/auth"
	"github.com/TechmongersNL/coders-network-api/internal/config"
	"github.com/TechmongersNL/coders-network-api/internal/database"
	"github.com/TechmongersNL/coders-network-api/internal/developer"
	"github.com/TechmongersNL/coders-network-api/internal/handler"
	"github.com/TechmongersNL/coders-network-api/internal/logger"
	"github.com/TechmongersNL/coders-network-api/internal/metrics"
	"github.com/TechmongersNL/coders-network-api/internal/middleware"
	"github.com/TechmongersNL/coders-network-api/internal/post"
	"github.com/TechmongersNL/coders-network-api/internal/repository"
	"github.com/TechmongersNL/coders-network-api/internal/security"
	"github.com/TechmongersNL/coders-network-api/internal/seed"
	"github.com/TechmongersNL/coders-network-api/internal/token"
	"github.com/TechmongersNL/coders-network-api/internal/worker/cleanup"
)

// defaultServerPort はSERVER_PORT未設定時のポート。
const defaultServerPort = "5000"

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 設定読み込み前にもログを使えるようにする
	logger.SetupDefault(w, os.Getenv("LOG_LEVEL"))

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.SetupDefault(w, cfg.LogLevel)
	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = defaultServerPort
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("auth_strategy", cfg.AuthStrategy),
	)

	// SIGINT/SIGTERMでキャンセルされるコンテキスト
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case CommandWorker:
		return runWorker(ctx, cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	case CommandSeed:
		return runSeed(ctx, cfg)
	default:
		return runServe(ctx, cfg)
	}
}

// openDB はDB接続を開き、疎通を確認する。
func openDB(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := database.Open(cfg.DatabaseURL, cfg.DBMaxOpenConns)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")
	return db, nil
}

// newRegistry はGo・プロセスのメトリクスを含むレジストリを生成する。
func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// buildResolver はAUTH_STRATEGYに応じたIdentityResolverを構築する。
// 戻り値のcloseはリゾルバーが保持する外部接続を解放する。
func buildResolver(ctx context.Context, cfg *config.Config, codec *token.Codec, developers repository.DeveloperRepository) (middleware.IdentityResolver, func(), error) {
	noop := func() {}

	if cfg.AuthStrategy != config.AuthStrategyIntrospection {
		return auth.NewLocalResolver(codec, developers), noop, nil
	}

	var cache auth.IntrospectionCache
	closeCache := noop
	if cfg.RedisAddr != "" {
		rdb, err := auth.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return nil, nil, err
		}
		cache = auth.NewRedisIntrospectionCache(rdb)
		closeCache = func() { rdb.Close() }
		slog.Info("introspection cache enabled", slog.String("redis_addr", cfg.RedisAddr))
	}

	resolver := auth.NewIntrospectionResolver(auth.IntrospectionConfig{
		URL:          cfg.IntrospectionURL,
		ClientID:     cfg.IntrospectionClientID,
		ClientSecret: cfg.IntrospectionClientSecret,
		Issuer:       cfg.IntrospectionIssuer,
		Timeout:      cfg.IntrospectionTimeout,
		CacheTTL:     cfg.IntrospectionCacheTTL,
	}, developers, cache)

	return resolver, closeCache, nil
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// ctxがキャンセルされるとグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config) error {
	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	// リポジトリ
	developerRepo := repository.NewPostgresDeveloperRepo(db)
	technologyRepo := repository.NewPostgresTechnologyRepo(db)
	postRepo := repository.NewPostgresPostRepo(db)
	likeRepo := repository.NewPostgresLikeRepo(db)
	commentRepo := repository.NewPostgresCommentRepo(db)

	// 認証
	codec := token.NewCodec(cfg.JWTSecret, cfg.TokenTTL)
	resolver, closeResolver, err := buildResolver(ctx, cfg, codec, developerRepo)
	if err != nil {
		return fmt.Errorf("failed to build identity resolver: %w", err)
	}
	defer closeResolver()

	// ドメインサービス
	authService := auth.NewService(developerRepo, auth.NewPasswordHasher(cfg.BcryptCost), codec)
	developerService := developer.NewService(developerRepo, technologyRepo, postRepo)
	postService := post.NewService(postRepo, likeRepo, commentRepo, security.NewContentRenderer())

	// メトリクスとレート制限
	reg := newRegistry()
	rateLimiter := middleware.NewRateLimiter(
		middleware.RateLimiterConfigPerMinute(cfg.RateLimitGeneral, cfg.RateLimitContent),
	)
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:             slog.Default(),
		Resolver:           resolver,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimiter:        rateLimiter,
		Metrics:            metrics.NewCollector(reg),
		MetricsGatherer:    reg,
		DB:                 db,
		AuthService:        authService,
		DeveloperService:   developerService,
		PostService:        postService,
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return serveUntilDone(ctx, server, "API server")
}

// serveUntilDone はサーバーを起動し、ctxのキャンセルで停止する。
func serveUntilDone(ctx context.Context, server *http.Server, name string) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info(name+" starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("%s failed: %w", name, err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down " + name)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("%s shutdown failed: %w", name, err)
	}

	slog.Info(name + " stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// 孤立したタグと技術のクリーンアップを定期実行し、/health と /metrics を公開する。
func runWorker(ctx context.Context, cfg *config.Config) error {
	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	reg := newRegistry()
	collector := metrics.NewCollector(reg)
	job := cleanup.NewCleanupJob(db, slog.Default(), collector)

	r := chi.NewRouter()
	r.Get("/health", handler.HealthHandler(db))
	r.Method(http.MethodGet, "/metrics", metrics.Handler(reg))

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	slog.Info("worker starting", slog.Duration("cleanup_interval", cfg.CleanupInterval))

	jobCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		job.Start(jobCtx, cfg.CleanupInterval)
	}()

	err = serveUntilDone(ctx, server, "worker")
	cancel()
	<-done
	return err
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	version, err := database.RunMigrations(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully", slog.Uint64("version", uint64(version)))
	return nil
}

// runSeed はフィクスチャデータを投入する。投入済みであれば何もしない。
func runSeed(ctx context.Context, cfg *config.Config) error {
	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	fx, err := seed.DefaultFixtures()
	if err != nil {
		return err
	}

	seeder := seed.NewSeeder(seed.Stores{
		Developers:   repository.NewPostgresDeveloperRepo(db),
		Technologies: repository.NewPostgresTechnologyRepo(db),
		Posts:        repository.NewPostgresPostRepo(db),
		Likes:        repository.NewPostgresLikeRepo(db),
		Comments:     repository.NewPostgresCommentRepo(db),
	}, auth.NewPasswordHasher(cfg.BcryptCost), slog.Default())

	if _, err := seeder.Run(ctx, fx); err != nil {
		return fmt.Errorf("seed failed: %w", err)
	}
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	target := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(target)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLのパスワードをマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}
