package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// 認証ストラテジー
const (
	AuthStrategyLocal         = "local"
	AuthStrategyIntrospection = "introspection"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL    string
	DBMaxOpenConns int

	// Token
	JWTSecret string
	TokenTTL  time.Duration

	// Auth
	AuthStrategy string
	BcryptCost   int

	// Introspection（AUTH_STRATEGY=introspection の場合のみ使用）
	IntrospectionURL          string
	IntrospectionClientID     string
	IntrospectionClientSecret string
	IntrospectionIssuer       string
	IntrospectionTimeout      time.Duration
	IntrospectionCacheTTL     time.Duration

	// Redis（設定時のみイントロスペクション結果をキャッシュする）
	RedisAddr     string
	RedisPassword string

	// Rate Limit（req/min/developer）
	RateLimitGeneral int
	RateLimitContent int

	// Worker
	CleanupInterval time.Duration

	// Logging
	LogLevel string

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigins []string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}

	cfg.AuthStrategy = strings.ToLower(getEnvString("AUTH_STRATEGY", AuthStrategyLocal))
	if cfg.AuthStrategy == AuthStrategyIntrospection {
		cfg.IntrospectionURL = os.Getenv("INTROSPECTION_URL")
		if cfg.IntrospectionURL == "" {
			missing = append(missing, "INTROSPECTION_URL")
		}
		cfg.IntrospectionClientID = os.Getenv("INTROSPECTION_CLIENT_ID")
		if cfg.IntrospectionClientID == "" {
			missing = append(missing, "INTROSPECTION_CLIENT_ID")
		}
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	if cfg.AuthStrategy != AuthStrategyLocal && cfg.AuthStrategy != AuthStrategyIntrospection {
		return nil, fmt.Errorf("unsupported AUTH_STRATEGY: %q", cfg.AuthStrategy)
	}

	// Optional fields with defaults
	cfg.DBMaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", 10)
	cfg.TokenTTL = getEnvDuration("TOKEN_TTL", 2*time.Hour)
	cfg.BcryptCost = getEnvInt("BCRYPT_COST", 10)
	cfg.IntrospectionClientSecret = getEnvString("INTROSPECTION_CLIENT_SECRET", "")
	cfg.IntrospectionIssuer = getEnvString("INTROSPECTION_ISSUER", "")
	cfg.IntrospectionTimeout = getEnvDuration("INTROSPECTION_TIMEOUT", 5*time.Second)
	cfg.IntrospectionCacheTTL = getEnvDuration("INTROSPECTION_CACHE_TTL", 60*time.Second)
	cfg.RedisAddr = getEnvString("REDIS_ADDR", "")
	cfg.RedisPassword = getEnvString("REDIS_PASSWORD", "")
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitContent = getEnvInt("RATE_LIMIT_CONTENT", 20)
	cfg.CleanupInterval = getEnvDuration("CLEANUP_INTERVAL", 24*time.Hour)
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.ServerPort = getEnvString("SERVER_PORT", "5000")
	cfg.CORSAllowedOrigins = getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"})

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

// getEnvList はカンマ区切りの環境変数を読み込む。空要素は無視する。
func getEnvList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
