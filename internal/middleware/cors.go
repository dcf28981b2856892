package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// NewCORSMiddleware は許可オリジンに対するCORSミドルウェアを返す。
// Bearerトークンで認証するため、Authorizationヘッダーを許可しCookieは扱わない。
func NewCORSMiddleware(allowedOrigins []string) func(next http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", RequestIDHeader},
		ExposedHeaders:   []string{"Location", RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           86400,
	})
}
