package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// RequestIDHeader はリクエストIDを受け渡すヘッダー名。
const RequestIDHeader = "X-Request-ID"

var requestInfoContextKey = contextKey("request_info")

// requestInfo はリクエスト単位でミドルウェア間に共有する情報。
// 認証はルート単位で行われるため、外側のミドルウェアへはポインタ経由で伝える。
type requestInfo struct {
	id          string
	developerID int64
}

// NewRequestIDMiddleware はリクエストIDを採番し、レスポンスヘッダーとコンテキストに設定する。
// クライアントが有効なUUIDを送ってきた場合はそれを引き継ぐ。
func NewRequestIDMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if _, err := uuid.Parse(id); err != nil {
				id = uuid.New().String()
			}
			w.Header().Set(RequestIDHeader, id)

			ctx := context.WithValue(r.Context(), requestInfoContextKey, &requestInfo{id: id})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestIDFromContext はリクエストIDを返す。未設定の場合は空文字を返す。
func RequestIDFromContext(ctx context.Context) string {
	if info, ok := ctx.Value(requestInfoContextKey).(*requestInfo); ok {
		return info.id
	}
	return ""
}

func markDeveloper(ctx context.Context, developerID int64) {
	if info, ok := ctx.Value(requestInfoContextKey).(*requestInfo); ok {
		info.developerID = developerID
	}
}

func markedDeveloper(ctx context.Context) int64 {
	if info, ok := ctx.Value(requestInfoContextKey).(*requestInfo); ok {
		return info.developerID
	}
	return 0
}
