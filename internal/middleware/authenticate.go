// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/TechmongersNL/coders-network-api/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// developerContextKey は認証済み開発者を格納するためのキー。
var developerContextKey = contextKey("developer")

// IdentityResolver はBearerトークンを開発者に解決する。
type IdentityResolver interface {
	Resolve(ctx context.Context, bearer string) (*model.Developer, error)
}

// AuthFailureObserver は認証失敗をエラーコード単位で記録する。
type AuthFailureObserver interface {
	ObserveAuthFailure(code string)
}

// NewAuthenticateMiddleware はAuthorizationヘッダーのBearerトークンを検証し、
// 解決した開発者をリクエストコンテキストに注入するミドルウェアを返す。
// ヘッダーが無い、または形式が不正な場合は401を返す。observerはnilでもよい。
func NewAuthenticateMiddleware(resolver IdentityResolver, observer AuthFailureObserver) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fail := func(apiErr *model.APIError) {
				if observer != nil {
					observer.ObserveAuthFailure(apiErr.Code)
				}
				WriteAPIError(w, apiErr)
			}

			// 1. Bearerトークンを取り出す
			bearer, ok := extractBearer(r.Header.Get("Authorization"))
			if !ok {
				fail(model.NewUnauthenticatedError())
				return
			}

			// 2. トークンを開発者に解決する
			dev, err := resolver.Resolve(r.Context(), bearer)
			if err != nil {
				var apiErr *model.APIError
				if errors.As(err, &apiErr) {
					fail(apiErr)
					return
				}
				slog.Error("failed to resolve identity",
					slog.String("error", err.Error()),
				)
				fail(classifyAuthError(err))
				return
			}

			// 3. 認証済み開発者をコンテキストに注入
			markDeveloper(r.Context(), dev.ID)
			next.ServeHTTP(w, r.WithContext(ContextWithDeveloper(r.Context(), dev)))
		})
	}
}

// extractBearer は "Bearer <token>" 形式のヘッダーからトークンを取り出す。
// スキーム名の大文字小文字は区別しない。
func extractBearer(header string) (string, bool) {
	scheme, tok, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	tok = strings.TrimSpace(tok)
	if tok == "" || strings.ContainsAny(tok, " \t") {
		return "", false
	}
	return tok, true
}

// classifyAuthError は想定外のエラーを種別名付きの認証エラーに変換する。
func classifyAuthError(err error) *model.APIError {
	kind := "Error"
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = "TimeoutError"
	case errors.As(err, &netErr):
		kind = "NetworkError"
	}
	return model.NewAuthFailedError(kind, err.Error())
}

// DeveloperFromContext はリクエストコンテキストから認証済み開発者を取得する。
// 認証ミドルウェアを通過したリクエストでのみ有効。
func DeveloperFromContext(ctx context.Context) (*model.Developer, bool) {
	dev, ok := ctx.Value(developerContextKey).(*model.Developer)
	return dev, ok && dev != nil
}

// DeveloperIDFromContext は認証済み開発者のIDを取得する。
func DeveloperIDFromContext(ctx context.Context) (int64, bool) {
	dev, ok := DeveloperFromContext(ctx)
	if !ok {
		return 0, false
	}
	return dev.ID, true
}

// ContextWithDeveloper はコンテキストに認証済み開発者を注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithDeveloper(ctx context.Context, dev *model.Developer) context.Context {
	return context.WithValue(ctx, developerContextKey, dev)
}
