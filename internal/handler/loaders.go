package handler

import (
	"context"
	"net/http"

	"github.com/TechmongersNL/coders-network-api/internal/middleware"
	"github.com/TechmongersNL/coders-network-api/internal/model"
)

// ctxKey はハンドラー層でコンテキストに値を格納するためのキー。
type ctxKey string

const (
	loadedDeveloperKey ctxKey = "loaded_developer"
	loadedPostKey      ctxKey = "loaded_post"
)

// DeveloperLoader は開発者をプロフィール付きで取得する。
type DeveloperLoader interface {
	GetProfile(ctx context.Context, id int64) (*model.DeveloperProfile, error)
}

// PostLoader は投稿を完全な表現で取得する。
type PostLoader interface {
	Get(ctx context.Context, id int64) (*model.PostFull, error)
}

// FindDeveloper はURLパラメーター {id} の開発者を全投稿・お気に入り技術付きで読み込み、
// コンテキストに格納するミドルウェアを返す。存在しない場合は404を返す。
func FindDeveloper(loader DeveloperLoader) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, apiErr := parseIDParam(r, "id")
			if apiErr != nil {
				middleware.WriteAPIError(w, apiErr)
				return
			}

			profile, err := loader.GetProfile(r.Context(), id)
			if err != nil {
				handleServiceError(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), loadedDeveloperKey, profile)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// FindPost はURLパラメーター {id} の投稿を作者・タグ・いいね付きで読み込み、
// コンテキストに格納するミドルウェアを返す。存在しない場合は404を返す。
func FindPost(loader PostLoader) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, apiErr := parseIDParam(r, "id")
			if apiErr != nil {
				middleware.WriteAPIError(w, apiErr)
				return
			}

			post, err := loader.Get(r.Context(), id)
			if err != nil {
				handleServiceError(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), loadedPostKey, post)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// LoadedDeveloperFromContext はFindDeveloperが読み込んだ開発者を返す。
func LoadedDeveloperFromContext(ctx context.Context) (*model.DeveloperProfile, bool) {
	p, ok := ctx.Value(loadedDeveloperKey).(*model.DeveloperProfile)
	return p, ok && p != nil
}

// LoadedPostFromContext はFindPostが読み込んだ投稿を返す。
func LoadedPostFromContext(ctx context.Context) (*model.PostFull, bool) {
	p, ok := ctx.Value(loadedPostKey).(*model.PostFull)
	return p, ok && p != nil
}

// mustLoadedDeveloper はローダー通過後のハンドラーで読み込み済み開発者を取り出す。
func mustLoadedDeveloper(r *http.Request) *model.DeveloperProfile {
	p, ok := LoadedDeveloperFromContext(r.Context())
	if !ok {
		panic("handler: developer not loaded; FindDeveloper must run first")
	}
	return p
}

// mustLoadedPost はローダー通過後のハンドラーで読み込み済み投稿を取り出す。
func mustLoadedPost(r *http.Request) *model.PostFull {
	p, ok := LoadedPostFromContext(r.Context())
	if !ok {
		panic("handler: post not loaded; FindPost must run first")
	}
	return p
}

// mustIdentity は認証ミドルウェア通過後のハンドラーで認証済み開発者を取り出す。
func mustIdentity(r *http.Request) *model.Developer {
	dev, ok := middleware.DeveloperFromContext(r.Context())
	if !ok {
		panic("handler: no authenticated developer; authenticate must run first")
	}
	return dev
}
