package handler

import (
	"net/http"

	"github.com/TechmongersNL/coders-network-api/internal/middleware"
	"github.com/TechmongersNL/coders-network-api/internal/model"
)

// MustBeMe は認証済み開発者と読み込み済み開発者が同一の場合のみ通過させる。
// 認証ミドルウェアとFindDeveloperの後に配置する。どちらかが欠けている場合はpanicする。
func MustBeMe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := mustIdentity(r)
		target := mustLoadedDeveloper(r)

		if identity.ID != target.ID {
			middleware.WriteAPIError(w, model.NewNotAllowedError())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// MustBeMine は認証済み開発者が読み込み済み投稿の作者である場合のみ通過させる。
// 認証ミドルウェアとFindPostの後に配置する。どちらかが欠けている場合はpanicする。
func MustBeMine(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := mustIdentity(r)
		post := mustLoadedPost(r)

		if identity.ID != post.AuthorID {
			middleware.WriteAPIError(w, model.NewNotAllowedError())
			return
		}
		next.ServeHTTP(w, r)
	})
}
