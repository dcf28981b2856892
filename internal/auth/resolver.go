// Package auth はBearerトークンからの開発者解決、パスワード認証、サインアップを提供する。
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/TechmongersNL/coders-network-api/internal/model"
	"github.com/TechmongersNL/coders-network-api/internal/token"
)

// IdentityResolver はBearerトークンを開発者に解決する。
// 既知の失敗は *model.APIError で返し、それ以外のエラーは呼び出し側で分類する。
type IdentityResolver interface {
	Resolve(ctx context.Context, bearer string) (*model.Developer, error)
}

// TokenVerifier はトークンを検証し開発者IDを返す。
type TokenVerifier interface {
	Verify(tokenString string) (int64, error)
}

// DeveloperFinder はIDによる開発者の検索に必要なインターフェース。
type DeveloperFinder interface {
	FindByID(ctx context.Context, id int64) (*model.Developer, error)
}

// LocalResolver は自前で発行したトークンを検証して開発者を解決する。
type LocalResolver struct {
	verifier   TokenVerifier
	developers DeveloperFinder
}

// NewLocalResolver はLocalResolverを生成する。
func NewLocalResolver(verifier TokenVerifier, developers DeveloperFinder) *LocalResolver {
	return &LocalResolver{verifier: verifier, developers: developers}
}

// Resolve はトークンを検証し、ペイロードのIDで開発者を取得する。
func (r *LocalResolver) Resolve(ctx context.Context, bearer string) (*model.Developer, error) {
	id, err := r.verifier.Verify(bearer)
	if err != nil {
		var invalid *token.InvalidTokenError
		if errors.As(err, &invalid) {
			return nil, model.NewInvalidTokenError(invalid.Kind, invalid.Message)
		}
		return nil, fmt.Errorf("failed to verify token: %w", err)
	}

	dev, err := r.developers.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find developer: %w", err)
	}
	if dev == nil {
		return nil, model.NewIdentityNotFoundError()
	}
	return dev, nil
}
