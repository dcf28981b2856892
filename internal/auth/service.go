package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/TechmongersNL/coders-network-api/internal/model"
	"github.com/TechmongersNL/coders-network-api/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// TokenIssuer は開発者IDに対してトークンを発行する。
type TokenIssuer interface {
	Issue(developerID int64) (string, error)
}

// DeveloperStore はサインアップ・ログインに必要な開発者リポジトリの部分集合。
type DeveloperStore interface {
	FindByEmail(ctx context.Context, email string) (*model.Developer, error)
	Create(ctx context.Context, dev *model.Developer) error
}

// SignupInput はサインアップの入力。
type SignupInput struct {
	Email    string
	Password string
	Name     string
}

// SignupResult はサインアップの結果。
type SignupResult struct {
	Token     string
	Developer *model.Developer
}

// Service はサインアップとログインのビジネスロジックを提供する。
type Service struct {
	developers DeveloperStore
	hasher     *PasswordHasher
	issuer     TokenIssuer
}

// NewService はServiceを生成する。
func NewService(developers DeveloperStore, hasher *PasswordHasher, issuer TokenIssuer) *Service {
	return &Service{
		developers: developers,
		hasher:     hasher,
		issuer:     issuer,
	}
}

// Signup は開発者を作成し、そのトークンを発行する。
// メールアドレスが登録済みの場合はEmailTakenエラーを返す。
func (s *Service) Signup(ctx context.Context, in SignupInput) (*SignupResult, error) {
	hash, err := s.hasher.Hash(in.Password)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, passwordTooLongError()
	}
	if err != nil {
		return nil, err
	}

	dev := &model.Developer{
		Email:        in.Email,
		PasswordHash: hash,
		Name:         in.Name,
	}
	if err := s.developers.Create(ctx, dev); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.NewEmailTakenError()
		}
		return nil, fmt.Errorf("failed to create developer: %w", err)
	}

	tok, err := s.issuer.Issue(dev.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	slog.Info("developer signed up", slog.Int64("developer_id", dev.ID))
	return &SignupResult{Token: tok, Developer: dev}, nil
}

// Login はメールアドレスとパスワードを照合し、トークンを発行する。
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	dev, err := s.developers.FindByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("failed to find developer: %w", err)
	}
	if dev == nil {
		return "", model.NewUnknownEmailError()
	}

	if !s.hasher.Compare(dev.PasswordHash, password) {
		slog.Info("login failed", slog.Int64("developer_id", dev.ID))
		return "", model.NewWrongPasswordError()
	}

	tok, err := s.issuer.Issue(dev.ID)
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}
	return tok, nil
}

// passwordTooLongError はハンドラーの検証をすり抜けた長すぎるパスワードをValidationエラーにする。
func passwordTooLongError() *model.APIError {
	return model.NewValidationError([]model.FieldError{
		{Field: "password", Reason: fmt.Sprintf("must be at most %d bytes", MaxPasswordBytes)},
	})
}
