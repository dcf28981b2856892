// Package token は開発者IDを格納する署名付きトークンの発行と検証を提供する。
package token

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL はトークンのデフォルト有効期間。
const DefaultTTL = 2 * time.Hour

// ErrInvalidToken はトークンの検証に失敗したことを示す。
// 詳細は InvalidTokenError で取得できる。
var ErrInvalidToken = errors.New("invalid token")

// InvalidTokenError は検証失敗の種別とメッセージを保持する。
type InvalidTokenError struct {
	Kind    string // TokenExpiredError または JsonWebTokenError
	Message string
	Err     error
}

// Error はerrorインターフェースを実装する。
func (e *InvalidTokenError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap はerrors.Is(err, ErrInvalidToken)を成立させる。
func (e *InvalidTokenError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrInvalidToken}
	}
	return []error{ErrInvalidToken, e.Err}
}

// Claims はトークンのペイロード。
type Claims struct {
	jwt.RegisteredClaims
	// ID は開発者ID。
	ID int64 `json:"id"`
}

// Codec はHS256で署名されたトークンを発行・検証する。
// 署名鍵は起動時に注入され、以降変更されない。
type Codec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewCodec は新しいCodecを生成する。ttlが0以下の場合はDefaultTTLを使う。
func NewCodec(secret string, ttl time.Duration) *Codec {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Codec{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue は開発者IDを格納したトークンを発行する。有効期限は発行時刻+TTL。
func (c *Codec) Issue(developerID int64) (string, error) {
	now := c.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(developerID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
		ID: developerID,
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify はトークンの署名と有効期限を検証し、開発者IDを返す。
// 失敗時は *InvalidTokenError を返す。
func (c *Codec) Verify(tokenString string) (int64, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	)

	claims := &Claims{}
	_, err := parser.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		return 0, classify(err)
	}
	if claims.ID <= 0 {
		return 0, &InvalidTokenError{Kind: "JsonWebTokenError", Message: "invalid payload"}
	}

	return claims.ID, nil
}

// classify はjwtライブラリのエラーを種別ごとに分類する。
func classify(err error) *InvalidTokenError {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return &InvalidTokenError{Kind: "TokenExpiredError", Message: "jwt expired", Err: err}
	case errors.Is(err, jwt.ErrTokenMalformed):
		return &InvalidTokenError{Kind: "JsonWebTokenError", Message: "jwt malformed", Err: err}
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return &InvalidTokenError{Kind: "JsonWebTokenError", Message: "invalid signature", Err: err}
	default:
		return &InvalidTokenError{Kind: "JsonWebTokenError", Message: err.Error(), Err: err}
	}
}
