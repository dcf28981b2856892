// Package model はドメインモデルを定義する。
package model

import (
	"fmt"
	"strings"
)

// FieldError はバリデーションに失敗した1フィールド分の詳細を表す。
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// APIError は統一エラーフォーマットを表す。
// HTTPステータスはCodeから決定され、Messageがレスポンスの error フィールドになる。
type APIError struct {
	Code    string       // エラーコード
	Message string       // エラーメッセージ
	Fields  []FieldError // バリデーションエラー時のフィールド詳細
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthenticated   = "UNAUTHENTICATED"
	ErrCodeInvalidToken      = "INVALID_TOKEN"
	ErrCodeTokenNotValid     = "TOKEN_NOT_VALID"
	ErrCodeIdentityNotFound  = "IDENTITY_NOT_FOUND"
	ErrCodeAuthFailed        = "AUTH_FAILED"
	ErrCodeDeveloperNotFound = "DEVELOPER_NOT_FOUND"
	ErrCodePostNotFound      = "POST_NOT_FOUND"
	ErrCodeNotAllowed        = "NOT_ALLOWED"
	ErrCodeValidation        = "VALIDATION_FAILED"
	ErrCodeEmailTaken        = "EMAIL_TAKEN"
	ErrCodeUnknownEmail      = "UNKNOWN_EMAIL"
	ErrCodeWrongPassword     = "WRONG_PASSWORD"
	ErrCodeUpstreamFailure   = "UPSTREAM_FAILURE"
	ErrCodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	ErrCodeUnknown           = "UNKNOWN_ERROR"
	ErrCodeInternal          = "INTERNAL_ERROR"
)

// NewUnauthenticatedError は認証情報が無い、または形式が不正な場合のエラーを生成する。
func NewUnauthenticatedError() *APIError {
	return &APIError{
		Code:    ErrCodeUnauthenticated,
		Message: "Please supply some valid credentials",
	}
}

// NewInvalidTokenError はトークンのデコードに失敗した場合のエラーを生成する。
// kindには失敗の種別名（例: TokenExpiredError）を渡す。
func NewInvalidTokenError(kind, message string) *APIError {
	return &APIError{
		Code:    ErrCodeInvalidToken,
		Message: fmt.Sprintf("Error %s: %s", kind, message),
	}
}

// NewTokenNotValidError は外部IdPがトークンを無効と判定した場合のエラーを生成する。
func NewTokenNotValidError() *APIError {
	return &APIError{
		Code:    ErrCodeTokenNotValid,
		Message: "Token not valid",
	}
}

// NewIdentityNotFoundError はトークンの開発者が存在しない場合のエラーを生成する。
func NewIdentityNotFoundError() *APIError {
	return &APIError{
		Code:    ErrCodeIdentityNotFound,
		Message: "Developer does not exist",
	}
}

// NewAuthFailedError は認証処理中の想定外エラーを生成する。
// スタックトレースは含めず、種別名とメッセージのみを返す。
func NewAuthFailedError(kind, message string) *APIError {
	return &APIError{
		Code:    ErrCodeAuthFailed,
		Message: fmt.Sprintf("Error %s: %s", kind, message),
	}
}

// NewDeveloperNotFoundError は開発者が見つからない場合のエラーを生成する。
func NewDeveloperNotFoundError() *APIError {
	return &APIError{
		Code:    ErrCodeDeveloperNotFound,
		Message: "Developer does not exist",
	}
}

// NewPostNotFoundError は投稿が見つからない場合のエラーを生成する。
func NewPostNotFoundError() *APIError {
	return &APIError{
		Code:    ErrCodePostNotFound,
		Message: "Post does not exist",
	}
}

// NewNotAllowedError は所有者以外が操作しようとした場合のエラーを生成する。
func NewNotAllowedError() *APIError {
	return &APIError{
		Code:    ErrCodeNotAllowed,
		Message: "Not allowed",
	}
}

// NewValidationError はリクエストのバリデーションエラーを生成する。
// メッセージには違反したフィールド名を列挙する。
func NewValidationError(fields []FieldError) *APIError {
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		names = append(names, f.Field)
	}
	return &APIError{
		Code:    ErrCodeValidation,
		Message: fmt.Sprintf("Invalid request: %s", strings.Join(names, ", ")),
		Fields:  fields,
	}
}

// NewEmailTakenError はメールアドレスが既に登録済みの場合のエラーを生成する。
func NewEmailTakenError() *APIError {
	return &APIError{
		Code:    ErrCodeEmailTaken,
		Message: "A developer with that email already exists",
	}
}

// NewUnknownEmailError はログイン時にメールアドレスが未登録の場合のエラーを生成する。
func NewUnknownEmailError() *APIError {
	return &APIError{
		Code:    ErrCodeUnknownEmail,
		Message: "Developer with that email does not exist",
	}
}

// NewWrongPasswordError はログイン時にパスワードが一致しない場合のエラーを生成する。
func NewWrongPasswordError() *APIError {
	return &APIError{
		Code:    ErrCodeWrongPassword,
		Message: "Password was incorrect",
	}
}

// NewUpstreamError は外部IdPとの通信失敗を表すエラーを生成する。
func NewUpstreamError(kind, message string) *APIError {
	return &APIError{
		Code:    ErrCodeUpstreamFailure,
		Message: fmt.Sprintf("Error %s: %s", kind, message),
	}
}

// NewRateLimitExceededError はレート制限超過エラーを生成する。
func NewRateLimitExceededError() *APIError {
	return &APIError{
		Code:    ErrCodeRateLimitExceeded,
		Message: "Too many requests. Please try again later.",
	}
}

// NewUnknownError は永続化に成功した直後の再取得に失敗した場合のエラーを生成する。
func NewUnknownError() *APIError {
	return &APIError{
		Code:    ErrCodeUnknown,
		Message: "Unknown error",
	}
}

// NewInternalError は内部エラーを生成する。詳細はログにのみ記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:    ErrCodeInternal,
		Message: "Internal server error",
	}
}
