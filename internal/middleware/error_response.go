package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/TechmongersNL/coders-network-api/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
// バリデーションエラーの場合のみfieldsを含む。
type ErrorResponseBody struct {
	Error  string             `json:"error"`
	Fields []model.FieldError `json:"fields,omitempty"`
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponseBody{
		Error:  apiErr.Message,
		Fields: apiErr.Fields,
	})
}

// WriteAPIError はエラーコードに対応するステータスでエラーレスポンスを書き込む。
func WriteAPIError(w http.ResponseWriter, apiErr *model.APIError) {
	WriteErrorResponse(w, StatusForAPIError(apiErr), apiErr)
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、クライアントには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, model.NewInternalError())
}

// StatusForAPIError はAPIErrorコードをHTTPステータスコードにマッピングする。
// 所有者不一致は403ではなく401で返す。
func StatusForAPIError(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeUnauthenticated, model.ErrCodeNotAllowed:
		return http.StatusUnauthorized
	case model.ErrCodeInvalidToken,
		model.ErrCodeTokenNotValid,
		model.ErrCodeIdentityNotFound,
		model.ErrCodeAuthFailed,
		model.ErrCodeValidation,
		model.ErrCodeEmailTaken,
		model.ErrCodeUnknownEmail,
		model.ErrCodeWrongPassword,
		model.ErrCodeUpstreamFailure:
		return http.StatusBadRequest
	case model.ErrCodeDeveloperNotFound, model.ErrCodePostNotFound:
		return http.StatusNotFound
	case model.ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
