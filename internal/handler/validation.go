package handler

import (
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/TechmongersNL/coders-network-api/internal/model"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// validate はリクエストの構造体タグ検証に使う共有インスタンス。
// エラーのフィールド名にはJSONタグ名を使用する。
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("maxbytes", maxBytes); err != nil {
		panic(err)
	}
	return v
}

// maxBytes は文字列のバイト長がパラメーター以下であることを検証する。
// max は文字数で数えるため、bcryptのようにバイト数で制限される値に使う。
func maxBytes(fl validator.FieldLevel) bool {
	limit, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return len(fl.Field().String()) <= limit
}

// validateStruct は構造体を検証し、違反があればフィールド別のValidationエラーを返す。
func validateStruct(v any) *model.APIError {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return model.NewValidationError([]model.FieldError{{Field: "body", Reason: err.Error()}})
	}

	fields := make([]model.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, model.FieldError{
			Field:  fieldPath(fe),
			Reason: reasonFor(fe),
		})
	}
	return model.NewValidationError(fields)
}

// fieldPath はトップレベル構造体名を除いたフィールドのパスを返す。
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, found := strings.Cut(ns, "."); found {
		return rest
	}
	return fe.Field()
}

func reasonFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "url", "http_url":
		return "must be a valid URL"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must contain at most %s items", fe.Param())
	case "maxbytes":
		return fmt.Sprintf("must be at most %s bytes", fe.Param())
	default:
		return fmt.Sprintf("failed on %s", fe.Tag())
	}
}

// parseIDParam はURLパラメーターを正の整数IDとして解釈する。
func parseIDParam(r *http.Request, name string) (int64, *model.APIError) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, model.NewValidationError([]model.FieldError{
			{Field: name, Reason: "must be a positive integer"},
		})
	}
	return id, nil
}

// parsePage はクエリのlimit/offsetを解釈する。未指定の場合はデフォルト値を使う。
func parsePage(r *http.Request) (model.Page, []model.FieldError) {
	page := model.DefaultPage()
	var fields []model.FieldError
	q := r.URL.Query()

	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > model.MaxLimit {
			fields = append(fields, model.FieldError{
				Field:  "limit",
				Reason: fmt.Sprintf("must be an integer between 1 and %d", model.MaxLimit),
			})
		} else {
			page.Limit = n
		}
	}

	if raw := q.Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			fields = append(fields, model.FieldError{
				Field:  "offset",
				Reason: "must be a non-negative integer",
			})
		} else {
			page.Offset = n
		}
	}

	return page, fields
}

// parsePostFilter はページングに加えてtagとauthor（別名developer）の絞り込み条件を解釈する。
func parsePostFilter(r *http.Request) (model.PostFilter, *model.APIError) {
	page, fields := parsePage(r)
	filter := model.PostFilter{Page: page}
	q := r.URL.Query()

	filter.Tag = strings.TrimSpace(q.Get("tag"))

	for _, key := range []string{"author", "developer"} {
		raw := q.Get(key)
		if raw == "" {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			fields = append(fields, model.FieldError{Field: key, Reason: "must be a positive integer"})
			continue
		}
		if filter.AuthorID != 0 && filter.AuthorID != id {
			fields = append(fields, model.FieldError{Field: key, Reason: "conflicts with author"})
			continue
		}
		filter.AuthorID = id
	}

	if len(fields) > 0 {
		return filter, model.NewValidationError(fields)
	}
	return filter, nil
}
