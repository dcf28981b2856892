package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/TechmongersNL/coders-network-api/internal/model"
)

func TestStatusForAPIError(t *testing.T) {
	tests := []struct {
		err  *model.APIError
		want int
	}{
		{model.NewUnauthenticatedError(), http.StatusUnauthorized},
		{model.NewNotAllowedError(), http.StatusUnauthorized},
		{model.NewInvalidTokenError("JsonWebTokenError", "jwt malformed"), http.StatusBadRequest},
		{model.NewIdentityNotFoundError(), http.StatusBadRequest},
		{model.NewValidationError([]model.FieldError{{Field: "email", Reason: "required"}}), http.StatusBadRequest},
		{model.NewEmailTakenError(), http.StatusBadRequest},
		{model.NewUpstreamError("HTTPError", "bad gateway"), http.StatusBadRequest},
		{model.NewDeveloperNotFoundError(), http.StatusNotFound},
		{model.NewPostNotFoundError(), http.StatusNotFound},
		{model.NewRateLimitExceededError(), http.StatusTooManyRequests},
		{model.NewUnknownError(), http.StatusInternalServerError},
		{&model.APIError{Code: "SOMETHING_NEW"}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Code, func(t *testing.T) {
			if got := StatusForAPIError(tt.err); got != tt.want {
				t.Errorf("StatusForAPIError(%s) = %d, want %d", tt.err.Code, got, tt.want)
			}
		})
	}
}

func TestWriteErrorResponse_Body(t *testing.T) {
	w := httptest.NewRecorder()

	WriteAPIError(w, model.NewValidationError([]model.FieldError{
		{Field: "title", Reason: "required"},
	}))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	body := decodeErrorBody(t, w)
	if body.Error != "Invalid request: title" {
		t.Errorf("error = %q", body.Error)
	}
	if len(body.Fields) != 1 || body.Fields[0].Field != "title" {
		t.Errorf("fields = %+v", body.Fields)
	}
}

func TestWriteInternalServerError_OmitsFields(t *testing.T) {
	w := httptest.NewRecorder()

	WriteInternalServerError(w)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if strings.Contains(w.Body.String(), "fields") {
		t.Errorf("body = %s, want no fields key", w.Body.String())
	}
}
