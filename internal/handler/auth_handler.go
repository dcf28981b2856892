package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/TechmongersNL/coders-network-api/internal/auth"
	"github.com/TechmongersNL/coders-network-api/internal/metrics"
	"github.com/TechmongersNL/coders-network-api/internal/middleware"
	"github.com/TechmongersNL/coders-network-api/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Signup(ctx context.Context, in auth.SignupInput) (*auth.SignupResult, error)
	Login(ctx context.Context, email, password string) (string, error)
}

// AuthHandler はサインアップ・ログイン・認証確認のHTTPハンドラー。
type AuthHandler struct {
	service    AuthServiceInterface
	developers DeveloperLoader
	recorder   metrics.Recorder
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, developers DeveloperLoader, recorder metrics.Recorder) *AuthHandler {
	if recorder == nil {
		recorder = metrics.NopRecorder{}
	}
	return &AuthHandler{
		service:    service,
		developers: developers,
		recorder:   recorder,
	}
}

type signupRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,maxbytes=72"`
	Name     string `json:"name" validate:"required,max=255"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type signupResponse struct {
	JWT       string           `json:"jwt"`
	Developer *model.Developer `json:"developer"`
}

type tokenResponse struct {
	JWT string `json:"jwt"`
}

// Signup は開発者を登録しトークンを発行する。
// POST /signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if apiErr := decodeAndValidate(w, r, &req); apiErr != nil {
		middleware.WriteAPIError(w, apiErr)
		return
	}

	result, err := h.service.Signup(r.Context(), auth.SignupInput{
		Email:    strings.TrimSpace(req.Email),
		Password: req.Password,
		Name:     strings.TrimSpace(req.Name),
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	h.recorder.RecordSignup()

	w.Header().Set("Location", fmt.Sprintf("/developers/%d", result.Developer.ID))
	writeJSON(w, http.StatusCreated, signupResponse{
		JWT:       result.Token,
		Developer: result.Developer,
	})
}

// Login はメールアドレスとパスワードでトークンを発行する。
// POST /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if apiErr := decodeAndValidate(w, r, &req); apiErr != nil {
		middleware.WriteAPIError(w, apiErr)
		return
	}

	tok, err := h.service.Login(r.Context(), strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{JWT: tok})
}

// Authenticated は認証が通ったことだけを返す。
// GET /authenticated
func (h *AuthHandler) Authenticated(w http.ResponseWriter, r *http.Request) {
	mustIdentity(r)
	writeJSON(w, http.StatusOK, map[string]bool{"authenticated": true})
}

// Me は認証済み開発者のプロフィールを返す。
// GET /me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity := mustIdentity(r)

	profile, err := h.developers.GetProfile(r.Context(), identity.ID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}
