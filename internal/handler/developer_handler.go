package handler

import (
	"context"
	"net/http"

	"github.com/TechmongersNL/coders-network-api/internal/middleware"
	"github.com/TechmongersNL/coders-network-api/internal/model"
)

// DeveloperServiceInterface は開発者ハンドラーが必要とするサービスインターフェース。
type DeveloperServiceInterface interface {
	DeveloperLoader
	List(ctx context.Context, page model.Page) (*model.List[model.Developer], error)
	Update(ctx context.Context, dev *model.Developer, update model.DeveloperUpdate) (*model.DeveloperProfile, error)
	Delete(ctx context.Context, id int64) error
}

// DeveloperHandler は開発者のHTTPハンドラー。
type DeveloperHandler struct {
	service DeveloperServiceInterface
}

// NewDeveloperHandler はDeveloperHandlerを生成する。
func NewDeveloperHandler(service DeveloperServiceInterface) *DeveloperHandler {
	return &DeveloperHandler{service: service}
}

type updateDeveloperRequest struct {
	Name           *string  `json:"name" validate:"omitnil,min=1,max=255"`
	Intro          *string  `json:"intro" validate:"omitnil,max=2000"`
	GithubUsername *string  `json:"github_username" validate:"omitnil,max=39"`
	Website        *string  `json:"website" validate:"omitnil,omitempty,http_url,max=255"`
	Technologies   []string `json:"technologies" validate:"omitempty,max=50,dive,required,max=50"`
}

// List は開発者一覧を返す。
// GET /developers
func (h *DeveloperHandler) List(w http.ResponseWriter, r *http.Request) {
	page, fields := parsePage(r)
	if len(fields) > 0 {
		middleware.WriteAPIError(w, model.NewValidationError(fields))
		return
	}

	list, err := h.service.List(r.Context(), page)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, list)
}

// Get は読み込み済みの開発者を返す。
// GET /developers/{id}
func (h *DeveloperHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, mustLoadedDeveloper(r))
}

// Update は本人のプロフィールを更新する。
// PUT /developers/{id}
func (h *DeveloperHandler) Update(w http.ResponseWriter, r *http.Request) {
	target := mustLoadedDeveloper(r)

	var req updateDeveloperRequest
	if apiErr := decodeAndValidate(w, r, &req); apiErr != nil {
		middleware.WriteAPIError(w, apiErr)
		return
	}

	profile, err := h.service.Update(r.Context(), &target.Developer, model.DeveloperUpdate{
		Name:           req.Name,
		Intro:          req.Intro,
		GithubUsername: req.GithubUsername,
		Website:        req.Website,
		Technologies:   req.Technologies,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

// Delete は本人の開発者レコードを削除する。
// DELETE /developers/{id}
func (h *DeveloperHandler) Delete(w http.ResponseWriter, r *http.Request) {
	target := mustLoadedDeveloper(r)

	if err := h.service.Delete(r.Context(), target.ID); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, idResponse{ID: target.ID})
}
