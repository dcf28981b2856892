package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/TechmongersNL/coders-network-api/internal/metrics"
	"github.com/TechmongersNL/coders-network-api/internal/middleware"
	"github.com/TechmongersNL/coders-network-api/internal/model"
)

// PostServiceInterface は投稿ハンドラーが必要とするサービスインターフェース。
type PostServiceInterface interface {
	PostLoader
	List(ctx context.Context, filter model.PostFilter) (*model.List[model.PostSummary], error)
	Create(ctx context.Context, authorID int64, in model.PostInput) (*model.PostFull, error)
	Update(ctx context.Context, id int64, update model.PostUpdate) (*model.PostFull, error)
	Delete(ctx context.Context, id int64) error
	Like(ctx context.Context, developerID, postID int64) error
	Unlike(ctx context.Context, developerID, postID int64) error
	AddComment(ctx context.Context, postID, developerID int64, text string) (*model.Comment, error)
	ListComments(ctx context.Context, postID int64, page model.Page) (*model.List[model.Comment], error)
}

// PostHandler は投稿・いいね・コメントのHTTPハンドラー。
type PostHandler struct {
	service  PostServiceInterface
	recorder metrics.Recorder
}

// NewPostHandler はPostHandlerを生成する。
func NewPostHandler(service PostServiceInterface, recorder metrics.Recorder) *PostHandler {
	if recorder == nil {
		recorder = metrics.NopRecorder{}
	}
	return &PostHandler{service: service, recorder: recorder}
}

type createPostRequest struct {
	Title   string   `json:"title" validate:"required,max=255"`
	Content string   `json:"content" validate:"required"`
	Tags    []string `json:"tags" validate:"omitempty,max=20,dive,required,max=50"`
}

type updatePostRequest struct {
	Title   *string  `json:"title" validate:"omitnil,min=1,max=255"`
	Content *string  `json:"content" validate:"omitnil,min=1"`
	Tags    []string `json:"tags" validate:"omitempty,max=20,dive,required,max=50"`
}

type createCommentRequest struct {
	Text string `json:"text" validate:"required,max=2000"`
}

// List は投稿一覧を返す。本文は含まない。
// GET /posts?limit=&offset=&tag=&author=
func (h *PostHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, apiErr := parsePostFilter(r)
	if apiErr != nil {
		middleware.WriteAPIError(w, apiErr)
		return
	}

	list, err := h.service.List(r.Context(), filter)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, list)
}

// Create は認証済み開発者を作者として投稿を作成する。
// POST /posts
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity := mustIdentity(r)

	var req createPostRequest
	if apiErr := decodeAndValidate(w, r, &req); apiErr != nil {
		middleware.WriteAPIError(w, apiErr)
		return
	}

	post, err := h.service.Create(r.Context(), identity.ID, model.PostInput{
		Title:   req.Title,
		Content: req.Content,
		Tags:    req.Tags,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	h.recorder.RecordPostCreated()

	w.Header().Set("Location", fmt.Sprintf("/posts/%d", post.ID))
	writeJSON(w, http.StatusCreated, post)
}

// Get は読み込み済みの投稿を返す。
// GET /posts/{id}
func (h *PostHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, mustLoadedPost(r))
}

// Update は自分の投稿を部分更新する。
// PUT /posts/{id}
func (h *PostHandler) Update(w http.ResponseWriter, r *http.Request) {
	current := mustLoadedPost(r)

	var req updatePostRequest
	if apiErr := decodeAndValidate(w, r, &req); apiErr != nil {
		middleware.WriteAPIError(w, apiErr)
		return
	}

	post, err := h.service.Update(r.Context(), current.ID, model.PostUpdate{
		Title:   req.Title,
		Content: req.Content,
		Tags:    req.Tags,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, post)
}

// Delete は自分の投稿を削除する。
// DELETE /posts/{id}
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	current := mustLoadedPost(r)

	if err := h.service.Delete(r.Context(), current.ID); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, idResponse{ID: current.ID})
}

// Like は投稿にいいねする。繰り返し呼んでも結果は同じ。
// POST /posts/{id}/likes
func (h *PostHandler) Like(w http.ResponseWriter, r *http.Request) {
	identity := mustIdentity(r)
	current := mustLoadedPost(r)

	if err := h.service.Like(r.Context(), identity.ID, current.ID); err != nil {
		handleServiceError(w, r, err)
		return
	}
	h.recorder.RecordLike(true)

	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// Unlike はいいねを取り消す。いいねしていなくても成功する。
// DELETE /posts/{id}/likes
func (h *PostHandler) Unlike(w http.ResponseWriter, r *http.Request) {
	identity := mustIdentity(r)
	current := mustLoadedPost(r)

	if err := h.service.Unlike(r.Context(), identity.ID, current.ID); err != nil {
		handleServiceError(w, r, err)
		return
	}
	h.recorder.RecordLike(false)

	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// CreateComment は投稿にコメントする。
// POST /posts/{id}/comments
func (h *PostHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
	identity := mustIdentity(r)
	current := mustLoadedPost(r)

	var req createCommentRequest
	if apiErr := decodeAndValidate(w, r, &req); apiErr != nil {
		middleware.WriteAPIError(w, apiErr)
		return
	}

	comment, err := h.service.AddComment(r.Context(), current.ID, identity.ID, req.Text)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	h.recorder.RecordCommentCreated()

	writeJSON(w, http.StatusCreated, comment)
}

// ListComments は投稿のコメント一覧を返す。
// GET /posts/{id}/comments
func (h *PostHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	current := mustLoadedPost(r)

	page, fields := parsePage(r)
	if len(fields) > 0 {
		middleware.WriteAPIError(w, model.NewValidationError(fields))
		return
	}

	list, err := h.service.ListComments(r.Context(), current.ID, page)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, list)
}
