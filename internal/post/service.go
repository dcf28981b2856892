// Package post は投稿・タグ・いいね・コメントのドメインロジックを提供する。
package post

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/TechmongersNL/coders-network-api/internal/model"
	"github.com/TechmongersNL/coders-network-api/internal/repository"
	"github.com/TechmongersNL/coders-network-api/internal/security"
)

// Service は投稿のサービス層。
// 所有者の確認はハンドラー層のガードで済ませている前提で動作する。
type Service struct {
	posts    repository.PostRepository
	likes    repository.LikeRepository
	comments repository.CommentRepository
	renderer security.ContentRenderer
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	posts repository.PostRepository,
	likes repository.LikeRepository,
	comments repository.CommentRepository,
	renderer security.ContentRenderer,
) *Service {
	return &Service{
		posts:    posts,
		likes:    likes,
		comments: comments,
		renderer: renderer,
	}
}

// Get は投稿を本文・タグ・いいね・作者付きで取得する。
func (s *Service) Get(ctx context.Context, id int64) (*model.PostFull, error) {
	p, err := s.posts.FindFullByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find post: %w", err)
	}
	if p == nil {
		return nil, model.NewPostNotFoundError()
	}
	s.render(p)
	return p, nil
}

// List は条件に一致する投稿一覧を返す。本文は含まない。
func (s *Service) List(ctx context.Context, filter model.PostFilter) (*model.List[model.PostSummary], error) {
	rows, total, err := s.posts.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	if rows == nil {
		rows = []model.PostSummary{}
	}
	return &model.List[model.PostSummary]{Count: total, Rows: rows}, nil
}

// Create は投稿を作成し、作成後の完全な表現を返す。
// 作成直後の再取得で見つからない場合はUnknownエラーを返す。
func (s *Service) Create(ctx context.Context, authorID int64, in model.PostInput) (*model.PostFull, error) {
	p := &model.Post{
		AuthorID: authorID,
		Title:    in.Title,
		Content:  in.Content,
	}
	if err := s.posts.Create(ctx, p, model.NormalizeNames(in.Tags)); err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	full, err := s.posts.FindFullByID(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to refetch post: %w", err)
	}
	if full == nil {
		return nil, model.NewUnknownError()
	}

	slog.Info("post created",
		slog.Int64("post_id", p.ID),
		slog.Int64("developer_id", authorID),
	)
	s.render(full)
	return full, nil
}

// Update は投稿を部分更新し、更新後の完全な表現を返す。
func (s *Service) Update(ctx context.Context, id int64, update model.PostUpdate) (*model.PostFull, error) {
	if update.Tags != nil {
		update.Tags = model.NormalizeNames(update.Tags)
	}
	if err := s.posts.Update(ctx, id, update); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NewPostNotFoundError()
		}
		return nil, fmt.Errorf("failed to update post: %w", err)
	}
	return s.Get(ctx, id)
}

// Delete は投稿を削除する。
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.posts.DeleteByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewPostNotFoundError()
		}
		return fmt.Errorf("failed to delete post: %w", err)
	}
	slog.Info("post deleted", slog.Int64("post_id", id))
	return nil
}

// Like は投稿にいいねする。既にいいね済みでもエラーにしない。
func (s *Service) Like(ctx context.Context, developerID, postID int64) error {
	if err := s.likes.Upsert(ctx, developerID, postID); err != nil {
		return fmt.Errorf("failed to like post: %w", err)
	}
	return nil
}

// Unlike はいいねを取り消す。いいねしていなくてもエラーにしない。
func (s *Service) Unlike(ctx context.Context, developerID, postID int64) error {
	if err := s.likes.Delete(ctx, developerID, postID); err != nil {
		return fmt.Errorf("failed to unlike post: %w", err)
	}
	return nil
}

// AddComment はコメントを作成し、投稿者情報付きで返す。
func (s *Service) AddComment(ctx context.Context, postID, developerID int64, text string) (*model.Comment, error) {
	c := &model.Comment{
		PostID:      postID,
		DeveloperID: developerID,
		Text:        text,
	}
	if err := s.comments.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	created, err := s.comments.FindByID(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to refetch comment: %w", err)
	}
	if created == nil {
		return nil, model.NewUnknownError()
	}
	return created, nil
}

// ListComments は投稿のコメント一覧を返す。
func (s *Service) ListComments(ctx context.Context, postID int64, page model.Page) (*model.List[model.Comment], error) {
	rows, total, err := s.comments.ListByPost(ctx, postID, page)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	if rows == nil {
		rows = []model.Comment{}
	}
	return &model.List[model.Comment]{Count: total, Rows: rows}, nil
}

func (s *Service) render(p *model.PostFull) {
	if s.renderer != nil {
		p.ContentHTML = s.renderer.Render(p.Content)
	}
}
