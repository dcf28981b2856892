// Package developer は開発者プロフィールのドメインロジックを提供する。
package developer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/TechmongersNL/coders-network-api/internal/model"
	"github.com/TechmongersNL/coders-network-api/internal/repository"
)

// DeveloperStore は開発者サービスが利用するリポジトリの部分集合。
type DeveloperStore interface {
	FindByID(ctx context.Context, id int64) (*model.Developer, error)
	List(ctx context.Context, page model.Page) ([]model.Developer, int, error)
	Update(ctx context.Context, dev *model.Developer) error
	DeleteByID(ctx context.Context, id int64) error
}

// PostLister は開発者の投稿一覧の取得インターフェース。
type PostLister interface {
	ListByAuthor(ctx context.Context, authorID int64) ([]model.PostSummary, error)
}

// Service は開発者プロフィールのサービス層。
type Service struct {
	developers   DeveloperStore
	technologies repository.TechnologyRepository
	posts        PostLister
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(developers DeveloperStore, technologies repository.TechnologyRepository, posts PostLister) *Service {
	return &Service{
		developers:   developers,
		technologies: technologies,
		posts:        posts,
	}
}

// GetProfile は開発者を全投稿とお気に入り技術付きで取得する。
func (s *Service) GetProfile(ctx context.Context, id int64) (*model.DeveloperProfile, error) {
	dev, err := s.developers.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find developer: %w", err)
	}
	if dev == nil {
		return nil, model.NewDeveloperNotFoundError()
	}
	return s.profileOf(ctx, dev)
}

// List は開発者一覧を返す。
func (s *Service) List(ctx context.Context, page model.Page) (*model.List[model.Developer], error) {
	devs, total, err := s.developers.List(ctx, page)
	if err != nil {
		return nil, fmt.Errorf("failed to list developers: %w", err)
	}
	if devs == nil {
		devs = []model.Developer{}
	}
	return &model.List[model.Developer]{Count: total, Rows: devs}, nil
}

// Update は開発者のプロフィールとお気に入り技術を更新し、更新後のプロフィールを返す。
// devは読み込み済みの開発者で、呼び出し側で本人確認を済ませておく。
func (s *Service) Update(ctx context.Context, dev *model.Developer, update model.DeveloperUpdate) (*model.DeveloperProfile, error) {
	updated := *dev
	if update.Name != nil {
		updated.Name = *update.Name
	}
	if update.Intro != nil {
		updated.Intro = *update.Intro
	}
	if update.GithubUsername != nil {
		updated.GithubUsername = *update.GithubUsername
	}
	if update.Website != nil {
		updated.Website = *update.Website
	}

	if err := s.developers.Update(ctx, &updated); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NewDeveloperNotFoundError()
		}
		return nil, fmt.Errorf("failed to update developer: %w", err)
	}

	if update.Technologies != nil {
		titles := model.NormalizeNames(update.Technologies)
		if err := s.technologies.ReplaceForDeveloper(ctx, dev.ID, titles); err != nil {
			return nil, fmt.Errorf("failed to replace technologies: %w", err)
		}
	}

	refetched, err := s.developers.FindByID(ctx, dev.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to refetch developer: %w", err)
	}
	if refetched == nil {
		return nil, model.NewUnknownError()
	}
	return s.profileOf(ctx, refetched)
}

// Delete は開発者を削除する。投稿・コメント・いいねは連鎖削除される。
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.developers.DeleteByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewDeveloperNotFoundError()
		}
		return fmt.Errorf("failed to delete developer: %w", err)
	}
	slog.Info("developer deleted", slog.Int64("developer_id", id))
	return nil
}

func (s *Service) profileOf(ctx context.Context, dev *model.Developer) (*model.DeveloperProfile, error) {
	posts, err := s.posts.ListByAuthor(ctx, dev.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	techs, err := s.technologies.ListByDeveloper(ctx, dev.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list technologies: %w", err)
	}
	if posts == nil {
		posts = []model.PostSummary{}
	}
	if techs == nil {
		techs = []model.Technology{}
	}
	return &model.DeveloperProfile{
		Developer:    *dev,
		Posts:        posts,
		Technologies: techs,
	}, nil
}
