// Package seed は開発用のフィクスチャデータ（開発者・投稿・いいね・コメント）を投入する。
package seed

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/TechmongersNL/coders-network-api/internal/model"
)

// DefaultPassword はフィクスチャ開発者のログインパスワード。
const DefaultPassword = "abcd"

//go:embed fixtures.json
var fixturesJSON []byte

// Fixtures は投入するデータ一式。開発者・投稿はキーで相互参照する。
type Fixtures struct {
	Developers []DeveloperFixture `json:"developers"`
	Posts      []PostFixture      `json:"posts"`
	Likes      []LikeFixture      `json:"likes"`
	Comments   []CommentFixture   `json:"comments"`
}

type DeveloperFixture struct {
	Key            string   `json:"key"`
	Name           string   `json:"name"`
	Email          string   `json:"email"`
	Intro          string   `json:"intro"`
	GithubUsername string   `json:"github_username"`
	Website        string   `json:"website"`
	Technologies   []string `json:"technologies"`
}

type PostFixture struct {
	Key     string   `json:"key"`
	Author  string   `json:"author"`
	DaysAgo int      `json:"days_ago"`
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

type LikeFixture struct {
	Post      string `json:"post"`
	Developer string `json:"developer"`
}

type CommentFixture struct {
	Post      string `json:"post"`
	Developer string `json:"developer"`
	Text      string `json:"text"`
}

// DefaultFixtures は埋め込みのフィクスチャを読み込む。
func DefaultFixtures() (*Fixtures, error) {
	return ParseFixtures(fixturesJSON)
}

// ParseFixtures はJSONからフィクスチャを読み込み、キー参照の整合性を検証する。
func ParseFixtures(data []byte) (*Fixtures, error) {
	var fx Fixtures
	if err := json.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("failed to parse fixtures: %w", err)
	}

	developers := make(map[string]bool, len(fx.Developers))
	for _, d := range fx.Developers {
		if d.Key == "" || d.Email == "" || d.Name == "" {
			return nil, fmt.Errorf("developer fixture %q: key, email and name are required", d.Key)
		}
		if developers[d.Key] {
			return nil, fmt.Errorf("duplicate developer key %q", d.Key)
		}
		developers[d.Key] = true
	}

	posts := make(map[string]bool, len(fx.Posts))
	for _, p := range fx.Posts {
		if !developers[p.Author] {
			return nil, fmt.Errorf("post %q: unknown author %q", p.Key, p.Author)
		}
		if posts[p.Key] {
			return nil, fmt.Errorf("duplicate post key %q", p.Key)
		}
		posts[p.Key] = true
	}

	for _, l := range fx.Likes {
		if !posts[l.Post] || !developers[l.Developer] {
			return nil, fmt.Errorf("like %s/%s: unknown reference", l.Post, l.Developer)
		}
	}
	for _, c := range fx.Comments {
		if !posts[c.Post] || !developers[c.Developer] {
			return nil, fmt.Errorf("comment %s/%s: unknown reference", c.Post, c.Developer)
		}
	}

	return &fx, nil
}

// DeveloperStore はフィクスチャ投入に必要な開発者リポジトリの部分集合。
type DeveloperStore interface {
	FindByEmail(ctx context.Context, email string) (*model.Developer, error)
	Create(ctx context.Context, dev *model.Developer) error
}

// TechnologyStore はお気に入り技術の置き換え。
type TechnologyStore interface {
	ReplaceForDeveloper(ctx context.Context, developerID int64, titles []string) error
}

// PostStore は投稿の作成。
type PostStore interface {
	Create(ctx context.Context, post *model.Post, tags []string) error
}

// LikeStore はいいねの登録。
type LikeStore interface {
	Upsert(ctx context.Context, developerID, postID int64) error
}

// CommentStore はコメントの作成。
type CommentStore interface {
	Create(ctx context.Context, comment *model.Comment) error
}

// Hasher はパスワードハッシュの生成。
type Hasher interface {
	Hash(password string) (string, error)
}

// Stores はSeederが書き込む先のリポジトリ群。
type Stores struct {
	Developers   DeveloperStore
	Technologies TechnologyStore
	Posts        PostStore
	Likes        LikeStore
	Comments     CommentStore
}

// Result は投入件数を表す。Skippedがtrueの場合は何も書き込んでいない。
type Result struct {
	Skipped    bool
	Developers int
	Posts      int
	Likes      int
	Comments   int
}

// Seeder はフィクスチャを投入する。
type Seeder struct {
	stores Stores
	hasher Hasher
	logger *slog.Logger
	now    func() time.Time
}

// NewSeeder はSeederを生成する。
func NewSeeder(stores Stores, hasher Hasher, logger *slog.Logger) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{stores: stores, hasher: hasher, logger: logger, now: time.Now}
}

// Run はフィクスチャを投入する。
// フィクスチャ開発者のメールアドレスが1件でも登録済みであれば何も書き込まない。
func (s *Seeder) Run(ctx context.Context, fx *Fixtures) (*Result, error) {
	for _, d := range fx.Developers {
		existing, err := s.stores.Developers.FindByEmail(ctx, d.Email)
		if err != nil {
			return nil, fmt.Errorf("failed to look up %s: %w", d.Email, err)
		}
		if existing != nil {
			s.logger.Info("fixtures already present, skipping", slog.String("email", d.Email))
			return &Result{Skipped: true}, nil
		}
	}

	// 全員同じパスワードのためハッシュは1回だけ計算する
	hash, err := s.hasher.Hash(DefaultPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to hash fixture password: %w", err)
	}

	result := &Result{}
	developerIDs := make(map[string]int64, len(fx.Developers))
	for _, d := range fx.Developers {
		dev := &model.Developer{
			Email:          d.Email,
			PasswordHash:   hash,
			Name:           d.Name,
			Intro:          d.Intro,
			GithubUsername: d.GithubUsername,
			Website:        d.Website,
		}
		if err := s.stores.Developers.Create(ctx, dev); err != nil {
			return result, fmt.Errorf("failed to create developer %s: %w", d.Email, err)
		}
		developerIDs[d.Key] = dev.ID
		result.Developers++

		if len(d.Technologies) > 0 {
			if err := s.stores.Technologies.ReplaceForDeveloper(ctx, dev.ID, d.Technologies); err != nil {
				return result, fmt.Errorf("failed to set technologies for %s: %w", d.Email, err)
			}
		}
	}

	// 古い投稿から作成し、IDの順序と作成日時の順序を揃える
	now := s.now()
	postIDs := make(map[string]int64, len(fx.Posts))
	for i := len(fx.Posts) - 1; i >= 0; i-- {
		p := fx.Posts[i]
		post := &model.Post{
			AuthorID:  developerIDs[p.Author],
			Title:     p.Title,
			Content:   p.Content,
			CreatedAt: now.AddDate(0, 0, -p.DaysAgo),
		}
		if err := s.stores.Posts.Create(ctx, post, model.NormalizeNames(p.Tags)); err != nil {
			return result, fmt.Errorf("failed to create post %q: %w", p.Key, err)
		}
		postIDs[p.Key] = post.ID
		result.Posts++
	}

	for _, l := range fx.Likes {
		if err := s.stores.Likes.Upsert(ctx, developerIDs[l.Developer], postIDs[l.Post]); err != nil {
			return result, fmt.Errorf("failed to like %s: %w", l.Post, err)
		}
		result.Likes++
	}

	for _, c := range fx.Comments {
		comment := &model.Comment{
			PostID:      postIDs[c.Post],
			DeveloperID: developerIDs[c.Developer],
			Text:        c.Text,
		}
		if err := s.stores.Comments.Create(ctx, comment); err != nil {
			return result, fmt.Errorf("failed to comment on %s: %w", c.Post, err)
		}
		result.Comments++
	}

	s.logger.Info("fixtures in place",
		slog.Int("developers", result.Developers),
		slog.Int("posts", result.Posts),
		slog.Int("likes", result.Likes),
		slog.Int("comments", result.Comments),
	)
	return result, nil
}
