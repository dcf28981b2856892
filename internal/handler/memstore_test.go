package handler

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/TechmongersNL/coders-network-api/internal/model"
	"github.com/TechmongersNL/coders-network-api/internal/repository"
)

// memDB はルーター統合テスト用のインメモリデータストア。
// 各リポジトリ実装はこの状態を共有する。
type memDB struct {
	mu           sync.Mutex
	nextID       int64
	developers   map[int64]*model.Developer
	technologies map[int64][]model.Technology
	posts        map[int64]*model.Post
	postTags     map[int64][]string
	likes        map[[2]int64]time.Time // {developerID, postID}
	comments     []model.Comment
}

type (
	memDevelopers   struct{ db *memDB }
	memTechnologies struct{ db *memDB }
	memPosts        struct{ db *memDB }
	memLikes        struct{ db *memDB }
	memComments     struct{ db *memDB }
)

var (
	_ repository.DeveloperRepository  = memDevelopers{}
	_ repository.TechnologyRepository = memTechnologies{}
	_ repository.PostRepository       = memPosts{}
	_ repository.LikeRepository       = memLikes{}
	_ repository.CommentRepository    = memComments{}
)

func newMemDB() *memDB {
	return &memDB{
		developers:   map[int64]*model.Developer{},
		technologies: map[int64][]model.Technology{},
		posts:        map[int64]*model.Post{},
		postTags:     map[int64][]string{},
		likes:        map[[2]int64]time.Time{},
	}
}

func (db *memDB) id() int64 {
	db.nextID++
	return db.nextID
}

func (db *memDB) slim(developerID int64) model.DeveloperSlim {
	if d, ok := db.developers[developerID]; ok {
		return d.Slim()
	}
	return model.DeveloperSlim{ID: developerID}
}

func (db *memDB) tags(postID int64) []model.Tag {
	out := []model.Tag{}
	for i, t := range db.postTags[postID] {
		out = append(out, model.Tag{ID: int64(i + 1), Tag: t})
	}
	return out
}

func (db *memDB) summaries(match func(*model.Post) bool) []model.PostSummary {
	out := []model.PostSummary{}
	for _, p := range db.posts {
		if !match(p) {
			continue
		}
		likes := 0
		for key := range db.likes {
			if key[1] == p.ID {
				likes++
			}
		}
		out = append(out, model.PostSummary{
			ID:         p.ID,
			Title:      p.Title,
			AuthorID:   p.AuthorID,
			Author:     db.slim(p.AuthorID),
			Tags:       db.tags(p.ID),
			LikesCount: likes,
			CreatedAt:  p.CreatedAt,
			UpdatedAt:  p.UpdatedAt,
		})
	}
	// IDは単調増加なので作成日時の降順と一致する
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func paginate[T any](all []T, page model.Page) []T {
	if page.Offset >= len(all) {
		return []T{}
	}
	end := min(page.Offset+page.Limit, len(all))
	return all[page.Offset:end]
}

// --- developers ---

func (r memDevelopers) FindByID(_ context.Context, id int64) (*model.Developer, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	d, ok := r.db.developers[id]
	if !ok {
		return nil, nil
	}
	c := *d
	return &c, nil
}

func (r memDevelopers) FindByEmail(_ context.Context, email string) (*model.Developer, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, d := range r.db.developers {
		if d.Email == email {
			c := *d
			return &c, nil
		}
	}
	return nil, nil
}

func (r memDevelopers) List(_ context.Context, page model.Page) ([]model.Developer, int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	all := make([]model.Developer, 0, len(r.db.developers))
	for _, d := range r.db.developers {
		all = append(all, *d)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return paginate(all, page), len(all), nil
}

func (r memDevelopers) Create(_ context.Context, dev *model.Developer) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, d := range r.db.developers {
		if d.Email == dev.Email {
			return repository.ErrDuplicate
		}
	}
	dev.ID = r.db.id()
	dev.CreatedAt = time.Now()
	dev.UpdatedAt = dev.CreatedAt
	c := *dev
	r.db.developers[dev.ID] = &c
	return nil
}

func (r memDevelopers) FindOrCreateByEmail(ctx context.Context, email, name string) (*model.Developer, bool, error) {
	if d, _ := r.FindByEmail(ctx, email); d != nil {
		return d, false, nil
	}
	d := &model.Developer{Email: email, Name: name}
	if err := r.Create(ctx, d); err != nil {
		return nil, false, err
	}
	return d, true, nil
}

func (r memDevelopers) Update(_ context.Context, dev *model.Developer) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.developers[dev.ID]; !ok {
		return repository.ErrNotFound
	}
	dev.UpdatedAt = time.Now()
	c := *dev
	r.db.developers[dev.ID] = &c
	return nil
}

func (r memDevelopers) DeleteByID(_ context.Context, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.developers[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.db.developers, id)
	delete(r.db.technologies, id)
	for pid, p := range r.db.posts {
		if p.AuthorID == id {
			delete(r.db.posts, pid)
		}
	}
	return nil
}

// --- technologies ---

func (r memTechnologies) ListByDeveloper(_ context.Context, developerID int64) ([]model.Technology, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return append([]model.Technology{}, r.db.technologies[developerID]...), nil
}

func (r memTechnologies) ReplaceForDeveloper(_ context.Context, developerID int64, titles []string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	techs := make([]model.Technology, 0, len(titles))
	for i, t := range titles {
		techs = append(techs, model.Technology{ID: int64(i + 1), Title: t})
	}
	r.db.technologies[developerID] = techs
	return nil
}

// --- posts ---

func (r memPosts) FindFullByID(_ context.Context, id int64) (*model.PostFull, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.posts[id]
	if !ok {
		return nil, nil
	}
	full := &model.PostFull{
		ID:        p.ID,
		Title:     p.Title,
		Content:   p.Content,
		AuthorID:  p.AuthorID,
		Author:    r.db.slim(p.AuthorID),
		Tags:      r.db.tags(p.ID),
		Likes:     []model.Like{},
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
	for key, at := range r.db.likes {
		if key[1] == id {
			full.Likes = append(full.Likes, model.Like{
				DeveloperID: key[0],
				PostID:      id,
				Developer:   r.db.slim(key[0]),
				CreatedAt:   at,
			})
		}
	}
	return full, nil
}

func (r memPosts) List(_ context.Context, filter model.PostFilter) ([]model.PostSummary, int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	all := r.db.summaries(func(p *model.Post) bool {
		if filter.AuthorID != 0 && p.AuthorID != filter.AuthorID {
			return false
		}
		if filter.Tag == "" {
			return true
		}
		for _, t := range r.db.postTags[p.ID] {
			if t == filter.Tag {
				return true
			}
		}
		return false
	})
	return paginate(all, filter.Page), len(all), nil
}

func (r memPosts) ListByAuthor(_ context.Context, authorID int64) ([]model.PostSummary, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.db.summaries(func(p *model.Post) bool { return p.AuthorID == authorID }), nil
}

func (r memPosts) Create(_ context.Context, post *model.Post, tags []string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	post.ID = r.db.id()
	post.CreatedAt = time.Now()
	post.UpdatedAt = post.CreatedAt
	c := *post
	r.db.posts[post.ID] = &c
	r.db.postTags[post.ID] = append([]string(nil), tags...)
	return nil
}

func (r memPosts) Update(_ context.Context, id int64, update model.PostUpdate) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.posts[id]
	if !ok {
		return repository.ErrNotFound
	}
	if update.Title != nil {
		p.Title = *update.Title
	}
	if update.Content != nil {
		p.Content = *update.Content
	}
	if update.Tags != nil {
		r.db.postTags[id] = append([]string(nil), update.Tags...)
	}
	p.UpdatedAt = time.Now()
	return nil
}

func (r memPosts) DeleteByID(_ context.Context, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.posts[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.db.posts, id)
	delete(r.db.postTags, id)
	for key := range r.db.likes {
		if key[1] == id {
			delete(r.db.likes, key)
		}
	}
	return nil
}

// --- likes ---

func (r memLikes) Upsert(_ context.Context, developerID, postID int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	key := [2]int64{developerID, postID}
	if _, ok := r.db.likes[key]; !ok {
		r.db.likes[key] = time.Now()
	}
	return nil
}

func (r memLikes) Delete(_ context.Context, developerID, postID int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.likes, [2]int64{developerID, postID})
	return nil
}

// --- comments ---

func (r memComments) Create(_ context.Context, comment *model.Comment) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	comment.ID = r.db.id()
	comment.CreatedAt = time.Now()
	comment.UpdatedAt = comment.CreatedAt
	r.db.comments = append(r.db.comments, *comment)
	return nil
}

func (r memComments) FindByID(_ context.Context, id int64) (*model.Comment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, c := range r.db.comments {
		if c.ID == id {
			c.Developer = r.db.slim(c.DeveloperID)
			return &c, nil
		}
	}
	return nil, nil
}

func (r memComments) ListByPost(_ context.Context, postID int64, page model.Page) ([]model.Comment, int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	all := []model.Comment{}
	for _, c := range r.db.comments {
		if c.PostID == postID {
			c.Developer = r.db.slim(c.DeveloperID)
			all = append(all, c)
		}
	}
	return paginate(all, page), len(all), nil
}
