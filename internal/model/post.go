package model

import "time"

// Post はpostsテーブルの1行を表す。
type Post struct {
	ID        int64
	AuthorID  int64
	Title     string
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PostSummary は一覧表示用の投稿表現。本文は含まない。
type PostSummary struct {
	ID         int64         `json:"id"`
	Title      string        `json:"title"`
	AuthorID   int64         `json:"author_id"`
	Author     DeveloperSlim `json:"author"`
	Tags       []Tag         `json:"tags"`
	LikesCount int           `json:"likes_count"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// PostFull は単一投稿取得時の表現。本文、タグ、いいね、作者を含む。
type PostFull struct {
	ID          int64         `json:"id"`
	Title       string        `json:"title"`
	Content     string        `json:"content"`
	ContentHTML string        `json:"content_html"`
	AuthorID    int64         `json:"author_id"`
	Author      DeveloperSlim `json:"author"`
	Tags        []Tag         `json:"tags"`
	Likes       []Like        `json:"likes"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// PostInput は投稿作成の入力を表す。
type PostInput struct {
	Title   string
	Content string
	Tags    []string
}

// PostUpdate は投稿の部分更新内容を表す。nilのフィールドは変更しない。
type PostUpdate struct {
	Title   *string
	Content *string
	Tags    []string // nilの場合は変更しない
}

// PostFilter は投稿一覧の絞り込み条件を表す。複数指定時はAND条件になる。
type PostFilter struct {
	Page
	Tag      string
	AuthorID int64
}

// Tag は投稿に付与する共有語彙。
type Tag struct {
	ID  int64  `json:"id"`
	Tag string `json:"tag"`
}

// Like は開発者と投稿の組を表す。組はユニーク。
type Like struct {
	DeveloperID int64         `json:"developer_id"`
	PostID      int64         `json:"post_id"`
	Developer   DeveloperSlim `json:"developer"`
	CreatedAt   time.Time     `json:"created_at"`
}

// Comment は投稿へのコメントを表す。
type Comment struct {
	ID          int64         `json:"id"`
	Text        string        `json:"text"`
	PostID      int64         `json:"post_id"`
	DeveloperID int64         `json:"developer_id"`
	Developer   DeveloperSlim `json:"developer"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}
