package model

import "time"

// Developer はサービスを利用する開発者を表す。
// PasswordHashはJSONに出力しない。
type Developer struct {
	ID             int64     `json:"id"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"`
	Name           string    `json:"name"`
	Intro          string    `json:"intro"`
	GithubUsername string    `json:"github_username"`
	Website        string    `json:"website"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Slim は他のエンティティに埋め込む際の最小限の公開プロジェクションを返す。
func (d *Developer) Slim() DeveloperSlim {
	return DeveloperSlim{ID: d.ID, Name: d.Name, Email: d.Email}
}

// DeveloperSlim は投稿の作者やいいねの主体として埋め込まれる開発者表現。
type DeveloperSlim struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// DeveloperProfile は単一開発者取得時の表現。
// 全投稿（本文なし）とお気に入り技術を含む。
type DeveloperProfile struct {
	Developer
	Posts        []PostSummary `json:"posts"`
	Technologies []Technology  `json:"technologies"`
}

// DeveloperUpdate は開発者の部分更新内容を表す。nilのフィールドは変更しない。
type DeveloperUpdate struct {
	Name           *string
	Intro          *string
	GithubUsername *string
	Website        *string
	Technologies   []string // nilの場合は変更しない。空スライスは全解除。
}

// Technology は開発者のお気に入り技術を表す共有語彙。
type Technology struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}
