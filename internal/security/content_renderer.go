// Package security はユーザー投稿コンテンツを安全に表示するための機能を提供する。
//
// 投稿本文はMarkdownとして保存され、詳細表示の際にHTMLへ変換される。
// 変換後のHTMLはbluemondayの許可リストポリシーでサニタイズし、
// scriptやイベント属性を含まないことを保証する。
package security

import (
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/russross/blackfriday/v2"
)

// ContentRenderer は投稿本文をサニタイズ済みHTMLに変換する。
type ContentRenderer interface {
	// Render はMarkdownをHTMLに変換し、サニタイズした結果を返す。
	// 空文字列（空白のみを含む）の入力には空文字列を返す。
	Render(markdown string) string
}

// contentRenderer はContentRendererの実装。ポリシーはスレッドセーフに共有できる。
type contentRenderer struct {
	policy *bluemonday.Policy
}

// markdownExtensions はGitHub風の記法に近い拡張セット。
const markdownExtensions = blackfriday.CommonExtensions | blackfriday.AutoHeadingIDs

// NewContentRenderer はContentRendererの新しいインスタンスを生成する。
// ポリシーの内容:
//   - 見出し、段落、リスト、引用、コード、表、強調などMarkdown由来のタグを許可
//   - script, iframe, style および on*イベント属性は除去
//   - aのhrefはhttp/https/mailto、imgのsrcはhttpsのみ許可
//   - 外部リンクには target="_blank" と rel="nofollow noreferrer noopener" を付与
func NewContentRenderer() *contentRenderer {
	p := bluemonday.NewPolicy()

	p.AllowElements(
		"p", "br", "hr",
		"h1", "h2", "h3", "h4", "h5", "h6",
		"ul", "ol", "li",
		"blockquote", "pre", "code",
		"strong", "em", "del",
		"table", "thead", "tbody", "tr", "th", "td",
	)
	p.AllowAttrs("id").Matching(bluemonday.Paragraph).OnElements("h1", "h2", "h3", "h4", "h5", "h6")
	p.AllowAttrs("align").Matching(bluemonday.CellAlign).OnElements("th", "td")
	p.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).OnElements("code")

	p.AllowAttrs("href").OnElements("a")
	p.AllowURLSchemes("http", "https", "mailto")
	p.AllowRelativeURLs(false)
	p.RequireNoFollowOnLinks(true)
	p.RequireNoReferrerOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)

	p.AllowAttrs("alt", "title").OnElements("img")
	p.AllowAttrs("src").Matching(httpsOnly).OnElements("img")

	return &contentRenderer{policy: p}
}

// Render はMarkdownをHTMLに変換し、サニタイズした結果を返す。
func (r *contentRenderer) Render(markdown string) string {
	if strings.TrimSpace(markdown) == "" {
		return ""
	}
	normalized := strings.ReplaceAll(markdown, "\r\n", "\n")
	unsafe := blackfriday.Run([]byte(normalized), blackfriday.WithExtensions(markdownExtensions))
	return strings.TrimSpace(string(r.policy.SanitizeBytes(unsafe)))
}

// httpsOnly はhttpsスキームの絶対URLにのみ一致する。
var httpsOnly = regexp.MustCompile(`^https://[^\s/]+`)
