package model

import "strings"

// ページングのデフォルト値と上限
const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Page は一覧取得のlimit/offsetを表す。
type Page struct {
	Limit  int
	Offset int
}

// DefaultPage はデフォルトのページング設定を返す。
func DefaultPage() Page {
	return Page{Limit: DefaultLimit, Offset: 0}
}

// List は一覧レスポンスの {count, rows} 形式を表す。
// Countはページングを適用する前の総件数。
type List[T any] struct {
	Count int `json:"count"`
	Rows  []T `json:"rows"`
}

// NormalizeNames はタグ名や技術名の前後空白を除去し、空要素と重複を取り除く。
// 入力順を保持する。
func NormalizeNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
