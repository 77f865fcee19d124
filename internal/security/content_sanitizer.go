// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizer は記事本文・コメントなどユーザーが入力したHTMLをサニタイズする。
// 記事本文はフロントエンドでHTMLとして描画されるため、保存前に必ず通す。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizer はユーザー入力のサニタイズ機能のインターフェースを定義する。
type ContentSanitizer interface {
	// SanitizeHTML は記事本文のHTMLから危険な要素・属性を取り除く。
	// 見出し、リスト、引用、コード、画像、リンク等の書式は残す。
	SanitizeHTML(rawHTML string) string

	// StripTags はタグをすべて取り除き、プレーンテキストを返す。
	// コメントや見出しなどテキストとして描画されるフィールドに使う。
	StripTags(raw string) string
}

// contentSanitizer はContentSanitizerの実装。
// bluemondayのポリシーは並行利用に対して安全。
type contentSanitizer struct {
	rich   *bluemonday.Policy
	strict *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerを生成する。
//   - 記事本文: UGCポリシーを基に、外部リンクへtarget="_blank"とrel="noreferrer"を付与
//   - テキスト: Strictポリシー（全タグ除去）
func NewContentSanitizer() *contentSanitizer {
	rich := bluemonday.UGCPolicy()
	rich.RequireNoReferrerOnLinks(true)
	rich.AddTargetBlankToFullyQualifiedLinks(true)
	rich.AllowURLSchemes("http", "https", "mailto")

	return &contentSanitizer{
		rich:   rich,
		strict: bluemonday.StrictPolicy(),
	}
}

// SanitizeHTML は記事本文のHTMLをサニタイズする。
func (s *contentSanitizer) SanitizeHTML(rawHTML string) string {
	return s.rich.Sanitize(rawHTML)
}

// maxStripPasses はエンティティの多重エスケープを剥がす回数の上限。
const maxStripPasses = 8

// StripTags はタグを除去したプレーンテキストを返す。
// Strictポリシーの出力はエスケープ済みなのでデコードして返す。
// デコードでタグが現れる場合があるため、結果が変化しなくなるまで繰り返す。
// 上限に達した場合はエスケープ済みの出力を返す。
func (s *contentSanitizer) StripTags(raw string) string {
	out := raw
	for i := 0; i < maxStripPasses; i++ {
		next := html.UnescapeString(s.strict.Sanitize(out))
		if next == out {
			return strings.TrimSpace(out)
		}
		out = next
	}
	return strings.TrimSpace(s.strict.Sanitize(out))
}

// compile-time interface check
var _ ContentSanitizer = (*contentSanitizer)(nil)
