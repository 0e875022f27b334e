// Package security はアプリケーションのセキュリティ機能を提供する。
//
// OpinionSanitizer はユーザーが投稿した意見のタイトルと本文をサニタイズし、
// XSS攻撃などのセキュリティリスクから閲覧者を保護する。
// bluemondayライブラリを使用した許可リストベースのポリシーで、
// 安全なタグのみを通過させる。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// OpinionSanitizer は意見コンテンツのサニタイズ機能のインターフェースを定義する。
// 意見の保存前に使用される。
type OpinionSanitizer interface {
	// SanitizeTitle はタイトルからすべてのHTMLタグを除去する。
	SanitizeTitle(raw string) string

	// SanitizeContent は本文をサニタイズして安全なHTMLを返す。
	// 許可タグ（p, br, ul, ol, li, blockquote, pre, code, strong, em）のみを
	// 通過させ、script, iframe, styleタグおよびon*イベント属性を除去する。
	// 同一入力に対して常に同一出力を返す（冪等）。
	SanitizeContent(raw string) string
}

// opinionSanitizer はOpinionSanitizerの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type opinionSanitizer struct {
	titlePolicy   *bluemonday.Policy
	contentPolicy *bluemonday.Policy
}

// NewOpinionSanitizer はOpinionSanitizerの新しいインスタンスを生成する。
// タイトルは全タグ除去、本文は装飾系の最小限のタグのみ許可する。
// リンクと画像はフィッシングに悪用されやすいため意見本文では許可しない。
func NewOpinionSanitizer() *opinionSanitizer {
	content := bluemonday.NewPolicy()
	content.AllowElements(
		"p", "br", "ul", "ol", "li",
		"blockquote", "pre", "code",
		"strong", "em",
	)

	return &opinionSanitizer{
		titlePolicy:   bluemonday.StrictPolicy(),
		contentPolicy: content,
	}
}

// SanitizeTitle はタイトルからすべてのHTMLタグを除去し、前後の空白を取り除く。
func (s *opinionSanitizer) SanitizeTitle(raw string) string {
	return strings.TrimSpace(s.titlePolicy.Sanitize(raw))
}

// SanitizeContent は本文をサニタイズして安全なHTMLを返す。
func (s *opinionSanitizer) SanitizeContent(raw string) string {
	return strings.TrimSpace(s.contentPolicy.Sanitize(raw))
}

// compile-time interface check
var _ OpinionSanitizer = (*opinionSanitizer)(nil)
