// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizerService は作業アイテムに添付されるMarkdownドキュメントや
// 生成された仕様書に混入し得るHTMLをサニタイズし、ダッシュボード表示時の
// XSSからユーザーを保護する。bluemondayライブラリの許可リストベースの
// ポリシーで、ドキュメント表現に必要なタグのみを通過させる。
package security

import (
	"net/url"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizerService はHTMLコンテンツのサニタイズ機能のインターフェースを定義する。
// コンテキスト参照（Markdown）と生成仕様書の保存前に使用される。
type ContentSanitizerService interface {
	// Sanitize はコンテンツに含まれるHTMLをサニタイズして返す。
	// 許可タグ以外のタグ、script/iframe/style、on*イベント属性を除去する。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// contentSanitizer はContentSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type contentSanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
// ポリシーの内容:
//   - 許可タグ: 見出し（h1〜h4）、段落・整形（p, br, hr, blockquote, pre, code）、
//     リスト（ul, ol, li）、テーブル（table, thead, tbody, tr, th, td）、
//     強調（strong, em）、リンク（a）、画像（img）
//   - 禁止タグ: script, iframe, style および全てのon*イベント属性
//   - imgのsrc属性: httpsスキームのみ許可
//   - aタグ: target="_blank" と rel="noopener noreferrer" を自動付与
func NewContentSanitizer() *contentSanitizer {
	p := bluemonday.NewPolicy()

	// 仕様書・設計ドキュメントの表現に必要なタグのみを許可する。
	// script, iframe, style等は許可リストに含めないことで自動的に除去される。
	// on*イベント属性はbluemondayのデフォルトで許可されないため除去される。
	p.AllowElements(
		"h1", "h2", "h3", "h4",
		"p", "br", "hr",
		"ul", "ol", "li",
		"blockquote", "pre", "code",
		"table", "thead", "tbody", "tr", "th", "td",
		"strong", "em",
	)

	// aタグ:
	// - href属性を許可、相対URLは不許可
	// - target="_blank"とrel="noreferrer noopener"を強制付与
	p.AllowAttrs("href").OnElements("a")
	p.AllowRelativeURLs(false)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)

	// imgタグ: src属性はhttpsスキームのみ許可（http, javascript, data等は拒否）
	p.AllowAttrs("src").OnElements("img")
	p.AllowAttrs("alt").OnElements("img")
	p.AllowURLSchemeWithCustomPolicy("https", func(u *url.URL) bool {
		return true
	})

	return &contentSanitizer{
		policy: p,
	}
}

// Sanitize はコンテンツに含まれるHTMLをサニタイズして返す。
func (s *contentSanitizer) Sanitize(raw string) string {
	return s.policy.Sanitize(raw)
}
