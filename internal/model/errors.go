// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, github, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeOAuthNotConfigured = "OAUTH_NOT_CONFIGURED"
	ErrCodeMissingCode        = "MISSING_CODE"
	ErrCodeExchangeFailed     = "EXCHANGE_FAILED"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeRepoNotFound       = "REPO_NOT_FOUND"
	ErrCodeTreeFetchFailed    = "TREE_FETCH_FAILED"
	ErrCodeInvalidWorkType    = "INVALID_WORK_TYPE"
	ErrCodeWorkItemNotFound   = "WORK_ITEM_NOT_FOUND"
)

// NewOAuthNotConfiguredError はOAuth設定不足エラーを生成する。
func NewOAuthNotConfiguredError() *APIError {
	return &APIError{
		Code:     ErrCodeOAuthNotConfigured,
		Message:  "GitHub OAuthが設定されていません。",
		Category: "system",
		Action:   "GITHUB_CLIENT_IDとGITHUB_CLIENT_SECRETを設定してください。",
	}
}

// NewMissingCodeError は認可コード未指定エラーを生成する。
func NewMissingCodeError() *APIError {
	return &APIError{
		Code:     ErrCodeMissingCode,
		Message:  "認可コードが指定されていません。",
		Category: "validation",
		Action:   "OAuthコールバックのcodeパラメータを確認してください。",
	}
}

// NewExchangeFailedError はトークン交換失敗エラーを生成する。
func NewExchangeFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeExchangeFailed,
		Message:  "アクセストークンへの交換に失敗しました。",
		Category: "github",
		Action:   "認可コードの有効期限切れの可能性があります。再度ログインしてください。",
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "GitHubに接続してください。",
	}
}

// NewRepoNotFoundError はリポジトリ未検出エラーを生成する。
func NewRepoNotFoundError(repoRef string) *APIError {
	return &APIError{
		Code:     ErrCodeRepoNotFound,
		Message:  fmt.Sprintf("指定されたリポジトリが見つかりません: %s", repoRef),
		Category: "github",
		Action:   "リポジトリ名とトークンのアクセス権限を確認してください。",
	}
}

// NewTreeFetchFailedError はファイルツリー取得失敗エラーを生成する。
func NewTreeFetchFailedError(repoRef string) *APIError {
	return &APIError{
		Code:     ErrCodeTreeFetchFailed,
		Message:  fmt.Sprintf("リポジトリのファイルツリー取得に失敗しました: %s", repoRef),
		Category: "github",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewInvalidWorkTypeError は無効な作業種別エラーを生成する。
func NewInvalidWorkTypeError(workType string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidWorkType,
		Message:  fmt.Sprintf("無効な作業種別です: %s", workType),
		Category: "validation",
		Action:   "定義済みの作業種別のいずれかを指定してください。",
	}
}

// NewWorkItemNotFoundError は作業アイテム未検出エラーを生成する。
func NewWorkItemNotFoundError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeWorkItemNotFound,
		Message:  fmt.Sprintf("指定された作業アイテムが見つかりません: %s", id),
		Category: "validation",
		Action:   "作業アイテムIDを確認してください。",
	}
}
