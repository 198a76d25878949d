// Package model はドメインモデルを定義する。
package model

import "time"

// AuthMethod は資格情報の取得経路を表す。
type AuthMethod string

const (
	// AuthMethodOAuth はOAuth認可コードフローで取得したことを示す。
	AuthMethodOAuth AuthMethod = "oauth"
	// AuthMethodToken は発行済みトークンの直接入力で取得したことを示す。
	AuthMethodToken AuthMethod = "token"
)

// GitHubToken はGitHubのアクセストークンとそのメタデータを表す。
type GitHubToken struct {
	AccessToken string     `json:"accessToken"`
	TokenType   string     `json:"tokenType"`
	Scope       string     `json:"scope"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
	AuthMethod  AuthMethod `json:"authMethod"`
}

// Expired はトークンが指定時刻の時点で失効しているかを返す。
// ExpiresAtが未設定のトークンは失効しない。
func (t *GitHubToken) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && t.ExpiresAt.Before(now)
}

// GitHubUser はGitHubのユーザープロフィールを表す。
// 資格情報の取得直後にGitHub APIから取得し、トークンと対で永続化される。
type GitHubUser struct {
	Login     string `json:"login"`
	ID        int64  `json:"id"`
	AvatarURL string `json:"avatarUrl"`
	Name      string `json:"name,omitempty"`
	Email     string `json:"email,omitempty"`
	HTMLURL   string `json:"htmlUrl"`
}

// SessionSnapshot は現在の認証状態の読み取り専用ビュー。
// 永続化されたトークンとユーザーから都度導出され、それ自体は保存されない。
type SessionSnapshot struct {
	IsAuthenticated bool         `json:"isAuthenticated"`
	AuthMethod      AuthMethod   `json:"authMethod"`
	Token           *GitHubToken `json:"token"`
	User            *GitHubUser  `json:"user"`
}
