// Package github はGitHub APIおよびOAuthエンドポイントのクライアントを提供する。
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hitoshi/devflow/internal/model"
)

const (
	defaultAPIBaseURL   = "https://api.github.com"
	defaultAcceptHeader = "application/vnd.github.v3+json"
)

// Repository はGitHubリポジトリのメタデータを表す。
type Repository struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	FullName      string `json:"full_name"`
	Private       bool   `json:"private"`
	Description   string `json:"description"`
	DefaultBranch string `json:"default_branch"`
	UpdatedAt     string `json:"updated_at"`
}

// TreeEntry はgit treeの1エントリを表す。
type TreeEntry struct {
	Path string `json:"path"`
	Mode string `json:"mode"`
	Type string `json:"type"` // "blob" | "tree"
	SHA  string `json:"sha"`
	Size int64  `json:"size,omitempty"`
}

// Tree はgit treeの再帰取得結果を表す。
type Tree struct {
	SHA       string      `json:"sha"`
	Entries   []TreeEntry `json:"tree"`
	Truncated bool        `json:"truncated"`
}

// ClientConfig はGitHub APIクライアントの設定。
type ClientConfig struct {
	// テスト用にオーバーライド可能なURL
	APIBaseURL string

	HTTPClient *http.Client

	// OnStatus は各レスポンスのHTTPステータスコードを通知するフック。
	// メトリクス収集に使用する。nilの場合は通知しない。
	OnStatus func(statusCode int)
}

// Client はGitHub REST APIのクライアント。
// 全操作はBearerトークン認証で行う。
type Client struct {
	baseURL    string
	httpClient *http.Client
	onStatus   func(statusCode int)
}

// NewClient はClientを生成する。
func NewClient(config ClientConfig) *Client {
	if config.APIBaseURL == "" {
		config.APIBaseURL = defaultAPIBaseURL
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL:    config.APIBaseURL,
		httpClient: config.HTTPClient,
		onStatus:   config.OnStatus,
	}
}

// githubUser はGitHubユーザーエンドポイントのレスポンス。
type githubUser struct {
	Login     string `json:"login"`
	ID        int64  `json:"id"`
	AvatarURL string `json:"avatar_url"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	HTMLURL   string `json:"html_url"`
}

// FetchUser は認証ユーザーのプロフィールを取得する。
// GET /user
func (c *Client) FetchUser(ctx context.Context, accessToken string) (*model.GitHubUser, error) {
	body, err := c.get(ctx, accessToken, "/user")
	if err != nil {
		return nil, err
	}

	var u githubUser
	if err := json.Unmarshal(body, &u); err != nil {
		return nil, fmt.Errorf("failed to parse user response: %w", err)
	}
	if u.Login == "" {
		return nil, fmt.Errorf("empty login in user response")
	}

	return &model.GitHubUser{
		Login:     u.Login,
		ID:        u.ID,
		AvatarURL: u.AvatarURL,
		Name:      u.Name,
		Email:     u.Email,
		HTMLURL:   u.HTMLURL,
	}, nil
}

// ListRepositories は認証ユーザーのリポジトリ一覧を取得する。
// GET /user/repos?per_page=100&sort=updated
func (c *Client) ListRepositories(ctx context.Context, accessToken string) ([]Repository, error) {
	body, err := c.get(ctx, accessToken, "/user/repos?per_page=100&sort=updated")
	if err != nil {
		return nil, err
	}

	var repos []Repository
	if err := json.Unmarshal(body, &repos); err != nil {
		return nil, fmt.Errorf("failed to parse repositories response: %w", err)
	}
	return repos, nil
}

// ProbeRepoScope はトークンがリポジトリ読み取り権限を持つかを軽量に検証する。
// リポジトリ一覧を1件だけ要求し、2xx応答であれば権限ありとみなす。
func (c *Client) ProbeRepoScope(ctx context.Context, accessToken string) error {
	_, err := c.get(ctx, accessToken, "/user/repos?per_page=1")
	return err
}

// GetRepository は単一リポジトリのメタデータを取得する。
// GET /repos/{owner}/{repo}
func (c *Client) GetRepository(ctx context.Context, accessToken, owner, repo string) (*Repository, error) {
	path := fmt.Sprintf("/repos/%s/%s", url.PathEscape(owner), url.PathEscape(repo))
	body, err := c.get(ctx, accessToken, path)
	if err != nil {
		return nil, err
	}

	var r Repository
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("failed to parse repository response: %w", err)
	}
	return &r, nil
}

// GetTree は指定refのgit treeを再帰的に取得する。
// GET /repos/{owner}/{repo}/git/trees/{ref}?recursive=1
func (c *Client) GetTree(ctx context.Context, accessToken, owner, repo, ref string) (*Tree, error) {
	path := fmt.Sprintf("/repos/%s/%s/git/trees/%s?recursive=1",
		url.PathEscape(owner), url.PathEscape(repo), url.PathEscape(ref))
	body, err := c.get(ctx, accessToken, path)
	if err != nil {
		return nil, err
	}

	var t Tree
	if err := json.Unmarshal(body, &t); err != nil {
		return nil, fmt.Errorf("failed to parse tree response: %w", err)
	}
	return &t, nil
}

// get はBearer認証付きのGETリクエストを実行し、2xx応答のボディを返す。
func (c *Client) get(ctx context.Context, accessToken, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", defaultAcceptHeader)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if c.onStatus != nil {
		c.onStatus(resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("github api returned status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
