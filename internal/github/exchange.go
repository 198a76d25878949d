package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hitoshi/devflow/internal/model"
)

const defaultTokenURL = "https://github.com/login/oauth/access_token"

// TokenResponse はトークン交換エンドポイントのレスポンス。
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Scope       string `json:"scope"`
}

// OAuthExchangerConfig はクライアントシークレットを用いる直接交換の設定。
type OAuthExchangerConfig struct {
	ClientID     string
	ClientSecret string

	// テスト用にオーバーライド可能なURL
	TokenURL string

	HTTPClient *http.Client
}

// OAuthExchanger はGitHubのトークンエンドポイントと直接交換を行う。
// クライアントシークレットを保持するため、バックエンド側でのみ使用する。
type OAuthExchanger struct {
	config OAuthExchangerConfig
}

// NewOAuthExchanger はOAuthExchangerを生成する。
func NewOAuthExchanger(config OAuthExchangerConfig) *OAuthExchanger {
	if config.TokenURL == "" {
		config.TokenURL = defaultTokenURL
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &OAuthExchanger{config: config}
}

// ExchangeCode は認可コードをアクセストークンに交換する。
func (e *OAuthExchanger) ExchangeCode(ctx context.Context, code string) (*TokenResponse, error) {
	if e.config.ClientID == "" || e.config.ClientSecret == "" {
		return nil, model.NewOAuthNotConfiguredError()
	}

	payload, err := json.Marshal(map[string]string{
		"client_id":     e.config.ClientID,
		"client_secret": e.config.ClientSecret,
		"code":          code,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to serialize exchange request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.config.TokenURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create exchange request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := e.config.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("exchange request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read exchange response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token exchange failed with status %d: %s", resp.StatusCode, string(body))
	}

	return parseTokenResponse(body)
}

// APIClientConfig はバックエンドAPI経由クライアントの設定。
type APIClientConfig struct {
	// BaseURL はバックエンドAPIのベースURL（例: http://localhost:3001）。
	BaseURL string

	HTTPClient *http.Client
}

// APIClient はバックエンドAPIを経由する操作のクライアント。
// クライアントシークレットを持たないセッションストア側から、
// トークン交換とファイルツリー取得をバックエンドに委譲するために使う。
type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIClient はAPIClientを生成する。
func NewAPIClient(config APIClientConfig) *APIClient {
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &APIClient{
		baseURL:    config.BaseURL,
		httpClient: config.HTTPClient,
	}
}

// ExchangeCode はバックエンドのトークン交換エンドポイントを呼び出す。
// POST {base}/api/github/oauth/exchange
func (c *APIClient) ExchangeCode(ctx context.Context, code string) (*TokenResponse, error) {
	payload, err := json.Marshal(map[string]string{"code": code})
	if err != nil {
		return nil, fmt.Errorf("failed to serialize exchange request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/github/oauth/exchange", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create exchange request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("exchange request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read exchange response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token exchange failed with status %d: %s", resp.StatusCode, string(body))
	}

	return parseTokenResponse(body)
}

// RepoFile はファイルツリー応答の1ファイルを表す。
type RepoFile struct {
	Path string `json:"path"`
	Type string `json:"type"`
	Size int64  `json:"size,omitempty"`
	SHA  string `json:"sha"`
}

// RepoFiles はリポジトリのファイルツリー応答を表す。
type RepoFiles struct {
	Files     []RepoFile `json:"files"`
	Truncated bool       `json:"truncated"`
	SHA       string     `json:"sha"`
}

// FetchRepoFiles はバックエンドのファイルツリーエンドポイントを呼び出す。
// GET {base}/api/github/repos/{owner}/{repo}/files
func (c *APIClient) FetchRepoFiles(ctx context.Context, accessToken, owner, repo string) (*RepoFiles, error) {
	path := fmt.Sprintf("%s/api/github/repos/%s/%s/files",
		c.baseURL, url.PathEscape(owner), url.PathEscape(repo))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create files request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("files request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read files response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("files fetch failed with status %d: %s", resp.StatusCode, string(body))
	}

	var files RepoFiles
	if err := json.Unmarshal(body, &files); err != nil {
		return nil, fmt.Errorf("failed to parse files response: %w", err)
	}
	return &files, nil
}

// parseTokenResponse はトークン応答をパースし、アクセストークンの存在を検証する。
func parseTokenResponse(body []byte) (*TokenResponse, error) {
	var token TokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("empty access token in response")
	}
	return &token, nil
}
