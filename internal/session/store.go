// Package session はGitHub資格情報とユーザープロフィールのライフサイクルを管理する。
// 資格情報はクライアントローカルなキーバリュー基盤に永続化され、
// OAuth認可コードフローとトークン直接入力の2経路で取得できる。
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/hitoshi/devflow/internal/github"
	"github.com/hitoshi/devflow/internal/model"
	"github.com/hitoshi/devflow/internal/storage"
)

// 永続化キー。セッション状態はこの4キーのみを使用する。
const (
	tokenKey      = "devflow_github_token"
	userKey       = "devflow_github_user"
	oauthStateKey = "devflow_oauth_state"
	authMethodKey = "devflow_github_auth_method"
)

const (
	defaultAuthorizeURL = "https://github.com/login/oauth/authorize"
	// oauthScopes は認可フローで要求するスコープ。
	// リポジトリ読み取りとプロフィール・メール取得に必要な最小集合。
	oauthScopes = "repo read:user user:email"
)

// GitHubGateway はセッションストアが必要とするGitHub API操作のインターフェース。
type GitHubGateway interface {
	// FetchUser はアクセストークンで認証ユーザーのプロフィールを取得する。
	FetchUser(ctx context.Context, accessToken string) (*model.GitHubUser, error)
	// ListRepositories は認証ユーザーのリポジトリ一覧を取得する。
	ListRepositories(ctx context.Context, accessToken string) ([]github.Repository, error)
	// ProbeRepoScope はトークンがリポジトリ読み取り権限を持つかを検証する。
	ProbeRepoScope(ctx context.Context, accessToken string) error
	// GetRepository は単一リポジトリのメタデータを取得する。
	GetRepository(ctx context.Context, accessToken, owner, repo string) (*github.Repository, error)
}

// BackendGateway はバックエンドAPI経由の操作のインターフェース。
type BackendGateway interface {
	// ExchangeCode は認可コードをアクセストークンに交換する。
	ExchangeCode(ctx context.Context, code string) (*github.TokenResponse, error)
	// FetchRepoFiles はリポジトリのファイルツリーを取得する。
	FetchRepoFiles(ctx context.Context, accessToken, owner, repo string) (*github.RepoFiles, error)
}

// Config はセッションストアの設定。
type Config struct {
	// ClientID はGitHub OAuth AppのクライアントID。
	// 未設定の場合、認可フローの開始は設定エラーで失敗する。
	ClientID string
	// RedirectURL は認可後にユーザーエージェントが戻るコールバックURL。
	RedirectURL string

	// テスト用にオーバーライド可能なURL
	AuthorizeURL string
}

// Store はGitHub資格情報とプロフィールのセッションストア。
// 1プロセスにつき1つ構築し、依存はすべて注入する。
type Store struct {
	storage storage.Store
	gh      GitHubGateway
	backend BackendGateway
	config  Config
}

// NewStore はStoreを生成する。
func NewStore(st storage.Store, gh GitHubGateway, backend BackendGateway, config Config) *Store {
	if config.AuthorizeURL == "" {
		config.AuthorizeURL = defaultAuthorizeURL
	}
	return &Store{
		storage: st,
		gh:      gh,
		backend: backend,
		config:  config,
	}
}

// GetSnapshot は永続化された資格情報から現在の認証状態を導出する。
// トークンが失効している場合は資格情報とプロフィールを破棄した上で
// 未認証のスナップショットを返す。ネットワークアクセスは行わない。
func (s *Store) GetSnapshot() model.SessionSnapshot {
	token := s.readToken()
	user := s.readUser()

	method := s.readAuthMethod()
	if method == "" {
		method = model.AuthMethodOAuth
	}

	return model.SessionSnapshot{
		IsAuthenticated: token != nil && user != nil,
		AuthMethod:      method,
		Token:           token,
		User:            user,
	}
}

// BeginAuthorizationFlow はOAuth認可フローを開始し、
// ユーザーエージェントをリダイレクトすべき認可URLを返す。
// CSRF対策のstateトークンを生成して保留フローマーカーとして永続化する。
// クライアントIDが未設定の場合はネットワークアクセスなしで即座に失敗する。
func (s *Store) BeginAuthorizationFlow() (string, error) {
	if s.config.ClientID == "" {
		return "", model.NewOAuthNotConfiguredError()
	}

	state, err := generateState()
	if err != nil {
		return "", err
	}

	// 以前のフローの残骸を消してから新しいマーカーを保存する
	s.deleteKey(oauthStateKey)
	s.setKey(oauthStateKey, []byte(state))
	s.setKey(authMethodKey, []byte(model.AuthMethodOAuth))

	params := url.Values{
		"client_id":    {s.config.ClientID},
		"redirect_uri": {s.config.RedirectURL},
		"scope":        {oauthScopes},
		"state":        {state},
	}
	return s.config.AuthorizeURL + "?" + params.Encode(), nil
}

// CompleteAuthorizationFlow はOAuthコールバックを処理する。
// stateが発行済みの保留フローマーカーと一致しない場合は認証失敗として
// falseを返し、何も保存しない（CSRF対策）。
// 一致した場合はマーカーを消去し、認可コードをトークンに交換して
// プロフィールを取得し、両方が揃った時点でまとめて永続化する。
// トークンのみが保存されプロフィールが欠ける中途半端な状態は残さない。
func (s *Store) CompleteAuthorizationFlow(ctx context.Context, code, state string) bool {
	saved, err := s.storage.Get(oauthStateKey)
	if err != nil {
		slog.Error("failed to read oauth state", slog.String("error", err.Error()))
		return false
	}
	if saved == nil || string(saved) != state || state == "" {
		slog.Warn("oauth state mismatch")
		return false
	}

	s.deleteKey(oauthStateKey)

	tokenResp, err := s.backend.ExchangeCode(ctx, code)
	if err != nil {
		slog.Error("oauth code exchange failed", slog.String("error", err.Error()))
		return false
	}

	user, err := s.gh.FetchUser(ctx, tokenResp.AccessToken)
	if err != nil {
		slog.Error("failed to fetch user profile", slog.String("error", err.Error()))
		return false
	}

	token := &model.GitHubToken{
		AccessToken: tokenResp.AccessToken,
		TokenType:   tokenResp.TokenType,
		Scope:       tokenResp.Scope,
		AuthMethod:  model.AuthMethodOAuth,
	}
	return s.saveAuth(token, user, model.AuthMethodOAuth)
}

// ConnectWithToken は発行済みトークンの直接入力で認証する。
// プロフィール取得とリポジトリ読み取り権限の検証が両方成功した場合のみ
// 資格情報とプロフィールを永続化してtrueを返す。
func (s *Store) ConnectWithToken(ctx context.Context, rawToken string) bool {
	user, err := s.gh.FetchUser(ctx, rawToken)
	if err != nil {
		slog.Warn("token validation failed: profile fetch", slog.String("error", err.Error()))
		return false
	}

	if err := s.gh.ProbeRepoScope(ctx, rawToken); err != nil {
		slog.Warn("token validation failed: repository scope probe", slog.String("error", err.Error()))
		return false
	}

	token := &model.GitHubToken{
		AccessToken: rawToken,
		TokenType:   "Bearer",
		Scope:       "repo",
		AuthMethod:  model.AuthMethodToken,
	}
	return s.saveAuth(token, user, model.AuthMethodToken)
}

// Logout は資格情報、プロフィール、認証方式、保留フローマーカーを
// 無条件かつ冪等に消去する。
func (s *Store) Logout() {
	s.clearAuth()
}

// ListRepositories は現在の資格情報でリポジトリ一覧を取得する。
// 資格情報がない場合やリモート呼び出しに失敗した場合は空のスライスを返す。
func (s *Store) ListRepositories(ctx context.Context) []github.Repository {
	token := s.readToken()
	if token == nil {
		return nil
	}

	repos, err := s.gh.ListRepositories(ctx, token.AccessToken)
	if err != nil {
		slog.Warn("failed to list repositories", slog.String("error", err.Error()))
		return nil
	}
	return repos
}

// FetchRepositoryFiles は指定リポジトリ（owner/name形式）のファイルツリーを取得する。
// 資格情報がない場合やリモート呼び出しに失敗した場合はnilを返す。
func (s *Store) FetchRepositoryFiles(ctx context.Context, repoRef string) *github.RepoFiles {
	token := s.readToken()
	if token == nil {
		return nil
	}

	owner, repo, ok := splitRepoRef(repoRef)
	if !ok {
		slog.Warn("invalid repository reference", slog.String("repo", repoRef))
		return nil
	}

	files, err := s.backend.FetchRepoFiles(ctx, token.AccessToken, owner, repo)
	if err != nil {
		slog.Warn("failed to fetch repository files",
			slog.String("repo", repoRef),
			slog.String("error", err.Error()),
		)
		return nil
	}
	return files
}

// ValidateRepositoryAccess は現在の資格情報で指定リポジトリにアクセスできるかを返す。
// 資格情報がない場合や取得に失敗した場合はfalseを返す。
func (s *Store) ValidateRepositoryAccess(ctx context.Context, repoRef string) bool {
	token := s.readToken()
	if token == nil {
		return false
	}

	owner, repo, ok := splitRepoRef(repoRef)
	if !ok {
		return false
	}

	if _, err := s.gh.GetRepository(ctx, token.AccessToken, owner, repo); err != nil {
		return false
	}
	return true
}

// --- 永続化ヘルパー ---

// readToken は永続化されたトークンを読み出す。
// 失効している場合は資格情報一式を消去してnilを返す。
func (s *Store) readToken() *model.GitHubToken {
	raw, err := s.storage.Get(tokenKey)
	if err != nil || raw == nil {
		return nil
	}

	var token model.GitHubToken
	if err := json.Unmarshal(raw, &token); err != nil {
		slog.Warn("stored token is corrupt, discarding", slog.String("error", err.Error()))
		s.clearAuth()
		return nil
	}

	if token.Expired(time.Now()) {
		slog.Info("stored token expired, clearing session")
		s.clearAuth()
		return nil
	}
	return &token
}

// readUser は永続化されたプロフィールを読み出す。
// 壊れている場合はトークンだけが残らないよう資格情報一式を消去してnilを返す。
func (s *Store) readUser() *model.GitHubUser {
	raw, err := s.storage.Get(userKey)
	if err != nil || raw == nil {
		return nil
	}

	var user model.GitHubUser
	if err := json.Unmarshal(raw, &user); err != nil {
		slog.Warn("stored user profile is corrupt, clearing session", slog.String("error", err.Error()))
		s.clearAuth()
		return nil
	}
	return &user
}

// readAuthMethod は永続化された認証方式を読み出す。
func (s *Store) readAuthMethod() model.AuthMethod {
	raw, err := s.storage.Get(authMethodKey)
	if err != nil || raw == nil {
		return ""
	}
	return model.AuthMethod(raw)
}

// saveAuth はトークン、プロフィール、認証方式をまとめて永続化する。
// いずれかの書き込みに失敗した場合は書き込み済みのキーを消去し、
// 中途半端な状態を残さずfalseを返す。
func (s *Store) saveAuth(token *model.GitHubToken, user *model.GitHubUser, method model.AuthMethod) bool {
	tokenJSON, err := json.Marshal(token)
	if err != nil {
		slog.Error("failed to serialize token", slog.String("error", err.Error()))
		return false
	}
	userJSON, err := json.Marshal(user)
	if err != nil {
		slog.Error("failed to serialize user profile", slog.String("error", err.Error()))
		return false
	}

	if err := s.storage.Set(tokenKey, tokenJSON); err != nil {
		slog.Error("failed to persist token", slog.String("error", err.Error()))
		return false
	}
	if err := s.storage.Set(userKey, userJSON); err != nil {
		slog.Error("failed to persist user profile", slog.String("error", err.Error()))
		s.deleteKey(tokenKey)
		return false
	}
	s.setKey(authMethodKey, []byte(method))

	slog.Info("github session established",
		slog.String("login", user.Login),
		slog.String("auth_method", string(method)),
	)
	return true
}

// clearAuth はセッション関連の全キーを消去する。
func (s *Store) clearAuth() {
	s.deleteKey(tokenKey)
	s.deleteKey(userKey)
	s.deleteKey(oauthStateKey)
	s.deleteKey(authMethodKey)
}

// setKey は永続化失敗をログに残して握りつぶす書き込みヘルパー。
// ここに保存されるのはUI向けのキャッシュ状態であり、
// 永続化失敗でUIの可用性を損なわない方針を取る。
func (s *Store) setKey(key string, value []byte) {
	if err := s.storage.Set(key, value); err != nil {
		slog.Error("failed to write storage key",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}

// deleteKey は削除失敗をログに残して握りつぶす削除ヘルパー。
func (s *Store) deleteKey(key string) {
	if err := s.storage.Delete(key); err != nil {
		slog.Error("failed to delete storage key",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}

// splitRepoRef は"owner/name"形式のリポジトリ参照を分解する。
func splitRepoRef(repoRef string) (owner, repo string, ok bool) {
	parts := strings.SplitN(repoRef, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// generateState はCSRF対策用の推測困難なstate値を生成する。
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
