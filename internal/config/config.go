package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// GitHub OAuth
	GitHubClientID     string
	GitHubClientSecret string
	GitHubRedirectURL  string

	// GitHub外部エンドポイント（テスト・GitHub Enterprise用にオーバーライド可能）
	GitHubAPIBaseURL   string
	GitHubTokenURL     string
	GitHubAuthorizeURL string

	// Backend
	APIBaseURL string // セッションストアが使うバックエンドAPIのベースURL

	// Storage
	DataDir string

	// HTTP
	GitHubTimeout time.Duration

	// Rate Limit（req/min単位）
	RateLimitGeneral  int
	RateLimitExchange int

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// カレントディレクトリに.envがあれば先に読み込む（存在しない場合は無視）。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.GitHubClientID = os.Getenv("GITHUB_CLIENT_ID")
	if cfg.GitHubClientID == "" {
		missing = append(missing, "GITHUB_CLIENT_ID")
	}

	cfg.GitHubClientSecret = os.Getenv("GITHUB_CLIENT_SECRET")
	if cfg.GitHubClientSecret == "" {
		missing = append(missing, "GITHUB_CLIENT_SECRET")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.GitHubRedirectURL = getEnvString("GITHUB_REDIRECT_URL", "http://localhost:3000/auth/callback")
	cfg.GitHubAPIBaseURL = getEnvString("GITHUB_API_BASE_URL", "https://api.github.com")
	cfg.GitHubTokenURL = getEnvString("GITHUB_TOKEN_URL", "https://github.com/login/oauth/access_token")
	cfg.GitHubAuthorizeURL = getEnvString("GITHUB_AUTHORIZE_URL", "https://github.com/login/oauth/authorize")
	cfg.APIBaseURL = getEnvString("API_BASE_URL", "http://localhost:3001")
	cfg.DataDir = getEnvString("DEVFLOW_DATA_DIR", defaultDataDir())
	cfg.GitHubTimeout = getEnvDuration("GITHUB_TIMEOUT", 10*time.Second)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitExchange = getEnvInt("RATE_LIMIT_EXCHANGE", 10)
	cfg.ServerPort = getEnvString("SERVER_PORT", "3001")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

// StatePath はローカル状態ファイルのパスを返す。
func (c *Config) StatePath() string {
	return filepath.Join(c.DataDir, "state.json")
}

// defaultDataDir はローカル状態の既定の保存先ディレクトリを返す。
// ホームディレクトリが取得できない場合はカレントディレクトリ配下を使用する。
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".devflow"
	}
	return filepath.Join(home, ".devflow")
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
