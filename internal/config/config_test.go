package config

import (
	"path/filepath"
	"testing"
	"time"
)

func setRequiredEnvVars(t *testing.T) {
	t.Helper()
	t.Setenv("GITHUB_CLIENT_ID", "test-client-id")
	t.Setenv("GITHUB_CLIENT_SECRET", "test-client-secret")
}

func TestLoad_AllRequiredVarsSet_ReturnsConfig(t *testing.T) {
	setRequiredEnvVars(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.GitHubClientID != "test-client-id" {
		t.Errorf("GitHubClientID = %q, want %q", cfg.GitHubClientID, "test-client-id")
	}
	if cfg.GitHubClientSecret != "test-client-secret" {
		t.Errorf("GitHubClientSecret = %q, want %q", cfg.GitHubClientSecret, "test-client-secret")
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	setRequiredEnvVars(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// GitHub defaults
	if cfg.GitHubRedirectURL != "http://localhost:3000/auth/callback" {
		t.Errorf("GitHubRedirectURL = %q, want %q", cfg.GitHubRedirectURL, "http://localhost:3000/auth/callback")
	}
	if cfg.GitHubAPIBaseURL != "https://api.github.com" {
		t.Errorf("GitHubAPIBaseURL = %q, want %q", cfg.GitHubAPIBaseURL, "https://api.github.com")
	}
	if cfg.GitHubTokenURL != "https://github.com/login/oauth/access_token" {
		t.Errorf("GitHubTokenURL = %q, want %q", cfg.GitHubTokenURL, "https://github.com/login/oauth/access_token")
	}
	if cfg.GitHubAuthorizeURL != "https://github.com/login/oauth/authorize" {
		t.Errorf("GitHubAuthorizeURL = %q, want %q", cfg.GitHubAuthorizeURL, "https://github.com/login/oauth/authorize")
	}
	if cfg.GitHubTimeout != 10*time.Second {
		t.Errorf("GitHubTimeout = %v, want %v", cfg.GitHubTimeout, 10*time.Second)
	}

	// Backend defaults
	if cfg.APIBaseURL != "http://localhost:3001" {
		t.Errorf("APIBaseURL = %q, want %q", cfg.APIBaseURL, "http://localhost:3001")
	}

	// Rate limit defaults
	if cfg.RateLimitGeneral != 120 {
		t.Errorf("RateLimitGeneral = %d, want %d", cfg.RateLimitGeneral, 120)
	}
	if cfg.RateLimitExchange != 10 {
		t.Errorf("RateLimitExchange = %d, want %d", cfg.RateLimitExchange, 10)
	}

	// Server defaults
	if cfg.ServerPort != "3001" {
		t.Errorf("ServerPort = %q, want %q", cfg.ServerPort, "3001")
	}
	if cfg.CORSAllowedOrigin != "http://localhost:3000" {
		t.Errorf("CORSAllowedOrigin = %q, want %q", cfg.CORSAllowedOrigin, "http://localhost:3000")
	}
}

func TestLoad_CustomValues(t *testing.T) {
	setRequiredEnvVars(t)

	t.Setenv("GITHUB_REDIRECT_URL", "https://example.com/auth/callback")
	t.Setenv("GITHUB_API_BASE_URL", "https://github.example.com/api/v3")
	t.Setenv("GITHUB_TOKEN_URL", "https://github.example.com/login/oauth/access_token")
	t.Setenv("GITHUB_AUTHORIZE_URL", "https://github.example.com/login/oauth/authorize")
	t.Setenv("API_BASE_URL", "https://api.example.com")
	t.Setenv("GITHUB_TIMEOUT", "30s")
	t.Setenv("RATE_LIMIT_GENERAL", "60")
	t.Setenv("RATE_LIMIT_EXCHANGE", "5")
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("CORS_ALLOWED_ORIGIN", "https://example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.GitHubRedirectURL != "https://example.com/auth/callback" {
		t.Errorf("GitHubRedirectURL = %q, want %q", cfg.GitHubRedirectURL, "https://example.com/auth/callback")
	}
	if cfg.GitHubAPIBaseURL != "https://github.example.com/api/v3" {
		t.Errorf("GitHubAPIBaseURL = %q, want %q", cfg.GitHubAPIBaseURL, "https://github.example.com/api/v3")
	}
	if cfg.GitHubTokenURL != "https://github.example.com/login/oauth/access_token" {
		t.Errorf("GitHubTokenURL = %q, want %q", cfg.GitHubTokenURL, "https://github.example.com/login/oauth/access_token")
	}
	if cfg.GitHubAuthorizeURL != "https://github.example.com/login/oauth/authorize" {
		t.Errorf("GitHubAuthorizeURL = %q, want %q", cfg.GitHubAuthorizeURL, "https://github.example.com/login/oauth/authorize")
	}
	if cfg.APIBaseURL != "https://api.example.com" {
		t.Errorf("APIBaseURL = %q, want %q", cfg.APIBaseURL, "https://api.example.com")
	}
	if cfg.GitHubTimeout != 30*time.Second {
		t.Errorf("GitHubTimeout = %v, want %v", cfg.GitHubTimeout, 30*time.Second)
	}
	if cfg.RateLimitGeneral != 60 {
		t.Errorf("RateLimitGeneral = %d, want %d", cfg.RateLimitGeneral, 60)
	}
	if cfg.RateLimitExchange != 5 {
		t.Errorf("RateLimitExchange = %d, want %d", cfg.RateLimitExchange, 5)
	}
	if cfg.ServerPort != "9000" {
		t.Errorf("ServerPort = %q, want %q", cfg.ServerPort, "9000")
	}
	if cfg.CORSAllowedOrigin != "https://example.com" {
		t.Errorf("CORSAllowedOrigin = %q, want %q", cfg.CORSAllowedOrigin, "https://example.com")
	}
}

func TestLoad_InvalidNumericValue_FallsBackToDefault(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("RATE_LIMIT_GENERAL", "not-a-number")
	t.Setenv("GITHUB_TIMEOUT", "not-a-duration")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.RateLimitGeneral != 120 {
		t.Errorf("RateLimitGeneral = %d, want %d", cfg.RateLimitGeneral, 120)
	}
	if cfg.GitHubTimeout != 10*time.Second {
		t.Errorf("GitHubTimeout = %v, want %v", cfg.GitHubTimeout, 10*time.Second)
	}
}

func TestLoad_MissingGitHubClientID_ReturnsError(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("GITHUB_CLIENT_ID", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing GITHUB_CLIENT_ID, got nil")
	}
}

func TestLoad_MissingGitHubClientSecret_ReturnsError(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("GITHUB_CLIENT_SECRET", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing GITHUB_CLIENT_SECRET, got nil")
	}
}

func TestStatePath_JoinsDataDir(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("DEVFLOW_DATA_DIR", "/tmp/devflow-test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	want := filepath.Join("/tmp/devflow-test", "state.json")
	if cfg.StatePath() != want {
		t.Errorf("StatePath() = %q, want %q", cfg.StatePath(), want)
	}
}
