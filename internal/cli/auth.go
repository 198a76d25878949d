package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hitoshi/devflow/internal/github"
	"github.com/hitoshi/devflow/internal/session"
	"github.com/hitoshi/devflow/internal/storage"
	"github.com/spf13/cobra"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage GitHub authentication",
}

var authToken string

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate with GitHub",
	RunE:  runAuthLogin,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current authentication state",
	RunE:  runAuthStatus,
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Discard stored GitHub credentials",
	RunE:  runAuthLogout,
}

func init() {
	authLoginCmd.Flags().StringVar(&authToken, "token", "", "GitHub personal access token (skips the OAuth flow)")
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authStatusCmd)
	authCmd.AddCommand(authLogoutCmd)
	rootCmd.AddCommand(authCmd)
}

// dataDir はローカル状態ファイルを置くディレクトリを返す。
// DEVFLOW_DATA_DIRで上書き可能、デフォルトは~/.devflow。
func dataDir() string {
	if dir := os.Getenv("DEVFLOW_DATA_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".devflow"
	}
	return filepath.Join(home, ".devflow")
}

// openSessionStore はローカル状態ファイル上のセッションストアを開く。
// GitHub APIとバックエンドAPIのエンドポイントは環境変数で上書きできる。
func openSessionStore() (*session.Store, error) {
	fs, err := storage.NewFileStore(filepath.Join(dataDir(), "state.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to open local state: %w", err)
	}

	gh := github.NewClient(github.ClientConfig{
		APIBaseURL: os.Getenv("GITHUB_API_BASE_URL"),
	})

	backendURL := os.Getenv("DEVFLOW_API_BASE_URL")
	if backendURL == "" {
		backendURL = "http://localhost:3001"
	}
	backend := github.NewAPIClient(github.APIClientConfig{BaseURL: backendURL})

	return session.NewStore(fs, gh, backend, session.Config{
		ClientID:    os.Getenv("GITHUB_CLIENT_ID"),
		RedirectURL: os.Getenv("GITHUB_REDIRECT_URL"),
	}), nil
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	store, err := openSessionStore()
	if err != nil {
		return err
	}

	if authToken != "" {
		if !store.ConnectWithToken(cmd.Context(), authToken) {
			return fmt.Errorf("token rejected: make sure it is valid and has the repo scope")
		}
		snapshot := store.GetSnapshot()
		fmt.Printf("Logged in as %s\n", snapshot.User.Login)
		return nil
	}

	// トークン未指定の場合は認可URLを提示する。
	// コールバックの受け口はダッシュボード側にあるため、CLIはURL提示まで。
	authorizeURL, err := store.BeginAuthorizationFlow()
	if err != nil {
		return err
	}
	fmt.Println("Open the following URL in your browser to authorize:")
	fmt.Println(authorizeURL)
	return nil
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	store, err := openSessionStore()
	if err != nil {
		return err
	}

	snapshot := store.GetSnapshot()
	if !snapshot.IsAuthenticated {
		fmt.Println("Not logged in.")
		return nil
	}

	fmt.Printf("Logged in as %s (%s)\n", snapshot.User.Login, snapshot.AuthMethod)
	if snapshot.Token.ExpiresAt != nil {
		fmt.Printf("Token expires at %s\n", snapshot.Token.ExpiresAt.Format("2006-01-02 15:04:05 MST"))
	}
	return nil
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	store, err := openSessionStore()
	if err != nil {
		return err
	}

	store.Logout()
	fmt.Println("Logged out.")
	return nil
}
