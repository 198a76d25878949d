// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/devflow/internal/github"
	"github.com/hitoshi/devflow/internal/model"
)

// GitHubServiceInterface はGitHubプロキシハンドラーが必要とするサービスインターフェース。
type GitHubServiceInterface interface {
	// ExchangeCode は認可コードをアクセストークンに交換する。
	ExchangeCode(ctx context.Context, code string) (*github.TokenResponse, error)
	// FetchRepoFiles はリポジトリのファイルツリーを取得する。
	FetchRepoFiles(ctx context.Context, accessToken, owner, repo string) (*github.RepoFiles, error)
}

// GitHubHandler はGitHubプロキシのHTTPハンドラー。
// クライアントシークレットを露出させないため、トークン交換と
// ファイルツリー取得をバックエンド側で代行する。
type GitHubHandler struct {
	service GitHubServiceInterface
}

// NewGitHubHandler はGitHubHandlerを生成する。
func NewGitHubHandler(service GitHubServiceInterface) *GitHubHandler {
	return &GitHubHandler{service: service}
}

// exchangeRequest はトークン交換リクエストのボディ。
type exchangeRequest struct {
	Code string `json:"code"`
}

// ExchangeCode は認可コードをアクセストークンに交換する。
// POST /api/github/oauth/exchange
func (h *GitHubHandler) ExchangeCode(w http.ResponseWriter, r *http.Request) {
	var req exchangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewMissingCodeError())
		return
	}
	if req.Code == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewMissingCodeError())
		return
	}

	token, err := h.service.ExchangeCode(r.Context(), req.Code)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, token)
}

// FetchRepoFiles はリポジトリのファイルツリー（blobのみ）を返す。
// GET /api/github/repos/{owner}/{repo}/files
// AuthorizationヘッダーのBearerトークンをGitHub APIへの呼び出しに引き継ぐ。
func (h *GitHubHandler) FetchRepoFiles(w http.ResponseWriter, r *http.Request) {
	accessToken := bearerToken(r)
	if accessToken == "" {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	owner := chi.URLParam(r, "owner")
	repo := chi.URLParam(r, "repo")

	files, err := h.service.FetchRepoFiles(r.Context(), accessToken, owner, repo)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, files)
}

// bearerToken はAuthorizationヘッダーからBearerトークンを取り出す。
// Bearerスキーム以外や未設定の場合は空文字を返す。
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(auth, prefix))
}

// apiErrorResponse はAPIエラーレスポンスの統一フォーマット。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// writeJSONResponse はJSONレスポンスを書き込む。
func writeJSONResponse(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		writeAPIErrorResponse(w, statusCode, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeMissingCode, model.ErrCodeInvalidWorkType:
		return http.StatusBadRequest
	case model.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case model.ErrCodeRepoNotFound, model.ErrCodeWorkItemNotFound:
		return http.StatusNotFound
	case model.ErrCodeExchangeFailed, model.ErrCodeTreeFetchFailed:
		return http.StatusBadGateway
	case model.ErrCodeOAuthNotConfigured:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
