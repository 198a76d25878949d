package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/devflow/internal/metrics"
	"github.com/hitoshi/devflow/internal/model"
)

// ProxyService はバックエンドが提供するGitHubプロキシ機能のビジネスロジック。
// クライアントシークレットを用いるトークン交換と、デフォルトブランチ解決を
// 含むファイルツリー取得をまとめる。
type ProxyService struct {
	client    *Client
	exchanger *OAuthExchanger
	metrics   metrics.MetricsCollector
}

// NewProxyService はProxyServiceを生成する。
func NewProxyService(client *Client, exchanger *OAuthExchanger, collector metrics.MetricsCollector) *ProxyService {
	if collector == nil {
		collector = metrics.NopCollector{}
	}
	return &ProxyService{
		client:    client,
		exchanger: exchanger,
		metrics:   collector,
	}
}

// ExchangeCode は認可コードをアクセストークンに交換する。
func (s *ProxyService) ExchangeCode(ctx context.Context, code string) (*TokenResponse, error) {
	token, err := s.exchanger.ExchangeCode(ctx, code)
	if err != nil {
		s.metrics.RecordExchangeFailure()
		slog.Error("oauth code exchange failed", slog.String("error", err.Error()))

		var apiErr *model.APIError
		if errors.As(err, &apiErr) {
			return nil, apiErr
		}
		return nil, model.NewExchangeFailedError()
	}

	s.metrics.RecordExchangeSuccess()
	return token, nil
}

// FetchRepoFiles はリポジトリのファイルツリーを取得する。
// リポジトリ情報からデフォルトブランチを解決し、git treeを再帰取得して
// blob（ファイル）のみを返す。ディレクトリ（tree）は含まない。
func (s *ProxyService) FetchRepoFiles(ctx context.Context, accessToken, owner, repo string) (*RepoFiles, error) {
	start := time.Now()
	repoRef := fmt.Sprintf("%s/%s", owner, repo)

	// 1. リポジトリ情報からデフォルトブランチを解決
	repoInfo, err := s.client.GetRepository(ctx, accessToken, owner, repo)
	if err != nil {
		s.metrics.RecordTreeFetchFailure()
		slog.Warn("failed to fetch repository info",
			slog.String("repo", repoRef),
			slog.String("error", err.Error()),
		)
		return nil, model.NewRepoNotFoundError(repoRef)
	}

	// 2. デフォルトブランチのgit treeを再帰取得
	tree, err := s.client.GetTree(ctx, accessToken, owner, repo, repoInfo.DefaultBranch)
	if err != nil {
		s.metrics.RecordTreeFetchFailure()
		slog.Error("failed to fetch repository tree",
			slog.String("repo", repoRef),
			slog.String("ref", repoInfo.DefaultBranch),
			slog.String("error", err.Error()),
		)
		return nil, model.NewTreeFetchFailedError(repoRef)
	}

	// 3. blobのみを抽出
	files := make([]RepoFile, 0, len(tree.Entries))
	for _, entry := range tree.Entries {
		if entry.Type != "blob" {
			continue
		}
		files = append(files, RepoFile{
			Path: entry.Path,
			Type: entry.Type,
			Size: entry.Size,
			SHA:  entry.SHA,
		})
	}

	s.metrics.RecordTreeFetchSuccess()
	s.metrics.RecordTreeFetchLatency(time.Since(start))

	return &RepoFiles{
		Files:     files,
		Truncated: tree.Truncated,
		SHA:       tree.SHA,
	}, nil
}
