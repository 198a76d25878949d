package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/devflow/internal/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// GitHubプロキシ
	GitHubService GitHubServiceInterface

	// メトリクス。nilの場合は/metricsを公開しない。
	MetricsGatherer prometheus.Gatherer
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → SecurityHeaders → CORS → RateLimit(General)
//
// トークン交換エンドポイントにはさらに交換専用のレート制限を重ねる。
// /healthと/metricsはレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(slog.Default()))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	githubHandler := NewGitHubHandler(deps.GitHubService)

	// ヘルスチェック（レート制限の外）
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Prometheusメトリクス（レート制限の外）
	if deps.MetricsGatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.MetricsGatherer, promhttp.HandlerOpts{}))
	}

	// GitHubプロキシAPI
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Route("/api/github", func(r chi.Router) {
			// POST /api/github/oauth/exchange - トークン交換（交換専用レート制限を追加）
			r.With(deps.RateLimiter.ExchangeMiddleware()).
				Post("/oauth/exchange", githubHandler.ExchangeCode)

			// GET /api/github/repos/{owner}/{repo}/files - ファイルツリー取得
			r.Get("/repos/{owner}/{repo}/files", githubHandler.FetchRepoFiles)
		})
	})

	return r
}
