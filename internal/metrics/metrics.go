// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// GitHubプロキシサービスから利用する。
type MetricsCollector interface {
	RecordExchangeSuccess()
	RecordExchangeFailure()
	RecordTreeFetchSuccess()
	RecordTreeFetchFailure()
	RecordGitHubStatus(statusCode int)
	RecordTreeFetchLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	exchangeSuccess  prometheus.Counter
	exchangeFail     prometheus.Counter
	treeFetchSuccess prometheus.Counter
	treeFetchFail    prometheus.Counter
	githubStatus     *prometheus.CounterVec
	treeFetchLatency prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		exchangeSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "devflow_oauth_exchange_success_total",
			Help: "OAuthトークン交換成功の合計数",
		}),
		exchangeFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "devflow_oauth_exchange_fail_total",
			Help: "OAuthトークン交換失敗の合計数",
		}),
		treeFetchSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "devflow_tree_fetch_success_total",
			Help: "ファイルツリー取得成功の合計数",
		}),
		treeFetchFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "devflow_tree_fetch_fail_total",
			Help: "ファイルツリー取得失敗の合計数",
		}),
		githubStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "devflow_github_status_total",
			Help: "GitHub APIのHTTPステータスコード別レスポンス数",
		}, []string{"status_code"}),
		treeFetchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "devflow_tree_fetch_latency_seconds",
			Help:    "ファイルツリー取得のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.exchangeSuccess,
		c.exchangeFail,
		c.treeFetchSuccess,
		c.treeFetchFail,
		c.githubStatus,
		c.treeFetchLatency,
	)

	return c
}

// RecordExchangeSuccess はトークン交換成功を記録する。
func (c *Collector) RecordExchangeSuccess() {
	c.exchangeSuccess.Inc()
}

// RecordExchangeFailure はトークン交換失敗を記録する。
func (c *Collector) RecordExchangeFailure() {
	c.exchangeFail.Inc()
}

// RecordTreeFetchSuccess はファイルツリー取得成功を記録する。
func (c *Collector) RecordTreeFetchSuccess() {
	c.treeFetchSuccess.Inc()
}

// RecordTreeFetchFailure はファイルツリー取得失敗を記録する。
func (c *Collector) RecordTreeFetchFailure() {
	c.treeFetchFail.Inc()
}

// RecordGitHubStatus はGitHub APIのHTTPステータスコードを記録する。
func (c *Collector) RecordGitHubStatus(statusCode int) {
	c.githubStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordTreeFetchLatency はファイルツリー取得のレイテンシを記録する。
func (c *Collector) RecordTreeFetchLatency(duration time.Duration) {
	c.treeFetchLatency.Observe(duration.Seconds())
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)

// NopCollector は何も記録しないMetricsCollector実装。
// メトリクス収集が不要な構成（CLI等）で使用する。
type NopCollector struct{}

func (NopCollector) RecordExchangeSuccess()               {}
func (NopCollector) RecordExchangeFailure()               {}
func (NopCollector) RecordTreeFetchSuccess()              {}
func (NopCollector) RecordTreeFetchFailure()              {}
func (NopCollector) RecordGitHubStatus(int)               {}
func (NopCollector) RecordTreeFetchLatency(time.Duration) {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
