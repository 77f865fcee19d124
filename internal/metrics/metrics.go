// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder はメトリクス記録のインターフェース。
// HTTPミドルウェアと認証サービスから利用する。
type Recorder interface {
	RecordHTTPRequest(method, route string, status int, duration time.Duration)
	RecordAuthEvent(event, outcome string)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	authEvents   *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "writewise_http_requests_total",
			Help: "ルート・メソッド・ステータス別のHTTPリクエスト数",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "writewise_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		authEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "writewise_auth_events_total",
			Help: "認証イベント（signup, login, oauth_login, logout）の結果別の件数",
		}, []string{"event", "outcome"}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpDuration,
		c.authEvents,
	)

	return c
}

// RecordHTTPRequest はHTTPリクエストの結果と処理時間を記録する。
// routeにはURLではなくルートパターン（/posts/{id} 等）を渡し、ラベルの種類数を抑える。
func (c *Collector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordAuthEvent は認証イベントを記録する。
func (c *Collector) RecordAuthEvent(event, outcome string) {
	c.authEvents.WithLabelValues(event, outcome).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var _ Recorder = (*Collector)(nil)
