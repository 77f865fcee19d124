package middleware

import (
	"net/http"
	"time"
)

// HTTPMetricsRecorder はHTTPリクエストの計測インターフェース。
// metrics.Collectorが実装する。
type HTTPMetricsRecorder interface {
	RecordHTTPRequest(method, route string, status int, duration time.Duration)
}

// unmatchedRoute はルートに一致しなかったリクエストのラベル。
// パスをそのままラベルにするとカーディナリティが際限なく増えるため集約する。
const unmatchedRoute = "unmatched"

// NewMetricsMiddleware はリクエスト数とレイテンシをルートパターン単位で記録するミドルウェアを返す。
func NewMetricsMiddleware(recorder HTTPMetricsRecorder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newStatusRecorder(w)

			next.ServeHTTP(rec, r)

			route := routePattern(r)
			if route == "" {
				route = unmatchedRoute
			}
			recorder.RecordHTTPRequest(r.Method, route, rec.statusCode, time.Since(start))
		})
	}
}
