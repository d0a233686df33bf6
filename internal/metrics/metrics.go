// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 認証イベントの結果ラベル。
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層・ミドルウェア・ワーカーから利用する。
type MetricsCollector interface {
	// RecordAuthEvent は認証フローの結果を記録する。
	// eventは signup, login, otp_request, otp_verify, password_reset のいずれか。
	RecordAuthEvent(event, outcome string)
	RecordLoginRateLimited()
	// RecordExpenseOperation は支出の操作を記録する。
	// opは create, update, delete, export_csv, export_pdf のいずれか。
	RecordExpenseOperation(op string)
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
	RecordResetEntriesSwept(count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	authEvents        *prometheus.CounterVec
	loginRateLimited  prometheus.Counter
	expenseOperations *prometheus.CounterVec
	httpStatus        *prometheus.CounterVec
	requestLatency    prometheus.Histogram
	resetEntriesSwept prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		authEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wealthio_auth_events_total",
			Help: "認証フローのイベント数（イベント種別・結果別）",
		}, []string{"event", "outcome"}),
		loginRateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wealthio_login_rate_limited_total",
			Help: "ログイン試行回数制限により拒否されたリクエスト数",
		}),
		expenseOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wealthio_expense_operations_total",
			Help: "支出の操作数（操作種別別）",
		}, []string{"operation"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wealthio_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "wealthio_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		resetEntriesSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wealthio_reset_entries_swept_total",
			Help: "クリーンアップで削除された期限切れリセットエントリの合計数",
		}),
	}

	reg.MustRegister(
		c.authEvents,
		c.loginRateLimited,
		c.expenseOperations,
		c.httpStatus,
		c.requestLatency,
		c.resetEntriesSwept,
	)

	return c
}

// RecordAuthEvent は認証フローの結果を記録する。
func (c *Collector) RecordAuthEvent(event, outcome string) {
	c.authEvents.WithLabelValues(event, outcome).Inc()
}

// RecordLoginRateLimited はログイン試行回数制限による拒否を記録する。
func (c *Collector) RecordLoginRateLimited() {
	c.loginRateLimited.Inc()
}

// RecordExpenseOperation は支出の操作を記録する。
func (c *Collector) RecordExpenseOperation(op string) {
	c.expenseOperations.WithLabelValues(op).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエストの処理時間を記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// RecordResetEntriesSwept は削除された期限切れリセットエントリ数を記録する。
func (c *Collector) RecordResetEntriesSwept(count int64) {
	c.resetEntriesSwept.Add(float64(count))
}

// NopCollector は何も記録しないMetricsCollector。テストやCLIで使う。
type NopCollector struct{}

func (NopCollector) RecordAuthEvent(string, string)     {}
func (NopCollector) RecordLoginRateLimited()            {}
func (NopCollector) RecordExpenseOperation(string)      {}
func (NopCollector) RecordHTTPStatus(int)               {}
func (NopCollector) RecordRequestLatency(time.Duration) {}
func (NopCollector) RecordResetEntriesSwept(int64)      {}

var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = NopCollector{}
)

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
