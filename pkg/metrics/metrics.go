package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "shiftmate"

// ── 业务指标 ──

var (
	swapTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "swap_transitions_total",
			Help:      "Swap request state transitions by flow and resulting status.",
		},
		[]string{"flow", "status"},
	)

	shiftClaims = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shift_claims_total",
			Help:      "Shift take attempts by result.",
		},
		[]string{"result"},
	)

	overlapConflicts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "overlap_conflicts_total",
			Help:      "Operations rejected because the assignee already holds an overlapping shift.",
		},
		[]string{"operation"},
	)
)

// ── HTTP 指标 ──

var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "http_in_flight_requests",
		Help:      "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latencies in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

var registerOnce sync.Once

// Register 注册全部指标到默认注册表（重复调用安全）
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			swapTransitions, shiftClaims, overlapConflicts,
			httpInFlight, httpRequestsTotal, httpRequestDuration,
		)
	})
}

// Handler Prometheus 抓取端点
func Handler() http.Handler {
	return promhttp.Handler()
}

// SwapTransition 记录一次换班状态迁移；flow 为 open / direct
func SwapTransition(flow, status string) {
	swapTransitions.WithLabelValues(flow, status).Inc()
}

// ShiftClaim 记录认领结果：success / conflict / rejected
func ShiftClaim(result string) {
	shiftClaims.WithLabelValues(result).Inc()
}

// OverlapConflict 记录被时间重叠拒绝的操作
func OverlapConflict(operation string) {
	overlapConflicts.WithLabelValues(operation).Inc()
}

// Instrument Gin 中间件：统计请求数 / 延迟 / 在途数
// path 取路由模板（FullPath），避免 ID 造成标签膨胀
func Instrument() gin.HandlerFunc {
	return func(c *gin.Context) {
		httpInFlight.Inc()
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		httpRequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		httpInFlight.Dec()
	}
}
