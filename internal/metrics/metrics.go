package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bazaar"

// CheckoutMetrics 结算链路指标
type CheckoutMetrics struct {
	Requests           *prometheus.CounterVec
	LatencyMS          *prometheus.HistogramVec
	CommitDurationMS   prometheus.Histogram
	CheckoutResults    *prometheus.CounterVec
	OrdersCreated      prometheus.Counter
	SideEffectFailures *prometheus.CounterVec
	SideEffectRetries  *prometheus.CounterVec
	RewardFailures     prometheus.Counter
}

var (
	defaultOnce    sync.Once
	defaultMetrics *CheckoutMetrics
)

// Default 返回进程级指标实例，首次调用时注册到默认 registry
func Default() *CheckoutMetrics {
	defaultOnce.Do(func() {
		defaultMetrics = New(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

// New 创建并注册指标
func New(registerer prometheus.Registerer) *CheckoutMetrics {
	m := &CheckoutMetrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"route", "status"}),
		LatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"route"}),
		CommitDurationMS: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "commit_duration_ms",
			Help:      "Checkout commit transaction latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 5000, 30000},
		}),
		CheckoutResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "results_total",
			Help:      "Checkout attempts by result.",
		}, []string{"result"}),
		OrdersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "orders_created_total",
			Help:      "Orders created by committed checkouts.",
		}),
		SideEffectFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "side_effect_failures_total",
			Help:      "Post-commit side effect failures by task.",
		}, []string{"task"}),
		SideEffectRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "side_effect_retries_enqueued_total",
			Help:      "Post-commit side effects handed to the retry queue.",
		}, []string{"task"}),
		RewardFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "delivery_reward_failures_total",
			Help:      "Delivery reward credits that failed after the status change was kept.",
		}),
	}
	if registerer != nil {
		registerer.MustRegister(
			m.Requests,
			m.LatencyMS,
			m.CommitDurationMS,
			m.CheckoutResults,
			m.OrdersCreated,
			m.SideEffectFailures,
			m.SideEffectRetries,
			m.RewardFailures,
		)
	}
	return m
}

// ObserveCommit 记录一次下单提交
func (m *CheckoutMetrics) ObserveCommit(result string, elapsed time.Duration, orders int) {
	if m == nil {
		return
	}
	m.CommitDurationMS.Observe(float64(elapsed.Milliseconds()))
	m.CheckoutResults.WithLabelValues(result).Inc()
	if orders > 0 {
		m.OrdersCreated.Add(float64(orders))
	}
}

// SideEffectFailed 记录副作用失败
func (m *CheckoutMetrics) SideEffectFailed(task string) {
	if m == nil {
		return
	}
	m.SideEffectFailures.WithLabelValues(task).Inc()
}

// SideEffectRetryEnqueued 记录副作用进入重试队列
func (m *CheckoutMetrics) SideEffectRetryEnqueued(task string) {
	if m == nil {
		return
	}
	m.SideEffectRetries.WithLabelValues(task).Inc()
}

// RewardFailed 记录送达奖励失败
func (m *CheckoutMetrics) RewardFailed() {
	if m == nil {
		return
	}
	m.RewardFailures.Inc()
}

// ObserveRequest 记录 HTTP 请求
func (m *CheckoutMetrics) ObserveRequest(route, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(route, status).Inc()
	m.LatencyMS.WithLabelValues(route).Observe(float64(elapsed.Milliseconds()))
}

// Handler Prometheus 抓取端点
func Handler() http.Handler {
	return promhttp.Handler()
}
