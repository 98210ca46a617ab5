package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	AuthFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_auth_failures_total",
		Help: "Total number of rejected sessions and logins",
	}, []string{"reason"})
	PolicyDenialsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_policy_denials_total",
		Help: "Total number of requests denied by the authorization policy",
	}, []string{"action"})
	MessagesAppendedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_messages_appended_total",
		Help: "Total number of chat messages sent",
	})
	RoomsDeletedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_rooms_deleted_total",
		Help: "Total number of rooms deleted together with their messages",
	})
	HttpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
	HttpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
)

func init() {
	prometheus.MustRegister(AuthFailuresTotal, PolicyDenialsTotal, MessagesAppendedTotal, RoomsDeletedTotal, HttpRequestsTotal, HttpRequestDuration)
}

// AuthFailure 记录一次会话或登录失败，reason 取值 missing / invalid / credentials。
func AuthFailure(reason string) {
	AuthFailuresTotal.WithLabelValues(reason).Inc()
}

// GinMiddleware 统计基础请求指标，供 Prometheus 拉取。
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := strconv.Itoa(c.Writer.Status())
		path := c.FullPath()
		if path == "" {
			// 未匹配路由不使用原始 URL 作为标签，避免基数爆炸。
			path = "unmatched"
		}
		labels := prometheus.Labels{"method": c.Request.Method, "path": path, "status": status}
		HttpRequestsTotal.With(labels).Inc()
		HttpRequestDuration.With(labels).Observe(time.Since(start).Seconds())
	}
}
