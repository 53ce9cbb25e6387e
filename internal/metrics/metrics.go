package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "feedreach",
		Name:      "http_requests_total",
		Help:      "HTTP запросы по маршруту, методу и коду ответа.",
	}, []string{"route", "method", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "feedreach",
		Name:      "http_request_duration_seconds",
		Help:      "Длительность обработки HTTP запросов.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	donationTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "feedreach",
		Name:      "donation_transitions_total",
		Help:      "Переходы пожертвований по целевому статусу.",
	}, []string{"to"})

	notificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "feedreach",
		Name:      "notifications_sent_total",
		Help:      "Созданные уведомления: direct или broadcast.",
	}, []string{"audience"})

	reviewsSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "feedreach",
		Name:      "reviews_submitted_total",
		Help:      "Принятые отзывы.",
	})

	aiRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "feedreach",
		Name:      "ai_requests_total",
		Help:      "Запросы к провайдерам ИИ по результату.",
	}, []string{"provider", "result"})

	wsConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "feedreach",
		Name:      "ws_connections",
		Help:      "Открытые WebSocket соединения.",
	})
)

// DonationTransition учитывает переход пожертвования в статус to.
func DonationTransition(to string) {
	donationTransitions.WithLabelValues(to).Inc()
}

// NotificationSent учитывает созданное уведомление.
func NotificationSent(broadcast bool) {
	audience := "direct"
	if broadcast {
		audience = "broadcast"
	}
	notificationsSent.WithLabelValues(audience).Inc()
}

// ReviewSubmitted учитывает сохранённый отзыв.
func ReviewSubmitted() {
	reviewsSubmitted.Inc()
}

// AIRequest учитывает обращение к провайдеру ИИ.
func AIRequest(provider string, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	aiRequests.WithLabelValues(provider, result).Inc()
}

// WSConnected / WSDisconnected отслеживают число WebSocket клиентов.
func WSConnected()    { wsConnections.Inc() }
func WSDisconnected() { wsConnections.Dec() }

// Middleware собирает метрики HTTP запросов по шаблону маршрута.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		httpRequests.WithLabelValues(route, method, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
	}
}
