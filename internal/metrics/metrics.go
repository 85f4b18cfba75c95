package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Auth metrics

	LoginsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "workspace",
		Name:      "logins_total",
		Help:      "Total login attempts, by outcome.",
	}, []string{"outcome"})

	SessionsSweptTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "workspace",
		Name:      "sessions_swept_total",
		Help:      "Expired sessions removed by the background sweep.",
	})

	// Config cache metrics

	ConfigCacheLookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "workspace",
		Name:      "config_cache_lookups_total",
		Help:      "Config cache lookups, by resource and result (hit, refresh, fallback).",
	}, []string{"resource", "result"})

	// Mail metrics

	MailSendsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "workspace",
		Name:      "mail_sends_total",
		Help:      "Outbound mail dispatches, by outcome.",
	}, []string{"outcome"})

	// HTTP metrics

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "workspace",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "workspace",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests.",
	}, []string{"method", "path", "status"})
)

func Register() {
	prometheus.MustRegister(
		LoginsTotal,
		SessionsSweptTotal,
		ConfigCacheLookupsTotal,
		MailSendsTotal,
		HTTPRequestDuration,
		HTTPRequestsTotal,
	)
}

// Handler serves the default registry; mounted on the main router.
func Handler() http.Handler {
	return promhttp.Handler()
}
