// Package metrics registers the console's Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	BackendRequests = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "lectio", Name: "backend_request_seconds", Help: "Backend request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"family", "method", "status"})
	CacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lectio", Name: "cache_lookups_total", Help: "Query cache lookups by result",
	}, []string{"family", "result"})
	CacheInvalidations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lectio", Name: "cache_invalidations_total", Help: "Invalidated cache entries",
	}, []string{"family"})
	Mutations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lectio", Name: "mutations_total", Help: "Mutations dispatched to the backend",
	}, []string{"action", "outcome"})
	ConsoleRequests = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "lectio", Name: "console_request_seconds", Help: "Console request latency by route",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method", "status"})
	WebsocketClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "lectio", Name: "websocket_clients", Help: "Connected dashboard sockets",
	})
)

func init() {
	prometheus.MustRegister(BackendRequests, CacheLookups, CacheInvalidations, Mutations, ConsoleRequests, WebsocketClients)
}

func Handler() http.Handler { return promhttp.Handler() }

func ObserveBackend(family, method string, status int, d time.Duration) {
	BackendRequests.WithLabelValues(family, method, strconv.Itoa(status)).Observe(d.Seconds())
}

func ObserveRequest(route, method string, status int, d time.Duration) {
	ConsoleRequests.WithLabelValues(route, method, strconv.Itoa(status)).Observe(d.Seconds())
}

func CacheHit(family string)  { CacheLookups.WithLabelValues(family, "hit").Inc() }
func CacheMiss(family string) { CacheLookups.WithLabelValues(family, "miss").Inc() }

func Invalidated(family string, n int) {
	CacheInvalidations.WithLabelValues(family).Add(float64(n))
}

func Mutation(action string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	Mutations.WithLabelValues(action, outcome).Inc()
}
