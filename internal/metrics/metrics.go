// Package metrics exposes the service's prometheus counters.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "casemanager"

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route and status code",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"})

	recordsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "records_created_total",
		Help:      "Rows created by kind",
	}, []string{"kind"}) // kind=client|case|document|event|invoice|time_entry

	numberingConflictsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "numbering_conflicts_total",
		Help:      "Sequence allocations rejected because another writer took the same number",
	}, []string{"kind"})

	bootstrapTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_bootstrap_total",
		Help:      "Session bootstraps by outcome",
	}, []string{"outcome"}) // outcome=ok|anonymous|error|timeout

	profilesProvisionedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "profiles_provisioned_total",
		Help:      "Default profiles created because none existed",
	})

	rateLimitExceededTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ratelimit_exceeded_total",
		Help:      "Requests rejected by the rate limiter",
	})

	cacheLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_lookups_total",
		Help:      "RPC result cache lookups by result",
	}, []string{"result"}) // result=hit|miss
)

func ObserveHTTPRequest(method, route string, status int, seconds float64) {
	if route == "" {
		route = "unmatched"
	}
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(route).Observe(seconds)
}

func RecordCreated(kind string) {
	recordsCreatedTotal.WithLabelValues(kind).Inc()
}

func RecordNumberingConflict(kind string) {
	numberingConflictsTotal.WithLabelValues(kind).Inc()
}

func RecordBootstrap(outcome string) {
	bootstrapTotal.WithLabelValues(outcome).Inc()
}

func RecordProfileProvisioned() {
	profilesProvisionedTotal.Inc()
}

func RecordRateLimited() {
	rateLimitExceededTotal.Inc()
}

func RecordCacheLookup(hit bool) {
	if hit {
		cacheLookupsTotal.WithLabelValues("hit").Inc()
		return
	}
	cacheLookupsTotal.WithLabelValues("miss").Inc()
}
