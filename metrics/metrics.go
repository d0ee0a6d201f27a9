// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	IssuesCreatedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "civictrack_issues_created_total",
		Help: "Issues reported, by category",
	}, []string{"category"})
	IssueQueriesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "civictrack_issue_queries_total",
		Help: "Proximity queries executed against the store",
	})
	IssueQueryResults = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "civictrack_issue_query_results",
		Help:    "Number of issues returned per proximity query",
		Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250},
	})
	FlagsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "civictrack_issue_flags_total",
		Help: "Flag attempts by outcome",
	}, []string{"result"})
	IssuesHiddenTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "civictrack_issues_hidden_total",
		Help: "Issues hidden after reaching the flag threshold",
	})
	StatusChangesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "civictrack_status_changes_total",
		Help: "Status transitions, by target status",
	}, []string{"status"})
	RateLimitedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "civictrack_rate_limited_total",
		Help: "Requests rejected by the per-identity rate limiter",
	})
	RequestDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "civictrack_http_request_duration_ms",
		Help:    "HTTP request duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	}, []string{"method", "route", "status"})
)

func init() {
	prometheus.MustRegister(IssuesCreatedTotal)
	prometheus.MustRegister(IssueQueriesTotal)
	prometheus.MustRegister(IssueQueryResults)
	prometheus.MustRegister(FlagsTotal)
	prometheus.MustRegister(IssuesHiddenTotal)
	prometheus.MustRegister(StatusChangesTotal)
	prometheus.MustRegister(RateLimitedTotal)
	prometheus.MustRegister(RequestDurationMs)
}

// Handler serves every registered collector for Prometheus scraping.
func Handler() http.Handler { return promhttp.Handler() }
