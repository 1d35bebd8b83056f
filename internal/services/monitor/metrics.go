package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mProbes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sitewatch_probes_total", Help: "Probes run, by result",
	}, []string{"result"})

	mProbeLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sitewatch_probe_duration_seconds",
		Help:    "Response time of reachable probes",
		Buckets: prometheus.DefBuckets,
	})

	mStatusChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sitewatch_status_changes_total", Help: "Site status transitions",
	}, []string{"from", "to"})

	mErrorsLogged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sitewatch_site_errors_logged_total", Help: "Connection errors persisted",
	})

	mRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sitewatch_check_requests_total", Help: "Check requests consumed from kafka",
	}, []string{"result"})
)
