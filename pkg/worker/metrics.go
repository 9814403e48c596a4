package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	claimsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pinball_worker_claims_total",
		Help: "Number of runnable job tokens successfully claimed.",
	})
	completionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pinball_worker_completions_total",
		Help: "Number of jobs completed successfully (including disabled jobs marked success).",
	})
	failuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pinball_worker_failures_total",
		Help: "Number of job executions that ended in failure, including aborts.",
	})
	leaseExtensionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pinball_worker_lease_extensions_total",
		Help: "Number of successful ownership lease extensions.",
	})
)
