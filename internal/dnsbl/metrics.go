package dnsbl

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	checksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relaycheck_checks_total",
			Help: "Total number of reputation checks by result (junk, clean, unknown)",
		},
		[]string{"result"},
	)

	cacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relaycheck_cache_hits_total",
			Help: "Number of checks answered from the verdict cache",
		},
	)

	lookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relaycheck_lookups_total",
			Help: "DNSBL protocol lookups by zone and outcome (listed, clean, failed)",
		},
		[]string{"zone", "outcome"},
	)
)
