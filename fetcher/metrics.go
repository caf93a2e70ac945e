package fetcher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pagesFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "splatctl_pages_fetched_total",
		Help: "Listing pages fetched by operation",
	}, []string{"op"})

	pageFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "splatctl_page_failures_total",
		Help: "Listing page requests that failed, by operation",
	}, []string{"op"})

	recordsCollected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "splatctl_records_collected_total",
		Help: "Records kept after merging, by operation",
	}, []string{"op"})

	overlapTrims = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "splatctl_overlap_trims_total",
		Help: "Pages whose leading rows overlapped rows already collected",
	}, []string{"op"})
)
