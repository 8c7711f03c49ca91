package costing

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cycleChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_recipe_cycle_checks_total",
			Help: "Recipe cycle checks by outcome (ok, cycle, error)",
		},
		[]string{"result"},
	)

	costResolutions = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_recipe_cost_resolution_seconds",
			Help:    "Time spent resolving a recipe cost, by outcome code",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"code"},
	)
)
