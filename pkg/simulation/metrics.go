package simulation

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// FaultsimDesignTotal counts design_component calls by outcome
	FaultsimDesignTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faultsim_design_total",
			Help: "Total number of component design calls",
		},
		[]string{"outcome"},
	)

	// FaultsimSimulationTotal counts simulate_failure calls
	FaultsimSimulationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faultsim_simulation_total",
			Help: "Total number of failure simulations",
		},
		[]string{"simulation_type", "outcome"},
	)

	// FaultsimSimulationSeconds tracks simulation latency
	FaultsimSimulationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "faultsim_simulation_seconds",
			Help:    "Time spent running a failure simulation",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 10),
		},
		[]string{"simulation_type"},
	)

	// FaultsimHealthScore is the system health score of the latest simulation
	FaultsimHealthScore = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "faultsim_health_score",
			Help: "System health score from the latest simulation in a namespace",
		},
		[]string{"namespace"},
	)

	// FaultsimComponents tracks topology size
	FaultsimComponents = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "faultsim_components",
			Help: "Number of components in a namespace topology",
		},
		[]string{"namespace"},
	)
)

func init() {
	prometheus.MustRegister(FaultsimDesignTotal)
	prometheus.MustRegister(FaultsimSimulationTotal)
	prometheus.MustRegister(FaultsimSimulationSeconds)
	prometheus.MustRegister(FaultsimHealthScore)
	prometheus.MustRegister(FaultsimComponents)
}
