package generation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	activeGenerations = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chat_generations_active",
		Help: "Number of in-flight generations across all conversations.",
	})

	fragmentsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_generation_fragments_total",
		Help: "Total streamed fragments received from the generation service.",
	})

	outcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_generation_outcomes_total",
		Help: "Terminal generation outcomes by classification.",
	}, []string{"outcome"})
)
