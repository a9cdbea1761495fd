package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Métricas Prometheus del ciclo de vida. Van en un paquete standalone para
// evitar ciclos de import entre el coordinador y las capas HTTP/eventos.

var (
	IngestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dataset_ingests_total",
		Help: "Ingestas por resultado (accepted|rolled_back|failed)",
	}, []string{"outcome"})

	EventsConsumedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dataset_events_consumed_total",
		Help: "Eventos consumidos por topic y resultado (applied|noop|malformed|conflict|error)",
	}, []string{"topic", "outcome"})

	ActivationSwapsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dataset_activation_swaps_total",
		Help: "Cambios de versión activa (ActivateExclusive efectivos)",
	})

	ConflictingVerdictsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dataset_conflicting_verdicts_total",
		Help: "Veredictos lógicamente imposibles, requieren atención de operador",
	})

	StoreInconsistenciesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dataset_store_inconsistencies_total",
		Help: "Lecturas donde el catálogo tiene la fila pero el store perdió el payload",
	})

	StagerEntries = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dataset_stager_entries",
		Help: "Payloads retenidos en el stager en memoria",
	})
)

// RegisterLifecycle registra las métricas en el registry dado (o el default).
func RegisterLifecycle(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	collectors := []prometheus.Collector{
		IngestsTotal,
		EventsConsumedTotal,
		ActivationSwapsTotal,
		ConflictingVerdictsTotal,
		StoreInconsistenciesTotal,
		StagerEntries,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
