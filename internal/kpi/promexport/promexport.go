// Package promexport exposes the KPI engine's OEE and MTTR/MTBF
// snapshots as Prometheus gauges, letting an external scraper track
// plant efficiency the same way it would any other service's metrics.
package promexport

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/krugerplant/linesim/internal/eventsink"
	"github.com/krugerplant/linesim/internal/kpi"
)

// Exporter owns the Prometheus gauge vectors the scheduler updates after
// every KPI computation.
type Exporter struct {
	oee        *prometheus.GaugeVec
	carsProd   *prometheus.GaugeVec
	mttr       *prometheus.GaugeVec
	mtbf       *prometheus.GaugeVec
}

// New creates an Exporter and registers its gauges with reg.
func New(reg prometheus.Registerer) *Exporter {
	e := &Exporter{
		oee: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "plantsim",
			Name:      "oee_percent",
			Help:      "Overall Equipment Effectiveness percentage.",
		}, []string{"scope", "key"}),
		carsProd: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "plantsim",
			Name:      "cars_produced_total",
			Help:      "Cars counted as produced in the current shift window.",
		}, []string{"scope", "key"}),
		mttr: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "plantsim",
			Name:      "mttr_minutes",
			Help:      "Mean time to repair, in minutes.",
		}, []string{"scope", "key"}),
		mtbf: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "plantsim",
			Name:      "mtbf_minutes",
			Help:      "Mean time between failures, in minutes.",
		}, []string{"scope", "key"}),
	}
	reg.MustRegister(e.oee, e.carsProd, e.mttr, e.mtbf)
	return e
}

// ObserveOEE records an OEE snapshot.
func (e *Exporter) ObserveOEE(r kpi.OEEResult) {
	e.oee.WithLabelValues(r.Scope, r.Key).Set(r.OEE)
	e.carsProd.WithLabelValues(r.Scope, r.Key).Set(float64(r.CarsProduced))
}

// ObserveMTTRMTBF records an MTTR/MTBF snapshot.
func (e *Exporter) ObserveMTTRMTBF(r kpi.MTTRMTBFResult) {
	e.mttr.WithLabelValues(r.Scope, r.Key).Set(r.MTTR)
	e.mtbf.WithLabelValues(r.Scope, r.Key).Set(r.MTBF)
}

// Emit implements eventsink.Sink, letting an Exporter join the same
// Multi fan-out as the logger and Kafka sinks instead of being wired as
// a special case.
func (e *Exporter) Emit(ev eventsink.Event) {
	switch ev.Kind {
	case eventsink.KindOEECalculated, eventsink.KindOEEShiftEnd:
		if r, ok := ev.Payload.(kpi.OEEResult); ok {
			e.ObserveOEE(r)
		}
	case eventsink.KindMTTRMTBFCalculated:
		if r, ok := ev.Payload.(kpi.MTTRMTBFResult); ok {
			e.ObserveMTTRMTBF(r)
		}
	}
}
