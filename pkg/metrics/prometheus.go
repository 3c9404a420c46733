package metrics

import (
	"net/http"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "linkhook"

// PrometheusRecorder implements Recorder using Prometheus metrics
type PrometheusRecorder struct {
	transitions    *prom.CounterVec
	hookRuns       *prom.CounterVec
	scriptFailures prom.Counter
	handleErrors   prom.Counter
	rescans        prom.Counter
	signalsDropped *prom.CounterVec
	interfaces     prom.Gauge
}

// NewPrometheusRecorder creates and registers all metrics to reg
func NewPrometheusRecorder(reg prom.Registerer) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}

	pr := &PrometheusRecorder{
		transitions: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "State transitions detected by axis",
		}, []string{"axis"}),
		hookRuns: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "hook_runs_total",
			Help:      "Hook runs with at least one script by state",
		}, []string{"state"}),
		scriptFailures: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "script_failures_total",
			Help:      "Scripts exited non-zero or were killed",
		}),
		handleErrors: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "handle_errors_total",
			Help:      "Errors while handling a single interface state",
		}),
		rescans: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "rescans_total",
			Help:      "Full interface rescans",
		}),
		signalsDropped: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "signals_dropped_total",
			Help:      "Bus signals ignored by reason",
		}, []string{"reason"}),
		interfaces: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "interfaces",
			Help:      "Interfaces currently tracked",
		}),
	}

	reg.MustRegister(
		pr.transitions,
		pr.hookRuns,
		pr.scriptFailures,
		pr.handleErrors,
		pr.rescans,
		pr.signalsDropped,
		pr.interfaces,
	)

	return pr
}

func (p *PrometheusRecorder) IncTransition(axis string) { p.transitions.WithLabelValues(axis).Inc() }
func (p *PrometheusRecorder) IncHookRun(state string)   { p.hookRuns.WithLabelValues(state).Inc() }
func (p *PrometheusRecorder) AddScriptFailures(n int)   { p.scriptFailures.Add(float64(n)) }
func (p *PrometheusRecorder) IncHandleError()           { p.handleErrors.Inc() }
func (p *PrometheusRecorder) IncRescan()                { p.rescans.Inc() }
func (p *PrometheusRecorder) IncSignalDropped(reason string) {
	p.signalsDropped.WithLabelValues(reason).Inc()
}
func (p *PrometheusRecorder) SetInterfaces(n int) { p.interfaces.Set(float64(n)) }

// HTTPHandler serves metrics gathered from g
func HTTPHandler(g prom.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
