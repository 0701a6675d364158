package services

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"txmon/models"
)

// Polling cycle outcomes used as metric labels.
const (
	cycleOK    = "ok"
	cycleIdle  = "idle"
	cycleError = "error"
	cycleFatal = "fatal"
)

// Metrics exports monitor activity to Prometheus. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	portState    *prometheus.GaugeVec
	txErrorDelta *prometheus.GaugeVec
	cycles       *prometheus.CounterVec
	cycleSeconds prometheus.Histogram
	commands     *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		portState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "txmon",
			Name:      "port_state",
			Help:      "Last published port state (0=OK, 1=NOT_OK, 2=UNKNOWN).",
		}, []string{"port"}),
		txErrorDelta: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "txmon",
			Name:      "port_tx_errors_delta",
			Help:      "TX errors counted during the last polling period.",
		}, []string{"port"}),
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "txmon",
			Name:      "poll_cycles_total",
			Help:      "Polling cycles by result.",
		}, []string{"result"}),
		cycleSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "txmon",
			Name:      "poll_cycle_seconds",
			Help:      "Duration of polling cycles.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "txmon",
			Name:      "commands_total",
			Help:      "Reconfiguration commands by key and whether they were accepted.",
		}, []string{"key", "accepted"}),
	}
	reg.MustRegister(m.portState, m.txErrorDelta, m.cycles, m.cycleSeconds, m.commands)
	return m
}

// Publish records the state of a port.
func (m *Metrics) Publish(_ context.Context, alias string, state models.PortState) error {
	if m == nil {
		return nil
	}
	m.portState.WithLabelValues(alias).Set(state.Value())
	return nil
}

func (m *Metrics) ObserveDelta(alias string, delta uint64) {
	if m == nil {
		return
	}
	m.txErrorDelta.WithLabelValues(alias).Set(float64(delta))
}

func (m *Metrics) ObserveCycle(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.cycles.WithLabelValues(result).Inc()
	m.cycleSeconds.Observe(d.Seconds())
}

func (m *Metrics) ObserveCommand(key string, accepted bool) {
	if m == nil {
		return
	}
	if key != models.KeyPollingPeriod && key != models.KeyThreshold {
		key = "other"
	}
	m.commands.WithLabelValues(key, strconv.FormatBool(accepted)).Inc()
}
