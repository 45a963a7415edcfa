package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Resolution paths.
const (
	PathExisting = "existing"
	PathCreated  = "created"
	PathFailed   = "failed"
)

type Metrics struct {
	commands    *prometheus.CounterVec
	resolutions *prometheus.CounterVec
	duration    prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "attendance",
			Name:      "commands_total",
			Help:      "Attendance commands by outcome.",
		}, []string{"outcome"}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "attendance",
			Name:      "serial_resolutions_total",
			Help:      "Serial number resolutions by path.",
		}, []string{"path"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "attendance",
			Name:      "command_duration_seconds",
			Help:      "Time from command receipt to the final reply.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.commands, m.resolutions, m.duration)

	return m
}

func (m *Metrics) Command(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(outcome).Inc()
	m.duration.Observe(elapsed.Seconds())
}

func (m *Metrics) Resolution(path string) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(path).Inc()
}
