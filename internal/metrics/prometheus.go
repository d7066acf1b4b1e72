package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder собирает метрики конвейера. Nil-Recorder ничего не делает.
type Recorder struct {
	windows  *prometheus.CounterVec
	duration prometheus.Histogram
	signals  *prometheus.CounterVec
}

// New регистрирует метрики в reg.
func New(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		windows: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wavebt_window_evaluations_total",
				Help: "Total number of rolling windows evaluated",
			},
			[]string{"result"},
		),
		duration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "wavebt_window_duration_seconds",
				Help:    "Duration of a single window evaluation in seconds",
				Buckets: prometheus.ExponentialBuckets(1e-5, 4, 10),
			},
		),
		signals: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wavebt_signals_total",
				Help: "Total number of entry/exit flags raised",
			},
			[]string{"side"},
		),
	}
}

// ObserveWindow записывает результат одного окна.
func (r *Recorder) ObserveWindow(took time.Duration, err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "nan"
	}
	r.windows.WithLabelValues(result).Inc()
	if took > 0 {
		r.duration.Observe(took.Seconds())
	}
}

// RecordSignals добавляет n сигналов стороны side ("enter" / "exit").
func (r *Recorder) RecordSignals(side string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.signals.WithLabelValues(side).Add(float64(n))
}
