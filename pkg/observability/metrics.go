package observability

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/aretw0/basiceq/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors fed by the session hooks.
type Metrics struct {
	Selections         *prometheus.CounterVec
	Saves              prometheus.Counter
	Deletes            prometheus.Counter
	GainEdits          *prometheus.CounterVec
	Transitions        prometheus.Counter
	TransitionDuration prometheus.Histogram
	Settled            prometheus.Gauge
	BackendErrors      *prometheus.CounterVec

	mu        sync.Mutex
	startedAt time.Time
}

// NewMetrics creates unregistered collectors under the given namespace.
func NewMetrics(namespace string) *Metrics {
	m := &Metrics{
		Selections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "preset_selections_total",
				Help:      "Total number of preset selections",
			},
			[]string{"preset_id"},
		),
		Saves: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "presets_saved_total",
			Help:      "Total number of presets saved",
		}),
		Deletes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "presets_deleted_total",
			Help:      "Total number of presets deleted",
		}),
		GainEdits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "gain_edits_total",
				Help:      "Total number of single band edits",
			},
			[]string{"band", "mode"},
		),
		Transitions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Total number of reconciliations that started animating bands",
		}),
		TransitionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "settle_duration_seconds",
			Help:      "Time from the first animated band until the display settled",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		Settled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "settled",
			Help:      "1 when every band shows its target value",
		}),
		BackendErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "backend_errors_total",
				Help:      "Total number of failed backend calls",
			},
			[]string{"op"},
		),
	}
	m.Settled.Set(1)
	return m
}

// Collectors returns every collector owned by m.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.Selections, m.Saves, m.Deletes, m.GainEdits,
		m.Transitions, m.TransitionDuration, m.Settled, m.BackendErrors,
	}
}

// Register adds the collectors to reg. Collectors already registered are ignored.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return err
		}
	}
	return nil
}

// MustRegister is like Register but panics on failure.
func (m *Metrics) MustRegister(reg prometheus.Registerer) {
	if err := m.Register(reg); err != nil {
		panic(err)
	}
}

// Hooks returns lifecycle hooks recording into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnPresetSelected: func(_ context.Context, e *domain.PresetEvent) {
			m.Selections.WithLabelValues(e.PresetID).Inc()
		},
		OnPresetSaved: func(context.Context, *domain.PresetEvent) {
			m.Saves.Inc()
		},
		OnPresetDeleted: func(context.Context, *domain.PresetEvent) {
			m.Deletes.Inc()
		},
		OnGainEdited: func(_ context.Context, e *domain.GainEvent) {
			mode := "animated"
			if e.Transition {
				mode = "direct"
			}
			m.GainEdits.WithLabelValues(e.Band.String(), mode).Inc()
		},
		OnTransitionStart: func(_ context.Context, e *domain.TransitionEvent) {
			m.Transitions.Inc()
			m.Settled.Set(0)
			m.mu.Lock()
			if m.startedAt.IsZero() {
				m.startedAt = e.Timestamp
			}
			m.mu.Unlock()
		},
		OnSettled: func(_ context.Context, e *domain.TransitionEvent) {
			m.Settled.Set(1)
			m.mu.Lock()
			started := m.startedAt
			m.startedAt = time.Time{}
			m.mu.Unlock()
			if !started.IsZero() {
				m.TransitionDuration.Observe(e.Timestamp.Sub(started).Seconds())
			}
		},
		OnBackendError: func(_ context.Context, e *domain.BackendErrorEvent) {
			m.BackendErrors.WithLabelValues(e.Op).Inc()
		},
	}
}
