package metrics

import (
	"github.com/Wyydra/callroom/internal/core/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus implements port.Metrics.
type Prometheus struct {
	snapshotSize       prometheus.Histogram
	dominantChanges    *prometheus.CounterVec
	renderersRequested prometheus.Counter
	renderersAttached  prometheus.Counter
	renderersReleased  prometheus.Counter
	renderersStale     prometheus.Counter
	renderersLive      prometheus.Gauge
	roomsActive        prometheus.Gauge
}

// NewPrometheus registers the call room metrics with reg.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	f := promauto.With(reg)
	return &Prometheus{
		snapshotSize: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "callroom_snapshot_participants",
				Help:    "Number of participant rows in each built snapshot",
				Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
			},
		),
		dominantChanges: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "callroom_dominant_changes_total",
				Help: "Total number of dominant video elections by resulting selector state",
			},
			[]string{"state"},
		),
		renderersRequested: f.NewCounter(
			prometheus.CounterOpts{
				Name: "callroom_renderers_requested_total",
				Help: "Total number of renderer requests sent to the transport",
			},
		),
		renderersAttached: f.NewCounter(
			prometheus.CounterOpts{
				Name: "callroom_renderers_attached_total",
				Help: "Total number of renderers attached to an active endpoint",
			},
		),
		renderersReleased: f.NewCounter(
			prometheus.CounterOpts{
				Name: "callroom_renderers_released_total",
				Help: "Total number of attached renderers released",
			},
		),
		renderersStale: f.NewCounter(
			prometheus.CounterOpts{
				Name: "callroom_renderers_stale_total",
				Help: "Total number of renderers discarded because their endpoint went inactive",
			},
		),
		renderersLive: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "callroom_renderers_live",
				Help: "Renderers currently attached",
			},
		),
		roomsActive: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "callroom_rooms_active",
				Help: "Current number of call rooms",
			},
		),
	}
}

func (m *Prometheus) SnapshotBuilt(participants int) {
	m.snapshotSize.Observe(float64(participants))
}

func (m *Prometheus) DominantChanged(state domain.SelectorState) {
	m.dominantChanges.WithLabelValues(string(state)).Inc()
}

func (m *Prometheus) RendererRequested() {
	m.renderersRequested.Inc()
}

func (m *Prometheus) RendererAttached() {
	m.renderersAttached.Inc()
	m.renderersLive.Inc()
}

func (m *Prometheus) RendererReleased() {
	m.renderersReleased.Inc()
	m.renderersLive.Dec()
}

func (m *Prometheus) StaleRendererDiscarded() {
	m.renderersStale.Inc()
}

func (m *Prometheus) RoomsActive(n int) {
	m.roomsActive.Set(float64(n))
}
