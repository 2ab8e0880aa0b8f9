package metrics

import (
	"testing"

	"github.com/Wyydra/callroom/internal/core/domain"
	"github.com/Wyydra/callroom/internal/core/port"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

var _ port.Metrics = (*Prometheus)(nil)

func TestPrometheusRendererAccounting(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPrometheus(reg)

	m.RendererRequested()
	m.RendererRequested()
	m.RendererAttached()
	m.RendererAttached()
	m.RendererReleased()
	m.StaleRendererDiscarded()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.renderersRequested))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.renderersAttached))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.renderersReleased))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.renderersStale))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.renderersLive))
}

func TestPrometheusRoomMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPrometheus(reg)

	m.RoomsActive(3)
	m.DominantChanged(domain.SelectorPinned)
	m.DominantChanged(domain.SelectorAutoSelected)
	m.DominantChanged(domain.SelectorAutoSelected)
	m.SnapshotBuilt(4)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.roomsActive))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.dominantChanges.WithLabelValues("pinned")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.dominantChanges.WithLabelValues("auto_selected")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.snapshotSize))

	count, err := testutil.GatherAndCount(reg, "callroom_rooms_active")
	assert.NoError(t, err)
	assert.Equal(t, 1, count)
}
