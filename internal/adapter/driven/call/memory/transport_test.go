package memory

import (
	"testing"
	"time"

	"github.com/Wyydra/callroom/internal/core/domain"
	"github.com/Wyydra/callroom/internal/core/port"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeView(t *testing.T, tr *Transport, endpoint domain.EndpointID) port.Renderer {
	t.Helper()
	got := make(chan port.Renderer, 1)
	tr.MakeVideoView(endpoint, domain.ModeVideo, func(r port.Renderer) {
		got <- r
	})
	select {
	case r := <-got:
		return r
	case <-time.After(time.Second):
		t.Fatal("renderer never arrived")
		return nil
	}
}

func TestTransportRendererLifecycle(t *testing.T) {
	tr := NewTransport(time.Millisecond)

	r := makeView(t, tr, "cam")
	require.NotNil(t, r)
	assert.Equal(t, domain.EndpointID("cam"), r.EndpointID())
	assert.Equal(t, 1, tr.LiveRenderers())
	assert.Equal(t, 1, tr.Made())

	require.NoError(t, r.Release())
	assert.Equal(t, 0, tr.LiveRenderers())
	assert.ErrorIs(t, r.Release(), ErrAlreadyReleased)
}

func TestTransportClosedReturnsNil(t *testing.T) {
	tr := NewTransport(0)
	require.NoError(t, tr.Close())
	assert.Nil(t, makeView(t, tr, "cam"))
	assert.Nil(t, makeView(t, NewTransport(0), ""))
}

func TestTransportRecordsRequests(t *testing.T) {
	tr := NewTransport(0)
	tr.SetFullSizeVideo("cam")
	items := []domain.RequestedVideo{{PeerID: 1, EndpointID: "cam", Mode: domain.ModeVideo, MinQuality: domain.QualityThumbnail, MaxQuality: domain.QualityFull}}
	tr.SetRequestedVideoList(items)

	assert.Equal(t, domain.EndpointID("cam"), tr.FullSize())
	assert.Equal(t, items, tr.Requested())

	items[0].MaxQuality = domain.QualityMedium
	assert.Equal(t, domain.QualityFull, tr.Requested()[0].MaxQuality, "list is copied")
}
