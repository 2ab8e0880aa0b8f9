package service

import (
	"context"
	"sync"

	"github.com/Wyydra/callroom/internal/core/domain"
	"github.com/Wyydra/callroom/internal/core/port"
)

type fakeRenderer struct {
	endpoint domain.EndpointID

	mu       sync.Mutex
	released int
}

func (r *fakeRenderer) EndpointID() domain.EndpointID {
	return r.endpoint
}

func (r *fakeRenderer) Release() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.released++
	return nil
}

func (r *fakeRenderer) Released() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.released
}

type viewRequest struct {
	endpoint domain.EndpointID
	mode     domain.VideoMode
	done     func(port.Renderer)
}

// fakeTransport holds every MakeVideoView call until the test completes it.
type fakeTransport struct {
	mu        sync.Mutex
	views     []viewRequest
	fullSize  []domain.EndpointID
	requested [][]domain.RequestedVideo
}

func (t *fakeTransport) MakeVideoView(endpoint domain.EndpointID, mode domain.VideoMode, done func(port.Renderer)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.views = append(t.views, viewRequest{endpoint: endpoint, mode: mode, done: done})
}

func (t *fakeTransport) SetFullSizeVideo(endpoint domain.EndpointID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fullSize = append(t.fullSize, endpoint)
}

func (t *fakeTransport) SetRequestedVideoList(items []domain.RequestedVideo) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.requested = append(t.requested, items)
}

func (t *fakeTransport) Views() []viewRequest {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]viewRequest(nil), t.views...)
}

// complete answers the i-th view request with a fresh renderer.
func (t *fakeTransport) complete(i int) *fakeRenderer {
	v := t.Views()[i]
	r := &fakeRenderer{endpoint: v.endpoint}
	v.done(r)
	return r
}

type fakeMetrics struct {
	port.NopMetrics

	mu                                   sync.Mutex
	requested, attached, released, stale int
}

func (m *fakeMetrics) RendererRequested() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requested++
}

func (m *fakeMetrics) RendererAttached() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attached++
}

func (m *fakeMetrics) RendererReleased() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.released++
}

func (m *fakeMetrics) StaleRendererDiscarded() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stale++
}

type fakeGateway struct {
	mu      sync.Mutex
	updates []domain.RenderUpdate
}

func (g *fakeGateway) PublishRender(ctx context.Context, update domain.RenderUpdate) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.updates = append(g.updates, update)
	return nil
}

func (g *fakeGateway) Updates() []domain.RenderUpdate {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]domain.RenderUpdate(nil), g.updates...)
}

func (g *fakeGateway) Last() (domain.RenderUpdate, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.updates) == 0 {
		return domain.RenderUpdate{}, false
	}
	return g.updates[len(g.updates)-1], true
}

func participant(id domain.PeerID, activity int32, video, screen domain.EndpointID) domain.Participant {
	return domain.Participant{
		PeerID:                 id,
		ActivityTimestamp:      activity,
		JoinTimestamp:          activity,
		VideoEndpointID:        video,
		PresentationEndpointID: screen,
		JoinedVideo:            true,
	}
}

func peerIDs(snapshot []domain.ParticipantViewModel) []domain.PeerID {
	ids := make([]domain.PeerID, 0, len(snapshot))
	for _, vm := range snapshot {
		ids = append(ids, vm.PeerID)
	}
	return ids
}
