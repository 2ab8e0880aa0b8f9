package service

import (
	"github.com/Wyydra/callroom/internal/core/domain"
	"github.com/Wyydra/callroom/internal/core/port"
	"github.com/rs/zerolog/log"
)

// Source is one tracked remote endpoint with its renderer.
type Source struct {
	EndpointID domain.EndpointID
	PeerID     domain.PeerID
	Mode       domain.VideoMode
	Renderer   port.Renderer
}

type rendererRequest struct {
	id     domain.RequestID
	peerID domain.PeerID
	mode   domain.VideoMode
}

// Poster hands fn back to the goroutine that owns a tracker. When that
// goroutine has already exited it runs orphan instead, on any goroutine.
type Poster func(fn, orphan func())

// SourceTracker requests renderers for active endpoints and releases them
// when the endpoints go away. It is the only owner of renderer handles and
// is not safe for concurrent use; post must hand completions back to the
// goroutine that owns the tracker.
type SourceTracker struct {
	transport port.CallTransport
	metrics   port.Metrics
	post      Poster

	requested map[domain.EndpointID]rendererRequest
	tracked   map[domain.EndpointID]*Source
}

// NewSourceTracker builds a tracker. A nil post runs completions inline,
// which is only correct when the transport calls back on the caller's
// goroutine.
func NewSourceTracker(transport port.CallTransport, metrics port.Metrics, post Poster) *SourceTracker {
	if post == nil {
		post = func(fn, _ func()) { fn() }
	}
	if metrics == nil {
		metrics = port.NopMetrics{}
	}
	return &SourceTracker{
		transport: transport,
		metrics:   metrics,
		post:      post,
		requested: make(map[domain.EndpointID]rendererRequest),
		tracked:   make(map[domain.EndpointID]*Source),
	}
}

// Reconcile brings tracked sources in line with the active endpoint set and
// reports whether the set of sources with a renderer changed. Endpoints no
// participant owns are treated as inactive. A repeated peer counts only with
// its last record.
func (t *SourceTracker) Reconcile(active domain.EndpointSet, participants []domain.Participant) bool {
	before := t.Active()

	valid := domain.NewEndpointSet()
	for _, p := range dedupeParticipants(participants) {
		for _, endpoint := range [...]domain.EndpointID{p.VideoEndpointID, p.PresentationEndpointID} {
			if !active.Has(endpoint) {
				continue
			}
			valid[endpoint] = struct{}{}
			mode, _ := p.ModeOf(endpoint)
			if req, ok := t.requested[endpoint]; ok {
				if req.peerID == p.PeerID && req.mode == mode {
					continue
				}
				// the endpoint changed hands; its renderer belongs to the old owner
				t.drop(endpoint)
			}
			t.request(p.PeerID, endpoint, mode)
		}
	}

	for endpoint := range t.requested {
		if !valid.Has(endpoint) {
			t.drop(endpoint)
		}
	}

	return !before.Equal(t.Active())
}

// drop forgets the request for endpoint and releases its renderer, if any.
func (t *SourceTracker) drop(endpoint domain.EndpointID) {
	delete(t.requested, endpoint)
	if src, ok := t.tracked[endpoint]; ok {
		delete(t.tracked, endpoint)
		t.metrics.RendererReleased()
		t.release(src.Renderer)
	}
}

func (t *SourceTracker) request(peerID domain.PeerID, endpoint domain.EndpointID, mode domain.VideoMode) {
	req := rendererRequest{id: domain.NewRequestID(), peerID: peerID, mode: mode}
	t.requested[endpoint] = req
	t.metrics.RendererRequested()

	log.Debug().
		Str("endpoint_id", endpoint.String()).
		Str("peer_id", peerID.String()).
		Str("request_id", req.id.String()).
		Msg("Requesting renderer")

	t.transport.MakeVideoView(endpoint, mode, func(r port.Renderer) {
		t.post(func() {
			t.attach(req.id, endpoint, r)
		}, func() {
			if r != nil {
				t.metrics.StaleRendererDiscarded()
				t.release(r)
			}
		})
	})
}

// attach stores a renderer that arrived for a request. Renderers for
// requests that are no longer current are released and dropped.
func (t *SourceTracker) attach(id domain.RequestID, endpoint domain.EndpointID, r port.Renderer) bool {
	req, ok := t.requested[endpoint]
	if !ok || req.id != id {
		if r != nil {
			t.metrics.StaleRendererDiscarded()
			log.Debug().Str("endpoint_id", endpoint.String()).Msg("Discarding stale renderer")
			t.release(r)
		}
		return false
	}
	if r == nil {
		// stays requested: the render layer shows a placeholder
		log.Warn().Str("endpoint_id", endpoint.String()).Msg("Transport returned no renderer")
		return false
	}
	t.tracked[endpoint] = &Source{
		EndpointID: endpoint,
		PeerID:     req.peerID,
		Mode:       req.mode,
		Renderer:   r,
	}
	t.metrics.RendererAttached()
	return true
}

func (t *SourceTracker) release(r port.Renderer) {
	if err := r.Release(); err != nil {
		log.Warn().Err(err).Str("endpoint_id", r.EndpointID().String()).Msg("Failed to release renderer")
	}
}

// Active returns the endpoints that currently have a renderer.
func (t *SourceTracker) Active() domain.EndpointSet {
	s := make(domain.EndpointSet, len(t.tracked))
	for endpoint := range t.tracked {
		s[endpoint] = struct{}{}
	}
	return s
}

// Renderer looks up the renderer of an endpoint. The caller does not own it.
func (t *SourceTracker) Renderer(endpoint domain.EndpointID) (port.Renderer, bool) {
	src, ok := t.tracked[endpoint]
	if !ok {
		return nil, false
	}
	return src.Renderer, true
}

// Requested reports whether a renderer was asked for and not yet dropped.
func (t *SourceTracker) Requested(endpoint domain.EndpointID) bool {
	_, ok := t.requested[endpoint]
	return ok
}

// Close releases every renderer. Renderers that arrive later are discarded.
func (t *SourceTracker) Close() {
	for endpoint := range t.requested {
		t.drop(endpoint)
	}
}
