package pion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Wyydra/callroom/internal/core/domain"
	"github.com/Wyydra/callroom/internal/core/port"
	"github.com/pion/rtcp"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

var (
	ErrTransportClosed   = errors.New("transport closed")
	ErrUnsupportedSignal = errors.New("unsupported signal type")
)

const gatherTimeout = 500 * time.Millisecond

// Transport receives every video track of a call over one PeerConnection.
// The media server names each track after its endpoint id.
type Transport struct {
	pc *webrtc.PeerConnection

	mu        sync.Mutex
	closed    bool
	tracks    map[domain.EndpointID]*webrtc.TrackRemote
	attached  map[domain.EndpointID]*Renderer
	pending   map[domain.EndpointID][]pendingView
	fullSize  domain.EndpointID
	requested []domain.RequestedVideo
	onSignal  func(signal domain.Signal)
}

type pendingView struct {
	mode domain.VideoMode
	done func(port.Renderer)
}

func NewTransport() (*Transport, error) {
	m := &webrtc.MediaEngine{}
	if err := m.RegisterDefaultCodecs(); err != nil {
		return nil, fmt.Errorf("register codecs: %w", err)
	}
	api := webrtc.NewAPI(webrtc.WithMediaEngine(m))

	pc, err := api.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		return nil, fmt.Errorf("new peer connection: %w", err)
	}

	t := &Transport{
		pc:       pc,
		tracks:   make(map[domain.EndpointID]*webrtc.TrackRemote),
		attached: make(map[domain.EndpointID]*Renderer),
		pending:  make(map[domain.EndpointID][]pendingView),
	}

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		candidateJSON, err := json.Marshal(c.ToJSON())
		if err != nil {
			log.Error().Err(err).Msg("Failed to marshal candidate")
			return
		}
		t.emit(domain.NewSignal(domain.SignalCandidate, string(candidateJSON)))
	})

	pc.OnTrack(t.onTrack)

	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		log.Debug().Str("state", s.String()).Msg("Peer connection state changed")
	})

	return t, nil
}

func (t *Transport) SetSignalCallback(cb func(signal domain.Signal)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSignal = cb
}

func (t *Transport) emit(signal domain.Signal) {
	t.mu.Lock()
	cb := t.onSignal
	t.mu.Unlock()

	if cb != nil {
		cb(signal)
	}
}

// HandleSignal applies an offer or candidate from the media server. Offers
// are answered.
func (t *Transport) HandleSignal(ctx context.Context, signal domain.Signal) (*domain.Signal, error) {
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return nil, ErrTransportClosed
	}

	switch signal.Type {
	case domain.SignalOffer:
		offer := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: signal.Payload}
		if err := t.pc.SetRemoteDescription(offer); err != nil {
			return nil, err
		}
		answer, err := t.pc.CreateAnswer(nil)
		if err != nil {
			return nil, err
		}
		if err := t.pc.SetLocalDescription(answer); err != nil {
			return nil, err
		}

		// Wait briefly for gathering so most candidates ride in the answer
		ctx, cancel := context.WithTimeout(ctx, gatherTimeout)
		defer cancel()
		select {
		case <-webrtc.GatheringCompletePromise(t.pc):
		case <-ctx.Done():
		}

		reply := domain.NewSignal(domain.SignalAnswer, t.pc.LocalDescription().SDP)
		return &reply, nil

	case domain.SignalCandidate:
		var candidate webrtc.ICECandidateInit
		if err := json.Unmarshal([]byte(signal.Payload), &candidate); err != nil {
			return nil, err
		}
		return nil, t.pc.AddICECandidate(candidate)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedSignal, signal.Type)
}

func (t *Transport) onTrack(remoteTrack *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
	if remoteTrack.Kind() != webrtc.RTPCodecTypeVideo {
		return
	}
	endpoint := domain.EndpointID(remoteTrack.ID())
	log.Debug().Str("endpoint_id", endpoint.String()).Msg("Received remote video track")

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.tracks[endpoint] = remoteTrack
	waiting := t.pending[endpoint]
	delete(t.pending, endpoint)
	fullSize := t.fullSize == endpoint
	t.mu.Unlock()

	go t.pump(endpoint, remoteTrack)
	if fullSize {
		t.requestKeyframe(endpoint)
	}
	for _, v := range waiting {
		v.done(t.attach(endpoint, v.mode))
	}
}

// pump drains the track and feeds the attached renderer, if any.
func (t *Transport) pump(endpoint domain.EndpointID, track *webrtc.TrackRemote) {
	buf := make([]byte, 1500)
	for {
		n, _, err := track.Read(buf)
		if err != nil {
			break
		}
		t.mu.Lock()
		r := t.attached[endpoint]
		t.mu.Unlock()
		if r != nil {
			r.consume(n)
		}
	}

	t.mu.Lock()
	if t.tracks[endpoint] == track {
		delete(t.tracks, endpoint)
	}
	t.mu.Unlock()
	log.Debug().Str("endpoint_id", endpoint.String()).Msg("Remote video track ended")
}

func (t *Transport) attach(endpoint domain.EndpointID, mode domain.VideoMode) port.Renderer {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	r := &Renderer{transport: t, endpointID: endpoint, mode: mode}
	// a newer view replaces an older one; only one consumer per track
	t.attached[endpoint] = r
	return r
}

func (t *Transport) MakeVideoView(endpointID domain.EndpointID, mode domain.VideoMode, done func(port.Renderer)) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		go done(nil)
		return
	}
	if _, ok := t.tracks[endpointID]; !ok {
		t.pending[endpointID] = append(t.pending[endpointID], pendingView{mode: mode, done: done})
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()

	go done(t.attach(endpointID, mode))
}

// SetFullSizeVideo asks the sender of endpointID for a keyframe so the
// full-size view starts without waiting for the next one.
func (t *Transport) SetFullSizeVideo(endpointID domain.EndpointID) {
	t.mu.Lock()
	t.fullSize = endpointID
	t.mu.Unlock()

	if endpointID != "" {
		t.requestKeyframe(endpointID)
	}
}

func (t *Transport) requestKeyframe(endpointID domain.EndpointID) {
	t.mu.Lock()
	track, ok := t.tracks[endpointID]
	t.mu.Unlock()
	if !ok {
		return
	}

	if err := t.pc.WriteRTCP([]rtcp.Packet{
		&rtcp.PictureLossIndication{MediaSSRC: uint32(track.SSRC())},
	}); err != nil {
		log.Debug().Err(err).Str("endpoint_id", endpointID.String()).Msg("Failed to send PLI")
	}
}

func (t *Transport) SetRequestedVideoList(items []domain.RequestedVideo) {
	t.mu.Lock()
	t.requested = append(t.requested[:0], items...)
	t.mu.Unlock()

	for _, item := range items {
		if item.MaxQuality == domain.QualityFull {
			t.requestKeyframe(item.EndpointID)
		}
	}
}

func (t *Transport) FullSize() domain.EndpointID {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fullSize
}

// Close fails every waiting view and closes the PeerConnection.
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	pending := t.pending
	t.pending = make(map[domain.EndpointID][]pendingView)
	clear(t.attached)
	t.mu.Unlock()

	for _, views := range pending {
		for _, v := range views {
			v.done(nil)
		}
	}
	return t.pc.Close()
}

// Renderer counts the RTP traffic of one attached track.
type Renderer struct {
	transport  *Transport
	endpointID domain.EndpointID
	mode       domain.VideoMode

	packets  atomic.Uint64
	bytes    atomic.Uint64
	released atomic.Bool
}

func (r *Renderer) consume(n int) {
	r.packets.Add(1)
	r.bytes.Add(uint64(n))
}

func (r *Renderer) EndpointID() domain.EndpointID {
	return r.endpointID
}

func (r *Renderer) Mode() domain.VideoMode {
	return r.mode
}

func (r *Renderer) Packets() uint64 {
	return r.packets.Load()
}

func (r *Renderer) Bytes() uint64 {
	return r.bytes.Load()
}

func (r *Renderer) Release() error {
	if !r.released.CompareAndSwap(false, true) {
		return nil
	}
	t := r.transport
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.attached[r.endpointID] == r {
		delete(t.attached, r.endpointID)
	}
	return nil
}
