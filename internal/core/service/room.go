package service

import (
	"context"
	"errors"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/Wyydra/callroom/internal/core/domain"
	"github.com/Wyydra/callroom/internal/core/port"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var ErrRoomStopped = errors.New("call room stopped")

const (
	eventBuffer    = 64
	publishTimeout = 2 * time.Second
)

type RoomOptions struct {
	LocalPeerID domain.PeerID
	FocusHold   time.Duration
	Metrics     port.Metrics
	Now         func() time.Time
}

// CallRoomState is the authoritative state of one room. Only the room
// goroutine reads or writes it.
type CallRoomState struct {
	Call          domain.CallUpdate
	Sources       domain.EndpointSet
	Snapshot      []domain.ParticipantViewModel
	Dominant      *domain.DominantVideo
	SelectorState domain.SelectorState
	Requested     []domain.RequestedVideo
	Mode          domain.CallMode
	Version       int
	connected     bool
}

// CallRoom serializes every event of one call onto a single goroutine and
// publishes a RenderUpdate whenever the derived state changes.
type CallRoom struct {
	id        domain.RoomID
	local     domain.PeerID
	transport port.CallTransport
	gateway   port.RenderGateway
	repo      port.RenderRepository
	metrics   port.Metrics
	selector  *Selector
	tracker   *SourceTracker
	log       zerolog.Logger

	events   chan func()
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	// mu guards stopped against post
	mu      sync.Mutex
	stopped bool

	state CallRoomState
}

func NewCallRoom(id domain.RoomID, transport port.CallTransport, gateway port.RenderGateway, repo port.RenderRepository, opts RoomOptions) *CallRoom {
	metrics := opts.Metrics
	if metrics == nil {
		metrics = port.NopMetrics{}
	}
	r := &CallRoom{
		id:        id,
		local:     opts.LocalPeerID,
		transport: transport,
		gateway:   gateway,
		repo:      repo,
		metrics:   metrics,
		selector:  NewSelector(SelectorOptions{FocusHold: opts.FocusHold, Now: opts.Now}),
		log:       log.With().Str("room_id", id.String()).Logger(),
		events:    make(chan func(), eventBuffer),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
		state: CallRoomState{
			Sources:       domain.NewEndpointSet(),
			SelectorState: domain.SelectorUnselected,
			Mode:          domain.CallModeVoice,
		},
	}
	r.tracker = NewSourceTracker(transport, metrics, r.post)
	return r
}

func (r *CallRoom) ID() domain.RoomID {
	return r.id
}

// post delivers a transport completion back onto the room goroutine. It
// never blocks the caller, which may be the room goroutine itself. Once the
// room has stopped, orphan runs instead.
func (r *CallRoom) post(fn, orphan func()) {
	go func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.stopped {
			orphan()
			return
		}
		select {
		case r.events <- func() {
			fn()
			r.recompute(domain.CueNone)
		}:
		case <-r.quit:
			orphan()
		}
	}()
}

func (r *CallRoom) enqueue(fn func()) error {
	select {
	case <-r.quit:
		return ErrRoomStopped
	default:
	}
	select {
	case r.events <- fn:
		return nil
	case <-r.quit:
		return ErrRoomStopped
	}
}

// UpdateCall replaces the raw call state.
func (r *CallRoom) UpdateCall(update domain.CallUpdate) error {
	return r.enqueue(func() {
		cue := r.connectionCue(update.Network)
		r.state.Call = update
		r.recompute(cue)
	})
}

// UpdateSources replaces the set of endpoints the transport reports as
// sending video.
func (r *CallRoom) UpdateSources(endpoints []domain.EndpointID) error {
	return r.enqueue(func() {
		r.state.Sources = domain.NewEndpointSet(endpoints...)
		r.recompute(domain.CueNone)
	})
}

func (r *CallRoom) Pin(d domain.DominantVideo) error {
	return r.enqueue(func() {
		r.log.Info().Str("dominant", d.String()).Msg("Pinning video")
		r.selector.Pin(d)
		r.recompute(domain.CueNone)
	})
}

func (r *CallRoom) Unpin() error {
	return r.enqueue(func() {
		if r.selector.Unpin() {
			r.log.Info().Msg("Unpinning video")
		}
		r.recompute(domain.CueNone)
	})
}

// Render returns the latest render state.
func (r *CallRoom) Render(ctx context.Context) (domain.RenderUpdate, error) {
	reply := make(chan domain.RenderUpdate, 1)
	err := r.enqueue(func() {
		reply <- r.renderUpdate(domain.Diff{}, domain.CueNone)
	})
	if err != nil {
		return domain.RenderUpdate{}, err
	}
	select {
	case u := <-reply:
		return u, nil
	case <-ctx.Done():
		return domain.RenderUpdate{}, ctx.Err()
	case <-r.done:
		return domain.RenderUpdate{}, ErrRoomStopped
	}
}

func (r *CallRoom) Stop() {
	r.stopOnce.Do(func() {
		close(r.quit)
	})
}

// Done is closed once Run has released every resource.
func (r *CallRoom) Done() <-chan struct{} {
	return r.done
}

func (r *CallRoom) Run(ctx context.Context) {
	defer close(r.done)
	r.log.Info().Msg("Call room started")

	for {
		select {
		case <-ctx.Done():
			r.Stop()
			r.shutdown()
			return
		case <-r.quit:
			r.shutdown()
			return
		case fn := <-r.events:
			fn()
		}
	}
}

func (r *CallRoom) shutdown() {
	r.log.Info().Msg("Stopping call room. Releasing renderers.")

	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()
	// no post can send after stopped is set; run what is already queued so
	// completed renderers reach the tracker before it closes
	for drained := false; !drained; {
		select {
		case fn := <-r.events:
			fn()
		default:
			drained = true
		}
	}

	r.tracker.Close()
	if r.state.Dominant != nil {
		r.transport.SetFullSizeVideo("")
	}
	if c, ok := r.transport.(io.Closer); ok {
		if err := c.Close(); err != nil {
			r.log.Error().Err(err).Msg("Error closing transport")
		}
	}
	if r.repo != nil {
		if err := r.repo.Delete(context.Background(), r.id); err != nil {
			r.log.Error().Err(err).Msg("Error deleting render state")
		}
	}
}

func (r *CallRoom) connectionCue(network domain.NetworkState) domain.Cue {
	prev := r.state.Call.Network
	switch {
	case network == domain.NetworkConnected:
		wasConnected := r.state.connected
		r.state.connected = true
		if wasConnected && prev == domain.NetworkConnecting {
			return domain.CueReconnected
		}
	case network == domain.NetworkConnecting && prev == domain.NetworkConnected:
		return domain.CueConnecting
	}
	return domain.CueNone
}

// recompute runs the reducers in order: tracker, snapshot, selector,
// snapshot again when the election moved, then the list diff.
func (r *CallRoom) recompute(cue domain.Cue) {
	if r.stopped {
		return
	}
	st := &r.state
	call := st.Call
	participants := dedupeParticipants(call.Participants)

	r.tracker.Reconcile(st.Sources, participants)
	active := r.tracker.Active()

	in := SnapshotInput{
		Participants:     participants,
		Speaking:         call.Speaking,
		Invited:          call.Invited,
		HideWantsToSpeak: call.HideWantsToSpeak,
		LocalPeerID:      r.local,
		LocalMuted:       call.LocalMuted,
		ActiveEndpoints:  active,
		Dominant:         r.selector.Current(),
	}
	snapshot := BuildSnapshot(in)
	r.selector.Update(snapshot, active)
	dominant := r.selector.Current()
	if !domain.SameDominant(dominant, in.Dominant) {
		in.Dominant = dominant
		snapshot = BuildSnapshot(in)
	}
	r.metrics.SnapshotBuilt(len(snapshot))

	dominantChanged := !domain.SameDominant(dominant, st.Dominant)
	if dominantChanged {
		r.metrics.DominantChanged(r.selector.State())
		r.transport.SetFullSizeVideo(FullSizeEndpoint(dominant, r.local))
		ev := r.log.Info().Str("selector_state", string(r.selector.State()))
		if dominant != nil {
			ev = ev.Str("dominant", dominant.String())
		}
		ev.Msg("Dominant video changed")
	}

	requested := RequestedVideos(snapshot, dominant)
	if !slices.Equal(requested, st.Requested) {
		r.transport.SetRequestedVideoList(requested)
		st.Requested = requested
	}

	mode := callMode(participants, call.VideoEnabled, active, r.local)
	diff := Reconcile(st.Snapshot, snapshot)
	changed := !diff.Empty() ||
		dominantChanged ||
		mode != st.Mode ||
		r.selector.State() != st.SelectorState ||
		cue != domain.CueNone

	st.Snapshot = snapshot
	st.Dominant = dominant
	st.SelectorState = r.selector.State()
	st.Mode = mode
	if !changed && st.Version > 0 {
		return
	}
	st.Version++
	r.publish(r.renderUpdate(diff, cue))
}

func (r *CallRoom) renderUpdate(diff domain.Diff, cue domain.Cue) domain.RenderUpdate {
	st := &r.state
	var dominant *domain.DominantVideo
	if st.Dominant != nil {
		d := *st.Dominant
		dominant = &d
	}
	return domain.RenderUpdate{
		RoomID:        r.id,
		Version:       st.Version,
		Participants:  slices.Clone(st.Snapshot),
		Diff:          diff,
		Dominant:      dominant,
		SelectorState: st.SelectorState,
		Mode:          st.Mode,
		Cue:           cue,
	}
}

func (r *CallRoom) publish(update domain.RenderUpdate) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if r.repo != nil {
		if err := r.repo.Save(ctx, update); err != nil {
			r.log.Error().Err(err).Msg("Failed to save render state")
		}
	}
	if r.gateway != nil {
		if err := r.gateway.PublishRender(ctx, update); err != nil {
			r.log.Error().Err(err).Int("version", update.Version).Msg("Failed to publish render update")
		}
	}
}

func callMode(participants []domain.Participant, videoEnabled bool, active domain.EndpointSet, local domain.PeerID) domain.CallMode {
	for _, p := range participants {
		if local != 0 && p.PeerID == local && !p.JoinedVideo {
			return domain.CallModeVoice
		}
	}
	if videoEnabled || len(active) > 0 {
		return domain.CallModeVideo
	}
	return domain.CallModeVoice
}
