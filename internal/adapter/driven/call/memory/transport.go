package memory

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/Wyydra/callroom/internal/core/domain"
	"github.com/Wyydra/callroom/internal/core/port"
)

var ErrAlreadyReleased = errors.New("renderer already released")

// Transport is an in-process call transport. Renderers are handed out
// asynchronously after Delay, the way a real transport decodes its first
// frame.
type Transport struct {
	Delay time.Duration

	mu        sync.Mutex
	closed    bool
	fullSize  domain.EndpointID
	requested []domain.RequestedVideo
	live      map[domain.EndpointID]int
	made      int
}

func NewTransport(delay time.Duration) *Transport {
	return &Transport{
		Delay: delay,
		live:  make(map[domain.EndpointID]int),
	}
}

func (t *Transport) MakeVideoView(endpointID domain.EndpointID, mode domain.VideoMode, done func(port.Renderer)) {
	go func() {
		if t.Delay > 0 {
			time.Sleep(t.Delay)
		}

		t.mu.Lock()
		if t.closed || endpointID == "" {
			t.mu.Unlock()
			done(nil)
			return
		}
		t.live[endpointID]++
		t.made++
		t.mu.Unlock()

		done(&Renderer{transport: t, endpointID: endpointID, mode: mode})
	}()
}

func (t *Transport) SetFullSizeVideo(endpointID domain.EndpointID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fullSize = endpointID
}

func (t *Transport) SetRequestedVideoList(items []domain.RequestedVideo) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.requested = slices.Clone(items)
}

func (t *Transport) FullSize() domain.EndpointID {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fullSize
}

func (t *Transport) Requested() []domain.RequestedVideo {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.requested)
}

// LiveRenderers counts renderers handed out and not yet released.
func (t *Transport) LiveRenderers() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, c := range t.live {
		n += c
	}
	return n
}

// Made counts every renderer ever handed out.
func (t *Transport) Made() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.made
}

func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

type Renderer struct {
	transport  *Transport
	endpointID domain.EndpointID
	mode       domain.VideoMode

	mu       sync.Mutex
	released bool
}

func (r *Renderer) EndpointID() domain.EndpointID {
	return r.endpointID
}

func (r *Renderer) Mode() domain.VideoMode {
	return r.mode
}

func (r *Renderer) Release() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return ErrAlreadyReleased
	}
	r.released = true

	t := r.transport
	t.mu.Lock()
	defer t.mu.Unlock()
	t.live[r.endpointID]--
	if t.live[r.endpointID] <= 0 {
		delete(t.live, r.endpointID)
	}
	return nil
}
