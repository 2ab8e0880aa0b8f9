package port

import (
	"context"

	"github.com/Wyydra/callroom/internal/core/domain"
)

// Renderer paints one endpoint's decoded frames. Whoever holds it from
// MakeVideoView owns it and must Release it.
type Renderer interface {
	EndpointID() domain.EndpointID
	Release() error
}

// CallTransport is the call layer a room drives. All methods are
// fire-and-forget; done may run on any goroutine, possibly after the
// endpoint stopped mattering. done receives nil when no renderer could be
// made.
type CallTransport interface {
	MakeVideoView(endpointID domain.EndpointID, mode domain.VideoMode, done func(Renderer))
	// SetFullSizeVideo requests full quality for endpointID; "" clears it.
	SetFullSizeVideo(endpointID domain.EndpointID)
	SetRequestedVideoList(items []domain.RequestedVideo)
}

// SignalHandler is implemented by transports negotiated over SDP.
type SignalHandler interface {
	HandleSignal(ctx context.Context, signal domain.Signal) (*domain.Signal, error)
	SetSignalCallback(cb func(signal domain.Signal)) //TODO: move candidate delivery into HandleSignal's reply
}
