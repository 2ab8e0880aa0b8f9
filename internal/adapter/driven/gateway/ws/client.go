package ws

import "github.com/Wyydra/callroom/internal/core/domain"

type Client interface {
	ID() string
	RoomID() domain.RoomID
	SendRender(update domain.RenderUpdate) error
	SendSignal(signal domain.Signal) error
	Close() error
}
