package ws

import (
	"context"
	"sync"

	"github.com/Wyydra/callroom/internal/core/domain"
	"github.com/Wyydra/callroom/internal/core/port"
	"github.com/rs/zerolog/log"
)

const broadcastBuffer = 256

// implements port.RenderGateway
type Hub struct {
	mu         sync.Mutex
	clients    map[Client]bool
	broadcast  chan domain.RenderUpdate
	register   chan Client
	unregister chan Client
	quit       chan struct{}
	stopOnce   sync.Once

	repo port.RenderRepository
}

// NewHub builds a hub. When repo is set, new clients first receive the
// latest update of their room.
func NewHub(repo port.RenderRepository) *Hub {
	return &Hub{
		clients:    make(map[Client]bool),
		broadcast:  make(chan domain.RenderUpdate, broadcastBuffer),
		register:   make(chan Client),
		unregister: make(chan Client),
		quit:       make(chan struct{}),
		repo:       repo,
	}
}

func (h *Hub) PublishRender(ctx context.Context, update domain.RenderUpdate) error {
	select {
	case h.broadcast <- update:
	default:
		// every update carries the full list, so a dropped one is recoverable
		log.Warn().Str("room_id", update.RoomID.String()).Int("version", update.Version).Msg("Broadcast channel full, dropping render update")
	}
	return nil
}

// SendSignal delivers a transport signal to one connected client.
func (h *Hub) SendSignal(ctx context.Context, clientID string, signal domain.Signal) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		if client.ID() == clientID {
			return client.SendSignal(signal)
		}
	}
	return nil // Client not found, maybe offline
}

// ClientCount returns how many clients watch roomID.
func (h *Hub) ClientCount(roomID domain.RoomID) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := 0
	for client := range h.clients {
		if client.RoomID() == roomID {
			n++
		}
	}
	return n
}

func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.Stop()
			h.closeAll()
			return nil

		case <-h.quit:
			h.closeAll()
			return nil

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			log.Info().Str("client_id", client.ID()).Str("room_id", client.RoomID().String()).Msg("Client registered")
			h.replay(ctx, client)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
				log.Info().Str("client_id", client.ID()).Msg("Client unregistered")
			}
			h.mu.Unlock()

		case update := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if client.RoomID() != update.RoomID {
					continue
				}
				if err := client.SendRender(update); err != nil {
					log.Error().Err(err).Str("client_id", client.ID()).Msg("Error sending render update")
					client.Close()
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) replay(ctx context.Context, client Client) {
	if h.repo == nil {
		return
	}
	update, ok, err := h.repo.Latest(ctx, client.RoomID())
	if err != nil {
		log.Error().Err(err).Str("client_id", client.ID()).Msg("Error loading render state")
		return
	}
	if !ok {
		return
	}
	// the client has no previous list to diff against
	update.Diff = domain.Diff{}
	if err := client.SendRender(update); err != nil {
		log.Error().Err(err).Str("client_id", client.ID()).Msg("Error replaying render state")
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		client.Close()
		delete(h.clients, client)
	}
}

func (h *Hub) Register(c Client) {
	select {
	case h.register <- c:
	case <-h.quit:
	}
}

func (h *Hub) Unregister(c Client) {
	select {
	case h.unregister <- c:
	case <-h.quit:
	}
}

func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.quit)
	})
}
