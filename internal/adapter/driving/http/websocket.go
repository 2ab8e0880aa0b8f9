package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/Wyydra/callroom/internal/core/domain"
	"github.com/Wyydra/callroom/internal/core/service"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var ErrUnknownCommand = errors.New("unknown command")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// TODO: check against server.allowed_origins once the config grows one
	CheckOrigin: func(r *http.Request) bool { return true },
}

// implements ws.Client
type WSClient struct {
	id     string
	roomID domain.RoomID
	conn   *websocket.Conn

	// gorilla allows one concurrent writer
	mu sync.Mutex
}

func (c *WSClient) ID() string {
	return c.id
}

func (c *WSClient) RoomID() domain.RoomID {
	return c.roomID
}

func (c *WSClient) SendRender(update domain.RenderUpdate) error {
	return c.write(outgoingDTO{Type: typeRender, Payload: update})
}

func (c *WSClient) SendSignal(signal domain.Signal) error {
	return c.write(outgoingDTO{Type: typeSignal, Payload: signal})
}

func (c *WSClient) sendError(err error) error {
	return c.write(outgoingDTO{Type: typeError, Payload: err.Error()})
}

func (c *WSClient) write(v outgoingDTO) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

func (c *WSClient) Close() error {
	return c.conn.Close()
}

// ServeWS attaches a render client to a room, creating the room on first use.
// The same socket carries call layer updates back into the room.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	roomID, ok := roomIDParam(w, r)
	if !ok {
		return
	}
	room, err := h.CallService.GetOrCreate(roomID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Error while upgrading ws")
		return
	}

	client := &WSClient{
		id:     uuid.NewString(),
		roomID: roomID,
		conn:   conn,
	}

	l := log.With().Str("client_id", client.id).Str("room_id", roomID.String()).Logger()
	l.Info().Msg("New client connected")

	h.Hub.Register(client)

	defer func() {
		l.Info().Msg("Client disconnected")
		h.CallService.ReleaseSignaling(roomID, client.id)
		h.Hub.Unregister(client)
		conn.Close()
	}()

	for {
		var req incomingDTO
		err := conn.ReadJSON(&req)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				l.Error().Err(err).Msg("Unexpected close error")
			}
			break
		}

		if err := h.dispatch(r, client, room, req, l); err != nil {
			l.Warn().Err(err).Str("type", req.Type).Msg("Failed to handle command")
			if errors.Is(err, service.ErrRoomStopped) {
				break
			}
			if err := client.sendError(err); err != nil {
				break
			}
		}
	}
}

func (h *Handler) dispatch(r *http.Request, client *WSClient, room *service.CallRoom, req incomingDTO, l zerolog.Logger) error {
	switch req.Type {
	case typeCallUpdate:
		var dto callUpdateDTO
		if err := json.Unmarshal(req.Payload, &dto); err != nil {
			return fmt.Errorf("decode call update: %w", err)
		}
		update, err := dto.toDomain()
		if err != nil {
			return err
		}
		return room.UpdateCall(update)

	case typeSources:
		var dto sourcesDTO
		if err := json.Unmarshal(req.Payload, &dto); err != nil {
			return fmt.Errorf("decode sources: %w", err)
		}
		return room.UpdateSources(dto.EndpointIDs)

	case typePin:
		var dto pinDTO
		if err := json.Unmarshal(req.Payload, &dto); err != nil {
			return fmt.Errorf("decode pin: %w", err)
		}
		d, err := dto.toDomain()
		if err != nil {
			return err
		}
		return room.Pin(d)

	case typeUnpin:
		return room.Unpin()

	case typeSignal:
		var signal domain.Signal
		if err := json.Unmarshal(req.Payload, &signal); err != nil {
			return fmt.Errorf("decode signal: %w", err)
		}
		ctx := r.Context()
		return h.CallService.HandleSignal(ctx, client.roomID, client.id, signal, func(s domain.Signal) {
			if err := h.Hub.SendSignal(ctx, client.id, s); err != nil {
				l.Error().Err(err).Msg("Failed to send signal")
			}
		})
	}
	return fmt.Errorf("%w: %q", ErrUnknownCommand, req.Type)
}
