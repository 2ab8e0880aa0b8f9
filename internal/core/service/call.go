package service

import (
	"context"
	"errors"
	"sync"

	"github.com/Wyydra/callroom/internal/core/domain"
	"github.com/Wyydra/callroom/internal/core/port"
	"github.com/rs/zerolog/log"
)

var (
	ErrRoomNotFound         = errors.New("call room not found")
	ErrSignalingUnsupported = errors.New("transport does not accept signals")
	ErrSignalingInUse       = errors.New("another client is signalling this room")
)

// TransportFactory opens the call transport of a new room.
type TransportFactory func(roomID domain.RoomID) (port.CallTransport, error)

// CallService keeps one CallRoom per room id.
type CallService struct {
	newTransport TransportFactory
	gateway      port.RenderGateway
	repo         port.RenderRepository
	opts         RoomOptions

	mu    sync.Mutex
	rooms map[domain.RoomID]*CallRoom

	// signallers holds the one client per room whose socket receives
	// transport signals such as trickled candidates
	signallers map[domain.RoomID]string
}

func NewCallService(newTransport TransportFactory, gateway port.RenderGateway, repo port.RenderRepository, opts RoomOptions) *CallService {
	if opts.Metrics == nil {
		opts.Metrics = port.NopMetrics{}
	}
	return &CallService{
		newTransport: newTransport,
		gateway:      gateway,
		repo:         repo,
		opts:         opts,
		rooms:        make(map[domain.RoomID]*CallRoom),
		signallers:   make(map[domain.RoomID]string),
	}
}

func (s *CallService) GetOrCreate(roomID domain.RoomID) (*CallRoom, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if room, ok := s.rooms[roomID]; ok {
		return room, nil
	}

	transport, err := s.newTransport(roomID)
	if err != nil {
		return nil, err
	}

	room := NewCallRoom(roomID, transport, s.gateway, s.repo, s.opts)
	s.rooms[roomID] = room
	s.opts.Metrics.RoomsActive(len(s.rooms))
	go room.Run(context.Background())

	log.Info().Str("room_id", roomID.String()).Int("count", len(s.rooms)).Msg("Call room created")
	return room, nil
}

func (s *CallService) Room(roomID domain.RoomID) (*CallRoom, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// HandleSignal forwards a media server signal to the room's transport. The
// first client to signal a room owns its transport callback until it calls
// ReleaseSignaling; signals from other clients fail with ErrSignalingInUse.
// The answer, if any, goes back through reply.
func (s *CallService) HandleSignal(ctx context.Context, roomID domain.RoomID, clientID string, signal domain.Signal, reply func(domain.Signal)) error {
	room, err := s.Room(roomID)
	if err != nil {
		return err
	}
	handler, ok := room.transport.(port.SignalHandler)
	if !ok {
		return ErrSignalingUnsupported
	}

	s.mu.Lock()
	owner, bound := s.signallers[roomID]
	if bound && owner != clientID {
		s.mu.Unlock()
		return ErrSignalingInUse
	}
	if !bound {
		s.signallers[roomID] = clientID
		handler.SetSignalCallback(reply)
	}
	s.mu.Unlock()

	answer, err := handler.HandleSignal(ctx, signal)
	if err != nil {
		return err
	}
	if answer != nil {
		reply(*answer)
	}
	return nil
}

// ReleaseSignaling frees the room's signalling slot if clientID holds it.
func (s *CallService) ReleaseSignaling(roomID domain.RoomID, clientID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if owner, ok := s.signallers[roomID]; !ok || owner != clientID {
		return
	}
	delete(s.signallers, roomID)
	if room, ok := s.rooms[roomID]; ok {
		if handler, ok := room.transport.(port.SignalHandler); ok {
			handler.SetSignalCallback(nil)
		}
	}
}

func (s *CallService) StopRoom(roomID domain.RoomID) {
	s.mu.Lock()
	room, ok := s.rooms[roomID]
	if ok {
		delete(s.rooms, roomID)
		delete(s.signallers, roomID)
		s.opts.Metrics.RoomsActive(len(s.rooms))
	}
	s.mu.Unlock()

	if ok {
		room.Stop()
		<-room.Done()
	}
}

// Run blocks until ctx is cancelled, then stops every room.
func (s *CallService) Run(ctx context.Context) error {
	<-ctx.Done()
	s.Stop()
	return nil
}

func (s *CallService) Stop() {
	s.mu.Lock()
	rooms := s.rooms
	s.rooms = make(map[domain.RoomID]*CallRoom)
	clear(s.signallers)
	s.opts.Metrics.RoomsActive(0)
	s.mu.Unlock()

	log.Info().Int("count", len(rooms)).Msg("Stopping call rooms")
	for _, room := range rooms {
		room.Stop()
	}
	for _, room := range rooms {
		<-room.Done()
	}
}
