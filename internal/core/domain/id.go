package domain

import (
	"strconv"

	"github.com/google/uuid"
)

type RoomID uuid.UUID
type RequestID uuid.UUID

// PeerID is the call layer's stable identity for a user or channel.
type PeerID int64

// EndpointID names one media track (camera or screen share). The empty
// value means "no endpoint".
type EndpointID string

func NewRoomID() RoomID {
	return RoomID(uuid.New())
}

func NewRequestID() RequestID {
	return RequestID(uuid.New())
}

func ParseRoomID(s string) (RoomID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return RoomID{}, err
	}
	return RoomID(id), nil
}

func (id RoomID) String() string {
	return uuid.UUID(id).String()
}

func (id RequestID) String() string {
	return uuid.UUID(id).String()
}

func (id PeerID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

func (e EndpointID) String() string {
	return string(e)
}

// EndpointSet is a set of endpoint ids.
type EndpointSet map[EndpointID]struct{}

func NewEndpointSet(ids ...EndpointID) EndpointSet {
	s := make(EndpointSet, len(ids))
	for _, id := range ids {
		if id != "" {
			s[id] = struct{}{}
		}
	}
	return s
}

func (s EndpointSet) Has(id EndpointID) bool {
	if id == "" {
		return false
	}
	_, ok := s[id]
	return ok
}

func (s EndpointSet) Equal(other EndpointSet) bool {
	if len(s) != len(other) {
		return false
	}
	for id := range s {
		if _, ok := other[id]; !ok {
			return false
		}
	}
	return true
}

func (id RoomID) MarshalText() ([]byte, error) {
	return uuid.UUID(id).MarshalText()
}

func (id *RoomID) UnmarshalText(b []byte) error {
	var u uuid.UUID
	if err := u.UnmarshalText(b); err != nil {
		return err
	}
	*id = RoomID(u)
	return nil
}
