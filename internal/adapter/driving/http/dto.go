package http

import (
	"encoding/json"
	"fmt"

	"github.com/Wyydra/callroom/internal/core/domain"
)

const (
	typeCallUpdate = "call_update"
	typeSources    = "sources"
	typePin        = "pin"
	typeUnpin      = "unpin"
	typeSignal     = "signal"
	typeRender     = "render"
	typeError      = "error"
)

type incomingDTO struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outgoingDTO struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type callUpdateDTO struct {
	Participants     []domain.Participant `json:"participants"`
	Speaking         []domain.PeerID      `json:"speaking"`
	Invited          []domain.PeerID      `json:"invited"`
	HideWantsToSpeak []domain.PeerID      `json:"hide_wants_to_speak"`
	LocalMuted       bool                 `json:"local_muted"`
	VideoEnabled     bool                 `json:"video_enabled"`
	Network          string               `json:"network"`
}

func (d callUpdateDTO) toDomain() (domain.CallUpdate, error) {
	network := domain.NetworkState(d.Network)
	switch network {
	case "", domain.NetworkConnecting, domain.NetworkConnected:
	default:
		return domain.CallUpdate{}, fmt.Errorf("unknown network state %q", d.Network)
	}
	return domain.CallUpdate{
		Participants:     d.Participants,
		Speaking:         peerSet(d.Speaking),
		Invited:          d.Invited,
		HideWantsToSpeak: peerSet(d.HideWantsToSpeak),
		LocalMuted:       d.LocalMuted,
		VideoEnabled:     d.VideoEnabled,
		Network:          network,
	}, nil
}

func peerSet(ids []domain.PeerID) map[domain.PeerID]bool {
	set := make(map[domain.PeerID]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

type sourcesDTO struct {
	EndpointIDs []domain.EndpointID `json:"endpoint_ids"`
}

type pinDTO struct {
	PeerID     domain.PeerID     `json:"peer_id"`
	EndpointID domain.EndpointID `json:"endpoint_id"`
	Mode       domain.VideoMode  `json:"mode"`
}

func (d pinDTO) toDomain() (domain.DominantVideo, error) {
	if d.EndpointID == "" {
		return domain.DominantVideo{}, fmt.Errorf("pin needs an endpoint id")
	}
	switch d.Mode {
	case domain.ModeVideo, domain.ModeScreencast:
	default:
		return domain.DominantVideo{}, fmt.Errorf("unknown video mode %q", d.Mode)
	}
	return domain.DominantVideo{PeerID: d.PeerID, EndpointID: d.EndpointID, Mode: d.Mode}, nil
}
