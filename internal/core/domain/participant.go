package domain

// MuteState is the server-side mute record of a joined participant.
type MuteState struct {
	CanUnmute  bool `json:"can_unmute"`
	MutedByYou bool `json:"muted_by_you"`
}

// Participant is the raw joined record delivered by the call layer.
type Participant struct {
	PeerID                 PeerID     `json:"peer_id"`
	Mute                   *MuteState `json:"mute,omitempty"`
	HasRaiseHand           bool       `json:"raise_hand"`
	JoinTimestamp          int32      `json:"join_timestamp"`
	ActivityTimestamp      int32      `json:"activity_timestamp"`
	VideoEndpointID        EndpointID `json:"video_endpoint_id,omitempty"`
	PresentationEndpointID EndpointID `json:"presentation_endpoint_id,omitempty"`
	Volume                 int32      `json:"volume"`
	About                  string     `json:"about,omitempty"`
	JoinedVideo            bool       `json:"joined_video"`
}

// Owns reports whether endpoint belongs to this participant.
func (p Participant) Owns(endpoint EndpointID) bool {
	if endpoint == "" {
		return false
	}
	return p.VideoEndpointID == endpoint || p.PresentationEndpointID == endpoint
}

// ModeOf returns the source mode of one of the participant's endpoints.
func (p Participant) ModeOf(endpoint EndpointID) (VideoMode, bool) {
	switch {
	case endpoint == "":
		return ModeNone, false
	case p.VideoEndpointID == endpoint:
		return ModeVideo, true
	case p.PresentationEndpointID == endpoint:
		return ModeScreencast, true
	}
	return ModeNone, false
}

func (p Participant) equal(o Participant) bool {
	if (p.Mute == nil) != (o.Mute == nil) {
		return false
	}
	if p.Mute != nil && *p.Mute != *o.Mute {
		return false
	}
	a, b := p, o
	a.Mute, b.Mute = nil, nil
	return a == b
}

// ParticipantViewModel is one row of the participant list.
type ParticipantViewModel struct {
	PeerID            PeerID       `json:"peer_id"`
	State             *Participant `json:"state,omitempty"`
	IsLocal           bool         `json:"is_local"`
	IsSpeaking        bool         `json:"is_speaking"`
	IsInvited         bool         `json:"is_invited"`
	WantsToSpeak      bool         `json:"wants_to_speak"`
	PinnedMode        VideoMode    `json:"pinned_mode,omitempty"`
	ActivityTimestamp int32        `json:"activity_timestamp"`
	FirstTimestamp    int32        `json:"first_timestamp"`
	HasVideo          bool         `json:"has_video"`
}

func (vm ParticipantViewModel) IsPinned() bool {
	return vm.PinnedMode != ModeNone
}

func (vm ParticipantViewModel) VideoEndpointID() EndpointID {
	if vm.State == nil {
		return ""
	}
	return vm.State.VideoEndpointID
}

func (vm ParticipantViewModel) PresentationEndpointID() EndpointID {
	if vm.State == nil {
		return ""
	}
	return vm.State.PresentationEndpointID
}

// Equal compares every field, following State by value.
func (vm ParticipantViewModel) Equal(o ParticipantViewModel) bool {
	if (vm.State == nil) != (o.State == nil) {
		return false
	}
	if vm.State != nil && !vm.State.equal(*o.State) {
		return false
	}
	a, b := vm, o
	a.State, b.State = nil, nil
	return a == b
}

// Compare orders view models for the participant list: pinned rows first,
// then activity descending, then first timestamp descending. It returns a
// negative number when a sorts before b.
func Compare(a, b ParticipantViewModel) int {
	if a.IsPinned() != b.IsPinned() {
		if a.IsPinned() {
			return -1
		}
		return 1
	}
	if a.ActivityTimestamp != b.ActivityTimestamp {
		if a.ActivityTimestamp > b.ActivityTimestamp {
			return -1
		}
		return 1
	}
	if a.FirstTimestamp != b.FirstTimestamp {
		if a.FirstTimestamp > b.FirstTimestamp {
			return -1
		}
		return 1
	}
	return 0
}
