package domain

type NetworkState string

const (
	NetworkConnecting NetworkState = "connecting"
	NetworkConnected  NetworkState = "connected"
)

// CallUpdate is one snapshot of raw call state delivered by the call layer.
type CallUpdate struct {
	Participants     []Participant
	Speaking         map[PeerID]bool
	Invited          []PeerID
	HideWantsToSpeak map[PeerID]bool
	LocalMuted       bool
	VideoEnabled     bool
	Network          NetworkState
}

type CallMode string

const (
	CallModeVoice CallMode = "voice"
	CallModeVideo CallMode = "video"
)

// Cue is a one-shot notification for the render layer, such as the
// reconnect sound.
type Cue string

const (
	CueNone        Cue = ""
	CueConnecting  Cue = "connecting"
	CueReconnected Cue = "reconnected"
)

type SelectorState string

const (
	SelectorUnselected   SelectorState = "unselected"
	SelectorPinned       SelectorState = "pinned"
	SelectorAutoSelected SelectorState = "auto_selected"
)
