package domain

type SignalType string

const (
	SignalOffer     SignalType = "offer"
	SignalAnswer    SignalType = "answer"
	SignalCandidate SignalType = "candidate"
)

// Signal carries an opaque SDP or ICE payload between the media server and
// the transport.
type Signal struct {
	Type    SignalType `json:"type"`
	Payload string     `json:"payload"`
}

func NewSignal(t SignalType, payload string) Signal {
	return Signal{
		Type:    t,
		Payload: payload,
	}
}
