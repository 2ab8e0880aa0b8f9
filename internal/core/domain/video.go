package domain

import "fmt"

type VideoMode string

const (
	ModeNone       VideoMode = ""
	ModeVideo      VideoMode = "video"
	ModeScreencast VideoMode = "screencast"
)

// DominantVideo is the single source elected for full-size display.
type DominantVideo struct {
	PeerID     PeerID     `json:"peer_id"`
	EndpointID EndpointID `json:"endpoint_id"`
	Mode       VideoMode  `json:"mode"`
}

func NewDominantVideo(peerID PeerID, endpointID EndpointID, mode VideoMode) *DominantVideo {
	return &DominantVideo{PeerID: peerID, EndpointID: endpointID, Mode: mode}
}

func (d DominantVideo) String() string {
	return fmt.Sprintf("%s/%s(%s)", d.PeerID, d.EndpointID, d.Mode)
}

// SameDominant compares two optional elections.
func SameDominant(a, b *DominantVideo) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

type VideoQuality string

const (
	QualityThumbnail VideoQuality = "thumbnail"
	QualityMedium    VideoQuality = "medium"
	QualityFull      VideoQuality = "full"
)

// RequestedVideo asks the transport to deliver one remote endpoint within
// a quality range.
type RequestedVideo struct {
	PeerID     PeerID       `json:"peer_id"`
	EndpointID EndpointID   `json:"endpoint_id"`
	Mode       VideoMode    `json:"mode"`
	MinQuality VideoQuality `json:"min_quality"`
	MaxQuality VideoQuality `json:"max_quality"`
}
