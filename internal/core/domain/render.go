package domain

// RenderUpdate is everything the render layer needs after one recompute.
type RenderUpdate struct {
	RoomID        RoomID                 `json:"room_id"`
	Version       int                    `json:"version"`
	Participants  []ParticipantViewModel `json:"participants"`
	Diff          Diff                   `json:"diff"`
	Dominant      *DominantVideo         `json:"dominant,omitempty"`
	SelectorState SelectorState          `json:"selector_state"`
	Mode          CallMode               `json:"mode"`
	Cue           Cue                    `json:"cue,omitempty"`
}
