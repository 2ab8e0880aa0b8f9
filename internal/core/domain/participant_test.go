package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompare(t *testing.T) {
	tests := []struct {
		name string
		a, b ParticipantViewModel
		want int
	}{
		{
			name: "pinned before higher activity",
			a:    ParticipantViewModel{PeerID: 1, PinnedMode: ModeVideo, ActivityTimestamp: 1},
			b:    ParticipantViewModel{PeerID: 2, ActivityTimestamp: 100},
			want: -1,
		},
		{
			name: "higher activity first",
			a:    ParticipantViewModel{PeerID: 1, ActivityTimestamp: 5},
			b:    ParticipantViewModel{PeerID: 2, ActivityTimestamp: 10},
			want: 1,
		},
		{
			name: "later join first on equal activity",
			a:    ParticipantViewModel{PeerID: 1, ActivityTimestamp: 5, FirstTimestamp: 20},
			b:    ParticipantViewModel{PeerID: 2, ActivityTimestamp: 5, FirstTimestamp: 10},
			want: -1,
		},
		{
			name: "tie",
			a:    ParticipantViewModel{PeerID: 1, ActivityTimestamp: 5, FirstTimestamp: 10},
			b:    ParticipantViewModel{PeerID: 2, ActivityTimestamp: 5, FirstTimestamp: 10},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compare(tt.a, tt.b))
		})
	}
}

func TestViewModelEqualFollowsState(t *testing.T) {
	a := ParticipantViewModel{PeerID: 1, State: &Participant{PeerID: 1, Mute: &MuteState{CanUnmute: true}}}
	b := ParticipantViewModel{PeerID: 1, State: &Participant{PeerID: 1, Mute: &MuteState{CanUnmute: true}}}
	assert.True(t, a.Equal(b), "distinct pointers with equal values")

	b.State.Mute.CanUnmute = false
	assert.False(t, a.Equal(b))

	c := ParticipantViewModel{PeerID: 1}
	assert.False(t, a.Equal(c))
	assert.True(t, c.Equal(ParticipantViewModel{PeerID: 1}))
}

func TestParticipantModeOf(t *testing.T) {
	p := Participant{PeerID: 1, VideoEndpointID: "cam", PresentationEndpointID: "screen"}

	mode, ok := p.ModeOf("cam")
	assert.True(t, ok)
	assert.Equal(t, ModeVideo, mode)

	mode, ok = p.ModeOf("screen")
	assert.True(t, ok)
	assert.Equal(t, ModeScreencast, mode)

	_, ok = p.ModeOf("")
	assert.False(t, ok)
	assert.False(t, p.Owns(""))
	assert.False(t, p.Owns("other"))
}

func TestEndpointSet(t *testing.T) {
	s := NewEndpointSet("a", "", "b")
	assert.Len(t, s, 2)
	assert.True(t, s.Has("a"))
	assert.False(t, s.Has(""))
	assert.True(t, s.Equal(NewEndpointSet("b", "a")))
	assert.False(t, s.Equal(NewEndpointSet("a")))
}

func TestSameDominant(t *testing.T) {
	assert.True(t, SameDominant(nil, nil))
	assert.False(t, SameDominant(NewDominantVideo(1, "a", ModeVideo), nil))
	assert.True(t, SameDominant(NewDominantVideo(1, "a", ModeVideo), NewDominantVideo(1, "a", ModeVideo)))
	assert.False(t, SameDominant(NewDominantVideo(1, "a", ModeVideo), NewDominantVideo(1, "a", ModeScreencast)))
}
