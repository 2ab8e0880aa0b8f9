package service

import (
	"testing"
	"time"

	"github.com/Wyydra/callroom/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshotOf(local domain.PeerID, active domain.EndpointSet, participants ...domain.Participant) []domain.ParticipantViewModel {
	return BuildSnapshot(SnapshotInput{
		Participants:    participants,
		LocalPeerID:     local,
		ActiveEndpoints: active,
	})
}

func TestSelectDominantNoActiveSource(t *testing.T) {
	active := domain.NewEndpointSet()
	snapshot := snapshotOf(0, active, participant(1, 10, "a", ""))
	assert.Nil(t, SelectDominant(snapshot, active, nil, false))
}

func TestSelectDominantFirstMatch(t *testing.T) {
	active := domain.NewEndpointSet("a", "b", "b-screen")
	snapshot := snapshotOf(0, active,
		participant(1, 10, "a", ""),
		participant(2, 20, "b", "b-screen"),
	)

	got := SelectDominant(snapshot, active, nil, false)
	require.NotNil(t, got)
	assert.Equal(t, *domain.NewDominantVideo(2, "b", domain.ModeVideo), *got, "camera is checked before screen share")
}

func TestSelectDominantScreencastWhenCameraInactive(t *testing.T) {
	active := domain.NewEndpointSet("b-screen")
	snapshot := snapshotOf(0, active, participant(2, 20, "b", "b-screen"))

	got := SelectDominant(snapshot, active, nil, false)
	require.NotNil(t, got)
	assert.Equal(t, domain.ModeScreencast, got.Mode)
	assert.Equal(t, domain.EndpointID("b-screen"), got.EndpointID)
}

func TestSelectDominantSkipsSelfView(t *testing.T) {
	active := domain.NewEndpointSet("local", "remote")
	snapshot := snapshotOf(1, active,
		participant(1, 100, "local", ""),
		participant(2, 10, "remote", ""),
	)
	require.Equal(t, domain.PeerID(1), snapshot[0].PeerID)

	got := SelectDominant(snapshot, active, nil, false)
	require.NotNil(t, got)
	assert.Equal(t, domain.PeerID(2), got.PeerID)
}

func TestSelectDominantLocalWhenSoleActive(t *testing.T) {
	active := domain.NewEndpointSet("local")
	snapshot := snapshotOf(1, active,
		participant(1, 100, "local", ""),
		participant(2, 10, "remote", ""),
	)

	got := SelectDominant(snapshot, active, nil, false)
	require.NotNil(t, got)
	assert.Equal(t, domain.PeerID(1), got.PeerID)
	assert.Equal(t, domain.EndpointID(""), FullSizeEndpoint(got, 1), "self-view is never requested full size")
}

func TestSelectDominantStickyPin(t *testing.T) {
	active := domain.NewEndpointSet("a", "b")
	pinned := domain.NewDominantVideo(1, "a", domain.ModeVideo)

	// B is now far more active than A
	snapshot := snapshotOf(0, active,
		participant(1, 10, "a", ""),
		participant(2, 999, "b", ""),
	)

	got := SelectDominant(snapshot, active, pinned, false)
	assert.Same(t, pinned, got)

	got = SelectDominant(snapshot, active, pinned, true)
	require.NotNil(t, got)
	assert.Equal(t, domain.PeerID(2), got.PeerID)
}

func TestSelectDominantPinInvalidation(t *testing.T) {
	pinned := domain.NewDominantVideo(1, "a", domain.ModeVideo)

	tests := []struct {
		name         string
		active       domain.EndpointSet
		participants []domain.Participant
		want         *domain.DominantVideo
	}{
		{
			name:         "endpoint left the active set",
			active:       domain.NewEndpointSet("b"),
			participants: []domain.Participant{participant(1, 10, "a", ""), participant(2, 5, "b", "")},
			want:         domain.NewDominantVideo(2, "b", domain.ModeVideo),
		},
		{
			name:         "participant left",
			active:       domain.NewEndpointSet("a"),
			participants: []domain.Participant{participant(2, 5, "b", "")},
			want:         nil,
		},
		{
			name:         "endpoint changed mode",
			active:       domain.NewEndpointSet("a"),
			participants: []domain.Participant{participant(1, 10, "", "a")},
			want:         domain.NewDominantVideo(1, "a", domain.ModeScreencast),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snapshot := snapshotOf(0, tt.active, tt.participants...)
			got := SelectDominant(snapshot, tt.active, pinned, false)
			assert.True(t, domain.SameDominant(tt.want, got), "got %v", got)
			assert.NotSame(t, pinned, got)
		})
	}
}

type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time {
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func TestSelectorStateMachine(t *testing.T) {
	s := NewSelector(SelectorOptions{})
	assert.Equal(t, domain.SelectorUnselected, s.State())
	assert.Nil(t, s.Current())

	active := domain.NewEndpointSet("a", "b")
	snapshot := snapshotOf(0, active,
		participant(1, 20, "a", ""),
		participant(2, 10, "b", ""),
	)

	assert.True(t, s.Update(snapshot, active))
	assert.Equal(t, domain.SelectorAutoSelected, s.State())
	assert.Equal(t, domain.PeerID(1), s.Current().PeerID)

	s.Pin(*domain.NewDominantVideo(2, "b", domain.ModeVideo))
	assert.Equal(t, domain.SelectorPinned, s.State())
	assert.False(t, s.Update(snapshot, active))
	assert.Equal(t, domain.PeerID(2), s.Current().PeerID)

	// pinned endpoint goes away
	active = domain.NewEndpointSet("a")
	snapshot = snapshotOf(0, active, participant(1, 20, "a", ""), participant(2, 10, "b", ""))
	assert.True(t, s.Update(snapshot, active))
	assert.Equal(t, domain.SelectorAutoSelected, s.State())
	assert.Equal(t, domain.PeerID(1), s.Current().PeerID)

	// nothing left
	active = domain.NewEndpointSet()
	snapshot = snapshotOf(0, active, participant(1, 20, "a", ""))
	assert.True(t, s.Update(snapshot, active))
	assert.Equal(t, domain.SelectorUnselected, s.State())
	assert.Nil(t, s.Current())
}

func TestSelectorUnpinExcludesEndpoint(t *testing.T) {
	s := NewSelector(SelectorOptions{})
	active := domain.NewEndpointSet("a", "b")
	snapshot := snapshotOf(0, active,
		participant(1, 20, "a", ""),
		participant(2, 10, "b", ""),
	)

	assert.False(t, s.Unpin(), "nothing pinned")

	s.Pin(*domain.NewDominantVideo(1, "a", domain.ModeVideo))
	s.Update(snapshot, active)
	require.True(t, s.Unpin())
	assert.Equal(t, domain.SelectorAutoSelected, s.State())

	s.Update(snapshot, active)
	require.NotNil(t, s.Current())
	assert.Equal(t, domain.PeerID(2), s.Current().PeerID, "unpinned endpoint is not auto-elected again")

	// once a leaves and comes back it is eligible again
	gone := domain.NewEndpointSet("b")
	s.Update(snapshotOf(0, gone, participant(1, 20, "a", ""), participant(2, 10, "b", "")), gone)
	s.Update(snapshot, active)
	assert.Equal(t, domain.PeerID(1), s.Current().PeerID)
}

func TestSelectorFocusHold(t *testing.T) {
	c := &clock{now: time.Unix(1000, 0)}
	s := NewSelector(SelectorOptions{FocusHold: 5 * time.Second, Now: c.Now})
	active := domain.NewEndpointSet("a", "b")

	s.Update(snapshotOf(0, active, participant(1, 20, "a", ""), participant(2, 10, "b", "")), active)
	require.Equal(t, domain.PeerID(1), s.Current().PeerID)

	// B becomes the most active speaker
	busier := snapshotOf(0, active, participant(1, 20, "a", ""), participant(2, 30, "b", ""))

	c.Advance(time.Second)
	assert.False(t, s.Update(busier, active))
	assert.Equal(t, domain.PeerID(1), s.Current().PeerID)

	c.Advance(5 * time.Second)
	assert.True(t, s.Update(busier, active))
	assert.Equal(t, domain.PeerID(2), s.Current().PeerID)
}

func TestSelectorFocusHoldReleasesIneligible(t *testing.T) {
	c := &clock{now: time.Unix(1000, 0)}
	s := NewSelector(SelectorOptions{FocusHold: time.Minute, Now: c.Now})
	active := domain.NewEndpointSet("a", "b")

	s.Update(snapshotOf(0, active, participant(1, 20, "a", ""), participant(2, 10, "b", "")), active)
	require.Equal(t, domain.PeerID(1), s.Current().PeerID)

	onlyB := domain.NewEndpointSet("b")
	assert.True(t, s.Update(snapshotOf(0, onlyB, participant(1, 20, "a", ""), participant(2, 10, "b", "")), onlyB))
	assert.Equal(t, domain.PeerID(2), s.Current().PeerID)
}

func TestSelectorFocusHoldDropsSelfView(t *testing.T) {
	c := &clock{now: time.Unix(1000, 0)}
	s := NewSelector(SelectorOptions{FocusHold: time.Minute, Now: c.Now})

	alone := domain.NewEndpointSet("local")
	s.Update(snapshotOf(1, alone, participant(1, 20, "local", "")), alone)
	require.Equal(t, domain.PeerID(1), s.Current().PeerID)

	both := domain.NewEndpointSet("local", "remote")
	assert.True(t, s.Update(snapshotOf(1, both, participant(1, 20, "local", ""), participant(2, 10, "remote", "")), both))
	assert.Equal(t, domain.PeerID(2), s.Current().PeerID)
}
