package service

import (
	"time"

	"github.com/Wyydra/callroom/internal/core/domain"
)

// SelectDominant elects at most one full-size source. snapshot must already
// be in priority order. A still-valid pinned hint is returned unchanged
// unless ignorePinned is set.
func SelectDominant(snapshot []domain.ParticipantViewModel, active domain.EndpointSet, pinned *domain.DominantVideo, ignorePinned bool) *domain.DominantVideo {
	if !ignorePinned && pinned != nil && pinValid(snapshot, active, *pinned) {
		return pinned
	}
	return firstEligible(snapshot, active, nil)
}

func activeParticipants(snapshot []domain.ParticipantViewModel, active domain.EndpointSet) []domain.ParticipantViewModel {
	var out []domain.ParticipantViewModel
	for _, vm := range snapshot {
		if active.Has(vm.VideoEndpointID()) || active.Has(vm.PresentationEndpointID()) {
			out = append(out, vm)
		}
	}
	return out
}

func pinValid(snapshot []domain.ParticipantViewModel, active domain.EndpointSet, pinned domain.DominantVideo) bool {
	if !active.Has(pinned.EndpointID) {
		return false
	}
	for _, vm := range activeParticipants(snapshot, active) {
		if vm.PeerID != pinned.PeerID || vm.State == nil {
			continue
		}
		mode, ok := vm.State.ModeOf(pinned.EndpointID)
		return ok && mode == pinned.Mode
	}
	return false
}

// firstEligible scans active participants in order, camera before screen
// share. The local camera is skipped while anyone else is active.
func firstEligible(snapshot []domain.ParticipantViewModel, active, excluded domain.EndpointSet) *domain.DominantVideo {
	candidates := activeParticipants(snapshot, active)
	for _, vm := range candidates {
		if vm.IsLocal && len(candidates) > 1 {
			continue
		}
		sources := [...]struct {
			id   domain.EndpointID
			mode domain.VideoMode
		}{
			{vm.VideoEndpointID(), domain.ModeVideo},
			{vm.PresentationEndpointID(), domain.ModeScreencast},
		}
		for _, src := range sources {
			if !active.Has(src.id) || excluded.Has(src.id) {
				continue
			}
			return domain.NewDominantVideo(vm.PeerID, src.id, src.mode)
		}
	}
	return nil
}

// FullSizeEndpoint is what the transport is asked to deliver at full size
// for an election. Self-view is never requested as a remote feed.
func FullSizeEndpoint(d *domain.DominantVideo, localPeerID domain.PeerID) domain.EndpointID {
	if d == nil || d.PeerID == localPeerID {
		return ""
	}
	return d.EndpointID
}

type SelectorOptions struct {
	// FocusHold keeps an automatic election for at least this long while
	// it stays eligible. Zero switches immediately.
	FocusHold time.Duration
	Now       func() time.Time
}

// Selector owns the dominant source of one room. It is not safe for
// concurrent use.
type Selector struct {
	state     domain.SelectorState
	current   *domain.DominantVideo
	excluded  domain.EndpointSet
	focusHold time.Duration
	electedAt time.Time
	now       func() time.Time
}

func NewSelector(opts SelectorOptions) *Selector {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Selector{
		state:     domain.SelectorUnselected,
		excluded:  domain.NewEndpointSet(),
		focusHold: opts.FocusHold,
		now:       now,
	}
}

func (s *Selector) State() domain.SelectorState {
	return s.state
}

func (s *Selector) Current() *domain.DominantVideo {
	return s.current
}

// Pin makes d the dominant source until it is unpinned or stops being
// eligible.
func (s *Selector) Pin(d domain.DominantVideo) {
	s.current = &d
	s.state = domain.SelectorPinned
	s.electedAt = s.now()
	delete(s.excluded, d.EndpointID)
}

// Unpin hands the election back to automatic selection. The unpinned
// endpoint is not auto-elected again until it leaves the active set.
func (s *Selector) Unpin() bool {
	if s.state != domain.SelectorPinned {
		return false
	}
	if s.current != nil {
		s.excluded[s.current.EndpointID] = struct{}{}
	}
	s.state = domain.SelectorAutoSelected
	return true
}

// Update re-evaluates the election against a new snapshot and reports
// whether the dominant source changed.
func (s *Selector) Update(snapshot []domain.ParticipantViewModel, active domain.EndpointSet) bool {
	prev := s.current
	for id := range s.excluded {
		if !active.Has(id) {
			delete(s.excluded, id)
		}
	}

	if s.state == domain.SelectorPinned {
		if SelectDominant(snapshot, active, s.current, false) == s.current {
			return false
		}
		s.state = domain.SelectorAutoSelected
		s.current = nil
	}

	next := firstEligible(snapshot, active, s.excluded)
	switch {
	case next == nil:
		s.state = domain.SelectorUnselected
		s.current = nil
	case s.holding(snapshot, active, next):
		s.state = domain.SelectorAutoSelected
	default:
		s.state = domain.SelectorAutoSelected
		if !domain.SameDominant(next, s.current) {
			s.current = next
			s.electedAt = s.now()
		}
	}
	return !domain.SameDominant(prev, s.current)
}

func (s *Selector) holding(snapshot []domain.ParticipantViewModel, active domain.EndpointSet, next *domain.DominantVideo) bool {
	if s.focusHold <= 0 || s.current == nil || domain.SameDominant(next, s.current) {
		return false
	}
	if s.excluded.Has(s.current.EndpointID) || !pinValid(snapshot, active, *s.current) {
		return false
	}
	candidates := activeParticipants(snapshot, active)
	for _, vm := range candidates {
		if vm.PeerID == s.current.PeerID && vm.IsLocal && len(candidates) > 1 {
			return false
		}
	}
	return s.now().Sub(s.electedAt) < s.focusHold
}
