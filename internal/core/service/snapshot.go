package service

import (
	"math"
	"slices"

	"github.com/Wyydra/callroom/internal/core/domain"
)

// localActivity keeps a local user who has not joined yet near the top.
const localActivity = math.MaxInt32 - 1

// SnapshotInput is the raw call state a snapshot is derived from.
// LocalPeerID zero means the local user is unknown.
type SnapshotInput struct {
	Participants     []domain.Participant
	Speaking         map[domain.PeerID]bool
	Invited          []domain.PeerID
	HideWantsToSpeak map[domain.PeerID]bool
	LocalPeerID      domain.PeerID
	LocalMuted       bool
	ActiveEndpoints  domain.EndpointSet
	Dominant         *domain.DominantVideo
}

// BuildSnapshot derives the ordered participant list. It is pure: the same
// input always yields the same list.
func BuildSnapshot(in SnapshotInput) []domain.ParticipantViewModel {
	joined := dedupeParticipants(in.Participants)

	hasVideo := func(peerID domain.PeerID) bool {
		for _, p := range joined {
			if p.PeerID != peerID {
				continue
			}
			if in.ActiveEndpoints.Has(p.VideoEndpointID) || in.ActiveEndpoints.Has(p.PresentationEndpointID) {
				return true
			}
		}
		return false
	}

	out := make([]domain.ParticipantViewModel, 0, len(joined)+len(in.Invited)+1)
	seen := make(map[domain.PeerID]bool, cap(out))

	if in.LocalPeerID != 0 && !containsPeer(joined, in.LocalPeerID) {
		out = append(out, domain.ParticipantViewModel{
			PeerID:            in.LocalPeerID,
			IsLocal:           true,
			ActivityTimestamp: localActivity,
			HasVideo:          hasVideo(in.LocalPeerID),
		})
		seen[in.LocalPeerID] = true
	}

	pinned := -1
	for _, p := range joined {
		state := p
		isLocal := in.LocalPeerID != 0 && p.PeerID == in.LocalPeerID
		isSpeaking := in.Speaking[p.PeerID]
		if isLocal && in.LocalMuted {
			isSpeaking = false
		}
		vm := domain.ParticipantViewModel{
			PeerID:            p.PeerID,
			State:             &state,
			IsLocal:           isLocal,
			IsSpeaking:        isSpeaking,
			WantsToSpeak:      p.HasRaiseHand && !in.HideWantsToSpeak[p.PeerID],
			ActivityTimestamp: p.ActivityTimestamp,
			FirstTimestamp:    p.JoinTimestamp,
			HasVideo:          hasVideo(p.PeerID),
		}
		if in.Dominant != nil && p.PeerID == in.Dominant.PeerID {
			vm.PinnedMode = in.Dominant.Mode
			pinned = len(out)
		}
		out = append(out, vm)
		seen[p.PeerID] = true
	}

	for _, peerID := range in.Invited {
		if seen[peerID] {
			continue
		}
		out = append(out, domain.ParticipantViewModel{
			PeerID:    peerID,
			IsInvited: true,
		})
		seen[peerID] = true
	}

	if pinned > 0 {
		vm := out[pinned]
		copy(out[1:pinned+1], out[:pinned])
		out[0] = vm
	}

	slices.SortStableFunc(out, domain.Compare)
	return out
}

// dedupeParticipants keeps the first position of a repeated peer but the
// last record delivered for it.
func dedupeParticipants(participants []domain.Participant) []domain.Participant {
	index := make(map[domain.PeerID]int, len(participants))
	out := make([]domain.Participant, 0, len(participants))
	for _, p := range participants {
		if i, ok := index[p.PeerID]; ok {
			out[i] = p
			continue
		}
		index[p.PeerID] = len(out)
		out = append(out, p)
	}
	return out
}

func containsPeer(participants []domain.Participant, peerID domain.PeerID) bool {
	for _, p := range participants {
		if p.PeerID == peerID {
			return true
		}
	}
	return false
}
