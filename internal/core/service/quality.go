package service

import "github.com/Wyydra/callroom/internal/core/domain"

// RequestedVideos lists the remote endpoints the transport should deliver
// and at which quality. The dominant endpoint gets full quality and every
// other one a thumbnail; with no dominant source a lone remote video is
// requested in full and several in medium. The local user's own endpoints
// are never requested.
func RequestedVideos(snapshot []domain.ParticipantViewModel, dominant *domain.DominantVideo) []domain.RequestedVideo {
	var remote []domain.ParticipantViewModel
	for _, vm := range snapshot {
		if vm.IsLocal || vm.State == nil {
			continue
		}
		if vm.VideoEndpointID() == "" && vm.PresentationEndpointID() == "" {
			continue
		}
		remote = append(remote, vm)
	}

	base := domain.QualityMedium
	if len(remote) == 1 {
		base = domain.QualityFull
	}

	var items []domain.RequestedVideo
	for _, vm := range remote {
		videoQuality, screencastQuality := base, base
		if dominant != nil {
			videoQuality = qualityFor(dominant, vm.VideoEndpointID())
			screencastQuality = qualityFor(dominant, vm.PresentationEndpointID())
		}

		if endpoint := vm.VideoEndpointID(); endpoint != "" {
			items = append(items, domain.RequestedVideo{
				PeerID:     vm.PeerID,
				EndpointID: endpoint,
				Mode:       domain.ModeVideo,
				MinQuality: domain.QualityThumbnail,
				MaxQuality: videoQuality,
			})
		}
		if endpoint := vm.PresentationEndpointID(); endpoint != "" {
			// screen shares are unreadable in medium
			minQuality, maxQuality := domain.QualityThumbnail, screencastQuality
			if maxQuality == domain.QualityMedium {
				maxQuality = domain.QualityFull
			}
			if maxQuality == domain.QualityFull {
				minQuality = domain.QualityFull
			}
			items = append(items, domain.RequestedVideo{
				PeerID:     vm.PeerID,
				EndpointID: endpoint,
				Mode:       domain.ModeScreencast,
				MinQuality: minQuality,
				MaxQuality: maxQuality,
			})
		}
	}
	return items
}

func qualityFor(dominant *domain.DominantVideo, endpoint domain.EndpointID) domain.VideoQuality {
	if endpoint != "" && dominant.EndpointID == endpoint {
		return domain.QualityFull
	}
	return domain.QualityThumbnail
}
