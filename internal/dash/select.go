package dash

// SelectRepresentations is a pure function choosing the video and audio
// tracks a session should drive for the given manifest. If representationID
// is non-empty, the matching track (by Representation ID, from any
// AdaptationSet) is required, and its kind is inferred and used as the
// only selected variant — the complementary kind is not auto-selected.
// Otherwise the highest-bandwidth track of each kind is chosen
// independently. Either return value may be nil when the manifest has no
// track of that kind at all — callers decide whether that is fatal.
func SelectRepresentations(m *Manifest, representationID string) (video, audio *Track, err error) {
	if representationID != "" {
		track, err := findByID(m.Tracks, representationID)
		if err != nil {
			return nil, nil, err
		}
		if track.Kind == KindAudio {
			return nil, track, nil
		}
		return track, nil, nil
	}

	video = highestBandwidth(m.VideoTracks())
	audio = highestBandwidth(m.AudioTracks())

	if video == nil && audio == nil {
		return nil, nil, newManifestError(KindEmpty, "no matching video or audio representation")
	}
	return video, audio, nil
}

func findByID(tracks []Track, id string) (*Track, error) {
	for i := range tracks {
		if tracks[i].ID == id {
			return &tracks[i], nil
		}
	}
	return nil, newManifestError(KindEmpty, "representation id not found: "+id)
}

func highestBandwidth(tracks []Track) *Track {
	if len(tracks) == 0 {
		return nil
	}
	best := &tracks[0]
	for i := 1; i < len(tracks); i++ {
		if tracks[i].Bandwidth > best.Bandwidth {
			best = &tracks[i]
		}
	}
	return best
}
