package main

// playbackState sequences the merged, shuffled song list. Only the host
// advances it; everyone else just receives now_playing events.
type playbackState struct {
	order []SongEntry
	byID  map[string]SongEntry
	index int
}

// startPlaybackLocked merges every player's accepted songs in join order,
// permutes them with the session's seeded generator, and cues the first one.
func (s *Session) startPlaybackLocked() []any {
	merged := s.selection.allAcceptedLocked(s.players)
	if len(merged) == 0 {
		return s.abortLocked("no songs were submitted")
	}

	s.rng.Shuffle(len(merged), func(i, j int) {
		merged[i], merged[j] = merged[j], merged[i]
	})

	byID := make(map[string]SongEntry, len(merged))
	for _, entry := range merged {
		byID[entry.ID] = entry
	}

	s.playback = &playbackState{
		order: merged,
		byID:  byID,
	}
	s.phase = PhasePlayback

	logf("ROOMS: Playback started in %s with %d songs", s.id, len(merged))
	return []any{
		PhaseChangedMessage{Type: "phase_changed", Phase: PhasePlayback},
		s.roomStateLocked(),
		s.nowPlayingLocked(),
	}
}

func (s *Session) nowPlayingLocked() NowPlayingMessage {
	return NowPlayingMessage{
		Type:  "now_playing",
		Song:  s.playback.order[s.playback.index],
		Index: s.playback.index + 1,
		Total: len(s.playback.order),
	}
}

// CurrentSong returns the song being played, with its position.
func (s *Session) CurrentSong() (SongEntry, int, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.phase != PhasePlayback {
		return SongEntry{}, 0, 0, errPhaseMismatch
	}
	return s.playback.order[s.playback.index], s.playback.index + 1, len(s.playback.order), nil
}

// Advance moves playback to the next song, or into the voting phase once
// the list is exhausted. Host only; done is true on the transition.
func (s *Session) Advance(hostID string) (SongEntry, bool, error) {
	s.mu.Lock()
	s.touchLocked()

	if s.phase != PhasePlayback {
		s.mu.Unlock()
		return SongEntry{}, false, errPhaseMismatch
	}
	caller := s.playerLocked(hostID)
	if caller == nil || !caller.Host {
		s.mu.Unlock()
		return SongEntry{}, false, errNotAuthorized
	}

	s.playback.index++
	if s.playback.index < len(s.playback.order) {
		song := s.playback.order[s.playback.index]
		events := []any{s.nowPlayingLocked()}
		s.mu.Unlock()

		s.emit(events...)
		return song, false, nil
	}

	s.playback.index = len(s.playback.order) - 1
	events, reveal := s.startVotingLocked()
	s.mu.Unlock()

	s.emit(events...)
	s.emitReveal(reveal)
	return SongEntry{}, true, nil
}
