package main

import (
	"time"
)

// selectionState tracks per-player song lists while the room collects
// submissions. All players pick concurrently, each under their own budget.
type selectionState struct {
	accepted  map[string][]SongEntry
	completed map[string]bool
	skipped   map[string]bool
	timers    map[string]*time.Timer
}

func newSelectionState() *selectionState {
	return &selectionState{
		accepted:  make(map[string][]SongEntry),
		completed: make(map[string]bool),
		skipped:   make(map[string]bool),
		timers:    make(map[string]*time.Timer),
	}
}

func (st *selectionState) allAcceptedLocked(players []*Player) []SongEntry {
	merged := make([]SongEntry, 0)
	for _, p := range players {
		merged = append(merged, st.accepted[p.PlayerID]...)
	}
	return merged
}

func (st *selectionState) stopTimerLocked(playerID string) {
	if t := st.timers[playerID]; t != nil {
		t.Stop()
		delete(st.timers, playerID)
	}
}

func (st *selectionState) stopTimersLocked() {
	for id := range st.timers {
		st.stopTimerLocked(id)
	}
}

func (st *selectionState) dropPlayerLocked(playerID string) {
	st.stopTimerLocked(playerID)
	delete(st.accepted, playerID)
	delete(st.completed, playerID)
	delete(st.skipped, playerID)
}

func (s *Session) armSelectionTimerLocked(playerID string) {
	s.selection.timers[playerID] = time.AfterFunc(s.cfg.selectionTimeout, func() {
		s.selectionExpired(playerID)
	})
}

// SubmitSong validates a proposed song against the whole room's accepted
// list and appends it to the submitter's selection.
func (s *Session) SubmitSong(playerID, url, title, artist string) (SongEntry, error) {
	s.mu.Lock()
	s.touchLocked()

	if s.phase != PhaseSelection {
		s.mu.Unlock()
		return SongEntry{}, errPhaseMismatch
	}
	player := s.playerLocked(playerID)
	if player == nil {
		s.mu.Unlock()
		return SongEntry{}, errUnknownPlayer
	}
	if s.selection.skipped[playerID] {
		s.mu.Unlock()
		return SongEntry{}, errPhaseMismatch
	}
	if len(s.selection.accepted[playerID]) >= s.cfg.songsPerPlayer {
		s.mu.Unlock()
		return SongEntry{}, errQuotaExceeded
	}

	entry, err := validateSong(url, title, artist, playerID, s.selection.allAcceptedLocked(s.players))
	if err != nil {
		s.mu.Unlock()
		return SongEntry{}, err
	}

	s.selection.accepted[playerID] = append(s.selection.accepted[playerID], entry)
	count := len(s.selection.accepted[playerID])

	events := []any{
		SongAcceptedMessage{
			Type:   "song_accepted",
			Player: player.Name,
			Count:  count,
			Quota:  s.cfg.songsPerPlayer,
		},
		s.roomStateLocked(),
	}
	s.mu.Unlock()

	logf("ROOMS: %q accepted song %q by %q in %s (%d/%d)",
		player.Name, title, artist, s.id, count, s.cfg.songsPerPlayer)
	s.emit(events...)
	return entry, nil
}

// RemoveSong takes one of the caller's own songs back out of their
// selection, re-opening their quota. Possible only until they complete.
func (s *Session) RemoveSong(playerID, songID string) error {
	s.mu.Lock()
	s.touchLocked()

	if s.phase != PhaseSelection {
		s.mu.Unlock()
		return errPhaseMismatch
	}
	if s.playerLocked(playerID) == nil {
		s.mu.Unlock()
		return errUnknownPlayer
	}
	if s.selection.completed[playerID] || s.selection.skipped[playerID] {
		s.mu.Unlock()
		return errPhaseMismatch
	}

	songs := s.selection.accepted[playerID]
	found := false
	dst := songs[:0]
	for _, entry := range songs {
		if entry.ID == songID {
			found = true
			continue
		}
		dst = append(dst, entry)
	}
	if !found {
		s.mu.Unlock()
		return errUnknownSong
	}
	s.selection.accepted[playerID] = dst

	events := []any{s.roomStateLocked()}
	s.mu.Unlock()

	s.emit(events...)
	return nil
}

// CompleteSelection locks in the caller's full song list and marks them
// ready. The phase finishes once every still-required player is ready.
func (s *Session) CompleteSelection(playerID string) error {
	s.mu.Lock()
	s.touchLocked()

	if s.phase != PhaseSelection {
		s.mu.Unlock()
		return errPhaseMismatch
	}
	player := s.playerLocked(playerID)
	if player == nil {
		s.mu.Unlock()
		return errUnknownPlayer
	}
	if s.selection.completed[playerID] || s.selection.skipped[playerID] {
		s.mu.Unlock()
		return errPhaseMismatch
	}
	if len(s.selection.accepted[playerID]) != s.cfg.songsPerPlayer {
		s.mu.Unlock()
		return errQuotaNotMet
	}

	s.selection.completed[playerID] = true
	s.selection.stopTimerLocked(playerID)

	events := []any{s.roomStateLocked()}
	events = append(events, s.maybeFinishSelectionLocked()...)
	s.mu.Unlock()

	logf("ROOMS: %q completed selection in %s", player.Name, s.id)
	s.emit(events...)
	return nil
}

// maybeFinishSelectionLocked transitions to playback once no player is
// still required to submit.
func (s *Session) maybeFinishSelectionLocked() []any {
	if s.phase != PhaseSelection {
		return nil
	}
	for _, p := range s.players {
		if !s.selection.completed[p.PlayerID] && !s.selection.skipped[p.PlayerID] {
			return nil
		}
	}

	s.selection.stopTimersLocked()
	return s.startPlaybackLocked()
}

// selectionExpired fires when a player's budget runs out. The phase only
// signals the condition; what happens next is the configured policy.
func (s *Session) selectionExpired(playerID string) {
	s.mu.Lock()

	if s.phase != PhaseSelection {
		s.mu.Unlock()
		return
	}
	player := s.playerLocked(playerID)
	if player == nil || s.selection.completed[playerID] || s.selection.skipped[playerID] {
		s.mu.Unlock()
		return
	}

	s.touchLocked()
	delete(s.selection.timers, playerID)

	events := []any{
		SelectionTimedOutMessage{
			Type:   "selection_timed_out",
			Player: player.Name,
			Action: s.cfg.timeoutAction,
		},
	}

	switch s.cfg.timeoutAction {
	case timeoutEject:
		s.removePlayerLocked(playerID)
		events = append(events, s.roomStateLocked())
		events = append(events, s.maybeFinishSelectionLocked()...)
	case timeoutAbort:
		events = append(events, s.abortLocked("selection timed out")...)
	default: // skip: stop requiring submissions, keep what was accepted
		s.selection.skipped[playerID] = true
		events = append(events, s.roomStateLocked())
		events = append(events, s.maybeFinishSelectionLocked()...)
	}
	s.mu.Unlock()

	logf("ROOMS: Selection timed out for %q in %s (%s)", player.Name, s.id, s.cfg.timeoutAction)
	s.emit(events...)
}
