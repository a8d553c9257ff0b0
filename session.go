// Songfest game session
//
// One Session is the authoritative state machine for a single room. Players
// join, each contributes a fixed number of songs, the merged list is shuffled
// and played back under host control, every player allocates the Eurovision
// point set {1-8, 10, 12} to songs other than their own, and a deterministic
// reveal sequence tallies the ballots voter by voter into final standings.
//
// Phases advance monotonically: lobby → selection → playback → voting →
// results. Every state-mutating entry point serializes on the session mutex,
// so two players racing to submit the same song resolve to exactly one
// acceptance and one duplicate failure. Events for connected clients are
// collected under the lock and emitted after it is released.

package main

import (
	"strings"
	"sync"
	"time"

	rand "math/rand/v2"
)

type Phase string

const (
	PhaseLobby     Phase = "lobby"
	PhaseSelection Phase = "selection"
	PhasePlayback  Phase = "playback"
	PhaseVoting    Phase = "voting"
	PhaseResults   Phase = "results"
	PhaseAborted   Phase = "aborted"
)

// Player holds the data we store server-side. The first player to join a
// room becomes its host.
type Player struct {
	PlayerID string
	Name     string
	Host     bool
}

type Session struct {
	id         string
	name       string
	maxPlayers int
	cfg        *Config
	rng        *rand.Rand

	// notify delivers server messages to connected clients. Set once,
	// before the session is shared; never called with the mutex held.
	notify func(msg any)

	mu         sync.RWMutex
	players    []*Player
	phase      Phase
	createdAt  time.Time
	lastActive time.Time

	selection *selectionState
	playback  *playbackState
	voting    *votingState
	results   *resultsState
}

func newSession(cfg *Config, id, name string, maxPlayers int) *Session {
	seed := cfg.seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	now := time.Now()
	return &Session{
		id:         id,
		name:       name,
		maxPlayers: maxPlayers,
		cfg:        cfg,
		rng:        rand.New(rand.NewPCG(seed, seed)),
		phase:      PhaseLobby,
		createdAt:  now,
		lastActive: now,
	}
}

func (s *Session) emit(events ...any) {
	if s.notify == nil {
		return
	}
	for _, ev := range events {
		s.notify(ev)
	}
}

// emitReveal plays out the reveal sequence. With pacing enabled the events
// go out from a separate goroutine so the submitting player's call returns
// immediately; the sequence itself is precomputed and already immutable.
func (s *Session) emitReveal(events []any) {
	if len(events) == 0 {
		return
	}
	if s.cfg.revealInterval <= 0 {
		s.emit(events...)
		return
	}

	go func() {
		for _, ev := range events {
			if _, ok := ev.(VoteRevealedMessage); ok {
				time.Sleep(s.cfg.revealInterval)
			}
			s.emit(ev)
		}
	}()
}

func (s *Session) touchLocked() {
	s.lastActive = time.Now()
}

func (s *Session) playerLocked(playerID string) *Player {
	for _, p := range s.players {
		if p.PlayerID == playerID {
			return p
		}
	}
	return nil
}

// Join adds a player to the lobby. Rejoining with a known player id is
// always allowed, so reconnects survive any phase.
func (s *Session) Join(playerID, name string) (Player, error) {
	s.mu.Lock()
	s.touchLocked()

	if p := s.playerLocked(playerID); p != nil {
		player := *p
		s.mu.Unlock()
		return player, nil
	}

	if s.phase != PhaseLobby {
		s.mu.Unlock()
		return Player{}, errPhaseMismatch
	}
	if len(s.players) >= s.maxPlayers {
		s.mu.Unlock()
		return Player{}, errRoomFull
	}
	for _, p := range s.players {
		if strings.EqualFold(p.Name, name) {
			s.mu.Unlock()
			return Player{}, errNameTaken
		}
	}

	player := &Player{
		PlayerID: playerID,
		Name:     name,
		Host:     len(s.players) == 0,
	}
	s.players = append(s.players, player)
	joined := *player
	events := []any{s.roomStateLocked()}
	s.mu.Unlock()

	logf("ROOMS: Player %q joined %s", joined.Name, s.id)
	s.emit(events...)
	return joined, nil
}

// Leave removes a player. Only their own pending sub-state is cancelled:
// an unfinished song list or an unsubmitted ballot is discarded, while
// songs already locked into playback and finalized ballots stay counted.
// If the host leaves, the oldest remaining player inherits the role.
func (s *Session) Leave(playerID string) error {
	s.mu.Lock()
	s.touchLocked()

	player := s.playerLocked(playerID)
	if player == nil {
		s.mu.Unlock()
		return errUnknownPlayer
	}

	name := player.Name
	s.removePlayerLocked(playerID)

	events := []any{s.roomStateLocked()}
	var reveal []any

	switch s.phase {
	case PhaseSelection:
		events = append(events, s.maybeFinishSelectionLocked()...)
	case PhaseVoting:
		more, rev := s.maybeFinishVotingLocked()
		events = append(events, more...)
		reveal = rev
	}
	s.mu.Unlock()

	logf("ROOMS: Player %q left %s", name, s.id)
	s.emit(events...)
	s.emitReveal(reveal)
	return nil
}

// removePlayerLocked drops the player and cascades into the active phase
// without blocking anyone else's progress. Completion checks are the
// caller's job.
func (s *Session) removePlayerLocked(playerID string) {
	player := s.playerLocked(playerID)
	if player == nil {
		return
	}

	dst := s.players[:0]
	for _, p := range s.players {
		if p.PlayerID == playerID {
			continue
		}
		dst = append(dst, p)
	}
	s.players = dst

	if player.Host && len(s.players) > 0 {
		s.players[0].Host = true
	}

	switch s.phase {
	case PhaseSelection:
		s.selection.dropPlayerLocked(playerID)
	case PhaseVoting:
		s.voting.dropPendingLocked(playerID)
	}
}

// StartSelection begins the song-selection phase. Host only.
func (s *Session) StartSelection(hostID string) error {
	s.mu.Lock()
	s.touchLocked()

	caller := s.playerLocked(hostID)
	if caller == nil || !caller.Host {
		s.mu.Unlock()
		return errNotAuthorized
	}
	if s.phase != PhaseLobby {
		s.mu.Unlock()
		return errPhaseMismatch
	}
	if len(s.players) < 2 {
		s.mu.Unlock()
		return errNotEnoughPlayers
	}

	s.phase = PhaseSelection
	s.selection = newSelectionState()
	for _, p := range s.players {
		s.armSelectionTimerLocked(p.PlayerID)
	}

	events := []any{
		PhaseChangedMessage{Type: "phase_changed", Phase: PhaseSelection},
		s.roomStateLocked(),
	}
	s.mu.Unlock()

	logf("ROOMS: Selection started in %s", s.id)
	s.emit(events...)
	return nil
}

// Abort ends the session early. Host only, and never implicit: the core
// does not abort on its own except under the configured timeout policy.
func (s *Session) Abort(hostID string) error {
	s.mu.Lock()
	s.touchLocked()

	caller := s.playerLocked(hostID)
	if caller == nil || !caller.Host {
		s.mu.Unlock()
		return errNotAuthorized
	}
	if s.phase == PhaseResults || s.phase == PhaseAborted {
		s.mu.Unlock()
		return errPhaseMismatch
	}

	events := s.abortLocked("aborted by host")
	s.mu.Unlock()

	s.emit(events...)
	return nil
}

func (s *Session) abortLocked(reason string) []any {
	if s.selection != nil {
		s.selection.stopTimersLocked()
	}
	s.phase = PhaseAborted

	logf("ROOMS: Session %s aborted: %s", s.id, reason)
	return []any{
		SessionAbortedMessage{Type: "session_aborted", Reason: reason},
	}
}

// Close releases timers when a room is reaped.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.selection != nil {
		s.selection.stopTimersLocked()
	}
}

func (s *Session) Phase() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.phase
}

func (s *Session) LastActive() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.lastActive
}

// Players returns a join-ordered snapshot.
func (s *Session) Players() []Player {
	s.mu.RLock()
	defer s.mu.RUnlock()

	players := make([]Player, 0, len(s.players))
	for _, p := range s.players {
		players = append(players, *p)
	}
	return players
}

type RoomSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Host       string `json:"host"`
	Players    int    `json:"players"`
	MaxPlayers int    `json:"max_players"`
	Status     Phase  `json:"status"`
}

func (s *Session) Summary() RoomSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	host := ""
	for _, p := range s.players {
		if p.Host {
			host = p.Name
			break
		}
	}

	return RoomSummary{
		ID:         s.id,
		Name:       s.name,
		Host:       host,
		Players:    len(s.players),
		MaxPlayers: s.maxPlayers,
		Status:     s.phase,
	}
}

// RoomState builds the broadcast snapshot clients render lobbies from.
func (s *Session) RoomState() RoomStateMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.roomStateLocked()
}

func (s *Session) roomStateLocked() RoomStateMessage {
	players := make([]PlayerState, 0, len(s.players))
	for _, p := range s.players {
		players = append(players, PlayerState{
			Name:      p.Name,
			Host:      p.Host,
			Status:    s.playerStatusLocked(p.PlayerID),
			SongCount: s.songCountLocked(p.PlayerID),
		})
	}

	return RoomStateMessage{
		Type:       "room_state",
		RoomID:     s.id,
		Name:       s.name,
		Phase:      s.phase,
		MaxPlayers: s.maxPlayers,
		Players:    players,
	}
}

func (s *Session) songCountLocked(playerID string) int {
	if s.selection == nil {
		return 0
	}
	return len(s.selection.accepted[playerID])
}

func (s *Session) playerStatusLocked(playerID string) string {
	switch s.phase {
	case PhaseLobby:
		return "waiting"
	case PhaseSelection:
		switch {
		case s.selection.skipped[playerID]:
			return "skipped"
		case s.selection.completed[playerID]:
			return "ready"
		case len(s.selection.accepted[playerID]) > 0:
			return "selecting"
		default:
			return "waiting"
		}
	case PhasePlayback:
		return "listening"
	case PhaseVoting:
		if b := s.voting.ballots[playerID]; b != nil && b.submitted {
			return "voted"
		}
		if s.voting.required[playerID] == 0 {
			return "spectating"
		}
		return "voting"
	default:
		return string(s.phase)
	}
}
