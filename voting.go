package main

import (
	"slices"
)

// pointValues is the Eurovision scoring set, ascending. The missing 9 and
// 11 are part of the convention, not an oversight.
var pointValues = []int{1, 2, 3, 4, 5, 6, 7, 8, 10, 12}

// Ballot is one voter's point allocation: a bijection between a subset of
// the point values and votable songs. Immutable once submitted.
type Ballot struct {
	voterID   string
	points    map[int]string // point value -> song id
	songs     map[string]int // song id -> point value
	submitted bool
}

func newBallot(voterID string) *Ballot {
	return &Ballot{
		voterID: voterID,
		points:  make(map[int]string),
		songs:   make(map[string]int),
	}
}

// assign gives points to a song, atomically taking the value away from any
// song that held it and clearing any value the song held. Last write wins,
// mirroring how points are dragged between songs in the client.
func (b *Ballot) assign(songID string, points int) {
	if previous, ok := b.songs[songID]; ok {
		delete(b.points, previous)
		delete(b.songs, songID)
	}
	if displaced, ok := b.points[points]; ok {
		delete(b.songs, displaced)
		delete(b.points, points)
	}
	b.points[points] = songID
	b.songs[songID] = points
}

// votingState freezes the voter roster at voting start. Names are captured
// here so finalized ballots of players who later leave still reveal
// correctly attributed.
type votingState struct {
	order    []string // voter ids in join order
	names    map[string]string
	ballots  map[string]*Ballot
	votable  map[string][]SongEntry
	required map[string]int
}

// startVotingLocked opens voting. Each voter's votable list is the full
// song list minus their own contributions; the required allocation is
// capped at the votable count, so a 4-song room only uses 4 point values.
func (s *Session) startVotingLocked() ([]any, []any) {
	st := &votingState{
		names:    make(map[string]string),
		ballots:  make(map[string]*Ballot),
		votable:  make(map[string][]SongEntry),
		required: make(map[string]int),
	}

	for _, p := range s.players {
		st.order = append(st.order, p.PlayerID)
		st.names[p.PlayerID] = p.Name

		votable := make([]SongEntry, 0, len(s.playback.order))
		for _, entry := range s.playback.order {
			if entry.PlayerID == p.PlayerID {
				continue
			}
			votable = append(votable, entry)
		}
		st.votable[p.PlayerID] = votable
		st.required[p.PlayerID] = min(len(pointValues), len(votable))
	}

	s.voting = st
	s.phase = PhaseVoting

	logf("ROOMS: Voting started in %s", s.id)
	events := []any{
		PhaseChangedMessage{Type: "phase_changed", Phase: PhaseVoting},
		s.roomStateLocked(),
	}

	// Degenerate rooms where nobody has anything to vote on skip straight
	// to results.
	more, reveal := s.maybeFinishVotingLocked()
	return append(events, more...), reveal
}

// VotingSnapshot returns one voter's view: their votable songs, the point
// set, and how many values they must place.
func (s *Session) VotingSnapshot(voterID string) (VotingStateMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.phase != PhaseVoting {
		return VotingStateMessage{}, errPhaseMismatch
	}
	if s.playerLocked(voterID) == nil {
		return VotingStateMessage{}, errUnknownPlayer
	}

	return VotingStateMessage{
		Type:     "voting_state",
		Songs:    slices.Clone(s.voting.votable[voterID]),
		Points:   slices.Clone(pointValues),
		Required: s.voting.required[voterID],
	}, nil
}

// AssignVote allocates a point value to a song on the voter's open ballot.
func (s *Session) AssignVote(voterID, songID string, points int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.touchLocked()

	if s.phase != PhaseVoting {
		return errPhaseMismatch
	}
	if s.playerLocked(voterID) == nil {
		return errUnknownPlayer
	}
	entry, ok := s.playback.byID[songID]
	if !ok {
		return errUnknownSong
	}
	if entry.PlayerID == voterID {
		return errOwnSongVote
	}
	if !slices.Contains(pointValues, points) {
		return errInvalidPoints
	}

	ballot := s.voting.ballots[voterID]
	if ballot == nil {
		ballot = newBallot(voterID)
		s.voting.ballots[voterID] = ballot
	}
	if ballot.submitted {
		return errBallotClosed
	}

	ballot.assign(songID, points)
	return nil
}

// SubmitBallot finalizes the voter's allocation. Fails until every
// required point value has been placed; idempotent failures afterwards.
func (s *Session) SubmitBallot(voterID string) error {
	s.mu.Lock()
	s.touchLocked()

	if s.phase != PhaseVoting {
		s.mu.Unlock()
		return errPhaseMismatch
	}
	player := s.playerLocked(voterID)
	if player == nil {
		s.mu.Unlock()
		return errUnknownPlayer
	}

	ballot := s.voting.ballots[voterID]
	if ballot != nil && ballot.submitted {
		s.mu.Unlock()
		return errBallotClosed
	}
	if ballot == nil || len(ballot.points) != s.voting.required[voterID] {
		s.mu.Unlock()
		return errIncompleteBallot
	}

	ballot.submitted = true

	events := []any{
		BallotSubmittedMessage{
			Type:      "ballot_submitted",
			Player:    player.Name,
			Submitted: s.submittedCountLocked(),
			Expected:  s.eligibleCountLocked(),
		},
		s.roomStateLocked(),
	}
	more, reveal := s.maybeFinishVotingLocked()
	events = append(events, more...)
	s.mu.Unlock()

	logf("ROOMS: %q submitted their ballot in %s", player.Name, s.id)
	s.emit(events...)
	s.emitReveal(reveal)
	return nil
}

// ForceReveal lets the host start the reveal before every ballot is in,
// when the server runs with --reveal-trigger host. Unsubmitted ballots are
// discarded; finalized ones count.
func (s *Session) ForceReveal(hostID string) error {
	s.mu.Lock()
	s.touchLocked()

	if s.phase != PhaseVoting {
		s.mu.Unlock()
		return errPhaseMismatch
	}
	caller := s.playerLocked(hostID)
	if caller == nil || !caller.Host || s.cfg.revealTrigger != revealHost {
		s.mu.Unlock()
		return errNotAuthorized
	}

	events, reveal := s.beginResultsLocked()
	s.mu.Unlock()

	s.emit(events...)
	s.emitReveal(reveal)
	return nil
}

func (st *votingState) dropPendingLocked(voterID string) {
	if b := st.ballots[voterID]; b != nil && !b.submitted {
		delete(st.ballots, voterID)
	}
}

func (s *Session) submittedCountLocked() int {
	count := 0
	for _, b := range s.voting.ballots {
		if b.submitted {
			count++
		}
	}
	return count
}

// eligibleCountLocked counts players still present who have songs to vote
// on. Players whose own songs are the entire list owe no ballot.
func (s *Session) eligibleCountLocked() int {
	count := 0
	for _, p := range s.players {
		if s.voting.required[p.PlayerID] > 0 {
			count++
		}
	}
	return count
}

// maybeFinishVotingLocked moves to results once every present, eligible
// voter has a finalized ballot.
func (s *Session) maybeFinishVotingLocked() ([]any, []any) {
	if s.phase != PhaseVoting {
		return nil, nil
	}
	for _, p := range s.players {
		if s.voting.required[p.PlayerID] == 0 {
			continue
		}
		if b := s.voting.ballots[p.PlayerID]; b == nil || !b.submitted {
			return nil, nil
		}
	}

	return s.beginResultsLocked()
}
