package main

import (
	"slices"
	"sort"
)

// Reveal is one applied ballot entry, in deterministic application order.
type Reveal struct {
	Voter  string `json:"voter"`
	SongID string `json:"song_id"`
	Points int    `json:"points"`
}

// SongScore pairs a song with its accumulated points.
type SongScore struct {
	Song   SongEntry `json:"song"`
	Points int       `json:"points"`
}

// resultsState is the terminal tally. Derived entirely from finalized
// ballots when the phase begins; never mutated afterwards.
type resultsState struct {
	reveals   []Reveal
	totals    map[string]int
	standings []SongScore
}

// beginResultsLocked applies every finalized ballot: voters in join order,
// and within a ballot point values ascending, so low scores reveal before
// the twelve. After each entry the leaderboard is stably re-sorted by
// points descending, which breaks ties by first point receipt - the song
// that reached a total earlier stays ahead. Returns the immediate events
// and the reveal sequence.
func (s *Session) beginResultsLocked() ([]any, []any) {
	s.phase = PhaseResults

	order := make([]string, 0, len(s.playback.order))
	for _, entry := range s.playback.order {
		order = append(order, entry.ID)
	}

	totals := make(map[string]int, len(order))
	var reveals []Reveal
	var sequence []any

	for _, voterID := range s.voting.order {
		ballot := s.voting.ballots[voterID]
		if ballot == nil || !ballot.submitted {
			continue
		}

		for _, points := range pointValues {
			songID, ok := ballot.points[points]
			if !ok {
				continue
			}

			totals[songID] += points
			sort.SliceStable(order, func(i, j int) bool {
				return totals[order[i]] > totals[order[j]]
			})

			reveal := Reveal{
				Voter:  s.voting.names[voterID],
				SongID: songID,
				Points: points,
			}
			reveals = append(reveals, reveal)
			sequence = append(sequence, VoteRevealedMessage{
				Type:   "vote_revealed",
				Voter:  reveal.Voter,
				SongID: reveal.SongID,
				Points: reveal.Points,
			})
		}

		sequence = append(sequence, LeaderboardMessage{
			Type:      "leaderboard",
			Standings: s.scoresLocked(order, totals),
		})
	}

	standings := s.scoresLocked(order, totals)
	s.results = &resultsState{
		reveals:   reveals,
		totals:    totals,
		standings: standings,
	}

	sequence = append(sequence, FinalResultsMessage{
		Type:      "final_results",
		Standings: standings,
	})

	logf("ROOMS: Results computed for %s (%d reveals)", s.id, len(reveals))
	events := []any{
		PhaseChangedMessage{Type: "phase_changed", Phase: PhaseResults},
		s.roomStateLocked(),
	}
	return events, sequence
}

func (s *Session) scoresLocked(order []string, totals map[string]int) []SongScore {
	scores := make([]SongScore, 0, len(order))
	for _, songID := range order {
		scores = append(scores, SongScore{
			Song:   s.playback.byID[songID],
			Points: totals[songID],
		})
	}
	return scores
}

// RevealLog returns the applied ballot entries in application order.
func (s *Session) RevealLog() ([]Reveal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.phase != PhaseResults {
		return nil, errPhaseMismatch
	}
	return slices.Clone(s.results.reveals), nil
}

// FinalStandings returns the terminal ranking, points descending with the
// first-point-receipt tie-break.
func (s *Session) FinalStandings() ([]SongScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.phase != PhaseResults {
		return nil, errPhaseMismatch
	}
	return slices.Clone(s.results.standings), nil
}
