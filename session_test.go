package main

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *Config {
	return &Config{
		bind:             "127.0.0.1",
		maxPlayers:       8,
		playerTimeout:    time.Minute,
		port:             8080,
		revealInterval:   0,
		revealTrigger:    revealAll,
		seed:             1,
		selectionTimeout: time.Minute,
		sessionTimeout:   time.Hour,
		songsPerPlayer:   1,
		timeoutAction:    timeoutSkip,
	}
}

// recorder collects emitted events so tests can assert on broadcasts.
type recorder struct {
	mu     sync.Mutex
	events []any
}

func (r *recorder) notify(msg any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, msg)
}

func (r *recorder) ofType(msgType string) []any {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []any
	for _, ev := range r.events {
		switch m := ev.(type) {
		case PhaseChangedMessage:
			if msgType == "phase_changed" {
				matched = append(matched, m)
			}
		case VoteRevealedMessage:
			if msgType == "vote_revealed" {
				matched = append(matched, m)
			}
		case SelectionTimedOutMessage:
			if msgType == "selection_timed_out" {
				matched = append(matched, m)
			}
		case NowPlayingMessage:
			if msgType == "now_playing" {
				matched = append(matched, m)
			}
		case FinalResultsMessage:
			if msgType == "final_results" {
				matched = append(matched, m)
			}
		case SessionAbortedMessage:
			if msgType == "session_aborted" {
				matched = append(matched, m)
			}
		}
	}
	return matched
}

func newTestSession(cfg *Config, names ...string) (*Session, *recorder) {
	rec := &recorder{}
	s := newSession(cfg, "TEST01", "Test Room", cfg.maxPlayers)
	s.notify = rec.notify

	for i, name := range names {
		if _, err := s.Join(fmt.Sprintf("player-%d", i+1), name); err != nil {
			panic(err)
		}
	}
	return s, rec
}

// submitSongs pushes n unique songs for a player and completes their
// selection. The offset keeps ids unique across players.
func submitSongs(t *testing.T, s *Session, playerID string, n, offset int) []SongEntry {
	t.Helper()

	entries := make([]SongEntry, 0, n)
	for i := 0; i < n; i++ {
		url := fmt.Sprintf("https://www.youtube.com/watch?v=vid%08d", offset+i)
		entry, err := s.SubmitSong(playerID, url, fmt.Sprintf("Song %d", offset+i), "Artist")
		require.NoError(t, err)
		entries = append(entries, entry)
	}
	require.NoError(t, s.CompleteSelection(playerID))
	return entries
}

func TestJoin(t *testing.T) {
	t.Run("first player becomes host", func(t *testing.T) {
		s, _ := newTestSession(testConfig(), "Alice", "Bob")

		players := s.Players()
		require.Len(t, players, 2)
		assert.True(t, players[0].Host)
		assert.False(t, players[1].Host)
	})

	t.Run("room full", func(t *testing.T) {
		cfg := testConfig()
		cfg.maxPlayers = 2
		s := newSession(cfg, "TEST01", "Test Room", 2)

		_, err := s.Join("p1", "Alice")
		require.NoError(t, err)
		_, err = s.Join("p2", "Bob")
		require.NoError(t, err)
		_, err = s.Join("p3", "Carol")
		assert.ErrorIs(t, err, errRoomFull)
	})

	t.Run("name taken", func(t *testing.T) {
		s, _ := newTestSession(testConfig(), "Alice")
		_, err := s.Join("p9", "alice")
		assert.ErrorIs(t, err, errNameTaken)
	})

	t.Run("rejoin returns existing player", func(t *testing.T) {
		s, _ := newTestSession(testConfig(), "Alice")
		player, err := s.Join("player-1", "ignored")
		require.NoError(t, err)
		assert.Equal(t, "Alice", player.Name)
		assert.True(t, player.Host)
	})

	t.Run("no joining mid-game", func(t *testing.T) {
		s, _ := newTestSession(testConfig(), "Alice", "Bob")
		require.NoError(t, s.StartSelection("player-1"))

		_, err := s.Join("p9", "Carol")
		assert.ErrorIs(t, err, errPhaseMismatch)
	})
}

func TestLeave(t *testing.T) {
	t.Run("unknown player", func(t *testing.T) {
		s, _ := newTestSession(testConfig(), "Alice")
		assert.ErrorIs(t, s.Leave("nobody"), errUnknownPlayer)
	})

	t.Run("host role transfers", func(t *testing.T) {
		s, _ := newTestSession(testConfig(), "Alice", "Bob", "Carol")
		require.NoError(t, s.Leave("player-1"))

		players := s.Players()
		require.Len(t, players, 2)
		assert.Equal(t, "Bob", players[0].Name)
		assert.True(t, players[0].Host)
	})

	t.Run("leaving during selection frees duplicates", func(t *testing.T) {
		s, _ := newTestSession(testConfig(), "Alice", "Bob", "Carol")
		require.NoError(t, s.StartSelection("player-1"))

		_, err := s.SubmitSong("player-2", "https://youtu.be/WXwgZL4sgaQ", "Fairytale", "Rybak")
		require.NoError(t, err)

		// Another player picking the same song collides until Bob leaves.
		_, err = s.SubmitSong("player-3", "https://youtu.be/WXwgZL4sgaQ", "Fairytale", "Rybak")
		require.ErrorIs(t, err, errDuplicateSong)

		require.NoError(t, s.Leave("player-2"))

		_, err = s.SubmitSong("player-3", "https://youtu.be/WXwgZL4sgaQ", "Fairytale", "Rybak")
		assert.NoError(t, err)
	})
}

func TestStartSelection(t *testing.T) {
	t.Run("host only", func(t *testing.T) {
		s, _ := newTestSession(testConfig(), "Alice", "Bob")
		assert.ErrorIs(t, s.StartSelection("player-2"), errNotAuthorized)
	})

	t.Run("needs two players", func(t *testing.T) {
		s, _ := newTestSession(testConfig(), "Alice")
		assert.ErrorIs(t, s.StartSelection("player-1"), errNotEnoughPlayers)
	})

	t.Run("transitions to selection", func(t *testing.T) {
		s, rec := newTestSession(testConfig(), "Alice", "Bob")
		require.NoError(t, s.StartSelection("player-1"))

		assert.Equal(t, PhaseSelection, s.Phase())
		assert.Len(t, rec.ofType("phase_changed"), 1)
	})

	t.Run("cannot restart", func(t *testing.T) {
		s, _ := newTestSession(testConfig(), "Alice", "Bob")
		require.NoError(t, s.StartSelection("player-1"))
		assert.ErrorIs(t, s.StartSelection("player-1"), errPhaseMismatch)
	})
}

func TestAbort(t *testing.T) {
	t.Run("host only", func(t *testing.T) {
		s, _ := newTestSession(testConfig(), "Alice", "Bob")
		assert.ErrorIs(t, s.Abort("player-2"), errNotAuthorized)
	})

	t.Run("terminal", func(t *testing.T) {
		s, rec := newTestSession(testConfig(), "Alice", "Bob")
		require.NoError(t, s.Abort("player-1"))

		assert.Equal(t, PhaseAborted, s.Phase())
		assert.Len(t, rec.ofType("session_aborted"), 1)
		assert.ErrorIs(t, s.Abort("player-1"), errPhaseMismatch)
	})
}

func TestRoomStateProjection(t *testing.T) {
	cfg := testConfig()
	cfg.songsPerPlayer = 2
	s, _ := newTestSession(cfg, "Alice", "Bob")
	require.NoError(t, s.StartSelection("player-1"))

	_, err := s.SubmitSong("player-1", "https://youtu.be/vidAAAAAAAA", "One", "A")
	require.NoError(t, err)

	state := s.RoomState()
	require.Len(t, state.Players, 2)
	assert.Equal(t, "selecting", state.Players[0].Status)
	assert.Equal(t, 1, state.Players[0].SongCount)
	assert.Equal(t, "waiting", state.Players[1].Status)
}
