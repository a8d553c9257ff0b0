package main

// Messages coming from clients
type ClientMessage struct {
	Type   string `json:"type"`              // "join", "leave", "start", "submit_song", "remove_song", "complete_selection", "advance", "vote", "submit_ballot", "force_reveal", "abort"
	Name   string `json:"name,omitempty"`    // join
	URL    string `json:"url,omitempty"`     // submit_song
	Title  string `json:"title,omitempty"`   // submit_song
	Artist string `json:"artist,omitempty"`  // submit_song
	SongID string `json:"song_id,omitempty"` // remove_song / vote
	Points int    `json:"points,omitempty"`  // vote
}

// ErrorMessage is sent only to the client whose action failed.
type ErrorMessage struct {
	Type    string `json:"type"` // "error"
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SessionInfoMessage is sent immediately on connect so the client knows
// what role this cookie has and where the game stands.
type SessionInfoMessage struct {
	Type       string `json:"type"` // "session_info"
	RoomID     string `json:"room_id"`
	Phase      Phase  `json:"phase"`
	IsExisting bool   `json:"is_existing"`
	IsHost     bool   `json:"is_host"`
	Name       string `json:"name,omitempty"`
}

// PlayerState is one row of the lobby view.
type PlayerState struct {
	Name      string `json:"name"`
	Host      bool   `json:"host"`
	Status    string `json:"status"`
	SongCount int    `json:"song_count"`
}

// RoomStateMessage is the broadcast snapshot clients render from.
type RoomStateMessage struct {
	Type       string        `json:"type"` // "room_state"
	RoomID     string        `json:"room_id"`
	Name       string        `json:"name"`
	Phase      Phase         `json:"phase"`
	MaxPlayers int           `json:"max_players"`
	Players    []PlayerState `json:"players"`
}

type PhaseChangedMessage struct {
	Type  string `json:"type"` // "phase_changed"
	Phase Phase  `json:"phase"`
}

type SongAcceptedMessage struct {
	Type   string `json:"type"` // "song_accepted"
	Player string `json:"player"`
	Count  int    `json:"count"`
	Quota  int    `json:"quota"`
}

// SongEntryMessage carries the accepted entry back to its submitter only;
// other players just see the count tick up.
type SongEntryMessage struct {
	Type string    `json:"type"` // "song_entry"
	Song SongEntry `json:"song"`
}

type SelectionTimedOutMessage struct {
	Type   string `json:"type"` // "selection_timed_out"
	Player string `json:"player"`
	Action string `json:"action"` // the configured policy: skip, eject, or abort
}

type NowPlayingMessage struct {
	Type  string    `json:"type"` // "now_playing"
	Song  SongEntry `json:"song"`
	Index int       `json:"index"`
	Total int       `json:"total"`
}

// VotingStateMessage is per-voter: the same room yields different votable
// lists because own songs are excluded.
type VotingStateMessage struct {
	Type     string      `json:"type"` // "voting_state"
	Songs    []SongEntry `json:"songs"`
	Points   []int       `json:"points"`
	Required int         `json:"required"`
}

type BallotSubmittedMessage struct {
	Type      string `json:"type"` // "ballot_submitted"
	Player    string `json:"player"`
	Submitted int    `json:"submitted"`
	Expected  int    `json:"expected"`
}

type VoteRevealedMessage struct {
	Type   string `json:"type"` // "vote_revealed"
	Voter  string `json:"voter"`
	SongID string `json:"song_id"`
	Points int    `json:"points"`
}

type LeaderboardMessage struct {
	Type      string      `json:"type"` // "leaderboard"
	Standings []SongScore `json:"standings"`
}

type FinalResultsMessage struct {
	Type      string      `json:"type"` // "final_results"
	Standings []SongScore `json:"standings"`
}

type SessionAbortedMessage struct {
	Type   string `json:"type"` // "session_aborted"
	Reason string `json:"reason"`
}
