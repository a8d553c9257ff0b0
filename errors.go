/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"

	"github.com/sirupsen/logrus"
)

// Validation errors are returned to the submitting player only and never
// change room state.
var (
	errInvalidURL    = errors.New("no video id could be extracted from that URL")
	errDuplicateSong = errors.New("that song or title has already been picked in this room")
	errQuotaExceeded = errors.New("song quota already reached")
	errQuotaNotMet   = errors.New("song quota not yet reached")
	errNameTaken     = errors.New("that name is already taken in this room")
)

// Authorization and ordering errors.
var (
	errNotAuthorized    = errors.New("only the host may do that")
	errOwnSongVote      = errors.New("players may not vote for their own songs")
	errInvalidPoints    = errors.New("that point value is not part of the scoring set")
	errIncompleteBallot = errors.New("assign all of your points before submitting")
	errBallotClosed     = errors.New("ballot has already been submitted")
	errPhaseMismatch    = errors.New("that action does not belong to the current phase")
	errRoomFull         = errors.New("room is full")
	errRoomNotFound     = errors.New("no such room")
	errNotEnoughPlayers = errors.New("at least two players are needed to start")
	errUnknownPlayer    = errors.New("no such player in this room")
	errUnknownSong      = errors.New("no such song in this room")
)

var log = logrus.New()

func configureLogging(cfg *Config) {
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: logDate,
	})

	if cfg.verbose {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.WarnLevel)
	}
}

func logf(format string, args ...any) {
	log.Debugf(format, args...)
}

// errorCode maps a failure onto the short code sent over the wire, so
// clients can branch without string-matching messages.
func errorCode(err error) string {
	switch {
	case errors.Is(err, errInvalidURL):
		return "invalid_url"
	case errors.Is(err, errDuplicateSong):
		return "duplicate_song"
	case errors.Is(err, errQuotaExceeded):
		return "quota_exceeded"
	case errors.Is(err, errQuotaNotMet):
		return "quota_not_met"
	case errors.Is(err, errNameTaken):
		return "name_taken"
	case errors.Is(err, errNotAuthorized):
		return "not_authorized"
	case errors.Is(err, errOwnSongVote):
		return "own_song_vote"
	case errors.Is(err, errInvalidPoints):
		return "invalid_points"
	case errors.Is(err, errIncompleteBallot):
		return "incomplete_ballot"
	case errors.Is(err, errBallotClosed):
		return "ballot_closed"
	case errors.Is(err, errPhaseMismatch):
		return "phase_mismatch"
	case errors.Is(err, errRoomFull):
		return "room_full"
	case errors.Is(err, errRoomNotFound):
		return "room_not_found"
	case errors.Is(err, errNotEnoughPlayers):
		return "not_enough_players"
	case errors.Is(err, errUnknownPlayer):
		return "unknown_player"
	case errors.Is(err, errUnknownSong):
		return "unknown_song"
	default:
		return "internal"
	}
}
