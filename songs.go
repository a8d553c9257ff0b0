package main

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// videoIDPattern matches the recognized YouTube URL shapes (watch?v=,
// youtu.be/, embed/, v/, u/<letter>/) and captures the video id that
// follows. Anything that does not yield an 11-character id is rejected.
var videoIDPattern = regexp.MustCompile(`^.*(?:youtu\.be/|v/|u/\w/|embed/|watch\?v=|&v=)([^#&?]*).*$`)

const videoIDLength = 11

// SongEntry is one accepted song. Immutable once it enters the room's list.
type SongEntry struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Artist    string `json:"artist"`
	VideoID   string `json:"video_id"`
	Thumbnail string `json:"thumbnail"`
	PlayerID  string `json:"player_id"`
}

// extractVideoID pulls the canonical 11-character video id out of a
// submitted URL, or returns errInvalidURL.
func extractVideoID(url string) (string, error) {
	match := videoIDPattern.FindStringSubmatch(url)
	if match == nil || len(match[1]) != videoIDLength {
		return "", errInvalidURL
	}
	return match[1], nil
}

// validateSong checks a proposed song against a snapshot of the room's
// accepted entries. Duplicate detection is room-wide: a canonical video id
// or a case-insensitively equal title already accepted by any player fails
// with errDuplicateSong. Pure; the caller owns atomic insertion.
func validateSong(url, title, artist, playerID string, accepted []SongEntry) (SongEntry, error) {
	videoID, err := extractVideoID(url)
	if err != nil {
		return SongEntry{}, err
	}

	normalized := strings.ToLower(title)
	for _, entry := range accepted {
		if entry.VideoID == videoID || strings.ToLower(entry.Title) == normalized {
			return SongEntry{}, errDuplicateSong
		}
	}

	return SongEntry{
		ID:        uuid.NewString(),
		Title:     title,
		Artist:    artist,
		VideoID:   videoID,
		Thumbnail: fmt.Sprintf("https://img.youtube.com/vi/%s/0.jpg", videoID),
		PlayerID:  playerID,
	}, nil
}
