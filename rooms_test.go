package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRoomCode(t *testing.T) {
	rm := newRoomManager(testConfig())

	pattern := regexp.MustCompile(`^[A-Z0-9]{6}$`)
	seen := make(map[string]bool)
	for i := 0; i < 64; i++ {
		code := rm.newRoomCode()
		assert.Regexp(t, pattern, code)
		seen[code] = true
	}
	assert.Greater(t, len(seen), 1)
}

func TestRoomManager(t *testing.T) {
	rm := newRoomManager(testConfig())

	room := rm.create("Friday Night", 4)
	summary := room.session.Summary()
	assert.Equal(t, "Friday Night", summary.Name)
	assert.Equal(t, 4, summary.MaxPlayers)
	assert.Equal(t, PhaseLobby, summary.Status)

	got, ok := rm.get(summary.ID)
	require.True(t, ok)
	assert.Same(t, room, got)

	_, ok = rm.get("ZZZZZZ")
	assert.False(t, ok)

	t.Run("defaults", func(t *testing.T) {
		room := rm.create("", 0)
		summary := room.session.Summary()
		assert.Equal(t, "Songfest", summary.Name)
		assert.Equal(t, 8, summary.MaxPlayers)
	})

	t.Run("cap clamps to server limit", func(t *testing.T) {
		room := rm.create("Big", 500)
		assert.Equal(t, 8, room.session.Summary().MaxPlayers)
	})

	assert.Len(t, rm.list(), 3)
}

func TestServeCreateRoom(t *testing.T) {
	cfg := testConfig()
	rm := newRoomManager(cfg)
	handler := serveCreateRoom(cfg, rm)

	body := strings.NewReader(`{"name":"Office Party","max_players":6}`)
	r := httptest.NewRequest(http.MethodPost, "/rooms", body)
	w := httptest.NewRecorder()
	handler(w, r, nil)

	require.Equal(t, http.StatusOK, w.Code)

	var summary RoomSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, "Office Party", summary.Name)
	assert.Equal(t, 6, summary.MaxPlayers)
	assert.Len(t, summary.ID, 6)

	_, ok := rm.get(summary.ID)
	assert.True(t, ok)
}

func TestServeRoomList(t *testing.T) {
	cfg := testConfig()
	rm := newRoomManager(cfg)
	rm.create("One", 0)
	rm.create("Two", 0)

	r := httptest.NewRequest(http.MethodGet, "/rooms", nil)
	w := httptest.NewRecorder()
	serveRoomList(cfg, rm)(w, r, nil)

	require.Equal(t, http.StatusOK, w.Code)

	var summaries []RoomSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summaries))
	assert.Len(t, summaries, 2)
}
