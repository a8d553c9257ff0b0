package main

import (
	"crypto/rand"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/julienschmidt/httprouter"
)

// Room pairs one session with the hub serving its clients.
type Room struct {
	session *Session
	hub     *Hub
}

// RoomManager holds the active rooms keyed by code. Rooms are fully
// independent: nothing mutable is shared across them.
type RoomManager struct {
	mu    sync.Mutex
	rooms map[string]*Room
	cfg   *Config
}

func newRoomManager(cfg *Config) *RoomManager {
	rm := &RoomManager{
		rooms: make(map[string]*Room),
		cfg:   cfg,
	}
	if cfg.sessionTimeout > 0 {
		go rm.reaperLoop()
	}
	return rm
}

// newRoomCode generates a 6-character room code like the ones players
// read out loud, with a server-side collision check.
func (rm *RoomManager) newRoomCode() string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	for {
		buf := make([]byte, 6)
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		out := make([]byte, 6)
		for i := range out {
			out[i] = letters[int(buf[i])%len(letters)]
		}
		code := string(out)

		rm.mu.Lock()
		_, exists := rm.rooms[code]
		rm.mu.Unlock()

		if !exists {
			return code
		}
	}
}

func (rm *RoomManager) create(name string, maxPlayers int) *Room {
	if name == "" {
		name = "Songfest"
	}
	if maxPlayers < 2 || maxPlayers > rm.cfg.maxPlayers {
		maxPlayers = rm.cfg.maxPlayers
	}

	code := rm.newRoomCode()
	session := newSession(rm.cfg, code, name, maxPlayers)
	room := &Room{
		session: session,
		hub:     newHub(session),
	}

	rm.mu.Lock()
	rm.rooms[code] = room
	rm.mu.Unlock()

	go room.hub.run(rm.cfg)

	logf("ROOMS: Created room %s (%q, max %d players)", code, name, maxPlayers)
	return room
}

func (rm *RoomManager) get(roomID string) (*Room, bool) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	room, ok := rm.rooms[roomID]
	return room, ok
}

func (rm *RoomManager) list() []RoomSummary {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	summaries := make([]RoomSummary, 0, len(rm.rooms))
	for _, room := range rm.rooms {
		summaries = append(summaries, room.session.Summary())
	}
	return summaries
}

// reaperLoop periodically removes rooms that have been idle longer than
// the session timeout.
func (rm *RoomManager) reaperLoop() {
	ticker := time.NewTicker(rm.cfg.sessionTimeout / 2)
	for range ticker.C {
		cutoff := time.Now().Add(-rm.cfg.sessionTimeout)

		rm.mu.Lock()
		for code, room := range rm.rooms {
			if room.session.LastActive().Before(cutoff) {
				delete(rm.rooms, code)
				room.session.Close()
				go room.hub.closeAll()
				logf("ROOMS: Reaped idle room %s", code)
			}
		}
		rm.mu.Unlock()
	}
}

type createRoomRequest struct {
	Name       string `json:"name"`
	MaxPlayers int    `json:"max_players"`
}

// serveRoomList returns the data a lobby browser renders: id, name, host,
// player counts, and status.
func serveRoomList(cfg *Config, rm *RoomManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		securityHeaders(cfg, w)

		if err := json.NewEncoder(w).Encode(rm.list()); err != nil {
			log.Errorf("room list encode error: %v", err)
		}
	}
}

// serveCreateRoom creates a named room with a player cap and returns its
// summary.
func serveCreateRoom(cfg *Config, rm *RoomManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var req createRoomRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		room := rm.create(req.Name, req.MaxPlayers)

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		securityHeaders(cfg, w)

		if err := json.NewEncoder(w).Encode(room.session.Summary()); err != nil {
			log.Errorf("room create encode error: %v", err)
		}
	}
}

// redirectNewRoom handles GET /room by creating a room with defaults and
// redirecting to it, for players who just want a link to share.
func redirectNewRoom(cfg *Config, rm *RoomManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		room := rm.create("", 0)
		http.Redirect(w, r, cfg.prefix+"/room/"+room.session.id, http.StatusTemporaryRedirect)
	}
}
