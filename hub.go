package main

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const playerCookieName = "songfest_id"

func getOrSetPlayerID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(playerCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		log.Errorf("rand.Read error: %v", err)
		return ""
	}
	id := hex.EncodeToString(buf)

	http.SetCookie(w, &http.Cookie{
		Name:     playerCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return id
}

type Client struct {
	conn     *websocket.Conn
	send     chan any
	playerID string
}

type clientAction struct {
	client *Client
	msg    ClientMessage
}

// Hub fans session events out to the room's connected clients and routes
// their messages into the session. One hub per room.
type Hub struct {
	session *Session

	mu      sync.Mutex
	clients map[*Client]bool

	register chan *Client
	unreg    chan *Client
	actions  chan clientAction
}

func newHub(session *Session) *Hub {
	h := &Hub{
		session:  session,
		clients:  make(map[*Client]bool),
		register: make(chan *Client),
		unreg:    make(chan *Client),
		actions:  make(chan clientAction),
	}
	session.notify = h.broadcast
	return h
}

func (h *Hub) run(cfg *Config) {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()

			h.sendWelcome(c)

		case c := <-h.unreg:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()

			if c.playerID != "" {
				go h.scheduleRemoval(c.playerID, cfg.playerTimeout)
			}

		case action := <-h.actions:
			h.dispatch(action)
		}
	}
}

// sendWelcome catches a (re)connecting client up on the session: role,
// room state, and whatever the active phase calls for.
func (h *Hub) sendWelcome(c *Client) {
	var existing *Player
	for _, p := range h.session.Players() {
		if p.PlayerID == c.playerID {
			player := p
			existing = &player
			break
		}
	}

	info := SessionInfoMessage{
		Type:       "session_info",
		RoomID:     h.session.id,
		Phase:      h.session.Phase(),
		IsExisting: existing != nil,
	}
	if existing != nil {
		info.IsHost = existing.Host
		info.Name = existing.Name
	}
	h.sendTo(c, info)
	h.sendTo(c, h.session.RoomState())

	switch h.session.Phase() {
	case PhasePlayback:
		if song, index, total, err := h.session.CurrentSong(); err == nil {
			h.sendTo(c, NowPlayingMessage{Type: "now_playing", Song: song, Index: index, Total: total})
		}
	case PhaseVoting:
		if snapshot, err := h.session.VotingSnapshot(c.playerID); err == nil {
			h.sendTo(c, snapshot)
		}
	case PhaseResults:
		if standings, err := h.session.FinalStandings(); err == nil {
			h.sendTo(c, FinalResultsMessage{Type: "final_results", Standings: standings})
		}
	}
}

// scheduleRemoval waits out the grace period, and if no client with this
// playerID has reconnected, removes the player from the session.
func (h *Hub) scheduleRemoval(playerID string, d time.Duration) {
	time.Sleep(d)

	h.mu.Lock()
	for client := range h.clients {
		if client.playerID == playerID {
			h.mu.Unlock()
			return
		}
	}
	h.mu.Unlock()

	_ = h.session.Leave(playerID)
}

func (h *Hub) dispatch(action clientAction) {
	c := action.client
	msg := action.msg

	var err error

	switch msg.Type {
	case "join":
		var player Player
		player, err = h.session.Join(c.playerID, msg.Name)
		if err == nil {
			h.sendTo(c, SessionInfoMessage{
				Type:       "session_info",
				RoomID:     h.session.id,
				Phase:      h.session.Phase(),
				IsExisting: true,
				IsHost:     player.Host,
				Name:       player.Name,
			})
		}
	case "leave":
		err = h.session.Leave(c.playerID)
	case "start":
		err = h.session.StartSelection(c.playerID)
	case "submit_song":
		var entry SongEntry
		entry, err = h.session.SubmitSong(c.playerID, msg.URL, msg.Title, msg.Artist)
		if err == nil {
			h.sendTo(c, SongEntryMessage{Type: "song_entry", Song: entry})
		}
	case "remove_song":
		err = h.session.RemoveSong(c.playerID, msg.SongID)
	case "complete_selection":
		err = h.session.CompleteSelection(c.playerID)
	case "advance":
		_, _, err = h.session.Advance(c.playerID)
	case "vote":
		err = h.session.AssignVote(c.playerID, msg.SongID, msg.Points)
	case "submit_ballot":
		err = h.session.SubmitBallot(c.playerID)
	case "force_reveal":
		err = h.session.ForceReveal(c.playerID)
	case "abort":
		err = h.session.Abort(c.playerID)
	default:
		// ignore unknown types
		return
	}

	if err != nil {
		h.sendTo(c, ErrorMessage{
			Type:    "error",
			Code:    errorCode(err),
			Message: err.Error(),
		})
	}
}

// broadcast delivers a session event to every connected client. After the
// voting phase opens, each client also gets their personal votable list.
func (h *Hub) broadcast(msg any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		select {
		case client.send <- msg:
		default:
			delete(h.clients, client)
			close(client.send)
		}
	}

	if changed, ok := msg.(PhaseChangedMessage); ok && changed.Phase == PhaseVoting {
		for client := range h.clients {
			snapshot, err := h.session.VotingSnapshot(client.playerID)
			if err != nil {
				continue
			}
			select {
			case client.send <- snapshot:
			default:
				delete(h.clients, client)
				close(client.send)
			}
		}
	}
}

func (h *Hub) sendTo(c *Client, msg any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.clients[c] {
		return
	}

	select {
	case c.send <- msg:
	default:
		delete(h.clients, c)
		close(c.send)
	}
}

// closeAll disconnects all clients of this hub (used by the reaper).
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		close(c.send)
		_ = c.conn.Close()
		delete(h.clients, c)
	}
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		h.unreg <- c
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		h.actions <- clientAction{
			client: c,
			msg:    msg,
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// serveRoomWS upgrades a connection into the room named by :roomid.
func serveRoomWS(cfg *Config, rm *RoomManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		roomID := ps.ByName("roomid")
		if roomID == "" {
			http.Error(w, "missing room id", http.StatusBadRequest)
			return
		}

		playerID := getOrSetPlayerID(w, r)
		if playerID == "" {
			http.Error(w, "unable to assign player id", http.StatusInternalServerError)
			return
		}

		room, ok := rm.get(roomID)
		if !ok {
			http.Error(w, errRoomNotFound.Error(), http.StatusNotFound)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Errorf("upgrade error: %v", err)
			return
		}

		client := &Client{
			conn:     conn,
			send:     make(chan any, 8),
			playerID: playerID,
		}

		room.hub.register <- client

		go client.writePump()
		client.readPump(room.hub)
	}
}
