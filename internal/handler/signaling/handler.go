package signaling

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const readTimeout = 60 * time.Second

// peer is one websocket member of a room. Writes are serialized because
// relays arrive from every other member's read loop.
type peer struct {
	id      string
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (p *peer) writeJSON(v interface{}) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return p.conn.WriteJSON(v)
}

func (p *peer) ping() error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return p.conn.WriteMessage(websocket.PingMessage, nil)
}

// Handler relays WebRTC bootstrap payloads between browsers that joined
// the same room. Payloads are opaque; the server never inspects them.
type Handler struct {
	upgrader websocket.Upgrader

	mu    sync.Mutex
	rooms map[string]map[string]*peer
}

func New() *Handler {
	return &Handler{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		rooms: make(map[string]map[string]*peer),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/signaling/{room}", h.handleSignaling)
}

func (h *Handler) handleSignaling(w http.ResponseWriter, r *http.Request) {
	room := strings.TrimSpace(chi.URLParam(r, "room"))
	if room == "" {
		http.Error(w, "room is required", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[signaling] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	p := &peer{id: uuid.NewString(), conn: conn}
	others := h.join(room, p)
	defer h.leave(room, p)

	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})
	go h.pingLoop(ctx, p)

	welcome := map[string]interface{}{"type": "welcome", "self": p.id, "peers": others}
	if err := p.writeJSON(welcome); err != nil {
		log.Printf("[signaling] welcome to %s failed: %v", p.id, err)
		return
	}
	log.Printf("[signaling] peer %s joined room %s (%d already present)", p.id, room, len(others))

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Printf("[signaling] read error for %s: %v", p.id, err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))

		if !json.Valid(data) {
			continue
		}
		h.relay(room, p.id, json.RawMessage(data))
	}
}

// join registers the peer and returns the ids already in the room.
func (h *Handler) join(room string, p *peer) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	members := h.rooms[room]
	if members == nil {
		members = make(map[string]*peer)
		h.rooms[room] = members
	}

	ids := make([]string, 0, len(members))
	for id := range members {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	members[p.id] = p
	return ids
}

// leave removes the peer and drops the room once it empties.
func (h *Handler) leave(room string, p *peer) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(members, p.id)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
	log.Printf("[signaling] peer %s left room %s", p.id, room)
}

// relay forwards a payload to every other member of the room.
func (h *Handler) relay(room, from string, payload json.RawMessage) {
	h.mu.Lock()
	targets := make([]*peer, 0, len(h.rooms[room]))
	for id, member := range h.rooms[room] {
		if id != from {
			targets = append(targets, member)
		}
	}
	h.mu.Unlock()

	msg := map[string]interface{}{"type": "signal", "from": from, "payload": payload}
	for _, target := range targets {
		if err := target.writeJSON(msg); err != nil {
			log.Printf("[signaling] relay to %s failed: %v", target.id, err)
		}
	}
}

func (h *Handler) pingLoop(ctx context.Context, p *peer) {
	ticker := time.NewTicker(54 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.ping(); err != nil {
				return
			}
		}
	}
}
