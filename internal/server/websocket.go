package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// wsHub tracks the live connections per room, keyed back to the player id
// each connection authenticated as on create/join.
type wsHub struct {
	mu    sync.Mutex
	rooms map[string]map[*websocket.Conn]string
}

// homeHub feeds the lobby browser with room summaries.
type homeHub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

func newWSHub() *wsHub {
	return &wsHub{
		rooms: make(map[string]map[*websocket.Conn]string),
	}
}

func newHomeHub() *homeHub {
	return &homeHub{
		conns: make(map[*websocket.Conn]struct{}),
	}
}

func (h *wsHub) Add(code string, conn *websocket.Conn, playerID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.rooms[code]
	if group == nil {
		group = make(map[*websocket.Conn]string)
		h.rooms[code] = group
	}
	group[conn] = playerID
}

func (h *wsHub) Remove(code string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.rooms[code]
	if group == nil {
		return
	}
	delete(group, conn)
	if len(group) == 0 {
		delete(h.rooms, code)
	}
}

func (h *wsHub) Send(conn *websocket.Conn, payload any) {
	if conn == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	_ = conn.WriteMessage(websocket.TextMessage, data)
}

// SendToPlayer delivers a private message to every connection the player has
// in the room (normally exactly one).
func (h *wsHub) SendToPlayer(code, playerID string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, id := range h.rooms[code] {
		if id == playerID {
			_ = conn.WriteMessage(websocket.TextMessage, data)
		}
	}
}

func (h *wsHub) Broadcast(code string, payload any) {
	h.BroadcastFiltered(code, nil, payload)
}

// BroadcastFiltered sends to members whose player id passes the filter; a nil
// filter means everyone in the room.
func (h *wsHub) BroadcastFiltered(code string, allow func(playerID string) bool, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, id := range h.rooms[code] {
		if allow != nil && !allow(id) {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			delete(h.rooms[code], conn)
			_ = conn.Close()
		}
	}
}

func (h *homeHub) Add(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn] = struct{}{}
}

func (h *homeHub) Remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, conn)
	_ = conn.Close()
}

func (h *homeHub) Broadcast(payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			delete(h.conns, conn)
			_ = conn.Close()
		}
	}
}

// session is the per-connection identity; empty until the connection issues
// create_room or join_room.
type session struct {
	roomCode string
	playerID string
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	log.Printf("ws connected remote=%s", r.RemoteAddr)
	s.readWS(conn, r.RemoteAddr)
}

func (s *Server) handleHomeWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	log.Printf("ws connected home remote=%s", r.RemoteAddr)
	s.homeWS.Add(conn)
	s.sendHome(conn)
	defer s.homeWS.Remove(conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) readWS(conn *websocket.Conn, remote string) {
	sess := &session{}
	defer func() {
		if sess.roomCode != "" {
			s.ws.Remove(sess.roomCode, conn)
			s.handleDisconnect(sess)
		}
		_ = conn.Close()
		log.Printf("ws disconnected remote=%s", remote)
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.sendError(conn, "bad json")
			continue
		}
		s.dispatch(conn, sess, remote, msg)
	}
}

func (s *Server) sendError(conn *websocket.Conn, message string) {
	s.ws.Send(conn, serverMessage{Type: "error", Data: errorPayload{Message: message}})
}

func (s *Server) sendHome(conn *websocket.Conn) {
	data, err := json.Marshal(map[string]any{"rooms": s.store.ListRoomSummaries()})
	if err != nil {
		return
	}
	_ = conn.WriteMessage(websocket.TextMessage, data)
}

func (s *Server) broadcastHomeUpdate() {
	if s.homeWS == nil {
		return
	}
	s.homeWS.Broadcast(map[string]any{"rooms": s.store.ListRoomSummaries()})
}

func (s *Server) broadcast(room *Room, msgType string, data any) {
	s.broadcastCode(room.Code, msgType, data)
}

// broadcastCode is the room-wide broadcast for callers that no longer hold a
// room reference; payloads must already be snapshots.
func (s *Server) broadcastCode(code, msgType string, data any) {
	s.ws.Broadcast(code, serverMessage{Type: msgType, Data: data})
}

func (s *Server) sendPrivate(room *Room, playerID, msgType string, data any) {
	s.ws.SendToPlayer(room.Code, playerID, serverMessage{Type: msgType, Data: data})
}

// broadcastTo reaches only the given recipient set. Callers build the set
// while still holding the room lock.
func (s *Server) broadcastTo(code string, recipients map[string]bool, msgType string, data any) {
	s.ws.BroadcastFiltered(code, func(playerID string) bool {
		return recipients[playerID]
	}, serverMessage{Type: msgType, Data: data})
}

// ghostAudience is dead players plus sessions holding the talks-to-ghosts
// capability (the medium after a completed task).
func ghostAudience(room *Room) map[string]bool {
	eligible := make(map[string]bool, len(room.Players))
	for i := range room.Players {
		p := &room.Players[i]
		if !p.IsAlive || p.hasCapability(capTalksToGhosts) {
			eligible[p.ID] = true
		}
	}
	return eligible
}

func impostorAudience(room *Room) map[string]bool {
	impostors := make(map[string]bool, len(room.Players))
	for i := range room.Players {
		if room.Players[i].Role == roleImpostor {
			impostors[room.Players[i].ID] = true
		}
	}
	return impostors
}
