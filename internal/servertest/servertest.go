// Package servertest is an in-process stand-in for the game authority. It
// speaks the real wire protocol but plays no chess: tests script the bot
// endpoint and push whatever room frames a scenario needs.
package servertest

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"

	"chessclient/internal/protocol"
)

type BotMoveRequest struct {
	CurrentFEN     string `json:"currentFen"`
	PlayerMove     string `json:"playerMove"`
	PromotionPiece string `json:"promotionPiece"`
}

type BotMoveReply struct {
	NewFEN     string `json:"newFen"`
	GameStatus string `json:"gameStatus"`
}

// BotFunc scripts the bot endpoint. ok=false rejects the move.
type BotFunc func(req BotMoveRequest) (reply BotMoveReply, ok bool)

// RoomFrame is one client-to-server envelope, tagged with its room.
type RoomFrame struct {
	RoomID string
	Env    protocol.Envelope
}

type Server struct {
	hs *httptest.Server

	mu     sync.Mutex
	users  map[string]string // email -> password
	tokens map[string]bool
	rooms  map[string][]*websocket.Conn
	queue  []*websocket.Conn
	bot    BotFunc

	roomFrames  chan RoomFrame
	roomJoined  chan string
	queueJoined chan struct{}
}

func New() *Server {
	s := &Server{
		users:       make(map[string]string),
		tokens:      make(map[string]bool),
		rooms:       make(map[string][]*websocket.Conn),
		roomFrames:  make(chan RoomFrame, 64),
		roomJoined:  make(chan string, 8),
		queueJoined: make(chan struct{}, 8),
	}

	r := chi.NewRouter()
	r.Post("/submit/login", s.handleLogin)
	r.Get("/api/validate", s.handleValidate)
	r.Post("/api/rooms/create", s.handleCreateRoom)
	r.Post("/api/bot/move", s.handleBotMove)
	r.Get("/ws/game/ranked", s.handleQueueWS)
	r.Get("/ws/game/{roomID}", s.handleRoomWS)

	s.hs = httptest.NewServer(r)
	return s
}

func (s *Server) URL() string { return s.hs.URL }

func (s *Server) Close() { s.hs.Close() }

func (s *Server) AddUser(email, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[email] = password
}

// IssueToken mints a valid credential without the login round trip.
func (s *Server) IssueToken() string {
	token := "tok-" + randomHex(8)
	s.mu.Lock()
	s.tokens[token] = true
	s.mu.Unlock()
	return token
}

// RevokeToken makes a previously issued credential invalid.
func (s *Server) RevokeToken(token string) {
	s.mu.Lock()
	delete(s.tokens, token)
	s.mu.Unlock()
}

func (s *Server) SetBotFunc(fn BotFunc) {
	s.mu.Lock()
	s.bot = fn
	s.mu.Unlock()
}

// RoomFrames yields every envelope any room client has sent.
func (s *Server) RoomFrames() <-chan RoomFrame { return s.roomFrames }

// RoomJoined signals a client connecting to a room, by room id.
func (s *Server) RoomJoined() <-chan string { return s.roomJoined }

// QueueJoined signals a client connecting to the ranked queue.
func (s *Server) QueueJoined() <-chan struct{} { return s.queueJoined }

// PushRoom broadcasts a server frame to every client in a room.
func (s *Server) PushRoom(roomID, action string, payload any) error {
	data, err := protocol.Encode(action, payload)
	if err != nil {
		return err
	}
	s.mu.Lock()
	conns := append([]*websocket.Conn(nil), s.rooms[roomID]...)
	s.mu.Unlock()
	for _, conn := range conns {
		_ = conn.Write(context.Background(), websocket.MessageText, data)
	}
	return nil
}

// PushRoomRaw sends bytes as-is; for malformed-frame scenarios.
func (s *Server) PushRoomRaw(roomID string, data []byte) {
	s.mu.Lock()
	conns := append([]*websocket.Conn(nil), s.rooms[roomID]...)
	s.mu.Unlock()
	for _, conn := range conns {
		_ = conn.Write(context.Background(), websocket.MessageText, data)
	}
}

// CloseRoom drops every server-side connection in a room, as a server
// shutdown or kick would.
func (s *Server) CloseRoom(roomID string) {
	s.mu.Lock()
	conns := append([]*websocket.Conn(nil), s.rooms[roomID]...)
	s.mu.Unlock()
	for _, conn := range conns {
		_ = conn.Close(websocket.StatusGoingAway, "room closed")
	}
}

// PushQueue broadcasts a server frame to every ranked-queue client.
func (s *Server) PushQueue(action string, payload any) error {
	data, err := protocol.Encode(action, payload)
	if err != nil {
		return err
	}
	s.mu.Lock()
	conns := append([]*websocket.Conn(nil), s.queue...)
	s.mu.Unlock()
	for _, conn := range conns {
		_ = conn.Write(context.Background(), websocket.MessageText, data)
	}
	return nil
}

// --- REST ---

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	pass, known := s.users[req.Email]
	s.mu.Unlock()
	if !known || pass != req.Password {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	token := s.IssueToken()
	writeJSON(w, map[string]string{"token": token})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	writeJSON(w, map[string]int{"elo": 1200})
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	writeJSON(w, map[string]string{"roomID": randomHex(4)})
}

func (s *Server) handleBotMove(w http.ResponseWriter, r *http.Request) {
	var req BotMoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	fn := s.bot
	s.mu.Unlock()
	if fn == nil {
		// unscripted default: accept and stand still
		writeJSON(w, BotMoveReply{NewFEN: req.CurrentFEN, GameStatus: "in_progress"})
		return
	}
	reply, ok := fn(req)
	if !ok {
		http.Error(w, "illegal move", http.StatusBadRequest)
		return
	}
	writeJSON(w, reply)
}

// --- WebSocket ---

func (s *Server) handleRoomWS(w http.ResponseWriter, r *http.Request) {
	if !s.tokenOK(r.URL.Query().Get("token")) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	roomID := chi.URLParam(r, "roomID")
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		return
	}

	s.mu.Lock()
	s.rooms[roomID] = append(s.rooms[roomID], conn)
	s.mu.Unlock()
	s.roomJoined <- roomID

	defer func() {
		s.mu.Lock()
		conns := s.rooms[roomID]
		for i, c := range conns {
			if c == conn {
				s.rooms[roomID] = append(conns[:i], conns[i+1:]...)
				break
			}
		}
		s.mu.Unlock()
		_ = conn.Close(websocket.StatusNormalClosure, "bye")
	}()

	for {
		_, data, err := conn.Read(r.Context())
		if err != nil {
			return
		}
		var env protocol.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			continue
		}
		s.roomFrames <- RoomFrame{RoomID: roomID, Env: env}
	}
}

func (s *Server) handleQueueWS(w http.ResponseWriter, r *http.Request) {
	if !s.tokenOK(r.URL.Query().Get("token")) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		return
	}

	s.mu.Lock()
	s.queue = append(s.queue, conn)
	s.mu.Unlock()
	s.queueJoined <- struct{}{}

	defer func() {
		s.mu.Lock()
		for i, c := range s.queue {
			if c == conn {
				s.queue = append(s.queue[:i], s.queue[i+1:]...)
				break
			}
		}
		s.mu.Unlock()
		_ = conn.Close(websocket.StatusNormalClosure, "bye")
	}()

	data, _ := protocol.Encode(protocol.ActionQueueStatus,
		protocol.QueueStatus{Status: "joined_queue", Message: "Waiting for opponent..."})
	_ = conn.Write(r.Context(), websocket.MessageText, data)

	// The queue has no client actions; reading only notices the close.
	for {
		if _, _, err := conn.Read(r.Context()); err != nil {
			return
		}
	}
}

func (s *Server) authorized(r *http.Request) bool {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if len(h) <= len(prefix) {
		return false
	}
	return s.tokenOK(h[len(prefix):])
}

func (s *Server) tokenOK(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens[token]
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func randomHex(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(err) // crypto/rand does not fail on supported platforms
	}
	return hex.EncodeToString(b)
}
