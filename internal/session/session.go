package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"chessclient/internal/board"
	"chessclient/internal/config"
	"chessclient/internal/protocol"
	"chessclient/internal/transport"
)

// Mode is the controller's place in the Bot / Room / Ranked flows.
type Mode string

const (
	ModeIdle        Mode = "idle"
	ModeBotPlay     Mode = "bot"
	ModeRoomLobby   Mode = "lobby"
	ModeRoomGame    Mode = "game"
	ModeRankedQueue Mode = "queue"
)

const dialTimeout = 10 * time.Second

// UI is the render boundary. The controller tells it what to show and asks
// it exactly one question (the promotion piece); everything visual lives on
// the other side.
type UI interface {
	// RenderPosition shows an authoritative position.
	RenderPosition(fen string)
	// RenderOptimistic shows fen with the not-yet-confirmed move on top.
	RenderOptimistic(fen string, move protocol.Move)
	// Notice surfaces a non-blocking message.
	Notice(message string)
	// GameOver fires once per transition into a terminal status.
	GameOver(status string)
	LobbyUpdate(state protocol.LobbyState)
	ColorAssigned(color string)
	// PromptPromotion returns the chosen piece kind, or ok=false when the
	// user dismissed the dialog.
	PromptPromotion() (choice string, ok bool)
	// AuthRequired redirects the user to re-authenticate.
	AuthRequired()
}

// Policy covers the points where deployed servers have disagreed.
type Policy struct {
	RankedBypassesLobby bool
	AllowSpectators     bool
}

// Controller owns the session: the active channel, the mode, and the board
// reconciliation. It is a single-goroutine loop; user actions and network
// events are messages, processed one at a time, so nothing here needs a
// lock. Nothing here is fatal either; the worst outcome is idle plus a
// notice.
type Controller struct {
	inbox   chan Msg
	events  chan transport.Event
	api     *transport.API
	creds   *config.CredentialStore
	ui      UI
	log     *zap.SugaredLogger
	policy  Policy
	baseURL string

	ctx    context.Context
	cancel context.CancelFunc

	mode       Mode
	color      string
	rec        reconciler
	room       *transport.Session
	queue      *transport.Session
	roomID     string
	lobby      protocol.LobbyState
	status     string
	notified   bool // terminal notice already shown for this game
	connecting bool
	ranked     bool   // current/next room came from matchmaking
	matchColor string // color promised by match_found
	gen        int    // invalidates in-flight dials and bot requests
}

// View is a race-free copy of the interesting state, for tests and status
// displays.
type View struct {
	Mode       Mode
	Color      string
	Confirmed  string
	Pending    bool
	RoomID     string
	GameStatus string
	Lobby      protocol.LobbyState
}

func New(parent context.Context, cfg *config.Config, api *transport.API, creds *config.CredentialStore, ui UI, log *zap.SugaredLogger) *Controller {
	ctx, cancel := context.WithCancel(parent)
	c := &Controller{
		inbox:  make(chan Msg, 64),
		events: make(chan transport.Event, 64),
		api:    api,
		creds:  creds,
		ui:     ui,
		log:    log,
		policy: Policy{
			RankedBypassesLobby: cfg.RankedBypassesLobby,
			AllowSpectators:     cfg.AllowSpectators,
		},
		baseURL: cfg.ServerURL,
		ctx:     ctx,
		cancel:  cancel,
		mode:    ModeIdle,
	}
	go c.loop()
	return c
}

// Inbox is where user actions go.
func (c *Controller) Inbox() chan<- Msg { return c.inbox }

func (c *Controller) loop() {
	for {
		select {
		case <-c.ctx.Done():
			c.reset()
			return

		case m := <-c.inbox:
			if !c.handleMsg(m) {
				return
			}

		case ev := <-c.events:
			c.handleEvent(ev)
		}
	}
}

func (c *Controller) handleMsg(m Msg) bool {
	switch msg := m.(type) {
	case PlayBot:
		if !c.idle() {
			c.ui.Notice("finish the current game first")
			break
		}
		c.mode = ModeBotPlay
		c.color = protocol.ColorWhite
		c.status = protocol.StatusInProgress
		c.notified = false
		c.rec.confirm(board.StartFEN)
		c.ui.RenderPosition(board.StartFEN)

	case HostRoom:
		c.openRoomSession("", msg)

	case JoinRoom:
		c.openRoomSession(msg.RoomID, msg)

	case FindRanked:
		if !c.idle() {
			c.ui.Notice("finish the current game first")
			break
		}
		token := c.creds.Token()
		if token == "" {
			c.ui.AuthRequired()
			break
		}
		c.connecting = true
		c.gen++
		go c.dialQueue(c.gen, token)

	case CancelSearch:
		if c.mode != ModeRankedQueue {
			break
		}
		c.closeQueue()
		c.toIdle()
		c.ui.Notice("left the ranked queue")

	case ProposeMove:
		c.proposeMove(msg)

	case SetReady:
		if c.mode == ModeRoomLobby && c.room != nil {
			c.room.Send(protocol.ActionPlayerReady, struct{}{})
		}

	case StartGame:
		if c.mode == ModeRoomLobby && c.room != nil {
			c.room.Send(protocol.ActionStartGame, struct{}{})
		}

	case AssignColor:
		if c.mode != ModeRoomLobby || c.room == nil {
			break
		}
		switch msg.Color {
		case protocol.ColorWhite, protocol.ColorBlack, protocol.ColorRandom:
			c.room.Send(protocol.ActionAssignColor, protocol.AssignColorPayload{Color: msg.Color})
		default:
			c.ui.Notice("pick white, black or random")
		}

	case Leave:
		c.reset()

	case Logout:
		c.reset()
		if err := c.creds.Clear(); err != nil {
			c.log.Warnw("clear credential", "err", err)
		}

	case GetState:
		msg.Reply <- c.view()

	case Shutdown:
		c.reset()
		c.cancel()
		return false

	case connOpened:
		c.handleConnOpened(msg)

	case botMoved:
		c.handleBotMoved(msg)
	}
	return true
}

func (c *Controller) idle() bool { return c.mode == ModeIdle && !c.connecting }

// openRoomSession starts the host or join flow. Room channels are
// privileged, so a missing credential redirects to login without touching
// the network.
func (c *Controller) openRoomSession(roomID string, cause Msg) {
	if !c.idle() {
		c.ui.Notice("finish the current game first")
		return
	}
	token := c.creds.Token()
	if token == "" {
		c.ui.AuthRequired()
		return
	}
	c.connecting = true
	c.gen++
	if _, hosting := cause.(HostRoom); hosting {
		go c.createAndDialRoom(c.gen, token)
	} else {
		go c.dialRoom(c.gen, roomID, token)
	}
}

// The dial goroutines do the only blocking work in the package. They post a
// single connOpened back and never touch controller state themselves.

func (c *Controller) createAndDialRoom(gen int, token string) {
	ctx, cancel := context.WithTimeout(c.ctx, dialTimeout)
	defer cancel()
	roomID, err := c.api.CreateRoom(ctx, token)
	if err != nil {
		c.post(connOpened{gen: gen, kind: kindRoom, err: err})
		return
	}
	sess, err := transport.DialRoom(ctx, c.baseURL, roomID, token, c.events, c.log)
	c.post(connOpened{gen: gen, kind: kindRoom, sess: sess, roomID: roomID, err: err})
}

func (c *Controller) dialRoom(gen int, roomID, token string) {
	ctx, cancel := context.WithTimeout(c.ctx, dialTimeout)
	defer cancel()
	sess, err := transport.DialRoom(ctx, c.baseURL, roomID, token, c.events, c.log)
	c.post(connOpened{gen: gen, kind: kindRoom, sess: sess, roomID: roomID, err: err})
}

func (c *Controller) dialQueue(gen int, token string) {
	ctx, cancel := context.WithTimeout(c.ctx, dialTimeout)
	defer cancel()
	if _, err := c.api.Validate(ctx, token); err != nil {
		c.post(connOpened{gen: gen, kind: kindQueue, err: err})
		return
	}
	sess, err := transport.DialQueue(ctx, c.baseURL, token, c.events, c.log)
	c.post(connOpened{gen: gen, kind: kindQueue, sess: sess, err: err})
}

func (c *Controller) post(m Msg) {
	select {
	case c.inbox <- m:
	case <-c.ctx.Done():
	}
}

func (c *Controller) handleConnOpened(msg connOpened) {
	if msg.gen != c.gen || !c.connecting {
		// The user moved on while we were dialing.
		if msg.sess != nil {
			msg.sess.Close()
		}
		return
	}
	c.connecting = false

	if msg.err != nil {
		if errors.Is(msg.err, transport.ErrUnauthenticated) {
			c.ui.AuthRequired()
		} else {
			c.ui.Notice(msg.err.Error())
		}
		c.toIdle()
		return
	}

	switch msg.kind {
	case kindQueue:
		c.queue = msg.sess
		c.mode = ModeRankedQueue

	case kindRoom:
		c.room = msg.sess
		c.roomID = msg.roomID
		c.rec = reconciler{}
		c.status = protocol.StatusWaiting
		c.notified = false
		if c.ranked && c.policy.RankedBypassesLobby {
			c.mode = ModeRoomGame
			if c.matchColor != "" {
				c.color = c.matchColor
				c.ui.ColorAssigned(c.color)
			}
		} else {
			c.mode = ModeRoomLobby
			c.color = protocol.ColorSpectator // until the authority assigns one
		}
	}
}

// proposeMove is gated by pure guards: wrong mode, spectating, a finished
// game, someone else's turn, or an outstanding move all drop the proposal
// before anything is rendered or sent.
func (c *Controller) proposeMove(m ProposeMove) {
	switch c.mode {
	case ModeBotPlay, ModeRoomGame:
	default:
		return
	}
	if c.color == protocol.ColorSpectator {
		return
	}
	if c.status != protocol.StatusInProgress {
		return
	}
	if c.rec.busy() {
		return
	}
	if !board.ValidSquare(m.From) || !board.ValidSquare(m.To) {
		return
	}
	turn, err := board.SideToMove(c.rec.confirmed)
	if err != nil || turn != c.color {
		return
	}
	piece, err := board.PieceAt(c.rec.confirmed, m.From)
	if err != nil || piece == 0 {
		return
	}

	move := protocol.Move{From: m.From, To: m.To}
	if board.PromotionRequired(piece, m.From, m.To) {
		choice := m.Promotion
		if choice == "" {
			var ok bool
			choice, ok = c.ui.PromptPromotion()
			if !ok {
				return // cancelled: nothing sent, nothing rendered
			}
		}
		if !board.ValidPromotion(choice) {
			return
		}
		move.Promotion = strings.ToLower(choice)
	}

	c.rec.propose(move)
	c.ui.RenderOptimistic(c.rec.confirmed, move)

	switch c.mode {
	case ModeBotPlay:
		gen := c.gen
		token := c.creds.Token()
		fen := c.rec.confirmed
		go func() {
			ctx, cancel := context.WithTimeout(c.ctx, dialTimeout)
			defer cancel()
			res, err := c.api.BotMove(ctx, token, fen, move)
			c.post(botMoved{gen: gen, res: res, err: err})
		}()
	case ModeRoomGame:
		c.room.Send(protocol.ActionMove, move)
	}
}

func (c *Controller) handleBotMoved(msg botMoved) {
	if msg.gen != c.gen || c.mode != ModeBotPlay || !c.rec.busy() {
		return
	}
	if msg.err != nil {
		c.ui.RenderPosition(c.rec.rollback())
		var rejected *transport.RejectedMoveError
		if errors.As(msg.err, &rejected) {
			c.ui.Notice("move rejected")
		} else {
			c.ui.Notice(msg.err.Error())
		}
		return
	}
	c.rec.confirm(msg.res.NewFEN)
	c.status = msg.res.GameStatus
	c.ui.RenderPosition(msg.res.NewFEN)
	c.fireGameOver()
}

func (c *Controller) handleEvent(ev transport.Event) {
	if ev.Session != c.room && ev.Session != c.queue {
		return // a channel we already closed or replaced
	}
	fromQueue := ev.Session == c.queue

	if ev.Closed {
		if fromQueue {
			c.queue = nil
			c.toIdle()
			c.ui.Notice("matchmaking connection closed")
		} else {
			c.room = nil
			c.toIdle()
			c.ui.Notice("disconnected from room")
		}
		return
	}

	if ev.Err != nil {
		// Malformed frame: hold the render at the confirmed position and
		// keep the channel.
		c.log.Warnw("protocol error", "err", ev.Err)
		if c.rec.busy() {
			c.ui.RenderPosition(c.rec.rollback())
		}
		c.ui.Notice("received a malformed message from the server")
		return
	}

	if fromQueue {
		c.handleQueueMsg(ev.Msg)
	} else {
		c.handleRoomMsg(ev.Msg)
	}
}

func (c *Controller) handleQueueMsg(m protocol.Inbound) {
	switch msg := m.(type) {
	case protocol.MatchFound:
		// Close must be issued before the room dial; two live channels must
		// never race to update the board.
		c.closeQueue()
		c.ranked = true
		c.matchColor = msg.Color
		c.connecting = true
		c.gen++
		go c.dialRoom(c.gen, msg.RoomID, c.creds.Token())

	case protocol.QueueStatus:
		c.ui.Notice(msg.Message)

	case protocol.ServerError:
		c.closeQueue()
		c.toIdle()
		c.ui.Notice(msg.Message)

	case protocol.Unknown:
		c.log.Infow("ignoring unknown action", "action", msg.Action)

	default:
		c.log.Debugw("ignoring unexpected queue message")
	}
}

func (c *Controller) handleRoomMsg(m protocol.Inbound) {
	switch msg := m.(type) {
	case protocol.PlayerAssigned:
		if msg.Color == protocol.ColorSpectator && !c.policy.AllowSpectators {
			c.ui.Notice("spectating is disabled")
			c.reset()
			return
		}
		c.color = msg.Color
		c.ui.ColorAssigned(msg.Color)

	case protocol.LobbyState:
		c.lobby = msg
		c.ui.LobbyUpdate(msg)
		if c.mode == ModeRoomLobby && msg.GameType == protocol.GameTypeRanked && c.policy.RankedBypassesLobby {
			c.mode = ModeRoomGame
		}

	case protocol.GameState:
		if c.mode == ModeRoomLobby {
			c.mode = ModeRoomGame // push-driven: the authority started it
		}
		c.rec.confirm(msg.FEN)
		c.status = msg.GameStatus
		c.ui.RenderPosition(msg.FEN)
		c.fireGameOver()

	case protocol.ServerError:
		if c.rec.busy() {
			c.ui.RenderPosition(c.rec.rollback())
		}
		c.ui.Notice(msg.Message) // never a mode change

	case protocol.Unknown:
		c.log.Infow("ignoring unknown action", "action", msg.Action)

	default:
		c.log.Debugw("ignoring unexpected room message")
	}
}

func (c *Controller) fireGameOver() {
	if protocol.Terminal(c.status) {
		if !c.notified {
			c.notified = true
			c.ui.GameOver(c.status)
		}
		return
	}
	c.notified = false
}

func (c *Controller) closeQueue() {
	if c.queue != nil {
		c.queue.Close()
		c.queue = nil
	}
}

func (c *Controller) closeRoom() {
	if c.room != nil {
		c.room.Close()
		c.room = nil
	}
}

// toIdle resets the mode bookkeeping. Channels are the caller's problem.
func (c *Controller) toIdle() {
	c.mode = ModeIdle
	c.connecting = false
	c.ranked = false
	c.matchColor = ""
	c.gen++ // invalidate anything still in flight
	c.color = ""
	c.status = ""
	c.roomID = ""
	c.lobby = protocol.LobbyState{}
	c.rec = reconciler{}
}

// reset is the guaranteed-release path: any open channel is closed before
// the mode changes.
func (c *Controller) reset() {
	c.closeQueue()
	c.closeRoom()
	c.toIdle()
}

func (c *Controller) view() View {
	return View{
		Mode:       c.mode,
		Color:      c.color,
		Confirmed:  c.rec.confirmed,
		Pending:    c.rec.busy(),
		RoomID:     c.roomID,
		GameStatus: c.status,
		Lobby:      c.lobby,
	}
}
