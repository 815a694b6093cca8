package session

import "chessclient/internal/transport"

// Msg is the controller's inbox vocabulary: user actions plus the results of
// network work the controller farmed out. Transport frames arrive on their
// own channel; see Controller.loop.
type Msg interface{ isSessionMsg() }

// PlayBot starts a game against the server-hosted opponent. No persistent
// channel is involved; every move is its own request.
type PlayBot struct{}

func (PlayBot) isSessionMsg() {}

// HostRoom creates a fresh room and joins it as host.
type HostRoom struct{}

func (HostRoom) isSessionMsg() {}

// JoinRoom joins an existing room as guest (or spectator, if the seats are
// taken).
type JoinRoom struct{ RoomID string }

func (JoinRoom) isSessionMsg() {}

// FindRanked enters the matchmaking queue.
type FindRanked struct{}

func (FindRanked) isSessionMsg() {}

// CancelSearch leaves the matchmaking queue. This is a normal outcome, not
// an error.
type CancelSearch struct{}

func (CancelSearch) isSessionMsg() {}

// ProposeMove is a board interaction. Promotion may carry a piece choice up
// front; when empty and the move needs one, the prompt collaborator is asked.
type ProposeMove struct {
	From      string
	To        string
	Promotion string
}

func (ProposeMove) isSessionMsg() {}

// SetReady toggles readiness in the lobby.
type SetReady struct{}

func (SetReady) isSessionMsg() {}

// StartGame asks the authority to begin the game (host only; the authority
// enforces that).
type StartGame struct{}

func (StartGame) isSessionMsg() {}

// AssignColor picks sides in the lobby: white, black or random.
type AssignColor struct{ Color string }

func (AssignColor) isSessionMsg() {}

// Leave abandons whatever is in progress and returns to idle, closing any
// open channel first.
type Leave struct{}

func (Leave) isSessionMsg() {}

// Logout is Leave plus clearing the stored credential.
type Logout struct{}

func (Logout) isSessionMsg() {}

// Shutdown stops the controller loop.
type Shutdown struct{}

func (Shutdown) isSessionMsg() {}

// GetState reflects internal state without data races; used by tests.
type GetState struct{ Reply chan View }

func (GetState) isSessionMsg() {}

type connKind int

const (
	kindRoom connKind = iota
	kindQueue
)

// connOpened is posted by a dial goroutine when the channel is up (or not).
type connOpened struct {
	gen    int
	kind   connKind
	sess   *transport.Session
	roomID string
	err    error
}

func (connOpened) isSessionMsg() {}

// botMoved is posted when a bot-mode request resolves.
type botMoved struct {
	gen int
	res transport.BotMoveResult
	err error
}

func (botMoved) isSessionMsg() {}
