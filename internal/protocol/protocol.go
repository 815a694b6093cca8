package protocol

import (
	"encoding/json"
	"fmt"
)

// Envelope is the wire frame every room and queue message travels in.
type Envelope struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Inbound actions (room channel).
const (
	ActionPlayerAssigned = "player_assigned"
	ActionLobbyState     = "lobby_state"
	ActionGameState      = "game_state"
	ActionError          = "error"
)

// Inbound actions (queue channel).
const (
	ActionMatchFound  = "match_found"
	ActionQueueStatus = "queue_status"
)

// Outbound actions.
const (
	ActionAssignColor = "assign_color"
	ActionPlayerReady = "player_ready"
	ActionStartGame   = "start_game"
	ActionMove        = "move"
)

// Player colors as they appear on the wire.
const (
	ColorWhite     = "white"
	ColorBlack     = "black"
	ColorSpectator = "spectator"
	ColorRandom    = "random" // assign_color only
)

// Lobby game types.
const (
	GameTypeCasual = "casual"
	GameTypeRanked = "ranked"
)

// Game status values pushed by the authority.
const (
	StatusWaiting    = "waiting"
	StatusInProgress = "in_progress"
	StatusCheckmate  = "checkmate"
	StatusStalemate  = "stalemate"
	StatusDraw       = "draw"
)

// Terminal reports whether a game status means no further moves are possible.
func Terminal(status string) bool {
	switch status {
	case StatusWaiting, StatusInProgress:
		return false
	}
	return true
}

// Move is the outbound move payload. Promotion is set only when a pawn
// reaches its last rank.
type Move struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
}

type AssignColorPayload struct {
	Color string `json:"color"`
}

// Inbound is the closed set of decoded server messages.
type Inbound interface{ isInbound() }

type PlayerAssigned struct {
	Color string `json:"color"`
}

func (PlayerAssigned) isInbound() {}

type LobbyState struct {
	GameType    string `json:"game_type"`
	IsHost      bool   `json:"is_host"`
	PlayerCount int    `json:"player_count"`
	GuestReady  bool   `json:"guest_ready"`
	HostReady   bool   `json:"host_ready"`
	HostColor   string `json:"host_color,omitempty"`
}

func (LobbyState) isInbound() {}

type GameState struct {
	FEN        string `json:"fen"`
	GameStatus string `json:"game_status"`
}

func (GameState) isInbound() {}

type ServerError struct {
	Message string `json:"message"`
}

func (ServerError) isInbound() {}

type MatchFound struct {
	RoomID string `json:"roomID"`
	Color  string `json:"color,omitempty"`
}

func (MatchFound) isInbound() {}

type QueueStatus struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (QueueStatus) isInbound() {}

// Unknown covers any action outside the vocabulary. Handlers must treat it
// as a no-op, never as a failure.
type Unknown struct {
	Action string
}

func (Unknown) isInbound() {}

// Decode parses a raw frame into its typed inbound variant. An action
// outside the vocabulary decodes to Unknown; a frame or payload that does
// not parse returns an error and no variant.
func Decode(data []byte) (Inbound, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	switch env.Action {
	case ActionPlayerAssigned:
		return decodePayload[PlayerAssigned](env)
	case ActionLobbyState:
		return decodePayload[LobbyState](env)
	case ActionGameState:
		return decodePayload[GameState](env)
	case ActionError:
		return decodePayload[ServerError](env)
	case ActionMatchFound:
		return decodePayload[MatchFound](env)
	case ActionQueueStatus:
		return decodePayload[QueueStatus](env)
	default:
		return Unknown{Action: env.Action}, nil
	}
}

func decodePayload[T Inbound](env Envelope) (Inbound, error) {
	var p T
	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", env.Action, err)
		}
	}
	return p, nil
}

// Encode frames an outbound action and payload.
func Encode(action string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", action, err)
	}
	return json.Marshal(Envelope{Action: action, Payload: raw})
}
