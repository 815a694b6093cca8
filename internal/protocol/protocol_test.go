package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_GameState(t *testing.T) {
	msg, err := Decode([]byte(`{"action":"game_state","payload":{"fen":"8/8/8/8/8/8/8/8 w - - 0 1","game_status":"in_progress"}}`))
	require.NoError(t, err)

	gs, ok := msg.(GameState)
	require.True(t, ok, "expected GameState, got %T", msg)
	assert.Equal(t, "8/8/8/8/8/8/8/8 w - - 0 1", gs.FEN)
	assert.Equal(t, StatusInProgress, gs.GameStatus)
}

func TestDecode_PlayerAssigned(t *testing.T) {
	msg, err := Decode([]byte(`{"action":"player_assigned","payload":{"color":"black"}}`))
	require.NoError(t, err)
	assert.Equal(t, PlayerAssigned{Color: ColorBlack}, msg)
}

func TestDecode_LobbyState(t *testing.T) {
	msg, err := Decode([]byte(`{"action":"lobby_state","payload":{"game_type":"ranked","is_host":true,"player_count":2,"guest_ready":true,"host_ready":false}}`))
	require.NoError(t, err)

	ls, ok := msg.(LobbyState)
	require.True(t, ok, "expected LobbyState, got %T", msg)
	assert.Equal(t, GameTypeRanked, ls.GameType)
	assert.True(t, ls.IsHost)
	assert.Equal(t, 2, ls.PlayerCount)
	assert.True(t, ls.GuestReady)
	assert.False(t, ls.HostReady)
}

func TestDecode_QueueActions(t *testing.T) {
	msg, err := Decode([]byte(`{"action":"match_found","payload":{"roomID":"R1","color":"white"}}`))
	require.NoError(t, err)
	assert.Equal(t, MatchFound{RoomID: "R1", Color: ColorWhite}, msg)

	msg, err = Decode([]byte(`{"action":"queue_status","payload":{"status":"joined_queue","message":"Waiting for opponent..."}}`))
	require.NoError(t, err)
	assert.Equal(t, QueueStatus{Status: "joined_queue", Message: "Waiting for opponent..."}, msg)
}

func TestDecode_Error(t *testing.T) {
	msg, err := Decode([]byte(`{"action":"error","payload":{"message":"It's not your turn."}}`))
	require.NoError(t, err)
	assert.Equal(t, ServerError{Message: "It's not your turn."}, msg)
}

// An action outside the vocabulary must decode, not fail; the session logs
// and ignores it.
func TestDecode_UnknownActionIsNotAnError(t *testing.T) {
	msg, err := Decode([]byte(`{"action":"spectator_joined","payload":{"who":"x"}}`))
	require.NoError(t, err)
	assert.Equal(t, Unknown{Action: "spectator_joined"}, msg)
}

func TestDecode_EmptyPayload(t *testing.T) {
	msg, err := Decode([]byte(`{"action":"error"}`))
	require.NoError(t, err)
	assert.Equal(t, ServerError{}, msg)
}

func TestDecode_Malformed(t *testing.T) {
	_, err := Decode([]byte(`not json`))
	assert.Error(t, err)

	_, err = Decode([]byte(`{"action":"game_state","payload":"not an object"}`))
	assert.Error(t, err)
}

func TestEncode_Move(t *testing.T) {
	data, err := Encode(ActionMove, Move{From: "e7", To: "e8", Promotion: "q"})
	require.NoError(t, err)

	var env struct {
		Action  string `json:"action"`
		Payload Move   `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, ActionMove, env.Action)
	assert.Equal(t, Move{From: "e7", To: "e8", Promotion: "q"}, env.Payload)
}

func TestEncode_MoveOmitsEmptyPromotion(t *testing.T) {
	data, err := Encode(ActionMove, Move{From: "e2", To: "e4"})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "promotion")
}

func TestTerminal(t *testing.T) {
	assert.False(t, Terminal(StatusWaiting))
	assert.False(t, Terminal(StatusInProgress))
	assert.True(t, Terminal(StatusCheckmate))
	assert.True(t, Terminal(StatusStalemate))
	assert.True(t, Terminal(StatusDraw))
	assert.True(t, Terminal("resigned")) // anything not in-progress ends the game
}
