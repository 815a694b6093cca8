package transport_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"chessclient/internal/board"
	"chessclient/internal/protocol"
	"chessclient/internal/servertest"
	"chessclient/internal/transport"
)

func nopLog() *zap.SugaredLogger { return zap.NewNop().Sugar() }

func recvEvent(t *testing.T, sink <-chan transport.Event) transport.Event {
	t.Helper()
	select {
	case ev := <-sink:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for transport event")
		return transport.Event{}
	}
}

func TestLogin(t *testing.T) {
	srv := servertest.New()
	defer srv.Close()
	srv.AddUser("a@b.c", "hunter2")
	api := transport.NewAPI(srv.URL(), nopLog())

	token, err := api.Login(context.Background(), "a@b.c", "hunter2")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	_, err = api.Login(context.Background(), "a@b.c", "wrong")
	assert.ErrorIs(t, err, transport.ErrBadCredentials)
}

func TestValidate(t *testing.T) {
	srv := servertest.New()
	defer srv.Close()
	api := transport.NewAPI(srv.URL(), nopLog())

	token := srv.IssueToken()
	elo, err := api.Validate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, 1200, elo)

	srv.RevokeToken(token)
	_, err = api.Validate(context.Background(), token)
	assert.ErrorIs(t, err, transport.ErrUnauthenticated)
}

func TestCreateRoom(t *testing.T) {
	srv := servertest.New()
	defer srv.Close()
	api := transport.NewAPI(srv.URL(), nopLog())

	roomID, err := api.CreateRoom(context.Background(), srv.IssueToken())
	require.NoError(t, err)
	assert.NotEmpty(t, roomID)
}

func TestBotMove_CarriesMoveAndPromotion(t *testing.T) {
	srv := servertest.New()
	defer srv.Close()
	api := transport.NewAPI(srv.URL(), nopLog())

	var got servertest.BotMoveRequest
	srv.SetBotFunc(func(req servertest.BotMoveRequest) (servertest.BotMoveReply, bool) {
		got = req
		return servertest.BotMoveReply{NewFEN: "after", GameStatus: protocol.StatusInProgress}, true
	})

	res, err := api.BotMove(context.Background(), "", board.StartFEN, protocol.Move{From: "e2", To: "e4"})
	require.NoError(t, err)
	assert.Equal(t, board.StartFEN, got.CurrentFEN)
	assert.Equal(t, "e2e4", got.PlayerMove)
	assert.Equal(t, "", got.PromotionPiece)
	assert.Equal(t, transport.BotMoveResult{NewFEN: "after", GameStatus: protocol.StatusInProgress}, res)

	_, err = api.BotMove(context.Background(), "", board.StartFEN, protocol.Move{From: "e7", To: "e8", Promotion: "q"})
	require.NoError(t, err)
	assert.Equal(t, "e7e8", got.PlayerMove)
	assert.Equal(t, "q", got.PromotionPiece)
}

func TestBotMove_RejectedIsTypedError(t *testing.T) {
	srv := servertest.New()
	defer srv.Close()
	api := transport.NewAPI(srv.URL(), nopLog())
	srv.SetBotFunc(func(servertest.BotMoveRequest) (servertest.BotMoveReply, bool) {
		return servertest.BotMoveReply{}, false
	})

	_, err := api.BotMove(context.Background(), "", board.StartFEN, protocol.Move{From: "e2", To: "e5"})
	var rejected *transport.RejectedMoveError
	require.ErrorAs(t, err, &rejected)
}

func TestDialRoom_DeliversFramesInOrder(t *testing.T) {
	srv := servertest.New()
	defer srv.Close()

	sink := make(chan transport.Event, 16)
	sess, err := transport.DialRoom(context.Background(), srv.URL(), "r1", srv.IssueToken(), sink, nopLog())
	require.NoError(t, err)
	defer sess.Close()

	<-srv.RoomJoined()
	require.NoError(t, srv.PushRoom("r1", protocol.ActionPlayerAssigned, protocol.PlayerAssigned{Color: protocol.ColorWhite}))
	require.NoError(t, srv.PushRoom("r1", protocol.ActionGameState, protocol.GameState{FEN: board.StartFEN, GameStatus: protocol.StatusInProgress}))

	ev := recvEvent(t, sink)
	assert.Same(t, sess, ev.Session)
	assert.Equal(t, protocol.PlayerAssigned{Color: protocol.ColorWhite}, ev.Msg)

	ev = recvEvent(t, sink)
	gs, ok := ev.Msg.(protocol.GameState)
	require.True(t, ok, "expected GameState, got %+v", ev)
	assert.Equal(t, board.StartFEN, gs.FEN)
}

func TestDialRoom_BadTokenIsConnectionError(t *testing.T) {
	srv := servertest.New()
	defer srv.Close()

	sink := make(chan transport.Event, 1)
	_, err := transport.DialRoom(context.Background(), srv.URL(), "r1", "bogus", sink, nopLog())
	var connErr *transport.ConnectionError
	require.ErrorAs(t, err, &connErr)
}

func TestSend_ReachesServer(t *testing.T) {
	srv := servertest.New()
	defer srv.Close()

	sink := make(chan transport.Event, 16)
	sess, err := transport.DialRoom(context.Background(), srv.URL(), "r1", srv.IssueToken(), sink, nopLog())
	require.NoError(t, err)
	defer sess.Close()
	<-srv.RoomJoined()

	sess.Send(protocol.ActionMove, protocol.Move{From: "e2", To: "e4"})

	select {
	case frame := <-srv.RoomFrames():
		assert.Equal(t, "r1", frame.RoomID)
		assert.Equal(t, protocol.ActionMove, frame.Env.Action)
	case <-time.After(2 * time.Second):
		t.Fatal("server never saw the move")
	}
}

func TestClose_IdempotentAndSendBecomesNoop(t *testing.T) {
	srv := servertest.New()
	defer srv.Close()

	sink := make(chan transport.Event, 16)
	sess, err := transport.DialRoom(context.Background(), srv.URL(), "r1", srv.IssueToken(), sink, nopLog())
	require.NoError(t, err)
	<-srv.RoomJoined()

	sess.Close()
	sess.Close() // second close must be safe
	sess.Send(protocol.ActionMove, protocol.Move{From: "e2", To: "e4"})

	// the read loop reports termination exactly once
	ev := recvEvent(t, sink)
	assert.True(t, ev.Closed)
}

func TestDialQueue_ReceivesQueueStatus(t *testing.T) {
	srv := servertest.New()
	defer srv.Close()

	sink := make(chan transport.Event, 16)
	sess, err := transport.DialQueue(context.Background(), srv.URL(), srv.IssueToken(), sink, nopLog())
	require.NoError(t, err)
	defer sess.Close()
	<-srv.QueueJoined()

	ev := recvEvent(t, sink)
	qs, ok := ev.Msg.(protocol.QueueStatus)
	require.True(t, ok, "expected QueueStatus, got %+v", ev)
	assert.Equal(t, "joined_queue", qs.Status)
}
