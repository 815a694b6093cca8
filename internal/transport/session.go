package transport

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"chessclient/internal/protocol"
)

// Event is everything a live channel produces, tagged with the session that
// produced it so the consumer can drop frames from a channel it has already
// replaced. Exactly one of Msg, Err, Closed is meaningful per event.
type Event struct {
	Session *Session
	Msg     protocol.Inbound // decoded inbound frame
	Err     error            // frame that failed to decode; channel stays up
	Closed  bool             // channel terminated; Err may carry the cause
}

// Session owns one persistent bidirectional channel. All inbound frames are
// delivered onto a single sink channel in receipt order.
type Session struct {
	conn      *websocket.Conn
	log       *zap.SugaredLogger
	closed    atomic.Bool
	closeOnce sync.Once
}

// DialRoom opens the persistent channel for one room. The credential rides
// in the query string; a browser WebSocket handshake has no header channel,
// and the server expects the same shape from every client.
func DialRoom(ctx context.Context, baseURL, roomID, token string, sink chan<- Event, log *zap.SugaredLogger) (*Session, error) {
	return dial(ctx, wsURL(baseURL, "/ws/game/"+roomID, token), sink, log)
}

// DialQueue opens the transient matchmaking channel. Closing it is how the
// user cancels the search; that is not an error.
func DialQueue(ctx context.Context, baseURL, token string, sink chan<- Event, log *zap.SugaredLogger) (*Session, error) {
	return dial(ctx, wsURL(baseURL, "/ws/game/ranked", token), sink, log)
}

func dial(ctx context.Context, u string, sink chan<- Event, log *zap.SugaredLogger) (*Session, error) {
	conn, _, err := websocket.Dial(ctx, u, nil)
	if err != nil {
		return nil, &ConnectionError{Err: err}
	}
	s := &Session{conn: conn, log: log}
	go s.readLoop(sink)
	return s, nil
}

func wsURL(baseURL, path, token string) string {
	u := baseURL
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return strings.TrimRight(u, "/") + path + "?token=" + url.QueryEscape(token)
}

func (s *Session) readLoop(sink chan<- Event) {
	for {
		_, data, err := s.conn.Read(context.Background())
		if err != nil {
			sink <- Event{Session: s, Closed: true, Err: err}
			return
		}
		msg, err := protocol.Decode(data)
		if err != nil {
			sink <- Event{Session: s, Err: err}
			continue
		}
		sink <- Event{Session: s, Msg: msg}
	}
}

// Send frames and writes one outbound action. Fire-and-forget: against a
// closed channel it is a silent no-op, and a failed write is only logged.
// The next inbound frame, or its absence, is the feedback.
func (s *Session) Send(action string, payload any) {
	if s.closed.Load() {
		s.log.Debugw("send dropped, channel closed", "action", action)
		return
	}
	data, err := protocol.Encode(action, payload)
	if err != nil {
		s.log.Errorw("encode outbound", "action", action, "err", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := s.conn.Write(ctx, websocket.MessageText, data); err != nil {
		s.log.Debugw("send dropped", "action", action, "err", err)
	}
}

// Close is idempotent; always safe to call, open or not.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		_ = s.conn.Close(websocket.StatusNormalClosure, "bye")
	})
}
