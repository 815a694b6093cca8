package session

import "chessclient/internal/protocol"

// reconciler keeps the last server-confirmed position and the single
// optimistic move allowed on top of it. The rendered board must always be
// one of exactly two things: confirmed, or confirmed plus pending.
type reconciler struct {
	confirmed string
	pending   *protocol.Move
}

func (r *reconciler) busy() bool { return r.pending != nil }

// propose records the optimistic move. It refuses a second move while one is
// outstanding; the caller must not send in that case.
func (r *reconciler) propose(m protocol.Move) bool {
	if r.pending != nil {
		return false
	}
	r.pending = &m
	return true
}

// confirm adopts the authority's position unconditionally. Acceptance and
// silent correction look identical from here: the server state wins.
func (r *reconciler) confirm(fen string) {
	r.confirmed = fen
	r.pending = nil
}

// rollback drops the optimistic move and returns the position to re-render.
func (r *reconciler) rollback() string {
	r.pending = nil
	return r.confirmed
}
