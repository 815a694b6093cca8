package transport

import (
	"errors"
	"fmt"
)

var ErrUnauthenticated = errors.New("credential rejected")
var ErrBadCredentials = errors.New("invalid credentials")

// ConnectionError means a channel could not be opened at all. It is reported
// to the user and the session falls back to idle; it is never fatal.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string { return fmt.Sprintf("connection failed: %v", e.Err) }
func (e *ConnectionError) Unwrap() error { return e.Err }

// RejectedMoveError means the authority declined a move. The client cannot
// tell an illegal move from a malformed state or a server fault, and rolls
// back uniformly.
type RejectedMoveError struct {
	Status int
}

func (e *RejectedMoveError) Error() string {
	return fmt.Sprintf("move rejected by server (status %d)", e.Status)
}
