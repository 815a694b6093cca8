package board

import (
	"errors"
	"strings"
)

// StartFEN is the standard initial position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

var ErrBadFEN = errors.New("malformed fen")
var ErrBadSquare = errors.New("malformed square")

// The client treats a FEN as an opaque authoritative string. The only fields
// it ever reads are piece placement (to spot a promoting pawn) and side to
// move (to guard out-of-turn drags). It never judges legality.

// ValidSquare reports whether s is a two-character file+rank identifier.
func ValidSquare(s string) bool {
	if len(s) != 2 {
		return false
	}
	return s[0] >= 'a' && s[0] <= 'h' && s[1] >= '1' && s[1] <= '8'
}

// SideToMove reads the second FEN field and returns "white" or "black".
func SideToMove(fen string) (string, error) {
	fields := strings.Fields(fen)
	if len(fields) < 2 {
		return "", ErrBadFEN
	}
	switch fields[1] {
	case "w":
		return "white", nil
	case "b":
		return "black", nil
	}
	return "", ErrBadFEN
}

// PieceAt returns the piece on a square as its FEN letter (upper case white,
// lower case black), or 0 for an empty square.
func PieceAt(fen, square string) (byte, error) {
	if !ValidSquare(square) {
		return 0, ErrBadSquare
	}
	placement, _, _ := strings.Cut(fen, " ")
	ranks := strings.Split(placement, "/")
	if len(ranks) != 8 {
		return 0, ErrBadFEN
	}

	file := int(square[0] - 'a')
	rank := ranks[7-(square[1]-'1')] // FEN lists rank 8 first

	col := 0
	for i := 0; i < len(rank); i++ {
		c := rank[i]
		if c >= '1' && c <= '8' {
			col += int(c - '0')
			continue
		}
		if col == file {
			return c, nil
		}
		col++
	}
	return 0, nil
}

// PromotionRequired reports whether moving the given piece from one square to
// another is a pawn reaching its last rank. piece is a FEN letter as returned
// by PieceAt.
func PromotionRequired(piece byte, from, to string) bool {
	if !ValidSquare(from) || !ValidSquare(to) {
		return false
	}
	switch piece {
	case 'P':
		return from[1] == '7' && to[1] == '8'
	case 'p':
		return from[1] == '2' && to[1] == '1'
	}
	return false
}

// ValidPromotion reports whether the chosen piece kind may be promoted to.
func ValidPromotion(choice string) bool {
	switch strings.ToLower(choice) {
	case "q", "r", "b", "n":
		return true
	}
	return false
}
