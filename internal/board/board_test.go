package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidSquare(t *testing.T) {
	for _, s := range []string{"a1", "e2", "h8"} {
		assert.True(t, ValidSquare(s), s)
	}
	for _, s := range []string{"", "e", "e9", "i1", "e22", "E2"} {
		assert.False(t, ValidSquare(s), s)
	}
}

func TestSideToMove(t *testing.T) {
	turn, err := SideToMove(StartFEN)
	require.NoError(t, err)
	assert.Equal(t, "white", turn)

	turn, err = SideToMove("rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1")
	require.NoError(t, err)
	assert.Equal(t, "black", turn)

	_, err = SideToMove("rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR")
	assert.ErrorIs(t, err, ErrBadFEN)

	_, err = SideToMove("junk x - -")
	assert.ErrorIs(t, err, ErrBadFEN)
}

func TestPieceAt(t *testing.T) {
	tests := []struct {
		square string
		want   byte
	}{
		{"e2", 'P'},
		{"e7", 'p'},
		{"a1", 'R'},
		{"e8", 'k'},
		{"d8", 'q'},
		{"e4", 0},
	}
	for _, tt := range tests {
		got, err := PieceAt(StartFEN, tt.square)
		require.NoError(t, err, tt.square)
		assert.Equal(t, tt.want, got, tt.square)
	}

	_, err := PieceAt(StartFEN, "z9")
	assert.ErrorIs(t, err, ErrBadSquare)

	_, err = PieceAt("8/8 w - - 0 1", "e2")
	assert.ErrorIs(t, err, ErrBadFEN)
}

func TestPromotionRequired(t *testing.T) {
	assert.True(t, PromotionRequired('P', "e7", "e8"))
	assert.True(t, PromotionRequired('P', "a7", "b8")) // capture into the last rank
	assert.True(t, PromotionRequired('p', "e2", "e1"))

	assert.False(t, PromotionRequired('P', "e6", "e7"))
	assert.False(t, PromotionRequired('p', "e7", "e8")) // black pawns never promote on 8
	assert.False(t, PromotionRequired('Q', "e7", "e8"))
	assert.False(t, PromotionRequired('P', "x7", "e8"))
}

func TestValidPromotion(t *testing.T) {
	for _, c := range []string{"q", "r", "b", "n", "Q"} {
		assert.True(t, ValidPromotion(c), c)
	}
	for _, c := range []string{"", "k", "p", "queen"} {
		assert.False(t, ValidPromotion(c), c)
	}
}
