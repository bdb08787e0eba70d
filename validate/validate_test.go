package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNickname(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"simple", "Alice", nil},
		{"digits", "bob42", nil},
		{"max length", "abcdefgh", nil},
		{"empty", "", ErrNameLength},
		{"too long", "abcdefghi", ErrNameLength},
		{"space", "Al ice", ErrNameCharacters},
		{"separator", "Al:ce", ErrNameCharacters},
		{"non ascii", "Zoë", ErrNameCharacters},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Nickname(tt.input)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSessionName(t *testing.T) {
	assert.NoError(t, SessionName("Room1"))
	assert.ErrorIs(t, SessionName("Room;1"), ErrNameCharacters)
}

func TestPlayerCount(t *testing.T) {
	n, err := PlayerCount("2")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = PlayerCount("1")
	assert.ErrorIs(t, err, ErrPlayerCount)

	_, err = PlayerCount("two")
	assert.ErrorIs(t, err, ErrNotANumber)
}

func TestMove(t *testing.T) {
	assert.NoError(t, Move("213"))
	assert.NoError(t, Move("999"))
	assert.ErrorIs(t, Move("21"), ErrMoveLength)
	assert.ErrorIs(t, Move("2134"), ErrMoveLength)
	assert.ErrorIs(t, Move("203"), ErrMoveOutOfRange)
	assert.ErrorIs(t, Move("2a3"), ErrMoveOutOfRange)
}
