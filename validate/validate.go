// Package validate checks player input before it is sent to the server.
package validate

import (
	"errors"
	"fmt"
	"strconv"
)

const (
	MaxNameLength  = 8
	MinPlayerCount = 2
	MoveLength     = 3
)

var (
	ErrNameLength     = errors.New("name must be 1 to 8 characters long")
	ErrNameCharacters = errors.New("name may contain only letters and digits")
	ErrPlayerCount    = errors.New("need a minimum of two players")
	ErrNotANumber     = errors.New("please enter a number")
	ErrMoveLength     = errors.New("a move is exactly three digits")
	ErrMoveOutOfRange = errors.New("every digit of a move must be between 1 and 9")
)

// Nickname checks a player name.
func Nickname(name string) error {
	return alnumName(name)
}

// SessionName checks the name of a game session.
func SessionName(name string) error {
	return alnumName(name)
}

func alnumName(name string) error {
	if len(name) < 1 || len(name) > MaxNameLength {
		return ErrNameLength
	}

	for _, r := range name {
		if !isASCIILetterOrDigit(r) {
			return fmt.Errorf("%w: %q", ErrNameCharacters, r)
		}
	}

	return nil
}

// PlayerCount parses the number of players for a new session.
//
// Returns:
//   - The count, or ErrNotANumber / ErrPlayerCount
func PlayerCount(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, ErrNotANumber
	}

	if n < MinPlayerCount {
		return 0, ErrPlayerCount
	}

	return n, nil
}

// Move checks a column-row-number move such as "213".
func Move(s string) error {
	if len(s) != MoveLength {
		return ErrMoveLength
	}

	for i := 0; i < len(s); i++ {
		if s[i] < '1' || s[i] > '9' {
			return ErrMoveOutOfRange
		}
	}

	return nil
}

func isASCIILetterOrDigit(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
