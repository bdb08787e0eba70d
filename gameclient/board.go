package gameclient

import "strings"

const boardSize = 9

// FormatBoard renders an 81-cell table payload as a 9x9 grid with column and
// row numbers. Payloads of any other length are returned unchanged.
func FormatBoard(cells string) string {
	if len(cells) != boardSize*boardSize {
		return cells
	}

	var b strings.Builder
	b.WriteString("    1 2 3   4 5 6   7 8 9\n")
	rule := "  +-------+-------+-------+\n"

	for row := 0; row < boardSize; row++ {
		if row%3 == 0 {
			b.WriteString(rule)
		}

		b.WriteByte(byte('1' + row))
		b.WriteString(" |")
		for col := 0; col < boardSize; col++ {
			b.WriteByte(' ')
			b.WriteByte(cells[row*boardSize+col])
			if col%3 == 2 {
				b.WriteString(" |")
			}
		}
		b.WriteByte('\n')
	}

	b.WriteString(strings.TrimSuffix(rule, "\n"))
	return b.String()
}
