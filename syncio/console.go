package syncio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// Console is the raw terminal the Gate mediates. The Gate never runs two
// Writes or two Reads at once, but a Write may run while a Read is blocked.
type Console interface {
	// Write prints msg followed by a newline.
	Write(msg string) error

	// Read prints prompt and reads one line without its line ending. When
	// hidden is true the typed text is not echoed, if the input supports it.
	// It returns io.EOF when the input source is exhausted.
	Read(prompt string, hidden bool) (string, error)
}

// TerminalConsole is a Console over a line-oriented reader and a writer.
// Hidden reads use the terminal's no-echo mode when the input is a terminal.
type TerminalConsole struct {
	in  *bufio.Reader
	out io.Writer
	fd  int
	tty bool

	// readMu is held across the blocking read; writeMu only while bytes go out.
	readMu  sync.Mutex
	writeMu sync.Mutex
}

// NewTerminalConsole returns a Console reading from in and writing to out.
// If in is an *os.File attached to a terminal, hidden reads disable echo.
//
// Parameters:
//   - in: Source of the player's input (normally os.Stdin)
//   - out: Destination of prompts and messages (normally os.Stdout)
//
// Returns:
//   - A ready TerminalConsole
func NewTerminalConsole(in io.Reader, out io.Writer) *TerminalConsole {
	c := &TerminalConsole{
		in:  bufio.NewReader(in),
		out: out,
	}

	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		c.fd = int(f.Fd())
		c.tty = true
	}

	return c
}

// Write implements Console.
func (c *TerminalConsole) Write(msg string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, err := fmt.Fprintln(c.out, msg)
	return err
}

func (c *TerminalConsole) writeString(s string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, err := io.WriteString(c.out, s)
	return err
}

// Read implements Console.
func (c *TerminalConsole) Read(prompt string, hidden bool) (string, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	if prompt != "" {
		if err := c.writeString(prompt); err != nil {
			return "", err
		}
	}

	// Buffered bytes would be skipped by a direct read of the descriptor.
	if hidden && c.tty && c.in.Buffered() == 0 {
		line, err := term.ReadPassword(c.fd)
		_ = c.writeString("\n")
		if err != nil {
			return "", err
		}

		return string(line), nil
	}

	line, err := c.in.ReadString('\n')
	if err != nil && !(err == io.EOF && line != "") {
		return "", err
	}

	return strings.TrimRight(line, "\r\n"), nil
}
