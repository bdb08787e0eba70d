// Package syncio mediates terminal input and output between the goroutines of
// the client. While a goroutine is reading a line, output from the others
// waits, so notifications never break into a prompt the player is typing at.
package syncio

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

var (
	// ErrOutputClosed is returned by Output once the output side is closed.
	ErrOutputClosed = errors.New("output pipe closed")
	// ErrInputClosed is returned by Input once the input side is closed or
	// the input source is exhausted.
	ErrInputClosed = errors.New("input pipe closed")
)

// Pipe selects the side(s) of the Gate to close.
type Pipe int

const (
	Input Pipe = iota
	Output
	Both
)

// String returns a human-readable name for the pipe.
func (p Pipe) String() string {
	switch p {
	case Input:
		return "Input"
	case Output:
		return "Output"
	case Both:
		return "Both"
	default:
		return "Unknown"
	}
}

// Option configures a Gate.
type Option func(*Gate)

// WithActivation makes Input wait for a hidden, empty read (the player
// pressing Enter) before it takes the input lock. Until then output flows
// freely.
func WithActivation(enabled bool) Option {
	return func(g *Gate) {
		g.activation = enabled
	}
}

// Gate serializes terminal access. Output waits while an Input holds the
// input lock, and Input takes the lock only once writes in progress are done.
// Closing a side is permanent. It is safe for concurrent use.
type Gate struct {
	console    Console
	activation bool

	mu           sync.Mutex
	cond         *sync.Cond
	inputHeld    bool
	writers      int
	inputClosed  bool
	outputClosed bool

	// writeMu orders Outputs; mu is never held across a console call.
	writeMu sync.Mutex
}

// NewGate wraps console.
//
// Parameters:
//   - console: The terminal to mediate
//   - opts: Optional settings such as WithActivation
//
// Returns:
//   - A Gate with both sides open
func NewGate(console Console, opts ...Option) *Gate {
	g := &Gate{console: console}
	g.cond = sync.NewCond(&g.mu)
	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Output writes msg once no Input holds the input lock. A pending activation
// read does not hold the lock, so output goes through while it waits.
//
// Returns:
//   - ErrOutputClosed if the output side is (or becomes, while waiting)
//     closed, otherwise the console's write error
func (g *Gate) Output(msg string) error {
	g.mu.Lock()
	for {
		if g.outputClosed {
			g.mu.Unlock()
			return ErrOutputClosed
		}

		if !g.inputHeld {
			break
		}

		g.cond.Wait()
	}
	g.writers++
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		g.writers--
		g.cond.Broadcast()
		g.mu.Unlock()
	}()

	g.writeMu.Lock()
	defer g.writeMu.Unlock()
	return g.console.Write(msg)
}

// Input reads one non-empty line. Output is held back from the moment the
// input lock is taken until the line has been read; empty lines are retried.
//
// Parameters:
//   - prompt: Printed before each read
//
// Returns:
//   - The line, without its line ending
//   - ErrInputClosed if the input side is closed or the input source ended
func (g *Gate) Input(prompt string) (string, error) {
	if g.Closed(Input) {
		return "", ErrInputClosed
	}

	if g.activation {
		if _, err := g.read("", true); err != nil {
			return "", err
		}
	}

	if err := g.acquire(); err != nil {
		return "", err
	}
	defer g.release()

	for {
		msg, err := g.read(prompt, false)
		if err != nil {
			return "", err
		}

		if msg != "" {
			return msg, nil
		}
	}
}

// Close permanently closes the selected side(s). It does not interrupt a read
// already in progress; outputs waiting on the input lock fail with
// ErrOutputClosed.
func (g *Gate) Close(which Pipe) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if which == Input || which == Both {
		g.inputClosed = true
	}

	if which == Output || which == Both {
		g.outputClosed = true
	}

	g.cond.Broadcast()
}

// Closed reports whether the given side is closed. For Both it reports
// whether both sides are closed.
func (g *Gate) Closed(which Pipe) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch which {
	case Input:
		return g.inputClosed
	case Output:
		return g.outputClosed
	default:
		return g.inputClosed && g.outputClosed
	}
}

func (g *Gate) acquire() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for (g.inputHeld || g.writers > 0) && !g.inputClosed {
		g.cond.Wait()
	}

	if g.inputClosed {
		return ErrInputClosed
	}

	g.inputHeld = true
	return nil
}

func (g *Gate) release() {
	g.mu.Lock()
	g.inputHeld = false
	g.cond.Broadcast()
	g.mu.Unlock()
}

func (g *Gate) read(prompt string, hidden bool) (string, error) {
	if g.Closed(Input) {
		return "", ErrInputClosed
	}

	msg, err := g.console.Read(prompt, hidden)
	if errors.Is(err, io.EOF) {
		g.Close(Input)
		return "", ErrInputClosed
	}

	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}

	return msg, nil
}
