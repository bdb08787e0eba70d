// Package session owns the TCP connection to the game server. Its receive loop
// splits the byte stream into frames and routes them: notifications to the
// notification queue, replies to the request correlator. Connection loss shuts
// both down so nothing waiting on them hangs.
package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"syscall"
	"time"

	"github.com/cyberinferno/sudoku-client/correlator"
	"github.com/cyberinferno/sudoku-client/logger"
	"github.com/cyberinferno/sudoku-client/notifier"
	"github.com/cyberinferno/sudoku-client/protocol"
)

// ConnectionState represents the current state of the connection.
type ConnectionState int

const (
	Disconnected ConnectionState = iota // Not connected yet
	Connecting                          // Dial in progress
	Connected                           // Receive loop may run
	Closed                              // Socket closed; the session cannot be reused
)

// String returns a human-readable name for the connection state.
func (cs ConnectionState) String() string {
	switch cs {
	case Disconnected:
		return "Disconnected"
	case Connecting:
		return "Connecting"
	case Connected:
		return "Connected"
	case Closed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// ConnectionStateEvent is passed to the handler registered with
// OnConnectionState.
type ConnectionStateEvent struct {
	State     ConnectionState // The new connection state
	Address   string          // The remote address
	Timestamp time.Time       // When the state change occurred
	Error     error           // Non-nil if the change was caused by an error
}

// ConnectionStateHandler is called synchronously on every state change.
type ConnectionStateHandler func(event ConnectionStateEvent)

// GameOverHandler is called from the receive loop when the server announces
// the end of a game. scores is the raw game-over payload.
type GameOverHandler func(scores string)

// Config holds the connection settings.
type Config struct {
	// Address is the "host:port" of the game server.
	Address string
	// ConnectionTimeout bounds the dial; 0 means no timeout.
	ConnectionTimeout time.Duration
	// WriteTimeout bounds each frame write; 0 means no timeout.
	WriteTimeout time.Duration
	// ReadBufferSize is the size of the buffered reader in front of the socket.
	ReadBufferSize int
}

// DefaultConfig returns a Config with default timeouts for the given address.
//
// Parameters:
//   - address: The "host:port" to connect to
//
// Returns:
//   - A Config with ConnectionTimeout 10s, WriteTimeout 10s, ReadBufferSize 4096
func DefaultConfig(address string) Config {
	return Config{
		Address:           address,
		ConnectionTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
		ReadBufferSize:    4096,
	}
}

// Session is one connection to the game server. It is safe for concurrent
// use; Send is serialized by the correlator's request lock and its own write
// lock.
type Session struct {
	config        Config
	conn          net.Conn
	log           logger.Logger
	notifications *notifier.Queue
	correlator    *correlator.Correlator

	mu                sync.RWMutex
	state             ConnectionState
	onConnectionState ConnectionStateHandler
	onGameOver        GameOverHandler

	writeMu   sync.Mutex
	closeOnce sync.Once
	done      chan struct{}
}

// Dial connects to config.Address and returns a Connected session. The
// receive loop is not started; run ReceiveLoop in its own goroutine.
//
// Parameters:
//   - ctx: Cancels the dial
//   - config: Connection settings
//   - notifications: Queue that receives the server's notifications
//   - log: Logger for connection events
//
// Returns:
//   - The session, or the dial error
func Dial(ctx context.Context, config Config, notifications *notifier.Queue, log logger.Logger) (*Session, error) {
	dialer := net.Dialer{Timeout: config.ConnectionTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", config.Address)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", config.Address, err)
	}

	return New(conn, config, notifications, log), nil
}

// New wraps an established connection.
func New(conn net.Conn, config Config, notifications *notifier.Queue, log logger.Logger) *Session {
	if config.ReadBufferSize <= 0 {
		config.ReadBufferSize = 4096
	}

	s := &Session{
		config:        config,
		conn:          conn,
		notifications: notifications,
		log:           log.With(logger.Field{Key: "component", Value: "session"}, logger.Field{Key: "addr", Value: config.Address}),
		state:         Connected,
		done:          make(chan struct{}),
	}
	s.correlator = correlator.New(s, notifications, log)
	return s
}

// OnConnectionState registers the handler for connection state changes.
// Repeated calls replace the previous handler.
func (s *Session) OnConnectionState(handler ConnectionStateHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onConnectionState = handler
}

// OnGameOver registers the handler for game-over frames. Repeated calls
// replace the previous handler.
func (s *Session) OnGameOver(handler GameOverHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onGameOver = handler
}

// State returns the current connection state.
func (s *Session) State() ConnectionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Done is closed when the receive loop has exited.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Request sends a request and waits for its reply. See correlator.Request.
func (s *Session) Request(ctx context.Context, header protocol.Header, payload string) (protocol.Frame, error) {
	return s.correlator.Request(ctx, header, payload)
}

// AwaitReply waits for the next reply without sending. See
// correlator.Await.
func (s *Session) AwaitReply(ctx context.Context) (protocol.Frame, error) {
	return s.correlator.Await(ctx)
}

// ReceiveLoop reads frames until the connection fails or is closed, then
// closes the session. It blocks; run it in its own goroutine.
func (s *Session) ReceiveLoop() {
	defer close(s.done)
	s.log.Info("receive loop started")

	reader := bufio.NewReaderSize(s.conn, s.config.ReadBufferSize)
	for {
		raw, err := reader.ReadBytes(protocol.Terminator)
		if err != nil {
			if len(raw) > 0 {
				s.log.Debug("partial frame discarded", logger.Field{Key: "bytes", Value: len(raw)})
			}

			s.logTransportError("receive", err)
			s.closeWith(err)
			return
		}

		s.route(raw)
	}
}

func (s *Session) route(raw []byte) {
	frame, err := protocol.Decode(raw)
	if err != nil {
		s.log.Warn("frame discarded", logger.Field{Key: "error", Value: err}, logger.Field{Key: "bytes", Value: len(raw)})
		return
	}

	s.log.Debug("frame received", logger.Field{Key: "header", Value: frame.Header}, logger.Field{Key: "kind", Value: frame.Kind().String()})

	switch frame.Kind() {
	case protocol.KindNotification:
		s.notifications.Push(frame.Payload)
	case protocol.KindReply:
		s.correlator.Deliver(frame)
	case protocol.KindGameOver:
		s.notifications.Push(FormatGameOver(frame.Payload))

		s.mu.RLock()
		handler := s.onGameOver
		s.mu.RUnlock()
		if handler != nil {
			handler(frame.Payload)
		}
	default:
		s.log.Warn("unexpected frame from server", logger.Field{Key: "header", Value: frame.Header})
	}
}

// FormatGameOver renders the end-of-game notification for a game-over payload.
func FormatGameOver(scores string) string {
	return fmt.Sprintf("The game has ended. %s", scores)
}

// Send writes the encoded frame. On failure the error is logged, the session
// is closed and false is returned; the connection must not be used again.
func (s *Session) Send(frame protocol.Frame) bool {
	data, err := protocol.EncodeFrame(frame)
	if err != nil {
		s.log.Error("frame not encodable", logger.Field{Key: "error", Value: err})
		return false
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.State() != Connected {
		s.log.Warn("send on closed session", logger.Field{Key: "header", Value: frame.Header})
		return false
	}

	if s.config.WriteTimeout > 0 {
		if err := s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout)); err != nil {
			s.logTransportError("send", err)
			s.closeWith(err)
			return false
		}

		defer func() {
			_ = s.conn.SetWriteDeadline(time.Time{})
		}()
	}

	if _, err := s.conn.Write(data); err != nil {
		s.logTransportError("send", err)
		s.closeWith(err)
		return false
	}

	return true
}

// Close shuts down the read side, closes the socket and shuts down the
// correlator and notification queue. A blocked ReceiveLoop returns. It is
// idempotent and safe from any goroutine.
func (s *Session) Close() error {
	return s.closeWith(nil)
}

func (s *Session) closeWith(cause error) error {
	var err error
	s.closeOnce.Do(func() {
		if cr, ok := s.conn.(interface{ CloseRead() error }); ok {
			if cerr := cr.CloseRead(); cerr != nil {
				s.log.Debug("socket was not connected", logger.Field{Key: "error", Value: cerr})
			}
		}

		err = s.conn.Close()
		s.correlator.Shutdown()
		s.setState(Closed, cause)
		s.log.Info("disconnected")
	})

	return err
}

func (s *Session) setState(state ConnectionState, err error) {
	s.mu.Lock()
	s.state = state
	handler := s.onConnectionState
	s.mu.Unlock()

	if handler != nil {
		handler(ConnectionStateEvent{
			State:     state,
			Address:   s.config.Address,
			Timestamp: time.Now(),
			Error:     err,
		})
	}
}

func (s *Session) logTransportError(op string, err error) {
	opField := logger.Field{Key: "op", Value: op}
	switch {
	case errors.Is(err, io.EOF):
		s.log.Info("server closed connection", opField)
	case errors.Is(err, net.ErrClosed):
		s.log.Debug("connection closed locally", opField)
	case errors.Is(err, syscall.ECONNRESET), errors.Is(err, syscall.EPIPE):
		s.log.Warn("connection reset by server", opField, logger.Field{Key: "error", Value: err})
	default:
		s.log.Error("connection error", opField, logger.Field{Key: "error", Value: err})
	}
}
