// Package servertest provides a loopback game server for tests, in the spirit
// of net/http/httptest: it accepts client connections, decodes their frames
// and hands each one to a Handler, which answers through the Conn.
package servertest

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/cyberinferno/sudoku-client/idgenerator"
	"github.com/cyberinferno/sudoku-client/logger"
	"github.com/cyberinferno/sudoku-client/protocol"
	"github.com/cyberinferno/sudoku-client/safemap"
)

// Handler is called, on the connection's goroutine, for every frame a client
// sends.
type Handler func(conn *Conn, frame protocol.Frame)

// Server is a game server listening on a loopback address.
type Server struct {
	Logger      logger.Logger
	Listener    net.Listener
	Conns       *safemap.SafeMap[uint32, *Conn]
	Running     atomic.Bool
	Handler     Handler
	IdGenerator *idgenerator.IdGenerator

	accepted chan *Conn
}

// NewServer starts a server on 127.0.0.1 with an ephemeral port. It panics if
// it cannot listen. Call Close when done.
//
// Parameters:
//   - handler: Answers client frames; may be nil for a server that only
//     pushes notifications
//
// Returns:
//   - A running Server
func NewServer(handler Handler) *Server {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		panic(fmt.Sprintf("servertest: failed to listen: %v", err))
	}

	s := &Server{
		Logger:      logger.NewNopLogger(),
		Listener:    ln,
		Conns:       safemap.NewSafeMap[uint32, *Conn](),
		Handler:     handler,
		IdGenerator: idgenerator.NewIdGenerator(0),
		accepted:    make(chan *Conn, 16),
	}

	s.Running.Store(true)
	go s.AcceptLoop()
	return s
}

// Addr returns the "host:port" clients should dial.
func (s *Server) Addr() string {
	return s.Listener.Addr().String()
}

// Close stops accepting and closes every open connection. Safe to call more
// than once.
func (s *Server) Close() {
	if !s.Running.Swap(false) {
		return
	}

	_ = s.Listener.Close()
	s.Conns.Range(func(id uint32, c *Conn) bool {
		_ = c.Close()
		return true
	})
}

// NextConn waits for the next accepted connection.
//
// Returns:
//   - The connection, or ctx.Err()
func (s *Server) NextConn(ctx context.Context) (*Conn, error) {
	select {
	case c := <-s.accepted:
		return c, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Broadcast sends a frame to every open connection.
func (s *Server) Broadcast(header protocol.Header, payload string) {
	s.Conns.Range(func(id uint32, c *Conn) bool {
		_ = c.Send(header, payload)
		return true
	})
}

// AcceptLoop accepts connections until the server is closed, running each
// one's Handle in a new goroutine.
func (s *Server) AcceptLoop() {
	for s.Running.Load() {
		nc, err := s.Listener.Accept()
		if err != nil {
			if !s.Running.Load() {
				return
			}

			s.Logger.Error("accept error", logger.Field{Key: "error", Value: err})
			continue
		}

		c := &Conn{id: s.IdGenerator.Id(), conn: nc, server: s}
		s.Conns.Store(c.id, c)
		select {
		case s.accepted <- c:
		default:
		}

		go c.Handle()
	}
}

// Conn is the server side of one client connection.
type Conn struct {
	id        uint32
	conn      net.Conn
	server    *Server
	writeMu   sync.Mutex
	closeOnce sync.Once
}

// ID returns the connection's id, assigned in accept order starting at 1.
func (c *Conn) ID() uint32 {
	return c.id
}

// Handle reads frames until the connection closes. Unrecognized frames are
// ignored.
func (c *Conn) Handle() {
	defer func() {
		_ = c.Close()
	}()

	reader := bufio.NewReader(c.conn)
	for {
		raw, err := reader.ReadBytes(protocol.Terminator)
		if err != nil {
			return
		}

		frame, err := protocol.Decode(raw)
		if err != nil {
			c.server.Logger.Warn("frame discarded", logger.Field{Key: "error", Value: err})
			continue
		}

		if c.server.Handler != nil {
			c.server.Handler(c, frame)
		}
	}
}

// Send encodes and writes one frame.
func (c *Conn) Send(header protocol.Header, payload string) error {
	data, err := protocol.Encode(header, payload)
	if err != nil {
		return err
	}

	return c.SendRaw(data)
}

// SendRaw writes bytes as they are, for garbled or split frames.
func (c *Conn) SendRaw(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, err := c.conn.Write(data)
	return err
}

// Close closes the connection and forgets it. Safe to call more than once.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.conn.Close()
		c.server.Conns.Delete(c.id)
	})

	return err
}
