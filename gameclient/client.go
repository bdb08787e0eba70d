// Package gameclient drives the player's side of a Sudoku game: it reads the
// player's input, issues requests through the network session and advances
// the client state, while a second loop prints server notifications.
package gameclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/cyberinferno/sudoku-client/config"
	"github.com/cyberinferno/sudoku-client/correlator"
	"github.com/cyberinferno/sudoku-client/logger"
	"github.com/cyberinferno/sudoku-client/notifier"
	"github.com/cyberinferno/sudoku-client/protocol"
	"github.com/cyberinferno/sudoku-client/session"
	"github.com/cyberinferno/sudoku-client/syncio"
	"github.com/cyberinferno/sudoku-client/validate"
)

const inputPrompt = ">> "

// ErrConnectionLost is returned by Run when a request finds the connection to
// the server gone.
var ErrConnectionLost = errors.New("connection to the server lost")

// errQuit unwinds nested prompts when the player quits or input ends.
var errQuit = errors.New("quit")

// Session is the part of a network session the client drives.
type Session interface {
	Request(ctx context.Context, header protocol.Header, payload string) (protocol.Frame, error)
	AwaitReply(ctx context.Context) (protocol.Frame, error)
	OnGameOver(handler session.GameOverHandler)
	ReceiveLoop()
	Close() error
}

// DialFunc connects to the game server at address.
type DialFunc func(ctx context.Context, address string) (Session, error)

// SessionDialer returns a DialFunc that opens a session.Session with the
// configured timeouts, routing notifications to the given queue.
func SessionDialer(cfg config.Config, notifications *notifier.Queue, log logger.Logger) DialFunc {
	return func(ctx context.Context, address string) (Session, error) {
		sc := session.DefaultConfig(address)
		sc.ConnectionTimeout = cfg.ConnectTimeout
		sc.WriteTimeout = cfg.WriteTimeout

		s, err := session.Dial(ctx, sc, notifications, log)
		if err != nil {
			return nil, err
		}

		s.OnConnectionState(func(e session.ConnectionStateEvent) {
			log.Info("connection state changed",
				logger.Field{Key: "state", Value: e.State.String()},
				logger.Field{Key: "addr", Value: e.Address},
				logger.Field{Key: "error", Value: e.Error})
		})

		return s, nil
	}
}

// Client is the client state machine. Only the main loop (Run) and the
// game-over callback change the state, both under stateMu.
type Client struct {
	cfg           config.Config
	io            *syncio.Gate
	notifications *notifier.Queue
	dial          DialFunc
	log           logger.Logger

	stateMu sync.Mutex
	state   State
	name    string

	sessMu   sync.Mutex
	sess     Session
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New creates a client in the NeedName state.
//
// Parameters:
//   - cfg: Client settings (port, quit word)
//   - gate: The terminal, shared with the notification loop
//   - notifications: Queue the session pushes notifications to
//   - dial: Opens the connection once the player gives the server address
//   - log: Logger
//
// Returns:
//   - A new Client; call Play (or Run and NotificationsLoop) to start it
func New(cfg config.Config, gate *syncio.Gate, notifications *notifier.Queue, dial DialFunc, log logger.Logger) *Client {
	return &Client{
		cfg:           cfg,
		io:            gate,
		notifications: notifications,
		dial:          dial,
		log:           log.With(logger.Field{Key: "component", Value: "client"}),
		state:         NeedName,
	}
}

// State returns the current state.
func (c *Client) State() State {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.state
}

// Play runs the main loop and the notification loop until the main loop ends,
// then stops the client so the notification loop ends too.
func (c *Client) Play(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return c.NotificationsLoop(gctx)
	})

	g.Go(func() error {
		defer c.Stop()
		return c.Run(gctx)
	})

	return g.Wait()
}

// NotificationsLoop prints notifications as they arrive until the queue is
// closed or the terminal output is closed.
func (c *Client) NotificationsLoop(ctx context.Context) error {
	c.log.Info("notification loop started")
	defer c.log.Info("notification loop stopped")

	err := c.notifications.Serve(ctx, c.io)
	if errors.Is(err, syncio.ErrOutputClosed) {
		return nil
	}

	return err
}

// Run is the main loop: it reads the player's input and dispatches it by
// state until the quit word is typed, input ends, ctx is cancelled or the
// connection is lost.
func (c *Client) Run(ctx context.Context) error {
	if c.cfg.Activation {
		c.output("\nPress Enter to initiate input.")
	}
	c.output(NeedName.Prompt())

	for {
		if err := ctx.Err(); err != nil {
			c.log.Warn("interrupted", logger.Field{Key: "error", Value: err})
			return err
		}

		var input string
		if c.State() != WaitingForPlayers {
			in, err := c.prompt()
			if errors.Is(err, errQuit) {
				break
			}
			if err != nil {
				return err
			}
			input = in
		}

		// A game-over may have moved the state while the player was typing.
		var err error
		switch c.State() {
		case NeedName, NameRejected:
			err = c.setUserName(ctx, input)
		case NotConnected:
			err = c.connect(ctx, input)
		case NeedSession:
			err = c.joinSession(ctx, input)
		case WaitingForPlayers:
			err = c.waitForPlayers(ctx)
		case NeedMove:
			err = c.putNumber(ctx, input)
		}

		if errors.Is(err, errQuit) {
			break
		}
		if err != nil {
			return err
		}
	}

	c.output("Quit entered, disconnecting...")
	return nil
}

// Stop closes the connection and the notification queue, and waits for the
// receive loop to exit. Idempotent.
func (c *Client) Stop() {
	c.stopOnce.Do(func() {
		if sess := c.session(); sess != nil {
			if err := sess.Close(); err != nil {
				c.log.Debug("close session", logger.Field{Key: "error", Value: err})
			}
		}

		c.notifications.Close()
		c.wg.Wait()
		c.log.Info("client stopped")
	})
}

func (c *Client) setUserName(ctx context.Context, input string) error {
	if err := validate.Nickname(input); err != nil {
		c.output(fmt.Sprintf("Not a suitable name (%v), try again!", err))
		return nil
	}

	c.stateMu.Lock()
	c.name = input
	state := c.state
	c.stateMu.Unlock()

	if state == NameRejected {
		return c.sendName(ctx)
	}

	c.changeState(NotConnected)
	return nil
}

func (c *Client) connect(ctx context.Context, input string) error {
	addr := c.address(input)
	sess, err := c.dial(ctx, addr)
	if err != nil {
		c.log.Error("cannot connect to game server", logger.Field{Key: "addr", Value: addr}, logger.Field{Key: "error", Value: err})
		c.output("Can't connect to server!")
		return nil
	}

	c.log.Info("connected to game server", logger.Field{Key: "addr", Value: addr})
	sess.OnGameOver(c.gameOver)

	c.sessMu.Lock()
	c.sess = sess
	c.sessMu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		sess.ReceiveLoop()
	}()

	return c.sendName(ctx)
}

func (c *Client) address(input string) string {
	if _, _, err := net.SplitHostPort(input); err == nil {
		return input
	}

	return net.JoinHostPort(input, strconv.Itoa(c.cfg.Port))
}

func (c *Client) sendName(ctx context.Context) error {
	c.stateMu.Lock()
	name := c.name
	c.stateMu.Unlock()

	reply, err := c.request(ctx, protocol.Nickname, name)
	if err != nil {
		return err
	}

	switch reply.Header {
	case protocol.NotOK:
		c.changeState(NameRejected)
	case protocol.CurrentSessions:
		c.output("Current sessions: " + reply.Payload)
		c.changeState(NeedSession)
	default:
		c.unexpected(reply)
	}

	return nil
}

func (c *Client) joinSession(ctx context.Context, choice string) error {
	for choice != "c" && choice != "j" {
		c.output("Error, enter either 'c' or 'j'.")
		in, err := c.prompt()
		if err != nil {
			return err
		}
		choice = in
	}

	players := 0
	if choice == "c" {
		for players == 0 {
			c.output("How many people are playing?")
			in, err := c.prompt()
			if err != nil {
				return err
			}

			n, err := validate.PlayerCount(in)
			if err != nil {
				c.output(fmt.Sprintf("Invalid player count: %v.", err))
				continue
			}
			players = n
		}
	}

	c.output("What's the session's name?")
	var name string
	for name == "" {
		in, err := c.prompt()
		if err != nil {
			return err
		}

		if err := validate.SessionName(in); err != nil {
			c.output(fmt.Sprintf("Invalid session name: %v.", err))
			continue
		}
		name = in
	}

	header, payload := protocol.JoinExistingSession, name
	if choice == "c" {
		header = protocol.JoinNewSession
		p, err := protocol.JoinFields(name, strconv.Itoa(players))
		if err != nil {
			c.output(fmt.Sprintf("Invalid session parameters: %v.", err))
			return nil
		}
		payload = p
	}

	reply, err := c.request(ctx, header, payload)
	if err != nil {
		return err
	}

	switch reply.Header {
	case protocol.NotOK:
		c.output("Error joining session: " + reply.Payload)
	case protocol.WaitingPlayers:
		c.output("Players in session: " + reply.Payload)
		c.changeState(WaitingForPlayers)
	case protocol.Table:
		c.gameStarted(reply.Payload)
	default:
		c.unexpected(reply)
	}

	return nil
}

func (c *Client) waitForPlayers(ctx context.Context) error {
	sess := c.session()
	if sess == nil {
		return ErrConnectionLost
	}

	reply, err := sess.AwaitReply(ctx)
	if err != nil {
		return c.transportError(err)
	}

	switch reply.Header {
	case protocol.Table:
		c.gameStarted(reply.Payload)
	case protocol.WaitingPlayers:
		c.output("Players in session: " + reply.Payload)
	case protocol.NotOK:
		c.output("Session aborted: " + reply.Payload)
		c.changeState(NeedSession)
	default:
		c.unexpected(reply)
	}

	return nil
}

func (c *Client) putNumber(ctx context.Context, move string) error {
	if err := validate.Move(move); err != nil {
		c.output(fmt.Sprintf("Not proper input: %v.", err))
		return nil
	}

	reply, err := c.request(ctx, protocol.PutNumber, move)
	if err != nil {
		return err
	}

	switch reply.Header {
	case protocol.PutNumberAck:
		c.output(reply.Payload)
	case protocol.NotOK:
		c.output("Move rejected: " + reply.Payload)
	case protocol.Table:
		c.output(FormatBoard(reply.Payload))
	default:
		c.unexpected(reply)
	}

	return nil
}

func (c *Client) gameStarted(board string) {
	c.output(">>> Game started!\n\n" + FormatBoard(board))
	c.changeState(NeedMove)
}

// gameOver runs on the receive loop.
func (c *Client) gameOver(scores string) {
	c.log.Info("game over", logger.Field{Key: "scores", Value: scores})
	c.changeState(NeedSession)
}

func (c *Client) request(ctx context.Context, header protocol.Header, payload string) (protocol.Frame, error) {
	sess := c.session()
	if sess == nil {
		return protocol.Frame{}, ErrConnectionLost
	}

	reply, err := sess.Request(ctx, header, payload)
	if err != nil {
		return protocol.Frame{}, c.transportError(err)
	}

	return reply, nil
}

func (c *Client) transportError(err error) error {
	if errors.Is(err, correlator.ErrClosed) || errors.Is(err, correlator.ErrSendFailed) {
		c.output("Connection to the server lost.")
		return fmt.Errorf("%w: %v", ErrConnectionLost, err)
	}

	return err
}

func (c *Client) unexpected(reply protocol.Frame) {
	c.log.Warn("unexpected reply", logger.Field{Key: "header", Value: reply.Header})
	c.output(fmt.Sprintf("Incorrect server response: (%s)", reply))
}

// prompt reads one line, translating the quit word and the end of input into
// errQuit.
func (c *Client) prompt() (string, error) {
	in, err := c.io.Input(inputPrompt)
	if errors.Is(err, syncio.ErrInputClosed) {
		return "", errQuit
	}
	if err != nil {
		return "", err
	}

	c.log.Debug("user entered", logger.Field{Key: "input", Value: in})
	if in == c.cfg.QuitWord {
		return "", errQuit
	}

	return in, nil
}

// changeState emits the new state's prompt while holding the state lock, so
// prompts appear in the order of the transitions.
func (c *Client) changeState(state State) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()

	c.log.Debug("game state changed",
		logger.Field{Key: "from", Value: c.state.String()},
		logger.Field{Key: "to", Value: state.String()})
	c.state = state
	c.output(state.Prompt())
}

func (c *Client) output(msg string) {
	if err := c.io.Output(msg); err != nil {
		c.log.Debug("output dropped", logger.Field{Key: "error", Value: err})
	}
}

func (c *Client) session() Session {
	c.sessMu.Lock()
	defer c.sessMu.Unlock()
	return c.sess
}
