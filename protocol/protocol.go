// Package protocol implements the framing codec of the Sudoku game protocol.
// A frame is a header code and a free-form text payload joined by
// HeaderSeparator and terminated on the wire by Terminator.
package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
)

const (
	// Terminator ends every frame on the wire. It never appears inside a frame.
	Terminator byte = 0x00
	// HeaderSeparator separates the header code from the payload.
	HeaderSeparator = ":"
	// FieldSeparator separates the parts of a multi-field payload.
	FieldSeparator = ";"
)

var (
	// ErrUnrecognizedFrame is returned by Decode for frames that are too short,
	// lack a header separator or carry an unknown header code.
	ErrUnrecognizedFrame = errors.New("unrecognized frame")
	// ErrReservedByte is returned when a payload contains the terminator, or a
	// field contains the field separator.
	ErrReservedByte = errors.New("payload contains a reserved byte")
)

// Header is a frame's header code.
type Header string

// Notifications, sent unsolicited by the server.
const (
	Notify   Header = "notify"
	GameOver Header = "game-over"
)

// Requests, sent by the client.
const (
	Nickname            Header = "nickname"
	JoinExistingSession Header = "join-existing-session"
	JoinNewSession      Header = "join-new-session"
	PutNumber           Header = "put-number"
)

// Responses, sent by the server in answer to a request.
const (
	NotOK           Header = "not-ok"
	CurrentSessions Header = "current-sessions"
	PutNumberAck    Header = "put-number-ack"
	WaitingPlayers  Header = "waiting-players"
	Table           Header = "table"
)

// Kind classifies a frame by the role its header plays in the protocol.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotification
	KindGameOver
	KindRequest
	KindReply
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindNotification:
		return "Notification"
	case KindGameOver:
		return "GameOver"
	case KindRequest:
		return "Request"
	case KindReply:
		return "Reply"
	default:
		return "Unknown"
	}
}

var kinds = map[Header]Kind{
	Notify:              KindNotification,
	GameOver:            KindGameOver,
	Nickname:            KindRequest,
	JoinExistingSession: KindRequest,
	JoinNewSession:      KindRequest,
	PutNumber:           KindRequest,
	NotOK:               KindReply,
	CurrentSessions:     KindReply,
	PutNumberAck:        KindReply,
	WaitingPlayers:      KindReply,
	Table:               KindReply,
}

// Kind returns the kind of the header, or KindUnknown for codes outside the
// protocol.
func (h Header) Kind() Kind {
	return kinds[h]
}

// Known reports whether h is one of the protocol's header codes.
func (h Header) Known() bool {
	return h.Kind() != KindUnknown
}

// Frame is one complete protocol message.
type Frame struct {
	Header  Header
	Payload string
}

// Kind returns the kind of the frame's header.
func (f Frame) Kind() Kind {
	return f.Header.Kind()
}

// String renders the frame the way it appears on the wire, without the
// terminator.
func (f Frame) String() string {
	return string(f.Header) + HeaderSeparator + f.Payload
}

// Encode builds the wire form of a frame: header, separator, payload and the
// terminator byte.
//
// Parameters:
//   - header: The frame's header code
//   - payload: Free-form text; must not contain Terminator
//
// Returns:
//   - The encoded bytes, ready to be written to the socket
//   - ErrReservedByte if the header or payload contains the terminator
func Encode(header Header, payload string) ([]byte, error) {
	if strings.IndexByte(payload, Terminator) >= 0 || strings.IndexByte(string(header), Terminator) >= 0 {
		return nil, fmt.Errorf("encode %s: %w", header, ErrReservedByte)
	}

	buf := make([]byte, 0, len(header)+len(HeaderSeparator)+len(payload)+1)
	buf = append(buf, header...)
	buf = append(buf, HeaderSeparator...)
	buf = append(buf, payload...)
	buf = append(buf, Terminator)
	return buf, nil
}

// EncodeFrame is Encode for an already assembled Frame.
func EncodeFrame(f Frame) ([]byte, error) {
	return Encode(f.Header, f.Payload)
}

// Decode parses one frame. A trailing terminator, if present, is stripped and
// the remainder is split on the first header separator only.
//
// Parameters:
//   - raw: The bytes of a single frame
//
// Returns:
//   - The decoded Frame
//   - ErrUnrecognizedFrame if raw is shorter than 2 bytes, has no separator
//     or carries an unknown header code
func Decode(raw []byte) (Frame, error) {
	raw = bytes.TrimSuffix(raw, []byte{Terminator})
	if len(raw) < 2 {
		return Frame{}, fmt.Errorf("%w: %d bytes", ErrUnrecognizedFrame, len(raw))
	}

	header, payload, found := strings.Cut(string(raw), HeaderSeparator)
	if !found {
		return Frame{}, fmt.Errorf("%w: missing header separator", ErrUnrecognizedFrame)
	}

	h := Header(header)
	if !h.Known() {
		return Frame{}, fmt.Errorf("%w: header %q", ErrUnrecognizedFrame, header)
	}

	return Frame{Header: h, Payload: payload}, nil
}

// JoinFields builds a multi-field payload.
//
// Parameters:
//   - fields: The payload parts, in order
//
// Returns:
//   - The fields joined by FieldSeparator
//   - ErrReservedByte if a field contains FieldSeparator or Terminator
func JoinFields(fields ...string) (string, error) {
	for _, f := range fields {
		if strings.Contains(f, FieldSeparator) || strings.IndexByte(f, Terminator) >= 0 {
			return "", fmt.Errorf("field %q: %w", f, ErrReservedByte)
		}
	}

	return strings.Join(fields, FieldSeparator), nil
}

// SplitFields splits a multi-field payload into its parts.
func SplitFields(payload string) []string {
	return strings.Split(payload, FieldSeparator)
}
