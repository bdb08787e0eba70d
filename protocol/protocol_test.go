package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allHeaders = []Header{
	Notify, GameOver,
	Nickname, JoinExistingSession, JoinNewSession, PutNumber,
	NotOK, CurrentSessions, PutNumberAck, WaitingPlayers, Table,
}

func TestEncode(t *testing.T) {
	t.Run("appends separator and terminator", func(t *testing.T) {
		got, err := Encode(Nickname, "Alice")
		require.NoError(t, err)
		assert.Equal(t, []byte("nickname:Alice\x00"), got)
	})

	t.Run("empty payload", func(t *testing.T) {
		got, err := Encode(NotOK, "")
		require.NoError(t, err)
		assert.Equal(t, []byte("not-ok:\x00"), got)
	})

	t.Run("rejects terminator inside payload", func(t *testing.T) {
		_, err := Encode(Notify, "bad\x00text")
		assert.ErrorIs(t, err, ErrReservedByte)
	})
}

func TestDecode(t *testing.T) {
	t.Run("strips terminator", func(t *testing.T) {
		f, err := Decode([]byte("current-sessions:none\x00"))
		require.NoError(t, err)
		assert.Equal(t, Frame{Header: CurrentSessions, Payload: "none"}, f)
	})

	t.Run("splits on first separator only", func(t *testing.T) {
		f, err := Decode([]byte("notify:Bob: hello"))
		require.NoError(t, err)
		assert.Equal(t, Notify, f.Header)
		assert.Equal(t, "Bob: hello", f.Payload)
	})

	t.Run("unrecognized frames", func(t *testing.T) {
		for _, raw := range []string{"", "x", "\x00", "nosep", "bogus:payload", ":payload"} {
			_, err := Decode([]byte(raw))
			assert.ErrorIs(t, err, ErrUnrecognizedFrame, "raw %q", raw)
		}
	})
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	payloads := []string{"", "Alice", "Room1;2", "1/2", "Alice=10;Bob=7", "a:b:c", "123456789........."}
	for _, h := range allHeaders {
		for _, p := range payloads {
			raw, err := Encode(h, p)
			require.NoError(t, err)

			f, err := Decode(raw)
			require.NoError(t, err)
			assert.Equal(t, Frame{Header: h, Payload: p}, f)
		}
	}
}

func TestFrame_Kind(t *testing.T) {
	tests := []struct {
		header Header
		want   Kind
	}{
		{Notify, KindNotification},
		{GameOver, KindGameOver},
		{Nickname, KindRequest},
		{PutNumber, KindRequest},
		{NotOK, KindReply},
		{CurrentSessions, KindReply},
		{PutNumberAck, KindReply},
		{WaitingPlayers, KindReply},
		{Table, KindReply},
		{Header("unknown"), KindUnknown},
	}

	for _, tt := range tests {
		t.Run(string(tt.header), func(t *testing.T) {
			assert.Equal(t, tt.want, Frame{Header: tt.header}.Kind())
		})
	}
}

func TestFields(t *testing.T) {
	t.Run("join and split", func(t *testing.T) {
		p, err := JoinFields("Room1", "2")
		require.NoError(t, err)
		assert.Equal(t, "Room1;2", p)
		assert.Equal(t, []string{"Room1", "2"}, SplitFields(p))
	})

	t.Run("rejects field separator inside a field", func(t *testing.T) {
		_, err := JoinFields("Room;1", "2")
		assert.ErrorIs(t, err, ErrReservedByte)
	})
}
