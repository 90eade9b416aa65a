package echo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maelnode/maelnode/pkg/log"
	"github.com/maelnode/maelnode/pkg/maelstrom"
)

func TestEcho(t *testing.T) {
	t.Run("echoes payload", func(t *testing.T) {
		echo := New(log.NewNopLogger())

		msg, err := maelstrom.New("c1", "n1", maelstrom.Echo{
			Type:  maelstrom.TypeEcho,
			MsgID: 5,
			Echo:  "hello there",
		})
		require.NoError(t, err)

		out, err := echo.Apply(msg)
		require.NoError(t, err)
		require.Len(t, out, 1)

		assert.Equal(t, "n1", out[0].Src)
		assert.Equal(t, "c1", out[0].Dest)

		body, err := maelstrom.DecodeBody[maelstrom.EchoOK](out[0])
		require.NoError(t, err)
		assert.Equal(t, maelstrom.TypeEchoOK, body.Type)
		assert.Equal(t, uint64(5), body.InReplyTo)
		assert.Equal(t, "hello there", body.Echo)
	})

	t.Run("unsupported type", func(t *testing.T) {
		echo := New(log.NewNopLogger())

		msg, err := maelstrom.New("c1", "n1", maelstrom.Read{
			Type:  maelstrom.TypeRead,
			MsgID: 2,
		})
		require.NoError(t, err)

		out, err := echo.Apply(msg)
		require.NoError(t, err)
		require.Len(t, out, 1)

		body, err := maelstrom.DecodeBody[maelstrom.Error](out[0])
		require.NoError(t, err)
		assert.Equal(t, maelstrom.ErrCodeNotSupported, body.Code)
		assert.Equal(t, uint64(2), body.InReplyTo)
	})
}
