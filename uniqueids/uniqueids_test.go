package uniqueids

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maelnode/maelnode/pkg/log"
	"github.com/maelnode/maelnode/pkg/maelstrom"
)

func generate(t *testing.T, u *UniqueIDs, msgID uint64) maelstrom.GenerateOK {
	msg, err := maelstrom.New("c1", "n1", maelstrom.Generate{
		Type:  maelstrom.TypeGenerate,
		MsgID: msgID,
	})
	require.NoError(t, err)

	out, err := u.Apply(msg)
	require.NoError(t, err)
	require.Len(t, out, 1)

	body, err := maelstrom.DecodeBody[maelstrom.GenerateOK](out[0])
	require.NoError(t, err)
	return body
}

func TestUniqueIDs(t *testing.T) {
	t.Run("random ids unique", func(t *testing.T) {
		u := New("n1", GeneratorRandom, log.NewNopLogger())

		seen := make(map[string]struct{})
		for i := 0; i < 100; i++ {
			body := generate(t, u, uint64(i+1))
			assert.Equal(t, uint64(i+1), body.InReplyTo)

			_, ok := seen[body.ID]
			assert.False(t, ok)
			seen[body.ID] = struct{}{}
		}
	})

	t.Run("sequence ids", func(t *testing.T) {
		u := New("n2", GeneratorSequence, log.NewNopLogger())

		for i := 0; i < 10; i++ {
			body := generate(t, u, uint64(i+1))
			assert.Equal(t, fmt.Sprintf("n2/%d", i+1), body.ID)
		}
	})

	t.Run("unsupported type", func(t *testing.T) {
		u := New("n1", GeneratorRandom, log.NewNopLogger())

		msg, err := maelstrom.New("c1", "n1", maelstrom.Echo{
			Type:  maelstrom.TypeEcho,
			MsgID: 1,
			Echo:  "hi",
		})
		require.NoError(t, err)

		out, err := u.Apply(msg)
		require.NoError(t, err)
		require.Len(t, out, 1)

		body, err := maelstrom.DecodeBody[maelstrom.Error](out[0])
		require.NoError(t, err)
		assert.Equal(t, maelstrom.ErrCodeNotSupported, body.Code)
	})
}
