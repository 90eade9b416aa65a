package broadcast

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRetryBuffer(t *testing.T) {
	t.Run("ack removes entry", func(t *testing.T) {
		b := newRetryBuffer()

		b.Add(1, "n2", 7)
		b.Add(2, "n3", 7)
		assert.Equal(t, 2, b.Len())

		assert.True(t, b.Ack(1))
		assert.Equal(t, 1, b.Len())

		// Acking the same ID again is a no-op.
		assert.False(t, b.Ack(1))
		assert.Equal(t, 1, b.Len())
	})

	t.Run("ack unknown id", func(t *testing.T) {
		b := newRetryBuffer()
		assert.False(t, b.Ack(42))
	})

	t.Run("drain", func(t *testing.T) {
		b := newRetryBuffer()

		b.Add(1, "n2", 7)
		b.Add(2, "n3", 9)

		entries := b.Drain()
		assert.ElementsMatch(
			t,
			[]entry{{"n2", 7}, {"n3", 9}},
			entries,
		)
		assert.Equal(t, 0, b.Len())
		assert.Empty(t, b.Drain())
	})
}
