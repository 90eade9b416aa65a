package broadcast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maelnode/maelnode/pkg/log"
	"github.com/maelnode/maelnode/pkg/maelstrom"
)

func newMessage(t *testing.T, src, dest string, body interface{}) maelstrom.Message {
	msg, err := maelstrom.New(src, dest, body)
	require.NoError(t, err)
	return msg
}

func decodeBody[T any](t *testing.T, msg maelstrom.Message) T {
	body, err := maelstrom.DecodeBody[T](msg)
	require.NoError(t, err)
	return body
}

// assignTopology applies a topology message and asserts it is acknowledged.
func assignTopology(
	t *testing.T, e *Engine, topology map[string][]string,
) {
	msg := newMessage(t, "c0", e.NodeID(), maelstrom.Topology{
		Type:     maelstrom.TypeTopology,
		MsgID:    1,
		Topology: topology,
	})

	out, err := e.Apply(msg)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, maelstrom.TypeTopologyOK, out[0].Type())
}

func TestEngine_Broadcast(t *testing.T) {
	t.Run("floods to neighbors", func(t *testing.T) {
		e := NewEngine("n1", log.NewNopLogger())
		assignTopology(t, e, map[string][]string{
			"n1": {"n2", "n3"},
		})

		msg := newMessage(t, "c1", "n1", maelstrom.Broadcast{
			Type:    maelstrom.TypeBroadcast,
			MsgID:   10,
			Message: 7,
		})
		out, err := e.Apply(msg)
		require.NoError(t, err)
		require.Len(t, out, 3)

		// Gossip to each neighbor, sent as this node.
		var dests []string
		var msgIDs []uint64
		for _, gossip := range out[:2] {
			assert.Equal(t, "n1", gossip.Src)
			dests = append(dests, gossip.Dest)

			body := decodeBody[maelstrom.Broadcast](t, gossip)
			assert.Equal(t, maelstrom.TypeBroadcast, body.Type)
			assert.Equal(t, uint64(7), body.Message)
			msgIDs = append(msgIDs, body.MsgID)
		}
		assert.ElementsMatch(t, []string{"n2", "n3"}, dests)
		assert.NotEqual(t, msgIDs[0], msgIDs[1])

		// Acknowledgement back to the sender, addressed as the identity the
		// request was sent to.
		ack := out[2]
		assert.Equal(t, "n1", ack.Src)
		assert.Equal(t, "c1", ack.Dest)
		body := decodeBody[maelstrom.BroadcastOK](t, ack)
		assert.Equal(t, uint64(10), body.InReplyTo)

		// One outstanding entry per flood.
		assert.Equal(t, 2, e.NumPending())
	})

	t.Run("no bounce", func(t *testing.T) {
		e := NewEngine("n1", log.NewNopLogger())
		// A topology including the sender and the node itself.
		assignTopology(t, e, map[string][]string{
			"n1": {"n1", "n2", "n3"},
		})

		msg := newMessage(t, "n2", "n1", maelstrom.Broadcast{
			Type:    maelstrom.TypeBroadcast,
			MsgID:   3,
			Message: 9,
		})
		out, err := e.Apply(msg)
		require.NoError(t, err)

		// The value is not flooded back to the sender nor to the node
		// itself: one gossip to n3 plus the ack.
		require.Len(t, out, 2)
		assert.Equal(t, "n3", out[0].Dest)
		assert.Equal(t, "n2", out[1].Dest)
	})

	t.Run("duplicate deliveries", func(t *testing.T) {
		e := NewEngine("n1", log.NewNopLogger())
		assignTopology(t, e, map[string][]string{
			"n1": {"n2"},
		})

		var ackIDs []uint64
		for i := 0; i < 3; i++ {
			msg := newMessage(t, "c1", "n1", maelstrom.Broadcast{
				Type:    maelstrom.TypeBroadcast,
				MsgID:   uint64(20 + i),
				Message: 7,
			})
			out, err := e.Apply(msg)
			require.NoError(t, err)

			// Flooded on first delivery only; every delivery is
			// acknowledged so the sender's retry buffer clears.
			if i == 0 {
				require.Len(t, out, 2)
			} else {
				require.Len(t, out, 1)
			}

			ack := decodeBody[maelstrom.BroadcastOK](t, out[len(out)-1])
			assert.Equal(t, uint64(20+i), ack.InReplyTo)
			ackIDs = append(ackIDs, ack.MsgID)
		}

		assert.Equal(t, 1, e.NumValues())
		// Message IDs are never reused.
		assert.NotEqual(t, ackIDs[0], ackIDs[1])
		assert.NotEqual(t, ackIDs[1], ackIDs[2])
	})

	t.Run("before topology", func(t *testing.T) {
		e := NewEngine("n1", log.NewNopLogger())

		msg := newMessage(t, "c1", "n1", maelstrom.Broadcast{
			Type:    maelstrom.TypeBroadcast,
			MsgID:   1,
			Message: 5,
		})
		out, err := e.Apply(msg)
		require.NoError(t, err)

		// No neighbors yet so no flooding, though the value is stored and
		// acknowledged.
		require.Len(t, out, 1)
		assert.Equal(t, maelstrom.TypeBroadcastOK, out[0].Type())
		assert.Equal(t, 1, e.NumValues())
	})
}

func TestEngine_Read(t *testing.T) {
	e := NewEngine("n1", log.NewNopLogger())

	for i, v := range []uint64{3, 1, 4} {
		msg := newMessage(t, "c1", "n1", maelstrom.Broadcast{
			Type:    maelstrom.TypeBroadcast,
			MsgID:   uint64(i + 1),
			Message: v,
		})
		_, err := e.Apply(msg)
		require.NoError(t, err)
	}

	msg := newMessage(t, "c2", "n1", maelstrom.Read{
		Type:  maelstrom.TypeRead,
		MsgID: 9,
	})
	out, err := e.Apply(msg)
	require.NoError(t, err)
	require.Len(t, out, 1)

	assert.Equal(t, "n1", out[0].Src)
	assert.Equal(t, "c2", out[0].Dest)

	body := decodeBody[maelstrom.ReadOK](t, out[0])
	assert.Equal(t, uint64(9), body.InReplyTo)
	// The snapshot is a set: no ordering guarantee.
	assert.ElementsMatch(t, []uint64{1, 3, 4}, body.Messages)
}

func TestEngine_Topology(t *testing.T) {
	t.Run("replaces previous assignment", func(t *testing.T) {
		e := NewEngine("n1", log.NewNopLogger())

		assignTopology(t, e, map[string][]string{
			"n1": {"n2", "n3"},
		})
		assignTopology(t, e, map[string][]string{
			"n1": {"n4"},
		})

		assert.Equal(t, []string{"n4"}, e.Neighbors())
	})

	t.Run("node absent from map", func(t *testing.T) {
		e := NewEngine("n1", log.NewNopLogger())

		assignTopology(t, e, map[string][]string{
			"n2": {"n3"},
		})

		assert.Empty(t, e.Neighbors())
	})
}

func TestEngine_Ack(t *testing.T) {
	t.Run("clears outstanding entry", func(t *testing.T) {
		e := NewEngine("n1", log.NewNopLogger())
		assignTopology(t, e, map[string][]string{
			"n1": {"n2"},
		})

		msg := newMessage(t, "c1", "n1", maelstrom.Broadcast{
			Type:    maelstrom.TypeBroadcast,
			MsgID:   1,
			Message: 7,
		})
		out, err := e.Apply(msg)
		require.NoError(t, err)
		require.Len(t, out, 2)

		gossip := decodeBody[maelstrom.Broadcast](t, out[0])
		require.Equal(t, 1, e.NumPending())

		ack := newMessage(t, "n2", "n1", maelstrom.BroadcastOK{
			Type:      maelstrom.TypeBroadcastOK,
			MsgID:     1,
			InReplyTo: gossip.MsgID,
		})
		out, err = e.Apply(ack)
		require.NoError(t, err)
		assert.Empty(t, out)
		assert.Equal(t, 0, e.NumPending())
	})

	t.Run("unknown correlation id ignored", func(t *testing.T) {
		e := NewEngine("n1", log.NewNopLogger())

		ack := newMessage(t, "n2", "n1", maelstrom.BroadcastOK{
			Type:      maelstrom.TypeBroadcastOK,
			MsgID:     1,
			InReplyTo: 42,
		})
		out, err := e.Apply(ack)
		require.NoError(t, err)
		assert.Empty(t, out)
	})
}

func TestEngine_Resend(t *testing.T) {
	t.Run("new generation per tick", func(t *testing.T) {
		e := NewEngine("n1", log.NewNopLogger())
		assignTopology(t, e, map[string][]string{
			"n1": {"n2"},
		})

		msg := newMessage(t, "c1", "n1", maelstrom.Broadcast{
			Type:    maelstrom.TypeBroadcast,
			MsgID:   1,
			Message: 7,
		})
		out, err := e.Apply(msg)
		require.NoError(t, err)
		first := decodeBody[maelstrom.Broadcast](t, out[0])

		// The entry persists across the tick: the same value is re-sent to
		// the same neighbor under a fresh message ID.
		resent, err := e.Resend()
		require.NoError(t, err)
		require.Len(t, resent, 1)
		assert.Equal(t, "n2", resent[0].Dest)

		second := decodeBody[maelstrom.Broadcast](t, resent[0])
		assert.Equal(t, uint64(7), second.Message)
		assert.NotEqual(t, first.MsgID, second.MsgID)
		assert.Equal(t, 1, e.NumPending())

		// An ack for the superseded ID no longer matches anything.
		staleAck := newMessage(t, "n2", "n1", maelstrom.BroadcastOK{
			Type:      maelstrom.TypeBroadcastOK,
			MsgID:     1,
			InReplyTo: first.MsgID,
		})
		_, err = e.Apply(staleAck)
		require.NoError(t, err)
		assert.Equal(t, 1, e.NumPending())

		// The ack for the latest ID clears the buffer.
		ack := newMessage(t, "n2", "n1", maelstrom.BroadcastOK{
			Type:      maelstrom.TypeBroadcastOK,
			MsgID:     2,
			InReplyTo: second.MsgID,
		})
		_, err = e.Apply(ack)
		require.NoError(t, err)
		assert.Equal(t, 0, e.NumPending())
	})

	t.Run("empty buffer", func(t *testing.T) {
		e := NewEngine("n1", log.NewNopLogger())
		out, err := e.Resend()
		require.NoError(t, err)
		assert.Empty(t, out)
	})
}

func TestEngine_Unsupported(t *testing.T) {
	e := NewEngine("n1", log.NewNopLogger())

	msg := newMessage(t, "c1", "n1", maelstrom.Echo{
		Type:  maelstrom.TypeEcho,
		MsgID: 1,
		Echo:  "hi",
	})
	out, err := e.Apply(msg)
	require.NoError(t, err)
	require.Len(t, out, 1)

	body := decodeBody[maelstrom.Error](t, out[0])
	assert.Equal(t, maelstrom.ErrCodeNotSupported, body.Code)
	assert.Equal(t, uint64(1), body.InReplyTo)
}

// TestEngine_Convergence wires three engines into the line topology
// {a: [b], b: [a, c], c: [b]} and delivers every emitted message, checking
// a value broadcast to one end reaches every node.
func TestEngine_Convergence(t *testing.T) {
	topology := map[string][]string{
		"a": {"b"},
		"b": {"a", "c"},
		"c": {"b"},
	}

	engines := make(map[string]*Engine)
	for _, id := range []string{"a", "b", "c"} {
		e := NewEngine(id, log.NewNopLogger())
		assignTopology(t, e, topology)
		engines[id] = e
	}

	queue := []maelstrom.Message{
		newMessage(t, "c1", "a", maelstrom.Broadcast{
			Type:    maelstrom.TypeBroadcast,
			MsgID:   1,
			Message: 7,
		}),
	}
	for len(queue) > 0 {
		msg := queue[0]
		queue = queue[1:]

		e, ok := engines[msg.Dest]
		if !ok {
			// Addressed to a client.
			continue
		}

		out, err := e.Apply(msg)
		require.NoError(t, err)
		queue = append(queue, out...)
	}

	for id, e := range engines {
		assert.Equal(t, []uint64{7}, e.state.Values(), id)
		// Every gossip send was acknowledged.
		assert.Equal(t, 0, e.NumPending(), id)
	}
}
