package broadcast

import (
	"strconv"

	cmap "github.com/orcaman/concurrent-map/v2"
)

// entry records one gossip send to one neighbor that has not yet been
// acknowledged.
type entry struct {
	// Dest is the neighbor the value was sent to.
	Dest string

	// Value is the gossiped value.
	Value uint64
}

// retryBuffer indexes unacknowledged gossip sends by the message ID each
// send was tagged with, at most one entry per ID.
//
// Entries are only ever removed by acknowledgement or by draining the whole
// buffer for the next retry generation; a timeout never mutates an entry in
// place. The underlying map is safe for concurrent use so the status and
// metrics paths can observe the buffer without synchronizing with the
// worker.
type retryBuffer struct {
	entries cmap.ConcurrentMap[string, entry]
}

func newRetryBuffer() *retryBuffer {
	return &retryBuffer{
		entries: cmap.New[entry](),
	}
}

// Add records a gossip send awaiting acknowledgement.
func (b *retryBuffer) Add(msgID uint64, dest string, value uint64) {
	b.entries.Set(retryKey(msgID), entry{
		Dest:  dest,
		Value: value,
	})
}

// Ack removes the entry for the send tagged with the given message ID,
// returning false if there is no such entry (already acknowledged, or
// superseded by a retry under a new ID).
func (b *retryBuffer) Ack(msgID uint64) bool {
	_, ok := b.entries.Pop(retryKey(msgID))
	return ok
}

// Drain removes and returns all outstanding entries.
func (b *retryBuffer) Drain() []entry {
	items := b.entries.Items()

	entries := make([]entry, 0, len(items))
	for key, e := range items {
		b.entries.Remove(key)
		entries = append(entries, e)
	}
	return entries
}

func (b *retryBuffer) Len() int {
	return b.entries.Count()
}

func retryKey(msgID uint64) string {
	return strconv.FormatUint(msgID, 10)
}
