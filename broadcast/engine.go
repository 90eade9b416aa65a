package broadcast

import (
	"fmt"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/maelnode/maelnode/pkg/log"
	"github.com/maelnode/maelnode/pkg/maelstrom"
)

// Engine applies inbound messages to the node's dissemination state and
// retry buffer, and produces the corresponding outbound messages (new
// gossip, acknowledgements and query replies).
//
// The engine itself does not serialize access to its state; the caller must
// apply messages and retry generations one at a time (see Server).
type Engine struct {
	nodeID string

	state *state
	retry *retryBuffer

	// msgID tags every message this node originates, across all message
	// kinds. Strictly increasing, never reused.
	msgID *atomic.Uint64

	metrics *Metrics

	logger log.Logger
}

func NewEngine(nodeID string, logger log.Logger) *Engine {
	return &Engine{
		nodeID:  nodeID,
		state:   newState(),
		retry:   newRetryBuffer(),
		msgID:   atomic.NewUint64(0),
		metrics: newMetrics(),
		logger:  logger.WithSubsystem("broadcast"),
	}
}

func (e *Engine) Apply(msg maelstrom.Message) ([]maelstrom.Message, error) {
	switch msg.Type() {
	case maelstrom.TypeBroadcast:
		return e.applyBroadcast(msg)
	case maelstrom.TypeBroadcastOK:
		return e.applyBroadcastOK(msg)
	case maelstrom.TypeRead:
		return e.applyRead(msg)
	case maelstrom.TypeTopology:
		return e.applyTopology(msg)
	default:
		e.logger.Warn("unsupported message", zap.String("type", msg.Type()))

		reply, err := maelstrom.NewError(
			msg, maelstrom.ErrCodeNotSupported, "unsupported message type",
		)
		if err != nil {
			return nil, err
		}
		return []maelstrom.Message{reply}, nil
	}
}

// Resend re-emits every outstanding gossip send as a new generation: each
// gets a fresh message ID and a fresh buffer entry, and the superseded IDs
// are discarded along with their entries. At any instant at most one
// in-flight retry exists per original (neighbor, value) send.
//
// Resends never consult the value set; entry removal is single-sourced on
// acknowledgements.
func (e *Engine) Resend() ([]maelstrom.Message, error) {
	entries := e.retry.Drain()
	if len(entries) == 0 {
		return nil, nil
	}

	msgs := make([]maelstrom.Message, 0, len(entries))
	for _, en := range entries {
		msg, err := e.gossip(en.Dest, en.Value)
		if err != nil {
			return nil, fmt.Errorf("resend: %w", err)
		}
		msgs = append(msgs, msg)

		e.metrics.Retries.Inc()
	}
	e.metrics.PendingEntries.Set(float64(e.retry.Len()))

	e.logger.Debug(
		"resending unacknowledged gossip",
		zap.Int("entries", len(msgs)),
	)
	return msgs, nil
}

// Metrics returns the engine metrics for registration.
func (e *Engine) Metrics() *Metrics {
	return e.metrics
}

// NodeID returns the identity this node was assigned at startup.
func (e *Engine) NodeID() string {
	return e.nodeID
}

// Neighbors returns the node's current neighbor list.
func (e *Engine) Neighbors() []string {
	return e.state.Neighbors()
}

// NumValues returns the number of values this node has seen.
func (e *Engine) NumValues() int {
	return e.state.NumValues()
}

// NumPending returns the number of gossip sends awaiting acknowledgement.
func (e *Engine) NumPending() int {
	return e.retry.Len()
}

func (e *Engine) applyBroadcast(msg maelstrom.Message) ([]maelstrom.Message, error) {
	req, err := maelstrom.DecodeBody[maelstrom.Broadcast](msg)
	if err != nil {
		return nil, fmt.Errorf("broadcast: %w", err)
	}

	e.metrics.GossipInbound.Inc()

	var out []maelstrom.Message
	if e.state.AddValue(req.Message) {
		e.metrics.ValuesTotal.Inc()

		// Flood to every neighbor except the message's sender and our own
		// receiving identity, to avoid one-hop echo and self-sends.
		for _, neighbor := range e.state.Neighbors() {
			if neighbor == msg.Src || neighbor == msg.Dest {
				continue
			}

			gossip, err := e.gossip(neighbor, req.Message)
			if err != nil {
				return nil, fmt.Errorf("broadcast: %w", err)
			}
			out = append(out, gossip)
		}

		e.logger.Debug(
			"learned value",
			zap.Uint64("value", req.Message),
			zap.String("src", msg.Src),
			zap.Int("flooded", len(out)),
		)
	} else {
		e.metrics.DuplicatesInbound.Inc()
	}

	// Always acknowledge, including duplicates, so the sender's retry
	// buffer clears.
	ack, err := maelstrom.New(msg.Dest, msg.Src, maelstrom.BroadcastOK{
		Type:      maelstrom.TypeBroadcastOK,
		MsgID:     e.msgID.Inc(),
		InReplyTo: req.MsgID,
	})
	if err != nil {
		return nil, fmt.Errorf("broadcast: %w", err)
	}
	out = append(out, ack)

	e.metrics.PendingEntries.Set(float64(e.retry.Len()))

	return out, nil
}

func (e *Engine) applyBroadcastOK(msg maelstrom.Message) ([]maelstrom.Message, error) {
	req, err := maelstrom.DecodeBody[maelstrom.BroadcastOK](msg)
	if err != nil {
		return nil, fmt.Errorf("broadcast_ok: %w", err)
	}

	// Acknowledgements for unknown IDs are ignored: the entry may have been
	// removed by an earlier ack, or superseded by a retry under a new ID.
	if e.retry.Ack(req.InReplyTo) {
		e.metrics.AcksInbound.Inc()
		e.metrics.PendingEntries.Set(float64(e.retry.Len()))
	}
	return nil, nil
}

func (e *Engine) applyRead(msg maelstrom.Message) ([]maelstrom.Message, error) {
	req, err := maelstrom.DecodeBody[maelstrom.Read](msg)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}

	reply, err := maelstrom.New(msg.Dest, msg.Src, maelstrom.ReadOK{
		Type:      maelstrom.TypeReadOK,
		MsgID:     e.msgID.Inc(),
		InReplyTo: req.MsgID,
		Messages:  e.state.Values(),
	})
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return []maelstrom.Message{reply}, nil
}

func (e *Engine) applyTopology(msg maelstrom.Message) ([]maelstrom.Message, error) {
	req, err := maelstrom.DecodeBody[maelstrom.Topology](msg)
	if err != nil {
		return nil, fmt.Errorf("topology: %w", err)
	}

	// Replace the previous assignment rather than merging. A node missing
	// from the map gets an empty neighbor list rather than an error.
	neighbors := req.Topology[e.nodeID]
	e.state.SetNeighbors(neighbors)

	e.logger.Info("topology assigned", zap.Strings("neighbors", neighbors))

	reply, err := maelstrom.New(msg.Dest, msg.Src, maelstrom.TopologyOK{
		Type:      maelstrom.TypeTopologyOK,
		MsgID:     e.msgID.Inc(),
		InReplyTo: req.MsgID,
	})
	if err != nil {
		return nil, fmt.Errorf("topology: %w", err)
	}
	return []maelstrom.Message{reply}, nil
}

// gossip constructs a gossip message to the given neighbor tagged with a
// fresh message ID, and records the send as awaiting acknowledgement.
func (e *Engine) gossip(neighbor string, value uint64) (maelstrom.Message, error) {
	msgID := e.msgID.Inc()

	msg, err := maelstrom.New(e.nodeID, neighbor, maelstrom.Broadcast{
		Type:    maelstrom.TypeBroadcast,
		MsgID:   msgID,
		Message: value,
	})
	if err != nil {
		return maelstrom.Message{}, err
	}

	e.retry.Add(msgID, neighbor, value)

	e.metrics.GossipOutbound.Inc()

	return msg, nil
}

var _ maelstrom.Handler = &Engine{}
