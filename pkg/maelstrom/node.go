package maelstrom

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/maelnode/maelnode/pkg/log"
)

// Handler applies one inbound message to node state and returns the
// outbound messages it produces.
type Handler interface {
	Apply(msg Message) ([]Message, error)
}

// Node is one cluster member attached to the line transport.
//
// The node must first complete the lifecycle handshake with Init, which
// assigns its identity and peer list, before inbound traffic is consumed
// via Serve or Start/Recv.
type Node struct {
	id    string
	peers []string

	reader *Reader
	writer *Writer

	recvCh chan Message

	// stopCh unblocks the read loop when the consumer exits before the
	// transport closes.
	stopCh   chan struct{}
	stopOnce sync.Once

	logger log.Logger
}

func NewNode(r io.Reader, w io.Writer, logger log.Logger) *Node {
	return &Node{
		reader: NewReader(r),
		writer: NewWriter(w),
		recvCh: make(chan Message),
		stopCh: make(chan struct{}),
		logger: logger.WithSubsystem("maelstrom"),
	}
}

// Init blocks until the 'init' handshake arrives, records the node identity
// and peer list, and acknowledges with 'init_ok'.
func (n *Node) Init() error {
	for {
		msg, err := n.reader.Read()
		if err != nil {
			var decodeErr *DecodeError
			if errors.As(err, &decodeErr) {
				n.logger.Error("dropping undecodable message", zap.Error(err))
				continue
			}
			return fmt.Errorf("read init: %w", err)
		}

		if msg.Type() != TypeInit {
			n.logger.Warn(
				"dropping message received before init",
				zap.String("type", msg.Type()),
			)
			continue
		}

		init, err := DecodeBody[Init](msg)
		if err != nil {
			return fmt.Errorf("init: %w", err)
		}

		n.id = init.NodeID
		n.peers = init.NodeIDs

		// Reply as the identity the message was addressed to.
		reply, err := New(msg.Dest, msg.Src, InitOK{
			Type:      TypeInitOK,
			InReplyTo: init.MsgID,
		})
		if err != nil {
			return fmt.Errorf("init: %w", err)
		}
		if err := n.writer.Write(reply); err != nil {
			return fmt.Errorf("write init_ok: %w", err)
		}

		n.logger.Info(
			"node initialized",
			zap.String("node-id", n.id),
			zap.Strings("peers", n.peers),
		)
		return nil
	}
}

// ID returns the node identity assigned by the init handshake.
func (n *Node) ID() string {
	return n.id
}

// Peers returns all node IDs in the cluster, including this node.
func (n *Node) Peers() []string {
	return n.peers
}

// Start begins reading inbound messages into the channel returned by Recv.
//
// Undecodable lines are logged and skipped without affecting node state.
// The channel is closed once the transport closes.
func (n *Node) Start() {
	go func() {
		defer close(n.recvCh)

		for {
			msg, err := n.reader.Read()
			if err != nil {
				var decodeErr *DecodeError
				if errors.As(err, &decodeErr) {
					n.logger.Error("dropping undecodable message", zap.Error(err))
					continue
				}
				if !errors.Is(err, io.EOF) {
					n.logger.Error("transport read failed", zap.Error(err))
				}
				return
			}
			select {
			case n.recvCh <- msg:
			case <-n.stopCh:
				return
			}
		}
	}()
}

// Stop unblocks the read loop started by Start, discarding any in-flight
// message. Used when the consumer exits before the transport closes; the
// channel returned by Recv is closed as usual.
func (n *Node) Stop() {
	n.stopOnce.Do(func() {
		close(n.stopCh)
	})
}

// Recv returns the inbound message channel populated by Start.
func (n *Node) Recv() <-chan Message {
	return n.recvCh
}

// Send writes the given messages to the transport. A write failure is fatal
// to the node since it cannot make further progress without output.
func (n *Node) Send(msgs ...Message) error {
	return n.writer.Write(msgs...)
}

// Serve feeds inbound messages to the handler one at a time, in arrival
// order, until the transport closes or ctx is cancelled.
func (n *Node) Serve(ctx context.Context, handler Handler) error {
	n.Start()
	defer n.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-n.recvCh:
			if !ok {
				return nil
			}
			out, err := handler.Apply(msg)
			if err != nil {
				n.logger.Error(
					"failed to apply message",
					zap.String("type", msg.Type()),
					zap.Error(err),
				)
				continue
			}
			if err := n.Send(out...); err != nil {
				return fmt.Errorf("send: %w", err)
			}
		}
	}
}
