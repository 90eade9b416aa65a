// Package echo implements a stateless node that echoes request payloads
// back to the sender.
package echo

import (
	"fmt"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/maelnode/maelnode/pkg/log"
	"github.com/maelnode/maelnode/pkg/maelstrom"
)

type Echo struct {
	// msgID tags every message this node originates.
	msgID *atomic.Uint64

	logger log.Logger
}

func New(logger log.Logger) *Echo {
	return &Echo{
		msgID:  atomic.NewUint64(0),
		logger: logger.WithSubsystem("echo"),
	}
}

func (e *Echo) Apply(msg maelstrom.Message) ([]maelstrom.Message, error) {
	switch msg.Type() {
	case maelstrom.TypeEcho:
		req, err := maelstrom.DecodeBody[maelstrom.Echo](msg)
		if err != nil {
			return nil, fmt.Errorf("echo: %w", err)
		}

		e.logger.Debug("echo", zap.String("src", msg.Src))

		reply, err := maelstrom.New(msg.Dest, msg.Src, maelstrom.EchoOK{
			Type:      maelstrom.TypeEchoOK,
			MsgID:     e.msgID.Inc(),
			InReplyTo: req.MsgID,
			Echo:      req.Echo,
		})
		if err != nil {
			return nil, fmt.Errorf("echo: %w", err)
		}
		return []maelstrom.Message{reply}, nil
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

var _ maelstrom.Handler = &Echo{}
