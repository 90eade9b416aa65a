package broadcast

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/maelnode/maelnode/pkg/log"
	"github.com/maelnode/maelnode/pkg/maelstrom"
)

// Server drives the engine with a single worker: inbound transport messages
// and retry ticks are merged into one ordered stream, so all state
// transitions are linearized without locking. This matters because a retry
// and a late acknowledgement for the same entry must not race.
type Server struct {
	node   *maelstrom.Node
	engine *Engine

	retryInterval time.Duration

	logger log.Logger
}

func NewServer(
	node *maelstrom.Node,
	engine *Engine,
	retryInterval time.Duration,
	logger log.Logger,
) *Server {
	return &Server{
		node:          node,
		engine:        engine,
		retryInterval: retryInterval,
		logger:        logger.WithSubsystem("broadcast.server"),
	}
}

// Run processes inbound messages and retry ticks until the transport closes
// or ctx is cancelled. A transport write failure is fatal and returned.
func (s *Server) Run(ctx context.Context) error {
	s.node.Start()
	defer s.node.Stop()

	ticker := time.NewTicker(s.retryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-s.node.Recv():
			if !ok {
				s.logger.Info("transport closed")
				return nil
			}

			out, err := s.engine.Apply(msg)
			if err != nil {
				// Fatal for this message only; the node keeps processing.
				s.logger.Error(
					"failed to apply message",
					zap.String("type", msg.Type()),
					zap.Error(err),
				)
				continue
			}
			if err := s.node.Send(out...); err != nil {
				return fmt.Errorf("send: %w", err)
			}
		case <-ticker.C:
			out, err := s.engine.Resend()
			if err != nil {
				return fmt.Errorf("resend: %w", err)
			}
			if err := s.node.Send(out...); err != nil {
				return fmt.Errorf("send: %w", err)
			}
		}
	}
}
