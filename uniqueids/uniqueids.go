// Package uniqueids implements a node that generates cluster-wide unique
// identifiers.
package uniqueids

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/maelnode/maelnode/pkg/log"
	"github.com/maelnode/maelnode/pkg/maelstrom"
)

const (
	// GeneratorRandom generates random UUIDs.
	GeneratorRandom = "random"

	// GeneratorSequence generates '<node>/<counter>' identifiers, which are
	// unique since node identities are unique and the counter is never
	// reused within a node's lifetime.
	GeneratorSequence = "sequence"
)

type UniqueIDs struct {
	nodeID    string
	generator string

	// msgID tags every message this node originates. The sequence generator
	// reuses it as the identifier suffix.
	msgID *atomic.Uint64

	logger log.Logger
}

func New(nodeID string, generator string, logger log.Logger) *UniqueIDs {
	return &UniqueIDs{
		nodeID:    nodeID,
		generator: generator,
		msgID:     atomic.NewUint64(0),
		logger:    logger.WithSubsystem("unique-ids"),
	}
}

func (u *UniqueIDs) Apply(msg maelstrom.Message) ([]maelstrom.Message, error) {
	switch msg.Type() {
	case maelstrom.TypeGenerate:
		req, err := maelstrom.DecodeBody[maelstrom.Generate](msg)
		if err != nil {
			return nil, fmt.Errorf("generate: %w", err)
		}

		msgID := u.msgID.Inc()

		var id string
		if u.generator == GeneratorSequence {
			id = fmt.Sprintf("%s/%d", u.nodeID, msgID)
		} else {
			id = uuid.NewString()
		}

		u.logger.Debug("generated id", zap.String("id", id))

		reply, err := maelstrom.New(msg.Dest, msg.Src, maelstrom.GenerateOK{
			Type:      maelstrom.TypeGenerateOK,
			MsgID:     msgID,
			InReplyTo: req.MsgID,
			ID:        id,
		})
		if err != nil {
			return nil, fmt.Errorf("generate: %w", err)
		}
		return []maelstrom.Message{reply}, nil
	default:
		u.logger.Warn("unsupported message", zap.String("type", msg.Type()))

		reply, err := maelstrom.NewError(
			msg, maelstrom.ErrCodeNotSupported, "unsupported message type",
		)
		if err != nil {
			return nil, err
		}
		return []maelstrom.Message{reply}, nil
	}
}

var _ maelstrom.Handler = &UniqueIDs{}
