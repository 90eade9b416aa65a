package maelstrom

import (
	"encoding/json"
	"fmt"
)

// Message body type tags.
const (
	TypeInit        = "init"
	TypeInitOK      = "init_ok"
	TypeEcho        = "echo"
	TypeEchoOK      = "echo_ok"
	TypeGenerate    = "generate"
	TypeGenerateOK  = "generate_ok"
	TypeBroadcast   = "broadcast"
	TypeBroadcastOK = "broadcast_ok"
	TypeRead        = "read"
	TypeReadOK      = "read_ok"
	TypeTopology    = "topology"
	TypeTopologyOK  = "topology_ok"
	TypeError       = "error"
)

// Error codes, as defined by the workload protocol. Codes 0-999 are
// reserved, 1000+ are available for custom errors.
const (
	ErrCodeNotSupported     = 10
	ErrCodeMalformedRequest = 12
)

// Message is the envelope for all traffic exchanged between nodes and
// clients. The body is kept as raw JSON until the 'type' discriminator has
// been inspected.
type Message struct {
	// Src is the node or client the message comes from.
	Src string `json:"src"`

	// Dest is the node or client this message is to.
	Dest string `json:"dest"`

	Body json.RawMessage `json:"body"`
}

// Type returns the body's 'type' discriminator, or an empty string if the
// body cannot be decoded.
func (m Message) Type() string {
	var body struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(m.Body, &body); err != nil {
		return ""
	}
	return body.Type
}

// New creates a message addressed from src to dest carrying the given body.
func New(src, dest string, body interface{}) (Message, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return Message{}, fmt.Errorf("marshal body: %w", err)
	}
	return Message{
		Src:  src,
		Dest: dest,
		Body: b,
	}, nil
}

// DecodeBody decodes the message body into the given body type.
func DecodeBody[T any](m Message) (T, error) {
	var body T
	if err := json.Unmarshal(m.Body, &body); err != nil {
		return body, fmt.Errorf("decode body: %w", err)
	}
	return body, nil
}

// Init assigns the node its identity and the cluster peer list. Sent once
// before any other traffic.
type Init struct {
	Type  string `json:"type"`
	MsgID uint64 `json:"msg_id"`

	// NodeID is the identity of the node receiving this message.
	NodeID string `json:"node_id"`

	// NodeIDs lists all nodes in the cluster, including the receiver.
	NodeIDs []string `json:"node_ids"`
}

type InitOK struct {
	Type      string `json:"type"`
	InReplyTo uint64 `json:"in_reply_to"`
}

type Echo struct {
	Type  string `json:"type"`
	MsgID uint64 `json:"msg_id"`
	Echo  string `json:"echo"`
}

type EchoOK struct {
	Type      string `json:"type"`
	MsgID     uint64 `json:"msg_id"`
	InReplyTo uint64 `json:"in_reply_to"`
	Echo      string `json:"echo"`
}

type Generate struct {
	Type  string `json:"type"`
	MsgID uint64 `json:"msg_id"`
}

type GenerateOK struct {
	Type      string `json:"type"`
	MsgID     uint64 `json:"msg_id"`
	InReplyTo uint64 `json:"in_reply_to"`
	ID        string `json:"id"`
}

type Broadcast struct {
	Type    string `json:"type"`
	MsgID   uint64 `json:"msg_id"`
	Message uint64 `json:"message"`
}

type BroadcastOK struct {
	Type      string `json:"type"`
	MsgID     uint64 `json:"msg_id"`
	InReplyTo uint64 `json:"in_reply_to"`
}

type Read struct {
	Type  string `json:"type"`
	MsgID uint64 `json:"msg_id"`
}

type ReadOK struct {
	Type      string   `json:"type"`
	MsgID     uint64   `json:"msg_id"`
	InReplyTo uint64   `json:"in_reply_to"`
	Messages  []uint64 `json:"messages"`
}

type Topology struct {
	Type  string `json:"type"`
	MsgID uint64 `json:"msg_id"`

	// Topology maps every node in the cluster to its neighbor list.
	Topology map[string][]string `json:"topology"`
}

type TopologyOK struct {
	Type      string `json:"type"`
	MsgID     uint64 `json:"msg_id"`
	InReplyTo uint64 `json:"in_reply_to"`
}

type Error struct {
	Type      string `json:"type"`
	InReplyTo uint64 `json:"in_reply_to"`
	Code      int    `json:"code"`
	Text      string `json:"text,omitempty"`
}

// NewError creates an error reply to the given request, addressed back to
// the request's source and correlated to its msg_id (zero if the body has
// none).
func NewError(req Message, code int, text string) (Message, error) {
	body, _ := DecodeBody[struct {
		MsgID uint64 `json:"msg_id"`
	}](req)
	return New(req.Dest, req.Src, Error{
		Type:      TypeError,
		InReplyTo: body.MsgID,
		Code:      code,
		Text:      text,
	})
}
