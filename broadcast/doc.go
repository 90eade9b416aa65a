// Package broadcast implements the gossip broadcast engine: values received
// from clients or peers are flooded to the node's neighbors and re-sent
// every retry interval until acknowledged, so every value eventually
// reaches every node despite message loss.
//
// The engine is deliberately split from the transport: it consumes typed
// inbound messages and produces typed outbound messages, with framing and
// the init handshake owned by pkg/maelstrom.
package broadcast
