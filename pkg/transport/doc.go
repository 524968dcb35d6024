// Package transport delivers encoded CoT events over the network.
//
// Two transports are provided behind the Transport interface:
//
//   - Multicast: fire-and-forget UDP datagrams to a multicast group,
//     one event per datagram. The default group is 239.2.3.1:6969, the
//     conventional ATAK SA address.
//   - Client: a TLS connection to a TAK server with mutual
//     authentication, a connection state machine, and bounded
//     reconnection with exponential backoff.
//
// # Protocol Stack (TLS)
//
//	┌────────────────────────────────┐
//	│        CoT XML Events          │
//	├────────────────────────────────┤
//	│      TLS 1.2+ (mutual)         │
//	├────────────────────────────────┤
//	│            TCP                 │
//	└────────────────────────────────┘
//
// TAK servers consume a plain XML stream; there is no length-prefix
// framing and no application-level acknowledgment. Each event is
// written with a single Write call so a canceled publish never leaves
// a partial event on the wire.
//
// # Connection States (TLS)
//
//	Disconnected → Connecting → Authenticated → Degraded → Closed
//
// A write failure while Authenticated moves the client to Degraded and
// triggers bounded reconnection. Reconnection success returns to
// Authenticated; budget exhaustion moves to Closed, which is terminal.
package transport
