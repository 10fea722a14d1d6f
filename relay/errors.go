package relay

import "fmt"

// SendError reports a per-peer transmission failure. Per spec.md §7 it is
// logged and skipped; it never aborts delivery to the remaining peers.
type SendError struct {
	PeerID string
	Cause  error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("relay: send to peer %s failed: %v", e.PeerID, e.Cause)
}

func (e *SendError) Unwrap() error { return e.Cause }

// SocketError wraps a fatal bind failure at startup, per spec.md §7.
type SocketError struct {
	Cause error
}

func (e *SocketError) Error() string {
	return fmt.Sprintf("relay: socket error: %v", e.Cause)
}

func (e *SocketError) Unwrap() error { return e.Cause }
