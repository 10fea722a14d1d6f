package message

import (
	"encoding/json"
	"time"
)

// DiscoveryPayload is the body of a KindDiscovery message, per spec.md §6:
// `{port: int, public_key: base64}`. The sender's id comes from the outer
// Message and its address from the UDP datagram's source — neither is
// repeated here.
type DiscoveryPayload struct {
	Port      int    `json:"port"`
	PublicKey []byte `json:"public_key"`
}

// NodeSnapshot is one entry of a RoutingPayload's `nodes` array: a peer
// record as the emitter currently sees it.
type NodeSnapshot struct {
	ID        string    `json:"id"`
	Address   string    `json:"address"`
	Port      int       `json:"port"`
	PublicKey []byte    `json:"public_key"`
	LastSeen  time.Time `json:"last_seen"`
	IsActive  bool      `json:"is_active"`
}

// RoutingPayload is the body of a KindRouting message, per spec.md §6:
// a snapshot of the emitter's active peers, so a recipient can learn peers
// it cannot hear directly.
type RoutingPayload struct {
	Nodes []NodeSnapshot `json:"nodes"`
}

// EncodePayload marshals a sub-schema payload for embedding in Message.Payload.
func EncodePayload(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeDiscoveryPayload parses m.Payload as a DiscoveryPayload.
func DecodeDiscoveryPayload(payload string) (DiscoveryPayload, error) {
	var p DiscoveryPayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return DiscoveryPayload{}, &DecodeError{Reason: "malformed discovery payload", Cause: err}
	}
	if p.Port <= 0 {
		return DiscoveryPayload{}, &DecodeError{Reason: "discovery payload missing port"}
	}
	return p, nil
}

// DecodeRoutingPayload parses m.Payload as a RoutingPayload.
func DecodeRoutingPayload(payload string) (RoutingPayload, error) {
	var p RoutingPayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return RoutingPayload{}, &DecodeError{Reason: "malformed routing payload", Cause: err}
	}
	return p, nil
}
