// Package message implements the C3 codec of spec.md §4.3: the in-memory
// Message record and its textual wire serialization.
package message

import (
	"time"

	"github.com/google/uuid"
)

// Kind enumerates the four message kinds spec.md §3 defines. Discovery and
// routing messages never reach a user-facing consumer; they are consumed
// entirely by the peer table and relay engine.
type Kind string

const (
	KindDiscovery Kind = "discovery"
	KindRouting   Kind = "routing"
	KindText      Kind = "text"
	KindVoice     Kind = "voice"
)

// Broadcast is the sentinel recipient meaning "every node delivers locally."
const Broadcast = "broadcast"

// Message is the unit flowing across the mesh, per spec.md §3.
type Message struct {
	ID          string `json:"id"`
	SenderID    string `json:"sender_id"`
	RecipientID string `json:"recipient_id"`
	Kind        Kind   `json:"kind"`
	Payload     string `json:"payload"`
	Timestamp   int64  `json:"timestamp"`
	TTL         int    `json:"ttl"`
}

// NewID generates a 128-bit identifier in 8-4-4-4-12 hex form, per spec.md
// §3 ("id: 128-bit identifier ... globally unique per origin message") and
// §4.3. google/uuid's random (v4) generator is exactly this: 128 bits of
// randomness, hex-rendered with dashes.
func NewID() string {
	return uuid.NewString()
}

// New constructs a Message with a fresh ID and the current wall-clock
// timestamp, the shape every origin call (send_text, send_voice, discovery,
// routing) shares.
func New(senderID, recipientID string, kind Kind, payload string, ttl int) Message {
	return Message{
		ID:          NewID(),
		SenderID:    senderID,
		RecipientID: recipientID,
		Kind:        kind,
		Payload:     payload,
		Timestamp:   time.Now().Unix(),
		TTL:         ttl,
	}
}

// Decremented returns a copy of m with TTL reduced by one. Per spec.md's
// invariants, sender_id and id never change in transit — only ttl does.
func (m Message) Decremented() Message {
	m.TTL--
	return m
}

// AddressedTo reports whether m should be delivered locally to localID —
// either unicast to this node or broadcast.
func (m Message) AddressedTo(localID string) bool {
	return m.RecipientID == localID || m.RecipientID == Broadcast
}
