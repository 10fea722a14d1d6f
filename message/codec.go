package message

import "encoding/json"

var validKinds = map[Kind]bool{
	KindDiscovery: true,
	KindRouting:   true,
	KindText:      true,
	KindVoice:     true,
}

// Encode serializes m into the self-describing textual form carried inside
// the AEAD payload, per spec.md §4.3.
func Encode(m Message) ([]byte, error) {
	return json.Marshal(m)
}

// Decode parses and validates a wire message. It rejects anything that
// would violate an invariant downstream code relies on: a missing id, an
// unrecognized kind, or a negative TTL.
func Decode(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, &DecodeError{Reason: "malformed JSON", Cause: err}
	}
	if m.ID == "" {
		return Message{}, &DecodeError{Reason: "missing id"}
	}
	if m.SenderID == "" {
		return Message{}, &DecodeError{Reason: "missing sender_id"}
	}
	if m.RecipientID == "" {
		return Message{}, &DecodeError{Reason: "missing recipient_id"}
	}
	if !validKinds[m.Kind] {
		return Message{}, &DecodeError{Reason: "unrecognized kind: " + string(m.Kind)}
	}
	if m.TTL < 0 {
		return Message{}, &DecodeError{Reason: "negative ttl"}
	}
	return m, nil
}
