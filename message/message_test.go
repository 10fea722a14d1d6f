package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAndEncodeRoundTrip(t *testing.T) {
	m := New("node-a", "node-b", KindText, "hello", 3)
	assert.NotEmpty(t, m.ID)
	assert.Equal(t, 3, m.TTL)

	raw, err := Encode(m)
	require.NoError(t, err)

	got, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, m, got)
}

func TestDecodeRejectsMissingFields(t *testing.T) {
	cases := []string{
		`{"sender_id":"a","recipient_id":"b","kind":"text","ttl":1}`,
		`{"id":"x","recipient_id":"b","kind":"text","ttl":1}`,
		`{"id":"x","sender_id":"a","kind":"text","ttl":1}`,
		`{"id":"x","sender_id":"a","recipient_id":"b","kind":"bogus","ttl":1}`,
		`{"id":"x","sender_id":"a","recipient_id":"b","kind":"text","ttl":-1}`,
		`not json`,
	}
	for _, c := range cases {
		_, err := Decode([]byte(c))
		require.Error(t, err)
		assert.IsType(t, &DecodeError{}, err)
	}
}

func TestDecremented(t *testing.T) {
	m := New("a", "b", KindText, "hi", 2)
	d := m.Decremented()
	assert.Equal(t, 1, d.TTL)
	assert.Equal(t, m.ID, d.ID)
	assert.Equal(t, m.SenderID, d.SenderID)
}

func TestAddressedTo(t *testing.T) {
	unicast := New("a", "b", KindText, "hi", 1)
	assert.True(t, unicast.AddressedTo("b"))
	assert.False(t, unicast.AddressedTo("c"))

	broadcast := New("a", Broadcast, KindDiscovery, "", 1)
	assert.True(t, broadcast.AddressedTo("anyone"))
}

func TestDiscoveryPayloadRoundTrip(t *testing.T) {
	p := DiscoveryPayload{Port: 7777, PublicKey: []byte{1, 2, 3}}
	raw, err := EncodePayload(p)
	require.NoError(t, err)

	got, err := DecodeDiscoveryPayload(raw)
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestDecodeDiscoveryPayloadRejectsMissingFields(t *testing.T) {
	_, err := DecodeDiscoveryPayload(`{"public_key":"AQID"}`)
	require.Error(t, err)
}

func TestRoutingPayloadRoundTrip(t *testing.T) {
	p := RoutingPayload{Nodes: []NodeSnapshot{
		{ID: "node-a", Address: "10.0.0.1", Port: 7777, PublicKey: []byte{1}, IsActive: true},
	}}
	raw, err := EncodePayload(p)
	require.NoError(t, err)

	got, err := DecodeRoutingPayload(raw)
	require.NoError(t, err)
	assert.Equal(t, p.Nodes[0].ID, got.Nodes[0].ID)
}
