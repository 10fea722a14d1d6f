package relay

import (
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OffgridOps/MeshTalk/config"
	"github.com/OffgridOps/MeshTalk/crypto"
	"github.com/OffgridOps/MeshTalk/message"
	"github.com/OffgridOps/MeshTalk/peer"
)

// testNode wires one Relay over a real loopback UDP socket with an
// x25519 backend (cheaper than Kyber768 for a test suite that spins up
// several nodes).
type testNode struct {
	id         string
	relay      *Relay
	keyPair    crypto.KeyPair
	mu         sync.Mutex
	deliveries []delivery
}

type delivery struct {
	senderID string
	kind     message.Kind
	payload  string
}

func newTestNode(t *testing.T, id string, cfg config.Config) *testNode {
	t.Helper()
	backend, err := crypto.NewBackend(crypto.BackendX25519)
	require.NoError(t, err)
	kp, err := backend.GenerateKeyPair()
	require.NoError(t, err)

	n := &testNode{id: id, keyPair: kp}
	table := peer.NewTable(id)
	log := logrus.NewEntry(logrus.New())

	n.relay = New(id, cfg, crypto.NewEnvelope(backend), kp, table, func(senderID string, kind message.Kind, payload string) {
		n.mu.Lock()
		defer n.mu.Unlock()
		n.deliveries = append(n.deliveries, delivery{senderID, kind, payload})
	}, log)

	require.NoError(t, n.relay.Start())
	t.Cleanup(n.relay.Stop)
	return n
}

func (n *testNode) waitForDelivery(t *testing.T, timeout time.Duration) delivery {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		n.mu.Lock()
		if len(n.deliveries) > 0 {
			d := n.deliveries[0]
			n.mu.Unlock()
			return d
		}
		n.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("node %s: no delivery within %s", n.id, timeout)
	return delivery{}
}

func testConfig() config.Config {
	cfg := config.Defaults()
	cfg.Port = 0 // ephemeral
	cfg.BindHost = "127.0.0.1"
	cfg.DiscoveryPeriod = time.Hour // disable the maintenance loop's auto-discovery during tests
	return cfg
}

// link makes b known and active in a's peer table (and vice versa is left
// to the caller), standing in for a completed discovery handshake.
func link(a, b *testNode) {
	a.relay.peers.Upsert(b.id, "127.0.0.1", b.relay.BoundPort(), b.keyPair.Public)
}

func TestRelayFloodedTextReachesThirdHopAndDedupSuppressesReplay(t *testing.T) {
	// Topology A-B-C: C is only reachable through B.
	a := newTestNode(t, "A", testConfig())
	b := newTestNode(t, "B", testConfig())
	c := newTestNode(t, "C", testConfig())

	link(a, b)
	link(b, a)
	link(b, c)
	link(c, b)

	a.relay.SendText("broadcast", "hello")

	d := c.waitForDelivery(t, 2*time.Second)
	assert.Equal(t, "A", d.senderID)
	assert.Equal(t, "hello", d.payload)

	time.Sleep(50 * time.Millisecond)
	c.mu.Lock()
	count := len(c.deliveries)
	c.mu.Unlock()
	assert.Equal(t, 1, count, "duplicate forwarded copies must be suppressed by dedup")
}

func TestRelayTTLExhaustionStopsAtFirstHop(t *testing.T) {
	a := newTestNode(t, "A", testConfig())
	b := newTestNode(t, "B", testConfig())
	c := newTestNode(t, "C", testConfig())

	link(a, b)
	link(b, a)
	link(b, c)
	link(c, b)

	msg := message.New("A", "broadcast", message.KindText, "x", 1)
	a.relay.originate(msg)

	d := b.waitForDelivery(t, 2*time.Second)
	assert.Equal(t, "x", d.payload)

	time.Sleep(100 * time.Millisecond)
	c.mu.Lock()
	defer c.mu.Unlock()
	assert.Empty(t, c.deliveries, "ttl=1 must not reach a second hop")
}

func TestRelayPeerStaleness(t *testing.T) {
	a := newTestNode(t, "A", testConfig())
	b := newTestNode(t, "B", testConfig())
	link(a, b)

	snapshot := a.relay.PeersSnapshot()
	require.Len(t, snapshot, 1)

	a.relay.peers.MarkStale(0) // force immediate staleness
	assert.Empty(t, a.relay.PeersSnapshot())
}
