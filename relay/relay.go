// Package relay implements the C5 relay engine of spec.md §4.5: the UDP
// receive loop, dedup, flood routing, discovery/maintenance, and the
// public send/snapshot operations the rest of the system drives.
//
// Concurrency shape is grounded on device.Device's lifecycle idiom
// (atomic running flag, sync.WaitGroup join on stop, injected logger)
// generalized from a Noise-handshake VPN device to a flood-routed mesh
// relay.
package relay

import (
	"encoding/base64"
	"net"
	"net/netip"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/OffgridOps/MeshTalk/config"
	"github.com/OffgridOps/MeshTalk/crypto"
	"github.com/OffgridOps/MeshTalk/message"
	"github.com/OffgridOps/MeshTalk/peer"
	"github.com/OffgridOps/MeshTalk/ratelimiter"
)

// maxDatagramSize accommodates voice payloads per spec.md §4.5.
const maxDatagramSize = 65536

// DeliverFunc is invoked on the receive thread for every text or voice
// message addressed to this node. It must not block for long — it runs
// inline in the receive loop, same as the rest of the pipeline.
type DeliverFunc func(senderID string, kind message.Kind, payload string)

// Relay is the C5 engine: one per node. It owns the UDP socket, the peer
// table, the dedup set, and the background receive/maintenance threads.
type Relay struct {
	nodeID  string
	cfg     config.Config
	envelop *crypto.Envelope
	keyPair crypto.KeyPair
	peers   *peer.Table
	dedup   *dedupSet
	limiter *ratelimiter.Ratelimiter
	deliver DeliverFunc
	log     *logrus.Entry

	running  atomic.Bool
	stopping sync.WaitGroup
	stopCh   chan struct{}

	connMu sync.RWMutex
	conn   *net.UDPConn

	decryptErrors atomic.Uint64
	decodeErrors  atomic.Uint64
	sendErrors    atomic.Uint64
}

// New constructs a Relay. It does not bind a socket or start any
// goroutines — call Start for that.
func New(nodeID string, cfg config.Config, envelope *crypto.Envelope, keyPair crypto.KeyPair, peers *peer.Table, deliver DeliverFunc, log *logrus.Entry) *Relay {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	limiter := new(ratelimiter.Ratelimiter)
	limiter.Init()

	return &Relay{
		nodeID:  nodeID,
		cfg:     cfg,
		envelop: envelope,
		keyPair: keyPair,
		peers:   peers,
		dedup:   newDedupSet(cfg.DedupRetention),
		limiter: limiter,
		deliver: deliver,
		log:     log.WithField("component", "relay"),
	}
}

// Start is idempotent: calling it while already running is a no-op. It
// binds the UDP socket, launches the receive and maintenance threads, and
// emits an initial discovery message.
func (r *Relay) Start() error {
	if !r.running.CompareAndSwap(false, true) {
		return nil
	}

	addr := &net.UDPAddr{IP: net.ParseIP(r.cfg.BindHost), Port: r.cfg.Port}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		r.running.Store(false)
		return &SocketError{Cause: err}
	}

	r.connMu.Lock()
	r.conn = conn
	r.connMu.Unlock()
	r.stopCh = make(chan struct{})

	r.stopping.Add(2)
	go r.receiveLoop()
	go r.maintenanceLoop()

	r.log.WithField("bind", addr.String()).Info("relay started")
	if r.cfg.BroadcastAddress != "" {
		r.log.WithField("broadcast_address", r.cfg.BroadcastAddress).
			Warn("broadcast transport enabled: flooded messages will be sent once, encrypted to this node's own key, instead of per-peer")
	}
	r.emitDiscovery()
	return nil
}

// Stop signals shutdown, closes the socket so the receive thread unblocks,
// and joins both background threads before returning.
func (r *Relay) Stop() {
	if !r.running.CompareAndSwap(true, false) {
		return
	}
	close(r.stopCh)

	r.connMu.RLock()
	conn := r.conn
	r.connMu.RUnlock()
	if conn != nil {
		conn.Close()
	}

	r.stopping.Wait()
	r.limiter.Close()
	r.log.Info("relay stopped")
}

// NodeID returns the local node's identifier.
func (r *Relay) NodeID() string { return r.nodeID }

// BoundPort returns the UDP port the relay is actually listening on, useful
// when cfg.Port is 0 and the kernel assigned an ephemeral one.
func (r *Relay) BoundPort() int {
	r.connMu.RLock()
	defer r.connMu.RUnlock()
	if r.conn == nil {
		return 0
	}
	return r.conn.LocalAddr().(*net.UDPAddr).Port
}

// PublicKey returns the local node's public key.
func (r *Relay) PublicKey() crypto.PublicKey { return r.keyPair.Public }

// PeersSnapshot implements peers_snapshot(): active peers only.
func (r *Relay) PeersSnapshot() []peer.Peer { return r.peers.Active() }

// Counters exposes the per-datagram failure counts spec.md §7 requires be
// tracked (not propagated).
type Counters struct {
	DecryptErrors uint64
	DecodeErrors  uint64
	SendErrors    uint64
}

func (r *Relay) Counters() Counters {
	return Counters{
		DecryptErrors: r.decryptErrors.Load(),
		DecodeErrors:  r.decodeErrors.Load(),
		SendErrors:    r.sendErrors.Load(),
	}
}

// receiveLoop is the single receive thread: blocks on the socket, then runs
// the full decrypt/decode/dedup/dispatch/forward pipeline in order.
func (r *Relay) receiveLoop() {
	defer r.stopping.Done()

	buf := make([]byte, maxDatagramSize)
	for {
		r.connMu.RLock()
		conn := r.conn
		r.connMu.RUnlock()

		n, srcAddr, err := conn.ReadFromUDP(buf)
		if err != nil {
			if !r.running.Load() {
				return // expected: socket closed during shutdown
			}
			r.log.WithError(err).Warn("udp read failed")
			continue
		}

		datagram := make([]byte, n)
		copy(datagram, buf[:n])
		r.handleDatagram(datagram, srcAddr)
	}
}

func (r *Relay) handleDatagram(datagram []byte, srcAddr *net.UDPAddr) {
	if addrPort, ok := asAddrPort(srcAddr); ok {
		if !r.limiter.Allow(addrPort) {
			return
		}
	}

	plaintext, err := r.decrypt(datagram)
	if err != nil {
		r.decryptErrors.Add(1)
		r.log.WithError(err).Debug("decrypt failed, discarding datagram")
		return
	}

	msg, err := message.Decode(plaintext)
	if err != nil {
		r.decodeErrors.Add(1)
		r.log.WithError(err).Debug("decode failed, discarding datagram")
		return
	}

	if r.dedup.CheckAndInsert(msg.ID) {
		return
	}

	r.dispatch(msg, srcAddr)
	r.forward(msg)
}

func asAddrPort(addr *net.UDPAddr) (netip.Addr, bool) {
	if addr == nil {
		return netip.Addr{}, false
	}
	ip, ok := netip.AddrFromSlice(addr.IP)
	if !ok {
		return netip.Addr{}, false
	}
	return ip.Unmap(), true
}

func (r *Relay) decrypt(datagram []byte) ([]byte, error) {
	wire, err := crypto.DecodeWire(datagram)
	if err != nil {
		return nil, err
	}
	return r.envelop.Decrypt(wire, r.keyPair.Private)
}

// dispatch implements the per-kind classification step of spec.md §4.5.
func (r *Relay) dispatch(msg message.Message, srcAddr *net.UDPAddr) {
	switch msg.Kind {
	case message.KindDiscovery:
		r.handleDiscovery(msg, srcAddr)
	case message.KindRouting:
		r.handleRouting(msg)
	case message.KindText, message.KindVoice:
		if msg.AddressedTo(r.nodeID) && r.deliver != nil {
			r.deliver(msg.SenderID, msg.Kind, msg.Payload)
		}
	}
}

func (r *Relay) handleDiscovery(msg message.Message, srcAddr *net.UDPAddr) {
	payload, err := message.DecodeDiscoveryPayload(msg.Payload)
	if err != nil {
		r.decodeErrors.Add(1)
		r.log.WithError(err).Debug("malformed discovery payload")
		return
	}
	r.peers.Upsert(msg.SenderID, srcAddr.IP.String(), payload.Port, payload.PublicKey)

	if msg.SenderID != r.nodeID {
		r.emitRouting()
	}
}

func (r *Relay) handleRouting(msg message.Message) {
	payload, err := message.DecodeRoutingPayload(msg.Payload)
	if err != nil {
		r.decodeErrors.Add(1)
		r.log.WithError(err).Debug("malformed routing payload")
		return
	}
	for _, node := range payload.Nodes {
		if node.ID == r.nodeID {
			continue
		}
		if _, known := r.peers.Lookup(node.ID); known {
			continue
		}
		r.peers.Upsert(node.ID, node.Address, node.Port, node.PublicKey)
	}
}

// forward implements the unconditional relay step of spec.md §4.5: ttl--,
// then flood to every active peer except self and the message's originator
// (sender_id) if ttl remains positive.
func (r *Relay) forward(msg message.Message) {
	next := msg.Decremented()
	if next.TTL <= 0 {
		return
	}
	r.floodTo(next, msg.SenderID)
}

// emitDiscovery originates a discovery message, per spec.md §4.5: startup
// and every DiscoveryPeriod thereafter.
func (r *Relay) emitDiscovery() {
	payload, err := message.EncodePayload(message.DiscoveryPayload{
		Port:      r.BoundPort(),
		PublicKey: r.keyPair.Public,
	})
	if err != nil {
		r.log.WithError(err).Error("failed to encode discovery payload")
		return
	}
	msg := message.New(r.nodeID, message.Broadcast, message.KindDiscovery, payload, r.cfg.DefaultTTL)
	r.originate(msg)
}

// emitRouting originates a routing reply carrying a snapshot of this
// node's active peers, per spec.md §4.5.
func (r *Relay) emitRouting() {
	active := r.peers.Active()
	nodes := make([]message.NodeSnapshot, 0, len(active))
	for _, p := range active {
		nodes = append(nodes, message.NodeSnapshot{
			ID:        p.ID,
			Address:   p.Address,
			Port:      p.Port,
			PublicKey: p.PublicKey,
			LastSeen:  p.LastSeen,
			IsActive:  p.IsActive,
		})
	}
	payload, err := message.EncodePayload(message.RoutingPayload{Nodes: nodes})
	if err != nil {
		r.log.WithError(err).Error("failed to encode routing payload")
		return
	}
	msg := message.New(r.nodeID, message.Broadcast, message.KindRouting, payload, 2)
	r.originate(msg)
}

// SendText implements send_text(recipient_id, content): originates a text
// message at the default TTL.
func (r *Relay) SendText(recipientID, content string) {
	msg := message.New(r.nodeID, recipientID, message.KindText, content, r.cfg.DefaultTTL)
	r.originate(msg)
}

// SendVoice implements send_voice(recipient_id, audio_b64): originates a
// voice message at the lower voice TTL, per spec.md §9 OQ3.
func (r *Relay) SendVoice(recipientID string, audio []byte) {
	payload := base64.StdEncoding.EncodeToString(audio)
	msg := message.New(r.nodeID, recipientID, message.KindVoice, payload, r.cfg.VoiceTTL)
	r.originate(msg)
}

// originate marks a freshly-created message as seen (so a later relayed
// copy of itself is discarded) and floods it to all active peers.
func (r *Relay) originate(msg message.Message) {
	r.dedup.CheckAndInsert(msg.ID)
	r.floodTo(msg, "")
}

// floodTo sends msg to every active peer other than self and excludeID.
// Per spec.md §4.5's flood policy, each target gets its own encryption
// unless a broadcast transport is configured.
func (r *Relay) floodTo(msg message.Message, excludeID string) {
	if r.cfg.BroadcastAddress != "" {
		r.sendBroadcast(msg)
		return
	}

	for _, p := range r.peers.Active() {
		if p.ID == excludeID {
			continue
		}
		if err := r.sendTo(msg, p); err != nil {
			r.sendErrors.Add(1)
			r.log.WithError(err).WithField("peer", p.ID).Warn("send failed")
		}
	}
}

func (r *Relay) sendTo(msg message.Message, target peer.Peer) error {
	plaintext, err := message.Encode(msg)
	if err != nil {
		return &SendError{PeerID: target.ID, Cause: err}
	}
	wire, err := r.envelop.Encrypt(plaintext, crypto.PublicKey(target.PublicKey))
	if err != nil {
		return &SendError{PeerID: target.ID, Cause: err}
	}
	datagram, err := crypto.EncodeWire(wire)
	if err != nil {
		return &SendError{PeerID: target.ID, Cause: err}
	}

	addr := &net.UDPAddr{IP: net.ParseIP(target.Address), Port: target.Port}
	return r.writeUDP(datagram, addr, target.ID)
}

// sendBroadcast implements the BATMAN-Adv broadcast exception of spec.md
// §9 OQ2: a single send to the configured broadcast address, encrypted to
// this node's own public key. Every receiver must hold the corresponding
// pre-shared private key to decode it — this is not how any other path in
// this module encrypts, and is only reachable when BroadcastAddress is
// explicitly configured.
func (r *Relay) sendBroadcast(msg message.Message) {
	plaintext, err := message.Encode(msg)
	if err != nil {
		r.sendErrors.Add(1)
		r.log.WithError(err).Warn("broadcast encode failed")
		return
	}
	wire, err := r.envelop.Encrypt(plaintext, r.keyPair.Public)
	if err != nil {
		r.sendErrors.Add(1)
		r.log.WithError(err).Warn("broadcast encrypt failed")
		return
	}
	datagram, err := crypto.EncodeWire(wire)
	if err != nil {
		r.sendErrors.Add(1)
		r.log.WithError(err).Warn("broadcast wire encode failed")
		return
	}

	addr, err := net.ResolveUDPAddr("udp", r.cfg.BroadcastAddress)
	if err != nil {
		r.sendErrors.Add(1)
		r.log.WithError(err).Error("invalid broadcast address")
		return
	}
	if err := r.writeUDP(datagram, addr, "broadcast"); err != nil {
		r.sendErrors.Add(1)
		r.log.WithError(err).Warn("broadcast send failed")
	}
}

func (r *Relay) writeUDP(datagram []byte, addr *net.UDPAddr, peerID string) error {
	r.connMu.RLock()
	conn := r.conn
	r.connMu.RUnlock()
	if conn == nil {
		return &SendError{PeerID: peerID, Cause: net.ErrClosed}
	}
	_, err := conn.WriteToUDP(datagram, addr)
	if err != nil {
		return &SendError{PeerID: peerID, Cause: err}
	}
	return nil
}

// maintenanceLoop runs mark_stale, discovery emission, and dedup GC every
// DiscoveryPeriod, sleeping in 1-second increments so Stop is prompt, per
// spec.md §5.
func (r *Relay) maintenanceLoop() {
	defer r.stopping.Done()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	elapsed := time.Duration(0)
	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			elapsed += time.Second
			if elapsed < r.cfg.DiscoveryPeriod {
				continue
			}
			elapsed = 0
			r.peers.MarkStale(r.cfg.InactiveThreshold)
			r.emitDiscovery()
			r.dedup.GC()
		}
	}
}
