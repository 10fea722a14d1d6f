// Package crypto implements the hybrid key-encapsulation-plus-AEAD envelope
// used to encrypt every datagram exchanged between mesh nodes.
//
// The envelope is two layers: a KEM backend produces a fresh shared secret
// for each call, and that secret keys an XChaCha20-Poly1305 AEAD over the
// actual payload. The KEM layer is pluggable (Backend) so the preferred
// post-quantum scheme can be swapped for a classical one at build time
// without touching the AEAD or wire format.
package crypto

import "fmt"

// PublicKey and PrivateKey are opaque, backend-specific key material.
// Callers treat them as byte strings; only a Backend knows how to parse them.
type PublicKey []byte
type PrivateKey []byte

// KeyPair is a freshly generated identity keypair.
type KeyPair struct {
	Public  PublicKey
	Private PrivateKey
}

// Backend is the capability set spec.md §9 calls out for "optional-library
// polymorphism": generate a keypair, encapsulate a shared secret to a peer's
// public key, and decapsulate it again with the local private key.
//
// A Backend never touches the AEAD layer; Envelope owns that.
type Backend interface {
	// Name identifies the scheme, e.g. "Kyber768" or "x25519". Logged on
	// startup; never sent on the wire.
	Name() string
	// PostQuantum reports whether this backend resists a quantum adversary.
	PostQuantum() bool
	GenerateKeyPair() (KeyPair, error)
	// Encapsulate derives a fresh shared secret for peerPublic and returns
	// it alongside the ciphertext needed to recover it.
	Encapsulate(peerPublic PublicKey) (ciphertext []byte, sharedSecret []byte, err error)
	// Decapsulate recovers the shared secret produced by Encapsulate.
	Decapsulate(ciphertext []byte, priv PrivateKey) (sharedSecret []byte, err error)
}

// BackendName selects which Backend NewBackend constructs.
type BackendName string

const (
	// BackendKyber768 is the preferred, post-quantum backend (CRYSTALS-Kyber
	// via circl). Use this in production.
	BackendKyber768 BackendName = "kyber768"
	// BackendX25519 is the classical-ECDH degradation tier described in
	// spec.md §4.1: same Backend interface shape, not post-quantum. Select
	// it explicitly when circl is unavailable; it is never chosen silently.
	BackendX25519 BackendName = "x25519"
)

// devBackends is populated by insecure.go's init() only when the
// meshtalk_insecure_crypto build tag is set, so the dev-only fallback never
// becomes reachable from a normal build.
var devBackends = map[BackendName]func() (Backend, error){}

// NewBackend constructs the named backend. It returns CryptoUnavailableError
// if name is unrecognized — this is the one crypto failure spec.md §7 marks
// fatal, since it can only happen at startup.
func NewBackend(name BackendName) (Backend, error) {
	switch name {
	case BackendKyber768, "":
		return newKyberBackend()
	case BackendX25519:
		return newX25519Backend()
	default:
		if factory, ok := devBackends[name]; ok {
			return factory()
		}
		return nil, &CryptoUnavailableError{Reason: fmt.Sprintf("unknown crypto backend %q", name)}
	}
}
