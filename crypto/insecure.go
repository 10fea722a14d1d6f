//go:build meshtalk_insecure_crypto

package crypto

import (
	"crypto/rand"
	"crypto/sha256"
)

// insecureBackend is a dev-only fallback with no real security property: the
// "shared secret" is the recipient's public key itself, so anyone who
// observes a public key recovers every message encrypted to it. It exists
// only so the envelope pipeline can be exercised when neither circl nor
// curve25519 is buildable (e.g. a stripped-down CI image).
//
// Gated behind the meshtalk_insecure_crypto build tag per spec.md §4.1: this
// must never be reachable in a production build, and BackendInsecure is not
// a value NewBackend will select unless this file is compiled in.
const BackendInsecure BackendName = "insecure-dev-only"

func init() {
	devBackends[BackendInsecure] = newInsecureBackend
}

type insecureBackend struct{}

func newInsecureBackend() (Backend, error) { return insecureBackend{}, nil }

func (insecureBackend) Name() string      { return "insecure-dev-only" }
func (insecureBackend) PostQuantum() bool { return false }

func (insecureBackend) GenerateKeyPair() (KeyPair, error) {
	priv := make([]byte, 32)
	if _, err := rand.Read(priv); err != nil {
		return KeyPair{}, err
	}
	sum := sha256.Sum256(priv)
	return KeyPair{Public: sum[:], Private: priv}, nil
}

func (insecureBackend) Encapsulate(peerPublic PublicKey) ([]byte, []byte, error) {
	// peerPublic is itself sha256(priv) (see GenerateKeyPair), which is
	// exactly what Decapsulate reconstructs below, so it doubles as both
	// the "ciphertext" and the shared secret: anyone who observes it
	// recovers the secret outright, hence the build tag gate.
	return peerPublic, peerPublic, nil
}

func (insecureBackend) Decapsulate(ciphertext []byte, priv PrivateKey) ([]byte, error) {
	sum := sha256.Sum256(priv)
	return sum[:], nil
}
