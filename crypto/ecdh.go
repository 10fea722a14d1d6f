package crypto

import (
	"crypto/rand"

	"golang.org/x/crypto/curve25519"
)

// x25519Backend is the classical-ECDH degradation tier spec.md §4.1
// describes: same Backend shape as the post-quantum tier, clearly not
// post-quantum. The "ciphertext" is simply the sender's ephemeral public
// key; the shared secret is the X25519 Diffie-Hellman output. Grounded on
// crypto.py's CryptoFallback, which does the equivalent with NaCl's Box
// (ephemeral keypair + recipient public key) when Kyber is unavailable.
type x25519Backend struct{}

func newX25519Backend() (Backend, error) {
	return x25519Backend{}, nil
}

func (x25519Backend) Name() string      { return "x25519" }
func (x25519Backend) PostQuantum() bool { return false }

func (x25519Backend) GenerateKeyPair() (KeyPair, error) {
	var priv [32]byte
	if _, err := rand.Read(priv[:]); err != nil {
		return KeyPair{}, err
	}
	pub, err := curve25519.X25519(priv[:], curve25519.Basepoint)
	if err != nil {
		return KeyPair{}, err
	}
	return KeyPair{Public: pub, Private: priv[:]}, nil
}

func (x25519Backend) Encapsulate(peerPublic PublicKey) ([]byte, []byte, error) {
	if len(peerPublic) != 32 {
		return nil, nil, &DecryptError{Reason: "public key has wrong size for x25519"}
	}
	var ephPriv [32]byte
	if _, err := rand.Read(ephPriv[:]); err != nil {
		return nil, nil, err
	}
	ephPub, err := curve25519.X25519(ephPriv[:], curve25519.Basepoint)
	if err != nil {
		return nil, nil, err
	}
	shared, err := curve25519.X25519(ephPriv[:], peerPublic)
	if err != nil {
		return nil, nil, err
	}
	return ephPub, shared, nil
}

func (x25519Backend) Decapsulate(ciphertext []byte, priv PrivateKey) ([]byte, error) {
	if len(ciphertext) != 32 {
		return nil, &DecryptError{Reason: "ciphertext has wrong size for x25519"}
	}
	shared, err := curve25519.X25519(priv, ciphertext)
	if err != nil {
		return nil, &DecryptError{Reason: "scalar multiplication failed", Cause: err}
	}
	return shared, nil
}
