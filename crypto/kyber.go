package crypto

import (
	"github.com/cloudflare/circl/kem"
	"github.com/cloudflare/circl/kem/schemes"
)

// kyberBackend wraps circl's ML-KEM/Kyber-768 scheme. This is the
// post-quantum backend; see BackendKyber768.
type kyberBackend struct {
	scheme kem.Scheme
}

func newKyberBackend() (Backend, error) {
	scheme := schemes.ByName("Kyber768")
	if scheme == nil {
		return nil, &CryptoUnavailableError{Reason: "circl scheme Kyber768 not registered"}
	}
	return &kyberBackend{scheme: scheme}, nil
}

func (b *kyberBackend) Name() string      { return b.scheme.Name() }
func (b *kyberBackend) PostQuantum() bool { return true }

func (b *kyberBackend) GenerateKeyPair() (KeyPair, error) {
	pub, priv, err := b.scheme.GenerateKeyPair()
	if err != nil {
		return KeyPair{}, err
	}
	pubBytes, err := pub.MarshalBinary()
	if err != nil {
		return KeyPair{}, err
	}
	privBytes, err := priv.MarshalBinary()
	if err != nil {
		return KeyPair{}, err
	}
	return KeyPair{Public: pubBytes, Private: privBytes}, nil
}

func (b *kyberBackend) Encapsulate(peerPublic PublicKey) ([]byte, []byte, error) {
	if len(peerPublic) != b.scheme.PublicKeySize() {
		return nil, nil, &DecryptError{Reason: "public key has wrong size for Kyber768"}
	}
	pub, err := b.scheme.UnmarshalBinaryPublicKey(peerPublic)
	if err != nil {
		return nil, nil, err
	}
	ct, ss, err := b.scheme.Encapsulate(pub)
	if err != nil {
		return nil, nil, err
	}
	return ct, ss, nil
}

func (b *kyberBackend) Decapsulate(ciphertext []byte, priv PrivateKey) ([]byte, error) {
	if len(ciphertext) != b.scheme.CiphertextSize() {
		return nil, &DecryptError{Reason: "ciphertext has wrong size for Kyber768"}
	}
	sk, err := b.scheme.UnmarshalBinaryPrivateKey(priv)
	if err != nil {
		return nil, &DecryptError{Reason: "invalid local private key", Cause: err}
	}
	ss, err := b.scheme.Decapsulate(sk, ciphertext)
	if err != nil {
		return nil, &DecryptError{Reason: "decapsulation failed", Cause: err}
	}
	return ss, nil
}
