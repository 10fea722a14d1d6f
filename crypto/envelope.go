package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"

	"golang.org/x/crypto/chacha20poly1305"
)

// Wire is the outer datagram envelope of spec.md §6: a KEM ciphertext and
// an AEAD blob, both base64 inside a small textual container. encoding/json
// base64-encodes []byte fields automatically, which gives exactly the wire
// shape the spec names without any bespoke base64 plumbing.
type Wire struct {
	KyberCiphertext  []byte `json:"kyber_ciphertext"`
	EncryptedMessage []byte `json:"encrypted_message"`
}

// Envelope seals and opens datagrams for one local identity, using a
// pluggable Backend for the KEM layer and XChaCha20-Poly1305 for the AEAD
// layer. Safe for concurrent use: it holds no mutable state of its own.
type Envelope struct {
	backend Backend
}

// NewEnvelope wraps a Backend in the two-layer construction spec.md §4.1
// describes.
func NewEnvelope(backend Backend) *Envelope {
	return &Envelope{backend: backend}
}

func (e *Envelope) Backend() Backend { return e.backend }

// deriveAEADKey folds a KEM shared secret (which may not be exactly 32
// bytes, depending on backend) down to the key size XChaCha20-Poly1305
// needs. Kyber768's secret is already 32 bytes but is hashed all the same;
// kept uniform across backends so Envelope never branches on which one
// produced k.
func deriveAEADKey(sharedSecret []byte) [chacha20poly1305.KeySize]byte {
	return sha256.Sum256(sharedSecret)
}

// Encrypt implements spec.md §4.1's encrypt(payload, recipient_pub): it
// never fails for well-formed inputs, and the KEM output is fresh per call
// because Encapsulate generates fresh randomness every time it runs.
func (e *Envelope) Encrypt(payload []byte, recipientPublic PublicKey) (Wire, error) {
	kemCiphertext, sharedSecret, err := e.backend.Encapsulate(recipientPublic)
	if err != nil {
		return Wire{}, err
	}
	key := deriveAEADKey(sharedSecret)
	aead, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		return Wire{}, err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return Wire{}, err
	}
	sealed := aead.Seal(nonce, nonce, payload, nil)

	return Wire{
		KyberCiphertext:  kemCiphertext,
		EncryptedMessage: sealed,
	}, nil
}

// Decrypt implements spec.md §4.1's decrypt(envelope_bytes, local_priv). It
// returns *DecryptError for every failure mode named there: a malformed
// envelope, an invalid KEM ciphertext, or a failed AEAD tag. No partial
// plaintext is ever returned alongside an error.
func (e *Envelope) Decrypt(w Wire, priv PrivateKey) ([]byte, error) {
	sharedSecret, err := e.backend.Decapsulate(w.KyberCiphertext, priv)
	if err != nil {
		var de *DecryptError
		if errors.As(err, &de) {
			return nil, de
		}
		return nil, &DecryptError{Reason: "KEM decapsulation failed", Cause: err}
	}

	key := deriveAEADKey(sharedSecret)
	aead, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		return nil, &DecryptError{Reason: "could not construct AEAD", Cause: err}
	}

	if len(w.EncryptedMessage) < aead.NonceSize() {
		return nil, &DecryptError{Reason: "encrypted_message shorter than nonce"}
	}
	nonce := w.EncryptedMessage[:aead.NonceSize()]
	ciphertext := w.EncryptedMessage[aead.NonceSize():]

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, &DecryptError{Reason: "AEAD authentication failed", Cause: err}
	}
	return plaintext, nil
}

// EncodeWire and DecodeWire convert between Wire and the raw bytes carried
// on the UDP socket.
func EncodeWire(w Wire) ([]byte, error) {
	return json.Marshal(w)
}

func DecodeWire(data []byte) (Wire, error) {
	var w Wire
	if err := json.Unmarshal(data, &w); err != nil {
		return Wire{}, &DecryptError{Reason: "malformed envelope", Cause: err}
	}
	if len(w.KyberCiphertext) == 0 || len(w.EncryptedMessage) == 0 {
		return Wire{}, &DecryptError{Reason: "envelope missing required fields"}
	}
	return w, nil
}
