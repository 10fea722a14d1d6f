package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backendsUnderTest(t *testing.T) []Backend {
	t.Helper()
	kyber, err := NewBackend(BackendKyber768)
	require.NoError(t, err)
	ecdh, err := NewBackend(BackendX25519)
	require.NoError(t, err)
	return []Backend{kyber, ecdh}
}

func TestEnvelopeRoundTrip(t *testing.T) {
	for _, backend := range backendsUnderTest(t) {
		t.Run(backend.Name(), func(t *testing.T) {
			env := NewEnvelope(backend)
			kp, err := backend.GenerateKeyPair()
			require.NoError(t, err)

			payload := []byte("hello, quantum-resistant mesh")
			wire, err := env.Encrypt(payload, kp.Public)
			require.NoError(t, err)

			got, err := env.Decrypt(wire, kp.Private)
			require.NoError(t, err)
			assert.Equal(t, payload, got)
		})
	}
}

func TestEnvelopeTamperedTagFailsClosed(t *testing.T) {
	for _, backend := range backendsUnderTest(t) {
		t.Run(backend.Name(), func(t *testing.T) {
			env := NewEnvelope(backend)
			kp, err := backend.GenerateKeyPair()
			require.NoError(t, err)

			wire, err := env.Encrypt([]byte("ping"), kp.Public)
			require.NoError(t, err)

			tampered := append([]byte(nil), wire.EncryptedMessage...)
			tampered[len(tampered)-1] ^= 0x01
			wire.EncryptedMessage = tampered

			_, err = env.Decrypt(wire, kp.Private)
			require.Error(t, err)
			assert.IsType(t, &DecryptError{}, err)
		})
	}
}

func TestEnvelopeWrongKeyFailsClosed(t *testing.T) {
	backend, err := NewBackend(BackendKyber768)
	require.NoError(t, err)
	env := NewEnvelope(backend)

	kpA, err := backend.GenerateKeyPair()
	require.NoError(t, err)
	kpB, err := backend.GenerateKeyPair()
	require.NoError(t, err)

	wire, err := env.Encrypt([]byte("for A only"), kpA.Public)
	require.NoError(t, err)

	_, err = env.Decrypt(wire, kpB.Private)
	require.Error(t, err)
}

func TestWireEncodeDecode(t *testing.T) {
	backend, err := NewBackend(BackendKyber768)
	require.NoError(t, err)
	env := NewEnvelope(backend)
	kp, err := backend.GenerateKeyPair()
	require.NoError(t, err)

	wire, err := env.Encrypt([]byte("roundtrip over json"), kp.Public)
	require.NoError(t, err)

	raw, err := EncodeWire(wire)
	require.NoError(t, err)

	decoded, err := DecodeWire(raw)
	require.NoError(t, err)

	got, err := env.Decrypt(decoded, kp.Private)
	require.NoError(t, err)
	assert.Equal(t, []byte("roundtrip over json"), got)
}

func TestDecodeWireRejectsMalformed(t *testing.T) {
	_, err := DecodeWire([]byte("not json"))
	require.Error(t, err)

	_, err = DecodeWire([]byte(`{"kyber_ciphertext":""}`))
	require.Error(t, err)
}
