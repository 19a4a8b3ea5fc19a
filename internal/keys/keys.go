// Package keys manages issuer signing keys: Ed25519 generation, detached
// signatures, and at-rest encryption of private keys under a key derived from
// the platform secret.
//
// Private key material is only ever held in caller-owned buffers for the
// duration of one operation and is zeroed afterwards.
package keys

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"

	dErrors "attest/pkg/domain-errors"
)

const (
	PublicKeySize  = ed25519.PublicKeySize
	PrivateKeySize = ed25519.PrivateKeySize
	SignatureSize  = ed25519.SignatureSize

	nonceSize = 24
	keySize   = 32
	hkdfInfo  = "attest/issuer-key-at-rest/v1"
)

var (
	ErrInvalidKey        = errors.New("invalid key length")
	ErrCryptoUnavailable = errors.New("at-rest cipher unavailable: platform secret not configured")
	ErrCryptoFailure     = errors.New("cryptographic operation failed")
)

// KeyPair is a freshly generated Ed25519 keypair. Callers own PrivateKey and
// should Zero it once it has been encrypted.
type KeyPair struct {
	PublicKey  []byte
	PrivateKey []byte
}

// Manager signs and verifies messages and seals private keys at rest.
// It holds no per-call state and is safe for concurrent use.
type Manager struct {
	secret []byte
	random io.Reader
}

type Option func(*Manager)

// WithRandom overrides the entropy source used for keys and nonces.
func WithRandom(r io.Reader) Option {
	return func(m *Manager) {
		m.random = r
	}
}

// NewManager creates a Manager. An empty platformSecret leaves signing and
// verification usable but makes EncryptAtRest/DecryptAtRest fail with
// ErrCryptoUnavailable.
func NewManager(platformSecret []byte, opts ...Option) *Manager {
	m := &Manager{random: rand.Reader}
	if len(platformSecret) > 0 {
		m.secret = append([]byte(nil), platformSecret...)
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Available reports whether the at-rest cipher is configured.
func (m *Manager) Available() bool {
	return len(m.secret) > 0
}

func (m *Manager) GenerateKeyPair() (KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(m.random)
	if err != nil {
		return KeyPair{}, dErrors.Wrap(fmt.Errorf("%w: %v", ErrCryptoFailure, err), dErrors.CodeCrypto, "failed to generate keypair")
	}
	if len(pub) != PublicKeySize || len(priv) != PrivateKeySize {
		return KeyPair{}, dErrors.Wrap(ErrInvalidKey, dErrors.CodeCrypto, "generated key has unexpected length")
	}
	return KeyPair{PublicKey: pub, PrivateKey: priv}, nil
}

// Sign returns a detached signature over message.
func (m *Manager) Sign(message, privateKey []byte) ([]byte, error) {
	if len(privateKey) != PrivateKeySize {
		return nil, dErrors.Wrap(ErrInvalidKey, dErrors.CodeCrypto,
			fmt.Sprintf("private key must be %d bytes, got %d", PrivateKeySize, len(privateKey)))
	}
	return ed25519.Sign(ed25519.PrivateKey(privateKey), message), nil
}

// Verify checks a detached signature. Malformed keys or signatures yield false.
func (m *Manager) Verify(message, signature, publicKey []byte) bool {
	if len(publicKey) != PublicKeySize || len(signature) != SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(publicKey), message, signature)
}

// EncryptAtRest seals a private key. The returned blob is nonce || box.
func (m *Manager) EncryptAtRest(privateKey []byte) ([]byte, error) {
	if len(privateKey) != PrivateKeySize {
		return nil, dErrors.Wrap(ErrInvalidKey, dErrors.CodeCrypto, "private key has unexpected length")
	}
	key, err := m.deriveKey()
	if err != nil {
		return nil, err
	}
	defer Zero(key[:])

	var nonce [nonceSize]byte
	if _, err := io.ReadFull(m.random, nonce[:]); err != nil {
		return nil, dErrors.Wrap(fmt.Errorf("%w: %v", ErrCryptoFailure, err), dErrors.CodeCrypto, "failed to read nonce")
	}

	out := make([]byte, nonceSize, nonceSize+len(privateKey)+secretbox.Overhead)
	copy(out, nonce[:])
	return secretbox.Seal(out, privateKey, &nonce, key), nil
}

// DecryptAtRest opens a blob produced by EncryptAtRest. The caller must Zero
// the returned key.
func (m *Manager) DecryptAtRest(blob []byte) ([]byte, error) {
	if len(blob) < nonceSize+secretbox.Overhead {
		return nil, dErrors.Wrap(ErrCryptoFailure, dErrors.CodeCrypto, "encrypted key is truncated")
	}
	key, err := m.deriveKey()
	if err != nil {
		return nil, err
	}
	defer Zero(key[:])

	var nonce [nonceSize]byte
	copy(nonce[:], blob[:nonceSize])

	plain, ok := secretbox.Open(nil, blob[nonceSize:], &nonce, key)
	if !ok {
		return nil, dErrors.Wrap(ErrCryptoFailure, dErrors.CodeCrypto, "encrypted key failed authentication")
	}
	if len(plain) != PrivateKeySize {
		Zero(plain)
		return nil, dErrors.Wrap(ErrInvalidKey, dErrors.CodeCrypto, "decrypted key has unexpected length")
	}
	return plain, nil
}

// SignWithEncryptedKey decrypts blob, signs message and wipes the plaintext key.
func (m *Manager) SignWithEncryptedKey(message, blob []byte) ([]byte, error) {
	priv, err := m.DecryptAtRest(blob)
	if err != nil {
		return nil, err
	}
	defer Zero(priv)
	return m.Sign(message, priv)
}

// PublicKeyFor returns the public half embedded in an encrypted private key.
func (m *Manager) PublicKeyFor(blob []byte) ([]byte, error) {
	priv, err := m.DecryptAtRest(blob)
	if err != nil {
		return nil, err
	}
	defer Zero(priv)
	pub := make([]byte, PublicKeySize)
	copy(pub, ed25519.PrivateKey(priv).Public().(ed25519.PublicKey))
	return pub, nil
}

// deriveKey runs HKDF-SHA256 over the platform secret. The result is never
// cached; callers zero it after use.
func (m *Manager) deriveKey() (*[keySize]byte, error) {
	if !m.Available() {
		return nil, dErrors.Wrap(ErrCryptoUnavailable, dErrors.CodeNotConfigured, "issuer key encryption is not configured")
	}
	var key [keySize]byte
	r := hkdf.New(sha256.New, m.secret, nil, []byte(hkdfInfo))
	if _, err := io.ReadFull(r, key[:]); err != nil {
		return nil, dErrors.Wrap(fmt.Errorf("%w: %v", ErrCryptoFailure, err), dErrors.CodeCrypto, "key derivation failed")
	}
	return &key, nil
}

// Zero overwrites b with zeros.
func Zero(b []byte) {
	clear(b)
}
