package keys

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"

	dErrors "attest/pkg/domain-errors"
)

type KeysSuite struct {
	suite.Suite
	manager *Manager
}

func TestKeysSuite(t *testing.T) {
	suite.Run(t, new(KeysSuite))
}

func (s *KeysSuite) SetupTest() {
	s.manager = NewManager([]byte("platform-secret-for-tests"))
}

func (s *KeysSuite) TestGenerateKeyPairLengths() {
	kp, err := s.manager.GenerateKeyPair()
	s.Require().NoError(err)
	s.Len(kp.PublicKey, PublicKeySize)
	s.Len(kp.PrivateKey, PrivateKeySize)
}

func (s *KeysSuite) TestSignVerifyRoundTrip() {
	kp, err := s.manager.GenerateKeyPair()
	s.Require().NoError(err)
	msg := []byte(`{"id":"urn:example"}`)

	sig, err := s.manager.Sign(msg, kp.PrivateKey)
	s.Require().NoError(err)
	s.Len(sig, SignatureSize)
	s.True(s.manager.Verify(msg, sig, kp.PublicKey))

	s.Run("tampered message fails", func() {
		s.False(s.manager.Verify([]byte(`{"id":"urn:other"}`), sig, kp.PublicKey))
	})

	s.Run("other key fails", func() {
		other, err := s.manager.GenerateKeyPair()
		s.Require().NoError(err)
		s.False(s.manager.Verify(msg, sig, other.PublicKey))
	})
}

func (s *KeysSuite) TestSignRejectsWrongKeyLength() {
	_, err := s.manager.Sign([]byte("m"), make([]byte, 32))
	s.Require().Error(err)
	s.ErrorIs(err, ErrInvalidKey)
	s.True(dErrors.HasCode(err, dErrors.CodeCrypto))
}

func (s *KeysSuite) TestVerifyNeverPanicsOnMalformedInput() {
	kp, err := s.manager.GenerateKeyPair()
	s.Require().NoError(err)

	cases := []struct {
		name string
		sig  []byte
		pub  []byte
	}{
		{"nil everything", nil, nil},
		{"short signature", []byte{1, 2, 3}, kp.PublicKey},
		{"short public key", make([]byte, SignatureSize), kp.PublicKey[:10]},
		{"zero signature", make([]byte, SignatureSize), kp.PublicKey},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			s.NotPanics(func() {
				s.False(s.manager.Verify([]byte("m"), tc.sig, tc.pub))
			})
		})
	}
}

func (s *KeysSuite) TestEncryptDecryptAtRest() {
	kp, err := s.manager.GenerateKeyPair()
	s.Require().NoError(err)

	blob, err := s.manager.EncryptAtRest(kp.PrivateKey)
	s.Require().NoError(err)
	s.False(bytes.Contains(blob, kp.PrivateKey), "blob must not contain the plaintext key")

	plain, err := s.manager.DecryptAtRest(blob)
	s.Require().NoError(err)
	s.Equal(kp.PrivateKey, plain)

	s.Run("nonces differ between encryptions", func() {
		again, err := s.manager.EncryptAtRest(kp.PrivateKey)
		s.Require().NoError(err)
		s.NotEqual(blob[:nonceSize], again[:nonceSize])
	})
}

func (s *KeysSuite) TestDecryptFailures() {
	kp, err := s.manager.GenerateKeyPair()
	s.Require().NoError(err)
	blob, err := s.manager.EncryptAtRest(kp.PrivateKey)
	s.Require().NoError(err)

	s.Run("tampered ciphertext", func() {
		bad := append([]byte(nil), blob...)
		bad[len(bad)-1] ^= 0xff
		_, err := s.manager.DecryptAtRest(bad)
		s.ErrorIs(err, ErrCryptoFailure)
	})

	s.Run("truncated blob", func() {
		_, err := s.manager.DecryptAtRest(blob[:10])
		s.ErrorIs(err, ErrCryptoFailure)
	})

	s.Run("different platform secret", func() {
		_, err := NewManager([]byte("another-secret")).DecryptAtRest(blob)
		s.ErrorIs(err, ErrCryptoFailure)
	})
}

func (s *KeysSuite) TestCryptoUnavailableWithoutSecret() {
	m := NewManager(nil)
	s.False(m.Available())

	kp, err := m.GenerateKeyPair()
	s.Require().NoError(err)

	_, err = m.EncryptAtRest(kp.PrivateKey)
	s.ErrorIs(err, ErrCryptoUnavailable)
	s.True(dErrors.HasCode(err, dErrors.CodeNotConfigured))

	_, err = m.SignWithEncryptedKey([]byte("m"), []byte("blob-is-irrelevant-here-because-no-secret"))
	s.ErrorIs(err, ErrCryptoUnavailable)
}

func (s *KeysSuite) TestSignWithEncryptedKey() {
	kp, err := s.manager.GenerateKeyPair()
	s.Require().NoError(err)
	blob, err := s.manager.EncryptAtRest(kp.PrivateKey)
	s.Require().NoError(err)

	msg := []byte("canonical bytes")
	sig, err := s.manager.SignWithEncryptedKey(msg, blob)
	s.Require().NoError(err)
	s.True(s.manager.Verify(msg, sig, kp.PublicKey))

	pub, err := s.manager.PublicKeyFor(blob)
	s.Require().NoError(err)
	s.Equal(kp.PublicKey, pub)
}

func (s *KeysSuite) TestEncryptRejectsWrongLength() {
	_, err := s.manager.EncryptAtRest([]byte("short"))
	s.True(errors.Is(err, ErrInvalidKey))
}

func (s *KeysSuite) TestGenerateKeyPairEntropyFailure() {
	m := NewManager([]byte("secret"), WithRandom(bytes.NewReader(nil)))
	_, err := m.GenerateKeyPair()
	s.ErrorIs(err, ErrCryptoFailure)
}

func (s *KeysSuite) TestZero() {
	b := []byte{1, 2, 3}
	Zero(b)
	s.Equal([]byte{0, 0, 0}, b)
}
