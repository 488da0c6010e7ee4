// Package crypto derives purpose-bound keys from the application secret and
// seals small payloads (provider tokens, OAuth state) with ChaCha20-Poly1305.
package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// Key purposes.
const (
	PurposeSession     = "session"
	PurposeMagicLink   = "magic-link"
	PurposeOAuthState  = "oauth-state"
	PurposeTokenAtRest = "token-at-rest"
)

var hkdfSalt = []byte("higher-endeavors")

// ErrOpen is returned when a sealed payload fails authentication.
var ErrOpen = errors.New("sealed payload is invalid")

// DeriveKey derives a 32-byte key bound to purpose from the master secret.
func DeriveKey(secret []byte, purpose string) ([]byte, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("secret is required")
	}
	purpose = strings.TrimSpace(purpose)
	if purpose == "" {
		return nil, fmt.Errorf("purpose is required")
	}

	reader := hkdf.New(sha256.New, secret, hkdfSalt, []byte("endeavors-"+purpose))
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return key, nil
}

// Sealer encrypts and authenticates payloads with XChaCha20-Poly1305.
type Sealer struct {
	key []byte
}

// NewSealer derives a sealing key for purpose.
func NewSealer(secret []byte, purpose string) (*Sealer, error) {
	key, err := DeriveKey(secret, purpose)
	if err != nil {
		return nil, err
	}
	return &Sealer{key: key}, nil
}

// Seal returns nonce||ciphertext. additional is authenticated but not encrypted.
func (s *Sealer) Seal(plaintext, additional []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return aead.Seal(nonce, nonce, plaintext, additional), nil
}

// Open reverses Seal.
func (s *Sealer) Open(sealed, additional []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, err
	}
	if len(sealed) < aead.NonceSize()+aead.Overhead() {
		return nil, ErrOpen
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, additional)
	if err != nil {
		return nil, ErrOpen
	}
	return plaintext, nil
}

// SealString seals s and returns it base64url encoded without padding.
func (s *Sealer) SealString(plaintext string, additional []byte) (string, error) {
	sealed, err := s.Seal([]byte(plaintext), additional)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// OpenString reverses SealString.
func (s *Sealer) OpenString(encoded string, additional []byte) (string, error) {
	sealed, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrOpen
	}
	plaintext, err := s.Open(sealed, additional)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// RandomToken returns n random bytes encoded base64url.
func RandomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
