package privx

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"

	"golang.org/x/crypto/chacha20poly1305"
)

// ErrSealedCorrupt reports stored data that cannot be opened with the
// configured key.
var ErrSealedCorrupt = errors.New("privx: sealed value corrupt or wrong key")

// Sealed encrypts values with ChaCha20-Poly1305 under a key held on local
// disk. Reversible, so the operator surface can still display contact
// references when needed.
type Sealed struct {
	aead interface {
		Seal(dst, nonce, plaintext, additionalData []byte) []byte
		Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
	}
}

// NewSealed builds a sealed policy from a 32-byte key.
func NewSealed(key []byte) (*Sealed, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("privx: bad sealing key: %w", err)
	}
	return &Sealed{aead: aead}, nil
}

func (s *Sealed) Protect(value string) (string, error) {
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("privx: nonce: %w", err)
	}

	sealed := s.aead.Seal(nonce, nonce, []byte(value), nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

func (s *Sealed) Reveal(stored string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(stored)
	if err != nil {
		return "", ErrSealedCorrupt
	}
	if len(raw) < chacha20poly1305.NonceSizeX {
		return "", ErrSealedCorrupt
	}

	nonce, ciphertext := raw[:chacha20poly1305.NonceSizeX], raw[chacha20poly1305.NonceSizeX:]
	plain, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrSealedCorrupt
	}
	return string(plain), nil
}

func (s *Sealed) Matches(stored, candidate string) (bool, error) {
	plain, err := s.Reveal(stored)
	if err != nil {
		return false, err
	}
	return plain == candidate, nil
}

// LoadOrCreateKey reads a 32-byte sealing key from path, generating and
// persisting one (0600) on first use.
func LoadOrCreateKey(path string) ([]byte, error) {
	if raw, err := os.ReadFile(path); err == nil {
		key, err := base64.StdEncoding.DecodeString(string(raw))
		if err != nil || len(key) != chacha20poly1305.KeySize {
			return nil, fmt.Errorf("privx: malformed key file %s", path)
		}
		return key, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}

	encoded := base64.StdEncoding.EncodeToString(key)
	if err := os.WriteFile(path, []byte(encoded), 0o600); err != nil {
		return nil, err
	}
	return key, nil
}
