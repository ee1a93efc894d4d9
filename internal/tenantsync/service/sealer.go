package service

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

var ErrSealedToken = errors.New("sealed_token_invalid")

// Sealer encrypts tokens at rest with NaCl secretbox.
type Sealer struct {
	key [32]byte
}

// NewSealer derives the box key from secret. A 32 byte hex or base64 value
// is used as is; any other string is stretched with HKDF-SHA256.
func NewSealer(secret string) (*Sealer, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("token encryption key is empty")
	}

	s := &Sealer{}
	if raw, ok := decodeKey(secret); ok {
		copy(s.key[:], raw)
		return s, nil
	}
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte("seatwise microsoft tokens"))
	if _, err := io.ReadFull(kdf, s.key[:]); err != nil {
		return nil, fmt.Errorf("derive token key: %w", err)
	}
	return s, nil
}

// NewEphemeralSealer uses a random key. Sealed tokens do not survive a
// restart.
func NewEphemeralSealer() (*Sealer, error) {
	s := &Sealer{}
	if _, err := io.ReadFull(rand.Reader, s.key[:]); err != nil {
		return nil, err
	}
	return s, nil
}

func decodeKey(secret string) ([]byte, bool) {
	if raw, err := hex.DecodeString(secret); err == nil && len(raw) == 32 {
		return raw, true
	}
	if raw, err := base64.StdEncoding.DecodeString(secret); err == nil && len(raw) == 32 {
		return raw, true
	}
	return nil, false
}

func (s *Sealer) Seal(plain string) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, err
	}
	return secretbox.Seal(nonce[:], []byte(plain), &nonce, &s.key), nil
}

func (s *Sealer) Open(sealed []byte) (string, error) {
	if len(sealed) < nonceSize+secretbox.Overhead {
		return "", ErrSealedToken
	}
	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])
	plain, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, &s.key)
	if !ok {
		return "", ErrSealedToken
	}
	return string(plain), nil
}
