// Package payment seals card numbers and CVVs before they are written to the
// database.  Values are encrypted with XChaCha20-Poly1305 and stored as
// "v1:" followed by base64(nonce || ciphertext).
package payment

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

const sealedPrefix = "v1:"

// ErrMalformed is returned by Open for values that were not produced by Seal.
var ErrMalformed = errors.New("payment: malformed sealed value")

// Sealer encrypts and decrypts payment fields with a single symmetric key.
// It is safe for concurrent use.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer builds a Sealer from a 32-byte key.
func NewSealer(key []byte) (*Sealer, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("payment: %w", err)
	}
	return &Sealer{aead: aead}, nil
}

// NewSealerFromHex decodes a 64 character hex key.
func NewSealerFromHex(keyHex string) (*Sealer, error) {
	key, err := hex.DecodeString(strings.TrimSpace(keyHex))
	if err != nil {
		return nil, fmt.Errorf("payment: decode key: %w", err)
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("payment: key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	return NewSealer(key)
}

// NewEphemeralSealer uses a random key.  Data sealed with it cannot be read
// after the process exits.
func NewEphemeralSealer() (*Sealer, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return NewSealer(key)
}

// Seal encrypts plain with a fresh random nonce.
func (s *Sealer) Seal(plain string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plain)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	out := s.aead.Seal(nonce, nonce, []byte(plain), nil)
	return sealedPrefix + base64.StdEncoding.EncodeToString(out), nil
}

// Open reverses Seal.
func (s *Sealer) Open(sealed string) (string, error) {
	if !strings.HasPrefix(sealed, sealedPrefix) {
		return "", ErrMalformed
	}
	raw, err := base64.StdEncoding.DecodeString(sealed[len(sealedPrefix):])
	if err != nil || len(raw) < s.aead.NonceSize()+s.aead.Overhead() {
		return "", ErrMalformed
	}
	nonce, ct := raw[:s.aead.NonceSize()], raw[s.aead.NonceSize():]
	plain, err := s.aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", fmt.Errorf("payment: open: %w", err)
	}
	return string(plain), nil
}

// Mask hides every digit of a card number except the last four.
func Mask(card string) string {
	card = strings.ReplaceAll(card, " ", "")
	if len(card) <= 4 {
		return card
	}
	return strings.Repeat("*", len(card)-4) + card[len(card)-4:]
}
