// Package vault encrypts POS provider tokens at rest with an
// authenticated cipher so a leaked database dump does not leak live
// provider credentials.
package vault

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

// KeySize is the required key length in bytes.
const KeySize = chacha20poly1305.KeySize

// Terminal vault errors.
var (
	// ErrKeyMissing means the key environment variable is not set.
	ErrKeyMissing = errors.New("vault: encryption key not configured")
	// ErrKeySize means the configured key is not exactly KeySize bytes.
	ErrKeySize = errors.New("vault: encryption key must be 32 bytes")
	// ErrFormat means a token does not have the nonce.tag.ciphertext shape.
	ErrFormat = errors.New("vault: malformed token")
	// ErrAuthentication means a token failed integrity verification.
	ErrAuthentication = errors.New("vault: token authentication failed")
)

// Vault seals and opens provider tokens with ChaCha20-Poly1305.
type Vault struct {
	aead cipher.AEAD
}

// New creates a vault from a raw 32-byte key.
func New(key []byte) (*Vault, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w (got %d)", ErrKeySize, len(key))
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	return &Vault{aead: aead}, nil
}

// FromEnv creates a vault from a hex-encoded key in the named
// environment variable. A missing or wrong-size key is a configuration
// error; the caller should fail startup rather than continue.
func FromEnv(name string) (*Vault, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return nil, fmt.Errorf("%w (%s)", ErrKeyMissing, name)
	}
	key, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("%s is not valid hex: %w", name, err)
	}
	return New(key)
}

// Encrypt seals plaintext under a fresh random nonce. The token is a
// dot-delimited triple of hex fields: nonce, authentication tag,
// ciphertext. Encrypting the same plaintext twice yields different
// tokens.
func (v *Vault) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, v.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}

	sealed := v.aead.Seal(nil, nonce, []byte(plaintext), nil)

	// Seal appends the tag to the ciphertext; split them so the token
	// fields stay unambiguous.
	split := len(sealed) - v.aead.Overhead()
	ciphertext, tag := sealed[:split], sealed[split:]

	return hex.EncodeToString(nonce) + "." + hex.EncodeToString(tag) + "." + hex.EncodeToString(ciphertext), nil
}

// Decrypt opens a token produced by Encrypt. Wrong field count or
// non-hex fields return ErrFormat; a tampered nonce, tag or ciphertext
// returns ErrAuthentication. Both are terminal for the calling sync run.
func (v *Vault) Decrypt(token string) (string, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return "", fmt.Errorf("%w: expected 3 fields, got %d", ErrFormat, len(parts))
	}

	nonce, err := hex.DecodeString(parts[0])
	if err != nil {
		return "", fmt.Errorf("%w: bad nonce encoding", ErrFormat)
	}
	if len(nonce) != v.aead.NonceSize() {
		return "", fmt.Errorf("%w: bad nonce length", ErrFormat)
	}
	tag, err := hex.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("%w: bad tag encoding", ErrFormat)
	}
	ciphertext, err := hex.DecodeString(parts[2])
	if err != nil {
		return "", fmt.Errorf("%w: bad ciphertext encoding", ErrFormat)
	}

	plaintext, err := v.aead.Open(nil, nonce, append(ciphertext, tag...), nil)
	if err != nil {
		return "", ErrAuthentication
	}
	return string(plaintext), nil
}
