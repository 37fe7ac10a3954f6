// Package cryptox implements the symmetric half of the order protection
// pipeline: authenticated encryption of payload bytes under a single
// process-wide key, plus the password hashing used for stored credentials.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/paramashop/internal/common"
	"golang.org/x/crypto/argon2"
)

// Cipher seals and opens byte payloads with AES-256-GCM. The produced token
// is self-describing: a random 12-byte nonce followed by the ciphertext and
// GCM authentication tag. A Cipher is immutable and safe for concurrent use.
type Cipher struct {
	aead cipher.AEAD
}

// ParseKey decodes a base64 (standard or URL-safe) encoded 32-byte key as
// supplied through configuration.
func ParseKey(encoded string) ([]byte, error) {
	var key []byte
	var err error
	if strings.ContainsAny(encoded, "-_") {
		key, err = base64.URLEncoding.DecodeString(encoded)
	} else {
		key, err = base64.StdEncoding.DecodeString(encoded)
	}
	if err != nil {
		return nil, fmt.Errorf("encryption key is not valid base64: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes, got %d", len(key))
	}
	return key, nil
}

// NewCipher constructs a Cipher from a raw 32-byte key.
func NewCipher(key []byte) (*Cipher, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Cipher{aead: aead}, nil
}

// Seal encrypts plaintext and returns a token of nonce || ciphertext+tag.
func (c *Cipher) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return c.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts a token produced by Seal. Any truncated, corrupted or
// mis-keyed token yields common.ErrIntegrity; the cause is deliberately not
// distinguished for the caller.
func (c *Cipher) Open(token []byte) ([]byte, error) {
	if len(token) < c.aead.NonceSize() {
		return nil, common.ErrIntegrity
	}
	nonce, ciphertext := token[:c.aead.NonceSize()], token[c.aead.NonceSize():]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, common.ErrIntegrity
	}
	return plaintext, nil
}

// Argon2id parameters for stored password hashes.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
	saltLen      = 16
)

// HashPassword derives an argon2id hash of password under a fresh random
// salt and returns the encoded form "argon2id$<salt b64>$<hash b64>".
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	hash := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return fmt.Sprintf("argon2id$%s$%s",
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash)), nil
}

// VerifyPassword reports whether password matches the encoded hash. The
// comparison is constant time; malformed encodings simply fail the check.
func VerifyPassword(encoded, password string) bool {
	parts := strings.Split(encoded, "$")
	if len(parts) != 3 || parts[0] != "argon2id" {
		return false
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[1])
	if err != nil {
		return false
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[2])
	if err != nil {
		return false
	}
	got := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return subtle.ConstantTimeCompare(want, got) == 1
}
