// Package crypto encrypts file payloads under a per-session passphrase.
//
// A sealed block is self-describing:
//
//	magic "SDX1" | salt (16) | nonce (12) | AES-256-GCM ciphertext + tag
//
// The AES key is derived from the passphrase and salt with PBKDF2-SHA256.
// Blocks are processed whole in memory; callers must bound input size.
package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	SaltSize  = 16
	NonceSize = 12
	KeySize   = 32

	// KDFIterations is the PBKDF2 work factor.
	KDFIterations = 100_000
)

var magic = []byte("SDX1")

var (
	ErrEncryptionFailed        = errors.New("failed to encrypt file")
	ErrInvalidKeyOrCorruptData = errors.New("failed to decrypt file: invalid key or corrupted file")
)

// headerSize is the number of bytes preceding the ciphertext.
var headerSize = len(magic) + SaltSize + NonceSize

// Overhead is the number of bytes Encrypt adds to the plaintext.
var Overhead = headerSize + 16

// Encrypt seals plain under passphrase with a fresh random salt and nonce.
func Encrypt(plain []byte, passphrase string) ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}
	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}
	return EncryptWithSalt(plain, passphrase, salt, nonce)
}

// EncryptWithSalt is Encrypt with caller-supplied salt and nonce. The output
// is deterministic for the same inputs. Never reuse a nonce with the same
// passphrase and salt.
func EncryptWithSalt(plain []byte, passphrase string, salt, nonce []byte) ([]byte, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("%w: empty key", ErrEncryptionFailed)
	}
	if len(salt) != SaltSize || len(nonce) != NonceSize {
		return nil, fmt.Errorf("%w: bad salt or nonce length", ErrEncryptionFailed)
	}

	aead, err := newAEAD(passphrase, salt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}

	out := make([]byte, 0, headerSize+len(plain)+aead.Overhead())
	out = append(out, magic...)
	out = append(out, salt...)
	out = append(out, nonce...)
	// The header is authenticated as additional data.
	return aead.Seal(out, nonce, plain, out[:headerSize]), nil
}

// Decrypt opens a block produced by Encrypt. A wrong passphrase or a
// tampered block yields ErrInvalidKeyOrCorruptData and no data.
func Decrypt(block []byte, passphrase string) ([]byte, error) {
	if len(block) < Overhead || !bytes.Equal(block[:len(magic)], magic) {
		return nil, ErrInvalidKeyOrCorruptData
	}

	salt := block[len(magic) : len(magic)+SaltSize]
	nonce := block[len(magic)+SaltSize : headerSize]

	aead, err := newAEAD(passphrase, salt)
	if err != nil {
		return nil, ErrInvalidKeyOrCorruptData
	}

	plain, err := aead.Open(nil, nonce, block[headerSize:], block[:headerSize])
	if err != nil {
		return nil, ErrInvalidKeyOrCorruptData
	}
	if plain == nil {
		plain = []byte{}
	}
	return plain, nil
}

func newAEAD(passphrase string, salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(passphrase), salt, KDFIterations, KeySize, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
