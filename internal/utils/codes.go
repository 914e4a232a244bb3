package utils

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/dustin/go-humanize"
)

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// CodeLength is the number of characters in a session code.
	CodeLength = 6
	keyBytes   = 32
)

var codePattern = regexp.MustCompile(`^[A-Z0-9]{6}$`)

// NewSessionCode draws a uniform 6-character code from [A-Z0-9].
func NewSessionCode() (string, error) {
	max := big.NewInt(int64(len(codeAlphabet)))
	result := make([]byte, CodeLength)
	for i := range result {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate session code: %w", err)
		}
		result[i] = codeAlphabet[n.Int64()]
	}
	return string(result), nil
}

// NormalizeCode trims and upper-cases receiver input.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidCode reports whether code is a well-formed, normalized session code.
func ValidCode(code string) bool {
	return codePattern.MatchString(code)
}

// NewEncryptionKey returns a fresh random passphrase for one session.
func NewEncryptionKey() (string, error) {
	key := make([]byte, keyBytes)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("failed to generate encryption key: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(key), nil
}

// FormatFileSize renders a byte count the way the UI shows it ("1.5 kB").
func FormatFileSize(bytes int64) string {
	if bytes <= 0 {
		return "0 B"
	}
	return humanize.Bytes(uint64(bytes))
}
