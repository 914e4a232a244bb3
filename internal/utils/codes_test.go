package utils

import (
	"regexp"
	"testing"
)

func TestNewSessionCode(t *testing.T) {
	pattern := regexp.MustCompile(`^[A-Z0-9]{6}$`)

	t.Run("matches format", func(t *testing.T) {
		for i := 0; i < 1000; i++ {
			code, err := NewSessionCode()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !pattern.MatchString(code) {
				t.Fatalf("code %q does not match %s", code, pattern)
			}
		}
	})

	t.Run("collisions are rare", func(t *testing.T) {
		// 1000 draws from 36^6 codes: expected collisions ~0.0002.
		seen := make(map[string]bool)
		dupes := 0
		for i := 0; i < 1000; i++ {
			code, err := NewSessionCode()
			if err != nil {
				t.Fatal(err)
			}
			if seen[code] {
				dupes++
			}
			seen[code] = true
		}
		if dupes > 1 {
			t.Errorf("got %d collisions in 1000 codes", dupes)
		}
	})

	t.Run("uses the whole alphabet", func(t *testing.T) {
		counts := make(map[rune]int)
		for i := 0; i < 1000; i++ {
			code, _ := NewSessionCode()
			for _, c := range code {
				counts[c]++
			}
		}
		// 6000 symbols over 36 letters: ~167 each. Every symbol should show up.
		if len(counts) != len(codeAlphabet) {
			t.Errorf("expected %d distinct symbols, got %d", len(codeAlphabet), len(counts))
		}
		for c, n := range counts {
			if n < 60 || n > 300 {
				t.Errorf("symbol %c drawn %d times, outside plausible uniform range", c, n)
			}
		}
	})
}

func TestNormalizeAndValidateCode(t *testing.T) {
	tests := []struct {
		input string
		norm  string
		valid bool
	}{
		{"ABC123", "ABC123", true},
		{"abc123", "ABC123", true},
		{"  x9y8z7 ", "X9Y8Z7", true},
		{"ABC12", "ABC12", false},
		{"ABC1234", "ABC1234", false},
		{"AB-123", "AB-123", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := NormalizeCode(tt.input)
			if got != tt.norm {
				t.Errorf("NormalizeCode(%q) = %q, want %q", tt.input, got, tt.norm)
			}
			if ValidCode(got) != tt.valid {
				t.Errorf("ValidCode(%q) = %v, want %v", got, !tt.valid, tt.valid)
			}
		})
	}
}

func TestNewEncryptionKey(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		key, err := NewEncryptionKey()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(key) != 43 {
			t.Errorf("expected 43-char key, got %d", len(key))
		}
		if seen[key] {
			t.Fatalf("duplicate key generated: %s", key)
		}
		seen[key] = true
	}
}

func TestFormatFileSize(t *testing.T) {
	tests := []struct {
		name     string
		bytes    int64
		expected string
	}{
		{"zero bytes", 0, "0 B"},
		{"bytes", 500, "500 B"},
		{"kilobytes", 1500, "1.5 kB"},
		{"megabytes", 104857600, "105 MB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatFileSize(tt.bytes); got != tt.expected {
				t.Errorf("FormatFileSize(%d) = %s; want %s", tt.bytes, got, tt.expected)
			}
		})
	}
}
