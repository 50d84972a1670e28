package secret

import (
	"encoding/hex"
	"strings"
	"testing"
)

func newTestCipher(t *testing.T) *Cipher {
	t.Helper()
	c, err := NewCipher("test-encryption-key", "")
	if err != nil {
		t.Fatalf("NewCipher() error = %v", err)
	}
	return c
}

func TestNewCipher_EmptyKey(t *testing.T) {
	if _, err := NewCipher("", "salt"); err != ErrEmptyKey {
		t.Errorf("NewCipher(\"\") error = %v, want ErrEmptyKey", err)
	}
}

func TestCipher_EncryptDecrypt(t *testing.T) {
	c := newTestCipher(t)

	tests := []struct {
		name      string
		plaintext string
	}{
		{"simple token", "ya29.a0AfH6SMBx"},
		{"block sized", "0123456789abcdef"},
		{"long token", strings.Repeat("refresh-token-", 40)},
		{"special chars", "token!@#$%^&*()_+-={}[]|:;<>?,./"},
		{"unicode", "token_🔐_secure"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ciphertext, err := c.Encrypt(tt.plaintext)
			if err != nil {
				t.Fatalf("Encrypt() error = %v", err)
			}

			ivHex, ctHex, ok := strings.Cut(ciphertext, ":")
			if !ok {
				t.Fatalf("Encrypt() = %q, missing separator", ciphertext)
			}
			if iv, err := hex.DecodeString(ivHex); err != nil || len(iv) != 16 {
				t.Errorf("Encrypt() IV = %q, want 16 hex-encoded bytes", ivHex)
			}
			if _, err := hex.DecodeString(ctHex); err != nil {
				t.Errorf("Encrypt() ciphertext is not hex: %v", err)
			}

			decrypted, err := c.Decrypt(ciphertext)
			if err != nil {
				t.Fatalf("Decrypt() error = %v", err)
			}
			if decrypted != tt.plaintext {
				t.Errorf("Decrypt() = %q, want %q", decrypted, tt.plaintext)
			}
		})
	}
}

func TestCipher_EncryptIsNonDeterministic(t *testing.T) {
	c := newTestCipher(t)

	first, err := c.Encrypt("same-token")
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	second, err := c.Encrypt("same-token")
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	if first == second {
		t.Error("Encrypt() produced identical ciphertexts for the same plaintext")
	}
}

func TestCipher_EmptyAndMalformed(t *testing.T) {
	c := newTestCipher(t)

	enc, err := c.Encrypt("")
	if err != nil || enc != "" {
		t.Errorf("Encrypt(\"\") = %q, %v; want \"\", nil", enc, err)
	}

	for _, in := range []string{"", "not-a-valid-format"} {
		got, err := c.Decrypt(in)
		if err != nil {
			t.Errorf("Decrypt(%q) error = %v, want nil", in, err)
		}
		if got != "" {
			t.Errorf("Decrypt(%q) = %q, want \"\"", in, got)
		}
	}
}

func TestCipher_DecryptCorrupted(t *testing.T) {
	c := newTestCipher(t)

	valid, err := c.Encrypt("token")
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	ivHex, _, _ := strings.Cut(valid, ":")

	tests := []struct {
		name  string
		input string
	}{
		{"bad iv hex", "zz:00"},
		{"short iv", "0011:" + strings.Repeat("00", 16)},
		{"bad ciphertext hex", ivHex + ":xyz"},
		{"partial block", ivHex + ":00ff"},
		{"empty ciphertext", ivHex + ":"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := c.Decrypt(tt.input); err == nil {
				t.Errorf("Decrypt(%q) expected error", tt.input)
			}
		})
	}
}

func TestCipher_SaltChangesKey(t *testing.T) {
	a, err := NewCipher("key", "salt-a")
	if err != nil {
		t.Fatalf("NewCipher() error = %v", err)
	}
	b, err := NewCipher("key", "salt-b")
	if err != nil {
		t.Fatalf("NewCipher() error = %v", err)
	}

	if string(a.key) == string(b.key) {
		t.Error("different salts derived the same key")
	}

	d, err := NewCipher("key", "")
	if err != nil {
		t.Fatalf("NewCipher() error = %v", err)
	}
	s, err := NewCipher("key", DefaultSalt)
	if err != nil {
		t.Fatalf("NewCipher() error = %v", err)
	}
	if string(d.key) != string(s.key) {
		t.Error("empty salt did not fall back to DefaultSalt")
	}
}
