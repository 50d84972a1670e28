package secret

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/scrypt"
)

const (
	// DefaultSalt is used when no salt is configured.
	DefaultSalt = "salt"

	keyLength = 32

	// scrypt cost parameters
	scryptN = 16384
	scryptR = 8
	scryptP = 1
)

// ErrEmptyKey is returned when a cipher is requested without a key.
var ErrEmptyKey = errors.New("encryption key must not be empty")

// Cipher encrypts and decrypts token strings at rest.
// It is immutable after construction and safe for concurrent use.
type Cipher struct {
	key []byte
}

// NewCipher derives the AES-256 key from key and salt.
// An empty salt falls back to DefaultSalt.
func NewCipher(key, salt string) (*Cipher, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	if salt == "" {
		salt = DefaultSalt
	}

	derived, err := scrypt.Key([]byte(key), []byte(salt), scryptN, scryptR, scryptP, keyLength)
	if err != nil {
		return nil, fmt.Errorf("failed to derive encryption key: %w", err)
	}

	return &Cipher{key: derived}, nil
}

// Encrypt returns hex(iv):hex(ciphertext) for plaintext.
// Empty input yields empty output so unset token fields stay unset.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", fmt.Errorf("failed to generate IV: %w", err)
	}

	padded := pad([]byte(plaintext), aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)

	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(out), nil
}

// Decrypt reverses Encrypt.
//
// An empty string or a value without the ":" separator decrypts to "" with
// no error. Anything else that fails to decrypt is reported.
func (c *Cipher) Decrypt(encoded string) (string, error) {
	ivHex, ctHex, ok := strings.Cut(encoded, ":")
	if !ok {
		return "", nil
	}

	iv, err := hex.DecodeString(ivHex)
	if err != nil {
		return "", fmt.Errorf("failed to decode IV: %w", err)
	}
	if len(iv) != aes.BlockSize {
		return "", fmt.Errorf("invalid IV length %d", len(iv))
	}

	ciphertext, err := hex.DecodeString(ctHex)
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext: %w", err)
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return "", fmt.Errorf("ciphertext is not a multiple of the block size")
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ciphertext)

	plaintext, err := unpad(out, aes.BlockSize)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}

	return string(plaintext), nil
}

// pad applies PKCS#7 padding.
func pad(data []byte, size int) []byte {
	n := size - len(data)%size
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(data []byte, size int) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.New("empty payload")
	}
	n := int(data[len(data)-1])
	if n == 0 || n > size || n > len(data) {
		return nil, errors.New("invalid padding")
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, errors.New("invalid padding")
		}
	}
	return data[:len(data)-n], nil
}
