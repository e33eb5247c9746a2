package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/passvault/internal/common"
	"golang.org/x/crypto/argon2"
)

const (
	// KeySize is the size of every symmetric key used by passvault (AES-256).
	KeySize = 32
	// NonceSize is the AES-GCM nonce size.
	NonceSize = 12
	// SaltSize is the argon2 salt size used by password envelopes.
	SaltSize = 16

	legacyIVSize = aes.BlockSize
)

var (
	ErrShortCiphertext = errors.New("ciphertext too short")
	ErrBadPadding      = errors.New("invalid padding")
	ErrEmptyPassword   = errors.New("password must not be empty")
)

// DeriveKey stretches a password into a 32-byte key with argon2id.
//
// The parameters (time=1, memory=64 MiB, threads=4) are part of the export
// format: changing them makes existing backups undecryptable.
func DeriveKey(password []byte, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, KeySize)
}

// RandomKey returns a fresh random 256-bit key.
func RandomKey() ([]byte, error) {
	k := make([]byte, KeySize)
	if _, err := rand.Read(k); err != nil {
		return nil, err
	}
	return k, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Seal encrypts plaintext with AES-GCM under key and returns nonce||ciphertext||tag.
//
// A new random 12-byte nonce is generated for every call, so sealing the same
// plaintext twice never yields the same output.
//
// Parameters:
//   - key: a 16, 24 or 32 byte AES key.
//   - plaintext: arbitrary bytes, may be empty.
//
// Returns:
//   - the combined blob, ready to be stored or base64-encoded.
//   - err: non-nil if the key is invalid or the random source fails.
func Seal(key, plaintext []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	out := make([]byte, 0, NonceSize+len(plaintext)+aead.Overhead())
	out = append(out, nonce...)
	return aead.Seal(out, nonce, plaintext, nil), nil
}

// Open reverses Seal. Any tampering with the blob or a wrong key results
// in an error; partial plaintext is never returned.
func Open(key, blob []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(blob) < NonceSize+aead.Overhead() {
		return nil, ErrShortCiphertext
	}
	return aead.Open(nil, blob[:NonceSize], blob[NonceSize:], nil)
}

// SealToString is Seal followed by standard base64 encoding.
func SealToString(key, plaintext []byte) (string, error) {
	blob, err := Seal(key, plaintext)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(blob), nil
}

// OpenString decodes a base64 blob produced by SealToString and opens it.
func OpenString(key []byte, encoded string) ([]byte, error) {
	blob, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	return Open(key, blob)
}

// EncryptWithPassword encrypts plaintext under a key derived from password.
//
// Output is base64(salt(16) || nonce(12) || ciphertext || tag). A fresh salt
// is drawn per call, so the same password produces a different key every time.
func EncryptWithPassword(plaintext []byte, password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	key := DeriveKey([]byte(password), salt)
	defer common.WipeByteArray(key)

	sealed, err := Seal(key, plaintext)
	if err != nil {
		return "", err
	}

	out := make([]byte, 0, SaltSize+len(sealed))
	out = append(out, salt...)
	out = append(out, sealed...)
	return base64.StdEncoding.EncodeToString(out), nil
}

// DecryptWithPassword reverses EncryptWithPassword. A wrong password fails
// GCM authentication and returns an error.
func DecryptWithPassword(encoded string, password string) ([]byte, error) {
	if password == "" {
		return nil, ErrEmptyPassword
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	if len(data) < SaltSize {
		return nil, ErrShortCiphertext
	}

	key := DeriveKey([]byte(password), data[:SaltSize])
	defer common.WipeByteArray(key)

	return Open(key, data[SaltSize:])
}

// LegacyPasswordKey reproduces the key schedule of version 2 backups: the
// password is right-padded with '0' to 32 characters and truncated to 32.
// It is only used to read old backups and must not be used for writing.
func LegacyPasswordKey(password string) ([]byte, error) {
	runes := []rune(password)
	for len(runes) < KeySize {
		runes = append(runes, '0')
	}
	key := []byte(string(runes[:KeySize]))
	if len(key) != KeySize {
		return nil, fmt.Errorf("legacy key: password encodes to %d bytes", len(key))
	}
	return key, nil
}

// DecryptLegacyWithPassword opens a version 2 blob: base64(iv(16) || AES-CBC
// ciphertext) with PKCS#7 padding. The mode is unauthenticated, so a wrong
// password usually surfaces as ErrBadPadding or as invalid UTF-8 further up.
func DecryptLegacyWithPassword(encoded string, password string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	if len(data) < legacyIVSize+aes.BlockSize || (len(data)-legacyIVSize)%aes.BlockSize != 0 {
		return nil, ErrShortCiphertext
	}

	key, err := LegacyPasswordKey(password)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	iv, ct := data[:legacyIVSize], data[legacyIVSize:]
	plain := make([]byte, len(ct))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, ct)

	plain, err = pkcs7Unpad(plain)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(plain) {
		return nil, ErrBadPadding
	}
	return plain, nil
}

func pkcs7Unpad(b []byte) ([]byte, error) {
	if len(b) == 0 || len(b)%aes.BlockSize != 0 {
		return nil, ErrBadPadding
	}
	n := int(b[len(b)-1])
	if n == 0 || n > aes.BlockSize {
		return nil, ErrBadPadding
	}
	for _, v := range b[len(b)-n:] {
		if int(v) != n {
			return nil, ErrBadPadding
		}
	}
	return b[:len(b)-n], nil
}
