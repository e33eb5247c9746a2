package cryptox

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// encryptLegacy builds a version 2 blob the way older clients did.
func encryptLegacy(t *testing.T, plaintext []byte, password string) string {
	t.Helper()
	key, err := LegacyPasswordKey(password)
	require.NoError(t, err)
	block, err := aes.NewCipher(key)
	require.NoError(t, err)

	iv := make([]byte, aes.BlockSize)
	_, err = rand.Read(iv)
	require.NoError(t, err)

	n := aes.BlockSize - len(plaintext)%aes.BlockSize
	padded := append(append([]byte{}, plaintext...), bytes.Repeat([]byte{byte(n)}, n)...)

	out := make([]byte, aes.BlockSize+len(padded))
	copy(out, iv)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out[aes.BlockSize:], padded)
	return base64.StdEncoding.EncodeToString(out)
}

func TestDeriveKey_Deterministic(t *testing.T) {
	password := []byte("secret-password")
	salt := []byte("fixed-salt")

	key1 := DeriveKey(password, salt)
	key2 := DeriveKey(password, salt)

	// одинаковые входы -> одинаковый вывод
	if !bytes.Equal(key1, key2) {
		t.Errorf("expected same result for same inputs, got different")
	}

	expectedHex := "34f7a1c64df63ab1ad5b5ee06e64db5713b35f81839823304db63e8e5e6a6a39"
	if hex.EncodeToString(key1) != expectedHex {
		t.Errorf("expected %s, got %s", expectedHex, hex.EncodeToString(key1))
	}
}

func TestDeriveKey_DifferentSalts(t *testing.T) {
	password := []byte("secret-password")

	key1 := DeriveKey(password, []byte("salt-1"))
	key2 := DeriveKey(password, []byte("salt-2"))

	if bytes.Equal(key1, key2) {
		t.Errorf("expected different results for different salts, got same")
	}
}

func TestSealOpen_RoundTrip(t *testing.T) {
	key, err := RandomKey()
	require.NoError(t, err)

	for _, in := range [][]byte{nil, []byte(""), []byte("x"), []byte("пароль 123"), bytes.Repeat([]byte("a"), 4096)} {
		blob, err := Seal(key, in)
		require.NoError(t, err)
		require.Len(t, blob, NonceSize+len(in)+16)

		out, err := Open(key, blob)
		require.NoError(t, err)
		assert.Equal(t, string(in), string(out))
	}
}

func TestSeal_NonDeterministic(t *testing.T) {
	key, err := RandomKey()
	require.NoError(t, err)

	a, err := SealToString(key, []byte("same"))
	require.NoError(t, err)
	b, err := SealToString(key, []byte("same"))
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestOpen_Errors(t *testing.T) {
	key, _ := RandomKey()
	other, _ := RandomKey()

	blob, err := Seal(key, []byte("payload"))
	require.NoError(t, err)

	t.Run("wrong key", func(t *testing.T) {
		_, err := Open(other, blob)
		require.Error(t, err)
	})

	t.Run("tampered", func(t *testing.T) {
		bad := append([]byte{}, blob...)
		bad[len(bad)-1] ^= 0xFF
		_, err := Open(key, bad)
		require.Error(t, err)
	})

	t.Run("too short", func(t *testing.T) {
		_, err := Open(key, blob[:10])
		require.ErrorIs(t, err, ErrShortCiphertext)
	})

	t.Run("bad key size", func(t *testing.T) {
		_, err := Open([]byte("short"), blob)
		require.Error(t, err)
	})

	t.Run("bad base64", func(t *testing.T) {
		_, err := OpenString(key, "%%%")
		require.Error(t, err)
	})
}

func TestPassword_RoundTripAndWrongPassword(t *testing.T) {
	plain := []byte(`[{"projectname":"bank","password":"x"}]`)

	blob, err := EncryptWithPassword(plain, "correct horse")
	require.NoError(t, err)

	got, err := DecryptWithPassword(blob, "correct horse")
	require.NoError(t, err)
	assert.Equal(t, plain, got)

	_, err = DecryptWithPassword(blob, "battery staple")
	require.Error(t, err, "authenticated mode must reject a wrong password")

	blob2, err := EncryptWithPassword(plain, "correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, blob, blob2, "fresh salt and nonce per call")
}

func TestPassword_EmptyPassword(t *testing.T) {
	_, err := EncryptWithPassword([]byte("x"), "")
	require.ErrorIs(t, err, ErrEmptyPassword)

	_, err = DecryptWithPassword("AAAA", "")
	require.ErrorIs(t, err, ErrEmptyPassword)
}

func TestPassword_Garbage(t *testing.T) {
	_, err := DecryptWithPassword("not base64!", "pw")
	require.Error(t, err)

	_, err = DecryptWithPassword(base64.StdEncoding.EncodeToString([]byte("short")), "pw")
	require.ErrorIs(t, err, ErrShortCiphertext)
}

func TestLegacyPasswordKey(t *testing.T) {
	k, err := LegacyPasswordKey("abc")
	require.NoError(t, err)
	assert.Equal(t, "abc00000000000000000000000000000", string(k))

	long := "0123456789abcdef0123456789abcdefXYZ"
	k, err = LegacyPasswordKey(long)
	require.NoError(t, err)
	assert.Equal(t, long[:32], string(k))

	_, err = LegacyPasswordKey("пароль")
	require.Error(t, err, "multi-byte runes do not fit a 32-byte key")
}

func TestDecryptLegacy_RoundTrip(t *testing.T) {
	plain := []byte(`[{"projectname":"legacy"}]`)
	blob := encryptLegacy(t, plain, "Base64OrObfuscatedKeyHere")

	got, err := DecryptLegacyWithPassword(blob, "Base64OrObfuscatedKeyHere")
	require.NoError(t, err)
	assert.Equal(t, plain, got)
}

func TestDecryptLegacy_WrongPasswordDoesNotPanic(t *testing.T) {
	blob := encryptLegacy(t, []byte(`{"a":"b"}`), "right")

	require.NotPanics(t, func() {
		out, err := DecryptLegacyWithPassword(blob, "wrong")
		if err == nil {
			// unauthenticated mode: garbage may slip through padding, never the original
			assert.NotEqual(t, `{"a":"b"}`, string(out))
		}
	})
}

func TestDecryptLegacy_BadLength(t *testing.T) {
	_, err := DecryptLegacyWithPassword(base64.StdEncoding.EncodeToString(make([]byte, 20)), "pw")
	require.ErrorIs(t, err, ErrShortCiphertext)
}
