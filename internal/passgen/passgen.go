// Package passgen generates random passwords.
package passgen

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

const (
	DefaultLength = 16
	MaxLength     = 128

	Upper   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	Lower   = "abcdefghijklmnopqrstuvwxyz"
	Digits  = "0123456789"
	Symbols = "!@#$%^&*"
)

var classes = []string{Upper, Lower, Digits, Symbols}

var ErrLength = fmt.Errorf("password length must be between %d and %d", len(classes), MaxLength)

// Generate returns a password of the given length (DefaultLength when
// length is 0) with at least one character from every class.
func Generate(length int) (string, error) {
	if length == 0 {
		length = DefaultLength
	}
	if length < len(classes) || length > MaxLength {
		return "", ErrLength
	}

	all := strings.Join(classes, "")
	out := make([]byte, 0, length)
	for _, c := range classes {
		b, err := pick(c)
		if err != nil {
			return "", err
		}
		out = append(out, b)
	}
	for len(out) < length {
		b, err := pick(all)
		if err != nil {
			return "", err
		}
		out = append(out, b)
	}

	if err := shuffle(out); err != nil {
		return "", err
	}
	return string(out), nil
}

func randInt(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("random source: %w", err)
	}
	return int(v.Int64()), nil
}

func pick(set string) (byte, error) {
	i, err := randInt(len(set))
	if err != nil {
		return 0, err
	}
	return set[i], nil
}

// shuffle is Fisher-Yates so the guaranteed characters are not always first.
func shuffle(b []byte) error {
	for i := len(b) - 1; i > 0; i-- {
		j, err := randInt(i + 1)
		if err != nil {
			return err
		}
		b[i], b[j] = b[j], b[i]
	}
	return nil
}
