// Package keys owns the two-level key hierarchy of the vault: a master key
// kept outside the database (OS keyring or a private key file) wraps a
// random data key that is stored, wrapped, in the metadata table.
package keys

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/passvault/internal/cryptox"
	"github.com/dmitrijs2005/passvault/internal/filex"
	"github.com/zalando/go-keyring"
)

// MasterKeyProvider returns the 32-byte key that wraps the data key. It
// creates the key on first use.
type MasterKeyProvider interface {
	MasterKey(ctx context.Context) ([]byte, error)
}

// KeyringProvider keeps the master key in the OS keystore
// (Secret Service, macOS Keychain, Windows Credential Manager).
type KeyringProvider struct {
	Service string
	User    string
}

func NewKeyringProvider(service, user string) *KeyringProvider {
	return &KeyringProvider{Service: service, User: user}
}

func (p *KeyringProvider) MasterKey(ctx context.Context) ([]byte, error) {
	s, err := keyring.Get(p.Service, p.User)
	if errors.Is(err, keyring.ErrNotFound) {
		key, err := cryptox.RandomKey()
		if err != nil {
			return nil, err
		}
		if err := keyring.Set(p.Service, p.User, base64.StdEncoding.EncodeToString(key)); err != nil {
			return nil, fmt.Errorf("keyring set: %w", err)
		}
		return key, nil
	}
	if err != nil {
		return nil, fmt.Errorf("keyring get: %w", err)
	}
	return decodeMasterKey(s)
}

// Reset removes the master key from the keystore. Data wrapped with it
// becomes unreadable.
func (p *KeyringProvider) Reset() error {
	err := keyring.Delete(p.Service, p.User)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

// FileProvider keeps the master key base64-encoded in a file readable only
// by the owner.
type FileProvider struct {
	Path string
}

func NewFileProvider(path string) *FileProvider {
	return &FileProvider{Path: path}
}

func (p *FileProvider) MasterKey(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(p.Path)
	if errors.Is(err, os.ErrNotExist) {
		key, err := cryptox.RandomKey()
		if err != nil {
			return nil, err
		}
		if _, err := filex.EnsureDir(filepath.Dir(p.Path)); err != nil {
			return nil, err
		}
		encoded := base64.StdEncoding.EncodeToString(key) + "\n"
		if err := filex.WriteFileAtomic(p.Path, []byte(encoded), 0o600); err != nil {
			return nil, fmt.Errorf("write key file: %w", err)
		}
		return key, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}
	return decodeMasterKey(string(data))
}

func decodeMasterKey(s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("decode master key: %w", err)
	}
	if len(key) != cryptox.KeySize {
		return nil, fmt.Errorf("master key has %d bytes, want %d", len(key), cryptox.KeySize)
	}
	return key, nil
}
