package keys

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/passvault/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/passvault/internal/common"
	"github.com/dmitrijs2005/passvault/internal/cryptox"
)

// WrappedDataKey is the metadata key holding nonce||ciphertext of the data key.
const WrappedDataKey = "data_key.wrapped"

// Manager hands out the data key, creating and wrapping it on first use.
// The plaintext key lives only in memory.
type Manager struct {
	provider MasterKeyProvider
	meta     metadata.Repository

	mu      sync.Mutex
	dataKey []byte
}

func NewManager(provider MasterKeyProvider, meta metadata.Repository) *Manager {
	return &Manager{provider: provider, meta: meta}
}

// DataKey returns a copy of the data key.
//
// If a wrapped key is stored it is unwrapped with the master key; a failure
// there is reported as common.ErrDecryptionFailed and the stored key is left
// alone. Otherwise a new key is generated, wrapped and stored.
func (m *Manager) DataKey(ctx context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.dataKey == nil {
		key, err := m.loadOrCreate(ctx)
		if err != nil {
			return nil, err
		}
		m.dataKey = key
	}

	out := make([]byte, len(m.dataKey))
	copy(out, m.dataKey)
	return out, nil
}

func (m *Manager) loadOrCreate(ctx context.Context) ([]byte, error) {
	master, err := m.provider.MasterKey(ctx)
	if err != nil {
		return nil, fmt.Errorf("master key: %w", err)
	}
	defer common.WipeByteArray(master)

	wrapped, err := m.meta.Get(ctx, WrappedDataKey)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return nil, err
	}

	if errors.Is(err, common.ErrorNotFound) {
		key, err := cryptox.RandomKey()
		if err != nil {
			return nil, err
		}
		w, err := cryptox.Seal(master, key)
		if err != nil {
			return nil, fmt.Errorf("wrap data key: %w", err)
		}
		stored, err := m.meta.PutIfAbsent(ctx, WrappedDataKey, w)
		if err != nil {
			return nil, err
		}
		if stored {
			return key, nil
		}
		// lost a race against another writer, use theirs
		common.WipeByteArray(key)
		if wrapped, err = m.meta.Get(ctx, WrappedDataKey); err != nil {
			return nil, err
		}
	}

	key, err := cryptox.Open(master, wrapped)
	if err != nil {
		return nil, fmt.Errorf("%w: unwrap data key: %v", common.ErrDecryptionFailed, err)
	}
	return key, nil
}

// EncryptField seals s with the data key; see SealField.
func (m *Manager) EncryptField(ctx context.Context, s string) (string, error) {
	key, err := m.DataKey(ctx)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(key)
	return SealField(key, s)
}

// DecryptField opens a blob produced by EncryptField.
func (m *Manager) DecryptField(ctx context.Context, blob string) (string, error) {
	key, err := m.DataKey(ctx)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(key)
	return OpenField(key, blob)
}

// Forget wipes the cached data key. The next DataKey call unwraps it again.
func (m *Manager) Forget() {
	m.mu.Lock()
	defer m.mu.Unlock()
	common.WipeByteArray(m.dataKey)
	m.dataKey = nil
}

// SealField encrypts s under key: base64(nonce(12) || ciphertext || tag).
func SealField(key []byte, s string) (string, error) {
	return cryptox.SealToString(key, []byte(s))
}

// OpenField reverses SealField. Every failure wraps common.ErrDecryptionFailed.
func OpenField(key []byte, blob string) (string, error) {
	b, err := cryptox.OpenString(key, blob)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrDecryptionFailed, err)
	}
	return string(b), nil
}
