package syncer

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/passvault/internal/client/models"
	"github.com/dmitrijs2005/passvault/internal/common"
	"github.com/dmitrijs2005/passvault/internal/cryptox"
)

const (
	ModeUserKey  = "user_key"
	ModeFixedKey = "fixed_key"

	// EnvelopeVersion is written by Seal: argon2id key, AES-GCM.
	EnvelopeVersion = 3
	// LegacyEnvelopeVersion is the padded-password CBC format, read only.
	LegacyEnvelopeVersion = 2

	// FixedKey encrypts backups when the user has not set an export password.
	FixedKey = "Base64OrObfuscatedKeyHere"
)

// Envelope is the outer JSON object of a backup file.
type Envelope struct {
	Version       int    `json:"version"`
	Mode          string `json:"mode"`
	EncryptedData string `json:"encryptedData"`
}

// Seal encrypts records (plaintext) with password, or with FixedKey when
// password is blank, and returns the envelope JSON.
func Seal(records []models.Credential, password string) ([]byte, error) {
	for _, r := range records {
		if r.Degraded {
			return nil, fmt.Errorf("record %d: %w", r.ID, common.ErrDegradedRecord)
		}
	}
	if records == nil {
		records = []models.Credential{}
	}
	payload, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("marshal records: %w", err)
	}

	mode, key := ModeUserKey, password
	if strings.TrimSpace(password) == "" {
		mode, key = ModeFixedKey, FixedKey
	}

	enc, err := cryptox.EncryptWithPassword(payload, key)
	if err != nil {
		return nil, fmt.Errorf("encrypt backup: %w", err)
	}
	return json.Marshal(Envelope{Version: EnvelopeVersion, Mode: mode, EncryptedData: enc})
}

type rawEnvelope struct {
	Version       *int    `json:"version"`
	Mode          *string `json:"mode"`
	EncryptedData *string `json:"encryptedData"`
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", common.ErrInvalidEnvelope, fmt.Sprintf(format, args...))
}

// Open parses and decrypts an envelope and returns its records. A missing
// mode means fixed_key and a missing version means the legacy format.
func Open(data []byte, password string) ([]models.Credential, error) {
	var raw rawEnvelope
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, invalid("%v", err)
	}
	if raw.EncryptedData == nil || strings.TrimSpace(*raw.EncryptedData) == "" {
		return nil, invalid("encryptedData is missing")
	}

	mode := ModeFixedKey
	if raw.Mode != nil {
		mode = *raw.Mode
	}
	var key string
	switch mode {
	case ModeUserKey:
		if strings.TrimSpace(password) == "" {
			return nil, invalid("backup is protected by a password")
		}
		key = password
	case ModeFixedKey:
		key = FixedKey
	default:
		return nil, invalid("unknown mode %q", mode)
	}

	version := LegacyEnvelopeVersion
	if raw.Version != nil {
		version = *raw.Version
	}

	var plain []byte
	var err error
	switch version {
	case EnvelopeVersion:
		plain, err = cryptox.DecryptWithPassword(*raw.EncryptedData, key)
	case LegacyEnvelopeVersion:
		plain, err = cryptox.DecryptLegacyWithPassword(*raw.EncryptedData, key)
	default:
		return nil, invalid("unsupported version %d", version)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: verify the password: %v", common.ErrDecryptionFailed, err)
	}

	var records []models.Credential
	if err := json.Unmarshal(plain, &records); err != nil {
		// an unauthenticated legacy blob decrypted with the wrong key
		// usually ends up here
		if version == LegacyEnvelopeVersion {
			return nil, fmt.Errorf("%w: verify the password: %v", common.ErrDecryptionFailed, err)
		}
		return nil, invalid("records: %v", err)
	}
	if records == nil {
		return nil, invalid("records: not an array")
	}
	return records, nil
}

// IsPasswordError reports whether err means the backup could not be
// decrypted, as opposed to being malformed.
func IsPasswordError(err error) bool {
	return errors.Is(err, common.ErrDecryptionFailed)
}
