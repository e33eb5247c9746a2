// Package common defines shared constants and sentinel errors used across
// passvault components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrVersionConflict = errors.New("version conflict")

	// Crypto errors.
	ErrDecryptionFailed = errors.New("decryption failed")
	ErrInvalidEnvelope  = errors.New("invalid backup envelope")

	// Record validation.
	ErrProjectNameRequired = errors.New("project name is required")
	ErrInvalidCustomFields = errors.New("custom fields must be a JSON object of strings")
	ErrDegradedRecord      = errors.New("record contains undecryptable fields")

	// Sync / environment errors.
	ErrSyncNotConfigured = errors.New("sync not configured")
	ErrVaultLocked       = errors.New("vault is in use by another process")
)
