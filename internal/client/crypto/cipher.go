// Package crypto maps credential records to and from their encrypted
// at-rest form, one field at a time.
package crypto

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/passvault/internal/client/keys"
	"github.com/dmitrijs2005/passvault/internal/client/models"
	"github.com/dmitrijs2005/passvault/internal/common"
)

// KeySource supplies the data key. *keys.Manager implements it.
type KeySource interface {
	DataKey(ctx context.Context) ([]byte, error)
}

// Field names reported in Result.Failed.
const (
	FieldProjectName  = "projectname"
	FieldUsername     = "username"
	FieldPassword     = "password"
	FieldNumber       = "number"
	FieldNotes        = "notes"
	FieldCustomFields = "customFieldJson"
)

// Result is a decrypted record together with the fields that failed.
// Failed fields hold common.DecryptionFailedMarker.
type Result struct {
	Credential models.Credential
	Failed     []string
}

// OK reports whether every field decrypted.
func (r Result) OK() bool { return len(r.Failed) == 0 }

type Cipher struct {
	keys KeySource
}

func New(keys KeySource) *Cipher {
	return &Cipher{keys: keys}
}

type fieldRef struct {
	name string
	ptr  *string
}

func fieldsOf(c *models.Credential) []fieldRef {
	return []fieldRef{
		{FieldProjectName, &c.ProjectName},
		{FieldUsername, &c.Username},
		{FieldPassword, &c.Password},
		{FieldNumber, &c.Number},
		{FieldNotes, &c.Notes},
		{FieldCustomFields, &c.CustomFieldJSON},
	}
}

// Encrypt returns a copy of c with all six string fields encrypted.
// ID and LastModified are untouched. Degraded records are refused.
func (x *Cipher) Encrypt(ctx context.Context, c models.Credential) (models.Credential, error) {
	if c.Degraded {
		return models.Credential{}, common.ErrDegradedRecord
	}
	key, err := x.keys.DataKey(ctx)
	if err != nil {
		return models.Credential{}, err
	}
	defer common.WipeByteArray(key)

	out := c
	for _, f := range fieldsOf(&out) {
		v, err := keys.SealField(key, *f.ptr)
		if err != nil {
			return models.Credential{}, fmt.Errorf("encrypt %s: %w", f.name, err)
		}
		*f.ptr = v
	}
	return out, nil
}

// Decrypt returns the plaintext form of a stored record. A field that does
// not decrypt is replaced by common.DecryptionFailedMarker, listed in
// Result.Failed and the record is flagged Degraded. The error is non-nil
// only when the data key itself is unavailable.
func (x *Cipher) Decrypt(ctx context.Context, c models.Credential) (Result, error) {
	key, err := x.keys.DataKey(ctx)
	if err != nil {
		return Result{}, err
	}
	defer common.WipeByteArray(key)
	return decryptWith(key, c), nil
}

// DecryptAll decrypts a list, fetching the data key once.
func (x *Cipher) DecryptAll(ctx context.Context, list []models.Credential) ([]Result, error) {
	key, err := x.keys.DataKey(ctx)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(key)

	out := make([]Result, 0, len(list))
	for _, c := range list {
		out = append(out, decryptWith(key, c))
	}
	return out, nil
}

func decryptWith(key []byte, c models.Credential) Result {
	res := Result{Credential: c}
	for _, f := range fieldsOf(&res.Credential) {
		v, err := keys.OpenField(key, *f.ptr)
		if err != nil {
			v = common.DecryptionFailedMarker
			res.Failed = append(res.Failed, f.name)
		}
		*f.ptr = v
	}
	res.Credential.Degraded = len(res.Failed) > 0
	return res
}

// EncryptString seals a single value, for history rows.
func (x *Cipher) EncryptString(ctx context.Context, s string) (string, error) {
	key, err := x.keys.DataKey(ctx)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(key)
	return keys.SealField(key, s)
}

// DecryptString opens a single value. On a ciphertext failure it returns
// the marker together with an error wrapping common.ErrDecryptionFailed.
func (x *Cipher) DecryptString(ctx context.Context, blob string) (string, error) {
	key, err := x.keys.DataKey(ctx)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(key)
	v, err := keys.OpenField(key, blob)
	if errors.Is(err, common.ErrDecryptionFailed) {
		return common.DecryptionFailedMarker, err
	}
	return v, err
}
