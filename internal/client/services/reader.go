package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/passvault/internal/client/crypto"
	"github.com/dmitrijs2005/passvault/internal/client/models"
	"github.com/dmitrijs2005/passvault/internal/client/repositories/credentials"
)

// Reader decrypts stored credentials. It is the cache loader and is
// embedded in CredentialService.
type Reader struct {
	repo   credentials.Repository
	cipher *crypto.Cipher
}

func NewReader(repo credentials.Repository, cipher *crypto.Cipher) *Reader {
	return &Reader{repo: repo, cipher: cipher}
}

// LoadAll returns every record decrypted, newest first. Records with
// undecryptable fields are included and flagged Degraded.
func (r *Reader) LoadAll(ctx context.Context) ([]models.Credential, error) {
	rows, err := r.repo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	return r.decryptList(ctx, rows)
}

func (r *Reader) decryptList(ctx context.Context, rows []models.Credential) ([]models.Credential, error) {
	results, err := r.cipher.DecryptAll(ctx, rows)
	if err != nil {
		return nil, fmt.Errorf("decrypt records: %w", err)
	}
	out := make([]models.Credential, 0, len(results))
	for _, res := range results {
		out = append(out, res.Credential)
	}
	return out, nil
}
