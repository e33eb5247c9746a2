package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/passvault/internal/client/models"
	"github.com/dmitrijs2005/passvault/internal/client/storage"
	"github.com/dmitrijs2005/passvault/internal/common"
)

// historyEntry prepares an encrypted history row for c, or nil when the
// password is blank. Encryption happens before the transaction starts
// because the data key may have to be loaded from the database.
func (s *CredentialService) historyEntry(ctx context.Context, c models.Credential, op models.OperationType, now int64) (*models.HistoryEntry, error) {
	if strings.TrimSpace(c.Password) == "" {
		return nil, nil
	}
	project, err := s.cipher.EncryptString(ctx, c.ProjectName)
	if err != nil {
		return nil, fmt.Errorf("encrypt history: %w", err)
	}
	password, err := s.cipher.EncryptString(ctx, c.Password)
	if err != nil {
		return nil, fmt.Errorf("encrypt history: %w", err)
	}
	return &models.HistoryEntry{
		RecordID:      c.ID,
		Timestamp:     now,
		ProjectName:   project,
		Password:      password,
		OperationType: op,
	}, nil
}

func (s *CredentialService) appendHistory(ctx context.Context, r *storage.Repositories, e *models.HistoryEntry, recordID int64) error {
	if e == nil {
		return nil
	}
	e.RecordID = recordID
	if _, err := r.History.Insert(ctx, e); err != nil {
		return err
	}
	if s.opts.HistoryCap > 0 {
		if _, err := r.History.TrimToLimit(ctx, s.opts.HistoryCap); err != nil {
			return err
		}
	}
	return nil
}

// decryptHistory never fails: any field that cannot be opened, including
// when the data key itself is unavailable, shows the failure marker.
func (s *CredentialService) decryptHistory(ctx context.Context, rows []models.HistoryEntry) []models.HistoryEntry {
	open := func(blob string) string {
		v, err := s.cipher.DecryptString(ctx, blob)
		if err != nil {
			return common.DecryptionFailedMarker
		}
		return v
	}
	for i := range rows {
		rows[i].ProjectName = open(rows[i].ProjectName)
		rows[i].Password = open(rows[i].Password)
	}
	return rows
}

// History returns every history entry decrypted, newest first.
func (s *CredentialService) History(ctx context.Context) ([]models.HistoryEntry, error) {
	rows, err := s.vault.Repos.History.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return s.decryptHistory(ctx, rows), nil
}

// HistoryForRecord returns the history of one credential.
func (s *CredentialService) HistoryForRecord(ctx context.Context, id int64) ([]models.HistoryEntry, error) {
	rows, err := s.vault.Repos.History.GetByRecordID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.decryptHistory(ctx, rows), nil
}

// HistoryForProject returns entries whose project name matches, ignoring
// case. Project names are compared after decryption.
func (s *CredentialService) HistoryForProject(ctx context.Context, name string) ([]models.HistoryEntry, error) {
	all, err := s.History(ctx)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	out := make([]models.HistoryEntry, 0)
	for _, e := range all {
		if strings.EqualFold(strings.TrimSpace(e.ProjectName), name) {
			out = append(out, e)
		}
	}
	return out, nil
}

// RecordGeneratedPassword logs a password produced by the generator. It is
// attributed to the record with the same project name when one exists.
func (s *CredentialService) RecordGeneratedPassword(ctx context.Context, project, password string) error {
	recordID, err := s.ProjectIDByName(ctx, project)
	if err != nil && !isNotFound(err) {
		return err
	}

	now := s.nowMillis()
	hist, err := s.historyEntry(ctx, models.Credential{ProjectName: project, Password: password}, models.OperationGenerate, now)
	if err != nil || hist == nil {
		return err
	}

	return s.vault.WithTx(ctx, func(ctx context.Context, r *storage.Repositories) error {
		return s.appendHistory(ctx, r, hist, recordID)
	})
}

// RecycleBinItem is a recycle bin entry with its snapshot decrypted.
type RecycleBinItem struct {
	Entry      models.RecycleBinEntry
	Credential models.Credential
}

func (s *CredentialService) decodeSnapshot(ctx context.Context, e models.RecycleBinEntry) (models.Credential, models.Credential, error) {
	var stored models.Credential
	if err := json.Unmarshal([]byte(e.LoginDataJSON), &stored); err != nil {
		return models.Credential{}, models.Credential{}, fmt.Errorf("decode recycle bin entry %d: %w", e.ID, err)
	}
	res, err := s.cipher.Decrypt(ctx, stored)
	if err != nil {
		return models.Credential{}, models.Credential{}, err
	}
	return stored, res.Credential, nil
}

// RecycleBin lists deleted records, most recent first.
func (s *CredentialService) RecycleBin(ctx context.Context) ([]RecycleBinItem, error) {
	entries, err := s.vault.Repos.RecycleBin.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]RecycleBinItem, 0, len(entries))
	for _, e := range entries {
		_, plain, err := s.decodeSnapshot(ctx, e)
		if err != nil {
			return nil, err
		}
		out = append(out, RecycleBinItem{Entry: e, Credential: plain})
	}
	return out, nil
}

// RecycleBinByOriginalID returns the latest deletion of a record.
func (s *CredentialService) RecycleBinByOriginalID(ctx context.Context, originalID int64) (RecycleBinItem, error) {
	e, err := s.vault.Repos.RecycleBin.GetByOriginalID(ctx, originalID)
	if err != nil {
		return RecycleBinItem{}, err
	}
	_, plain, err := s.decodeSnapshot(ctx, *e)
	if err != nil {
		return RecycleBinItem{}, err
	}
	return RecycleBinItem{Entry: *e, Credential: plain}, nil
}

// RestoreFromRecycleBin puts a deleted record back under a new id and
// returns that id. The snapshot is reinserted as stored, so fields that no
// longer decrypt stay as they were.
func (s *CredentialService) RestoreFromRecycleBin(ctx context.Context, entryID int64) (int64, error) {
	e, err := s.vault.Repos.RecycleBin.GetByID(ctx, entryID)
	if err != nil {
		return 0, err
	}
	stored, plain, err := s.decodeSnapshot(ctx, *e)
	if err != nil {
		return 0, err
	}

	now := s.nowMillis()
	var hist *models.HistoryEntry
	if !plain.Degraded && strings.TrimSpace(plain.Password) != "" {
		hist = &models.HistoryEntry{
			Timestamp:     now,
			ProjectName:   stored.ProjectName,
			Password:      stored.Password,
			OperationType: models.OperationRestore,
		}
	}

	stored.ID = 0
	stored.LastModified = now

	var id int64
	err = s.mutate(ctx, true, now, func(ctx context.Context, r *storage.Repositories) error {
		id, err = r.Credentials.Insert(ctx, &stored)
		if err != nil {
			return err
		}
		if err := r.RecycleBin.DeleteByID(ctx, entryID); err != nil {
			return err
		}
		return s.appendHistory(ctx, r, hist, id)
	})
	if err != nil {
		return 0, fmt.Errorf("restore entry %d: %w", entryID, err)
	}
	return id, nil
}

// PurgeRecycleBinEntry deletes one recycle bin entry for good.
func (s *CredentialService) PurgeRecycleBinEntry(ctx context.Context, entryID int64) error {
	return s.vault.Repos.RecycleBin.DeleteByID(ctx, entryID)
}

// EmptyRecycleBin deletes every recycle bin entry.
func (s *CredentialService) EmptyRecycleBin(ctx context.Context) error {
	return s.vault.Repos.RecycleBin.DeleteAll(ctx)
}
