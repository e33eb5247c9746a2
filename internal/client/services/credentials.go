package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/passvault/internal/broadcast"
	"github.com/dmitrijs2005/passvault/internal/client/cache"
	"github.com/dmitrijs2005/passvault/internal/client/crypto"
	"github.com/dmitrijs2005/passvault/internal/client/models"
	"github.com/dmitrijs2005/passvault/internal/client/storage"
	"github.com/dmitrijs2005/passvault/internal/common"
	"github.com/dmitrijs2005/passvault/internal/logging"
)

// Options bounds the growth of the recycle bin and history. Zero values
// disable the corresponding limit.
type Options struct {
	RecycleBinTTL time.Duration
	RecycleBinCap int
	HistoryCap    int
}

type CredentialService struct {
	*Reader

	vault  *storage.Vault
	cipher *crypto.Cipher
	cache  *cache.Cache
	logger logging.Logger
	opts   Options

	now     func() time.Time
	changes *broadcast.Hub[[]models.Credential]
}

func NewCredentialService(vault *storage.Vault, reader *Reader, c *cache.Cache, logger logging.Logger, opts Options) *CredentialService {
	return &CredentialService{
		Reader:  reader,
		vault:   vault,
		cipher:  reader.cipher,
		cache:   c,
		logger:  logger,
		opts:    opts,
		now:     time.Now,
		changes: broadcast.New[[]models.Credential](),
	}
}

func (s *CredentialService) nowMillis() int64 {
	return s.now().UnixMilli()
}

// Cache exposes the decrypted snapshot the service keeps coherent.
func (s *CredentialService) Cache() *cache.Cache {
	return s.cache
}

func validate(c models.Credential) error {
	if c.Degraded {
		return common.ErrDegradedRecord
	}
	if strings.TrimSpace(c.ProjectName) == "" {
		return common.ErrProjectNameRequired
	}
	if _, err := models.ParseCustomFields(c.CustomFieldJSON); err != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidCustomFields, err)
	}
	return nil
}

// mutate runs fn in a transaction, optionally marks local data as changed
// for sync, and after commit invalidates the cache and notifies subscribers.
func (s *CredentialService) mutate(ctx context.Context, touch bool, now int64, fn func(ctx context.Context, r *storage.Repositories) error) error {
	err := s.vault.WithTx(ctx, func(ctx context.Context, r *storage.Repositories) error {
		if err := fn(ctx, r); err != nil {
			return err
		}
		if touch {
			return r.SyncMeta.TouchLocal(ctx, now)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.cache.Invalidate()
	s.publish(ctx)
	return nil
}

func (s *CredentialService) publish(ctx context.Context) {
	rows, err := s.vault.Repos.Credentials.GetAll(ctx)
	if err != nil {
		s.logger.Warn(ctx, "failed to read records after commit", "error", err)
		return
	}
	s.changes.Publish(rows)
}

// Subscribe delivers the stored (encrypted) record list, newest first:
// the current list right away and then the list after every committed
// change. A slow reader only sees the latest list.
func (s *CredentialService) Subscribe(ctx context.Context) <-chan []models.Credential {
	if _, ok := s.changes.Latest(); !ok {
		s.publish(ctx)
	}
	return s.changes.Subscribe(ctx)
}

// Create stores a new record and returns its id.
func (s *CredentialService) Create(ctx context.Context, c models.Credential) (int64, error) {
	if err := validate(c); err != nil {
		return 0, err
	}

	now := s.nowMillis()
	c.ID = 0
	c.LastModified = now

	enc, err := s.cipher.Encrypt(ctx, c)
	if err != nil {
		return 0, fmt.Errorf("encrypt record: %w", err)
	}
	hist, err := s.historyEntry(ctx, c, models.OperationCreate, now)
	if err != nil {
		return 0, err
	}

	var id int64
	err = s.mutate(ctx, true, now, func(ctx context.Context, r *storage.Repositories) error {
		id, err = r.Credentials.Insert(ctx, &enc)
		if err != nil {
			return err
		}
		return s.appendHistory(ctx, r, hist, id)
	})
	if err != nil {
		return 0, fmt.Errorf("create record: %w", err)
	}

	s.logger.Debug(ctx, "record created", "id", id)
	return id, nil
}

// Update overwrites an existing record and refreshes its timestamp.
func (s *CredentialService) Update(ctx context.Context, c models.Credential) error {
	if c.ID == 0 {
		return fmt.Errorf("update record: %w", common.ErrorNotFound)
	}
	if err := validate(c); err != nil {
		return err
	}

	now := s.nowMillis()
	c.LastModified = now

	enc, err := s.cipher.Encrypt(ctx, c)
	if err != nil {
		return fmt.Errorf("encrypt record: %w", err)
	}
	hist, err := s.historyEntry(ctx, c, models.OperationUpdate, now)
	if err != nil {
		return err
	}

	err = s.mutate(ctx, true, now, func(ctx context.Context, r *storage.Repositories) error {
		if err := r.Credentials.Update(ctx, &enc); err != nil {
			return err
		}
		return s.appendHistory(ctx, r, hist, c.ID)
	})
	if err != nil {
		return fmt.Errorf("update record %d: %w", c.ID, err)
	}
	return nil
}

// SaveOrUpdate creates the record when its id is 0 and updates it otherwise.
func (s *CredentialService) SaveOrUpdate(ctx context.Context, c models.Credential) (int64, error) {
	if c.ID == 0 {
		return s.Create(ctx, c)
	}
	return c.ID, s.Update(ctx, c)
}

// Delete moves a record into the recycle bin.
func (s *CredentialService) Delete(ctx context.Context, id int64, reason string) error {
	now := s.nowMillis()
	err := s.mutate(ctx, true, now, func(ctx context.Context, r *storage.Repositories) error {
		row, err := r.Credentials.GetByID(ctx, id)
		if err != nil {
			return err
		}
		snapshot, err := json.Marshal(row)
		if err != nil {
			return err
		}
		if _, err := r.RecycleBin.Insert(ctx, &models.RecycleBinEntry{
			OriginalID:    id,
			DeletedTime:   now,
			LoginDataJSON: string(snapshot),
			DeleteReason:  reason,
		}); err != nil {
			return err
		}
		if err := r.Credentials.DeleteByID(ctx, id); err != nil {
			return err
		}
		return s.applyRetention(ctx, r, now)
	})
	if err != nil {
		return fmt.Errorf("delete record %d: %w", id, err)
	}
	return nil
}

// GetByID reads one record straight from storage.
func (s *CredentialService) GetByID(ctx context.Context, id int64) (models.Credential, error) {
	row, err := s.vault.Repos.Credentials.GetByID(ctx, id)
	if err != nil {
		return models.Credential{}, err
	}
	res, err := s.cipher.Decrypt(ctx, *row)
	if err != nil {
		return models.Credential{}, err
	}
	return res.Credential, nil
}

// GetAll returns the decrypted list through the cache. When a refresh
// fails but an older list exists, the older list is served.
func (s *CredentialService) GetAll(ctx context.Context) ([]models.Credential, error) {
	list, err := s.cache.Get(ctx)
	if err != nil {
		if len(list) == 0 {
			return nil, err
		}
		s.logger.Warn(ctx, "serving stale records", "error", err)
	}
	return list, nil
}

// Query filters by a case-insensitive substring over all six fields and
// returns one page. A non-positive limit returns everything after offset.
func (s *CredentialService) Query(ctx context.Context, query string, offset, limit int) (models.Page, error) {
	list, err := s.GetAll(ctx)
	if err != nil {
		return models.Page{}, err
	}
	return paginate(list, query, offset, limit), nil
}

func paginate(list []models.Credential, query string, offset, limit int) models.Page {
	matched := make([]models.Credential, 0, len(list))
	for _, c := range list {
		if c.Matches(query) {
			matched = append(matched, c)
		}
	}

	if offset < 0 {
		offset = 0
	}
	page := models.Page{Total: len(matched), Offset: offset, Limit: limit}
	if offset >= len(matched) {
		page.Items = []models.Credential{}
		return page
	}
	end := len(matched)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	page.Items = matched[offset:end]
	return page
}

// WatchQuery re-runs a query after every committed change.
func (s *CredentialService) WatchQuery(ctx context.Context, query string, offset, limit int) <-chan models.Page {
	in := s.Subscribe(ctx)
	out := broadcast.New[models.Page]()
	ch := out.Subscribe(ctx)

	go func() {
		for rows := range in {
			list, err := s.decryptList(ctx, rows)
			if err != nil {
				s.logger.Warn(ctx, "watch query: decrypt failed", "error", err)
				continue
			}
			out.Publish(paginate(list, query, offset, limit))
		}
	}()
	return ch
}

// ReplaceAll deletes every record and inserts items in a single
// transaction. Ids are reassigned and timestamps kept. It does not mark
// local data as changed; the caller records sync state itself.
func (s *CredentialService) ReplaceAll(ctx context.Context, items []models.Credential) error {
	now := s.nowMillis()

	type prepared struct {
		row  models.Credential
		hist *models.HistoryEntry
	}
	batch := make([]prepared, 0, len(items))
	for _, c := range items {
		if c.Degraded {
			return common.ErrDegradedRecord
		}
		c.ID = 0
		enc, err := s.cipher.Encrypt(ctx, c)
		if err != nil {
			return fmt.Errorf("encrypt record: %w", err)
		}
		hist, err := s.historyEntry(ctx, c, models.OperationImport, now)
		if err != nil {
			return err
		}
		batch = append(batch, prepared{row: enc, hist: hist})
	}

	err := s.mutate(ctx, false, now, func(ctx context.Context, r *storage.Repositories) error {
		if err := r.Credentials.DeleteAll(ctx); err != nil {
			return err
		}
		for i := range batch {
			id, err := r.Credentials.Insert(ctx, &batch[i].row)
			if err != nil {
				return err
			}
			if err := s.appendHistory(ctx, r, batch[i].hist, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("replace records: %w", err)
	}
	s.logger.Info(ctx, "records replaced", "count", len(items))
	return nil
}

// InsertAll bulk-inserts plaintext records; a record whose id already
// exists replaces it, id 0 gets a new id.
func (s *CredentialService) InsertAll(ctx context.Context, items []models.Credential) error {
	rows := make([]models.Credential, 0, len(items))
	for _, c := range items {
		if err := validate(c); err != nil {
			return err
		}
		enc, err := s.cipher.Encrypt(ctx, c)
		if err != nil {
			return fmt.Errorf("encrypt record: %w", err)
		}
		rows = append(rows, enc)
	}

	now := s.nowMillis()
	err := s.mutate(ctx, true, now, func(ctx context.Context, r *storage.Repositories) error {
		return r.Credentials.InsertAll(ctx, rows)
	})
	if err != nil {
		return fmt.Errorf("insert records: %w", err)
	}
	return nil
}

// ProjectIDByName returns the id of the newest record whose project name
// equals name, ignoring case and surrounding spaces.
func (s *CredentialService) ProjectIDByName(ctx context.Context, name string) (int64, error) {
	list, err := s.GetAll(ctx)
	if err != nil {
		return 0, err
	}
	name = strings.TrimSpace(name)
	for _, c := range list {
		if strings.EqualFold(strings.TrimSpace(c.ProjectName), name) {
			return c.ID, nil
		}
	}
	return 0, common.ErrorNotFound
}

// ApplyRetention purges the recycle bin and history down to their limits.
func (s *CredentialService) ApplyRetention(ctx context.Context) error {
	now := s.nowMillis()
	return s.vault.WithTx(ctx, func(ctx context.Context, r *storage.Repositories) error {
		return s.applyRetention(ctx, r, now)
	})
}

func (s *CredentialService) applyRetention(ctx context.Context, r *storage.Repositories, now int64) error {
	if s.opts.RecycleBinTTL > 0 {
		cutoff := now - s.opts.RecycleBinTTL.Milliseconds()
		if _, err := r.RecycleBin.PurgeOlderThan(ctx, cutoff); err != nil {
			return err
		}
	}
	if s.opts.RecycleBinCap > 0 {
		if _, err := r.RecycleBin.TrimToLimit(ctx, s.opts.RecycleBinCap); err != nil {
			return err
		}
	}
	if s.opts.HistoryCap > 0 {
		if _, err := r.History.TrimToLimit(ctx, s.opts.HistoryCap); err != nil {
			return err
		}
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, common.ErrorNotFound)
}
