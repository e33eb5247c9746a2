package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/passvault/internal/client/cache"
	"github.com/dmitrijs2005/passvault/internal/client/crypto"
	"github.com/dmitrijs2005/passvault/internal/client/keys"
	"github.com/dmitrijs2005/passvault/internal/client/models"
	"github.com/dmitrijs2005/passvault/internal/client/storage"
	"github.com/dmitrijs2005/passvault/internal/common"
	"github.com/dmitrijs2005/passvault/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type env struct {
	vault *storage.Vault
	svc   *CredentialService
	clock *time.Time
}

func newEnv(t *testing.T, opts Options) *env {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	v, err := storage.Open(ctx, dir, "vault.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = v.Close() })

	km := keys.NewManager(keys.NewFileProvider(filepath.Join(dir, "master.key")), v.Repos.Metadata)
	reader := NewReader(v.Repos.Credentials, crypto.New(km))
	svc := NewCredentialService(v, reader, cache.New(reader.LoadAll), logging.NewDiscard(), opts)

	clock := time.UnixMilli(1_700_000_000_000)
	svc.now = func() time.Time { return clock }
	return &env{vault: v, svc: svc, clock: &clock}
}

func (e *env) advance(d time.Duration) {
	*e.clock = e.clock.Add(d)
}

func TestEndToEnd_CreateThenDelete(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, Options{})

	id, err := e.svc.Create(ctx, models.Credential{ProjectName: "bank", Username: "alice", Password: "x"})
	require.NoError(t, err)
	require.NotZero(t, id)

	row, err := e.vault.Repos.Credentials.GetByID(ctx, id)
	require.NoError(t, err)
	assert.NotEqual(t, "bank", row.ProjectName)
	assert.NotEqual(t, "alice", row.Username)
	assert.NotEqual(t, "x", row.Password)
	assert.Equal(t, e.clock.UnixMilli(), row.LastModified)

	got, err := e.svc.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "bank", got.ProjectName)
	assert.Equal(t, "alice", got.Username)

	hist, err := e.svc.History(ctx)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, models.OperationCreate, hist[0].OperationType)
	assert.Equal(t, "x", hist[0].Password)
	assert.Equal(t, "bank", hist[0].ProjectName)
	assert.Equal(t, id, hist[0].RecordID)

	require.NoError(t, e.svc.Delete(ctx, id, "old"))

	all, err := e.svc.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	bin, err := e.svc.RecycleBin(ctx)
	require.NoError(t, err)
	require.Len(t, bin, 1)
	assert.Equal(t, id, bin[0].Entry.OriginalID)
	assert.Equal(t, "old", bin[0].Entry.DeleteReason)
	assert.Equal(t, "bank", bin[0].Credential.ProjectName)
}

func TestCreate_Validation(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, Options{})

	_, err := e.svc.Create(ctx, models.Credential{ProjectName: "  "})
	require.ErrorIs(t, err, common.ErrProjectNameRequired)

	_, err = e.svc.Create(ctx, models.Credential{ProjectName: "p", CustomFieldJSON: "[1,2]"})
	require.ErrorIs(t, err, common.ErrInvalidCustomFields)

	_, err = e.svc.Create(ctx, models.Credential{ProjectName: "p", Degraded: true})
	require.ErrorIs(t, err, common.ErrDegradedRecord)
}

func TestCreate_BlankPasswordSkipsHistory(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, Options{})

	_, err := e.svc.Create(ctx, models.Credential{ProjectName: "mail", Username: "bob"})
	require.NoError(t, err)

	hist, err := e.svc.History(ctx)
	require.NoError(t, err)
	assert.Empty(t, hist)
}

func TestMutations_InvalidateCacheAndTouchSync(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, Options{})

	id, err := e.svc.Create(ctx, models.Credential{ProjectName: "a", Password: "1"})
	require.NoError(t, err)
	assert.Equal(t, models.CacheInvalid, e.svc.Cache().State())

	_, err = e.svc.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.CacheValid, e.svc.Cache().State())

	e.advance(time.Second)
	require.NoError(t, e.svc.Update(ctx, models.Credential{ID: id, ProjectName: "a", Password: "2"}))
	assert.Equal(t, models.CacheInvalid, e.svc.Cache().State())

	meta, err := e.vault.Repos.SyncMeta.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, e.clock.UnixMilli(), meta.LastLocalUpdate)
	assert.Equal(t, common.SyncStatusPending, meta.SyncStatus)

	got, err := e.svc.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "2", got.Password)
	assert.Equal(t, e.clock.UnixMilli(), got.LastModified)

	hist, err := e.svc.HistoryForRecord(ctx, id)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, models.OperationUpdate, hist[0].OperationType)
}

func TestUpdate_Missing(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, Options{})

	err := e.svc.Update(ctx, models.Credential{ID: 42, ProjectName: "x"})
	require.ErrorIs(t, err, common.ErrorNotFound)

	err = e.svc.Update(ctx, models.Credential{ProjectName: "x"})
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestSaveOrUpdate(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, Options{})

	id, err := e.svc.SaveOrUpdate(ctx, models.Credential{ProjectName: "a"})
	require.NoError(t, err)

	id2, err := e.svc.SaveOrUpdate(ctx, models.Credential{ID: id, ProjectName: "b"})
	require.NoError(t, err)
	assert.Equal(t, id, id2)

	got, err := e.svc.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "b", got.ProjectName)
}

func TestQuery_FiltersAfterDecryptionAndPages(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, Options{})

	for _, p := range []string{"GitHub", "gitlab", "bank", "Mail"} {
		_, err := e.svc.Create(ctx, models.Credential{ProjectName: p})
		require.NoError(t, err)
		e.advance(time.Millisecond)
	}

	page, err := e.svc.Query(ctx, "GIT", 0, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "gitlab", page.Items[0].ProjectName, "newest first")

	page, err = e.svc.Query(ctx, "git", 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "GitHub", page.Items[0].ProjectName)

	page, err = e.svc.Query(ctx, "", 10, 10)
	require.NoError(t, err)
	assert.Equal(t, 4, page.Total)
	assert.Empty(t, page.Items)
}

func TestReplaceAll_ReplacesNotMerges(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, Options{})

	for _, p := range []string{"s1", "s2"} {
		_, err := e.svc.Create(ctx, models.Credential{ProjectName: p})
		require.NoError(t, err)
	}
	before, err := e.vault.Repos.SyncMeta.Get(ctx)
	require.NoError(t, err)

	imported := []models.Credential{
		{ID: 99, ProjectName: "r1", Password: "p1", LastModified: 111},
		{ID: 98, ProjectName: "r2", LastModified: 222},
	}
	e.advance(time.Hour)
	require.NoError(t, e.svc.ReplaceAll(ctx, imported))

	all, err := e.svc.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	names := []string{all[0].ProjectName, all[1].ProjectName}
	assert.ElementsMatch(t, []string{"r1", "r2"}, names)
	for _, c := range all {
		assert.NotEqual(t, int64(99), c.ID)
		assert.NotEqual(t, int64(98), c.ID)
		if c.ProjectName == "r1" {
			assert.Equal(t, int64(111), c.LastModified)
		}
	}

	after, err := e.vault.Repos.SyncMeta.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, before.LastLocalUpdate, after.LastLocalUpdate, "import does not touch sync state")

	hist, err := e.svc.History(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, hist)
	assert.Equal(t, models.OperationImport, hist[0].OperationType)
	assert.Equal(t, "p1", hist[0].Password)

	require.ErrorIs(t, e.svc.ReplaceAll(ctx, []models.Credential{{ProjectName: "x", Degraded: true}}), common.ErrDegradedRecord)
}

func TestInsertAll_ReplacesByID(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, Options{})

	id, err := e.svc.Create(ctx, models.Credential{ProjectName: "a"})
	require.NoError(t, err)

	require.NoError(t, e.svc.InsertAll(ctx, []models.Credential{
		{ID: id, ProjectName: "a2"},
		{ProjectName: "b"},
	}))

	all, err := e.svc.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)

	got, err := e.svc.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "a2", got.ProjectName)
}

func TestRestoreAndPurgeRecycleBin(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, Options{})

	id, err := e.svc.Create(ctx, models.Credential{ProjectName: "bank", Password: "pw"})
	require.NoError(t, err)
	require.NoError(t, e.svc.Delete(ctx, id, ""))

	item, err := e.svc.RecycleBinByOriginalID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "pw", item.Credential.Password)

	newID, err := e.svc.RestoreFromRecycleBin(ctx, item.Entry.ID)
	require.NoError(t, err)
	assert.NotEqual(t, id, newID)

	got, err := e.svc.GetByID(ctx, newID)
	require.NoError(t, err)
	assert.Equal(t, "bank", got.ProjectName)

	bin, err := e.svc.RecycleBin(ctx)
	require.NoError(t, err)
	assert.Empty(t, bin)

	hist, err := e.svc.HistoryForRecord(ctx, newID)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, models.OperationRestore, hist[0].OperationType)

	require.NoError(t, e.svc.Delete(ctx, newID, ""))
	bin, err = e.svc.RecycleBin(ctx)
	require.NoError(t, err)
	require.Len(t, bin, 1)
	require.NoError(t, e.svc.PurgeRecycleBinEntry(ctx, bin[0].Entry.ID))
	require.ErrorIs(t, e.svc.PurgeRecycleBinEntry(ctx, bin[0].Entry.ID), common.ErrorNotFound)

	id3, err := e.svc.Create(ctx, models.Credential{ProjectName: "z"})
	require.NoError(t, err)
	require.NoError(t, e.svc.Delete(ctx, id3, ""))
	require.NoError(t, e.svc.EmptyRecycleBin(ctx))
	bin, err = e.svc.RecycleBin(ctx)
	require.NoError(t, err)
	assert.Empty(t, bin)
}

func TestRetention(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, Options{RecycleBinTTL: time.Hour, RecycleBinCap: 2, HistoryCap: 3})

	var ids []int64
	for i := 0; i < 4; i++ {
		id, err := e.svc.Create(ctx, models.Credential{ProjectName: "p", Password: "pw"})
		require.NoError(t, err)
		ids = append(ids, id)
		e.advance(time.Millisecond)
	}

	hist, err := e.svc.History(ctx)
	require.NoError(t, err)
	assert.Len(t, hist, 3)

	require.NoError(t, e.svc.Delete(ctx, ids[0], ""))
	e.advance(2 * time.Hour)
	require.NoError(t, e.svc.Delete(ctx, ids[1], ""))

	bin, err := e.svc.RecycleBin(ctx)
	require.NoError(t, err)
	require.Len(t, bin, 1, "entry older than the TTL is purged")
	assert.Equal(t, ids[1], bin[0].Entry.OriginalID)

	require.NoError(t, e.svc.Delete(ctx, ids[2], ""))
	require.NoError(t, e.svc.Delete(ctx, ids[3], ""))
	bin, err = e.svc.RecycleBin(ctx)
	require.NoError(t, err)
	assert.Len(t, bin, 2, "cap applies")

	require.NoError(t, e.svc.ApplyRetention(ctx))
}

func TestGeneratedPasswordHistory(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, Options{})

	id, err := e.svc.Create(ctx, models.Credential{ProjectName: "Bank"})
	require.NoError(t, err)

	require.NoError(t, e.svc.RecordGeneratedPassword(ctx, "bank", "Gen3rated!"))
	require.NoError(t, e.svc.RecordGeneratedPassword(ctx, "", "Standalone1!"))
	require.NoError(t, e.svc.RecordGeneratedPassword(ctx, "bank", "  "))

	hist, err := e.svc.HistoryForProject(ctx, "BANK")
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, id, hist[0].RecordID)
	assert.Equal(t, models.OperationGenerate, hist[0].OperationType)

	all, err := e.svc.History(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)

	_, err = e.svc.ProjectIDByName(ctx, "nope")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestSubscribe_EmitsCurrentThenAfterCommit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e := newEnv(t, Options{})

	ch := e.svc.Subscribe(ctx)
	first := <-ch
	assert.Empty(t, first)

	_, err := e.svc.Create(ctx, models.Credential{ProjectName: "a"})
	require.NoError(t, err)

	select {
	case rows := <-ch:
		require.Len(t, rows, 1)
		assert.NotEqual(t, "a", rows[0].ProjectName, "subscribers see stored ciphertext")
	case <-time.After(2 * time.Second):
		t.Fatal("no emission after commit")
	}
}

func TestWatchQuery(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e := newEnv(t, Options{})

	ch := e.svc.WatchQuery(ctx, "bank", 0, 10)

	_, err := e.svc.Create(ctx, models.Credential{ProjectName: "bank"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		select {
		case p := <-ch:
			return p.Total == 1 && p.Items[0].ProjectName == "bank"
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHistory_UnavailableDataKeyShowsMarker(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, Options{})

	_, err := e.svc.Create(ctx, models.Credential{ProjectName: "Bank", Password: "hunter2"})
	require.NoError(t, err)

	// a different master key cannot unwrap the stored data key
	other := keys.NewManager(keys.NewFileProvider(filepath.Join(t.TempDir(), "other.key")), e.vault.Repos.Metadata)
	reader := NewReader(e.vault.Repos.Credentials, crypto.New(other))
	svc := NewCredentialService(e.vault, reader, cache.New(reader.LoadAll), logging.NewDiscard(), Options{})

	hist, err := svc.History(ctx)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, common.DecryptionFailedMarker, hist[0].ProjectName)
	assert.Equal(t, common.DecryptionFailedMarker, hist[0].Password)
}
