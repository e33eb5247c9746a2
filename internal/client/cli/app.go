package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/dmitrijs2005/passvault/internal/client/cache"
	"github.com/dmitrijs2005/passvault/internal/client/config"
	"github.com/dmitrijs2005/passvault/internal/client/crypto"
	"github.com/dmitrijs2005/passvault/internal/client/keys"
	"github.com/dmitrijs2005/passvault/internal/client/remote"
	"github.com/dmitrijs2005/passvault/internal/client/services"
	"github.com/dmitrijs2005/passvault/internal/client/settings"
	"github.com/dmitrijs2005/passvault/internal/client/status"
	"github.com/dmitrijs2005/passvault/internal/client/storage"
	"github.com/dmitrijs2005/passvault/internal/client/syncer"
	"github.com/dmitrijs2005/passvault/internal/logging"
)

// pageSize is the number of records printed per list page.
const pageSize = 20

type App struct {
	config   *config.Config
	logger   logging.Logger
	vault    *storage.Vault
	keys     *keys.Manager
	svc      *services.CredentialService
	sync     *syncer.Reconciler
	settings *settings.Store
	status   *status.Bus
	reader   *bufio.Reader
	out      io.Writer

	mu         sync.Mutex
	stopBackup context.CancelFunc
	backupDone <-chan struct{}
}

func masterKeyProvider(c *config.Config, vaultPath string) (keys.MasterKeyProvider, error) {
	switch c.KeySource {
	case "", config.KeySourceKeyring:
		return keys.NewKeyringProvider(c.KeyringService, vaultPath), nil
	case config.KeySourceFile:
		return keys.NewFileProvider(c.KeyFilePath()), nil
	}
	return nil, fmt.Errorf("unknown key source %q", c.KeySource)
}

// NewApp opens the vault described by c and wires every component. The
// caller must Close the app.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	v, err := storage.Open(ctx, c.DataDir, c.DBFile)
	if err != nil {
		return nil, err
	}

	provider, err := masterKeyProvider(c, v.Path())
	if err != nil {
		_ = v.Close()
		return nil, err
	}
	km := keys.NewManager(provider, v.Repos.Metadata)

	// fail early when the master key is unavailable or does not match
	if _, err := km.DataKey(ctx); err != nil {
		_ = v.Close()
		return nil, err
	}

	reader := services.NewReader(v.Repos.Credentials, crypto.New(km))
	svc := services.NewCredentialService(v, reader, cache.New(reader.LoadAll), logger, services.Options{
		RecycleBinTTL: c.RecycleBinTTL,
		RecycleBinCap: c.RecycleBinCap,
		HistoryCap:    c.HistoryCap,
	})

	st := settings.NewStore(c.Settings())
	bus := status.NewBus()
	factory := func(s settings.Settings) (remote.Transport, error) {
		return remote.New(remote.ConfigFromSettings(s, c.RemoteTimeout), logger)
	}
	rec := syncer.NewReconciler(svc, svc.Cache(), v.Repos.SyncMeta, st, factory, bus, logger,
		syncer.Options{Debounce: c.Debounce})

	return &App{
		config:   c,
		logger:   logger,
		vault:    v,
		keys:     km,
		svc:      svc,
		sync:     rec,
		settings: st,
		status:   bus,
		reader:   bufio.NewReader(os.Stdin),
		out:      os.Stdout,
	}, nil
}

// Close stops background work, wipes the cached data key and closes the
// vault.
func (a *App) Close() error {
	a.stopAutoBackup()
	a.keys.Forget()
	return a.vault.Close()
}

// Run applies retention, starts the background watchers and blocks in the
// REPL until the user exits or ctx is cancelled.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := a.svc.ApplyRetention(ctx); err != nil {
		a.logger.Warn(ctx, "retention failed", "error", err)
	}

	go a.printStatus(ctx)
	go a.watchSettings(ctx)

	printlnFn("passvault (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, a.reader)
}

func (a *App) getStatus() string {
	s := a.settings.Current()
	if !s.SyncConfigured() {
		return "local"
	}
	return s.RemoteKind
}

// printStatus echoes status messages until ctx is done.
func (a *App) printStatus(ctx context.Context) {
	for msg := range a.status.Subscribe(ctx) {
		fmt.Fprintf(a.out, "[%s] %s\n", msg.Severity, msg.Text)
	}
}

// watchSettings starts auto-backup when sync becomes configured, runs a
// reconciliation at that moment and stops auto-backup when sync is
// unconfigured again.
func (a *App) watchSettings(ctx context.Context) {
	configured := false
	first := true
	for s := range a.settings.Watch(ctx) {
		now := s.SyncConfigured()
		switch {
		case now && !configured:
			a.startAutoBackup(ctx)
			if !first || s.SyncOnStart {
				a.sync.PerformSyncIfNeeded(ctx)
			}
		case !now && configured:
			a.stopAutoBackup()
		}
		configured = now
		first = false
	}
}

func (a *App) startAutoBackup(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopBackup != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	a.stopBackup = cancel
	a.backupDone = a.sync.StartAutoBackup(ctx)
}

func (a *App) stopAutoBackup() {
	a.mu.Lock()
	cancel, done := a.stopBackup, a.backupDone
	a.stopBackup, a.backupDone = nil, nil
	a.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}
