// Package settings holds the user-editable runtime settings and lets other
// components react to changes.
package settings

import (
	"context"
	"strings"
	"sync"

	"github.com/dmitrijs2005/passvault/internal/broadcast"
)

// Remote backend kinds.
const (
	KindWebDAV = "webdav"
	KindS3     = "s3"
	KindMinio  = "minio"
	KindDir    = "dir"
)

type Settings struct {
	RemoteKind string
	ServerURL  string
	Account    string
	Password   string
	// Bucket and Region apply to the object-store kinds.
	Bucket string
	Region string

	ExportPassword string
	PasswordLength int
	AutoBackup     bool
	SyncOnStart    bool
}

// SyncConfigured reports whether a remote is fully configured. The local
// directory kind only needs a path.
func (s Settings) SyncConfigured() bool {
	if strings.TrimSpace(s.ServerURL) == "" {
		return false
	}
	if s.RemoteKind == KindDir {
		return true
	}
	return strings.TrimSpace(s.Account) != "" && strings.TrimSpace(s.Password) != ""
}

type Store struct {
	mu  sync.Mutex
	cur Settings
	hub *broadcast.Hub[Settings]
}

func NewStore(initial Settings) *Store {
	s := &Store{cur: initial, hub: broadcast.New[Settings]()}
	s.hub.Publish(initial)
	return s
}

func (s *Store) Current() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}

// Update applies fn to a copy of the current settings, stores and
// publishes the result.
func (s *Store) Update(fn func(*Settings)) Settings {
	s.mu.Lock()
	next := s.cur
	fn(&next)
	s.cur = next
	s.hub.Publish(next)
	s.mu.Unlock()
	return next
}

// Watch delivers the current settings and then every update.
func (s *Store) Watch(ctx context.Context) <-chan Settings {
	return s.hub.Subscribe(ctx)
}
