// Package cache keeps the decrypted credential list in memory.
//
// Writers never update the cache directly: they call Invalidate and the next
// reader refreshes it. A failed refresh keeps the previous list.
package cache

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/passvault/internal/broadcast"
	"github.com/dmitrijs2005/passvault/internal/client/models"
)

// Loader reads and decrypts the full record list.
type Loader func(ctx context.Context) ([]models.Credential, error)

type Cache struct {
	load Loader

	mu    sync.Mutex
	state models.CacheState
	items []models.Credential
	// gen is bumped by Invalidate; a refresh that started under an older
	// generation must not mark the cache valid.
	gen uint64

	states *broadcast.Hub[models.CacheState]
}

func New(load Loader) *Cache {
	c := &Cache{
		load:   load,
		state:  models.CacheInitial,
		states: broadcast.New[models.CacheState](),
	}
	c.states.Publish(models.CacheInitial)
	return c
}

func (c *Cache) setState(s models.CacheState) {
	c.state = s
	c.states.Publish(s)
}

// Refresh reloads the list. Overlapping refreshes are not serialized; the
// one finishing last wins. If the cache was invalidated while the load ran,
// the loaded list is kept but the state stays INVALID so the next Get
// reloads.
func (c *Cache) Refresh(ctx context.Context) error {
	c.mu.Lock()
	gen := c.gen
	c.setState(models.CacheLoading)
	c.mu.Unlock()

	items, err := c.load(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.setState(models.CacheInvalid)
		return err
	}
	c.items = items
	if gen != c.gen {
		c.setState(models.CacheInvalid)
		return nil
	}
	c.setState(models.CacheValid)
	return nil
}

// Invalidate marks the snapshot stale without touching its content.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.setState(models.CacheInvalid)
}

func (c *Cache) State() models.CacheState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Snapshot returns a copy of the current list, whatever the state.
func (c *Cache) Snapshot() []models.Credential {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Credential, len(c.items))
	copy(out, c.items)
	return out
}

// Get returns the list, refreshing first unless the cache is valid. When
// the refresh fails the stale list is returned along with the error.
func (c *Cache) Get(ctx context.Context) ([]models.Credential, error) {
	if c.State() == models.CacheValid {
		return c.Snapshot(), nil
	}
	err := c.Refresh(ctx)
	return c.Snapshot(), err
}

// Watch reports state transitions; intermediate states may be skipped.
func (c *Cache) Watch(ctx context.Context) <-chan models.CacheState {
	return c.states.Subscribe(ctx)
}
