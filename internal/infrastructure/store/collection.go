// Package store keeps aggregates in process memory and writes every
// mutation through to a Persister.
package store

import (
	"errors"
	"fmt"
	"sync"

	"github.com/tiagodcc/ikts/pkg/logging"
)

// ChangeKind says what happened to an item
type ChangeKind string

const (
	ChangePut    ChangeKind = "put"
	ChangeDelete ChangeKind = "delete"
)

// Change is delivered to subscribers after a mutation has been persisted
type Change[T any] struct {
	Kind ChangeKind
	Key  string
	Item T
}

// CollectionConfig describes a collection
type CollectionConfig[T any] struct {
	// Name is also the persisted file name
	Name string
	// Key extracts the identity of an item
	Key func(T) string
	// Clone deep-copies an item crossing the collection boundary. Optional.
	Clone func(T) T
	// Persister is optional; without one the collection is memory only
	Persister Persister
	Logger    *logging.Logger
}

// Collection is an ordered, mutex-guarded set of items keyed by identity
type Collection[T any] struct {
	mu        sync.RWMutex
	name      string
	keyOf     func(T) string
	clone     func(T) T
	items     map[string]T
	order     []string
	persister Persister
	logger    *logging.Logger

	subMu   sync.Mutex
	subs    map[int]func(Change[T])
	nextSub int
}

// NewCollection creates a collection and loads its persisted items.
// Corrupt persisted data is logged and replaced with an empty collection.
func NewCollection[T any](cfg CollectionConfig[T]) (*Collection[T], error) {
	if cfg.Name == "" || cfg.Key == nil {
		return nil, errors.New("collection name and key function are required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	clone := cfg.Clone
	if clone == nil {
		clone = func(v T) T { return v }
	}

	c := &Collection[T]{
		name:      cfg.Name,
		keyOf:     cfg.Key,
		clone:     clone,
		items:     make(map[string]T),
		persister: cfg.Persister,
		logger:    logger.WithComponent("store").WithFields(map[string]any{"collection": cfg.Name}),
		subs:      make(map[int]func(Change[T])),
	}

	if c.persister == nil {
		return c, nil
	}

	var loaded []T
	if err := c.persister.Load(cfg.Name, &loaded); err != nil {
		if !errors.Is(err, ErrCorrupt) {
			return nil, fmt.Errorf("failed to load collection %s: %w", cfg.Name, err)
		}
		c.logger.WithError(err).Warn("Persisted data is corrupt, starting empty")
		loaded = nil
	}
	for _, item := range loaded {
		key := c.keyOf(item)
		if _, exists := c.items[key]; !exists {
			c.order = append(c.order, key)
		}
		c.items[key] = item
	}
	return c, nil
}

// Name returns the collection name
func (c *Collection[T]) Name() string {
	return c.name
}

// Get returns a copy of the item stored under key
func (c *Collection[T]) Get(key string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, ok := c.items[key]
	if !ok {
		var zero T
		return zero, false
	}
	return c.clone(item), true
}

// List returns copies of all items in insertion order
func (c *Collection[T]) List() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]T, 0, len(c.order))
	for _, key := range c.order {
		out = append(out, c.clone(c.items[key]))
	}
	return out
}

// Len returns the number of items
func (c *Collection[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}

// Put inserts or replaces an item. When persisting fails the collection
// is left as it was.
func (c *Collection[T]) Put(item T) error {
	item = c.clone(item)
	key := c.keyOf(item)

	c.mu.Lock()
	prev, existed := c.items[key]
	c.items[key] = item
	if !existed {
		c.order = append(c.order, key)
	}
	if err := c.persistLocked(); err != nil {
		if existed {
			c.items[key] = prev
		} else {
			delete(c.items, key)
			c.order = c.order[:len(c.order)-1]
		}
		c.mu.Unlock()
		return err
	}
	c.mu.Unlock()

	c.notify(Change[T]{Kind: ChangePut, Key: key, Item: c.clone(item)})
	return nil
}

// Delete removes an item and reports whether it existed
func (c *Collection[T]) Delete(key string) (bool, error) {
	c.mu.Lock()
	prev, existed := c.items[key]
	if !existed {
		c.mu.Unlock()
		return false, nil
	}
	prevOrder := append([]string(nil), c.order...)
	delete(c.items, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	if err := c.persistLocked(); err != nil {
		c.items[key] = prev
		c.order = prevOrder
		c.mu.Unlock()
		return false, err
	}
	c.mu.Unlock()

	c.notify(Change[T]{Kind: ChangeDelete, Key: key, Item: prev})
	return true, nil
}

// Subscribe registers fn for every persisted change and returns a
// function that removes the subscription
func (c *Collection[T]) Subscribe(fn func(Change[T])) func() {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn

	return func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		delete(c.subs, id)
	}
}

func (c *Collection[T]) notify(change Change[T]) {
	c.subMu.Lock()
	subs := make([]func(Change[T]), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.subMu.Unlock()

	for _, fn := range subs {
		fn(change)
	}
}

// persistLocked must be called with c.mu held
func (c *Collection[T]) persistLocked() error {
	if c.persister == nil {
		return nil
	}
	items := make([]T, 0, len(c.order))
	for _, key := range c.order {
		items = append(items, c.items[key])
	}
	if err := c.persister.Save(c.name, items); err != nil {
		c.logger.WithError(err).Error("Failed to persist collection")
		return fmt.Errorf("failed to persist collection %s: %w", c.name, err)
	}
	return nil
}
