/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package credentials holds the in-memory copy of the Bitwarden folder that
// reconciles read from, and the runnable that keeps it fresh.
package credentials

import (
	"sync"
	"time"

	"github.com/jrcichra/bitwarden-secrets-operator/pkg/bitwarden"
	operrors "github.com/jrcichra/bitwarden-secrets-operator/shared/infrastructure/errors"
)

// Snapshot is an immutable name-indexed view of one folder listing.
type Snapshot struct {
	items       map[string]bitwarden.Item
	refreshedAt time.Time
}

// NewSnapshot indexes items by name. When names collide the later item wins.
func NewSnapshot(items []bitwarden.Item, refreshedAt time.Time) *Snapshot {
	m := make(map[string]bitwarden.Item, len(items))
	for _, item := range items {
		m[item.Name] = item
	}
	return &Snapshot{items: m, refreshedAt: refreshedAt}
}

// Get returns the item with the given name.
func (s *Snapshot) Get(name string) (bitwarden.Item, bool) {
	if s == nil {
		return bitwarden.Item{}, false
	}
	item, ok := s.items[name]
	return item, ok
}

// Len returns the number of distinct item names.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// RefreshedAt returns when the listing was taken.
func (s *Snapshot) RefreshedAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.refreshedAt
}

// Cache holds the current Snapshot. Readers never observe a partially
// rebuilt listing because snapshots are swapped whole.
type Cache struct {
	mu   sync.RWMutex
	snap *Snapshot
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{}
}

// Get returns the item with the given name from the current snapshot.
func (c *Cache) Get(name string) (bitwarden.Item, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap.Get(name)
}

// Lookup is Get with an ItemNotFound error for absent names.
func (c *Cache) Lookup(name string) (bitwarden.Item, error) {
	item, ok := c.Get(name)
	if !ok {
		return bitwarden.Item{}, operrors.NewItemNotFoundError(name)
	}
	return item, nil
}

// Snapshot returns the current snapshot, or nil before the first Replace.
func (c *Cache) Snapshot() *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

// Replace installs snap as the current snapshot.
func (c *Cache) Replace(snap *Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap = snap
}

// Loaded reports whether a snapshot was ever installed.
func (c *Cache) Loaded() bool {
	return c.Snapshot() != nil
}
