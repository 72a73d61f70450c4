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

package credentials

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jrcichra/bitwarden-secrets-operator/pkg/bitwarden"
	operrors "github.com/jrcichra/bitwarden-secrets-operator/shared/infrastructure/errors"
)

func strPtr(s string) *string { return &s }

func loginItem(name, user, pass string) bitwarden.Item {
	return bitwarden.Item{Name: name, Type: bitwarden.ItemTypeLogin, Login: &bitwarden.Login{Username: user, Password: pass}}
}

func noteItem(name, notes string) bitwarden.Item {
	return bitwarden.Item{Name: name, Type: bitwarden.ItemTypeSecureNote, Notes: strPtr(notes)}
}

func TestNewSnapshotLastWriteWins(t *testing.T) {
	snap := NewSnapshot([]bitwarden.Item{
		loginItem("db", "first", "p1"),
		noteItem("wifi", "psk"),
		loginItem("db", "second", "p2"),
	}, time.Unix(100, 0))

	if snap.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", snap.Len())
	}
	db, ok := snap.Get("db")
	if !ok {
		t.Fatal("expected db in snapshot")
	}
	if db.Login.Username != "second" {
		t.Errorf("db username = %q, want later entry %q", db.Login.Username, "second")
	}
	if !snap.RefreshedAt().Equal(time.Unix(100, 0)) {
		t.Errorf("RefreshedAt() = %v", snap.RefreshedAt())
	}
}

func TestNilSnapshot(t *testing.T) {
	var snap *Snapshot
	if _, ok := snap.Get("x"); ok {
		t.Error("nil snapshot should not contain items")
	}
	if snap.Len() != 0 {
		t.Error("nil snapshot should be empty")
	}
	if !snap.RefreshedAt().IsZero() {
		t.Error("nil snapshot should have zero refresh time")
	}
}

func TestCacheLookup(t *testing.T) {
	c := NewCache()
	if c.Loaded() {
		t.Error("new cache should not be loaded")
	}

	_, err := c.Lookup("db")
	if !operrors.IsItemNotFoundError(err) {
		t.Errorf("Lookup on empty cache = %v, want ItemNotFound", err)
	}

	c.Replace(NewSnapshot([]bitwarden.Item{loginItem("db", "u", "p")}, time.Now()))
	if !c.Loaded() {
		t.Error("cache should be loaded after Replace")
	}

	item, err := c.Lookup("db")
	if err != nil {
		t.Fatalf("Lookup(db) error = %v", err)
	}
	if item.Login.Password != "p" {
		t.Errorf("password = %q, want p", item.Login.Password)
	}

	_, err = c.Lookup("ghost")
	if !operrors.IsItemNotFoundError(err) {
		t.Errorf("Lookup(ghost) = %v, want ItemNotFound", err)
	}
}

func TestCacheReplaceIsWholesale(t *testing.T) {
	c := NewCache()
	c.Replace(NewSnapshot([]bitwarden.Item{loginItem("old", "u", "p")}, time.Now()))
	c.Replace(NewSnapshot([]bitwarden.Item{noteItem("new", "n")}, time.Now()))

	if _, ok := c.Get("old"); ok {
		t.Error("items from the previous snapshot must not survive Replace")
	}
	if _, ok := c.Get("new"); !ok {
		t.Error("expected new item")
	}
}

func TestCacheConcurrentAccess(t *testing.T) {
	c := NewCache()
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			c.Replace(NewSnapshot([]bitwarden.Item{loginItem(fmt.Sprintf("item-%d", i), "u", "p")}, time.Now()))
		}(i)
		go func(i int) {
			defer wg.Done()
			_, _ = c.Lookup(fmt.Sprintf("item-%d", i))
			_ = c.Snapshot().Len()
		}(i)
	}
	wg.Wait()

	if c.Snapshot().Len() != 1 {
		t.Errorf("expected exactly one item in final snapshot, got %d", c.Snapshot().Len())
	}
}
