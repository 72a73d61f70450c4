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
	"context"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"k8s.io/utils/clock"

	"github.com/jrcichra/bitwarden-secrets-operator/pkg/bitwarden"
	"github.com/jrcichra/bitwarden-secrets-operator/pkg/logger"
	"github.com/jrcichra/bitwarden-secrets-operator/pkg/metrics"
	operrors "github.com/jrcichra/bitwarden-secrets-operator/shared/infrastructure/errors"
)

// DefaultRefreshInterval is the default interval between folder listings.
const DefaultRefreshInterval = 120 * time.Second

// Authenticator obtains a fresh vault session.
type Authenticator interface {
	Login(ctx context.Context) (*bitwarden.Session, error)
}

// Fetcher lists the items of a folder.
type Fetcher interface {
	FetchFolder(ctx context.Context, session *bitwarden.Session, folder string) ([]bitwarden.Item, error)
}

// RefresherConfig contains configuration for the Refresher.
type RefresherConfig struct {
	Cache   *Cache
	Auth    Authenticator
	Fetcher Fetcher

	// Session is the session obtained at startup. A nil session forces a
	// login on the first refresh.
	Session *bitwarden.Session

	Folder   string
	Interval time.Duration
	Clock    clock.WithTicker
	Log      logr.Logger
}

// Refresher periodically replaces the cache contents with a fresh listing.
// A failed refresh keeps the previous snapshot, logs in again and retries once.
type Refresher struct {
	cache    *Cache
	auth     Authenticator
	fetcher  Fetcher
	folder   string
	interval time.Duration
	clock    clock.WithTicker
	log      logr.Logger

	// mu serializes refreshes and guards session.
	mu      sync.Mutex
	session *bitwarden.Session
}

// NewRefresher creates a Refresher.
func NewRefresher(cfg RefresherConfig) *Refresher {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.RealClock{}
	}
	log := cfg.Log
	if log.GetSink() == nil {
		log = logr.Discard()
	}

	return &Refresher{
		cache:    cfg.Cache,
		auth:     cfg.Auth,
		fetcher:  cfg.Fetcher,
		folder:   cfg.Folder,
		interval: interval,
		clock:    clk,
		log:      logger.WithFolder(log, cfg.Folder),
		session:  cfg.Session,
	}
}

// Start runs the refresh loop until ctx is done. It implements manager.Runnable.
func (r *Refresher) Start(ctx context.Context) error {
	r.log.Info("starting credential refresher", "interval", r.interval)

	ticker := r.clock.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info("credential refresher stopped")
			return nil
		case <-ticker.C():
			_ = r.RefreshOnce(ctx)
		}
	}
}

// RefreshOnce fetches the folder and installs a new snapshot. Failures are
// logged and counted here; the returned error is informational.
func (r *Refresher) RefreshOnce(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	log := logger.WithOperation(r.log, logger.OpRefresh)
	err := r.fetchAndInstall(ctx, log)
	if err == nil {
		return nil
	}
	log.Error(err, "credential refresh failed, keeping previous snapshot",
		logger.KeyReason, operrors.Classify(err))
	if ctx.Err() != nil {
		return err
	}

	session, err := r.auth.Login(ctx)
	if err != nil {
		log.Error(err, "re-login after failed refresh failed", logger.KeyReason, operrors.Classify(err))
		return err
	}
	r.session = session

	if err := r.fetchAndInstall(ctx, log); err != nil {
		log.Error(err, "credential refresh retry failed, keeping previous snapshot",
			logger.KeyReason, operrors.Classify(err))
		return err
	}
	return nil
}

func (r *Refresher) fetchAndInstall(ctx context.Context, log logr.Logger) error {
	items, err := r.fetcher.FetchFolder(ctx, r.session, r.folder)
	if err != nil {
		metrics.IncrementCacheRefresh(false)
		return err
	}

	snap := NewSnapshot(items, r.clock.Now())
	r.cache.Replace(snap)
	metrics.IncrementCacheRefresh(true)
	metrics.SetCacheSnapshot(snap.Len(), snap.RefreshedAt())
	log.V(1).Info("credential cache refreshed", logger.KeyItemCount, snap.Len())
	return nil
}
