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

// Package leader implements a Lease-based leadership gate. Only the replica
// holding the lease may touch the vault or the cluster.
package leader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-logr/logr"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/uuid"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/leaderelection/resourcelock"
	"k8s.io/utils/clock"

	"github.com/jrcichra/bitwarden-secrets-operator/pkg/logger"
	"github.com/jrcichra/bitwarden-secrets-operator/pkg/metrics"
	operrors "github.com/jrcichra/bitwarden-secrets-operator/shared/infrastructure/errors"
)

const (
	// DefaultLeaseName is the name of the coordination Lease.
	DefaultLeaseName = "bitwarden-secrets-operator"

	// DefaultLeaseDuration is how long a lease stays valid without renewal.
	DefaultLeaseDuration = 15 * time.Second

	// DefaultRenewInterval is how often the holder renews.
	DefaultRenewInterval = 5 * time.Second

	// DefaultRetryInterval is how often a standby replica retries acquisition.
	DefaultRetryInterval = 2 * time.Second

	releaseTimeout = 5 * time.Second
)

// Config contains configuration for the Gate.
type Config struct {
	Client    kubernetes.Interface
	Namespace string
	Name      string

	// Identity is the holder identity. Defaults to DefaultIdentity().
	Identity string

	LeaseDuration time.Duration
	RenewInterval time.Duration
	RetryInterval time.Duration

	Clock clock.WithTicker
	Log   logr.Logger
}

// Gate acquires and holds a coordination/v1 Lease.
type Gate struct {
	lock          *resourcelock.LeaseLock
	identity      string
	leaseDuration time.Duration
	renewInterval time.Duration
	retryInterval time.Duration
	clock         clock.WithTicker
	log           logr.Logger

	leader bool
}

// DefaultIdentity returns the hostname with a random suffix, so two processes
// in the same pod never share an identity.
func DefaultIdentity() (string, error) {
	host, err := os.Hostname()
	if err != nil {
		return "", fmt.Errorf("failed to get hostname: %w", err)
	}
	return host + "_" + string(uuid.NewUUID()), nil
}

// NewGate creates a Gate.
func NewGate(cfg Config) (*Gate, error) {
	if cfg.Client == nil {
		return nil, errors.New("leader gate requires a kubernetes client")
	}
	if cfg.Namespace == "" {
		cfg.Namespace = metav1.NamespaceDefault
	}
	if cfg.Name == "" {
		cfg.Name = DefaultLeaseName
	}
	if cfg.Identity == "" {
		id, err := DefaultIdentity()
		if err != nil {
			return nil, err
		}
		cfg.Identity = id
	}
	if cfg.LeaseDuration <= 0 {
		cfg.LeaseDuration = DefaultLeaseDuration
	}
	if cfg.RenewInterval <= 0 {
		cfg.RenewInterval = DefaultRenewInterval
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = DefaultRetryInterval
	}
	if cfg.RenewInterval >= cfg.LeaseDuration {
		return nil, operrors.NewValidationError("renewInterval", cfg.RenewInterval.String(),
			"must be shorter than the lease duration")
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.RealClock{}
	}
	if cfg.Log.GetSink() == nil {
		cfg.Log = logr.Discard()
	}

	return &Gate{
		lock: &resourcelock.LeaseLock{
			LeaseMeta:  metav1.ObjectMeta{Namespace: cfg.Namespace, Name: cfg.Name},
			Client:     cfg.Client.CoordinationV1(),
			LockConfig: resourcelock.ResourceLockConfig{Identity: cfg.Identity},
		},
		identity:      cfg.Identity,
		leaseDuration: cfg.LeaseDuration,
		renewInterval: cfg.RenewInterval,
		retryInterval: cfg.RetryInterval,
		clock:         cfg.Clock,
		log:           logger.WithLease(cfg.Log, cfg.Namespace, cfg.Name, cfg.Identity),
	}, nil
}

// Identity returns the holder identity written to the Lease.
func (g *Gate) Identity() string {
	return g.identity
}

// TryAcquireOrRenew makes one attempt to take or extend the lease. It returns
// false without error while another holder's lease is still valid.
func (g *Gate) TryAcquireOrRenew(ctx context.Context) (bool, error) {
	now := metav1.NewTime(g.clock.Now())
	desired := resourcelock.LeaderElectionRecord{
		HolderIdentity:       g.identity,
		LeaseDurationSeconds: int(g.leaseDuration / time.Second),
		AcquireTime:          now,
		RenewTime:            now,
	}

	current, _, err := g.lock.Get(ctx)
	if err != nil {
		if !apierrors.IsNotFound(err) {
			return false, fmt.Errorf("failed to get lease: %w", err)
		}
		if err := g.lock.Create(ctx, desired); err != nil {
			return false, fmt.Errorf("failed to create lease: %w", err)
		}
		g.setLeader(true)
		return true, nil
	}

	if current.HolderIdentity != "" && current.HolderIdentity != g.identity {
		expires := current.RenewTime.Add(time.Duration(current.LeaseDurationSeconds) * time.Second)
		if expires.After(now.Time) {
			g.setLeader(false)
			return false, nil
		}
	}

	if current.HolderIdentity == g.identity {
		desired.AcquireTime = current.AcquireTime
		desired.LeaderTransitions = current.LeaderTransitions
	} else {
		desired.LeaderTransitions = current.LeaderTransitions + 1
	}

	// A concurrent writer makes this fail on resourceVersion.
	if err := g.lock.Update(ctx, desired); err != nil {
		return false, fmt.Errorf("failed to update lease: %w", err)
	}
	g.setLeader(true)
	return true, nil
}

// WaitForLeadership blocks until the lease is acquired or ctx is done.
func (g *Gate) WaitForLeadership(ctx context.Context) error {
	log := logger.WithOperation(g.log, logger.OpAcquire)
	log.Info("waiting for leadership")
	for {
		ok, err := g.TryAcquireOrRenew(ctx)
		switch {
		case err != nil:
			log.Error(err, "failed to acquire lease")
		case ok:
			log.Info("acquired leadership")
			return nil
		default:
			log.V(1).Info("lease held by another replica")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-g.clock.After(g.retryInterval):
		}
	}
}

// Hold renews the lease until ctx is done, then releases it and returns nil.
// It returns ErrLeadershipLost when another replica takes the lease, or when
// renewals keep failing for longer than the lease duration.
func (g *Gate) Hold(ctx context.Context) error {
	log := logger.WithOperation(g.log, logger.OpRenew)
	lastRenew := g.clock.Now()
	ticker := g.clock.NewTicker(g.renewInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			g.release()
			return nil
		case <-ticker.C():
		}

		ok, err := g.TryAcquireOrRenew(ctx)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				continue
			}
			if g.clock.Since(lastRenew) > g.leaseDuration {
				g.setLeader(false)
				log.Error(err, "lease renewal failed past lease duration")
				return fmt.Errorf("%w: %v", operrors.ErrLeadershipLost, err)
			}
			log.Error(err, "failed to renew lease")
		case !ok:
			log.Info("lease taken by another replica")
			return operrors.ErrLeadershipLost
		default:
			lastRenew = g.clock.Now()
			log.V(1).Info("renewed lease")
		}
	}
}

// release clears the holder so a standby can take over without waiting for expiry.
func (g *Gate) release() {
	if !g.leader {
		return
	}
	log := logger.WithOperation(g.log, logger.OpRelease)
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()

	current, _, err := g.lock.Get(ctx)
	if err != nil || current.HolderIdentity != g.identity {
		g.setLeader(false)
		return
	}
	now := metav1.NewTime(g.clock.Now())
	if err := g.lock.Update(ctx, resourcelock.LeaderElectionRecord{
		LeaderTransitions:    current.LeaderTransitions,
		LeaseDurationSeconds: 1,
		RenewTime:            now,
		AcquireTime:          now,
	}); err != nil {
		log.Error(err, "failed to release lease")
	} else {
		log.Info("released lease")
	}
	g.setLeader(false)
}

func (g *Gate) setLeader(leader bool) {
	g.leader = leader
	metrics.SetLeader(leader)
}
