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

// Package metrics provides Prometheus metrics for the bitwarden-secrets-operator.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

// Result labels for metrics.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

const namespace = "bitwarden_secrets_operator"

var (
	// LastReconcileGauge holds the Unix time of the last successful reconcile.
	// The unprefixed name is relied on by existing dashboards.
	LastReconcileGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "last_reconcile",
			Help: "Time we last reconciled successfully",
		},
	)

	// ReconcileTotal counts BitwardenSecret reconciliations.
	ReconcileTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_total",
			Help:      "Total number of BitwardenSecret reconciliations",
		},
		[]string{"namespace", "result"},
	)

	// CacheRefreshTotal counts credential cache refresh attempts.
	CacheRefreshTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "refresh_total",
			Help:      "Total number of credential cache refreshes",
		},
		[]string{"result"},
	)

	// CacheItemsGauge is the number of items in the current snapshot.
	CacheItemsGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "items",
			Help:      "Number of Bitwarden items in the credential cache",
		},
	)

	// CacheLastRefreshGauge is the Unix time of the last successful refresh.
	CacheLastRefreshGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "last_refresh_timestamp_seconds",
			Help:      "Unix time of the last successful credential cache refresh",
		},
	)

	// LeaderGauge is 1 while this replica holds the lease.
	LeaderGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "leader",
			Name:      "is_leader",
			Help:      "Whether this replica holds the leader lease (1=leader, 0=standby)",
		},
	)
)

func init() {
	metrics.Registry.MustRegister(
		LastReconcileGauge,
		ReconcileTotal,
		CacheRefreshTotal,
		CacheItemsGauge,
		CacheLastRefreshGauge,
		LeaderGauge,
	)
}

func result(success bool) string {
	if success {
		return ResultSuccess
	}
	return ResultFailure
}

// SetLastReconcile records t as the last successful reconcile, truncated to whole seconds.
func SetLastReconcile(t time.Time) {
	LastReconcileGauge.Set(float64(t.Unix()))
}

// IncrementReconcile increments the reconcile counter.
func IncrementReconcile(namespace string, success bool) {
	ReconcileTotal.WithLabelValues(namespace, result(success)).Inc()
}

// IncrementCacheRefresh increments the cache refresh counter.
func IncrementCacheRefresh(success bool) {
	CacheRefreshTotal.WithLabelValues(result(success)).Inc()
}

// SetCacheSnapshot records the size and install time of a new snapshot.
func SetCacheSnapshot(items int, at time.Time) {
	CacheItemsGauge.Set(float64(items))
	CacheLastRefreshGauge.Set(float64(at.Unix()))
}

// SetLeader sets the leadership status.
func SetLeader(leader bool) {
	val := 0.0
	if leader {
		val = 1.0
	}
	LeaderGauge.Set(val)
}
