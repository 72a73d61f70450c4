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

// Package watches provides the watch sources and predicates that decide when a
// BitwardenSecret is reconciled.
package watches

import (
	"context"
	"time"

	"github.com/go-logr/logr"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/utils/clock"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/event"
	"sigs.k8s.io/controller-runtime/pkg/handler"
	"sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"

	bwsv1 "github.com/jrcichra/bitwarden-secrets-operator/api/v1"
)

// DefaultResyncInterval is the default interval between reconcile-all passes.
const DefaultResyncInterval = 300 * time.Second

// AllBitwardenSecrets returns a MapFunc that ignores the triggering object and
// enqueues every BitwardenSecret in namespace (all namespaces when empty).
func AllBitwardenSecrets(k8sClient client.Reader, namespace string) handler.MapFunc {
	return func(ctx context.Context, _ client.Object) []reconcile.Request {
		logger := log.FromContext(ctx).WithValues("watchTarget", bwsv1.Kind)

		list := &bwsv1.BitwardenSecretList{}
		var opts []client.ListOption
		if namespace != "" {
			opts = append(opts, client.InNamespace(namespace))
		}
		if err := k8sClient.List(ctx, list, opts...); err != nil {
			logger.Error(err, "failed to list BitwardenSecrets for resync")
			return nil
		}

		requests := make([]reconcile.Request, 0, len(list.Items))
		for _, bws := range list.Items {
			requests = append(requests, reconcile.Request{
				NamespacedName: types.NamespacedName{
					Name:      bws.Name,
					Namespace: bws.Namespace,
				},
			})
		}

		logger.V(1).Info("enqueuing all BitwardenSecrets", "count", len(requests))
		return requests
	}
}

// ResyncTicker emits one GenericEvent per interval. Paired with
// AllBitwardenSecrets through source.Channel it re-applies every resource on
// a fixed schedule.
type ResyncTicker struct {
	interval time.Duration
	clock    clock.WithTicker
	log      logr.Logger
	events   chan event.GenericEvent
}

// NewResyncTicker creates a ResyncTicker. A nil clock uses the real clock.
func NewResyncTicker(interval time.Duration, clk clock.WithTicker, log logr.Logger) *ResyncTicker {
	if interval <= 0 {
		interval = DefaultResyncInterval
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &ResyncTicker{
		interval: interval,
		clock:    clk,
		log:      log,
		events:   make(chan event.GenericEvent, 1),
	}
}

// Events returns the channel to pass to source.Channel.
func (t *ResyncTicker) Events() <-chan event.GenericEvent {
	return t.events
}

// Start emits events until ctx is done. It implements manager.Runnable.
func (t *ResyncTicker) Start(ctx context.Context) error {
	t.log.Info("starting resync ticker", "interval", t.interval)

	ticker := t.clock.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.log.Info("resync ticker stopped")
			return nil
		case <-ticker.C():
			select {
			case t.events <- event.GenericEvent{Object: &bwsv1.BitwardenSecret{}}:
			default:
				// The previous trigger has not been consumed yet.
				t.log.V(1).Info("resync already pending, skipping tick")
			}
		}
	}
}
