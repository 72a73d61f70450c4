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

package controller

import (
	"context"
	"sort"

	"github.com/go-logr/logr"
	"k8s.io/utils/clock"
	"sigs.k8s.io/controller-runtime/pkg/client"

	bwsv1 "github.com/jrcichra/bitwarden-secrets-operator/api/v1"
	"github.com/jrcichra/bitwarden-secrets-operator/pkg/bitwarden"
	"github.com/jrcichra/bitwarden-secrets-operator/pkg/logger"
	operrors "github.com/jrcichra/bitwarden-secrets-operator/shared/infrastructure/errors"
)

// ItemSource resolves vault items by name. It is satisfied by *credentials.Cache.
type ItemSource interface {
	Lookup(name string) (bitwarden.Item, error)
}

// Handler implements base.FeatureHandler for BitwardenSecret resources.
// It never calls the vault; items come from the credential cache.
type Handler struct {
	client client.Client
	items  ItemSource
	clock  clock.PassiveClock
}

// HandlerConfig contains configuration for creating a Handler.
type HandlerConfig struct {
	Client client.Client
	Items  ItemSource
	Clock  clock.PassiveClock
}

// NewHandler creates a new BitwardenSecret Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	clk := cfg.Clock
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Handler{
		client: cfg.Client,
		items:  cfg.Items,
		clock:  clk,
	}
}

// Sync server-side applies the Secret for bws from the cached item.
func (h *Handler) Sync(ctx context.Context, bws *bwsv1.BitwardenSecret) error {
	log := logr.FromContextOrDiscard(ctx).WithValues(logger.KeyItem, bws.Spec.Name)

	item, err := h.items.Lookup(bws.Spec.Name)
	if err != nil {
		return err
	}

	data, err := ResolveSecretData(item, bws.Spec.NotesKey())
	if err != nil {
		return err
	}

	secret, err := BuildSecret(bws, data, h.clock.Now())
	if err != nil {
		return err
	}

	log.V(1).Info("applying secret", logger.KeyOperation, logger.OpApply, "keys", sortedKeys(data))
	if err := h.client.Patch(ctx, secret, client.Apply,
		client.FieldOwner(bwsv1.FieldManager), client.ForceOwnership); err != nil {
		return operrors.NewClusterWriteFailedError(secret.Namespace, secret.Name, err)
	}
	return nil
}

func sortedKeys(data map[string][]byte) []string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
