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
	"strings"
	"sync"
	"testing"
	"time"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/tools/record"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"
	"sigs.k8s.io/controller-runtime/pkg/client/interceptor"

	bwsv1 "github.com/jrcichra/bitwarden-secrets-operator/api/v1"
	"github.com/jrcichra/bitwarden-secrets-operator/pkg/bitwarden"
	"github.com/jrcichra/bitwarden-secrets-operator/pkg/credentials"
)

// appliedPatch is one server-side apply observed by the fake client.
type appliedPatch struct {
	Secret       *corev1.Secret
	FieldManager string
	Force        bool
}

// applyRecorder emulates server-side apply on top of the fake client,
// which cannot apply on its own, and keeps every apply it sees.
type applyRecorder struct {
	mu      sync.Mutex
	patches []appliedPatch
	failure error
}

func (a *applyRecorder) funcs() interceptor.Funcs {
	return interceptor.Funcs{
		Patch: func(ctx context.Context, c client.WithWatch, obj client.Object, patch client.Patch, opts ...client.PatchOption) error {
			if patch.Type() != types.ApplyPatchType {
				return c.Patch(ctx, obj, patch, opts...)
			}

			po := &client.PatchOptions{}
			po.ApplyOptions(opts)
			secret := obj.(*corev1.Secret).DeepCopy()

			a.mu.Lock()
			a.patches = append(a.patches, appliedPatch{
				Secret:       secret.DeepCopy(),
				FieldManager: po.FieldManager,
				Force:        po.Force != nil && *po.Force,
			})
			failure := a.failure
			a.mu.Unlock()

			if failure != nil {
				return failure
			}

			existing := &corev1.Secret{}
			err := c.Get(ctx, client.ObjectKeyFromObject(secret), existing)
			if apierrors.IsNotFound(err) {
				return c.Create(ctx, secret)
			}
			if err != nil {
				return err
			}
			secret.ResourceVersion = existing.ResourceVersion
			return c.Update(ctx, secret)
		},
	}
}

func (a *applyRecorder) applied() []appliedPatch {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]appliedPatch(nil), a.patches...)
}

func newTestScheme(t *testing.T) *runtime.Scheme {
	t.Helper()
	scheme := runtime.NewScheme()
	if err := clientgoscheme.AddToScheme(scheme); err != nil {
		t.Fatalf("failed to add client-go scheme: %v", err)
	}
	if err := bwsv1.AddToScheme(scheme); err != nil {
		t.Fatalf("failed to add bitwarden scheme: %v", err)
	}
	return scheme
}

func newFakeClient(t *testing.T, rec *applyRecorder, objs ...client.Object) client.Client {
	t.Helper()
	return fake.NewClientBuilder().
		WithScheme(newTestScheme(t)).
		WithObjects(objs...).
		WithInterceptorFuncs(rec.funcs()).
		Build()
}

// vaultItems returns a cache holding the items used across tests.
func vaultItems() *credentials.Cache {
	notes := "ssid=home\npsk=hunter2"
	cache := credentials.NewCache()
	cache.Replace(credentials.NewSnapshot([]bitwarden.Item{
		{ID: "1", Name: "db", Type: bitwarden.ItemTypeLogin,
			Login: &bitwarden.Login{Username: "admin", Password: "s3cret"}},
		{ID: "2", Name: "wifi", Type: bitwarden.ItemTypeSecureNote, Notes: &notes},
		{ID: "3", Name: "card", Type: bitwarden.ItemTypeCard},
	}, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
	return cache
}

func collectRecorderEvents(recorder *record.FakeRecorder) []string {
	var events []string
	for {
		select {
		case event := <-recorder.Events:
			events = append(events, event)
		default:
			return events
		}
	}
}

func hasEvent(events []string, fragment string) bool {
	for _, e := range events {
		if strings.Contains(e, fragment) {
			return true
		}
	}
	return false
}
