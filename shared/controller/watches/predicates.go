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

package watches

import (
	"bytes"

	corev1 "k8s.io/api/core/v1"
	"sigs.k8s.io/controller-runtime/pkg/event"
	"sigs.k8s.io/controller-runtime/pkg/predicate"
)

// SecretContentChangedPredicate lets through owned-Secret events that change
// what the Secret holds:
// - Delete events (always trigger)
// - Updates that change data or type
//
// Metadata-only updates are dropped. Every apply stamps a fresh lastReconciled
// annotation, so reacting to those would reconcile in a loop.
type SecretContentChangedPredicate struct {
	predicate.Funcs
}

// Create is dropped; owned Secrets are created by the reconciler itself.
func (SecretContentChangedPredicate) Create(e event.CreateEvent) bool {
	return false
}

func (SecretContentChangedPredicate) Delete(e event.DeleteEvent) bool {
	return true
}

func (SecretContentChangedPredicate) Update(e event.UpdateEvent) bool {
	oldSecret, okOld := e.ObjectOld.(*corev1.Secret)
	newSecret, okNew := e.ObjectNew.(*corev1.Secret)
	if !okOld || !okNew {
		// Not a Secret, let it through
		return true
	}

	if oldSecret.Type != newSecret.Type {
		return true
	}

	return !dataEqual(oldSecret.Data, newSecret.Data)
}

func (SecretContentChangedPredicate) Generic(e event.GenericEvent) bool {
	return false
}

func dataEqual(a, b map[string][]byte) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || !bytes.Equal(av, bv) {
			return false
		}
	}
	return true
}

var _ predicate.Predicate = SecretContentChangedPredicate{}
