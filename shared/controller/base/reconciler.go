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

// Package base provides shared controller infrastructure using the Template Method pattern.
// The base reconciler owns fetching, logging, events and requeue policy; each
// feature supplies only the Sync step.
package base

import (
	"context"
	"crypto/rand"
	"encoding/hex"

	"github.com/go-logr/logr"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/tools/record"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"

	oplogger "github.com/jrcichra/bitwarden-secrets-operator/pkg/logger"
	operrors "github.com/jrcichra/bitwarden-secrets-operator/shared/infrastructure/errors"
)

// FeatureHandler defines the interface that each feature's handler must implement.
type FeatureHandler[T client.Object] interface {
	// Sync brings the cluster in line with the desired resource.
	Sync(ctx context.Context, resource T) error
}

// Event reasons for K8s events
const (
	// EventReasonSynced indicates sync completed successfully
	EventReasonSynced = "Synced"
	// EventReasonSyncFailed indicates sync failed
	EventReasonSyncFailed = "SyncFailed"
)

// BaseReconciler provides the template method for controller reconciliation.
type BaseReconciler[T client.Object] struct {
	Client   client.Client
	Scheme   *runtime.Scheme
	Logger   logr.Logger
	Name     string
	Status   *StatusManager[T]
	Recorder record.EventRecorder
}

// NewBaseReconciler creates a new BaseReconciler with the given dependencies.
// The observer and recorder parameters are optional.
func NewBaseReconciler[T client.Object](
	c client.Client,
	scheme *runtime.Scheme,
	logger logr.Logger,
	name string,
	observer ResultObserver[T],
	recorder record.EventRecorder,
) *BaseReconciler[T] {
	return &BaseReconciler[T]{
		Client:   c,
		Scheme:   scheme,
		Logger:   logger,
		Name:     name,
		Status:   NewStatusManager(observer),
		Recorder: recorder,
	}
}

// recordEvent emits a Kubernetes event if the recorder is configured.
func (r *BaseReconciler[T]) recordEvent(obj client.Object, eventType, reason, message string) {
	if r.Recorder != nil {
		r.Recorder.Event(obj, eventType, reason, message)
	}
}

// Reconcile implements the template method pattern for reconciliation.
//
// The algorithm steps are:
// 1. Fetch the resource
// 2. Skip resources that are being deleted
// 3. Delegate to feature-specific Sync
// 4. Record the outcome and pick the requeue delay
func (r *BaseReconciler[T]) Reconcile(
	ctx context.Context,
	req ctrl.Request,
	handler FeatureHandler[T],
	newResource func() T,
) (ctrl.Result, error) {
	ctx = logr.NewContext(ctx, r.Logger)
	log := oplogger.NewReconcileLogger(ctx, r.Name, req).
		WithOperation(oplogger.OpReconcile).
		WithValues(oplogger.KeyReconcileID, shortID())
	ctx = logr.NewContext(ctx, log.Logger)
	log.LogReconcileStart()

	// Step 1: Fetch the resource
	resource := newResource()
	if err := r.Client.Get(ctx, req.NamespacedName, resource); err != nil {
		if apierrors.IsNotFound(err) {
			log.V(1).Info("resource not found, likely deleted")
			return r.Status.Done()
		}
		return r.Status.Error(ctx, resource, err)
	}

	// Step 2: The owned Secret is garbage collected with its owner.
	if !resource.GetDeletionTimestamp().IsZero() {
		log.V(1).Info("resource is being deleted, skipping")
		return r.Status.Done()
	}

	// Step 3: Feature-specific sync
	if err := handler.Sync(ctx, resource); err != nil {
		r.recordEvent(resource, corev1.EventTypeWarning, EventReasonSyncFailed,
			operrors.Classify(err)+": "+err.Error())
		return r.Status.Error(ctx, resource, err)
	}

	// Step 4: Record success
	r.recordEvent(resource, corev1.EventTypeNormal, EventReasonSynced, "Secret synced from Bitwarden")
	log.LogReconcileSuccess()
	return r.Status.Success(ctx, resource)
}

// shortID generates a short random hex string for reconcile correlation.
func shortID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
