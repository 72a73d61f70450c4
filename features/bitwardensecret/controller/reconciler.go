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

	"github.com/go-logr/logr"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/tools/record"
	"k8s.io/utils/clock"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/builder"
	"sigs.k8s.io/controller-runtime/pkg/client"
	crcontroller "sigs.k8s.io/controller-runtime/pkg/controller"
	"sigs.k8s.io/controller-runtime/pkg/event"
	crhandler "sigs.k8s.io/controller-runtime/pkg/handler"
	"sigs.k8s.io/controller-runtime/pkg/predicate"
	"sigs.k8s.io/controller-runtime/pkg/source"

	bwsv1 "github.com/jrcichra/bitwarden-secrets-operator/api/v1"
	"github.com/jrcichra/bitwarden-secrets-operator/pkg/metrics"
	"github.com/jrcichra/bitwarden-secrets-operator/shared/controller/base"
	"github.com/jrcichra/bitwarden-secrets-operator/shared/controller/watches"
)

// ControllerName is the name of the BitwardenSecret controller.
const ControllerName = "bitwardensecret"

// Reconciler reconciles BitwardenSecret resources using the BaseReconciler pattern.
type Reconciler struct {
	base    *base.BaseReconciler[*bwsv1.BitwardenSecret]
	handler *Handler

	namespace               string
	maxConcurrentReconciles int
}

// ReconcilerConfig contains all configuration for creating a Reconciler.
type ReconcilerConfig struct {
	Client   client.Client
	Scheme   *runtime.Scheme
	Items    ItemSource
	Recorder record.EventRecorder
	Clock    clock.PassiveClock
	Log      logr.Logger

	// Namespace limits the resync pass; empty means all namespaces.
	Namespace               string
	MaxConcurrentReconciles int
}

// NewReconciler creates a new BitwardenSecret Reconciler.
func NewReconciler(cfg ReconcilerConfig) *Reconciler {
	clk := cfg.Clock
	if clk == nil {
		clk = clock.RealClock{}
	}

	handler := NewHandler(HandlerConfig{
		Client: cfg.Client,
		Items:  cfg.Items,
		Clock:  clk,
	})

	baseReconciler := base.NewBaseReconciler(
		cfg.Client,
		cfg.Scheme,
		cfg.Log.WithName("reconciler"),
		ControllerName,
		recordOutcome(clk),
		cfg.Recorder,
	)

	return &Reconciler{
		base:                    baseReconciler,
		handler:                 handler,
		namespace:               cfg.Namespace,
		maxConcurrentReconciles: cfg.MaxConcurrentReconciles,
	}
}

// recordOutcome updates the reconcile metrics after every pass.
func recordOutcome(clk clock.PassiveClock) base.ResultObserver[*bwsv1.BitwardenSecret] {
	return func(_ context.Context, bws *bwsv1.BitwardenSecret, err error) {
		metrics.IncrementReconcile(bws.GetNamespace(), err == nil)
		if err == nil {
			metrics.SetLastReconcile(clk.Now())
		}
	}
}

// Namespace returns the namespace the resync pass lists, empty for all.
func (r *Reconciler) Namespace() string {
	return r.namespace
}

// +kubebuilder:rbac:groups=jrcichra.dev,resources=bitwardensecrets,verbs=get;list;watch
// +kubebuilder:rbac:groups=jrcichra.dev,resources=bitwardensecrets/finalizers,verbs=update
// +kubebuilder:rbac:groups="",resources=secrets,verbs=get;list;watch;create;update;patch
// +kubebuilder:rbac:groups="",resources=events,verbs=create;patch
// +kubebuilder:rbac:groups=coordination.k8s.io,resources=leases,verbs=get;create;update

// Reconcile implements the reconciliation loop for BitwardenSecret.
// The actual logic is delegated to the BaseReconciler and Handler.
func (r *Reconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	return r.base.Reconcile(ctx, req, r.handler, func() *bwsv1.BitwardenSecret {
		return &bwsv1.BitwardenSecret{}
	})
}

// SetupWithManager sets up the controller with the Manager. Every event on
// resync enqueues all BitwardenSecrets.
func (r *Reconciler) SetupWithManager(mgr ctrl.Manager, resync <-chan event.GenericEvent) error {
	b := ctrl.NewControllerManagedBy(mgr).
		For(&bwsv1.BitwardenSecret{},
			builder.WithPredicates(predicate.GenerationChangedPredicate{})).
		Owns(&corev1.Secret{},
			builder.WithPredicates(watches.SecretContentChangedPredicate{}))

	if resync != nil {
		b = b.WatchesRawSource(source.Channel(resync,
			crhandler.EnqueueRequestsFromMapFunc(watches.AllBitwardenSecrets(mgr.GetClient(), r.namespace))))
	}

	if r.maxConcurrentReconciles > 0 {
		b = b.WithOptions(crcontroller.Options{MaxConcurrentReconciles: r.maxConcurrentReconciles})
	}

	return b.Named(ControllerName).Complete(r)
}
