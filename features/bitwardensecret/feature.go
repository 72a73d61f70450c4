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

// Package bitwardensecret implements the BitwardenSecret feature: every
// BitwardenSecret is materialized as a Secret holding the credential of the
// named Bitwarden item.
//
// Feature-Driven Design: This package is organized as a vertical slice containing
// the controller, the secret shaping and the reconcile-all trigger.
package bitwardensecret

import (
	"time"

	"github.com/go-logr/logr"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/tools/record"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/jrcichra/bitwarden-secrets-operator/features/bitwardensecret/controller"
	"github.com/jrcichra/bitwarden-secrets-operator/shared/controller/watches"
)

// Feature is the entry point for the BitwardenSecret feature.
type Feature struct {
	// Reconciler handles BitwardenSecret reconciliation
	Reconciler *controller.Reconciler

	// Resync triggers a reconcile of every BitwardenSecret on an interval
	Resync *watches.ResyncTicker

	log logr.Logger
}

// Config contains configuration for creating a BitwardenSecret Feature.
type Config struct {
	K8sClient client.Client
	Scheme    *runtime.Scheme
	Items     controller.ItemSource
	Recorder  record.EventRecorder
	Log       logr.Logger

	Namespace               string
	ResyncInterval          time.Duration
	MaxConcurrentReconciles int
}

// New creates a new BitwardenSecret Feature with all dependencies wired together.
func New(cfg Config) *Feature {
	featureLog := cfg.Log.WithName("bitwardensecret")

	reconciler := controller.NewReconciler(controller.ReconcilerConfig{
		Client:                  cfg.K8sClient,
		Scheme:                  cfg.Scheme,
		Items:                   cfg.Items,
		Recorder:                cfg.Recorder,
		Log:                     featureLog,
		Namespace:               cfg.Namespace,
		MaxConcurrentReconciles: cfg.MaxConcurrentReconciles,
	})

	return &Feature{
		Reconciler: reconciler,
		Resync:     watches.NewResyncTicker(cfg.ResyncInterval, nil, featureLog.WithName("resync")),
		log:        featureLog,
	}
}

// SetupWithManager registers the resync ticker and the controller with the manager.
func (f *Feature) SetupWithManager(mgr ctrl.Manager) error {
	f.log.Info("setting up BitwardenSecret feature")
	if err := mgr.Add(f.Resync); err != nil {
		return err
	}
	return f.Reconciler.SetupWithManager(mgr, f.Resync.Events())
}
