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

// Package logger provides structured logging utilities for the bitwarden-secrets-operator.
// It defines standard log fields and helper functions for consistent logging across
// the controller, the credential refresher and the leadership gate.
package logger

import (
	"context"
	"time"

	"github.com/go-logr/logr"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

// Standard log field keys for consistent structured logging across the operator.
const (
	// KeyController identifies the controller handling the reconciliation
	KeyController = "controller"

	// KeyResource identifies the resource being reconciled (name)
	KeyResource = "resource"

	// KeyNamespace identifies the namespace of the resource
	KeyNamespace = "namespace"

	// KeyItem identifies the Bitwarden item name
	KeyItem = "item"

	// KeyFolder identifies the Bitwarden folder name
	KeyFolder = "folder"

	// KeyStep identifies the bw CLI step (login, unlock, sync, ...)
	KeyStep = "step"

	// KeyOperation identifies the operation being performed
	KeyOperation = "operation"

	// KeyDuration records the time taken for an operation
	KeyDuration = "duration"

	// KeyReconcileID provides a unique identifier for tracing a reconciliation
	KeyReconcileID = "reconcileID"

	// KeyReason is the classified failure reason
	KeyReason = "reason"

	// KeyError includes error details
	KeyError = "error"

	// KeyLease identifies the coordination Lease
	KeyLease = "lease"

	// KeyIdentity identifies this replica's lease holder identity
	KeyIdentity = "identity"

	// KeyItemCount is the number of items in a cache snapshot
	KeyItemCount = "items"
)

// Operation types for logging
const (
	OpReconcile = "reconcile"
	OpApply     = "apply"
	OpLogin     = "login"
	OpRefresh   = "refresh"
	OpAcquire   = "acquire"
	OpRenew     = "renew"
	OpRelease   = "release"
)

// ReconcileLogger wraps a logr.Logger with additional context for reconciliation.
type ReconcileLogger struct {
	logr.Logger
	startTime time.Time
}

// NewReconcileLogger creates a logger with standard reconcile context.
// This should be called at the beginning of each Reconcile function.
func NewReconcileLogger(ctx context.Context, controller string, req ctrl.Request) *ReconcileLogger {
	l := log.FromContext(ctx).WithValues(
		KeyController, controller,
		KeyResource, req.Name,
		KeyNamespace, req.Namespace,
	)

	return &ReconcileLogger{
		Logger:    l,
		startTime: time.Now(),
	}
}

// WithOperation returns a new logger with operation context added.
func (r *ReconcileLogger) WithOperation(op string) *ReconcileLogger {
	return &ReconcileLogger{
		Logger:    r.Logger.WithValues(KeyOperation, op),
		startTime: r.startTime,
	}
}

// Duration returns the elapsed time since the logger was created.
func (r *ReconcileLogger) Duration() time.Duration {
	return time.Since(r.startTime)
}

// InfoWithDuration logs an info message with the elapsed duration.
func (r *ReconcileLogger) InfoWithDuration(msg string, keysAndValues ...interface{}) {
	r.Info(msg, append(keysAndValues, KeyDuration, r.Duration().String())...)
}

// ErrorWithDuration logs an error with the elapsed duration.
func (r *ReconcileLogger) ErrorWithDuration(err error, msg string, keysAndValues ...interface{}) {
	r.Error(err, msg, append(keysAndValues, KeyDuration, r.Duration().String())...)
}

// V returns a logger at the specified verbosity level.
func (r *ReconcileLogger) V(level int) *ReconcileLogger {
	return &ReconcileLogger{
		Logger:    r.Logger.V(level),
		startTime: r.startTime,
	}
}

// WithValues returns a new logger with additional key-value pairs.
func (r *ReconcileLogger) WithValues(keysAndValues ...interface{}) *ReconcileLogger {
	return &ReconcileLogger{
		Logger:    r.Logger.WithValues(keysAndValues...),
		startTime: r.startTime,
	}
}

// LogReconcileStart logs the start of a reconciliation.
func (r *ReconcileLogger) LogReconcileStart() {
	r.V(1).Info("starting reconciliation")
}

// LogReconcileSuccess logs successful completion of a reconciliation.
func (r *ReconcileLogger) LogReconcileSuccess() {
	r.InfoWithDuration("reconciliation completed successfully")
}

// FromContext extracts a logger from context with standard fields.
// Falls back to a background logger if none is found.
func FromContext(ctx context.Context, keysAndValues ...interface{}) logr.Logger {
	return log.FromContext(ctx, keysAndValues...)
}

// WithOperation adds operation context to an existing logger.
func WithOperation(l logr.Logger, op string) logr.Logger {
	return l.WithValues(KeyOperation, op)
}

// WithFolder adds Bitwarden folder context to an existing logger.
func WithFolder(l logr.Logger, folder string) logr.Logger {
	return l.WithValues(KeyFolder, folder)
}

// WithLease adds lease and identity context to an existing logger.
func WithLease(l logr.Logger, namespace, name, identity string) logr.Logger {
	return l.WithValues(KeyLease, namespace+"/"+name, KeyIdentity, identity)
}

// WithDuration adds duration context to an existing logger.
func WithDuration(l logr.Logger, d time.Duration) logr.Logger {
	return l.WithValues(KeyDuration, d.String())
}
