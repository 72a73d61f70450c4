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

package base

import (
	"context"
	"time"

	"github.com/go-logr/logr"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"

	oplogger "github.com/jrcichra/bitwarden-secrets-operator/pkg/logger"
	operrors "github.com/jrcichra/bitwarden-secrets-operator/shared/infrastructure/errors"
)

// Default requeue durations.
var (
	DefaultRequeueSuccess = 300 * time.Second
	DefaultRequeueError   = 30 * time.Second
)

// ResultObserver is notified of every reconcile outcome. err is nil on success.
// Each feature provides its own implementation, typically for metrics.
type ResultObserver[T client.Object] func(ctx context.Context, resource T, err error)

// StatusManager records reconcile outcomes and determines requeue behavior.
//
// Failures are never returned to controller-runtime: a returned error would
// put the request on the exponential rate limiter and ignore RequeueAfter.
// Every failure is retried after the same fixed delay instead.
type StatusManager[T client.Object] struct {
	observer         ResultObserver[T]
	requeueOnSuccess time.Duration
	requeueOnError   time.Duration
}

// NewStatusManager creates a new StatusManager with the given observer.
func NewStatusManager[T client.Object](observer ResultObserver[T]) *StatusManager[T] {
	return &StatusManager[T]{
		observer:         observer,
		requeueOnSuccess: DefaultRequeueSuccess,
		requeueOnError:   DefaultRequeueError,
	}
}

// WithRequeueOnSuccess sets the requeue duration for successful reconciliations.
func (s *StatusManager[T]) WithRequeueOnSuccess(d time.Duration) *StatusManager[T] {
	s.requeueOnSuccess = d
	return s
}

// WithRequeueOnError sets the requeue duration for failed reconciliations.
func (s *StatusManager[T]) WithRequeueOnError(d time.Duration) *StatusManager[T] {
	s.requeueOnError = d
	return s
}

// Success notifies the observer and requeues after the success interval.
func (s *StatusManager[T]) Success(ctx context.Context, resource T) (ctrl.Result, error) {
	if s.observer != nil {
		s.observer(ctx, resource, nil)
	}
	return ctrl.Result{RequeueAfter: s.requeueOnSuccess}, nil
}

// Error logs reconcileErr with its classified reason, notifies the observer
// and requeues after the error interval without returning the error.
func (s *StatusManager[T]) Error(ctx context.Context, resource T, reconcileErr error) (ctrl.Result, error) {
	reason := operrors.Classify(reconcileErr)
	logr.FromContextOrDiscard(ctx).Error(reconcileErr, "reconciliation failed",
		oplogger.KeyReason, reason,
		"requeueAfter", s.requeueOnError.String())

	if s.observer != nil {
		s.observer(ctx, resource, reconcileErr)
	}
	return ctrl.Result{RequeueAfter: s.requeueOnError}, nil
}

// Done returns a result indicating no requeue is needed.
func (s *StatusManager[T]) Done() (ctrl.Result, error) {
	return ctrl.Result{}, nil
}
