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

package bitwardensecret

import (
	"context"
	"time"

	"github.com/go-logr/logr"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/tools/record"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"
	"sigs.k8s.io/controller-runtime/pkg/client/interceptor"

	bwsv1 "github.com/jrcichra/bitwarden-secrets-operator/api/v1"
	"github.com/jrcichra/bitwarden-secrets-operator/pkg/bitwarden"
	"github.com/jrcichra/bitwarden-secrets-operator/pkg/credentials"
	"github.com/jrcichra/bitwarden-secrets-operator/shared/controller/base"
	"github.com/jrcichra/bitwarden-secrets-operator/shared/controller/watches"
)

// upsertOnApply turns server-side apply into create-or-update so the fake
// client can serve it.
var upsertOnApply = interceptor.Funcs{
	Patch: func(ctx context.Context, c client.WithWatch, obj client.Object, patch client.Patch, opts ...client.PatchOption) error {
		if patch.Type() != types.ApplyPatchType {
			return c.Patch(ctx, obj, patch, opts...)
		}
		desired := obj.DeepCopyObject().(client.Object)
		existing := &corev1.Secret{}
		err := c.Get(ctx, client.ObjectKeyFromObject(desired), existing)
		if apierrors.IsNotFound(err) {
			return c.Create(ctx, desired)
		}
		if err != nil {
			return err
		}
		desired.SetResourceVersion(existing.ResourceVersion)
		return c.Update(ctx, desired)
	},
}

func bitwardenSecret(namespace, name, item string) *bwsv1.BitwardenSecret {
	return &bwsv1.BitwardenSecret{
		ObjectMeta: metav1.ObjectMeta{Namespace: namespace, Name: name, UID: types.UID(namespace + "-" + name)},
		Spec:       bwsv1.BitwardenSecretSpec{Name: item},
	}
}

func login(name, user, pass string) bitwarden.Item {
	return bitwarden.Item{Name: name, Type: bitwarden.ItemTypeLogin,
		Login: &bitwarden.Login{Username: user, Password: pass}}
}

var _ = Describe("BitwardenSecret feature", func() {
	var (
		ctx      context.Context
		k8s      client.Client
		items    *credentials.Cache
		recorder *record.FakeRecorder
		feature  *Feature
	)

	secretData := func(namespace, name string) map[string][]byte {
		secret := &corev1.Secret{}
		Expect(k8s.Get(ctx, client.ObjectKey{Namespace: namespace, Name: name}, secret)).To(Succeed())
		return secret.Data
	}

	resyncAll := func() {
		mapFn := watches.AllBitwardenSecrets(k8s, feature.Reconciler.Namespace())
		for _, req := range mapFn(ctx, &bwsv1.BitwardenSecret{}) {
			_, err := feature.Reconciler.Reconcile(ctx, req)
			Expect(err).NotTo(HaveOccurred())
		}
	}

	BeforeEach(func() {
		ctx = context.Background()

		scheme := runtime.NewScheme()
		Expect(clientgoscheme.AddToScheme(scheme)).To(Succeed())
		Expect(bwsv1.AddToScheme(scheme)).To(Succeed())

		k8s = fake.NewClientBuilder().
			WithScheme(scheme).
			WithObjects(
				bitwardenSecret("apps", "db", "db"),
				bitwardenSecret("apps", "api", "api-token"),
				bitwardenSecret("other", "db", "db"),
			).
			WithInterceptorFuncs(upsertOnApply).
			Build()

		items = credentials.NewCache()
		items.Replace(credentials.NewSnapshot([]bitwarden.Item{
			login("db", "admin", "s3cret"),
			login("api-token", "svc", "tok-1"),
		}, time.Now()))

		recorder = record.NewFakeRecorder(20)
		feature = New(Config{
			K8sClient:      k8s,
			Scheme:         scheme,
			Items:          items,
			Recorder:       recorder,
			Log:            logr.Discard(),
			Namespace:      "apps",
			ResyncInterval: time.Minute,
		})
	})

	It("wires the reconciler and the resync ticker", func() {
		Expect(feature.Reconciler).NotTo(BeNil())
		Expect(feature.Resync).NotTo(BeNil())
		Expect(feature.Resync.Events()).NotTo(BeNil())
	})

	It("materializes every resource in the watched namespace on a resync pass", func() {
		resyncAll()

		Expect(secretData("apps", "db")).To(HaveKeyWithValue("username", []byte("admin")))
		Expect(secretData("apps", "api")).To(HaveKeyWithValue("password", []byte("tok-1")))

		err := k8s.Get(ctx, client.ObjectKey{Namespace: "other", Name: "db"}, &corev1.Secret{})
		Expect(apierrors.IsNotFound(err)).To(BeTrue())
	})

	It("propagates a rotated credential on the next pass", func() {
		resyncAll()
		Expect(secretData("apps", "api")).To(HaveKeyWithValue("password", []byte("tok-1")))

		items.Replace(credentials.NewSnapshot([]bitwarden.Item{
			login("db", "admin", "s3cret"),
			login("api-token", "svc", "tok-2"),
		}, time.Now()))
		resyncAll()

		Expect(secretData("apps", "api")).To(HaveKeyWithValue("password", []byte("tok-2")))
	})

	It("keeps the last written secret when the item disappears from the vault", func() {
		resyncAll()

		items.Replace(credentials.NewSnapshot([]bitwarden.Item{
			login("db", "admin", "s3cret"),
		}, time.Now()))

		result, err := feature.Reconciler.Reconcile(ctx, ctrl.Request{
			NamespacedName: types.NamespacedName{Namespace: "apps", Name: "api"},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.RequeueAfter).To(Equal(base.DefaultRequeueError))
		Expect(secretData("apps", "api")).To(HaveKeyWithValue("password", []byte("tok-1")))

		var events []string
		for len(recorder.Events) > 0 {
			events = append(events, <-recorder.Events)
		}
		Expect(events).To(ContainElement(ContainSubstring("ItemNotFound")))
	})

	It("requeues successful reconciles after the success interval", func() {
		result, err := feature.Reconciler.Reconcile(ctx, ctrl.Request{
			NamespacedName: types.NamespacedName{Namespace: "apps", Name: "db"},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.RequeueAfter).To(Equal(base.DefaultRequeueSuccess))
	})
})
