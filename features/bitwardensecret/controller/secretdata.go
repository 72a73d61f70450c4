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
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	bwsv1 "github.com/jrcichra/bitwarden-secrets-operator/api/v1"
	"github.com/jrcichra/bitwarden-secrets-operator/pkg/bitwarden"
	operrors "github.com/jrcichra/bitwarden-secrets-operator/shared/infrastructure/errors"
)

// Data keys written for login items.
const (
	KeyUsername = "username"
	KeyPassword = "password"
)

// ResolveSecretData maps an item to Secret data. A login wins over notes and
// yields username and password; a note yields a single entry under key
// ("notes" when key is empty).
func ResolveSecretData(item bitwarden.Item, key string) (map[string][]byte, error) {
	if item.Login != nil {
		return map[string][]byte{
			KeyUsername: []byte(item.Login.Username),
			KeyPassword: []byte(item.Login.Password),
		}, nil
	}
	if item.Notes != nil {
		if key == "" {
			key = bwsv1.DefaultNotesKey
		}
		return map[string][]byte{key: []byte(*item.Notes)}, nil
	}
	return nil, operrors.NewSecretShapeUnresolvableError(item.Name)
}

// BuildSecret renders the apply configuration of the Secret owned by bws.
func BuildSecret(bws *bwsv1.BitwardenSecret, data map[string][]byte, now time.Time) (*corev1.Secret, error) {
	if bws.Namespace == "" {
		return nil, operrors.NewMissingObjectKeyError("namespace")
	}
	if bws.Name == "" {
		return nil, operrors.NewMissingObjectKeyError("name")
	}

	return &corev1.Secret{
		TypeMeta: metav1.TypeMeta{
			APIVersion: corev1.SchemeGroupVersion.String(),
			Kind:       "Secret",
		},
		ObjectMeta: metav1.ObjectMeta{
			Name:      bws.Name,
			Namespace: bws.Namespace,
			Annotations: map[string]string{
				bwsv1.AnnotationLastReconciled: now.UTC().Format(time.RFC3339),
			},
			OwnerReferences: []metav1.OwnerReference{
				*metav1.NewControllerRef(bws, bwsv1.GroupVersion.WithKind(bwsv1.Kind)),
			},
		},
		Type: corev1.SecretType(bws.Spec.SecretType()),
		Data: data,
	}, nil
}
