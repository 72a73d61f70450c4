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

package v1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

const (
	// Kind is the kind name of the BitwardenSecret resource.
	Kind = "BitwardenSecret"

	// DefaultNotesKey is the Secret data key used for note items when Spec.Key is unset.
	DefaultNotesKey = "notes"

	// AnnotationLastReconciled holds the RFC3339 time of the last successful apply.
	AnnotationLastReconciled = "lastReconciled"

	// FieldManager is the server-side apply field manager used for produced Secrets.
	FieldManager = "bitwarden-secrets-operator.jrcichra.dev"
)

// BitwardenSecretSpec defines which Bitwarden item is materialized as a Secret.
type BitwardenSecretSpec struct {
	// Name is the name of the Bitwarden item inside the configured folder
	// +kubebuilder:validation:Required
	// +kubebuilder:validation:MinLength=1
	Name string `json:"name"`

	// Key is the Secret data key for note items. Defaults to "notes".
	// Ignored for login items, which always produce "username" and "password".
	// +optional
	Key *string `json:"key,omitempty"`

	// Type is copied to the type of the produced Secret
	// +optional
	Type *string `json:"type,omitempty"`
}

// NotesKey returns the data key used for note items.
func (s BitwardenSecretSpec) NotesKey() string {
	if s.Key != nil && *s.Key != "" {
		return *s.Key
	}
	return DefaultNotesKey
}

// SecretType returns the declared Secret type, or "" when unset.
func (s BitwardenSecretSpec) SecretType() string {
	if s.Type == nil {
		return ""
	}
	return *s.Type
}

// +kubebuilder:object:root=true
// +kubebuilder:resource:shortName=bws
// +kubebuilder:printcolumn:name="Item",type=string,JSONPath=`.spec.name`
// +kubebuilder:printcolumn:name="Age",type=date,JSONPath=`.metadata.creationTimestamp`

// BitwardenSecret is the Schema for the bitwardensecrets API.
type BitwardenSecret struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec BitwardenSecretSpec `json:"spec,omitempty"`
}

// +kubebuilder:object:root=true

// BitwardenSecretList contains a list of BitwardenSecret.
type BitwardenSecretList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []BitwardenSecret `json:"items"`
}

func init() {
	SchemeBuilder.Register(&BitwardenSecret{}, &BitwardenSecretList{})
}
