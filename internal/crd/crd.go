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

// Package crd renders the BitwardenSecret CustomResourceDefinition.
package crd

import (
	"fmt"
	"io"

	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/yaml"

	bwsv1 "github.com/jrcichra/bitwarden-secrets-operator/api/v1"
)

const (
	plural   = "bitwardensecrets"
	singular = "bitwardensecret"
)

// Name is the metadata.name of the CRD.
var Name = plural + "." + bwsv1.GroupVersion.Group

// Build returns the CustomResourceDefinition for BitwardenSecret.
func Build() *apiextensionsv1.CustomResourceDefinition {
	return &apiextensionsv1.CustomResourceDefinition{
		TypeMeta: metav1.TypeMeta{
			APIVersion: apiextensionsv1.SchemeGroupVersion.String(),
			Kind:       "CustomResourceDefinition",
		},
		ObjectMeta: metav1.ObjectMeta{Name: Name},
		Spec: apiextensionsv1.CustomResourceDefinitionSpec{
			Group: bwsv1.GroupVersion.Group,
			Names: apiextensionsv1.CustomResourceDefinitionNames{
				Kind:       bwsv1.Kind,
				ListKind:   bwsv1.Kind + "List",
				Plural:     plural,
				Singular:   singular,
				ShortNames: []string{"bws"},
			},
			Scope: apiextensionsv1.NamespaceScoped,
			Versions: []apiextensionsv1.CustomResourceDefinitionVersion{{
				Name:    bwsv1.GroupVersion.Version,
				Served:  true,
				Storage: true,
				Schema: &apiextensionsv1.CustomResourceValidation{
					OpenAPIV3Schema: schema(),
				},
				AdditionalPrinterColumns: []apiextensionsv1.CustomResourceColumnDefinition{
					{Name: "Item", Type: "string", JSONPath: ".spec.name"},
					{Name: "Age", Type: "date", JSONPath: ".metadata.creationTimestamp"},
				},
			}},
		},
	}
}

func schema() *apiextensionsv1.JSONSchemaProps {
	return &apiextensionsv1.JSONSchemaProps{
		Type:        "object",
		Description: "BitwardenSecret copies a Bitwarden item into a Secret of the same name",
		Required:    []string{"spec"},
		Properties: map[string]apiextensionsv1.JSONSchemaProps{
			"spec": {
				Type:     "object",
				Required: []string{"name"},
				Properties: map[string]apiextensionsv1.JSONSchemaProps{
					"name": {
						Type:        "string",
						Description: "Name of the Bitwarden item to copy",
					},
					"key": {
						Type:        "string",
						Description: "Data key for secure notes (defaults to notes)",
					},
					"type": {
						Type:        "string",
						Description: "Type of the generated Secret",
					},
				},
			},
		},
	}
}

// Write renders the CRD as a YAML document.
func Write(w io.Writer) error {
	out, err := yaml.Marshal(Build())
	if err != nil {
		return fmt.Errorf("failed to marshal CRD: %w", err)
	}
	if _, err := w.Write(out); err != nil {
		return fmt.Errorf("failed to write CRD: %w", err)
	}
	return nil
}
