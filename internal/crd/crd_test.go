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

package crd

import (
	"bytes"
	"testing"

	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	"sigs.k8s.io/yaml"
)

func TestBuild(t *testing.T) {
	crd := Build()

	if crd.Name != "bitwardensecrets.jrcichra.dev" {
		t.Errorf("name = %q", crd.Name)
	}
	if crd.Spec.Scope != apiextensionsv1.NamespaceScoped {
		t.Errorf("scope = %q", crd.Spec.Scope)
	}
	if crd.Spec.Names.Kind != "BitwardenSecret" || crd.Spec.Names.Plural != "bitwardensecrets" {
		t.Errorf("names = %+v", crd.Spec.Names)
	}
	if len(crd.Spec.Names.ShortNames) != 1 || crd.Spec.Names.ShortNames[0] != "bws" {
		t.Errorf("short names = %v", crd.Spec.Names.ShortNames)
	}
	if len(crd.Spec.Versions) != 1 {
		t.Fatalf("expected one version, got %d", len(crd.Spec.Versions))
	}

	v := crd.Spec.Versions[0]
	if v.Name != "v1" || !v.Served || !v.Storage {
		t.Errorf("version = %s served=%v storage=%v", v.Name, v.Served, v.Storage)
	}
	if v.Subresources != nil {
		t.Error("expected no subresources")
	}

	spec, ok := v.Schema.OpenAPIV3Schema.Properties["spec"]
	if !ok {
		t.Fatal("schema has no spec property")
	}
	if len(spec.Required) != 1 || spec.Required[0] != "name" {
		t.Errorf("spec.required = %v", spec.Required)
	}
	for _, field := range []string{"name", "key", "type"} {
		if spec.Properties[field].Type != "string" {
			t.Errorf("spec.%s type = %q, want string", field, spec.Properties[field].Type)
		}
	}

	if len(v.AdditionalPrinterColumns) == 0 || v.AdditionalPrinterColumns[0].JSONPath != ".spec.name" {
		t.Errorf("printer columns = %+v", v.AdditionalPrinterColumns)
	}
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	var decoded apiextensionsv1.CustomResourceDefinition
	if err := yaml.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not a valid CRD document: %v", err)
	}
	if decoded.Kind != "CustomResourceDefinition" || decoded.APIVersion != "apiextensions.k8s.io/v1" {
		t.Errorf("type meta = %s/%s", decoded.APIVersion, decoded.Kind)
	}
	if decoded.Spec.Group != "jrcichra.dev" {
		t.Errorf("group = %q", decoded.Spec.Group)
	}
}
