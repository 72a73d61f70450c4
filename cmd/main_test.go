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

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRootCommand_PrintsCRD(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--crd"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out.String(), "name: bitwardensecrets.jrcichra.dev") {
		t.Errorf("unexpected output:\n%s", out.String())
	}
}

func TestRootCommand_WritesCRDFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crd.yaml")
	cmd := newRootCommand()
	cmd.SetArgs([]string{"--crd", "--crd-output", path})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected CRD file: %v", err)
	}
	if !strings.Contains(string(data), "kind: CustomResourceDefinition") {
		t.Errorf("unexpected file content:\n%s", data)
	}
}

func TestRootCommand_RejectsInvalidConfig(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetArgs([]string{"--crd", "--metrics-port", "0"})

	if err := cmd.Execute(); err == nil {
		t.Fatal("expected invalid configuration to fail")
	}
}
