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

// Package bitwarden drives the Bitwarden CLI (`bw`) to authenticate a vault
// session and to read the items of a single folder.
package bitwarden

import (
	"bytes"
	"context"
	"os/exec"
)

// CommandExecutor runs an external command. Every bw invocation goes through it,
// which lets tests script the CLI.
type CommandExecutor interface {
	// Execute runs a command with the given context and arguments.
	// A non-zero exit is reported as *exec.ExitError.
	Execute(ctx context.Context, name string, args ...string) (stdout []byte, stderr []byte, err error)
}

// ExecCommandExecutor executes commands with os/exec.
type ExecCommandExecutor struct{}

// Execute runs the command and kills it when ctx is done.
func (ExecCommandExecutor) Execute(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// DefaultExecutor returns the production executor.
func DefaultExecutor() CommandExecutor {
	return ExecCommandExecutor{}
}
