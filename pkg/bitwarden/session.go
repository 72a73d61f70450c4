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

package bitwarden

import (
	"context"
	"fmt"
	"regexp"

	"github.com/awnumar/memguard"
	"github.com/go-logr/logr"

	"github.com/jrcichra/bitwarden-secrets-operator/pkg/logger"
	operrors "github.com/jrcichra/bitwarden-secrets-operator/shared/infrastructure/errors"
)

const (
	// DefaultBinary is the bw executable looked up on PATH.
	DefaultBinary = "bw"

	// DefaultPasswordEnv is the environment variable bw reads the master password from.
	DefaultPasswordEnv = "BW_PASSWORD"
)

var sessionTokenPattern = regexp.MustCompile(`export BW_SESSION="(.+?)"`)

// ParseSessionToken extracts the session token from `bw unlock` output.
// The first `export BW_SESSION="..."` occurrence wins.
func ParseSessionToken(output []byte) (string, error) {
	m := sessionTokenPattern.FindSubmatch(output)
	if m == nil {
		return "", operrors.NewSessionTokenMissingError()
	}
	return string(m[1]), nil
}

// Session is an unlocked vault session. The token is kept encrypted in memory.
type Session struct {
	enclave *memguard.Enclave
}

// NewSession seals token into a memguard enclave.
func NewSession(token string) (*Session, error) {
	if token == "" {
		return nil, operrors.NewSessionTokenMissingError()
	}
	// NewEnclave wipes its input, so hand it a private copy.
	return &Session{enclave: memguard.NewEnclave([]byte(token))}, nil
}

// Token decrypts and returns the session token.
func (s *Session) Token() (string, error) {
	if s == nil || s.enclave == nil {
		return "", operrors.NewSessionTokenMissingError()
	}
	buf, err := s.enclave.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open session enclave: %w", err)
	}
	defer buf.Destroy()
	return string(buf.Bytes()), nil
}

// Options configures the bw CLI access shared by SessionManager and Client.
type Options struct {
	// Binary is the bw executable. Defaults to DefaultBinary.
	Binary string

	// PasswordEnv names the variable holding the master password. Defaults to DefaultPasswordEnv.
	PasswordEnv string

	// Executor runs the CLI. Defaults to DefaultExecutor().
	Executor CommandExecutor

	Log logr.Logger
}

func (o Options) withDefaults() Options {
	if o.Binary == "" {
		o.Binary = DefaultBinary
	}
	if o.PasswordEnv == "" {
		o.PasswordEnv = DefaultPasswordEnv
	}
	if o.Executor == nil {
		o.Executor = DefaultExecutor()
	}
	if o.Log.GetSink() == nil {
		o.Log = logr.Discard()
	}
	return o
}

// SessionManager obtains vault sessions through API-key login and unlock.
type SessionManager struct {
	opts Options
}

// NewSessionManager creates a SessionManager.
func NewSessionManager(opts Options) *SessionManager {
	return &SessionManager{opts: opts.withDefaults()}
}

// Login logs out any stale CLI state, logs in with the API key from
// BW_CLIENTID/BW_CLIENTSECRET and unlocks the vault with the password in
// the configured environment variable.
func (m *SessionManager) Login(ctx context.Context) (*Session, error) {
	log := logger.WithOperation(m.opts.Log, logger.OpLogin)

	// A leftover login makes `bw login` fail, so the result is ignored.
	if _, _, err := m.opts.Executor.Execute(ctx, m.opts.Binary, "logout"); err != nil {
		log.V(1).Info("logout failed, continuing", logger.KeyError, err.Error())
	}

	stdout, stderr, err := m.opts.Executor.Execute(ctx, m.opts.Binary, "login", "--apikey")
	if err != nil {
		return nil, operrors.NewAuthenticationFailedError("login", stdout, stderr, err)
	}

	stdout, stderr, err = m.opts.Executor.Execute(ctx, m.opts.Binary, "unlock", "--passwordenv", m.opts.PasswordEnv)
	if err != nil {
		return nil, operrors.NewAuthenticationFailedError("unlock", stdout, stderr, err)
	}

	token, err := ParseSessionToken(stdout)
	if err != nil {
		return nil, err
	}
	session, err := NewSession(token)
	if err != nil {
		return nil, err
	}
	log.Info("bitwarden vault unlocked")
	return session, nil
}
