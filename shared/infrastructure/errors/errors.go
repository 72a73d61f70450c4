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

// Package errors provides domain-specific error types for the operator.
// These errors separate the failure modes of the synchronization pipeline so
// callers can log them with a stable reason and decide whether the process
// can continue.
package errors

import (
	"errors"
	"fmt"
)

// Reasons returned by Classify. They double as Event reasons.
const (
	ReasonAuthenticationFailed    = "AuthenticationFailed"
	ReasonSessionTokenMissing     = "SessionTokenMissing"
	ReasonVaultCallFailed         = "VaultCallFailed"
	ReasonItemNotFound            = "ItemNotFound"
	ReasonSecretShapeUnresolvable = "SecretShapeUnresolvable"
	ReasonMissingObjectKey        = "MissingObjectKey"
	ReasonClusterWriteFailed      = "ClusterWriteFailed"
	ReasonValidation              = "ValidationFailed"
	ReasonLeadershipLost          = "LeadershipLost"
	ReasonUnknown                 = "Unknown"
)

// ErrLeadershipLost is returned once another replica owns the lease.
// It is terminal for the process.
var ErrLeadershipLost = errors.New("leadership lost")

// AuthenticationFailedError indicates that `bw login` or `bw unlock` exited
// non-zero. Stdout and Stderr carry the CLI output for diagnosis.
type AuthenticationFailedError struct {
	Step   string // "login" or "unlock"
	Stdout string
	Stderr string
	Cause  error
}

func (e *AuthenticationFailedError) Error() string {
	msg := fmt.Sprintf("bitwarden authentication failed at %s", e.Step)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(" (%v)", e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause for errors.As/Is support.
func (e *AuthenticationFailedError) Unwrap() error {
	return e.Cause
}

// NewAuthenticationFailedError creates an AuthenticationFailedError.
func NewAuthenticationFailedError(step string, stdout, stderr []byte, cause error) *AuthenticationFailedError {
	return &AuthenticationFailedError{
		Step:   step,
		Stdout: string(stdout),
		Stderr: string(stderr),
		Cause:  cause,
	}
}

// IsAuthenticationFailedError returns true if the error is an AuthenticationFailedError.
func IsAuthenticationFailedError(err error) bool {
	var authErr *AuthenticationFailedError
	return errors.As(err, &authErr)
}

// SessionTokenMissingError indicates that `bw unlock` succeeded but its output
// did not contain an `export BW_SESSION="..."` line.
type SessionTokenMissingError struct{}

func (e *SessionTokenMissingError) Error() string {
	return "session token not found in unlock output"
}

// NewSessionTokenMissingError creates a SessionTokenMissingError.
func NewSessionTokenMissingError() *SessionTokenMissingError {
	return &SessionTokenMissingError{}
}

// IsSessionTokenMissingError returns true if the error is a SessionTokenMissingError.
func IsSessionTokenMissingError(err error) bool {
	var missingErr *SessionTokenMissingError
	return errors.As(err, &missingErr)
}

// VaultCallFailedError indicates a failed sync, folder lookup or item listing.
// The cause is either the process exit error or a decode error.
type VaultCallFailedError struct {
	Step   string // "sync", "get folder", "list items"
	Stdout string
	Stderr string
	Cause  error
}

func (e *VaultCallFailedError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("bitwarden %s failed: %v: %s", e.Step, e.Cause, e.Stderr)
	}
	return fmt.Sprintf("bitwarden %s failed: %v", e.Step, e.Cause)
}

// Unwrap returns the underlying cause for errors.As/Is support.
func (e *VaultCallFailedError) Unwrap() error {
	return e.Cause
}

// NewVaultCallFailedError creates a VaultCallFailedError.
func NewVaultCallFailedError(step string, stdout, stderr []byte, cause error) *VaultCallFailedError {
	return &VaultCallFailedError{
		Step:   step,
		Stdout: string(stdout),
		Stderr: string(stderr),
		Cause:  cause,
	}
}

// IsVaultCallFailedError returns true if the error is a VaultCallFailedError.
func IsVaultCallFailedError(err error) bool {
	var callErr *VaultCallFailedError
	return errors.As(err, &callErr)
}

// ItemNotFoundError indicates that the cached folder has no item with the
// requested name. The item may appear after the next cache refresh.
type ItemNotFoundError struct {
	Name string
}

func (e *ItemNotFoundError) Error() string {
	return fmt.Sprintf("item %q not found in bitwarden folder", e.Name)
}

// NewItemNotFoundError creates an ItemNotFoundError.
func NewItemNotFoundError(name string) *ItemNotFoundError {
	return &ItemNotFoundError{Name: name}
}

// IsItemNotFoundError returns true if the error is an ItemNotFoundError.
func IsItemNotFoundError(err error) bool {
	var notFoundErr *ItemNotFoundError
	return errors.As(err, &notFoundErr)
}

// SecretShapeUnresolvableError indicates an item with neither login nor notes.
type SecretShapeUnresolvableError struct {
	Name string
}

func (e *SecretShapeUnresolvableError) Error() string {
	return fmt.Sprintf("item %q has neither login nor notes", e.Name)
}

// NewSecretShapeUnresolvableError creates a SecretShapeUnresolvableError.
func NewSecretShapeUnresolvableError(name string) *SecretShapeUnresolvableError {
	return &SecretShapeUnresolvableError{Name: name}
}

// IsSecretShapeUnresolvableError returns true if the error is a SecretShapeUnresolvableError.
func IsSecretShapeUnresolvableError(err error) bool {
	var shapeErr *SecretShapeUnresolvableError
	return errors.As(err, &shapeErr)
}

// MissingObjectKeyError indicates the desired resource lacks a namespace or name.
type MissingObjectKeyError struct {
	Field string // "namespace" or "name"
}

func (e *MissingObjectKeyError) Error() string {
	return fmt.Sprintf("resource is missing %s", e.Field)
}

// NewMissingObjectKeyError creates a MissingObjectKeyError.
func NewMissingObjectKeyError(field string) *MissingObjectKeyError {
	return &MissingObjectKeyError{Field: field}
}

// IsMissingObjectKeyError returns true if the error is a MissingObjectKeyError.
func IsMissingObjectKeyError(err error) bool {
	var keyErr *MissingObjectKeyError
	return errors.As(err, &keyErr)
}

// ClusterWriteFailedError indicates the API server rejected the Secret apply.
type ClusterWriteFailedError struct {
	Namespace string
	Name      string
	Cause     error
}

func (e *ClusterWriteFailedError) Error() string {
	return fmt.Sprintf("failed to apply secret %s/%s: %v", e.Namespace, e.Name, e.Cause)
}

// Unwrap returns the underlying cause for errors.As/Is support.
func (e *ClusterWriteFailedError) Unwrap() error {
	return e.Cause
}

// NewClusterWriteFailedError creates a ClusterWriteFailedError.
func NewClusterWriteFailedError(namespace, name string, cause error) *ClusterWriteFailedError {
	return &ClusterWriteFailedError{
		Namespace: namespace,
		Name:      name,
		Cause:     cause,
	}
}

// IsClusterWriteFailedError returns true if the error is a ClusterWriteFailedError.
func IsClusterWriteFailedError(err error) bool {
	var writeErr *ClusterWriteFailedError
	return errors.As(err, &writeErr)
}

// ValidationError indicates invalid configuration or input.
// This is a permanent error - retrying won't help without user correction.
type ValidationError struct {
	Field   string // The field that failed validation
	Value   string // The invalid value
	Message string // Why validation failed
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error on %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// NewValidationError creates a ValidationError.
func NewValidationError(field, value, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// IsValidationError returns true if the error is a ValidationError.
func IsValidationError(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}

// Classify maps an error to a stable reason string for logs and Events.
func Classify(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrLeadershipLost):
		return ReasonLeadershipLost
	case IsAuthenticationFailedError(err):
		return ReasonAuthenticationFailed
	case IsSessionTokenMissingError(err):
		return ReasonSessionTokenMissing
	case IsVaultCallFailedError(err):
		return ReasonVaultCallFailed
	case IsItemNotFoundError(err):
		return ReasonItemNotFound
	case IsSecretShapeUnresolvableError(err):
		return ReasonSecretShapeUnresolvable
	case IsMissingObjectKeyError(err):
		return ReasonMissingObjectKey
	case IsClusterWriteFailedError(err):
		return ReasonClusterWriteFailed
	case IsValidationError(err):
		return ReasonValidation
	default:
		return ReasonUnknown
	}
}
