// Package vaulterr defines the closed set of error codes produced by the
// vault core and the single error shape every operation returns.
package vaulterr

import (
	"errors"
	"fmt"
)

// Code identifies why a vault operation failed.
type Code string

const (
	KeyGenerationFailed  Code = "KEY_GENERATION_FAILED"
	InvalidKeyLength     Code = "INVALID_KEY_LENGTH"
	EncryptionFailed     Code = "ENCRYPTION_FAILED"
	DecryptionFailed     Code = "DECRYPTION_FAILED"
	TamperedData         Code = "TAMPERED_DATA"
	VaultNotFound        Code = "VAULT_NOT_FOUND"
	InvalidVaultFile     Code = "INVALID_VAULT_FILE"
	VaultReadFailed      Code = "VAULT_READ_FAILED"
	VaultWriteFailed     Code = "VAULT_WRITE_FAILED"
	CredentialNotFound   Code = "CREDENTIAL_NOT_FOUND"
	KeychainAccessDenied Code = "KEYCHAIN_ACCESS_DENIED"

	// MasterKeyNotFound is consumed by the master-key lifecycle and never
	// leaves the orchestrator.
	MasterKeyNotFound Code = "MASTER_KEY_NOT_FOUND"
)

// Error is the only error type returned by the vault core.
type Error struct {
	Code    Code
	Message string
	Err     error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying cause, if any
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error with the given code and message
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Newf creates an Error with a formatted message
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying cause
func Wrap(code Code, err error, msg string) *Error {
	return &Error{Code: code, Message: msg, Err: err}
}

// CodeOf returns the code of the first *Error in err's chain.
// The second result is false when err carries no code.
func CodeOf(err error) (Code, bool) {
	var vErr *Error
	if errors.As(err, &vErr) {
		return vErr.Code, true
	}
	return "", false
}

// HasCode reports whether err carries the given code
func HasCode(err error, code Code) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}

// As normalizes err into an *Error. Errors that already carry a code are
// returned unchanged; anything else is wrapped with the fallback code.
func As(err error, fallback Code) *Error {
	if err == nil {
		return nil
	}
	var vErr *Error
	if errors.As(err, &vErr) {
		return vErr
	}
	return Wrap(fallback, err, string(fallback))
}
