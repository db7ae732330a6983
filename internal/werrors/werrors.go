// Package werrors implements the error taxonomy shared by every core
// package: a small set of Kinds the CLI can switch on, plus sentinel
// values and constructor functions for the cases that carry a cause or
// format arguments.
package werrors

import (
	"errors"
	"fmt"
)

// Kind classifies an error the way the CLI needs to react to it.
type Kind string

const (
	KindTargetNotFound Kind = "target_not_found"
	KindAccessDenied   Kind = "access_denied"
	KindKeyNotFound    Kind = "key_not_found"
	KindKeyInvalid     Kind = "key_invalid"
	KindFormatInvalid  Kind = "format_invalid"
	KindIoFailure      Kind = "io_failure"
	KindInternal       Kind = "internal"
)

// Error is an application error tagged with a Kind and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an *Error with the given kind, message and optional cause.
func New(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Newf is New with a formatted message.
func Newf(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf extracts the Kind of err, or KindInternal if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Hint returns a one-line, user-facing suggestion for a given Kind, the
// way the CLI's final error report does (spec.md §7 "user-visible
// behavior"). Kept in English here; a real deployment would localize it.
func Hint(kind Kind) string {
	switch kind {
	case KindTargetNotFound:
		return "no matching process found -> is the app running?"
	case KindAccessDenied:
		return "access denied -> try running elevated"
	case KindKeyNotFound:
		return "key scan completed without a match -> is the right account logged in?"
	case KindKeyInvalid:
		return "supplied key failed verification against this file"
	case KindFormatInvalid:
		return "file is not a recognized encrypted database"
	case KindIoFailure:
		return "local I/O error -> check disk space and permissions"
	default:
		return "unexpected internal error"
	}
}

// Sentinel values for conditions that never carry a dynamic cause.
var (
	ErrTargetNotFound   = New(KindTargetNotFound, "no candidate process found", nil)
	ErrWeChatOffline    = New(KindTargetNotFound, "process found but not logged in", nil)
	ErrKeyNotFound      = New(KindKeyNotFound, "memory scan completed without a validated candidate", nil)
	ErrAlreadyDecrypted = New(KindFormatInvalid, "database file is already decrypted", nil)
	ErrKeyInvalid       = New(KindKeyInvalid, "key failed HMAC verification", nil)
	ErrValidatorNotSet  = New(KindInternal, "validator not configured", nil)
	ErrScanCanceled     = New(KindInternal, "scan canceled", nil)
)

// OpenProcessFailed wraps an OS failure to open a process handle.
func OpenProcessFailed(cause error) *Error {
	return New(KindAccessDenied, "failed to open process", cause)
}

// ReadMemoryFailed wraps an OS failure to read process memory.
func ReadMemoryFailed(cause error) *Error {
	return New(KindAccessDenied, "failed to read process memory", cause)
}

// OpenFileFailed wraps a local file-open failure.
func OpenFileFailed(path string, cause error) *Error {
	return Newf(KindIoFailure, cause, "failed to open %s", path)
}

// ReadFileFailed wraps a local file-read failure.
func ReadFileFailed(path string, cause error) *Error {
	return Newf(KindIoFailure, cause, "failed to read %s", path)
}

// WriteOutputFailed wraps a local file-write failure.
func WriteOutputFailed(cause error) *Error {
	return New(KindIoFailure, "failed to write decryption output", cause)
}

// DecodeKeyFailed wraps a hex-decode failure on a user-supplied key.
func DecodeKeyFailed(cause error) *Error {
	return New(KindInternal, "failed to decode hex key", cause)
}

// PlatformUnsupported reports an (platform, version) combination with no
// registered implementation.
func PlatformUnsupported(platform string, version int) *Error {
	return Newf(KindInternal, nil, "unsupported platform: %s v%d", platform, version)
}

// Internal wraps an invariant violation (closed channel, join failure).
func Internal(message string, cause error) *Error {
	return New(KindInternal, message, cause)
}
