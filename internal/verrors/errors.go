// Package verrors defines the error taxonomy shared by every component of
// the filevault core. Each family wraps an underlying cause with a Kind so
// callers at a component boundary can switch on Kind without parsing error
// text. UserMessage maps any error to a short user-facing message; the
// filevaultctl client does not call it and prints errors as returned.
package verrors

import (
	"errors"
	"fmt"
)

// CryptoKind enumerates the failure modes primitives (C1-C4) can report.
type CryptoKind int

const (
	CryptoInvalidInput CryptoKind = iota
	CryptoKdfFailed
	CryptoSignFailed
	CryptoVerifyFailed
	CryptoRandFailed
)

func (k CryptoKind) String() string {
	switch k {
	case CryptoInvalidInput:
		return "InvalidInput"
	case CryptoKdfFailed:
		return "KdfFailed"
	case CryptoSignFailed:
		return "SignFailed"
	case CryptoVerifyFailed:
		return "VerifyFailed"
	case CryptoRandFailed:
		return "RandFailed"
	default:
		return "Unknown"
	}
}

// CryptoError wraps a cryptographic failure with its kind and the operation
// that raised it.
type CryptoError struct {
	Kind CryptoKind
	Op   string
	Err  error
}

func (e *CryptoError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("crypto(%s) %s: %v", e.Kind, e.Op, e.Err)
	}
	return fmt.Sprintf("crypto(%s) %s", e.Kind, e.Op)
}

func (e *CryptoError) Unwrap() error { return e.Err }

// NewCryptoError creates a CryptoError.
func NewCryptoError(kind CryptoKind, op string, err error) *CryptoError {
	return &CryptoError{Kind: kind, Op: op, Err: err}
}

// StorageKind enumerates ClientStore/server storage failure modes.
type StorageKind int

const (
	StorageNotFound StorageKind = iota
	StorageCorrupt
	StorageIOFailed
	StoragePermissionDenied
)

func (k StorageKind) String() string {
	switch k {
	case StorageNotFound:
		return "NotFound"
	case StorageCorrupt:
		return "Corrupt"
	case StorageIOFailed:
		return "IOFailed"
	case StoragePermissionDenied:
		return "PermissionDenied"
	default:
		return "Unknown"
	}
}

// StorageError wraps a ClientStore or server storage failure.
type StorageError struct {
	Kind StorageKind
	Op   string
	Err  error
}

func (e *StorageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("storage(%s) %s: %v", e.Kind, e.Op, e.Err)
	}
	return fmt.Sprintf("storage(%s) %s", e.Kind, e.Op)
}

func (e *StorageError) Unwrap() error { return e.Err }

// NewStorageError creates a StorageError.
func NewStorageError(kind StorageKind, op string, err error) *StorageError {
	return &StorageError{Kind: kind, Op: op, Err: err}
}

// AuthKind enumerates AuthProtocol (C8) verification failure modes.
type AuthKind int

const (
	AuthMissing AuthKind = iota
	AuthExpired
	AuthMalformed
	AuthSignatureInvalid
	AuthUserUnknown
)

func (k AuthKind) String() string {
	switch k {
	case AuthMissing:
		return "Missing"
	case AuthExpired:
		return "Expired"
	case AuthMalformed:
		return "Malformed"
	case AuthSignatureInvalid:
		return "SignatureInvalid"
	case AuthUserUnknown:
		return "UserUnknown"
	default:
		return "Unknown"
	}
}

// AuthError wraps an AuthProtocol verification failure.
type AuthError struct {
	Kind AuthKind
	Err  error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth(%s): %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("auth(%s)", e.Kind)
}

func (e *AuthError) Unwrap() error { return e.Err }

// NewAuthError creates an AuthError.
func NewAuthError(kind AuthKind, err error) *AuthError {
	return &AuthError{Kind: kind, Err: err}
}

// ShareKind enumerates ShareCrypto (C7) failure modes.
type ShareKind int

const (
	ShareInvalidRecipient ShareKind = iota
	ShareSelfShareForbidden
	ShareAlreadyShared
	ShareNotShared
)

func (k ShareKind) String() string {
	switch k {
	case ShareInvalidRecipient:
		return "InvalidRecipient"
	case ShareSelfShareForbidden:
		return "SelfShareForbidden"
	case ShareAlreadyShared:
		return "AlreadyShared"
	case ShareNotShared:
		return "NotShared"
	default:
		return "Unknown"
	}
}

// ShareError wraps a ShareCrypto failure.
type ShareError struct {
	Kind ShareKind
	Err  error
}

func (e *ShareError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("share(%s): %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("share(%s)", e.Kind)
}

func (e *ShareError) Unwrap() error { return e.Err }

// NewShareError creates a ShareError.
func NewShareError(kind ShareKind, err error) *ShareError {
	return &ShareError{Kind: kind, Err: err}
}

// ProtocolKind enumerates server-side protocol failure modes that map onto
// HTTP status codes at the fsserver boundary.
type ProtocolKind int

const (
	ProtocolDuplicateUsername ProtocolKind = iota
	ProtocolFileNotFound
	ProtocolUnauthorized
	ProtocolInternalServerError
)

func (k ProtocolKind) String() string {
	switch k {
	case ProtocolDuplicateUsername:
		return "DuplicateUsername"
	case ProtocolFileNotFound:
		return "FileNotFound"
	case ProtocolUnauthorized:
		return "Unauthorized"
	case ProtocolInternalServerError:
		return "InternalServerError"
	default:
		return "Unknown"
	}
}

// ProtocolError wraps a server-side request-handling failure.
type ProtocolError struct {
	Kind ProtocolKind
	Err  error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("protocol(%s): %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("protocol(%s)", e.Kind)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// NewProtocolError creates a ProtocolError.
func NewProtocolError(kind ProtocolKind, err error) *ProtocolError {
	return &ProtocolError{Kind: kind, Err: err}
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool { return errors.Is(err, target) }

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool { return errors.As(err, target) }

// UserMessage collapses any error from the core into one of the five
// strings the client is allowed to show a human (spec §7). Unknown errors
// default to the most conservative message.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var authErr *AuthError
	if errors.As(err, &authErr) {
		switch authErr.Kind {
		case AuthSignatureInvalid:
			return "Wrong password"
		default:
			return "Authentication rejected by server"
		}
	}
	var storageErr *StorageError
	if errors.As(err, &storageErr) {
		switch storageErr.Kind {
		case StorageNotFound:
			return "File not found"
		default:
			return "Corrupt local data"
		}
	}
	var protoErr *ProtocolError
	if errors.As(err, &protoErr) {
		if protoErr.Kind == ProtocolFileNotFound {
			return "File not found"
		}
		return "Authentication rejected by server"
	}
	var shareErr *ShareError
	if errors.As(err, &shareErr) {
		return "Authentication rejected by server"
	}
	return "Network error"
}
