package verrors

import (
	"errors"
	"fmt"
)

// Kind classifies vault engine errors.
type Kind string

const (
	KindIO                     Kind = "IO_ERROR"
	KindNamespaceNotFound      Kind = "NAMESPACE_NOT_FOUND"
	KindNamespaceAlreadyExists Kind = "NAMESPACE_ALREADY_EXISTS"
	KindVaultAlreadyExists     Kind = "VAULT_ALREADY_EXISTS"
	KindVaultNotFound          Kind = "VAULT_NOT_FOUND"
	KindInvalidPassword        Kind = "INVALID_PASSWORD"
	KindDataExpired            Kind = "DATA_EXPIRED"
	KindSerialization          Kind = "SERIALIZATION_ERROR"
)

// VaultError is the standard error type for the vault engine. Callers match
// on Kind via errors.Is against the sentinel values below; the message, when
// present, is short and safe to display.
type VaultError struct {
	Kind    Kind
	Message string
}

func (e *VaultError) Error() string {
	switch e.Kind {
	case KindIO:
		return fmt.Sprintf("IO error: %s", e.Message)
	case KindSerialization:
		return fmt.Sprintf("serialization error: %s", e.Message)
	case KindNamespaceNotFound:
		return "namespace not found"
	case KindNamespaceAlreadyExists:
		return "namespace already exists"
	case KindVaultAlreadyExists:
		return "vault already exists"
	case KindVaultNotFound:
		return "vault not found"
	case KindInvalidPassword:
		return "invalid password"
	case KindDataExpired:
		return "data has expired"
	default:
		return e.Message
	}
}

// Is reports kind equality so errors.Is(err, ErrNamespaceNotFound) works
// regardless of the message carried.
func (e *VaultError) Is(target error) bool {
	t, ok := target.(*VaultError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinels for errors.Is matching.
var (
	ErrNamespaceNotFound      = &VaultError{Kind: KindNamespaceNotFound}
	ErrNamespaceAlreadyExists = &VaultError{Kind: KindNamespaceAlreadyExists}
	ErrVaultAlreadyExists     = &VaultError{Kind: KindVaultAlreadyExists}
	ErrVaultNotFound          = &VaultError{Kind: KindVaultNotFound}
	ErrInvalidPassword        = &VaultError{Kind: KindInvalidPassword}
	ErrDataExpired            = &VaultError{Kind: KindDataExpired}
)

// IoError returns an IO-kind error with a short static message. Messages from
// lower layers are never concatenated in; equality checks stay stable.
func IoError(message string) *VaultError {
	return &VaultError{Kind: KindIO, Message: message}
}

// SerializationError returns a serialization-kind error.
func SerializationError(message string) *VaultError {
	return &VaultError{Kind: KindSerialization, Message: message}
}

// GetKind extracts the kind from an error chain, or "" for foreign errors.
func GetKind(err error) Kind {
	var ve *VaultError
	if errors.As(err, &ve) {
		return ve.Kind
	}
	return ""
}
