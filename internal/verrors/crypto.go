package verrors

import (
	"errors"
	"fmt"
)

// CryptoKind classifies failures of the cryptographic primitives.
type CryptoKind string

const (
	KindKeyDerivation    CryptoKind = "KEY_DERIVATION"
	KindEncryption       CryptoKind = "ENCRYPTION"
	KindDecryption       CryptoKind = "DECRYPTION"
	KindInvalidIdentity  CryptoKind = "INVALID_IDENTITY"
	KindInvalidRecipient CryptoKind = "INVALID_RECIPIENT"
	KindInvalidPrfOutput CryptoKind = "INVALID_PRF_OUTPUT"
)

// CryptoError carries the failure kind and a short description. The wrapped
// cause is kept for logging but is never shown to end users; the vault read
// path collapses every decryption failure to ErrInvalidPassword before it
// reaches a caller.
type CryptoError struct {
	Kind    CryptoKind
	Message string
	Cause   error
}

func (e *CryptoError) Error() string {
	var prefix string
	switch e.Kind {
	case KindKeyDerivation:
		prefix = "key derivation failed"
	case KindEncryption:
		prefix = "encryption failed"
	case KindDecryption:
		prefix = "decryption failed"
	case KindInvalidIdentity:
		prefix = "invalid identity"
	case KindInvalidRecipient:
		prefix = "invalid recipient"
	case KindInvalidPrfOutput:
		prefix = "invalid PRF output"
	default:
		prefix = "crypto error"
	}
	if e.Message == "" {
		return prefix
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

func (e *CryptoError) Unwrap() error {
	return e.Cause
}

func (e *CryptoError) Is(target error) bool {
	t, ok := target.(*CryptoError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// NewCryptoError builds a CryptoError; cause may be nil.
func NewCryptoError(kind CryptoKind, message string, cause error) *CryptoError {
	return &CryptoError{Kind: kind, Message: message, Cause: cause}
}

// GetCryptoKind extracts the crypto kind from an error chain.
func GetCryptoKind(err error) CryptoKind {
	var ce *CryptoError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}
