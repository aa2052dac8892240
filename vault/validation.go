package vault

import (
	"strings"

	"hoddor.sh/internal/verrors"
)

var errMissingSyncMetadata = verrors.IoError("missing vault metadata in sync message for new vault")

func validateNotEmpty(value, message string) error {
	if strings.TrimSpace(value) == "" {
		return verrors.IoError(message)
	}
	return nil
}

// ValidateNamespace rejects empty, whitespace-only, or filesystem-unsafe
// namespace names.
func ValidateNamespace(namespace string) error {
	if err := validateNotEmpty(namespace, "namespace cannot be empty or whitespace only"); err != nil {
		return err
	}

	if strings.ContainsAny(namespace, `/\<>:"|?*`) {
		return verrors.IoError("namespace contains invalid characters")
	}
	return nil
}

// ValidatePassphrase rejects empty or whitespace-only passphrases.
func ValidatePassphrase(passphrase string) error {
	return validateNotEmpty(passphrase, "passphrase cannot be empty or whitespace only")
}

// ValidateVaultName allows only ASCII alphanumerics, underscores, and hyphens.
func ValidateVaultName(name string) error {
	if err := validateNotEmpty(name, "vault name cannot be empty or whitespace only"); err != nil {
		return err
	}

	for _, c := range name {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '_' || c == '-':
		default:
			return verrors.IoError("vault name can only contain alphanumeric characters, underscores, and hyphens")
		}
	}
	return nil
}
