// Package crypto implements the vault's cryptographic primitives: Argon2
// passphrase derivation, X25519 identities in the age string formats, and
// age-format hybrid encryption to one or more recipients.
package crypto

import (
	"bytes"
	"io"
	"strings"

	"filippo.io/age"
	"golang.org/x/crypto/argon2"

	"hoddor.sh/internal/verrors"
)

// Argon2id parameters matching the upstream library defaults.
const (
	argonTime    = 2
	argonMemory  = 19456 // KiB
	argonThreads = 1
)

const seedLen = 32

// DeriveSeed derives a 32-byte seed from a passphrase and salt using Argon2id.
// The passphrase must not be empty or whitespace-only.
func DeriveSeed(passphrase string, salt []byte) ([]byte, error) {
	if strings.TrimSpace(passphrase) == "" {
		return nil, verrors.NewCryptoError(verrors.KindKeyDerivation,
			"passphrase cannot be empty or whitespace-only", nil)
	}

	seed := argon2.IDKey([]byte(passphrase), salt, argonTime, argonMemory, argonThreads, seedLen)
	return seed, nil
}

// IdentityFromSeed builds the age secret-key string for the X25519 secret
// scalar given by seed. Deterministic; rejects the all-zero scalar.
func IdentityFromSeed(seed []byte) (string, error) {
	if len(seed) != seedLen {
		return "", verrors.NewCryptoError(verrors.KindInvalidIdentity,
			"seed must be 32 bytes", nil)
	}

	allZero := true
	for _, b := range seed {
		if b != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		return "", verrors.NewCryptoError(verrors.KindInvalidIdentity,
			"invalid secret key (all zeros)", nil)
	}

	encoded, err := bech32Encode("age-secret-key-", seed)
	if err != nil {
		return "", verrors.NewCryptoError(verrors.KindInvalidIdentity,
			"failed to encode identity", err)
	}

	identity, err := age.ParseX25519Identity(strings.ToUpper(encoded))
	if err != nil {
		return "", verrors.NewCryptoError(verrors.KindInvalidIdentity,
			"failed to parse identity", err)
	}

	return identity.String(), nil
}

// GenerateIdentity creates a fresh random X25519 identity string.
func GenerateIdentity() (string, error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return "", verrors.NewCryptoError(verrors.KindInvalidIdentity,
			"failed to generate identity", err)
	}
	return identity.String(), nil
}

// IdentityToPublic derives the age recipient string from an identity string.
func IdentityToPublic(identityStr string) (string, error) {
	identity, err := age.ParseX25519Identity(identityStr)
	if err != nil {
		return "", verrors.NewCryptoError(verrors.KindInvalidIdentity,
			"failed to parse identity", err)
	}
	return identity.Recipient().String(), nil
}

// ParseRecipient validates a recipient public-key string and returns its
// canonical form.
func ParseRecipient(recipientStr string) (string, error) {
	recipient, err := age.ParseX25519Recipient(recipientStr)
	if err != nil {
		return "", verrors.NewCryptoError(verrors.KindInvalidRecipient,
			"failed to parse recipient", err)
	}
	return recipient.String(), nil
}

// Encrypt encrypts data in the age format for every recipient in the list.
// The resulting ciphertext is decryptable by any matching identity.
func Encrypt(data []byte, recipients []string) ([]byte, error) {
	if len(recipients) == 0 {
		return nil, verrors.NewCryptoError(verrors.KindEncryption,
			"no recipients provided", nil)
	}

	parsed := make([]age.Recipient, 0, len(recipients))
	for _, r := range recipients {
		recipient, err := age.ParseX25519Recipient(r)
		if err != nil {
			return nil, verrors.NewCryptoError(verrors.KindInvalidRecipient,
				"failed to parse recipient", err)
		}
		parsed = append(parsed, recipient)
	}

	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, parsed...)
	if err != nil {
		return nil, verrors.NewCryptoError(verrors.KindEncryption,
			"failed to create encryptor", err)
	}

	if _, err := w.Write(data); err != nil {
		return nil, verrors.NewCryptoError(verrors.KindEncryption,
			"failed to write plaintext", err)
	}
	if err := w.Close(); err != nil {
		return nil, verrors.NewCryptoError(verrors.KindEncryption,
			"failed to finalize ciphertext", err)
	}

	return buf.Bytes(), nil
}

// Decrypt decrypts an age-format ciphertext with the given identity string.
func Decrypt(encrypted []byte, identityStr string) ([]byte, error) {
	identity, err := age.ParseX25519Identity(identityStr)
	if err != nil {
		return nil, verrors.NewCryptoError(verrors.KindInvalidIdentity,
			"failed to parse identity", err)
	}

	r, err := age.Decrypt(bytes.NewReader(encrypted), identity)
	if err != nil {
		return nil, verrors.NewCryptoError(verrors.KindDecryption,
			"failed to decrypt", err)
	}

	plaintext, err := io.ReadAll(r)
	if err != nil {
		return nil, verrors.NewCryptoError(verrors.KindDecryption,
			"failed to read plaintext", err)
	}

	return plaintext, nil
}
