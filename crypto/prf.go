package crypto

import (
	"crypto/sha256"

	"golang.org/x/crypto/hkdf"

	"hoddor.sh/internal/verrors"
)

// prfSalt binds the derived key to this application.
const prfSalt = "hoddor/vault"

// DeriveFromPRF mixes the two PRF values an authenticator returns into a
// 32-byte seed: SHA-256 over the concatenation, then HKDF-SHA256 extract with
// a fixed salt. The returned PRK feeds IdentityFromSeed.
func DeriveFromPRF(first, second []byte) ([]byte, error) {
	if len(first) == 0 {
		return nil, verrors.NewCryptoError(verrors.KindInvalidPrfOutput,
			"missing first PRF value", nil)
	}
	if len(second) == 0 {
		return nil, verrors.NewCryptoError(verrors.KindInvalidPrfOutput,
			"missing second PRF value", nil)
	}

	prf := make([]byte, 0, len(first)+len(second))
	prf = append(prf, first...)
	prf = append(prf, second...)

	mixed := sha256.Sum256(prf)
	prk := hkdf.Extract(sha256.New, mixed[:], []byte(prfSalt))

	return prk, nil
}

// IdentityFromPRF derives an identity string straight from authenticator PRF
// outputs, rejecting a degenerate all-zero seed.
func IdentityFromPRF(first, second []byte) (string, error) {
	seed, err := DeriveFromPRF(first, second)
	if err != nil {
		return "", err
	}

	allZero := true
	for _, b := range seed {
		if b != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		return "", verrors.NewCryptoError(verrors.KindInvalidPrfOutput,
			"invalid PRF seed (all zeros)", nil)
	}

	identity, err := IdentityFromSeed(seed)
	if err != nil {
		return "", verrors.NewCryptoError(verrors.KindInvalidIdentity,
			"failed to derive identity from PRF seed", err)
	}
	return identity, nil
}

// PRFAvailable reports whether the PRF mixing path is usable. The HKDF
// derivation itself always is; the authenticator transport is the caller's
// concern.
func PRFAvailable() bool {
	return true
}
