// Package vault implements the encrypted vault engine: the on-disk vault
// aggregate, passphrase-derived identities, per-namespace encryption, and
// TTL-based expiration.
package vault

// Expiration marks the wall-clock second from which on a namespace is dead.
type Expiration struct {
	ExpiresAt int64 `json:"expires_at"`
}

// NamespaceData is the stored form of one namespace: an age ciphertext plus
// an optional expiration.
type NamespaceData struct {
	Data       []byte      `json:"data"`
	Expiration *Expiration `json:"expiration"`
}

// VaultMetadata carries future-use identifiers. PeerID is never derived from
// secret material.
type VaultMetadata struct {
	PeerID *string `json:"peer_id"`
}

// IdentitySalts maps age public keys to the 32-byte salts their identities
// were derived with, plus the authenticator credential ids bound to them.
type IdentitySalts struct {
	Salts         map[string][]byte `json:"salts"`
	CredentialIDs map[string][]byte `json:"credential_ids"`
}

// NewIdentitySalts returns empty, non-nil maps.
func NewIdentitySalts() IdentitySalts {
	return IdentitySalts{
		Salts:         make(map[string][]byte),
		CredentialIDs: make(map[string][]byte),
	}
}

// GetSalt returns the salt stored for a public key, if any.
func (s *IdentitySalts) GetSalt(publicKey string) ([]byte, bool) {
	salt, ok := s.Salts[publicKey]
	return salt, ok
}

// SetSalt records the salt for a public key.
func (s *IdentitySalts) SetSalt(publicKey string, salt []byte) {
	if s.Salts == nil {
		s.Salts = make(map[string][]byte)
	}
	s.Salts[publicKey] = salt
}

// GetCredentialID returns the authenticator credential id bound to a public
// key, if any.
func (s *IdentitySalts) GetCredentialID(publicKey string) ([]byte, bool) {
	id, ok := s.CredentialIDs[publicKey]
	return id, ok
}

// SetCredentialID binds an authenticator credential id to a public key.
func (s *IdentitySalts) SetCredentialID(publicKey string, credentialID []byte) {
	if s.CredentialIDs == nil {
		s.CredentialIDs = make(map[string][]byte)
	}
	s.CredentialIDs[publicKey] = credentialID
}

// Vault is the top-level aggregate for one logical user.
type Vault struct {
	Metadata      VaultMetadata            `json:"metadata"`
	IdentitySalts IdentitySalts            `json:"identity_salts"`
	UsernamePK    map[string]string        `json:"username_pk"`
	Namespaces    map[string]NamespaceData `json:"namespaces"`
	SyncEnabled   bool                     `json:"sync_enabled"`
}

// NewVault returns an empty vault.
func NewVault() *Vault {
	return &Vault{
		Metadata:      VaultMetadata{},
		IdentitySalts: NewIdentitySalts(),
		UsernamePK:    make(map[string]string),
		Namespaces:    make(map[string]NamespaceData),
		SyncEnabled:   false,
	}
}

// NewVaultFromSync builds a vault seeded by a sync peer. Metadata is
// mandatory; the rest defaults to empty. The result has sync enabled.
func NewVaultFromSync(metadata *VaultMetadata, salts *IdentitySalts, usernamePK map[string]string) (*Vault, error) {
	if metadata == nil {
		return nil, errMissingSyncMetadata
	}

	v := NewVault()
	v.Metadata = *metadata
	if salts != nil {
		v.IdentitySalts = *salts
	}
	if usernamePK != nil {
		v.UsernamePK = usernamePK
	}
	v.SyncEnabled = true
	return v, nil
}

// cloneWithoutNamespaces copies the vault shell for the metadata file write.
func (v *Vault) cloneWithoutNamespaces() *Vault {
	clone := *v
	clone.Namespaces = make(map[string]NamespaceData)
	return &clone
}

// IdentityKeys pairs the age public and secret key strings of one identity.
// The private key lives only in caller memory for the duration of a request.
type IdentityKeys struct {
	PublicKey  string
	PrivateKey string
}
