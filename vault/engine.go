package vault

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"hoddor.sh/crypto"
	"hoddor.sh/internal/locks"
	"hoddor.sh/internal/notify"
	"hoddor.sh/internal/observability"
	"hoddor.sh/internal/persistence"
	"hoddor.sh/internal/storage"
	"hoddor.sh/internal/verrors"
)

const (
	metadataFilename         = "metadata.json"
	namespaceExtension       = ".hoddor"
	legacyNamespaceExtension = ".ns"
)

// namespaceFilename returns the on-disk filename for a namespace. New files
// always use the current extension; the legacy one is accepted on read only.
func namespaceFilename(namespace string) string {
	return namespace + namespaceExtension
}

// Engine is the vault engine. It owns no state of its own: every operation is
// a read-modify-write against the storage collaborator, serialised per vault
// through the lock manager.
type Engine struct {
	storage  storage.Storage
	locks    *locks.Manager
	notifier notify.Notifier
	persist  persistence.Persistence
	clock    Clock
	logger   *observability.Logger
}

// EngineOptions carries the engine's collaborators. Nil fields get the
// local defaults.
type EngineOptions struct {
	Storage     storage.Storage
	Locks       *locks.Manager
	Notifier    notify.Notifier
	Persistence persistence.Persistence
	Clock       Clock
	Logger      *observability.Logger
}

// NewEngine creates a vault engine. Storage is mandatory.
func NewEngine(opts EngineOptions) *Engine {
	e := &Engine{
		storage:  opts.Storage,
		locks:    opts.Locks,
		notifier: opts.Notifier,
		persist:  opts.Persistence,
		clock:    opts.Clock,
		logger:   opts.Logger,
	}
	if e.locks == nil {
		e.locks = locks.NewManager()
	}
	if e.notifier == nil {
		e.notifier = notify.NoopNotifier{}
	}
	if e.persist == nil {
		e.persist = persistence.AlwaysPersisted{}
	}
	if e.clock == nil {
		e.clock = SystemClock{}
	}
	if e.logger == nil {
		e.logger = observability.GetLogger()
	}
	return e
}

// readVault loads a vault from storage. The namespace map is rebuilt from the
// per-namespace files; whatever the metadata file carried is discarded.
func (e *Engine) readVault(vaultName string) (*Vault, error) {
	metadataText, err := e.storage.ReadFile(vaultName + "/" + metadataFilename)
	if err != nil {
		return nil, err
	}

	var v Vault
	if err := json.Unmarshal([]byte(metadataText), &v); err != nil {
		return nil, verrors.SerializationError("failed to deserialize vault metadata")
	}
	v.Namespaces = make(map[string]NamespaceData)
	if v.UsernamePK == nil {
		v.UsernamePK = make(map[string]string)
	}

	entries, err := e.storage.ListEntries(vaultName)
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		var namespace string
		switch {
		case strings.HasSuffix(entry, namespaceExtension):
			namespace = strings.TrimSuffix(entry, namespaceExtension)
		case strings.HasSuffix(entry, legacyNamespaceExtension):
			namespace = strings.TrimSuffix(entry, legacyNamespaceExtension)
		default:
			continue
		}

		namespaceText, err := e.storage.ReadFile(vaultName + "/" + entry)
		if err != nil {
			return nil, err
		}

		var data NamespaceData
		if err := json.Unmarshal([]byte(namespaceText), &data); err != nil {
			return nil, verrors.SerializationError("failed to deserialize namespace data")
		}

		v.Namespaces[namespace] = data
	}

	return &v, nil
}

// saveVault persists the vault: metadata first (with the namespace map
// emptied), then one file per namespace, then a best-effort notification with
// the full serialized vault.
func (e *Engine) saveVault(vaultName string, v *Vault) error {
	if !e.persist.HasRequested() {
		persisted, err := e.persist.Check()
		if err != nil || !persisted {
			if granted, err := e.persist.Request(); err != nil {
				e.logger.Warn("persistence request failed", zap.Error(err))
			} else {
				e.logger.Debug("persistence request granted", zap.Bool("granted", granted))
			}
		}
	}

	if err := e.storage.CreateDirectory(vaultName); err != nil {
		return err
	}

	metadataJSON, err := json.Marshal(v.cloneWithoutNamespaces())
	if err != nil {
		return verrors.SerializationError("failed to serialize vault metadata")
	}
	if err := e.storage.WriteFile(vaultName+"/"+metadataFilename, string(metadataJSON)); err != nil {
		return err
	}

	for namespace, data := range v.Namespaces {
		namespaceJSON, err := json.Marshal(data)
		if err != nil {
			return verrors.SerializationError("failed to serialize namespace data")
		}
		if err := e.storage.WriteFile(vaultName+"/"+namespaceFilename(namespace), string(namespaceJSON)); err != nil {
			return err
		}
	}

	vaultBytes, err := json.Marshal(v)
	if err != nil {
		return verrors.SerializationError("failed to serialize vault for notification")
	}
	if err := e.notifier.NotifyVaultUpdate(vaultName, vaultBytes); err != nil {
		e.logger.WithVault(vaultName).Warn("vault update notification failed", zap.Error(err))
	}

	return nil
}

// CreateVault persists a fresh empty vault under the given name.
func (e *Engine) CreateVault(ctx context.Context, name string) error {
	if err := ValidateVaultName(name); err != nil {
		return err
	}

	guard, err := e.locks.Acquire(ctx, name)
	if err != nil {
		return err
	}
	defer guard.Release()

	exists, err := e.storage.DirectoryExists(name)
	if err != nil {
		return err
	}
	if exists {
		return verrors.ErrVaultAlreadyExists
	}

	return e.saveVault(name, NewVault())
}

// DeriveVaultIdentity turns a passphrase into the identity it denotes within
// a vault. Every stored salt is tried; the first whose derived public key
// matches its entry wins. When none match, a fresh random salt is drawn, the
// new identity is recorded, and the vault re-saved.
func (e *Engine) DeriveVaultIdentity(ctx context.Context, passphrase, vaultName string) (IdentityKeys, error) {
	if err := ValidatePassphrase(passphrase); err != nil {
		return IdentityKeys{}, err
	}

	guard, err := e.locks.Acquire(ctx, vaultName)
	if err != nil {
		return IdentityKeys{}, err
	}
	defer guard.Release()

	v, err := e.readVault(vaultName)
	if err != nil {
		return IdentityKeys{}, err
	}

	log := e.logger.WithVault(vaultName)

	for storedPubKey, salt := range v.IdentitySalts.Salts {
		if len(salt) != 32 {
			log.Warn("skipping identity salt with invalid length",
				zap.Int("salt_len", len(salt)))
			continue
		}

		keys, err := deriveIdentityFromPassphrase(passphrase, salt)
		if err != nil {
			log.Warn("failed to derive identity with stored salt", zap.Error(err))
			continue
		}

		if keys.PublicKey == storedPubKey {
			return keys, nil
		}
	}

	log.Debug("no matching identity found, generating new salt")

	newSalt := make([]byte, 32)
	if _, err := rand.Read(newSalt); err != nil {
		return IdentityKeys{}, verrors.IoError("failed to generate salt")
	}

	keys, err := deriveIdentityFromPassphrase(passphrase, newSalt)
	if err != nil {
		return IdentityKeys{}, err
	}

	v.IdentitySalts.SetSalt(keys.PublicKey, newSalt)
	if err := e.saveVault(vaultName, v); err != nil {
		return IdentityKeys{}, err
	}

	return keys, nil
}

func deriveIdentityFromPassphrase(passphrase string, salt []byte) (IdentityKeys, error) {
	seed, err := crypto.DeriveSeed(passphrase, salt)
	if err != nil {
		return IdentityKeys{}, err
	}

	privateKey, err := crypto.IdentityFromSeed(seed)
	if err != nil {
		return IdentityKeys{}, err
	}

	publicKey, err := crypto.IdentityToPublic(privateKey)
	if err != nil {
		return IdentityKeys{}, err
	}

	return IdentityKeys{PublicKey: publicKey, PrivateKey: privateKey}, nil
}

// GenerateRandomIdentity creates a fresh identity unattached to any vault.
func (e *Engine) GenerateRandomIdentity() (IdentityKeys, error) {
	privateKey, err := crypto.GenerateIdentity()
	if err != nil {
		return IdentityKeys{}, err
	}

	publicKey, err := crypto.IdentityToPublic(privateKey)
	if err != nil {
		return IdentityKeys{}, err
	}

	return IdentityKeys{PublicKey: publicKey, PrivateKey: privateKey}, nil
}

// UpsertNamespace encrypts data to the single recipient publicKey and stores
// it under the namespace name. A non-positive TTL means the entry never
// expires.
func (e *Engine) UpsertNamespace(ctx context.Context, vaultName, publicKey, namespace string, data []byte, expiresInSeconds int64, replaceIfExists bool) error {
	if err := ValidateNamespace(namespace); err != nil {
		return err
	}

	guard, err := e.locks.Acquire(ctx, vaultName)
	if err != nil {
		return err
	}
	defer guard.Release()

	v, err := e.readVault(vaultName)
	if err != nil {
		return err
	}

	if _, exists := v.Namespaces[namespace]; exists && !replaceIfExists {
		return verrors.ErrNamespaceAlreadyExists
	}

	encrypted, err := crypto.Encrypt(data, []string{publicKey})
	if err != nil {
		return verrors.IoError("failed to encrypt namespace data")
	}

	v.Namespaces[namespace] = NamespaceData{
		Data:       encrypted,
		Expiration: NewExpiration(expiresInSeconds, e.clock.Now()),
	}

	return e.saveVault(vaultName, v)
}

// ReadNamespace decrypts and returns a namespace payload. An entry past its
// expiration is removed and reported as expired; any decryption failure
// surfaces as an invalid-password error.
func (e *Engine) ReadNamespace(ctx context.Context, vaultName, privateKey, namespace string) ([]byte, error) {
	v, err := e.readVault(vaultName)
	if err != nil {
		return nil, err
	}

	data, ok := v.Namespaces[namespace]
	if !ok {
		return nil, verrors.ErrNamespaceNotFound
	}

	if IsExpired(data.Expiration, e.clock.Now()) {
		delete(v.Namespaces, namespace)
		if err := e.storage.DeleteFile(vaultName + "/" + namespaceFilename(namespace)); err != nil {
			e.logger.WithVault(vaultName).Warn("failed to delete expired namespace file", zap.Error(err))
		}
		if err := e.saveVault(vaultName, v); err != nil {
			return nil, err
		}
		return nil, verrors.ErrDataExpired
	}

	plaintext, err := crypto.Decrypt(data.Data, privateKey)
	if err != nil {
		return nil, verrors.ErrInvalidPassword
	}

	return plaintext, nil
}

// RemoveNamespace deletes a namespace entry and its file.
func (e *Engine) RemoveNamespace(ctx context.Context, vaultName, namespace string) error {
	guard, err := e.locks.Acquire(ctx, vaultName)
	if err != nil {
		return err
	}
	defer guard.Release()

	v, err := e.readVault(vaultName)
	if err != nil {
		return err
	}

	if _, ok := v.Namespaces[namespace]; !ok {
		return verrors.ErrNamespaceNotFound
	}
	delete(v.Namespaces, namespace)

	if err := e.storage.DeleteFile(vaultName + "/" + namespaceFilename(namespace)); err != nil {
		return err
	}

	return e.saveVault(vaultName, v)
}

// ListNamespaces returns the names of every live namespace in a vault.
func (e *Engine) ListNamespaces(ctx context.Context, vaultName string) ([]string, error) {
	v, err := e.readVault(vaultName)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(v.Namespaces))
	for namespace := range v.Namespaces {
		names = append(names, namespace)
	}
	return names, nil
}

// ListVaults enumerates the vault directories under the storage root.
func (e *Engine) ListVaults(ctx context.Context) ([]string, error) {
	names, err := e.storage.ListEntries(".")
	if err != nil {
		return nil, err
	}
	e.logger.Debug("listed vaults", zap.Int("count", len(names)))
	return names, nil
}

// DeleteVault removes a vault directory and everything in it.
func (e *Engine) DeleteVault(ctx context.Context, name string) error {
	guard, err := e.locks.Acquire(ctx, name)
	if err != nil {
		return err
	}
	defer guard.Release()

	return e.storage.DeleteDirectory(name)
}

// ExportVault reads a vault and returns the framed export blob.
func (e *Engine) ExportVault(ctx context.Context, name string) ([]byte, error) {
	v, err := e.readVault(name)
	if err != nil {
		return nil, err
	}

	blob, err := SerializeVault(v)
	if err != nil {
		return nil, err
	}

	e.logger.WithVault(name).Debug("exported vault", zap.Int("bytes", len(blob)))
	return blob, nil
}

// ImportVault parses a framed export blob and persists it under a new name.
// An existing vault with that name is never overwritten.
func (e *Engine) ImportVault(ctx context.Context, name string, blob []byte) error {
	if err := ValidateVaultName(name); err != nil {
		return err
	}

	imported, err := DeserializeVault(blob)
	if err != nil {
		return err
	}

	guard, err := e.locks.Acquire(ctx, name)
	if err != nil {
		return err
	}
	defer guard.Release()

	_, err = e.readVault(name)
	switch {
	case err == nil:
		return verrors.ErrVaultAlreadyExists
	case verrors.GetKind(err) == verrors.KindIO:
		// No existing vault under that name; proceed.
	default:
		return err
	}

	return e.saveVault(name, imported)
}

// CleanupVault sweeps expired namespaces to a fixed point: each pass removes
// everything expired and re-saves if anything changed, and the loop repeats
// until a pass removes nothing. Returns whether any pass removed data.
func (e *Engine) CleanupVault(ctx context.Context, name string) (bool, error) {
	guard, err := e.locks.Acquire(ctx, name)
	if err != nil {
		return false, err
	}
	defer guard.Release()

	removedAny := false
	for {
		removed, err := e.cleanupPass(name)
		if err != nil {
			return removedAny, err
		}
		if !removed {
			return removedAny, nil
		}
		removedAny = true
	}
}

func (e *Engine) cleanupPass(vaultName string) (bool, error) {
	v, err := e.readVault(vaultName)
	if err != nil {
		return false, err
	}

	now := e.clock.Now()
	var expired []string
	for namespace, data := range v.Namespaces {
		if IsExpired(data.Expiration, now) {
			expired = append(expired, namespace)
		}
	}

	if len(expired) == 0 {
		return false, nil
	}

	log := e.logger.WithVault(vaultName)
	for _, namespace := range expired {
		if err := e.storage.DeleteFile(vaultName + "/" + namespaceFilename(namespace)); err != nil {
			log.Warn("failed to delete expired namespace file",
				zap.String("namespace", namespace), zap.Error(err))
		}
		delete(v.Namespaces, namespace)
		log.Info("removed expired namespace", zap.String("namespace", namespace))
	}

	if err := e.saveVault(vaultName, v); err != nil {
		return true, err
	}
	return true, nil
}

// VerifyVaultIdentity checks that a private key can decrypt the vault's
// contents by attempting the first namespace. An empty vault verifies
// trivially.
func (e *Engine) VerifyVaultIdentity(ctx context.Context, vaultName, privateKey string) error {
	v, err := e.readVault(vaultName)
	if err != nil {
		if verrors.GetKind(err) == verrors.KindIO {
			return verrors.ErrVaultNotFound
		}
		return err
	}

	for _, data := range v.Namespaces {
		if _, err := crypto.Decrypt(data.Data, privateKey); err != nil {
			return verrors.ErrInvalidPassword
		}
		break
	}

	return nil
}

// SetUsername records a username → public key binding in the vault directory.
func (e *Engine) SetUsername(ctx context.Context, vaultName, username, publicKey string) error {
	if err := validateNotEmpty(username, "username cannot be empty or whitespace only"); err != nil {
		return err
	}

	guard, err := e.locks.Acquire(ctx, vaultName)
	if err != nil {
		return err
	}
	defer guard.Release()

	v, err := e.readVault(vaultName)
	if err != nil {
		return err
	}

	v.UsernamePK[username] = publicKey
	return e.saveVault(vaultName, v)
}

// LookupUsername resolves a username to the public key registered for it.
func (e *Engine) LookupUsername(ctx context.Context, vaultName, username string) (string, error) {
	v, err := e.readVault(vaultName)
	if err != nil {
		return "", err
	}

	publicKey, ok := v.UsernamePK[username]
	if !ok {
		return "", verrors.IoError(fmt.Sprintf("no public key registered for username %q", username))
	}
	return publicKey, nil
}

// SetPeerID stores the sync peer identifier in the vault metadata.
func (e *Engine) SetPeerID(ctx context.Context, vaultName, peerID string) error {
	guard, err := e.locks.Acquire(ctx, vaultName)
	if err != nil {
		return err
	}
	defer guard.Release()

	v, err := e.readVault(vaultName)
	if err != nil {
		return err
	}

	v.Metadata.PeerID = &peerID
	return e.saveVault(vaultName, v)
}
