package graph

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"

	"hoddor.sh/crypto"
	"hoddor.sh/internal/storage"
)

const backupExtension = "hoddor"

// EncryptionConfig names the keys a persistence service encrypts backups to
// and restores them with.
type EncryptionConfig struct {
	Recipient string
	Identity  string
}

// PersistenceService round-trips a vault's graph through an encrypted file:
// export → JSON → age encrypt → base64 → one file per vault under the backup
// path, and the inverse on restore.
type PersistenceService struct {
	store      *Store
	storage    storage.Storage
	backupPath string
	encryption EncryptionConfig
}

// NewPersistenceService wires a persistence service over a store and storage.
func NewPersistenceService(store *Store, st storage.Storage, backupPath string, encryption EncryptionConfig) *PersistenceService {
	return &PersistenceService{
		store:      store,
		storage:    st,
		backupPath: backupPath,
		encryption: encryption,
	}
}

func (p *PersistenceService) backupFile(vaultID string) string {
	return p.backupPath + "/" + vaultID + "." + backupExtension
}

// Backup snapshots the vault's graph and writes the encrypted backup file.
func (p *PersistenceService) Backup(ctx context.Context, vaultID string) error {
	backup, err := p.store.ExportBackup(ctx, vaultID)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(backup)
	if err != nil {
		return wrapError(KindSerialization, "failed to serialize backup", err)
	}

	encrypted, err := crypto.Encrypt(payload, []string{p.encryption.Recipient})
	if err != nil {
		return wrapError(KindOther, "encryption failed", err)
	}

	if dir := parentDir(p.backupPath); dir != "" {
		if err := p.storage.CreateDirectory(dir); err != nil {
			return wrapError(KindDatabase, "failed to create backup directory", err)
		}
	}

	encoded := base64.StdEncoding.EncodeToString(encrypted)
	if err := p.storage.WriteFile(p.backupFile(vaultID), encoded); err != nil {
		return wrapError(KindDatabase, "failed to write backup", err)
	}

	return nil
}

// Restore reads, decrypts, and re-imports the vault's backup, returning the
// parsed snapshot. Imported entities get fresh ids.
func (p *PersistenceService) Restore(ctx context.Context, vaultID string) (*Backup, error) {
	content, err := p.storage.ReadFile(p.backupFile(vaultID))
	if err != nil {
		return nil, wrapError(KindDatabase, "failed to read backup", err)
	}

	encrypted, err := base64.StdEncoding.DecodeString(content)
	if err != nil {
		return nil, wrapError(KindOther, "base64 decode failed", err)
	}

	payload, err := crypto.Decrypt(encrypted, p.encryption.Identity)
	if err != nil {
		return nil, wrapError(KindOther, "decryption failed", err)
	}

	var backup Backup
	if err := json.Unmarshal(payload, &backup); err != nil {
		return nil, wrapError(KindSerialization, "failed to deserialize backup", err)
	}

	if err := p.store.ImportBackup(ctx, &backup); err != nil {
		return nil, err
	}

	return &backup, nil
}

// BackupExists reports whether a readable backup file is present.
func (p *PersistenceService) BackupExists(vaultID string) bool {
	_, err := p.storage.ReadFile(p.backupFile(vaultID))
	return err == nil
}

// DeleteBackup removes the backup file.
func (p *PersistenceService) DeleteBackup(vaultID string) error {
	if err := p.storage.DeleteFile(p.backupFile(vaultID)); err != nil {
		return wrapError(KindDatabase, "failed to delete backup", err)
	}
	return nil
}

func parentDir(path string) string {
	if i := strings.LastIndex(path, "/"); i > 0 {
		return path[:i]
	}
	return ""
}
