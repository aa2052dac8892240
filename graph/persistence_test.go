package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hoddor.sh/crypto"
	"hoddor.sh/internal/storage"
)

func newTestPersistence(t *testing.T) (*PersistenceService, *Store, EncryptionConfig) {
	t.Helper()

	identity, err := crypto.GenerateIdentity()
	require.NoError(t, err)
	recipient, err := crypto.IdentityToPublic(identity)
	require.NoError(t, err)

	encryption := EncryptionConfig{Recipient: recipient, Identity: identity}
	store := newTestStore(t)
	service := NewPersistenceService(store, storage.NewFileStorage(t.TempDir()), "graph_backups", encryption)
	return service, store, encryption
}

func TestBackupRestoreRoundtrip(t *testing.T) {
	service, store, _ := newTestPersistence(t)
	ctx := context.Background()

	n1 := mustCreateNode(t, store, "V", "memory", []byte{1, 2, 3}, nil)
	n2 := mustCreateNode(t, store, "V", "entity", []byte{4, 5, 6}, nil)
	_, err := store.CreateEdge(ctx, "V", n1, n2, "relates_to", NewEdgeProperties(0.8, false))
	require.NoError(t, err)

	require.NoError(t, service.Backup(ctx, "V"))
	assert.True(t, service.BackupExists("V"))

	// The on-disk file is base64 of an age blob, not cleartext JSON.
	raw, err := service.storage.ReadFile("graph_backups/V.hoddor")
	require.NoError(t, err)
	assert.NotEmpty(t, raw)
	assert.NotEqual(t, byte('{'), raw[0])

	restored, err := service.Restore(ctx, "V")
	require.NoError(t, err)
	assert.Equal(t, uint32(1), restored.Version)
	assert.Len(t, restored.Nodes, 2)
	assert.Len(t, restored.Edges, 1)
}

func TestRestoreWithWrongIdentityFails(t *testing.T) {
	service, store, encryption := newTestPersistence(t)
	ctx := context.Background()

	mustCreateNode(t, store, "V", "memory", []byte("secret"), nil)
	require.NoError(t, service.Backup(ctx, "V"))

	otherIdentity, err := crypto.GenerateIdentity()
	require.NoError(t, err)

	wrongService := NewPersistenceService(store, service.storage, "graph_backups",
		EncryptionConfig{Recipient: encryption.Recipient, Identity: otherIdentity})

	_, err = wrongService.Restore(ctx, "V")
	require.Error(t, err)
}

func TestBackupExistsMissing(t *testing.T) {
	service, _, _ := newTestPersistence(t)
	assert.False(t, service.BackupExists("nope"))
}

func TestDeleteBackup(t *testing.T) {
	service, store, _ := newTestPersistence(t)
	ctx := context.Background()

	mustCreateNode(t, store, "V", "memory", []byte("x"), nil)
	require.NoError(t, service.Backup(ctx, "V"))
	require.True(t, service.BackupExists("V"))

	require.NoError(t, service.DeleteBackup("V"))
	assert.False(t, service.BackupExists("V"))
}

func TestRestoreMissingBackup(t *testing.T) {
	service, _, _ := newTestPersistence(t)

	_, err := service.Restore(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, KindDatabase, KindOf(err))
}
