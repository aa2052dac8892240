package vault

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hoddor.sh/internal/verrors"
)

func TestSerializeVault(t *testing.T) {
	blob, err := SerializeVault(NewVault())
	require.NoError(t, err)

	assert.Equal(t, "VAULT1", string(blob[:6]))
	assert.Greater(t, len(blob), 10)
	assert.Equal(t, uint32(len(blob)-10), binary.BigEndian.Uint32(blob[6:10]))
}

func TestSerializationRoundtrip(t *testing.T) {
	peerID := "peer-123"
	v := NewVault()
	v.Metadata.PeerID = &peerID
	v.SyncEnabled = true
	v.UsernamePK["user1"] = "pk1"
	v.UsernamePK["user2"] = "pk2"
	v.IdentitySalts.SetSalt("age1example", make([]byte, 32))
	v.IdentitySalts.SetCredentialID("age1example", []byte{9, 9, 9})
	v.Namespaces["ns"] = NamespaceData{
		Data:       []byte{1, 2, 3},
		Expiration: &Expiration{ExpiresAt: 12345},
	}

	blob, err := SerializeVault(v)
	require.NoError(t, err)

	restored, err := DeserializeVault(blob)
	require.NoError(t, err)

	require.NotNil(t, restored.Metadata.PeerID)
	assert.Equal(t, "peer-123", *restored.Metadata.PeerID)
	assert.True(t, restored.SyncEnabled)
	assert.Equal(t, v.UsernamePK, restored.UsernamePK)
	assert.Len(t, restored.IdentitySalts.Salts["age1example"], 32)
	credID, ok := restored.IdentitySalts.GetCredentialID("age1example")
	require.True(t, ok)
	assert.Equal(t, []byte{9, 9, 9}, credID)
	assert.Equal(t, []byte{1, 2, 3}, restored.Namespaces["ns"].Data)
	require.NotNil(t, restored.Namespaces["ns"].Expiration)
	assert.Equal(t, int64(12345), restored.Namespaces["ns"].Expiration.ExpiresAt)
}

func TestDeserializeInvalidMagicNumber(t *testing.T) {
	_, err := DeserializeVault([]byte("INVALID_HEADER_DATA"))
	require.Error(t, err)
	assert.Equal(t, verrors.KindSerialization, verrors.GetKind(err))
	assert.Contains(t, err.Error(), "magic number")
}

func TestDeserializeTooShort(t *testing.T) {
	_, err := DeserializeVault([]byte("VAULT1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "magic number")
}

func TestDeserializeLengthMismatch(t *testing.T) {
	blob := []byte("VAULT1")
	blob = binary.BigEndian.AppendUint32(blob, 100)
	blob = append(blob, []byte("{}")...)

	_, err := DeserializeVault(blob)
	require.Error(t, err)
	assert.Equal(t, verrors.KindSerialization, verrors.GetKind(err))
	assert.Contains(t, err.Error(), "length mismatch")
}
