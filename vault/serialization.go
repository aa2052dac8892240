package vault

import (
	"encoding/binary"
	"encoding/json"

	"hoddor.sh/internal/verrors"
)

// Export framing: ASCII magic, big-endian payload length, JSON payload.
var vaultMagicNumber = []byte("VAULT1")

const vaultHeaderLen = 10 // 6-byte magic + 4-byte length

// SerializeVault frames the vault aggregate for export across trust
// boundaries.
func SerializeVault(v *Vault) ([]byte, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, verrors.SerializationError("failed to serialize vault for export")
	}

	out := make([]byte, 0, vaultHeaderLen+len(payload))
	out = append(out, vaultMagicNumber...)
	out = binary.BigEndian.AppendUint32(out, uint32(len(payload)))
	out = append(out, payload...)

	return out, nil
}

// DeserializeVault parses a framed export blob back into a vault aggregate.
func DeserializeVault(data []byte) (*Vault, error) {
	if len(data) < vaultHeaderLen || string(data[:6]) != string(vaultMagicNumber) {
		return nil, verrors.SerializationError("invalid vault file: missing or incorrect magic number")
	}

	length := int(binary.BigEndian.Uint32(data[6:10]))
	if len(data) != length+vaultHeaderLen {
		return nil, verrors.SerializationError("invalid vault file: content length mismatch")
	}

	var v Vault
	if err := json.Unmarshal(data[vaultHeaderLen:], &v); err != nil {
		return nil, verrors.SerializationError("failed to deserialize vault data")
	}

	return &v, nil
}
