package vault

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateNamespace(t *testing.T) {
	valid := []string{"test", "my-namespace", "namespace_123", "CamelCase", "data.2024"}
	for _, name := range valid {
		assert.NoError(t, ValidateNamespace(name), name)
	}

	invalid := []string{
		"", "   ", "\t", "\n",
		"test/path", `test\path`, "test<file", "test>file",
		"test:file", `test"file`, "test|file", "test?file", "test*file",
	}
	for _, name := range invalid {
		assert.Error(t, ValidateNamespace(name), name)
	}
}

func TestValidatePassphrase(t *testing.T) {
	assert.NoError(t, ValidatePassphrase("password123"))
	assert.NoError(t, ValidatePassphrase("my secure passphrase"))
	assert.NoError(t, ValidatePassphrase("!@#$%^&*()"))

	assert.Error(t, ValidatePassphrase(""))
	assert.Error(t, ValidatePassphrase("   "))
	assert.Error(t, ValidatePassphrase("\t\t"))
}

func TestValidateVaultName(t *testing.T) {
	valid := []string{"vault1", "my_vault", "my-vault", "vault123", "MyVault"}
	for _, name := range valid {
		assert.NoError(t, ValidateVaultName(name), name)
	}

	invalid := []string{"", "   ", "vault name", "vault/name", "vault.name", "vault@name", "vault#name"}
	for _, name := range invalid {
		assert.Error(t, ValidateVaultName(name), name)
	}
}
