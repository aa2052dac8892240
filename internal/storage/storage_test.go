package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *FileStorage {
	t.Helper()
	return NewFileStorage(t.TempDir())
}

func TestWriteAndReadFile(t *testing.T) {
	s := newTestStorage(t)

	require.NoError(t, s.WriteFile("vault1/metadata.json", `{"k":"v"}`))

	content, err := s.ReadFile("vault1/metadata.json")
	require.NoError(t, err)
	assert.Equal(t, `{"k":"v"}`, content)
}

func TestWriteFileCreatesParents(t *testing.T) {
	s := newTestStorage(t)

	require.NoError(t, s.WriteFile("a/b/c/file.txt", "deep"))

	content, err := s.ReadFile("a/b/c/file.txt")
	require.NoError(t, err)
	assert.Equal(t, "deep", content)
}

func TestReadMissingFile(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.ReadFile("nope/missing.json")
	require.Error(t, err)
}

func TestDeleteFile(t *testing.T) {
	s := newTestStorage(t)

	require.NoError(t, s.WriteFile("v/file.hoddor", "data"))
	require.NoError(t, s.DeleteFile("v/file.hoddor"))

	_, err := s.ReadFile("v/file.hoddor")
	require.Error(t, err)
}

func TestDeleteMissingFile(t *testing.T) {
	s := newTestStorage(t)
	require.Error(t, s.DeleteFile("v/missing"))
}

func TestDirectoryLifecycle(t *testing.T) {
	s := newTestStorage(t)

	exists, err := s.DirectoryExists("vault1")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, s.CreateDirectory("vault1"))

	exists, err = s.DirectoryExists("vault1")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestDeleteDirectoryRecursive(t *testing.T) {
	s := newTestStorage(t)

	require.NoError(t, s.WriteFile("vault1/ns1.hoddor", "a"))
	require.NoError(t, s.WriteFile("vault1/sub/nested.txt", "b"))

	require.NoError(t, s.DeleteDirectory("vault1"))

	exists, err := s.DirectoryExists("vault1")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestListEntries(t *testing.T) {
	s := newTestStorage(t)

	require.NoError(t, s.WriteFile("vault1/a.hoddor", "1"))
	require.NoError(t, s.WriteFile("vault1/b.hoddor", "2"))
	require.NoError(t, s.CreateDirectory("vault1/subdir"))

	entries, err := s.ListEntries("vault1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.hoddor", "b.hoddor", "subdir"}, entries)
}

func TestListEntriesRoot(t *testing.T) {
	s := newTestStorage(t)

	require.NoError(t, s.CreateDirectory("vault1"))
	require.NoError(t, s.CreateDirectory("vault2"))

	entries, err := s.ListEntries(".")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"vault1", "vault2"}, entries)

	entries, err = s.ListEntries("")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"vault1", "vault2"}, entries)
}
