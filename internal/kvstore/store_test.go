// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package kvstore

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/profmatch/pkg/types"
)

func openTestStore(t *testing.T, maxPages int) *Store {
	t.Helper()
	s, err := Open(types.CacheConfig{
		Path:     filepath.Join(t.TempDir(), "cache", "test.db"),
		MaxPages: maxPages,
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_PutGet(t *testing.T) {
	s := openTestStore(t, 0)

	require.NoError(t, s.Put("ns", []byte(`{"a":1}`)))
	got, err := s.Get("ns")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(got))

	require.NoError(t, s.Put("ns", []byte(`{"a":2}`)))
	got, err = s.Get("ns")
	require.NoError(t, err)
	assert.Equal(t, `{"a":2}`, string(got))
}

func TestStore_GetMissing(t *testing.T) {
	s := openTestStore(t, 0)

	_, err := s.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_Delete(t *testing.T) {
	s := openTestStore(t, 0)

	require.NoError(t, s.Put("ns", []byte("x")))
	require.NoError(t, s.Delete("ns"))
	require.NoError(t, s.Delete("ns"))

	_, err := s.Get("ns")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_Entries(t *testing.T) {
	s := openTestStore(t, 0)

	require.NoError(t, s.Put("b", []byte("12345")))
	require.NoError(t, s.Put("a", []byte("1")))

	entries, err := s.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].Key)
	assert.Equal(t, 1, entries[0].Size)
	assert.Equal(t, "b", entries[1].Key)
	assert.Equal(t, 5, entries[1].Size)
	assert.NotEmpty(t, entries[1].UpdatedAt)
}

func TestStore_CapacityExceeded(t *testing.T) {
	s := openTestStore(t, 16)

	big := bytes.Repeat([]byte("x"), 1<<20)
	err := s.Put("ns", big)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCapacity)

	// Small writes still fit.
	require.NoError(t, s.Put("ns", []byte("small")))
}

func TestStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")

	s, err := Open(types.CacheConfig{Path: path})
	require.NoError(t, err)
	require.NoError(t, s.Put("ns", []byte("kept")))
	require.NoError(t, s.Close())

	s, err = Open(types.CacheConfig{Path: path})
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get("ns")
	require.NoError(t, err)
	assert.Equal(t, "kept", string(got))
	assert.Equal(t, path, s.Path())
}
