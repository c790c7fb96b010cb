package voteguard

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shrimbly/willienotwilly/internal/domain"
)

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()

	_, ok, err := store.Get(domain.SubjectFlux)
	require.NoError(t, err)
	assert.False(t, ok)

	rec := CooldownRecord{Subject: domain.SubjectFlux, Value: 42, Timestamp: time.Now()}
	require.NoError(t, store.Put(rec))

	got, ok, err := store.Get(domain.SubjectFlux)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, rec, got)

	require.NoError(t, store.Delete(domain.SubjectFlux))
	_, ok, err = store.Get(domain.SubjectFlux)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "cooldowns.json")
	store := NewFileStore(path)

	rec := CooldownRecord{
		Subject:   domain.SubjectGPT,
		Value:     17,
		Timestamp: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.Put(rec))

	// A fresh store over the same file sees the record.
	reopened := NewFileStore(path)
	got, ok, err := reopened.Get(domain.SubjectGPT)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, rec.Value, got.Value)
	assert.True(t, rec.Timestamp.Equal(got.Timestamp))

	require.NoError(t, reopened.Delete(domain.SubjectGPT))
	_, ok, err = store.Get(domain.SubjectGPT)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStore_MissingFileIsEmpty(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "never-written.json"))

	_, ok, err := store.Get(domain.SubjectFlux)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStore_CorruptFileIsDiscarded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cooldowns.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	store := NewFileStore(path)
	_, ok, err := store.Get(domain.SubjectFlux)
	require.NoError(t, err)
	assert.False(t, ok)

	// Writing through the store replaces the corrupt content.
	require.NoError(t, store.Put(CooldownRecord{Subject: domain.SubjectFlux, Value: 1, Timestamp: time.Now()}))
	_, ok, err = store.Get(domain.SubjectFlux)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFileStore_KeepsOtherSubjects(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "cooldowns.json"))

	now := time.Now()
	require.NoError(t, store.Put(CooldownRecord{Subject: domain.SubjectFlux, Value: 10, Timestamp: now}))
	require.NoError(t, store.Put(CooldownRecord{Subject: domain.SubjectQwen, Value: 90, Timestamp: now}))
	require.NoError(t, store.Delete(domain.SubjectFlux))

	_, ok, err := store.Get(domain.SubjectQwen)
	require.NoError(t, err)
	assert.True(t, ok)
}
