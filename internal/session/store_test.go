package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scriptsync/internal/kvstore"
)

func TestStore_WriteThrough(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemory()
	s := NewStore(kv)
	touched := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.Put(ctx, Session{Origin: "https://a.example.com", JSessionID: "x", LastTouched: touched}))

	var persisted map[string]Session
	ok, err := kv.Get(ctx, StorageKey, &persisted)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "x", persisted["https://a.example.com"].JSessionID)

	found, err := s.Update(ctx, "https://a.example.com", func(sess *Session) { sess.LastCSRFToken = "t" })
	require.NoError(t, err)
	assert.True(t, found)

	reloaded := NewStore(kv)
	require.NoError(t, reloaded.Load(ctx))
	got, ok := reloaded.Get("https://a.example.com")
	require.True(t, ok)
	assert.Equal(t, "t", got.LastCSRFToken)
	assert.True(t, got.LastTouched.Equal(touched))

	removed, err := s.Delete(ctx, "https://a.example.com")
	require.NoError(t, err)
	assert.True(t, removed)

	require.NoError(t, reloaded.Load(ctx))
	assert.Zero(t, reloaded.Len())
}

func TestStore_UpdateAndDeleteMissing(t *testing.T) {
	ctx := context.Background()
	s := NewStore(kvstore.NewMemory())

	found, err := s.Update(ctx, "https://none.example.com", func(*Session) {})
	require.NoError(t, err)
	assert.False(t, found)

	removed, err := s.Delete(ctx, "https://none.example.com")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestStore_PutIfAbsent(t *testing.T) {
	ctx := context.Background()
	s := NewStore(kvstore.NewMemory())

	stored, err := s.PutIfAbsent(ctx, Session{Origin: "https://a.example.com", JSessionID: "first"})
	require.NoError(t, err)
	assert.True(t, stored)

	stored, err = s.PutIfAbsent(ctx, Session{Origin: "https://a.example.com", JSessionID: "second"})
	require.NoError(t, err)
	assert.False(t, stored)

	got, _ := s.Get("https://a.example.com")
	assert.Equal(t, "first", got.JSessionID)
}

func TestStore_GetReturnsCopy(t *testing.T) {
	s := NewStore(kvstore.NewMemory())
	require.NoError(t, s.Put(context.Background(), Session{Origin: "o", JSessionID: "x"}))

	got, _ := s.Get("o")
	got.JSessionID = "mutated"

	again, _ := s.Get("o")
	assert.Equal(t, "x", again.JSessionID)
}

type failingKV struct {
	*kvstore.Memory
}

func (failingKV) Set(context.Context, string, any) error {
	return errors.New("disk full")
}

func TestStore_PersistFailure(t *testing.T) {
	s := NewStore(failingKV{kvstore.NewMemory()})

	err := s.Put(context.Background(), Session{Origin: "o"})
	assert.ErrorContains(t, err, "disk full")
}
