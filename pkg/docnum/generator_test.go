package docnum

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerator_Next(t *testing.T) {
	ctx := context.Background()
	f := Format{Prefix: "1403-12345", Width: 5}

	t.Run("empty scope starts at one", func(t *testing.T) {
		gen := NewGenerator(&memStore{}, nil)

		id, err := gen.Next(ctx, f)
		require.NoError(t, err)
		assert.Equal(t, "1403-12345-00001", id)
	})

	t.Run("follows the highest serial", func(t *testing.T) {
		store := &memStore{ids: []string{"1403-12345-00001"}}
		gen := NewGenerator(store, nil)

		id, err := gen.Next(ctx, f)
		require.NoError(t, err)
		assert.Equal(t, "1403-12345-00002", id)
	})

	t.Run("referral letters", func(t *testing.T) {
		store := &memStore{ids: []string{
			"REF-2025-00001", "REF-2025-00002", "REF-2025-00003", "REF-2025-00004",
		}}
		gen := NewGenerator(store, nil)

		id, err := gen.Next(ctx, Format{Prefix: "REF-2025", Width: 5})
		require.NoError(t, err)
		assert.Equal(t, "REF-2025-00005", id)
	})

	t.Run("scopes are independent", func(t *testing.T) {
		store := &memStore{ids: []string{
			"1403-12345-00007",
			"1403-67890-00002",
			"1403-123456-00040",
		}}
		gen := NewGenerator(store, nil)

		id, err := gen.Next(ctx, Format{Prefix: "1403-67890", Width: 5})
		require.NoError(t, err)
		assert.Equal(t, "1403-67890-00003", id)

		id, err = gen.Next(ctx, f)
		require.NoError(t, err)
		assert.Equal(t, "1403-12345-00008", id)
	})

	t.Run("new year starts over", func(t *testing.T) {
		store := &memStore{ids: []string{"1403-12345-00412"}}
		gen := NewGenerator(store, nil)

		id, err := gen.Next(ctx, Format{Prefix: "1404-12345", Width: 5})
		require.NoError(t, err)
		assert.Equal(t, "1404-12345-00001", id)
	})

	t.Run("grows past the width", func(t *testing.T) {
		store := &memStore{ids: []string{"MC-SW-2025-9999"}}
		gen := NewGenerator(store, nil)

		id, err := gen.Next(ctx, Format{Prefix: "MC-SW-2025", Width: 4})
		require.NoError(t, err)
		assert.Equal(t, "MC-SW-2025-10000", id)
	})

	t.Run("malformed existing identifier", func(t *testing.T) {
		store := &memStore{ids: []string{"1403-12345-ABCDE"}}
		gen := NewGenerator(store, nil)

		_, err := gen.Next(ctx, f)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrMalformedIdentifier))
	})

	t.Run("store failure", func(t *testing.T) {
		boom := errors.New("connection reset")
		gen := NewGenerator(&memStore{err: boom}, nil)

		_, err := gen.Next(ctx, f)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("unresolved scope", func(t *testing.T) {
		gen := NewGenerator(&memStore{}, nil)

		_, err := gen.Next(ctx, Format{Width: 5})
		assert.ErrorIs(t, err, ErrScopeResolution)
	})
}

func TestGenerator_Next_DoesNotReserve(t *testing.T) {
	gen := NewGenerator(&memStore{ids: []string{"REF-2025-00004"}}, nil)
	f := Format{Prefix: "REF-2025", Width: 5}

	first, err := gen.Next(context.Background(), f)
	require.NoError(t, err)
	second, err := gen.Next(context.Background(), f)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestGenerator_Next_Sqlite(t *testing.T) {
	db := setupTestDB(t)
	gen := NewGenerator(NewGormStore(db, "test_documents", "number"), nil)
	f := Format{Prefix: "1403-12345", Width: 5}

	for _, want := range []string{"1403-12345-00001", "1403-12345-00002", "1403-12345-00003"} {
		id, err := gen.Next(context.Background(), f)
		require.NoError(t, err)
		assert.Equal(t, want, id)
		insertDocuments(t, db, id)
	}
}

func TestGenerator_Next_ScopesDifferingOnlyInCase(t *testing.T) {
	db := setupTestDB(t)
	insertDocuments(t, db, "1403-AB12-00003")
	gen := NewGenerator(NewGormStore(db, "test_documents", "number"), nil)

	id, err := gen.Next(context.Background(), Format{Prefix: "1403-ab12", Width: 5})
	require.NoError(t, err)
	assert.Equal(t, "1403-ab12-00001", id)

	id, err = gen.Next(context.Background(), Format{Prefix: "1403-AB12", Width: 5})
	require.NoError(t, err)
	assert.Equal(t, "1403-AB12-00004", id)
}
