package docnum

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:     attempts,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
	}
}

func TestIssuer_Issue(t *testing.T) {
	store := &memStore{ids: []string{"1403-12345-00001"}}
	issuer := NewIssuer(NewGenerator(store, nil), fastRetry(3), nil)

	id, err := issuer.Issue(context.Background(), Format{Prefix: "1403-12345", Width: 5}, store.insert)
	require.NoError(t, err)
	assert.Equal(t, "1403-12345-00002", id)
}

func TestIssuer_Issue_RetriesAfterConcurrentInsert(t *testing.T) {
	store := &memStore{}
	f := Format{Prefix: "REF-2025", Width: 5}

	// A competing writer commits the same identifier between our lookup and
	// our insert, once.
	var raced int32
	store.onLookup = func() {
		if atomic.CompareAndSwapInt32(&raced, 0, 1) {
			store.add("REF-2025-00001")
		}
	}

	issuer := NewIssuer(NewGenerator(store, nil), fastRetry(3), nil)

	id, err := issuer.Issue(context.Background(), f, store.insert)
	require.NoError(t, err)
	assert.Equal(t, "REF-2025-00002", id)
}

func TestIssuer_Issue_ExhaustsAttempts(t *testing.T) {
	store := &memStore{}
	f := Format{Prefix: "REF-2025", Width: 5}

	var inserts int
	alwaysTaken := func(ctx context.Context, id string) error {
		inserts++
		return errors.New("UNIQUE constraint failed: referral_letters.letter_number")
	}

	issuer := NewIssuer(NewGenerator(store, nil), fastRetry(4), nil)

	_, err := issuer.Issue(context.Background(), f, alwaysTaken)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUniquenessConflict)
	assert.True(t, IsRetryable(err))
	assert.Equal(t, 4, inserts)

	var conflict *ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, "REF-2025-", conflict.Prefix)
	assert.Equal(t, 4, conflict.Attempts)
}

func TestIssuer_Issue_DoesNotRetryOtherErrors(t *testing.T) {
	store := &memStore{}
	boom := errors.New("foreign key constraint failed")

	var inserts int
	failing := func(ctx context.Context, id string) error {
		inserts++
		return boom
	}

	issuer := NewIssuer(NewGenerator(store, nil), fastRetry(5), nil)

	_, err := issuer.Issue(context.Background(), Format{Prefix: "REF-2025", Width: 5}, failing)
	assert.ErrorIs(t, err, boom)
	assert.False(t, IsRetryable(err))
	assert.Equal(t, 1, inserts)
}

func TestIssuer_Issue_UnrelatedUniqueViolation(t *testing.T) {
	store := &memStore{}

	var inserts int
	outboxTaken := func(ctx context.Context, id string) error {
		inserts++
		return Unrelated(errors.New("UNIQUE constraint failed: event_outbox.idempotent_key"))
	}

	issuer := NewIssuer(NewGenerator(store, nil), fastRetry(5), nil)

	_, err := issuer.Issue(context.Background(), Format{Prefix: "REF-2025", Width: 5}, outboxTaken)
	require.Error(t, err)
	assert.True(t, IsUnrelated(err))
	assert.True(t, IsUniqueViolation(err))
	assert.False(t, IsRetryable(err))
	assert.Equal(t, 1, inserts)
}

func TestUnrelated(t *testing.T) {
	assert.NoError(t, Unrelated(nil))
	assert.False(t, IsUnrelated(errors.New("boom")))

	err := Unrelated(gorm.ErrDuplicatedKey)
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
	assert.Equal(t, gorm.ErrDuplicatedKey.Error(), err.Error())
}

func TestIssuer_IssueScoped_ResolvesScopePerAttempt(t *testing.T) {
	store := &memStore{}

	// The first attempt loses its identifier to a concurrent writer. By the
	// time it retries the fiscal year has turned.
	var raced int32
	store.onLookup = func() {
		if atomic.CompareAndSwapInt32(&raced, 0, 1) {
			store.add("1403-12345-00001")
		}
	}

	var calls int
	scope := func() (Format, error) {
		year := "1403"
		if calls > 0 {
			year = "1404"
		}
		calls++
		return Format{Prefix: year + "-12345", Width: 5}, nil
	}

	issuer := NewIssuer(NewGenerator(store, nil), fastRetry(3), nil)

	id, err := issuer.IssueScoped(context.Background(), scope, store.insert)
	require.NoError(t, err)
	assert.Equal(t, "1404-12345-00001", id)
	assert.Equal(t, 2, calls)
}

func TestIssuer_IssueScoped_ScopeErrorIsPermanent(t *testing.T) {
	var calls, inserts int
	scope := func() (Format, error) {
		calls++
		return Format{}, ErrScopeResolution
	}
	insert := func(ctx context.Context, id string) error {
		inserts++
		return nil
	}

	issuer := NewIssuer(NewGenerator(&memStore{}, nil), fastRetry(5), nil)

	_, err := issuer.IssueScoped(context.Background(), scope, insert)
	assert.ErrorIs(t, err, ErrScopeResolution)
	assert.Equal(t, 1, calls)
	assert.Zero(t, inserts)
}

func TestIssuer_Issue_AllocationErrorIsPermanent(t *testing.T) {
	store := &memStore{ids: []string{"1403-12345-ABCDE"}}

	var inserts int
	insert := func(ctx context.Context, id string) error {
		inserts++
		return nil
	}

	issuer := NewIssuer(NewGenerator(store, nil), fastRetry(5), nil)

	_, err := issuer.Issue(context.Background(), Format{Prefix: "1403-12345", Width: 5}, insert)
	assert.ErrorIs(t, err, ErrMalformedIdentifier)
	assert.Zero(t, inserts)
}

func TestIssuer_Issue_Canceled(t *testing.T) {
	store := &memStore{}
	ctx, cancel := context.WithCancel(context.Background())

	taken := func(ctx context.Context, id string) error {
		cancel()
		return errors.New("UNIQUE constraint failed: cases.case_number")
	}

	issuer := NewIssuer(NewGenerator(store, nil), RetryConfig{MaxAttempts: 10}, nil)

	_, err := issuer.Issue(ctx, Format{Prefix: "REF-2025", Width: 5}, taken)
	require.Error(t, err)
}

func TestIssuer_Defaults(t *testing.T) {
	issuer := NewIssuer(NewGenerator(&memStore{}, nil), RetryConfig{}, nil)
	assert.Equal(t, 5, issuer.Attempts())
}

func TestIssuer_Issue_ConcurrentScan(t *testing.T) {
	db := setupTestDB(t)

	const n = 8
	issuer := NewIssuer(
		NewGenerator(NewGormStore(db, "test_documents", "number"), nil),
		fastRetry(n),
		nil,
	)
	f := Format{Prefix: "1403-12345", Width: 5}

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = make(map[string]bool)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := issuer.Issue(context.Background(), f, insertDocumentFunc(db))
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			ids[id] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, ids, n)
	for serial := uint64(1); serial <= n; serial++ {
		assert.True(t, ids[f.Render(serial)], "missing serial %d", serial)
	}

	var count int64
	require.NoError(t, db.Model(&testDocument{}).Count(&count).Error)
	assert.Equal(t, int64(n), count)
}

func TestIssuer_Issue_ConcurrentCounter(t *testing.T) {
	db := setupTestDB(t)

	issuer := NewIssuer(
		NewCounterAllocator(db, NewGormStore(db, "test_documents", "number"), nil),
		fastRetry(3),
		nil,
	)
	f := Format{Prefix: "REF-2025", Width: 5}

	const n = 10
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := issuer.Issue(context.Background(), f, insertDocumentFunc(db))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	var numbers []string
	require.NoError(t, db.Model(&testDocument{}).Order("number").Pluck("number", &numbers).Error)
	require.Len(t, numbers, n)
	assert.Equal(t, "REF-2025-00001", numbers[0])
	assert.Equal(t, "REF-2025-00010", numbers[n-1])
}
