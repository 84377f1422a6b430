package docnum

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/bank-melli/commission/pkg/models"
)

// testDocument is a row owning an identifier.
type testDocument struct {
	ID        uint   `gorm:"primaryKey"`
	Number    string `gorm:"size:50;not null;uniqueIndex"`
	DeletedAt gorm.DeletedAt
}

func (testDocument) TableName() string { return "test_documents" }

// setupTestDB opens a file-backed sqlite database with a single connection so
// concurrent tests serialize on the driver instead of failing with SQLITE_BUSY.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "docnum.db") + "?_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&testDocument{}, &models.IdentifierCounter{}))
	return db
}

func insertDocuments(t *testing.T, db *gorm.DB, numbers ...string) {
	t.Helper()
	for _, n := range numbers {
		require.NoError(t, db.Create(&testDocument{Number: n}).Error)
	}
}

func insertDocumentFunc(db *gorm.DB) InsertFunc {
	return func(ctx context.Context, id string) error {
		return db.WithContext(ctx).Create(&testDocument{Number: id}).Error
	}
}

// memStore is an in-memory Store.
type memStore struct {
	mu  sync.Mutex
	ids []string
	err error

	// onLookup runs after each lookup, outside the lock.
	onLookup func()
}

func (s *memStore) LatestWithPrefix(_ context.Context, prefix string) (string, bool, error) {
	s.mu.Lock()
	if s.err != nil {
		s.mu.Unlock()
		return "", false, s.err
	}
	var matches []string
	for _, id := range s.ids {
		if strings.HasPrefix(id, prefix) {
			matches = append(matches, id)
		}
	}
	s.mu.Unlock()

	if s.onLookup != nil {
		s.onLookup()
	}

	if len(matches) == 0 {
		return "", false, nil
	}
	sort.Slice(matches, func(i, j int) bool {
		if len(matches[i]) != len(matches[j]) {
			return len(matches[i]) > len(matches[j])
		}
		return matches[i] > matches[j]
	})
	return matches[0], true, nil
}

func (s *memStore) add(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = append(s.ids, id)
}

// insert rejects duplicates the way a unique index would.
func (s *memStore) insert(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.ids {
		if existing == id {
			return gorm.ErrDuplicatedKey
		}
	}
	s.ids = append(s.ids, id)
	return nil
}

func TestGormStore_LatestWithPrefix(t *testing.T) {
	db := setupTestDB(t)
	store := NewGormStore(db, "test_documents", "number")
	ctx := context.Background()

	_, found, err := store.LatestWithPrefix(ctx, "1403-12345-")
	require.NoError(t, err)
	assert.False(t, found)

	insertDocuments(t, db,
		"1403-12345-00001",
		"1403-12345-00003",
		"1403-12345-00002",
		"1403-123456-00009",
		"1402-12345-00050",
	)

	latest, found, err := store.LatestWithPrefix(ctx, "1403-12345-")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "1403-12345-00003", latest)
}

func TestGormStore_LatestWithPrefix_OrdersByLength(t *testing.T) {
	db := setupTestDB(t)
	store := NewGormStore(db, "test_documents", "number")

	insertDocuments(t, db, "REF-2025-99999", "REF-2025-100000", "REF-2025-99998")

	latest, found, err := store.LatestWithPrefix(context.Background(), "REF-2025-")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "REF-2025-100000", latest)
}

func TestGormStore_LatestWithPrefix_EscapesWildcards(t *testing.T) {
	db := setupTestDB(t)
	store := NewGormStore(db, "test_documents", "number")

	// "_" would match any character if it were not escaped.
	insertDocuments(t, db, "AB-2025-00042", "A!B-2025-00007")

	_, found, err := store.LatestWithPrefix(context.Background(), "A_-2025-")
	require.NoError(t, err)
	assert.False(t, found)

	latest, found, err := store.LatestWithPrefix(context.Background(), "A!B-2025-")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "A!B-2025-00007", latest)
}

func TestGormStore_LatestWithPrefix_CountsSoftDeleted(t *testing.T) {
	db := setupTestDB(t)
	store := NewGormStore(db, "test_documents", "number")

	insertDocuments(t, db, "MC-SW-2025-0001", "MC-SW-2025-0002")
	require.NoError(t, db.Where("number = ?", "MC-SW-2025-0002").Delete(&testDocument{}).Error)

	latest, found, err := store.LatestWithPrefix(context.Background(), "MC-SW-2025-")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "MC-SW-2025-0002", latest)
}

func TestGormStore_LatestWithPrefix_CaseSensitive(t *testing.T) {
	db := setupTestDB(t)
	store := NewGormStore(db, "test_documents", "number")
	ctx := context.Background()

	insertDocuments(t, db, "1403-AB12-00003")

	_, found, err := store.LatestWithPrefix(ctx, "1403-ab12-")
	require.NoError(t, err)
	assert.False(t, found)

	insertDocuments(t, db, "1403-ab12-00001")

	latest, found, err := store.LatestWithPrefix(ctx, "1403-ab12-")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "1403-ab12-00001", latest)

	latest, found, err = store.LatestWithPrefix(ctx, "1403-AB12-")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "1403-AB12-00003", latest)
}

func TestGormStore_LatestWithPrefix_NonASCIIPrefix(t *testing.T) {
	db := setupTestDB(t)
	store := NewGormStore(db, "test_documents", "number")

	insertDocuments(t, db, "1403-کد-00002", "1403-کدا-00009")

	latest, found, err := store.LatestWithPrefix(context.Background(), "1403-کد-")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "1403-کد-00002", latest)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, "REF-2025-", escapeLike("REF-2025-"))
	assert.Equal(t, "a!%b!_c!!", escapeLike("a%b_c!"))
}
