package docnum

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"
)

// Store finds the highest identifier already stored for a scope.
type Store interface {
	// LatestWithPrefix returns the maximal identifier that begins with prefix.
	// found is false when the scope has no identifiers yet.
	LatestWithPrefix(ctx context.Context, prefix string) (id string, found bool, err error)
}

// likeEscape is the escape character used in prefix LIKE patterns. It is not
// a backslash so the same SQL works under PostgreSQL and SQLite.
const likeEscape = "!"

var likeReplacer = strings.NewReplacer(
	likeEscape, likeEscape+likeEscape,
	"%", likeEscape+"%",
	"_", likeEscape+"_",
)

// escapeLike escapes LIKE wildcards in a literal prefix.
func escapeLike(s string) string {
	return likeReplacer.Replace(s)
}

// GormStore reads identifiers from a column of a gorm-managed table.
//
// The table is queried by name, so rows soft-deleted through gorm.DeletedAt
// still count towards the maximum and their serials are never reissued.
type GormStore struct {
	db     *gorm.DB
	table  string
	column string
}

// NewGormStore creates a store over table.column. Both names are trusted
// identifiers supplied by code, never by request input.
func NewGormStore(db *gorm.DB, table, column string) *GormStore {
	return &GormStore{
		db:     db,
		table:  table,
		column: column,
	}
}

// LatestWithPrefix implements Store.
//
// LIKE narrows the candidates through the column index, but SQLite matches it
// without regard to ASCII case, so the prefix is also compared exactly.
// Ordering by length first keeps the maximum correct once a serial outgrows
// its padding width ("100000" sorts before "99999" as plain text).
func (s *GormStore) LatestWithPrefix(ctx context.Context, prefix string) (string, bool, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Table(s.table).
		Where(fmt.Sprintf("%s LIKE ? ESCAPE '%s'", s.column, likeEscape), escapeLike(prefix)+"%").
		Where(fmt.Sprintf("SUBSTR(%s, 1, %d) = ?", s.column, utf8.RuneCountInString(prefix)), prefix).
		Order(fmt.Sprintf("LENGTH(%s) DESC", s.column)).
		Order(fmt.Sprintf("%s DESC", s.column)).
		Limit(1).
		Pluck(s.column, &ids).
		Error
	if err != nil {
		return "", false, fmt.Errorf("error finding latest %s.%s with prefix %q: %w",
			s.table, s.column, prefix, err)
	}

	if len(ids) == 0 {
		return "", false, nil
	}
	return ids[0], true, nil
}
