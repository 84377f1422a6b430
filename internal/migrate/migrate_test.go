package migrate

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()

	// The "sqlite" driver is registered by the golang-migrate sqlite package.
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "commission.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestRunMigrations_SQLite(t *testing.T) {
	db := openSQLite(t)

	require.NoError(t, RunMigrations(db, "sqlite", nil))

	version, dirty, err := GetMigrationVersion(db, "sqlite")
	require.NoError(t, err)
	assert.Equal(t, uint(3), version)
	assert.False(t, dirty)

	for _, table := range []string{
		"insured_persons",
		"cases",
		"case_timelines",
		"social_work_cases",
		"referral_letters",
		"identifier_counters",
		"event_outbox",
	} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
		assert.NoError(t, err, "table %s", table)
	}
}

func TestRunMigrations_Idempotent(t *testing.T) {
	db := openSQLite(t)

	require.NoError(t, RunMigrations(db, "sqlite", nil))
	require.NoError(t, RunMigrations(db, "sqlite", nil))
}

func TestRunMigrations_CaseNumberIsUnique(t *testing.T) {
	db := openSQLite(t)
	require.NoError(t, RunMigrations(db, "sqlite", nil))

	_, err := db.Exec(`INSERT INTO insured_persons (id, national_id, personnel_code, first_name, last_name, birth_date)
		VALUES ('6f1c1c2e-8a4b-4b7e-9a53-0c2d8d7e2f11', '0012345678', '12345', 'Ali', 'Karimi', '1980-01-01 00:00:00')`)
	require.NoError(t, err)

	insert := `INSERT INTO cases (id, case_number, insured_person_id, commission_level)
		VALUES (?, '1403-12345-00001', '6f1c1c2e-8a4b-4b7e-9a53-0c2d8d7e2f11', 'PROVINCIAL')`
	_, err = db.Exec(insert, "0b8e9c5a-2b0f-4f43-8b55-1f4ad3f0c001")
	require.NoError(t, err)

	_, err = db.Exec(insert, "0b8e9c5a-2b0f-4f43-8b55-1f4ad3f0c002")
	assert.Error(t, err)
}

func TestRunMigrations_UnsupportedDriver(t *testing.T) {
	err := RunMigrations(nil, "mysql", nil)
	assert.Error(t, err)
}
