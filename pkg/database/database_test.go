package database

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestConfig_DSN(t *testing.T) {
	pg := Config{Host: "db", Port: 5432, User: "commission", Password: "secret", DBName: "commission"}
	assert.Equal(t, "host=db port=5432 user=commission password=secret dbname=commission sslmode=disable", pg.DSN())

	pg.SSLMode = "require"
	assert.Contains(t, pg.DSN(), "sslmode=require")

	lite := Config{Driver: DriverSQLite, Path: "/tmp/commission.db"}
	assert.Equal(t, "/tmp/commission.db?_busy_timeout=5000&_foreign_keys=on", lite.DSN())
}

func TestConnect_SQLite(t *testing.T) {
	cfg := Config{
		Driver: DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "commission.db"),
	}

	db, err := Connect(cfg, hclog.NewNullLogger())
	require.NoError(t, err)

	require.NoError(t, Ping(context.Background(), db))

	stats, err := GetPoolStats(db)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.MaxOpenConnections, "sqlite serializes writers on one connection")
	assert.Equal(t, stats.OpenConnections, stats.InUse+stats.Idle)
}

func TestConnect_TranslatesUniqueViolations(t *testing.T) {
	db, err := Connect(Config{
		Driver: DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "commission.db"),
	}, nil)
	require.NoError(t, err)

	type numbered struct {
		ID     uint   `gorm:"primaryKey"`
		Number string `gorm:"uniqueIndex"`
	}
	require.NoError(t, db.AutoMigrate(&numbered{}))
	require.NoError(t, db.Create(&numbered{Number: "REF-2025-00001"}).Error)

	err = db.Create(&numbered{Number: "REF-2025-00001"}).Error
	assert.True(t, errors.Is(err, gorm.ErrDuplicatedKey), "got %v", err)
}

func TestConnect_Errors(t *testing.T) {
	_, err := Connect(Config{Driver: "mysql"}, nil)
	assert.Error(t, err)

	_, err = Connect(Config{Driver: DriverSQLite}, nil)
	assert.Error(t, err)
}

func TestGormLogger_Trace(t *testing.T) {
	var buf bytes.Buffer
	log := hclog.New(&hclog.LoggerOptions{
		Output: &buf,
		Level:  hclog.Debug,
	})
	l := NewGormLogger(log, 50*time.Millisecond)
	sql := func() (string, int64) { return "INSERT INTO cases ...", 1 }

	l.Trace(context.Background(), time.Now(), sql, errors.New("UNIQUE constraint failed: cases.case_number"))
	assert.Contains(t, buf.String(), "[DEBUG]")
	assert.Contains(t, buf.String(), "database query rejected")
	buf.Reset()

	l.Trace(context.Background(), time.Now(), sql, errors.New("disk I/O error"))
	assert.Contains(t, buf.String(), "[ERROR]")
	assert.Contains(t, buf.String(), "database query failed")
	buf.Reset()

	l.Trace(context.Background(), time.Now().Add(-time.Second), sql, nil)
	assert.Contains(t, buf.String(), "[WARN]")
	assert.Contains(t, buf.String(), "slow database query")
	buf.Reset()

	l.LogMode(logger.Silent).Trace(context.Background(), time.Now(), sql, errors.New("disk I/O error"))
	assert.Empty(t, buf.String())
}
