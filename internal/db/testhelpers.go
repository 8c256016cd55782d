package db

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/agorhour/agorhour/internal/models"
)

// OpenTest opens an in-memory SQLite database with the full schema migrated,
// for use in tests. Foreign keys are on so cascade deletes behave like
// production; the pool is pinned to one connection because every new
// connection to :memory: would otherwise see a fresh, empty database.
func OpenTest(t *testing.T) *gorm.DB {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open("file::memory:?_pragma=foreign_keys(1)"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, gdb.AutoMigrate(
		&models.HourQuestion{},
		&models.AnonSession{},
		&models.Answer{},
		&models.Reaction{},
	))
	return gdb
}
