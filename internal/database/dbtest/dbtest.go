// Package dbtest opens migrated in-memory SQLite databases for tests.
package dbtest

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/FarukBas12/servistakip-sub001/internal/database"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var seq atomic.Int64

// New: teste özel, migration'ı yapılmış bellek içi veritabanı.
// Tek bağlantı ile sınırlıdır; eşzamanlı yazmalar sıraya girer.
func New(t testing.TB) *gorm.DB {
	t.Helper()
	db := NewEmpty(t)
	require.NoError(t, database.Migrate(db))
	return db
}

// NewEmpty: migration çalıştırılmamış veritabanı
func NewEmpty(t testing.TB) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, seq.Add(1))

	db, err := database.Open("sqlite", dsn, logger.Silent)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}
