package database

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/FarukBas12/servistakip-sub001/internal/config"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Init: bağlantıyı açar, migration'ları çalıştırır ve global DB'yi set eder
func Init(cfg *config.Config) *gorm.DB {
	db, err := Open(cfg.DatabaseDriver, cfg.DatabaseDSN, ParseLogLevel(cfg.DBLogLevel))
	if err != nil {
		log.Fatalf("Veritabanına bağlanılamadı: %v", err)
	}

	if err := Migrate(db); err != nil {
		log.Fatalf("Migration hatası: %v", err)
	}

	DB = db
	log.Println("Veritabanı bağlantısı başarılı. Migration tamamlandı.")
	return db
}

// Open: sürücüye göre gorm bağlantısı açar (postgres production, sqlite geliştirme/test)
func Open(driver, dsn string, level logger.LogLevel) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("desteklenmeyen veritabanı sürücüsü: %s", driver)
	}

	gormLogger := logger.New(
		log.New(os.Stdout, "[GORM] ", log.LstdFlags),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	// TranslateError: unique ihlalleri sürücüden bağımsız gorm.ErrDuplicatedKey olarak gelir
	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLogger, TranslateError: true})
	if err != nil {
		return nil, err
	}

	if driver == "postgres" {
		if err := db.Exec(`SET TIME ZONE 'UTC'`).Error; err != nil {
			log.Printf("[WARN] Timezone UTC yapılamadı: %v", err)
		}
	}
	return db, nil
}

func ParseLogLevel(s string) logger.LogLevel {
	switch s {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}
