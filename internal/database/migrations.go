package database

import (
	"fmt"
	"log"
	"time"

	"github.com/FarukBas12/servistakip-sub001/internal/models"

	"gorm.io/gorm"
)

// Migration: sıralı, tek başına idempotent şema adımı.
// Uygulananlar schema_migrations tablosuna yazılır.
type Migration struct {
	Version string
	Name    string
	Up      func(tx *gorm.DB) error
}

var Migrations = []Migration{
	{
		Version: "0001",
		Name:    "base_schema",
		Up: func(tx *gorm.DB) error {
			return tx.AutoMigrate(models.All()...)
		},
	},
	{
		Version: "0002",
		Name:    "task_assignments_backfill",
		Up:      backfillTaskAssignments,
	},
	{
		Version: "0003",
		Name:    "project_expense_stock_link",
		Up: func(tx *gorm.DB) error {
			_, err := addColumnIfMissing(tx, &models.ProjectExpense{}, "StockTransactionID")
			return err
		},
	},
	{
		Version: "0004",
		Name:    "stock_initial_quantity",
		Up:      addStockInitialQuantity,
	},
	{
		Version: "0005",
		Name:    "ledger_indexes",
		Up: func(tx *gorm.DB) error {
			stmts := []string{
				"CREATE INDEX IF NOT EXISTS idx_stock_transactions_stock_created ON stock_transactions (stock_id, created_at)",
				"CREATE INDEX IF NOT EXISTS idx_task_assignments_user ON task_assignments (user_id)",
				"CREATE INDEX IF NOT EXISTS idx_payments_sub_status ON payments (subcontractor_id, status)",
			}
			for _, s := range stmts {
				if err := tx.Exec(s).Error; err != nil {
					return err
				}
			}
			return nil
		},
	},
}

func Migrate(db *gorm.DB) error {
	return Run(db, Migrations)
}

// Run: uygulanmamış migration'ları sırayla, her biri kendi transaction'ında çalıştırır
func Run(db *gorm.DB, migrations []Migration) error {
	if err := db.AutoMigrate(&models.SchemaMigration{}); err != nil {
		return fmt.Errorf("schema_migrations oluşturulamadı: %w", err)
	}

	var applied []models.SchemaMigration
	if err := db.Find(&applied).Error; err != nil {
		return fmt.Errorf("uygulanmış migration'lar okunamadı: %w", err)
	}
	done := make(map[string]bool, len(applied))
	for _, m := range applied {
		done[m.Version] = true
	}

	for _, m := range migrations {
		if done[m.Version] {
			continue
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := m.Up(tx); err != nil {
				return err
			}
			return tx.Create(&models.SchemaMigration{
				Version:   m.Version,
				Name:      m.Name,
				AppliedAt: time.Now().UTC(),
			}).Error
		})
		if err != nil {
			return fmt.Errorf("migration %s_%s başarısız: %w", m.Version, m.Name, err)
		}
		log.Printf("Migration uygulandı: %s_%s", m.Version, m.Name)
	}
	return nil
}

// addColumnIfMissing: kolon yoksa ekler, eklendiyse true döner
func addColumnIfMissing(tx *gorm.DB, model any, field string) (bool, error) {
	m := tx.Migrator()
	if m.HasColumn(model, field) {
		return false, nil
	}
	if err := m.AddColumn(model, field); err != nil {
		return false, err
	}
	return true, nil
}

// Eski tek-atama kolonundaki (tasks.assigned_to) değerleri join tablosuna taşır
func backfillTaskAssignments(tx *gorm.DB) error {
	return tx.Exec(`
		INSERT INTO task_assignments (task_id, user_id, created_at)
		SELECT t.id, t.assigned_to, CURRENT_TIMESTAMP
		FROM tasks t
		WHERE t.assigned_to IS NOT NULL
		AND NOT EXISTS (
			SELECT 1 FROM task_assignments a
			WHERE a.task_id = t.id AND a.user_id = t.assigned_to
		)
	`).Error
}

// initial_quantity eski şemada yoktu. Kolonu 0004 veya (schema_migrations hiç yoksa)
// 0001'in AutoMigrate'i varsayılan 0 ile ekleyebilir; bu yüzden karar kolona değil veriye
// bakar: initial_quantity = 0 olan her kalem defterden geriye doğru hesaplanır,
// initial = quantity - Σin + Σout. Tutarlı kalemlerde sonuç zaten 0'dır.
func addStockInitialQuantity(tx *gorm.DB) error {
	if _, err := addColumnIfMissing(tx, &models.Stock{}, "InitialQuantity"); err != nil {
		return err
	}
	return tx.Exec(`
		UPDATE stocks SET initial_quantity = quantity - COALESCE((
			SELECT SUM(CASE WHEN st.type = 'in' THEN st.quantity ELSE -st.quantity END)
			FROM stock_transactions st
			WHERE st.stock_id = stocks.id
		), 0)
		WHERE initial_quantity = 0
	`).Error
}
