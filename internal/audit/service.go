package audit

import (
	"encoding/json"
	"fmt"
	"log"
	"unicode/utf8"

	"github.com/FarukBas12/servistakip-sub001/internal/models"

	"gorm.io/gorm"
)

// description kolonu 255 karakter
const maxDescription = 255

type LogOptions struct {
	UserID      uint
	UserName    string
	EntityType  string
	EntityID    uint
	Action      models.AuditAction
	Description string
	Before      any // nil ise "null"
	After       any
}

// snapshot: kaydın JSON hali; serileştirilemeyen değer "null" olarak yazılır
func snapshot(v any) string {
	if v == nil {
		return "null"
	}
	b, err := json.Marshal(v)
	if err != nil {
		log.Printf("[WARN] audit snapshot serileştirilemedi: %v", err)
		return "null"
	}
	return string(b)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-3]) + "..."
}

func (o LogOptions) toModel() models.AuditLog {
	return models.AuditLog{
		UserID:      o.UserID,
		UserName:    o.UserName,
		EntityType:  o.EntityType,
		EntityID:    o.EntityID,
		Action:      o.Action,
		Description: truncate(o.Description, maxDescription),
		BeforeData:  snapshot(o.Before),
		AfterData:   snapshot(o.After),
	}
}

func WriteLog(db *gorm.DB, opts LogOptions) error {
	entry := opts.toModel()
	if err := db.Create(&entry).Error; err != nil {
		return fmt.Errorf("audit log kaydedilemedi: %w", err)
	}
	return nil
}

// Record: hata döndürmez; ana işlem audit yüzünden geri alınmaz
func Record(db *gorm.DB, opts LogOptions) {
	if err := WriteLog(db, opts); err != nil {
		log.Printf("[WARN] %v (%s #%d)", err, opts.EntityType, opts.EntityID)
	}
}
