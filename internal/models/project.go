package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "active"
	ProjectCompleted ProjectStatus = "completed"
)

type Project struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	Name        string        `gorm:"size:200;not null" json:"name"`
	Description string        `gorm:"type:text" json:"description"`
	Status      ProjectStatus `gorm:"size:20;not null;default:active;index" json:"status"`
	RegionID    *uint         `gorm:"index" json:"region_id"`
	StartDate   *time.Time    `json:"start_date"`
	EndDate     *time.Time    `json:"end_date"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// ProjectExpense: proje gideri. Malzeme tüketildiyse StockTransactionID
// oluşan stok çıkışını gösterir (zayıf referans).
type ProjectExpense struct {
	ID                 uint            `gorm:"primaryKey" json:"id"`
	ProjectID          uint            `gorm:"index;not null" json:"project_id"`
	Description        string          `gorm:"size:500;not null" json:"description"`
	Amount             decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"amount"`
	Date               time.Time       `gorm:"index;not null" json:"date"`
	StockTransactionID *uint           `gorm:"index" json:"stock_transaction_id"`
	UserID             uint            `json:"user_id"`
	CreatedAt          time.Time       `json:"created_at"`
}

type ProjectFile struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ProjectID  uint      `gorm:"index;not null" json:"project_id"`
	FileName   string    `gorm:"size:255;not null" json:"file_name"`
	StoredName string    `gorm:"size:255;not null" json:"-"`
	MimeType   string    `gorm:"size:100" json:"mime_type"`
	Size       int64     `json:"size"`
	UploadedBy uint      `json:"uploaded_by"`
	CreatedAt  time.Time `json:"created_at"`
}
