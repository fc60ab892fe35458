package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Subcontractor: taşeron. Bakiye saklanmaz, her okumada hesaplanır.
type Subcontractor struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:150;not null" json:"name"`
	Phone     string    `gorm:"size:30" json:"phone"`
	Notes     string    `gorm:"size:500" json:"notes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CashTransaction: taşerona yapılan nakit/havale ödemesi
type CashTransaction struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	SubcontractorID uint            `gorm:"index;not null" json:"subcontractor_id"`
	Amount          decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"amount"`
	Description     string          `gorm:"size:500" json:"description"`
	Date            time.Time       `gorm:"index;not null" json:"date"`
	UserID          uint            `json:"user_id"`
	CreatedAt       time.Time       `json:"created_at"`
}
