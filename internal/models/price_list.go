package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceListItem: hakediş kalemlerinde kullanılan iş kalemi / birim fiyat kataloğu
type PriceListItem struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	WorkItem  string          `gorm:"size:200;not null;index" json:"work_item"`
	Unit      string          `gorm:"size:20;not null" json:"unit"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"unit_price"`
	Active    bool            `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
