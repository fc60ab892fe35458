package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentPaid      PaymentStatus = "paid"
	PaymentCancelled PaymentStatus = "cancelled"
)

func (s PaymentStatus) Valid() bool {
	return s == PaymentPending || s == PaymentPaid || s == PaymentCancelled
}

// Payment: hakediş. TotalAmount kalemlerin toplamıdır, yazma anında hesaplanır.
type Payment struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	SubcontractorID uint            `gorm:"index;not null" json:"subcontractor_id"`
	Title           string          `gorm:"size:200;not null" json:"title"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"total_amount"`
	Status          PaymentStatus   `gorm:"size:20;not null;default:pending;index" json:"status"`
	PaymentDate     time.Time       `gorm:"index;not null" json:"payment_date"`
	Items           []PaymentItem   `gorm:"foreignKey:PaymentID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type PaymentItem struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	PaymentID       uint            `gorm:"index;not null" json:"payment_id"`
	PriceListItemID *uint           `json:"price_list_item_id"`
	WorkItem        string          `gorm:"size:200;not null" json:"work_item"`
	Detail          string          `gorm:"size:500" json:"detail"`
	Quantity        decimal.Decimal `gorm:"type:decimal(14,3);not null" json:"quantity"`
	UnitPrice       decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"unit_price"`
	TotalPrice      decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"total_price"`
}
