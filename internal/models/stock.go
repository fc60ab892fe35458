package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type StockTransactionType string

const (
	StockIn  StockTransactionType = "in"
	StockOut StockTransactionType = "out"
)

func (t StockTransactionType) Valid() bool {
	return t == StockIn || t == StockOut
}

// Opposite: telafi (ters) kaydı için karşı yön
func (t StockTransactionType) Opposite() StockTransactionType {
	if t == StockIn {
		return StockOut
	}
	return StockIn
}

// Stock: depo kalemi. Quantity yalnızca stok hareketleriyle değişir;
// quantity == initial_quantity + Σ(in) - Σ(out)
type Stock struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	Name            string          `gorm:"size:150;not null" json:"name"`
	Category        string          `gorm:"size:100;index" json:"category"`
	Unit            string          `gorm:"size:20;not null" json:"unit"`
	Quantity        decimal.Decimal `gorm:"type:decimal(14,3);not null;default:0" json:"quantity"`
	InitialQuantity decimal.Decimal `gorm:"type:decimal(14,3);not null;default:0" json:"initial_quantity"`
	CriticalLevel   decimal.Decimal `gorm:"type:decimal(14,3);not null;default:0" json:"critical_level"`
	SupplierID      *uint           `gorm:"index" json:"supplier_id"`

	Transactions []StockTransaction `gorm:"foreignKey:StockID;constraint:OnDelete:CASCADE" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsLow: kritik seviye tanımlıysa ve miktar bu seviyeye inmişse true
func (s Stock) IsLow() bool {
	return s.CriticalLevel.IsPositive() && s.Quantity.LessThanOrEqual(s.CriticalLevel)
}

// StockTransaction: stok defteri kaydı (append-only)
type StockTransaction struct {
	ID          uint                 `gorm:"primaryKey" json:"id"`
	StockID     uint                 `gorm:"index;not null" json:"stock_id"`
	Type        StockTransactionType `gorm:"size:10;not null" json:"type"`
	Quantity    decimal.Decimal      `gorm:"type:decimal(14,3);not null" json:"quantity"`
	Description string               `gorm:"size:500" json:"description"`
	ProjectID   *uint                `gorm:"index" json:"project_id"` // zayıf referans, cascade yok
	UserID      uint                 `gorm:"index" json:"user_id"`

	// Telafi kaydıysa ters çevrilen orijinal hareket; her hareket en fazla bir kez ters çevrilir
	ReversalOfID *uint `gorm:"uniqueIndex" json:"reversal_of_id"`

	CreatedAt time.Time `json:"created_at"`
}

// Delta: stok miktarına işaretli etki
func (t StockTransaction) Delta() decimal.Decimal {
	if t.Type == StockOut {
		return t.Quantity.Neg()
	}
	return t.Quantity
}
