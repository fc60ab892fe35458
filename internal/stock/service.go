package stock

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/FarukBas12/servistakip-sub001/internal/apperr"
	"github.com/FarukBas12/servistakip-sub001/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrInsufficientStock = apperr.Conflict("Yetersiz stok")
	ErrAlreadyReversed   = apperr.Conflict("Bu stok hareketi zaten geri alınmış")
)

type Service struct {
	DB            *gorm.DB
	AllowNegative bool
}

func NewService(db *gorm.DB, allowNegative bool) *Service {
	return &Service{DB: db, AllowNegative: allowNegative}
}

type CreateItemInput struct {
	Name          string
	Category      string
	Unit          string
	Quantity      decimal.Decimal
	CriticalLevel decimal.Decimal
	SupplierID    *uint
}

// UpdateItemInput: miktar burada yok, yalnızca hareketlerle değişir
type UpdateItemInput struct {
	Name          string
	Category      string
	Unit          string
	CriticalLevel decimal.Decimal
	SupplierID    *uint
}

type ItemFilter struct {
	Category string
	Search   string
	LowOnly  bool
}

type ApplyInput struct {
	StockID     uint
	Type        models.StockTransactionType
	Quantity    decimal.Decimal
	Description string
	ProjectID   *uint
	UserID      uint

	reversalOf *uint
}

type ApplyResult struct {
	Transaction models.StockTransaction `json:"transaction"`
	Stock       models.Stock            `json:"stock"`
}

// LedgerCheck: quantity == initial + Σin - Σout kontrolü
type LedgerCheck struct {
	StockID    uint            `json:"stock_id"`
	Initial    decimal.Decimal `json:"initial_quantity"`
	TotalIn    decimal.Decimal `json:"total_in"`
	TotalOut   decimal.Decimal `json:"total_out"`
	Expected   decimal.Decimal `json:"expected"`
	Actual     decimal.Decimal `json:"actual"`
	Drift      decimal.Decimal `json:"drift"`
	Consistent bool            `json:"consistent"`
}

func (s *Service) CreateItem(ctx context.Context, in CreateItemInput) (*models.Stock, error) {
	if err := checkItemFields(in.Name, in.Unit, in.CriticalLevel); err != nil {
		return nil, err
	}
	if in.Quantity.IsNegative() {
		return nil, apperr.InvalidInput("Başlangıç miktarı negatif olamaz")
	}
	db := s.DB.WithContext(ctx)
	if err := checkSupplier(db, in.SupplierID); err != nil {
		return nil, err
	}

	item := models.Stock{
		Name:            strings.TrimSpace(in.Name),
		Category:        strings.TrimSpace(in.Category),
		Unit:            strings.TrimSpace(in.Unit),
		Quantity:        in.Quantity,
		InitialQuantity: in.Quantity,
		CriticalLevel:   in.CriticalLevel,
		SupplierID:      in.SupplierID,
	}
	if err := db.Create(&item).Error; err != nil {
		return nil, fmt.Errorf("stok kalemi oluşturulamadı: %w", err)
	}
	return &item, nil
}

func (s *Service) UpdateItem(ctx context.Context, id uint, in UpdateItemInput) (*models.Stock, error) {
	if err := checkItemFields(in.Name, in.Unit, in.CriticalLevel); err != nil {
		return nil, err
	}
	db := s.DB.WithContext(ctx)
	item, err := s.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkSupplier(db, in.SupplierID); err != nil {
		return nil, err
	}

	err = db.Model(item).Updates(map[string]any{
		"name":           strings.TrimSpace(in.Name),
		"category":       strings.TrimSpace(in.Category),
		"unit":           strings.TrimSpace(in.Unit),
		"critical_level": in.CriticalLevel,
		"supplier_id":    in.SupplierID,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("stok kalemi güncellenemedi: %w", err)
	}
	return s.GetItem(ctx, id)
}

func (s *Service) GetItem(ctx context.Context, id uint) (*models.Stock, error) {
	var item models.Stock
	if err := s.DB.WithContext(ctx).First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Stok kalemi bulunamadı")
		}
		return nil, err
	}
	return &item, nil
}

func (s *Service) ListItems(ctx context.Context, f ItemFilter) ([]models.Stock, error) {
	q := s.DB.WithContext(ctx).Model(&models.Stock{})
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Search != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(f.Search)+"%")
	}
	if f.LowOnly {
		q = q.Where("critical_level > 0 AND quantity <= critical_level")
	}
	var items []models.Stock
	err := q.Order("name ASC").Find(&items).Error
	return items, err
}

// DeleteItem: kalemi hareketleriyle birlikte siler
func (s *Service) DeleteItem(ctx context.Context, id uint) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("stock_id = ?", id).Delete(&models.StockTransaction{}).Error; err != nil {
			return fmt.Errorf("stok hareketleri silinemedi: %w", err)
		}
		res := tx.Delete(&models.Stock{}, id)
		if res.Error != nil {
			return fmt.Errorf("stok kalemi silinemedi: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("Stok kalemi bulunamadı")
		}
		return nil
	})
}

func (s *Service) Apply(ctx context.Context, in ApplyInput) (*ApplyResult, error) {
	var result *ApplyResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		result, err = s.ApplyTx(tx, in)
		return err
	})
	if err != nil {
		if apperr.IsKind(err, apperr.KindConsistency) {
			log.Printf("[ERROR] Stok hareketi geri alındı (stok #%d): %v", in.StockID, err)
		}
		return nil, err
	}
	return result, nil
}

// ApplyTx: hareketi çağıranın transaction'ı içinde uygular.
// Miktar güncellemesi ve yetersiz stok kontrolü tek UPDATE ile yapılır.
func (s *Service) ApplyTx(tx *gorm.DB, in ApplyInput) (*ApplyResult, error) {
	if !in.Type.Valid() {
		return nil, apperr.InvalidInput("Geçersiz hareket tipi: %s", in.Type)
	}
	if !in.Quantity.IsPositive() {
		return nil, apperr.InvalidInput("Miktar sıfırdan büyük olmalı")
	}

	delta := in.Quantity
	if in.Type == models.StockOut {
		delta = delta.Neg()
	}

	q := tx.Model(&models.Stock{}).Where("id = ?", in.StockID)
	if in.Type == models.StockOut && !s.AllowNegative {
		q = q.Where("quantity >= ?", in.Quantity)
	}
	res := q.Update("quantity", gorm.Expr("quantity + ?", delta))
	if res.Error != nil {
		return nil, apperr.Consistency("Stok miktarı güncellenemedi", res.Error)
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := tx.Model(&models.Stock{}).Where("id = ?", in.StockID).Count(&count).Error; err != nil {
			return nil, apperr.Consistency("Stok kalemi okunamadı", err)
		}
		if count == 0 {
			return nil, apperr.NotFound("Stok kalemi bulunamadı")
		}
		return nil, ErrInsufficientStock
	}

	txn := models.StockTransaction{
		StockID:      in.StockID,
		Type:         in.Type,
		Quantity:     in.Quantity,
		Description:  strings.TrimSpace(in.Description),
		ProjectID:    in.ProjectID,
		UserID:       in.UserID,
		ReversalOfID: in.reversalOf,
	}
	if err := tx.Create(&txn).Error; err != nil {
		// eşzamanlı iki geri alma isReversed'i birlikte geçebilir; kaybeden unique index'e takılır
		if in.reversalOf != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAlreadyReversed
		}
		return nil, apperr.Consistency("Stok hareketi kaydedilemedi", err)
	}

	var item models.Stock
	if err := tx.First(&item, in.StockID).Error; err != nil {
		return nil, apperr.Consistency("Stok kalemi okunamadı", err)
	}

	return &ApplyResult{Transaction: txn, Stock: item}, nil
}

// Reverse: hareketin etkisini ters yönlü telafi kaydıyla geri alır
func (s *Service) Reverse(ctx context.Context, txnID uint, description string, userID uint) (*ApplyResult, error) {
	var result *ApplyResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		result, err = s.ReverseTx(tx, txnID, description, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) ReverseTx(tx *gorm.DB, txnID uint, description string, userID uint) (*ApplyResult, error) {
	var orig models.StockTransaction
	if err := tx.First(&orig, txnID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Stok hareketi bulunamadı")
		}
		return nil, apperr.Consistency("Stok hareketi okunamadı", err)
	}
	if orig.ReversalOfID != nil {
		return nil, apperr.Conflict("Telafi kaydı tekrar geri alınamaz")
	}
	reversed, err := isReversed(tx, orig.ID)
	if err != nil {
		return nil, err
	}
	if reversed {
		return nil, ErrAlreadyReversed
	}
	return s.reverse(tx, orig, description, userID)
}

// ReverseForExpenseTx: giderin bağlı olduğu stok çıkışını geri alır.
// Bağ yoksa, hareket silinmişse veya zaten geri alınmışsa hiçbir şey yapmaz.
func (s *Service) ReverseForExpenseTx(tx *gorm.DB, expense *models.ProjectExpense, userID uint) (*ApplyResult, error) {
	if expense.StockTransactionID == nil {
		return nil, nil
	}
	var orig models.StockTransaction
	if err := tx.First(&orig, *expense.StockTransactionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperr.Consistency("Stok hareketi okunamadı", err)
	}
	reversed, err := isReversed(tx, orig.ID)
	if err != nil {
		return nil, err
	}
	if reversed {
		return nil, nil
	}
	desc := fmt.Sprintf("Gider silindi: %s", expense.Description)
	return s.reverse(tx, orig, desc, userID)
}

func (s *Service) reverse(tx *gorm.DB, orig models.StockTransaction, description string, userID uint) (*ApplyResult, error) {
	if strings.TrimSpace(description) == "" {
		description = fmt.Sprintf("Geri alındı: hareket #%d", orig.ID)
	}
	return s.ApplyTx(tx, ApplyInput{
		StockID:     orig.StockID,
		Type:        orig.Type.Opposite(),
		Quantity:    orig.Quantity,
		Description: description,
		ProjectID:   orig.ProjectID,
		UserID:      userID,
		reversalOf:  &orig.ID,
	})
}

func isReversed(tx *gorm.DB, txnID uint) (bool, error) {
	var count int64
	if err := tx.Model(&models.StockTransaction{}).Where("reversal_of_id = ?", txnID).Count(&count).Error; err != nil {
		return false, apperr.Consistency("Stok hareketi okunamadı", err)
	}
	return count > 0, nil
}

// ListTransactions: en yeni önce, sayfalı
func (s *Service) ListTransactions(ctx context.Context, stockID uint, page, limit int) ([]models.StockTransaction, int64, error) {
	if _, err := s.GetItem(ctx, stockID); err != nil {
		return nil, 0, err
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}

	db := s.DB.WithContext(ctx)
	var total int64
	if err := db.Model(&models.StockTransaction{}).Where("stock_id = ?", stockID).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []models.StockTransaction
	err := db.Where("stock_id = ?", stockID).Order("created_at DESC, id DESC").Offset((page - 1) * limit).Limit(limit).Find(&list).Error
	return list, total, err
}

func (s *Service) LowStock(ctx context.Context) ([]models.Stock, error) {
	return s.ListItems(ctx, ItemFilter{LowOnly: true})
}

func (s *Service) Reconcile(ctx context.Context, stockID uint) (*LedgerCheck, error) {
	item, err := s.GetItem(ctx, stockID)
	if err != nil {
		return nil, err
	}

	var totalIn, totalOut decimal.Decimal
	err = s.DB.WithContext(ctx).Model(&models.StockTransaction{}).
		Select(`COALESCE(SUM(CASE WHEN type = ? THEN quantity ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN type = ? THEN quantity ELSE 0 END), 0)`, models.StockIn, models.StockOut).
		Where("stock_id = ?", stockID).
		Row().Scan(&totalIn, &totalOut)
	if err != nil {
		return nil, fmt.Errorf("stok defteri toplanamadı: %w", err)
	}

	expected := item.InitialQuantity.Add(totalIn).Sub(totalOut)
	drift := item.Quantity.Sub(expected)
	return &LedgerCheck{
		StockID:    item.ID,
		Initial:    item.InitialQuantity,
		TotalIn:    totalIn,
		TotalOut:   totalOut,
		Expected:   expected,
		Actual:     item.Quantity,
		Drift:      drift,
		Consistent: drift.IsZero(),
	}, nil
}

func checkItemFields(name, unit string, critical decimal.Decimal) error {
	if strings.TrimSpace(name) == "" {
		return apperr.InvalidInput("Stok adı zorunlu")
	}
	if strings.TrimSpace(unit) == "" {
		return apperr.InvalidInput("Birim zorunlu")
	}
	if critical.IsNegative() {
		return apperr.InvalidInput("Kritik seviye negatif olamaz")
	}
	return nil
}

func checkSupplier(db *gorm.DB, supplierID *uint) error {
	if supplierID == nil {
		return nil
	}
	var count int64
	if err := db.Model(&models.Supplier{}).Where("id = ?", *supplierID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return apperr.InvalidInput("Tedarikçi bulunamadı")
	}
	return nil
}
