package subcontractor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/FarukBas12/servistakip-sub001/internal/apperr"
	"github.com/FarukBas12/servistakip-sub001/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Service struct {
	DB *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{DB: db}
}

type Input struct {
	Name  string
	Phone string
	Notes string
}

// Balance: Σ(iptal edilmemiş hakedişler) - Σ(nakit ödemeler)
type Balance struct {
	SubcontractorID uint            `json:"subcontractor_id"`
	TotalPayments   decimal.Decimal `json:"total_payments"`
	TotalCash       decimal.Decimal `json:"total_cash"`
	Balance         decimal.Decimal `json:"balance"`
}

type WithBalance struct {
	models.Subcontractor
	TotalPayments decimal.Decimal `json:"total_payments"`
	TotalCash     decimal.Decimal `json:"total_cash"`
	Balance       decimal.Decimal `json:"balance"`
}

type CashInput struct {
	SubcontractorID uint
	Amount          decimal.Decimal
	Description     string
	Date            time.Time
	UserID          uint
}

type PaymentItemInput struct {
	PriceListItemID *uint
	WorkItem        string
	Detail          string
	Quantity        decimal.Decimal
	UnitPrice       *decimal.Decimal // boşsa fiyat listesinden
}

type PaymentInput struct {
	SubcontractorID uint
	Title           string
	PaymentDate     time.Time
	Status          models.PaymentStatus
	Items           []PaymentItemInput
}

type StatementEntry struct {
	Date        time.Time       `json:"date"`
	Kind        string          `json:"kind"` // payment | cash
	RefID       uint            `json:"ref_id"`
	Description string          `json:"description"`
	Credit      decimal.Decimal `json:"credit"`
	Debit       decimal.Decimal `json:"debit"`
	Running     decimal.Decimal `json:"running_balance"`
}

type Statement struct {
	Subcontractor models.Subcontractor `json:"subcontractor"`
	Entries       []StatementEntry     `json:"entries"`
	Balance       decimal.Decimal      `json:"balance"`
}

func (s *Service) Create(ctx context.Context, in Input) (*models.Subcontractor, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, apperr.InvalidInput("Taşeron adı zorunlu")
	}
	sub := models.Subcontractor{
		Name:  strings.TrimSpace(in.Name),
		Phone: strings.TrimSpace(in.Phone),
		Notes: strings.TrimSpace(in.Notes),
	}
	if err := s.DB.WithContext(ctx).Create(&sub).Error; err != nil {
		return nil, fmt.Errorf("taşeron oluşturulamadı: %w", err)
	}
	return &sub, nil
}

func (s *Service) Update(ctx context.Context, id uint, in Input) (*models.Subcontractor, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, apperr.InvalidInput("Taşeron adı zorunlu")
	}
	sub, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	sub.Name = strings.TrimSpace(in.Name)
	sub.Phone = strings.TrimSpace(in.Phone)
	sub.Notes = strings.TrimSpace(in.Notes)
	if err := s.DB.WithContext(ctx).Save(sub).Error; err != nil {
		return nil, fmt.Errorf("taşeron güncellenemedi: %w", err)
	}
	return sub, nil
}

func (s *Service) Get(ctx context.Context, id uint) (*models.Subcontractor, error) {
	var sub models.Subcontractor
	if err := s.DB.WithContext(ctx).First(&sub, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Taşeron bulunamadı")
		}
		return nil, err
	}
	return &sub, nil
}

// Delete: hakediş, kalem ve nakit kayıtlarıyla birlikte tek transaction'da siler
func (s *Service) Delete(ctx context.Context, id uint) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		paymentIDs := tx.Model(&models.Payment{}).Select("id").Where("subcontractor_id = ?", id)
		if err := tx.Where("payment_id IN (?)", paymentIDs).Delete(&models.PaymentItem{}).Error; err != nil {
			return fmt.Errorf("hakediş kalemleri silinemedi: %w", err)
		}
		if err := tx.Where("subcontractor_id = ?", id).Delete(&models.Payment{}).Error; err != nil {
			return fmt.Errorf("hakedişler silinemedi: %w", err)
		}
		if err := tx.Where("subcontractor_id = ?", id).Delete(&models.CashTransaction{}).Error; err != nil {
			return fmt.Errorf("nakit hareketleri silinemedi: %w", err)
		}
		res := tx.Delete(&models.Subcontractor{}, id)
		if res.Error != nil {
			return fmt.Errorf("taşeron silinemedi: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("Taşeron bulunamadı")
		}
		return nil
	})
}

func (s *Service) Balance(ctx context.Context, id uint) (*Balance, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	db := s.DB.WithContext(ctx)

	var payments, cash decimal.Decimal
	if err := db.Model(&models.Payment{}).
		Select("COALESCE(SUM(total_amount), 0)").
		Where("subcontractor_id = ? AND status <> ?", id, models.PaymentCancelled).
		Row().Scan(&payments); err != nil {
		return nil, fmt.Errorf("hakediş toplamı alınamadı: %w", err)
	}
	if err := db.Model(&models.CashTransaction{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("subcontractor_id = ?", id).
		Row().Scan(&cash); err != nil {
		return nil, fmt.Errorf("nakit toplamı alınamadı: %w", err)
	}

	return &Balance{
		SubcontractorID: id,
		TotalPayments:   payments,
		TotalCash:       cash,
		Balance:         payments.Sub(cash),
	}, nil
}

type groupedSum struct {
	SubcontractorID uint
	Total           decimal.Decimal
}

// List: bakiyeler iki gruplu sorguyla hesaplanır
func (s *Service) List(ctx context.Context) ([]WithBalance, error) {
	db := s.DB.WithContext(ctx)

	var subs []models.Subcontractor
	if err := db.Order("name ASC").Find(&subs).Error; err != nil {
		return nil, err
	}

	var paySums, cashSums []groupedSum
	if err := db.Model(&models.Payment{}).
		Select("subcontractor_id, COALESCE(SUM(total_amount), 0) AS total").
		Where("status <> ?", models.PaymentCancelled).
		Group("subcontractor_id").
		Scan(&paySums).Error; err != nil {
		return nil, fmt.Errorf("hakediş toplamları alınamadı: %w", err)
	}
	if err := db.Model(&models.CashTransaction{}).
		Select("subcontractor_id, COALESCE(SUM(amount), 0) AS total").
		Group("subcontractor_id").
		Scan(&cashSums).Error; err != nil {
		return nil, fmt.Errorf("nakit toplamları alınamadı: %w", err)
	}

	payBy := make(map[uint]decimal.Decimal, len(paySums))
	for _, p := range paySums {
		payBy[p.SubcontractorID] = p.Total
	}
	cashBy := make(map[uint]decimal.Decimal, len(cashSums))
	for _, c := range cashSums {
		cashBy[c.SubcontractorID] = c.Total
	}

	out := make([]WithBalance, 0, len(subs))
	for _, sub := range subs {
		p, c := payBy[sub.ID], cashBy[sub.ID]
		out = append(out, WithBalance{
			Subcontractor: sub,
			TotalPayments: p,
			TotalCash:     c,
			Balance:       p.Sub(c),
		})
	}
	return out, nil
}

// TotalOpenBalance: tüm taşeronların bakiyeleri toplamı
func (s *Service) TotalOpenBalance(ctx context.Context) (decimal.Decimal, error) {
	list, err := s.List(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, w := range list {
		total = total.Add(w.Balance)
	}
	return total, nil
}

func (s *Service) AddCashTransaction(ctx context.Context, in CashInput) (*models.CashTransaction, error) {
	if !in.Amount.IsPositive() {
		return nil, apperr.InvalidInput("Tutar sıfırdan büyük olmalı")
	}
	if _, err := s.Get(ctx, in.SubcontractorID); err != nil {
		return nil, err
	}
	date := in.Date
	if date.IsZero() {
		date = time.Now()
	}
	ct := models.CashTransaction{
		SubcontractorID: in.SubcontractorID,
		Amount:          in.Amount.Round(2),
		Description:     strings.TrimSpace(in.Description),
		Date:            date,
		UserID:          in.UserID,
	}
	if err := s.DB.WithContext(ctx).Create(&ct).Error; err != nil {
		return nil, fmt.Errorf("nakit hareketi kaydedilemedi: %w", err)
	}
	return &ct, nil
}

func (s *Service) ListCashTransactions(ctx context.Context, subID uint) ([]models.CashTransaction, error) {
	if _, err := s.Get(ctx, subID); err != nil {
		return nil, err
	}
	var list []models.CashTransaction
	err := s.DB.WithContext(ctx).
		Where("subcontractor_id = ?", subID).
		Order("date DESC, id DESC").
		Find(&list).Error
	return list, err
}

func (s *Service) DeleteCashTransaction(ctx context.Context, id uint) (*models.CashTransaction, error) {
	var ct models.CashTransaction
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&ct, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("Nakit hareketi bulunamadı")
			}
			return err
		}
		return tx.Delete(&ct).Error
	})
	if err != nil {
		return nil, err
	}
	return &ct, nil
}

// CreatePayment: başlık, kalemler ve toplam tek transaction'da yazılır.
// TotalAmount her zaman kalem toplamlarının toplamıdır.
func (s *Service) CreatePayment(ctx context.Context, in PaymentInput) (*models.Payment, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, apperr.InvalidInput("Hakediş başlığı zorunlu")
	}
	if len(in.Items) == 0 {
		return nil, apperr.InvalidInput("En az bir hakediş kalemi gerekli")
	}
	status := in.Status
	if status == "" {
		status = models.PaymentPending
	}
	if !status.Valid() {
		return nil, apperr.InvalidInput("Geçersiz hakediş durumu: %s", status)
	}
	date := in.PaymentDate
	if date.IsZero() {
		date = time.Now()
	}

	var payment models.Payment
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Subcontractor{}).Where("id = ?", in.SubcontractorID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return apperr.NotFound("Taşeron bulunamadı")
		}

		items := make([]models.PaymentItem, 0, len(in.Items))
		total := decimal.Zero
		for i, it := range in.Items {
			item, err := buildItem(tx, i, it)
			if err != nil {
				return err
			}
			total = total.Add(item.TotalPrice)
			items = append(items, item)
		}

		payment = models.Payment{
			SubcontractorID: in.SubcontractorID,
			Title:           strings.TrimSpace(in.Title),
			TotalAmount:     total,
			Status:          status,
			PaymentDate:     date,
		}
		if err := tx.Omit("Items").Create(&payment).Error; err != nil {
			return apperr.Consistency("Hakediş kaydedilemedi", err)
		}
		for i := range items {
			items[i].PaymentID = payment.ID
		}
		if err := tx.Create(&items).Error; err != nil {
			return apperr.Consistency("Hakediş kalemleri kaydedilemedi", err)
		}
		payment.Items = items
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func buildItem(tx *gorm.DB, idx int, in PaymentItemInput) (models.PaymentItem, error) {
	if !in.Quantity.IsPositive() {
		return models.PaymentItem{}, apperr.InvalidInput("%d. kalem: miktar sıfırdan büyük olmalı", idx+1)
	}

	workItem := strings.TrimSpace(in.WorkItem)
	var unitPrice decimal.Decimal
	if in.UnitPrice != nil {
		unitPrice = *in.UnitPrice
	}

	if in.PriceListItemID != nil {
		var pl models.PriceListItem
		if err := tx.First(&pl, *in.PriceListItemID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.PaymentItem{}, apperr.InvalidInput("%d. kalem: fiyat listesi kalemi bulunamadı", idx+1)
			}
			return models.PaymentItem{}, err
		}
		if workItem == "" {
			workItem = pl.WorkItem
		}
		if in.UnitPrice == nil {
			unitPrice = pl.UnitPrice
		}
	} else if in.UnitPrice == nil {
		return models.PaymentItem{}, apperr.InvalidInput("%d. kalem: birim fiyat zorunlu", idx+1)
	}

	if workItem == "" {
		return models.PaymentItem{}, apperr.InvalidInput("%d. kalem: iş kalemi zorunlu", idx+1)
	}
	if unitPrice.IsNegative() {
		return models.PaymentItem{}, apperr.InvalidInput("%d. kalem: birim fiyat negatif olamaz", idx+1)
	}

	unitPrice = unitPrice.Round(2)
	return models.PaymentItem{
		PriceListItemID: in.PriceListItemID,
		WorkItem:        workItem,
		Detail:          strings.TrimSpace(in.Detail),
		Quantity:        in.Quantity,
		UnitPrice:       unitPrice,
		TotalPrice:      in.Quantity.Mul(unitPrice).Round(2),
	}, nil
}

func (s *Service) GetPayment(ctx context.Context, id uint) (*models.Payment, error) {
	var p models.Payment
	if err := s.DB.WithContext(ctx).Preload("Items").First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Hakediş bulunamadı")
		}
		return nil, err
	}
	return &p, nil
}

func (s *Service) ListPayments(ctx context.Context, subID uint, status models.PaymentStatus) ([]models.Payment, error) {
	if _, err := s.Get(ctx, subID); err != nil {
		return nil, err
	}
	q := s.DB.WithContext(ctx).Where("subcontractor_id = ?", subID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var list []models.Payment
	err := q.Preload("Items").Order("payment_date DESC, id DESC").Find(&list).Error
	return list, err
}

// UpdatePaymentStatus: satır kilitli okuma + güncelleme
func (s *Service) UpdatePaymentStatus(ctx context.Context, id uint, status models.PaymentStatus) (*models.Payment, error) {
	if !status.Valid() {
		return nil, apperr.InvalidInput("Geçersiz hakediş durumu: %s", status)
	}
	var p models.Payment
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("Hakediş bulunamadı")
			}
			return err
		}
		if p.Status == status {
			return nil
		}
		if err := tx.Model(&p).Update("status", status).Error; err != nil {
			return fmt.Errorf("hakediş durumu güncellenemedi: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetPayment(ctx, id)
}

func (s *Service) DeletePayment(ctx context.Context, id uint) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("payment_id = ?", id).Delete(&models.PaymentItem{}).Error; err != nil {
			return fmt.Errorf("hakediş kalemleri silinemedi: %w", err)
		}
		res := tx.Delete(&models.Payment{}, id)
		if res.Error != nil {
			return fmt.Errorf("hakediş silinemedi: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("Hakediş bulunamadı")
		}
		return nil
	})
}

// Statement: tarih sırasıyla hesap ekstresi; son bakiye Balance ile aynıdır
func (s *Service) Statement(ctx context.Context, id uint) (*Statement, error) {
	sub, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	db := s.DB.WithContext(ctx)

	var payments []models.Payment
	if err := db.Where("subcontractor_id = ? AND status <> ?", id, models.PaymentCancelled).
		Find(&payments).Error; err != nil {
		return nil, err
	}
	var cash []models.CashTransaction
	if err := db.Where("subcontractor_id = ?", id).Find(&cash).Error; err != nil {
		return nil, err
	}

	entries := make([]StatementEntry, 0, len(payments)+len(cash))
	for _, p := range payments {
		entries = append(entries, StatementEntry{
			Date:        p.PaymentDate,
			Kind:        "payment",
			RefID:       p.ID,
			Description: p.Title,
			Credit:      p.TotalAmount,
			Debit:       decimal.Zero,
		})
	}
	for _, c := range cash {
		entries = append(entries, StatementEntry{
			Date:        c.Date,
			Kind:        "cash",
			RefID:       c.ID,
			Description: c.Description,
			Credit:      decimal.Zero,
			Debit:       c.Amount,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Date.Before(entries[j].Date)
	})

	running := decimal.Zero
	for i := range entries {
		running = running.Add(entries[i].Credit).Sub(entries[i].Debit)
		entries[i].Running = running
	}

	return &Statement{Subcontractor: *sub, Entries: entries, Balance: running}, nil
}
