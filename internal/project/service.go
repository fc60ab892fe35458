package project

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/FarukBas12/servistakip-sub001/internal/apperr"
	"github.com/FarukBas12/servistakip-sub001/internal/models"
	"github.com/FarukBas12/servistakip-sub001/internal/stock"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Service struct {
	DB    *gorm.DB
	Stock *stock.Service
}

func NewService(db *gorm.DB, stockSvc *stock.Service) *Service {
	return &Service{DB: db, Stock: stockSvc}
}

type Input struct {
	Name        string
	Description string
	Status      models.ProjectStatus
	RegionID    *uint
	StartDate   *time.Time
	EndDate     *time.Time
}

// Material: giderle birlikte depodan düşülecek malzeme
type Material struct {
	StockID  uint
	Quantity decimal.Decimal
}

type ExpenseInput struct {
	ProjectID   uint
	Description string
	Amount      decimal.Decimal
	Date        time.Time
	Material    *Material
	UserID      uint
}

type FileInput struct {
	ProjectID  uint
	FileName   string
	StoredName string
	MimeType   string
	Size       int64
	UploadedBy uint
}

type Summary struct {
	ProjectID     uint            `json:"project_id"`
	ExpenseTotal  decimal.Decimal `json:"expense_total"`
	ExpenseCount  int64           `json:"expense_count"`
	MaterialLines int64           `json:"material_lines"`
	FileCount     int64           `json:"file_count"`
}

func (in Input) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return apperr.InvalidInput("Proje adı zorunlu")
	}
	switch in.Status {
	case "", models.ProjectActive, models.ProjectCompleted:
	default:
		return apperr.InvalidInput("Geçersiz proje durumu: %s", in.Status)
	}
	if in.StartDate != nil && in.EndDate != nil && in.EndDate.Before(*in.StartDate) {
		return apperr.InvalidInput("Bitiş tarihi başlangıçtan önce olamaz")
	}
	return nil
}

func (s *Service) Create(ctx context.Context, in Input) (*models.Project, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	status := in.Status
	if status == "" {
		status = models.ProjectActive
	}
	p := models.Project{
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Status:      status,
		RegionID:    in.RegionID,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
	}
	if err := s.DB.WithContext(ctx).Create(&p).Error; err != nil {
		return nil, fmt.Errorf("proje oluşturulamadı: %w", err)
	}
	return &p, nil
}

func (s *Service) Update(ctx context.Context, id uint, in Input) (*models.Project, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Name = strings.TrimSpace(in.Name)
	p.Description = strings.TrimSpace(in.Description)
	if in.Status != "" {
		p.Status = in.Status
	}
	p.RegionID = in.RegionID
	p.StartDate = in.StartDate
	p.EndDate = in.EndDate
	if err := s.DB.WithContext(ctx).Save(p).Error; err != nil {
		return nil, fmt.Errorf("proje güncellenemedi: %w", err)
	}
	return p, nil
}

func (s *Service) Get(ctx context.Context, id uint) (*models.Project, error) {
	var p models.Project
	if err := s.DB.WithContext(ctx).First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Proje bulunamadı")
		}
		return nil, err
	}
	return &p, nil
}

func (s *Service) List(ctx context.Context, status models.ProjectStatus) ([]models.Project, error) {
	q := s.DB.WithContext(ctx)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var list []models.Project
	err := q.Order("created_at DESC, id DESC").Find(&list).Error
	return list, err
}

// Delete: tüm giderlerin stok tüketimini geri alır, giderleri ve dosya
// kayıtlarını siler. Silinen dosya kayıtları diskten temizlik için döner.
func (s *Service) Delete(ctx context.Context, id, userID uint) ([]models.ProjectFile, error) {
	var files []models.ProjectFile
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.Project
		if err := tx.First(&p, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("Proje bulunamadı")
			}
			return err
		}

		var expenses []models.ProjectExpense
		if err := tx.Where("project_id = ?", id).Order("id ASC").Find(&expenses).Error; err != nil {
			return err
		}
		for i := range expenses {
			if _, err := s.Stock.ReverseForExpenseTx(tx, &expenses[i], userID); err != nil {
				return err
			}
		}
		if err := tx.Where("project_id = ?", id).Delete(&models.ProjectExpense{}).Error; err != nil {
			return fmt.Errorf("proje giderleri silinemedi: %w", err)
		}

		if err := tx.Where("project_id = ?", id).Find(&files).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", id).Delete(&models.ProjectFile{}).Error; err != nil {
			return fmt.Errorf("proje dosyaları silinemedi: %w", err)
		}
		return tx.Delete(&p).Error
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// AddExpense: malzeme varsa stok çıkışı aynı transaction'da yapılır ve
// giderle ilişkilendirilir.
func (s *Service) AddExpense(ctx context.Context, in ExpenseInput) (*models.ProjectExpense, error) {
	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		return nil, apperr.InvalidInput("Gider açıklaması zorunlu")
	}
	if in.Amount.IsNegative() {
		return nil, apperr.InvalidInput("Gider tutarı negatif olamaz")
	}
	date := in.Date
	if date.IsZero() {
		date = time.Now()
	}

	var exp models.ProjectExpense
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Project{}).Where("id = ?", in.ProjectID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return apperr.NotFound("Proje bulunamadı")
		}

		exp = models.ProjectExpense{
			ProjectID:   in.ProjectID,
			Description: desc,
			Amount:      in.Amount.Round(2),
			Date:        date,
			UserID:      in.UserID,
		}

		if in.Material != nil {
			projectID := in.ProjectID
			res, err := s.Stock.ApplyTx(tx, stock.ApplyInput{
				StockID:     in.Material.StockID,
				Type:        models.StockOut,
				Quantity:    in.Material.Quantity,
				Description: fmt.Sprintf("Proje gideri: %s", desc),
				ProjectID:   &projectID,
				UserID:      in.UserID,
			})
			if err != nil {
				return err
			}
			exp.StockTransactionID = &res.Transaction.ID
		}

		if err := tx.Create(&exp).Error; err != nil {
			return apperr.Consistency("Proje gideri kaydedilemedi", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &exp, nil
}

// DeleteExpense: bağlı stok çıkışını telafi eder ve gideri siler; biri
// başarısız olursa hiçbir şey değişmez.
func (s *Service) DeleteExpense(ctx context.Context, expenseID, userID uint) (*models.ProjectExpense, error) {
	var exp models.ProjectExpense
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&exp, expenseID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("Proje gideri bulunamadı")
			}
			return err
		}
		if _, err := s.Stock.ReverseForExpenseTx(tx, &exp, userID); err != nil {
			return err
		}
		if err := tx.Delete(&exp).Error; err != nil {
			return apperr.Consistency("Proje gideri silinemedi", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &exp, nil
}

func (s *Service) ListExpenses(ctx context.Context, projectID uint) ([]models.ProjectExpense, error) {
	if _, err := s.Get(ctx, projectID); err != nil {
		return nil, err
	}
	var list []models.ProjectExpense
	err := s.DB.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("date DESC, id DESC").
		Find(&list).Error
	return list, err
}

func (s *Service) Summary(ctx context.Context, id uint) (*Summary, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	db := s.DB.WithContext(ctx)

	sum := Summary{ProjectID: id}
	if err := db.Model(&models.ProjectExpense{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("project_id = ?", id).
		Row().Scan(&sum.ExpenseTotal); err != nil {
		return nil, fmt.Errorf("gider toplamı alınamadı: %w", err)
	}
	if err := db.Model(&models.ProjectExpense{}).Where("project_id = ?", id).Count(&sum.ExpenseCount).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.ProjectExpense{}).
		Where("project_id = ? AND stock_transaction_id IS NOT NULL", id).
		Count(&sum.MaterialLines).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.ProjectFile{}).Where("project_id = ?", id).Count(&sum.FileCount).Error; err != nil {
		return nil, err
	}
	return &sum, nil
}

func (s *Service) AddFile(ctx context.Context, in FileInput) (*models.ProjectFile, error) {
	if _, err := s.Get(ctx, in.ProjectID); err != nil {
		return nil, err
	}
	f := models.ProjectFile{
		ProjectID:  in.ProjectID,
		FileName:   in.FileName,
		StoredName: in.StoredName,
		MimeType:   in.MimeType,
		Size:       in.Size,
		UploadedBy: in.UploadedBy,
	}
	if err := s.DB.WithContext(ctx).Create(&f).Error; err != nil {
		return nil, fmt.Errorf("dosya kaydı oluşturulamadı: %w", err)
	}
	return &f, nil
}

func (s *Service) ListFiles(ctx context.Context, projectID uint) ([]models.ProjectFile, error) {
	if _, err := s.Get(ctx, projectID); err != nil {
		return nil, err
	}
	var list []models.ProjectFile
	err := s.DB.WithContext(ctx).Where("project_id = ?", projectID).Order("id DESC").Find(&list).Error
	return list, err
}

func (s *Service) GetFile(ctx context.Context, projectID, fileID uint) (*models.ProjectFile, error) {
	var f models.ProjectFile
	if err := s.DB.WithContext(ctx).Where("project_id = ?", projectID).First(&f, fileID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Dosya bulunamadı")
		}
		return nil, err
	}
	return &f, nil
}

func (s *Service) DeleteFile(ctx context.Context, projectID, fileID uint) (*models.ProjectFile, error) {
	f, err := s.GetFile(ctx, projectID, fileID)
	if err != nil {
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Delete(f).Error; err != nil {
		return nil, fmt.Errorf("dosya kaydı silinemedi: %w", err)
	}
	return f, nil
}
