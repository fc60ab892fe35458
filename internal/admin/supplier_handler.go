package admin

import (
	"strings"

	"github.com/FarukBas12/servistakip-sub001/internal/models"
	"github.com/FarukBas12/servistakip-sub001/internal/validation"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type SupplierRequest struct {
	Name        string `json:"name" validate:"required,max=150"`
	ContactName string `json:"contact_name" validate:"max=100"`
	Phone       string `json:"phone" validate:"max=30"`
	Email       string `json:"email" validate:"omitempty,email"`
	Address     string `json:"address" validate:"max=255"`
	TaxNumber   string `json:"tax_number" validate:"max=30"`
}

func (r SupplierRequest) apply(s *models.Supplier) {
	s.Name = strings.TrimSpace(r.Name)
	s.ContactName = strings.TrimSpace(r.ContactName)
	s.Phone = strings.TrimSpace(r.Phone)
	s.Email = strings.ToLower(strings.TrimSpace(r.Email))
	s.Address = strings.TrimSpace(r.Address)
	s.TaxNumber = strings.TrimSpace(r.TaxNumber)
}

// ----------------------------------------
// TEDARİKÇİ CRUD
// ----------------------------------------

func CreateSupplierHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body SupplierRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}

		var supplier models.Supplier
		body.apply(&supplier)
		if err := db.Create(&supplier).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Tedarikçi oluşturulamadı")
		}

		record(db, c, "supplier", supplier.ID, models.AuditActionCreate, "Tedarikçi oluşturuldu: "+supplier.Name, nil, supplier)
		return c.Status(fiber.StatusCreated).JSON(supplier)
	}
}

func ListSuppliersHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := db.Model(&models.Supplier{})
		if search := strings.TrimSpace(c.Query("search")); search != "" {
			q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(search)+"%")
		}
		var suppliers []models.Supplier
		if err := q.Order("name ASC").Find(&suppliers).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Tedarikçiler listelenemedi")
		}
		return c.JSON(suppliers)
	}
}

func UpdateSupplierHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		var supplier models.Supplier
		if err := db.First(&supplier, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Tedarikçi bulunamadı")
		}
		before := supplier

		var body SupplierRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}
		body.apply(&supplier)
		if err := db.Save(&supplier).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Tedarikçi güncellenemedi")
		}

		record(db, c, "supplier", supplier.ID, models.AuditActionUpdate, "Tedarikçi güncellendi: "+supplier.Name, before, supplier)
		return c.JSON(supplier)
	}
}

// Stok kalemlerindeki tedarikçi bağı kaldırılır
func DeleteSupplierHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		var supplier models.Supplier
		if err := db.First(&supplier, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Tedarikçi bulunamadı")
		}

		tx := db.Begin()
		if tx.Error != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Transaction başlatılamadı")
		}
		defer func() {
			if r := recover(); r != nil {
				tx.Rollback()
			}
		}()

		if err := tx.Model(&models.Stock{}).Where("supplier_id = ?", id).Update("supplier_id", nil).Error; err != nil {
			tx.Rollback()
			return fiber.NewError(fiber.StatusInternalServerError, "Stok bağlantıları kaldırılamadı")
		}
		if err := tx.Delete(&supplier).Error; err != nil {
			tx.Rollback()
			return fiber.NewError(fiber.StatusInternalServerError, "Tedarikçi silinemedi")
		}
		if err := tx.Commit().Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Transaction commit edilemedi")
		}

		record(db, c, "supplier", id, models.AuditActionDelete, "Tedarikçi silindi: "+supplier.Name, supplier, nil)
		return c.SendStatus(fiber.StatusNoContent)
	}
}
