package admin

import (
	"strings"

	"github.com/FarukBas12/servistakip-sub001/internal/models"
	"github.com/FarukBas12/servistakip-sub001/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PriceListRequest struct {
	WorkItem  string          `json:"work_item" validate:"required,max=200"`
	Unit      string          `json:"unit" validate:"required,max=20"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Active    *bool           `json:"active"`
}

// ----------------------------------------
// FİYAT LİSTESİ (hakediş iş kalemleri)
// ----------------------------------------

func CreatePriceListItemHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body PriceListRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}
		if body.UnitPrice.IsNegative() {
			return fiber.NewError(fiber.StatusBadRequest, "Birim fiyat negatif olamaz")
		}

		item := models.PriceListItem{
			WorkItem:  strings.TrimSpace(body.WorkItem),
			Unit:      strings.TrimSpace(body.Unit),
			UnitPrice: body.UnitPrice.Round(2),
			Active:    true,
		}
		if err := db.Create(&item).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Fiyat kalemi oluşturulamadı")
		}

		record(db, c, "price_list_item", item.ID, models.AuditActionCreate, "Fiyat kalemi oluşturuldu: "+item.WorkItem, nil, item)
		return c.Status(fiber.StatusCreated).JSON(item)
	}
}

// GET /api/admin/price-list?active=true
func ListPriceListHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := db.Model(&models.PriceListItem{})
		if c.QueryBool("active", false) {
			q = q.Where("active = ?", true)
		}
		var items []models.PriceListItem
		if err := q.Order("work_item ASC").Find(&items).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Fiyat listesi alınamadı")
		}
		return c.JSON(items)
	}
}

func UpdatePriceListItemHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		var item models.PriceListItem
		if err := db.First(&item, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Fiyat kalemi bulunamadı")
		}
		before := item

		var body PriceListRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}
		if body.UnitPrice.IsNegative() {
			return fiber.NewError(fiber.StatusBadRequest, "Birim fiyat negatif olamaz")
		}

		item.WorkItem = strings.TrimSpace(body.WorkItem)
		item.Unit = strings.TrimSpace(body.Unit)
		item.UnitPrice = body.UnitPrice.Round(2)
		if body.Active != nil {
			item.Active = *body.Active
		}
		if err := db.Save(&item).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Fiyat kalemi güncellenemedi")
		}

		record(db, c, "price_list_item", item.ID, models.AuditActionUpdate, "Fiyat kalemi güncellendi: "+item.WorkItem, before, item)
		return c.JSON(item)
	}
}

// Hakedişlerde kullanılmış kalem silinmez, pasife alınmalı
func DeletePriceListItemHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		var item models.PriceListItem
		if err := db.First(&item, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Fiyat kalemi bulunamadı")
		}

		var used int64
		db.Model(&models.PaymentItem{}).Where("price_list_item_id = ?", id).Count(&used)
		if used > 0 {
			return fiber.NewError(fiber.StatusConflict, "Kalem hakedişlerde kullanılmış, silmek yerine pasife alın")
		}

		if err := db.Delete(&item).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Fiyat kalemi silinemedi")
		}

		record(db, c, "price_list_item", id, models.AuditActionDelete, "Fiyat kalemi silindi: "+item.WorkItem, item, nil)
		return c.SendStatus(fiber.StatusNoContent)
	}
}
