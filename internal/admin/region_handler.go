package admin

import (
	"strings"

	"github.com/FarukBas12/servistakip-sub001/internal/models"
	"github.com/FarukBas12/servistakip-sub001/internal/validation"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type RegionResponse struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Notes     string `json:"notes"`
	CreatedAt string `json:"created_at"`
}

type CreateRegionRequest struct {
	Name  string `json:"name" validate:"required,max=100"`
	Notes string `json:"notes" validate:"max=255"`
}

type UpdateRegionRequest struct {
	Name  *string `json:"name"`
	Notes *string `json:"notes"`
}

func toRegionResponse(r models.Region) RegionResponse {
	return RegionResponse{
		ID:        r.ID,
		Name:      r.Name,
		Notes:     r.Notes,
		CreatedAt: r.CreatedAt.Format(timeLayout),
	}
}

// ----------------------------------------
// BÖLGE CRUD
// ----------------------------------------

func CreateRegionHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateRegionRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}

		region := models.Region{
			Name:  strings.TrimSpace(body.Name),
			Notes: strings.TrimSpace(body.Notes),
		}
		if region.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Bölge adı boş olamaz")
		}

		var count int64
		db.Model(&models.Region{}).Where("name = ?", region.Name).Count(&count)
		if count > 0 {
			return fiber.NewError(fiber.StatusConflict, "Bu isimde bir bölge zaten var")
		}

		if err := db.Create(&region).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Bölge oluşturulamadı")
		}

		record(db, c, "region", region.ID, models.AuditActionCreate, "Bölge oluşturuldu: "+region.Name, nil, region)
		return c.Status(fiber.StatusCreated).JSON(toRegionResponse(region))
	}
}

func ListRegionsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var regions []models.Region
		if err := db.Order("name ASC").Find(&regions).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Bölgeler listelenemedi")
		}

		res := make([]RegionResponse, 0, len(regions))
		for _, r := range regions {
			res = append(res, toRegionResponse(r))
		}
		return c.JSON(res)
	}
}

func UpdateRegionHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}

		var region models.Region
		if err := db.First(&region, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Bölge bulunamadı")
		}
		before := region

		var body UpdateRegionRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz veri gönderildi")
		}

		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "Bölge adı boş olamaz")
			}
			region.Name = name
		}
		if body.Notes != nil {
			region.Notes = strings.TrimSpace(*body.Notes)
		}

		if err := db.Save(&region).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Bölge güncellenemedi")
		}

		record(db, c, "region", region.ID, models.AuditActionUpdate, "Bölge güncellendi: "+region.Name, before, region)
		return c.JSON(toRegionResponse(region))
	}
}

// Bölgeyi kullanan kullanıcı, görev ve projelerin bölge bağı kaldırılır
func DeleteRegionHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}

		var region models.Region
		if err := db.First(&region, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Bölge bulunamadı")
		}

		err = db.Transaction(func(tx *gorm.DB) error {
			for _, m := range []any{&models.User{}, &models.Task{}, &models.Project{}} {
				if err := tx.Model(m).Where("region_id = ?", id).Update("region_id", nil).Error; err != nil {
					return err
				}
			}
			return tx.Delete(&region).Error
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Bölge silinemedi")
		}

		record(db, c, "region", id, models.AuditActionDelete, "Bölge silindi: "+region.Name, region, nil)
		return c.SendStatus(fiber.StatusNoContent)
	}
}
