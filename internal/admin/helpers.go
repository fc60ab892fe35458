package admin

import (
	"github.com/FarukBas12/servistakip-sub001/internal/audit"
	"github.com/FarukBas12/servistakip-sub001/internal/auth"
	"github.com/FarukBas12/servistakip-sub001/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const timeLayout = "2006-01-02 15:04:05"

func paramID(c *fiber.Ctx) (uint, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Geçersiz ID")
	}
	return uint(id), nil
}

// record: admin işlemini audit loga yazar
func record(db *gorm.DB, c *fiber.Ctx, entity string, id uint, action models.AuditAction, desc string, before, after any) {
	actor, _ := auth.CurrentUser(c)
	audit.Record(db, audit.LogOptions{
		UserID:      actor.ID,
		UserName:    actor.Name,
		EntityType:  entity,
		EntityID:    id,
		Action:      action,
		Description: desc,
		Before:      before,
		After:       after,
	})
}
