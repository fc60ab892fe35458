package notification

import (
	"github.com/FarukBas12/servistakip-sub001/internal/apperr"
	"github.com/FarukBas12/servistakip-sub001/internal/auth"

	"github.com/gofiber/fiber/v2"
)

// GET /api/notifications?unread=true
func ListHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		list, err := svc.ListForUser(c.UserContext(), actor.ID, c.QueryBool("unread", false))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Bildirimler listelenemedi")
		}
		return c.JSON(list)
	}
}

// GET /api/notifications/unread-count
func UnreadCountHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		n, err := svc.UnreadCount(c.UserContext(), actor.ID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Bildirimler sayılamadı")
		}
		return c.JSON(fiber.Map{"count": n})
	}
}

// POST /api/notifications/:id/read
func MarkReadHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz bildirim ID")
		}
		if err := svc.MarkRead(c.UserContext(), uint(id), actor.ID); err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(fiber.Map{"message": "Bildirim okundu olarak işaretlendi"})
	}
}

// POST /api/notifications/read-all
func MarkAllReadHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		n, err := svc.MarkAllRead(c.UserContext(), actor.ID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Bildirimler güncellenemedi")
		}
		return c.JSON(fiber.Map{"updated": n})
	}
}
