package task

import (
	"fmt"
	"time"

	"github.com/FarukBas12/servistakip-sub001/internal/apperr"
	"github.com/FarukBas12/servistakip-sub001/internal/audit"
	"github.com/FarukBas12/servistakip-sub001/internal/auth"
	"github.com/FarukBas12/servistakip-sub001/internal/models"
	"github.com/FarukBas12/servistakip-sub001/internal/validation"

	"github.com/gofiber/fiber/v2"
)

type TaskRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description"`
	Address     string `json:"address" validate:"max=500"`
	DueDate     string `json:"due_date"` // YYYY-MM-DD
	RegionID    *uint  `json:"region_id"`
	AssigneeIDs []uint `json:"assignee_ids"`
}

type AssignRequest struct {
	UserIDs []uint `json:"user_ids"`
}

type StatusRequest struct {
	Status models.TaskStatus `json:"status" validate:"required,oneof=pending in_progress completed"`
}

type CancelRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

func paramID(c *fiber.Ctx) (uint, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Geçersiz görev ID")
	}
	return uint(id), nil
}

func parseDueDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "due_date formatı YYYY-MM-DD olmalı")
	}
	return &d, nil
}

// GET /api/tasks?status=&region_id=&assignee_id=
// Teknisyen yalnızca kendi görevlerini görür.
func ListHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		f := Filter{Status: models.TaskStatus(c.Query("status"))}
		if rid := c.QueryInt("region_id", 0); rid > 0 {
			r := uint(rid)
			f.RegionID = &r
		}
		if actor.IsAdmin() {
			if aid := c.QueryInt("assignee_id", 0); aid > 0 {
				a := uint(aid)
				f.AssigneeID = &a
			}
		} else {
			f.AssigneeID = &actor.ID
		}

		list, err := svc.List(c.UserContext(), f)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Görevler listelenemedi")
		}
		return c.JSON(list)
	}
}

// GET /api/tasks/pool
func PoolHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		list, err := svc.Pool(c.UserContext())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Havuz listelenemedi")
		}
		return c.JSON(list)
	}
}

// GET /api/tasks/mine
func MineHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		list, err := svc.ForUser(c.UserContext(), actor.ID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Görevler listelenemedi")
		}
		return c.JSON(list)
	}
}

// GET /api/tasks/:id
func GetHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		t, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(t)
	}
}

// POST /api/tasks
func CreateHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		var body TaskRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}
		due, err := parseDueDate(body.DueDate)
		if err != nil {
			return err
		}
		t, err := svc.Create(c.UserContext(), CreateInput{
			Title:       body.Title,
			Description: body.Description,
			Address:     body.Address,
			DueDate:     due,
			RegionID:    body.RegionID,
			AssigneeIDs: body.AssigneeIDs,
			CreatedBy:   actor.ID,
		})
		if err != nil {
			return apperr.ToFiber(err)
		}
		audit.Record(svc.DB, audit.LogOptions{
			UserID:      actor.ID,
			UserName:    actor.Name,
			EntityType:  "task",
			EntityID:    t.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Görev oluşturuldu: %s", t.Title),
			After:       t,
		})
		return c.Status(fiber.StatusCreated).JSON(t)
	}
}

// PUT /api/tasks/:id
func UpdateHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		id, err := paramID(c)
		if err != nil {
			return err
		}
		var body TaskRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}
		due, err := parseDueDate(body.DueDate)
		if err != nil {
			return err
		}
		before, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return apperr.ToFiber(err)
		}
		t, err := svc.Update(c.UserContext(), id, UpdateInput{
			Title:       body.Title,
			Description: body.Description,
			Address:     body.Address,
			DueDate:     due,
			RegionID:    body.RegionID,
		})
		if err != nil {
			return apperr.ToFiber(err)
		}
		audit.Record(svc.DB, audit.LogOptions{
			UserID:      actor.ID,
			UserName:    actor.Name,
			EntityType:  "task",
			EntityID:    t.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Görev güncellendi: %s", t.Title),
			Before:      before,
			After:       t,
		})
		return c.JSON(t)
	}
}

// DELETE /api/tasks/:id
func DeleteHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		id, err := paramID(c)
		if err != nil {
			return err
		}
		before, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return apperr.ToFiber(err)
		}
		if err := svc.Delete(c.UserContext(), id); err != nil {
			return apperr.ToFiber(err)
		}
		audit.Record(svc.DB, audit.LogOptions{
			UserID:      actor.ID,
			UserName:    actor.Name,
			EntityType:  "task",
			EntityID:    id,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Görev silindi: %s", before.Title),
			Before:      before,
		})
		return c.JSON(fiber.Map{"message": "Görev silindi"})
	}
}

// PUT /api/tasks/:id/assign
func AssignHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		id, err := paramID(c)
		if err != nil {
			return err
		}
		var body AssignRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}
		t, err := svc.Assign(c.UserContext(), id, body.UserIDs, actor.ID)
		if err != nil {
			return apperr.ToFiber(err)
		}
		audit.Record(svc.DB, audit.LogOptions{
			UserID:      actor.ID,
			UserName:    actor.Name,
			EntityType:  "task",
			EntityID:    t.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Görev atandı: %v", t.AssigneeIDs()),
			After:       t.AssigneeIDs(),
		})
		return c.JSON(t)
	}
}

// POST /api/tasks/:id/claim
func ClaimHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		id, err := paramID(c)
		if err != nil {
			return err
		}
		t, err := svc.Claim(c.UserContext(), id, actor.ID)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(t)
	}
}

// POST /api/tasks/:id/status
func StatusHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		id, err := paramID(c)
		if err != nil {
			return err
		}
		var body StatusRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}
		t, err := svc.UpdateStatus(c.UserContext(), id, actor, body.Status)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(t)
	}
}

// POST /api/tasks/:id/cancel
func CancelHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		id, err := paramID(c)
		if err != nil {
			return err
		}
		var body CancelRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}
		t, err := svc.Cancel(c.UserContext(), id, actor, body.Reason)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(t)
	}
}

// GET /api/tasks/:id/logs
func LogsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		logs, err := svc.Logs(c.UserContext(), id)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(logs)
	}
}
