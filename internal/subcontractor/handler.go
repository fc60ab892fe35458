package subcontractor

import (
	"fmt"
	"time"

	"github.com/FarukBas12/servistakip-sub001/internal/apperr"
	"github.com/FarukBas12/servistakip-sub001/internal/audit"
	"github.com/FarukBas12/servistakip-sub001/internal/auth"
	"github.com/FarukBas12/servistakip-sub001/internal/models"
	"github.com/FarukBas12/servistakip-sub001/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type SubcontractorRequest struct {
	Name  string `json:"name" validate:"required,max=150"`
	Phone string `json:"phone" validate:"max=30"`
	Notes string `json:"notes" validate:"max=500"`
}

type CashRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description" validate:"max=500"`
	Date        string          `json:"date"` // YYYY-MM-DD
}

type PaymentItemRequest struct {
	PriceListItemID *uint            `json:"price_list_item_id"`
	WorkItem        string           `json:"work_item" validate:"max=200"`
	Detail          string           `json:"detail" validate:"max=500"`
	Quantity        decimal.Decimal  `json:"quantity"`
	UnitPrice       *decimal.Decimal `json:"unit_price"`
}

type PaymentRequest struct {
	Title       string               `json:"title" validate:"required,max=200"`
	PaymentDate string               `json:"payment_date"` // YYYY-MM-DD
	Status      models.PaymentStatus `json:"status" validate:"omitempty,oneof=pending paid cancelled"`
	Items       []PaymentItemRequest `json:"items" validate:"required,min=1,dive"`
}

type StatusRequest struct {
	Status models.PaymentStatus `json:"status" validate:"required,oneof=pending paid cancelled"`
}

func paramID(c *fiber.Ctx, name string) (uint, error) {
	id, err := c.ParamsInt(name)
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Geçersiz ID")
	}
	return uint(id), nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fiber.NewError(fiber.StatusBadRequest, "Tarih formatı YYYY-MM-DD olmalı")
	}
	return d, nil
}

// GET /api/subcontractors
func ListHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		list, err := svc.List(c.UserContext())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Taşeronlar listelenemedi")
		}
		return c.JSON(list)
	}
}

// GET /api/subcontractors/:id
func GetHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		sub, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return apperr.ToFiber(err)
		}
		bal, err := svc.Balance(c.UserContext(), id)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(WithBalance{
			Subcontractor: *sub,
			TotalPayments: bal.TotalPayments,
			TotalCash:     bal.TotalCash,
			Balance:       bal.Balance,
		})
	}
}

// POST /api/subcontractors
func CreateHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		var body SubcontractorRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}
		sub, err := svc.Create(c.UserContext(), Input{Name: body.Name, Phone: body.Phone, Notes: body.Notes})
		if err != nil {
			return apperr.ToFiber(err)
		}
		audit.Record(svc.DB, audit.LogOptions{
			UserID:      actor.ID,
			UserName:    actor.Name,
			EntityType:  "subcontractor",
			EntityID:    sub.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Taşeron oluşturuldu: %s", sub.Name),
			After:       sub,
		})
		return c.Status(fiber.StatusCreated).JSON(sub)
	}
}

// PUT /api/subcontractors/:id
func UpdateHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		var body SubcontractorRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}
		before, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return apperr.ToFiber(err)
		}
		sub, err := svc.Update(c.UserContext(), id, Input{Name: body.Name, Phone: body.Phone, Notes: body.Notes})
		if err != nil {
			return apperr.ToFiber(err)
		}
		audit.Record(svc.DB, audit.LogOptions{
			UserID:      actor.ID,
			UserName:    actor.Name,
			EntityType:  "subcontractor",
			EntityID:    sub.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Taşeron güncellendi: %s", sub.Name),
			Before:      before,
			After:       sub,
		})
		return c.JSON(sub)
	}
}

// DELETE /api/subcontractors/:id
func DeleteHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		id, err := paramID(c, "id")
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
			EntityType:  "subcontractor",
			EntityID:    id,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Taşeron silindi: %s", before.Name),
			Before:      before,
		})
		return c.JSON(fiber.Map{"message": "Taşeron silindi"})
	}
}

// GET /api/subcontractors/:id/balance
func BalanceHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		bal, err := svc.Balance(c.UserContext(), id)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(bal)
	}
}

// GET /api/subcontractors/:id/statement
func StatementHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		st, err := svc.Statement(c.UserContext(), id)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(st)
	}
}

// GET /api/subcontractors/:id/cash-transactions
func ListCashHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		list, err := svc.ListCashTransactions(c.UserContext(), id)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(list)
	}
}

// POST /api/subcontractors/:id/cash-transactions
func CreateCashHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		var body CashRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}
		date, err := parseDate(body.Date)
		if err != nil {
			return err
		}
		ct, err := svc.AddCashTransaction(c.UserContext(), CashInput{
			SubcontractorID: id,
			Amount:          body.Amount,
			Description:     body.Description,
			Date:            date,
			UserID:          actor.ID,
		})
		if err != nil {
			return apperr.ToFiber(err)
		}
		audit.Record(svc.DB, audit.LogOptions{
			UserID:      actor.ID,
			UserName:    actor.Name,
			EntityType:  "cash_transaction",
			EntityID:    ct.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Taşerona nakit ödeme: %s TL", ct.Amount.StringFixed(2)),
			After:       ct,
		})
		return c.Status(fiber.StatusCreated).JSON(ct)
	}
}

// DELETE /api/subcontractors/cash-transactions/:id
func DeleteCashHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		ct, err := svc.DeleteCashTransaction(c.UserContext(), id)
		if err != nil {
			return apperr.ToFiber(err)
		}
		audit.Record(svc.DB, audit.LogOptions{
			UserID:      actor.ID,
			UserName:    actor.Name,
			EntityType:  "cash_transaction",
			EntityID:    id,
			Action:      models.AuditActionDelete,
			Description: "Nakit ödeme silindi",
			Before:      ct,
		})
		return c.JSON(fiber.Map{"message": "Nakit hareketi silindi"})
	}
}

// GET /api/subcontractors/:id/payments?status=pending
func ListPaymentsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		list, err := svc.ListPayments(c.UserContext(), id, models.PaymentStatus(c.Query("status")))
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(list)
	}
}

// POST /api/subcontractors/:id/payments
func CreatePaymentHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		var body PaymentRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}
		date, err := parseDate(body.PaymentDate)
		if err != nil {
			return err
		}

		items := make([]PaymentItemInput, 0, len(body.Items))
		for _, it := range body.Items {
			items = append(items, PaymentItemInput{
				PriceListItemID: it.PriceListItemID,
				WorkItem:        it.WorkItem,
				Detail:          it.Detail,
				Quantity:        it.Quantity,
				UnitPrice:       it.UnitPrice,
			})
		}

		p, err := svc.CreatePayment(c.UserContext(), PaymentInput{
			SubcontractorID: id,
			Title:           body.Title,
			PaymentDate:     date,
			Status:          body.Status,
			Items:           items,
		})
		if err != nil {
			return apperr.ToFiber(err)
		}
		audit.Record(svc.DB, audit.LogOptions{
			UserID:      actor.ID,
			UserName:    actor.Name,
			EntityType:  "payment",
			EntityID:    p.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Hakediş oluşturuldu: %s (%s TL)", p.Title, p.TotalAmount.StringFixed(2)),
			After:       p,
		})
		return c.Status(fiber.StatusCreated).JSON(p)
	}
}

// GET /api/subcontractors/payments/:id
func GetPaymentHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		p, err := svc.GetPayment(c.UserContext(), id)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(p)
	}
}

// PUT /api/subcontractors/payments/:id/status
func UpdatePaymentStatusHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		var body StatusRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}
		p, err := svc.UpdatePaymentStatus(c.UserContext(), id, body.Status)
		if err != nil {
			return apperr.ToFiber(err)
		}
		audit.Record(svc.DB, audit.LogOptions{
			UserID:      actor.ID,
			UserName:    actor.Name,
			EntityType:  "payment",
			EntityID:    p.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Hakediş durumu: %s", p.Status),
			After:       p,
		})
		return c.JSON(p)
	}
}

// DELETE /api/subcontractors/payments/:id
func DeletePaymentHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		before, err := svc.GetPayment(c.UserContext(), id)
		if err != nil {
			return apperr.ToFiber(err)
		}
		if err := svc.DeletePayment(c.UserContext(), id); err != nil {
			return apperr.ToFiber(err)
		}
		audit.Record(svc.DB, audit.LogOptions{
			UserID:      actor.ID,
			UserName:    actor.Name,
			EntityType:  "payment",
			EntityID:    id,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Hakediş silindi: %s", before.Title),
			Before:      before,
		})
		return c.JSON(fiber.Map{"message": "Hakediş silindi"})
	}
}
