package stock

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/FarukBas12/servistakip-sub001/internal/apperr"
	"github.com/FarukBas12/servistakip-sub001/internal/audit"
	"github.com/FarukBas12/servistakip-sub001/internal/auth"
	"github.com/FarukBas12/servistakip-sub001/internal/models"
	"github.com/FarukBas12/servistakip-sub001/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type ItemRequest struct {
	Name          string          `json:"name" validate:"required,max=150"`
	Category      string          `json:"category" validate:"max=100"`
	Unit          string          `json:"unit" validate:"required,max=20"`
	Quantity      decimal.Decimal `json:"quantity"`
	CriticalLevel decimal.Decimal `json:"critical_level"`
	SupplierID    *uint           `json:"supplier_id"`
}

type TransactionRequest struct {
	Type        models.StockTransactionType `json:"type" validate:"required,oneof=in out"`
	Quantity    decimal.Decimal             `json:"quantity"`
	Description string                      `json:"description" validate:"max=500"`
	ProjectID   *uint                       `json:"project_id"`
}

type ReverseRequest struct {
	Description string `json:"description" validate:"max=500"`
}

func paramID(c *fiber.Ctx) (uint, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Geçersiz ID")
	}
	return uint(id), nil
}

// GET /api/stocks?category=&search=&low=true
func ListItemsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		items, err := svc.ListItems(c.UserContext(), ItemFilter{
			Category: c.Query("category"),
			Search:   c.Query("search"),
			LowOnly:  c.QueryBool("low", false),
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Stoklar listelenemedi")
		}
		return c.JSON(items)
	}
}

// GET /api/stocks/low
func LowStockHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		items, err := svc.LowStock(c.UserContext())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Kritik stoklar listelenemedi")
		}
		return c.JSON(items)
	}
}

// GET /api/stocks/export
func ExportHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		items, err := svc.ListItems(c.UserContext(), ItemFilter{Category: c.Query("category")})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Stoklar listelenemedi")
		}
		var buf bytes.Buffer
		if err := WriteExcel(&buf, items); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Excel oluşturulamadı")
		}
		name := fmt.Sprintf("stoklar_%s.xlsx", time.Now().Format("20060102"))
		c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, name))
		return c.Send(buf.Bytes())
	}
}

// POST /api/stocks/import (multipart, alan adı "file")
func ImportHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		fileHeader, err := c.FormFile("file")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Dosya yüklenemedi")
		}
		if !strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".xlsx") {
			return fiber.NewError(fiber.StatusBadRequest, "Sadece .xlsx dosyaları yüklenebilir")
		}
		file, err := fileHeader.Open()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Dosya açılamadı")
		}
		defer file.Close()

		res, err := svc.ImportExcel(c.UserContext(), file, actor.ID)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		audit.Record(svc.DB, audit.LogOptions{
			UserID:      actor.ID,
			UserName:    actor.Name,
			EntityType:  "stock",
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Excel içe aktarma: %d yeni, %d giriş, %d hatalı satır", res.Created, res.Restock, len(res.RowError)),
			After:       res,
		})
		return c.JSON(res)
	}
}

// GET /api/stocks/:id
func GetItemHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		item, err := svc.GetItem(c.UserContext(), id)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(item)
	}
}

// POST /api/stocks
func CreateItemHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		var body ItemRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}

		item, err := svc.CreateItem(c.UserContext(), CreateItemInput{
			Name:          body.Name,
			Category:      body.Category,
			Unit:          body.Unit,
			Quantity:      body.Quantity,
			CriticalLevel: body.CriticalLevel,
			SupplierID:    body.SupplierID,
		})
		if err != nil {
			return apperr.ToFiber(err)
		}

		audit.Record(svc.DB, audit.LogOptions{
			UserID:      actor.ID,
			UserName:    actor.Name,
			EntityType:  "stock",
			EntityID:    item.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Stok kalemi oluşturuldu: %s", item.Name),
			After:       item,
		})
		return c.Status(fiber.StatusCreated).JSON(item)
	}
}

// PUT /api/stocks/:id
func UpdateItemHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		id, err := paramID(c)
		if err != nil {
			return err
		}
		var body ItemRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}

		before, err := svc.GetItem(c.UserContext(), id)
		if err != nil {
			return apperr.ToFiber(err)
		}
		item, err := svc.UpdateItem(c.UserContext(), id, UpdateItemInput{
			Name:          body.Name,
			Category:      body.Category,
			Unit:          body.Unit,
			CriticalLevel: body.CriticalLevel,
			SupplierID:    body.SupplierID,
		})
		if err != nil {
			return apperr.ToFiber(err)
		}

		audit.Record(svc.DB, audit.LogOptions{
			UserID:      actor.ID,
			UserName:    actor.Name,
			EntityType:  "stock",
			EntityID:    item.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Stok kalemi güncellendi: %s", item.Name),
			Before:      before,
			After:       item,
		})
		return c.JSON(item)
	}
}

// DELETE /api/stocks/:id
func DeleteItemHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		id, err := paramID(c)
		if err != nil {
			return err
		}
		before, err := svc.GetItem(c.UserContext(), id)
		if err != nil {
			return apperr.ToFiber(err)
		}
		if err := svc.DeleteItem(c.UserContext(), id); err != nil {
			return apperr.ToFiber(err)
		}

		audit.Record(svc.DB, audit.LogOptions{
			UserID:      actor.ID,
			UserName:    actor.Name,
			EntityType:  "stock",
			EntityID:    id,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Stok kalemi silindi: %s", before.Name),
			Before:      before,
		})
		return c.JSON(fiber.Map{"message": "Stok kalemi silindi"})
	}
}

// GET /api/stocks/:id/transactions?page=1&limit=50
func ListTransactionsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		page := c.QueryInt("page", 1)
		limit := c.QueryInt("limit", 50)
		list, total, err := svc.ListTransactions(c.UserContext(), id, page, limit)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(fiber.Map{"items": list, "total": total, "page": page})
	}
}

// POST /api/stocks/:id/transactions
func CreateTransactionHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		id, err := paramID(c)
		if err != nil {
			return err
		}
		var body TransactionRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}

		res, err := svc.Apply(c.UserContext(), ApplyInput{
			StockID:     id,
			Type:        body.Type,
			Quantity:    body.Quantity,
			Description: body.Description,
			ProjectID:   body.ProjectID,
			UserID:      actor.ID,
		})
		if err != nil {
			return apperr.ToFiber(err)
		}

		audit.Record(svc.DB, audit.LogOptions{
			UserID:      actor.ID,
			UserName:    actor.Name,
			EntityType:  "stock_transaction",
			EntityID:    res.Transaction.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Stok hareketi: %s %s %s", res.Stock.Name, res.Transaction.Type, res.Transaction.Quantity.String()),
			After:       res.Transaction,
		})
		return c.Status(fiber.StatusCreated).JSON(res)
	}
}

// POST /api/stock-transactions/:id/reverse
func ReverseTransactionHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		id, err := paramID(c)
		if err != nil {
			return err
		}
		var body ReverseRequest
		if len(c.Body()) > 0 {
			if err := validation.ParseBody(c, &body); err != nil {
				return err
			}
		}

		res, err := svc.Reverse(c.UserContext(), id, body.Description, actor.ID)
		if err != nil {
			return apperr.ToFiber(err)
		}

		audit.Record(svc.DB, audit.LogOptions{
			UserID:      actor.ID,
			UserName:    actor.Name,
			EntityType:  "stock_transaction",
			EntityID:    id,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Stok hareketi #%d geri alındı", id),
			After:       res.Transaction,
		})
		return c.Status(fiber.StatusCreated).JSON(res)
	}
}

// GET /api/stocks/:id/reconcile
func ReconcileHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		check, err := svc.Reconcile(c.UserContext(), id)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(check)
	}
}
