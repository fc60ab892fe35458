package project

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/FarukBas12/servistakip-sub001/internal/apperr"
	"github.com/FarukBas12/servistakip-sub001/internal/audit"
	"github.com/FarukBas12/servistakip-sub001/internal/auth"
	"github.com/FarukBas12/servistakip-sub001/internal/models"
	"github.com/FarukBas12/servistakip-sub001/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const maxUploadSize = 20 << 20 // 20 MB

type ProjectRequest struct {
	Name        string               `json:"name" validate:"required,max=200"`
	Description string               `json:"description"`
	Status      models.ProjectStatus `json:"status" validate:"omitempty,oneof=active completed"`
	RegionID    *uint                `json:"region_id"`
	StartDate   string               `json:"start_date"`
	EndDate     string               `json:"end_date"`
}

type MaterialRequest struct {
	StockID  uint            `json:"stock_id" validate:"required"`
	Quantity decimal.Decimal `json:"quantity"`
}

type ExpenseRequest struct {
	Description string           `json:"description" validate:"required,max=500"`
	Amount      decimal.Decimal  `json:"amount"`
	Date        string           `json:"date"`
	Material    *MaterialRequest `json:"material"`
}

func paramUint(c *fiber.Ctx, name string) (uint, error) {
	id, err := c.ParamsInt(name)
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Geçersiz ID")
	}
	return uint(id), nil
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Tarih formatı YYYY-MM-DD olmalı")
	}
	return &d, nil
}

func (r ProjectRequest) input() (Input, error) {
	start, err := parseDate(r.StartDate)
	if err != nil {
		return Input{}, err
	}
	end, err := parseDate(r.EndDate)
	if err != nil {
		return Input{}, err
	}
	return Input{
		Name:        r.Name,
		Description: r.Description,
		Status:      r.Status,
		RegionID:    r.RegionID,
		StartDate:   start,
		EndDate:     end,
	}, nil
}

func projectDir(uploadDir string, projectID uint) string {
	return filepath.Join(uploadDir, "projects", strconv.FormatUint(uint64(projectID), 10))
}

func removeStored(uploadDir string, projectID uint, stored string) {
	path := filepath.Join(projectDir(uploadDir, projectID), stored)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Printf("[WARN] Dosya silinemedi (%s): %v", path, err)
	}
}

// GET /api/projects?status=active
func ListHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		list, err := svc.List(c.UserContext(), models.ProjectStatus(c.Query("status")))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Projeler listelenemedi")
		}
		return c.JSON(list)
	}
}

// GET /api/projects/:id
func GetHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramUint(c, "id")
		if err != nil {
			return err
		}
		p, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(p)
	}
}

// POST /api/projects
func CreateHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		var body ProjectRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}
		in, err := body.input()
		if err != nil {
			return err
		}
		p, err := svc.Create(c.UserContext(), in)
		if err != nil {
			return apperr.ToFiber(err)
		}
		audit.Record(svc.DB, audit.LogOptions{
			UserID:      actor.ID,
			UserName:    actor.Name,
			EntityType:  "project",
			EntityID:    p.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Proje oluşturuldu: %s", p.Name),
			After:       p,
		})
		return c.Status(fiber.StatusCreated).JSON(p)
	}
}

// PUT /api/projects/:id
func UpdateHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		id, err := paramUint(c, "id")
		if err != nil {
			return err
		}
		var body ProjectRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}
		in, err := body.input()
		if err != nil {
			return err
		}
		before, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return apperr.ToFiber(err)
		}
		p, err := svc.Update(c.UserContext(), id, in)
		if err != nil {
			return apperr.ToFiber(err)
		}
		audit.Record(svc.DB, audit.LogOptions{
			UserID:      actor.ID,
			UserName:    actor.Name,
			EntityType:  "project",
			EntityID:    p.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Proje güncellendi: %s", p.Name),
			Before:      before,
			After:       p,
		})
		return c.JSON(p)
	}
}

// DELETE /api/projects/:id
func DeleteHandler(svc *Service, uploadDir string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		id, err := paramUint(c, "id")
		if err != nil {
			return err
		}
		before, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return apperr.ToFiber(err)
		}
		files, err := svc.Delete(c.UserContext(), id, actor.ID)
		if err != nil {
			return apperr.ToFiber(err)
		}
		for _, f := range files {
			removeStored(uploadDir, id, f.StoredName)
		}
		audit.Record(svc.DB, audit.LogOptions{
			UserID:      actor.ID,
			UserName:    actor.Name,
			EntityType:  "project",
			EntityID:    id,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Proje silindi: %s", before.Name),
			Before:      before,
		})
		return c.JSON(fiber.Map{"message": "Proje silindi"})
	}
}

// GET /api/projects/:id/summary
func SummaryHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramUint(c, "id")
		if err != nil {
			return err
		}
		sum, err := svc.Summary(c.UserContext(), id)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(sum)
	}
}

// GET /api/projects/:id/expenses
func ListExpensesHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramUint(c, "id")
		if err != nil {
			return err
		}
		list, err := svc.ListExpenses(c.UserContext(), id)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(list)
	}
}

// POST /api/projects/:id/expenses
func CreateExpenseHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		id, err := paramUint(c, "id")
		if err != nil {
			return err
		}
		var body ExpenseRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}
		date, err := parseDate(body.Date)
		if err != nil {
			return err
		}
		in := ExpenseInput{
			ProjectID:   id,
			Description: body.Description,
			Amount:      body.Amount,
			UserID:      actor.ID,
		}
		if date != nil {
			in.Date = *date
		}
		if body.Material != nil {
			in.Material = &Material{StockID: body.Material.StockID, Quantity: body.Material.Quantity}
		}

		exp, err := svc.AddExpense(c.UserContext(), in)
		if err != nil {
			return apperr.ToFiber(err)
		}
		audit.Record(svc.DB, audit.LogOptions{
			UserID:      actor.ID,
			UserName:    actor.Name,
			EntityType:  "project_expense",
			EntityID:    exp.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Proje gideri eklendi: %s", exp.Description),
			After:       exp,
		})
		return c.Status(fiber.StatusCreated).JSON(exp)
	}
}

// DELETE /api/projects/expenses/:id
func DeleteExpenseHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		id, err := paramUint(c, "id")
		if err != nil {
			return err
		}
		exp, err := svc.DeleteExpense(c.UserContext(), id, actor.ID)
		if err != nil {
			return apperr.ToFiber(err)
		}
		audit.Record(svc.DB, audit.LogOptions{
			UserID:      actor.ID,
			UserName:    actor.Name,
			EntityType:  "project_expense",
			EntityID:    id,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Proje gideri silindi: %s", exp.Description),
			Before:      exp,
		})
		return c.JSON(fiber.Map{"message": "Gider silindi"})
	}
}

// GET /api/projects/:id/files
func ListFilesHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramUint(c, "id")
		if err != nil {
			return err
		}
		list, err := svc.ListFiles(c.UserContext(), id)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(list)
	}
}

// POST /api/projects/:id/files (multipart, alan adı "file")
func UploadFileHandler(svc *Service, uploadDir string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		id, err := paramUint(c, "id")
		if err != nil {
			return err
		}
		if _, err := svc.Get(c.UserContext(), id); err != nil {
			return apperr.ToFiber(err)
		}

		fh, err := c.FormFile("file")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Dosya bulunamadı")
		}
		if fh.Size > maxUploadSize {
			return fiber.NewError(fiber.StatusRequestEntityTooLarge, "Dosya 20 MB'dan büyük olamaz")
		}

		dir := projectDir(uploadDir, id)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Yükleme klasörü oluşturulamadı")
		}
		ext := strings.ToLower(filepath.Ext(fh.Filename))
		stored := uuid.New().String() + ext
		if err := c.SaveFile(fh, filepath.Join(dir, stored)); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Dosya kaydedilemedi")
		}

		f, err := svc.AddFile(c.UserContext(), FileInput{
			ProjectID:  id,
			FileName:   filepath.Base(fh.Filename),
			StoredName: stored,
			MimeType:   fh.Header.Get(fiber.HeaderContentType),
			Size:       fh.Size,
			UploadedBy: actor.ID,
		})
		if err != nil {
			removeStored(uploadDir, id, stored)
			return apperr.ToFiber(err)
		}
		return c.Status(fiber.StatusCreated).JSON(f)
	}
}

// GET /api/projects/:id/files/:fileId
func DownloadFileHandler(svc *Service, uploadDir string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramUint(c, "id")
		if err != nil {
			return err
		}
		fileID, err := paramUint(c, "fileId")
		if err != nil {
			return err
		}
		f, err := svc.GetFile(c.UserContext(), id, fileID)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.Download(filepath.Join(projectDir(uploadDir, id), f.StoredName), f.FileName)
	}
}

// DELETE /api/projects/:id/files/:fileId
func DeleteFileHandler(svc *Service, uploadDir string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramUint(c, "id")
		if err != nil {
			return err
		}
		fileID, err := paramUint(c, "fileId")
		if err != nil {
			return err
		}
		f, err := svc.DeleteFile(c.UserContext(), id, fileID)
		if err != nil {
			return apperr.ToFiber(err)
		}
		removeStored(uploadDir, id, f.StoredName)
		return c.JSON(fiber.Map{"message": "Dosya silindi"})
	}
}
