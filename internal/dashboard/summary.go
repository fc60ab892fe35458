package dashboard

import (
	"context"

	"github.com/FarukBas12/servistakip-sub001/internal/auth"
	"github.com/FarukBas12/servistakip-sub001/internal/models"
	"github.com/FarukBas12/servistakip-sub001/internal/notification"
	"github.com/FarukBas12/servistakip-sub001/internal/stock"
	"github.com/FarukBas12/servistakip-sub001/internal/subcontractor"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type TaskCounts struct {
	Pending    int64 `json:"pending"`
	InProgress int64 `json:"in_progress"`
	Completed  int64 `json:"completed"`
	Unassigned int64 `json:"unassigned"` // havuzdaki görevler
}

type Summary struct {
	Tasks              TaskCounts      `json:"tasks"`
	LowStockCount      int             `json:"low_stock_count"`
	OpenBalanceTotal   decimal.Decimal `json:"open_balance_total"` // yalnızca admin
	ActiveProjectCount int64           `json:"active_project_count"`
	UnreadCount        int64           `json:"unread_notifications"`
}

type Deps struct {
	DB            *gorm.DB
	Stock         *stock.Service
	Subcontractor *subcontractor.Service
	Notification  *notification.Service
}

// BuildSummary: ana ekran sayaçları. Teknisyen sadece kendi görevlerini sayar.
func BuildSummary(ctx context.Context, d Deps, actor auth.Actor) (*Summary, error) {
	db := d.DB.WithContext(ctx)
	var out Summary

	type statusCount struct {
		Status models.TaskStatus
		Count  int64
	}
	var rows []statusCount
	q := db.Model(&models.Task{}).Select("status, COUNT(*) AS count").Group("status")
	if !actor.IsAdmin() {
		q = q.Where("id IN (?)", db.Model(&models.TaskAssignment{}).Select("task_id").Where("user_id = ?", actor.ID))
	}
	if err := q.Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		switch r.Status {
		case models.TaskPending:
			out.Tasks.Pending = r.Count
		case models.TaskInProgress:
			out.Tasks.InProgress = r.Count
		case models.TaskCompleted:
			out.Tasks.Completed = r.Count
		}
	}

	pool, err := taskPoolCount(db)
	if err != nil {
		return nil, err
	}
	out.Tasks.Unassigned = pool

	low, err := d.Stock.LowStock(ctx)
	if err != nil {
		return nil, err
	}
	out.LowStockCount = len(low)

	if actor.IsAdmin() {
		total, err := d.Subcontractor.TotalOpenBalance(ctx)
		if err != nil {
			return nil, err
		}
		out.OpenBalanceTotal = total

		if err := db.Model(&models.Project{}).Where("status = ?", models.ProjectActive).Count(&out.ActiveProjectCount).Error; err != nil {
			return nil, err
		}
	}

	unread, err := d.Notification.UnreadCount(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	out.UnreadCount = unread
	return &out, nil
}

func taskPoolCount(db *gorm.DB) (int64, error) {
	var n int64
	err := db.Model(&models.Task{}).
		Where("status = ? AND NOT EXISTS (SELECT 1 FROM task_assignments a WHERE a.task_id = tasks.id)", models.TaskPending).
		Count(&n).Error
	return n, err
}

// GET /api/dashboard/summary
func SummaryHandler(d Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		s, err := BuildSummary(c.UserContext(), d, actor)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Özet alınamadı")
		}
		return c.JSON(s)
	}
}
