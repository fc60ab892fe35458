package dashboard

import (
	"context"
	"sort"
	"time"

	"github.com/FarukBas12/servistakip-sub001/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

type MovementPoint struct {
	Label string          `json:"label"` // gün / hafta başı / ay başı
	In    decimal.Decimal `json:"in"`
	Out   decimal.Decimal `json:"out"`
	Count int             `json:"count"`
}

type MovementChart struct {
	StockID  uint            `json:"stock_id,omitempty"`
	Period   string          `json:"period"` // daily | weekly | monthly
	From     string          `json:"from"`
	To       string          `json:"to"`
	Points   []MovementPoint `json:"points"`
	TotalIn  decimal.Decimal `json:"total_in"`
	TotalOut decimal.Decimal `json:"total_out"`
}

// chartRange: periyoda göre [start, end) aralığı
func chartRange(period string, count int, now time.Time) (string, time.Time, time.Time) {
	loc := now.Location()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	switch period {
	case "weekly":
		monday := today.AddDate(0, 0, -((int(today.Weekday()) + 6) % 7))
		return period, monday.AddDate(0, 0, -7*(count-1)), monday.AddDate(0, 0, 7)
	case "monthly":
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
		return period, first.AddDate(0, -(count - 1), 0), first.AddDate(0, 1, 0)
	default:
		return "daily", today.AddDate(0, 0, -(count - 1)), today.AddDate(0, 0, 1)
	}
}

func bucketOf(period string, t time.Time) time.Time {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	switch period {
	case "weekly":
		return d.AddDate(0, 0, -((int(d.Weekday()) + 6) % 7))
	case "monthly":
		return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, d.Location())
	}
	return d
}

// BuildMovementChart: stok giriş/çıkışlarını periyot bazında toplar. stockID 0 ise tüm kalemler.
// Gruplama Go tarafında yapılır; postgres ve sqlite aynı sonucu verir.
func BuildMovementChart(ctx context.Context, db *gorm.DB, stockID uint, period string, count int, now time.Time) (*MovementChart, error) {
	period, start, end := chartRange(period, count, now)

	q := db.WithContext(ctx).Model(&models.StockTransaction{}).
		Where("created_at >= ? AND created_at < ?", start, end)
	if stockID > 0 {
		q = q.Where("stock_id = ?", stockID)
	}
	var txns []models.StockTransaction
	if err := q.Find(&txns).Error; err != nil {
		return nil, err
	}

	buckets := make(map[time.Time]*MovementPoint)
	chart := &MovementChart{
		StockID:  stockID,
		Period:   period,
		From:     start.Format(dateLayout),
		To:       end.AddDate(0, 0, -1).Format(dateLayout),
		TotalIn:  decimal.Zero,
		TotalOut: decimal.Zero,
	}
	for _, t := range txns {
		key := bucketOf(period, t.CreatedAt.In(now.Location()))
		p, ok := buckets[key]
		if !ok {
			p = &MovementPoint{Label: key.Format(dateLayout), In: decimal.Zero, Out: decimal.Zero}
			buckets[key] = p
		}
		p.Count++
		if t.Type == models.StockIn {
			p.In = p.In.Add(t.Quantity)
			chart.TotalIn = chart.TotalIn.Add(t.Quantity)
		} else {
			p.Out = p.Out.Add(t.Quantity)
			chart.TotalOut = chart.TotalOut.Add(t.Quantity)
		}
	}

	chart.Points = make([]MovementPoint, 0, len(buckets))
	for _, p := range buckets {
		chart.Points = append(chart.Points, *p)
	}
	sort.Slice(chart.Points, func(i, j int) bool { return chart.Points[i].Label < chart.Points[j].Label })
	return chart, nil
}

// GET /api/dashboard/stock-movements?period=daily&count=7&stock_id=3
func MovementChartHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		period := c.Query("period", "daily")
		def := 7
		switch period {
		case "weekly":
			def = 8
		case "monthly":
			def = 12
		}
		count := c.QueryInt("count", def)
		if count <= 0 || count > 366 {
			return fiber.NewError(fiber.StatusBadRequest, "count geçersiz")
		}
		stockID := c.QueryInt("stock_id", 0)
		if stockID < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "stock_id geçersiz")
		}

		chart, err := BuildMovementChart(c.UserContext(), db, uint(stockID), period, count, time.Now())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Veri toplanırken hata oluştu")
		}
		return c.JSON(chart)
	}
}
