package server

import (
	"errors"
	"log"
	"strings"

	"github.com/FarukBas12/servistakip-sub001/internal/admin"
	"github.com/FarukBas12/servistakip-sub001/internal/audit"
	"github.com/FarukBas12/servistakip-sub001/internal/auth"
	"github.com/FarukBas12/servistakip-sub001/internal/config"
	"github.com/FarukBas12/servistakip-sub001/internal/dashboard"
	"github.com/FarukBas12/servistakip-sub001/internal/models"
	"github.com/FarukBas12/servistakip-sub001/internal/notification"
	"github.com/FarukBas12/servistakip-sub001/internal/project"
	"github.com/FarukBas12/servistakip-sub001/internal/stock"
	"github.com/FarukBas12/servistakip-sub001/internal/subcontractor"
	"github.com/FarukBas12/servistakip-sub001/internal/task"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"
)

// Services: uygulamanın servis katmanı; main cron işleri için de kullanır
type Services struct {
	Stock         *stock.Service
	Notification  *notification.Service
	Task          *task.Service
	Subcontractor *subcontractor.Service
	Project       *project.Service
}

func NewServices(cfg *config.Config, db *gorm.DB) *Services {
	notif := notification.NewService(db)
	stocks := stock.NewService(db, cfg.AllowNegativeStock)
	return &Services{
		Stock:         stocks,
		Notification:  notif,
		Task:          task.NewService(db, notif),
		Subcontractor: subcontractor.NewService(db),
		Project:       project.NewService(db, stocks),
	}
}

func errorHandler(c *fiber.Ctx, err error) error {
	var e *fiber.Error
	if errors.As(err, &e) {
		return c.Status(e.Code).JSON(fiber.Map{
			"error": e.Message,
		})
	}
	log.Println("Unexpected error:", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Beklenmeyen sunucu hatası",
	})
}

func New(cfg *config.Config, db *gorm.DB) *fiber.App {
	return NewWithServices(cfg, db, NewServices(cfg, db))
}

func NewWithServices(cfg *config.Config, db *gorm.DB, svc *Services) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: errorHandler,
		BodyLimit:    25 * 1024 * 1024, // proje dosyaları 20MB + form alanları
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format:     "${time} ${status} ${method} ${path} ${latency}\n",
		TimeFormat: "2006/01/02 15:04:05",
	}))
	app.Use(compress.New())

	// CORS origins'i virgülle ayrılmış string'den array'e çevir
	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	api := app.Group("/api")

	// Public auth
	api.Post("/auth/register-admin", auth.RegisterAdminHandler(db))
	api.Post("/auth/login", auth.LoginHandler(cfg, db))

	// Protected
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg))
	onlyAdmin := auth.RequireRole(models.RoleAdmin)

	protected.Get("/auth/me", auth.MeHandler(db))
	protected.Put("/auth/password", auth.ChangePasswordHandler(db))

	// Admin: kullanıcı, bölge, tedarikçi, fiyat listesi
	adminRoutes := protected.Group("/admin", onlyAdmin)
	adminRoutes.Post("/users", admin.CreateUserHandler(db))
	adminRoutes.Get("/users", admin.ListUsersHandler(db))
	adminRoutes.Put("/users/:id", admin.UpdateUserHandler(db))
	adminRoutes.Delete("/users/:id", admin.DeleteUserHandler(db))

	adminRoutes.Post("/regions", admin.CreateRegionHandler(db))
	adminRoutes.Get("/regions", admin.ListRegionsHandler(db))
	adminRoutes.Put("/regions/:id", admin.UpdateRegionHandler(db))
	adminRoutes.Delete("/regions/:id", admin.DeleteRegionHandler(db))

	adminRoutes.Post("/suppliers", admin.CreateSupplierHandler(db))
	adminRoutes.Get("/suppliers", admin.ListSuppliersHandler(db))
	adminRoutes.Put("/suppliers/:id", admin.UpdateSupplierHandler(db))
	adminRoutes.Delete("/suppliers/:id", admin.DeleteSupplierHandler(db))

	adminRoutes.Post("/price-list", admin.CreatePriceListItemHandler(db))
	adminRoutes.Get("/price-list", admin.ListPriceListHandler(db))
	adminRoutes.Put("/price-list/:id", admin.UpdatePriceListItemHandler(db))
	adminRoutes.Delete("/price-list/:id", admin.DeletePriceListItemHandler(db))

	// Bildirimler
	protected.Get("/notifications", notification.ListHandler(svc.Notification))
	protected.Get("/notifications/unread-count", notification.UnreadCountHandler(svc.Notification))
	protected.Post("/notifications/read-all", notification.MarkAllReadHandler(svc.Notification))
	protected.Post("/notifications/:id/read", notification.MarkReadHandler(svc.Notification))

	// Stok: okuma ve hareket girişi herkes, kalem yönetimi admin
	// sabit path'ler /:id'den önce
	protected.Get("/stocks", stock.ListItemsHandler(svc.Stock))
	protected.Get("/stocks/low", stock.LowStockHandler(svc.Stock))
	protected.Get("/stocks/export", onlyAdmin, stock.ExportHandler(svc.Stock))
	protected.Post("/stocks/import", onlyAdmin, stock.ImportHandler(svc.Stock))
	protected.Post("/stocks", onlyAdmin, stock.CreateItemHandler(svc.Stock))
	protected.Get("/stocks/:id", stock.GetItemHandler(svc.Stock))
	protected.Put("/stocks/:id", onlyAdmin, stock.UpdateItemHandler(svc.Stock))
	protected.Delete("/stocks/:id", onlyAdmin, stock.DeleteItemHandler(svc.Stock))
	protected.Get("/stocks/:id/transactions", stock.ListTransactionsHandler(svc.Stock))
	protected.Post("/stocks/:id/transactions", stock.CreateTransactionHandler(svc.Stock))
	protected.Get("/stocks/:id/reconcile", onlyAdmin, stock.ReconcileHandler(svc.Stock))
	protected.Post("/stock-transactions/:id/reverse", onlyAdmin, stock.ReverseTransactionHandler(svc.Stock))

	// Taşeronlar (admin)
	subs := protected.Group("/subcontractors", onlyAdmin)
	subs.Get("/", subcontractor.ListHandler(svc.Subcontractor))
	subs.Post("/", subcontractor.CreateHandler(svc.Subcontractor))
	subs.Delete("/cash-transactions/:id", subcontractor.DeleteCashHandler(svc.Subcontractor))
	subs.Get("/payments/:id", subcontractor.GetPaymentHandler(svc.Subcontractor))
	subs.Put("/payments/:id/status", subcontractor.UpdatePaymentStatusHandler(svc.Subcontractor))
	subs.Delete("/payments/:id", subcontractor.DeletePaymentHandler(svc.Subcontractor))
	subs.Get("/:id", subcontractor.GetHandler(svc.Subcontractor))
	subs.Put("/:id", subcontractor.UpdateHandler(svc.Subcontractor))
	subs.Delete("/:id", subcontractor.DeleteHandler(svc.Subcontractor))
	subs.Get("/:id/balance", subcontractor.BalanceHandler(svc.Subcontractor))
	subs.Get("/:id/statement", subcontractor.StatementHandler(svc.Subcontractor))
	subs.Get("/:id/cash-transactions", subcontractor.ListCashHandler(svc.Subcontractor))
	subs.Post("/:id/cash-transactions", subcontractor.CreateCashHandler(svc.Subcontractor))
	subs.Get("/:id/payments", subcontractor.ListPaymentsHandler(svc.Subcontractor))
	subs.Post("/:id/payments", subcontractor.CreatePaymentHandler(svc.Subcontractor))

	// Görevler
	protected.Get("/tasks", task.ListHandler(svc.Task))
	protected.Get("/tasks/pool", task.PoolHandler(svc.Task))
	protected.Get("/tasks/mine", task.MineHandler(svc.Task))
	protected.Post("/tasks", onlyAdmin, task.CreateHandler(svc.Task))
	protected.Get("/tasks/:id", task.GetHandler(svc.Task))
	protected.Put("/tasks/:id", onlyAdmin, task.UpdateHandler(svc.Task))
	protected.Delete("/tasks/:id", onlyAdmin, task.DeleteHandler(svc.Task))
	protected.Put("/tasks/:id/assign", onlyAdmin, task.AssignHandler(svc.Task))
	protected.Post("/tasks/:id/claim", task.ClaimHandler(svc.Task))
	protected.Post("/tasks/:id/status", task.StatusHandler(svc.Task))
	protected.Post("/tasks/:id/cancel", task.CancelHandler(svc.Task))
	protected.Get("/tasks/:id/logs", task.LogsHandler(svc.Task))

	// Projeler (admin)
	projects := protected.Group("/projects", onlyAdmin)
	projects.Get("/", project.ListHandler(svc.Project))
	projects.Post("/", project.CreateHandler(svc.Project))
	projects.Delete("/expenses/:id", project.DeleteExpenseHandler(svc.Project))
	projects.Get("/:id", project.GetHandler(svc.Project))
	projects.Put("/:id", project.UpdateHandler(svc.Project))
	projects.Delete("/:id", project.DeleteHandler(svc.Project, cfg.UploadDir))
	projects.Get("/:id/summary", project.SummaryHandler(svc.Project))
	projects.Get("/:id/expenses", project.ListExpensesHandler(svc.Project))
	projects.Post("/:id/expenses", project.CreateExpenseHandler(svc.Project))
	projects.Get("/:id/files", project.ListFilesHandler(svc.Project))
	projects.Post("/:id/files", project.UploadFileHandler(svc.Project, cfg.UploadDir))
	projects.Get("/:id/files/:fileId", project.DownloadFileHandler(svc.Project, cfg.UploadDir))
	projects.Delete("/:id/files/:fileId", project.DeleteFileHandler(svc.Project, cfg.UploadDir))

	// Dashboard
	protected.Get("/dashboard/summary", dashboard.SummaryHandler(dashboard.Deps{
		DB:            db,
		Stock:         svc.Stock,
		Subcontractor: svc.Subcontractor,
		Notification:  svc.Notification,
	}))
	protected.Get("/dashboard/stock-movements", onlyAdmin, dashboard.MovementChartHandler(db))

	// Audit logs
	protected.Get("/audit-logs", onlyAdmin, audit.ListAuditLogsHandler(db))

	return app
}
