package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/FarukBas12/servistakip-sub001/internal/config"
	"github.com/FarukBas12/servistakip-sub001/internal/database"
	"github.com/FarukBas12/servistakip-sub001/internal/server"
	"github.com/FarukBas12/servistakip-sub001/internal/stock"
)

func main() {
	cfg := config.Load()
	db := database.Init(cfg)

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		log.Fatalf("Upload klasörü oluşturulamadı: %v", err)
	}

	svc := server.NewServices(cfg, db)
	app := server.NewWithServices(cfg, db, svc)

	// Kritik stok bildirimi (STOCK_ALERT_SCHEDULE boşsa kapalı)
	var alert *stock.LowStockAlert
	if cfg.StockAlertSchedule != "" {
		alert = stock.NewLowStockAlert(svc.Stock, svc.Notification)
		if err := alert.Start(cfg.StockAlertSchedule); err != nil {
			log.Fatalf("Stok uyarı zamanlaması geçersiz: %v", err)
		}
	}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit

		log.Println("Server kapatılıyor...")
		if alert != nil {
			alert.Stop()
		}
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("[WARN] Shutdown hatası: %v", err)
		}
	}()

	log.Println("Server çalışıyor port:", cfg.HTTPPort)
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		log.Fatal(err)
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
