package stock

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/FarukBas12/servistakip-sub001/internal/models"

	"github.com/robfig/cron/v3"
)

// Notifier: bildirim gönderici (notification.Service)
type Notifier interface {
	Notify(ctx context.Context, userID uint, title, message, link string) error
}

// LowStockAlert: kritik seviyedeki kalemleri aktif yöneticilere bildirir
type LowStockAlert struct {
	Stock    *Service
	Notifier Notifier

	scheduler *cron.Cron
}

const maxAlertLines = 10

func NewLowStockAlert(svc *Service, n Notifier) *LowStockAlert {
	return &LowStockAlert{Stock: svc, Notifier: n}
}

// Run: bildirim hataları yalnızca loglanır
func (a *LowStockAlert) Run(ctx context.Context) error {
	items, err := a.Stock.LowStock(ctx)
	if err != nil {
		return fmt.Errorf("kritik stoklar okunamadı: %w", err)
	}
	if len(items) == 0 {
		return nil
	}

	var admins []models.User
	if err := a.Stock.DB.WithContext(ctx).
		Where("role = ? AND active = ?", models.RoleAdmin, true).
		Find(&admins).Error; err != nil {
		return fmt.Errorf("yöneticiler okunamadı: %w", err)
	}

	lines := make([]string, 0, maxAlertLines+1)
	for i, it := range items {
		if i == maxAlertLines {
			lines = append(lines, fmt.Sprintf("... ve %d kalem daha", len(items)-maxAlertLines))
			break
		}
		lines = append(lines, fmt.Sprintf("%s: %s %s (kritik %s)", it.Name, it.Quantity.String(), it.Unit, it.CriticalLevel.String()))
	}
	title := fmt.Sprintf("%d stok kalemi kritik seviyede", len(items))
	message := strings.Join(lines, "\n")

	for _, u := range admins {
		if err := a.Notifier.Notify(ctx, u.ID, title, message, "/stocks?low=true"); err != nil {
			log.Printf("[WARN] Kritik stok bildirimi gönderilemedi (kullanıcı #%d): %v", u.ID, err)
		}
	}
	return nil
}

// Start: saniyeli cron ifadesiyle periyodik çalıştırır (ör: "0 0 8 * * *")
func (a *LowStockAlert) Start(schedule string) error {
	a.scheduler = cron.New(cron.WithSeconds())
	_, err := a.scheduler.AddFunc(schedule, func() {
		log.Println("Kritik stok kontrolü çalışıyor")
		if err := a.Run(context.Background()); err != nil {
			log.Printf("[ERROR] Kritik stok kontrolü: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("cron görevi eklenemedi: %w", err)
	}
	a.scheduler.Start()
	log.Printf("Kritik stok bildirimi zamanlandı: %s", schedule)
	return nil
}

func (a *LowStockAlert) Stop() {
	if a.scheduler != nil {
		<-a.scheduler.Stop().Done()
		log.Println("Kritik stok zamanlayıcısı durduruldu")
	}
}
