package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	defaultDSN         = "host=localhost user=postgres password=postgres dbname=servistakip port=5432 sslmode=disable"
	defaultCORSOrigins = "http://localhost:5173"
)

type Config struct {
	HTTPPort       string
	DatabaseDriver string // postgres | sqlite
	DatabaseDSN    string
	DBLogLevel     string // silent | error | warn | info
	JWTSecret      string
	CORSOrigins    string
	UploadDir      string // proje dosyalarının kaydedileceği klasör

	// Stok çıkışı mevcut miktarı aşabilir mi? (false: reddedilir)
	AllowNegativeStock bool

	// Kritik stok bildirim zamanlaması (saniyeli cron ifadesi). Boşsa devre dışı.
	StockAlertSchedule string
}

func Load() *Config {
	// .env opsiyonel; yoksa sadece ortam değişkenleri kullanılır
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[WARN] .env okunamadı: %v", err)
	}

	cfg := &Config{
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		DatabaseDriver:     strings.ToLower(getEnv("DATABASE_DRIVER", "postgres")),
		DatabaseDSN:        getEnv("DATABASE_DSN", defaultDSN),
		DBLogLevel:         strings.ToLower(getEnv("DB_LOG_LEVEL", "warn")),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		CORSOrigins:        getEnv("CORS_ALLOWED_ORIGINS", defaultCORSOrigins),
		UploadDir:          getEnv("UPLOAD_DIR", "./uploads"),
		AllowNegativeStock: getEnvBool("ALLOW_NEGATIVE_STOCK", false),
		StockAlertSchedule: getEnvAllowEmpty("STOCK_ALERT_SCHEDULE", "0 0 8 * * *"),
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] %v", err)
	}

	if cfg.DatabaseDriver == "postgres" && cfg.DatabaseDSN == defaultDSN {
		log.Println("[WARN] DATABASE_DSN varsayılan değer kullanılıyor, production için mutlaka kendi Postgres bağlantı bilgisini tanımla.")
	}
	if cfg.CORSOrigins == defaultCORSOrigins {
		log.Println("[WARN] CORS_ALLOWED_ORIGINS varsayılan değer kullanılıyor, production için mutlaka kendi domain'ini tanımla.")
	}
	if cfg.AllowNegativeStock {
		log.Println("[WARN] ALLOW_NEGATIVE_STOCK açık: stok miktarı eksiye düşebilir.")
	}

	return cfg
}

// Validate: zorunlu ayarları kontrol eder
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return configError("JWT_SECRET environment değişkeni tanımlanmamış! Production için zorunludur.")
	}
	if len(c.JWTSecret) < 32 {
		return configError("JWT_SECRET en az 32 karakter olmalıdır! Güvenlik riski.")
	}
	switch c.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		return configError("DATABASE_DRIVER 'postgres' veya 'sqlite' olmalıdır")
	}
	return nil
}

type configError string

func (e configError) Error() string { return string(e) }

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getEnvAllowEmpty: değişken tanımlı ama boşsa boş döner (özelliği kapatmak için)
func getEnvAllowEmpty(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(v)
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("[WARN] %s geçersiz boolean (%q), varsayılan kullanılıyor: %v", key, v, def)
		return def
	}
	return b
}
