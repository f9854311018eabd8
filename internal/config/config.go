package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Click    ClickConfig
	Payments PaymentsConfig
}

type ServerConfig struct {
	Port int
	Env  string // "development", "production"
}

type DatabaseConfig struct {
	Host    string
	Port    string
	Name    string
	User    string
	Pass    string
	Charset string
}

type RedisConfig struct {
	Addr string
	Pass string
	DB   int
}

type JWTConfig struct {
	Secret string
}

// ClickConfig holds the Click merchant credentials and perimeter settings.
// SecretKey signs webhook payloads; AllowedIPs is the webhook source
// allowlist (empty means allow all).
type ClickConfig struct {
	MerchantID     string
	ServiceID      string
	MerchantUserID string
	SecretKey      string
	BaseURL        string
	APIBaseURL     string
	ReturnURL      string
	CancelURL      string
	AllowedIPs     []string
}

// PaymentsConfig bounds a single top-up and drives the reconciler.
type PaymentsConfig struct {
	MinTopUp      decimal.Decimal
	MaxTopUp      decimal.Decimal
	ReconcileSpec string
	PendingCutoff time.Duration
}

// Load reads configuration from .env file and environment variables.
func Load() (*Config, error) {
	// Load .env file (ignore error if missing)
	_ = godotenv.Load()

	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("APP_PORT", 8080)
	viper.SetDefault("APP_ENV", "production")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "3306")
	viper.SetDefault("DB_CHARSET", "utf8mb4")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("CLICK_BASE_URL", "https://my.click.uz/services/pay")
	viper.SetDefault("CLICK_API_BASE_URL", "https://api.click.uz/v2/merchant")
	viper.SetDefault("MIN_TOPUP", "1000.00")
	viper.SetDefault("MAX_TOPUP", "10000000.00")
	viper.SetDefault("RECONCILE_CRON", "*/15 * * * *")
	viper.SetDefault("PENDING_CUTOFF", "2h")

	minTopUp, err := decimal.NewFromString(viper.GetString("MIN_TOPUP"))
	if err != nil {
		minTopUp = decimal.NewFromInt(1000)
	}
	maxTopUp, err := decimal.NewFromString(viper.GetString("MAX_TOPUP"))
	if err != nil {
		maxTopUp = decimal.NewFromInt(10000000)
	}
	cutoff, err := time.ParseDuration(viper.GetString("PENDING_CUTOFF"))
	if err != nil {
		cutoff = 2 * time.Hour
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: viper.GetInt("APP_PORT"),
			Env:  viper.GetString("APP_ENV"),
		},
		Database: DatabaseConfig{
			Host:    viper.GetString("DB_HOST"),
			Port:    viper.GetString("DB_PORT"),
			Name:    viper.GetString("DB_NAME"),
			User:    viper.GetString("DB_USER"),
			Pass:    viper.GetString("DB_PASS"),
			Charset: viper.GetString("DB_CHARSET"),
		},
		Redis: RedisConfig{
			Addr: viper.GetString("REDIS_ADDR"),
			Pass: viper.GetString("REDIS_PASS"),
			DB:   viper.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret: viper.GetString("JWT_SECRET"),
		},
		Click: ClickConfig{
			MerchantID:     viper.GetString("CLICK_MERCHANT_ID"),
			ServiceID:      viper.GetString("CLICK_SERVICE_ID"),
			MerchantUserID: viper.GetString("CLICK_MERCHANT_USER_ID"),
			SecretKey:      viper.GetString("CLICK_SECRET_KEY"),
			BaseURL:        viper.GetString("CLICK_BASE_URL"),
			APIBaseURL:     viper.GetString("CLICK_API_BASE_URL"),
			ReturnURL:      viper.GetString("CLICK_RETURN_URL"),
			CancelURL:      viper.GetString("CLICK_CANCEL_URL"),
			AllowedIPs:     splitList(viper.GetString("CLICK_ALLOWED_IPS")),
		},
		Payments: PaymentsConfig{
			MinTopUp:      minTopUp,
			MaxTopUp:      maxTopUp,
			ReconcileSpec: viper.GetString("RECONCILE_CRON"),
			PendingCutoff: cutoff,
		},
	}

	if cfg.Database.Name == "" {
		log.Println("WARNING: DB_NAME is not set")
	}
	if cfg.Click.SecretKey == "" {
		log.Println("WARNING: CLICK_SECRET_KEY is not set")
	}

	return cfg, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// DSN returns the MySQL DSN string for GORM.
func (d *DatabaseConfig) DSN() string {
	return d.User + ":" + d.Pass + "@tcp(" + d.Host + ":" + d.Port + ")/" + d.Name + "?charset=" + d.Charset + "&parseTime=True&loc=Local"
}
