package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"lojadash/backend/internal/ingest"
	"lojadash/backend/internal/store/sqlstore"
)

type Config struct {
	Port               string
	AllowedOrigin      string
	DatabaseURL        string
	DatabaseDriver     string
	SQLitePath         string
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	MetricsTTLSeconds  int
	AuthSecret         string
	MaxUploadMB        int
	WorkbookLayoutFile string
}

func Load() Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	ttl, err := strconv.Atoi(getEnv("METRICS_TTL_SECONDS", "300"))
	if err != nil || ttl < 1 {
		ttl = 300
	}
	maxUpload, err := strconv.Atoi(getEnv("MAX_UPLOAD_MB", "20"))
	if err != nil || maxUpload < 1 {
		maxUpload = 20
	}

	cfg := Config{
		Port:               getEnv("PORT", "8080"),
		AllowedOrigin:      getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		DatabaseDriver:     getEnv("DATABASE_DRIVER", "pgx"),
		SQLitePath:         strings.TrimSpace(os.Getenv("SQLITE_PATH")),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		RedisDB:            redisDB,
		MetricsTTLSeconds:  ttl,
		AuthSecret:         strings.TrimSpace(os.Getenv("AUTH_SECRET")),
		MaxUploadMB:        maxUpload,
		WorkbookLayoutFile: strings.TrimSpace(os.Getenv("WORKBOOK_LAYOUT_FILE")),
	}

	return cfg
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func (c Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// DatabaseTarget picks the SQL snapshot store. DATABASE_URL wins over
// SQLITE_PATH; an empty dsn means no database is configured.
func (c Config) DatabaseTarget() (sqlstore.Dialect, string, error) {
	if c.DatabaseURL != "" {
		dialect, err := sqlstore.ParseDialect(c.DatabaseDriver)
		if err != nil {
			return "", "", err
		}
		return dialect, c.DatabaseURL, nil
	}
	if c.SQLitePath != "" {
		return sqlstore.SQLite, c.SQLitePath, nil
	}
	return "", "", nil
}

// LoadLayout reads a YAML workbook layout over the built-in defaults. An
// empty path returns the defaults.
func LoadLayout(path string) (ingest.Layout, error) {
	layout := ingest.DefaultLayout()
	if path == "" {
		return layout, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return ingest.Layout{}, fmt.Errorf("read layout %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &layout); err != nil {
		return ingest.Layout{}, fmt.Errorf("parse layout %s: %w", path, err)
	}
	if err := validateLayout(layout); err != nil {
		return ingest.Layout{}, fmt.Errorf("layout %s: %w", path, err)
	}
	return layout, nil
}

func validateLayout(layout ingest.Layout) error {
	if len(layout.OrderSheets) == 0 {
		return errors.New("order_sheets must not be empty")
	}
	cols := layout.Catalog
	for name, idx := range map[string]int{
		"reference":      cols.Reference,
		"name":           cols.Name,
		"category":       cols.Category,
		"stock":          cols.Stock,
		"base_price":     cols.BasePrice,
		"price":          cols.Price,
		"price_suffix_s": cols.PriceSuffixS,
		"vat":            cols.VAT,
		"profit":         cols.Profit,
		"supplier":       cols.Supplier,
	} {
		if idx < 0 {
			return fmt.Errorf("catalog column %s must not be negative", name)
		}
	}
	return nil
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}
