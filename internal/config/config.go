package config

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the API process needs at startup.
type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
	LogLevel        slog.Level

	DB DBConfig

	Table TableConfig

	RateLimitRPS   float64
	RateLimitBurst int
	AllowedOrigins []string
}

// DBConfig describes how to reach the SQLite file.
type DBConfig struct {
	Path         string
	BusyTimeout  time.Duration
	MaxOpenConns int
	QueryTimeout time.Duration
}

// TableConfig names the books table and the columns the queries depend on.
type TableConfig struct {
	Name              string
	ISBNColumn        string
	DescriptionColumn string
	DateColumn        string
}

const (
	DefaultAddr    = ":8080"
	DefaultDBPath  = "db.sqlite3"
	DefaultTable   = "books"
	DefaultISBN    = "ISBN"
	DefaultDescCol = "description"
	DefaultDateCol = "Acc_Date"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// LoadEnvFiles loads .env and .env.local without overriding variables
// already present in the environment.
func LoadEnvFiles() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	var (
		cfg Config
		err error
	)

	cfg.Addr = getEnv("APP_ADDR", DefaultAddr)
	if cfg.ShutdownTimeout, err = getDuration("SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.LogLevel, err = getLogLevel("LOG_LEVEL", slog.LevelInfo); err != nil {
		return Config{}, err
	}

	cfg.DB.Path = getEnv("DB_PATH", DefaultDBPath)
	if cfg.DB.BusyTimeout, err = getDuration("DB_BUSY_TIMEOUT", 5*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.DB.MaxOpenConns, err = getInt("DB_MAX_OPEN_CONNS", 8); err != nil {
		return Config{}, err
	}
	if cfg.DB.MaxOpenConns < 1 {
		return Config{}, fmt.Errorf("DB_MAX_OPEN_CONNS must be at least 1, got %d", cfg.DB.MaxOpenConns)
	}
	if cfg.DB.QueryTimeout, err = getDuration("DB_QUERY_TIMEOUT", 5*time.Second); err != nil {
		return Config{}, err
	}

	cfg.Table = TableConfig{
		Name:              getEnv("BOOKS_TABLE", DefaultTable),
		ISBNColumn:        getEnv("BOOKS_ISBN_COLUMN", DefaultISBN),
		DescriptionColumn: getEnv("BOOKS_DESCRIPTION_COLUMN", DefaultDescCol),
		DateColumn:        getEnv("BOOKS_DATE_COLUMN", DefaultDateCol),
	}
	if err := cfg.Table.Validate(); err != nil {
		return Config{}, err
	}

	if cfg.RateLimitRPS, err = getFloat("RATE_LIMIT_RPS", 0); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitBurst, err = getInt("RATE_LIMIT_BURST", 20); err != nil {
		return Config{}, err
	}

	cfg.AllowedOrigins = splitList(os.Getenv("CORS_ALLOWED_ORIGINS"))

	return cfg, nil
}

// DefaultTableConfig returns the layout of the books table as provisioned
// by the catalog import.
func DefaultTableConfig() TableConfig {
	return TableConfig{
		Name:              DefaultTable,
		ISBNColumn:        DefaultISBN,
		DescriptionColumn: DefaultDescCol,
		DateColumn:        DefaultDateCol,
	}
}

// Validate rejects names that are not plain SQL identifiers.
func (t TableConfig) Validate() error {
	fields := []struct{ env, value string }{
		{"BOOKS_TABLE", t.Name},
		{"BOOKS_ISBN_COLUMN", t.ISBNColumn},
		{"BOOKS_DESCRIPTION_COLUMN", t.DescriptionColumn},
		{"BOOKS_DATE_COLUMN", t.DateColumn},
	}
	for _, f := range fields {
		if !identifierPattern.MatchString(f.value) {
			return fmt.Errorf("%s must be a plain identifier, got %q", f.env, f.value)
		}
	}
	return nil
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := getEnv(key, "")
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive, got %s", key, v)
	}
	return d, nil
}

func getInt(key string, def int) (int, error) {
	v := getEnv(key, "")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getFloat(key string, def float64) (float64, error) {
	v := getEnv(key, "")
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if f < 0 {
		return 0, fmt.Errorf("invalid %s: must not be negative", key)
	}
	return f, nil
}

func getLogLevel(key string, def slog.Level) (slog.Level, error) {
	v := getEnv(key, "")
	if v == "" {
		return def, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(v)); err != nil {
		return def, fmt.Errorf("invalid %s: %w", key, err)
	}
	return level, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
