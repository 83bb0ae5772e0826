package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port          string
	DBPath        string
	JWTSecret     string
	TokenTTL      time.Duration
	CORSOrigins   []string
	MigrationsDir string

	CacheBackend string
	Redis        RedisConfig

	// RateLimit uses the limiter formatted rate, e.g. "600-M". Empty disables it.
	RateLimit string

	BoardIdleTTL  time.Duration
	EvictSchedule string

	LogLevel  string
	LogFormat string

	Grid Grid
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// TTL expires cached weeks nobody touched. Zero keeps them indefinitely.
	TTL time.Duration
}

// Grid tunes the week grid engine. It is read from the optional YAML file
// named by CONFIG_FILE.
type Grid struct {
	PixelsPerHour          float64 `yaml:"pixels_per_hour"`
	ResizeSnapMinutes      int     `yaml:"resize_snap_minutes"`
	DropSlotMinutes        int     `yaml:"drop_slot_minutes"`
	MinDurationMinutes     int     `yaml:"min_duration_minutes"`
	DefaultDurationMinutes int     `yaml:"default_duration_minutes"`
	DragGraceMS            int     `yaml:"drag_grace_ms"`
	ResizeWriteThrough     bool    `yaml:"resize_write_through"`
	DragWriteThrough       bool    `yaml:"drag_write_through"`
}

func DefaultGrid() Grid {
	return Grid{
		PixelsPerHour:          64,
		ResizeSnapMinutes:      10,
		DropSlotMinutes:        30,
		MinDurationMinutes:     30,
		DefaultDurationMinutes: 30,
		DragGraceMS:            150,
		ResizeWriteThrough:     true,
		DragWriteThrough:       false,
	}
}

func (g Grid) MinDuration() time.Duration {
	return time.Duration(g.MinDurationMinutes) * time.Minute
}

func (g Grid) DefaultDuration() time.Duration {
	return time.Duration(g.DefaultDurationMinutes) * time.Minute
}

func (g Grid) DragGrace() time.Duration {
	return time.Duration(g.DragGraceMS) * time.Millisecond
}

// Validate rejects settings the grid engine cannot work with.
func (g Grid) Validate() error {
	switch {
	case g.PixelsPerHour <= 0:
		return fmt.Errorf("grid.pixels_per_hour must be positive, got %v", g.PixelsPerHour)
	case g.ResizeSnapMinutes <= 0 || 60%g.ResizeSnapMinutes != 0:
		return fmt.Errorf("grid.resize_snap_minutes must divide 60, got %d", g.ResizeSnapMinutes)
	case g.DropSlotMinutes <= 0 || 60%g.DropSlotMinutes != 0:
		return fmt.Errorf("grid.drop_slot_minutes must divide 60, got %d", g.DropSlotMinutes)
	case g.MinDurationMinutes < 0:
		return fmt.Errorf("grid.min_duration_minutes must not be negative, got %d", g.MinDurationMinutes)
	case g.DefaultDurationMinutes <= 0:
		return fmt.Errorf("grid.default_duration_minutes must be positive, got %d", g.DefaultDurationMinutes)
	case g.DragGraceMS < 0:
		return fmt.Errorf("grid.drag_grace_ms must not be negative, got %d", g.DragGraceMS)
	}
	return nil
}

// Load reads .env (when present), then the process environment, then the
// YAML grid overlay.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Config{
		Port:          getEnv("PORT", "8080"),
		DBPath:        getEnv("DB_PATH", "./data/weekplan.db"),
		JWTSecret:     getEnv("JWT_SECRET", "change-this-secret"),
		TokenTTL:      time.Duration(getEnvInt("TOKEN_TTL_HOURS", 72)) * time.Hour,
		CORSOrigins:   getEnvList("CORS_ORIGINS", []string{"http://localhost:5173", "http://127.0.0.1:5173"}),
		MigrationsDir: getEnv("MIGRATIONS_DIR", "./migrations"),
		CacheBackend:  strings.ToLower(getEnv("CACHE_BACKEND", "sqlite")),
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getEnvInt("REDIS_DB", 0),
			TTL:      time.Duration(getEnvInt("REDIS_TTL_MINUTES", 0)) * time.Minute,
		},
		RateLimit:     getEnv("RATE_LIMIT", "600-M"),
		BoardIdleTTL:  time.Duration(getEnvInt("BOARD_IDLE_TTL_MINUTES", 30)) * time.Minute,
		EvictSchedule: getEnv("EVICT_SCHEDULE", "@every 5m"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "text"),
		Grid:          DefaultGrid(),
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		grid, err := LoadGrid(path, cfg.Grid)
		if err != nil {
			return Config{}, err
		}
		cfg.Grid = grid
	}
	if err := cfg.Grid.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type fileConfig struct {
	Grid yaml.Node `yaml:"grid"`
}

// LoadGrid overlays the grid section of a YAML file onto base. Keys absent
// from the file keep their base value.
func LoadGrid(path string, base Grid) (Grid, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read config file: %w", err)
	}

	var file fileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return base, fmt.Errorf("parse config file: %w", err)
	}
	if file.Grid.IsZero() {
		return base, nil
	}

	grid := base
	if err := file.Grid.Decode(&grid); err != nil {
		return base, fmt.Errorf("parse grid section: %w", err)
	}
	return grid, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	if len(items) == 0 {
		return fallback
	}
	return items
}
