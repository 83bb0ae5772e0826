package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())
	for _, key := range []string{"PORT", "CACHE_BACKEND", "CONFIG_FILE", "RATE_LIMIT", "BOARD_IDLE_TTL_MINUTES"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "sqlite", cfg.CacheBackend)
	assert.Equal(t, "600-M", cfg.RateLimit)
	assert.Equal(t, 30*time.Minute, cfg.BoardIdleTTL)
	assert.Equal(t, DefaultGrid(), cfg.Grid)
	assert.Equal(t, 150*time.Millisecond, cfg.Grid.DragGrace())
}

func TestLoad_EnvAndDotenv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("REDIS_DB=3\nREDIS_TTL_MINUTES=90\nPORT=9999\n"), 0o600))
	t.Setenv("PORT", "7000")
	t.Setenv("CACHE_BACKEND", "Redis")
	t.Setenv("CORS_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("CONFIG_FILE", "")
	for _, key := range []string{"REDIS_DB", "REDIS_TTL_MINUTES"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "7000", cfg.Port, "process env wins over .env")
	assert.Equal(t, "redis", cfg.CacheBackend)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, 90*time.Minute, cfg.Redis.TTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
}

func TestLoadGrid_Overlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weekplan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
grid:
  pixels_per_hour: 48
  min_duration_minutes: 0
  drag_write_through: true
`), 0o600))

	grid, err := LoadGrid(path, DefaultGrid())
	require.NoError(t, err)
	assert.Equal(t, 48.0, grid.PixelsPerHour)
	assert.Zero(t, grid.MinDurationMinutes)
	assert.True(t, grid.DragWriteThrough)
	assert.True(t, grid.ResizeWriteThrough, "absent keys keep defaults")
	assert.Equal(t, 10, grid.ResizeSnapMinutes)
}

func TestLoadGrid_NoGridSection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weekplan.yaml")
	require.NoError(t, os.WriteFile(path, []byte("other: 1\n"), 0o600))

	grid, err := LoadGrid(path, DefaultGrid())
	require.NoError(t, err)
	assert.Equal(t, DefaultGrid(), grid)
}

func TestGrid_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Grid)
	}{
		{"zero pixels", func(g *Grid) { g.PixelsPerHour = 0 }},
		{"snap not dividing hour", func(g *Grid) { g.ResizeSnapMinutes = 7 }},
		{"zero drop slot", func(g *Grid) { g.DropSlotMinutes = 0 }},
		{"negative floor", func(g *Grid) { g.MinDurationMinutes = -1 }},
		{"zero default duration", func(g *Grid) { g.DefaultDurationMinutes = 0 }},
		{"negative grace", func(g *Grid) { g.DragGraceMS = -5 }},
	}
	require.NoError(t, DefaultGrid().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := DefaultGrid()
			tt.mutate(&g)
			assert.Error(t, g.Validate())
		})
	}
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
