package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	chdir(t, t.TempDir())

	cfg := Load()

	assert.Equal(t, "8090", cfg.ServerPort)
	assert.Equal(t, 5, cfg.RecentWindowDays)
	assert.Equal(t, 7, cfg.HomeRecentWindowDays)
	assert.Equal(t, 8, cfg.TrendingTopN)
	assert.Equal(t, 5, cfg.GradientPaletteSize)
	assert.Equal(t, time.Hour, cfg.TrendingCacheTTL)
	assert.Equal(t, "http://localhost:5000", cfg.BackendURL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	chdir(t, t.TempDir())
	t.Setenv("RECENT_WINDOW_DAYS", "3")
	t.Setenv("TRENDING_TOP_N", "not-a-number")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://eventdekho.in, *.eventdekho.in ,")
	t.Setenv("BACKEND_URL", "https://api.eventdekho.in/")
	t.Setenv("BACKEND_PORT", "")

	cfg := Load()

	assert.Equal(t, 3, cfg.RecentWindowDays)
	assert.Equal(t, 8, cfg.TrendingTopN, "invalid integer falls back")
	assert.Equal(t, []string{"https://eventdekho.in", "*.eventdekho.in"}, cfg.AllowedOrigins)
	assert.Equal(t, "https://api.eventdekho.in", cfg.BackendURL)
}

func TestBackendURL(t *testing.T) {
	assert.Equal(t, "http://localhost:5000", backendURL("http://localhost", "5000"))
	assert.Equal(t, "http://localhost:8000", backendURL("http://localhost:8000", "5000"))
	assert.Equal(t, "https://api.example.com/v1", backendURL("https://api.example.com/v1/", "5000"))
	assert.Equal(t, "backend:5000", backendURL("backend", "5000"))
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent to testing.T.Chdir on Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatal(err)
		}
	})
}
