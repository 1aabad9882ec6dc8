package config

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 4, cfg.CollisionWorkers)
	assert.Equal(t, 4096, cfg.TriangulationCacheSize)
	assert.Empty(t, cfg.SeedScene)
	assert.Equal(t, slog.LevelInfo, cfg.Level())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("COLLISION_WORKERS", "8")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("ALLOWED_ORIGINS", "https://stage.example.com, http://localhost:3000 ,")
	t.Setenv("SEED_SCENE", "testdata/scene.yaml")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, 8, cfg.CollisionWorkers)
	assert.Equal(t, slog.LevelDebug, cfg.Level())
	assert.Equal(t, "testdata/scene.yaml", cfg.SeedScene)
	assert.Equal(t, []string{"https://stage.example.com", "http://localhost:3000"}, cfg.Origins())
	assert.Equal(t, []string{"stage.example.com", "localhost:3000"}, cfg.OriginHosts())
}

func TestLoadRejectsBadNumbers(t *testing.T) {
	t.Setenv("COLLISION_WORKERS", "many")
	_, err := Load()
	assert.Error(t, err)
}

func TestLevelFallsBack(t *testing.T) {
	cfg := &Config{LogLevel: "chatty"}
	assert.Equal(t, slog.LevelInfo, cfg.Level())
}
