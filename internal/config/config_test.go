package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithRequiredEnv(t *testing.T) {
	// Arrange
	t.Setenv("FANLINE_DATABASE_URL", "postgres://localhost/fanline")
	t.Setenv("FANLINE_JWT_SECRET", "test-secret")

	// Act
	cfg, err := Load("")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/fanline", cfg.Database.URL)
	assert.Equal(t, "test-secret", cfg.JWT.Secret)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 3, cfg.Queue.PositionNotifyDelta)
	assert.Equal(t, 5*time.Minute, cfg.Queue.MissedAfter)
	assert.Equal(t, "* * * * *", cfg.Queue.SweepSpec)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	// Arrange
	t.Setenv("FANLINE_JWT_SECRET", "test-secret")

	path := filepath.Join(t.TempDir(), "config.yaml")
	contents := `
server:
  port: "9000"
database:
  url: postgres://localhost/fanline
queue:
  missed_after: 10m
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	// Act
	cfg, err := Load(path)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, 10*time.Minute, cfg.Queue.MissedAfter)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	// Arrange
	t.Setenv("FANLINE_JWT_SECRET", "test-secret")
	t.Setenv("FANLINE_DATABASE_URL", "postgres://env-host/fanline")

	path := filepath.Join(t.TempDir(), "config.yaml")
	contents := `
database:
  url: postgres://file-host/fanline
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	// Act
	cfg, err := Load(path)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "postgres://env-host/fanline", cfg.Database.URL)
}

func TestLoad_MissingDatabaseURL(t *testing.T) {
	// Arrange
	t.Setenv("FANLINE_JWT_SECRET", "test-secret")

	// Act
	_, err := Load("")

	// Assert
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.url")
}

func TestLoad_MissingJWTSecret(t *testing.T) {
	// Arrange
	t.Setenv("FANLINE_DATABASE_URL", "postgres://localhost/fanline")

	// Act
	_, err := Load("")

	// Assert
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt.secret")
}

func TestLoad_MissingFileIsIgnored(t *testing.T) {
	// Arrange
	t.Setenv("FANLINE_DATABASE_URL", "postgres://localhost/fanline")
	t.Setenv("FANLINE_JWT_SECRET", "test-secret")

	// Act
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Log.Format)
}
