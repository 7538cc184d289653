package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirTemp moves the test into an empty directory so no stray .env is picked up.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, DriverPostgres, cfg.StoreDriver)
	assert.Equal(t, 1, cfg.WindowMin)
	assert.Equal(t, 10, cfg.WindowMax)
	assert.Equal(t, time.Second, cfg.WindowUnit)
	assert.Equal(t, []string{"http://localhost:5173", "http://127.0.0.1:5173"}, cfg.CORSOrigins)
	assert.Empty(t, cfg.RedisAddr)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	chdirTemp(t)
	t.Setenv("STORE_DRIVER", "SQLite")
	t.Setenv("SQLITE_PATH", "/tmp/x.db")
	t.Setenv("PROCESSING_WINDOW_MIN", "0")
	t.Setenv("PROCESSING_WINDOW_MAX", "3")
	t.Setenv("PROCESSING_WINDOW_UNIT", "50ms")
	t.Setenv("MAX_IN_FLIGHT_ADMISSIONS", "8")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.StoreDriver)
	assert.Equal(t, "/tmp/x.db", cfg.SQLitePath)
	assert.Equal(t, 0, cfg.WindowMin)
	assert.Equal(t, 3, cfg.WindowMax)
	assert.Equal(t, 50*time.Millisecond, cfg.WindowUnit)
	assert.Equal(t, 8, cfg.MaxInFlight)
}

func TestLoad_ReadsEnvFileWithoutOverridingProcessEnv(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("PORT=9999\nLOG_LEVEL=debug\n"), 0o600))
	t.Setenv("LOG_LEVEL", "warn")
	// godotenv sets PORT in the process environment; restore it afterwards.
	t.Setenv("PORT", "")
	require.NoError(t, os.Unsetenv("PORT"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9999", cfg.Port)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, filepath.Join(dir, ".env"), cfg.EnvFile)
}

func TestValidate_RejectsBadValues(t *testing.T) {
	t.Parallel()

	cfg := Config{
		Port:            "8080",
		StoreDriver:     "mysql",
		WindowMin:       5,
		WindowMax:       1,
		WindowUnit:      time.Second,
		ShutdownTimeout: time.Second,
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown STORE_DRIVER")
	assert.Contains(t, err.Error(), "processing window 5..1 is invalid")
}

func TestParseCSV(t *testing.T) {
	t.Parallel()

	assert.Nil(t, ParseCSV(""))
	assert.Equal(t, []string{"a", "b"}, ParseCSV(" a, ,b ,"))
}
