package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Helper function tests
// ---------------------------------------------------------------------------

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		setVal   *string // nil = don't set; pointer to distinguish "" from unset
		fallback string
		want     string
	}{
		{name: "returns fallback when unset", key: "PLANK_TEST_GETENV_UNSET", setVal: nil, fallback: "default", want: "default"},
		{name: "returns env value when set", key: "PLANK_TEST_GETENV_SET", setVal: strPtr("custom"), fallback: "default", want: "custom"},
		{name: "returns fallback when empty string", key: "PLANK_TEST_GETENV_EMPTY", setVal: strPtr(""), fallback: "default", want: "default"},
		{name: "preserves whitespace", key: "PLANK_TEST_GETENV_WS", setVal: strPtr("  spaced  "), fallback: "x", want: "  spaced  "},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.setVal != nil {
				t.Setenv(tc.key, *tc.setVal)
			}
			assert.Equal(t, tc.want, getEnv(tc.key, tc.fallback))
		})
	}
}

func TestGetEnvInt(t *testing.T) {
	t.Run("returns fallback when unset", func(t *testing.T) {
		got, err := getEnvInt("PLANK_TEST_GETENVINT_UNSET", 42)
		require.NoError(t, err)
		assert.Equal(t, 42, got)
	})

	t.Run("parses valid int", func(t *testing.T) {
		t.Setenv("PLANK_TEST_GETENVINT_SET", "7")
		got, err := getEnvInt("PLANK_TEST_GETENVINT_SET", 42)
		require.NoError(t, err)
		assert.Equal(t, 7, got)
	})

	t.Run("errors on invalid int", func(t *testing.T) {
		t.Setenv("PLANK_TEST_GETENVINT_BAD", "not-a-number")
		_, err := getEnvInt("PLANK_TEST_GETENVINT_BAD", 42)
		assert.Error(t, err)
	})
}

func TestGetEnvDuration(t *testing.T) {
	t.Run("returns fallback when unset", func(t *testing.T) {
		got, err := getEnvDuration("PLANK_TEST_GETENVDUR_UNSET", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, time.Minute, got)
	})

	t.Run("parses valid duration", func(t *testing.T) {
		t.Setenv("PLANK_TEST_GETENVDUR_SET", "250ms")
		got, err := getEnvDuration("PLANK_TEST_GETENVDUR_SET", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, 250*time.Millisecond, got)
	})

	t.Run("errors on invalid duration", func(t *testing.T) {
		t.Setenv("PLANK_TEST_GETENVDUR_BAD", "soon")
		_, err := getEnvDuration("PLANK_TEST_GETENVDUR_BAD", time.Minute)
		assert.Error(t, err)
	})
}

func TestGetEnvList(t *testing.T) {
	t.Run("returns fallback when unset", func(t *testing.T) {
		got := getEnvList("PLANK_TEST_GETENVLIST_UNSET", []string{"a"})
		assert.Equal(t, []string{"a"}, got)
	})

	t.Run("splits and trims", func(t *testing.T) {
		t.Setenv("PLANK_TEST_GETENVLIST_SET", " a , b ,, c ")
		got := getEnvList("PLANK_TEST_GETENVLIST_SET", nil)
		assert.Equal(t, []string{"a", "b", "c"}, got)
	})
}

// ---------------------------------------------------------------------------
// Load and validation tests
// ---------------------------------------------------------------------------

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 25, cfg.Database.MaxConns)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 150*time.Millisecond, cfg.Sync.PersistDebounce)
	assert.Equal(t, time.Second, cfg.Sync.SyncInterval)
	assert.Equal(t, 30*time.Second, cfg.Sync.PresenceTTL)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.Server.CORSOrigins)
}

func TestLoadCORSOrigins(t *testing.T) {
	t.Setenv("PLANK_CORS_ORIGINS", "https://plank.example.com, https://staging.plank.example.com")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t,
		[]string{"https://plank.example.com", "https://staging.plank.example.com"},
		cfg.Server.CORSOrigins,
	)
}

func TestLoadValidation(t *testing.T) {
	t.Run("rejects out-of-range port", func(t *testing.T) {
		t.Setenv("PLANK_DB_PORT", "70000")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("rejects zero max conns", func(t *testing.T) {
		t.Setenv("PLANK_DB_MAX_CONNS", "0")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("rejects negative debounce", func(t *testing.T) {
		t.Setenv("PLANK_PERSIST_DEBOUNCE", "-1s")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("rejects zero sync interval", func(t *testing.T) {
		t.Setenv("PLANK_SYNC_INTERVAL", "0s")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("rejects zero presence ttl", func(t *testing.T) {
		t.Setenv("PLANK_PRESENCE_TTL", "0s")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("rejects unparseable timeout", func(t *testing.T) {
		t.Setenv("PLANK_SERVER_READ_TIMEOUT", "whenever")
		_, err := Load()
		assert.Error(t, err)
	})
}

func TestDSN(t *testing.T) {
	c := DatabaseConfig{
		Host: "db", Port: 5433, User: "u", Password: "p", DBName: "plank", SSLMode: "require",
	}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=plank sslmode=require", c.DSN())
}

func strPtr(s string) *string { return &s }
