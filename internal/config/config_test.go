package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envFrom(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestLoadCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, defaultListen, cfg.Listen)
	assert.True(t, cfg.SeedFallback)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoadReadsYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen: ":9000"
timezone: Asia/Seoul
log_format: JSON
database:
  host: db.internal
  user: cal
  connect_timeout: 3s
ics:
  - url: https://example.com/a.ics
  - id: holidays
    url: https://example.com/b.ics
basic_auth:
  username: admin
  password: secret
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Listen)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.True(t, cfg.Database.Enabled())
	assert.Equal(t, 3306, cfg.Database.Port)
	assert.Equal(t, 3*time.Second, cfg.Database.ConnectTimeout)
	require.Len(t, cfg.ICS, 2)
	assert.Equal(t, "feed1", cfg.ICS[0].ID)
	assert.Equal(t, "holidays", cfg.ICS[1].ID)
	require.NotNil(t, cfg.BasicAuth)
	assert.Equal(t, "admin", cfg.BasicAuth.Username)
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "Asia/Seoul", cfg.Location().String())
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: [unterminated"), 0o600))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.ApplyEnv(envFrom(map[string]string{
		"SHARECAL_LISTEN":              ":7000",
		"DB_HOST":                      "mysql",
		"DB_PORT":                      "3307",
		"DB_PASSWORD":                  "pw",
		"SHARECAL_SEED_FALLBACK":       "false",
		"SHARECAL_BASIC_AUTH_USER":     "ops",
		"SHARECAL_BASIC_AUTH_PASSWORD": "hunter2",
		"LOG_LEVEL":                    "debug",
	}))
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Listen)
	assert.Equal(t, "mysql", cfg.Database.Host)
	assert.Equal(t, 3307, cfg.Database.Port)
	assert.Equal(t, "pw", cfg.Database.Password)
	assert.False(t, cfg.SeedFallback)
	assert.Equal(t, "debug", cfg.LogLevel)
	require.NotNil(t, cfg.BasicAuth)
	assert.Equal(t, "hunter2", cfg.BasicAuth.Password)

	assert.Error(t, DefaultConfig().ApplyEnv(envFrom(map[string]string{"DB_PORT": "abc"})))
	assert.Error(t, DefaultConfig().ApplyEnv(envFrom(map[string]string{"SHARECAL_SEED_FALLBACK": "maybe"})))
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timezone = "Mars/Olympus"
	cfg.ICS = []ICSConfig{{ID: "a"}, {ID: "a", URL: "https://x"}}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timezone")
	assert.Contains(t, err.Error(), "url is empty")
	assert.Contains(t, err.Error(), "duplicate id")
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.ICS = []ICSConfig{{ID: "team", URL: "https://example.com/team.ics", Name: "Team"}}
	require.NoError(t, cfg.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.ICS, got.ICS)
	assert.Equal(t, cfg.Database.ConnectTimeout, got.Database.ConnectTimeout)
}
