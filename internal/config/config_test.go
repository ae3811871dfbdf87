package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// allConfigKeys lists every TEMPMAIL_ env var that Load() reads.
var allConfigKeys = []string{
	"TEMPMAIL_CONFIG",
	"TEMPMAIL_MAIL_API_URL",
	"TEMPMAIL_DOMAINS",
	"TEMPMAIL_HISTORY_API_URL",
	"TEMPMAIL_SESSION_TOKEN",
	"TEMPMAIL_REFRESH_INTERVAL",
	"TEMPMAIL_PAGE_SIZE",
	"TEMPMAIL_CREDENTIAL_BACKEND",
	"TEMPMAIL_KEYRING_DIR",
	"TEMPMAIL_KEYRING_PASSWORD",
	"TEMPMAIL_LISTEN_ADDR",
	"TEMPMAIL_SESSION_SECRET",
	"TEMPMAIL_DB_PATH",
	"TEMPMAIL_SECRET_KEY",
}

// isolateConfigEnv saves and unsets all TEMPMAIL_ env vars so tests don't
// inherit values from the host environment.
// t.Cleanup restores original values after the test.
func isolateConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range allConfigKeys {
		if orig, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, orig) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
		os.Unsetenv(key)
	}
}

func TestLoad_Success(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("TEMPMAIL_MAIL_API_URL", "https://mail.example.com/")
	t.Setenv("TEMPMAIL_DOMAINS", "a.com, b.com")
	t.Setenv("TEMPMAIL_HISTORY_API_URL", "https://app.example.com")
	t.Setenv("TEMPMAIL_SESSION_TOKEN", "sess")
	t.Setenv("TEMPMAIL_REFRESH_INTERVAL", "30s")
	t.Setenv("TEMPMAIL_LISTEN_ADDR", "0.0.0.0:9090")
	t.Setenv("TEMPMAIL_DB_PATH", "/tmp/test.db")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "https://mail.example.com", cfg.MailAPIURL)
	assert.Equal(t, []string{"a.com", "b.com"}, cfg.Domains)
	assert.Equal(t, 30*time.Second, cfg.RefreshInterval)
	assert.Equal(t, "0.0.0.0:9090", cfg.ListenAddr)
	assert.Equal(t, "/tmp/test.db", cfg.DBPath)
	assert.True(t, cfg.HasHistoryAPI())
	assert.NoError(t, cfg.RequireClient())
}

func TestLoad_Defaults(t *testing.T) {
	isolateConfigEnv(t)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, []string{"nzsmcguide.com"}, cfg.Domains)
	assert.Equal(t, 180*time.Second, cfg.RefreshInterval)
	assert.Equal(t, 20, cfg.PageSize)
	assert.Equal(t, BackendSQLite, cfg.CredentialBackend)
	assert.Equal(t, "127.0.0.1:8080", cfg.ListenAddr)
	assert.Equal(t, "tempmail.db", cfg.DBPath)
	assert.Nil(t, cfg.SecretKey)
	assert.False(t, cfg.HasHistoryAPI())
	assert.Error(t, cfg.RequireClient())
	assert.ErrorIs(t, cfg.RequireServer(), ErrSessionSecretMissing)
}

func TestLoad_InvalidRefreshInterval(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("TEMPMAIL_REFRESH_INTERVAL", "not-a-duration")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TEMPMAIL_REFRESH_INTERVAL")
}

func TestLoad_NonPositiveRefreshInterval(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("TEMPMAIL_REFRESH_INTERVAL", "0s")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "TEMPMAIL_REFRESH_INTERVAL")
}

func TestLoad_EmptyDomains(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("TEMPMAIL_DOMAINS", " , ")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "TEMPMAIL_DOMAINS")
}

func TestLoad_CredentialBackend(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("TEMPMAIL_CREDENTIAL_BACKEND", "Keyring")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, BackendKeyring, cfg.CredentialBackend)

	t.Setenv("TEMPMAIL_CREDENTIAL_BACKEND", "vault")
	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TEMPMAIL_CREDENTIAL_BACKEND")
}

func TestLoad_SecretKey_Valid(t *testing.T) {
	isolateConfigEnv(t)
	// 64 hex chars = 32 bytes
	t.Setenv("TEMPMAIL_SECRET_KEY", "0102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f20")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Len(t, cfg.SecretKey, 32)
}

func TestLoad_SecretKey_TooShort(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("TEMPMAIL_SECRET_KEY", "deadbeef")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TEMPMAIL_SECRET_KEY")
}

func TestLoad_SecretKey_NotHex(t *testing.T) {
	isolateConfigEnv(t)
	// 64 chars but not valid hex
	t.Setenv("TEMPMAIL_SECRET_KEY", "zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TEMPMAIL_SECRET_KEY")
}

func TestLoad_SessionSecret(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("TEMPMAIL_SESSION_SECRET", "00112233445566778899aabbccddeeff")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Len(t, cfg.SessionSecret, 16)
	assert.NoError(t, cfg.RequireServer())

	t.Setenv("TEMPMAIL_SESSION_SECRET", "0011")
	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TEMPMAIL_SESSION_SECRET")
}

func TestLoad_ConfigFile(t *testing.T) {
	isolateConfigEnv(t)
	path := filepath.Join(t.TempDir(), "tempmail.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"mail_api_url: https://file.example.com\n"+
			"domains:\n  - x.com\n  - y.com\n"+
			"refresh_interval: 1m\n"+
			"db_path: /var/lib/tempmail.db\n",
	), 0o600))
	t.Setenv("TEMPMAIL_CONFIG", path)
	t.Setenv("TEMPMAIL_DB_PATH", "/override.db")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "https://file.example.com", cfg.MailAPIURL)
	assert.Equal(t, []string{"x.com", "y.com"}, cfg.Domains)
	assert.Equal(t, time.Minute, cfg.RefreshInterval)
	assert.Equal(t, "/override.db", cfg.DBPath, "environment wins over file")
}

func TestLoad_MissingConfigFile(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("TEMPMAIL_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config")
}
