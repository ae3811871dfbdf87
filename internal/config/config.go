// Package config loads application configuration from environment variables
// and an optional config file.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable Load reads.
const EnvPrefix = "TEMPMAIL"

// Credential store backends.
const (
	BackendSQLite  = "sqlite"
	BackendKeyring = "keyring"
)

// Config holds the application configuration.
type Config struct {
	// Client side.
	MailAPIURL        string
	Domains           []string
	HistoryAPIURL     string
	SessionToken      string
	RefreshInterval   time.Duration
	PageSize          int
	CredentialBackend string
	KeyringDir        string
	KeyringPassword   string

	// Server side.
	ListenAddr    string
	SessionSecret []byte

	// Shared.
	DBPath string
	// SecretKey encrypts credentials at rest. Nil means plaintext storage.
	SecretKey []byte
}

// HasHistoryAPI reports whether the client can reach the persisted history
// API on behalf of a signed-in user.
func (c *Config) HasHistoryAPI() bool {
	return c.HistoryAPIURL != "" && c.SessionToken != ""
}

// Load reads configuration from TEMPMAIL_ environment variables, layered over
// the YAML or TOML file named by TEMPMAIL_CONFIG when set, and returns a
// validated Config. Defaults: TEMPMAIL_DOMAINS (nzsmcguide.com),
// TEMPMAIL_REFRESH_INTERVAL (180s), TEMPMAIL_PAGE_SIZE (20),
// TEMPMAIL_CREDENTIAL_BACKEND (sqlite), TEMPMAIL_LISTEN_ADDR (127.0.0.1:8080),
// TEMPMAIL_DB_PATH (tempmail.db). TEMPMAIL_SECRET_KEY and
// TEMPMAIL_SESSION_SECRET are optional hex strings; the server refuses to
// start without a session secret.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	v.SetDefault("mail_api_url", "")
	v.SetDefault("domains", "nzsmcguide.com")
	v.SetDefault("history_api_url", "")
	v.SetDefault("session_token", "")
	v.SetDefault("refresh_interval", "180s")
	v.SetDefault("page_size", 20)
	v.SetDefault("credential_backend", BackendSQLite)
	v.SetDefault("keyring_dir", "")
	v.SetDefault("keyring_password", "")
	v.SetDefault("listen_addr", "127.0.0.1:8080")
	v.SetDefault("session_secret", "")
	v.SetDefault("db_path", "tempmail.db")
	v.SetDefault("secret_key", "")

	if path, ok := os.LookupEnv(EnvPrefix + "_CONFIG"); ok && path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	refreshInterval, err := time.ParseDuration(v.GetString("refresh_interval"))
	if err != nil {
		return nil, fmt.Errorf("%s_REFRESH_INTERVAL has invalid duration %q: %w", EnvPrefix, v.GetString("refresh_interval"), err)
	}
	if refreshInterval <= 0 {
		return nil, fmt.Errorf("%s_REFRESH_INTERVAL must be positive, got %s", EnvPrefix, refreshInterval)
	}

	pageSize := v.GetInt("page_size")
	if pageSize <= 0 {
		return nil, fmt.Errorf("%s_PAGE_SIZE must be positive, got %q", EnvPrefix, v.GetString("page_size"))
	}

	domains := splitList(v.GetStringSlice("domains"))
	if len(domains) == 0 {
		return nil, fmt.Errorf("%s_DOMAINS must name at least one domain", EnvPrefix)
	}

	backend := strings.ToLower(v.GetString("credential_backend"))
	if backend != BackendSQLite && backend != BackendKeyring {
		return nil, fmt.Errorf("%s_CREDENTIAL_BACKEND must be %q or %q, got %q", EnvPrefix, BackendSQLite, BackendKeyring, backend)
	}

	secretKey, err := parseHexKey("SECRET_KEY", v.GetString("secret_key"), 32)
	if err != nil {
		return nil, err
	}

	sessionSecret, err := parseHexKey("SESSION_SECRET", v.GetString("session_secret"), 0)
	if err != nil {
		return nil, err
	}

	return &Config{
		MailAPIURL:        strings.TrimSuffix(v.GetString("mail_api_url"), "/"),
		Domains:           domains,
		HistoryAPIURL:     strings.TrimSuffix(v.GetString("history_api_url"), "/"),
		SessionToken:      v.GetString("session_token"),
		RefreshInterval:   refreshInterval,
		PageSize:          pageSize,
		CredentialBackend: backend,
		KeyringDir:        v.GetString("keyring_dir"),
		KeyringPassword:   v.GetString("keyring_password"),
		ListenAddr:        v.GetString("listen_addr"),
		SessionSecret:     sessionSecret,
		DBPath:            v.GetString("db_path"),
		SecretKey:         secretKey,
	}, nil
}

// parseHexKey decodes an optional hex-encoded key. A size of 0 accepts any
// length of at least 16 bytes.
func parseHexKey(name, value string, size int) ([]byte, error) {
	if value == "" {
		return nil, nil
	}

	key, err := hex.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("%s_%s must be hex encoded: %w", EnvPrefix, name, err)
	}

	switch {
	case size > 0 && len(key) != size:
		return nil, fmt.Errorf("%s_%s must be %d bytes (%d hex chars), got %d bytes", EnvPrefix, name, size, size*2, len(key))
	case size == 0 && len(key) < 16:
		return nil, fmt.Errorf("%s_%s must be at least 16 bytes, got %d", EnvPrefix, name, len(key))
	}
	return key, nil
}

// splitList flattens comma and whitespace separated values.
func splitList(values []string) []string {
	out := []string{}
	for _, value := range values {
		for _, item := range strings.Split(value, ",") {
			item = strings.TrimSpace(item)
			if item != "" {
				out = append(out, item)
			}
		}
	}
	return out
}

// ErrSessionSecretMissing is returned by RequireServer when the server has
// no key to sign sessions with.
var ErrSessionSecretMissing = errors.New(EnvPrefix + "_SESSION_SECRET is required to serve the history API")

// RequireServer validates the settings the history server cannot start without.
func (c *Config) RequireServer() error {
	if len(c.SessionSecret) == 0 {
		return ErrSessionSecretMissing
	}
	return nil
}

// RequireClient validates the settings the mailbox client cannot start without.
func (c *Config) RequireClient() error {
	if c.MailAPIURL == "" {
		return fmt.Errorf("%s_MAIL_API_URL is required", EnvPrefix)
	}
	return nil
}
