// Package config handles process configuration: defaults overlaid with
// environment variables.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Storage backends.
const (
	BackendFile     = "file"
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

const (
	credentialsFile = "users.json"
	sessionsFile    = "users_cookie.json"
)

// DevSessionSecret is the default signing secret. Only the memory backend
// accepts it.
const DevSessionSecret = "dev-session-secret"

// Config holds runtime settings.
//
// DataDir defaults to ~/.<AppName>. SessionSecret signs the web session
// cookie; the default is for development only.
type Config struct {
	Addr            string
	AppName         string
	DataDir         string
	Backend         string
	DatabaseURL     string
	UseSSO          bool
	SSOIssuer       string
	SSOClientID     string
	SSOClientSecret string
	SSOScopes       []string
	SessionSecret   string
	SessionTTL      time.Duration
	LogLevel        string

	SessionSecretGenerated bool
}

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.Addr = ":8080"
	c.AppName = "chatgate"
	c.Backend = BackendFile
	c.SessionSecret = DevSessionSecret
	c.SessionTTL = 24 * time.Hour
	c.LogLevel = "info"
	c.SSOScopes = []string{"profile"}
}

// Load applies defaults, then the environment, then validates.
func Load() (*Config, error) {
	return load(os.LookupEnv, os.UserHomeDir)
}

func load(lookup func(string) (string, bool), home func() (string, error)) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := cfg.overlayEnv(lookup); err != nil {
		return nil, err
	}
	if cfg.DataDir == "" {
		h, err := home()
		if err != nil {
			return nil, fmt.Errorf("config: resolve home directory: %w", err)
		}
		cfg.DataDir = filepath.Join(h, "."+cfg.AppName)
	}
	if cfg.SessionSecret == DevSessionSecret && cfg.Backend != BackendMemory {
		secret, err := randomSecret()
		if err != nil {
			return nil, err
		}
		cfg.SessionSecret = secret
		cfg.SessionSecretGenerated = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("config: generate session secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func (c *Config) overlayEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("CHATGATE_ADDR", &c.Addr)
	str("CHATGATE_APP_NAME", &c.AppName)
	str("CHATGATE_DATA_DIR", &c.DataDir)
	str("CHATGATE_BACKEND", &c.Backend)
	str("DATABASE_URL", &c.DatabaseURL)
	str("CHATGATE_SSO_ISSUER", &c.SSOIssuer)
	str("CHATGATE_SSO_CLIENT_ID", &c.SSOClientID)
	str("CHATGATE_SSO_CLIENT_SECRET", &c.SSOClientSecret)
	str("CHATGATE_SESSION_SECRET", &c.SessionSecret)
	str("CHATGATE_LOG_LEVEL", &c.LogLevel)

	if v, ok := lookup("CHATGATE_SSO_SCOPES"); ok {
		c.SSOScopes = splitList(v)
	}
	if v, ok := lookup("CHATGATE_USE_SSO"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: CHATGATE_USE_SSO: %w", err)
		}
		c.UseSSO = b
	}
	if v, ok := lookup("CHATGATE_SESSION_TTL"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: CHATGATE_SESSION_TTL: %w", err)
		}
		c.SessionTTL = d
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate reports the first inconsistent setting.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendFile, BackendMemory:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return errors.New("config: DATABASE_URL is required for the postgres backend")
		}
	default:
		return fmt.Errorf("config: unknown backend %q", c.Backend)
	}
	if c.UseSSO && (c.SSOIssuer == "" || c.SSOClientID == "") {
		return errors.New("config: SSO requires CHATGATE_SSO_ISSUER and CHATGATE_SSO_CLIENT_ID")
	}
	if c.SessionSecret == "" {
		return errors.New("config: session secret must not be empty")
	}
	if c.SessionSecret == DevSessionSecret && c.Backend != BackendMemory {
		return fmt.Errorf("config: CHATGATE_SESSION_SECRET must be set for the %s backend", c.Backend)
	}
	if c.SessionTTL <= 0 {
		return errors.New("config: session ttl must be positive")
	}
	return nil
}

// CredentialsPath is the credential store file.
func (c *Config) CredentialsPath() string {
	return filepath.Join(c.DataDir, credentialsFile)
}

// SessionsPath is the session store file.
func (c *Config) SessionsPath() string {
	return filepath.Join(c.DataDir, sessionsFile)
}

// DocumentNames returns the credential and session document names used by
// non-file backends.
func DocumentNames() (credentials, sessions string) {
	return credentialsFile, sessionsFile
}
