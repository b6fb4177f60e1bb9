package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// ServerConfig configures `termfolio serve`.
type ServerConfig struct {
	Port               int
	GinMode            string
	TLSCertFile        string
	TLSKeyFile         string
	APISecret          string
	APIKeyExpiry       time.Duration
	StoreDriver        string
	StoreFile          string
	SQLitePath         string
	GuestbookRateLimit int
}

// ClientConfig configures `termfolio term`.
type ClientConfig struct {
	APIURL       string
	APIKey       string
	IdentityFile string
	ResumeFile   string
	SiteURL      string
	CVPath       string
	LogFile      string
	LogLevel     string
}

type Env interface {
	Getenv(key string) string
}

type osEnv struct{}

func (osEnv) Getenv(key string) string { return os.Getenv(key) }

func LoadServerConfig() (ServerConfig, error) {
	return LoadServerConfigFromEnv(osEnv{})
}

func LoadServerConfigFromEnv(env Env) (ServerConfig, error) {
	cfg := ServerConfig{
		Port:               3000,
		GinMode:            "release",
		APIKeyExpiry:       365 * 24 * time.Hour,
		StoreDriver:        StoreMemory,
		SQLitePath:         "termfolio.db",
		GuestbookRateLimit: 5,
	}

	if raw := env.Getenv("PORT"); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil || port <= 0 || port > 65535 {
			return ServerConfig{}, fmt.Errorf("invalid PORT")
		}
		cfg.Port = port
	}

	cfg.APISecret = env.Getenv("API_SECRET")
	if cfg.APISecret == "" {
		return ServerConfig{}, fmt.Errorf("API_SECRET is required")
	}

	if raw := env.Getenv("GIN_MODE"); raw != "" {
		cfg.GinMode = raw
	}

	cfg.TLSCertFile = env.Getenv("TLS_CERT_FILE")
	cfg.TLSKeyFile = env.Getenv("TLS_KEY_FILE")
	if (cfg.TLSCertFile == "") != (cfg.TLSKeyFile == "") {
		return ServerConfig{}, fmt.Errorf("TLS_CERT_FILE and TLS_KEY_FILE must be set together")
	}

	if raw := env.Getenv("API_KEY_EXPIRY_DAYS"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days <= 0 {
			return ServerConfig{}, fmt.Errorf("invalid API_KEY_EXPIRY_DAYS")
		}
		cfg.APIKeyExpiry = time.Duration(days) * 24 * time.Hour
	}

	if raw := strings.ToLower(env.Getenv("STORE_DRIVER")); raw != "" {
		if raw != StoreMemory && raw != StoreSQLite {
			return ServerConfig{}, fmt.Errorf("invalid STORE_DRIVER %q", raw)
		}
		cfg.StoreDriver = raw
	}
	cfg.StoreFile = env.Getenv("STORE_FILE")
	if raw := env.Getenv("SQLITE_PATH"); raw != "" {
		cfg.SQLitePath = raw
	}

	if raw := env.Getenv("GUESTBOOK_RATE_LIMIT"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return ServerConfig{}, fmt.Errorf("invalid GUESTBOOK_RATE_LIMIT")
		}
		cfg.GuestbookRateLimit = limit
	}

	return cfg, nil
}

func LoadClientConfig() (ClientConfig, error) {
	return LoadClientConfigFromEnv(osEnv{})
}

func LoadClientConfigFromEnv(env Env) (ClientConfig, error) {
	cfg := ClientConfig{
		APIURL:       env.Getenv("TERMFOLIO_API_URL"),
		APIKey:       env.Getenv("TERMFOLIO_API_KEY"),
		IdentityFile: env.Getenv("TERMFOLIO_IDENTITY_FILE"),
		ResumeFile:   env.Getenv("TERMFOLIO_RESUME_FILE"),
		SiteURL:      env.Getenv("TERMFOLIO_SITE_URL"),
		CVPath:       env.Getenv("TERMFOLIO_CV_PATH"),
		LogFile:      env.Getenv("TERMFOLIO_LOG_FILE"),
		LogLevel:     env.Getenv("TERMFOLIO_LOG_LEVEL"),
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.CVPath == "" {
		cfg.CVPath = "/cv.pdf"
	}

	if cfg.APIURL != "" && !strings.HasPrefix(cfg.APIURL, "http://") && !strings.HasPrefix(cfg.APIURL, "https://") {
		return ClientConfig{}, fmt.Errorf("invalid TERMFOLIO_API_URL")
	}

	if cfg.IdentityFile == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return ClientConfig{}, fmt.Errorf("locate config dir: %w", err)
		}
		cfg.IdentityFile = filepath.Join(dir, "termfolio", "identity.json")
	}

	return cfg, nil
}
