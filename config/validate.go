package config

import (
	"encoding/hex"
	"errors"
	"net/url"
	"strings"
)

// Validate validates config values.
func Validate(cfg Config) error {
	var issues []string

	if cfg.Address == "" {
		issues = append(issues, "address is required")
	}
	if cfg.Profile == "" {
		issues = append(issues, "profile is required")
	}
	if cfg.ReadHeaderTimeout < 0 {
		issues = append(issues, "read_header_timeout must be >= 0")
	}
	if cfg.ShutdownTimeout < 0 {
		issues = append(issues, "shutdown_timeout must be >= 0")
	}

	issues = append(issues, validateService("identity", cfg.Identity)...)
	issues = append(issues, validateService("accounts", cfg.Accounts)...)

	store := cfg.CredentialStore
	switch store.Driver {
	case DriverFile, DriverMemory:
	case DriverRedis:
		if store.RedisURL == "" {
			issues = append(issues, "credential_store.redis_url is required for the redis driver")
		}
	case DriverPostgres:
		if store.PostgresDSN == "" {
			issues = append(issues, "credential_store.postgres_dsn is required for the postgres driver")
		}
		if store.Table == "" {
			issues = append(issues, "credential_store.table is required for the postgres driver")
		}
	default:
		issues = append(issues, "credential_store.driver must be one of file|memory|redis|postgres")
	}
	if store.SealKey != "" {
		key, err := hex.DecodeString(store.SealKey)
		if err != nil || len(key) != 32 {
			issues = append(issues, "credential_store.seal_key must be 32 hex-encoded bytes")
		}
	}

	if cfg.LogLevel != "" && !validLogLevel(cfg.LogLevel) {
		issues = append(issues, "log_level must be one of debug|info|warn|error")
	}
	if cfg.LogFormat != "" && !validLogFormat(cfg.LogFormat) {
		issues = append(issues, "log_format must be one of text|json")
	}

	if len(issues) > 0 {
		return errors.New(strings.Join(issues, "; "))
	}
	return nil
}

func validateService(name string, svc ServiceConfig) []string {
	var issues []string
	parsed, err := url.Parse(svc.URL)
	if svc.URL == "" || err != nil || parsed.Scheme == "" || parsed.Host == "" {
		issues = append(issues, name+".url must be an absolute URL")
	}
	if svc.Timeout < 0 {
		issues = append(issues, name+".timeout must be >= 0")
	}
	if svc.MaxRetries < 0 {
		issues = append(issues, name+".max_retries must be >= 0")
	}
	return issues
}

func validLogLevel(level string) bool {
	switch strings.ToLower(level) {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func validLogFormat(format string) bool {
	switch strings.ToLower(format) {
	case "text", "json":
		return true
	default:
		return false
	}
}
