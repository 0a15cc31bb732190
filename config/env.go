package config

import (
	"os"
	"strconv"
	"time"
)

// LoadFromEnv applies environment overrides with a prefix (e.g. DIGIBANK_).
func LoadFromEnv(prefix string, base Config) Config {
	get := func(key string) string { return os.Getenv(prefix + key) }
	duration := func(key string, target *time.Duration) {
		if value := get(key); value != "" {
			if d, err := time.ParseDuration(value); err == nil {
				*target = d
			}
		}
	}
	str := func(key string, target *string) {
		if value := get(key); value != "" {
			*target = value
		}
	}

	str("ADDRESS", &base.Address)
	str("PROFILE", &base.Profile)
	duration("READ_HEADER_TIMEOUT", &base.ReadHeaderTimeout)
	duration("SHUTDOWN_TIMEOUT", &base.ShutdownTimeout)
	boolean := func(key string, target *bool) {
		if value := get(key); value != "" {
			if enabled, err := strconv.ParseBool(value); err == nil {
				*target = enabled
			}
		}
	}
	boolean("TEMPLATE_RELOAD", &base.TemplateReload)
	boolean("SECURE_COOKIES", &base.SecureCookies)
	boolean("PPROF", &base.Pprof)

	str("IDENTITY_URL", &base.Identity.URL)
	duration("IDENTITY_TIMEOUT", &base.Identity.Timeout)
	str("ACCOUNTS_URL", &base.Accounts.URL)
	duration("ACCOUNTS_TIMEOUT", &base.Accounts.Timeout)
	if value := get("ACCOUNTS_MAX_RETRIES"); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			base.Accounts.MaxRetries = n
		}
	}

	str("CREDENTIAL_STORE_DRIVER", &base.CredentialStore.Driver)
	str("CREDENTIAL_STORE_PATH", &base.CredentialStore.Path)
	str("CREDENTIAL_STORE_SEAL_KEY", &base.CredentialStore.SealKey)
	str("CREDENTIAL_STORE_REDIS_URL", &base.CredentialStore.RedisURL)
	str("CREDENTIAL_STORE_POSTGRES_DSN", &base.CredentialStore.PostgresDSN)
	str("CREDENTIAL_STORE_TABLE", &base.CredentialStore.Table)

	str("GOOGLE_CLIENT_ID", &base.Google.ClientID)

	str("LOG_LEVEL", &base.LogLevel)
	str("LOG_FORMAT", &base.LogFormat)

	return base
}
