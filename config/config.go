package config

import "time"

// Config holds client configuration.
type Config struct {
	Address           string        `json:"address" yaml:"address"`
	Profile           string        `json:"profile" yaml:"profile"`
	ReadHeaderTimeout time.Duration `json:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
	TemplateReload    bool          `json:"template_reload" yaml:"template_reload"`
	SecureCookies     bool          `json:"secure_cookies" yaml:"secure_cookies"`
	Pprof             bool          `json:"pprof" yaml:"pprof"`

	Identity        ServiceConfig         `json:"identity" yaml:"identity"`
	Accounts        ServiceConfig         `json:"accounts" yaml:"accounts"`
	CredentialStore CredentialStoreConfig `json:"credential_store" yaml:"credential_store"`
	Google          GoogleConfig          `json:"google" yaml:"google"`

	LogLevel  string `json:"log_level" yaml:"log_level"`
	LogFormat string `json:"log_format" yaml:"log_format"`
}

// ServiceConfig describes a remote HTTP service.
type ServiceConfig struct {
	URL        string        `json:"url" yaml:"url"`
	Timeout    time.Duration `json:"timeout" yaml:"timeout"`
	MaxRetries int           `json:"max_retries" yaml:"max_retries"`
}

// CredentialStoreConfig selects where the token pair is persisted.
type CredentialStoreConfig struct {
	Driver      string `json:"driver" yaml:"driver"`
	Path        string `json:"path" yaml:"path"`
	SealKey     string `json:"seal_key" yaml:"seal_key"`
	RedisURL    string `json:"redis_url" yaml:"redis_url"`
	PostgresDSN string `json:"postgres_dsn" yaml:"postgres_dsn"`
	Table       string `json:"table" yaml:"table"`
}

// GoogleConfig configures the federated sign-in button.
type GoogleConfig struct {
	ClientID string `json:"client_id" yaml:"client_id"`
}

// Credential store drivers.
const (
	DriverFile     = "file"
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

// Default returns safe defaults.
func Default() Config {
	return Config{
		Address:           "127.0.0.1:3000",
		Profile:           "default",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   10 * time.Second,
		TemplateReload:    false,
		Identity: ServiceConfig{
			URL:     "http://localhost:9491/v1/api",
			Timeout: 15 * time.Second,
		},
		Accounts: ServiceConfig{
			URL:        "http://localhost:9492/api",
			Timeout:    15 * time.Second,
			MaxRetries: 2,
		},
		CredentialStore: CredentialStoreConfig{
			Driver: DriverFile,
			Table:  "digibank_credentials",
		},
		LogLevel:  "info",
		LogFormat: "text",
	}
}
