package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the LTI bridge service.
type Config struct {
	AppName     string
	AppEnv      string
	AppPort     string
	DatabaseURL string
	RedisURL    string
	NATSURL     string

	// PlatformDomain is the domain appended to every synthetic identity.
	PlatformDomain string

	// LTIConsumerKey/Secret are the static fallback for the global
	// credential scope; a stored credential record overrides them.
	LTIConsumerKey    string
	LTIConsumerSecret string

	// ProxyPathPrefix is prepended to the request path when rebuilding the
	// launch URL behind a reverse proxy that strips its mount point and
	// does not send X-Forwarded-Prefix.
	ProxyPathPrefix string

	TokenStoreBackend string
	SetupTokenTTL     time.Duration
	DashboardTokenTTL time.Duration
	ConsentTokenTTL   time.Duration

	SessionProviderURL     string
	SessionProviderAPIKey  string
	SessionProviderTimeout time.Duration

	DashboardCacheTTL time.Duration
	JWTSecret         string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("LTIBRIDGE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "LTI Bridge API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("token.backend", "memory")
	v.SetDefault("token.setup_ttl", "10m")
	v.SetDefault("token.dashboard_ttl", "30m")
	v.SetDefault("token.consent_ttl", "10m")
	v.SetDefault("session_provider.timeout", "5s")
	v.SetDefault("dashboard.cache_ttl", "2m")

	setupTTL, err := time.ParseDuration(v.GetString("token.setup_ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid setup token ttl: %w", err)
	}

	dashboardTTL, err := time.ParseDuration(v.GetString("token.dashboard_ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid dashboard token ttl: %w", err)
	}

	consentTTL, err := time.ParseDuration(v.GetString("token.consent_ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid consent token ttl: %w", err)
	}

	providerTimeout, err := time.ParseDuration(v.GetString("session_provider.timeout"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid session provider timeout: %w", err)
	}

	cacheTTL, err := time.ParseDuration(v.GetString("dashboard.cache_ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid dashboard cache ttl: %w", err)
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		NATSURL:                v.GetString("nats.url"),
		PlatformDomain:         v.GetString("platform.domain"),
		LTIConsumerKey:         v.GetString("lti.consumer_key"),
		LTIConsumerSecret:      v.GetString("lti.consumer_secret"),
		ProxyPathPrefix:        v.GetString("proxy.path_prefix"),
		TokenStoreBackend:      strings.ToLower(v.GetString("token.backend")),
		SetupTokenTTL:          setupTTL,
		DashboardTokenTTL:      dashboardTTL,
		ConsentTokenTTL:        consentTTL,
		SessionProviderURL:     v.GetString("session_provider.url"),
		SessionProviderAPIKey:  v.GetString("session_provider.api_key"),
		SessionProviderTimeout: providerTimeout,
		DashboardCacheTTL:      cacheTTL,
		JWTSecret:              v.GetString("jwt.secret"),
	}

	if cfg.PlatformDomain == "" {
		return Config{}, fmt.Errorf("platform domain must be provided")
	}

	if cfg.TokenStoreBackend != "memory" && cfg.TokenStoreBackend != "redis" {
		return Config{}, fmt.Errorf("unsupported token store backend %q", cfg.TokenStoreBackend)
	}

	if cfg.TokenStoreBackend == "redis" && cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("redis url is required for the redis token store backend")
	}

	return cfg, nil
}
