package config

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig holds all configuration for the server.
// Tags use mapstructure for Viper unmarshalling and env for environment variable binding.
type ServerConfig struct {
	HTTPPort    string `mapstructure:"HTTP_PORT"`
	MongoURI    string `mapstructure:"MONGO_URI"`
	MongoDBName string `mapstructure:"MONGO_DB_NAME"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	LogPretty   bool   `mapstructure:"LOG_PRETTY"`

	JWTSecretKey         string `mapstructure:"JWT_SECRET_KEY"`
	JWTIssuer            string `mapstructure:"JWT_ISSUER"`
	AccessTokenTTLMin    int    `mapstructure:"ACCESS_TOKEN_TTL_MIN"`
	RefreshTokenTTLHour  int    `mapstructure:"REFRESH_TOKEN_TTL_HOUR"`
	BlacklistSweepMin    int    `mapstructure:"BLACKLIST_SWEEP_MIN"`
	BlacklistRedisAddr   string `mapstructure:"BLACKLIST_REDIS_ADDR"` // empty selects the in-memory store
	BlacklistRedisPrefix string `mapstructure:"BLACKLIST_REDIS_PREFIX"`

	// Cookie policy is a deployment choice, not core behavior.
	CookieSameSite string `mapstructure:"COOKIE_SAME_SITE"` // "lax", "strict" or "none"
	CookieSecure   bool   `mapstructure:"COOKIE_SECURE"`
	CookieDomain   string `mapstructure:"COOKIE_DOMAIN"`

	CORSAllowedOrigins []string `mapstructure:"CORS_ALLOWED_ORIGINS"`
}

// AccessTokenTTL returns the signed lifetime of access tokens.
func (c *ServerConfig) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenTTLMin) * time.Minute
}

// RefreshTokenTTL returns the signed lifetime of refresh tokens.
func (c *ServerConfig) RefreshTokenTTL() time.Duration {
	return time.Duration(c.RefreshTokenTTLHour) * time.Hour
}

// BlacklistSweepInterval returns the eviction cadence of the in-memory
// blacklist store.
func (c *ServerConfig) BlacklistSweepInterval() time.Duration {
	return time.Duration(c.BlacklistSweepMin) * time.Minute
}

// SameSite maps the configured policy name onto http.SameSite.
func (c *ServerConfig) SameSite() http.SameSite {
	switch strings.ToLower(c.CookieSameSite) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// LoadConfig reads configuration from file, environment variables, and defaults.
func LoadConfig() (*ServerConfig, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/blogd/")
	v.AddConfigPath("$HOME/.blogd")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017/blogd_dev")
	v.SetDefault("MONGO_DB_NAME", "blogd_dev")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", true)
	v.SetDefault("JWT_SECRET_KEY", "a_very_secret_jwt_key_change_me") // CHANGE IN PRODUCTION
	v.SetDefault("JWT_ISSUER", "blogd")
	v.SetDefault("ACCESS_TOKEN_TTL_MIN", 60)     // 1 hour
	v.SetDefault("REFRESH_TOKEN_TTL_HOUR", 336)  // 14 days
	v.SetDefault("BLACKLIST_SWEEP_MIN", 60)      // 1 hour
	v.SetDefault("BLACKLIST_REDIS_ADDR", "")
	v.SetDefault("BLACKLIST_REDIS_PREFIX", "blogd")
	v.SetDefault("COOKIE_SAME_SITE", "lax")
	v.SetDefault("COOKIE_SECURE", true)
	v.SetDefault("COOKIE_DOMAIN", "")
	v.SetDefault("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173", "http://localhost"})

	if err := v.ReadInConfig(); err != nil {
		// ConfigFileNotFoundError is acceptable, means we use defaults/env vars.
		// Other errors (e.g., permission issues, malformed config) should be returned.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	return &cfg, nil
}
