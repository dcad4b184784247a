/**
 * @description
 * Configuration management for the billing service.
 */
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	ServerPort                    string `mapstructure:"SERVER_PORT"`
	DatabaseURL                   string `mapstructure:"DATABASE_URL"`
	DBMaxConns                    int32  `mapstructure:"DB_MAX_CONNS"`
	AuthSecret                    string `mapstructure:"AUTH_SECRET"`
	SessionCookieName             string `mapstructure:"SESSION_COOKIE_NAME"`
	InternalAPIKey                string `mapstructure:"INTERNAL_API_KEY"`
	BusinessTimezone              string `mapstructure:"BUSINESS_TIMEZONE"`
	BillingJobSchedule            string `mapstructure:"BILLING_JOB_SCHEDULE"`
	BillingJobEnabled             bool   `mapstructure:"BILLING_JOB_ENABLED"`
	RabbitMQURL                   string `mapstructure:"RABBITMQ_URL"`
	EventsExchange                string `mapstructure:"EVENTS_EXCHANGE"`
	RedisURL                      string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix          string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	IntegrationRateLimitPerMinute int    `mapstructure:"INTEGRATION_RATE_LIMIT_PER_MINUTE"`
	CORSAllowedOrigins            string `mapstructure:"CORS_ALLOWED_ORIGINS"`
}

// Location resolves the business timezone.
func (c Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.BusinessTimezone)
}

// AllowedOrigins splits CORS_ALLOWED_ORIGINS on commas.
func (c Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// LoadConfig reads configuration from environment variables and an optional
// .env file in path. Invalid or missing required settings are an error.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("DB_MAX_CONNS", 20)
	viper.SetDefault("SESSION_COOKIE_NAME", "session_token")
	viper.SetDefault("BUSINESS_TIMEZONE", "America/Sao_Paulo")
	viper.SetDefault("BILLING_JOB_SCHEDULE", "59 23 * * *")
	viper.SetDefault("BILLING_JOB_ENABLED", true)
	viper.SetDefault("EVENTS_EXCHANGE", "cobrancas.events")
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "cobrancas:rate_limit")
	viper.SetDefault("INTEGRATION_RATE_LIMIT_PER_MINUTE", 120)
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "https://*,http://*")

	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("DB_MAX_CONNS")
	_ = viper.BindEnv("AUTH_SECRET", "AUTH_SECRET", "NEXTAUTH_SECRET")
	_ = viper.BindEnv("SESSION_COOKIE_NAME")
	_ = viper.BindEnv("INTERNAL_API_KEY")
	_ = viper.BindEnv("BUSINESS_TIMEZONE")
	_ = viper.BindEnv("BILLING_JOB_SCHEDULE")
	_ = viper.BindEnv("BILLING_JOB_ENABLED")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("EVENTS_EXCHANGE")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("INTEGRATION_RATE_LIMIT_PER_MINUTE")
	_ = viper.BindEnv("CORS_ALLOWED_ORIGINS")

	if err = viper.ReadInConfig(); err != nil {
		// A missing .env is fine; the environment is enough.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return
		}
		err = nil
	}

	if err = viper.Unmarshal(&config); err != nil {
		return
	}
	if port := os.Getenv("PORT"); port != "" {
		config.ServerPort = port
	}

	err = config.Validate()
	return
}

// Validate applies the strict startup policy.
func (c Config) Validate() error {
	var problems []string

	dbURL := strings.TrimSpace(c.DatabaseURL)
	switch {
	case dbURL == "":
		problems = append(problems, "DATABASE_URL is required")
	case !strings.HasPrefix(dbURL, "postgres://") && !strings.HasPrefix(dbURL, "postgresql://"):
		problems = append(problems, "DATABASE_URL must start with postgres:// or postgresql://")
	}

	if strings.TrimSpace(c.AuthSecret) == "" {
		problems = append(problems, "AUTH_SECRET is required")
	}
	if _, err := c.Location(); err != nil {
		problems = append(problems, fmt.Sprintf("BUSINESS_TIMEZONE %q is invalid", c.BusinessTimezone))
	}
	if _, err := cron.ParseStandard(c.BillingJobSchedule); err != nil {
		problems = append(problems, fmt.Sprintf("BILLING_JOB_SCHEDULE %q is invalid: %v", c.BillingJobSchedule, err))
	}
	if c.DBMaxConns <= 0 {
		problems = append(problems, "DB_MAX_CONNS must be positive")
	}
	if c.IntegrationRateLimitPerMinute < 0 {
		problems = append(problems, "INTEGRATION_RATE_LIMIT_PER_MINUTE cannot be negative")
	}

	if len(problems) > 0 {
		return errors.New("invalid configuration: " + strings.Join(problems, "; "))
	}
	return nil
}
