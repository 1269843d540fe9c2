// Package configpkg provides parsing functionality for environment variables.
package configpkg

import (
	"time"

	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
//
// The values are read by viper from a config file or environment variables.
type Config struct {
	DBDriver              string        `mapstructure:"DB_DRIVER"`
	DBSource              string        `mapstructure:"DB_SOURCE"`
	DBTimeout             time.Duration `mapstructure:"DB_TIMEOUT"`
	ServerAddress         string        `mapstructure:"SERVER_ADDRESS"`
	TokenType             string        `mapstructure:"TOKEN_TYPE"`
	TokenSymmetricKey     string        `mapstructure:"TOKEN_SYMMETRIC_KEY"`
	Environment           string        `mapstructure:"GO_ENV"`
	RedisAddr             string        `mapstructure:"REDIS_ADDR"`
	StatementCacheTTL     time.Duration `mapstructure:"STATEMENT_CACHE_TTL"`
	BreakerMaxFailures    uint32        `mapstructure:"BREAKER_MAX_FAILURES"`
	BreakerOpenTimeout    time.Duration `mapstructure:"BREAKER_OPEN_TIMEOUT"`
	OTelEndpoint          string        `mapstructure:"OTEL_EXPORTER_ENDPOINT"`
	IdempotencyStaleAfter time.Duration `mapstructure:"IDEMPOTENCY_STALE_AFTER"`
}

// Load read configuration from file or environment variables.
func Load(path string) (Config, error) {
	var c Config

	v := viper.New()

	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")

	v.SetDefault("DB_TIMEOUT", 5*time.Second)
	v.SetDefault("TOKEN_TYPE", "paseto")
	v.SetDefault("STATEMENT_CACHE_TTL", 10*time.Minute)
	v.SetDefault("BREAKER_MAX_FAILURES", 5)
	v.SetDefault("BREAKER_OPEN_TIMEOUT", 30*time.Second)
	v.SetDefault("IDEMPOTENCY_STALE_AFTER", time.Minute)

	v.AutomaticEnv()

	err := v.ReadInConfig()
	if err != nil {
		return c, err
	}

	err = v.Unmarshal(&c)
	if err != nil {
		return c, err
	}

	return c, nil
}
