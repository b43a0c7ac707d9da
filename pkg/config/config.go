package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

type Config struct {
	ListenAddress   string        `env:"LISTEN_ADDRESS"    envDefault:":8080"`
	DebugAddress    string        `env:"DEBUG_ADDRESS"     envDefault:":8081"`
	Profiling       bool          `env:"PROFILING"         envDefault:"true"`
	OptionsURL      string        `env:"OPTIONS_URL"`
	OptionsFile     string        `env:"OPTIONS_FILE"      envDefault:"data/options.json"`
	OptionsSnapshot string        `env:"OPTIONS_SNAPSHOT"  envDefault:"data/options.json.gz"`
	AudienceURL     string        `env:"AUDIENCE_URL"`
	DatabasePath    string        `env:"DATABASE_PATH"     envDefault:"data/campaigns.db"`
	RedisURL        string        `env:"REDIS_URL"`
	RedisPassword   string        `env:"REDIS_PASSWORD"`
	RedisDB         int           `env:"REDIS_DB"          envDefault:"0"`
	OptionsCacheTTL time.Duration `env:"OPTIONS_CACHE_TTL" envDefault:"10m"`
	RabbitURL       string        `env:"RABBIT_URL"`
	RabbitPrefix    string        `env:"RABBIT_PREFIX"     envDefault:"audience"`
	SessionTTL      time.Duration `env:"SESSION_TTL"       envDefault:"30m"`
	MaxPasses       int           `env:"MAX_PASSES"        envDefault:"8"`
}

func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.MaxPasses <= 0 {
		return Config{}, fmt.Errorf("MAX_PASSES must be positive, got %d", cfg.MaxPasses)
	}
	return cfg, nil
}
