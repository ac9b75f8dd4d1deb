package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/visitplan/backend/internal/models"
	"github.com/visitplan/backend/internal/simulation"
)

type Config struct {
	Env            string        `mapstructure:"ENV"`
	Port           string        `mapstructure:"PORT"`
	DatabaseURL    string        `mapstructure:"DATABASE_URL"`
	RedisURL       string        `mapstructure:"REDIS_URL"`
	AdminKey       string        `mapstructure:"ADMIN_KEY"`
	CORSAllowed    string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	LogLevel       string        `mapstructure:"LOG_LEVEL"`

	GeocoderURL       string  `mapstructure:"GEOCODER_URL"`
	GeocoderAPIKey    string  `mapstructure:"GEOCODER_API_KEY"`
	GeocoderUserAgent string  `mapstructure:"GEOCODER_USER_AGENT"`
	GeocoderRPS       float64 `mapstructure:"GEOCODER_RPS"`
	GeocoderKeyNeeded bool    `mapstructure:"GEOCODER_REQUIRE_KEY"`

	RoutingURL       string  `mapstructure:"ROUTING_URL"`
	RoutingBatchSize int     `mapstructure:"ROUTING_BATCH_SIZE"`
	RoutingRPS       float64 `mapstructure:"ROUTING_RPS"`

	CacheSize int           `mapstructure:"CACHE_SIZE"`
	CacheTTL  time.Duration `mapstructure:"CACHE_TTL"`

	ExplainerURL string `mapstructure:"EXPLAINER_URL"`

	TimeBudget             time.Duration `mapstructure:"TIME_BUDGET"`
	MaxReorderingScenarios int           `mapstructure:"MAX_REORDERING_SCENARIOS"`
	BaseBufferMinutes      float64       `mapstructure:"BASE_BUFFER_MINUTES"`
	MinBufferMinutes       float64       `mapstructure:"MIN_BUFFER_MINUTES"`
	MaxBufferMinutes       float64       `mapstructure:"MAX_BUFFER_MINUTES"`
	FlexibleFactor         float64       `mapstructure:"FLEXIBLE_FACTOR"`
}

func Load() (Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	_ = v.ReadInConfig()

	v.SetDefault("ENV", "dev")
	v.SetDefault("PORT", "8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("ADMIN_KEY", "")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("GEOCODER_URL", "https://nominatim.openstreetmap.org")
	v.SetDefault("GEOCODER_API_KEY", "")
	v.SetDefault("GEOCODER_USER_AGENT", "visitplan")
	v.SetDefault("GEOCODER_RPS", 1)
	v.SetDefault("GEOCODER_REQUIRE_KEY", false)
	v.SetDefault("ROUTING_URL", "")
	v.SetDefault("ROUTING_BATCH_SIZE", 100)
	v.SetDefault("ROUTING_RPS", 5)
	v.SetDefault("CACHE_SIZE", 10000)
	v.SetDefault("CACHE_TTL", "24h")
	v.SetDefault("EXPLAINER_URL", "")
	v.SetDefault("TIME_BUDGET", "2s")
	v.SetDefault("MAX_REORDERING_SCENARIOS", simulation.DefaultMaxReorderingScenarios)
	v.SetDefault("BASE_BUFFER_MINUTES", 45)
	v.SetDefault("MIN_BUFFER_MINUTES", 15)
	v.SetDefault("MAX_BUFFER_MINUTES", 120)
	v.SetDefault("FLEXIBLE_FACTOR", 0.8)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) BufferConfig() models.BufferConfiguration {
	return models.BufferConfiguration{
		BaseBufferMinutes:    c.BaseBufferMinutes,
		MinimumBufferMinutes: c.MinBufferMinutes,
		MaximumBufferMinutes: c.MaxBufferMinutes,
		FlexibleFactor:       c.FlexibleFactor,
	}
}

// SimulationOptions are the defaults every request starts from.
func (c Config) SimulationOptions() simulation.Options {
	opts := simulation.DefaultOptions()
	if c.MaxReorderingScenarios > 0 {
		opts.MaxReorderingScenarios = c.MaxReorderingScenarios
	}
	if c.TimeBudget > 0 {
		opts.TimeBudgetMs = int(c.TimeBudget / time.Millisecond)
	}
	if c.BaseBufferMinutes > 0 {
		opts.BufferConfig = c.BufferConfig()
	}
	return opts
}
