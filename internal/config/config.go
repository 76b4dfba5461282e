package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Google   GoogleConfig   `yaml:"google" mapstructure:"google"`
	FSA      FSAConfig      `yaml:"fsa" mapstructure:"fsa"`
	Enrich   EnrichConfig   `yaml:"enrich" mapstructure:"enrich"`
	Discover DiscoverConfig `yaml:"discover" mapstructure:"discover"`
	Locality LocalityConfig `yaml:"locality" mapstructure:"locality"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// GoogleConfig holds Places API settings.
type GoogleConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	// MinIntervalMS is the minimum delay between Places calls.
	MinIntervalMS int `yaml:"min_interval_ms" mapstructure:"min_interval_ms"`
}

// FSAConfig holds food hygiene ratings API settings. The API needs no key.
type FSAConfig struct {
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	MinIntervalMS int    `yaml:"min_interval_ms" mapstructure:"min_interval_ms"`
	// Categories scopes the hygiene pipeline; only these category slugs
	// are rated. Non-food records never have FHRS entries.
	Categories []string `yaml:"categories" mapstructure:"categories"`
}

// EnrichConfig configures the enrichment pipelines.
type EnrichConfig struct {
	// CheckpointDir holds per-provider checkpoint files.
	CheckpointDir string `yaml:"checkpoint_dir" mapstructure:"checkpoint_dir"`
	// BatchSize is the checkpoint persistence interval in records.
	BatchSize int `yaml:"batch_size" mapstructure:"batch_size"`
}

// DiscoverConfig configures the harvest grid sweep.
type DiscoverConfig struct {
	MaxPages    int `yaml:"max_pages" mapstructure:"max_pages"`
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// LocalityConfig anchors searches to the guide's coverage area.
type LocalityConfig struct {
	// Name is appended to exact-match search queries.
	Name string `yaml:"name" mapstructure:"name"`
	// Lat/Lng bias searches for records without coordinates.
	Lat float64 `yaml:"lat" mapstructure:"lat"`
	Lng float64 `yaml:"lng" mapstructure:"lng"`
	// BiasRadiusMetres is the location-bias circle radius.
	BiasRadiusMetres int `yaml:"bias_radius_metres" mapstructure:"bias_radius_metres"`
	// StripSuffixes are locality words removed when cleaning names for
	// fallback searches.
	StripSuffixes []string `yaml:"strip_suffixes" mapstructure:"strip_suffixes"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("GUIDE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Credential keys default empty so the env binding is
	// always registered.
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.database_url", "")
	v.SetDefault("google.key", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("google.base_url", "https://maps.googleapis.com/maps/api/place")
	v.SetDefault("google.min_interval_ms", 350)
	v.SetDefault("fsa.base_url", "https://api.ratings.food.gov.uk")
	v.SetDefault("fsa.min_interval_ms", 500)
	v.SetDefault("fsa.categories", []string{"restaurants", "cafes", "pubs"})
	v.SetDefault("enrich.checkpoint_dir", ".")
	v.SetDefault("enrich.batch_size", 10)
	v.SetDefault("discover.max_pages", 3)
	v.SetDefault("discover.concurrency", 3)
	v.SetDefault("locality.name", "Formby")
	v.SetDefault("locality.lat", 53.5545)
	v.SetDefault("locality.lng", -3.0716)
	v.SetDefault("locality.bias_radius_metres", 3000)
	v.SetDefault("locality.strip_suffixes", []string{"Formby", "Liverpool"})

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
