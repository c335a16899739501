// Package config loads application configuration from file and environment.
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
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Census CensusConfig `yaml:"census" mapstructure:"census"`
	Parcel ParcelConfig `yaml:"parcel" mapstructure:"parcel"`
	Fetch  FetchConfig  `yaml:"fetch" mapstructure:"fetch"`
	Join   JoinConfig   `yaml:"join" mapstructure:"join"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// CensusConfig holds Census Bureau API settings.
type CensusConfig struct {
	APIKey       string `yaml:"api_key" mapstructure:"api_key"`
	Year         int    `yaml:"year" mapstructure:"year"`
	ACSBaseURL   string `yaml:"acs_base_url" mapstructure:"acs_base_url"`
	TigerBaseURL string `yaml:"tiger_base_url" mapstructure:"tiger_base_url"`
}

// ParcelConfig configures parcel data acquisition.
type ParcelConfig struct {
	FeatureServerURL string `yaml:"feature_server_url" mapstructure:"feature_server_url"`
	Layer            int    `yaml:"layer" mapstructure:"layer"`

	// Attribute names in the source schema. Empty entries fall back to
	// common assessor field names.
	ParcelIDField         string `yaml:"parcel_id_field" mapstructure:"parcel_id_field"`
	GeoIDField            string `yaml:"geo_id_field" mapstructure:"geo_id_field"`
	LandValueField        string `yaml:"land_value_field" mapstructure:"land_value_field"`
	ImprovementValueField string `yaml:"improvement_value_field" mapstructure:"improvement_value_field"`
	CurrentTaxField       string `yaml:"current_tax_field" mapstructure:"current_tax_field"`
}

// FetchConfig configures HTTP fetch behavior.
type FetchConfig struct {
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries" mapstructure:"max_retries"`
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
}

// JoinConfig configures the parcel/census join.
type JoinConfig struct {
	Policy     string `yaml:"policy" mapstructure:"policy"`
	GeoIDWidth int    `yaml:"geoid_width" mapstructure:"geoid_width"`
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
	v.SetEnvPrefix("LVT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "lvt.db")
	v.SetDefault("census.year", 2023)
	v.SetDefault("fetch.timeout_secs", 60)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.user_agent", "lvt-cli/1.0")
	v.SetDefault("join.policy", "keep")
	v.SetDefault("join.geoid_width", 12)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

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

// Validate checks settings every command depends on.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "sqlite":
		if c.Store.Path == "" {
			return eris.New("config: store.path is required for the sqlite driver")
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			return eris.New("config: store.database_url is required for the postgres driver")
		}
	default:
		return eris.Errorf("config: unknown store.driver %q (want sqlite or postgres)", c.Store.Driver)
	}

	switch c.Join.Policy {
	case "keep", "drop", "strict":
	default:
		return eris.Errorf("config: unknown join.policy %q (want keep, drop, or strict)", c.Join.Policy)
	}
	if c.Join.GeoIDWidth < 0 {
		return eris.Errorf("config: join.geoid_width must be >= 0, got %d", c.Join.GeoIDWidth)
	}
	if c.Census.Year < 2009 {
		return eris.Errorf("config: census.year %d predates ACS 5-year releases", c.Census.Year)
	}
	return nil
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
