// Package config loads application configuration and initializes logging.
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
	Census  CensusConfig  `yaml:"census" mapstructure:"census"`
	Geocode GeocodeConfig `yaml:"geocode" mapstructure:"geocode"`
	Columns ColumnsConfig `yaml:"columns" mapstructure:"columns"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// CensusConfig configures the Census Geocoder endpoint.
type CensusConfig struct {
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	Benchmark   string `yaml:"benchmark" mapstructure:"benchmark"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// GeocodeConfig configures run behavior outside the CLI flags.
type GeocodeConfig struct {
	UnmatchedPath string `yaml:"unmatched_path" mapstructure:"unmatched_path"`
}

// ColumnsConfig names the required input columns (exact, case-sensitive).
type ColumnsConfig struct {
	Street   string `yaml:"street" mapstructure:"street"`
	City     string `yaml:"city" mapstructure:"city"`
	State    string `yaml:"state" mapstructure:"state"`
	Zip      string `yaml:"zip" mapstructure:"zip"`
	Hospital string `yaml:"hospital" mapstructure:"hospital"`
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
	v.SetEnvPrefix("HOSPGEO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("census.base_url", "https://geocoding.geo.census.gov/geocoder/locations/onelineaddress")
	v.SetDefault("census.benchmark", "Public_AR_Current")
	v.SetDefault("census.timeout_secs", 20)
	v.SetDefault("geocode.unmatched_path", "unmatched_geocode.csv")
	v.SetDefault("columns.street", "Street_Address")
	v.SetDefault("columns.city", "City")
	v.SetDefault("columns.state", "State")
	v.SetDefault("columns.zip", "ZIP_Code")
	v.SetDefault("columns.hospital", "Hospital_Name")
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

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
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
