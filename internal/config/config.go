// Package config loads application configuration from file and environment
// and wires the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/geocrime/geocrime-cli/internal/model"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Data       DataConfig       `yaml:"data" mapstructure:"data"`
	Cluster    ClusterConfig    `yaml:"cluster" mapstructure:"cluster"`
	Classifier ClassifierConfig `yaml:"classifier" mapstructure:"classifier"`
	Anomaly    AnomalyConfig    `yaml:"anomaly" mapstructure:"anomaly"`
	RiskIndex  RiskIndexConfig  `yaml:"risk_index" mapstructure:"risk_index"`
	Geocode    GeocodeConfig    `yaml:"geocode" mapstructure:"geocode"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// DataConfig configures dataset fetching and model artifact locations.
type DataConfig struct {
	CacheDir string `yaml:"cache_dir" mapstructure:"cache_dir"`
	ModelDir string `yaml:"model_dir" mapstructure:"model_dir"`
}

// ClusterConfig configures hotspot clustering.
type ClusterConfig struct {
	Algorithm   string  `yaml:"algorithm" mapstructure:"algorithm"`
	Eps         float64 `yaml:"eps" mapstructure:"eps"`
	MinSamples  int     `yaml:"min_samples" mapstructure:"min_samples"`
	NClusters   int     `yaml:"n_clusters" mapstructure:"n_clusters"`
	EpsSpatial  float64 `yaml:"eps_spatial" mapstructure:"eps_spatial"`
	EpsTemporal float64 `yaml:"eps_temporal" mapstructure:"eps_temporal"`
}

// ClassifierConfig configures the risk classifier.
type ClassifierConfig struct {
	Trees          int     `yaml:"trees" mapstructure:"trees"`
	MaxDepth       int     `yaml:"max_depth" mapstructure:"max_depth"`
	Seed           int64   `yaml:"seed" mapstructure:"seed"`
	RiskPercentile float64 `yaml:"risk_percentile" mapstructure:"risk_percentile"`
}

// AnomalyConfig configures the anomaly detector.
type AnomalyConfig struct {
	Contamination float64 `yaml:"contamination" mapstructure:"contamination"`
	Trees         int     `yaml:"trees" mapstructure:"trees"`
	SampleSize    int     `yaml:"sample_size" mapstructure:"sample_size"`
	Seed          int64   `yaml:"seed" mapstructure:"seed"`
}

// RiskIndexConfig configures the risk index calculator.
type RiskIndexConfig struct {
	UseHotspots bool `yaml:"use_hotspots" mapstructure:"use_hotspots"`
}

// GeocodeConfig configures the Nominatim client.
type GeocodeConfig struct {
	UserAgent string `yaml:"user_agent" mapstructure:"user_agent"`
	Country   string `yaml:"country" mapstructure:"country"`
	CachePath string `yaml:"cache_path" mapstructure:"cache_path"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
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
	v.SetEnvPrefix("GEOCRIME")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "geocrime.db")
	v.SetDefault("data.cache_dir", "data/cache")
	v.SetDefault("data.model_dir", "models")
	v.SetDefault("cluster.algorithm", "dbscan")
	v.SetDefault("cluster.eps", 0.01)
	v.SetDefault("cluster.min_samples", 5)
	v.SetDefault("cluster.n_clusters", 10)
	v.SetDefault("cluster.eps_spatial", 0.01)
	v.SetDefault("cluster.eps_temporal", 24.0)
	v.SetDefault("classifier.trees", 100)
	v.SetDefault("classifier.max_depth", 12)
	v.SetDefault("classifier.seed", 42)
	v.SetDefault("classifier.risk_percentile", 75)
	v.SetDefault("anomaly.contamination", 0.05)
	v.SetDefault("anomaly.trees", 100)
	v.SetDefault("anomaly.sample_size", 256)
	v.SetDefault("anomaly.seed", 42)
	v.SetDefault("risk_index.use_hotspots", true)
	v.SetDefault("geocode.user_agent", "geocrime-cli/1.0")
	v.SetDefault("geocode.country", "in")
	v.SetDefault("geocode.cache_path", "data/geocoded/geocode_cache.json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrapf(model.ErrConfiguration, "config: read file: %v", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrapf(model.ErrConfiguration, "config: unmarshal: %v", err)
	}

	return &cfg, nil
}

// Validate checks the configuration for the given command mode.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch c.Store.Driver {
	case "sqlite":
		if c.Store.Path == "" {
			problems = append(problems, "store.path is required for the sqlite driver")
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required for the postgres driver")
		}
	default:
		problems = append(problems, "store.driver must be sqlite or postgres")
	}

	if c.Anomaly.Contamination <= 0 || c.Anomaly.Contamination > 0.5 {
		problems = append(problems, "anomaly.contamination must be in (0, 0.5]")
	}
	if c.Classifier.RiskPercentile < 0 || c.Classifier.RiskPercentile > 100 {
		problems = append(problems, "classifier.risk_percentile must be in [0, 100]")
	}

	switch mode {
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	case "cli":
	default:
		problems = append(problems, "unknown mode "+mode)
	}

	if len(problems) > 0 {
		return eris.Wrapf(model.ErrConfiguration, "config: %s", strings.Join(problems, "; "))
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
		return eris.Wrapf(model.ErrConfiguration, "config: parse log level: %v", err)
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrapf(model.ErrConfiguration, "config: build logger: %v", err)
	}
	zap.ReplaceGlobals(logger)

	return nil
}
