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
	Google    GoogleConfig    `yaml:"google" mapstructure:"google"`
	Solar     SolarConfig     `yaml:"solar" mapstructure:"solar"`
	Classify  ClassifyConfig  `yaml:"classify" mapstructure:"classify"`
	Geometry  GeometryConfig  `yaml:"geometry" mapstructure:"geometry"`
	Perimeter PerimeterConfig `yaml:"perimeter" mapstructure:"perimeter"`
	Estimator EstimatorConfig `yaml:"estimator" mapstructure:"estimator"`
	Imagery   ImageryConfig   `yaml:"imagery" mapstructure:"imagery"`
	Footprint FootprintConfig `yaml:"footprint" mapstructure:"footprint"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// GoogleConfig holds Google Maps Platform credentials shared by the
// geocoding and solar clients.
type GoogleConfig struct {
	APIKey       string  `yaml:"api_key" mapstructure:"api_key"`
	GeocodeRPS   float64 `yaml:"geocode_rps" mapstructure:"geocode_rps"`
	RequestSecs  int     `yaml:"request_secs" mapstructure:"request_secs"`
	DownloadSecs int     `yaml:"download_secs" mapstructure:"download_secs"`
}

// SolarConfig configures the Solar API client.
type SolarConfig struct {
	BaseURL      string  `yaml:"base_url" mapstructure:"base_url"`
	RadiusMeters float64 `yaml:"radius_meters" mapstructure:"radius_meters"`
}

// ClassifyConfig configures the roof classifier.
type ClassifyConfig struct {
	Backend         string  `yaml:"backend" mapstructure:"backend"` // "heuristic" or "claude"
	AnthropicKey    string  `yaml:"anthropic_api_key" mapstructure:"anthropic_api_key"`
	Model           string  `yaml:"model" mapstructure:"model"`
	MinMaskCoverage float64 `yaml:"min_mask_coverage" mapstructure:"min_mask_coverage"`
	MaxImages       int     `yaml:"max_images" mapstructure:"max_images"`
}

// GeometryConfig configures eave extraction from footprint and elevation data.
type GeometryConfig struct {
	ProbeOffsetM    float64 `yaml:"probe_offset_m" mapstructure:"probe_offset_m"`
	MinEdgeM        float64 `yaml:"min_edge_m" mapstructure:"min_edge_m"`
	EaveDropM       float64 `yaml:"eave_drop_m" mapstructure:"eave_drop_m"`
	StationsPerEdge int     `yaml:"stations_per_edge" mapstructure:"stations_per_edge"`
}

// PerimeterConfig holds roof-type perimeter correction factors.
type PerimeterConfig struct {
	// StructuralCorrection is the fractional upward adjustment applied to
	// roof types prone to under-detected internal valleys.
	StructuralCorrection float64 `yaml:"structural_correction" mapstructure:"structural_correction"`
}

// EstimatorConfig holds the empirically calibrated estimation constants.
type EstimatorConfig struct {
	WasteFactorBase     float64 `yaml:"waste_factor_base" mapstructure:"waste_factor_base"`
	WasteFactorElevated float64 `yaml:"waste_factor_elevated" mapstructure:"waste_factor_elevated"`
	LowConfidence       float64 `yaml:"low_confidence" mapstructure:"low_confidence"`
	HighConfidence      float64 `yaml:"high_confidence" mapstructure:"high_confidence"`
	SpreadHigh          float64 `yaml:"spread_high" mapstructure:"spread_high"`
	SpreadMid           float64 `yaml:"spread_mid" mapstructure:"spread_mid"`
	SpreadLow           float64 `yaml:"spread_low" mapstructure:"spread_low"`
	DownspoutSpacingFt  float64 `yaml:"downspout_spacing_ft" mapstructure:"downspout_spacing_ft"`
	MinDownspouts       int     `yaml:"min_downspouts" mapstructure:"min_downspouts"`
	ComplexityBaseline  float64 `yaml:"complexity_baseline" mapstructure:"complexity_baseline"`
	ComplexityCap       float64 `yaml:"complexity_cap" mapstructure:"complexity_cap"`
}

// ImageryConfig configures imagery download and processing.
type ImageryConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
	// GSDMeters is the assumed ground sample distance of downloaded
	// layers when the imagery itself carries no georeferencing.
	GSDMeters float64 `yaml:"gsd_meters" mapstructure:"gsd_meters"`
	// DSMRangeM scales normalized surface-model luminance to meters.
	DSMRangeM float64 `yaml:"dsm_range_m" mapstructure:"dsm_range_m"`
}

// FootprintConfig configures the optional shapefile footprint dataset.
type FootprintConfig struct {
	ShapefilePath string `yaml:"shapefile_path" mapstructure:"shapefile_path"`
}

// CacheConfig configures the in-process estimate cache.
type CacheConfig struct {
	Enabled  bool `yaml:"enabled" mapstructure:"enabled"`
	TTLMins  int  `yaml:"ttl_mins" mapstructure:"ttl_mins"`
	MaxItems int  `yaml:"max_items" mapstructure:"max_items"`
}

// StoreConfig configures the estimate history backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // "sqlite", "postgres", or "none"
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
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
	v.SetEnvPrefix("GUTTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000", "http://localhost:5173"})
	v.SetDefault("google.geocode_rps", 10)
	v.SetDefault("google.request_secs", 30)
	v.SetDefault("google.download_secs", 60)
	v.SetDefault("solar.base_url", "https://solar.googleapis.com/v1")
	v.SetDefault("solar.radius_meters", 15)
	v.SetDefault("classify.backend", "heuristic")
	v.SetDefault("classify.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("classify.min_mask_coverage", 0.05)
	v.SetDefault("classify.max_images", 3)
	v.SetDefault("geometry.probe_offset_m", 1.0)
	v.SetDefault("geometry.min_edge_m", 0.3)
	v.SetDefault("geometry.eave_drop_m", 0.5)
	v.SetDefault("geometry.stations_per_edge", 5)
	v.SetDefault("perimeter.structural_correction", 0.08)
	v.SetDefault("estimator.waste_factor_base", 0.10)
	v.SetDefault("estimator.waste_factor_elevated", 0.15)
	v.SetDefault("estimator.low_confidence", 0.6)
	v.SetDefault("estimator.high_confidence", 0.8)
	v.SetDefault("estimator.spread_high", 0.10)
	v.SetDefault("estimator.spread_mid", 0.20)
	v.SetDefault("estimator.spread_low", 0.35)
	v.SetDefault("estimator.downspout_spacing_ft", 35)
	v.SetDefault("estimator.min_downspouts", 2)
	v.SetDefault("estimator.complexity_baseline", 0.15)
	v.SetDefault("estimator.complexity_cap", 1.5)
	v.SetDefault("imagery.dir", "images")
	v.SetDefault("imagery.gsd_meters", 0.25)
	v.SetDefault("imagery.dsm_range_m", 30.0)
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl_mins", 60)
	v.SetDefault("cache.max_items", 256)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "estimates.db")

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
