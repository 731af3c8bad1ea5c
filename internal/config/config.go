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
	Input      InputConfig      `yaml:"input" mapstructure:"input"`
	Score      ScoreConfig      `yaml:"score" mapstructure:"score"`
	Sites      SitesConfig      `yaml:"sites" mapstructure:"sites"`
	Output     OutputConfig     `yaml:"output" mapstructure:"output"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Metrics    MetricsConfig    `yaml:"metrics" mapstructure:"metrics"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// InputConfig locates the two source tables.
type InputConfig struct {
	Measurements MeasurementsConfig `yaml:"measurements" mapstructure:"measurements"`
	Boundaries   BoundariesConfig   `yaml:"boundaries" mapstructure:"boundaries"`
	CacheDir     string             `yaml:"cache_dir" mapstructure:"cache_dir"`
	UserAgent    string             `yaml:"user_agent" mapstructure:"user_agent"`
}

// MeasurementsConfig describes the heat-flow measurement table (XLSX or CSV,
// local path or http(s) URL).
type MeasurementsConfig struct {
	Path            string `yaml:"path" mapstructure:"path"`
	Sheet           string `yaml:"sheet" mapstructure:"sheet"`
	HeaderRow       int    `yaml:"header_row" mapstructure:"header_row"`
	LatColumn       string `yaml:"lat_column" mapstructure:"lat_column"`
	LonColumn       string `yaml:"lon_column" mapstructure:"lon_column"`
	CorrectedColumn string `yaml:"corrected_column" mapstructure:"corrected_column"`
	RawColumn       string `yaml:"raw_column" mapstructure:"raw_column"`
	Encoding        string `yaml:"encoding" mapstructure:"encoding"`
	Delimiter       string `yaml:"delimiter" mapstructure:"delimiter"`
	Comment         string `yaml:"comment" mapstructure:"comment"`
}

// BoundariesConfig describes the plate boundary point table (CSV or shapefile).
type BoundariesConfig struct {
	Path        string `yaml:"path" mapstructure:"path"`
	LatColumn   string `yaml:"lat_column" mapstructure:"lat_column"`
	LonColumn   string `yaml:"lon_column" mapstructure:"lon_column"`
	PlateColumn string `yaml:"plate_column" mapstructure:"plate_column"`
	Encoding    string `yaml:"encoding" mapstructure:"encoding"`
	Delimiter   string `yaml:"delimiter" mapstructure:"delimiter"`
	Comment     string `yaml:"comment" mapstructure:"comment"`
}

// ScoreConfig configures composite scoring.
type ScoreConfig struct {
	CapQuantile float64 `yaml:"cap_quantile" mapstructure:"cap_quantile"`
	SigmaKM     float64 `yaml:"sigma_km" mapstructure:"sigma_km"`
	HeatWeight  float64 `yaml:"heat_weight" mapstructure:"heat_weight"`
	Concurrency int     `yaml:"concurrency" mapstructure:"concurrency"`
}

// SitesConfig configures the top-sites shortlist.
type SitesConfig struct {
	MaxSites        int     `yaml:"max_sites" mapstructure:"max_sites"`
	MinSeparationKM float64 `yaml:"min_separation_km" mapstructure:"min_separation_km"`
}

// OutputConfig names the files written for the visualization layer.
type OutputConfig struct {
	Dir         string `yaml:"dir" mapstructure:"dir"`
	HeatmapFile string `yaml:"heatmap_file" mapstructure:"heatmap_file"`
	SitesFile   string `yaml:"sites_file" mapstructure:"sites_file"`
	PathsFile   string `yaml:"paths_file" mapstructure:"paths_file"`
	GeoJSONFile string `yaml:"geojson_file" mapstructure:"geojson_file"`
	GeoJSON     bool   `yaml:"geojson" mapstructure:"geojson"`
}

// StoreConfig configures the run history backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// MetricsConfig configures the Prometheus textfile export.
type MetricsConfig struct {
	Textfile string `yaml:"textfile" mapstructure:"textfile"`
}

// MonitoringConfig configures run-history alerting while serving.
type MonitoringConfig struct {
	CheckIntervalSecs    int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	LookbackWindowHours  int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	StaleAfterHours      int     `yaml:"stale_after_hours" mapstructure:"stale_after_hours"`
	StuckAfterMinutes    int     `yaml:"stuck_after_minutes" mapstructure:"stuck_after_minutes"`
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	RateLimit   float64  `yaml:"rate_limit" mapstructure:"rate_limit"`
	Burst       int      `yaml:"burst" mapstructure:"burst"`
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
	v.SetEnvPrefix("GEOTHERMAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("input.measurements.path", "datasets/IHFC_2024_GHFDB.xlsx")
	v.SetDefault("input.measurements.sheet", "")
	v.SetDefault("input.measurements.header_row", 5)
	v.SetDefault("input.measurements.lat_column", "lat_NS")
	v.SetDefault("input.measurements.lon_column", "long_EW")
	v.SetDefault("input.measurements.corrected_column", "qc")
	v.SetDefault("input.measurements.raw_column", "q")
	v.SetDefault("input.measurements.encoding", "")
	v.SetDefault("input.measurements.delimiter", ",")
	v.SetDefault("input.measurements.comment", "")
	v.SetDefault("input.boundaries.path", "datasets/all.csv")
	v.SetDefault("input.boundaries.lat_column", "lat")
	v.SetDefault("input.boundaries.lon_column", "lon")
	v.SetDefault("input.boundaries.plate_column", "plate")
	v.SetDefault("input.boundaries.encoding", "")
	v.SetDefault("input.boundaries.delimiter", ",")
	v.SetDefault("input.boundaries.comment", "")
	v.SetDefault("input.cache_dir", "/tmp/geothermal")
	v.SetDefault("input.user_agent", "geothermal-cli/1.0")
	v.SetDefault("score.cap_quantile", 0.995)
	v.SetDefault("score.sigma_km", 300.0)
	v.SetDefault("score.heat_weight", 0.70)
	v.SetDefault("score.concurrency", 4)
	v.SetDefault("sites.max_sites", 20)
	v.SetDefault("sites.min_separation_km", 500.0)
	v.SetDefault("output.dir", "public")
	v.SetDefault("output.heatmap_file", "geothermal_data.json")
	v.SetDefault("output.sites_file", "top_sites.json")
	v.SetDefault("output.paths_file", "plate_boundaries.json")
	v.SetDefault("output.geojson_file", "plate_boundaries.geojson")
	v.SetDefault("output.geojson", true)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "geothermal.db")
	v.SetDefault("metrics.textfile", "")
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.lookback_window_hours", 24)
	v.SetDefault("monitoring.failure_rate_threshold", 0.25)
	v.SetDefault("monitoring.stale_after_hours", 0)
	v.SetDefault("monitoring.stuck_after_minutes", 60)
	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.rate_limit", 20.0)
	v.SetDefault("server.burst", 40)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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
