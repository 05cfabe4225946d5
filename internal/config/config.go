package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"subtepulse/pkg/contracts/domain"
)

// Config is the complete application configuration. Every tunable the
// pipeline components read lives here; none of them keep process-wide
// mutable state.
type Config struct {
	Pipeline PipelineConfig `yaml:"pipeline" envconfig:"PIPELINE"`
	Paths    PathsConfig    `yaml:"paths" envconfig:"PATHS"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`

	// Aliases extends the built-in alias table: canonical field name ->
	// extra raw column names to accept. YAML-only; merged over defaults.
	Aliases map[string][]string `yaml:"aliases"`
}

// PipelineConfig contains the data-quality and metric-derivation tunables.
type PipelineConfig struct {
	// OperatingMinutesPerDay is the assumed service window used by the
	// headway formula. 1080 = 18 operating hours (05:30-23:30).
	OperatingMinutesPerDay int `yaml:"operating_minutes_per_day" envconfig:"OPERATING_MINUTES_PER_DAY" validate:"gt=0"`

	// DefaultHeadwayMin is emitted when neither dispatch signal is usable.
	DefaultHeadwayMin float64 `yaml:"default_headway_min" envconfig:"DEFAULT_HEADWAY_MIN" validate:"gt=0"`

	// ValidPeriodStart/End bound the accepted period range (YYYY-MM).
	ValidPeriodStart string `yaml:"valid_period_start" envconfig:"VALID_PERIOD_START" validate:"required"`
	ValidPeriodEnd   string `yaml:"valid_period_end" envconfig:"VALID_PERIOD_END" validate:"required"`

	// ConfidenceThreshold gates the auto-detector: any required field
	// below it switches the run to demo mode.
	ConfidenceThreshold float64 `yaml:"confidence_threshold" envconfig:"CONFIDENCE_THRESHOLD" validate:"gte=0,lte=1"`

	// SignalTolerance is the relative disagreement between monthly and
	// daily dispatch signals above which a conflict warning is surfaced.
	SignalTolerance float64 `yaml:"signal_tolerance" envconfig:"SIGNAL_TOLERANCE" validate:"gte=0"`

	// HeadwayPlausibleMin/Max bound the plausibility check on estimates.
	HeadwayPlausibleMin float64 `yaml:"headway_plausible_min" envconfig:"HEADWAY_PLAUSIBLE_MIN"`
	HeadwayPlausibleMax float64 `yaml:"headway_plausible_max" envconfig:"HEADWAY_PLAUSIBLE_MAX"`

	// AnomalyWindow and AnomalyZThreshold tune the rolling z-score scan
	// over consolidated (line, station) passenger series.
	AnomalyWindow     int     `yaml:"anomaly_window" envconfig:"ANOMALY_WINDOW" validate:"gte=0"`
	AnomalyZThreshold float64 `yaml:"anomaly_z_threshold" envconfig:"ANOMALY_Z_THRESHOLD" validate:"gte=0"`

	// DemoSeed seeds the synthetic dataset generator. Same seed, same
	// bytes out.
	DemoSeed int64 `yaml:"demo_seed" envconfig:"DEMO_SEED"`

	// Parallelism bounds concurrent per-file cleaning. 1 disables it.
	Parallelism int `yaml:"parallelism" envconfig:"PARALLELISM" validate:"gte=1"`

	// ForecastHorizon is how many future months the trend forecast emits.
	ForecastHorizon int `yaml:"forecast_horizon" envconfig:"FORECAST_HORIZON" validate:"gte=0"`
}

// PathsConfig contains file system locations and output filenames.
type PathsConfig struct {
	RawDir       string `yaml:"raw_dir" envconfig:"RAW_DIR" validate:"required"`
	ProcessedDir string `yaml:"processed_dir" envconfig:"PROCESSED_DIR" validate:"required"`
	LogsDir      string `yaml:"logs_dir" envconfig:"LOGS_DIR"`

	DatasetFile  string `yaml:"dataset_file" envconfig:"DATASET_FILE"`
	HeadwayFile  string `yaml:"headway_file" envconfig:"HEADWAY_FILE"`
	SummaryFile  string `yaml:"summary_file" envconfig:"SUMMARY_FILE"`
	ForecastFile string `yaml:"forecast_file" envconfig:"FORECAST_FILE"`
	RunFile      string `yaml:"run_file" envconfig:"RUN_FILE"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL"`
	Output   string `yaml:"output" envconfig:"OUTPUT"` // stdout, file, both
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// ServerConfig contains the read-only collaborator API configuration.
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" validate:"gt=0,lte=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	RateLimitRPS    float64       `yaml:"rate_limit_rps" envconfig:"RATE_LIMIT_RPS"`
	RateLimitBurst  int           `yaml:"rate_limit_burst" envconfig:"RATE_LIMIT_BURST"`
	CacheTTL        time.Duration `yaml:"cache_ttl" envconfig:"CACHE_TTL"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			OperatingMinutesPerDay: 1080,
			DefaultHeadwayMin:      4.5,
			ValidPeriodStart:       "2024-01",
			ValidPeriodEnd:         "2024-12",
			ConfidenceThreshold:    0.6,
			SignalTolerance:        0.25,
			HeadwayPlausibleMin:    1,
			HeadwayPlausibleMax:    20,
			AnomalyWindow:          6,
			AnomalyZThreshold:      2.0,
			DemoSeed:               42,
			Parallelism:            4,
			ForecastHorizon:        4,
		},
		Paths: PathsConfig{
			RawDir:       "data/raw",
			ProcessedDir: "data/processed",
			LogsDir:      "logs",
			DatasetFile:  "ridership_clean.csv",
			HeadwayFile:  "headway_estimates.csv",
			SummaryFile:  "summary.json",
			ForecastFile: "passengers_forecast.csv",
			RunFile:      "run_summary.json",
		},
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "stdout",
			FilePath: "logs/pipeline.log",
		},
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RateLimitRPS:    100,
			RateLimitBurst:  50,
			CacheTTL:        30 * time.Second,
		},
	}
}

// Load builds the configuration: built-in defaults, then the YAML file if
// present, then SUBTE_* environment variables, then validation.
func Load(configFile string) (*Config, error) {
	cfg := Default()

	if configFile != "" {
		if _, err := os.Stat(configFile); err == nil {
			data, err := os.ReadFile(configFile)
			if err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	if err := envconfig.Process("SUBTE", cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration structurally and semantically.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if _, err := c.ValidRange(); err != nil {
		return err
	}
	return nil
}

// ValidRange parses the configured valid period range.
func (c *Config) ValidRange() (domain.PeriodRange, error) {
	start, err := domain.ParsePeriod(c.Pipeline.ValidPeriodStart)
	if err != nil {
		return domain.PeriodRange{}, fmt.Errorf("invalid valid_period_start: %w", err)
	}
	end, err := domain.ParsePeriod(c.Pipeline.ValidPeriodEnd)
	if err != nil {
		return domain.PeriodRange{}, fmt.Errorf("invalid valid_period_end: %w", err)
	}
	if end.Before(start) {
		return domain.PeriodRange{}, fmt.Errorf("valid period range is inverted: %s..%s",
			c.Pipeline.ValidPeriodStart, c.Pipeline.ValidPeriodEnd)
	}
	return domain.PeriodRange{Start: start, End: end}, nil
}
