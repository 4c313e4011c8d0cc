package config

import "errors"

// Config is the top-level configuration struct for trustfang.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Analysis   AnalysisConfig   `mapstructure:"analysis"`
	Output     OutputConfig     `mapstructure:"output"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
	Checkpoint CheckpointConfig `mapstructure:"checkpoint"`
}

// ServerConfig holds GrimoireLab event server connection settings.
type ServerConfig struct {
	URL            string `mapstructure:"url"`
	Username       string `mapstructure:"username"`
	Password       string `mapstructure:"password"`
	Category       string `mapstructure:"category"`
	PageSize       int    `mapstructure:"page_size"`
	MaxRetries     int    `mapstructure:"max_retries"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// AnalysisConfig holds metric computation settings.
type AnalysisConfig struct {
	DaysInterval int  `mapstructure:"days_interval"`
	BatchSize    int  `mapstructure:"batch_size"`
	Limit        int  `mapstructure:"limit"`
	Strict       bool `mapstructure:"strict"`
}

// OutputConfig holds report rendering settings.
type OutputConfig struct {
	Format  string `mapstructure:"format"`
	NoColor bool   `mapstructure:"no_color"`
	Path    string `mapstructure:"path"`
}

// TelemetryConfig holds observability settings.
type TelemetryConfig struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	OTLPInsecure bool   `mapstructure:"otlp_insecure"`
	LogJSON      bool   `mapstructure:"log_json"`
	LogLevel     string `mapstructure:"log_level"`
	MetricsAddr  string `mapstructure:"metrics_addr"`
}

// CheckpointConfig holds snapshot persistence settings.
type CheckpointConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
	Resume  bool   `mapstructure:"resume"`
}

// Supported report formats.
var validFormats = map[string]bool{
	"text": true,
	"json": true,
	"yaml": true,
	"html": true,
}

// Supported log levels.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Sentinel errors for configuration validation.
var (
	// ErrInvalidPageSize indicates the page size is not positive.
	ErrInvalidPageSize = errors.New("server.page_size must be positive")
	// ErrInvalidMaxRetries indicates the retry budget is negative.
	ErrInvalidMaxRetries = errors.New("server.max_retries must be non-negative")
	// ErrInvalidTimeout indicates the request timeout is not positive.
	ErrInvalidTimeout = errors.New("server.timeout_seconds must be positive")
	// ErrInvalidDaysInterval indicates the cadence window is not positive.
	ErrInvalidDaysInterval = errors.New("analysis.days_interval must be positive")
	// ErrInvalidBatchSize indicates the ingestion batch size is not positive.
	ErrInvalidBatchSize = errors.New("analysis.batch_size must be positive")
	// ErrInvalidLimit indicates the commit limit is negative.
	ErrInvalidLimit = errors.New("analysis.limit must be non-negative")
	// ErrInvalidFormat indicates an unknown report format.
	ErrInvalidFormat = errors.New("output.format must be one of text, json, yaml, html")
	// ErrInvalidLogLevel indicates an unknown log level.
	ErrInvalidLogLevel = errors.New("telemetry.log_level must be one of debug, info, warn, error")
)

// Validate checks Config invariants and returns the first error found.
func (c *Config) Validate() error {
	serverErr := c.validateServer()
	if serverErr != nil {
		return serverErr
	}

	analysisErr := c.validateAnalysis()
	if analysisErr != nil {
		return analysisErr
	}

	if !validFormats[c.Output.Format] {
		return ErrInvalidFormat
	}

	if !validLogLevels[c.Telemetry.LogLevel] {
		return ErrInvalidLogLevel
	}

	return nil
}

func (c *Config) validateServer() error {
	if c.Server.PageSize <= 0 {
		return ErrInvalidPageSize
	}

	if c.Server.MaxRetries < 0 {
		return ErrInvalidMaxRetries
	}

	if c.Server.TimeoutSeconds <= 0 {
		return ErrInvalidTimeout
	}

	return nil
}

func (c *Config) validateAnalysis() error {
	if c.Analysis.DaysInterval <= 0 {
		return ErrInvalidDaysInterval
	}

	if c.Analysis.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	if c.Analysis.Limit < 0 {
		return ErrInvalidLimit
	}

	return nil
}
