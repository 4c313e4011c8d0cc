package config

// Default server settings.
const (
	DefaultServerCategory       = "commit"
	DefaultServerPageSize       = 100
	DefaultServerMaxRetries     = 5
	DefaultServerTimeoutSeconds = 30
)

// Default analysis settings.
const (
	DefaultDaysInterval = 30
	DefaultBatchSize    = 100
	DefaultLimit        = 0
	DefaultStrict       = false
)

// Default output settings.
const (
	DefaultOutputFormat  = "text"
	DefaultOutputNoColor = false
)

// Default telemetry settings.
const (
	DefaultLogJSON  = false
	DefaultLogLevel = "info"
)

// Default checkpoint settings.
const (
	DefaultCheckpointEnabled = false
	DefaultCheckpointResume  = false
)
