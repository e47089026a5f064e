package domain

// ServerConfig holds server-related settings
type ServerConfig struct {
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	BaseURL string `mapstructure:"base_url"`
}

// PostgresConfig holds PostgreSQL-specific settings
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	User     string `mapstructure:"username"`
	Pass     string `mapstructure:"password"`
	SslMode  string `mapstructure:"ssl_mode"`
}

// DatabaseConfig holds general database settings and nested specific configs
type DatabaseConfig struct {
	Type     string         `mapstructure:"type"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Path           string `mapstructure:"path"`
	Level          string `mapstructure:"level"`
	MaxFileSize    int    `mapstructure:"max_file_size"`
	MaxBackupCount int    `mapstructure:"max_backup_count"`
}

// SyncConfig holds cart sync engine settings
type SyncConfig struct {
	// Seconds between automatic push attempts.
	IntervalSeconds int `mapstructure:"interval_seconds"`
}

// SnapshotConfig holds settings for cart snapshots and their scheduled jobs
type SnapshotConfig struct {
	// Maximum snapshots retained per user; oldest are pruned on create.
	MaxPerUser int `mapstructure:"max_per_user"`
	// Cron schedule for the periodic safety snapshot job.
	PeriodicSchedule string `mapstructure:"periodic_schedule"`
	// Cron schedule for the snapshot prune job.
	PruneSchedule string `mapstructure:"prune_schedule"`
}

// Config holds the application's configuration, mapped from config.toml
type Config struct {
	Version    string // No tag needed, not from config file
	ConfigPath string // No tag needed, internal use

	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Snapshot SnapshotConfig `mapstructure:"snapshot"`
}
