package config

import "time"

// Config is the root configuration for a stocksync instance.
type Config struct {
	Instance  InstanceConfig  `yaml:"instance"`
	Sheet     SheetConfig     `yaml:"sheet"`
	Rates     RatesConfig     `yaml:"rates"`
	Database  DatabaseConfig  `yaml:"database"`
	Store     StoreConfig     `yaml:"store"`
	Poller    PollerConfig    `yaml:"poller"`
	Transform TransformConfig `yaml:"transform"`
	Health    HealthConfig    `yaml:"health"`
	Log       LogConfig       `yaml:"log"`
}

// InstanceConfig identifies this instance in logs.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// SheetConfig holds the watched spreadsheet and Google API settings.
type SheetConfig struct {
	SpreadsheetID   string `yaml:"spreadsheet_id"`
	Range           string `yaml:"range"`            // A1 range including the header row, e.g. "Sheet1"
	CredentialsFile string `yaml:"credentials_file"` // Service account JSON key
	Endpoint        string `yaml:"endpoint"`         // Overrides the Google API endpoint (tests, proxies)
}

// RatesConfig holds rate source settings.
type RatesConfig struct {
	BaseURL      string        `yaml:"base_url"`
	CurrencyCode string        `yaml:"currency_code"` // Valute ID or char code, e.g. R01235 (USD)
	CacheSize    int           `yaml:"cache_size"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxRetries   int           `yaml:"max_retries"`
}

// DatabaseConfig selects and configures the durable store.
type DatabaseConfig struct {
	Driver   string       `yaml:"driver"` // "postgres" or "sqlite"
	Postgres DBConfig     `yaml:"postgres"`
	SQLite   SQLiteConfig `yaml:"sqlite"`
}

// DBConfig holds a single PostgreSQL connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// SQLiteConfig holds the embedded database file.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// StoreConfig holds reconciling store settings.
type StoreConfig struct {
	Table     string `yaml:"table"`
	BatchSize int    `yaml:"batch_size"`
}

// PollerConfig holds change poller settings.
type PollerConfig struct {
	Interval time.Duration `yaml:"interval"`
	Timeout  time.Duration `yaml:"timeout"`
}

// TransformConfig holds row transformation settings.
type TransformConfig struct {
	ErrorPolicy string `yaml:"error_policy"` // "abort" or "skip"
}

// HealthConfig holds the health server settings.
type HealthConfig struct {
	Port int `yaml:"port"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}
