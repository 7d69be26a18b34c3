package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultInstanceID    = "stocksync"
	DefaultSheetRange    = "Sheet1"
	DefaultRatesBaseURL  = "http://www.cbr.ru"
	DefaultCurrencyCode  = "R01235" // US Dollar in the CBR daily table
	DefaultRateCacheSize = 124
	DefaultRatesTimeout  = 30 * time.Second
	DefaultMaxRetries    = 3
	DefaultDriver        = DriverPostgres
	DefaultDBPort        = 5432
	DefaultDBSSLMode     = "prefer"
	DefaultMaxConns      = 4
	DefaultMinConns      = 1
	DefaultSQLitePath    = "stocksync.db"
	DefaultTable         = "stock"
	DefaultBatchSize     = 100
	DefaultPollInterval  = 30 * time.Second
	DefaultPollTimeout   = 20 * time.Second
	DefaultErrorPolicy   = "abort"
	DefaultHealthPort    = 8080
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "text"
)

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

func (c *Config) applyDefaults() {
	if c.Instance.ID == "" {
		c.Instance.ID = DefaultInstanceID
	}

	if c.Sheet.Range == "" {
		c.Sheet.Range = DefaultSheetRange
	}

	// Rates defaults
	if c.Rates.BaseURL == "" {
		c.Rates.BaseURL = DefaultRatesBaseURL
	}
	if c.Rates.CurrencyCode == "" {
		c.Rates.CurrencyCode = DefaultCurrencyCode
	}
	if c.Rates.CacheSize == 0 {
		c.Rates.CacheSize = DefaultRateCacheSize
	}
	if c.Rates.Timeout == 0 {
		c.Rates.Timeout = DefaultRatesTimeout
	}
	if c.Rates.MaxRetries == 0 {
		c.Rates.MaxRetries = DefaultMaxRetries
	}

	// Database defaults
	if c.Database.Driver == "" {
		c.Database.Driver = DefaultDriver
	}
	applyDBDefaults(&c.Database.Postgres)
	if c.Database.SQLite.Path == "" {
		c.Database.SQLite.Path = DefaultSQLitePath
	}

	// Store defaults
	if c.Store.Table == "" {
		c.Store.Table = DefaultTable
	}
	if c.Store.BatchSize == 0 {
		c.Store.BatchSize = DefaultBatchSize
	}

	// Poller defaults
	if c.Poller.Interval == 0 {
		c.Poller.Interval = DefaultPollInterval
	}
	if c.Poller.Timeout == 0 {
		c.Poller.Timeout = DefaultPollTimeout
	}

	if c.Transform.ErrorPolicy == "" {
		c.Transform.ErrorPolicy = DefaultErrorPolicy
	}

	if c.Health.Port == 0 {
		c.Health.Port = DefaultHealthPort
	}

	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
