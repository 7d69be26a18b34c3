package config

import (
	"errors"
	"fmt"
	"regexp"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Sheet.SpreadsheetID == "" {
		return errors.New("sheet.spreadsheet_id is required")
	}
	if c.Sheet.CredentialsFile == "" && c.Sheet.Endpoint == "" {
		return errors.New("sheet.credentials_file is required")
	}

	if c.Rates.CurrencyCode == "" {
		return errors.New("rates.currency_code is required")
	}
	if c.Rates.MaxRetries < 0 {
		return errors.New("rates.max_retries must be >= 0")
	}
	if c.Rates.Timeout <= 0 {
		return errors.New("rates.timeout must be > 0")
	}

	switch c.Database.Driver {
	case DriverPostgres:
		if err := c.Database.Postgres.validate("database.postgres"); err != nil {
			return err
		}
	case DriverSQLite:
		if c.Database.SQLite.Path == "" {
			return errors.New("database.sqlite.path is required")
		}
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q", DriverPostgres, DriverSQLite, c.Database.Driver)
	}

	if !tableNamePattern.MatchString(c.Store.Table) {
		return fmt.Errorf("store.table %q is not a valid identifier", c.Store.Table)
	}
	if c.Store.BatchSize < 1 {
		return errors.New("store.batch_size must be >= 1")
	}

	if c.Poller.Interval <= 0 {
		return errors.New("poller.interval must be > 0")
	}
	if c.Poller.Timeout <= 0 {
		return errors.New("poller.timeout must be > 0")
	}

	if c.Transform.ErrorPolicy != "abort" && c.Transform.ErrorPolicy != "skip" {
		return fmt.Errorf("transform.error_policy must be \"abort\" or \"skip\", got %q", c.Transform.ErrorPolicy)
	}

	if c.Health.Port < 1 || c.Health.Port > 65535 {
		return fmt.Errorf("health.port must be between 1 and 65535, got %d", c.Health.Port)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
