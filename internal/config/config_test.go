package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	yaml := `
instance:
  id: test-sync
sheet:
  spreadsheet_id: sheet-123
  range: Orders
  credentials_file: /etc/stocksync/key.json
rates:
  base_url: http://rates.local
  currency_code: R01239
database:
  driver: postgres
  postgres:
    host: localhost
    port: 5432
    name: test_db
    user: testuser
    password: testpass
store:
  batch_size: 50
poller:
  interval: 45s
`
	path := writeTempFile(t, "config.yaml", yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Instance.ID != "test-sync" {
		t.Errorf("Instance.ID = %q, want %q", cfg.Instance.ID, "test-sync")
	}
	if cfg.Sheet.SpreadsheetID != "sheet-123" {
		t.Errorf("Sheet.SpreadsheetID = %q, want %q", cfg.Sheet.SpreadsheetID, "sheet-123")
	}
	if cfg.Rates.CurrencyCode != "R01239" {
		t.Errorf("Rates.CurrencyCode = %q, want %q", cfg.Rates.CurrencyCode, "R01239")
	}
	if cfg.Database.Postgres.Host != "localhost" {
		t.Errorf("Database.Postgres.Host = %q, want %q", cfg.Database.Postgres.Host, "localhost")
	}
	if cfg.Store.BatchSize != 50 {
		t.Errorf("Store.BatchSize = %d, want 50", cfg.Store.BatchSize)
	}
	if cfg.Poller.Interval != 45*time.Second {
		t.Errorf("Poller.Interval = %v, want %v", cfg.Poller.Interval, 45*time.Second)
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_DB_PASSWORD", "secret123")

	yaml := `
sheet:
  spreadsheet_id: sheet-123
database:
  postgres:
    host: localhost
    name: test_db
    user: testuser
    password: ${TEST_DB_PASSWORD}
`
	path := writeTempFile(t, "config.yaml", yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Database.Postgres.Password != "secret123" {
		t.Errorf("Database.Postgres.Password = %q, want %q", cfg.Database.Postgres.Password, "secret123")
	}
}

func TestLoad_RejectsUnknownKeys(t *testing.T) {
	path := writeTempFile(t, "config.yaml", "sheet:\n  spreadsheet_id: sheet-123\npoler:\n  interval: 5s\n")

	if _, err := Load(path); err == nil {
		t.Error("Load should reject the misspelt poler section")
	}
}

func TestLoad_EmptyFile(t *testing.T) {
	path := writeTempFile(t, "config.yaml", "")

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}
	if cfg.Poller.Timeout != DefaultPollTimeout {
		t.Errorf("Poller.Timeout = %v, want default %v", cfg.Poller.Timeout, DefaultPollTimeout)
	}
}

func TestLoadEnvFile(t *testing.T) {
	envPath := writeTempFile(t, ".env", "STOCKSYNC_TEST_SHEET=from-dotenv\n")
	t.Cleanup(func() { os.Unsetenv("STOCKSYNC_TEST_SHEET") })

	if err := LoadEnvFile(envPath); err != nil {
		t.Fatalf("LoadEnvFile failed: %v", err)
	}

	path := writeTempFile(t, "config.yaml", "sheet:\n  spreadsheet_id: ${STOCKSYNC_TEST_SHEET}\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Sheet.SpreadsheetID != "from-dotenv" {
		t.Errorf("Sheet.SpreadsheetID = %q, want %q", cfg.Sheet.SpreadsheetID, "from-dotenv")
	}
}

func TestLoadEnvFile_Missing(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "does-not-exist.env")
	if err := LoadEnvFile(missing); err != nil {
		t.Errorf("LoadEnvFile(missing) = %v, want nil", err)
	}
	if err := LoadEnvFile(""); err != nil {
		t.Errorf("LoadEnvFile(\"\") = %v, want nil", err)
	}
}

func TestLoadWithDefaults(t *testing.T) {
	yaml := `
sheet:
  spreadsheet_id: sheet-123
  credentials_file: key.json
database:
  postgres:
    host: localhost
    name: test_db
    user: testuser
    password: testpass
`
	path := writeTempFile(t, "config.yaml", yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	if cfg.Rates.BaseURL != DefaultRatesBaseURL {
		t.Errorf("Rates.BaseURL = %q, want default %q", cfg.Rates.BaseURL, DefaultRatesBaseURL)
	}
	if cfg.Rates.CurrencyCode != DefaultCurrencyCode {
		t.Errorf("Rates.CurrencyCode = %q, want default %q", cfg.Rates.CurrencyCode, DefaultCurrencyCode)
	}
	if cfg.Rates.CacheSize != DefaultRateCacheSize {
		t.Errorf("Rates.CacheSize = %d, want default %d", cfg.Rates.CacheSize, DefaultRateCacheSize)
	}
	if cfg.Database.Driver != DriverPostgres {
		t.Errorf("Database.Driver = %q, want default %q", cfg.Database.Driver, DriverPostgres)
	}
	if cfg.Database.Postgres.Port != DefaultDBPort {
		t.Errorf("Database.Postgres.Port = %d, want default %d", cfg.Database.Postgres.Port, DefaultDBPort)
	}
	if cfg.Store.Table != DefaultTable {
		t.Errorf("Store.Table = %q, want default %q", cfg.Store.Table, DefaultTable)
	}
	if cfg.Store.BatchSize != DefaultBatchSize {
		t.Errorf("Store.BatchSize = %d, want default %d", cfg.Store.BatchSize, DefaultBatchSize)
	}
	if cfg.Poller.Interval != DefaultPollInterval {
		t.Errorf("Poller.Interval = %v, want default %v", cfg.Poller.Interval, DefaultPollInterval)
	}
	if cfg.Transform.ErrorPolicy != DefaultErrorPolicy {
		t.Errorf("Transform.ErrorPolicy = %q, want default %q", cfg.Transform.ErrorPolicy, DefaultErrorPolicy)
	}
	if cfg.Health.Port != DefaultHealthPort {
		t.Errorf("Health.Port = %d, want default %d", cfg.Health.Port, DefaultHealthPort)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() after defaults: %v", err)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Sheet: SheetConfig{SpreadsheetID: "sheet", CredentialsFile: "key.json"},
			Rates: RatesConfig{CurrencyCode: "R01235", Timeout: 30 * time.Second, MaxRetries: 3},
			Database: DatabaseConfig{
				Driver:   DriverPostgres,
				Postgres: DBConfig{Host: "localhost", Name: "db", User: "user", Password: "pass", MaxConns: 4, MinConns: 1},
			},
			Store:     StoreConfig{Table: "stock", BatchSize: 100},
			Poller:    PollerConfig{Interval: 30 * time.Second, Timeout: 20 * time.Second},
			Transform: TransformConfig{ErrorPolicy: "abort"},
			Health:    HealthConfig{Port: 8080},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:    "missing spreadsheet id",
			mutate:  func(c *Config) { c.Sheet.SpreadsheetID = "" },
			wantErr: "sheet.spreadsheet_id is required",
		},
		{
			name:    "missing credentials",
			mutate:  func(c *Config) { c.Sheet.CredentialsFile = "" },
			wantErr: "sheet.credentials_file is required",
		},
		{
			name:    "missing postgres password",
			mutate:  func(c *Config) { c.Database.Postgres.Password = "" },
			wantErr: "database.postgres.password is required",
		},
		{
			name:    "min_conns exceeds max_conns",
			mutate:  func(c *Config) { c.Database.Postgres.MinConns = 10 },
			wantErr: "database.postgres.min_conns (10) cannot exceed max_conns (4)",
		},
		{
			name:    "unknown driver",
			mutate:  func(c *Config) { c.Database.Driver = "mysql" },
			wantErr: `database.driver must be "postgres" or "sqlite", got "mysql"`,
		},
		{
			name: "sqlite skips postgres checks",
			mutate: func(c *Config) {
				c.Database.Driver = DriverSQLite
				c.Database.Postgres = DBConfig{}
				c.Database.SQLite.Path = "stock.db"
			},
		},
		{
			name:    "table name injection",
			mutate:  func(c *Config) { c.Store.Table = "stock; DROP TABLE x" },
			wantErr: `store.table "stock; DROP TABLE x" is not a valid identifier`,
		},
		{
			name:    "zero batch size",
			mutate:  func(c *Config) { c.Store.BatchSize = 0 },
			wantErr: "store.batch_size must be >= 1",
		},
		{
			name:    "negative max retries",
			mutate:  func(c *Config) { c.Rates.MaxRetries = -1 },
			wantErr: "rates.max_retries must be >= 0",
		},
		{
			name:    "zero rates timeout",
			mutate:  func(c *Config) { c.Rates.Timeout = 0 },
			wantErr: "rates.timeout must be > 0",
		},
		{
			name:    "negative poller timeout",
			mutate:  func(c *Config) { c.Poller.Timeout = -time.Second },
			wantErr: "poller.timeout must be > 0",
		},
		{
			name:    "bad error policy",
			mutate:  func(c *Config) { c.Transform.ErrorPolicy = "ignore" },
			wantErr: `transform.error_policy must be "abort" or "skip", got "ignore"`,
		},
		{
			name:    "health port out of range",
			mutate:  func(c *Config) { c.Health.Port = 70000 },
			wantErr: "health.port must be between 1 and 65535, got 70000",
		},
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
			} else {
				if err == nil {
					t.Errorf("Validate() expected error containing %q, got nil", tt.wantErr)
				} else if err.Error() != tt.wantErr {
					t.Errorf("Validate() error = %q, want %q", err.Error(), tt.wantErr)
				}
			}
		})
	}
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}
