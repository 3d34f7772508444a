package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"tablero/internal/log"
)

// Backends accepted by DATA_BACKEND.
const (
	BackendExcel  = "excel"
	BackendSheets = "sheets"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

var validBackends = []string{BackendExcel, BackendSheets, BackendSQLite, BackendMemory}

type Config struct {
	// HTTP Server
	Port     string
	LogLevel string

	// Backend selection
	DataBackend string

	// Excel workbook
	ExcelPath  string
	ExcelSheet string

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Google OAuth installed-app client, an alternative to the service account
	GoogleOAuthClientJSON string
	GoogleOAuthClientFile string
	GoogleOAuthTokenFile  string

	// Database
	SQLiteDBPath string

	// In-memory seed
	MemorySeedFile string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Cache and refresh
	CacheTTL         time.Duration
	RefreshInterval  time.Duration
	ReloadsPerMinute int

	// Tracing
	TracingEnabled  bool
	TracingEndpoint string

	// Dashboard
	TopN          int
	SyntheticSeed int64

	// Header aliases from the YAML overlay: raw header -> field name
	Columns map[string]string

	// ConfigFile is the YAML overlay that was applied, if any
	ConfigFile string
	fileErr    error
}

// fileConfig mirrors the YAML overlay. Every key is optional.
type fileConfig struct {
	Port        string `yaml:"port"`
	LogLevel    string `yaml:"log_level"`
	DataBackend string `yaml:"data_backend"`
	Excel       struct {
		Path  string `yaml:"path"`
		Sheet string `yaml:"sheet"`
	} `yaml:"excel"`
	Google struct {
		SpreadsheetID      string `yaml:"spreadsheet_id"`
		SheetName          string `yaml:"sheet_name"`
		ServiceAccountFile string `yaml:"service_account_file"`
		OAuthClientFile    string `yaml:"oauth_client_file"`
		OAuthTokenFile     string `yaml:"oauth_token_file"`
	} `yaml:"google"`
	SQLiteDBPath   string `yaml:"sqlite_db_path"`
	MemorySeedFile string `yaml:"memory_seed_file"`
	AMQP           struct {
		URL      string `yaml:"url"`
		Exchange string `yaml:"exchange"`
		Queue    string `yaml:"queue"`
	} `yaml:"amqp"`
	CacheTTL         string `yaml:"cache_ttl"`
	RefreshInterval  string `yaml:"refresh_interval"`
	ReloadsPerMinute int    `yaml:"reloads_per_minute"`
	Tracing          struct {
		Enabled  *bool  `yaml:"enabled"`
		Endpoint string `yaml:"endpoint"`
	} `yaml:"tracing"`
	TopN          int               `yaml:"top_n"`
	SyntheticSeed int64             `yaml:"synthetic_seed"`
	Columns       map[string]string `yaml:"columns"`
}

func defaults() *Config {
	return &Config{
		Port:             "8081",
		LogLevel:         "info",
		DataBackend:      BackendExcel,
		ExcelPath:        "BBDD Pintando Ideas.xlsx",
		GoogleSheetName:  "Ideas",
		SQLiteDBPath:     "./data/tablero.db",
		MemorySeedFile:   "./data/ideas.csv",
		AMQPExchange:     "tablero",
		AMQPQueue:        "reload_dataset",
		CacheTTL:         10 * time.Minute,
		ReloadsPerMinute: 6,
		TracingEndpoint:  "localhost:4317",
		TopN:             5,
		SyntheticSeed:    42,
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// CONFIG_FILE, then environment variables. Problems reading the file are
// reported by Validate.
func Load() *Config {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		cfg.ConfigFile = path
		cfg.fileErr = cfg.applyFile(path)
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.DataBackend = strings.ToLower(getEnv("DATA_BACKEND", cfg.DataBackend))

	cfg.ExcelPath = getEnv("EXCEL_PATH", cfg.ExcelPath)
	cfg.ExcelSheet = getEnv("EXCEL_SHEET", cfg.ExcelSheet)

	cfg.GoogleSpreadsheetID = getEnv("GOOGLE_SPREADSHEET_ID", cfg.GoogleSpreadsheetID)
	cfg.GoogleSheetName = getEnv("GOOGLE_SHEET_NAME", cfg.GoogleSheetName)
	cfg.GoogleServiceAccountJSON = getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", cfg.GoogleServiceAccountJSON)
	cfg.GoogleServiceAccountFile = getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", cfg.GoogleServiceAccountFile)
	cfg.GoogleOAuthClientJSON = getEnv("GOOGLE_OAUTH_CLIENT_JSON", cfg.GoogleOAuthClientJSON)
	cfg.GoogleOAuthClientFile = getEnv("GOOGLE_OAUTH_CLIENT_FILE", cfg.GoogleOAuthClientFile)
	cfg.GoogleOAuthTokenFile = getEnv("GOOGLE_OAUTH_TOKEN_FILE", cfg.GoogleOAuthTokenFile)

	cfg.SQLiteDBPath = getEnv("SQLITE_DB_PATH", cfg.SQLiteDBPath)
	cfg.MemorySeedFile = getEnv("MEMORY_SEED_FILE", cfg.MemorySeedFile)

	cfg.AMQPURL = getEnv("AMQP_URL", cfg.AMQPURL)
	cfg.AMQPExchange = getEnv("AMQP_EXCHANGE", cfg.AMQPExchange)
	cfg.AMQPQueue = getEnv("AMQP_QUEUE", cfg.AMQPQueue)

	cfg.CacheTTL = getEnvDuration("CACHE_TTL", cfg.CacheTTL)
	cfg.RefreshInterval = getEnvDuration("REFRESH_INTERVAL", cfg.RefreshInterval)
	cfg.ReloadsPerMinute = getEnvInt("RELOADS_PER_MINUTE", cfg.ReloadsPerMinute)

	cfg.TracingEnabled = getEnvBool("TRACING_ENABLED", cfg.TracingEnabled)
	cfg.TracingEndpoint = getEnv("TRACING_ENDPOINT", cfg.TracingEndpoint)

	cfg.TopN = getEnvInt("TOP_N", cfg.TopN)
	cfg.SyntheticSeed = int64(getEnvInt("SYNTHETIC_SEED", int(cfg.SyntheticSeed)))

	return cfg
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&c.Port, fc.Port)
	setString(&c.LogLevel, fc.LogLevel)
	setString(&c.DataBackend, fc.DataBackend)
	setString(&c.ExcelPath, fc.Excel.Path)
	setString(&c.ExcelSheet, fc.Excel.Sheet)
	setString(&c.GoogleSpreadsheetID, fc.Google.SpreadsheetID)
	setString(&c.GoogleSheetName, fc.Google.SheetName)
	setString(&c.GoogleServiceAccountFile, fc.Google.ServiceAccountFile)
	setString(&c.GoogleOAuthClientFile, fc.Google.OAuthClientFile)
	setString(&c.GoogleOAuthTokenFile, fc.Google.OAuthTokenFile)
	setString(&c.SQLiteDBPath, fc.SQLiteDBPath)
	setString(&c.MemorySeedFile, fc.MemorySeedFile)
	setString(&c.AMQPURL, fc.AMQP.URL)
	setString(&c.AMQPExchange, fc.AMQP.Exchange)
	setString(&c.AMQPQueue, fc.AMQP.Queue)
	setString(&c.TracingEndpoint, fc.Tracing.Endpoint)
	if fc.Tracing.Enabled != nil {
		c.TracingEnabled = *fc.Tracing.Enabled
	}
	if fc.TopN != 0 {
		c.TopN = fc.TopN
	}
	if fc.ReloadsPerMinute != 0 {
		c.ReloadsPerMinute = fc.ReloadsPerMinute
	}
	if fc.SyntheticSeed != 0 {
		c.SyntheticSeed = fc.SyntheticSeed
	}
	if fc.CacheTTL != "" {
		d, err := time.ParseDuration(fc.CacheTTL)
		if err != nil {
			return fmt.Errorf("config file cache_ttl: %w", err)
		}
		c.CacheTTL = d
	}
	if fc.RefreshInterval != "" {
		d, err := time.ParseDuration(fc.RefreshInterval)
		if err != nil {
			return fmt.Errorf("config file refresh_interval: %w", err)
		}
		c.RefreshInterval = d
	}
	if len(fc.Columns) > 0 {
		c.Columns = fc.Columns
	}
	return nil
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if c.fileErr != nil {
		errors = append(errors, c.fileErr.Error())
	}

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}

	// Validate data backend
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case BackendExcel:
		// A missing workbook is not fatal: the loader serves synthetic data.
		if c.ExcelPath == "" {
			errors = append(errors, "Excel path cannot be empty when using excel backend")
		}
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	case BackendSheets:
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
		}
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when using sheets backend")
		}
		hasFile := c.GoogleServiceAccountFile != ""
		if !hasFile && c.GoogleServiceAccountJSON == "" && !c.HasGoogleOAuth() && os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_FILE, GOOGLE_SERVICE_ACCOUNT_JSON or an OAuth client with GOOGLE_OAUTH_TOKEN_FILE must be provided for sheets backend")
		}
		if hasFile {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.CacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must not be negative", c.CacheTTL))
	}
	if c.RefreshInterval != 0 && c.RefreshInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid refresh interval %v: must be 0 or at least 1 second", c.RefreshInterval))
	} else if c.RefreshInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid refresh interval %v: must be at most 24 hours", c.RefreshInterval))
	}

	if c.ReloadsPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid reloads per minute %d: must be at least 1", c.ReloadsPerMinute))
	}

	if c.TopN < 1 || c.TopN > 50 {
		errors = append(errors, fmt.Sprintf("invalid top N %d: must be between 1 and 50", c.TopN))
	}

	if c.TracingEnabled && c.TracingEndpoint == "" {
		errors = append(errors, "tracing endpoint cannot be empty when tracing is enabled")
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// HasGoogleOAuth reports whether an OAuth client and a saved token are configured.
func (c *Config) HasGoogleOAuth() bool {
	return (c.GoogleOAuthClientJSON != "" || c.GoogleOAuthClientFile != "") && c.GoogleOAuthTokenFile != ""
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
