// Package config provides configuration management for notekeeper.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/thebtf/notekeeper/internal/timeparse"
)

const (
	// DefaultWorkerPort is the default admin HTTP port.
	DefaultWorkerPort = 37811

	// DefaultMaxConns is the default database connection limit.
	DefaultMaxConns = 4

	// DefaultUTCOffset is the offset user-supplied times are interpreted in.
	DefaultUTCOffset = "+03:00"

	// DefaultScanInterval is the reminder scan period.
	DefaultScanInterval = time.Minute

	// DefaultSendRate is the outgoing Telegram messages per second.
	DefaultSendRate = 25

	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// DefaultLocales are the parser languages tried in order.
var DefaultLocales = []string{"ru", "en"}

// ErrMissingToken is returned by Validate when no bot token is configured.
var ErrMissingToken = errors.New("telegram bot token is not configured")

// Config holds notekeeper configuration.
type Config struct {
	TelegramToken string        `json:"telegram_token"`
	DBDriver      string        `json:"db_driver"`
	DBPath        string        `json:"db_path"`
	DatabaseURL   string        `json:"database_url"`
	MaxConns      int           `json:"max_conns"`
	UTCOffset     string        `json:"utc_offset"`
	Locales       []string      `json:"locales"`
	ScanInterval  time.Duration `json:"scan_interval"`
	WorkerPort    int           `json:"worker_port"`
	DialogBackend string        `json:"dialog_backend"`
	RedisAddr     string        `json:"redis_addr"`
	SendRate      int           `json:"send_rate"`
	MessagesFile  string        `json:"messages_file"`
	LogLevel      string        `json:"log_level"`
	LogFormat     string        `json:"log_format"`
	TelegramDebug bool          `json:"telegram_debug"`
}

var (
	globalConfig *Config
	configOnce   sync.Once
)

// DataDir returns the data directory path.
func DataDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".notekeeper")
}

// DBPath returns the default SQLite database path.
func DBPath() string {
	return filepath.Join(DataDir(), "notekeeper.db")
}

// SettingsPath returns the settings file path.
func SettingsPath() string {
	return filepath.Join(DataDir(), "settings.json")
}

// MessagesPath returns the default message catalog override path.
func MessagesPath() string {
	return filepath.Join(DataDir(), "messages.yaml")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() error {
	return os.MkdirAll(DataDir(), 0750)
}

// EnsureSettings writes a default settings file if none exists.
func EnsureSettings() error {
	path := SettingsPath()
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	defaults := map[string]any{
		"NOTEKEEPER_DB_DRIVER":      DriverSQLite,
		"NOTEKEEPER_UTC_OFFSET":     DefaultUTCOffset,
		"NOTEKEEPER_LOCALES":        strings.Join(DefaultLocales, ","),
		"NOTEKEEPER_SCAN_INTERVAL":  DefaultScanInterval.String(),
		"NOTEKEEPER_WORKER_PORT":    DefaultWorkerPort,
		"NOTEKEEPER_DIALOG_BACKEND": BackendMemory,
		"NOTEKEEPER_LOG_LEVEL":      "info",
	}
	data, err := json.MarshalIndent(defaults, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal default settings: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

// EnsureAll creates the data directory and the settings file.
func EnsureAll() error {
	if err := EnsureDataDir(); err != nil {
		return err
	}
	return EnsureSettings()
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		DBDriver:      DriverSQLite,
		DBPath:        DBPath(),
		MaxConns:      DefaultMaxConns,
		UTCOffset:     DefaultUTCOffset,
		Locales:       append([]string(nil), DefaultLocales...),
		ScanInterval:  DefaultScanInterval,
		WorkerPort:    DefaultWorkerPort,
		DialogBackend: BackendMemory,
		RedisAddr:     "localhost:6379",
		SendRate:      DefaultSendRate,
		MessagesFile:  MessagesPath(),
		LogLevel:      "info",
		LogFormat:     "console",
	}
}

// Load reads the settings file and applies environment overrides.
// A missing or unreadable settings file yields the defaults.
func Load() (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(SettingsPath())
	if err == nil {
		var settings map[string]any
		if json.Unmarshal(data, &settings) == nil {
			cfg.apply(func(key string) (string, bool) {
				v, ok := settings[key]
				if !ok || v == nil {
					return "", false
				}
				return stringify(v), true
			})
		}
	}

	cfg.apply(os.LookupEnv)

	if cfg.TelegramToken == "" {
		cfg.TelegramToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	}
	if cfg.DatabaseURL == "" {
		if url := os.Getenv("DATABASE_URL"); url != "" {
			cfg.DatabaseURL = url
			if _, set := os.LookupEnv("NOTEKEEPER_DB_DRIVER"); !set {
				cfg.DBDriver = DriverPostgres
			}
		}
	}

	return cfg, nil
}

// apply overlays every NOTEKEEPER_* key lookup finds.
func (c *Config) apply(lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
				*dst = n
			}
		}
	}

	str("NOTEKEEPER_TELEGRAM_TOKEN", &c.TelegramToken)
	str("NOTEKEEPER_DB_DRIVER", &c.DBDriver)
	str("NOTEKEEPER_DB_PATH", &c.DBPath)
	str("NOTEKEEPER_DATABASE_URL", &c.DatabaseURL)
	num("NOTEKEEPER_MAX_CONNS", &c.MaxConns)
	str("NOTEKEEPER_UTC_OFFSET", &c.UTCOffset)
	num("NOTEKEEPER_WORKER_PORT", &c.WorkerPort)
	str("NOTEKEEPER_DIALOG_BACKEND", &c.DialogBackend)
	str("NOTEKEEPER_REDIS_ADDR", &c.RedisAddr)
	num("NOTEKEEPER_SEND_RATE", &c.SendRate)
	str("NOTEKEEPER_MESSAGES_FILE", &c.MessagesFile)
	str("NOTEKEEPER_LOG_LEVEL", &c.LogLevel)
	str("NOTEKEEPER_LOG_FORMAT", &c.LogFormat)

	if v, ok := lookup("NOTEKEEPER_LOCALES"); ok {
		if locales := splitTrim(v); len(locales) > 0 {
			c.Locales = locales
		}
	}
	if v, ok := lookup("NOTEKEEPER_SCAN_INTERVAL"); ok {
		if d, err := parseInterval(v); err == nil && d > 0 {
			c.ScanInterval = d
		}
	}
	if v, ok := lookup("NOTEKEEPER_TELEGRAM_DEBUG"); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			c.TelegramDebug = b
		}
	}
}

// Validate reports configuration that cannot start the bot.
func (c *Config) Validate() error {
	if c.TelegramToken == "" {
		return ErrMissingToken
	}
	return c.ValidateStorage()
}

// ValidateStorage checks the settings needed to open the database and
// interpret user times. It is enough for the migrate and scan commands.
func (c *Config) ValidateStorage() error {
	switch c.DBDriver {
	case DriverSQLite:
		if c.DBPath == "" {
			return fmt.Errorf("db path is empty")
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("driver %q requires a database url", c.DBDriver)
		}
	default:
		return fmt.Errorf("unknown db driver %q", c.DBDriver)
	}
	switch c.DialogBackend {
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("unknown dialog backend %q", c.DialogBackend)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location returns the fixed zone for NOTEKEEPER_UTC_OFFSET.
func (c *Config) Location() (*time.Location, error) {
	loc, err := timeparse.ParseOffset(c.UTCOffset)
	if err != nil {
		return nil, fmt.Errorf("utc offset %q: %w", c.UTCOffset, err)
	}
	return loc, nil
}

// Get returns the global configuration, loading it on first call.
func Get() *Config {
	configOnce.Do(func() {
		var err error
		globalConfig, err = Load()
		if err != nil {
			globalConfig = Default()
		}
	})
	return globalConfig
}

// GetWorkerPort returns the admin port, honouring NOTEKEEPER_WORKER_PORT.
func GetWorkerPort() int {
	if port := os.Getenv("NOTEKEEPER_WORKER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil && p > 0 {
			return p
		}
	}
	return Get().WorkerPort
}

// parseInterval accepts Go durations ("90s") and bare seconds ("90").
func parseInterval(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(v)
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			parts = append(parts, stringify(e))
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(t)
	}
}

// splitTrim splits a comma-separated string and trims whitespace.
func splitTrim(s string) []string {
	result := []string{}
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			result = append(result, p)
		}
	}
	return result
}
