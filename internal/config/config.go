package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"timing-notion-sync/internal/idle"
)

const (
	StoreNotion = "notion"
	StoreMySQL  = "mysql"
	StoreMemory = "memory"
)

// Config holds the sync agent configuration. Values come from an optional
// YAML file, then .env, then the process environment (highest priority).
type Config struct {
	Timing struct {
		APIToken string `yaml:"api_token" env:"TIMING_API_TOKEN" validate:"required"`
		BaseURL  string `yaml:"base_url" env:"TIMING_BASE_URL"` // default: https://web.timingapp.com/api/v1
	} `yaml:"timing"`
	Notion struct {
		APIToken   string `yaml:"api_token" env:"NOTION_API_TOKEN" validate:"required"`
		DatabaseID string `yaml:"database_id" env:"NOTION_DATABASE_ID" validate:"required"`
		BaseURL    string `yaml:"base_url" env:"NOTION_BASE_URL"`
		Version    string `yaml:"version" env:"NOTION_VERSION"`
	} `yaml:"notion"`
	MySQL struct {
		DSN string `yaml:"dsn" env:"MYSQL_DSN" validate:"required"` // e.g., user:pass@tcp(host:3306)/db?parseTime=true&multiStatements=true
	} `yaml:"mysql"`
	Sync struct {
		Store           string        `yaml:"store" env:"SYNC_STORE" validate:"oneof=notion mysql memory"`
		UTCOffset       string        `yaml:"utc_offset" env:"SYNC_UTC_OFFSET" validate:"utcoffset"` // e.g., -07:00
		LogDir          string        `yaml:"log_dir" env:"SYNC_LOG_DIR"`
		MaxErrorEntries int           `yaml:"max_error_entries" env:"SYNC_MAX_ERROR_ENTRIES" validate:"min=1"`
		IdleThreshold   time.Duration `yaml:"idle_threshold" env:"SYNC_IDLE_THRESHOLD"`
		DesktopDir      string        `yaml:"desktop_dir" env:"SYNC_DESKTOP_DIR"`
	} `yaml:"sync"`
}

// Default returns the configuration used before any source is applied.
func Default() Config {
	var cfg Config
	cfg.Sync.Store = StoreNotion
	cfg.Sync.UTCOffset = "-07:00"
	cfg.Sync.LogDir = "logs"
	cfg.Sync.MaxErrorEntries = 50
	cfg.Sync.IdleThreshold = idle.DefaultThreshold
	if home, err := os.UserHomeDir(); err == nil {
		cfg.Sync.DesktopDir = filepath.Join(home, "Desktop")
	}
	return cfg
}

// Load builds the configuration from path (or TIMING_SYNC_CONFIG when path
// is empty), a .env file in the working directory, and the environment.
// It does not validate; callers apply flag overrides first and then call
// Validate.
func Load(path string) (Config, error) {
	cfg := Default()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}
	if path == "" {
		path = os.Getenv("TIMING_SYNC_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}
	return cfg, applyEnv(&cfg)
}

func applyEnv(cfg *Config) error {
	setStr := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setStr(&cfg.Timing.APIToken, "TIMING_API_TOKEN")
	setStr(&cfg.Timing.BaseURL, "TIMING_BASE_URL")
	setStr(&cfg.Notion.APIToken, "NOTION_API_TOKEN")
	setStr(&cfg.Notion.DatabaseID, "NOTION_DATABASE_ID")
	setStr(&cfg.Notion.BaseURL, "NOTION_BASE_URL")
	setStr(&cfg.Notion.Version, "NOTION_VERSION")
	setStr(&cfg.MySQL.DSN, "MYSQL_DSN")
	setStr(&cfg.Sync.Store, "SYNC_STORE")
	setStr(&cfg.Sync.UTCOffset, "SYNC_UTC_OFFSET")
	setStr(&cfg.Sync.LogDir, "SYNC_LOG_DIR")
	setStr(&cfg.Sync.DesktopDir, "SYNC_DESKTOP_DIR")

	if v := os.Getenv("SYNC_MAX_ERROR_ENTRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.New("SYNC_MAX_ERROR_ENTRIES must be an integer")
		}
		cfg.Sync.MaxErrorEntries = n
	}
	if v := os.Getenv("SYNC_IDLE_THRESHOLD"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return errors.New("SYNC_IDLE_THRESHOLD must be a duration like 300s or a number of seconds")
		}
		cfg.Sync.IdleThreshold = d
	}
	return nil
}

func parseSeconds(v string) (time.Duration, error) {
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(v)
}

// ValidationError lists every configuration value that is missing or invalid,
// by environment variable name.
type ValidationError struct {
	Missing []string
	Invalid []string
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required configuration: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid configuration: "+strings.Join(e.Invalid, ", "))
	}
	return strings.Join(parts, "; ")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("env"); name != "" {
			return name
		}
		return f.Name
	})
	_ = v.RegisterValidation("utcoffset", func(fl validator.FieldLevel) bool {
		_, err := ParseOffset(fl.Field().String())
		return err == nil
	})
	return v
}

// Validate checks the Timing token, the fields the selected store needs and
// the sync settings.
func (c Config) Validate() error {
	verr := &ValidationError{}
	collect := func(s any) {
		err := validate.Struct(s)
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return
		}
		for _, fe := range fieldErrs {
			if fe.Tag() == "required" {
				verr.Missing = append(verr.Missing, fe.Field())
			} else {
				verr.Invalid = append(verr.Invalid, fe.Field())
			}
		}
	}

	collect(c.Timing)
	switch c.Sync.Store {
	case StoreNotion:
		collect(c.Notion)
	case StoreMySQL:
		collect(c.MySQL)
	}
	collect(c.Sync)

	if len(verr.Missing) == 0 && len(verr.Invalid) == 0 {
		return nil
	}
	return verr
}

// Location returns the fixed-offset zone used for API date ranges and the
// Last Sync timestamp.
func (c Config) Location() (*time.Location, error) {
	return ParseOffset(c.Sync.UTCOffset)
}

// ParseOffset turns "+HH:MM" or "-HH:MM" into a fixed zone.
func ParseOffset(s string) (*time.Location, error) {
	if len(s) != 6 || (s[0] != '+' && s[0] != '-') || s[3] != ':' || !isDigits(s[1:3]) || !isDigits(s[4:6]) {
		return nil, fmt.Errorf("invalid UTC offset %q, expected ±HH:MM", s)
	}
	h, err1 := strconv.Atoi(s[1:3])
	m, err2 := strconv.Atoi(s[4:6])
	if err1 != nil || err2 != nil || h > 14 || m > 59 {
		return nil, fmt.Errorf("invalid UTC offset %q, expected ±HH:MM", s)
	}
	secs := h*3600 + m*60
	if s[0] == '-' {
		secs = -secs
	}
	return time.FixedZone("UTC"+s, secs), nil
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Setting is a redacted view of one required value.
type Setting struct {
	Name string
	Set  bool
}

// Presence reports which required values are set, without their contents.
func (c Config) Presence() []Setting {
	out := []Setting{
		{Name: "TIMING_API_TOKEN", Set: c.Timing.APIToken != ""},
		{Name: "NOTION_API_TOKEN", Set: c.Notion.APIToken != ""},
		{Name: "NOTION_DATABASE_ID", Set: c.Notion.DatabaseID != ""},
	}
	if c.Sync.Store == StoreMySQL {
		out = append(out, Setting{Name: "MYSQL_DSN", Set: c.MySQL.DSN != ""})
	}
	return out
}
