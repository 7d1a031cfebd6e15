// Package config handles the XDG configuration directory, environment
// settings and file paths.
package config

import (
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// AppName is the application directory name.
	AppName = "taskctl"

	// EnvFile is the optional dotenv file inside the config directory.
	EnvFile = ".env"

	// SessionDBFile is the sqlite session database filename.
	SessionDBFile = "session.db"

	// EnvPrefix prefixes every environment variable read by this package.
	EnvPrefix = "TASKCTL_"
)

// Defaults.
const (
	DefaultAPIURL   = "http://localhost:8000"
	DefaultTimeout  = 5 * time.Second
	DefaultStore    = StoreFile
	DefaultPageSize = 100
)

// Session store backends.
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// RedisConfig locates the redis session backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string

	// Debug enables debug logging.
	Debug bool

	// Quiet suppresses informational output.
	Quiet bool

	// APIURL is the base URL of the remote task API.
	APIURL string

	// Timeout bounds each HTTP request.
	Timeout time.Duration

	// Store selects the session backend.
	Store string

	Redis RedisConfig

	// RateLimit is the client-side request rate in requests per second. 0 disables it.
	RateLimit float64
	RateBurst int

	// PageSize is the number of tasks fetched per list page.
	PageSize int
}

// New creates a new Config with the default or specified config directory,
// then applies <dir>/.env and TASKCTL_* environment variables.
// If configDir is empty, uses XDG_CONFIG_HOME/taskctl or $HOME/.config/taskctl.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	cfg := &Config{
		Dir:       dir,
		APIURL:    DefaultAPIURL,
		Timeout:   DefaultTimeout,
		Store:     DefaultStore,
		Redis:     RedisConfig{Addr: "localhost:6379"},
		RateBurst: 1,
		PageSize:  DefaultPageSize,
	}

	dotenv, err := readDotenv(cfg.EnvPath())
	if err != nil {
		return nil, &Error{Field: "env_file", Message: err.Error()}
	}
	if err := cfg.load(lookup(dotenv)); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

func readDotenv(path string) (map[string]string, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, nil
	}
	return godotenv.Read(path)
}

// lookup prefers the real environment over dotenv values.
func lookup(dotenv map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
}

func (c *Config) load(get func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := get(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	integer := func(name string, dst *int) error {
		v, ok := get(EnvPrefix + name)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return &Error{Field: strings.ToLower(name), Message: "must be an integer"}
		}
		*dst = n
		return nil
	}

	str("API_URL", &c.APIURL)
	str("STORE", &c.Store)
	str("REDIS_ADDR", &c.Redis.Addr)
	str("REDIS_PASSWORD", &c.Redis.Password)

	if v, ok := get(EnvPrefix + "TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return &Error{Field: "timeout", Message: "must be a duration such as 5s"}
		}
		c.Timeout = d
	}
	if v, ok := get(EnvPrefix + "RATE_LIMIT"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return &Error{Field: "rate_limit", Message: "must be a number"}
		}
		c.RateLimit = f
	}
	for name, dst := range map[string]*int{
		"REDIS_DB":   &c.Redis.DB,
		"RATE_BURST": &c.RateBurst,
		"PAGE_SIZE":  &c.PageSize,
	} {
		if err := integer(name, dst); err != nil {
			return err
		}
	}
	if v, ok := get(EnvPrefix + "DEBUG"); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Debug = b
		}
	}

	c.APIURL = strings.TrimRight(c.APIURL, "/")
	return nil
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if c.Dir == "" {
		return &Error{Field: "dir", Message: "config directory cannot be empty"}
	}
	u, err := url.Parse(c.APIURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return &Error{Field: "api_url", Message: "must be an absolute http(s) URL"}
	}
	if c.Timeout <= 0 {
		return &Error{Field: "timeout", Message: "timeout must be positive"}
	}
	switch c.Store {
	case StoreFile, StoreSQLite, StoreRedis, StoreMemory:
	default:
		return &Error{Field: "store", Message: "must be one of file, sqlite, redis, memory"}
	}
	if c.Store == StoreRedis && c.Redis.Addr == "" {
		return &Error{Field: "redis_addr", Message: "redis address cannot be empty"}
	}
	if c.RateLimit < 0 {
		return &Error{Field: "rate_limit", Message: "rate limit cannot be negative"}
	}
	if c.RateLimit > 0 && c.RateBurst < 1 {
		return &Error{Field: "rate_burst", Message: "burst must be at least 1"}
	}
	if c.PageSize < 1 {
		return &Error{Field: "page_size", Message: "page size must be at least 1"}
	}
	return nil
}

// Error reports an invalid configuration value.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return "config " + e.Field + ": " + e.Message
}

// EnvPath returns the path to the optional dotenv file.
func (c *Config) EnvPath() string {
	return filepath.Join(c.Dir, EnvFile)
}

// SessionDir returns the directory used by the file session backend.
func (c *Config) SessionDir() string {
	return filepath.Join(c.Dir, "session")
}

// SessionDBPath returns the path to the sqlite session database.
func (c *Config) SessionDBPath() string {
	return filepath.Join(c.Dir, SessionDBFile)
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}
