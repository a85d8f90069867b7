// Package config loads the server configuration. Sources are applied in
// order, each overriding the previous one: built in defaults, a TOML file,
// a .env file, the process environment and finally command line flags.
package config

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

type (
	Config struct {
		Bind           string
		Database       string
		StorageRoot    string
		SessionSecret  string
		SessionIdle    time.Duration
		SweepInterval  time.Duration
		SessionBackend string
		MaxUploadSize  int64
		SecureCookie   bool
		LogLevel       string
		// Dev relaxes secret checks and enables pretty logs.
		Dev bool
	}

	fileConfig struct {
		Bind           string `toml:"bind"`
		Database       string `toml:"database"`
		StorageRoot    string `toml:"storage_root"`
		SessionSecret  string `toml:"session_secret"`
		SessionIdle    string `toml:"session_idle"`
		SweepInterval  string `toml:"sweep_interval"`
		SessionBackend string `toml:"session_backend"`
		MaxUploadSize  string `toml:"max_upload_size"`
		SecureCookie   *bool  `toml:"secure_cookie"`
		LogLevel       string `toml:"log_level"`
	}

	envConfig struct {
		Bind           string `env:"FILES_BIND"`
		Database       string `env:"FILES_DATABASE"`
		StorageRoot    string `env:"FILES_STORAGE_ROOT"`
		SessionSecret  string `env:"FILES_SESSION_SECRET"`
		SessionIdle    string `env:"FILES_SESSION_IDLE"`
		SweepInterval  string `env:"FILES_SWEEP_INTERVAL"`
		SessionBackend string `env:"FILES_SESSION_BACKEND"`
		MaxUploadSize  string `env:"FILES_MAX_UPLOAD_SIZE"`
		SecureCookie   string `env:"FILES_SECURE_COOKIE"`
		LogLevel       string `env:"FILES_LOG_LEVEL"`
	}

	// InvalidValue reports a setting that could not be parsed or is out of
	// range.
	InvalidValue struct {
		Key    string
		Reason string
	}
)

const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"

	// DefaultDotEnv is read when present, a missing file is fine.
	DefaultDotEnv = ".env"

	minSecretLen = 32
)

func (i InvalidValue) Error() string {
	return fmt.Sprintf("invalid %v: %v", i.Key, i.Reason)
}

func Defaults() Config {
	return Config{
		Bind:           "localhost:3000",
		Database:       "data/files.db",
		StorageRoot:    "data/uploads",
		SessionIdle:    24 * time.Hour,
		SweepInterval:  2 * time.Minute,
		SessionBackend: BackendSQLite,
		MaxUploadSize:  10 << 20,
		LogLevel:       "info",
	}
}

// Load builds a Config from defaults, the TOML file at path (skipped when
// empty), the dotenv file and the process environment. Variables already
// present in the environment win over the dotenv file.
func Load(path, dotenv string) (Config, error) {
	cfg := Defaults()
	if path != "" {
		buf, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("unable to read config file %v, cause %w", path, err)
		}
		var fc fileConfig
		if err := toml.Unmarshal(buf, &fc); err != nil {
			return cfg, fmt.Errorf("unable to parse config file %v, cause %w", path, err)
		}
		if err := cfg.applyFile(fc); err != nil {
			return cfg, err
		}
	}

	es, err := env.EnvironToEnvSet(os.Environ())
	if err != nil {
		return cfg, fmt.Errorf("unable to read environment, cause %w", err)
	}
	if dotenv != "" {
		values, err := godotenv.Read(dotenv)
		switch {
		case errors.Is(err, os.ErrNotExist) && dotenv == DefaultDotEnv:
		case err != nil:
			return cfg, fmt.Errorf("unable to read %v, cause %w", dotenv, err)
		default:
			for k, v := range values {
				if _, set := es[k]; !set {
					es[k] = v
				}
			}
		}
	}
	var ec envConfig
	if err := env.Unmarshal(es, &ec); err != nil {
		return cfg, fmt.Errorf("unable to parse environment, cause %w", err)
	}
	if err := cfg.applyEnv(ec); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyFile(fc fileConfig) error {
	if fc.SecureCookie != nil {
		c.SecureCookie = *fc.SecureCookie
	}
	return c.applyStrings(fc.Bind, fc.Database, fc.StorageRoot, fc.SessionSecret, fc.SessionIdle,
		fc.SweepInterval, fc.SessionBackend, fc.MaxUploadSize, fc.LogLevel)
}

func (c *Config) applyEnv(ec envConfig) error {
	if ec.SecureCookie != "" {
		v, err := strconv.ParseBool(ec.SecureCookie)
		if err != nil {
			return InvalidValue{Key: "secure_cookie", Reason: err.Error()}
		}
		c.SecureCookie = v
	}
	return c.applyStrings(ec.Bind, ec.Database, ec.StorageRoot, ec.SessionSecret, ec.SessionIdle,
		ec.SweepInterval, ec.SessionBackend, ec.MaxUploadSize, ec.LogLevel)
}

func (c *Config) applyStrings(bind, database, storageRoot, secret, idle, sweep, backend, maxUpload, level string) error {
	setString(&c.Bind, bind)
	setString(&c.Database, database)
	setString(&c.StorageRoot, storageRoot)
	setString(&c.SessionSecret, secret)
	setString(&c.SessionBackend, backend)
	setString(&c.LogLevel, level)
	if err := c.SetDuration("session_idle", &c.SessionIdle, idle); err != nil {
		return err
	}
	if err := c.SetDuration("sweep_interval", &c.SweepInterval, sweep); err != nil {
		return err
	}
	return c.SetSize(maxUpload)
}

// SetDuration parses value into out, empty values are ignored.
func (c *Config) SetDuration(key string, out *time.Duration, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return InvalidValue{Key: key, Reason: err.Error()}
	}
	*out = d
	return nil
}

// SetSize parses a human readable size such as "10 MiB" into
// MaxUploadSize, empty values are ignored.
func (c *Config) SetSize(value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	n, err := humanize.ParseBytes(value)
	if err != nil {
		return InvalidValue{Key: "max_upload_size", Reason: err.Error()}
	}
	if n > 1<<40 {
		return InvalidValue{Key: "max_upload_size", Reason: "larger than 1 TiB"}
	}
	c.MaxUploadSize = int64(n)
	return nil
}

// Validate checks that the configuration can start a server.
func (c Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Bind) == "":
		return InvalidValue{Key: "bind", Reason: "must not be empty"}
	case strings.TrimSpace(c.Database) == "":
		return InvalidValue{Key: "database", Reason: "must not be empty"}
	case strings.TrimSpace(c.StorageRoot) == "":
		return InvalidValue{Key: "storage_root", Reason: "must not be empty"}
	case !c.Dev && len(c.SessionSecret) < minSecretLen:
		return InvalidValue{Key: "session_secret", Reason: fmt.Sprintf("must have at least %v bytes", minSecretLen)}
	case c.SessionIdle <= 0:
		return InvalidValue{Key: "session_idle", Reason: "must be positive"}
	case c.SweepInterval <= 0:
		return InvalidValue{Key: "sweep_interval", Reason: "must be positive"}
	case c.MaxUploadSize <= 0:
		return InvalidValue{Key: "max_upload_size", Reason: "must be positive"}
	case c.SessionBackend != BackendSQLite && c.SessionBackend != BackendMemory:
		return InvalidValue{Key: "session_backend", Reason: fmt.Sprintf("must be %v or %v", BackendSQLite, BackendMemory)}
	}
	return nil
}

// EnsureSecret generates a throwaway secret in dev mode when none was
// configured. Sessions signed with it do not survive a restart.
func (c *Config) EnsureSecret() (generated bool, err error) {
	if !c.Dev || len(c.SessionSecret) >= minSecretLen {
		return false, nil
	}
	var buf [minSecretLen]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return false, fmt.Errorf("unable to generate session secret, cause %w", err)
	}
	c.SessionSecret = base64.RawStdEncoding.EncodeToString(buf[:])
	return true, nil
}

func setString(out *string, value string) {
	if value = strings.TrimSpace(value); value != "" {
		*out = value
	}
}
