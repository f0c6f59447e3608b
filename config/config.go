/*
Package config loads server settings.

SOURCES (later wins):
  1. built-in defaults
  2. YAML file (default config/config.yaml; a missing file is not an error)
  3. .env file, loaded into the process environment without overriding
     variables that are already set
  4. ATTENDANCE_* environment variables
  5. command-line flags, applied by cmd/server
*/
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/warp/attendance-engine/report"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPath    = "config/config.yaml"
	DefaultEnvFile = ".env"
	EnvPrefix      = "ATTENDANCE_"

	// insecureSecret is rejected outside development.
	insecureSecret = "change-me"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Reports   ReportsConfig   `yaml:"reports"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	CORS      CORSConfig      `yaml:"cors"`
}

type ServerConfig struct {
	Port int  `yaml:"port"`
	Dev  bool `yaml:"dev"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type AuthConfig struct {
	JWTSecret     string        `yaml:"jwt_secret"`
	TokenTTL      time.Duration `yaml:"token_ttl"`
	AdminUsername string        `yaml:"admin_username"`
	AdminPassword string        `yaml:"admin_password"`
}

type ReportsConfig struct {
	WorkingDays report.WorkingDayPolicy `yaml:"working_days"`
}

type SchedulerConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Default returns the settings used when nothing else is configured.
func Default() *Config {
	return &Config{
		Server:   ServerConfig{Port: 8080, Dev: true},
		Database: DatabaseConfig{Path: "attendance.db"},
		Auth: AuthConfig{
			JWTSecret:     insecureSecret,
			TokenTTL:      24 * time.Hour,
			AdminUsername: "admin",
			AdminPassword: "admin",
		},
		Reports:   ReportsConfig{WorkingDays: report.ExcludeSundays},
		Scheduler: SchedulerConfig{Enabled: true, Interval: time.Hour},
		CORS:      CORSConfig{AllowedOrigins: []string{"*"}},
	}
}

// Load reads the YAML file at path and the .env file at envFile, then
// applies ATTENDANCE_* overrides and validates the result.
func Load(path, envFile string) (*Config, error) {
	cfg := Default()

	buf, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(buf, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from ATTENDANCE_* variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	get := func(name string) (string, bool) {
		v, ok := lookup(EnvPrefix + name)
		return strings.TrimSpace(v), ok && strings.TrimSpace(v) != ""
	}

	if v, ok := get("PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sPORT: %w", EnvPrefix, err)
		}
		c.Server.Port = port
	}
	if v, ok := get("DEV"); ok {
		dev, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sDEV: %w", EnvPrefix, err)
		}
		c.Server.Dev = dev
	}
	if v, ok := get("DB_PATH"); ok {
		c.Database.Path = v
	}
	if v, ok := get("JWT_SECRET"); ok {
		c.Auth.JWTSecret = v
	}
	if v, ok := get("TOKEN_TTL"); ok {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sTOKEN_TTL: %w", EnvPrefix, err)
		}
		c.Auth.TokenTTL = ttl
	}
	if v, ok := get("ADMIN_USERNAME"); ok {
		c.Auth.AdminUsername = v
	}
	if v, ok := get("ADMIN_PASSWORD"); ok {
		c.Auth.AdminPassword = v
	}
	if v, ok := get("WORKING_DAYS"); ok {
		c.Reports.WorkingDays = report.WorkingDayPolicy(v)
	}
	if v, ok := get("SCHEDULER_ENABLED"); ok {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sSCHEDULER_ENABLED: %w", EnvPrefix, err)
		}
		c.Scheduler.Enabled = enabled
	}
	if v, ok := get("SCHEDULER_INTERVAL"); ok {
		interval, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sSCHEDULER_INTERVAL: %w", EnvPrefix, err)
		}
		c.Scheduler.Interval = interval
	}
	if v, ok := get("CORS_ORIGINS"); ok {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.CORS.AllowedOrigins = origins
	}
	return nil
}

// Validate checks the settings are usable.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required"))
	} else if c.Auth.JWTSecret == insecureSecret && !c.Server.Dev {
		errs = append(errs, errors.New("auth.jwt_secret must be changed outside dev mode"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("auth.token_ttl must be positive"))
	}
	if err := c.Reports.WorkingDays.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("reports.working_days: %w", err))
	}
	if c.Scheduler.Enabled && c.Scheduler.Interval <= 0 {
		errs = append(errs, errors.New("scheduler.interval must be positive"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string { return fmt.Sprintf(":%d", c.Server.Port) }
