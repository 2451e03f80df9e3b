package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment overrides, e.g. DEFACTO_SERVER_PORT.
const EnvPrefix = "DEFACTO"

var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
	Env     string        `yaml:"env" mapstructure:"env"`
}

// ServerConfig configures the listener and per-connection limits.
type ServerConfig struct {
	Port         int           `yaml:"port" mapstructure:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`

	// request line plus headers
	MaxHeaderBytes int64 `yaml:"max_header_bytes" mapstructure:"max_header_bytes"`

	// 0 means no cap
	MaxConnections int  `yaml:"max_connections" mapstructure:"max_connections"`
	Compress       bool `yaml:"compress" mapstructure:"compress"`

	// per-route request metrics served by /stats
	Metrics bool `yaml:"metrics" mapstructure:"metrics"`
}

// LoggingConfig configures the process logger. File rotation settings only
// apply when File is set.
type LoggingConfig struct {
	Level      string `yaml:"level" mapstructure:"level"`
	Format     string `yaml:"format" mapstructure:"format"`
	File       string `yaml:"file" mapstructure:"file"`
	MaxSize    int    `yaml:"max_size" mapstructure:"max_size"` // megabytes
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"`
	MaxAge     int    `yaml:"max_age" mapstructure:"max_age"` // days
	Compress   bool   `yaml:"compress" mapstructure:"compress"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           8080,
			ReadTimeout:    10 * time.Second,
			WriteTimeout:   10 * time.Second,
			IdleTimeout:    60 * time.Second,
			MaxBodyBytes:   1 << 20,
			MaxHeaderBytes: 1 << 20,
			MaxConnections: 0,
			Compress:       false,
			Metrics:        true,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "human",
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		},
		Env: "development",
	}
}

// NewViper returns a viper instance carrying every default and reading
// DEFACTO_* environment variables.
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// SetDefaults registers the values of Default under their viper keys.
func SetDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.idle_timeout", d.Server.IdleTimeout)
	v.SetDefault("server.max_body_bytes", d.Server.MaxBodyBytes)
	v.SetDefault("server.max_header_bytes", d.Server.MaxHeaderBytes)
	v.SetDefault("server.max_connections", d.Server.MaxConnections)
	v.SetDefault("server.compress", d.Server.Compress)
	v.SetDefault("server.metrics", d.Server.Metrics)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("logging.max_size", d.Logging.MaxSize)
	v.SetDefault("logging.max_backups", d.Logging.MaxBackups)
	v.SetDefault("logging.max_age", d.Logging.MaxAge)
	v.SetDefault("logging.compress", d.Logging.Compress)

	v.SetDefault("env", d.Env)
}

// Load reads path (when not empty) into v and returns the validated result.
// Values are resolved in viper's order: bound flags, environment, file,
// defaults.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var (
	logLevels  = []string{"trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled"}
	logFormats = []string{"human", "json"}
)

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch {
	case c.Server.Port < 0 || c.Server.Port > 65535:
		return invalid("server.port", "%d is outside 0..65535", c.Server.Port)
	case c.Server.ReadTimeout < 0:
		return invalid("server.read_timeout", "must not be negative")
	case c.Server.WriteTimeout < 0:
		return invalid("server.write_timeout", "must not be negative")
	case c.Server.IdleTimeout < 0:
		return invalid("server.idle_timeout", "must not be negative")
	case c.Server.MaxBodyBytes < 0:
		return invalid("server.max_body_bytes", "must not be negative")
	case c.Server.MaxHeaderBytes < 0:
		return invalid("server.max_header_bytes", "must not be negative")
	case c.Server.MaxConnections < 0:
		return invalid("server.max_connections", "must not be negative")
	case !oneOf(c.Logging.Level, logLevels):
		return invalid("logging.level", "%q is not one of %s", c.Logging.Level, strings.Join(logLevels, ", "))
	case !oneOf(c.Logging.Format, logFormats):
		return invalid("logging.format", "%q is not one of %s", c.Logging.Format, strings.Join(logFormats, ", "))
	}
	return nil
}

// YAML renders the configuration as a YAML document.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

func invalid(field, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidConfig, field, fmt.Sprintf(format, args...))
}

func oneOf(s string, set []string) bool {
	for _, v := range set {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}
