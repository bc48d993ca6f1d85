package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Server  ServerConfig
	Store   StoreConfig
	Log     LogConfig
	Metrics MetricsConfig
}

type ServerConfig struct {
	Addr         string
	Root         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type StoreConfig struct {
	Backend    string
	Path       string
	BadgerPath string
	RedisAddr  string
}

type LogConfig struct {
	Level  string
	Format string
	File   string
}

type MetricsConfig struct {
	Addr string
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":3001")
	v.SetDefault("server.root", ".")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)

	v.SetDefault("store.backend", "json")
	v.SetDefault("store.path", "storage/data.json")
	v.SetDefault("store.badger_path", "storage/badger")
	v.SetDefault("store.redis_addr", "localhost:6379")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "")

	v.SetDefault("metrics.addr", "")
}

// New returns a viper instance reading GUESTBOOK_* environment variables
// (a .env file in the working directory is loaded first, if present).
func New() *viper.Viper {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("GUESTBOOK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// Load builds a Config from v and validates it.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Addr:         v.GetString("server.addr"),
			Root:         v.GetString("server.root"),
			ReadTimeout:  v.GetDuration("server.read_timeout"),
			WriteTimeout: v.GetDuration("server.write_timeout"),
		},
		Store: StoreConfig{
			Backend:    strings.ToLower(v.GetString("store.backend")),
			Path:       v.GetString("store.path"),
			BadgerPath: v.GetString("store.badger_path"),
			RedisAddr:  v.GetString("store.redis_addr"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			File:   v.GetString("log.file"),
		},
		Metrics: MetricsConfig{
			Addr: v.GetString("metrics.addr"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Server.Root == "" {
		return fmt.Errorf("server.root is required")
	}

	switch c.Store.Backend {
	case "json":
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for the json backend")
		}
	case "badger":
		if c.Store.BadgerPath == "" {
			return fmt.Errorf("store.badger_path is required for the badger backend")
		}
	case "redis":
		if c.Store.RedisAddr == "" {
			return fmt.Errorf("store.redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown store.backend %q (want json, badger or redis)", c.Store.Backend)
	}

	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("unknown log.format %q (want console or json)", c.Log.Format)
	}
	return nil
}
