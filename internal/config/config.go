package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		// dev | staging | prod
		Env string `yaml:"env"`
	} `yaml:"app"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Log struct {
		Level string `yaml:"level"` // debug | info | warn | error
	} `yaml:"log"`

	Catalog struct {
		// Driver: "postgres" | "memory" (memory sólo para dev/testing)
		Driver string `yaml:"driver"`
		DSN    string `yaml:"dsn"`
		Postgres struct {
			MaxConns        int    `yaml:"max_conns"`
			MinConns        int    `yaml:"min_conns"`
			ConnMaxLifetime string `yaml:"conn_max_lifetime"`
		} `yaml:"postgres"`
	} `yaml:"catalog"`

	Blobstore struct {
		// Driver: "fs" | "memory"
		Driver string `yaml:"driver"`
		Root   string `yaml:"root"`
	} `yaml:"blobstore"`

	Events struct {
		// Driver: "redis" | "memory"
		Driver string `yaml:"driver"`
		Group  string `yaml:"group"`
		// Workers por topic consumido.
		Workers int `yaml:"workers"`
		Redis   struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
			MaxLen   int64  `yaml:"max_len"`
		} `yaml:"redis"`
	} `yaml:"events"`

	Cache struct {
		// Driver: "memory" | "redis"
		Driver     string        `yaml:"driver"`
		Addr       string        `yaml:"addr"`
		Password   string        `yaml:"password"`
		DB         int           `yaml:"db"`
		Prefix     string        `yaml:"prefix"`
		DefaultTTL time.Duration `yaml:"default_ttl"`
	} `yaml:"cache"`

	Alerts struct {
		// Vacío deshabilita las alertas por mail.
		To   string `yaml:"to"`
		SMTP struct {
			Host               string `yaml:"host"`
			Port               int    `yaml:"port"`
			Username           string `yaml:"username"`
			Password           string `yaml:"password"`
			From               string `yaml:"from"`
			TLS                string `yaml:"tls"` // auto | ssl | none
			InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
		} `yaml:"smtp"`
	} `yaml:"alerts"`

	Flags struct {
		Migrate bool `yaml:"migrate"`
	} `yaml:"flags"`
}

func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, err
		}
	}

	c.applyEnvOverrides()

	// sane defaults
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Catalog.Driver == "" {
		c.Catalog.Driver = "postgres"
	}
	if c.Blobstore.Driver == "" {
		c.Blobstore.Driver = "fs"
	}
	if c.Blobstore.Root == "" {
		c.Blobstore.Root = "./data/blobs"
	}
	if c.Events.Driver == "" {
		c.Events.Driver = "redis"
	}
	if c.Events.Group == "" {
		c.Events.Group = "datavault"
	}
	if c.Events.Workers == 0 {
		c.Events.Workers = 2
	}
	if c.Cache.Driver == "" {
		c.Cache.Driver = "memory"
	}
	if c.Cache.DefaultTTL == 0 {
		c.Cache.DefaultTTL = 5 * time.Minute
	}

	return &c, nil
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}

func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}

// applyEnvOverrides: pisa config.yaml con variables de entorno.
func (c *Config) applyEnvOverrides() {
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = v
	}

	if v, ok := getEnvStr("CATALOG_DRIVER"); ok {
		c.Catalog.Driver = v
	}
	if v, ok := getEnvStr("CATALOG_DSN"); ok {
		c.Catalog.DSN = v
	}

	if v, ok := getEnvStr("BLOBSTORE_DRIVER"); ok {
		c.Blobstore.Driver = v
	}
	if v, ok := getEnvStr("BLOBSTORE_ROOT"); ok {
		c.Blobstore.Root = v
	}

	if v, ok := getEnvStr("EVENTS_DRIVER"); ok {
		c.Events.Driver = v
	}
	if v, ok := getEnvStr("EVENTS_GROUP"); ok {
		c.Events.Group = v
	}
	if v, ok := getEnvInt("EVENTS_WORKERS"); ok {
		c.Events.Workers = v
	}
	if v, ok := getEnvStr("EVENTS_REDIS_ADDR"); ok {
		c.Events.Redis.Addr = v
	}
	if v, ok := getEnvStr("EVENTS_REDIS_PASSWORD"); ok {
		c.Events.Redis.Password = v
	}
	if v, ok := getEnvInt("EVENTS_REDIS_DB"); ok {
		c.Events.Redis.DB = v
	}

	if v, ok := getEnvStr("CACHE_DRIVER"); ok {
		c.Cache.Driver = v
	}
	if v, ok := getEnvStr("CACHE_ADDR"); ok {
		c.Cache.Addr = v
	}

	if v, ok := getEnvStr("ALERTS_TO"); ok {
		c.Alerts.To = v
	}
	if v, ok := getEnvStr("ALERTS_SMTP_HOST"); ok {
		c.Alerts.SMTP.Host = v
	}
	if v, ok := getEnvInt("ALERTS_SMTP_PORT"); ok {
		c.Alerts.SMTP.Port = v
	}

	if v, ok := getEnvBool("MIGRATE"); ok {
		c.Flags.Migrate = v
	}
}
