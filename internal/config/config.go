// Package config carga la configuración del servicio desde YAML con
// overrides por variables de entorno (prefijo TENAUTH_).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Bloque app (opcional en YAML). Si no está, queda en dev.
	App struct {
		// dev | staging | prod
		Env string `yaml:"env"`
	} `yaml:"app"`

	Log struct {
		Level string `yaml:"level"` // debug | info | warn | error
	} `yaml:"log"`

	Storage struct {
		Driver string `yaml:"driver"` // json | memory
		Root   string `yaml:"root"`   // raíz de las particiones por tenant
	} `yaml:"storage"`

	Cache struct {
		Driver     string `yaml:"driver"` // memory | redis
		DefaultTTL string `yaml:"default_ttl"`
		Redis      struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`

	Token struct {
		AccessSecret  string `yaml:"access_secret"`
		RefreshSecret string `yaml:"refresh_secret"`
		AccessTTL     string `yaml:"access_ttl"`
		RefreshTTL    string `yaml:"refresh_ttl"`
		RenewalWindow string `yaml:"renewal_window"`
	} `yaml:"token"`

	Hash struct {
		// argon2id | plain (plain es solo para tests y dry-run)
		Algorithm string `yaml:"algorithm"`
	} `yaml:"hash"`

	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
}

// Load lee el YAML en path (opcional: path vacío usa solo defaults y
// env), aplica defaults y overrides de entorno, y valida.
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

	// sane defaults
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "json"
	}
	if c.Storage.Root == "" {
		c.Storage.Root = "./data/tenauth"
	}
	if c.Cache.Driver == "" {
		c.Cache.Driver = "memory"
	}
	if c.Cache.DefaultTTL == "" {
		c.Cache.DefaultTTL = "5m"
	}
	if c.Token.AccessTTL == "" {
		c.Token.AccessTTL = "24h"
	}
	if c.Token.RefreshTTL == "" {
		c.Token.RefreshTTL = "168h" // 7d
	}
	if c.Token.RenewalWindow == "" {
		c.Token.RenewalWindow = "24h"
	}
	if c.Hash.Algorithm == "" {
		c.Hash.Algorithm = "argon2id"
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9090"
	}

	c.applyEnvOverrides()

	// Normalizar la raíz de storage (si relativa) respecto al dir del YAML.
	if path != "" && !filepath.IsAbs(c.Storage.Root) {
		c.Storage.Root = filepath.Clean(filepath.Join(filepath.Dir(path), c.Storage.Root))
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate verifica duraciones y enumeraciones.
func (c *Config) Validate() error {
	for name, s := range map[string]string{
		"cache.default_ttl":    c.Cache.DefaultTTL,
		"token.access_ttl":     c.Token.AccessTTL,
		"token.refresh_ttl":    c.Token.RefreshTTL,
		"token.renewal_window": c.Token.RenewalWindow,
	} {
		if _, err := time.ParseDuration(s); err != nil {
			return fmt.Errorf("config: %s: %w", name, err)
		}
	}
	switch c.Storage.Driver {
	case "json", "memory":
	default:
		return fmt.Errorf("config: unknown storage.driver %q", c.Storage.Driver)
	}
	switch c.Cache.Driver {
	case "memory", "redis":
	default:
		return fmt.Errorf("config: unknown cache.driver %q", c.Cache.Driver)
	}
	switch c.Hash.Algorithm {
	case "argon2id", "plain":
	default:
		return fmt.Errorf("config: unknown hash.algorithm %q", c.Hash.Algorithm)
	}
	// Guardia dura: en prod los secretos no pueden quedar vacíos.
	if strings.EqualFold(c.App.Env, "prod") {
		if c.Token.AccessSecret == "" || c.Token.RefreshSecret == "" {
			return fmt.Errorf("config: token secrets are required in prod")
		}
		if c.Hash.Algorithm == "plain" {
			return fmt.Errorf("config: hash.algorithm plain is not allowed in prod")
		}
	}
	return nil
}

// AccessTTL retorna la duración ya validada.
func (c *Config) AccessTTL() time.Duration { return mustDur(c.Token.AccessTTL) }

// RefreshTTL retorna la duración ya validada.
func (c *Config) RefreshTTL() time.Duration { return mustDur(c.Token.RefreshTTL) }

// RenewalWindow retorna la duración ya validada.
func (c *Config) RenewalWindow() time.Duration { return mustDur(c.Token.RenewalWindow) }

// CacheDefaultTTL retorna la duración ya validada.
func (c *Config) CacheDefaultTTL() time.Duration { return mustDur(c.Cache.DefaultTTL) }

func mustDur(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
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

// applyEnvOverrides pisa el YAML con variables de entorno TENAUTH_*.
func (c *Config) applyEnvOverrides() {
	if v, ok := getEnvStr("TENAUTH_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("TENAUTH_LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	if v, ok := getEnvStr("TENAUTH_STORAGE_DRIVER"); ok {
		c.Storage.Driver = v
	}
	if v, ok := getEnvStr("TENAUTH_STORAGE_ROOT"); ok {
		c.Storage.Root = v
	}
	if v, ok := getEnvStr("TENAUTH_CACHE_DRIVER"); ok {
		c.Cache.Driver = v
	}
	if v, ok := getEnvStr("TENAUTH_CACHE_DEFAULT_TTL"); ok {
		c.Cache.DefaultTTL = v
	}
	if v, ok := getEnvStr("TENAUTH_REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvStr("TENAUTH_REDIS_PASSWORD"); ok {
		c.Cache.Redis.Password = v
	}
	if v, ok := getEnvInt("TENAUTH_REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}
	if v, ok := getEnvStr("TENAUTH_REDIS_PREFIX"); ok {
		c.Cache.Redis.Prefix = v
	}
	if v, ok := getEnvStr("TENAUTH_ACCESS_SECRET"); ok {
		c.Token.AccessSecret = v
	}
	if v, ok := getEnvStr("TENAUTH_REFRESH_SECRET"); ok {
		c.Token.RefreshSecret = v
	}
	if v, ok := getEnvStr("TENAUTH_ACCESS_TTL"); ok {
		c.Token.AccessTTL = v
	}
	if v, ok := getEnvStr("TENAUTH_REFRESH_TTL"); ok {
		c.Token.RefreshTTL = v
	}
	if v, ok := getEnvStr("TENAUTH_RENEWAL_WINDOW"); ok {
		c.Token.RenewalWindow = v
	}
	if v, ok := getEnvStr("TENAUTH_HASH_ALGORITHM"); ok {
		c.Hash.Algorithm = v
	}
	if v, ok := getEnvStr("TENAUTH_METRICS_ADDR"); ok {
		c.Metrics.Addr = v
	}
}
