// Package config loads geobase settings from an optional YAML file and the
// environment. Environment variables win over the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/EmpoweredVote/geobase/internal/ranges"
	"github.com/goccy/go-yaml"
	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// PG driver names accepted in Database.PGDriver.
const (
	DriverPGX = "pgx"
	DriverPQ  = "pq"
)

// DefaultSourceURL is the upstream ipgeobase distribution.
const DefaultSourceURL = "https://ipgeobase.ru/files/db/Main/geo_files.zip"

type Config struct {
	Database Database `yaml:"database"`
	Store    Store    `yaml:"store"`
	HTTP     HTTP     `yaml:"http"`
	Refresh  Refresh  `yaml:"refresh"`
	Log      Log      `yaml:"log"`
}

type Database struct {
	// URL selects the engine by scheme: postgres://, sqlite://, mysql://
	URL             string        `yaml:"url"`
	PGDriver        string        `yaml:"pg_driver"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	SlowThreshold   time.Duration `yaml:"slow_threshold"`
}

type Store struct {
	Table  string `yaml:"table"`
	Decode bool   `yaml:"decode"`
}

type HTTP struct {
	Host           string   `yaml:"host"`
	Port           string   `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	RateLimit      float64  `yaml:"rate_limit"`
	RateBurst      int      `yaml:"rate_burst"`
	AdminTokenHash string   `yaml:"admin_token_hash"`
}

type Refresh struct {
	SourceURL string        `yaml:"source_url"`
	Timeout   time.Duration `yaml:"timeout"`
}

type Log struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Database: Database{
			PGDriver:        DriverPGX,
			MaxOpenConns:    20,
			MaxIdleConns:    20,
			ConnMaxLifetime: 30 * time.Minute,
			SlowThreshold:   100 * time.Millisecond,
		},
		Store: Store{
			Table:  "ip_ranges",
			Decode: true,
		},
		HTTP: HTTP{
			Host:      "0.0.0.0",
			Port:      "5050",
			RateLimit: 50,
			RateBurst: 100,
		},
		Refresh: Refresh{
			SourceURL: DefaultSourceURL,
			Timeout:   10 * time.Minute,
		},
		Log: Log{
			Level: "INFO",
		},
	}
}

// LoadEnvFiles reads .env.local into the process environment when present.
func LoadEnvFiles() {
	_ = godotenv.Load(".env.local")
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and environment overrides, then validates it.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config %q: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config %q: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	str("DATABASE_URL", &c.Database.URL)
	str("PG_DRIVER", &c.Database.PGDriver)
	str("GEOBASE_TABLE", &c.Store.Table)
	str("HOST", &c.HTTP.Host)
	str("PORT", &c.HTTP.Port)
	str("ADMIN_TOKEN_HASH", &c.HTTP.AdminTokenHash)
	str("GEOBASE_SOURCE_URL", &c.Refresh.SourceURL)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FILE", &c.Log.File)

	if v := strings.TrimSpace(os.Getenv("GEOBASE_DECODE")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("GEOBASE_DECODE: %w", err)
		}
		c.Store.Decode = b
	}
	if v := strings.TrimSpace(os.Getenv("RATE_LIMIT")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("RATE_LIMIT: %w", err)
		}
		c.HTTP.RateLimit = f
	}
	if v := strings.TrimSpace(os.Getenv("RATE_BURST")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RATE_BURST: %w", err)
		}
		c.HTTP.RateBurst = n
	}
	if v := strings.TrimSpace(os.Getenv("CORS_ORIGINS")); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.HTTP.AllowedOrigins = origins
	}
	return nil
}

var (
	ErrMissingDatabaseURL = errors.New("DATABASE_URL is empty")
	ErrUnknownScheme      = errors.New("unsupported database url scheme")
	ErrUnknownPGDriver    = errors.New("unknown postgres driver")
)

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Database.URL) == "" {
		return ErrMissingDatabaseURL
	}
	kind, err := c.Database.Kind()
	if err != nil {
		return err
	}
	if kind == ranges.KindPostgres {
		switch c.Database.PGDriver {
		case DriverPGX, DriverPQ:
		default:
			return fmt.Errorf("%w: %q", ErrUnknownPGDriver, c.Database.PGDriver)
		}
		if _, err := pgx.ParseConfig(c.Database.PostgresDSN()); err != nil {
			return fmt.Errorf("invalid postgres url: %w", err)
		}
	}
	if strings.TrimSpace(c.Store.Table) == "" {
		return ranges.ErrMissingTable
	}
	if c.HTTP.RateLimit <= 0 || c.HTTP.RateBurst <= 0 {
		return errors.New("rate limit and burst must be positive")
	}
	if c.HTTP.AdminTokenHash != "" {
		if _, err := bcrypt.Cost([]byte(c.HTTP.AdminTokenHash)); err != nil {
			return fmt.Errorf("ADMIN_TOKEN_HASH: %w", err)
		}
	}
	return nil
}

// Kind maps the URL scheme to a range store engine kind.
func (d Database) Kind() (string, error) {
	u := strings.TrimSpace(d.URL)
	switch {
	case strings.HasPrefix(u, "postgres://"), strings.HasPrefix(u, "postgresql://"):
		return ranges.KindPostgres, nil
	case strings.HasPrefix(u, "sqlite://"):
		return ranges.KindSQLite, nil
	case strings.HasPrefix(u, "mysql://"):
		return ranges.KindMySQL, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownScheme, u)
	}
}

// PostgresDSN normalises postgresql:// to postgres://.
func (d Database) PostgresDSN() string {
	u := strings.TrimSpace(d.URL)
	return strings.Replace(u, "postgresql://", "postgres://", 1)
}

// SQLitePath strips the sqlite:// prefix: sqlite:///abs/file.db -> /abs/file.db
func (d Database) SQLitePath() string {
	return strings.TrimPrefix(strings.TrimSpace(d.URL), "sqlite://")
}

// Addr is the HTTP listen address.
func (h HTTP) Addr() string {
	return h.Host + ":" + h.Port
}
