// Package config handles loading and parsing application configuration.
// It supports three sources (in priority order):
//  1. An environment variable:  CONFIG_PATH=/path/to/config.yaml
//  2. A command-line flag:      --config=/path/to/config.yaml
//  3. Plain environment variables with sensible defaults (no file at all)
//
// Source 3 matches how the server is deployed in practice: a container
// with DB_* and GEMINI_API_KEY set and nothing else. A .env file in the
// working directory is loaded first, so local runs need no exports.
//
// The parsed values are returned as a *Config pointer so the struct is
// shared by reference rather than copied everywhere.
package config

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config is the root configuration structure.
// Every field maps to a key in the YAML file AND can be overridden
// by the corresponding environment variable (env:"...").
type Config struct {
	// Env controls log format and verbosity.
	// Valid values: "dev", "staging", "prod"
	Env string `yaml:"env" env:"ENV" env-default:"dev"`

	// HTTPServer is embedded (not a pointer) so its fields are accessible
	// directly on Config:  cfg.HTTPServer.Addr  or after promotion cfg.Addr
	HTTPServer `yaml:"http_server"`

	Database  Database  `yaml:"database"`
	Assistant Assistant `yaml:"assistant"`
	Weather   Weather   `yaml:"weather"`
	Janitor   Janitor   `yaml:"janitor"`
}

// HTTPServer holds settings specific to the HTTP server.
// Nested under http_server: in the YAML file.
type HTTPServer struct {
	// Addr is the TCP address the server listens on. The default keeps
	// parity with the port the mobile apps were built against.
	Addr string `yaml:"address" env:"HTTP_SERVER_ADDR" env-default:":8000"`

	// AllowedOrigins is the CORS allow-list. "*" allows any origin,
	// which is the development default; deployments list exact origins.
	// From the environment this is a comma-separated string.
	AllowedOrigins []string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-default:"*"`

	// RateLimitRPS throttles each client IP to this many requests per
	// second (with RateLimitBurst of slack). 0 disables limiting.
	RateLimitRPS   float64 `yaml:"rate_limit_rps" env:"RATE_LIMIT_RPS" env-default:"0"`
	RateLimitBurst int     `yaml:"rate_limit_burst" env:"RATE_LIMIT_BURST" env-default:"20"`
}

// Database selects and parametrises the SQL backend.
//
// driver "mysql" is the production deployment and uses the DB_* values;
// driver "sqlite3" is for local development and uses storage_path only.
// The env names and defaults mirror the deployment environment this
// server has always run in.
type Database struct {
	Driver   string `yaml:"driver" env:"DB_DRIVER" env-default:"mysql"`
	Host     string `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"DB_PORT" env-default:"3306"`
	User     string `yaml:"user" env:"DB_USER" env-default:"root"`
	Password string `yaml:"password" env:"DB_PASSWORD" env-default:""`
	Name     string `yaml:"name" env:"DB_NAME" env-default:"daysync_db"`

	// StoragePath is the SQLite .db file path (sqlite3 driver only).
	StoragePath string `yaml:"storage_path" env:"STORAGE_PATH" env-default:"storage/daysync.db"`
}

// Assistant configures the generative-AI backend for the chat feature.
// An empty APIKey leaves the feature responding 502; everything else
// keeps working.
type Assistant struct {
	APIKey  string        `yaml:"api_key" env:"GEMINI_API_KEY" env-default:""`
	Model   string        `yaml:"model" env:"GEMINI_MODEL" env-default:"gemini-2.0-flash"`
	BaseURL string        `yaml:"base_url" env:"GEMINI_BASE_URL" env-default:"https://generativelanguage.googleapis.com"`
	Timeout time.Duration `yaml:"timeout" env:"GEMINI_TIMEOUT" env-default:"30s"`
}

// Weather configures the upstream forecast API.
type Weather struct {
	BaseURL string        `yaml:"base_url" env:"WEATHER_API_URL" env-default:"https://api.open-meteo.com"`
	Timeout time.Duration `yaml:"timeout" env:"WEATHER_TIMEOUT" env-default:"10s"`
}

// Janitor configures background retention cleanup. Interval 0 disables
// the janitor entirely.
type Janitor struct {
	Interval          time.Duration `yaml:"interval" env:"JANITOR_INTERVAL" env-default:"1h"`
	InactiveUserDays  int           `yaml:"inactive_user_days" env:"JANITOR_INACTIVE_USER_DAYS" env-default:"30"`
	RouteRetentionDay int           `yaml:"route_retention_days" env:"JANITOR_ROUTE_RETENTION_DAYS" env-default:"7"`
}

// MustLoad reads, validates, and returns the application config.
//
// The name "MustLoad" follows a Go convention: functions prefixed with
// "Must" are allowed to panic/fatal on failure. Callers do not need to
// check a returned error — if this function returns, the config is valid.
func MustLoad() *Config {
	// Best-effort .env preload for local runs. A missing file is normal
	// (deployments set real environment variables), so the error is
	// deliberately ignored.
	_ = godotenv.Load()

	var configPath string

	// ── Source 1: environment variable ───────────────────────────────
	// Useful in Docker / Kubernetes where env vars are the standard way
	// to pass config to a container.
	configPath = os.Getenv("CONFIG_PATH")

	// ── Source 2: command-line flag ───────────────────────────────────
	// Useful when running locally:
	//   go run ./cmd/daysync-api --config=config/local.yaml
	if configPath == "" {
		// flag.String registers a new string flag.
		// Arguments: name, default-value, usage-description
		flags := flag.String("config", "", "Path to the configuration YAML file")
		flag.Parse()        // actually reads os.Args and populates registered flags
		configPath = *flags // dereference pointer to get the string value
	}

	var cfg Config

	// ── Source 3: environment only ───────────────────────────────────
	// No file given: every field falls back to its env var or default.
	// This is how the server runs in its containers.
	if configPath == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			log.Fatalf("cannot read config from environment: %s", err.Error())
		}
		return &cfg
	}

	// Verify the file exists before trying to read it.
	// os.Stat returns file info; if it errors with IsNotExist we give a
	// clear message rather than a cryptic "open: no such file" later.
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("config file does not exist: %s", configPath)
	}

	// cleanenv.ReadConfig reads the YAML file and populates the struct.
	// It also reads any env:"..." tagged fields from the environment,
	// so env vars still win over file values.
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err.Error())
	}

	return &cfg
}
