// Package config loads process settings from flags, the environment and an
// optional .env file. Flags take precedence over environment variables,
// which take precedence over .env entries.
package config

import (
	stderrors "errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/abrezinsky/avavote/internal/repository"
)

// DefaultEnvFile is read on startup when present
const DefaultEnvFile = ".env"

// Config holds every runtime setting
type Config struct {
	Port          int
	DBPath        string
	MongoURI      string
	MongoDatabase string
	AdminPassword string
	LogLevel      string
	LogFormat     string
	HTTPLogging   bool
	Seed          bool
	TxAttempts    int
	ShowVersion   bool
}

// StoreOptions returns the persistence settings
func (c Config) StoreOptions() repository.OpenOptions {
	return repository.OpenOptions{
		MongoURI:      c.MongoURI,
		MongoDatabase: c.MongoDatabase,
		DBPath:        c.DBPath,
		TxAttempts:    c.TxAttempts,
	}
}

// Backend reports which persistence adapter the settings select
func (c Config) Backend() repository.Backend {
	return c.StoreOptions().Backend()
}

// Addr is the HTTP listen address
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Load reads DefaultEnvFile if it exists, then parses args
func Load(args []string) (Config, error) {
	return LoadWithEnvFile(args, DefaultEnvFile)
}

// LoadWithEnvFile is Load with an explicit .env path. A missing file is not
// an error; variables already in the environment are never overwritten.
func LoadWithEnvFile(args []string, envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	var cfg Config
	port, err := envInt("PORT", 8081)
	if err != nil {
		return Config{}, err
	}
	attempts, err := envInt("AVAVOTE_TX_ATTEMPTS", repository.DefaultTxAttempts)
	if err != nil {
		return Config{}, err
	}

	flags := flag.NewFlagSet("avavote", flag.ContinueOnError)
	flags.SetOutput(io.Discard)

	flags.IntVar(&cfg.Port, "port", port, "HTTP server port")
	flags.StringVar(&cfg.DBPath, "db", envString("AVAVOTE_DB", "avavote.db"), "SQLite database path")
	flags.StringVar(&cfg.MongoURI, "mongo", envString("MONGO_URI", ""), "MongoDB URI (selects the MongoDB store)")
	flags.StringVar(&cfg.MongoDatabase, "mongodb", envString("MONGO_DATABASE", "avavote"), "MongoDB database name")
	flags.StringVar(&cfg.AdminPassword, "adminpw", envString("ADMIN_PASSWORD", ""), "Admin password (auto-generated if not set)")
	flags.StringVar(&cfg.LogLevel, "loglevel", envString("LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")
	flags.StringVar(&cfg.LogFormat, "logformat", envString("LOG_FORMAT", "text"), "Log format (text, json)")
	flags.BoolVar(&cfg.HTTPLogging, "httplog", envBool("AVAVOTE_HTTP_LOG"), "Log every HTTP request")
	flags.BoolVar(&cfg.Seed, "seed", envBool("AVAVOTE_SEED"), "Insert demo data into an empty store")
	flags.IntVar(&cfg.TxAttempts, "txattempts", attempts, "Maximum attempts for a contended SQLite transaction")
	flags.BoolVar(&cfg.ShowVersion, "version", false, "Show version and exit")

	if err := flags.Parse(args); err != nil {
		return Config{}, err
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("invalid port %d", cfg.Port)
	}
	if cfg.TxAttempts <= 0 {
		return Config{}, fmt.Errorf("txattempts must be positive, got %d", cfg.TxAttempts)
	}
	if cfg.MongoURI != "" && cfg.Backend() != repository.BackendMongo {
		return Config{}, fmt.Errorf("MongoDB URI must start with mongodb:// or mongodb+srv://")
	}
	if cfg.Backend() == repository.BackendSQLite && cfg.DBPath == "" {
		return Config{}, stderrors.New("database path required (use -db or AVAVOTE_DB env)")
	}

	return cfg, nil
}

// Usage is printed for -help
const Usage = `AvaVote - Election Backend

Usage:
  avavote [options]

Options:
  -port int         HTTP server port (default 8081, env PORT)
  -db string        SQLite database path (default "avavote.db", env AVAVOTE_DB)
  -mongo string     MongoDB URI; selects the MongoDB store (env MONGO_URI)
  -mongodb string   MongoDB database name (default "avavote", env MONGO_DATABASE)
  -adminpw string   Admin password, auto-generated if not set (env ADMIN_PASSWORD)
  -loglevel string  Log level: debug, info, warn, error (default "info", env LOG_LEVEL)
  -logformat string Log format: text, json (default "text", env LOG_FORMAT)
  -httplog          Log every HTTP request (env AVAVOTE_HTTP_LOG)
  -seed             Insert demo data into an empty store (env AVAVOTE_SEED)
  -txattempts int   Attempts for a contended SQLite transaction (default 5)
  -version          Show version and exit

Settings may also be placed in a .env file in the working directory.

Examples:
  avavote                                   # SQLite in ./avavote.db on port 8081
  avavote -db :memory: -seed                # Throwaway store with demo voter
  avavote -mongo "mongodb://db:27017/?replicaSet=rs0"
`

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s env variable: %q", key, v)
	}
	return n, nil
}

func envBool(key string) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
