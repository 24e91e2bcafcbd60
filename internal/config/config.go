package config

import (
	"log"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/sylvain-nomadays/nomadays-api-sub000/internal/domain"
)

const (
	defaultDBPath = "./dev.db"
	defaultPort   = "8080"
	defaultEnv    = "development"
)

// Config holds application configuration sourced from environment variables.
type Config struct {
	Env             string
	DBPath          string
	Port            string
	DefaultCurrency string
	CalcWorkers     int
}

// Engine is the immutable settings object handed to the calculation layer.
type Engine struct {
	DefaultCurrency string
	Workers         int
}

// Load reads environment variables and returns a populated Config.
func Load() Config {
	// Best-effort: production injects real env, local dev uses .env.
	if err := loadDotEnv(".env"); err != nil {
		log.Printf("warning: %v", err)
	}

	cfg := Config{
		Env:             os.Getenv("APP_ENV"),
		DBPath:          os.Getenv("DB_PATH"),
		Port:            os.Getenv("PORT"),
		DefaultCurrency: strings.ToUpper(strings.TrimSpace(os.Getenv("DEFAULT_CURRENCY"))),
	}

	if cfg.Env == "" {
		cfg.Env = defaultEnv
	}
	if cfg.DBPath == "" {
		cfg.DBPath = defaultDBPath
	}
	if cfg.Port == "" {
		cfg.Port = defaultPort
	}
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = domain.DefaultCurrency
	}

	cfg.CalcWorkers = runtime.NumCPU()
	if raw := os.Getenv("CALC_WORKERS"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			log.Printf("warning: CALC_WORKERS=%q is not a positive integer, using %d", raw, cfg.CalcWorkers)
		} else {
			cfg.CalcWorkers = n
		}
	}

	return cfg
}

// IsDev reports whether the app runs in a development environment.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.Env) {
	case "dev", "development", "local":
		return true
	}
	return false
}

func (c Config) Engine() Engine {
	return Engine{DefaultCurrency: c.DefaultCurrency, Workers: c.CalcWorkers}
}
