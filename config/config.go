// Package config loads server settings from the environment and an optional .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     string
	Env      string
	LogLevel string

	// Storage
	DBPath string

	// Grid file seeded into an empty database. Empty means the embedded default grid.
	TariffFile string
	// Seconds between checks of TariffFile for a new revision; 0 disables reloading.
	GridReloadIntervalSec int

	// Timeouts
	HTTPReadTimeoutSec    int
	HTTPWriteTimeoutSec   int
	HTTPIdleTimeoutSec    int
	HTTPRequestTimeoutSec int

	AllowedOrigins []string
}

// Load reads .env (if present) then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")
	return fromEnv()
}

// LoadFile reads settings from a specific env file; process variables still win.
func LoadFile(path string) (*Config, error) {
	if err := godotenv.Load(path); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return fromEnv()
}

func fromEnv() (*Config, error) {
	cfg := &Config{}

	cfg.Port = getEnv("PORT", "8080")
	cfg.Env = getEnv("ENV", "dev")
	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.DBPath = getEnv("DB_PATH", "premium.db")
	cfg.TariffFile = getEnv("TARIFF_FILE", "")
	cfg.GridReloadIntervalSec = getEnvAsInt("GRID_RELOAD_INTERVAL_SEC", 0)

	cfg.HTTPReadTimeoutSec = getEnvAsInt("HTTP_READ_TIMEOUT_SEC", 10)
	cfg.HTTPWriteTimeoutSec = getEnvAsInt("HTTP_WRITE_TIMEOUT_SEC", 10)
	cfg.HTTPIdleTimeoutSec = getEnvAsInt("HTTP_IDLE_TIMEOUT_SEC", 120)
	cfg.HTTPRequestTimeoutSec = getEnvAsInt("HTTP_REQUEST_TIMEOUT_SEC", 30)

	cfg.AllowedOrigins = getEnvAsSlice("ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"})

	if cfg.Env != "dev" && cfg.Env != "prod" && cfg.Env != "test" {
		return nil, fmt.Errorf("ENV must be dev, test or prod, got %q", cfg.Env)
	}
	if cfg.GridReloadIntervalSec < 0 {
		return nil, fmt.Errorf("GRID_RELOAD_INTERVAL_SEC must not be negative, got %d", cfg.GridReloadIntervalSec)
	}
	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return nil, fmt.Errorf("PORT must be numeric, got %q", cfg.Port)
	}

	return cfg, nil
}

func (c *Config) IsProd() bool { return c.Env == "prod" }

func getEnv(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsInt(key string, defaultVal int) int {
	valStr := os.Getenv(key)
	if val, err := strconv.Atoi(valStr); err == nil {
		return val
	}
	return defaultVal
}

func getEnvAsSlice(key string, defaultVal []string) []string {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	var result []string
	for _, s := range strings.Split(valStr, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			result = append(result, s)
		}
	}
	if len(result) == 0 {
		return defaultVal
	}
	return result
}
