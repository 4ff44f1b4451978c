package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr     string `toml:"http_addr"`
	DataDir      string `toml:"data_dir"`
	DBPath       string `toml:"db_path"`
	SettingsFile string `toml:"settings_file"`

	LogLevel  string `toml:"log_level"`
	LogPretty bool   `toml:"log_pretty"`

	Debounce      time.Duration `toml:"debounce"`
	RefreshPeriod time.Duration `toml:"refresh_period"`
}

func Default() Config {
	return Config{
		HTTPAddr:      ":8080",
		DataDir:       "data",
		LogLevel:      "info",
		Debounce:      50 * time.Millisecond,
		RefreshPeriod: time.Minute,
	}
}

// Load layers defaults, the optional TOML file at path (or $GLANCED_CONFIG)
// and GLANCED_* environment variables, in that order. A .env file in the
// working directory fills in variables that are not already set.
func Load(path string) (Config, error) {
	_ = godotenv.Load(".env")

	cfg := Default()
	if path == "" {
		path = os.Getenv("GLANCED_CONFIG")
	}
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("load config %s: %w", path, err)
		}
	}

	cfg.HTTPAddr = getEnv("GLANCED_HTTP_ADDR", cfg.HTTPAddr)
	cfg.DataDir = getEnv("GLANCED_DATA_DIR", cfg.DataDir)
	cfg.DBPath = getEnv("GLANCED_DB_PATH", cfg.DBPath)
	cfg.SettingsFile = getEnv("GLANCED_SETTINGS_FILE", cfg.SettingsFile)
	cfg.LogLevel = getEnv("GLANCED_LOG_LEVEL", cfg.LogLevel)

	var err error
	if cfg.LogPretty, err = getBool("GLANCED_LOG_PRETTY", cfg.LogPretty); err != nil {
		return Config{}, err
	}
	if cfg.Debounce, err = getDuration("GLANCED_DEBOUNCE", cfg.Debounce); err != nil {
		return Config{}, err
	}
	if cfg.RefreshPeriod, err = getDuration("GLANCED_REFRESH_PERIOD", cfg.RefreshPeriod); err != nil {
		return Config{}, err
	}

	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(cfg.DataDir, "glanced.db")
	}
	if cfg.Debounce < 0 || cfg.RefreshPeriod < 0 {
		return Config{}, fmt.Errorf("durations must not be negative")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
