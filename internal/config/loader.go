package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Load builds the configuration from defaults, an optional config file
// (YAML or TOML, chosen by extension), a .env file and the environment.
// An empty path falls back to CONFIG_PATH and then to config.yaml if present.
func Load(path string) (Config, error) {
	cfg := Default()

	if err := godotenv.Load(); err == nil {
		log.Printf("Loaded environment from .env")
	}

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	explicit := path != ""
	if path == "" {
		path = "config.yaml"
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := decode(path, data, &cfg); err != nil {
			return cfg, err
		}
		log.Printf("Loaded config from %s", path)
	case explicit:
		return cfg, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to parse TOML: %w", err)
		}
	case ".yaml", ".yml", "":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to parse YAML: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config format: %s", filepath.Ext(path))
	}
	return nil
}

// applyEnv overrides config values from environment variables.
// PORT being set means we are deployed, so it also forces headless mode.
func applyEnv(cfg *Config) error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		cfg.Port = port
		cfg.Headless = true
	}
	envOverride(&cfg.DataDir, "DATA_DIR")
	envOverride(&cfg.PublicURL, "PUBLIC_URL")
	envOverride(&cfg.HistoryDB, "HISTORY_DB")
	envOverride(&cfg.Detector.Mode, "DETECTOR_MODE")
	envOverride(&cfg.Detector.Noise, "DETECTOR_NOISE")
	envOverride(&cfg.Detector.ModelPath, "MODEL_PATH")
	envOverride(&cfg.CleanupSchedule, "CLEANUP_SCHEDULE")
	envOverride(&cfg.UploadRetention, "UPLOAD_RETENTION")
	envOverride(&cfg.ShareTTL, "SHARE_TTL")

	if v := os.Getenv("MAX_UPLOAD_MB"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid MAX_UPLOAD_MB %q: %w", v, err)
		}
		cfg.MaxUploadMB = n
	}
	if v := os.Getenv("RANDOM_SEED"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid RANDOM_SEED %q: %w", v, err)
		}
		cfg.Detector.Seed = n
	}
	return nil
}

func envOverride(target *string, key string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}
