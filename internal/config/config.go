package config

import "time"

// Config holds the application configuration
type Config struct {
	Port          int      `yaml:"port" toml:"port"`
	FallbackPorts []int    `yaml:"fallback_ports" toml:"fallback_ports"`
	DataDir       string   `yaml:"data_dir" toml:"data_dir"`
	PublicURL     string   `yaml:"public_url" toml:"public_url"`
	Headless      bool     `yaml:"headless" toml:"headless"`
	Version       string   `yaml:"-" toml:"-"`
	Detector      Detector `yaml:"detector" toml:"detector"`

	// HistoryDB enables SQLite-backed prediction history when set
	HistoryDB string `yaml:"history_db" toml:"history_db"`

	MaxUploadMB     int64  `yaml:"max_upload_mb" toml:"max_upload_mb"`
	CleanupSchedule string `yaml:"cleanup_schedule" toml:"cleanup_schedule"`
	UploadRetention string `yaml:"upload_retention" toml:"upload_retention"`
	ShareTTL        string `yaml:"share_ttl" toml:"share_ttl"`
}

// Detector selects and tunes the analysis backend
type Detector struct {
	Mode      string  `yaml:"mode" toml:"mode"`   // synthetic | learned
	Noise     string  `yaml:"noise" toml:"noise"` // uniform | gaussian
	Seed      int64   `yaml:"seed" toml:"seed"`
	ModelPath string  `yaml:"model_path" toml:"model_path"`
	Threshold float64 `yaml:"threshold" toml:"threshold"`
}

const (
	DefaultPort            = 5000
	DefaultMaxUploadMB     = 100
	DefaultCleanupSchedule = "0 * * * *"
	DefaultUploadRetention = 24 * time.Hour
	DefaultShareTTL        = 7 * 24 * time.Hour
)

// Default returns a Config populated with the built-in defaults
func Default() Config {
	return Config{
		Port:            DefaultPort,
		FallbackPorts:   []int{8000, 3000},
		DataDir:         "./data",
		Version:         "dev",
		MaxUploadMB:     DefaultMaxUploadMB,
		CleanupSchedule: DefaultCleanupSchedule,
		UploadRetention: DefaultUploadRetention.String(),
		ShareTTL:        DefaultShareTTL.String(),
		Detector: Detector{
			Mode:      "synthetic",
			Noise:     "uniform",
			Threshold: 0.5,
		},
	}
}

// MaxUploadBytes returns the upload size limit in bytes
func (c Config) MaxUploadBytes() int64 {
	if c.MaxUploadMB <= 0 {
		return DefaultMaxUploadMB << 20
	}
	return c.MaxUploadMB << 20
}

// UploadRetentionDuration parses UploadRetention, falling back to the default
func (c Config) UploadRetentionDuration() time.Duration {
	return parseDuration(c.UploadRetention, DefaultUploadRetention)
}

// ShareTTLDuration parses ShareTTL, falling back to the default
func (c Config) ShareTTLDuration() time.Duration {
	return parseDuration(c.ShareTTL, DefaultShareTTL)
}

// Ports returns the preferred port followed by the fallback ports, without duplicates
func (c Config) Ports() []int {
	ports := []int{c.Port}
	seen := map[int]bool{c.Port: true}
	for _, p := range c.FallbackPorts {
		if p <= 0 || seen[p] {
			continue
		}
		seen[p] = true
		ports = append(ports, p)
	}
	return ports
}

func parseDuration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
