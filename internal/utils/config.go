package utils

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the full service configuration.
type Config struct {
	Server struct {
		Host    string `yaml:"host"`
		Port    string `yaml:"port"`
		Prefork bool   `yaml:"prefork"`
	} `yaml:"server"`

	Logger struct {
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
		Compress   bool   `yaml:"compress"`
		Level      string `yaml:"level"`
	} `yaml:"logger"`

	Compiler struct {
		// Binary is the typesetting engine executable, pdflatex by default.
		Binary string `yaml:"binary"`
		// WorkDir is the shared temp directory for staging; os.TempDir when empty.
		WorkDir string `yaml:"work_dir"`
	} `yaml:"compiler"`

	Cache struct {
		Enabled   bool   `yaml:"enabled"`
		RedisHost string `yaml:"redis_host"`
		DB        int    `yaml:"db"`
		TTLSecs   int    `yaml:"ttl_secs"`
	} `yaml:"cache"`

	Storage struct {
		Enabled bool   `yaml:"enabled"`
		Bucket  string `yaml:"bucket"`
		Region  string `yaml:"region"`
	} `yaml:"storage"`
}

// AppConfig is the process-wide configuration loaded at startup.
var AppConfig Config

// LoadConfig reads the yaml config file (CONFIG_PATH or ./config.yaml),
// applies defaults and environment overrides, and stores the result in
// AppConfig. A missing config file is not an error; defaults apply.
func LoadConfig() Config {
	var cfg Config

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			Warn("Config file is not valid yaml, using defaults", "path", path, "error", err.Error())
			cfg = Config{}
		}
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	AppConfig = cfg
	return cfg
}

// GetConfig returns the configuration loaded by LoadConfig.
func GetConfig() Config {
	return AppConfig
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = ":8080"
	}
	if cfg.Logger.Level == "" {
		cfg.Logger.Level = "info"
	}
	if cfg.Logger.MaxSizeMB == 0 {
		cfg.Logger.MaxSizeMB = 10
	}
	if cfg.Logger.MaxBackups == 0 {
		cfg.Logger.MaxBackups = 3
	}
	if cfg.Compiler.Binary == "" {
		cfg.Compiler.Binary = "pdflatex"
	}
	if cfg.Cache.RedisHost == "" {
		cfg.Cache.RedisHost = "localhost:6379"
	}
	if cfg.Cache.TTLSecs == 0 {
		cfg.Cache.TTLSecs = 86400
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = ":" + v
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		cfg.Cache.RedisHost = v
	}
	if v := os.Getenv("S3_BUCKET_NAME"); v != "" {
		cfg.Storage.Enabled = true
		cfg.Storage.Bucket = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
}
