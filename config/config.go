package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const DefaultPath = "config.toml"

type Config struct {
	Host    string `toml:"host"`
	Port    string `toml:"port"`
	Libonnx string `toml:"libonnx"`

	ModelDir      string `toml:"model_dir"`
	ModelFileName string `toml:"model_file_name"`
	CatalogFile   string `toml:"catalog_file"`
	LazyLoad      bool   `toml:"lazy_load"`

	Sessions            int   `toml:"sessions"`
	IntraOpThreads      int   `toml:"intra_op_threads"`
	MaxUploadBytes      int64 `toml:"max_upload_bytes"`
	InferTimeoutSeconds int   `toml:"infer_timeout_seconds"`
	CacheSize           int   `toml:"cache_size"`

	Log Log `toml:"log"`
}

// Log controls the slog handler and optional rotating file output.
type Log struct {
	Level      string `toml:"level"`
	Format     string `toml:"format"` // text | json
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

var (
	cfg      Config
	loadOnce sync.Once
)

func Default() Config {
	return Config{
		Host:                "0.0.0.0",
		Port:                "10000",
		ModelDir:            "models",
		ModelFileName:       "modele_feuille.onnx",
		Sessions:            2,
		MaxUploadBytes:      10 << 20,
		InferTimeoutSeconds: 30,
		CacheSize:           256,
		Log: Log{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// C returns the process configuration, reading config.toml on first use.
func C() Config {
	loadOnce.Do(func() {
		c, err := Load(DefaultPath)
		if err != nil {
			panic(err)
		}
		cfg = c
	})
	return cfg
}

// Load reads a TOML file over the defaults. A missing file is not an error.
// HOST and PORT from the environment win over the file.
func Load(path string) (Config, error) {
	c := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &c); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}

	if v := strings.TrimSpace(os.Getenv("HOST")); v != "" {
		c.Host = v
	}
	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		c.Port = v
	}
	c.applyDefaults()
	return c, nil
}

func (c *Config) applyDefaults() {
	d := Default()
	if c.Port == "" {
		c.Port = d.Port
	}
	if c.ModelFileName == "" {
		c.ModelFileName = d.ModelFileName
	}
	if c.Sessions <= 0 {
		c.Sessions = 1
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = d.MaxUploadBytes
	}
	if c.InferTimeoutSeconds <= 0 {
		c.InferTimeoutSeconds = d.InferTimeoutSeconds
	}
	if c.CacheSize < 0 {
		c.CacheSize = 0
	}
}

func (c Config) Addr() string {
	return c.Host + ":" + c.Port
}

func (c Config) ModelPath() string {
	return filepath.Join(c.ModelDir, c.ModelFileName)
}

func (c Config) InferTimeout() time.Duration {
	return time.Duration(c.InferTimeoutSeconds) * time.Second
}
