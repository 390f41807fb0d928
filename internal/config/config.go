package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"careerscan-engine/internal/scrape"
)

type Config struct {
	App struct {
		Port    int    `yaml:"port" json:"port"`
		DataDir string `yaml:"data_dir" json:"data_dir"`
	} `yaml:"app" json:"app"`

	Fetch struct {
		TimeoutSeconds int    `yaml:"timeout_seconds" json:"timeout_seconds"`
		UserAgent      string `yaml:"user_agent" json:"user_agent"`
		MaxBodyBytes   int64  `yaml:"max_body_bytes" json:"max_body_bytes"`
	} `yaml:"fetch" json:"fetch"`

	Batch struct {
		Workers int `yaml:"workers" json:"workers"`
		PaceMS  int `yaml:"pace_ms" json:"pace_ms"`
		// HostIntervalMS spaces requests to the same domain across workers; 0 disables it.
		HostIntervalMS int `yaml:"host_interval_ms" json:"host_interval_ms"`
	} `yaml:"batch" json:"batch"`

	Export struct {
		Format     string `yaml:"format" json:"format"`
		UploadsDir string `yaml:"uploads_dir" json:"uploads_dir"`
		ResultsDir string `yaml:"results_dir" json:"results_dir"`
	} `yaml:"export" json:"export"`

	Retention struct {
		Days         int `yaml:"days" json:"days"`
		SweepMinutes int `yaml:"sweep_minutes" json:"sweep_minutes"`
	} `yaml:"retention" json:"retention"`

	Log struct {
		Level string `yaml:"level" json:"level"`
		JSON  bool   `yaml:"json" json:"json"`
	} `yaml:"log" json:"log"`
}

// Default returns the configuration used when no file overrides a value.
func Default() Config {
	var c Config
	c.App.Port = 38471
	c.App.DataDir = "."
	c.Fetch.TimeoutSeconds = int(scrape.DefaultTimeout / time.Second)
	c.Fetch.UserAgent = scrape.DefaultUserAgent
	c.Fetch.MaxBodyBytes = scrape.DefaultMaxBodyBytes
	c.Batch.Workers = 4
	c.Batch.PaceMS = 1000
	c.Export.Format = "csv"
	c.Export.UploadsDir = "uploads"
	c.Export.ResultsDir = "results"
	c.Retention.Days = 30
	c.Retention.SweepMinutes = 60
	c.Log.Level = "info"
	return c
}

// Load decodes path over Default, so a partial file keeps the remaining defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(b, &cfg)
	return cfg, err
}

func (c Config) FetcherConfig() scrape.FetcherConfig {
	return scrape.FetcherConfig{
		Timeout:      time.Duration(c.Fetch.TimeoutSeconds) * time.Second,
		UserAgent:    c.Fetch.UserAgent,
		MaxBodyBytes: c.Fetch.MaxBodyBytes,
	}
}

func (c Config) Pace() time.Duration { return time.Duration(c.Batch.PaceMS) * time.Millisecond }

func (c Config) HostInterval() time.Duration {
	return time.Duration(c.Batch.HostIntervalMS) * time.Millisecond
}

func (c Config) RetentionAge() time.Duration {
	return time.Duration(c.Retention.Days) * 24 * time.Hour
}

func (c Config) SweepInterval() time.Duration {
	return time.Duration(c.Retention.SweepMinutes) * time.Minute
}

// UploadsPath and ResultsPath resolve relative directories against app.data_dir.
func (c Config) UploadsPath() string { return c.under(c.Export.UploadsDir) }
func (c Config) ResultsPath() string { return c.under(c.Export.ResultsDir) }

func (c Config) under(dir string) string {
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(c.App.DataDir, dir)
}
