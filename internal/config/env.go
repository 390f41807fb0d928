package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const (
	EnvDataDir  = "CAREERSCAN_DATA_DIR"
	EnvPort     = "CAREERSCAN_PORT"
	EnvWorkers  = "CAREERSCAN_WORKERS"
	EnvLogLevel = "LOG_LEVEL"
)

// LoadEnv loads .env files from the working directory. Missing files are skipped.
func LoadEnv(logger logrus.FieldLogger, files ...string) {
	if len(files) == 0 {
		files = []string{".env", ".env.local"}
	}
	loaded := make([]string, 0, len(files))
	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Overload(file); err != nil {
			if logger != nil {
				logger.WithError(err).Warnf("failed to load %s", file)
			}
			continue
		}
		loaded = append(loaded, file)
	}
	if logger != nil && len(loaded) > 0 {
		logger.Debugf("loaded env files: %s", strings.Join(loaded, ", "))
	}
}

func GetEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func GetEnvInt(key string, defaultValue int) int {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// ApplyEnv overlays process environment values onto cfg.
func ApplyEnv(cfg *Config) {
	cfg.App.DataDir = GetEnv(EnvDataDir, cfg.App.DataDir)
	cfg.App.Port = GetEnvInt(EnvPort, cfg.App.Port)
	cfg.Batch.Workers = GetEnvInt(EnvWorkers, cfg.Batch.Workers)
	cfg.Log.Level = GetEnv(EnvLogLevel, cfg.Log.Level)
}
