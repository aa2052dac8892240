package config

import (
	"os"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Storage StorageConfig
	Graph   GraphConfig
	Log     LogConfig
}

// StorageConfig contains vault storage settings
type StorageConfig struct {
	RootDir string `mapstructure:"root_dir"`
}

// GraphConfig contains graph store settings
type GraphConfig struct {
	DSN          string        `mapstructure:"dsn"`
	EmbeddingDim int           `mapstructure:"embedding_dim"`
	BackupPath   string        `mapstructure:"backup_path"`
	QueryTimeout time.Duration `mapstructure:"query_timeout"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Storage.RootDir = getEnvString("HODDOR_ROOT", "./hoddor_data")

	cfg.Graph.DSN = getEnvString("HODDOR_GRAPH_DSN", "file:hoddor_graph.db")
	cfg.Graph.EmbeddingDim = getEnvInt("HODDOR_EMBEDDING_DIM", 384)
	cfg.Graph.BackupPath = getEnvString("HODDOR_GRAPH_BACKUP_PATH", "graph_backups")
	cfg.Graph.QueryTimeout = getEnvDuration("HODDOR_GRAPH_QUERY_TIMEOUT", 30*time.Second)

	cfg.Log.Level = getEnvString("HODDOR_LOG_LEVEL", "info")
	cfg.Log.Format = getEnvString("HODDOR_LOG_FORMAT", "console")
	cfg.Log.Output = getEnvString("HODDOR_LOG_OUTPUT", "stderr")

	return cfg, nil
}

// LoadFile loads configuration from a YAML file, applying environment defaults
// for anything the file leaves unset.
func LoadFile(path string) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Helper functions

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
