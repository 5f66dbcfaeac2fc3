// Package config loads this worker's configuration from a YAML file,
// environment variables, and an optional .env file, the same layering the
// teacher CLI uses, scoped to the handful of settings a crawler/matching
// worker actually needs.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds every setting the worker reads at startup.
type Config struct {
	Database  Database  `mapstructure:"database"`
	Queue     Queue     `mapstructure:"queue"`
	Crawl     Crawl     `mapstructure:"crawl"`
	Embedding Embedding `mapstructure:"embedding"`
	Matching  Matching  `mapstructure:"matching"`
}

// Database holds the relational store connection.
type Database struct {
	ConnectionString string `mapstructure:"connection_string"`
}

// Queue holds the ZeroMQ pull-socket endpoint the dispatcher binds to.
type Queue struct {
	Endpoint string `mapstructure:"endpoint"`
}

// Crawl holds Crawl-job (C1/C4) tuning. FetchConcurrency sizes each
// crawler's fetch gate; FetchTimeout is loaded but not passed on (the gate
// always uses fetch.DefaultTimeout).
type Crawl struct {
	FetchConcurrency int           `mapstructure:"fetch_concurrency"`
	FetchTimeout     time.Duration `mapstructure:"fetch_timeout"`
}

// Embedding holds the embedding provider's (C5) model selection.
type Embedding struct {
	APIKey     string `mapstructure:"api_key"`
	Model      string `mapstructure:"model"`
	Dimensions int32  `mapstructure:"dimensions"`
}

// Matching holds Benchmark/Category-Match (C8/C9) tuning values. They are
// loaded but not passed to the matchers, which use the
// matching.SimilarityThreshold and matching.TopK constants.
type Matching struct {
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"`
	TopK                int     `mapstructure:"top_k"`
}

// Load reads configuration from (in increasing priority) built-in
// defaults, an optional YAML config file, a local .env file, and the
// process environment, grounded on the teacher CLI's initConfig layering.
// DATABASE_URL and ZMQ_ADDRESS, when set, override
// database.connection_string and queue.endpoint.
func Load(cfgFile string) (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Fprintf(os.Stderr, "warning: error loading .env file: %v\n", err)
		}
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("CRAWLERS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName("pushkind-crawlers")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		cfg.Database.ConnectionString = dsn
	}
	if addr := os.Getenv("ZMQ_ADDRESS"); addr != "" {
		cfg.Queue.Endpoint = addr
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("queue.endpoint", "tcp://127.0.0.1:5555")
	v.SetDefault("crawl.fetch_concurrency", 5)
	v.SetDefault("crawl.fetch_timeout", 30*time.Second)
	v.SetDefault("embedding.model", "gemini-embedding-001")
	v.SetDefault("embedding.dimensions", 768)
	v.SetDefault("matching.similarity_threshold", 0.80)
	v.SetDefault("matching.top_k", 10)
}

func (c *Config) validate() error {
	if c.Database.ConnectionString == "" {
		return fmt.Errorf("database.connection_string is required")
	}
	if c.Queue.Endpoint == "" {
		return fmt.Errorf("queue.endpoint is required")
	}
	return nil
}
