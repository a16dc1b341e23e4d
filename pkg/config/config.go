// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for the index
// job and every optional backend (Postgres, Kafka, Redis) it reports to.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Job       JobConfig       `yaml:"job"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Redis     RedisConfig     `yaml:"redis"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// JobConfig describes where the corpus lives, where the two index files go,
// and how many workers tokenize documents in parallel.
type JobConfig struct {
	DatasetDir     string `yaml:"datasetDir"`
	StopWordsFile  string `yaml:"stopWordsFile"`
	OutputDir      string `yaml:"outputDir"`
	PostingsFile   string `yaml:"postingsFile"`
	DictionaryFile string `yaml:"dictionaryFile"`
	MaxWorkers     int    `yaml:"maxWorkers"`
}

// SchedulerConfig controls when the job is triggered in daemon mode.
type SchedulerConfig struct {
	Schedule       string `yaml:"schedule"`
	RunImmediately bool   `yaml:"runImmediately"`
	Timezone       string `yaml:"timezone"`
}

// PostgresConfig holds PostgreSQL connection parameters for run history.
type PostgresConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	IndexRebuild  string `yaml:"indexRebuild"`
	IndexComplete string `yaml:"indexComplete"`
}

// RedisConfig holds the Redis connection used for the cross-process run lock.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	LockKey  string        `yaml:"lockKey"`
	LockTTL  time.Duration `yaml:"lockTTL"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the job cannot run with.
func (c *Config) Validate() error {
	if c.Job.DatasetDir == "" {
		return fmt.Errorf("job.datasetDir must be set")
	}
	if c.Job.OutputDir == "" {
		return fmt.Errorf("job.outputDir must be set")
	}
	if c.Job.PostingsFile == "" || c.Job.DictionaryFile == "" {
		return fmt.Errorf("job.postingsFile and job.dictionaryFile must be set")
	}
	if c.Job.PostingsFile == c.Job.DictionaryFile {
		return fmt.Errorf("job.postingsFile and job.dictionaryFile must differ")
	}
	if c.Job.MaxWorkers < 0 {
		return fmt.Errorf("job.maxWorkers must not be negative, got %d", c.Job.MaxWorkers)
	}
	if c.Redis.Enabled && c.Redis.LockTTL <= 0 {
		return fmt.Errorf("redis.lockTTL must be positive when redis is enabled")
	}
	return nil
}

// defaultConfig returns a Config matching the layout the job has always used:
// ./dataset, ./stop_words.csv, two worker processes, daily run at 01:00.
func defaultConfig() *Config {
	return &Config{
		Job: JobConfig{
			DatasetDir:     "dataset",
			StopWordsFile:  "stop_words.csv",
			OutputDir:      ".",
			PostingsFile:   "indice_reverso.txt",
			DictionaryFile: "dicionario.txt",
			MaxWorkers:     2,
		},
		Scheduler: SchedulerConfig{
			Schedule:       "0 1 * * *",
			RunImmediately: true,
			Timezone:       "Local",
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "reverseindex",
			User:            "reverseindex",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "reverse-index-group",
			Topics: KafkaTopics{
				IndexRebuild:  "index.rebuild",
				IndexComplete: "index.complete",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
			PoolSize: 4,
			LockKey:  "reverse-index:run-lock",
			LockTTL:  2 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads RI_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RI_DATASET_DIR"); v != "" {
		cfg.Job.DatasetDir = v
	}
	if v := os.Getenv("RI_STOP_WORDS_FILE"); v != "" {
		cfg.Job.StopWordsFile = v
	}
	if v := os.Getenv("RI_OUTPUT_DIR"); v != "" {
		cfg.Job.OutputDir = v
	}
	if v := os.Getenv("RI_MAX_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Job.MaxWorkers = n
		}
	}
	if v := os.Getenv("RI_SCHEDULE"); v != "" {
		cfg.Scheduler.Schedule = v
	}
	if v := os.Getenv("RI_POSTGRES_ENABLED"); v != "" {
		cfg.Postgres.Enabled = parseBool(v, cfg.Postgres.Enabled)
	}
	if v := os.Getenv("RI_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("RI_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("RI_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("RI_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("RI_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("RI_KAFKA_ENABLED"); v != "" {
		cfg.Kafka.Enabled = parseBool(v, cfg.Kafka.Enabled)
	}
	if v := os.Getenv("RI_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("RI_REDIS_ENABLED"); v != "" {
		cfg.Redis.Enabled = parseBool(v, cfg.Redis.Enabled)
	}
	if v := os.Getenv("RI_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("RI_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("RI_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("RI_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("RI_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Metrics.Port = port
		}
	}
}

func parseBool(v string, fallback bool) bool {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
