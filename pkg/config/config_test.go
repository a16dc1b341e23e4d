package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := JobConfig{
		DatasetDir:     "dataset",
		StopWordsFile:  "stop_words.csv",
		OutputDir:      ".",
		PostingsFile:   "indice_reverso.txt",
		DictionaryFile: "dicionario.txt",
		MaxWorkers:     2,
	}
	if diff := cmp.Diff(cfg.Job, want); diff != "" {
		t.Errorf("Diff: (-got +want)\n%s", diff)
	}
	if cfg.Scheduler.Schedule != "0 1 * * *" || !cfg.Scheduler.RunImmediately {
		t.Errorf("unexpected scheduler defaults: %+v", cfg.Scheduler)
	}
	if cfg.Postgres.Enabled || cfg.Kafka.Enabled || cfg.Redis.Enabled {
		t.Error("optional backends should be disabled by default")
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, `
job:
  datasetDir: /data/corpus
  maxWorkers: 8
scheduler:
  schedule: "*/5 * * * *"
  runImmediately: false
redis:
  enabled: true
  lockTTL: 30m
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Job.DatasetDir != "/data/corpus" || cfg.Job.MaxWorkers != 8 {
		t.Errorf("job section not applied: %+v", cfg.Job)
	}
	if cfg.Job.PostingsFile != "indice_reverso.txt" {
		t.Errorf("unset fields should keep defaults, got %q", cfg.Job.PostingsFile)
	}
	if cfg.Scheduler.Schedule != "*/5 * * * *" || cfg.Scheduler.RunImmediately {
		t.Errorf("scheduler section not applied: %+v", cfg.Scheduler)
	}
	if !cfg.Redis.Enabled || cfg.Redis.LockTTL != 30*time.Minute {
		t.Errorf("redis section not applied: %+v", cfg.Redis)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, "job:\n  datasetDir: from-file\n")
	t.Setenv("RI_DATASET_DIR", "from-env")
	t.Setenv("RI_MAX_WORKERS", "6")
	t.Setenv("RI_KAFKA_ENABLED", "true")
	t.Setenv("RI_KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("RI_REDIS_ENABLED", "not-a-bool")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Job.DatasetDir != "from-env" || cfg.Job.MaxWorkers != 6 {
		t.Errorf("env overrides not applied: %+v", cfg.Job)
	}
	if !cfg.Kafka.Enabled {
		t.Error("expected kafka enabled")
	}
	if diff := cmp.Diff(cfg.Kafka.Brokers, []string{"k1:9092", "k2:9092"}); diff != "" {
		t.Errorf("Diff: (-got +want)\n%s", diff)
	}
	if cfg.Redis.Enabled {
		t.Error("unparseable bool should keep the previous value")
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := Load(writeConfig(t, "job: [not, a, map")); err == nil {
		t.Error("expected error for malformed yaml")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		errSub string
	}{
		{name: "defaults valid", mutate: func(*Config) {}},
		{name: "empty dataset", mutate: func(c *Config) { c.Job.DatasetDir = "" }, errSub: "datasetDir"},
		{name: "empty output dir", mutate: func(c *Config) { c.Job.OutputDir = "" }, errSub: "outputDir"},
		{name: "same file names", mutate: func(c *Config) { c.Job.DictionaryFile = c.Job.PostingsFile }, errSub: "must differ"},
		{name: "negative workers", mutate: func(c *Config) { c.Job.MaxWorkers = -1 }, errSub: "maxWorkers"},
		{name: "redis without ttl", mutate: func(c *Config) {
			c.Redis.Enabled = true
			c.Redis.LockTTL = 0
		}, errSub: "lockTTL"},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errSub == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errSub) {
				t.Fatalf("expected error containing %q, got %v", tt.errSub, err)
			}
		})
	}
}

func TestDSN(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: 5433, User: "u", Password: "p", Database: "d", SSLMode: "disable"}
	want := "host=db port=5433 user=u password=p dbname=d sslmode=disable"
	if got := p.DSN(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
