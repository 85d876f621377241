package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config carries every runtime knob for both binaries. Values come from the
// environment, with an optional YAML file (CONFIG_FILE) applied first so env
// vars always win.
type Config struct {
	APIPort  string `yaml:"api_port"`
	LogLevel string `yaml:"log_level"`

	PostgresDSN string `yaml:"postgres_dsn"`

	// QueueDriver selects "memory" or "nats".
	QueueDriver string `yaml:"queue_driver"`
	NATSURL     string `yaml:"nats_url"`
	NATSSubject string `yaml:"nats_subject"`
	QueueBuffer int    `yaml:"queue_buffer"`

	// StorageDriver selects "localfs" or "s3".
	StorageDriver string `yaml:"storage_driver"`
	StoragePath   string `yaml:"storage_path"`
	S3Bucket      string `yaml:"s3_bucket"`
	S3Region      string `yaml:"s3_region"`
	S3AccessKey   string `yaml:"s3_access_key"`
	S3SecretKey   string `yaml:"s3_secret_key"`
	S3Endpoint    string `yaml:"s3_endpoint"`

	EngineBaseURL        string `yaml:"engine_base_url"`
	EngineAPIKey         string `yaml:"engine_api_key"`
	EngineModel          string `yaml:"engine_model"`
	EngineTimeoutSeconds int    `yaml:"engine_timeout_seconds"`

	PresignTTLMinutes int `yaml:"presign_ttl_minutes"`

	MaxUploadBytes    int64   `yaml:"max_upload_bytes"`
	APIRateLimitRPS   float64 `yaml:"api_rate_limit_rps"`
	APIRateLimitBurst int     `yaml:"api_rate_limit_burst"`
	APIMaxConcurrent  int64   `yaml:"api_max_concurrent"`

	WorkerMetricsPort       string `yaml:"worker_metrics_port"`
	WorkerPollSeconds       int    `yaml:"worker_poll_seconds"`
	WorkerJobTimeoutSeconds int    `yaml:"worker_job_timeout_seconds"`
}

func Load() (Config, error) {
	// Missing .env is fine; deployments set real env vars.
	_ = godotenv.Load()

	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := applyYAML(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)

	if cfg.PostgresDSN == "" {
		return Config{}, fmt.Errorf("POSTGRES_DSN is required")
	}
	if cfg.QueueDriver != "memory" && cfg.QueueDriver != "nats" {
		return Config{}, fmt.Errorf("unknown queue driver %q", cfg.QueueDriver)
	}
	if cfg.StorageDriver != "localfs" && cfg.StorageDriver != "s3" {
		return Config{}, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
	if cfg.StorageDriver == "s3" && cfg.S3Bucket == "" {
		return Config{}, fmt.Errorf("S3_BUCKET is required for the s3 storage driver")
	}

	return cfg, nil
}

func defaults() Config {
	return Config{
		APIPort:                 "8080",
		LogLevel:                "info",
		QueueDriver:             "memory",
		NATSURL:                 "nats://localhost:4222",
		NATSSubject:             "resumes.uploaded",
		QueueBuffer:             1024,
		StorageDriver:           "localfs",
		StoragePath:             "./data/uploads",
		S3Region:                "auto",
		EngineBaseURL:           "https://openrouter.ai/api/v1",
		EngineModel:             "openai/gpt-4o-mini",
		EngineTimeoutSeconds:    120,
		PresignTTLMinutes:       15,
		MaxUploadBytes:          10 << 20,
		APIRateLimitRPS:         50,
		APIRateLimitBurst:       100,
		APIMaxConcurrent:        256,
		WorkerMetricsPort:       "9091",
		WorkerPollSeconds:       5,
		WorkerJobTimeoutSeconds: 300,
	}
}

func applyYAML(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	envString(&cfg.APIPort, "API_PORT")
	envString(&cfg.LogLevel, "LOG_LEVEL")
	envString(&cfg.PostgresDSN, "POSTGRES_DSN")
	envString(&cfg.QueueDriver, "QUEUE_DRIVER")
	envString(&cfg.NATSURL, "NATS_URL")
	envString(&cfg.NATSSubject, "NATS_SUBJECT")
	envInt(&cfg.QueueBuffer, "QUEUE_BUFFER")
	envString(&cfg.StorageDriver, "STORAGE_DRIVER")
	envString(&cfg.StoragePath, "STORAGE_PATH")
	envString(&cfg.S3Bucket, "S3_BUCKET")
	envString(&cfg.S3Region, "S3_REGION")
	envString(&cfg.S3AccessKey, "S3_ACCESS_KEY")
	envString(&cfg.S3SecretKey, "S3_SECRET_KEY")
	envString(&cfg.S3Endpoint, "S3_ENDPOINT")
	envString(&cfg.EngineBaseURL, "ENGINE_BASE_URL")
	envString(&cfg.EngineAPIKey, "ENGINE_API_KEY")
	envString(&cfg.EngineModel, "ENGINE_MODEL")
	envInt(&cfg.EngineTimeoutSeconds, "ENGINE_TIMEOUT_SECONDS")
	envInt(&cfg.PresignTTLMinutes, "PRESIGN_TTL_MINUTES")
	envInt64(&cfg.MaxUploadBytes, "MAX_UPLOAD_BYTES")
	envFloat(&cfg.APIRateLimitRPS, "API_RATE_LIMIT_RPS")
	envInt(&cfg.APIRateLimitBurst, "API_RATE_LIMIT_BURST")
	envInt64(&cfg.APIMaxConcurrent, "API_MAX_CONCURRENT")
	envString(&cfg.WorkerMetricsPort, "WORKER_METRICS_PORT")
	envInt(&cfg.WorkerPollSeconds, "WORKER_POLL_SECONDS")
	envInt(&cfg.WorkerJobTimeoutSeconds, "WORKER_JOB_TIMEOUT_SECONDS")
}

func (c Config) EngineTimeout() time.Duration {
	return time.Duration(c.EngineTimeoutSeconds) * time.Second
}

func (c Config) PresignTTL() time.Duration {
	return time.Duration(c.PresignTTLMinutes) * time.Minute
}

func (c Config) WorkerPollWait() time.Duration {
	return time.Duration(c.WorkerPollSeconds) * time.Second
}

func (c Config) WorkerJobTimeout() time.Duration {
	return time.Duration(c.WorkerJobTimeoutSeconds) * time.Second
}

func envString(dst *string, key string) {
	if value := os.Getenv(key); value != "" {
		*dst = value
	}
}

func envInt(dst *int, key string) {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			*dst = parsed
		}
	}
}

func envInt64(dst *int64, key string) {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			*dst = parsed
		}
	}
}

func envFloat(dst *float64, key string) {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			*dst = parsed
		}
	}
}
