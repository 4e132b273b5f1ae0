// Package config loads the service configuration from an optional YAML file
// and environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"videothingy/council-highlights/internal/notify"
	"videothingy/council-highlights/internal/playback"
	"videothingy/council-highlights/internal/selection"
	"videothingy/council-highlights/internal/session"
	"videothingy/council-highlights/internal/tasks"
)

// Default configuration values.
const (
	DefaultPort            = "8080"
	DefaultShutdownTimeout = 10 * time.Second
	DefaultCORSOrigins     = "*"
	DefaultSweepInterval   = time.Minute
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "json"
	DefaultWorkerCount     = 4
	DefaultWorkerQueueSize = 64
)

// FileEnvVar names the environment variable holding the config file path.
const FileEnvVar = "HIGHLIGHTS_CONFIG"

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Port            string        `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CORSOrigins     string        `yaml:"cors_origins"`
}

// SupabaseConfig points at the Supabase project holding transcripts.
type SupabaseConfig struct {
	URL        string `yaml:"url"`
	ServiceKey string `yaml:"service_key"`
}

// TaskServiceConfig points at the service that renders highlight videos.
type TaskServiceConfig struct {
	URL     string        `yaml:"url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

// EditingConfig tunes the hosted selection and playback engines.
type EditingConfig struct {
	ExtractTimeout    time.Duration `yaml:"extract_timeout"`
	SeekTolerance     float64       `yaml:"seek_tolerance"`
	MaxStaleUpdates   int           `yaml:"max_stale_updates"`
	SessionTTL        time.Duration `yaml:"session_ttl"`
	SweepInterval     time.Duration `yaml:"sweep_interval"`
	NotificationQueue int           `yaml:"notification_queue"`
}

// RedisConfig enables the Redis notification fan-out when URL is set.
type RedisConfig struct {
	URL     string `yaml:"url"`
	Channel string `yaml:"channel"`
}

// LogConfig selects the log level and format (json or text).
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// WorkersConfig sizes the render dispatch pool.
type WorkersConfig struct {
	Count     int `yaml:"count"`
	QueueSize int `yaml:"queue_size"`
}

// Config is the complete service configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Supabase    SupabaseConfig    `yaml:"supabase"`
	TaskService TaskServiceConfig `yaml:"task_service"`
	Editing     EditingConfig     `yaml:"editing"`
	Redis       RedisConfig       `yaml:"redis"`
	Log         LogConfig         `yaml:"log"`
	Workers     WorkersConfig     `yaml:"workers"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            DefaultPort,
			ShutdownTimeout: DefaultShutdownTimeout,
			CORSOrigins:     DefaultCORSOrigins,
		},
		TaskService: TaskServiceConfig{Timeout: tasks.DefaultTimeout},
		Editing: EditingConfig{
			ExtractTimeout:    selection.DefaultExtractTimeout,
			SeekTolerance:     playback.DefaultSeekTolerance,
			MaxStaleUpdates:   playback.DefaultMaxStaleUpdates,
			SessionTTL:        session.DefaultTTL,
			SweepInterval:     DefaultSweepInterval,
			NotificationQueue: notify.DefaultQueueSize,
		},
		Redis: RedisConfig{Channel: notify.DefaultChannel},
		Log:   LogConfig{Level: DefaultLogLevel, Format: DefaultLogFormat},
		Workers: WorkersConfig{
			Count:     DefaultWorkerCount,
			QueueSize: DefaultWorkerQueueSize,
		},
	}
}

// Load builds the configuration in this order (later sources override
// earlier):
// 1. Default values
// 2. The YAML file at path, if path is not empty
// 3. Environment variables
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// loadFromFile decodes path over cfg. Keys missing from the file keep their
// current values.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	return nil
}

// loadFromEnv overlays environment variables onto the configuration.
func loadFromEnv(cfg *Config) error {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("SUPABASE_URL"); v != "" {
		cfg.Supabase.URL = v
	}
	if v := os.Getenv("SUPABASE_SERVICE_KEY"); v != "" {
		cfg.Supabase.ServiceKey = v
	}
	if v := os.Getenv("TASK_SERVICE_URL"); v != "" {
		cfg.TaskService.URL = v
	}
	if v := os.Getenv("TASK_SERVICE_API_KEY"); v != "" {
		cfg.TaskService.APIKey = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("EXTRACT_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("EXTRACT_TIMEOUT: %w", err)
		}
		cfg.Editing.ExtractTimeout = d
	}
	if v := os.Getenv("WORKER_COUNT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("WORKER_COUNT: %w", err)
		}
		cfg.Workers.Count = n
	}
	return nil
}

// Validate checks the configuration for required and consistent values.
func (c *Config) Validate() error {
	var problems []string
	if c.Server.Port == "" {
		problems = append(problems, "server.port is required")
	}
	if c.Supabase.URL == "" {
		problems = append(problems, "supabase.url is required (SUPABASE_URL)")
	}
	if c.Supabase.ServiceKey == "" {
		problems = append(problems, "supabase.service_key is required (SUPABASE_SERVICE_KEY)")
	}
	if c.TaskService.URL == "" {
		problems = append(problems, "task_service.url is required (TASK_SERVICE_URL)")
	}
	if c.Editing.ExtractTimeout <= 0 {
		problems = append(problems, "editing.extract_timeout must be positive")
	}
	if c.Editing.SeekTolerance <= 0 {
		problems = append(problems, "editing.seek_tolerance must be positive")
	}
	if c.Editing.SessionTTL <= 0 {
		problems = append(problems, "editing.session_ttl must be positive")
	}
	if c.Workers.Count <= 0 {
		problems = append(problems, "workers.count must be positive")
	}
	if c.Workers.QueueSize < 0 {
		problems = append(problems, "workers.queue_size must not be negative")
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		problems = append(problems, fmt.Sprintf("log.format %q must be json or text", c.Log.Format))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return nil
}

// PlaybackConfig returns the controller settings.
func (c *Config) PlaybackConfig() playback.Config {
	return playback.Config{
		SeekTolerance:   c.Editing.SeekTolerance,
		MaxStaleUpdates: c.Editing.MaxStaleUpdates,
	}
}
