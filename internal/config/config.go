package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	SessionBackendMemory = "memory"
	SessionBackendFile   = "file"
	SessionBackendRedis  = "redis"

	AIProviderBackend = "backend"
	AIProviderOpenAI  = "openai"
)

// Config holds the assistant client configuration
type Config struct {
	APIURL          string        `yaml:"api_url"`
	GraceWindow     time.Duration `yaml:"grace_window"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	SessionBackend  string        `yaml:"session_backend"`
	SessionFile     string        `yaml:"session_file"`
	RedisURL        string        `yaml:"redis_url"`
	AIProvider      string        `yaml:"ai_provider"`
	OpenAIKey       string        `yaml:"-"`
	AIModel         string        `yaml:"ai_model"`
	AIBaseURL       string        `yaml:"ai_base_url"`
	DebugMode       bool          `yaml:"debug"`
	LogFormat       string        `yaml:"log_format"`
	OTELEnabled     bool          `yaml:"otel_enabled"`
	OTELEndpoint    string        `yaml:"otel_endpoint"`
	Token           string        `yaml:"-"`
}

// Defaults returns the configuration used when nothing is set
func Defaults() *Config {
	return &Config{
		GraceWindow:     10 * time.Second,
		RefreshInterval: 60 * time.Second,
		RequestTimeout:  30 * time.Second,
		SessionBackend:  SessionBackendMemory,
		SessionFile:     defaultSessionFile(),
		RedisURL:        "redis://localhost:6379/0",
		AIProvider:      AIProviderBackend,
		LogFormat:       "console",
	}
}

// Load builds the configuration from defaults, an optional YAML file named by
// CALENDAR_CONFIG_FILE, and environment variables, in increasing precedence.
func Load() (*Config, error) {
	cfg, err := Read()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read is Load without validation, for commands that do not talk to the
// calendar backend
func Read() (*Config, error) {
	cfg := Defaults()

	if path := os.Getenv("CALENDAR_CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.APIURL = getEnv("CALENDAR_API_URL", cfg.APIURL)
	cfg.GraceWindow = getEnvDuration("CALENDAR_GRACE_WINDOW", cfg.GraceWindow)
	cfg.RefreshInterval = getEnvDuration("CALENDAR_REFRESH_INTERVAL", cfg.RefreshInterval)
	cfg.RequestTimeout = getEnvDuration("CALENDAR_REQUEST_TIMEOUT", cfg.RequestTimeout)
	cfg.SessionBackend = getEnv("SESSION_BACKEND", cfg.SessionBackend)
	cfg.SessionFile = getEnv("SESSION_FILE", cfg.SessionFile)
	cfg.RedisURL = getEnv("REDIS_URL", cfg.RedisURL)
	cfg.AIProvider = getEnv("AI_PROVIDER", cfg.AIProvider)
	cfg.OpenAIKey = getEnv("OPENAI_API_KEY", cfg.OpenAIKey)
	cfg.AIModel = getEnv("AI_MODEL", cfg.AIModel)
	cfg.AIBaseURL = getEnv("AI_BASE_URL", cfg.AIBaseURL)
	cfg.DebugMode = getEnvBool("DEBUG_MODE", cfg.DebugMode)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)
	cfg.OTELEnabled = getEnvBool("OTEL_ENABLED", cfg.OTELEnabled)
	cfg.OTELEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTELEndpoint)
	cfg.Token = getEnv("CALENDAR_TOKEN", cfg.Token)
	return cfg, nil
}

// Validate checks required values and enumerations
func (c *Config) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("CALENDAR_API_URL is required")
	}
	if c.GraceWindow <= 0 {
		return fmt.Errorf("grace window must be positive, got %s", c.GraceWindow)
	}
	if c.RefreshInterval < time.Second {
		return fmt.Errorf("refresh interval must be at least 1s, got %s", c.RefreshInterval)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %s", c.RequestTimeout)
	}

	switch c.SessionBackend {
	case SessionBackendMemory, SessionBackendFile:
	case SessionBackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when SESSION_BACKEND=redis")
		}
	default:
		return fmt.Errorf("invalid SESSION_BACKEND %q (must be memory, file or redis)", c.SessionBackend)
	}

	switch c.AIProvider {
	case AIProviderBackend:
	case AIProviderOpenAI:
		if c.OpenAIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when AI_PROVIDER=openai")
		}
	default:
		return fmt.Errorf("invalid AI_PROVIDER %q (must be backend or openai)", c.AIProvider)
	}
	return nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".calendar-session.json"
	}
	return dir + string(os.PathSeparator) + "smart-calendar" + string(os.PathSeparator) + "session.json"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("10s") or a bare number of seconds
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs := getEnvInt(key, -1); secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
