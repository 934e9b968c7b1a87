package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultAgentURL = "wss://agent.deepgram.com/v1/agent/converse"

// Config holds all server configuration
type Config struct {
	Port              int
	PublicHost        string // Host used in the TwiML stream URL; falls back to the request Host
	DeepgramAPIKey    string
	AgentURL          string
	AgentSettingsPath string // Optional JSON file sent verbatim as the agent Settings message
	RedisURL          string
	RedisPassword     string
	MaxSessions       int
	SessionTimeout    time.Duration
	FrameSize         int // Bytes per frame forwarded to the agent
	AudioQueueSize    int // Frames buffered between the Twilio reader and the agent writer
	WriteTimeout      time.Duration
	FunctionTimeout   time.Duration // Zero disables the dispatch timeout
	BargeInTypes      []string
	LogLevel          string
	LogFormat         string
}

// LoadConfig loads configuration from environment variables with defaults
func LoadConfig() (*Config, error) {
	// Load .env file if it exists (doesn't error if missing)
	_ = godotenv.Load()

	config := &Config{
		Port:            5000,
		AgentURL:        defaultAgentURL,
		RedisURL:        "localhost:6379",
		MaxSessions:     100,
		SessionTimeout:  30 * time.Minute,
		FrameSize:       20 * 160, // 20 mu-law packets of 20ms
		AudioQueueSize:  50,
		WriteTimeout:    10 * time.Second,
		FunctionTimeout: 15 * time.Second,
		BargeInTypes:    []string{"UserStartedSpeaking"},
		LogLevel:        "info",
		LogFormat:       "text",
	}

	// Required: DEEPGRAM_API_KEY
	config.DeepgramAPIKey = os.Getenv("DEEPGRAM_API_KEY")
	if config.DeepgramAPIKey == "" {
		return nil, fmt.Errorf("DEEPGRAM_API_KEY environment variable is required")
	}

	if err := config.applyEnv(); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("DEEPGRAM_AGENT_URL"); v != "" {
		c.AgentURL = v
	}
	c.AgentSettingsPath = os.Getenv("AGENT_SETTINGS_PATH")
	c.PublicHost = os.Getenv("PUBLIC_HOST")

	if v := os.Getenv("REDIS_URL"); v != "" {
		c.RedisURL = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.RedisPassword = v
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"PORT", &c.Port},
		{"MAX_SESSIONS", &c.MaxSessions},
		{"FRAME_SIZE", &c.FrameSize},
		{"AUDIO_QUEUE_SIZE", &c.AudioQueueSize},
	}
	for _, e := range ints {
		if v := os.Getenv(e.name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", e.name, err)
			}
			*e.dst = n
		}
	}

	durations := []struct {
		name string
		unit time.Duration
		dst  *time.Duration
	}{
		{"SESSION_TIMEOUT", time.Minute, &c.SessionTimeout},
		{"WRITE_TIMEOUT", time.Second, &c.WriteTimeout},
		{"FUNCTION_TIMEOUT", time.Second, &c.FunctionTimeout},
	}
	for _, e := range durations {
		if v := os.Getenv(e.name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", e.name, err)
			}
			*e.dst = time.Duration(n) * e.unit
		}
	}

	// Optional: BARGE_IN_TYPES (comma-separated)
	if v := os.Getenv("BARGE_IN_TYPES"); v != "" {
		var types []string
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				types = append(types, t)
			}
		}
		c.BargeInTypes = types
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = strings.ToLower(v)
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.LogFormat = strings.ToLower(v)
	}
	return nil
}

// Validate rejects values the relay cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Port <= 0:
		return fmt.Errorf("invalid PORT: %d", c.Port)
	case c.MaxSessions <= 0:
		return fmt.Errorf("invalid MAX_SESSIONS: must be positive")
	case c.FrameSize <= 0:
		return fmt.Errorf("invalid FRAME_SIZE: must be positive")
	case c.AudioQueueSize <= 0:
		return fmt.Errorf("invalid AUDIO_QUEUE_SIZE: must be positive")
	case c.WriteTimeout <= 0:
		return fmt.Errorf("invalid WRITE_TIMEOUT: must be positive")
	case c.FunctionTimeout < 0:
		return fmt.Errorf("invalid FUNCTION_TIMEOUT: must not be negative")
	case len(c.BargeInTypes) == 0:
		return fmt.Errorf("invalid BARGE_IN_TYPES: at least one type is required")
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid LOG_FORMAT: must be 'text' or 'json'")
	}
	return nil
}
