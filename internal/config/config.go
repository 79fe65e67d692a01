package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mkempf/voicedesk/internal/calendar"
	"github.com/mkempf/voicedesk/internal/weather"
)

// Config holds all configuration values.
type Config struct {
	// Collaborator endpoints
	WeatherURL  string
	CalendarURL string
	CalendarID  string

	// Transcript persistence ("" disables the turn log)
	TranscriptPath string

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// Load reads configuration from environment variables, falling back to the
// collaborator defaults the original deployment used.
func Load() Config {
	return Config{
		WeatherURL:  getEnv("VOICEDESK_WEATHER_URL", weather.DefaultURL),
		CalendarURL: getEnv("VOICEDESK_CALENDAR_URL", calendar.DefaultURL),
		CalendarID:  getEnv("VOICEDESK_CALENDAR_ID", ""),

		TranscriptPath: getEnv("VOICEDESK_TRANSCRIPT", ""),

		LogFile:  getEnv("VOICEDESK_LOG_FILE", "/tmp/voicedesk.log"),
		LogLevel: parseLogLevel(getEnv("VOICEDESK_LOG_LEVEL", "INFO")),
	}
}

// fileConfig mirrors Config for the optional YAML overlay file. Only set
// fields override the environment-derived values.
type fileConfig struct {
	WeatherURL     string `yaml:"weather_url"`
	CalendarURL    string `yaml:"calendar_url"`
	CalendarID     string `yaml:"calendar_id"`
	TranscriptPath string `yaml:"transcript"`
	LogFile        string `yaml:"log_file"`
	LogLevel       string `yaml:"log_level"`
}

// ApplyFile overlays values from a YAML config file onto cfg.
func ApplyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	if fc.WeatherURL != "" {
		cfg.WeatherURL = fc.WeatherURL
	}
	if fc.CalendarURL != "" {
		cfg.CalendarURL = fc.CalendarURL
	}
	if fc.CalendarID != "" {
		cfg.CalendarID = fc.CalendarID
	}
	if fc.TranscriptPath != "" {
		cfg.TranscriptPath = fc.TranscriptPath
	}
	if fc.LogFile != "" {
		cfg.LogFile = fc.LogFile
	}
	if fc.LogLevel != "" {
		cfg.LogLevel = parseLogLevel(fc.LogLevel)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
