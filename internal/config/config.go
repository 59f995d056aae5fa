package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config aggregates every configurable section of the host.
type Config struct {
	Control   ControlConfig
	Stream    StreamConfig
	Recording RecordingConfig
	Storage   StorageConfig
	Database  DatabaseConfig
	Log       LogConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	control, err := loadControlConfig()
	if err != nil {
		return nil, err
	}

	stream, err := loadStreamConfig()
	if err != nil {
		return nil, err
	}

	recording, err := loadRecordingConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Control:   control,
		Stream:    stream,
		Recording: recording,
		Storage:   loadStorageConfig(),
		Database:  DatabaseConfig{URL: strings.TrimSpace(os.Getenv("DATABASE_URL"))},
		Log: LogConfig{
			Level: getEnvOrDefault("LOG_LEVEL", "info"),
			File:  strings.TrimSpace(os.Getenv("LOG_FILE")),
		},
	}, nil
}

// ControlConfig describes the control-plane HTTP listener.
type ControlConfig struct {
	Addr string
}

func loadControlConfig() (ControlConfig, error) {
	addr := getEnvOrDefault("CONTROL_ADDR", ":8080")
	if strings.Contains(addr, " ") {
		return ControlConfig{}, fmt.Errorf("invalid CONTROL_ADDR value: %q", addr)
	}
	if !strings.Contains(addr, ":") {
		// Allow passing just a port number.
		addr = ":" + addr
	}
	return ControlConfig{Addr: addr}, nil
}

// StreamConfig describes the audio stream listener.
type StreamConfig struct {
	Host      string
	Port      int // 0 asks the OS for an ephemeral port
	Autostart bool
}

func loadStreamConfig() (StreamConfig, error) {
	port := 0
	if raw, err := parseOptionalIntEnv("STREAM_PORT"); err != nil {
		return StreamConfig{}, err
	} else if raw != nil {
		if *raw < 0 || *raw > 65535 {
			return StreamConfig{}, fmt.Errorf("STREAM_PORT out of range: %d", *raw)
		}
		port = *raw
	}

	autostart, err := parseBoolEnv("STREAM_AUTOSTART", false)
	if err != nil {
		return StreamConfig{}, err
	}

	return StreamConfig{
		Host:      getEnvOrDefault("STREAM_HOST", "0.0.0.0"),
		Port:      port,
		Autostart: autostart,
	}, nil
}

// RecordingConfig describes where and how recordings are persisted.
type RecordingConfig struct {
	Dir      string
	MaxBytes int
}

const defaultMaxRecordingBytes = 64 << 20

func loadRecordingConfig() (RecordingConfig, error) {
	maxBytes := defaultMaxRecordingBytes
	if raw, err := parseOptionalIntEnv("MAX_RECORDING_BYTES"); err != nil {
		return RecordingConfig{}, err
	} else if raw != nil {
		if *raw <= 0 {
			return RecordingConfig{}, fmt.Errorf("MAX_RECORDING_BYTES must be positive, got %d", *raw)
		}
		maxBytes = *raw
	}

	return RecordingConfig{
		Dir:      getEnvOrDefault("RECORDINGS_DIR", "recordings"),
		MaxBytes: maxBytes,
	}, nil
}

// StorageConfig describes the S3 bucket recordings are uploaded to.
type StorageConfig struct {
	Bucket          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// Enabled reports whether enough is configured to attempt uploads.
func (c StorageConfig) Enabled() bool {
	return c.Bucket != "" && c.Region != ""
}

func loadStorageConfig() StorageConfig {
	return StorageConfig{
		Bucket:          strings.TrimSpace(os.Getenv("S3_BUCKET")),
		Region:          strings.TrimSpace(os.Getenv("S3_REGION")),
		AccessKeyID:     strings.TrimSpace(os.Getenv("AWS_ACCESS_KEY_ID")),
		SecretAccessKey: strings.TrimSpace(os.Getenv("AWS_SECRET_ACCESS_KEY")),
	}
}

// DatabaseConfig holds the user database DSN. Empty disables authentication.
type DatabaseConfig struct {
	URL string
}

// LogConfig holds logging options.
type LogConfig struct {
	Level string
	File  string
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
