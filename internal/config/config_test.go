package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Control.Addr != ":8080" {
		t.Errorf("control addr: got %q", cfg.Control.Addr)
	}
	if cfg.Stream.Host != "0.0.0.0" {
		t.Errorf("stream host: got %q", cfg.Stream.Host)
	}
	if cfg.Stream.Port != 0 {
		t.Errorf("stream port should default to ephemeral, got %d", cfg.Stream.Port)
	}
	if cfg.Stream.Autostart {
		t.Errorf("autostart should default to false")
	}
	if cfg.Recording.Dir != "recordings" {
		t.Errorf("recordings dir: got %q", cfg.Recording.Dir)
	}
	if cfg.Recording.MaxBytes != defaultMaxRecordingBytes {
		t.Errorf("max bytes: got %d", cfg.Recording.MaxBytes)
	}
	if cfg.Storage.Enabled() {
		t.Errorf("storage should be disabled without bucket/region")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("CONTROL_ADDR", "9000")
	t.Setenv("STREAM_PORT", "8765")
	t.Setenv("STREAM_AUTOSTART", "true")
	t.Setenv("MAX_RECORDING_BYTES", "1048576")
	t.Setenv("S3_BUCKET", "interviews")
	t.Setenv("S3_REGION", "us-east-1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Control.Addr != ":9000" {
		t.Errorf("bare port should gain a colon, got %q", cfg.Control.Addr)
	}
	if cfg.Stream.Port != 8765 {
		t.Errorf("stream port: got %d", cfg.Stream.Port)
	}
	if !cfg.Stream.Autostart {
		t.Errorf("autostart not parsed")
	}
	if cfg.Recording.MaxBytes != 1048576 {
		t.Errorf("max bytes: got %d", cfg.Recording.MaxBytes)
	}
	if !cfg.Storage.Enabled() {
		t.Errorf("storage should be enabled")
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("STREAM_PORT", "70000")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for out-of-range port")
	}
}

func TestLoadRejectsNonNumericPort(t *testing.T) {
	t.Setenv("STREAM_PORT", "abc")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for non-numeric port")
	}
}

func TestLoadRejectsNonPositiveMaxBytes(t *testing.T) {
	t.Setenv("MAX_RECORDING_BYTES", "0")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for zero max bytes")
	}
}
