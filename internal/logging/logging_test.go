package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	// Arrange
	path := "/tmp/livectl/livectl.log"

	// Act
	cfg := DefaultConfig(path)

	// Assert
	if cfg.Path != path {
		t.Errorf("Path = %q, want %q", cfg.Path, path)
	}
	if cfg.MaxSizeMB != 50 {
		t.Errorf("MaxSizeMB = %d, want 50", cfg.MaxSizeMB)
	}
	if cfg.MaxBackups != 3 {
		t.Errorf("MaxBackups = %d, want 3", cfg.MaxBackups)
	}
	if !cfg.Compress {
		t.Error("Compress = false, want true")
	}
}

func TestNewRotatingWriter(t *testing.T) {
	// Arrange
	logPath := filepath.Join(t.TempDir(), "peer.log")
	cfg := Config{Path: logPath, MaxSizeMB: 1, MaxBackups: 1, MaxAgeDays: 1}

	// Act
	writer := NewRotatingWriter(cfg)
	_, err := writer.Write([]byte("peer started\n"))
	writer.Close()

	// Assert
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "peer started\n" {
		t.Errorf("file content = %q", data)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{" error ", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)

			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	// Arrange
	var buf bytes.Buffer
	logger := NewLogger(&buf)

	// Act
	logger.Info("command completed", "command", "set_tempo")
	logger.Debug("settle", "phase", "post")

	// Assert
	output := buf.String()
	if !strings.Contains(output, "command completed") || !strings.Contains(output, "command=set_tempo") {
		t.Errorf("unexpected output: %q", output)
	}
	if !strings.Contains(output, "level=INFO") {
		t.Errorf("output should contain level=INFO: %q", output)
	}
	if strings.Contains(output, "settle") {
		t.Errorf("debug record should be dropped at info level: %q", output)
	}
}

func TestNewLeveledLogger(t *testing.T) {
	// Arrange
	var buf bytes.Buffer
	logger := NewLeveledLogger(&buf, slog.LevelDebug)

	// Act
	logger.Debug("settle", "phase", "post")

	// Assert
	if !strings.Contains(buf.String(), "level=DEBUG") {
		t.Errorf("debug record missing: %q", buf.String())
	}
}

func TestOpen(t *testing.T) {
	// Arrange
	logPath := filepath.Join(t.TempDir(), "logs", "nested", "livectl.log")

	// Act
	logger, closer, err := Open(DefaultConfig(logPath), slog.LevelInfo, "peer")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	logger.Info("listening", "addr", "127.0.0.1:9877")
	closer.Close()

	// Assert
	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	out := string(data)
	if !strings.Contains(out, "component=peer") || !strings.Contains(out, "addr=127.0.0.1:9877") {
		t.Errorf("log file = %q", out)
	}
}

func TestDiscard(t *testing.T) {
	logger := Discard()

	if logger.Enabled(t.Context(), slog.LevelError) {
		t.Error("Discard() logger should not be enabled at any level")
	}
}
