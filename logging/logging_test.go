package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.log")
	logger, err := New(Options{Level: "debug", File: path, MaxSizeMB: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	logger.Info("inference completed")
	logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	line := strings.TrimSpace(string(data))
	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("log line is not json: %q", line)
	}
	if entry["msg"] != "inference completed" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestNewRespectsLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.log")
	logger, err := New(Options{Level: "warn", File: path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	logger.Info("dropped")
	logger.Sync()

	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "dropped") {
		t.Fatal("info entry written at warn level")
	}
}

func TestNewRejectsBadLevel(t *testing.T) {
	if _, err := New(Options{Level: "loud"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
