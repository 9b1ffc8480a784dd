package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New("loud", ""); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "savemoney.log")
	log, err := New("info", path)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	log.Info("withdrawal reserved")
	log.Debug("hidden")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "withdrawal reserved") {
		t.Fatalf("expected info entry in file, got %q", data)
	}
	if strings.Contains(string(data), "hidden") {
		t.Fatal("debug entry must be filtered at info level")
	}
}
