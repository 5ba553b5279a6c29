package logging_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/ristryder/mkvimport/config"
	"github.com/ristryder/mkvimport/logging"
)

func TestConsoleLoggerWritesKeyValues(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "info", Format: "console", Output: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.With("import_id", "abc").WithGroup("track").Info("sample dropped", "number", 2, "reason", "sink failed", "err", errors.New("boom"))
	logger.Debug("hidden")

	line := buf.String()
	for _, want := range []string{"INFO ", "sample dropped", "import_id=abc", "track.number=2", `track.reason="sink failed"`, "track.err=boom"} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %q", want, line)
		}
	}
	if strings.Contains(line, "hidden") {
		t.Fatalf("debug record should be filtered at info level: %q", line)
	}
	if strings.Contains(line, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", line)
	}
}

func TestConsoleLoggerAddsSourceAtDebug(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "debug", Output: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Debug("cluster read")
	if !strings.Contains(buf.String(), "logger_test.go:") {
		t.Fatalf("expected caller information in debug logs, got %q", buf.String())
	}
}

func TestJSONLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "warn", Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("ignored")
	logger.Warn("track rejected", "number", 3)

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if record["level"] != "warn" || record["msg"] != "track rejected" {
		t.Fatalf("unexpected record: %v", record)
	}
	if _, ok := record["ts"]; !ok {
		t.Fatalf("expected ts field: %v", record)
	}
	if record["number"] != float64(3) {
		t.Fatalf("unexpected number field: %v", record["number"])
	}
}

func TestAutoFormatUsesJSONForNonTerminal(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "auto", Output: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("hello")
	if !strings.HasPrefix(buf.String(), "{") {
		t.Fatalf("expected JSON output for a buffer, got %q", buf.String())
	}
}

func TestNewRejectsUnknownSettings(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
	if _, err := logging.New(logging.Options{Level: "loud"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestNewFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.Format = "json"

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	if logger == nil {
		t.Fatal("expected logger instance")
	}

	if _, err := logging.NewFromConfig(nil); err != nil {
		t.Fatalf("NewFromConfig(nil) returned error: %v", err)
	}
}
