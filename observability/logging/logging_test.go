package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestSetupEmitsRenamedKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := setup(&buf, "promptd", "prompt-local", "")
	logger.Info("node ready", slog.String("addr", ":8080"))

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if line["message"] != "node ready" {
		t.Fatalf("message = %v", line["message"])
	}
	if line["service"] != "promptd" || line["network"] != "prompt-local" {
		t.Fatalf("context attrs = %v / %v", line["service"], line["network"])
	}
	if _, ok := line["ts"]; !ok {
		t.Fatal("expected ts key")
	}
	if _, ok := line["time"]; ok {
		t.Fatal("time key should be renamed")
	}
}

func TestSetupHonoursLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := setup(&buf, "promptd", "", "error")
	logger.Info("quiet")
	if buf.Len() != 0 {
		t.Fatalf("info line emitted below the configured level: %q", buf.String())
	}
	logger.Error("loud")
	if buf.Len() == 0 {
		t.Fatal("error line suppressed")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for raw, want := range cases {
		if got := ParseLevel(raw); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", raw, got, want)
		}
	}
}
