package logger

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/wonny/aegis-allocator/pkg/config"
)

// entries decodes one JSON object per line
func entries(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	sc := bufio.NewScanner(buf)
	for sc.Scan() {
		var e map[string]interface{}
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("Failed to parse log line %q: %v", sc.Text(), err)
		}
		out = append(out, e)
	}
	return out
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{" error ", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNew_LevelIsPerLogger(t *testing.T) {
	before := zerolog.GlobalLevel()

	log := New(&config.Config{Env: "production", LogLevel: "error", LogFormat: "json"})
	if got := log.zlog.GetLevel(); got != zerolog.ErrorLevel {
		t.Errorf("Expected error level, got %v", got)
	}
	if zerolog.GlobalLevel() != before {
		t.Errorf("New must not change the global level")
	}
}

func TestNewWithWriter_FiltersLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "warn")

	log.Debug("dropped")
	log.Info("dropped")
	log.Warn("kept warn")
	log.Error("kept error")

	got := entries(t, &buf)
	if len(got) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(got))
	}
	if got[0]["level"] != "warn" || got[0]["message"] != "kept warn" {
		t.Errorf("Unexpected first entry: %v", got[0])
	}
	if got[1]["level"] != "error" {
		t.Errorf("Unexpected second entry: %v", got[1])
	}
	if _, ok := got[0]["time"]; !ok {
		t.Error("Expected timestamp field")
	}
}

func TestWithFields_StageEntry(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "info")

	log.WithFields(map[string]interface{}{
		"run_id":      "run-1",
		"stage":       "simulation",
		"duration_ms": 42,
	}).Info("Stage completed")

	got := entries(t, &buf)
	if len(got) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(got))
	}
	e := got[0]
	if e["run_id"] != "run-1" || e["stage"] != "simulation" {
		t.Errorf("Missing stage fields: %v", e)
	}
	// JSON numbers decode as float64
	if e["duration_ms"] != float64(42) {
		t.Errorf("Expected duration_ms=42, got %v", e["duration_ms"])
	}
	if e["message"] != "Stage completed" {
		t.Errorf("Unexpected message: %v", e["message"])
	}
}

func TestWithField_DoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := NewWithWriter(&buf, "info")

	parent.WithField("run_id", "run-2").Info("child")
	parent.Info("parent")

	got := entries(t, &buf)
	if len(got) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(got))
	}
	if got[0]["run_id"] != "run-2" {
		t.Errorf("Child entry missing run_id: %v", got[0])
	}
	if _, ok := got[1]["run_id"]; ok {
		t.Errorf("Parent entry must not carry child fields: %v", got[1])
	}
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "info")

	log.WithError(errors.New("insufficient data")).
		WithField("stage", "estimation").
		Error("Stage failed")

	got := entries(t, &buf)
	if len(got) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(got))
	}
	if got[0]["error"] != "insufficient data" || got[0]["stage"] != "estimation" {
		t.Errorf("Unexpected entry: %v", got[0])
	}
}

func TestNewNop(t *testing.T) {
	log := NewNop()
	// 출력 없이 체이닝 가능해야 함
	log.WithField("run_id", "x").WithError(errors.New("boom")).Error("ignored")
}
